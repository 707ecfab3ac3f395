package menu

import (
	"bytes"
	_ "embed"
	"fmt"
	"os"
	"time"

	"cuelang.org/go/cue"
	"cuelang.org/go/cue/cuecontext"
	cueerrors "cuelang.org/go/cue/errors"
	"gopkg.in/yaml.v3"
)

//go:embed schema.cue
var schemaCUE string

// File is the on-disk YAML shape of a daily menu.
//
// Example:
//
//	date: "2026-10-17"
//	deadline: "12:30"
//	timezone: Europe/Rome
//	first_courses:
//	  - name: Pasta
//	    condiments: [Pesto, Tomato]
//	second_courses: [Chicken]
//	side_dishes: [Fries, Salad]
//	tables:
//	  - id: window
//	    name: Window table
//	    seats: 4
type File struct {
	ID             string      `yaml:"id" json:"id"`
	Date           string      `yaml:"date" json:"date"`
	Deadline       string      `yaml:"deadline" json:"deadline"`
	Timezone       string      `yaml:"timezone" json:"timezone"`
	Enabled        *bool       `yaml:"enabled" json:"enabled"`
	RatingOpens    string      `yaml:"rating_opens" json:"rating_opens"`
	FirstCourses   []FileFirst `yaml:"first_courses" json:"first_courses"`
	SecondCourses  []string    `yaml:"second_courses" json:"second_courses"`
	SideDishes     []string    `yaml:"side_dishes" json:"side_dishes"`
	Tables         []FileTable `yaml:"tables" json:"tables"`
	AdditionalInfo string      `yaml:"additional_info" json:"additional_info"`
}

// FileFirst is a first course entry in a menu file.
type FileFirst struct {
	Name       string   `yaml:"name" json:"name"`
	Condiments []string `yaml:"condiments" json:"condiments"`
}

// FileTable is a table entry in a menu file.
type FileTable struct {
	ID      string `yaml:"id" json:"id"`
	Name    string `yaml:"name" json:"name"`
	Seats   int    `yaml:"seats" json:"seats"`
	Enabled *bool  `yaml:"enabled" json:"enabled"`
}

// LoadFile reads, checks and converts a YAML menu file.
func LoadFile(path string) (DailyMenu, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return DailyMenu{}, fmt.Errorf("failed to read menu file: %w", err)
	}
	return Parse(data)
}

// Parse decodes a YAML menu document, rejecting unknown fields, and checks
// it against the CUE schema before converting it.
func Parse(data []byte) (DailyMenu, error) {
	var f File
	decoder := yaml.NewDecoder(bytes.NewReader(data))
	decoder.KnownFields(true)
	if err := decoder.Decode(&f); err != nil {
		return DailyMenu{}, fmt.Errorf("failed to parse menu YAML: %w", err)
	}

	f.applyDefaults()

	if err := f.checkSchema(); err != nil {
		return DailyMenu{}, err
	}

	return f.DailyMenu()
}

// applyDefaults fills optional fields so the document is fully concrete.
func (f *File) applyDefaults() {
	if f.ID == "" {
		f.ID = f.Date
	}
	if f.Enabled == nil {
		f.Enabled = boolPtr(true)
	}
	if f.FirstCourses == nil {
		f.FirstCourses = []FileFirst{}
	}
	for i := range f.FirstCourses {
		if f.FirstCourses[i].Condiments == nil {
			f.FirstCourses[i].Condiments = []string{}
		}
	}
	if f.SecondCourses == nil {
		f.SecondCourses = []string{}
	}
	if f.SideDishes == nil {
		f.SideDishes = []string{}
	}
	if f.Tables == nil {
		f.Tables = []FileTable{}
	}
	for i := range f.Tables {
		if f.Tables[i].Enabled == nil {
			f.Tables[i].Enabled = boolPtr(true)
		}
	}
}

// checkSchema unifies the document with #DailyMenu and requires a concrete result.
func (f *File) checkSchema() error {
	ctx := cuecontext.New()

	schema := ctx.CompileString(schemaCUE, cue.Filename("schema.cue"))
	if err := schema.Err(); err != nil {
		return fmt.Errorf("compile menu schema: %w", err)
	}
	def := schema.LookupPath(cue.ParsePath("#DailyMenu"))

	doc := ctx.Encode(f)
	if err := doc.Err(); err != nil {
		return fmt.Errorf("encode menu: %w", err)
	}

	if err := def.Unify(doc).Validate(cue.Concrete(true)); err != nil {
		return fmt.Errorf("menu does not match schema: %s", cueerrors.Details(err, nil))
	}

	if len(f.FirstCourses) == 0 && len(f.SecondCourses) == 0 {
		return fmt.Errorf("menu does not match schema: at least one first or second course is required")
	}

	seen := make(map[string]bool, len(f.Tables))
	for _, t := range f.Tables {
		if seen[t.ID] {
			return fmt.Errorf("menu does not match schema: duplicate table id %q", t.ID)
		}
		seen[t.ID] = true
	}

	return nil
}

// DailyMenu converts the file into the runtime model.
func (f *File) DailyMenu() (DailyMenu, error) {
	loc := time.Local
	if f.Timezone != "" {
		l, err := time.LoadLocation(f.Timezone)
		if err != nil {
			return DailyMenu{}, fmt.Errorf("invalid timezone %q: %w", f.Timezone, err)
		}
		loc = l
	}

	deadline, err := time.ParseInLocation("2006-01-02 15:04", f.Date+" "+f.Deadline, loc)
	if err != nil {
		return DailyMenu{}, fmt.Errorf("invalid deadline: %w", err)
	}

	m := DailyMenu{
		ID:             f.ID,
		Date:           f.Date,
		Deadline:       deadline,
		Enabled:        f.Enabled == nil || *f.Enabled,
		SecondCourses:  append([]string{}, f.SecondCourses...),
		SideDishes:     append([]string{}, f.SideDishes...),
		AdditionalInfo: f.AdditionalInfo,
	}

	if f.RatingOpens != "" {
		opens, err := time.ParseInLocation("2006-01-02 15:04", f.Date+" "+f.RatingOpens, loc)
		if err != nil {
			return DailyMenu{}, fmt.Errorf("invalid rating_opens: %w", err)
		}
		m.RatingOpensAt = opens
	}

	for _, fc := range f.FirstCourses {
		m.FirstCourses = append(m.FirstCourses, FirstCourseOption{
			Name:       fc.Name,
			Condiments: append([]string{}, fc.Condiments...),
		})
	}
	for _, t := range f.Tables {
		m.Tables = append(m.Tables, Table{
			ID:           t.ID,
			Name:         t.Name,
			SeatCapacity: t.Seats,
			Enabled:      t.Enabled == nil || *t.Enabled,
		})
	}

	return m, nil
}

func boolPtr(b bool) *bool { return &b }
