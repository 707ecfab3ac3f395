// Package menu holds the daily menu model and the Validator that checks a
// draft order against a menu snapshot.
//
// Menus are authored outside the service as YAML files. LoadFile decodes a
// file strictly, checks it against the embedded CUE schema (schema.cue) and
// converts it into a DailyMenu with absolute deadline timestamps.
//
// Item, condiment and side dish names are compared after trimming and
// Unicode NFC normalization, so "Caffè" typed on two different keyboards is
// the same dish.
package menu
