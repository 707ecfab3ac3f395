package order

import (
	"errors"
	"fmt"
)

// Error is an order placement failure with a stable code the conversation
// engine uses to decide whether the flow terminates or resumes.
type Error struct {
	// Code identifies the error category.
	Code ErrorCode

	// Message is a human-readable description, safe to show to the user.
	Message string

	// Details contains additional context for logs.
	Details map[string]string

	// Err is the underlying cause, if any. Never shown to the user.
	Err error
}

// ErrorCode categorizes order placement failures.
type ErrorCode string

const (
	// ErrCodeUserInput indicates an unrecognized or missing choice.
	ErrCodeUserInput ErrorCode = "USER_INPUT"

	// ErrCodeValidation indicates the draft no longer matches the menu.
	ErrCodeValidation ErrorCode = "VALIDATION"

	// ErrCodeDeadlineExceeded indicates the menu deadline has passed.
	ErrCodeDeadlineExceeded ErrorCode = "DEADLINE_EXCEEDED"

	// ErrCodeTableFull indicates the chosen table has no free seat.
	ErrCodeTableFull ErrorCode = "TABLE_FULL"

	// ErrCodePersistence indicates a storage failure during commit.
	ErrCodePersistence ErrorCode = "PERSISTENCE"

	// ErrCodeAlreadyOrdered indicates the user already holds an active order.
	ErrCodeAlreadyOrdered ErrorCode = "ALREADY_ORDERED"

	// ErrCodeNoMenu indicates there is no enabled menu to order from.
	ErrCodeNoMenu ErrorCode = "NO_MENU"
)

// Error implements the error interface.
func (e *Error) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %s: %v", e.Code, e.Message, e.Err)
	}
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

// Unwrap returns the underlying cause.
func (e *Error) Unwrap() error {
	return e.Err
}

// CodeOf returns the code of the first *Error in err's chain, or "".
func CodeOf(err error) ErrorCode {
	var oe *Error
	if errors.As(err, &oe) {
		return oe.Code
	}
	return ""
}

// IsTableFull returns true if err is a table capacity failure.
func IsTableFull(err error) bool { return CodeOf(err) == ErrCodeTableFull }

// IsValidation returns true if err is a validation failure.
func IsValidation(err error) bool { return CodeOf(err) == ErrCodeValidation }

// IsDeadlineExceeded returns true if err is a deadline failure.
func IsDeadlineExceeded(err error) bool { return CodeOf(err) == ErrCodeDeadlineExceeded }

// IsPersistence returns true if err is a storage failure during commit.
func IsPersistence(err error) bool { return CodeOf(err) == ErrCodePersistence }

// IsAlreadyOrdered returns true if err reports a duplicate active order.
func IsAlreadyOrdered(err error) bool { return CodeOf(err) == ErrCodeAlreadyOrdered }

// IsNoMenu returns true if err reports that no menu is active.
func IsNoMenu(err error) bool { return CodeOf(err) == ErrCodeNoMenu }

// IsUserInput returns true if err reports an unexpected reply.
func IsUserInput(err error) bool { return CodeOf(err) == ErrCodeUserInput }

// NewValidationError creates an Error for a draft that does not match the menu.
func NewValidationError(reason string) *Error {
	return &Error{Code: ErrCodeValidation, Message: reason}
}

// NewDeadlineError creates an Error for a commit attempted after the deadline.
func NewDeadlineError(deadline string) *Error {
	return &Error{
		Code:    ErrCodeDeadlineExceeded,
		Message: fmt.Sprintf("orders closed at %s", deadline),
		Details: map[string]string{"deadline": deadline},
	}
}

// NewTableFullError creates an Error for a table with no free seat.
func NewTableFullError(tableID string, used, capacity int) *Error {
	return &Error{
		Code:    ErrCodeTableFull,
		Message: "the selected table is full",
		Details: map[string]string{
			"table_id": tableID,
			"used":     fmt.Sprintf("%d", used),
			"capacity": fmt.Sprintf("%d", capacity),
		},
	}
}

// NewPersistenceError wraps a storage failure.
func NewPersistenceError(err error) *Error {
	return &Error{
		Code:    ErrCodePersistence,
		Message: "the order could not be saved",
		Err:     err,
	}
}

// NewUserInputError creates an Error for an unexpected reply.
func NewUserInputError(reason string) *Error {
	return &Error{Code: ErrCodeUserInput, Message: reason}
}

// NewNoMenuError creates an Error for an operation that needs an active menu.
func NewNoMenuError() *Error {
	return &Error{Code: ErrCodeNoMenu, Message: "there is no menu to order from"}
}
