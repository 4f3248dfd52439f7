package calendar

import "errors"

// ValidationError is a user-recoverable failure. Its message is shown to
// the user as is.
type ValidationError struct {
	msg string
}

func (e *ValidationError) Error() string { return e.msg }

func newValidationError(msg string) *ValidationError {
	return &ValidationError{msg: msg}
}

var (
	ErrTitleRequired    = newValidationError("Title cannot be empty.")
	ErrDateRequired     = newValidationError("Selected date cannot be empty.")
	ErrInvalidTime      = newValidationError("Times must use HH:MM.")
	ErrTimeOrder        = newValidationError("End time must be after start time.")
	ErrUnknownCategory  = newValidationError("Category does not exist.")
	ErrCategoryName     = newValidationError("Category name cannot be empty.")
	ErrCategoryExists   = newValidationError("Category name already exists.")
	ErrCategoryInUse    = newValidationError("Cannot delete category: It is being used.")
	ErrLastCategory     = newValidationError("Cannot delete the last category.")
	ErrSaveInProgress   = errors.New("save already in progress")
	ErrNothingToConfirm = errors.New("no pending confirmation")
	ErrDialogClosed     = errors.New("no event dialog open")
)

// IsValidation reports whether err is a user-facing validation failure.
func IsValidation(err error) bool {
	var v *ValidationError
	return errors.As(err, &v)
}
