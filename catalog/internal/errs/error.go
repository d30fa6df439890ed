package errs

import (
	"errors"
	"fmt"
)

var (
	ErrNotFound = errors.New("not found")

	ErrDuplicateCode      = errors.New("book code already exists")
	ErrDuplicateISBN      = errors.New("book isbn already exists")
	ErrDuplicateShelfName = errors.New("shelf name already exists")
	ErrDuplicateCopyCode  = errors.New("copy code already exists")
	ErrDuplicateAuthor    = errors.New("author already exists")
	ErrDuplicateGenre     = errors.New("genre already exists")
	ErrDuplicateEmail     = errors.New("user email already exists")

	ErrCopyNotAvailable = errors.New("copy is not available")
	ErrCopyNotRemovable = errors.New("copy is not removable")
	ErrNoActiveLoan     = errors.New("no active loan")
	ErrLoanOverdue      = errors.New("loan is overdue")
	ErrUserInactive     = errors.New("user is not active")
	ErrShelfNotEmpty    = errors.New("shelf still holds books")
	ErrSameShelf        = errors.New("book is already on that shelf")
	ErrBookHasLoans     = errors.New("book has loaned copies")
)

// ValidationError is raised by the facade for malformed input. It never
// reaches the store.
type ValidationError struct {
	Message string
}

func (e *ValidationError) Error() string {
	return e.Message
}

func Validationf(format string, args ...interface{}) error {
	return &ValidationError{Message: fmt.Sprintf(format, args...)}
}

// ShelfFullError reports a rejected placement with enough context for the
// caller to render actionable guidance.
type ShelfFullError struct {
	ShelfName string `json:"shelfName"`
	Capacity  int    `json:"capacity"`
	Occupied  int    `json:"occupied"`
	Requested int    `json:"requested"`
}

func (e *ShelfFullError) Error() string {
	return fmt.Sprintf("not enough space on shelf %q: capacity %d, occupied %d, requested %d",
		e.ShelfName, e.Capacity, e.Occupied, e.Requested)
}
