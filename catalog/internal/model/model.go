package model

import (
	"time"
)

type CopyStatus string

const (
	CopyAvailable CopyStatus = "available"
	CopyLoaned    CopyStatus = "loaned"
	CopyDamaged   CopyStatus = "damaged"
	CopyLost      CopyStatus = "lost"
	CopyInRepair  CopyStatus = "in_repair"
)

type LoanStatus string

const (
	LoanActive   LoanStatus = "active"
	LoanReturned LoanStatus = "returned"
)

type Shelf struct {
	ID       int    `json:"id" db:"id"`
	Name     string `json:"name" db:"name"`
	Capacity int    `json:"capacity" db:"capacity"`
}

type Author struct {
	ID          int        `json:"id" db:"id"`
	FirstName   string     `json:"firstName" db:"first_name"`
	LastName    string     `json:"lastName" db:"last_name"`
	Nationality *string    `json:"nationality,omitempty" db:"nationality"`
	BirthDate   *time.Time `json:"birthDate,omitempty" db:"birth_date"`
	Biography   *string    `json:"biography,omitempty" db:"biography"`
}

func (a Author) FullName() string {
	return a.FirstName + " " + a.LastName
}

type Genre struct {
	ID          int     `json:"id" db:"id"`
	Name        string  `json:"name" db:"name"`
	Description *string `json:"description,omitempty" db:"description"`
}

type Book struct {
	ID              int       `json:"id" db:"id"`
	Code            string    `json:"code" db:"code"`
	Title           string    `json:"title" db:"title"`
	ISBN            *string   `json:"isbn,omitempty" db:"isbn"`
	Year            int       `json:"year" db:"year"`
	Publisher       *string   `json:"publisher,omitempty" db:"publisher"`
	Pages           *int      `json:"pages,omitempty" db:"pages"`
	Description     *string   `json:"description,omitempty" db:"description"`
	AuthorID        int       `json:"-" db:"author_id"`
	GenreID         *int      `json:"-" db:"genre_id"`
	ShelfID         int       `json:"shelfId" db:"shelf_id"`
	AcquisitionDate time.Time `json:"acquisitionDate" db:"acquisition_date"`

	// Hydrated relations, populated by the repository.
	Author *Author `json:"author,omitempty" db:"-"`
	Genre  *Genre  `json:"genre,omitempty" db:"-"`
	Copies []Copy  `json:"copies,omitempty" db:"-"`
}

// AvailableCount counts hydrated copies in the available state.
func (b Book) AvailableCount() int {
	n := 0
	for _, c := range b.Copies {
		if c.Status == CopyAvailable {
			n++
		}
	}
	return n
}

func (b Book) LoanedCount() int {
	n := 0
	for _, c := range b.Copies {
		if c.Status == CopyLoaned {
			n++
		}
	}
	return n
}

type Copy struct {
	ID              int        `json:"id" db:"id"`
	BookID          int        `json:"bookId" db:"book_id"`
	CopyCode        string     `json:"copyCode" db:"copy_code"`
	Status          CopyStatus `json:"status" db:"status"`
	Location        *string    `json:"location,omitempty" db:"location"`
	AcquisitionDate time.Time  `json:"acquisitionDate" db:"acquisition_date"`
	Notes           *string    `json:"notes,omitempty" db:"notes"`
}

type User struct {
	ID           int       `json:"id" db:"id"`
	Name         string    `json:"name" db:"name"`
	Email        *string   `json:"email,omitempty" db:"email"`
	Phone        *string   `json:"phone,omitempty" db:"phone"`
	Address      *string   `json:"address,omitempty" db:"address"`
	RegisteredAt time.Time `json:"registeredAt" db:"registered_at"`
	Active       bool      `json:"active" db:"active"`
}

type Loan struct {
	ID           int        `json:"id" db:"id"`
	LoanUid      string     `json:"loanUid" db:"loan_uid"`
	CopyID       int        `json:"copyId" db:"copy_id"`
	UserID       int        `json:"userId" db:"user_id"`
	LoanDate     time.Time  `json:"loanDate" db:"loan_date"`
	DueDate      time.Time  `json:"dueDate" db:"due_date"`
	ReturnDate   *time.Time `json:"returnDate,omitempty" db:"return_date"`
	Status       LoanStatus `json:"status" db:"status"`
	Notes        *string    `json:"notes,omitempty" db:"notes"`
	RenewalCount int        `json:"renewalCount" db:"renewal_count"`
}

// IsOverdue reports whether the loan is active and past due at the given day.
// Derived, never stored.
func (l Loan) IsOverdue(today time.Time) bool {
	return l.Status == LoanActive && l.DueDate.Before(truncateDay(today))
}

func truncateDay(t time.Time) time.Time {
	y, m, d := t.Date()
	return time.Date(y, m, d, 0, 0, 0, 0, t.Location())
}

type CreateShelfRequest struct {
	Name     string `json:"name" validate:"required"`
	Capacity int    `json:"capacity" validate:"required,min=1"`
}

type UpdateShelfRequest struct {
	Name     *string `json:"name,omitempty"`
	Capacity *int    `json:"capacity,omitempty" validate:"omitempty,min=1"`
}

type CreateBookRequest struct {
	Code            string  `json:"code" validate:"required"`
	Title           string  `json:"title" validate:"required"`
	ISBN            *string `json:"isbn,omitempty"`
	Year            int     `json:"year" validate:"required"`
	Publisher       *string `json:"publisher,omitempty"`
	Pages           *int    `json:"pages,omitempty" validate:"omitempty,min=1"`
	Description     *string `json:"description,omitempty"`
	AuthorFirstName string  `json:"authorFirstName" validate:"required"`
	AuthorLastName  string  `json:"authorLastName" validate:"required"`
	GenreName       *string `json:"genreName,omitempty"`
	CopyCount       int     `json:"copyCount" validate:"required,min=1"`
	ShelfID         int     `json:"shelfId" validate:"required"`
}

type UpdateBookRequest struct {
	Title           *string `json:"title,omitempty"`
	ISBN            *string `json:"isbn,omitempty"`
	Year            *int    `json:"year,omitempty"`
	Publisher       *string `json:"publisher,omitempty"`
	Pages           *int    `json:"pages,omitempty" validate:"omitempty,min=1"`
	Description     *string `json:"description,omitempty"`
	AuthorFirstName *string `json:"authorFirstName,omitempty"`
	AuthorLastName  *string `json:"authorLastName,omitempty"`
	GenreName       *string `json:"genreName,omitempty"`
	ShelfID         *int    `json:"shelfId,omitempty"`
}

type CreateUserRequest struct {
	Name    string  `json:"name" validate:"required"`
	Email   *string `json:"email,omitempty" validate:"omitempty,email"`
	Phone   *string `json:"phone,omitempty"`
	Address *string `json:"address,omitempty"`
}

type IssueLoanRequest struct {
	CopyID int     `json:"copyId" validate:"required"`
	UserID int     `json:"userId" validate:"required"`
	Days   int     `json:"days" validate:"omitempty,min=1,max=90"`
	Notes  *string `json:"notes,omitempty"`
}

type IssueLoanByCodeRequest struct {
	BookCode string `json:"bookCode" validate:"required"`
	UserID   int    `json:"userId" validate:"required"`
	Days     int    `json:"days" validate:"omitempty,min=1,max=90"`
}

type RenewLoanRequest struct {
	ExtraDays int `json:"extraDays" validate:"required,min=1,max=30"`
}

// Summary is the set of library-wide counters used by the reports view.
type Summary struct {
	TotalBooks      int `json:"totalBooks" db:"total_books"`
	TotalCopies     int `json:"totalCopies" db:"total_copies"`
	AvailableCopies int `json:"availableCopies" db:"available_copies"`
	LoanedCopies    int `json:"loanedCopies" db:"loaned_copies"`
	ActiveLoans     int `json:"activeLoans" db:"active_loans"`
	OverdueLoans    int `json:"overdueLoans" db:"overdue_loans"`
	ActiveUsers     int `json:"activeUsers" db:"active_users"`
}
