package repository

import (
	"context"
	"database/sql"
	"strings"
	"time"

	sq "github.com/Masterminds/squirrel"
	"github.com/jackc/pgerrcode"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jmoiron/sqlx"
	"github.com/pkg/errors"
	"go.uber.org/zap"

	"github.com/chrismer/biblioteca-service/catalog/internal/errs"
	"github.com/chrismer/biblioteca-service/catalog/internal/model"
)

// Queries is the set of store operations available inside a transactional
// unit. Every check-then-act sequence (capacity checks, loan state
// transitions) must run through a single Queries instance obtained from
// Repository.InTx so that it commits or rolls back as a whole.
type Queries interface {
	ShelfByID(ctx context.Context, id int) (model.Shelf, error)
	ShelfOccupancy(ctx context.Context, shelfID int) (int, error)
	ShelfBookCount(ctx context.Context, shelfID int) (int, error)
	BookIDsByShelf(ctx context.Context, shelfID int) ([]int, error)
	InsertShelf(ctx context.Context, name string, capacity int) (int, error)
	UpdateShelf(ctx context.Context, shelf model.Shelf) error
	DeleteShelf(ctx context.Context, id int) error

	BookByID(ctx context.Context, id int) (model.Book, error)
	BookByCode(ctx context.Context, code string) (model.Book, error)
	InsertBook(ctx context.Context, book model.Book) (int, error)
	UpdateBook(ctx context.Context, book model.Book) error
	UpdateBookShelf(ctx context.Context, bookID, shelfID int) error
	DeleteBook(ctx context.Context, id int) error

	CopyByID(ctx context.Context, id int) (model.Copy, error)
	CopiesByBook(ctx context.Context, bookID int) ([]model.Copy, error)
	InsertCopy(ctx context.Context, copy model.Copy) (int, error)
	UpdateCopyLocation(ctx context.Context, copyID int, location string) error
	UpdateCopyStatus(ctx context.Context, copyID int, status model.CopyStatus) error
	DeleteCopy(ctx context.Context, id int) error

	UserByID(ctx context.Context, id int) (model.User, error)

	AuthorByName(ctx context.Context, firstName, lastName string) (model.Author, error)
	InsertAuthor(ctx context.Context, author model.Author) (int, error)
	GenreByName(ctx context.Context, name string) (model.Genre, error)
	InsertGenre(ctx context.Context, genre model.Genre) (int, error)

	LoanByID(ctx context.Context, id int) (model.Loan, error)
	ActiveLoanByCopy(ctx context.Context, copyID int) (model.Loan, error)
	InsertLoan(ctx context.Context, loan model.Loan) (model.Loan, error)
	MarkLoanReturned(ctx context.Context, loanID int, returnDate time.Time) error
	UpdateLoanDueDate(ctx context.Context, loanID int, dueDate time.Time) error
}

// Repository is the durable catalog store. Reads outside InTx see committed
// state only; all writes go through a transactional unit.
type Repository interface {
	Queries

	InTx(ctx context.Context, fn func(q Queries) error) error

	ListShelves(ctx context.Context) ([]model.Shelf, error)
	ListBooks(ctx context.Context) ([]model.Book, error)
	ListBooksByShelf(ctx context.Context, shelfID int) ([]model.Book, error)
	SearchBooks(ctx context.Context, term string) ([]model.Book, error)
	HydratedBookByID(ctx context.Context, id int) (model.Book, error)
	HydratedBookByCode(ctx context.Context, code string) (model.Book, error)

	InsertUser(ctx context.Context, user model.User) (int, error)
	ListUsers(ctx context.Context) ([]model.User, error)
	ListAuthors(ctx context.Context) ([]model.Author, error)
	ListGenres(ctx context.Context) ([]model.Genre, error)

	ListActiveLoans(ctx context.Context) ([]model.Loan, error)
	ListOverdueLoans(ctx context.Context, today time.Time) ([]model.Loan, error)
	ListActiveLoansByUser(ctx context.Context, userID int) ([]model.Loan, error)

	Summary(ctx context.Context, today time.Time) (model.Summary, error)
}

const (
	shelvesTableName = `shelves`
	usersTableName   = `users`
	genresTableName  = `genres`
	authorsTableName = `authors`
	booksTableName   = `books`
	copiesTableName  = `copies`
	loansTableName   = `loans`
)

var qb = sq.StatementBuilder.PlaceholderFormat(sq.Dollar)

func columnList(cols []string) string {
	return strings.Join(cols, ", ")
}

// queries runs against either the pool or an open transaction.
type queries struct {
	ext sqlx.ExtContext
	log *zap.Logger
}

type repository struct {
	queries
	db *sqlx.DB
}

func NewRepository(db *sqlx.DB, log *zap.Logger) (*repository, error) {
	log = log.Named("repo")
	return &repository{
		queries: queries{ext: db, log: log},
		db:      db,
	}, nil
}

// InTx runs fn inside a single transaction. Any error returned by fn rolls
// the whole unit back.
func (r *repository) InTx(ctx context.Context, fn func(q Queries) error) error {
	tx, err := r.db.BeginTxx(ctx, nil)
	if err != nil {
		return errors.Wrap(err, "begin tx")
	}
	if err := fn(queries{ext: tx, log: r.log}); err != nil {
		if rbErr := tx.Rollback(); rbErr != nil {
			r.log.Error("rollback", zap.Error(rbErr))
		}
		return err
	}
	return errors.Wrap(tx.Commit(), "commit tx")
}

// mapErr converts driver-level failures into the domain error taxonomy:
// missing rows become ErrNotFound, unique violations become the conflict
// error matching the violated constraint.
func mapErr(err error) error {
	if err == nil {
		return nil
	}
	if errors.Is(err, sql.ErrNoRows) {
		return errs.ErrNotFound
	}
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) && pgErr.Code == pgerrcode.UniqueViolation {
		switch pgErr.ConstraintName {
		case "shelves_name_key":
			return errs.ErrDuplicateShelfName
		case "books_code_key":
			return errs.ErrDuplicateCode
		case "books_isbn_key":
			return errs.ErrDuplicateISBN
		case "copies_copy_code_key":
			return errs.ErrDuplicateCopyCode
		case "authors_name_key":
			return errs.ErrDuplicateAuthor
		case "genres_name_key":
			return errs.ErrDuplicateGenre
		case "users_email_key":
			return errs.ErrDuplicateEmail
		case "loans_one_active_per_copy_idx":
			return errs.ErrCopyNotAvailable
		}
	}
	return err
}
