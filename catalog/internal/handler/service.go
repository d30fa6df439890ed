package handler

import (
	"context"

	"github.com/chrismer/biblioteca-service/catalog/internal/model"
)

//go:generate mockgen -source=service.go -destination=mocks/mock.go -package=service_mocks

type CatalogService interface {
	CreateShelf(ctx context.Context, req model.CreateShelfRequest) (int, error)
	UpdateShelf(ctx context.Context, id int, req model.UpdateShelfRequest) (model.Shelf, error)
	DeleteShelf(ctx context.Context, id int) error
	ListShelves(ctx context.Context) ([]model.Shelf, error)

	CreateBook(ctx context.Context, req model.CreateBookRequest) (int, error)
	GetBook(ctx context.Context, id int) (model.Book, error)
	ListBooks(ctx context.Context) ([]model.Book, error)
	ListBooksByShelf(ctx context.Context, shelfID int) ([]model.Book, error)
	SearchBooks(ctx context.Context, term string) ([]model.Book, error)
	UpdateBook(ctx context.Context, id int, req model.UpdateBookRequest) error
	DeleteBook(ctx context.Context, id int) error
	RelocateBook(ctx context.Context, bookID, shelfID int) error

	AddCopy(ctx context.Context, bookID int) (int, error)
	RemoveCopy(ctx context.Context, copyID int) error
	ListCopies(ctx context.Context, bookID int) ([]model.Copy, error)

	CreateUser(ctx context.Context, req model.CreateUserRequest) (int, error)
	ListUsers(ctx context.Context) ([]model.User, error)
	ListAuthors(ctx context.Context) ([]model.Author, error)
	ListGenres(ctx context.Context) ([]model.Genre, error)

	Summary(ctx context.Context) (model.Summary, error)
}

type LoanService interface {
	IssueLoan(ctx context.Context, req model.IssueLoanRequest) (model.Loan, error)
	IssueLoanByBookCode(ctx context.Context, req model.IssueLoanByCodeRequest) (model.Loan, error)
	ReturnLoan(ctx context.Context, copyID int) (model.Loan, error)
	RenewLoan(ctx context.Context, loanID, extraDays int) (model.Loan, error)
	ListOverdue(ctx context.Context) ([]model.Loan, error)
	ListActive(ctx context.Context) ([]model.Loan, error)
	ListActiveByUser(ctx context.Context, userID int) ([]model.Loan, error)
}
