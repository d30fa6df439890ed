package service

import (
	"context"
	"sort"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/chrismer/biblioteca-service/catalog/internal/errs"
	"github.com/chrismer/biblioteca-service/catalog/internal/model"
	"github.com/chrismer/biblioteca-service/catalog/internal/repository"
)

// fakeRepo is an in-memory Repository. InTx runs the closure directly
// against the shared state; every engine operation checks before it writes,
// so no rollback emulation is needed here.
type fakeRepo struct {
	shelves map[int]model.Shelf
	books   map[int]model.Book
	copies  map[int]model.Copy
	users   map[int]model.User
	authors map[int]model.Author
	genres  map[int]model.Genre
	loans   map[int]model.Loan
	nextID  int
}

func newFakeRepo() *fakeRepo {
	return &fakeRepo{
		shelves: map[int]model.Shelf{},
		books:   map[int]model.Book{},
		copies:  map[int]model.Copy{},
		users:   map[int]model.User{},
		authors: map[int]model.Author{},
		genres:  map[int]model.Genre{},
		loans:   map[int]model.Loan{},
	}
}

func (f *fakeRepo) id() int {
	f.nextID++
	return f.nextID
}

func (f *fakeRepo) InTx(_ context.Context, fn func(q repository.Queries) error) error {
	return fn(f)
}

func (f *fakeRepo) ShelfByID(_ context.Context, id int) (model.Shelf, error) {
	shelf, ok := f.shelves[id]
	if !ok {
		return model.Shelf{}, errs.ErrNotFound
	}
	return shelf, nil
}

func (f *fakeRepo) ShelfOccupancy(_ context.Context, shelfID int) (int, error) {
	n := 0
	for _, c := range f.copies {
		if f.books[c.BookID].ShelfID == shelfID {
			n++
		}
	}
	return n, nil
}

func (f *fakeRepo) ShelfBookCount(_ context.Context, shelfID int) (int, error) {
	n := 0
	for _, b := range f.books {
		if b.ShelfID == shelfID {
			n++
		}
	}
	return n, nil
}

func (f *fakeRepo) BookIDsByShelf(_ context.Context, shelfID int) ([]int, error) {
	var ids []int
	for id, b := range f.books {
		if b.ShelfID == shelfID {
			ids = append(ids, id)
		}
	}
	sort.Ints(ids)
	return ids, nil
}

func (f *fakeRepo) InsertShelf(_ context.Context, name string, capacity int) (int, error) {
	for _, s := range f.shelves {
		if s.Name == name {
			return 0, errs.ErrDuplicateShelfName
		}
	}
	id := f.id()
	f.shelves[id] = model.Shelf{ID: id, Name: name, Capacity: capacity}
	return id, nil
}

func (f *fakeRepo) UpdateShelf(_ context.Context, shelf model.Shelf) error {
	if _, ok := f.shelves[shelf.ID]; !ok {
		return errs.ErrNotFound
	}
	f.shelves[shelf.ID] = shelf
	return nil
}

func (f *fakeRepo) DeleteShelf(_ context.Context, id int) error {
	if _, ok := f.shelves[id]; !ok {
		return errs.ErrNotFound
	}
	delete(f.shelves, id)
	return nil
}

func (f *fakeRepo) BookByID(_ context.Context, id int) (model.Book, error) {
	book, ok := f.books[id]
	if !ok {
		return model.Book{}, errs.ErrNotFound
	}
	return book, nil
}

func (f *fakeRepo) BookByCode(_ context.Context, code string) (model.Book, error) {
	for _, b := range f.books {
		if b.Code == code {
			return b, nil
		}
	}
	return model.Book{}, errs.ErrNotFound
}

func (f *fakeRepo) InsertBook(_ context.Context, book model.Book) (int, error) {
	for _, b := range f.books {
		if b.Code == book.Code {
			return 0, errs.ErrDuplicateCode
		}
	}
	book.ID = f.id()
	f.books[book.ID] = book
	return book.ID, nil
}

func (f *fakeRepo) UpdateBook(_ context.Context, book model.Book) error {
	stored, ok := f.books[book.ID]
	if !ok {
		return errs.ErrNotFound
	}
	book.ShelfID = stored.ShelfID
	f.books[book.ID] = book
	return nil
}

func (f *fakeRepo) UpdateBookShelf(_ context.Context, bookID, shelfID int) error {
	book, ok := f.books[bookID]
	if !ok {
		return errs.ErrNotFound
	}
	book.ShelfID = shelfID
	f.books[bookID] = book
	return nil
}

func (f *fakeRepo) DeleteBook(ctx context.Context, id int) error {
	if _, ok := f.books[id]; !ok {
		return errs.ErrNotFound
	}
	for copyID, c := range f.copies {
		if c.BookID == id {
			if err := f.DeleteCopy(ctx, copyID); err != nil {
				return err
			}
		}
	}
	delete(f.books, id)
	return nil
}

func (f *fakeRepo) CopyByID(_ context.Context, id int) (model.Copy, error) {
	c, ok := f.copies[id]
	if !ok {
		return model.Copy{}, errs.ErrNotFound
	}
	return c, nil
}

func (f *fakeRepo) CopiesByBook(_ context.Context, bookID int) ([]model.Copy, error) {
	var copies []model.Copy
	for _, c := range f.copies {
		if c.BookID == bookID {
			copies = append(copies, c)
		}
	}
	sort.Slice(copies, func(i, j int) bool { return copies[i].CopyCode < copies[j].CopyCode })
	return copies, nil
}

func (f *fakeRepo) InsertCopy(_ context.Context, copy model.Copy) (int, error) {
	for _, c := range f.copies {
		if c.CopyCode == copy.CopyCode {
			return 0, errs.ErrDuplicateCopyCode
		}
	}
	copy.ID = f.id()
	f.copies[copy.ID] = copy
	return copy.ID, nil
}

func (f *fakeRepo) UpdateCopyLocation(_ context.Context, copyID int, location string) error {
	c, ok := f.copies[copyID]
	if !ok {
		return errs.ErrNotFound
	}
	c.Location = &location
	f.copies[copyID] = c
	return nil
}

func (f *fakeRepo) UpdateCopyStatus(_ context.Context, copyID int, status model.CopyStatus) error {
	c, ok := f.copies[copyID]
	if !ok {
		return errs.ErrNotFound
	}
	c.Status = status
	f.copies[copyID] = c
	return nil
}

// DeleteCopy takes the copy's loan history with it, matching the cascade in
// the schema.
func (f *fakeRepo) DeleteCopy(_ context.Context, id int) error {
	if _, ok := f.copies[id]; !ok {
		return errs.ErrNotFound
	}
	for loanID, l := range f.loans {
		if l.CopyID == id {
			delete(f.loans, loanID)
		}
	}
	delete(f.copies, id)
	return nil
}

func (f *fakeRepo) UserByID(_ context.Context, id int) (model.User, error) {
	u, ok := f.users[id]
	if !ok {
		return model.User{}, errs.ErrNotFound
	}
	return u, nil
}

func (f *fakeRepo) AuthorByName(_ context.Context, firstName, lastName string) (model.Author, error) {
	for _, a := range f.authors {
		if strings.EqualFold(a.FirstName, firstName) && strings.EqualFold(a.LastName, lastName) {
			return a, nil
		}
	}
	return model.Author{}, errs.ErrNotFound
}

func (f *fakeRepo) InsertAuthor(_ context.Context, author model.Author) (int, error) {
	author.ID = f.id()
	f.authors[author.ID] = author
	return author.ID, nil
}

func (f *fakeRepo) GenreByName(_ context.Context, name string) (model.Genre, error) {
	for _, g := range f.genres {
		if strings.EqualFold(g.Name, name) {
			return g, nil
		}
	}
	return model.Genre{}, errs.ErrNotFound
}

func (f *fakeRepo) InsertGenre(_ context.Context, genre model.Genre) (int, error) {
	genre.ID = f.id()
	f.genres[genre.ID] = genre
	return genre.ID, nil
}

func (f *fakeRepo) LoanByID(_ context.Context, id int) (model.Loan, error) {
	l, ok := f.loans[id]
	if !ok {
		return model.Loan{}, errs.ErrNotFound
	}
	return l, nil
}

func (f *fakeRepo) ActiveLoanByCopy(_ context.Context, copyID int) (model.Loan, error) {
	for _, l := range f.loans {
		if l.CopyID == copyID && l.Status == model.LoanActive {
			return l, nil
		}
	}
	return model.Loan{}, errs.ErrNoActiveLoan
}

func (f *fakeRepo) InsertLoan(_ context.Context, loan model.Loan) (model.Loan, error) {
	for _, l := range f.loans {
		if l.CopyID == loan.CopyID && l.Status == model.LoanActive {
			return model.Loan{}, errs.ErrCopyNotAvailable
		}
	}
	loan.ID = f.id()
	loan.LoanUid = uuid.NewString()
	loan.Status = model.LoanActive
	f.loans[loan.ID] = loan
	return loan, nil
}

func (f *fakeRepo) MarkLoanReturned(_ context.Context, loanID int, returnDate time.Time) error {
	l, ok := f.loans[loanID]
	if !ok || l.Status != model.LoanActive {
		return errs.ErrNoActiveLoan
	}
	l.Status = model.LoanReturned
	l.ReturnDate = &returnDate
	f.loans[loanID] = l
	return nil
}

func (f *fakeRepo) UpdateLoanDueDate(_ context.Context, loanID int, dueDate time.Time) error {
	l, ok := f.loans[loanID]
	if !ok || l.Status != model.LoanActive {
		return errs.ErrNoActiveLoan
	}
	l.DueDate = dueDate
	l.RenewalCount++
	f.loans[loanID] = l
	return nil
}

func (f *fakeRepo) ListShelves(_ context.Context) ([]model.Shelf, error) {
	var shelves []model.Shelf
	for _, s := range f.shelves {
		shelves = append(shelves, s)
	}
	sort.Slice(shelves, func(i, j int) bool { return shelves[i].Name < shelves[j].Name })
	return shelves, nil
}

func (f *fakeRepo) ListBooks(ctx context.Context) ([]model.Book, error) {
	var books []model.Book
	for id := range f.books {
		b, err := f.HydratedBookByID(ctx, id)
		if err != nil {
			return nil, err
		}
		books = append(books, b)
	}
	sort.Slice(books, func(i, j int) bool { return books[i].Title < books[j].Title })
	return books, nil
}

func (f *fakeRepo) ListBooksByShelf(ctx context.Context, shelfID int) ([]model.Book, error) {
	all, err := f.ListBooks(ctx)
	if err != nil {
		return nil, err
	}
	var books []model.Book
	for _, b := range all {
		if b.ShelfID == shelfID {
			books = append(books, b)
		}
	}
	return books, nil
}

func (f *fakeRepo) SearchBooks(ctx context.Context, term string) ([]model.Book, error) {
	all, err := f.ListBooks(ctx)
	if err != nil {
		return nil, err
	}
	term = strings.ToLower(term)
	var books []model.Book
	for _, b := range all {
		author := ""
		if b.Author != nil {
			author = b.Author.FullName()
		}
		if strings.Contains(strings.ToLower(b.Title), term) ||
			strings.Contains(strings.ToLower(b.Code), term) ||
			strings.Contains(strings.ToLower(author), term) {
			books = append(books, b)
		}
	}
	return books, nil
}

func (f *fakeRepo) HydratedBookByID(ctx context.Context, id int) (model.Book, error) {
	book, ok := f.books[id]
	if !ok {
		return model.Book{}, errs.ErrNotFound
	}
	if a, ok := f.authors[book.AuthorID]; ok {
		author := a
		book.Author = &author
	}
	if book.GenreID != nil {
		if g, ok := f.genres[*book.GenreID]; ok {
			genre := g
			book.Genre = &genre
		}
	}
	copies, err := f.CopiesByBook(ctx, id)
	if err != nil {
		return model.Book{}, err
	}
	book.Copies = copies
	return book, nil
}

func (f *fakeRepo) HydratedBookByCode(ctx context.Context, code string) (model.Book, error) {
	for id, b := range f.books {
		if b.Code == code {
			return f.HydratedBookByID(ctx, id)
		}
	}
	return model.Book{}, errs.ErrNotFound
}

func (f *fakeRepo) InsertUser(_ context.Context, user model.User) (int, error) {
	if user.Email != nil {
		for _, u := range f.users {
			if u.Email != nil && *u.Email == *user.Email {
				return 0, errs.ErrDuplicateEmail
			}
		}
	}
	user.ID = f.id()
	user.Active = true
	user.RegisteredAt = time.Now()
	f.users[user.ID] = user
	return user.ID, nil
}

func (f *fakeRepo) ListUsers(_ context.Context) ([]model.User, error) {
	var users []model.User
	for _, u := range f.users {
		if u.Active {
			users = append(users, u)
		}
	}
	sort.Slice(users, func(i, j int) bool { return users[i].Name < users[j].Name })
	return users, nil
}

func (f *fakeRepo) ListAuthors(_ context.Context) ([]model.Author, error) {
	var authors []model.Author
	for _, a := range f.authors {
		authors = append(authors, a)
	}
	sort.Slice(authors, func(i, j int) bool { return authors[i].LastName < authors[j].LastName })
	return authors, nil
}

func (f *fakeRepo) ListGenres(_ context.Context) ([]model.Genre, error) {
	var genres []model.Genre
	for _, g := range f.genres {
		genres = append(genres, g)
	}
	sort.Slice(genres, func(i, j int) bool { return genres[i].Name < genres[j].Name })
	return genres, nil
}

func (f *fakeRepo) ListActiveLoans(_ context.Context) ([]model.Loan, error) {
	var loans []model.Loan
	for _, l := range f.loans {
		if l.Status == model.LoanActive {
			loans = append(loans, l)
		}
	}
	sort.Slice(loans, func(i, j int) bool { return loans[i].ID < loans[j].ID })
	return loans, nil
}

func (f *fakeRepo) ListOverdueLoans(_ context.Context, today time.Time) ([]model.Loan, error) {
	var loans []model.Loan
	for _, l := range f.loans {
		if l.IsOverdue(today) {
			loans = append(loans, l)
		}
	}
	sort.Slice(loans, func(i, j int) bool { return loans[i].DueDate.Before(loans[j].DueDate) })
	return loans, nil
}

func (f *fakeRepo) ListActiveLoansByUser(_ context.Context, userID int) ([]model.Loan, error) {
	var loans []model.Loan
	for _, l := range f.loans {
		if l.UserID == userID && l.Status == model.LoanActive {
			loans = append(loans, l)
		}
	}
	sort.Slice(loans, func(i, j int) bool { return loans[i].ID < loans[j].ID })
	return loans, nil
}

func (f *fakeRepo) Summary(ctx context.Context, today time.Time) (model.Summary, error) {
	sum := model.Summary{TotalBooks: len(f.books), TotalCopies: len(f.copies)}
	for _, c := range f.copies {
		switch c.Status {
		case model.CopyAvailable:
			sum.AvailableCopies++
		case model.CopyLoaned:
			sum.LoanedCopies++
		}
	}
	for _, l := range f.loans {
		if l.Status == model.LoanActive {
			sum.ActiveLoans++
			if l.IsOverdue(today) {
				sum.OverdueLoans++
			}
		}
	}
	for _, u := range f.users {
		if u.Active {
			sum.ActiveUsers++
		}
	}
	return sum, nil
}
