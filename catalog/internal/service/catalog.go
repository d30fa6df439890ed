package service

import (
	"context"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/chrismer/biblioteca-service/catalog/internal/errs"
	"github.com/chrismer/biblioteca-service/catalog/internal/model"
	"github.com/chrismer/biblioteca-service/catalog/internal/repository"
)

const minBookYear = 1500

// CatalogService is the validation facade in front of the store and the
// placement engine. It rejects malformed input before it reaches the store
// and is the only entry point external callers use.
type CatalogService struct {
	log       *zap.Logger
	repo      repository.Repository
	placement *PlacementService
	now       func() time.Time
}

func NewCatalogService(repo repository.Repository, placement *PlacementService, log *zap.Logger) *CatalogService {
	return &CatalogService{
		log:       log.Named("catalog"),
		repo:      repo,
		placement: placement,
		now:       time.Now,
	}
}

func (s *CatalogService) validYear(year int) bool {
	return year >= minBookYear && year <= s.now().Year()
}

func blank(v string) bool {
	return strings.TrimSpace(v) == ""
}

// CreateShelf registers a new shelf with a unique name.
func (s *CatalogService) CreateShelf(ctx context.Context, req model.CreateShelfRequest) (int, error) {
	if blank(req.Name) {
		return 0, errs.Validationf("shelf name must not be empty")
	}
	if req.Capacity < 1 {
		return 0, errs.Validationf("shelf capacity must be positive")
	}
	var id int
	err := s.repo.InTx(ctx, func(q repository.Queries) error {
		var err error
		id, err = q.InsertShelf(ctx, strings.TrimSpace(req.Name), req.Capacity)
		return err
	})
	return id, err
}

// UpdateShelf renames and/or resizes a shelf. Capacity may not drop below
// the copies currently on it.
func (s *CatalogService) UpdateShelf(ctx context.Context, id int, req model.UpdateShelfRequest) (model.Shelf, error) {
	if req.Name != nil && blank(*req.Name) {
		return model.Shelf{}, errs.Validationf("shelf name must not be empty")
	}
	var shelf model.Shelf
	err := s.repo.InTx(ctx, func(q repository.Queries) error {
		var err error
		shelf, err = q.ShelfByID(ctx, id)
		if err != nil {
			return err
		}
		oldName := shelf.Name
		if req.Name != nil {
			shelf.Name = strings.TrimSpace(*req.Name)
		}
		if req.Capacity != nil {
			occupied, err := q.ShelfOccupancy(ctx, id)
			if err != nil {
				return err
			}
			if *req.Capacity < occupied {
				return errs.Validationf("capacity %d is below current occupancy %d", *req.Capacity, occupied)
			}
			shelf.Capacity = *req.Capacity
		}
		if err := q.UpdateShelf(ctx, shelf); err != nil {
			return err
		}
		if shelf.Name != oldName {
			return rewriteShelfLocations(ctx, q, shelf)
		}
		return nil
	})
	if err != nil {
		return model.Shelf{}, err
	}
	return shelf, nil
}

// rewriteShelfLocations regenerates every copy location on the shelf after a
// rename, keeping each copy's level and slot.
func rewriteShelfLocations(ctx context.Context, q repository.Queries, shelf model.Shelf) error {
	bookIDs, err := q.BookIDsByShelf(ctx, shelf.ID)
	if err != nil {
		return err
	}
	for _, bookID := range bookIDs {
		copies, err := q.CopiesByBook(ctx, bookID)
		if err != nil {
			return err
		}
		for i, c := range copies {
			if err := q.UpdateCopyLocation(ctx, c.ID, locationFor(shelf.Name, i+1)); err != nil {
				return err
			}
		}
	}
	return nil
}

// DeleteShelf removes a shelf no book references.
func (s *CatalogService) DeleteShelf(ctx context.Context, id int) error {
	return s.repo.InTx(ctx, func(q repository.Queries) error {
		count, err := q.ShelfBookCount(ctx, id)
		if err != nil {
			return err
		}
		if count > 0 {
			return errs.ErrShelfNotEmpty
		}
		return q.DeleteShelf(ctx, id)
	})
}

func (s *CatalogService) ListShelves(ctx context.Context) ([]model.Shelf, error) {
	return s.repo.ListShelves(ctx)
}

// CreateBook validates the request and delegates placement to the engine.
func (s *CatalogService) CreateBook(ctx context.Context, req model.CreateBookRequest) (int, error) {
	for name, v := range map[string]string{
		"code":            req.Code,
		"title":           req.Title,
		"authorFirstName": req.AuthorFirstName,
		"authorLastName":  req.AuthorLastName,
	} {
		if blank(v) {
			return 0, errs.Validationf("%s must not be empty", name)
		}
	}
	if !s.validYear(req.Year) {
		return 0, errs.Validationf("year must be between %d and %d", minBookYear, s.now().Year())
	}
	if req.CopyCount < 1 {
		return 0, errs.Validationf("copy count must be positive")
	}
	req.Code = strings.TrimSpace(req.Code)
	req.Title = strings.TrimSpace(req.Title)
	req.AuthorFirstName = strings.TrimSpace(req.AuthorFirstName)
	req.AuthorLastName = strings.TrimSpace(req.AuthorLastName)

	return s.placement.CreateBookWithCopies(ctx, req)
}

func (s *CatalogService) GetBook(ctx context.Context, id int) (model.Book, error) {
	return s.repo.HydratedBookByID(ctx, id)
}

func (s *CatalogService) GetBookByCode(ctx context.Context, code string) (model.Book, error) {
	return s.repo.HydratedBookByCode(ctx, code)
}

func (s *CatalogService) ListBooks(ctx context.Context) ([]model.Book, error) {
	return s.repo.ListBooks(ctx)
}

func (s *CatalogService) ListBooksByShelf(ctx context.Context, shelfID int) ([]model.Book, error) {
	return s.repo.ListBooksByShelf(ctx, shelfID)
}

// SearchBooks looks the term up across title, code, isbn, publisher and
// author name. A blank term matches nothing.
func (s *CatalogService) SearchBooks(ctx context.Context, term string) ([]model.Book, error) {
	term = strings.TrimSpace(term)
	if term == "" {
		return []model.Book{}, nil
	}
	return s.repo.SearchBooks(ctx, term)
}

// UpdateBook edits scalar fields and author/genre links in one unit. A shelf
// change runs the full relocation, locations included, in the same unit.
func (s *CatalogService) UpdateBook(ctx context.Context, id int, req model.UpdateBookRequest) error {
	if req.Title != nil && blank(*req.Title) {
		return errs.Validationf("title must not be empty")
	}
	if req.Year != nil && !s.validYear(*req.Year) {
		return errs.Validationf("year must be between %d and %d", minBookYear, s.now().Year())
	}
	if (req.AuthorFirstName == nil) != (req.AuthorLastName == nil) {
		return errs.Validationf("author first and last name must be changed together")
	}

	return s.repo.InTx(ctx, func(q repository.Queries) error {
		book, err := q.BookByID(ctx, id)
		if err != nil {
			return err
		}
		if req.Title != nil {
			book.Title = strings.TrimSpace(*req.Title)
		}
		if req.ISBN != nil {
			book.ISBN = req.ISBN
		}
		if req.Year != nil {
			book.Year = *req.Year
		}
		if req.Publisher != nil {
			book.Publisher = req.Publisher
		}
		if req.Pages != nil {
			book.Pages = req.Pages
		}
		if req.Description != nil {
			book.Description = req.Description
		}
		if req.AuthorFirstName != nil {
			authorID, err := resolveAuthor(ctx, q, strings.TrimSpace(*req.AuthorFirstName), strings.TrimSpace(*req.AuthorLastName))
			if err != nil {
				return err
			}
			book.AuthorID = authorID
		}
		if req.GenreName != nil {
			genreID, err := resolveGenre(ctx, q, req.GenreName)
			if err != nil {
				return err
			}
			book.GenreID = genreID
		}
		if err := q.UpdateBook(ctx, book); err != nil {
			return err
		}
		if req.ShelfID != nil && *req.ShelfID != book.ShelfID {
			return relocateBook(ctx, q, id, *req.ShelfID)
		}
		return nil
	})
}

// RelocateBook moves the book to another shelf.
func (s *CatalogService) RelocateBook(ctx context.Context, bookID, shelfID int) error {
	return s.placement.RelocateBook(ctx, bookID, shelfID)
}

func (s *CatalogService) AddCopy(ctx context.Context, bookID int) (int, error) {
	return s.placement.AddCopy(ctx, bookID)
}

func (s *CatalogService) RemoveCopy(ctx context.Context, copyID int) error {
	return s.placement.RemoveCopy(ctx, copyID)
}

func (s *CatalogService) ListCopies(ctx context.Context, bookID int) ([]model.Copy, error) {
	var copies []model.Copy
	err := s.repo.InTx(ctx, func(q repository.Queries) error {
		if _, err := q.BookByID(ctx, bookID); err != nil {
			return err
		}
		var err error
		copies, err = q.CopiesByBook(ctx, bookID)
		return err
	})
	return copies, err
}

// DeleteBook removes the book and all its copies; refused while any copy is
// out on loan.
func (s *CatalogService) DeleteBook(ctx context.Context, id int) error {
	return s.repo.InTx(ctx, func(q repository.Queries) error {
		copies, err := q.CopiesByBook(ctx, id)
		if err != nil {
			return err
		}
		for _, c := range copies {
			if c.Status == model.CopyLoaned {
				return errs.ErrBookHasLoans
			}
		}
		return q.DeleteBook(ctx, id)
	})
}

func (s *CatalogService) CreateUser(ctx context.Context, req model.CreateUserRequest) (int, error) {
	if blank(req.Name) {
		return 0, errs.Validationf("user name must not be empty")
	}
	if req.Email != nil && !strings.Contains(*req.Email, "@") {
		return 0, errs.Validationf("email is invalid")
	}
	return s.repo.InsertUser(ctx, model.User{
		Name:    strings.TrimSpace(req.Name),
		Email:   req.Email,
		Phone:   req.Phone,
		Address: req.Address,
	})
}

func (s *CatalogService) ListUsers(ctx context.Context) ([]model.User, error) {
	return s.repo.ListUsers(ctx)
}

func (s *CatalogService) ListAuthors(ctx context.Context) ([]model.Author, error) {
	return s.repo.ListAuthors(ctx)
}

func (s *CatalogService) ListGenres(ctx context.Context) ([]model.Genre, error) {
	return s.repo.ListGenres(ctx)
}

func (s *CatalogService) Summary(ctx context.Context) (model.Summary, error) {
	return s.repo.Summary(ctx, s.now())
}
