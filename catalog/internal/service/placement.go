package service

import (
	"context"
	"fmt"
	"strconv"
	"strings"

	"github.com/pkg/errors"
	"go.uber.org/zap"

	"github.com/chrismer/biblioteca-service/catalog/internal/errs"
	"github.com/chrismer/biblioteca-service/catalog/internal/model"
	"github.com/chrismer/biblioteca-service/catalog/internal/repository"
)

// PlacementService owns the shelf-capacity invariant: the copies of all
// books assigned to a shelf never exceed its capacity. Every operation that
// could violate it runs its occupancy check and its writes in one
// transactional unit.
type PlacementService struct {
	log  *zap.Logger
	repo repository.Repository
}

func NewPlacementService(repo repository.Repository, log *zap.Logger) *PlacementService {
	return &PlacementService{
		log:  log.Named("placement"),
		repo: repo,
	}
}

// Location ordinal ranks are scoped to the copies of the single book being
// placed or moved, ordered by copy_code. Ten slots per level.
func locationFor(shelfName string, rank int) string {
	level := (rank-1)/10 + 1
	slot := (rank-1)%10 + 1
	return fmt.Sprintf("Shelf %s - Level %d - Slot %d", shelfName, level, slot)
}

func copyCodeFor(bookCode string, ordinal int) string {
	return fmt.Sprintf("%s-%03d", bookCode, ordinal)
}

// checkCapacity reads shelf and occupancy inside the caller's unit and
// rejects the placement when requested copies would not fit.
func checkCapacity(ctx context.Context, q repository.Queries, shelfID, requested int) (model.Shelf, error) {
	shelf, err := q.ShelfByID(ctx, shelfID)
	if err != nil {
		return model.Shelf{}, err
	}
	occupied, err := q.ShelfOccupancy(ctx, shelfID)
	if err != nil {
		return model.Shelf{}, errors.Wrap(err, "shelf occupancy")
	}
	if occupied+requested > shelf.Capacity {
		return model.Shelf{}, &errs.ShelfFullError{
			ShelfName: shelf.Name,
			Capacity:  shelf.Capacity,
			Occupied:  occupied,
			Requested: requested,
		}
	}
	return shelf, nil
}

// CreateBookWithCopies inserts the book and its initial batch of copies.
// Author and genre are resolved (find-or-create, case-insensitive) inside
// the same unit so a rejected placement leaves nothing behind.
func (s *PlacementService) CreateBookWithCopies(ctx context.Context, req model.CreateBookRequest) (int, error) {
	var bookID int
	err := s.repo.InTx(ctx, func(q repository.Queries) error {
		shelf, err := checkCapacity(ctx, q, req.ShelfID, req.CopyCount)
		if err != nil {
			return err
		}

		authorID, err := resolveAuthor(ctx, q, req.AuthorFirstName, req.AuthorLastName)
		if err != nil {
			return err
		}
		genreID, err := resolveGenre(ctx, q, req.GenreName)
		if err != nil {
			return err
		}

		bookID, err = q.InsertBook(ctx, model.Book{
			Code:        req.Code,
			Title:       req.Title,
			ISBN:        req.ISBN,
			Year:        req.Year,
			Publisher:   req.Publisher,
			Pages:       req.Pages,
			Description: req.Description,
			AuthorID:    authorID,
			GenreID:     genreID,
			ShelfID:     req.ShelfID,
		})
		if err != nil {
			return err
		}

		for i := 1; i <= req.CopyCount; i++ {
			location := locationFor(shelf.Name, i)
			if _, err := q.InsertCopy(ctx, model.Copy{
				BookID:   bookID,
				CopyCode: copyCodeFor(req.Code, i),
				Status:   model.CopyAvailable,
				Location: &location,
			}); err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		return 0, err
	}
	s.log.Info("book created",
		zap.Int("book_id", bookID),
		zap.String("code", req.Code),
		zap.Int("copies", req.CopyCount))
	return bookID, nil
}

// RelocateBook moves a book and all its copies to another shelf and rewrites
// every copy's location so nothing keeps pointing at the old shelf.
func (s *PlacementService) RelocateBook(ctx context.Context, bookID, newShelfID int) error {
	err := s.repo.InTx(ctx, func(q repository.Queries) error {
		return relocateBook(ctx, q, bookID, newShelfID)
	})
	if err != nil {
		return err
	}
	s.log.Info("book relocated", zap.Int("book_id", bookID), zap.Int("shelf_id", newShelfID))
	return nil
}

func relocateBook(ctx context.Context, q repository.Queries, bookID, newShelfID int) error {
	book, err := q.BookByID(ctx, bookID)
	if err != nil {
		return err
	}
	if book.ShelfID == newShelfID {
		return errs.ErrSameShelf
	}

	copies, err := q.CopiesByBook(ctx, bookID)
	if err != nil {
		return err
	}
	shelf, err := checkCapacity(ctx, q, newShelfID, len(copies))
	if err != nil {
		return err
	}

	if err := q.UpdateBookShelf(ctx, bookID, newShelfID); err != nil {
		return err
	}
	for i, c := range copies {
		if err := q.UpdateCopyLocation(ctx, c.ID, locationFor(shelf.Name, i+1)); err != nil {
			return err
		}
	}
	return nil
}

// AddCopy appends one copy to the book on its current shelf, using the next
// unused copy-code ordinal.
func (s *PlacementService) AddCopy(ctx context.Context, bookID int) (int, error) {
	var copyID int
	err := s.repo.InTx(ctx, func(q repository.Queries) error {
		book, err := q.BookByID(ctx, bookID)
		if err != nil {
			return err
		}
		shelf, err := checkCapacity(ctx, q, book.ShelfID, 1)
		if err != nil {
			return err
		}
		copies, err := q.CopiesByBook(ctx, bookID)
		if err != nil {
			return err
		}

		ordinal := nextOrdinal(book.Code, copies)
		location := locationFor(shelf.Name, len(copies)+1)
		copyID, err = q.InsertCopy(ctx, model.Copy{
			BookID:   bookID,
			CopyCode: copyCodeFor(book.Code, ordinal),
			Status:   model.CopyAvailable,
			Location: &location,
		})
		return err
	})
	if err != nil {
		return 0, err
	}
	s.log.Info("copy added", zap.Int("book_id", bookID), zap.Int("copy_id", copyID))
	return copyID, nil
}

func nextOrdinal(bookCode string, copies []model.Copy) int {
	max := 0
	prefix := bookCode + "-"
	for _, c := range copies {
		suffix, ok := strings.CutPrefix(c.CopyCode, prefix)
		if !ok {
			continue
		}
		if n, err := strconv.Atoi(suffix); err == nil && n > max {
			max = n
		}
	}
	if max < len(copies) {
		max = len(copies)
	}
	return max + 1
}

// RemoveCopy deletes a copy that is in the available state.
func (s *PlacementService) RemoveCopy(ctx context.Context, copyID int) error {
	return s.repo.InTx(ctx, func(q repository.Queries) error {
		c, err := q.CopyByID(ctx, copyID)
		if err != nil {
			return err
		}
		if c.Status != model.CopyAvailable {
			return errs.ErrCopyNotRemovable
		}
		return q.DeleteCopy(ctx, copyID)
	})
}

func resolveAuthor(ctx context.Context, q repository.Queries, firstName, lastName string) (int, error) {
	author, err := q.AuthorByName(ctx, firstName, lastName)
	if err == nil {
		return author.ID, nil
	}
	if !errors.Is(err, errs.ErrNotFound) {
		return 0, err
	}
	return q.InsertAuthor(ctx, model.Author{FirstName: firstName, LastName: lastName})
}

func resolveGenre(ctx context.Context, q repository.Queries, name *string) (*int, error) {
	if name == nil || strings.TrimSpace(*name) == "" {
		return nil, nil
	}
	genre, err := q.GenreByName(ctx, *name)
	if err == nil {
		return &genre.ID, nil
	}
	if !errors.Is(err, errs.ErrNotFound) {
		return nil, err
	}
	id, err := q.InsertGenre(ctx, model.Genre{Name: *name})
	if err != nil {
		return nil, err
	}
	return &id, nil
}
