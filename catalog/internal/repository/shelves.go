package repository

import (
	"context"

	sq "github.com/Masterminds/squirrel"
	"github.com/jmoiron/sqlx"
	"go.uber.org/zap"

	"github.com/chrismer/biblioteca-service/catalog/internal/errs"
	"github.com/chrismer/biblioteca-service/catalog/internal/model"
)

func (q queries) ShelfByID(ctx context.Context, id int) (model.Shelf, error) {
	query, args, err := qb.Select("id", "name", "capacity").
		From(shelvesTableName).
		Where(sq.Eq{"id": id}).
		ToSql()
	if err != nil {
		return model.Shelf{}, err
	}
	var shelf model.Shelf
	if err := sqlx.GetContext(ctx, q.ext, &shelf, query, args...); err != nil {
		return model.Shelf{}, mapErr(err)
	}
	return shelf, nil
}

// ShelfOccupancy counts physical copies over all books currently assigned to
// the shelf. This is the quantity the capacity check compares against.
func (q queries) ShelfOccupancy(ctx context.Context, shelfID int) (int, error) {
	query := `
	select count(c.id) from copies c
	join books b on c.book_id = b.id
	where b.shelf_id = $1`
	var count int
	if err := q.ext.QueryRowxContext(ctx, query, shelfID).Scan(&count); err != nil {
		return 0, err
	}
	return count, nil
}

func (q queries) ShelfBookCount(ctx context.Context, shelfID int) (int, error) {
	var count int
	err := q.ext.QueryRowxContext(ctx,
		`select count(*) from books where shelf_id = $1`, shelfID).Scan(&count)
	return count, err
}

func (q queries) BookIDsByShelf(ctx context.Context, shelfID int) ([]int, error) {
	var ids []int
	err := sqlx.SelectContext(ctx, q.ext, &ids,
		`select id from books where shelf_id = $1 order by id`, shelfID)
	if err != nil {
		return nil, err
	}
	return ids, nil
}

func (q queries) InsertShelf(ctx context.Context, name string, capacity int) (int, error) {
	query, args, err := qb.Insert(shelvesTableName).
		Columns("name", "capacity").
		Values(name, capacity).
		Suffix("returning id").
		ToSql()
	if err != nil {
		return 0, err
	}
	var id int
	if err := q.ext.QueryRowxContext(ctx, query, args...).Scan(&id); err != nil {
		q.log.Error("InsertShelf", zap.String("q", query), zap.Any("args", args))
		return 0, mapErr(err)
	}
	return id, nil
}

func (q queries) UpdateShelf(ctx context.Context, shelf model.Shelf) error {
	res, err := q.ext.ExecContext(ctx,
		`update shelves set name = $1, capacity = $2 where id = $3`,
		shelf.Name, shelf.Capacity, shelf.ID)
	if err != nil {
		return mapErr(err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return errs.ErrNotFound
	}
	return nil
}

func (q queries) DeleteShelf(ctx context.Context, id int) error {
	res, err := q.ext.ExecContext(ctx, `delete from shelves where id = $1`, id)
	if err != nil {
		return err
	}
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return errs.ErrNotFound
	}
	return nil
}

func (r *repository) ListShelves(ctx context.Context) ([]model.Shelf, error) {
	query, args, err := qb.Select("id", "name", "capacity").
		From(shelvesTableName).
		OrderBy("name").
		ToSql()
	if err != nil {
		return nil, err
	}
	var shelves []model.Shelf
	if err := sqlx.SelectContext(ctx, r.ext, &shelves, query, args...); err != nil {
		return nil, err
	}
	return shelves, nil
}
