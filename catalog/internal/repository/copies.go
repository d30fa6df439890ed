package repository

import (
	"context"

	sq "github.com/Masterminds/squirrel"
	"github.com/jmoiron/sqlx"
	"go.uber.org/zap"

	"github.com/chrismer/biblioteca-service/catalog/internal/errs"
	"github.com/chrismer/biblioteca-service/catalog/internal/model"
)

var copyColumns = []string{
	"id", "book_id", "copy_code", "status", "location", "acquisition_date", "notes",
}

func (q queries) CopyByID(ctx context.Context, id int) (model.Copy, error) {
	query, args, err := qb.Select(copyColumns...).
		From(copiesTableName).
		Where(sq.Eq{"id": id}).
		ToSql()
	if err != nil {
		return model.Copy{}, err
	}
	var copy model.Copy
	if err := sqlx.GetContext(ctx, q.ext, &copy, query, args...); err != nil {
		return model.Copy{}, mapErr(err)
	}
	return copy, nil
}

// CopiesByBook returns the book's copies ordered by copy_code. Location
// ordinal ranks are derived from this ordering.
func (q queries) CopiesByBook(ctx context.Context, bookID int) ([]model.Copy, error) {
	query, args, err := qb.Select(copyColumns...).
		From(copiesTableName).
		Where(sq.Eq{"book_id": bookID}).
		OrderBy("copy_code").
		ToSql()
	if err != nil {
		return nil, err
	}
	var copies []model.Copy
	if err := sqlx.SelectContext(ctx, q.ext, &copies, query, args...); err != nil {
		return nil, err
	}
	return copies, nil
}

func (q queries) InsertCopy(ctx context.Context, copy model.Copy) (int, error) {
	query, args, err := qb.Insert(copiesTableName).
		Columns("book_id", "copy_code", "status", "location", "notes").
		Values(copy.BookID, copy.CopyCode, copy.Status, copy.Location, copy.Notes).
		Suffix("returning id").
		ToSql()
	if err != nil {
		return 0, err
	}
	var id int
	if err := q.ext.QueryRowxContext(ctx, query, args...).Scan(&id); err != nil {
		q.log.Error("InsertCopy", zap.String("q", query), zap.Any("args", args))
		return 0, mapErr(err)
	}
	return id, nil
}

func (q queries) UpdateCopyLocation(ctx context.Context, copyID int, location string) error {
	res, err := q.ext.ExecContext(ctx,
		`update copies set location = $1 where id = $2`, location, copyID)
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

func (q queries) UpdateCopyStatus(ctx context.Context, copyID int, status model.CopyStatus) error {
	res, err := q.ext.ExecContext(ctx,
		`update copies set status = $1 where id = $2`, status, copyID)
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

func (q queries) DeleteCopy(ctx context.Context, id int) error {
	res, err := q.ext.ExecContext(ctx, `delete from copies where id = $1`, id)
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
