package repository

import (
	"context"
	"fmt"

	sq "github.com/Masterminds/squirrel"
	"github.com/jmoiron/sqlx"
	"go.uber.org/zap"

	"github.com/chrismer/biblioteca-service/catalog/internal/errs"
	"github.com/chrismer/biblioteca-service/catalog/internal/model"
)

var bookColumns = []string{
	"id", "code", "title", "isbn", "year", "publisher", "pages",
	"description", "author_id", "genre_id", "shelf_id", "acquisition_date",
}

func (q queries) BookByID(ctx context.Context, id int) (model.Book, error) {
	query, args, err := qb.Select(bookColumns...).
		From(booksTableName).
		Where(sq.Eq{"id": id}).
		ToSql()
	if err != nil {
		return model.Book{}, err
	}
	var book model.Book
	if err := sqlx.GetContext(ctx, q.ext, &book, query, args...); err != nil {
		return model.Book{}, mapErr(err)
	}
	return book, nil
}

func (q queries) BookByCode(ctx context.Context, code string) (model.Book, error) {
	query, args, err := qb.Select(bookColumns...).
		From(booksTableName).
		Where(sq.Eq{"code": code}).
		ToSql()
	if err != nil {
		return model.Book{}, err
	}
	var book model.Book
	if err := sqlx.GetContext(ctx, q.ext, &book, query, args...); err != nil {
		return model.Book{}, mapErr(err)
	}
	return book, nil
}

func (q queries) InsertBook(ctx context.Context, book model.Book) (int, error) {
	query, args, err := qb.Insert(booksTableName).
		Columns("code", "title", "isbn", "year", "publisher", "pages",
			"description", "author_id", "genre_id", "shelf_id").
		Values(book.Code, book.Title, book.ISBN, book.Year, book.Publisher,
			book.Pages, book.Description, book.AuthorID, book.GenreID, book.ShelfID).
		Suffix("returning id").
		ToSql()
	if err != nil {
		return 0, err
	}
	var id int
	if err := q.ext.QueryRowxContext(ctx, query, args...).Scan(&id); err != nil {
		q.log.Error("InsertBook", zap.String("q", query), zap.Any("args", args))
		return 0, mapErr(err)
	}
	return id, nil
}

func (q queries) UpdateBook(ctx context.Context, book model.Book) error {
	query, args, err := qb.Update(booksTableName).
		Set("title", book.Title).
		Set("isbn", book.ISBN).
		Set("year", book.Year).
		Set("publisher", book.Publisher).
		Set("pages", book.Pages).
		Set("description", book.Description).
		Set("author_id", book.AuthorID).
		Set("genre_id", book.GenreID).
		Where(sq.Eq{"id": book.ID}).
		ToSql()
	if err != nil {
		return err
	}
	res, err := q.ext.ExecContext(ctx, query, args...)
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

func (q queries) UpdateBookShelf(ctx context.Context, bookID, shelfID int) error {
	res, err := q.ext.ExecContext(ctx,
		`update books set shelf_id = $1 where id = $2`, shelfID, bookID)
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

// DeleteBook removes the book row; copies go with it via ON DELETE CASCADE.
func (q queries) DeleteBook(ctx context.Context, id int) error {
	res, err := q.ext.ExecContext(ctx, `delete from books where id = $1`, id)
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

// bookRow carries a book plus the joined author/genre columns used for
// hydration. One mapping for every read path; there is no legacy shape.
type bookRow struct {
	model.Book
	AuthorFirstName string  `db:"author_first_name"`
	AuthorLastName  string  `db:"author_last_name"`
	GenreName       *string `db:"genre_name"`
}

func hydratedBookQuery() sq.SelectBuilder {
	cols := make([]string, 0, len(bookColumns)+3)
	for _, c := range bookColumns {
		cols = append(cols, "b."+c)
	}
	cols = append(cols,
		"a.first_name as author_first_name",
		"a.last_name as author_last_name",
		"g.name as genre_name",
	)
	return qb.Select(cols...).
		From(booksTableName + " b").
		Join(fmt.Sprintf("%s a on a.id = b.author_id", authorsTableName)).
		LeftJoin(fmt.Sprintf("%s g on g.id = b.genre_id", genresTableName))
}

func (r *repository) selectBooks(ctx context.Context, b sq.SelectBuilder) ([]model.Book, error) {
	query, args, err := b.ToSql()
	if err != nil {
		return nil, err
	}
	var rows []bookRow
	if err := sqlx.SelectContext(ctx, r.ext, &rows, query, args...); err != nil {
		r.log.Error("selectBooks", zap.String("q", query), zap.Any("args", args))
		return nil, err
	}
	books := make([]model.Book, 0, len(rows))
	for _, row := range rows {
		books = append(books, row.toBook())
	}
	if err := r.attachCopies(ctx, books); err != nil {
		return nil, err
	}
	return books, nil
}

func (row bookRow) toBook() model.Book {
	book := row.Book
	book.Author = &model.Author{
		ID:        book.AuthorID,
		FirstName: row.AuthorFirstName,
		LastName:  row.AuthorLastName,
	}
	if book.GenreID != nil && row.GenreName != nil {
		book.Genre = &model.Genre{ID: *book.GenreID, Name: *row.GenreName}
	}
	return book
}

// attachCopies loads the copies of every book in one query and groups them
// onto their owners.
func (r *repository) attachCopies(ctx context.Context, books []model.Book) error {
	if len(books) == 0 {
		return nil
	}
	ids := make([]int, 0, len(books))
	for _, b := range books {
		ids = append(ids, b.ID)
	}
	query, args, err := qb.Select("id", "book_id", "copy_code", "status",
		"location", "acquisition_date", "notes").
		From(copiesTableName).
		Where(sq.Eq{"book_id": ids}).
		OrderBy("copy_code").
		ToSql()
	if err != nil {
		return err
	}
	var copies []model.Copy
	if err := sqlx.SelectContext(ctx, r.ext, &copies, query, args...); err != nil {
		return err
	}
	byBook := make(map[int][]model.Copy, len(books))
	for _, c := range copies {
		byBook[c.BookID] = append(byBook[c.BookID], c)
	}
	for i := range books {
		books[i].Copies = byBook[books[i].ID]
	}
	return nil
}

func (r *repository) ListBooks(ctx context.Context) ([]model.Book, error) {
	return r.selectBooks(ctx, hydratedBookQuery().OrderBy("b.title"))
}

func (r *repository) ListBooksByShelf(ctx context.Context, shelfID int) ([]model.Book, error) {
	return r.selectBooks(ctx, hydratedBookQuery().
		Where(sq.Eq{"b.shelf_id": shelfID}).
		OrderBy("b.title"))
}

func (r *repository) HydratedBookByID(ctx context.Context, id int) (model.Book, error) {
	books, err := r.selectBooks(ctx, hydratedBookQuery().Where(sq.Eq{"b.id": id}))
	if err != nil {
		return model.Book{}, err
	}
	if len(books) == 0 {
		return model.Book{}, errs.ErrNotFound
	}
	return books[0], nil
}

func (r *repository) HydratedBookByCode(ctx context.Context, code string) (model.Book, error) {
	books, err := r.selectBooks(ctx, hydratedBookQuery().Where(sq.Eq{"b.code": code}))
	if err != nil {
		return model.Book{}, err
	}
	if len(books) == 0 {
		return model.Book{}, errs.ErrNotFound
	}
	return books[0], nil
}

// SearchBooks matches the term case-insensitively against title, code, isbn,
// publisher and author name, exact title/code/author matches first.
func (r *repository) SearchBooks(ctx context.Context, term string) ([]model.Book, error) {
	query := `
	select b.id, b.code, b.title, b.isbn, b.year, b.publisher, b.pages,
	       b.description, b.author_id, b.genre_id, b.shelf_id, b.acquisition_date,
	       a.first_name as author_first_name, a.last_name as author_last_name,
	       g.name as genre_name
	from books b
	join authors a on a.id = b.author_id
	left join genres g on g.id = b.genre_id
	where b.title ilike $1
	   or b.code ilike $1
	   or b.isbn ilike $1
	   or b.publisher ilike $1
	   or a.first_name ilike $1
	   or a.last_name ilike $1
	   or a.first_name || ' ' || a.last_name ilike $1
	order by case when lower(b.title) = lower($2) then 1
	              when lower(b.code) = lower($2) then 2
	              when lower(a.first_name || ' ' || a.last_name) = lower($2) then 3
	              else 4 end,
	         b.title`

	var rows []bookRow
	if err := sqlx.SelectContext(ctx, r.ext, &rows, query, "%"+term+"%", term); err != nil {
		r.log.Error("SearchBooks", zap.String("q", query), zap.String("term", term))
		return nil, err
	}
	books := make([]model.Book, 0, len(rows))
	for _, row := range rows {
		books = append(books, row.toBook())
	}
	if err := r.attachCopies(ctx, books); err != nil {
		return nil, err
	}
	return books, nil
}
