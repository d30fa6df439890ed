package repository

import (
	"context"

	"github.com/jmoiron/sqlx"

	"github.com/chrismer/biblioteca-service/catalog/internal/model"
)

var authorColumns = []string{
	"id", "first_name", "last_name", "nationality", "birth_date", "biography",
}

// AuthorByName looks up an author by case-insensitive name pair.
func (q queries) AuthorByName(ctx context.Context, firstName, lastName string) (model.Author, error) {
	query := `
	select id, first_name, last_name, nationality, birth_date, biography
	from authors
	where lower(first_name) = lower($1) and lower(last_name) = lower($2)`
	var author model.Author
	if err := sqlx.GetContext(ctx, q.ext, &author, query, firstName, lastName); err != nil {
		return model.Author{}, mapErr(err)
	}
	return author, nil
}

func (q queries) InsertAuthor(ctx context.Context, author model.Author) (int, error) {
	query, args, err := qb.Insert(authorsTableName).
		Columns("first_name", "last_name", "nationality", "birth_date", "biography").
		Values(author.FirstName, author.LastName, author.Nationality,
			author.BirthDate, author.Biography).
		Suffix("returning id").
		ToSql()
	if err != nil {
		return 0, err
	}
	var id int
	if err := q.ext.QueryRowxContext(ctx, query, args...).Scan(&id); err != nil {
		return 0, mapErr(err)
	}
	return id, nil
}

func (q queries) GenreByName(ctx context.Context, name string) (model.Genre, error) {
	query := `select id, name, description from genres where lower(name) = lower($1)`
	var genre model.Genre
	if err := sqlx.GetContext(ctx, q.ext, &genre, query, name); err != nil {
		return model.Genre{}, mapErr(err)
	}
	return genre, nil
}

func (q queries) InsertGenre(ctx context.Context, genre model.Genre) (int, error) {
	query, args, err := qb.Insert(genresTableName).
		Columns("name", "description").
		Values(genre.Name, genre.Description).
		Suffix("returning id").
		ToSql()
	if err != nil {
		return 0, err
	}
	var id int
	if err := q.ext.QueryRowxContext(ctx, query, args...).Scan(&id); err != nil {
		return 0, mapErr(err)
	}
	return id, nil
}

func (r *repository) ListAuthors(ctx context.Context) ([]model.Author, error) {
	query, args, err := qb.Select(authorColumns...).
		From(authorsTableName).
		OrderBy("last_name", "first_name").
		ToSql()
	if err != nil {
		return nil, err
	}
	var authors []model.Author
	if err := sqlx.SelectContext(ctx, r.ext, &authors, query, args...); err != nil {
		return nil, err
	}
	return authors, nil
}

func (r *repository) ListGenres(ctx context.Context) ([]model.Genre, error) {
	query, args, err := qb.Select("id", "name", "description").
		From(genresTableName).
		OrderBy("name").
		ToSql()
	if err != nil {
		return nil, err
	}
	var genres []model.Genre
	if err := sqlx.SelectContext(ctx, r.ext, &genres, query, args...); err != nil {
		return nil, err
	}
	return genres, nil
}
