package repository

import (
	"context"

	sq "github.com/Masterminds/squirrel"
	"github.com/jmoiron/sqlx"
	"go.uber.org/zap"

	"github.com/chrismer/biblioteca-service/catalog/internal/model"
)

var userColumns = []string{
	"id", "name", "email", "phone", "address", "registered_at", "active",
}

func (q queries) UserByID(ctx context.Context, id int) (model.User, error) {
	query, args, err := qb.Select(userColumns...).
		From(usersTableName).
		Where(sq.Eq{"id": id}).
		ToSql()
	if err != nil {
		return model.User{}, err
	}
	var user model.User
	if err := sqlx.GetContext(ctx, q.ext, &user, query, args...); err != nil {
		return model.User{}, mapErr(err)
	}
	return user, nil
}

func (r *repository) InsertUser(ctx context.Context, user model.User) (int, error) {
	query, args, err := qb.Insert(usersTableName).
		Columns("name", "email", "phone", "address").
		Values(user.Name, user.Email, user.Phone, user.Address).
		Suffix("returning id").
		ToSql()
	if err != nil {
		return 0, err
	}
	var id int
	if err := r.ext.QueryRowxContext(ctx, query, args...).Scan(&id); err != nil {
		r.log.Error("InsertUser", zap.String("q", query), zap.Any("args", args))
		return 0, mapErr(err)
	}
	return id, nil
}

func (r *repository) ListUsers(ctx context.Context) ([]model.User, error) {
	query, args, err := qb.Select(userColumns...).
		From(usersTableName).
		Where(sq.Eq{"active": true}).
		OrderBy("name").
		ToSql()
	if err != nil {
		return nil, err
	}
	var users []model.User
	if err := sqlx.SelectContext(ctx, r.ext, &users, query, args...); err != nil {
		return nil, err
	}
	return users, nil
}
