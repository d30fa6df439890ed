package repository

import (
	"context"
	"time"

	sq "github.com/Masterminds/squirrel"
	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
	"github.com/pkg/errors"
	"go.uber.org/zap"

	"github.com/chrismer/biblioteca-service/catalog/internal/errs"
	"github.com/chrismer/biblioteca-service/catalog/internal/model"
)

var loanColumns = []string{
	"id", "loan_uid", "copy_id", "user_id", "loan_date", "due_date",
	"return_date", "status", "notes", "renewal_count",
}

func (q queries) LoanByID(ctx context.Context, id int) (model.Loan, error) {
	query, args, err := qb.Select(loanColumns...).
		From(loansTableName).
		Where(sq.Eq{"id": id}).
		ToSql()
	if err != nil {
		return model.Loan{}, err
	}
	var loan model.Loan
	if err := sqlx.GetContext(ctx, q.ext, &loan, query, args...); err != nil {
		return model.Loan{}, mapErr(err)
	}
	return loan, nil
}

// ActiveLoanByCopy returns the single active loan of a copy, ErrNoActiveLoan
// when there is none.
func (q queries) ActiveLoanByCopy(ctx context.Context, copyID int) (model.Loan, error) {
	query, args, err := qb.Select(loanColumns...).
		From(loansTableName).
		Where(sq.Eq{"copy_id": copyID, "status": model.LoanActive}).
		ToSql()
	if err != nil {
		return model.Loan{}, err
	}
	var loan model.Loan
	if err := sqlx.GetContext(ctx, q.ext, &loan, query, args...); err != nil {
		err = mapErr(err)
		if errors.Is(err, errs.ErrNotFound) {
			err = errs.ErrNoActiveLoan
		}
		return model.Loan{}, err
	}
	return loan, nil
}

func (q queries) InsertLoan(ctx context.Context, loan model.Loan) (model.Loan, error) {
	query, args, err := qb.Insert(loansTableName).
		Columns("loan_uid", "copy_id", "user_id", "loan_date", "due_date", "status", "notes").
		Values(uuid.New(), loan.CopyID, loan.UserID,
			loan.LoanDate.Format(time.DateOnly), loan.DueDate.Format(time.DateOnly),
			model.LoanActive, loan.Notes).
		Suffix("returning " + columnList(loanColumns)).
		ToSql()
	if err != nil {
		return model.Loan{}, err
	}
	var res model.Loan
	if err := sqlx.GetContext(ctx, q.ext, &res, query, args...); err != nil {
		q.log.Error("InsertLoan", zap.String("q", query), zap.Any("args", args))
		return model.Loan{}, mapErr(err)
	}
	return res, nil
}

func (q queries) MarkLoanReturned(ctx context.Context, loanID int, returnDate time.Time) error {
	res, err := q.ext.ExecContext(ctx,
		`update loans set status = $1, return_date = $2 where id = $3 and status = $4`,
		model.LoanReturned, returnDate.Format(time.DateOnly), loanID, model.LoanActive)
	if err != nil {
		return err
	}
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return errs.ErrNoActiveLoan
	}
	return nil
}

func (q queries) UpdateLoanDueDate(ctx context.Context, loanID int, dueDate time.Time) error {
	res, err := q.ext.ExecContext(ctx,
		`update loans set due_date = $1, renewal_count = renewal_count + 1
	where id = $2 and status = $3`,
		dueDate.Format(time.DateOnly), loanID, model.LoanActive)
	if err != nil {
		return err
	}
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return errs.ErrNoActiveLoan
	}
	return nil
}

func (r *repository) ListActiveLoans(ctx context.Context) ([]model.Loan, error) {
	query, args, err := qb.Select(loanColumns...).
		From(loansTableName).
		Where(sq.Eq{"status": model.LoanActive}).
		OrderBy("loan_date").
		ToSql()
	if err != nil {
		return nil, err
	}
	var loans []model.Loan
	if err := sqlx.SelectContext(ctx, r.ext, &loans, query, args...); err != nil {
		return nil, err
	}
	return loans, nil
}

// ListOverdueLoans returns active loans past due, oldest due date first.
// The ordering matters for triage views.
func (r *repository) ListOverdueLoans(ctx context.Context, today time.Time) ([]model.Loan, error) {
	query, args, err := qb.Select(loanColumns...).
		From(loansTableName).
		Where(sq.Eq{"status": model.LoanActive}).
		Where(sq.Lt{"due_date": today.Format(time.DateOnly)}).
		OrderBy("due_date").
		ToSql()
	if err != nil {
		return nil, err
	}
	var loans []model.Loan
	if err := sqlx.SelectContext(ctx, r.ext, &loans, query, args...); err != nil {
		return nil, err
	}
	return loans, nil
}

func (r *repository) ListActiveLoansByUser(ctx context.Context, userID int) ([]model.Loan, error) {
	query, args, err := qb.Select(loanColumns...).
		From(loansTableName).
		Where(sq.Eq{"user_id": userID, "status": model.LoanActive}).
		OrderBy("due_date").
		ToSql()
	if err != nil {
		return nil, err
	}
	var loans []model.Loan
	if err := sqlx.SelectContext(ctx, r.ext, &loans, query, args...); err != nil {
		return nil, err
	}
	return loans, nil
}
