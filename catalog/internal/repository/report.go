package repository

import (
	"context"
	"time"

	"github.com/jmoiron/sqlx"

	"github.com/chrismer/biblioteca-service/catalog/internal/model"
)

// Summary aggregates the library-wide counters in a single round trip.
func (r *repository) Summary(ctx context.Context, today time.Time) (model.Summary, error) {
	query := `
	select
	    (select count(*) from books)                                          as total_books,
	    (select count(*) from copies)                                         as total_copies,
	    (select count(*) from copies where status = 'available')              as available_copies,
	    (select count(*) from copies where status = 'loaned')                 as loaned_copies,
	    (select count(*) from loans where status = 'active')                  as active_loans,
	    (select count(*) from loans where status = 'active' and due_date < $1) as overdue_loans,
	    (select count(*) from users where active)                             as active_users`

	var s model.Summary
	if err := sqlx.GetContext(ctx, r.ext, &s, query, today.Format(time.DateOnly)); err != nil {
		return model.Summary{}, err
	}
	return s, nil
}
