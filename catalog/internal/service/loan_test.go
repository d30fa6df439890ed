package service

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/chrismer/biblioteca-service/catalog/internal/errs"
	"github.com/chrismer/biblioteca-service/catalog/internal/model"
)

var testDay = time.Date(2024, 3, 10, 9, 30, 0, 0, time.UTC)

func newLoanEnv(t *testing.T) (*fakeRepo, *LoanService) {
	t.Helper()
	repo := newFakeRepo()
	svc := NewLoanService(repo, nil, zap.NewNop())
	svc.now = func() time.Time { return testDay }
	return repo, svc
}

func seedLoanable(t *testing.T, repo *fakeRepo) (copyID, userID int) {
	t.Helper()
	ctx := context.Background()
	shelfID := seedShelf(t, repo, "A", 5)
	placement := NewPlacementService(repo, zap.NewNop())
	bookID, err := placement.CreateBookWithCopies(ctx, bookReq("LIB001", shelfID, 2))
	require.NoError(t, err)
	copies, err := repo.CopiesByBook(ctx, bookID)
	require.NoError(t, err)
	userID, err = repo.InsertUser(ctx, model.User{Name: "Ana García"})
	require.NoError(t, err)
	return copies[0].ID, userID
}

func TestIssueLoan(t *testing.T) {
	t.Parallel()
	ctx := context.Background()
	repo, svc := newLoanEnv(t)
	copyID, userID := seedLoanable(t, repo)

	loan, err := svc.IssueLoan(ctx, model.IssueLoanRequest{CopyID: copyID, UserID: userID})
	require.NoError(t, err)

	wantDay := time.Date(2024, 3, 10, 0, 0, 0, 0, time.UTC)
	require.Equal(t, model.LoanActive, loan.Status)
	require.Equal(t, wantDay, loan.LoanDate)
	require.Equal(t, wantDay.AddDate(0, 0, 15), loan.DueDate)
	require.NotEmpty(t, loan.LoanUid)

	c, err := repo.CopyByID(ctx, copyID)
	require.NoError(t, err)
	require.Equal(t, model.CopyLoaned, c.Status)
}

func TestIssueLoan_CustomDays(t *testing.T) {
	t.Parallel()
	ctx := context.Background()
	repo, svc := newLoanEnv(t)
	copyID, userID := seedLoanable(t, repo)

	loan, err := svc.IssueLoan(ctx, model.IssueLoanRequest{CopyID: copyID, UserID: userID, Days: 7})
	require.NoError(t, err)
	require.Equal(t, loan.LoanDate.AddDate(0, 0, 7), loan.DueDate)
}

func TestIssueLoan_CopyNotAvailable(t *testing.T) {
	t.Parallel()
	ctx := context.Background()
	repo, svc := newLoanEnv(t)
	copyID, userID := seedLoanable(t, repo)

	_, err := svc.IssueLoan(ctx, model.IssueLoanRequest{CopyID: copyID, UserID: userID})
	require.NoError(t, err)

	_, err = svc.IssueLoan(ctx, model.IssueLoanRequest{CopyID: copyID, UserID: userID})
	require.ErrorIs(t, err, errs.ErrCopyNotAvailable)
}

func TestIssueLoan_InactiveUser(t *testing.T) {
	t.Parallel()
	ctx := context.Background()
	repo, svc := newLoanEnv(t)
	copyID, userID := seedLoanable(t, repo)

	u := repo.users[userID]
	u.Active = false
	repo.users[userID] = u

	_, err := svc.IssueLoan(ctx, model.IssueLoanRequest{CopyID: copyID, UserID: userID})
	require.ErrorIs(t, err, errs.ErrUserInactive)
}

func TestIssueLoanByBookCode(t *testing.T) {
	t.Parallel()
	ctx := context.Background()
	repo, svc := newLoanEnv(t)
	_, userID := seedLoanable(t, repo)

	loan, err := svc.IssueLoanByBookCode(ctx, model.IssueLoanByCodeRequest{BookCode: "LIB001", UserID: userID})
	require.NoError(t, err)

	// lowest copy code goes out first
	c, err := repo.CopyByID(ctx, loan.CopyID)
	require.NoError(t, err)
	require.Equal(t, "LIB001-001", c.CopyCode)

	loan2, err := svc.IssueLoanByBookCode(ctx, model.IssueLoanByCodeRequest{BookCode: "LIB001", UserID: userID})
	require.NoError(t, err)
	c2, err := repo.CopyByID(ctx, loan2.CopyID)
	require.NoError(t, err)
	require.Equal(t, "LIB001-002", c2.CopyCode)

	_, err = svc.IssueLoanByBookCode(ctx, model.IssueLoanByCodeRequest{BookCode: "LIB001", UserID: userID})
	require.ErrorIs(t, err, errs.ErrCopyNotAvailable)
}

func TestReturnLoan(t *testing.T) {
	t.Parallel()
	ctx := context.Background()
	repo, svc := newLoanEnv(t)
	copyID, userID := seedLoanable(t, repo)

	issued, err := svc.IssueLoan(ctx, model.IssueLoanRequest{CopyID: copyID, UserID: userID})
	require.NoError(t, err)

	returned, err := svc.ReturnLoan(ctx, copyID)
	require.NoError(t, err)
	require.Equal(t, issued.ID, returned.ID)
	require.Equal(t, model.LoanReturned, returned.Status)
	require.NotNil(t, returned.ReturnDate)

	c, err := repo.CopyByID(ctx, copyID)
	require.NoError(t, err)
	require.Equal(t, model.CopyAvailable, c.Status)

	// copy can go out again
	_, err = svc.IssueLoan(ctx, model.IssueLoanRequest{CopyID: copyID, UserID: userID})
	require.NoError(t, err)
}

func TestReturnLoan_NoActiveLoan(t *testing.T) {
	t.Parallel()
	ctx := context.Background()
	repo, svc := newLoanEnv(t)
	copyID, userID := seedLoanable(t, repo)

	_, err := svc.ReturnLoan(ctx, copyID)
	require.ErrorIs(t, err, errs.ErrNoActiveLoan)

	_, err = svc.IssueLoan(ctx, model.IssueLoanRequest{CopyID: copyID, UserID: userID})
	require.NoError(t, err)
	_, err = svc.ReturnLoan(ctx, copyID)
	require.NoError(t, err)

	// second return of the same loan fails the same way
	_, err = svc.ReturnLoan(ctx, copyID)
	require.ErrorIs(t, err, errs.ErrNoActiveLoan)
}

func TestReturnLoan_Overdue(t *testing.T) {
	t.Parallel()
	ctx := context.Background()
	repo, svc := newLoanEnv(t)
	copyID, userID := seedLoanable(t, repo)

	issued, err := svc.IssueLoan(ctx, model.IssueLoanRequest{CopyID: copyID, UserID: userID})
	require.NoError(t, err)

	svc.now = func() time.Time { return testDay.AddDate(0, 0, 20) }

	// renewal is off the table once the due date has passed
	_, err = svc.RenewLoan(ctx, issued.ID, 7)
	require.ErrorIs(t, err, errs.ErrLoanOverdue)

	// but the return itself still goes through
	returned, err := svc.ReturnLoan(ctx, copyID)
	require.NoError(t, err)
	require.Equal(t, model.LoanReturned, returned.Status)
	require.NotNil(t, returned.ReturnDate)

	c, err := repo.CopyByID(ctx, copyID)
	require.NoError(t, err)
	require.Equal(t, model.CopyAvailable, c.Status)

	_, err = svc.IssueLoan(ctx, model.IssueLoanRequest{CopyID: copyID, UserID: userID})
	require.NoError(t, err)
}

func TestRenewLoan(t *testing.T) {
	t.Parallel()
	ctx := context.Background()
	repo, svc := newLoanEnv(t)
	copyID, userID := seedLoanable(t, repo)

	issued, err := svc.IssueLoan(ctx, model.IssueLoanRequest{CopyID: copyID, UserID: userID})
	require.NoError(t, err)

	renewed, err := svc.RenewLoan(ctx, issued.ID, 7)
	require.NoError(t, err)
	require.Equal(t, issued.DueDate.AddDate(0, 0, 7), renewed.DueDate)
	require.Equal(t, 1, renewed.RenewalCount)

	renewed, err = svc.RenewLoan(ctx, issued.ID, 3)
	require.NoError(t, err)
	require.Equal(t, issued.DueDate.AddDate(0, 0, 10), renewed.DueDate)
	require.Equal(t, 2, renewed.RenewalCount)
}

func TestRenewLoan_Overdue(t *testing.T) {
	t.Parallel()
	ctx := context.Background()
	repo, svc := newLoanEnv(t)
	copyID, userID := seedLoanable(t, repo)

	issued, err := svc.IssueLoan(ctx, model.IssueLoanRequest{CopyID: copyID, UserID: userID})
	require.NoError(t, err)

	svc.now = func() time.Time { return testDay.AddDate(0, 0, 16) }
	_, err = svc.RenewLoan(ctx, issued.ID, 7)
	require.ErrorIs(t, err, errs.ErrLoanOverdue)
}

func TestRenewLoan_DueDayIsNotOverdue(t *testing.T) {
	t.Parallel()
	ctx := context.Background()
	repo, svc := newLoanEnv(t)
	copyID, userID := seedLoanable(t, repo)

	issued, err := svc.IssueLoan(ctx, model.IssueLoanRequest{CopyID: copyID, UserID: userID})
	require.NoError(t, err)

	svc.now = func() time.Time { return testDay.AddDate(0, 0, 15) }
	_, err = svc.RenewLoan(ctx, issued.ID, 7)
	require.NoError(t, err)
}

func TestRenewLoan_Returned(t *testing.T) {
	t.Parallel()
	ctx := context.Background()
	repo, svc := newLoanEnv(t)
	copyID, userID := seedLoanable(t, repo)

	issued, err := svc.IssueLoan(ctx, model.IssueLoanRequest{CopyID: copyID, UserID: userID})
	require.NoError(t, err)
	_, err = svc.ReturnLoan(ctx, copyID)
	require.NoError(t, err)

	_, err = svc.RenewLoan(ctx, issued.ID, 7)
	require.ErrorIs(t, err, errs.ErrNoActiveLoan)
}

func TestListOverdue(t *testing.T) {
	t.Parallel()
	ctx := context.Background()
	repo, svc := newLoanEnv(t)
	copyID, userID := seedLoanable(t, repo)

	_, err := svc.IssueLoan(ctx, model.IssueLoanRequest{CopyID: copyID, UserID: userID, Days: 5})
	require.NoError(t, err)

	loans, err := svc.ListOverdue(ctx)
	require.NoError(t, err)
	require.Empty(t, loans)

	svc.now = func() time.Time { return testDay.AddDate(0, 0, 6) }
	loans, err = svc.ListOverdue(ctx)
	require.NoError(t, err)
	require.Len(t, loans, 1)
}
