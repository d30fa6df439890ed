package model

import (
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func TestLoanIsOverdue(t *testing.T) {
	t.Parallel()
	due := time.Date(2024, 3, 25, 0, 0, 0, 0, time.UTC)
	loan := Loan{Status: LoanActive, DueDate: due}

	require.False(t, loan.IsOverdue(due))
	require.False(t, loan.IsOverdue(due.Add(23*time.Hour)), "due day itself is not overdue")
	require.True(t, loan.IsOverdue(due.AddDate(0, 0, 1)))

	loan.Status = LoanReturned
	require.False(t, loan.IsOverdue(due.AddDate(0, 0, 10)))
}

func TestBookCopyCounts(t *testing.T) {
	t.Parallel()
	book := Book{Copies: []Copy{
		{Status: CopyAvailable},
		{Status: CopyAvailable},
		{Status: CopyLoaned},
		{Status: CopyDamaged},
	}}
	require.Equal(t, 2, book.AvailableCount())
	require.Equal(t, 1, book.LoanedCount())
}
