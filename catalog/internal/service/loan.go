package service

import (
	"context"
	"encoding/json"
	"time"

	"github.com/IBM/sarama"
	"go.uber.org/zap"

	"github.com/chrismer/biblioteca-service/catalog/internal/errs"
	"github.com/chrismer/biblioteca-service/catalog/internal/model"
	"github.com/chrismer/biblioteca-service/catalog/internal/repository"
	"github.com/chrismer/biblioteca-service/pkg/kafka"
)

const defaultLoanDays = 15

// LoanService is the state machine over (Copy.status, Loan.status) pairs:
// available -> loaned on issue, loaned -> available on return. Renewals keep
// the loan active and only push the due date. Both sides of every transition
// are written in one transactional unit so the two fields cannot disagree.
type LoanService struct {
	log      *zap.Logger
	repo     repository.Repository
	producer sarama.SyncProducer
	now      func() time.Time
}

// NewLoanService builds the loan engine. producer may be nil; loan events
// are then skipped.
func NewLoanService(repo repository.Repository, producer sarama.SyncProducer, log *zap.Logger) *LoanService {
	return &LoanService{
		log:      log.Named("loans"),
		repo:     repo,
		producer: producer,
		now:      time.Now,
	}
}

func (s *LoanService) today() time.Time {
	y, m, d := s.now().Date()
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}

// IssueLoan lends an available copy to an active user.
func (s *LoanService) IssueLoan(ctx context.Context, req model.IssueLoanRequest) (model.Loan, error) {
	days := req.Days
	if days == 0 {
		days = defaultLoanDays
	}

	var loan model.Loan
	err := s.repo.InTx(ctx, func(q repository.Queries) error {
		copy, err := q.CopyByID(ctx, req.CopyID)
		if err != nil {
			return err
		}
		if copy.Status != model.CopyAvailable {
			return errs.ErrCopyNotAvailable
		}
		user, err := q.UserByID(ctx, req.UserID)
		if err != nil {
			return err
		}
		if !user.Active {
			return errs.ErrUserInactive
		}

		today := s.today()
		loan, err = q.InsertLoan(ctx, model.Loan{
			CopyID:   req.CopyID,
			UserID:   req.UserID,
			LoanDate: today,
			DueDate:  today.AddDate(0, 0, days),
			Notes:    req.Notes,
		})
		if err != nil {
			return err
		}
		return q.UpdateCopyStatus(ctx, req.CopyID, model.CopyLoaned)
	})
	if err != nil {
		return model.Loan{}, err
	}

	s.log.Info("loan issued",
		zap.Int("loan_id", loan.ID),
		zap.Int("copy_id", loan.CopyID),
		zap.Int("user_id", loan.UserID))
	s.emit("loan_issued", loan)
	return loan, nil
}

// IssueLoanByBookCode lends the first available copy (lowest copy code) of
// the book to the given user. Copy selection happens inside the unit so two
// concurrent calls cannot pick the same copy.
func (s *LoanService) IssueLoanByBookCode(ctx context.Context, req model.IssueLoanByCodeRequest) (model.Loan, error) {
	days := req.Days
	if days == 0 {
		days = defaultLoanDays
	}

	var loan model.Loan
	err := s.repo.InTx(ctx, func(q repository.Queries) error {
		book, err := q.BookByCode(ctx, req.BookCode)
		if err != nil {
			return err
		}
		copies, err := q.CopiesByBook(ctx, book.ID)
		if err != nil {
			return err
		}
		var picked *model.Copy
		for i := range copies {
			if copies[i].Status == model.CopyAvailable {
				picked = &copies[i]
				break
			}
		}
		if picked == nil {
			return errs.ErrCopyNotAvailable
		}

		user, err := q.UserByID(ctx, req.UserID)
		if err != nil {
			return err
		}
		if !user.Active {
			return errs.ErrUserInactive
		}

		today := s.today()
		loan, err = q.InsertLoan(ctx, model.Loan{
			CopyID:   picked.ID,
			UserID:   req.UserID,
			LoanDate: today,
			DueDate:  today.AddDate(0, 0, days),
		})
		if err != nil {
			return err
		}
		return q.UpdateCopyStatus(ctx, picked.ID, model.CopyLoaned)
	})
	if err != nil {
		return model.Loan{}, err
	}
	s.emit("loan_issued", loan)
	return loan, nil
}

// ReturnLoan closes the copy's active loan and frees the copy. A second call
// for the same copy fails with ErrNoActiveLoan.
func (s *LoanService) ReturnLoan(ctx context.Context, copyID int) (model.Loan, error) {
	var loan model.Loan
	err := s.repo.InTx(ctx, func(q repository.Queries) error {
		var err error
		loan, err = q.ActiveLoanByCopy(ctx, copyID)
		if err != nil {
			return err
		}
		today := s.today()
		if err := q.MarkLoanReturned(ctx, loan.ID, today); err != nil {
			return err
		}
		loan.Status = model.LoanReturned
		loan.ReturnDate = &today
		return q.UpdateCopyStatus(ctx, copyID, model.CopyAvailable)
	})
	if err != nil {
		return model.Loan{}, err
	}

	s.log.Info("loan returned", zap.Int("loan_id", loan.ID), zap.Int("copy_id", copyID))
	s.emit("loan_returned", loan)
	return loan, nil
}

// RenewLoan pushes the due date forward by extraDays. Overdue loans cannot
// be renewed, only returned.
func (s *LoanService) RenewLoan(ctx context.Context, loanID, extraDays int) (model.Loan, error) {
	var loan model.Loan
	err := s.repo.InTx(ctx, func(q repository.Queries) error {
		var err error
		loan, err = q.LoanByID(ctx, loanID)
		if err != nil {
			return err
		}
		if loan.Status != model.LoanActive {
			return errs.ErrNoActiveLoan
		}
		if loan.IsOverdue(s.today()) {
			return errs.ErrLoanOverdue
		}
		loan.DueDate = loan.DueDate.AddDate(0, 0, extraDays)
		loan.RenewalCount++
		return q.UpdateLoanDueDate(ctx, loanID, loan.DueDate)
	})
	if err != nil {
		return model.Loan{}, err
	}
	s.log.Info("loan renewed",
		zap.Int("loan_id", loan.ID),
		zap.Int("extra_days", extraDays),
		zap.Int("renewals", loan.RenewalCount))
	return loan, nil
}

func (s *LoanService) ListOverdue(ctx context.Context) ([]model.Loan, error) {
	return s.repo.ListOverdueLoans(ctx, s.today())
}

func (s *LoanService) ListActive(ctx context.Context) ([]model.Loan, error) {
	return s.repo.ListActiveLoans(ctx)
}

func (s *LoanService) ListActiveByUser(ctx context.Context, userID int) ([]model.Loan, error) {
	return s.repo.ListActiveLoansByUser(ctx, userID)
}

type loanEvent struct {
	Event   string `json:"event"`
	LoanUid string `json:"loanUid"`
	CopyID  int    `json:"copyId"`
	UserID  int    `json:"userId"`
	DueDate string `json:"dueDate"`
}

// emit publishes a loan event for the stats pipeline. Best effort: failures
// are logged, never surfaced to the caller.
func (s *LoanService) emit(event string, loan model.Loan) {
	if s.producer == nil {
		return
	}
	b, err := json.Marshal(loanEvent{
		Event:   event,
		LoanUid: loan.LoanUid,
		CopyID:  loan.CopyID,
		UserID:  loan.UserID,
		DueDate: loan.DueDate.Format(time.DateOnly),
	})
	if err != nil {
		s.log.Error("marshal loan event", zap.Error(err))
		return
	}
	if _, _, err := s.producer.SendMessage(&sarama.ProducerMessage{
		Topic: kafka.LoanEventsTopic,
		Value: sarama.ByteEncoder(b),
	}); err != nil {
		s.log.Error("send loan event", zap.Error(err))
	}
}
