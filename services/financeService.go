package services

import (
	"ClinicHub/models"
	"ClinicHub/repositories"
	"context"
	"fmt"
	"time"
)

// FinanceSummary totals a period of the ledger in cents. Income and Expense
// count settled entries only; cancelled entries are ignored.
type FinanceSummary struct {
	From           time.Time `json:"from"`
	To             time.Time `json:"to"`
	Income         int64     `json:"income_cents"`
	Expense        int64     `json:"expense_cents"`
	Balance        int64     `json:"balance_cents"`
	PendingIncome  int64     `json:"pending_income_cents"`
	PendingExpense int64     `json:"pending_expense_cents"`
	Count          int       `json:"count"`
}

// Summarize folds transactions into a FinanceSummary.
func Summarize(transactions []models.Transaction) FinanceSummary {
	var sum FinanceSummary
	for _, t := range transactions {
		switch {
		case t.Status == models.TransactionCancelled:
			continue
		case t.Settled() && t.Type == models.TransactionIncome:
			sum.Income += t.AmountCents
		case t.Settled() && t.Type == models.TransactionExpense:
			sum.Expense += t.AmountCents
		case t.Type == models.TransactionIncome:
			sum.PendingIncome += t.AmountCents
		default:
			sum.PendingExpense += t.AmountCents
		}
		sum.Count++
	}
	sum.Balance = sum.Income - sum.Expense
	return sum
}

// MonthRange returns the first instant of t's month and of the next month.
func MonthRange(t time.Time) (time.Time, time.Time) {
	start := time.Date(t.Year(), t.Month(), 1, 0, 0, 0, 0, t.Location())
	return start, start.AddDate(0, 1, 0)
}

type FinanceService struct {
	repository *repositories.TransactionRepository
}

func NewFinanceService(repository *repositories.TransactionRepository) *FinanceService {
	return &FinanceService{repository: repository}
}

func (s *FinanceService) Create(ctx context.Context, transaction *models.Transaction) error {
	if err := transaction.Validate(); err != nil {
		return invalid(err)
	}
	return s.repository.Create(ctx, transaction)
}

func (s *FinanceService) GetByID(ctx context.Context, id string) (*models.Transaction, error) {
	return s.repository.GetByID(ctx, id)
}

func (s *FinanceService) List(ctx context.Context, filter models.TransactionFilter) ([]models.Transaction, error) {
	return s.repository.List(ctx, filter)
}

func (s *FinanceService) Update(ctx context.Context, transaction *models.Transaction) error {
	current, err := s.repository.GetByID(ctx, transaction.ID)
	if err != nil {
		return err
	}
	if transaction.Status == "" {
		transaction.Status = current.Status
	}
	if transaction.OccurredAt.IsZero() {
		transaction.OccurredAt = current.OccurredAt
	}
	if err := transaction.Validate(); err != nil {
		return invalid(err)
	}
	return s.repository.Update(ctx, transaction)
}

func (s *FinanceService) Delete(ctx context.Context, id string) error {
	return s.repository.Delete(ctx, id)
}

// Summary totals the ledger for [from, to).
func (s *FinanceService) Summary(ctx context.Context, from, to time.Time) (FinanceSummary, error) {
	if !to.After(from) {
		return FinanceSummary{}, invalid(fmt.Errorf("to must be after from"))
	}
	transactions, err := s.repository.List(ctx, models.TransactionFilter{From: from, To: to})
	if err != nil {
		return FinanceSummary{}, err
	}
	sum := Summarize(transactions)
	sum.From, sum.To = from, to
	return sum, nil
}
