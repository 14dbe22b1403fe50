package services

import (
	"context"
	"fmt"
	"strings"

	"ridemate/internal/models"
	"ridemate/internal/repository"

	"github.com/google/uuid"
)

// ExpenseService keeps the active rider's expenses in sync with the expense endpoint
type ExpenseService struct {
	repo     *repository.ExpenseRepository
	session  IdentitySource
	expenses *Collection[models.Expense]
}

// NewExpenseService creates a new expense service
func NewExpenseService(repo *repository.ExpenseRepository, session IdentitySource, notifier Notifier) *ExpenseService {
	return &ExpenseService{
		repo:     repo,
		session:  session,
		expenses: NewCollection("expenses", func(e models.Expense) string { return e.ID }, notifier),
	}
}

// Refresh loads the expenses and keeps only the active rider's
func (s *ExpenseService) Refresh(ctx context.Context) error {
	id := s.session.Identity()
	if id == nil {
		s.expenses.Reset()
		return nil
	}

	expenses, err := s.repo.List(ctx)
	if err != nil {
		return err
	}

	mine := make([]models.Expense, 0, len(expenses))
	for _, e := range expenses {
		if e.UserID == id.ID {
			mine = append(mine, e)
		}
	}
	s.expenses.Replace(mine)
	return nil
}

// Reset forgets the cached expenses
func (s *ExpenseService) Reset() {
	s.expenses.Reset()
}

// List returns the active rider's expenses
func (s *ExpenseService) List() []models.Expense {
	return s.expenses.Snapshot()
}

// Add records a new expense for the active rider
func (s *ExpenseService) Add(ctx context.Context, expense models.Expense) (*models.Expense, error) {
	id := s.session.Identity()
	if id == nil {
		return nil, ErrNotLoggedIn
	}
	if err := validateExpense(expense); err != nil {
		return nil, err
	}

	expense.ID = uuid.New().String()
	expense.UserID = id.ID

	undo := s.expenses.Append(expense)
	err := s.expenses.Commit(ctx, "add expense", expense.ID, undo, func(ctx context.Context) error {
		return s.repo.Create(ctx, expense)
	})
	if err != nil {
		return nil, err
	}
	return &expense, nil
}

// Update merges the patch into an expense and writes the merged record
func (s *ExpenseService) Update(ctx context.Context, expenseID string, patch models.ExpensePatch) (*models.Expense, error) {
	if s.session.Identity() == nil {
		return nil, ErrNotLoggedIn
	}

	updated, undo, err := s.expenses.Patch(expenseID, func(e models.Expense) (models.Expense, Revert[models.Expense], error) {
		merged := patch.Apply(e)
		if err := validateExpense(merged); err != nil {
			return e, nil, err
		}
		return merged, patch.Inverse(e).Apply, nil
	})
	if err != nil {
		return nil, err
	}

	err = s.expenses.Commit(ctx, "update expense", expenseID, undo, func(ctx context.Context) error {
		return s.repo.Update(ctx, updated)
	})
	if err != nil {
		return nil, err
	}
	return &updated, nil
}

// Remove deletes an expense
func (s *ExpenseService) Remove(ctx context.Context, expenseID string) error {
	if s.session.Identity() == nil {
		return ErrNotLoggedIn
	}

	_, undo, err := s.expenses.Remove(expenseID)
	if err != nil {
		return err
	}
	return s.expenses.Commit(ctx, "delete expense", expenseID, undo, func(ctx context.Context) error {
		return s.repo.Delete(ctx, expenseID)
	})
}

func validateExpense(e models.Expense) error {
	switch {
	case !e.Type.Valid():
		return invalid("type", fmt.Sprintf("unknown category %q", e.Type))
	case strings.TrimSpace(e.Date) == "":
		return invalid("date", "is required")
	case e.Amount < 0:
		return invalid("amount", fmt.Sprintf("must not be negative, got %v", e.Amount))
	}
	return nil
}
