package repository

import (
	"context"
	"fmt"
	"net/http"

	"ridemate/internal/models"
)

// ExpenseRepository talks to the expenses endpoint
type ExpenseRepository struct {
	c *client
}

// NewExpenseRepository creates a new expense repository
func NewExpenseRepository(baseURL string, httpClient *http.Client) *ExpenseRepository {
	return &ExpenseRepository{c: newClient(baseURL, httpClient)}
}

// List retrieves every expense; callers filter by owner
func (r *ExpenseRepository) List(ctx context.Context) ([]models.Expense, error) {
	var expenses []models.Expense
	if err := r.c.do(ctx, "list expenses", http.MethodGet, "getExpense", nil, nil, &expenses); err != nil {
		return nil, fmt.Errorf("failed to list expenses: %w", err)
	}
	return expenses, nil
}

// Create stores a new expense
func (r *ExpenseRepository) Create(ctx context.Context, expense models.Expense) error {
	if err := r.c.do(ctx, "create expense", http.MethodPost, "addExpense", nil, expense, nil); err != nil {
		return fmt.Errorf("failed to create expense: %w", err)
	}
	return nil
}

// Update replaces the stored expense with the given one
func (r *ExpenseRepository) Update(ctx context.Context, expense models.Expense) error {
	if err := r.c.do(ctx, "update expense", http.MethodPut, "updateExpense", nil, expense, nil); err != nil {
		return fmt.Errorf("failed to update expense: %w", err)
	}
	return nil
}

// Delete deletes an expense by ID
func (r *ExpenseRepository) Delete(ctx context.Context, id string) error {
	if err := r.c.do(ctx, "delete expense", http.MethodDelete, "deleteExpense", nil, idBody{ID: id}, nil); err != nil {
		return fmt.Errorf("failed to delete expense: %w", err)
	}
	return nil
}
