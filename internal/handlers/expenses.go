package handlers

import (
	"net/http"

	"ridemate/internal/models"
	"ridemate/internal/services"

	"github.com/go-chi/chi/v5"
)

// ExpenseHandler handles expense requests
type ExpenseHandler struct {
	expenses *services.ExpenseService
}

// NewExpenseHandler creates a new expense handler
func NewExpenseHandler(expenses *services.ExpenseService) *ExpenseHandler {
	return &ExpenseHandler{expenses: expenses}
}

// ListExpenses handles GET /api/v1/expenses
func (h *ExpenseHandler) ListExpenses(w http.ResponseWriter, r *http.Request) {
	respondJSON(w, http.StatusOK, h.expenses.List())
}

// CreateExpense handles POST /api/v1/expenses
func (h *ExpenseHandler) CreateExpense(w http.ResponseWriter, r *http.Request) {
	var req models.Expense
	if !decodeJSON(w, r, &req) {
		return
	}

	expense, err := h.expenses.Add(r.Context(), req)
	if err != nil {
		respondServiceError(w, r, err)
		return
	}
	respondJSON(w, http.StatusCreated, expense)
}

// UpdateExpense handles PATCH /api/v1/expenses/{id}
func (h *ExpenseHandler) UpdateExpense(w http.ResponseWriter, r *http.Request) {
	var patch models.ExpensePatch
	if !decodeJSON(w, r, &patch) {
		return
	}

	expense, err := h.expenses.Update(r.Context(), chi.URLParam(r, "id"), patch)
	if err != nil {
		respondServiceError(w, r, err)
		return
	}
	respondJSON(w, http.StatusOK, expense)
}

// DeleteExpense handles DELETE /api/v1/expenses/{id}
func (h *ExpenseHandler) DeleteExpense(w http.ResponseWriter, r *http.Request) {
	if err := h.expenses.Remove(r.Context(), chi.URLParam(r, "id")); err != nil {
		respondServiceError(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}
