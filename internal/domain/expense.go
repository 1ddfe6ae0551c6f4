package domain

import (
	"fmt"
	"strings"
)

// Expense is one recorded spend during a trip.
type Expense struct {
	ID          string  `json:"id"`
	Amount      float64 `json:"amount"`
	Currency    string  `json:"currency,omitempty"`
	Category    string  `json:"category,omitempty"`
	Description string  `json:"description,omitempty"`
	SpentOn     string  `json:"spent_on,omitempty"` // "2006-01-02"
}

// ValidateExpense rejects negative amounts and blank descriptions.
func ValidateExpense(e Expense) error {
	if e.Amount < 0 {
		return fmt.Errorf("%w: expense amount must not be negative", ErrValidation)
	}
	if strings.TrimSpace(e.Description) == "" {
		return fmt.Errorf("%w: expense description is required", ErrValidation)
	}
	return nil
}

// TotalExpenses sums amounts regardless of currency. Conversion is the
// caller's concern.
func TotalExpenses(expenses []Expense) float64 {
	var total float64
	for _, e := range expenses {
		total += e.Amount
	}
	return total
}
