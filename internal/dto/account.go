package dto

import (
	"time"

	"github.com/docuflow/docuflow/internal/core/domain"
)

// CreateAccountRequest creates a new ledger account.
type CreateAccountRequest struct {
	Name        string `json:"name" binding:"required"`
	AccountType string `json:"accountType" binding:"required,oneof=ASSET LIABILITY EQUITY REVENUE EXPENSE"`
}

// AccountResponse is the API representation of a ledger account.
type AccountResponse struct {
	AccountID   string    `json:"accountID"`
	Name        string    `json:"name"`
	AccountType string    `json:"accountType"`
	IsActive    bool      `json:"isActive"`
	Balance     string    `json:"balance"`
	CreatedAt   time.Time `json:"createdAt"`
}

// ToAccountResponse converts a domain account to its API representation.
func ToAccountResponse(a *domain.Account) AccountResponse {
	return AccountResponse{
		AccountID:   a.AccountID,
		Name:        a.Name,
		AccountType: string(a.AccountType),
		IsActive:    a.IsActive,
		Balance:     a.Balance.String(),
		CreatedAt:   a.CreatedAt,
	}
}

// ToAccountResponses converts a slice of domain accounts.
func ToAccountResponses(accounts []domain.Account) []AccountResponse {
	out := make([]AccountResponse, len(accounts))
	for i := range accounts {
		out[i] = ToAccountResponse(&accounts[i])
	}
	return out
}
