package repositories

import "easyshop/internal/models"

// AccountRepository defines the interface for account data access.
type AccountRepository interface {
	CreateAccount(username, email, password string) (*models.Account, error)
	VerifyCredentials(email, password string) (bool, error)
	LookupUsername(email string) (string, error)
}
