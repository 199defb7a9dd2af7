package repositories

import (
	"crypto/sha256"
	"encoding/base64"
	"errors"
	"fmt"
	"log/slog"

	"easyshop/internal/models"

	"golang.org/x/crypto/bcrypt"
)

// CreateAccount registers a new account. The password is stored as a bcrypt hash.
// A registered email fails with ErrAlreadyExists whatever the other fields hold.
func (s *CatalogStore) CreateAccount(username, email, password string) (*models.Account, error) {
	if err := s.checkOpen(); err != nil {
		return nil, err
	}

	if email != "" {
		var count int64
		if err := s.db.Model(&models.Account{}).Where("email = ?", email).Count(&count).Error; err != nil {
			return nil, s.storageError("check account exists", err)
		}
		if count > 0 {
			return nil, fmt.Errorf("email '%s' already registered: %w", email, ErrAlreadyExists)
		}
	}

	account := &models.Account{Username: username, Email: email, Password: password}
	if err := s.validateModel(account); err != nil {
		return nil, err
	}

	hashed, err := bcrypt.GenerateFromPassword(passwordDigest(password), s.bcryptCost)
	if err != nil {
		return nil, fmt.Errorf("failed to hash password: %w", err)
	}
	account.Password = string(hashed)

	if err := s.db.Create(account).Error; err != nil {
		if isUniqueViolation(err) {
			return nil, fmt.Errorf("email '%s' already registered: %w", email, ErrAlreadyExists)
		}
		return nil, s.storageError("create account", err)
	}

	s.logger.Info("account created", slog.Int64("id", account.ID))
	return account, nil
}

// VerifyCredentials reports whether an account with exactly this email has this password.
func (s *CatalogStore) VerifyCredentials(email, password string) (bool, error) {
	if err := s.checkOpen(); err != nil {
		return false, err
	}
	if email == "" || password == "" {
		return false, nil
	}

	account, err := s.accountByEmail(email)
	if err != nil {
		if errors.Is(err, ErrNotFound) {
			return false, nil
		}
		return false, err
	}

	if err := bcrypt.CompareHashAndPassword([]byte(account.Password), passwordDigest(password)); err != nil {
		return false, nil
	}
	return true, nil
}

// LookupUsername returns the username registered for email.
func (s *CatalogStore) LookupUsername(email string) (string, error) {
	if err := s.checkOpen(); err != nil {
		return "", err
	}
	if email == "" {
		return "", fmt.Errorf("account with empty email: %w", ErrNotFound)
	}

	account, err := s.accountByEmail(email)
	if err != nil {
		return "", err
	}
	return account.Username, nil
}

func (s *CatalogStore) accountByEmail(email string) (*models.Account, error) {
	var accounts []models.Account
	if err := s.db.Where("email = ?", email).Order("id ASC").Limit(1).Find(&accounts).Error; err != nil {
		return nil, s.storageError("get account by email", err)
	}
	if len(accounts) == 0 {
		return nil, fmt.Errorf("account with email %s: %w", email, ErrNotFound)
	}
	return &accounts[0], nil
}

// passwordDigest maps a password of any length to a fixed 44 byte input,
// below bcrypt's 72 byte limit.
func passwordDigest(password string) []byte {
	sum := sha256.Sum256([]byte(password))
	digest := make([]byte, base64.StdEncoding.EncodedLen(len(sum)))
	base64.StdEncoding.Encode(digest, sum[:])
	return digest
}
