package db

import (
	"errors"
	"fmt"

	"github.com/yicone/chatgpt-web-share/internal/db/models"
	"gorm.io/gorm"
)

// ErrAccountNotFound is returned when an update targets a missing account row.
var ErrAccountNotFound = errors.New("account not found")

// AccountStore is the credential store consumed by rotation and the proxy
// supervisor: it reads the active account set and writes back changed
// credential fields.
type AccountStore struct {
	db *gorm.DB
}

// NewAccountStore wraps a gorm connection in the credential-store API.
func NewAccountStore(database *gorm.DB) *AccountStore {
	return &AccountStore{db: database}
}

// ListActiveAccounts returns all active accounts in stable id order.
// Rotation relies on this order being deterministic across ticks.
func (s *AccountStore) ListActiveAccounts() ([]models.Account, error) {
	var accounts []models.Account
	if err := s.db.Where("is_active = ?", true).Order("id").Find(&accounts).Error; err != nil {
		return nil, fmt.Errorf("list active accounts: %w", err)
	}
	return accounts, nil
}

// GetAccount loads one account by id.
func (s *AccountStore) GetAccount(id uint) (*models.Account, error) {
	var account models.Account
	if err := s.db.First(&account, "id = ?", id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, fmt.Errorf("account %d: %w", id, ErrAccountNotFound)
		}
		return nil, fmt.Errorf("get account %d: %w", id, err)
	}
	return &account, nil
}

// UpdateAccount writes only the given fields for one account in a single
// transaction. Callers pass just the fields that actually changed, so an
// unchanged account produces no write at all.
func (s *AccountStore) UpdateAccount(id uint, fields map[string]any) error {
	if len(fields) == 0 {
		return nil
	}
	result := s.db.Model(&models.Account{}).Where("id = ?", id).Updates(fields)
	if result.Error != nil {
		return fmt.Errorf("update account %d: %w", id, result.Error)
	}
	if result.RowsAffected == 0 {
		return fmt.Errorf("account %d: %w", id, ErrAccountNotFound)
	}
	return nil
}

// SetActive flips the activation flag for one account. Used by rotation when
// deactivate_on_auth_failure is enabled.
func (s *AccountStore) SetActive(id uint, active bool) error {
	return s.UpdateAccount(id, map[string]any{"is_active": active})
}
