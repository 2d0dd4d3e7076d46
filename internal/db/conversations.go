package db

import (
	"fmt"

	"github.com/yicone/chatgpt-web-share/internal/db/models"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// ConversationStore persists the upstream-conversation mapping rows.
type ConversationStore struct {
	db *gorm.DB
}

// NewConversationStore wraps a gorm connection.
func NewConversationStore(database *gorm.DB) *ConversationStore {
	return &ConversationStore{db: database}
}

// ListByAccount returns all conversation rows for one account.
func (s *ConversationStore) ListByAccount(accountID uint) ([]models.Conversation, error) {
	var conversations []models.Conversation
	if err := s.db.Where("account_id = ?", accountID).Order("id").Find(&conversations).Error; err != nil {
		return nil, fmt.Errorf("list conversations for account %d: %w", accountID, err)
	}
	return conversations, nil
}

// Upsert inserts the conversation or refreshes its title, model, activity
// time and validity when the id is already known.
func (s *ConversationStore) Upsert(conv *models.Conversation) error {
	err := s.db.Clauses(clause.OnConflict{
		Columns: []clause.Column{{Name: "conversation_id"}},
		DoUpdates: clause.AssignmentColumns([]string{
			"title", "model_name", "active_time", "is_valid", "account_id",
		}),
	}).Create(conv).Error
	if err != nil {
		return fmt.Errorf("upsert conversation %s: %w", conv.ConversationID, err)
	}
	return nil
}

// MarkInvalidExcept flags every conversation of the account that is not in
// keep as invalid. Rows are kept, matching the reference behavior of never
// deleting mappings.
func (s *ConversationStore) MarkInvalidExcept(accountID uint, keep []string) error {
	query := s.db.Model(&models.Conversation{}).Where("account_id = ?", accountID)
	if len(keep) > 0 {
		query = query.Where("conversation_id NOT IN ?", keep)
	}
	if err := query.Update("is_valid", false).Error; err != nil {
		return fmt.Errorf("invalidate conversations for account %d: %w", accountID, err)
	}
	return nil
}
