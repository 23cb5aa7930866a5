// Package conversation provides conversation lookup for the service API.
package conversation

import (
	"context"
	"errors"

	"github.com/google/uuid"
	"go.uber.org/zap"
	"gorm.io/gorm"

	"github.com/parleyhq/parley/pkg/models"
)

// ErrConversationNotFound is returned when no conversation matches the
// app/user scope.
var ErrConversationNotFound = errors.New("conversation not exists")

// ConversationService defines conversation operations
type ConversationService interface {
	GetConversation(ctx context.Context, app *models.App, user *models.EndUser, conversationID uuid.UUID) (*models.Conversation, error)
}

// Service implements ConversationService
type Service struct {
	logger *zap.Logger
	db     *gorm.DB
}

// NewService creates a new ConversationService
func NewService(logger *zap.Logger, db *gorm.DB) ConversationService {
	return &Service{logger: logger, db: db}
}

// GetConversation returns the conversation scoped to the app and end user
func (s *Service) GetConversation(ctx context.Context, app *models.App, user *models.EndUser, conversationID uuid.UUID) (*models.Conversation, error) {
	var conv models.Conversation
	err := s.db.WithContext(ctx).
		Where("id = ? AND app_id = ? AND from_end_user_id = ? AND status = ?",
			conversationID, app.ID, user.ID, "normal").
		First(&conv).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrConversationNotFound
		}
		return nil, err
	}
	return &conv, nil
}
