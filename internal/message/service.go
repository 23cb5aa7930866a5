// Package message implements the message service behind the service API:
// cursor pagination over conversation history, feedback storage and
// suggested-question generation.
package message

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"
	"gorm.io/gorm"

	"github.com/parleyhq/parley/internal/conversation"
	"github.com/parleyhq/parley/internal/events"
	"github.com/parleyhq/parley/internal/llm"
	"github.com/parleyhq/parley/pkg/metrics"
	"github.com/parleyhq/parley/pkg/models"
)

const suggestedQuestionsInstructions = `You help users continue a conversation with an AI assistant. ` +
	`Given the conversation so far, propose exactly three short follow-up questions the user is likely to ask next. ` +
	`Respond with a JSON array of three strings and nothing else.`

// historyWindow bounds how much conversation context is sent to the
// model when generating suggestions.
const historyWindow = 10

// Page is one page of conversation messages with per-user feedback
type Page struct {
	Limit     int
	HasMore   bool
	Data      []models.Message
	Feedbacks map[uuid.UUID]*models.MessageFeedback
}

// MessageService defines message operations for the service API
type MessageService interface {
	PaginateByFirstID(ctx context.Context, app *models.App, user *models.EndUser, conversationID uuid.UUID, firstID *uuid.UUID, limit int) (*Page, error)
	CreateFeedback(ctx context.Context, app *models.App, user *models.EndUser, messageID uuid.UUID, rating *string, content string) error
	ListAppFeedbacks(ctx context.Context, app *models.App, page, limit int) ([]models.MessageFeedback, error)
	SuggestedQuestions(ctx context.Context, app *models.App, user *models.EndUser, messageID uuid.UUID, invokeFrom string) ([]string, error)
}

// Service implements MessageService
type Service struct {
	logger          *zap.Logger
	db              *gorm.DB
	conversationSvc conversation.ConversationService
	provider        llm.Provider
	publisher       events.FeedbackPublisher // optional
}

// NewService creates a new MessageService
func NewService(
	logger *zap.Logger,
	db *gorm.DB,
	conversationSvc conversation.ConversationService,
	provider llm.Provider,
	publisher events.FeedbackPublisher,
) MessageService {
	return &Service{
		logger:          logger,
		db:              db,
		conversationSvc: conversationSvc,
		provider:        provider,
		publisher:       publisher,
	}
}

// PaginateByFirstID returns up to limit messages of a conversation,
// newest first, older than the first_id cursor when one is given. It
// fetches one extra row to decide has_more.
func (s *Service) PaginateByFirstID(ctx context.Context, app *models.App, user *models.EndUser, conversationID uuid.UUID, firstID *uuid.UUID, limit int) (*Page, error) {
	conv, err := s.conversationSvc.GetConversation(ctx, app, user, conversationID)
	if err != nil {
		return nil, err
	}

	query := s.db.WithContext(ctx).
		Preload("Files").
		Preload("AgentThoughts", func(db *gorm.DB) *gorm.DB {
			return db.Order("message_agent_thoughts.position ASC")
		}).
		Where("conversation_id = ?", conv.ID)

	if firstID != nil {
		var first models.Message
		err := s.db.WithContext(ctx).
			Where("id = ? AND conversation_id = ?", *firstID, conv.ID).
			First(&first).Error
		if err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return nil, ErrFirstMessageNotFound
			}
			return nil, err
		}
		query = query.Where("created_at < ?", first.CreatedAt)
	}

	var msgs []models.Message
	if err := query.Order("created_at DESC").Limit(limit + 1).Find(&msgs).Error; err != nil {
		return nil, err
	}

	hasMore := false
	if len(msgs) > limit {
		hasMore = true
		msgs = msgs[:limit]
	}

	feedbacks, err := s.feedbacksByUser(ctx, user, msgs)
	if err != nil {
		return nil, err
	}

	return &Page{
		Limit:     limit,
		HasMore:   hasMore,
		Data:      msgs,
		Feedbacks: feedbacks,
	}, nil
}

// feedbacksByUser maps message id to the end user's feedback, if any
func (s *Service) feedbacksByUser(ctx context.Context, user *models.EndUser, msgs []models.Message) (map[uuid.UUID]*models.MessageFeedback, error) {
	result := make(map[uuid.UUID]*models.MessageFeedback, len(msgs))
	if len(msgs) == 0 {
		return result, nil
	}

	ids := make([]uuid.UUID, len(msgs))
	for i, m := range msgs {
		ids[i] = m.ID
	}

	var rows []models.MessageFeedback
	err := s.db.WithContext(ctx).
		Where("message_id IN ? AND from_end_user_id = ?", ids, user.ID).
		Find(&rows).Error
	if err != nil {
		return nil, err
	}
	for i := range rows {
		result[rows[i].MessageID] = &rows[i]
	}
	return result, nil
}

// CreateFeedback records, updates or clears an end user's rating of a
// message. A nil rating clears any existing feedback.
func (s *Service) CreateFeedback(ctx context.Context, app *models.App, user *models.EndUser, messageID uuid.UUID, rating *string, content string) error {
	if rating != nil && *rating != models.FeedbackRatingLike && *rating != models.FeedbackRatingDislike {
		return ErrInvalidRating
	}

	var msg models.Message
	err := s.db.WithContext(ctx).
		Where("id = ? AND app_id = ?", messageID, app.ID).
		First(&msg).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return ErrMessageNotFound
		}
		return err
	}

	var existing models.MessageFeedback
	err = s.db.WithContext(ctx).
		Where("message_id = ? AND from_end_user_id = ?", msg.ID, user.ID).
		First(&existing).Error
	found := err == nil
	if err != nil && !errors.Is(err, gorm.ErrRecordNotFound) {
		return err
	}

	switch {
	case rating == nil:
		if found {
			if err := s.db.WithContext(ctx).Delete(&existing).Error; err != nil {
				return err
			}
		}
	case found:
		existing.Rating = *rating
		existing.Content = content
		if err := s.db.WithContext(ctx).Save(&existing).Error; err != nil {
			return err
		}
	default:
		feedback := models.MessageFeedback{
			ID:             uuid.New(),
			AppID:          app.ID,
			ConversationID: msg.ConversationID,
			MessageID:      msg.ID,
			Rating:         *rating,
			Content:        content,
			FromSource:     "api",
			FromEndUserID:  user.ID,
		}
		if err := s.db.WithContext(ctx).Create(&feedback).Error; err != nil {
			return err
		}
	}

	ratingLabel := ""
	if rating != nil {
		ratingLabel = *rating
	}
	metrics.FeedbacksSubmitted.WithLabelValues(ratingLabel).Inc()

	if s.publisher != nil {
		s.publisher.PublishFeedback(ctx, events.FeedbackEvent{
			AppID:          app.ID.String(),
			ConversationID: msg.ConversationID.String(),
			MessageID:      msg.ID.String(),
			EndUserID:      user.ID.String(),
			Rating:         ratingLabel,
			Content:        content,
			OccurredAt:     time.Now().UTC(),
		})
	}

	return nil
}

// ListAppFeedbacks returns one page of all feedbacks recorded for the app
func (s *Service) ListAppFeedbacks(ctx context.Context, app *models.App, page, limit int) ([]models.MessageFeedback, error) {
	if page < 1 {
		page = 1
	}
	var rows []models.MessageFeedback
	err := s.db.WithContext(ctx).
		Where("app_id = ?", app.ID).
		Order("created_at DESC").
		Offset((page - 1) * limit).
		Limit(limit).
		Find(&rows).Error
	if err != nil {
		return nil, err
	}
	return rows, nil
}

// SuggestedQuestions generates follow-up questions for the conversation
// a message belongs to. The feature must be enabled in the app config.
func (s *Service) SuggestedQuestions(ctx context.Context, app *models.App, user *models.EndUser, messageID uuid.UUID, invokeFrom string) ([]string, error) {
	var msg models.Message
	err := s.db.WithContext(ctx).
		Where("id = ? AND app_id = ? AND from_end_user_id = ?", messageID, app.ID, user.ID).
		First(&msg).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrMessageNotFound
		}
		return nil, err
	}

	cfg, err := s.appModelConfig(ctx, app)
	if err != nil {
		return nil, err
	}
	if cfg == nil || !cfg.SuggestedQuestionsEnabled {
		return nil, ErrSuggestedQuestionsDisabled
	}

	history, err := s.historyText(ctx, &msg)
	if err != nil {
		return nil, err
	}

	raw, err := s.provider.Chat(ctx, suggestedQuestionsInstructions, history)
	if err != nil {
		return nil, fmt.Errorf("suggestion generation failed: %w", err)
	}

	questions, err := parseQuestions(raw)
	if err != nil {
		return nil, err
	}

	metrics.SuggestionsGenerated.Inc()
	s.logger.Debug("Generated suggested questions",
		zap.String("message_id", msg.ID.String()),
		zap.String("invoke_from", invokeFrom),
		zap.Int("count", len(questions)))

	return questions, nil
}

func (s *Service) appModelConfig(ctx context.Context, app *models.App) (*models.AppModelConfig, error) {
	if app.ModelConfig != nil {
		return app.ModelConfig, nil
	}
	var cfg models.AppModelConfig
	err := s.db.WithContext(ctx).Where("app_id = ?", app.ID).First(&cfg).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return &cfg, nil
}

// historyText renders the tail of the conversation up to and including
// the given message as a plain transcript.
func (s *Service) historyText(ctx context.Context, msg *models.Message) (string, error) {
	var rows []models.Message
	err := s.db.WithContext(ctx).
		Where("conversation_id = ? AND created_at <= ?", msg.ConversationID, msg.CreatedAt).
		Order("created_at DESC").
		Limit(historyWindow).
		Find(&rows).Error
	if err != nil {
		return "", err
	}

	var b strings.Builder
	for i := len(rows) - 1; i >= 0; i-- {
		fmt.Fprintf(&b, "Human: %s\n", rows[i].Query)
		fmt.Fprintf(&b, "Assistant: %s\n", rows[i].Answer)
	}
	return b.String(), nil
}

// parseQuestions extracts the JSON string array from a model response,
// tolerating markdown code fences around it.
func parseQuestions(raw string) ([]string, error) {
	cleaned := strings.TrimSpace(raw)
	cleaned = strings.TrimPrefix(cleaned, "```json")
	cleaned = strings.TrimPrefix(cleaned, "```")
	cleaned = strings.TrimSuffix(cleaned, "```")
	cleaned = strings.TrimSpace(cleaned)

	var questions []string
	if err := json.Unmarshal([]byte(cleaned), &questions); err != nil {
		return nil, fmt.Errorf("unparseable suggestion output: %w", err)
	}
	return questions, nil
}
