// Package app resolves calling applications and end users for the
// service API.
package app

import (
	"context"
	"encoding/json"
	"errors"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
	"gorm.io/gorm"

	"github.com/parleyhq/parley/pkg/models"
)

// DefaultEndUserID is used when an endpoint does not require an
// explicit user and the caller omitted one.
const DefaultEndUserID = "DEFAULT-USER"

// tokenCacheTTL bounds staleness of the token->app cache. App config
// edits take at most this long to reach the service API.
const tokenCacheTTL = time.Minute

// App resolution errors
var (
	ErrInvalidToken = errors.New("invalid app token")
	ErrAPIDisabled  = errors.New("api access disabled for this app")
)

// AppService resolves apps from tokens and end users from external ids
type AppService interface {
	GetAppByToken(ctx context.Context, token string) (*models.App, error)
	GetOrCreateEndUser(ctx context.Context, app *models.App, externalID string) (*models.EndUser, error)
}

// Service implements AppService
type Service struct {
	logger *zap.Logger
	db     *gorm.DB
	cache  *redis.Client // optional
}

// NewService creates a new AppService
func NewService(logger *zap.Logger, db *gorm.DB, cache *redis.Client) AppService {
	return &Service{logger: logger, db: db, cache: cache}
}

// GetAppByToken validates a bearer token and returns the app it
// belongs to, with its model config preloaded. Lookups are cached in
// Redis keyed by token.
func (s *Service) GetAppByToken(ctx context.Context, token string) (*models.App, error) {
	if token == "" {
		return nil, ErrInvalidToken
	}

	if app := s.cachedApp(ctx, token); app != nil {
		return app, nil
	}

	var apiToken models.APIToken
	err := s.db.WithContext(ctx).
		Where("token = ? AND type = ?", token, "app").
		First(&apiToken).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrInvalidToken
		}
		return nil, err
	}

	var app models.App
	err = s.db.WithContext(ctx).
		Preload("ModelConfig").
		Where("id = ? AND status = ?", apiToken.AppID, "normal").
		First(&app).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrInvalidToken
		}
		return nil, err
	}
	if !app.EnableAPI {
		return nil, ErrAPIDisabled
	}

	s.touchToken(apiToken.ID)
	s.storeApp(ctx, token, &app)

	return &app, nil
}

// GetOrCreateEndUser resolves the end user behind an external id,
// creating the record on first sight. An empty id maps to the shared
// anonymous user.
func (s *Service) GetOrCreateEndUser(ctx context.Context, app *models.App, externalID string) (*models.EndUser, error) {
	isAnon := false
	if externalID == "" {
		externalID = DefaultEndUserID
		isAnon = true
	}

	var user models.EndUser
	err := s.db.WithContext(ctx).
		Where("app_id = ? AND external_id = ?", app.ID, externalID).
		First(&user).Error
	if err == nil {
		return &user, nil
	}
	if !errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, err
	}

	user = models.EndUser{
		ID:         uuid.New(),
		AppID:      app.ID,
		ExternalID: externalID,
		Type:       "service_api",
		IsAnon:     isAnon,
	}
	if err := s.db.WithContext(ctx).Create(&user).Error; err != nil {
		return nil, err
	}
	return &user, nil
}

func (s *Service) cachedApp(ctx context.Context, token string) *models.App {
	if s.cache == nil {
		return nil
	}
	raw, err := s.cache.Get(ctx, cacheKey(token)).Bytes()
	if err != nil {
		return nil
	}
	var app models.App
	if err := json.Unmarshal(raw, &app); err != nil {
		return nil
	}
	return &app
}

func (s *Service) storeApp(ctx context.Context, token string, app *models.App) {
	if s.cache == nil {
		return
	}
	raw, err := json.Marshal(app)
	if err != nil {
		return
	}
	if err := s.cache.Set(ctx, cacheKey(token), raw, tokenCacheTTL).Err(); err != nil {
		s.logger.Warn("Failed to cache app token", zap.Error(err))
	}
}

// touchToken records token usage without blocking the request
func (s *Service) touchToken(tokenID uuid.UUID) {
	go func() {
		now := time.Now()
		err := s.db.Model(&models.APIToken{}).
			Where("id = ?", tokenID).
			Update("last_used_at", now).Error
		if err != nil {
			s.logger.Warn("Failed to update token last_used_at", zap.Error(err))
		}
	}()
}

func cacheKey(token string) string {
	return "service_api_token:" + token
}
