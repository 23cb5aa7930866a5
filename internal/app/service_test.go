package app_test

import (
	"context"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	gormlogger "gorm.io/gorm/logger"

	"github.com/parleyhq/parley/internal/app"
	"github.com/parleyhq/parley/internal/database"
	"github.com/parleyhq/parley/pkg/models"
)

const testToken = "app-0123456789abcdef0123"

func setupApp(t *testing.T) (*gorm.DB, app.AppService, *models.App) {
	t.Helper()

	db, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{
		Logger: gormlogger.Default.LogMode(gormlogger.Silent),
	})
	require.NoError(t, err)
	sqlDB, err := db.DB()
	require.NoError(t, err)
	sqlDB.SetMaxOpenConns(1)
	require.NoError(t, database.Migrate(db))

	appModel := &models.App{
		ID:        uuid.New(),
		TenantID:  uuid.New(),
		Name:      "support-bot",
		Mode:      models.AppModeChat,
		Status:    "normal",
		EnableAPI: true,
		ModelConfig: &models.AppModelConfig{
			ID:                        uuid.New(),
			SuggestedQuestionsEnabled: true,
		},
	}
	appModel.ModelConfig.AppID = appModel.ID
	require.NoError(t, db.Create(appModel).Error)

	token := models.APIToken{
		ID:    uuid.New(),
		AppID: appModel.ID,
		Token: testToken,
		Type:  "app",
	}
	require.NoError(t, db.Create(&token).Error)

	// No Redis in tests, lookups go straight to the database
	return db, app.NewService(zap.NewNop(), db, nil), appModel
}

func TestGetAppByToken_OK(t *testing.T) {
	_, svc, appModel := setupApp(t)

	got, err := svc.GetAppByToken(context.Background(), testToken)
	require.NoError(t, err)
	assert.Equal(t, appModel.ID, got.ID)
	require.NotNil(t, got.ModelConfig)
	assert.True(t, got.ModelConfig.SuggestedQuestionsEnabled)
}

func TestGetAppByToken_Invalid(t *testing.T) {
	_, svc, _ := setupApp(t)

	_, err := svc.GetAppByToken(context.Background(), "no-such-token")
	assert.ErrorIs(t, err, app.ErrInvalidToken)

	_, err = svc.GetAppByToken(context.Background(), "")
	assert.ErrorIs(t, err, app.ErrInvalidToken)
}

func TestGetAppByToken_APIDisabled(t *testing.T) {
	db, svc, appModel := setupApp(t)
	require.NoError(t, db.Model(appModel).Update("enable_api", false).Error)

	_, err := svc.GetAppByToken(context.Background(), testToken)
	assert.ErrorIs(t, err, app.ErrAPIDisabled)
}

func TestGetAppByToken_DisabledApp(t *testing.T) {
	db, svc, appModel := setupApp(t)
	require.NoError(t, db.Model(appModel).Update("status", "disabled").Error)

	_, err := svc.GetAppByToken(context.Background(), testToken)
	assert.ErrorIs(t, err, app.ErrInvalidToken)
}

func TestGetOrCreateEndUser_CreatesOnce(t *testing.T) {
	_, svc, appModel := setupApp(t)
	ctx := context.Background()

	first, err := svc.GetOrCreateEndUser(ctx, appModel, "u-1")
	require.NoError(t, err)
	assert.Equal(t, "u-1", first.ExternalID)
	assert.False(t, first.IsAnon)

	second, err := svc.GetOrCreateEndUser(ctx, appModel, "u-1")
	require.NoError(t, err)
	assert.Equal(t, first.ID, second.ID)
}

func TestGetOrCreateEndUser_AnonymousFallback(t *testing.T) {
	_, svc, appModel := setupApp(t)

	user, err := svc.GetOrCreateEndUser(context.Background(), appModel, "")
	require.NoError(t, err)
	assert.Equal(t, app.DefaultEndUserID, user.ExternalID)
	assert.True(t, user.IsAnon)
}

func TestGetOrCreateEndUser_ScopedToApp(t *testing.T) {
	db, svc, appModel := setupApp(t)
	ctx := context.Background()

	otherApp := &models.App{ID: uuid.New(), TenantID: uuid.New(), Name: "other", Mode: models.AppModeChat, Status: "normal", EnableAPI: true}
	require.NoError(t, db.Create(otherApp).Error)

	a, err := svc.GetOrCreateEndUser(ctx, appModel, "u-1")
	require.NoError(t, err)
	b, err := svc.GetOrCreateEndUser(ctx, otherApp, "u-1")
	require.NoError(t, err)

	assert.NotEqual(t, a.ID, b.ID)
}
