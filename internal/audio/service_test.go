package audio_test

import (
	"context"
	"io"
	"strings"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	gormlogger "gorm.io/gorm/logger"

	"github.com/parleyhq/parley/internal/audio"
	"github.com/parleyhq/parley/internal/database"
	"github.com/parleyhq/parley/internal/message"
	"github.com/parleyhq/parley/pkg/models"
)

type fakeProvider struct {
	transcription string
	speech        []byte
	lastText      string
	lastVoice     string
}

func (p *fakeProvider) Chat(ctx context.Context, instructions, input string) (string, error) {
	return "", nil
}

func (p *fakeProvider) Transcribe(ctx context.Context, filename string, r io.Reader) (string, error) {
	return p.transcription, nil
}

func (p *fakeProvider) Speech(ctx context.Context, text, voice string) ([]byte, error) {
	p.lastText = text
	p.lastVoice = voice
	return p.speech, nil
}

func setupAudio(t *testing.T, sttEnabled, ttsEnabled bool) (*gorm.DB, audio.AudioService, *fakeProvider, *models.App) {
	t.Helper()

	db, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{
		Logger: gormlogger.Default.LogMode(gormlogger.Silent),
	})
	require.NoError(t, err)
	sqlDB, err := db.DB()
	require.NoError(t, err)
	sqlDB.SetMaxOpenConns(1)
	require.NoError(t, database.Migrate(db))

	app := &models.App{
		ID:       uuid.New(),
		TenantID: uuid.New(),
		Name:     "voice-bot",
		Mode:     models.AppModeChat,
		Status:   "normal",
		ModelConfig: &models.AppModelConfig{
			ID:                  uuid.New(),
			SpeechToTextEnabled: sttEnabled,
			TextToSpeechEnabled: ttsEnabled,
			TextToSpeechVoice:   "nova",
		},
	}
	app.ModelConfig.AppID = app.ID
	require.NoError(t, db.Create(app).Error)

	provider := &fakeProvider{transcription: "hello world", speech: []byte("mp3")}
	svc := audio.NewService(zap.NewNop(), db, provider)
	return db, svc, provider, app
}

func TestTranscribe_OK(t *testing.T) {
	_, svc, _, app := setupAudio(t, true, false)

	text, err := svc.Transcribe(context.Background(), app, "note.mp3", 1024, strings.NewReader("audio-bytes"))
	require.NoError(t, err)
	assert.Equal(t, "hello world", text)
}

func TestTranscribe_Disabled(t *testing.T) {
	_, svc, _, app := setupAudio(t, false, false)

	_, err := svc.Transcribe(context.Background(), app, "note.mp3", 1024, strings.NewReader("audio-bytes"))
	assert.ErrorIs(t, err, audio.ErrSpeechToTextDisabled)
}

func TestTranscribe_TooLarge(t *testing.T) {
	_, svc, _, app := setupAudio(t, true, false)

	_, err := svc.Transcribe(context.Background(), app, "note.wav", audio.MaxAudioSize+1, strings.NewReader("x"))
	assert.ErrorIs(t, err, audio.ErrAudioTooLarge)
}

func TestTranscribe_UnsupportedType(t *testing.T) {
	_, svc, _, app := setupAudio(t, true, false)

	for _, name := range []string{"doc.pdf", "clip.ogg", "noext"} {
		_, err := svc.Transcribe(context.Background(), app, name, 1024, strings.NewReader("x"))
		assert.ErrorIs(t, err, audio.ErrUnsupportedAudioType, "filename=%s", name)
	}
}

func TestTranscribe_NoFile(t *testing.T) {
	_, svc, _, app := setupAudio(t, true, false)

	_, err := svc.Transcribe(context.Background(), app, "", 0, nil)
	assert.ErrorIs(t, err, audio.ErrNoAudioUploaded)
}

func TestSpeech_FromText(t *testing.T) {
	_, svc, provider, app := setupAudio(t, false, true)

	data, err := svc.Speech(context.Background(), app, nil, "read this aloud", "alloy")
	require.NoError(t, err)
	assert.Equal(t, []byte("mp3"), data)
	assert.Equal(t, "read this aloud", provider.lastText)
	assert.Equal(t, "alloy", provider.lastVoice)
}

func TestSpeech_DefaultVoiceFromConfig(t *testing.T) {
	_, svc, provider, app := setupAudio(t, false, true)

	_, err := svc.Speech(context.Background(), app, nil, "read this aloud", "")
	require.NoError(t, err)
	assert.Equal(t, "nova", provider.lastVoice)
}

func TestSpeech_FromMessageAnswer(t *testing.T) {
	db, svc, provider, app := setupAudio(t, false, true)

	user := models.EndUser{ID: uuid.New(), AppID: app.ID, ExternalID: "u-1", Type: "service_api"}
	require.NoError(t, db.Create(&user).Error)
	conv := models.Conversation{ID: uuid.New(), AppID: app.ID, FromEndUserID: user.ID, FromSource: "api", Status: "normal"}
	require.NoError(t, db.Create(&conv).Error)
	msg := models.Message{
		ID: uuid.New(), AppID: app.ID, ConversationID: conv.ID,
		Query: "q", Answer: "the stored answer", Status: models.MessageStatusNormal,
		FromSource: "api", FromEndUserID: user.ID,
	}
	require.NoError(t, db.Create(&msg).Error)

	_, err := svc.Speech(context.Background(), app, &msg.ID, "ignored", "")
	require.NoError(t, err)
	assert.Equal(t, "the stored answer", provider.lastText)
}

func TestSpeech_MessageNotFound(t *testing.T) {
	_, svc, _, app := setupAudio(t, false, true)

	unknown := uuid.New()
	_, err := svc.Speech(context.Background(), app, &unknown, "", "")
	assert.ErrorIs(t, err, message.ErrMessageNotFound)
}

func TestSpeech_Disabled(t *testing.T) {
	_, svc, _, app := setupAudio(t, false, false)

	_, err := svc.Speech(context.Background(), app, nil, "text", "")
	assert.ErrorIs(t, err, audio.ErrTextToSpeechDisabled)
}
