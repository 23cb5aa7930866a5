// Package audio implements speech-to-text and text-to-speech for the
// service API.
package audio

import (
	"context"
	"errors"
	"fmt"
	"io"
	"path/filepath"
	"strings"

	"github.com/google/uuid"
	"go.uber.org/zap"
	"gorm.io/gorm"

	"github.com/parleyhq/parley/internal/llm"
	"github.com/parleyhq/parley/internal/message"
	"github.com/parleyhq/parley/pkg/metrics"
	"github.com/parleyhq/parley/pkg/models"
)

// MaxAudioSize bounds uploaded audio files (30 MB)
const MaxAudioSize = 30 * 1024 * 1024

// audioExtensions is the upload whitelist
var audioExtensions = map[string]bool{
	"mp3":  true,
	"m4a":  true,
	"wav":  true,
	"webm": true,
	"amr":  true,
	"mpga": true,
	"mp4":  true,
}

// Audio service errors
var (
	ErrNoAudioUploaded      = errors.New("no audio uploaded")
	ErrAudioTooLarge        = fmt.Errorf("audio size larger than %d mb", MaxAudioSize/1024/1024)
	ErrUnsupportedAudioType = errors.New("unsupported audio type")
	ErrSpeechToTextDisabled = errors.New("speech to text is not enabled")
	ErrTextToSpeechDisabled = errors.New("text to speech is not enabled")
)

// AudioService defines speech operations for the service API
type AudioService interface {
	Transcribe(ctx context.Context, app *models.App, filename string, size int64, audio io.Reader) (string, error)
	Speech(ctx context.Context, app *models.App, messageID *uuid.UUID, text, voice string) ([]byte, error)
}

// Service implements AudioService
type Service struct {
	logger   *zap.Logger
	db       *gorm.DB
	provider llm.Provider
}

// NewService creates a new AudioService
func NewService(logger *zap.Logger, db *gorm.DB, provider llm.Provider) AudioService {
	return &Service{logger: logger, db: db, provider: provider}
}

// Transcribe converts an uploaded audio file to text. The app must
// have speech-to-text enabled.
func (s *Service) Transcribe(ctx context.Context, app *models.App, filename string, size int64, audio io.Reader) (string, error) {
	cfg, err := s.modelConfig(ctx, app)
	if err != nil {
		return "", err
	}
	if cfg == nil || !cfg.SpeechToTextEnabled {
		return "", ErrSpeechToTextDisabled
	}

	if audio == nil || filename == "" {
		return "", ErrNoAudioUploaded
	}
	if size > MaxAudioSize {
		return "", ErrAudioTooLarge
	}

	ext := strings.TrimPrefix(strings.ToLower(filepath.Ext(filename)), ".")
	if !audioExtensions[ext] {
		return "", ErrUnsupportedAudioType
	}

	text, err := s.provider.Transcribe(ctx, filename, io.LimitReader(audio, MaxAudioSize))
	if err != nil {
		return "", err
	}

	metrics.AudioTranscriptions.Inc()
	return text, nil
}

// Speech synthesizes audio for a text, or for the answer of an
// existing message when message_id is given. The app must have
// text-to-speech enabled.
func (s *Service) Speech(ctx context.Context, app *models.App, messageID *uuid.UUID, text, voice string) ([]byte, error) {
	cfg, err := s.modelConfig(ctx, app)
	if err != nil {
		return nil, err
	}
	if cfg == nil || !cfg.TextToSpeechEnabled {
		return nil, ErrTextToSpeechDisabled
	}

	if messageID != nil {
		var msg models.Message
		err := s.db.WithContext(ctx).
			Where("id = ? AND app_id = ?", *messageID, app.ID).
			First(&msg).Error
		if err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return nil, message.ErrMessageNotFound
			}
			return nil, err
		}
		text = msg.Answer
	}
	if strings.TrimSpace(text) == "" {
		return nil, errors.New("text is empty")
	}

	if voice == "" {
		voice = cfg.TextToSpeechVoice
	}

	return s.provider.Speech(ctx, text, voice)
}

func (s *Service) modelConfig(ctx context.Context, app *models.App) (*models.AppModelConfig, error) {
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
