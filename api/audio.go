package api

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/parleyhq/parley/internal/audio"
	"github.com/parleyhq/parley/internal/message"
)

// TextToAudioRequest represents a speech synthesis body
type TextToAudioRequest struct {
	MessageID string `json:"message_id" binding:"omitempty,uuid"`
	Text      string `json:"text"`
	Voice     string `json:"voice" binding:"omitempty,max=64"`
	User      string `json:"user"`
}

// audioToText handles speech-to-text uploads
// @Summary Transcribe audio
// @Description Convert an uploaded audio file to text
// @Tags Audio
// @Accept multipart/form-data
// @Produce json
// @Security BearerAuth
// @Param file formData file true "Audio file (mp3, m4a, wav, webm, amr, mpga, mp4; max 30MB)"
// @Success 200 {object} map[string]interface{} "text: transcription"
// @Router /v1/audio-to-text [post]
func (s *Server) audioToText(c *gin.Context) {
	appModel := appFromContext(c)

	if _, ok := s.resolveEndUser(c, appModel, c.PostForm("user"), false); !ok {
		return
	}

	fileHeader, err := c.FormFile("file")
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "no audio uploaded"})
		return
	}

	file, err := fileHeader.Open()
	if err != nil {
		s.logger.Error("Failed to open uploaded audio", zap.Error(err))
		c.JSON(http.StatusInternalServerError, gin.H{"error": "internal server error"})
		return
	}
	defer file.Close()

	text, err := s.audioSvc.Transcribe(c.Request.Context(), appModel, fileHeader.Filename, fileHeader.Size, file)
	if err != nil {
		switch {
		case errors.Is(err, audio.ErrSpeechToTextDisabled),
			errors.Is(err, audio.ErrNoAudioUploaded),
			errors.Is(err, audio.ErrAudioTooLarge),
			errors.Is(err, audio.ErrUnsupportedAudioType):
			c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		default:
			s.logger.Error("Audio transcription failed", zap.Error(err))
			c.JSON(http.StatusInternalServerError, gin.H{"error": "internal server error"})
		}
		return
	}

	c.JSON(http.StatusOK, gin.H{"text": text})
}

// textToAudio handles speech synthesis
// @Summary Synthesize speech
// @Description Convert text, or an existing message answer, to spoken audio
// @Tags Audio
// @Accept json
// @Produce audio/mpeg
// @Security BearerAuth
// @Param request body TextToAudioRequest true "Synthesis request"
// @Success 200 {file} binary "MP3 audio"
// @Router /v1/text-to-audio [post]
func (s *Server) textToAudio(c *gin.Context) {
	appModel := appFromContext(c)

	var req TextToAudioRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request parameters", "detail": err.Error()})
		return
	}

	if _, ok := s.resolveEndUser(c, appModel, req.User, false); !ok {
		return
	}

	var messageID *uuid.UUID
	if req.MessageID != "" {
		id := uuid.MustParse(req.MessageID)
		messageID = &id
	}

	data, err := s.audioSvc.Speech(c.Request.Context(), appModel, messageID, req.Text, req.Voice)
	if err != nil {
		switch {
		case errors.Is(err, message.ErrMessageNotFound):
			c.JSON(http.StatusNotFound, gin.H{"error": "Message Not Exists."})
		case errors.Is(err, audio.ErrTextToSpeechDisabled):
			c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		default:
			s.logger.Error("Speech synthesis failed", zap.Error(err))
			c.JSON(http.StatusInternalServerError, gin.H{"error": "internal server error"})
		}
		return
	}

	c.Data(http.StatusOK, "audio/mpeg", data)
}
