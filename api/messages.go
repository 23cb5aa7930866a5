package api

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/parleyhq/parley/internal/conversation"
	"github.com/parleyhq/parley/internal/message"
	"github.com/parleyhq/parley/pkg/models"
)

// ListMessagesRequest represents message listing query parameters
type ListMessagesRequest struct {
	ConversationID string `form:"conversation_id" binding:"required,uuid"`
	FirstID        string `form:"first_id" binding:"omitempty,uuid"`
	Limit          int    `form:"limit,default=20" binding:"min=1,max=100"`
	User           string `form:"user"`
}

// CreateFeedbackRequest represents a feedback submission body
type CreateFeedbackRequest struct {
	Rating  *string `json:"rating" binding:"omitempty,oneof=like dislike"`
	Content string  `json:"content" binding:"omitempty,max=4000"`
	User    string  `json:"user"`
}

// ListAppFeedbacksRequest represents app feedback listing parameters
type ListAppFeedbacksRequest struct {
	Page  int `form:"page,default=1" binding:"min=1"`
	Limit int `form:"limit,default=20" binding:"min=1,max=101"`
}

// listMessages handles conversation history listing
// @Summary List conversation messages
// @Description List messages of a conversation, newest first, with cursor pagination
// @Tags Messages
// @Produce json
// @Security BearerAuth
// @Param conversation_id query string true "Conversation ID"
// @Param first_id query string false "Cursor: list messages older than this one"
// @Param limit query int false "Page size (1-100)" default(20)
// @Success 200 {object} MessagePageResponse
// @Failure 400 {object} map[string]interface{} "Invalid parameters or not a chat app"
// @Failure 404 {object} map[string]interface{} "Conversation or cursor not found"
// @Router /v1/messages [get]
func (s *Server) listMessages(c *gin.Context) {
	appModel := appFromContext(c)
	if !s.requireChatApp(c, appModel) {
		return
	}

	var req ListMessagesRequest
	if err := c.ShouldBindQuery(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request parameters", "detail": err.Error()})
		return
	}

	user, ok := s.resolveEndUser(c, appModel, req.User, false)
	if !ok {
		return
	}

	conversationID := uuid.MustParse(req.ConversationID)
	var firstID *uuid.UUID
	if req.FirstID != "" {
		id := uuid.MustParse(req.FirstID)
		firstID = &id
	}

	page, err := s.messageSvc.PaginateByFirstID(c.Request.Context(), appModel, user, conversationID, firstID, req.Limit)
	if err != nil {
		switch {
		case errors.Is(err, conversation.ErrConversationNotFound):
			c.JSON(http.StatusNotFound, gin.H{"error": "Conversation Not Exists."})
		case errors.Is(err, message.ErrFirstMessageNotFound):
			c.JSON(http.StatusNotFound, gin.H{"error": "First Message Not Exists."})
		default:
			s.logger.Error("Message listing failed", zap.Error(err))
			c.JSON(http.StatusInternalServerError, gin.H{"error": "internal server error"})
		}
		return
	}

	c.JSON(http.StatusOK, s.marshalMessagePage(page))
}

// createMessageFeedback handles feedback submission on a message
// @Summary Submit message feedback
// @Description Record, update or clear an end user's rating of a message
// @Tags Messages
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param message_id path string true "Message ID"
// @Param request body CreateFeedbackRequest true "Feedback"
// @Success 200 {object} map[string]interface{} "result: success"
// @Failure 404 {object} map[string]interface{} "Message not found"
// @Router /v1/messages/{message_id}/feedbacks [post]
func (s *Server) createMessageFeedback(c *gin.Context) {
	appModel := appFromContext(c)

	messageID, err := uuid.Parse(c.Param("message_id"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid message id"})
		return
	}

	var req CreateFeedbackRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request parameters", "detail": err.Error()})
		return
	}

	user, ok := s.resolveEndUser(c, appModel, req.User, true)
	if !ok {
		return
	}

	err = s.messageSvc.CreateFeedback(c.Request.Context(), appModel, user, messageID, req.Rating, req.Content)
	if err != nil {
		switch {
		case errors.Is(err, message.ErrMessageNotFound):
			c.JSON(http.StatusNotFound, gin.H{"error": "Message Not Exists."})
		case errors.Is(err, message.ErrInvalidRating):
			c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		default:
			s.logger.Error("Feedback creation failed", zap.Error(err))
			c.JSON(http.StatusInternalServerError, gin.H{"error": "internal server error"})
		}
		return
	}

	c.JSON(http.StatusOK, gin.H{"result": "success"})
}

// listAppFeedbacks handles bulk feedback listing for the app
// @Summary List app feedbacks
// @Description List all feedbacks recorded for the app, newest first
// @Tags Messages
// @Produce json
// @Security BearerAuth
// @Param page query int false "Page number" default(1)
// @Param limit query int false "Page size (1-101)" default(20)
// @Success 200 {object} map[string]interface{} "data: feedbacks"
// @Router /v1/app/feedbacks [get]
func (s *Server) listAppFeedbacks(c *gin.Context) {
	appModel := appFromContext(c)

	var req ListAppFeedbacksRequest
	if err := c.ShouldBindQuery(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request parameters", "detail": err.Error()})
		return
	}

	feedbacks, err := s.messageSvc.ListAppFeedbacks(c.Request.Context(), appModel, req.Page, req.Limit)
	if err != nil {
		s.logger.Error("App feedback listing failed", zap.Error(err))
		c.JSON(http.StatusInternalServerError, gin.H{"error": "internal server error"})
		return
	}

	// Raw passthrough of the stored rows, no projection
	if feedbacks == nil {
		feedbacks = []models.MessageFeedback{}
	}
	c.JSON(http.StatusOK, gin.H{"data": feedbacks})
}

// suggestedQuestions handles follow-up question generation
// @Summary Suggested follow-up questions
// @Description Generate suggested follow-up questions after an answer
// @Tags Messages
// @Produce json
// @Security BearerAuth
// @Param message_id path string true "Message ID"
// @Param user query string true "End user ID"
// @Success 200 {object} map[string]interface{} "result: success, data: questions"
// @Failure 400 {object} map[string]interface{} "Suggestions disabled or not a chat app"
// @Failure 404 {object} map[string]interface{} "Message not found"
// @Router /v1/messages/{message_id}/suggested [get]
func (s *Server) suggestedQuestions(c *gin.Context) {
	appModel := appFromContext(c)
	if !s.requireChatApp(c, appModel) {
		return
	}

	messageID, err := uuid.Parse(c.Param("message_id"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid message id"})
		return
	}

	user, ok := s.resolveEndUser(c, appModel, c.Query("user"), true)
	if !ok {
		return
	}

	questions, err := s.messageSvc.SuggestedQuestions(c.Request.Context(), appModel, user, messageID, models.InvokeFromServiceAPI)
	if err != nil {
		switch {
		case errors.Is(err, message.ErrMessageNotFound):
			c.JSON(http.StatusNotFound, gin.H{"error": "Message Not Exists."})
		case errors.Is(err, message.ErrSuggestedQuestionsDisabled):
			c.JSON(http.StatusBadRequest, gin.H{"error": "Suggested Questions Is Disabled."})
		default:
			s.logger.Error("Suggested question generation failed",
				zap.String("message_id", messageID.String()), zap.Error(err))
			c.JSON(http.StatusInternalServerError, gin.H{"error": "internal server error"})
		}
		return
	}

	if questions == nil {
		questions = []string{}
	}
	c.JSON(http.StatusOK, gin.H{"result": "success", "data": questions})
}
