package api

import (
	"errors"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/parleyhq/parley/internal/app"
	"github.com/parleyhq/parley/pkg/models"
)

const contextKeyApp = "app"

// appTokenAuth returns a middleware that validates the app bearer
// token and stores the resolved app in the request context.
func (s *Server) appTokenAuth() gin.HandlerFunc {
	return func(c *gin.Context) {
		authHeader := c.GetHeader("Authorization")
		if authHeader == "" {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "Authorization header required"})
			return
		}

		token, ok := strings.CutPrefix(authHeader, "Bearer ")
		if !ok || token == "" {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "Invalid authorization format"})
			return
		}

		appModel, err := s.appSvc.GetAppByToken(c.Request.Context(), token)
		if err != nil {
			switch {
			case errors.Is(err, app.ErrInvalidToken):
				c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "Invalid app token"})
			case errors.Is(err, app.ErrAPIDisabled):
				c.AbortWithStatusJSON(http.StatusForbidden, gin.H{"error": "API access disabled for this app"})
			default:
				s.logger.Error("App token validation failed", zap.Error(err))
				c.AbortWithStatusJSON(http.StatusInternalServerError, gin.H{"error": "internal server error"})
			}
			return
		}

		c.Set(contextKeyApp, appModel)
		c.Next()
	}
}

// appFromContext returns the app resolved by appTokenAuth
func appFromContext(c *gin.Context) *models.App {
	value, exists := c.Get(contextKeyApp)
	if !exists {
		return nil
	}
	appModel, ok := value.(*models.App)
	if !ok {
		return nil
	}
	return appModel
}

// resolveEndUser turns the caller-supplied user id into an EndUser
// record, creating it on first sight. When required is set an empty id
// is rejected; otherwise it falls back to the shared anonymous user.
// On failure it writes the error response and returns false.
func (s *Server) resolveEndUser(c *gin.Context, appModel *models.App, externalID string, required bool) (*models.EndUser, bool) {
	if required && externalID == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "user is required"})
		return nil, false
	}

	user, err := s.appSvc.GetOrCreateEndUser(c.Request.Context(), appModel, externalID)
	if err != nil {
		s.logger.Error("Failed to resolve end user", zap.Error(err))
		c.JSON(http.StatusInternalServerError, gin.H{"error": "internal server error"})
		return nil, false
	}
	return user, true
}

// requireChatApp enforces the chat-capable app mode precondition shared
// by the listing and suggestion endpoints.
func (s *Server) requireChatApp(c *gin.Context, appModel *models.App) bool {
	if !models.IsChatMode(appModel.Mode) {
		c.JSON(http.StatusBadRequest, gin.H{"error": "App mode is not a chat app"})
		return false
	}
	return true
}
