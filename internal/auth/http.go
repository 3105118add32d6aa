package auth

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/abduss/artifactdrive/internal/httpx"
)

const loginMaxBody = 4 << 10

// RegisterRoutes mounts the staff login endpoint under /admin.
func RegisterRoutes(router *gin.RouterGroup, tokens *TokenService, logger *zap.Logger) {
	if logger == nil {
		logger = zap.NewNop()
	}
	handler := &httpHandler{tokens: tokens, logger: logger.With(zap.String("component", "auth"))}
	router.POST("/admin/login", httpx.LimitBody(loginMaxBody), handler.login)
}

type httpHandler struct {
	tokens *TokenService
	logger *zap.Logger
}

type loginRequest struct {
	Email    string `json:"email" binding:"required,email"`
	Password string `json:"password" binding:"required,max=72"`
}

func (h *httpHandler) login(c *gin.Context) {
	var req loginRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		if httpx.BodyTooLarge(c, err) {
			return
		}
		c.JSON(http.StatusBadRequest, gin.H{"error": "email and password are required"})
		return
	}

	token, err := h.tokens.Login(LoginInput{Email: req.Email, Password: req.Password})
	if err != nil {
		if errors.Is(err, ErrInvalidCredentials) {
			h.logger.Warn("staff login failed", zap.String("client_ip", c.ClientIP()))
			c.JSON(http.StatusUnauthorized, gin.H{"error": "Invalid credentials"})
			return
		}
		h.logger.Error("issue access token", zap.Error(err))
		c.JSON(http.StatusInternalServerError, gin.H{"error": "internal error"})
		return
	}

	c.JSON(http.StatusOK, token)
}
