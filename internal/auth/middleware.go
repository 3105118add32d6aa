package auth

import (
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

// APIKeyHeader carries the publisher API key. A bearer Authorization header is accepted too.
const APIKeyHeader = "X-Api-Key"

// RequireAPIKey rejects requests that do not present a valid API key.
func RequireAPIKey(verifier *KeyVerifier, logger *zap.Logger) gin.HandlerFunc {
	if logger == nil {
		logger = zap.NewNop()
	}
	return func(c *gin.Context) {
		key := c.GetHeader(APIKeyHeader)
		if key == "" {
			key = extractBearerToken(c.GetHeader("Authorization"))
		}
		if key == "" {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "missing api key"})
			return
		}

		if err := verifier.Verify(key); err != nil {
			logger.Warn("rejected api key",
				zap.String("path", c.FullPath()),
				zap.String("client_ip", c.ClientIP()),
			)
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "Invalid API key"})
			return
		}

		c.Next()
	}
}

const staffContextKey = "staffClaims"

// RequireStaffToken rejects requests without a valid support staff access token.
func RequireStaffToken(tokens *TokenService, logger *zap.Logger) gin.HandlerFunc {
	if logger == nil {
		logger = zap.NewNop()
	}
	return func(c *gin.Context) {
		authHeader := c.GetHeader("Authorization")
		if authHeader == "" {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "missing authorization header"})
			return
		}

		token := extractBearerToken(authHeader)
		if token == "" {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "invalid authorization header"})
			return
		}

		claims, err := tokens.ValidateAccessToken(token)
		if err != nil {
			logger.Warn("rejected access token",
				zap.String("path", c.FullPath()),
				zap.String("client_ip", c.ClientIP()),
			)
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "invalid or expired token"})
			return
		}

		c.Set(staffContextKey, claims)
		c.Next()
	}
}

// CurrentStaff returns the staff identity set by RequireStaffToken.
func CurrentStaff(c *gin.Context) (StaffClaims, bool) {
	value, ok := c.Get(staffContextKey)
	if !ok {
		return StaffClaims{}, false
	}
	claims, ok := value.(StaffClaims)
	return claims, ok
}

func extractBearerToken(header string) string {
	if !strings.HasPrefix(strings.ToLower(header), "bearer ") {
		return ""
	}
	return strings.TrimSpace(header[7:])
}
