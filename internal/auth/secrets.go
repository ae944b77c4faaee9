package auth

import (
	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog/log"
	"github.com/tradevine/journal-api/pkg/response"
)

// SecretHandlers contains HTTP handlers for webhook secret management
type SecretHandlers struct {
	verifier *Verifier
}

// NewSecretHandlers creates handlers over the given verifier
func NewSecretHandlers(verifier *Verifier) *SecretHandlers {
	return &SecretHandlers{
		verifier: verifier,
	}
}

// RotateSecretHandler handles POST requests to generate or rotate the
// user's webhook secret. Requires a valid JWT token. The full secret
// is only returned here, at generation time.
func (h *SecretHandlers) RotateSecretHandler() gin.HandlerFunc {
	return func(c *gin.Context) {
		userID := requireUserID(c)
		if userID == "" {
			return
		}

		secret, err := h.verifier.Rotate(userID)
		if err != nil {
			log.Error().Err(err).Str("user_id", userID).Msg("failed to rotate webhook secret")
			response.StoreFailure(c, "Failed to rotate webhook secret")
			return
		}

		response.OK(c, "webhook secret rotated", gin.H{
			"user_id": userID,
			"secret":  secret,
		})
	}
}

// GetSecretHandler handles GET requests for the user's webhook secret
// in masked form. Requires a valid JWT token.
func (h *SecretHandlers) GetSecretHandler() gin.HandlerFunc {
	return func(c *gin.Context) {
		userID := requireUserID(c)
		if userID == "" {
			return
		}

		secret, err := h.verifier.CurrentSecret(userID)
		if err != nil {
			response.StoreFailure(c, "Failed to load webhook secret")
			return
		}
		if secret == "" {
			response.NotFound(c, "No webhook secret generated yet")
			return
		}

		response.OK(c, "webhook secret retrieved", gin.H{
			"user_id": userID,
			"secret":  maskSecret(secret),
		})
	}
}

// requireUserID pulls the authenticated user ID from the request
// context, writing a 401 and returning empty on failure
func requireUserID(c *gin.Context) string {
	claims, exists := c.Get("claims")
	if !exists {
		response.Unauthorized(c, "Missing authentication claims")
		return ""
	}

	userID := GetUserID(claims)
	if userID == "" {
		response.Unauthorized(c, "Invalid user ID in token")
	}
	return userID
}

func maskSecret(secret string) string {
	if len(secret) <= 8 {
		return "********"
	}
	return secret[:8] + "************"
}
