package trades

import (
	"strconv"

	"github.com/gin-gonic/gin"
	"github.com/tradevine/journal-api/internal/auth"
	"github.com/tradevine/journal-api/pkg/response"
	"gorm.io/gorm"
)

const defaultListLimit = 50

// Service exposes the journal read surface over the trade store
type Service struct {
	db *Database
}

// NewService creates a new trades service with the given database connection
func NewService(gormDB *gorm.DB) *Service {
	return &Service{
		db: NewDatabase(gormDB),
	}
}

// Database returns the underlying store, shared with the webhook pipeline
func (s *Service) Database() *Database {
	return s.db
}

// GinHandlers contains HTTP handlers for the journal endpoints
type GinHandlers struct {
	service *Service
}

// NewGinHandlers creates a new set of HTTP handlers for journal endpoints
func NewGinHandlers(service *Service) *GinHandlers {
	return &GinHandlers{
		service: service,
	}
}

// ListTradesHandler handles GET requests for the user's trade journal
// Requires a valid JWT token
// Query parameters: status (open|closed), limit
func (h *GinHandlers) ListTradesHandler() gin.HandlerFunc {
	return func(c *gin.Context) {
		claims, exists := c.Get("claims")
		if !exists {
			response.Unauthorized(c, "Missing authentication claims")
			return
		}

		userID := auth.GetUserID(claims)
		if userID == "" {
			response.Unauthorized(c, "Invalid user ID in token")
			return
		}

		status := c.Query("status")
		if status != "" && status != "open" && status != "closed" {
			response.BadRequest(c, "status must be open or closed")
			return
		}

		limit := defaultListLimit
		if raw := c.Query("limit"); raw != "" {
			parsed, err := strconv.Atoi(raw)
			if err != nil || parsed < 1 {
				response.BadRequest(c, "limit must be a positive integer")
				return
			}
			limit = parsed
		}

		result, err := h.service.db.ListTrades(userID, status, limit)
		if err != nil {
			response.StoreFailure(c, "Failed to list trades")
			return
		}

		response.OK(c, "trades retrieved", gin.H{
			"trades": result,
			"count":  len(result),
		})
	}
}
