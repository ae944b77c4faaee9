package webhook

import (
	"errors"
	"fmt"
	"math"
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
	"github.com/tradevine/journal-api/internal/trades"
	"github.com/tradevine/journal-api/internal/types"
	"github.com/tradevine/journal-api/pkg/response"
)

// CredentialVerifier checks a user's webhook secret
type CredentialVerifier interface {
	Verify(userID, providedSecret string) bool
}

// RateGate is the per-user token bucket consulted after the
// idempotency cache and before any store access
type RateGate interface {
	Allow(userID string) bool
	Remaining(userID string) float64
}

// TradeStore is the slice of the trade store the pipeline mutates
type TradeStore interface {
	InsertTrade(trade *types.Trade) error
	CloseMostRecentOpenTrade(userID, symbol, side string, exitPrice float64, now time.Time) (*types.Trade, error)
}

// Config wires the pipeline's collaborators. Store, Credentials,
// RateLimiter and Cache are required; the rest have defaults.
type Config struct {
	Store       TradeStore
	Credentials CredentialVerifier
	RateLimiter RateGate
	Cache       *ResponseCache

	// CredentialStats optionally exposes collaborator statistics on
	// the diagnostics endpoint
	CredentialStats func() interface{}

	// ExternalID generates trade external ids; overridden in tests
	ExternalID func() string
}

// Service runs the webhook ingestion pipeline: validate, idempotency
// lookup, rate limit, credential check, trade lifecycle mutation,
// response cache write.
type Service struct {
	store      TradeStore
	creds      CredentialVerifier
	gate       RateGate
	cache      *ResponseCache
	credStats  func() interface{}
	externalID func() string
	started    time.Time
}

// NewService creates the pipeline service from its collaborators
func NewService(cfg Config) *Service {
	externalID := cfg.ExternalID
	if externalID == nil {
		externalID = defaultExternalID
	}
	return &Service{
		store:      cfg.Store,
		creds:      cfg.Credentials,
		gate:       cfg.RateLimiter,
		cache:      cfg.Cache,
		credStats:  cfg.CredentialStats,
		externalID: externalID,
		started:    time.Now(),
	}
}

// defaultExternalID builds a trade id from the current time and a
// random suffix, making collisions practically impossible
func defaultExternalID() string {
	return fmt.Sprintf("TV_%d_%s", time.Now().UnixMilli(), uuid.NewString()[:8])
}

// openTrade inserts a new open position for a BUY/SELL action
func (s *Service) openTrade(req *Request) (*types.Trade, error) {
	side := types.SideLong
	if req.Action == ActionSell {
		side = types.SideShort
	}

	trade := &types.Trade{
		ExternalID: s.externalID(),
		UserID:     req.UserID,
		Symbol:     req.Symbol,
		Side:       side,
		EntryPrice: req.Price,
		Quantity:   req.Quantity,
		OpenedAt:   req.OpenedAt(time.Now()),
		StopLoss:   req.StopLoss,
		TakeProfit: req.TakeProfit,
		Strategy:   req.Strategy,
		Notes:      req.Notes,
	}

	if err := s.store.InsertTrade(trade); err != nil {
		return nil, err
	}
	return trade, nil
}

// closeTrade closes the most recently opened still-open position for
// the symbol and side (LIFO matching)
func (s *Service) closeTrade(req *Request) (*types.Trade, error) {
	side := types.SideLong
	if req.Action == ActionCloseShort {
		side = types.SideShort
	}
	return s.store.CloseMostRecentOpenTrade(req.UserID, req.Symbol, side, req.Price, time.Now())
}

func (s *Service) remainingTokens(userID string) int {
	return int(math.Floor(s.gate.Remaining(userID)))
}

// GinHandlers contains HTTP handlers for the webhook endpoints
type GinHandlers struct {
	service *Service
}

// NewGinHandlers creates a new set of HTTP handlers for the webhook endpoints
func NewGinHandlers(service *Service) *GinHandlers {
	return &GinHandlers{
		service: service,
	}
}

// ReceiveHandler handles POST requests from TradingView alerts.
// Stage order is deliberate: validation happens before any I/O, an
// idempotency hit short-circuits the rate limiter and all store
// access, and a rate-limit rejection never reaches the verifier.
func (h *GinHandlers) ReceiveHandler() gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		s := h.service

		var raw map[string]interface{}
		if err := c.ShouldBindJSON(&raw); err != nil || raw == nil {
			response.BadRequest(c, InvalidPayloadMessage)
			return
		}

		req, ok := ParseRequest(raw)
		if !ok {
			response.BadRequest(c, InvalidPayloadMessage)
			return
		}

		logger := log.With().
			Str("component", "webhook").
			Str("user_id", req.UserID).
			Str("action", req.Action).
			Str("symbol", req.Symbol).
			Logger()

		key := s.cache.Key(req)
		if cached, hit := s.cache.Get(key); hit {
			logger.Debug().Str("idempotency_key", key).Msg("duplicate delivery served from cache")
			c.Header("X-Cache", "HIT")
			c.Header("X-Idempotency-Key", key)
			c.JSON(http.StatusOK, cached)
			return
		}

		if !s.gate.Allow(req.UserID) {
			remaining := s.remainingTokens(req.UserID)
			logger.Warn().Int("remaining", remaining).Msg("webhook rate limited")
			c.Header("Retry-After", "60")
			c.Header("X-RateLimit-Remaining", strconv.Itoa(remaining))
			response.TooManyRequests(c, "Rate limit exceeded. Please try again later.", gin.H{
				"remaining": remaining,
			})
			return
		}

		if !s.creds.Verify(req.UserID, req.WebhookSecret) {
			logger.Warn().Msg("webhook secret verification failed")
			response.Unauthorized(c, "Invalid webhook secret. Please regenerate your webhook URL.")
			return
		}

		var (
			trade *types.Trade
			err   error
		)
		if req.IsOpenAction() {
			trade, err = s.openTrade(req)
		} else {
			trade, err = s.closeTrade(req)
		}
		if err != nil {
			writeLifecycleError(c, &logger, req, err)
			return
		}

		verb := "opened"
		if !req.IsOpenAction() {
			verb = "closed"
		}

		resp := Response{
			Success:          true,
			TradeID:          trade.ExternalID,
			Message:          fmt.Sprintf("%s position %s for %s", trade.Side, verb, trade.Symbol),
			ProcessingTimeMs: time.Since(start).Milliseconds(),
			RateLimit: &RateLimitInfo{
				Remaining: s.remainingTokens(req.UserID),
			},
		}

		// Only successful outcomes are cached; a failed attempt must
		// be retryable
		s.cache.Put(key, resp)

		logger.Info().
			Str("trade_id", trade.ExternalID).
			Int64("processing_time_ms", resp.ProcessingTimeMs).
			Msgf("trade %s", verb)

		c.Header("X-Cache", "MISS")
		c.JSON(http.StatusOK, resp)
	}
}

// writeLifecycleError maps typed store failures to HTTP statuses
func writeLifecycleError(c *gin.Context, logger *zerolog.Logger, req *Request, err error) {
	switch {
	case errors.Is(err, trades.ErrDuplicateTrade):
		response.Conflict(c, "Duplicate trade")
	case errors.Is(err, trades.ErrInvalidUser):
		response.InvalidUser(c, "Invalid user")
	case errors.Is(err, trades.ErrNoOpenTrade):
		side := types.SideLong
		if req.Action == ActionCloseShort {
			side = types.SideShort
		}
		response.TradeNotFound(c, fmt.Sprintf("No open %s trade found for %s", side, req.Symbol))
	default:
		logger.Error().Err(err).Msg("trade store failure")
		response.StoreFailure(c, err.Error())
	}
}

// HealthHandler handles GET requests for pipeline diagnostics.
// Read-only: reports status and cache statistics without touching
// pipeline state.
func (h *GinHandlers) HealthHandler() gin.HandlerFunc {
	return func(c *gin.Context) {
		s := h.service

		body := gin.H{
			"status":        "ok",
			"uptimeSeconds": int64(time.Since(s.started).Seconds()),
			"responseCache": gin.H{
				"entries": s.cache.Size(),
				"ttlMs":   s.cache.TTL().Milliseconds(),
			},
		}
		if s.credStats != nil {
			body["credentialCache"] = s.credStats()
		} else {
			body["credentialCache"] = "unavailable"
		}

		c.JSON(http.StatusOK, body)
	}
}
