package main

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"math"
	"net/http"
	"os"
	"sort"
	"time"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
)

const (
	serverAddress = "http://localhost:8080"
	apiKey        = "test-api-key"
	apiSecret     = "test-api-secret"
	burstSize     = 25
)

var symbols = []string{"AAPL", "GOOGL", "MSFT", "AMZN", "META"}

// init configures the logger for the simulation with pretty printing and timestamp
func init() {
	output := zerolog.ConsoleWriter{
		Out:        os.Stdout,
		TimeFormat: time.RFC3339,
	}
	log.Logger = zerolog.New(output).With().Timestamp().Logger()
}

// routeStats tracks performance statistics for an API endpoint
type routeStats struct {
	name       string
	durations  []time.Duration
	totalCalls int
	failures   int
}

// addDuration records a new duration measurement for the route
func (rs *routeStats) addDuration(d time.Duration) {
	rs.durations = append(rs.durations, d)
	rs.totalCalls++
}

// calculate computes performance statistics from recorded durations
func (rs *routeStats) calculate() (min, max, mean, median, p95 time.Duration) {
	if len(rs.durations) == 0 {
		return 0, 0, 0, 0, 0
	}

	sort.Slice(rs.durations, func(i, j int) bool {
		return rs.durations[i] < rs.durations[j]
	})

	min = rs.durations[0]
	max = rs.durations[len(rs.durations)-1]

	var sum time.Duration
	for _, d := range rs.durations {
		sum += d
	}
	mean = sum / time.Duration(len(rs.durations))
	median = rs.durations[len(rs.durations)/2]

	p95idx := int(math.Ceil(float64(len(rs.durations))*0.95)) - 1
	p95 = rs.durations[p95idx]

	return
}

// simulationClient handles HTTP communication with the webhook API
type simulationClient struct {
	baseURL       string
	authToken     string
	webhookSecret string
	client        *http.Client
	stats         map[string]*routeStats
}

// newSimulationClient authenticates against the management API and
// rotates a fresh webhook secret to use for the scenarios
func newSimulationClient() (*simulationClient, error) {
	sc := &simulationClient{
		baseURL: serverAddress,
		client:  &http.Client{Timeout: 10 * time.Second},
		stats: map[string]*routeStats{
			"auth":    {name: "Authentication"},
			"rotate":  {name: "Rotate Secret"},
			"webhook": {name: "Webhook Delivery"},
			"health":  {name: "Diagnostics"},
		},
	}

	token, err := sc.authenticate()
	if err != nil {
		return nil, fmt.Errorf("failed to authenticate: %w", err)
	}
	sc.authToken = token

	secret, err := sc.rotateSecret()
	if err != nil {
		return nil, fmt.Errorf("failed to rotate webhook secret: %w", err)
	}
	sc.webhookSecret = secret

	return sc, nil
}

// authenticate performs API authentication and returns a JWT token
func (sc *simulationClient) authenticate() (string, error) {
	start := time.Now()
	body, _ := json.Marshal(map[string]string{
		"api_key":    apiKey,
		"api_secret": apiSecret,
	})

	resp, err := sc.client.Post(sc.baseURL+"/api/v1/auth/token", "application/json", bytes.NewReader(body))
	if err != nil {
		sc.stats["auth"].failures++
		return "", err
	}
	defer resp.Body.Close()
	sc.stats["auth"].addDuration(time.Since(start))

	var envelope struct {
		Success bool `json:"success"`
		Details struct {
			Token string `json:"jwt_token"`
		} `json:"details"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&envelope); err != nil {
		return "", err
	}
	if !envelope.Success || envelope.Details.Token == "" {
		return "", fmt.Errorf("authentication rejected with status %d", resp.StatusCode)
	}
	return envelope.Details.Token, nil
}

// rotateSecret generates a fresh webhook secret via the management API
func (sc *simulationClient) rotateSecret() (string, error) {
	start := time.Now()
	req, _ := http.NewRequest(http.MethodPost, sc.baseURL+"/api/v1/webhook-secret", nil)
	req.Header.Set("Authorization", "Bearer "+sc.authToken)

	resp, err := sc.client.Do(req)
	if err != nil {
		sc.stats["rotate"].failures++
		return "", err
	}
	defer resp.Body.Close()
	sc.stats["rotate"].addDuration(time.Since(start))

	var envelope struct {
		Success bool `json:"success"`
		Details struct {
			Secret string `json:"secret"`
		} `json:"details"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&envelope); err != nil {
		return "", err
	}
	if !envelope.Success {
		return "", fmt.Errorf("secret rotation rejected with status %d", resp.StatusCode)
	}
	return envelope.Details.Secret, nil
}

type webhookResult struct {
	status    int
	cache     string
	body      map[string]interface{}
	retryHdr  string
	remaining string
}

// sendWebhook posts an alert payload and returns the observed outcome
func (sc *simulationClient) sendWebhook(payload map[string]interface{}) (*webhookResult, error) {
	start := time.Now()
	body, _ := json.Marshal(payload)

	resp, err := sc.client.Post(sc.baseURL+"/webhook", "application/json", bytes.NewReader(body))
	if err != nil {
		sc.stats["webhook"].failures++
		return nil, err
	}
	defer resp.Body.Close()
	sc.stats["webhook"].addDuration(time.Since(start))

	raw, _ := io.ReadAll(resp.Body)
	var decoded map[string]interface{}
	_ = json.Unmarshal(raw, &decoded)

	return &webhookResult{
		status:    resp.StatusCode,
		cache:     resp.Header.Get("X-Cache"),
		body:      decoded,
		retryHdr:  resp.Header.Get("Retry-After"),
		remaining: resp.Header.Get("X-RateLimit-Remaining"),
	}, nil
}

func (sc *simulationClient) payload(action, symbol string, price, quantity float64) map[string]interface{} {
	return map[string]interface{}{
		"webhookSecret": sc.webhookSecret,
		"userId":        apiKey,
		"action":        action,
		"symbol":        symbol,
		"price":         price,
		"quantity":      quantity,
		"strategy":      "simulation",
		"timestamp":     time.Now().UTC().Format(time.RFC3339),
	}
}

// expect logs a scenario outcome against its expectation
func expect(scenario string, got, want int) bool {
	if got == want {
		log.Info().Str("scenario", scenario).Int("status", got).Msg("OK")
		return true
	}
	log.Error().Str("scenario", scenario).Int("status", got).Int("expected", want).Msg("MISMATCH")
	return false
}

func main() {
	log.Info().Msg("Starting webhook ingestion simulation")

	sc, err := newSimulationClient()
	if err != nil {
		log.Fatal().Err(err).Msg("failed to initialize simulation client")
	}

	passed, failed := 0, 0
	check := func(ok bool) {
		if ok {
			passed++
		} else {
			failed++
		}
	}

	// Scenario 1: open a position
	open := sc.payload("BUY", symbols[0], 187.5, 10)
	res, err := sc.sendWebhook(open)
	if err != nil {
		log.Fatal().Err(err).Msg("webhook delivery failed")
	}
	check(expect("open BUY", res.status, http.StatusOK))

	// Scenario 2: duplicate delivery inside the TTL window is replayed
	// from cache
	res, _ = sc.sendWebhook(open)
	check(expect("duplicate delivery", res.status, http.StatusOK))
	if res.cache != "HIT" {
		log.Error().Str("x_cache", res.cache).Msg("expected cache HIT on duplicate delivery")
		failed++
	} else {
		log.Info().Msg("duplicate delivery served from cache")
		passed++
	}

	// Scenario 3: same logical trade after the TTL elapses is fresh
	time.Sleep(5500 * time.Millisecond)
	res, _ = sc.sendWebhook(open)
	check(expect("delivery after TTL", res.status, http.StatusOK))
	if res.cache != "MISS" {
		log.Error().Str("x_cache", res.cache).Msg("expected cache MISS after TTL")
		failed++
	} else {
		passed++
	}

	// Scenario 4: close the most recent open position
	res, _ = sc.sendWebhook(sc.payload("CLOSE_LONG", symbols[0], 190.25, 10))
	check(expect("close LONG", res.status, http.StatusOK))

	// Scenario 5: bad payloads are rejected before any processing
	res, _ = sc.sendWebhook(map[string]interface{}{
		"webhookSecret": sc.webhookSecret,
		"userId":        apiKey,
		"action":        "BUY",
		"symbol":        symbols[1],
		"price":         -5,
		"quantity":      1,
	})
	check(expect("negative price", res.status, http.StatusBadRequest))

	// Scenario 6: wrong secret
	bad := sc.payload("BUY", symbols[2], 98.4, 2)
	bad["webhookSecret"] = "not-the-secret"
	res, _ = sc.sendWebhook(bad)
	check(expect("wrong secret", res.status, http.StatusUnauthorized))

	// Scenario 7: close with no matching open position
	res, _ = sc.sendWebhook(sc.payload("CLOSE_SHORT", symbols[3], 130.0, 1))
	check(expect("close without position", res.status, http.StatusNotFound))

	// Scenario 8: burst past the rate limit; distinct prices defeat the
	// idempotency cache so every delivery reaches the limiter
	limited := false
	for i := 0; i < burstSize; i++ {
		res, err = sc.sendWebhook(sc.payload("BUY", symbols[4], 300+float64(i), 1))
		if err != nil {
			continue
		}
		if res.status == http.StatusTooManyRequests {
			limited = true
			log.Info().
				Str("retry_after", res.retryHdr).
				Str("remaining", res.remaining).
				Int("deliveries", i+1).
				Msg("rate limit engaged")
			break
		}
	}
	if limited {
		passed++
	} else {
		log.Error().Int("deliveries", burstSize).Msg("burst never hit the rate limit")
		failed++
	}

	// Diagnostics snapshot
	start := time.Now()
	resp, err := sc.client.Get(sc.baseURL + "/webhook")
	if err == nil {
		sc.stats["health"].addDuration(time.Since(start))
		var health map[string]interface{}
		_ = json.NewDecoder(resp.Body).Decode(&health)
		resp.Body.Close()
		log.Info().Interface("health", health).Msg("diagnostics")
	}

	printStats(sc)

	log.Info().Int("passed", passed).Int("failed", failed).Msg("Simulation complete")
	if failed > 0 {
		os.Exit(1)
	}
}

// printStats displays performance statistics for all routes
func printStats(sc *simulationClient) {
	fmt.Println("\n=== Route Performance ===")
	for _, rs := range sc.stats {
		if rs.totalCalls == 0 {
			continue
		}
		min, max, mean, median, p95 := rs.calculate()
		fmt.Printf("%-18s calls=%-4d failures=%-3d min=%-10v max=%-10v mean=%-10v median=%-10v p95=%v\n",
			rs.name, rs.totalCalls, rs.failures, min, max, mean, median, p95)
	}
}
