package middleware

import (
	"bytes"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog"
	zlog "github.com/rs/zerolog/log"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRecoveryPreservesEnvelope(t *testing.T) {
	gin.SetMode(gin.TestMode)

	var logged bytes.Buffer
	original := zlog.Logger
	zlog.Logger = zerolog.New(&logged)
	t.Cleanup(func() { zlog.Logger = original })

	router := gin.New()
	router.Use(Recovery())
	router.GET("/boom", func(c *gin.Context) {
		panic("kaboom")
	})

	w := httptest.NewRecorder()
	req, err := http.NewRequest(http.MethodGet, "/boom", nil)
	require.NoError(t, err)
	router.ServeHTTP(w, req)

	assert.Equal(t, http.StatusInternalServerError, w.Code)
	assert.JSONEq(t, `{
		"success": false,
		"message": "An unexpected error occurred",
		"error": "INTERNAL_ERROR"
	}`, w.Body.String())

	// The panic log carries the path and elapsed duration
	entry := logged.String()
	assert.Contains(t, entry, `"panic":"kaboom"`)
	assert.Contains(t, entry, `"path":"/boom"`)
	assert.Contains(t, entry, `"duration"`)
}

func TestRecoveryPassthrough(t *testing.T) {
	gin.SetMode(gin.TestMode)

	router := gin.New()
	router.Use(Recovery())
	router.GET("/ok", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"ok": true})
	})

	w := httptest.NewRecorder()
	req, err := http.NewRequest(http.MethodGet, "/ok", nil)
	require.NoError(t, err)
	router.ServeHTTP(w, req)

	assert.Equal(t, http.StatusOK, w.Code)
}
