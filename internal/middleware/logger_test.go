package middleware

import (
	"bytes"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/require"

	"github.com/xyz-asif/chatter/internal/pkg/logger"
)

func TestLogger_RedactsPayloadAndSecrets(t *testing.T) {
	gin.SetMode(gin.TestMode)
	var buf bytes.Buffer
	r := gin.New()
	r.Use(LoggerWithConfig(DefaultLoggerConfig(), logger.NewWithOutput(logger.DEBUG, &buf)))
	r.POST("/files/versions", func(c *gin.Context) { c.JSON(400, gin.H{"message": "nope"}) })

	body := `{"fields":{"Title":"a.txt","VersionData":"aGVsbG8="},"idToken":"abc"}`
	req := httptest.NewRequest("POST", "/files/versions", strings.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	r.ServeHTTP(httptest.NewRecorder(), req)

	out := buf.String()
	require.Contains(t, out, "[WARN]")
	require.Contains(t, out, "POST /files/versions -> 400")
	require.Contains(t, out, `"VersionData":"[8 chars]"`)
	require.Contains(t, out, `"idToken":"********"`)
	require.NotContains(t, out, "aGVsbG8=")
	require.Contains(t, out, "nope")
}

func TestLogger_SkipsHealth(t *testing.T) {
	gin.SetMode(gin.TestMode)
	var buf bytes.Buffer
	r := gin.New()
	r.Use(LoggerWithConfig(DefaultLoggerConfig(), logger.NewWithOutput(logger.DEBUG, &buf)))
	r.GET("/health", func(c *gin.Context) { c.Status(200) })

	r.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest("GET", "/health", nil))
	require.Empty(t, buf.String())
}

func TestCORS(t *testing.T) {
	gin.SetMode(gin.TestMode)
	r := gin.New()
	r.Use(CORS("https://app.example.com, https://admin.example.com"))
	r.GET("/x", func(c *gin.Context) { c.Status(200) })

	req := httptest.NewRequest("OPTIONS", "/x", nil)
	req.Header.Set("Origin", "https://admin.example.com")
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	require.Equal(t, 204, w.Code)
	require.Equal(t, "https://admin.example.com", w.Header().Get("Access-Control-Allow-Origin"))
	require.Contains(t, w.Header().Get("Access-Control-Allow-Methods"), "PATCH")

	req = httptest.NewRequest("GET", "/x", nil)
	req.Header.Set("Origin", "https://evil.example.com")
	w = httptest.NewRecorder()
	r.ServeHTTP(w, req)
	require.Equal(t, 200, w.Code)
	require.Empty(t, w.Header().Get("Access-Control-Allow-Origin"))
}
