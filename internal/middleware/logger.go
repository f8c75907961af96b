package middleware

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/xyz-asif/chatter/internal/pkg/logger"
)

// LoggerConfig controls what the request logger writes
type LoggerConfig struct {
	LogRequestBody  bool
	LogResponseBody bool
	MaxBodySize     int64 // bytes captured per body
	SkipPaths       []string
	// Fields whose values are replaced before logging. Matched by substring
	// on the lowercased key.
	RedactFields []string
	// Fields that carry file contents. Logged as their length only.
	PayloadFields []string
}

func DefaultLoggerConfig() LoggerConfig {
	return LoggerConfig{
		LogRequestBody:  true,
		LogResponseBody: false, // errors only
		MaxBodySize:     2048,
		SkipPaths:       []string{"/health", "/metrics"},
		RedactFields:    []string{"password", "token", "secret", "credential"},
		PayloadFields:   []string{"versiondata", "contents"},
	}
}

func Logger() gin.HandlerFunc {
	return LoggerWithConfig(DefaultLoggerConfig(), logger.Default().Named("http"))
}

func LoggerWithConfig(config LoggerConfig, log *logger.Logger) gin.HandlerFunc {
	skip := make(map[string]bool, len(config.SkipPaths))
	for _, p := range config.SkipPaths {
		skip[p] = true
	}

	return func(c *gin.Context) {
		path := c.Request.URL.Path
		if skip[path] {
			c.Next()
			return
		}
		start := time.Now()

		var requestBody string
		if config.LogRequestBody && c.Request.Body != nil && c.Request.ContentLength > 0 {
			if c.Request.ContentLength > config.MaxBodySize {
				// Uploads land here; the body is never buffered.
				requestBody = fmt.Sprintf("[%s body]", formatSize(c.Request.ContentLength))
			} else {
				bodyBytes, err := io.ReadAll(io.LimitReader(c.Request.Body, config.MaxBodySize))
				if err == nil {
					c.Request.Body = io.NopCloser(bytes.NewBuffer(bodyBytes))
					requestBody = config.sanitize(bodyBytes, c.GetHeader("Content-Type"))
				}
			}
		}

		writer := &limitedResponseWriter{ResponseWriter: c.Writer, maxSize: config.MaxBodySize}
		c.Writer = writer

		c.Next()

		status := writer.Status()
		line := fmt.Sprintf("%s %s -> %d in %v (%s)", c.Request.Method, path, status, time.Since(start), formatSize(writer.size))
		if q := c.Request.URL.RawQuery; q != "" {
			line += " query=" + truncateString(q, 100)
		}
		if userID := c.GetString("userID"); userID != "" {
			line += " user=" + userID
		}
		if requestBody != "" {
			line += " body=" + requestBody
		}
		if writer.body.Len() > 0 && (config.LogResponseBody || status >= 400) {
			line += " response=" + truncateString(writer.body.String(), 300)
		}

		switch {
		case status >= 500:
			log.Error("%s", line)
		case status >= 400:
			log.Warn("%s", line)
		default:
			log.Info("%s", line)
		}
	}
}

type limitedResponseWriter struct {
	gin.ResponseWriter
	body    bytes.Buffer
	size    int64
	maxSize int64
}

func (w *limitedResponseWriter) Write(b []byte) (int, error) {
	n, err := w.ResponseWriter.Write(b)
	if w.size+int64(len(b)) <= w.maxSize {
		w.body.Write(b[:n])
	}
	w.size += int64(n)
	return n, err
}

func formatSize(bytes int64) string {
	if bytes < 1024 {
		return fmt.Sprintf("%dB", bytes)
	} else if bytes < 1024*1024 {
		return fmt.Sprintf("%.1fKB", float64(bytes)/1024)
	}
	return fmt.Sprintf("%.1fMB", float64(bytes)/(1024*1024))
}

func (config LoggerConfig) sanitize(body []byte, contentType string) string {
	if len(body) == 0 {
		return ""
	}
	if strings.Contains(contentType, "application/json") {
		var data interface{}
		if json.Unmarshal(body, &data) == nil {
			if formatted, err := json.Marshal(config.hideFields(data)); err == nil {
				return truncateString(string(formatted), 500)
			}
		}
	}
	return truncateString(string(body), 200)
}

func (config LoggerConfig) hideFields(data interface{}) interface{} {
	switch v := data.(type) {
	case map[string]interface{}:
		result := make(map[string]interface{}, len(v))
		for key, value := range v {
			lowerKey := strings.ToLower(key)
			switch {
			case matchesAny(lowerKey, config.PayloadFields):
				if s, ok := value.(string); ok {
					result[key] = fmt.Sprintf("[%d chars]", len(s))
				} else {
					result[key] = "[payload]"
				}
			case matchesAny(lowerKey, config.RedactFields):
				result[key] = "********"
			default:
				result[key] = config.hideFields(value)
			}
		}
		return result
	case []interface{}:
		result := make([]interface{}, len(v))
		for i, item := range v {
			result[i] = config.hideFields(item)
		}
		return result
	default:
		return v
	}
}

func matchesAny(key string, fields []string) bool {
	for _, f := range fields {
		if strings.Contains(key, f) {
			return true
		}
	}
	return false
}

func truncateString(s string, maxLen int) string {
	if len(s) <= maxLen {
		return s
	}
	return s[:maxLen] + "..."
}
