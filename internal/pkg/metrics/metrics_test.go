package metrics

import (
	"errors"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/require"
)

func TestOutcome(t *testing.T) {
	require.Equal(t, "ok", Outcome(nil))
	require.Equal(t, "error", Outcome(errors.New("x")))
}

func TestHandler_ExposesCounters(t *testing.T) {
	gin.SetMode(gin.TestMode)
	before := testutil.ToFloat64(FileUploads.WithLabelValues("ok"))
	FileUploads.WithLabelValues("ok").Inc()
	require.Equal(t, before+1, testutil.ToFloat64(FileUploads.WithLabelValues("ok")))

	r := gin.New()
	r.GET("/metrics", Handler())
	w := httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest("GET", "/metrics", nil))

	require.Equal(t, 200, w.Code)
	require.Contains(t, w.Body.String(), "chatter_file_uploads_total")
}
