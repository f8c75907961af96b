package client

import (
	"context"
	"fmt"
	"net/http"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func notificationBatch(start, n int, base time.Time) []map[string]interface{} {
	out := make([]map[string]interface{}, n)
	for i := range out {
		out[i] = map[string]interface{}{
			"id":             fmt.Sprintf("n%d", start+i),
			"lastModifiedAt": base.Add(-time.Duration(start+i) * time.Minute),
		}
	}
	return out
}

func TestNotificationPager(t *testing.T) {
	base := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	var moreCalls int
	var before string
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Path {
		case "/api/v1/notifications":
			writeEnvelope(w, 200, map[string]interface{}{"notifications": notificationBatch(0, 25, base), "hasMore": true})
		case "/api/v1/notifications/more":
			moreCalls++
			before = r.URL.Query().Get("before")
			writeEnvelope(w, 200, map[string]interface{}{"notifications": notificationBatch(25, 5, base), "hasMore": false})
		}
	})

	pager := NewNotificationPager(c)
	ctx := context.Background()

	first, err := pager.Next(ctx)
	require.NoError(t, err)
	require.Len(t, first, 10)
	require.Equal(t, "n0", first[0].ID)
	require.Zero(t, moreCalls)

	second, err := pager.Next(ctx)
	require.NoError(t, err)
	require.Equal(t, "n10", second[0].ID)
	require.Equal(t, 1, moreCalls)
	require.Equal(t, base.Add(-24*time.Minute).Format(time.RFC3339Nano), before)

	third, err := pager.Next(ctx)
	require.NoError(t, err)
	require.Len(t, third, 10)
	require.Equal(t, "n29", third[9].ID)

	rest, err := pager.Next(ctx)
	require.NoError(t, err)
	require.Empty(t, rest)
	require.Equal(t, 1, moreCalls)
}
