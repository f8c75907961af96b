package logger

import (
	"bytes"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestParseLevel(t *testing.T) {
	require.Equal(t, DEBUG, ParseLevel("debug"))
	require.Equal(t, ERROR, ParseLevel(" ERROR "))
	require.Equal(t, INFO, ParseLevel("verbose"))
}

func TestLogger_FiltersByLevel(t *testing.T) {
	var buf bytes.Buffer
	l := NewWithOutput(WARN, &buf)

	l.Info("hidden %d", 1)
	l.Warn("shown %d", 2)

	require.NotContains(t, buf.String(), "hidden")
	require.Contains(t, buf.String(), "[WARN] shown 2")
}

func TestLogger_Named(t *testing.T) {
	var buf bytes.Buffer
	l := NewWithOutput(DEBUG, &buf).Named("mentions")

	l.Error("search failed")

	require.Contains(t, buf.String(), "[ERROR] [mentions] search failed")
}

func TestLogger_NilIsSilent(t *testing.T) {
	var l *Logger
	require.NotPanics(t, func() { l.Error("nothing") })
}
