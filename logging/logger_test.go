package logging

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func TestNewLoggerWritesJSONLines(t *testing.T) {
	dir := t.TempDir()
	l, err := NewLogger(dir, "report.log", false)
	require.NoError(t, err)
	l.Info("report complete", zap.String("id", "r1"))
	l.Debug("hidden")
	l.Close()

	data, err := os.ReadFile(l.Path())
	require.NoError(t, err)
	lines := strings.Split(strings.TrimSpace(string(data)), "\n")
	require.Len(t, lines, 1)
	assert.Contains(t, lines[0], `"msg":"report complete"`)
	assert.Contains(t, lines[0], `"id":"r1"`)
	assert.Contains(t, lines[0], `"log":"report.log"`)
}

func TestDebugLevel(t *testing.T) {
	dir := t.TempDir()
	l, err := NewLogger(dir, "api.log", true)
	require.NoError(t, err)
	l.Debug("visible")
	l.Close()

	data, err := os.ReadFile(l.Path())
	require.NoError(t, err)
	assert.Contains(t, string(data), "visible")
}

func TestNewSet(t *testing.T) {
	s, err := NewSet(t.TempDir(), false)
	require.NoError(t, err)
	defer s.Close()
	for _, l := range []*Logger{s.API, s.Access, s.Login, s.Report} {
		assert.FileExists(t, l.Path())
	}
}

func TestNewSetArchivesPreviousLogs(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, "login.log"), []byte("ancien\n"), 0644))

	s, err := NewSet(dir, false)
	require.NoError(t, err)
	defer s.Close()

	archived, err := filepath.Glob(filepath.Join(dir, "archives", "login.log.*"))
	require.NoError(t, err)
	assert.Len(t, archived, 1)
}
