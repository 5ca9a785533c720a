package ingest

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/nahuel893/bank-reconciliation-arg/internal/domain/chat"
)

func TestLoadTranscript(t *testing.T) {
	path := filepath.Join(t.TempDir(), "transcript.json")
	data := `[
		{"id": "m1", "group": "Comprobantes", "author": "A", "timestamp": 100, "kind": "media", "body": ""},
		{"id": "t1", "group": "Comprobantes", "author": "A", "timestamp": 100, "kind": "text", "body": "codigo 77"}
	]`
	require.NoError(t, os.WriteFile(path, []byte(data), 0o644))

	events, err := LoadTranscript(path)
	require.NoError(t, err)
	require.Len(t, events, 2)

	assert.Equal(t, "m1", events[0].ID)
	assert.Equal(t, chat.KindMedia, events[0].Kind)
	for _, ev := range events {
		assert.Equal(t, chat.ModeHistorical, ev.Mode)
	}
}

func TestLoadTranscriptMissingFile(t *testing.T) {
	_, err := LoadTranscript(filepath.Join(t.TempDir(), "nope.json"))
	require.Error(t, err)
}

func TestLoadTranscriptBadJSON(t *testing.T) {
	path := filepath.Join(t.TempDir(), "bad.json")
	require.NoError(t, os.WriteFile(path, []byte("{not json"), 0o644))

	_, err := LoadTranscript(path)
	require.Error(t, err)
}
