package ingest

import (
	"encoding/json"
	"fmt"
	"os"

	"github.com/nahuel893/bank-reconciliation-arg/internal/domain/chat"
)

// LoadTranscript reads a JSON transcript (an array of chat events) and
// stamps every entry with the historical mode flag. Nothing from a previous
// run is reused: each run re-derives its results from the supplied file.
func LoadTranscript(path string) ([]chat.Event, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read transcript %s: %w", path, err)
	}

	var events []chat.Event
	if err := json.Unmarshal(data, &events); err != nil {
		return nil, fmt.Errorf("parse transcript %s: %w", path, err)
	}

	for i := range events {
		events[i].Mode = chat.ModeHistorical
	}
	return events, nil
}
