package correlate

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	"github.com/nahuel893/bank-reconciliation-arg/internal/domain/chat"
)

func TestAccepts(t *testing.T) {
	media := chat.Event{ID: "m1", Author: "A", Timestamp: 100, Kind: chat.KindMedia}

	tests := []struct {
		name   string
		text   chat.Event
		window time.Duration
		want   string
		ok     bool
	}{
		{
			name:   "same author with code inside window",
			text:   chat.Event{ID: "t1", Author: "A", Timestamp: 130, Kind: chat.KindText, Body: "cliente 445"},
			window: 60 * time.Second,
			want:   "445",
			ok:     true,
		},
		{
			name:   "different author rejected",
			text:   chat.Event{ID: "t2", Author: "B", Timestamp: 110, Kind: chat.KindText, Body: "445"},
			window: 60 * time.Second,
		},
		{
			name:   "no code rejected",
			text:   chat.Event{ID: "t3", Author: "A", Timestamp: 110, Kind: chat.KindText, Body: "hola"},
			window: 60 * time.Second,
		},
		{
			name:   "outside window rejected",
			text:   chat.Event{ID: "t4", Author: "A", Timestamp: 161, Kind: chat.KindText, Body: "445"},
			window: 60 * time.Second,
		},
		{
			name:   "text before media inside window accepted",
			text:   chat.Event{ID: "t5", Author: "A", Timestamp: 90, Kind: chat.KindText, Body: "codigo 9"},
			window: 60 * time.Second,
			want:   "9",
			ok:     true,
		},
		{
			name:   "media event never accepted",
			text:   chat.Event{ID: "m2", Author: "A", Timestamp: 100, Kind: chat.KindMedia, Body: "445"},
			window: 60 * time.Second,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, ok := Accepts(media, tt.text, tt.window)
			assert.Equal(t, tt.ok, ok)
			assert.Equal(t, tt.want, got)
		})
	}
}
