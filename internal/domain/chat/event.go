package chat

import "errors"

type Kind string

const (
	KindMedia Kind = "media"
	KindText  Kind = "text"
)

type Mode string

const (
	ModeLive       Mode = "live"
	ModeHistorical Mode = "historical"
)

var (
	ErrMissingID        = errors.New("chat event has no id")
	ErrMissingAuthor    = errors.New("chat event has no author")
	ErrMissingTimestamp = errors.New("chat event has no timestamp")
	ErrUnknownKind      = errors.New("chat event has unknown kind")
)

// Event is one inbound chat message. Timestamp is unix seconds as supplied
// by the source; it is not guaranteed strictly monotonic or unique.
type Event struct {
	ID        string `json:"id"`
	Group     string `json:"group"`
	Author    string `json:"author"`
	Timestamp int64  `json:"timestamp"`
	Kind      Kind   `json:"kind"`
	Body      string `json:"body"`
	Mode      Mode   `json:"mode,omitempty"`
}

// Validate rejects malformed events before they reach the correlation paths.
func (e Event) Validate() error {
	if e.ID == "" {
		return ErrMissingID
	}
	if e.Author == "" {
		return ErrMissingAuthor
	}
	if e.Timestamp <= 0 {
		return ErrMissingTimestamp
	}
	if e.Kind != KindMedia && e.Kind != KindText {
		return ErrUnknownKind
	}
	return nil
}

func (e Event) IsMedia() bool { return e.Kind == KindMedia }
