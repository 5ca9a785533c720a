package correlation

import "context"

// UnknownCode is the sentinel stored when no client code could be resolved.
const UnknownCode = "UNKNOWN"

// Source tags why a media event was resolved the way it was.
type Source string

const (
	SourceInline            Source = "inline"
	SourceSameTimestamp     Source = "same-timestamp"
	SourceWindowedForward   Source = "windowed-forward"
	SourceTimeout           Source = "timeout"
	SourceLiveFollowup      Source = "live-followup"
	SourceAuthorInterrupted Source = "author-interrupted"
)

// Result is the engine's output for one media event. Immutable once produced.
type Result struct {
	MediaID        string `json:"media_id"`
	Author         string `json:"author"`
	Timestamp      int64  `json:"timestamp"`
	Code           string `json:"resolved_code"`
	Source         Source `json:"source"`
	AssociatedText string `json:"associated_text"`
}

// Resolved reports whether a real code was attached, as opposed to the sentinel.
func (r Result) Resolved() bool {
	return r.Code != UnknownCode && r.Code != ""
}

// Repository is the idempotent sink. Insert returns false when the media id
// is already known (conflict), which callers treat as silent success.
type Repository interface {
	Exists(ctx context.Context, mediaID string) (bool, error)
	Insert(ctx context.Context, res *Result) (bool, error)
}
