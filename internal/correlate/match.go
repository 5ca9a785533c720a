package correlate

import (
	"time"

	"github.com/nahuel893/bank-reconciliation-arg/internal/domain/chat"
)

// Accepts is the single acceptance predicate shared by the live and
// historical paths: a text event can resolve a media event only when it
// comes from the same author, carries an extractable code, and falls within
// the window after the media. Keeping this in one place stops the two code
// paths from drifting apart.
func Accepts(media, text chat.Event, window time.Duration) (string, bool) {
	if text.Kind != chat.KindText {
		return "", false
	}
	if text.Author != media.Author {
		return "", false
	}
	delta := text.Timestamp - media.Timestamp
	if delta < 0 {
		delta = -delta
	}
	if int64(window/time.Second) > 0 && delta > int64(window/time.Second) {
		return "", false
	}
	return ExtractCode(text.Body)
}
