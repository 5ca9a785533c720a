package correlate

import (
	"context"
	"fmt"
	"sort"
	"time"

	"github.com/rs/zerolog"

	"github.com/nahuel893/bank-reconciliation-arg/internal/domain/chat"
	"github.com/nahuel893/bank-reconciliation-arg/internal/domain/correlation"
)

// Historical resolves a complete, pre-fetched transcript in one sequential
// pass. No timers are involved: the full ordered context is known upfront,
// so follow-up codes are found by searching the slice instead of waiting.
type Historical struct {
	emitter   Emitter
	window    time.Duration
	batchSize int
	log       zerolog.Logger
}

func NewHistorical(emitter Emitter, window time.Duration, batchSize int, log zerolog.Logger) *Historical {
	if batchSize <= 0 {
		batchSize = 500
	}
	return &Historical{
		emitter:   emitter,
		window:    window,
		batchSize: batchSize,
		log:       log.With().Str("component", "historical").Logger(),
	}
}

// SortEvents orders a transcript ascending by timestamp. The sort is stable
// so that events sharing a timestamp keep their original arrival order.
func SortEvents(events []chat.Event) {
	sort.SliceStable(events, func(i, j int) bool {
		return events[i].Timestamp < events[j].Timestamp
	})
}

// Run correlates every media event in the sorted transcript and hands the
// results to the emitter in batches. It returns the number of results
// emitted. A text event used for one media event is marked consumed and
// never reused for another.
func (h *Historical) Run(ctx context.Context, events []chat.Event) (int, error) {
	results := Resolve(events, h.window)

	emitted := 0
	for start := 0; start < len(results); start += h.batchSize {
		end := start + h.batchSize
		if end > len(results) {
			end = len(results)
		}
		for _, res := range results[start:end] {
			if err := ctx.Err(); err != nil {
				return emitted, err
			}
			if err := h.emitter.Emit(ctx, res); err != nil {
				return emitted, fmt.Errorf("emit media %s: %w", res.MediaID, err)
			}
			emitted++
		}
		h.log.Info().Int("emitted", emitted).Int("total", len(results)).Msg("historical batch flushed")
	}
	return emitted, nil
}

// Resolve runs the windowed multi-directional search over a sorted
// transcript and returns one result per media event. Consumption is tracked
// in a boolean array parallel to the input; the input itself is not mutated.
func Resolve(events []chat.Event, window time.Duration) []*correlation.Result {
	consumed := make([]bool, len(events))
	var results []*correlation.Result

	for i, ev := range events {
		if ev.Kind != chat.KindMedia {
			continue
		}
		results = append(results, resolveAt(events, consumed, i, window))
	}
	return results
}

// resolveAt decides the outcome for the media event at index i. Search
// order: the media's own text, then same-timestamp forward, same-timestamp
// backward, then the bounded forward window.
func resolveAt(events []chat.Event, consumed []bool, i int, window time.Duration) *correlation.Result {
	media := events[i]

	if code, ok := ExtractCode(media.Body); ok {
		return &correlation.Result{
			MediaID:        media.ID,
			Author:         media.Author,
			Timestamp:      media.Timestamp,
			Code:           code,
			Source:         correlation.SourceInline,
			AssociatedText: media.Body,
		}
	}

	// Same-timestamp pairs are the strongest signal: the source platform may
	// deliver the two halves in either order, so both directions are tried
	// exhaustively before the looser window heuristic.
	for j := i + 1; j < len(events) && events[j].Timestamp == media.Timestamp; j++ {
		if res := take(events, consumed, media, j, window, correlation.SourceSameTimestamp); res != nil {
			return res
		}
	}
	for j := i - 1; j >= 0 && events[j].Timestamp == media.Timestamp; j-- {
		if res := take(events, consumed, media, j, window, correlation.SourceSameTimestamp); res != nil {
			return res
		}
	}

	for j := i + 1; j < len(events); j++ {
		if events[j].Timestamp-media.Timestamp > int64(window/time.Second) {
			break
		}
		if events[j].Kind == chat.KindMedia && events[j].Author == media.Author {
			// A later image must not borrow a code intended for this one.
			break
		}
		if res := take(events, consumed, media, j, window, correlation.SourceWindowedForward); res != nil {
			return res
		}
	}

	// No qualifying follow-up anywhere in the window.
	return &correlation.Result{
		MediaID:   media.ID,
		Author:    media.Author,
		Timestamp: media.Timestamp,
		Code:      correlation.UnknownCode,
		Source:    correlation.SourceWindowedForward,
	}
}

// take attempts to resolve media with the event at index j, consuming it on
// success.
func take(events []chat.Event, consumed []bool, media chat.Event, j int, window time.Duration, src correlation.Source) *correlation.Result {
	if consumed[j] {
		return nil
	}
	code, ok := Accepts(media, events[j], window)
	if !ok {
		return nil
	}
	consumed[j] = true
	return &correlation.Result{
		MediaID:        media.ID,
		Author:         media.Author,
		Timestamp:      media.Timestamp,
		Code:           code,
		Source:         src,
		AssociatedText: events[j].Body,
	}
}
