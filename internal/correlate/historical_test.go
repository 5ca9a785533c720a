package correlate

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/nahuel893/bank-reconciliation-arg/internal/domain/chat"
	"github.com/nahuel893/bank-reconciliation-arg/internal/domain/correlation"
)

var errSinkUnavailable = errors.New("sink unavailable")

type captureEmitter struct {
	mu       sync.Mutex
	results  []*correlation.Result
	fail     error // every emit fails with this
	failNext int   // emits to fail before the sink recovers
}

func (c *captureEmitter) Emit(_ context.Context, res *correlation.Result) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.fail != nil {
		return c.fail
	}
	if c.failNext > 0 {
		c.failNext--
		return errSinkUnavailable
	}
	c.results = append(c.results, res)
	return nil
}

func (c *captureEmitter) all() []*correlation.Result {
	c.mu.Lock()
	defer c.mu.Unlock()
	out := make([]*correlation.Result, len(c.results))
	copy(out, c.results)
	return out
}

func (c *captureEmitter) byMediaID(id string) *correlation.Result {
	for _, res := range c.all() {
		if res.MediaID == id {
			return res
		}
	}
	return nil
}

func media(id, author string, ts int64, body string) chat.Event {
	return chat.Event{ID: id, Group: "g", Author: author, Timestamp: ts, Kind: chat.KindMedia, Body: body}
}

func text(id, author string, ts int64, body string) chat.Event {
	return chat.Event{ID: id, Group: "g", Author: author, Timestamp: ts, Kind: chat.KindText, Body: body}
}

const window = 60 * time.Second

func TestResolveSameTimestampEitherOrder(t *testing.T) {
	forward := []chat.Event{
		media("m1", "A", 100, ""),
		text("t1", "A", 100, "codigo 77"),
	}
	backward := []chat.Event{
		text("t1", "A", 100, "codigo 77"),
		media("m1", "A", 100, ""),
	}

	for name, events := range map[string][]chat.Event{"media first": forward, "text first": backward} {
		t.Run(name, func(t *testing.T) {
			results := Resolve(events, window)
			require.Len(t, results, 1)
			assert.Equal(t, "m1", results[0].MediaID)
			assert.Equal(t, "77", results[0].Code)
			assert.Equal(t, correlation.SourceSameTimestamp, results[0].Source)
			assert.Equal(t, "codigo 77", results[0].AssociatedText)
		})
	}
}

func TestResolveInlineCode(t *testing.T) {
	results := Resolve([]chat.Event{media("m1", "A", 100, "cliente 33")}, window)

	require.Len(t, results, 1)
	assert.Equal(t, "33", results[0].Code)
	assert.Equal(t, correlation.SourceInline, results[0].Source)
}

func TestResolveWindowedForwardConsumesText(t *testing.T) {
	events := []chat.Event{
		media("m1", "A", 100, ""),
		text("t1", "A", 140, "77"),
		media("m2", "A", 200, ""),
	}

	results := Resolve(events, window)
	require.Len(t, results, 2)

	assert.Equal(t, "77", results[0].Code)
	assert.Equal(t, correlation.SourceWindowedForward, results[0].Source)

	// t1 is consumed by m1, so m2 cannot reuse it.
	assert.Equal(t, correlation.UnknownCode, results[1].Code)
	assert.Empty(t, results[1].AssociatedText)
}

func TestResolveStopsAtSameAuthorMedia(t *testing.T) {
	events := []chat.Event{
		media("m1", "A", 100, ""),
		media("m2", "A", 110, ""),
		text("t1", "A", 120, "cliente 55"),
	}

	results := Resolve(events, window)
	require.Len(t, results, 2)

	// m1's forward search stops at m2: a later image must not borrow a code
	// intended for it.
	assert.Equal(t, correlation.UnknownCode, results[0].Code)
	assert.Equal(t, "55", results[1].Code)
	assert.Equal(t, correlation.SourceWindowedForward, results[1].Source)
}

func TestResolveOtherAuthorMediaDoesNotStopSearch(t *testing.T) {
	events := []chat.Event{
		media("m1", "A", 100, ""),
		media("m2", "B", 110, ""),
		text("t1", "A", 120, "cliente 55"),
	}

	results := Resolve(events, window)
	require.Len(t, results, 2)
	assert.Equal(t, "55", results[0].Code)
}

func TestResolveWindowExceeded(t *testing.T) {
	events := []chat.Event{
		media("m1", "A", 100, ""),
		text("t1", "A", 161, "445"),
	}

	results := Resolve(events, window)
	require.Len(t, results, 1)
	assert.Equal(t, correlation.UnknownCode, results[0].Code)
	assert.Equal(t, correlation.SourceWindowedForward, results[0].Source)
}

func TestResolveIgnoresOtherAuthorsText(t *testing.T) {
	events := []chat.Event{
		media("m1", "A", 100, ""),
		text("t1", "B", 100, "999"),
		text("t2", "B", 120, "888"),
	}

	results := Resolve(events, window)
	require.Len(t, results, 1)
	assert.Equal(t, correlation.UnknownCode, results[0].Code)
}

func TestResolveConsumptionExclusivity(t *testing.T) {
	// Two media at the same timestamp as one text: only one may consume it.
	events := []chat.Event{
		media("m1", "A", 100, ""),
		media("m2", "A", 100, ""),
		text("t1", "A", 100, "12"),
	}

	results := Resolve(events, window)
	require.Len(t, results, 2)

	resolved := 0
	for _, res := range results {
		if res.Code == "12" {
			resolved++
		}
	}
	assert.Equal(t, 1, resolved, "a text event must resolve at most one media event")
}

func TestResolveEveryMediaGetsExactlyOneResult(t *testing.T) {
	events := []chat.Event{
		media("m1", "A", 100, ""),
		text("t1", "A", 110, "1"),
		media("m2", "B", 115, "inline 2"),
		media("m3", "C", 120, ""),
		text("t2", "A", 125, "ignored late reply 9"),
		media("m4", "A", 130, ""),
	}

	results := Resolve(events, window)
	require.Len(t, results, 4)

	seen := map[string]int{}
	for _, res := range results {
		seen[res.MediaID]++
	}
	for _, id := range []string{"m1", "m2", "m3", "m4"} {
		assert.Equal(t, 1, seen[id], "media %s", id)
	}
}

func TestResolveDeterministicRerun(t *testing.T) {
	events := []chat.Event{
		media("m1", "A", 100, ""),
		text("t1", "A", 100, "codigo 7"),
		media("m2", "B", 150, ""),
		text("t2", "B", 170, "31"),
	}

	first := Resolve(events, window)
	second := Resolve(events, window)

	require.Equal(t, len(first), len(second))
	for i := range first {
		assert.Equal(t, *first[i], *second[i])
	}
}

func TestSortEventsStable(t *testing.T) {
	events := []chat.Event{
		text("t1", "A", 200, "late"),
		media("m1", "A", 100, ""),
		text("t2", "A", 100, "first at ts"),
		text("t3", "A", 100, "second at ts"),
	}

	SortEvents(events)

	require.Equal(t, "m1", events[0].ID)
	assert.Equal(t, "t2", events[1].ID)
	assert.Equal(t, "t3", events[2].ID)
	assert.Equal(t, "t1", events[3].ID)
}

func TestHistoricalRunEmitsAllInBatches(t *testing.T) {
	emitter := &captureEmitter{}
	h := NewHistorical(emitter, window, 2, zerolog.Nop())

	events := []chat.Event{
		media("m1", "A", 100, ""),
		text("t1", "A", 100, "codigo 7"),
		media("m2", "B", 150, ""),
		media("m3", "C", 160, "inline 4"),
		media("m4", "D", 170, ""),
	}

	emitted, err := h.Run(context.Background(), events)
	require.NoError(t, err)
	assert.Equal(t, 4, emitted)
	assert.Len(t, emitter.all(), 4)

	m1 := emitter.byMediaID("m1")
	require.NotNil(t, m1)
	assert.Equal(t, "7", m1.Code)
}
