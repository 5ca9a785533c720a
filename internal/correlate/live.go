package correlate

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/rs/zerolog"

	"github.com/nahuel893/bank-reconciliation-arg/internal/domain/chat"
	"github.com/nahuel893/bank-reconciliation-arg/internal/domain/correlation"
)

// Emitter receives resolved results. The emission gateway implements it.
type Emitter interface {
	Emit(ctx context.Context, res *correlation.Result) error
}

// slot is one author's unresolved media event awaiting a follow-up code.
type slot struct {
	media chat.Event
	timer *time.Timer
}

// Live is the per-author correlation state machine for events arriving one
// at a time. An author is either idle (no entry in slots) or awaiting a code
// (exactly one slot with a running deadline timer). The mutex is the single
// decision point for the race between the deadline firing and a message
// resolving the slot: whichever takes the lock first wins, the loser sees
// the slot gone and does nothing.
//
// A slot is only destroyed once its result reached the sink. Emissions with
// no caller to retry them (timer expiry, shutdown stragglers) are buffered
// in unsent and re-attempted on a timer, so a transient sink fault never
// loses a media event's result.
type Live struct {
	emitter Emitter
	wait    time.Duration
	log     zerolog.Logger

	mu         sync.Mutex
	slots      map[string]*slot
	unsent     []*correlation.Result
	retryTimer *time.Timer
	closed     bool
}

func NewLive(emitter Emitter, wait time.Duration, log zerolog.Logger) *Live {
	return &Live{
		emitter: emitter,
		wait:    wait,
		log:     log.With().Str("component", "live").Logger(),
		slots:   make(map[string]*slot),
	}
}

// Handle processes one live event. An emission failure is returned so the
// caller can avoid acknowledging the inbound message; redelivery is safe
// because the sink is idempotent.
func (l *Live) Handle(ctx context.Context, ev chat.Event) error {
	if ev.Kind == chat.KindMedia {
		return l.handleMedia(ctx, ev)
	}
	return l.handleText(ctx, ev)
}

func (l *Live) handleMedia(ctx context.Context, ev chat.Event) error {
	l.mu.Lock()
	if l.closed {
		l.mu.Unlock()
		return fmt.Errorf("live engine closed, media %s not accepted", ev.ID)
	}
	prev, hasPrev := l.slots[ev.Author]
	if hasPrev {
		// A newer media from the same author supersedes the open slot. Stop
		// the deadline but keep the slot until its result is safely in the
		// sink, so a failed emit plus redelivery still covers it.
		prev.timer.Stop()
	}
	l.mu.Unlock()

	if hasPrev {
		if err := l.emitter.Emit(ctx, unresolved(prev.media, correlation.SourceAuthorInterrupted)); err != nil {
			return fmt.Errorf("emit interrupted media %s: %w", prev.media.ID, err)
		}
		l.mu.Lock()
		if cur, ok := l.slots[ev.Author]; ok && cur == prev {
			delete(l.slots, ev.Author)
		}
		l.mu.Unlock()
	}

	if code, ok := ExtractCode(ev.Body); ok {
		res := &correlation.Result{
			MediaID:        ev.ID,
			Author:         ev.Author,
			Timestamp:      ev.Timestamp,
			Code:           code,
			Source:         correlation.SourceInline,
			AssociatedText: ev.Body,
		}
		if err := l.emitter.Emit(ctx, res); err != nil {
			return fmt.Errorf("emit inline media %s: %w", ev.ID, err)
		}
		return nil
	}

	l.mu.Lock()
	if l.closed {
		l.mu.Unlock()
		return fmt.Errorf("live engine closed, media %s not accepted", ev.ID)
	}
	s := &slot{media: ev}
	s.timer = time.AfterFunc(l.wait, func() { l.expire(ev.Author, s) })
	l.slots[ev.Author] = s
	l.mu.Unlock()

	l.log.Debug().Str("author", ev.Author).Str("media_id", ev.ID).Msg("awaiting follow-up code")
	return nil
}

func (l *Live) handleText(ctx context.Context, ev chat.Event) error {
	l.mu.Lock()
	s, ok := l.slots[ev.Author]
	if !ok {
		l.mu.Unlock()
		return nil
	}
	code, ok := Accepts(s.media, ev, l.wait)
	if !ok {
		// No acceptable code in the text: the slot stays open and the
		// deadline keeps running.
		l.mu.Unlock()
		return nil
	}
	s.timer.Stop()
	l.mu.Unlock()

	res := &correlation.Result{
		MediaID:        s.media.ID,
		Author:         s.media.Author,
		Timestamp:      s.media.Timestamp,
		Code:           code,
		Source:         correlation.SourceLiveFollowup,
		AssociatedText: ev.Body,
	}
	if err := l.emitter.Emit(ctx, res); err != nil {
		return fmt.Errorf("emit follow-up for media %s: %w", s.media.ID, err)
	}

	l.mu.Lock()
	if cur, ok := l.slots[ev.Author]; ok && cur == s {
		delete(l.slots, ev.Author)
	}
	l.mu.Unlock()
	return nil
}

// expire runs on the timer goroutine when a slot's deadline elapses.
func (l *Live) expire(author string, s *slot) {
	l.mu.Lock()
	cur, ok := l.slots[author]
	if !ok || cur != s {
		// The slot was already resolved by a message; the timer lost the race.
		l.mu.Unlock()
		return
	}
	delete(l.slots, author)
	l.mu.Unlock()

	res := unresolved(s.media, correlation.SourceTimeout)
	if err := l.emitter.Emit(context.Background(), res); err != nil {
		// No caller to retry a timer-driven emission, so it is buffered and
		// re-attempted until the sink takes it.
		l.log.Warn().Err(err).
			Str("media_id", s.media.ID).
			Str("author", author).
			Msg("timeout result deferred, sink write failed")
		l.deferEmit(res)
	}
}

// deferEmit queues a result whose sink write failed and arms the retry
// timer. The deadline duration doubles as the retry interval.
func (l *Live) deferEmit(res *correlation.Result) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.unsent = append(l.unsent, res)
	if l.retryTimer == nil && !l.closed {
		l.retryTimer = time.AfterFunc(l.wait, l.flushUnsent)
	}
}

// flushUnsent re-emits deferred results, requeueing whatever still fails.
func (l *Live) flushUnsent() {
	l.mu.Lock()
	pending := l.unsent
	l.unsent = nil
	l.retryTimer = nil
	l.mu.Unlock()

	for _, res := range pending {
		if err := l.emitter.Emit(context.Background(), res); err != nil {
			l.log.Warn().Err(err).Str("media_id", res.MediaID).Msg("deferred result still failing")
			l.deferEmit(res)
		}
	}
}

// Pending returns the number of open slots. Diagnostic use only.
func (l *Live) Pending() int {
	l.mu.Lock()
	defer l.mu.Unlock()
	return len(l.slots)
}

// Close stops all timers and force-resolves every open slot to the unknown
// sentinel. Documented shutdown policy: abandoned slots are not carried
// across restarts.
func (l *Live) Close(ctx context.Context) error {
	l.mu.Lock()
	l.closed = true
	if l.retryTimer != nil {
		l.retryTimer.Stop()
		l.retryTimer = nil
	}
	flush := l.unsent
	l.unsent = nil
	for author, s := range l.slots {
		s.timer.Stop()
		delete(l.slots, author)
		flush = append(flush, unresolved(s.media, correlation.SourceTimeout))
	}
	l.mu.Unlock()

	for _, res := range flush {
		if err := l.emitter.Emit(ctx, res); err != nil {
			l.log.Error().Err(err).Str("media_id", res.MediaID).Msg("failed to flush result on shutdown")
		}
	}
	return nil
}

func unresolved(media chat.Event, src correlation.Source) *correlation.Result {
	return &correlation.Result{
		MediaID:   media.ID,
		Author:    media.Author,
		Timestamp: media.Timestamp,
		Code:      correlation.UnknownCode,
		Source:    src,
	}
}
