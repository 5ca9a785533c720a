package emit

import (
	"context"
	"errors"
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/nahuel893/bank-reconciliation-arg/internal/domain/correlation"
)

type passTransactor struct {
	calls int
}

func (p *passTransactor) WithinTransaction(ctx context.Context, tFunc func(ctx context.Context) error) error {
	p.calls++
	return tFunc(ctx)
}

type fakeRepo struct {
	rows      map[string]*correlation.Result
	insertErr error
	existsErr error
}

func newFakeRepo() *fakeRepo {
	return &fakeRepo{rows: make(map[string]*correlation.Result)}
}

func (f *fakeRepo) Exists(_ context.Context, mediaID string) (bool, error) {
	if f.existsErr != nil {
		return false, f.existsErr
	}
	_, ok := f.rows[mediaID]
	return ok, nil
}

func (f *fakeRepo) Insert(_ context.Context, res *correlation.Result) (bool, error) {
	if f.insertErr != nil {
		return false, f.insertErr
	}
	if _, ok := f.rows[res.MediaID]; ok {
		return false, nil // conflict
	}
	f.rows[res.MediaID] = res
	return true, nil
}

func result(mediaID string) *correlation.Result {
	return &correlation.Result{
		MediaID:   mediaID,
		Author:    "A",
		Timestamp: 100,
		Code:      "445",
		Source:    correlation.SourceLiveFollowup,
	}
}

func TestGatewayEmitInsertsOnce(t *testing.T) {
	repo := newFakeRepo()
	tm := &passTransactor{}
	g := NewGateway(tm, repo, nil, zerolog.Nop())
	ctx := context.Background()

	require.NoError(t, g.Emit(ctx, result("m1")))
	require.Len(t, repo.rows, 1)

	// Replaying the same result is a silent no-op.
	require.NoError(t, g.Emit(ctx, result("m1")))
	assert.Len(t, repo.rows, 1)
	assert.Equal(t, 2, tm.calls)
}

func TestGatewayEmitConflictIsNotAnError(t *testing.T) {
	repo := newFakeRepo()
	repo.rows["m1"] = result("m1")
	g := NewGateway(&passTransactor{}, repo, nil, zerolog.Nop())

	other := result("m1")
	other.Code = "999"
	require.NoError(t, g.Emit(context.Background(), other))

	// The pre-existing record wins.
	assert.Equal(t, "445", repo.rows["m1"].Code)
}

func TestGatewayEmitSurfacesSinkFault(t *testing.T) {
	repo := newFakeRepo()
	repo.insertErr = errors.New("connection refused")
	g := NewGateway(&passTransactor{}, repo, nil, zerolog.Nop())

	err := g.Emit(context.Background(), result("m1"))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "m1")
	assert.Contains(t, err.Error(), "A")

	// Nothing was stored; the media event stays eligible for reprocessing.
	assert.Empty(t, repo.rows)

	repo.insertErr = nil
	require.NoError(t, g.Emit(context.Background(), result("m1")))
	assert.Len(t, repo.rows, 1)
}

func TestGatewayEmitDistinctMediaIDs(t *testing.T) {
	repo := newFakeRepo()
	g := NewGateway(&passTransactor{}, repo, nil, zerolog.Nop())
	ctx := context.Background()

	require.NoError(t, g.Emit(ctx, result("m1")))
	require.NoError(t, g.Emit(ctx, result("m2")))
	assert.Len(t, repo.rows, 2)
}
