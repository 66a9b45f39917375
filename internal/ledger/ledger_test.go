package ledger

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"

	"github.com/mmeshcher/formaplus/internal/model"
	"github.com/mmeshcher/formaplus/internal/repository"
)

func TestMetaHash_NormalizesOrderAndNulls(t *testing.T) {
	a, err := MetaHash(map[string]any{"postId": "p1", "source": "web", "ignored": nil})
	require.NoError(t, err)

	b, err := MetaHash(map[string]any{"source": "web", "postId": "p1"})
	require.NoError(t, err)

	c, err := MetaHash(map[string]any{"postId": "p2", "source": "web"})
	require.NoError(t, err)

	assert.Equal(t, a, b)
	assert.NotEqual(t, a, c)
	assert.Len(t, a, 64)
}

func TestMetaHash_EmptyAndNilAreEqual(t *testing.T) {
	a, err := MetaHash(nil)
	require.NoError(t, err)
	b, err := MetaHash(map[string]any{})
	require.NoError(t, err)
	c, err := MetaHash(map[string]any{"x": nil})
	require.NoError(t, err)

	assert.Equal(t, a, b)
	assert.Equal(t, a, c)
}

func TestMetaHash_DoesNotEscapeHTML(t *testing.T) {
	got, err := MetaHash(map[string]any{"title": "<b>&"})
	require.NoError(t, err)

	sum := sha256.Sum256([]byte(`[["title","<b>&"]]`))
	assert.Equal(t, hex.EncodeToString(sum[:]), got)
}

func TestMetaHash_KeepsLineSeparatorsRaw(t *testing.T) {
	tests := []struct {
		name string
		meta map[string]any
		json string
	}{
		{name: "line separator", meta: map[string]any{"note": "a\u2028b"}, json: "[[\"note\",\"a\u2028b\"]]"},
		{name: "paragraph separator", meta: map[string]any{"note": "a\u2029b"}, json: "[[\"note\",\"a\u2029b\"]]"},
		{name: "escaped backslash stays text", meta: map[string]any{"note": `\u2028`}, json: `[["note","\\u2028"]]`},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := MetaHash(tt.meta)
			require.NoError(t, err)

			sum := sha256.Sum256([]byte(tt.json))
			assert.Equal(t, hex.EncodeToString(sum[:]), got)
		})
	}
}

func TestAward_DuplicateIsSilentNoop(t *testing.T) {
	core, logs := observer.New(zapcore.InfoLevel)
	repo := repository.NewMemoryRepository()
	l := New(repo, zap.New(core))
	ctx := context.Background()

	first, err := l.Award(ctx, "u1", model.PointEventPostCreated, 10, map[string]any{"postId": "p1", "extra": nil})
	require.NoError(t, err)

	second, err := l.Award(ctx, "u1", model.PointEventPostCreated, 10, map[string]any{"postId": "p1"})
	require.NoError(t, err)

	assert.Equal(t, int64(10), first.Balance)
	assert.Equal(t, first.Balance, second.Balance)
	require.Len(t, second.Activities, 1)
	assert.Equal(t, map[string]any{"postId": "p1"}, second.Activities[0].Meta)
	assert.Equal(t, 1, logs.FilterMessage("duplicate point event skipped").Len())
}

func TestAward_DistinctEventsAccumulate(t *testing.T) {
	l := New(repository.NewMemoryRepository(), zap.NewNop())
	ctx := context.Background()

	_, err := l.Award(ctx, "u1", model.PointEventPostCreated, 10, map[string]any{"postId": "p1"})
	require.NoError(t, err)
	_, err = l.Award(ctx, "u1", model.PointEventPostCreated, 10, map[string]any{"postId": "p2"})
	require.NoError(t, err)
	summary, err := l.Award(ctx, "u1", model.PointEventProfileCompleted, 50, nil)
	require.NoError(t, err)

	assert.Equal(t, int64(70), summary.Balance)
	assert.Len(t, summary.Activities, 3)
	assert.NotNil(t, summary.Activities[0].Meta)
}

func TestAward_InvalidInput(t *testing.T) {
	l := New(repository.NewMemoryRepository(), zap.NewNop())
	ctx := context.Background()

	_, err := l.Award(ctx, "", model.PointEventPostCreated, 1, nil)
	assert.ErrorIs(t, err, ErrInvalidAward)

	_, err = l.Award(ctx, "u1", model.PointEventType("SIGNUP"), 1, nil)
	assert.ErrorIs(t, err, ErrInvalidAward)

	_, err = l.Award(ctx, "u1", model.PointEventDailyCheckin, -1, nil)
	assert.ErrorIs(t, err, ErrInvalidAward)
}

type failingRepo struct {
	createErr error
}

func (f *failingRepo) CreatePointEvent(context.Context, *model.PointEvent) error { return f.createErr }

func (f *failingRepo) GetPointsBalance(context.Context, string) (int64, error) { return 0, nil }

func (f *failingRepo) GetRecentPointEvents(context.Context, string, int) ([]model.PointEvent, error) {
	return nil, nil
}

func TestAward_PropagatesOtherErrors(t *testing.T) {
	storeErr := errors.New("connection reset")
	l := New(&failingRepo{createErr: storeErr}, zap.NewNop())

	_, err := l.Award(context.Background(), "u1", model.PointEventDailyCheckin, 5, nil)
	assert.ErrorIs(t, err, storeErr)
}

func TestAwardAsync_LogsFailure(t *testing.T) {
	core, logs := observer.New(zapcore.ErrorLevel)
	l := New(&failingRepo{createErr: errors.New("boom")}, zap.New(core))

	l.AwardAsync("u1", model.PointEventPostCreated, 10, map[string]any{"postId": "p1"})
	l.Wait()

	assert.Equal(t, 1, logs.FilterMessage("award points error").Len())
}
