package journals

import (
	"context"
	"testing"
	"time"

	miniredis "github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/require"

	"github.com/mrwhyte0520/contabi/internal/accounting/shared"
	"github.com/mrwhyte0520/contabi/internal/platform/cache"
	base "github.com/mrwhyte0520/contabi/internal/shared"
)

type countingGetter struct {
	repo  *memRepo
	calls int
}

func (g *countingGetter) GetByNumber(ctx context.Context, number string) (JournalEntry, error) {
	g.calls++
	return g.repo.GetByNumber(ctx, number)
}

func TestCachedReaderServesFromRedis(t *testing.T) {
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = client.Close() })

	repo := newMemRepo()
	draft := sampleDraft(t)
	repo.store(draft.Entry)
	src := &countingGetter{repo: repo}
	reader := NewCachedReader(src, cache.NewJSONCache(client, "contabi", time.Hour))

	first, err := reader.GetByNumber(context.Background(), draft.Entry.EntryNumber)
	require.NoError(t, err)
	second, err := reader.GetByNumber(context.Background(), draft.Entry.EntryNumber)
	require.NoError(t, err)

	require.Equal(t, 1, src.calls)
	require.Equal(t, first.EntryNumber, second.EntryNumber)
	require.Len(t, second.Lines, 2)
	require.True(t, second.Lines[0].Debit.Equal(d("2000")))
	require.True(t, second.Balanced())
}

func TestCachedReaderMissIsNotFound(t *testing.T) {
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = client.Close() })

	reader := NewCachedReader(newMemRepo(), cache.NewJSONCache(client, "contabi", time.Hour))
	_, err := reader.GetByNumber(context.Background(), "NOPE")
	require.ErrorIs(t, err, shared.ErrJournalNotFound)
	require.ErrorIs(t, err, base.ErrNotFound)
}
