package episodes

import (
	"context"
	"errors"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/hackthis02/statistics-for-emby-server-CORE/internal/config"
	"github.com/hackthis02/statistics-for-emby-server-CORE/internal/ledger"
)

type counterFunc func(ctx context.Context, showID string) (ledger.Counts, error)

func (f counterFunc) EpisodeCounts(ctx context.Context, showID string) (ledger.Counts, error) {
	return f(ctx, showID)
}

func failing(calls *atomic.Int32, err error) counterFunc {
	return func(context.Context, string) (ledger.Counts, error) {
		calls.Add(1)
		return ledger.Counts{}, err
	}
}

func TestChainFallsBack(t *testing.T) {
	var calls atomic.Int32
	chain := Chain(
		failing(&calls, errors.New("boom")),
		ledger.StaticCounts{"1": {Episodes: 10, Specials: 2}},
	)

	got, err := chain.EpisodeCounts(context.Background(), "1")
	require.NoError(t, err)
	assert.Equal(t, ledger.Counts{Episodes: 10, Specials: 2}, got)
	assert.Equal(t, int32(1), calls.Load())

	_, err = chain.EpisodeCounts(context.Background(), "2")
	require.Error(t, err)
	assert.ErrorIs(t, err, ledger.ErrUnknownShow)
	assert.Contains(t, err.Error(), "boom")
}

func TestChainEmpty(t *testing.T) {
	_, err := Chain().EpisodeCounts(context.Background(), "1")
	assert.Error(t, err)
}

func TestChainStopsOnCancel(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	var second atomic.Int32
	chain := Chain(
		counterFunc(func(context.Context, string) (ledger.Counts, error) {
			cancel()
			return ledger.Counts{}, context.Canceled
		}),
		failing(&second, nil),
	)

	_, err := chain.EpisodeCounts(ctx, "1")
	assert.ErrorIs(t, err, context.Canceled)
	assert.Zero(t, second.Load())
}

func TestResilientOpensAndRejects(t *testing.T) {
	var calls atomic.Int32
	r := Resilient(failing(&calls, errors.New("down")), ResilientOptions{
		Name:             "test-open",
		FailureThreshold: 2,
		Cooldown:         time.Hour,
	})

	for range 2 {
		_, err := r.EpisodeCounts(context.Background(), "1")
		require.Error(t, err)
		assert.NotErrorIs(t, err, ErrRejected)
	}
	assert.Equal(t, "open", r.State())

	_, err := r.EpisodeCounts(context.Background(), "1")
	assert.ErrorIs(t, err, ErrRejected)
	assert.Equal(t, int32(2), calls.Load(), "open circuit does not call through")
}

func TestResilientIgnoresUnknownShows(t *testing.T) {
	var calls atomic.Int32
	r := Resilient(failing(&calls, ledger.ErrUnknownShow), ResilientOptions{
		Name:             "test-unknown",
		FailureThreshold: 1,
		Cooldown:         time.Hour,
	})

	for range 3 {
		_, err := r.EpisodeCounts(context.Background(), "1")
		assert.ErrorIs(t, err, ledger.ErrUnknownShow)
	}
	assert.Equal(t, "closed", r.State())
	assert.Equal(t, int32(3), calls.Load())
}

func TestResilientRateLimitHonoursContext(t *testing.T) {
	var calls atomic.Int32
	r := Resilient(failing(&calls, nil), ResilientOptions{
		Name:          "test-rate",
		RatePerSecond: 0.001,
		Burst:         1,
	})

	_, err := r.EpisodeCounts(context.Background(), "1")
	require.NoError(t, err)

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Millisecond)
	defer cancel()
	_, err = r.EpisodeCounts(ctx, "1")
	assert.Error(t, err)
	assert.Equal(t, int32(1), calls.Load())
}

func TestFromConfig(t *testing.T) {
	cfg := config.DefaultConfig()
	cfg.Episodes.Providers = []string{config.ProviderTvdbCache, config.ProviderSonarr}
	_, err := FromConfig(cfg, nil)
	assert.Error(t, err, "sonarr without credentials")

	cfg.Sonarr.URL = "http://localhost:8989"
	cfg.Sonarr.APIKey = "key"
	chain, err := FromConfig(cfg, nil)
	require.NoError(t, err)
	assert.Len(t, chain.counters, 2)

	cfg.Episodes.Providers = []string{"trakt"}
	_, err = FromConfig(cfg, nil)
	assert.Error(t, err)
}
