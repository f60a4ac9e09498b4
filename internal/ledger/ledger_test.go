package ledger

import (
	"context"
	"errors"
	"sync"
	"testing"

	"github.com/hackthis02/statistics-for-emby-server-CORE/internal/catalog"
	ct "github.com/hackthis02/statistics-for-emby-server-CORE/internal/catalog/catalogtest"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeCounter struct {
	mu     sync.Mutex
	counts map[string]Counts
	errs   map[string]error
	calls  []string
	onCall func(showID string)
}

func (f *fakeCounter) EpisodeCounts(ctx context.Context, showID string) (Counts, error) {
	f.mu.Lock()
	f.calls = append(f.calls, showID)
	onCall := f.onCall
	f.mu.Unlock()
	if onCall != nil {
		onCall(showID)
	}
	if err := f.errs[showID]; err != nil {
		return Counts{}, err
	}
	return f.counts[showID], nil
}

func (f *fakeCounter) callCount() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.calls)
}

// library has three shows:
//
//	a (tvdb 1): S1E1, S1E2-E4 (span 3), S1E5 unaired, S0E1 special, one virtual
//	b (tvdb 2): S1E1
//	c (no tvdb id): S1E1
//	d (tvdb 1 again, a duplicate entry of a in another library): S1E1
func library(t *testing.T) *catalog.Snapshot {
	t.Helper()
	p := &catalog.Static{}
	ct.Users(p, 1)

	a, aSeasons := ct.Show("a", "Alpha", "1", 0, 1)
	b, bSeasons := ct.Show("b", "Bravo", "2", 1)
	c, cSeasons := ct.Show("c", "Charlie", "", 1)
	d, dSeasons := ct.Show("d", "Alpha", "1", 1)
	p.SeriesList = []catalog.Series{a, b, c, d}
	for _, s := range [][]catalog.Season{aSeasons, bSeasons, cSeasons, dSeasons} {
		p.SeasonList = append(p.SeasonList, s...)
	}

	multi := ct.Episode("a2", ct.SeasonID("a", 1), 1, 2)
	multi.IndexNumberEnd = ct.Int(4)
	unaired := ct.Episode("a5", ct.SeasonID("a", 1), 1, 5)
	unaired.PremiereDate = ct.Date(2099, 1, 1)
	virtual := ct.Episode("a6", ct.SeasonID("a", 1), 1, 6)
	virtual.Virtual = true

	p.EpisodeList = []catalog.Episode{
		ct.Episode("a1", ct.SeasonID("a", 1), 1, 1),
		multi,
		unaired,
		virtual,
		ct.Episode("a0", ct.SeasonID("a", 0), 0, 1),
		ct.Episode("b1", ct.SeasonID("b", 1), 1, 1),
		ct.Episode("c1", ct.SeasonID("c", 1), 1, 1),
		ct.Episode("d1", ct.SeasonID("d", 1), 1, 1),
	}
	p.ShowAll()

	snap, err := catalog.Load(context.Background(), p, ct.Now)
	require.NoError(t, err)
	return snap
}

func TestBuildCollected(t *testing.T) {
	l := Build(context.Background(), library(t), nil, Options{})

	a, ok := l.Get("a")
	require.True(t, ok)
	assert.Equal(t, 4, a.CollectedEpisodes, "1 + span 3, unaired and virtual excluded")
	assert.Equal(t, 1, a.CollectedSpecials)
	assert.False(t, a.Known())

	c, _ := l.Get("c")
	assert.Equal(t, 1, c.CollectedEpisodes)
	assert.Equal(t, 4, l.Len())
	assert.False(t, l.Failed())
	assert.Equal(t, ct.Now, l.BuiltAt())
}

func TestBuildTotalsOneLookupPerShow(t *testing.T) {
	counter := &fakeCounter{counts: map[string]Counts{
		"1": {Episodes: 10, Specials: 2},
		"2": {Episodes: 5},
	}}
	l := Build(context.Background(), library(t), counter, Options{Workers: 4})

	assert.ElementsMatch(t, []string{"1", "2"}, counter.calls)

	a, _ := l.Get("a")
	d, _ := l.Get("d")
	assert.Equal(t, 10, a.TotalEpisodes)
	assert.Equal(t, 2, a.TotalSpecials)
	assert.Equal(t, 10, d.TotalEpisodes)

	c, _ := l.Get("c")
	assert.Equal(t, 0, c.TotalEpisodes)
	assert.False(t, l.Failed())

	assert.Equal(t, []ShowCount{
		{ShowID: "1", Episodes: 10, Specials: 2},
		{ShowID: "2", Episodes: 5},
	}, l.ShowCounts())
}

func TestBuildLookupFailureIsSoft(t *testing.T) {
	counter := &fakeCounter{
		counts: map[string]Counts{"2": {Episodes: 5}},
		errs:   map[string]error{"1": errors.New("cache file missing")},
	}
	l := Build(context.Background(), library(t), counter, Options{Workers: 2})

	assert.True(t, l.Failed())
	a, _ := l.Get("a")
	assert.Equal(t, 0, a.TotalEpisodes)
	assert.Equal(t, 4, a.CollectedEpisodes)
	b, _ := l.Get("b")
	assert.Equal(t, 5, b.TotalEpisodes)
}

func TestBuildSkipUnknownShows(t *testing.T) {
	counts := StaticCounts{"2": {Episodes: 5}}

	l := Build(context.Background(), library(t), counts, Options{SkipUnknown: true})
	assert.False(t, l.Failed())
	a, _ := l.Get("a")
	assert.Equal(t, 0, a.TotalEpisodes)
	b, _ := l.Get("b")
	assert.Equal(t, 5, b.TotalEpisodes)

	l = Build(context.Background(), library(t), counts, Options{})
	assert.True(t, l.Failed(), "unknown shows fail without SkipUnknown")
}

func TestBuildCancellationKeepsFinishedLookups(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	counter := &fakeCounter{
		counts: map[string]Counts{"1": {Episodes: 10}, "2": {Episodes: 5}},
		onCall: func(string) { cancel() },
	}
	l := Build(ctx, library(t), counter, Options{Workers: 1})

	assert.Equal(t, 1, counter.callCount())
	assert.True(t, l.Cancelled())
	assert.False(t, l.Failed())

	a, _ := l.Get("a")
	assert.Equal(t, 10, a.TotalEpisodes)
	assert.Equal(t, 4, a.CollectedEpisodes)
	b, _ := l.Get("b")
	assert.Equal(t, 0, b.TotalEpisodes)
}

func TestEntryReconciliation(t *testing.T) {
	tests := []struct {
		name      string
		entry     Entry
		effective int
		percent   float64
		known     bool
	}{
		{"stale total", Entry{TotalEpisodes: 10, CollectedEpisodes: 12}, 12, 100, true},
		{"partial", Entry{TotalEpisodes: 8, CollectedEpisodes: 2}, 8, 25, true},
		{"unknown total", Entry{CollectedEpisodes: 3}, 3, 0, false},
		{"empty", Entry{}, 0, 0, false},
		{"nothing collected", Entry{TotalEpisodes: 9}, 9, 0, true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.effective, tt.entry.EffectiveTotal())
			assert.Equal(t, tt.percent, tt.entry.PercentCollected())
			assert.Equal(t, tt.known, tt.entry.Known())
		})
	}
}

func TestStaticCounts(t *testing.T) {
	s := StaticCounts{"1": {Episodes: 3}}
	c, err := s.EpisodeCounts(context.Background(), "1")
	require.NoError(t, err)
	assert.Equal(t, 3, c.Episodes)

	_, err = s.EpisodeCounts(context.Background(), "9")
	assert.ErrorIs(t, err, ErrUnknownShow)
}
