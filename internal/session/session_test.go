package session

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/KaramelBytes/docassist/internal/analysis"
	"github.com/KaramelBytes/docassist/internal/parser"
	"github.com/stretchr/testify/require"
)

func newTestSession(t *testing.T, cacheSize int) *Session {
	t.Helper()
	cache, err := NewCache(cacheSize, nil)
	require.NoError(t, err)
	return New(NewFiles(0), cache, analysis.DefaultOptions(), nil)
}

func TestAnalyzeCachesAndUpdatesContext(t *testing.T) {
	s := newTestSession(t, 4)
	uf, err := s.Files.Add("people.csv", []byte("name,age\nAlice,30\nBob,25\n"))
	require.NoError(t, err)
	require.False(t, s.HasAnalyses())

	rep, err := s.Analyze(context.Background(), uf.ID)
	require.NoError(t, err)
	require.Equal(t, 2, rep.RowCount)
	require.Equal(t, []string{"age"}, rep.NumericColumns())
	require.True(t, s.HasAnalyses())

	again, err := s.Analyze(context.Background(), uf.ID)
	require.NoError(t, err)
	require.Same(t, rep, again)

	c := s.Context()
	require.Equal(t, "people.csv", c.DataSource)
	require.Same(t, rep, c.LastAnalysis)
}

func TestAnalyzeRejectsConcurrentRun(t *testing.T) {
	s := newTestSession(t, 4)
	uf, err := s.Files.Add("a.csv", []byte("x\n1\n"))
	require.NoError(t, err)

	s.inFlight[uf.ID] = true
	_, err = s.Analyze(context.Background(), uf.ID)
	require.ErrorIs(t, err, ErrAnalysisInFlight)

	delete(s.inFlight, uf.ID)
	_, err = s.Analyze(context.Background(), uf.ID)
	require.NoError(t, err)
	require.Empty(t, s.inFlight)
}

func TestAnalyzeErrorsClearInFlight(t *testing.T) {
	s := newTestSession(t, 4)
	xls, err := s.Files.Add("legacy.xls", []byte{0xd0, 0xcf, 0x11})
	require.NoError(t, err)
	_, err = s.Analyze(context.Background(), xls.ID)
	require.ErrorIs(t, err, parser.ErrLegacyExcel)
	require.Empty(t, s.inFlight)
	require.False(t, s.HasAnalyses())

	empty, err := s.Files.Add("empty.csv", []byte("\n\n"))
	require.NoError(t, err)
	_, err = s.Analyze(context.Background(), empty.ID)
	require.ErrorIs(t, err, analysis.ErrEmptyInput)

	_, err = s.Analyze(context.Background(), "missing")
	require.ErrorIs(t, err, ErrNotFound)
}

func TestAnalyzeHonoursCancelledContext(t *testing.T) {
	s := newTestSession(t, 4)
	uf, err := s.Files.Add("a.csv", []byte("x\n1\n"))
	require.NoError(t, err)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err = s.Analyze(ctx, uf.ID)
	require.ErrorIs(t, err, context.Canceled)
}

func TestRemoveEvictsCachedReport(t *testing.T) {
	s := newTestSession(t, 4)
	uf, err := s.Files.Add("a.csv", []byte("x\n1\n"))
	require.NoError(t, err)
	_, err = s.Analyze(context.Background(), uf.ID)
	require.NoError(t, err)
	require.Equal(t, 1, s.Cache.Len())

	require.NoError(t, s.Remove(uf.ID))
	require.Equal(t, 0, s.Cache.Len())
	require.ErrorIs(t, s.Remove(uf.ID), ErrNotFound)
}

func TestRemoveRacingAnalyzeLeavesNoReport(t *testing.T) {
	s := newTestSession(t, 64)
	for i := 0; i < 50; i++ {
		uf, err := s.Files.Add("a.csv", []byte("x,y\n1,2\n3,4\n"))
		require.NoError(t, err)
		var wg sync.WaitGroup
		wg.Add(2)
		go func() {
			defer wg.Done()
			_, _ = s.Analyze(context.Background(), uf.ID)
		}()
		go func() {
			defer wg.Done()
			_ = s.Remove(uf.ID)
		}()
		wg.Wait()
		_, cached := s.Cache.Get(uf.ID)
		_, present := s.Files.Get(uf.ID)
		require.False(t, cached && !present, "report cached for removed file")
	}
}

func TestRemoveWaitsForAnalysisCommit(t *testing.T) {
	s := newTestSession(t, 4)
	uf, err := s.Files.Add("a.csv", []byte("x\n1\n"))
	require.NoError(t, err)

	s.mu.Lock()
	done := make(chan error, 1)
	go func() { done <- s.Remove(uf.ID) }()
	select {
	case <-done:
		t.Fatal("Remove finished while an analysis commit held the lock")
	case <-time.After(20 * time.Millisecond):
	}
	s.Cache.Put(uf.ID, &analysis.Report{SourceName: "a.csv"})
	s.mu.Unlock()

	require.NoError(t, <-done)
	require.Equal(t, 0, s.Cache.Len())
}

func TestCacheBoundedAndLatest(t *testing.T) {
	s := newTestSession(t, 2)
	var ids []string
	for _, name := range []string{"one.csv", "two.csv", "three.csv"} {
		uf, err := s.Files.Add(name, []byte("x\n1\n"))
		require.NoError(t, err)
		_, err = s.Analyze(context.Background(), uf.ID)
		require.NoError(t, err)
		ids = append(ids, uf.ID)
	}
	require.Equal(t, 2, s.Cache.Len())
	_, ok := s.Cache.Get(ids[0])
	require.False(t, ok)

	latest, ok := s.Cache.Latest()
	require.True(t, ok)
	require.Equal(t, "three.csv", latest.SourceName)

	reports := s.Cache.Reports()
	require.Len(t, reports, 2)
	require.Equal(t, "two.csv", reports[0].SourceName)
}

func TestContextPreferencesAreCopied(t *testing.T) {
	s := newTestSession(t, 1)
	s.SetDocument("report", "sales")
	s.SetDocument("article", "")
	s.SetPreference("tone", "casual")

	c := s.Context()
	require.Equal(t, "article", c.DocumentType)
	require.Equal(t, "sales", c.Topic)
	c.Preferences["tone"] = "formal"
	require.Equal(t, "casual", s.Context().Preferences["tone"])
}
