package resolver

import (
	"context"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/gankles/bible-quizzes-christian-2025-sub004/core/errors"
	"github.com/gankles/bible-quizzes-christian-2025-sub004/core/ref"
	"github.com/gankles/bible-quizzes-christian-2025-sub004/core/registry"
	"github.com/gankles/bible-quizzes-christian-2025-sub004/core/source"
	"github.com/gankles/bible-quizzes-christian-2025-sub004/internal/cache"
)

// countingSource wraps a Local source, counts calls and can be told to fail
// or block per book slug.
type countingSource struct {
	*source.Local

	textCalls    atomic.Int32
	chapterCalls atomic.Int32

	mu       sync.Mutex
	failures map[string]error
	block    bool
	delay    time.Duration

	inflight    atomic.Int32
	maxInflight atomic.Int32
}

func newCountingSource(name string) *countingSource {
	d := source.NewDataset(map[string]string{
		"genesis-1-1":   "In the beginning God created the heaven and the earth.",
		"genesis-1-2":   "And the earth was without form, and void.",
		"genesis-1-3":   "And God said, Let there be light: and there was light.",
		"genesis-2-1":   "Thus the heavens and the earth were finished.",
		"exodus-1-1":    "Now these are the names of the children of Israel.",
		"leviticus-1-1": "And the LORD called unto Moses.",
		"numbers-1-1":   "And the LORD spake unto Moses in the wilderness of Sinai.",
		"psalms-23-1":   "The LORD is my shepherd; I shall not want.",
		"john-3-16":     "For God so loved the world.",
	})
	return &countingSource{Local: source.NewLocal(name, "test source", d), failures: map[string]error{}}
}

func (s *countingSource) fail(slug string, err error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.failures[slug] = err
}

func (s *countingSource) before(ctx context.Context, r ref.Reference) error {
	n := s.inflight.Add(1)
	defer s.inflight.Add(-1)
	for {
		m := s.maxInflight.Load()
		if n <= m || s.maxInflight.CompareAndSwap(m, n) {
			break
		}
	}

	s.mu.Lock()
	err, block, delay := s.failures[r.Slug()], s.block, s.delay
	s.mu.Unlock()

	if block {
		<-ctx.Done()
		return ctx.Err()
	}
	if delay > 0 {
		time.Sleep(delay)
	}
	return err
}

func (s *countingSource) RenderText(ctx context.Context, r ref.Reference) (string, error) {
	s.textCalls.Add(1)
	if err := s.before(ctx, r); err != nil {
		return "", err
	}
	return s.Local.RenderText(ctx, r)
}

func (s *countingSource) RenderChapter(ctx context.Context, r ref.Reference) (*source.Chapter, error) {
	s.chapterCalls.Add(1)
	if err := s.before(ctx, r); err != nil {
		return nil, err
	}
	return s.Local.RenderChapter(ctx, r)
}

type fakeClock struct {
	mu  sync.Mutex
	now time.Time
}

func (c *fakeClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *fakeClock) Advance(d time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.now = c.now.Add(d)
}

type fixture struct {
	src   *countingSource
	cache *cache.Cache[Entry]
	res   *Resolver
	clock *fakeClock
}

func newFixture(t *testing.T, opts ...Option) *fixture {
	t.Helper()
	clock := &fakeClock{now: time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC)}
	c := cache.New[Entry](cache.Config{DefaultTTL: time.Hour, SweepInterval: -1, Now: clock.Now})
	t.Cleanup(func() { _ = c.Close() })

	src := newCountingSource("Local")
	reg, err := registry.New(src)
	require.NoError(t, err)

	return &fixture{src: src, cache: c, res: New(reg, c, opts...), clock: clock}
}

func TestResolveOne(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	got := f.res.ResolveOne(ctx, "psalm 23:1", "local")
	require.True(t, got.OK(), "err: %v", got.Err)
	assert.Equal(t, StatusResolved, got.Status)
	assert.Equal(t, "The LORD is my shepherd; I shall not want.", got.Passage.Text)
	assert.Equal(t, "Psalms", got.Passage.Book)
	assert.Equal(t, "psalms", got.Passage.BookSlug)
	assert.Equal(t, "Psalms 23:1", got.Passage.Reference)
	assert.Equal(t, "Local", got.Passage.Source)
	assert.Equal(t, "psalm 23:1", got.Input)
}

func TestResolveOneServedFromCache(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	first := f.res.ResolveOne(ctx, "Genesis 1:1", "LOCAL")
	second := f.res.ResolveOne(ctx, "genesis 1:1", "local")

	require.True(t, first.OK())
	require.True(t, second.OK())
	assert.Equal(t, first.Passage.Text, second.Passage.Text)
	assert.Equal(t, int32(1), f.src.textCalls.Load())
	assert.Contains(t, f.cache.Keys(), "verse:genesis:1:1:LOCAL")
}

func TestResolveOneMalformed(t *testing.T) {
	f := newFixture(t)

	for _, text := range []string{"", "   ", ":::"} {
		got := f.res.ResolveOne(context.Background(), text, "LOCAL")
		assert.Equal(t, StatusMalformed, got.Status, "input %q", text)
		assert.ErrorIs(t, got.Err, errors.ErrInvalidInput)
		assert.Nil(t, got.Passage)
	}
	assert.Equal(t, int32(0), f.src.textCalls.Load())
}

func TestResolveOneUnsupportedSource(t *testing.T) {
	f := newFixture(t)

	got := f.res.ResolveOne(context.Background(), "John 3:16", "NOPE")
	assert.Equal(t, StatusUnsupported, got.Status)
	assert.ErrorIs(t, got.Err, errors.ErrUnsupported)
}

func TestResolveOneUnknownBook(t *testing.T) {
	f := newFixture(t)

	got := f.res.ResolveOne(context.Background(), "Hezekiah 1:1", "LOCAL")
	assert.Equal(t, StatusNotFound, got.Status)
	assert.ErrorIs(t, got.Err, errors.ErrNotFound)

	for _, key := range f.cache.Keys() {
		assert.NotContains(t, key, "genesis")
	}
}

func TestNegativeTTLs(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	f.src.fail("exodus", errors.NewUnavailable("Local", 503, nil))

	got := f.res.ResolveOne(ctx, "Hezekiah 1:1", "LOCAL")
	assert.Equal(t, StatusNotFound, got.Status)
	got = f.res.ResolveOne(ctx, "Exodus 1:1", "LOCAL")
	assert.Equal(t, StatusUnavailable, got.Status)
	assert.Equal(t, int32(2), f.src.textCalls.Load())

	// Both negative results are replayed from the cache.
	f.res.ResolveOne(ctx, "Hezekiah 1:1", "LOCAL")
	f.res.ResolveOne(ctx, "Exodus 1:1", "LOCAL")
	assert.Equal(t, int32(2), f.src.textCalls.Load())

	// Unavailable expires after a minute, not found does not.
	f.clock.Advance(2 * time.Minute)
	f.src.fail("exodus", nil)
	got = f.res.ResolveOne(ctx, "Exodus 1:1", "LOCAL")
	assert.Equal(t, StatusResolved, got.Status)
	got = f.res.ResolveOne(ctx, "Hezekiah 1:1", "LOCAL")
	assert.Equal(t, StatusNotFound, got.Status)
	assert.Equal(t, int32(3), f.src.textCalls.Load())

	f.clock.Advance(25 * time.Hour)
	f.res.ResolveOne(ctx, "Hezekiah 1:1", "LOCAL")
	assert.Equal(t, int32(4), f.src.textCalls.Load())
}

func TestMalformedFromSourceIsNotCached(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	f.src.fail("genesis", errors.NewParse("verse", "", "bad payload"))

	for i := 0; i < 2; i++ {
		got := f.res.ResolveOne(ctx, "Genesis 1:1", "LOCAL")
		assert.Equal(t, StatusMalformed, got.Status)
	}
	assert.Equal(t, int32(2), f.src.textCalls.Load())
}

func TestWithTTLsOverrides(t *testing.T) {
	f := newFixture(t, WithTTLs(TTLTable{CategoryUnavailable: 10 * time.Second}))

	ttls := f.res.TTLs()
	assert.Equal(t, 10*time.Second, ttls[CategoryUnavailable])
	assert.Equal(t, 24*time.Hour, ttls[CategoryNotFound])

	ttls[CategoryVerse] = 0
	assert.Equal(t, 24*time.Hour, f.res.TTLs()[CategoryVerse], "TTLs returns a copy")
}

func TestResolveManyGroupsByChapter(t *testing.T) {
	f := newFixture(t)

	results := f.res.ResolveMany(context.Background(), []string{"Genesis 1:1", "Genesis 1:3", "Genesis 2:1"}, "LOCAL")

	require.Len(t, results, 3)
	for i, r := range results {
		assert.Equal(t, i, r.Index)
		assert.True(t, r.OK(), "result %d: %v", i, r.Err)
	}
	assert.Equal(t, "In the beginning God created the heaven and the earth.", results[0].Passage.Text)
	assert.Equal(t, "And God said, Let there be light: and there was light.", results[1].Passage.Text)
	assert.Equal(t, "Thus the heavens and the earth were finished.", results[2].Passage.Text)
	assert.Equal(t, int32(2), f.src.chapterCalls.Load())
	assert.Equal(t, int32(0), f.src.textCalls.Load())
}

func TestResolveManyLength(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	assert.Empty(t, f.res.ResolveMany(ctx, nil, "LOCAL"))

	dup := f.res.ResolveMany(ctx, []string{"John 3:16", "John 3:16"}, "LOCAL")
	require.Len(t, dup, 2)
	assert.True(t, dup[0].OK())
	assert.True(t, dup[1].OK())
	assert.Equal(t, int32(1), f.src.chapterCalls.Load())

	mixed := f.res.ResolveMany(ctx, []string{"", "John 3:16", ":::", "Genesis 1:99", "Hezekiah 1:1"}, "LOCAL")
	require.Len(t, mixed, 5)
	assert.Equal(t, StatusMalformed, mixed[0].Status)
	assert.Equal(t, StatusResolved, mixed[1].Status)
	assert.Equal(t, StatusMalformed, mixed[2].Status)
	assert.Equal(t, StatusNotFound, mixed[3].Status)
	assert.Equal(t, StatusNotFound, mixed[4].Status)
	assert.Equal(t, ":::", mixed[2].Input)
}

func TestResolveManyIsolatesFailedGroup(t *testing.T) {
	f := newFixture(t)
	f.src.fail("exodus", errors.NewUnavailable("Local", 503, nil))

	results := f.res.ResolveMany(context.Background(),
		[]string{"Genesis 1:1", "Exodus 1:1", "John 3:16", "Exodus 1:1"}, "LOCAL")

	require.Len(t, results, 4)
	want := []Status{StatusResolved, StatusUnavailable, StatusResolved, StatusUnavailable}
	for i, r := range results {
		assert.Equal(t, i, r.Index)
		assert.Equal(t, want[i], r.Status, "result %d", i)
	}
	assert.Equal(t, "In the beginning God created the heaven and the earth.", results[0].Passage.Text)
	assert.Equal(t, "For God so loved the world.", results[2].Passage.Text)
	assert.ErrorIs(t, results[1].Err, errors.ErrUnavailable)
	assert.ErrorIs(t, results[3].Err, errors.ErrUnavailable)
	assert.Equal(t, int32(3), f.src.chapterCalls.Load())
}

func TestResolveManyUnsupportedSource(t *testing.T) {
	f := newFixture(t)

	results := f.res.ResolveMany(context.Background(), []string{"John 3:16", "", "Genesis 1:1"}, "NOPE")
	require.Len(t, results, 3)
	assert.Equal(t, StatusUnsupported, results[0].Status)
	assert.Equal(t, StatusMalformed, results[1].Status)
	assert.Equal(t, StatusUnsupported, results[2].Status)
}

func TestResolveManyCancelled(t *testing.T) {
	f := newFixture(t)
	f.src.block = true

	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()

	results := f.res.ResolveMany(ctx, []string{"Genesis 1:1", "Exodus 1:1", "", "John 3:16"}, "LOCAL")
	require.Len(t, results, 4)
	for i, r := range results {
		if i == 2 {
			assert.Equal(t, StatusMalformed, r.Status)
			continue
		}
		assert.Equal(t, StatusUnavailable, r.Status, "result %d", i)
		assert.Error(t, r.Err)
	}

	// Cancellation is never cached.
	for _, key := range f.cache.Keys() {
		assert.NotContains(t, key, "chapter:")
	}
}

func TestResolveManyMaxConcurrency(t *testing.T) {
	f := newFixture(t, WithMaxConcurrency(2))
	f.src.delay = 10 * time.Millisecond

	texts := []string{"Genesis 1:1", "Genesis 2:1", "Exodus 1:1", "Leviticus 1:1", "Numbers 1:1", "Psalm 23:1", "John 3:16"}
	results := f.res.ResolveMany(context.Background(), texts, "LOCAL")

	require.Len(t, results, len(texts))
	for i, r := range results {
		assert.True(t, r.OK(), "result %d: %v", i, r.Err)
	}
	assert.LessOrEqual(t, f.src.maxInflight.Load(), int32(2))
	assert.Equal(t, int32(len(texts)), f.src.chapterCalls.Load())
}

func TestResolveRefs(t *testing.T) {
	f := newFixture(t)

	refs := []ref.Reference{ref.New("John", 3, 16), {}, ref.New("Genesis", 1, 2)}
	results := f.res.ResolveRefs(context.Background(), refs, "LOCAL")

	require.Len(t, results, 3)
	assert.True(t, results[0].OK())
	assert.Equal(t, "John 3:16", results[0].Input)
	assert.Equal(t, StatusMalformed, results[1].Status)
	assert.True(t, results[2].OK())
}

func TestChapter(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	ch, err := f.res.Chapter(ctx, "Genesis", 1, "LOCAL")
	require.NoError(t, err)
	assert.Equal(t, []int{1, 2, 3}, ch.Numbers())

	_, err = f.res.Chapter(ctx, "Genesis", 1, "LOCAL")
	require.NoError(t, err)
	assert.Equal(t, int32(1), f.src.chapterCalls.Load())

	_, err = f.res.Chapter(ctx, "Genesis", 40, "LOCAL")
	assert.ErrorIs(t, err, errors.ErrNotFound)

	_, err = f.res.Chapter(ctx, "", 1, "LOCAL")
	assert.ErrorIs(t, err, errors.ErrInvalidInput)
}

func TestInvalidate(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	f.res.ResolveOne(ctx, "John 3:16", "LOCAL")
	f.res.ResolveMany(ctx, []string{"John 3:16"}, "LOCAL")
	assert.Contains(t, f.cache.Keys(), "verse:john:3:16:LOCAL")
	assert.Contains(t, f.cache.Keys(), "chapter:john:3:LOCAL")

	f.res.Invalidate(ctx, "local", ref.New("John", 3, 16))
	assert.Empty(t, f.cache.Keys())

	f.res.ResolveOne(ctx, "John 3:16", "LOCAL")
	assert.Equal(t, int32(2), f.src.textCalls.Load())
}

func TestListing(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	var calls atomic.Int32
	load := func(context.Context) ([]string, error) {
		calls.Add(1)
		return []string{"LOCAL"}, nil
	}

	for i := 0; i < 3; i++ {
		got, err := Listing(ctx, f.res, "sources", load)
		require.NoError(t, err)
		assert.Equal(t, []string{"LOCAL"}, got)
	}
	assert.Equal(t, int32(1), calls.Load())
	assert.Contains(t, f.cache.Keys(), "listing:sources")

	f.clock.Advance(2 * time.Hour)
	_, err := Listing(ctx, f.res, "sources", load)
	require.NoError(t, err)
	assert.Equal(t, int32(2), calls.Load())

	_, err = Listing(ctx, f.res, "broken", func(context.Context) (int, error) {
		return 0, errors.NewUnavailable("x", 0, nil)
	})
	assert.Error(t, err)
	assert.NotContains(t, f.cache.Keys(), "listing:broken")
}

func TestCacheKeys(t *testing.T) {
	assert.Equal(t, "verse:genesis:1:1:LOCAL", VerseKey("genesis", 1, 1, "Local"))
	assert.Equal(t, "chapter:1-john:4:BOLLS-KJV", ChapterKey("1-john", 4, " bolls-kjv "))
	assert.Equal(t, "listing:sources", ListingKey("sources"))
}
