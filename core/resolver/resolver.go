// Package resolver turns reference text into scripture passages through the
// source registry and the shared cache.
//
// ResolveOne looks up a single verse. ResolveMany groups references by
// (book, chapter), fetches each distinct chapter once (concurrently), and
// scatters the verses back so the i-th result always belongs to the i-th
// input. Failures are isolated per chapter group; a batch never fails as a
// whole and never changes length.
package resolver

import (
	"context"
	"fmt"
	"log/slog"
	"strconv"
	"strings"
	"time"

	"github.com/gankles/bible-quizzes-christian-2025-sub004/core/books"
	"github.com/gankles/bible-quizzes-christian-2025-sub004/core/errors"
	"github.com/gankles/bible-quizzes-christian-2025-sub004/core/ref"
	"github.com/gankles/bible-quizzes-christian-2025-sub004/core/source"
	"github.com/gankles/bible-quizzes-christian-2025-sub004/internal/cache"
	"github.com/gankles/bible-quizzes-christian-2025-sub004/internal/logging"
)

// Status is the outcome of resolving one reference.
type Status string

const (
	StatusResolved    Status = "resolved"
	StatusNotFound    Status = "not_found"
	StatusUnavailable Status = "unavailable"
	StatusMalformed   Status = "malformed"
	StatusUnsupported Status = "unsupported"
)

func statusOf(k errors.Kind) Status {
	switch k {
	case errors.KindNone:
		return StatusResolved
	case errors.KindNotFound:
		return StatusNotFound
	case errors.KindMalformed:
		return StatusMalformed
	case errors.KindUnsupported:
		return StatusUnsupported
	default:
		return StatusUnavailable
	}
}

// Passage is resolved verse text with its identifying metadata.
type Passage struct {
	Ref       ref.Reference   `json:"-"`
	Reference string          `json:"reference"`
	Book      string          `json:"book"`
	BookSlug  string          `json:"book_slug"`
	Testament books.Testament `json:"testament,omitempty"`
	Chapter   int             `json:"chapter"`
	Verse     int             `json:"verse"`
	Text      string          `json:"text"`
	Comment   string          `json:"comment,omitempty"`
	Source    string          `json:"source"`
}

func newPassage(r ref.Reference, text, comment, src string) *Passage {
	p := &Passage{
		Ref:       r,
		Reference: r.String(),
		Book:      r.Book(),
		BookSlug:  r.Slug(),
		Chapter:   r.Chapter(),
		Verse:     r.Verse(),
		Text:      text,
		Comment:   comment,
		Source:    src,
	}
	if b, ok := books.Lookup(r.Book()); ok {
		p.Book = b.Name
		p.Testament = b.Testament
		p.Reference = ref.New(b.Name, r.Chapter(), r.Verse()).String()
	}
	return p
}

// Result is the outcome for one input reference. Passage is nil unless
// Status is StatusResolved.
type Result struct {
	Index   int
	Input   string
	Ref     ref.Reference
	Passage *Passage
	Status  Status
	Err     error
}

// OK reports whether the reference resolved to text.
func (r Result) OK() bool { return r.Status == StatusResolved && r.Passage != nil }

// Entry is the value stored in the cache. A negative entry carries the kind
// and error of the failure so it can be replayed until it expires.
type Entry struct {
	Text    string
	Chapter *source.Chapter
	Value   any
	Kind    errors.Kind
	Err     error
}

// Sources looks up text sources by name.
type Sources interface {
	Get(name string) (source.Source, bool)
}

// Resolver resolves references against named sources through a cache.
type Resolver struct {
	sources        Sources
	cache          *cache.Cache[Entry]
	ttls           TTLTable
	maxConcurrency int
	logger         *slog.Logger
}

// Option configures a Resolver.
type Option func(*Resolver)

// WithTTLs overrides entries of the default TTL table.
func WithTTLs(t TTLTable) Option {
	return func(r *Resolver) {
		for k, v := range t {
			r.ttls[k] = v
		}
	}
}

// WithMaxConcurrency caps concurrent chapter fetches per batch. 0 means one
// goroutine per distinct chapter.
func WithMaxConcurrency(n int) Option {
	return func(r *Resolver) { r.maxConcurrency = max(n, 0) }
}

// WithLogger sets the logger. The global logger is used otherwise.
func WithLogger(l *slog.Logger) Option {
	return func(r *Resolver) { r.logger = l }
}

// New returns a Resolver. The cache is owned by the caller, who closes it.
func New(sources Sources, c *cache.Cache[Entry], opts ...Option) *Resolver {
	r := &Resolver{
		sources: sources,
		cache:   c,
		ttls:    DefaultTTLs(),
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// TTLs returns a copy of the effective TTL table.
func (res *Resolver) TTLs() TTLTable {
	out := make(TTLTable, len(res.ttls))
	for k, v := range res.ttls {
		out[k] = v
	}
	return out
}

// CacheStats returns statistics of the underlying cache.
func (res *Resolver) CacheStats() cache.Stats {
	return res.cache.Stats()
}

// sourceKey is the form of a source name used in cache keys.
func sourceKey(name string) string {
	return strings.ToUpper(strings.TrimSpace(name))
}

// VerseKey is the cache key of a single verse: verse:{slug}:{chapter}:{verse}:{SOURCE}.
func VerseKey(slug string, chapter, verse int, src string) string {
	return "verse:" + slug + ":" + strconv.Itoa(chapter) + ":" + strconv.Itoa(verse) + ":" + sourceKey(src)
}

// ChapterKey is the cache key of a chapter: chapter:{slug}:{chapter}:{SOURCE}.
func ChapterKey(slug string, chapter int, src string) string {
	return "chapter:" + slug + ":" + strconv.Itoa(chapter) + ":" + sourceKey(src)
}

// ListingKey is the cache key of a named listing.
func ListingKey(name string) string {
	return "listing:" + name
}

func (res *Resolver) lookup(name string) (source.Source, error) {
	src, ok := res.sources.Get(name)
	if !ok {
		return nil, errors.NewUnsupported("source", fmt.Sprintf("%q is not registered", name))
	}
	return src, nil
}

// ResolveOne parses text and resolves it as a single verse from the named source.
func (res *Resolver) ResolveOne(ctx context.Context, text, sourceName string) Result {
	return res.ResolveRef(ctx, ref.Parse(text), text, sourceName)
}

// ResolveRef resolves an already parsed reference. input is echoed in the Result.
func (res *Resolver) ResolveRef(ctx context.Context, r ref.Reference, input, sourceName string) Result {
	result := Result{Input: input, Ref: r}

	if r.IsZero() {
		result.Status = StatusMalformed
		result.Err = errors.NewMalformedReference(input)
		return result
	}
	src, err := res.lookup(sourceName)
	if err != nil {
		result.Status = StatusUnsupported
		result.Err = err
		return result
	}

	name := src.Descriptor().Name
	key := VerseKey(r.Slug(), r.Chapter(), r.Verse(), name)
	e, err := res.cache.GetOrSetFunc(ctx, key, func(ctx context.Context) (Entry, time.Duration, error) {
		start := time.Now()
		text, err := src.RenderText(ctx, r)
		if err != nil {
			return res.negative(ctx, name, key, err)
		}
		logging.SourceFetch(ctx, res.logger, name, key, time.Since(start))
		return Entry{Text: text}, res.ttls.For(CategoryVerse), nil
	})
	return res.finish(result, e, err, func() *Passage {
		return newPassage(r, e.Text, "", name)
	})
}

// finish fills the status of result from a cache outcome.
func (res *Resolver) finish(result Result, e Entry, err error, passage func() *Passage) Result {
	switch {
	case err != nil:
		result.Status = statusOf(errors.KindOf(err))
		result.Err = err
	case e.Kind != errors.KindNone:
		result.Status = statusOf(e.Kind)
		result.Err = e.Err
	default:
		result.Status = StatusResolved
		result.Passage = passage()
	}
	return result
}

// negative turns a source failure into a cacheable negative entry with the
// TTL of its category. Failures caused by the caller's own cancellation are
// returned as errors and never stored.
func (res *Resolver) negative(ctx context.Context, src, key string, err error) (Entry, time.Duration, error) {
	if ctxErr := ctx.Err(); ctxErr != nil {
		return Entry{}, 0, ctxErr
	}

	kind := errors.KindOf(err)
	logging.SourceError(ctx, res.logger, src, key, kind.String(), err)

	switch kind {
	case errors.KindNotFound:
		return Entry{Kind: kind, Err: err}, res.ttls.For(CategoryNotFound), nil
	case errors.KindMalformed:
		return Entry{Kind: kind, Err: err}, 0, nil
	default:
		return Entry{Kind: errors.KindUnavailable, Err: err}, res.ttls.For(CategoryUnavailable), nil
	}
}

// Chapter returns a whole chapter from the named source through the cache.
func (res *Resolver) Chapter(ctx context.Context, book string, chapter int, sourceName string) (*source.Chapter, error) {
	r := ref.New(book, chapter, 1)
	if r.IsZero() {
		return nil, errors.NewMalformedReference(book)
	}
	src, err := res.lookup(sourceName)
	if err != nil {
		return nil, err
	}
	e, err := res.fetchChapter(ctx, src, r)
	if err != nil {
		return nil, err
	}
	if e.Kind != errors.KindNone {
		return nil, e.Err
	}
	return e.Chapter, nil
}

func (res *Resolver) fetchChapter(ctx context.Context, src source.Source, r ref.Reference) (Entry, error) {
	name := src.Descriptor().Name
	key := ChapterKey(r.Slug(), r.Chapter(), name)
	return res.cache.GetOrSetFunc(ctx, key, func(ctx context.Context) (Entry, time.Duration, error) {
		start := time.Now()
		ch, err := src.RenderChapter(ctx, r)
		if err != nil {
			return res.negative(ctx, name, key, err)
		}
		logging.SourceFetch(ctx, res.logger, name, key, time.Since(start), "verses", ch.Len())
		return Entry{Chapter: ch}, res.ttls.For(CategoryChapter), nil
	})
}

// Invalidate drops the cached verse and chapter entries for r in the named source.
func (res *Resolver) Invalidate(ctx context.Context, sourceName string, r ref.Reference) {
	if r.IsZero() {
		return
	}
	name := sourceName
	if src, ok := res.sources.Get(sourceName); ok {
		name = src.Descriptor().Name
	}
	for _, key := range []string{
		VerseKey(r.Slug(), r.Chapter(), r.Verse(), name),
		ChapterKey(r.Slug(), r.Chapter(), name),
	} {
		res.cache.Delete(key)
		logging.CacheEvent(ctx, res.logger, "invalidate", key)
	}
}

// Listing caches an aggregate value under name for the listing TTL.
// fn runs at most once per TTL window; errors are not cached.
func Listing[V any](ctx context.Context, res *Resolver, name string, fn func(context.Context) (V, error)) (V, error) {
	var zero V
	e, err := res.cache.GetOrSet(ctx, ListingKey(name), res.ttls.For(CategoryListing), func(ctx context.Context) (Entry, error) {
		v, err := fn(ctx)
		if err != nil {
			return Entry{}, err
		}
		return Entry{Value: v}, nil
	})
	if err != nil {
		return zero, err
	}
	v, ok := e.Value.(V)
	if !ok {
		return zero, fmt.Errorf("listing %q holds %T", name, e.Value)
	}
	return v, nil
}
