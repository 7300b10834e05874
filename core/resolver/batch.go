package resolver

import (
	"context"
	"time"

	"github.com/gankles/bible-quizzes-christian-2025-sub004/core/errors"
	"github.com/gankles/bible-quizzes-christian-2025-sub004/core/ref"
	"github.com/gankles/bible-quizzes-christian-2025-sub004/core/source"
	"github.com/gankles/bible-quizzes-christian-2025-sub004/internal/logging"
	"github.com/gankles/bible-quizzes-christian-2025-sub004/internal/workerpool"
)

// group is the set of input positions that share one chapter.
type group struct {
	ref     ref.Reference
	indices []int
}

type groupResult struct {
	group *group
	entry Entry
	err   error
}

// ResolveMany resolves every text against the named source. The result has
// one entry per input, in input order. Each distinct (book, chapter) costs at
// most one backend call. If ctx ends first, positions not yet resolved are
// reported as StatusUnavailable with the context error.
func (res *Resolver) ResolveMany(ctx context.Context, texts []string, sourceName string) []Result {
	refs := make([]ref.Reference, len(texts))
	for i, text := range texts {
		refs[i] = ref.Parse(text)
	}
	return res.resolveBatch(ctx, texts, refs, sourceName)
}

// ResolveRefs is ResolveMany for already parsed references.
func (res *Resolver) ResolveRefs(ctx context.Context, refs []ref.Reference, sourceName string) []Result {
	inputs := make([]string, len(refs))
	for i, r := range refs {
		inputs[i] = r.String()
	}
	return res.resolveBatch(ctx, inputs, refs, sourceName)
}

func (res *Resolver) resolveBatch(ctx context.Context, inputs []string, refs []ref.Reference, sourceName string) []Result {
	start := time.Now()
	ctx = logging.WithBatchID(ctx, logging.NewBatchID())

	results := make([]Result, len(refs))
	for i := range refs {
		results[i] = Result{Index: i, Input: inputs[i], Ref: refs[i]}
	}
	if len(refs) == 0 {
		return results
	}

	src, srcErr := res.lookup(sourceName)

	var groups []*group
	byKey := make(map[string]*group)
	for i, r := range refs {
		if r.IsZero() {
			results[i].Status = StatusMalformed
			results[i].Err = errors.NewMalformedReference(inputs[i])
			continue
		}
		if srcErr != nil {
			results[i].Status = StatusUnsupported
			results[i].Err = srcErr
			continue
		}
		key := r.ChapterKey()
		g, ok := byKey[key]
		if !ok {
			g = &group{ref: r}
			byKey[key] = g
			groups = append(groups, g)
		}
		g.indices = append(g.indices, i)
	}

	if len(groups) > 0 {
		res.fanOut(ctx, src, groups, results)
	}

	resolved := 0
	for i := range results {
		if results[i].Status == "" {
			results[i].Status = StatusUnavailable
			results[i].Err = ctx.Err()
		}
		if results[i].OK() {
			resolved++
		}
	}
	logging.BatchResolved(ctx, res.logger, sourceName, len(refs), len(groups), resolved, time.Since(start))
	return results
}

// fanOut fetches every group's chapter concurrently and scatters results as
// they arrive. It returns early if ctx ends; late results are dropped.
func (res *Resolver) fanOut(ctx context.Context, src source.Source, groups []*group, results []Result) {
	pool := workerpool.New[*group, groupResult](res.maxConcurrency, len(groups))
	pool.Start(ctx, func(ctx context.Context, g *group) groupResult {
		e, err := res.fetchChapter(ctx, src, g.ref)
		return groupResult{group: g, entry: e, err: err}
	})
	for _, g := range groups {
		pool.Submit(g)
	}
	pool.Close()

	name := src.Descriptor().Name
	for pending := len(groups); pending > 0; pending-- {
		select {
		case gr := <-pool.Results():
			scatter(gr, results, name)
		case <-ctx.Done():
			return
		}
	}
}

func scatter(gr groupResult, results []Result, src string) {
	for _, i := range gr.group.indices {
		r := results[i].Ref
		switch {
		case gr.err != nil:
			results[i].Status = statusOf(errors.KindOf(gr.err))
			results[i].Err = gr.err
		case gr.entry.Kind != errors.KindNone:
			results[i].Status = statusOf(gr.entry.Kind)
			results[i].Err = gr.entry.Err
		default:
			v, ok := gr.entry.Chapter.Lookup(r.Verse())
			if !ok {
				results[i].Status = StatusNotFound
				results[i].Err = errors.NewNotFound("verse", r.Key(), src)
				continue
			}
			results[i].Status = StatusResolved
			results[i].Passage = newPassage(r, v.Text, v.Comment, src)
		}
	}
}
