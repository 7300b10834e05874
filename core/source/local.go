package source

import (
	"context"

	"github.com/gankles/bible-quizzes-christian-2025-sub004/core/errors"
	"github.com/gankles/bible-quizzes-christian-2025-sub004/core/ref"
)

// Local serves text from an in-memory Dataset.
type Local struct {
	desc    Descriptor
	dataset *Dataset
}

// NewLocal returns a local source named name backed by d.
func NewLocal(name, description string, d *Dataset) *Local {
	if d == nil {
		d = NewDataset(nil)
	}
	return &Local{
		desc: Descriptor{
			Name:        name,
			Description: description,
			Kind:        KindLocal,
			Provider:    ProviderLocal,
		},
		dataset: d,
	}
}

// Descriptor implements Source.
func (l *Local) Descriptor() Descriptor { return l.desc }

// Dataset returns the backing dataset.
func (l *Local) Dataset() *Dataset { return l.dataset }

// RenderText implements Source.
func (l *Local) RenderText(ctx context.Context, r ref.Reference) (string, error) {
	if err := requireBook(r); err != nil {
		return "", err
	}
	if err := ctx.Err(); err != nil {
		return "", errors.NewUnavailable(l.desc.Name, 0, err)
	}

	text, ok := l.dataset.Lookup(r.Key())
	if !ok {
		return "", errors.NewNotFound("verse", r.Key(), l.desc.Name)
	}
	return Normalize(text), nil
}

// RenderChapter implements Source.
func (l *Local) RenderChapter(ctx context.Context, r ref.Reference) (*Chapter, error) {
	if err := requireBook(r); err != nil {
		return nil, err
	}
	if err := ctx.Err(); err != nil {
		return nil, errors.NewUnavailable(l.desc.Name, 0, err)
	}

	verses, ok := l.dataset.Chapter(r.Slug(), r.Chapter())
	if !ok {
		return nil, errors.NewNotFound("chapter", r.ChapterKey(), l.desc.Name)
	}

	ch := NewChapter(r.Slug(), r.Chapter(), l.desc.Name)
	for n, text := range verses {
		ch.Add(Verse{Number: n, Text: Normalize(text)})
	}
	return ch, nil
}
