// Package source defines the Text Source abstraction and its concrete
// implementations: a local dataset and the Wldeh and Bolls remote providers.
//
// Every Source converts expected failures into typed errors from core/errors:
// a missing verse or book is *errors.NotFoundError, a transport or decode
// failure is *errors.UnavailableError, and a reference without a book is a
// *errors.ParseError. Raw transport errors never escape.
package source

import (
	"context"
	"sort"

	"github.com/gankles/bible-quizzes-christian-2025-sub004/core/errors"
	"github.com/gankles/bible-quizzes-christian-2025-sub004/core/ref"
)

// Kind classifies where a source reads its text from.
type Kind string

const (
	KindLocal  Kind = "local"
	KindRemote Kind = "remote"
)

// Provider names.
const (
	ProviderLocal = "local"
	ProviderWldeh = "wldeh"
	ProviderBolls = "bolls"
)

// Descriptor is the immutable identity of a Source.
type Descriptor struct {
	Name        string `json:"name"`
	Description string `json:"description"`
	Kind        Kind   `json:"kind"`
	Provider    string `json:"provider"`
	Version     string `json:"version,omitempty"`
}

// Source renders scripture text for a reference.
type Source interface {
	Descriptor() Descriptor

	// RenderText returns the normalized text of a single verse.
	RenderText(ctx context.Context, r ref.Reference) (string, error)

	// RenderChapter returns every verse of the chapter r points at.
	// The verse of r is ignored.
	RenderChapter(ctx context.Context, r ref.Reference) (*Chapter, error)
}

// Verse is one verse of a fetched chapter.
type Verse struct {
	Number  int    `json:"verse"`
	Text    string `json:"text"`
	Comment string `json:"comment,omitempty"`
}

// Chapter is the result of a chapter-level fetch.
type Chapter struct {
	Book   string        `json:"book"`
	Number int           `json:"chapter"`
	Source string        `json:"source"`
	Verses map[int]Verse `json:"verses"`
}

// NewChapter returns an empty chapter ready for verses to be added.
func NewChapter(book string, number int, source string) *Chapter {
	return &Chapter{Book: book, Number: number, Source: source, Verses: make(map[int]Verse)}
}

// Add stores v, replacing any verse with the same number.
func (c *Chapter) Add(v Verse) {
	c.Verses[v.Number] = v
}

// Lookup returns the verse numbered n.
func (c *Chapter) Lookup(n int) (Verse, bool) {
	if c == nil {
		return Verse{}, false
	}
	v, ok := c.Verses[n]
	return v, ok
}

// Len returns the number of verses.
func (c *Chapter) Len() int {
	if c == nil {
		return 0
	}
	return len(c.Verses)
}

// Numbers returns the verse numbers in ascending order.
func (c *Chapter) Numbers() []int {
	if c == nil {
		return nil
	}
	nums := make([]int, 0, len(c.Verses))
	for n := range c.Verses {
		nums = append(nums, n)
	}
	sort.Ints(nums)
	return nums
}

// requireBook rejects references that carry no book. They never reach a backend.
func requireBook(r ref.Reference) error {
	if r.IsZero() {
		return errors.NewMalformedReference(r.String())
	}
	return nil
}
