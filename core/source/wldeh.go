package source

import (
	"context"
	"encoding/json"
	"fmt"
	"strconv"
	"strings"

	"github.com/gankles/bible-quizzes-christian-2025-sub004/core/books"
	"github.com/gankles/bible-quizzes-christian-2025-sub004/core/errors"
	"github.com/gankles/bible-quizzes-christian-2025-sub004/core/ref"
)

// WldehBaseURL is the jsDelivr mirror of the wldeh/bible-api repository.
const WldehBaseURL = "https://cdn.jsdelivr.net/gh/wldeh/bible-api"

// Wldeh reads static per-verse and per-chapter JSON files of the
// wldeh/bible-api repository. version is the repository's bible id, e.g. "en-asv".
type Wldeh struct {
	desc Descriptor
	http *httpClient
}

// NewWldeh returns a Wldeh source for the given bible version.
func NewWldeh(name, description, version string, opts ...Option) *Wldeh {
	return &Wldeh{
		desc: Descriptor{
			Name:        name,
			Description: description,
			Kind:        KindRemote,
			Provider:    ProviderWldeh,
			Version:     version,
		},
		http: newHTTPClient(name, WldehBaseURL, opts...),
	}
}

// Descriptor implements Source.
func (w *Wldeh) Descriptor() Descriptor { return w.desc }

// wldehBook is the repository's directory name for a book: the slug without
// hyphens ("1john", "songofsolomon"). Books outside the canon are NotFound
// without a request.
func (w *Wldeh) wldehBook(r ref.Reference, resource string) (string, error) {
	b, ok := books.Lookup(r.Book())
	if !ok {
		return "", errors.NewNotFound(resource, r.Key(), w.desc.Name)
	}
	return b.Compact(), nil
}

type wldehVerse struct {
	Verse flexInt `json:"verse"`
	Text  *string `json:"text"`
}

type wldehChapter struct {
	Data []wldehVerse `json:"data"`
}

// RenderText implements Source.
func (w *Wldeh) RenderText(ctx context.Context, r ref.Reference) (string, error) {
	if err := requireBook(r); err != nil {
		return "", err
	}

	book, err := w.wldehBook(r, "verse")
	if err != nil {
		return "", err
	}
	path := fmt.Sprintf("/bibles/%s/books/%s/chapters/%d/verses/%d.json",
		w.desc.Version, book, r.Chapter(), r.Verse())

	var v wldehVerse
	if err := w.http.getJSON(ctx, path, &v); err != nil {
		return "", err
	}
	if v.Text == nil || strings.TrimSpace(*v.Text) == "" {
		return "", errors.NewNotFound("verse", r.Key(), w.desc.Name)
	}
	return Normalize(*v.Text), nil
}

// RenderChapter implements Source.
func (w *Wldeh) RenderChapter(ctx context.Context, r ref.Reference) (*Chapter, error) {
	if err := requireBook(r); err != nil {
		return nil, err
	}

	book, err := w.wldehBook(r, "chapter")
	if err != nil {
		return nil, err
	}
	path := fmt.Sprintf("/bibles/%s/books/%s/chapters/%d.json",
		w.desc.Version, book, r.Chapter())

	var c wldehChapter
	if err := w.http.getJSON(ctx, path, &c); err != nil {
		return nil, err
	}

	ch := NewChapter(r.Slug(), r.Chapter(), w.desc.Name)
	for _, v := range c.Data {
		if v.Text == nil || v.Verse <= 0 {
			continue
		}
		// Some chapters repeat a verse number for split paragraphs.
		if prev, ok := ch.Lookup(int(v.Verse)); ok {
			ch.Add(Verse{Number: int(v.Verse), Text: Normalize(prev.Text + " " + *v.Text)})
			continue
		}
		ch.Add(Verse{Number: int(v.Verse), Text: Normalize(*v.Text)})
	}
	if ch.Len() == 0 {
		return nil, errors.NewNotFound("chapter", r.ChapterKey(), w.desc.Name)
	}
	return ch, nil
}

// flexInt decodes a JSON number or a numeric string.
type flexInt int

func (f *flexInt) UnmarshalJSON(data []byte) error {
	var n int
	if err := json.Unmarshal(data, &n); err == nil {
		*f = flexInt(n)
		return nil
	}
	var s string
	if err := json.Unmarshal(data, &s); err != nil {
		return err
	}
	n, err := strconv.Atoi(strings.TrimSpace(s))
	if err != nil {
		return fmt.Errorf("verse number %q: %w", s, err)
	}
	*f = flexInt(n)
	return nil
}
