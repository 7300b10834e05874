// Package ref provides the scripture reference key: an immutable
// (book, chapter, verse) value parsed from free text such as "John 3:16".
package ref

import (
	"fmt"
	"strconv"
	"strings"
	"unicode"

	"github.com/alecthomas/participle/v2"
	"github.com/alecthomas/participle/v2/lexer"

	"github.com/gankles/bible-quizzes-christian-2025-sub004/core/books"
)

// Reference identifies a single verse. The zero value has an empty book and
// is not resolvable; use IsZero to detect it.
//
// Reference is a value type: every "mutation" returns a new Reference, so
// copies never share state.
type Reference struct {
	book    string
	chapter int
	verse   int
}

// New builds a Reference. Chapter and verse below 1 are clamped to 1.
func New(book string, chapter, verse int) Reference {
	return Reference{
		book:    normalizeBook(book),
		chapter: max(chapter, 1),
		verse:   max(verse, 1),
	}
}

// Book returns the book name as written (whitespace collapsed).
func (r Reference) Book() string { return r.book }

// Chapter returns the chapter number (>= 1 for any constructed Reference).
func (r Reference) Chapter() int { return max(r.chapter, 1) }

// Verse returns the verse number (>= 1 for any constructed Reference).
func (r Reference) Verse() int { return max(r.verse, 1) }

// IsZero reports whether the reference has no book and therefore cannot be resolved.
func (r Reference) IsZero() bool { return r.book == "" }

// WithBook returns a copy with the book replaced.
func (r Reference) WithBook(book string) Reference {
	return New(book, r.Chapter(), r.Verse())
}

// WithChapter returns a copy with the chapter replaced.
func (r Reference) WithChapter(chapter int) Reference {
	return New(r.book, chapter, r.Verse())
}

// WithVerse returns a copy with the verse replaced.
func (r Reference) WithVerse(verse int) Reference {
	return New(r.book, r.Chapter(), verse)
}

// Next returns the reference of the following verse in the same chapter.
func (r Reference) Next() Reference {
	return r.WithVerse(r.Verse() + 1)
}

// Prev returns the reference of the preceding verse. Verse 1 stays at verse 1.
func (r Reference) Prev() Reference {
	return r.WithVerse(r.Verse() - 1)
}

// String returns the canonical text form "Book C:V", or "" for the zero reference.
func (r Reference) String() string {
	if r.IsZero() {
		return ""
	}
	return r.book + " " + strconv.Itoa(r.Chapter()) + ":" + strconv.Itoa(r.Verse())
}

// Slug returns the book in slug form, resolving known aliases ("Psalm" -> "psalms").
func (r Reference) Slug() string {
	return books.SlugFor(r.book)
}

// Key returns the dataset key "slug-chapter-verse", e.g. "genesis-1-1".
func (r Reference) Key() string {
	return fmt.Sprintf("%s-%d-%d", r.Slug(), r.Chapter(), r.Verse())
}

// ChapterKey returns "slug-chapter", the grouping key for chapter-level fetches.
func (r Reference) ChapterKey() string {
	return fmt.Sprintf("%s-%d", r.Slug(), r.Chapter())
}

// Equal reports whether two references address the same verse, comparing
// books by slug so "Psalm 23:1" equals "psalms 23:1".
func (r Reference) Equal(other Reference) bool {
	return r.Slug() == other.Slug() && r.Chapter() == other.Chapter() && r.Verse() == other.Verse()
}

func normalizeBook(book string) string {
	return strings.Join(strings.Fields(book), " ")
}

// refLexer tokenizes human-style references.
// Words may carry apostrophes or periods ("Gen.", "Solomon's").
var refLexer = lexer.MustSimple([]lexer.SimpleRule{
	{Name: "Int", Pattern: `[0-9]+`},
	{Name: "Word", Pattern: `\p{L}[\p{L}\p{M}'’.]*`},
	{Name: "Punct", Pattern: `[:\-]`},
	{Name: "Whitespace", Pattern: `\s+`},
})

// bookName is an optional numeric prefix ("1", "2", "3") and one or more words.
//
//nolint:govet // participle grammar tags are not standard struct tags
type bookName struct {
	Prefix string   `@Int?`
	Words  []string `@Word+`
}

func (b bookName) String() string {
	if b.Prefix == "" {
		return strings.Join(b.Words, " ")
	}
	return b.Prefix + " " + strings.Join(b.Words, " ")
}

// verseForm: "John 3:16", "John 3-16", "John 3:16-18" (range keeps the first verse).
// Numbers are captured as strings and converted in base 10, so "1:09" is verse 9.
//
//nolint:govet // participle grammar tags are not standard struct tags
type verseForm struct {
	Book     bookName `@@`
	Chapter  string   `@Int`
	Verse    string   `( ":" | "-" ) @Int`
	VerseEnd string   `( "-" @Int )?`
}

// chapterForm: "John 3".
//
//nolint:govet // participle grammar tags are not standard struct tags
type chapterForm struct {
	Book    bookName `@@`
	Chapter string   `@Int`
}

// bookForm: "John".
//
//nolint:govet // participle grammar tags are not standard struct tags
type bookForm struct {
	Book bookName `@@`
}

var (
	verseParser = participle.MustBuild[verseForm](
		participle.Lexer(refLexer),
		participle.Elide("Whitespace"),
	)
	chapterParser = participle.MustBuild[chapterForm](
		participle.Lexer(refLexer),
		participle.Elide("Whitespace"),
	)
	bookParser = participle.MustBuild[bookForm](
		participle.Lexer(refLexer),
		participle.Elide("Whitespace"),
	)
)

// Parse extracts book, chapter and verse from text. Patterns are tried in order:
//   - "Book C:V" (also "Book C-V" and ranges "Book C:V-W")
//   - "Book C" (verse 1)
//   - "Book" (chapter 1, verse 1)
//
// Any other text containing a letter is taken whole as the book name
// (chapter 1, verse 1), so "John 3:16 extra" names an unknown book rather
// than failing to parse. Text without letters yields the zero Reference.
// Book names are not validated against the canon here; sources decide which
// books they know.
func Parse(text string) Reference {
	text = strings.TrimSpace(text)
	if text == "" {
		return Reference{}
	}
	if v, err := verseParser.ParseString("", text); err == nil {
		chapter, cerr := strconv.Atoi(v.Chapter)
		verse, verr := strconv.Atoi(v.Verse)
		if cerr == nil && verr == nil {
			return New(v.Book.String(), chapter, verse)
		}
	}
	if c, err := chapterParser.ParseString("", text); err == nil {
		if chapter, cerr := strconv.Atoi(c.Chapter); cerr == nil {
			return New(c.Book.String(), chapter, 1)
		}
	}
	if b, err := bookParser.ParseString("", text); err == nil {
		return New(b.Book.String(), 1, 1)
	}
	if strings.IndexFunc(text, unicode.IsLetter) >= 0 {
		return New(text, 1, 1)
	}
	return Reference{}
}

// ParseKey parses a dataset key of the form "slug-chapter-verse"
// ("genesis-1-1", "1-john-3-16"). The book keeps its slug form.
func ParseKey(key string) (Reference, bool) {
	parts := strings.Split(strings.TrimSpace(key), "-")
	if len(parts) < 3 {
		return Reference{}, false
	}
	verse, err := strconv.Atoi(parts[len(parts)-1])
	if err != nil || verse < 1 {
		return Reference{}, false
	}
	chapter, err := strconv.Atoi(parts[len(parts)-2])
	if err != nil || chapter < 1 {
		return Reference{}, false
	}
	book := strings.Join(parts[:len(parts)-2], "-")
	if book == "" {
		return Reference{}, false
	}
	return New(book, chapter, verse), true
}
