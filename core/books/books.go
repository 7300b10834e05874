// Package books holds the canonical 66-book Protestant canon used to key
// references: display names, URL slugs, OSIS IDs and provider book numbers.
package books

import (
	"strings"

	"golang.org/x/text/cases"
)

// Testament identifies which half of the canon a book belongs to.
type Testament string

const (
	OldTestament Testament = "old"
	NewTestament Testament = "new"
)

// Book describes one canonical book.
type Book struct {
	Name      string    // Display name, e.g. "1 John"
	Slug      string    // URL/dataset slug, e.g. "1-john"
	OSIS      string    // OSIS book ID, e.g. "1John"
	Testament Testament // "old" or "new"
	Chapters  int       // Number of chapters (KJV versification)
	Order     int       // Canonical order, 1-based; doubles as the Bolls.life book ID
}

// Compact returns the slug with hyphens removed ("1john", "songofsolomon").
func (b Book) Compact() string {
	return strings.ReplaceAll(b.Slug, "-", "")
}

// All lists the books in canonical order.
var All = []Book{
	// Old Testament
	{"Genesis", "genesis", "Gen", OldTestament, 50, 1},
	{"Exodus", "exodus", "Exod", OldTestament, 40, 2},
	{"Leviticus", "leviticus", "Lev", OldTestament, 27, 3},
	{"Numbers", "numbers", "Num", OldTestament, 36, 4},
	{"Deuteronomy", "deuteronomy", "Deut", OldTestament, 34, 5},
	{"Joshua", "joshua", "Josh", OldTestament, 24, 6},
	{"Judges", "judges", "Judg", OldTestament, 21, 7},
	{"Ruth", "ruth", "Ruth", OldTestament, 4, 8},
	{"1 Samuel", "1-samuel", "1Sam", OldTestament, 31, 9},
	{"2 Samuel", "2-samuel", "2Sam", OldTestament, 24, 10},
	{"1 Kings", "1-kings", "1Kgs", OldTestament, 22, 11},
	{"2 Kings", "2-kings", "2Kgs", OldTestament, 25, 12},
	{"1 Chronicles", "1-chronicles", "1Chr", OldTestament, 29, 13},
	{"2 Chronicles", "2-chronicles", "2Chr", OldTestament, 36, 14},
	{"Ezra", "ezra", "Ezra", OldTestament, 10, 15},
	{"Nehemiah", "nehemiah", "Neh", OldTestament, 13, 16},
	{"Esther", "esther", "Esth", OldTestament, 10, 17},
	{"Job", "job", "Job", OldTestament, 42, 18},
	{"Psalms", "psalms", "Ps", OldTestament, 150, 19},
	{"Proverbs", "proverbs", "Prov", OldTestament, 31, 20},
	{"Ecclesiastes", "ecclesiastes", "Eccl", OldTestament, 12, 21},
	{"Song of Solomon", "song-of-solomon", "Song", OldTestament, 8, 22},
	{"Isaiah", "isaiah", "Isa", OldTestament, 66, 23},
	{"Jeremiah", "jeremiah", "Jer", OldTestament, 52, 24},
	{"Lamentations", "lamentations", "Lam", OldTestament, 5, 25},
	{"Ezekiel", "ezekiel", "Ezek", OldTestament, 48, 26},
	{"Daniel", "daniel", "Dan", OldTestament, 12, 27},
	{"Hosea", "hosea", "Hos", OldTestament, 14, 28},
	{"Joel", "joel", "Joel", OldTestament, 3, 29},
	{"Amos", "amos", "Amos", OldTestament, 9, 30},
	{"Obadiah", "obadiah", "Obad", OldTestament, 1, 31},
	{"Jonah", "jonah", "Jonah", OldTestament, 4, 32},
	{"Micah", "micah", "Mic", OldTestament, 7, 33},
	{"Nahum", "nahum", "Nah", OldTestament, 3, 34},
	{"Habakkuk", "habakkuk", "Hab", OldTestament, 3, 35},
	{"Zephaniah", "zephaniah", "Zeph", OldTestament, 3, 36},
	{"Haggai", "haggai", "Hag", OldTestament, 2, 37},
	{"Zechariah", "zechariah", "Zech", OldTestament, 14, 38},
	{"Malachi", "malachi", "Mal", OldTestament, 4, 39},

	// New Testament
	{"Matthew", "matthew", "Matt", NewTestament, 28, 40},
	{"Mark", "mark", "Mark", NewTestament, 16, 41},
	{"Luke", "luke", "Luke", NewTestament, 24, 42},
	{"John", "john", "John", NewTestament, 21, 43},
	{"Acts", "acts", "Acts", NewTestament, 28, 44},
	{"Romans", "romans", "Rom", NewTestament, 16, 45},
	{"1 Corinthians", "1-corinthians", "1Cor", NewTestament, 16, 46},
	{"2 Corinthians", "2-corinthians", "2Cor", NewTestament, 13, 47},
	{"Galatians", "galatians", "Gal", NewTestament, 6, 48},
	{"Ephesians", "ephesians", "Eph", NewTestament, 6, 49},
	{"Philippians", "philippians", "Phil", NewTestament, 4, 50},
	{"Colossians", "colossians", "Col", NewTestament, 4, 51},
	{"1 Thessalonians", "1-thessalonians", "1Thess", NewTestament, 5, 52},
	{"2 Thessalonians", "2-thessalonians", "2Thess", NewTestament, 3, 53},
	{"1 Timothy", "1-timothy", "1Tim", NewTestament, 6, 54},
	{"2 Timothy", "2-timothy", "2Tim", NewTestament, 4, 55},
	{"Titus", "titus", "Titus", NewTestament, 3, 56},
	{"Philemon", "philemon", "Phlm", NewTestament, 1, 57},
	{"Hebrews", "hebrews", "Heb", NewTestament, 13, 58},
	{"James", "james", "Jas", NewTestament, 5, 59},
	{"1 Peter", "1-peter", "1Pet", NewTestament, 5, 60},
	{"2 Peter", "2-peter", "2Pet", NewTestament, 3, 61},
	{"1 John", "1-john", "1John", NewTestament, 5, 62},
	{"2 John", "2-john", "2John", NewTestament, 1, 63},
	{"3 John", "3-john", "3John", NewTestament, 1, 64},
	{"Jude", "jude", "Jude", NewTestament, 1, 65},
	{"Revelation", "revelation", "Rev", NewTestament, 22, 66},
}

// aliases maps common alternate names (already slugified) to canonical slugs.
var aliases = map[string]string{
	"psalm":         "psalms",
	"song-of-songs": "song-of-solomon",
	"songs":         "song-of-solomon",
	"canticles":     "song-of-solomon",
	"revelations":   "revelation",
	"qoheleth":      "ecclesiastes",
}

var (
	bySlug = make(map[string]int, len(All)*3)
	byOSIS = make(map[string]int, len(All))
)

func init() {
	for i, b := range All {
		bySlug[b.Slug] = i
		bySlug[Slugify(b.Name)] = i
		bySlug[Slugify(b.OSIS)] = i
		bySlug[b.Compact()] = i
		byOSIS[b.OSIS] = i
	}
	for alias, slug := range aliases {
		bySlug[alias] = bySlug[slug]
	}
}

// Slugify folds case and turns a free-form book name into slug form:
// "1 John" -> "1-john", "Song of  Solomon" -> "song-of-solomon", "Gen." -> "gen".
func Slugify(name string) string {
	// A Caser is stateful and must not be shared between goroutines.
	name = cases.Fold().String(strings.TrimSpace(name))
	name = strings.ReplaceAll(name, ".", "")
	fields := strings.FieldsFunc(name, func(r rune) bool {
		return r == ' ' || r == '-' || r == '_' || r == '\t'
	})
	return strings.Join(fields, "-")
}

// Lookup finds a book by display name, slug, OSIS ID or alias, case-insensitively.
// "1John" and "1 John" both resolve because the compact form is indexed too.
func Lookup(name string) (Book, bool) {
	slug := Slugify(name)
	if i, ok := bySlug[slug]; ok {
		return All[i], true
	}
	if i, ok := bySlug[strings.ReplaceAll(slug, "-", "")]; ok {
		return All[i], true
	}
	return Book{}, false
}

// ByOSIS finds a book by its exact OSIS ID ("Gen", "1John").
func ByOSIS(id string) (Book, bool) {
	i, ok := byOSIS[id]
	if !ok {
		return Book{}, false
	}
	return All[i], true
}

// SlugFor returns the canonical slug for name when the book is known, or the
// mechanical slug otherwise. Sources use it so "Psalm 23:1" and "Psalms 23:1"
// share dataset and cache keys.
func SlugFor(name string) string {
	if b, ok := Lookup(name); ok {
		return b.Slug
	}
	return Slugify(name)
}
