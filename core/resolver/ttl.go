package resolver

import "time"

// Category names a kind of cached payload for TTL purposes.
type Category string

const (
	CategoryVerse       Category = "verse"
	CategoryChapter     Category = "chapter"
	CategoryNotFound    Category = "not_found"
	CategoryUnavailable Category = "unavailable"
	CategoryListing     Category = "listing"
)

// Categories lists every category in a stable order.
var Categories = []Category{CategoryVerse, CategoryChapter, CategoryNotFound, CategoryUnavailable, CategoryListing}

// TTLTable maps categories to how long their entries live.
type TTLTable map[Category]time.Duration

// DefaultTTLs returns the default table. Scripture text never changes, so
// verses, chapters and not-found results live a day; backend failures are
// retried after a minute.
func DefaultTTLs() TTLTable {
	return TTLTable{
		CategoryVerse:       24 * time.Hour,
		CategoryChapter:     24 * time.Hour,
		CategoryNotFound:    24 * time.Hour,
		CategoryUnavailable: time.Minute,
		CategoryListing:     time.Hour,
	}
}

// For returns the TTL of c, falling back to the default table.
// A zero or negative configured TTL disables caching for c.
func (t TTLTable) For(c Category) time.Duration {
	if d, ok := t[c]; ok {
		return d
	}
	return DefaultTTLs()[c]
}
