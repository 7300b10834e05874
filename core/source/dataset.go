package source

import (
	"bytes"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sort"
	"strconv"
	"strings"

	"github.com/natefinch/atomic"
	"github.com/ulikunitz/xz"
	"github.com/zeebo/blake3"

	"github.com/gankles/bible-quizzes-christian-2025-sub004/core/errors"
	"github.com/gankles/bible-quizzes-christian-2025-sub004/core/ref"
	"github.com/gankles/bible-quizzes-christian-2025-sub004/internal/validation"
)

// Dataset is a read-only verse table keyed "slug-chapter-verse".
// Keys are canonicalized on construction, so "psalm-23-1" and "psalms-23-1"
// address the same verse.
type Dataset struct {
	verses   map[string]string
	chapters map[string]map[int]string
}

// NewDataset builds a Dataset from a key->text map. The map is copied.
func NewDataset(verses map[string]string) *Dataset {
	d := &Dataset{
		verses:   make(map[string]string, len(verses)),
		chapters: make(map[string]map[int]string),
	}
	for k, text := range verses {
		d.add(k, text)
	}
	return d
}

func (d *Dataset) add(key, text string) {
	r, ok := ref.ParseKey(strings.ToLower(key))
	if !ok {
		d.verses[strings.ToLower(strings.TrimSpace(key))] = text
		return
	}
	d.verses[r.Key()] = text

	ck := r.ChapterKey()
	ch, ok := d.chapters[ck]
	if !ok {
		ch = make(map[int]string)
		d.chapters[ck] = ch
	}
	ch[r.Verse()] = text
}

// Len returns the number of verses.
func (d *Dataset) Len() int { return len(d.verses) }

// Chapters returns the number of distinct chapters.
func (d *Dataset) Chapters() int { return len(d.chapters) }

// Lookup returns the raw text stored under key.
func (d *Dataset) Lookup(key string) (string, bool) {
	if r, ok := ref.ParseKey(strings.ToLower(key)); ok {
		key = r.Key()
	}
	text, ok := d.verses[key]
	return text, ok
}

// Chapter returns the verses of one chapter by verse number.
// The returned map must not be modified.
func (d *Dataset) Chapter(slug string, chapter int) (map[int]string, bool) {
	ch, ok := d.chapters[slug+"-"+strconv.Itoa(chapter)]
	return ch, ok
}

// Keys returns all verse keys sorted.
func (d *Dataset) Keys() []string {
	keys := make([]string, 0, len(d.verses))
	for k := range d.verses {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

// Entries returns a copy of the key->text table.
func (d *Dataset) Entries() map[string]string {
	out := make(map[string]string, len(d.verses))
	for k, v := range d.verses {
		out[k] = v
	}
	return out
}

// Digest returns the hex BLAKE3 hash of the dataset content. The hash is
// computed over the keys in sorted order, so it does not depend on the file
// format the dataset was loaded from.
func (d *Dataset) Digest() string {
	h := blake3.New()
	for _, k := range d.Keys() {
		_, _ = io.WriteString(h, k)
		_, _ = h.Write([]byte{'\t'})
		_, _ = io.WriteString(h, d.verses[k])
		_, _ = h.Write([]byte{'\n'})
	}
	return hex.EncodeToString(h.Sum(nil))
}

// VerifyDigest checks the content hash against expected (hex, case-insensitive).
func (d *Dataset) VerifyDigest(expected string) error {
	got := d.Digest()
	if !strings.EqualFold(strings.TrimSpace(expected), got) {
		return errors.NewValidation("digest", fmt.Sprintf("dataset hash %s does not match pinned %s", got, expected))
	}
	return nil
}

// LoadDataset reads a dataset file, choosing the format by extension:
// .json, .json.xz, .xml/.osis and .db/.sqlite/.sqlite3. The file's leading
// bytes must agree with its extension.
func LoadDataset(path string) (*Dataset, error) {
	if err := validation.ValidatePath(path); err != nil {
		return nil, errors.NewValidation("dataset", err.Error())
	}
	format := validation.FileTypeFromExtension(path)
	if format == validation.FileTypeUnknown {
		return nil, errors.NewUnsupported("dataset", fmt.Sprintf("unknown file type %q", filepath.Base(path)))
	}

	f, err := os.Open(path)
	if err != nil {
		return nil, errors.NewIO("open", path, err)
	}
	defer f.Close()

	if _, err := validation.ValidateFileType(f, path); err != nil {
		return nil, errors.NewParse(string(format), path, err.Error())
	}
	if format == validation.FileTypeSQLite {
		return LoadSQLite(path)
	}
	if _, err := f.Seek(0, io.SeekStart); err != nil {
		return nil, errors.NewIO("seek", path, err)
	}

	var d *Dataset
	switch format {
	case validation.FileTypeJSONXZ:
		xzr, xzErr := xz.NewReader(f)
		if xzErr != nil {
			return nil, errors.NewIO("decompress", path, xzErr)
		}
		d, err = ReadJSON(xzr)
	case validation.FileTypeXML:
		d, err = ReadOSIS(f)
	default:
		d, err = ReadJSON(f)
	}
	if err != nil {
		return nil, errors.Wrapf(err, "dataset %s", path)
	}
	return d, nil
}

// jsonDataset is the on-disk JSON layout: {"verses": {"genesis-1-1": "..."}}.
type jsonDataset struct {
	Verses map[string]string `json:"verses"`
}

// ReadJSON decodes a dataset in the wrapped {"verses": {...}} layout or as a
// flat key->text object.
func ReadJSON(r io.Reader) (*Dataset, error) {
	data, err := io.ReadAll(r)
	if err != nil {
		return nil, errors.NewIO("read", "", err)
	}

	var wrapped jsonDataset
	if err := json.Unmarshal(data, &wrapped); err == nil && wrapped.Verses != nil {
		return NewDataset(wrapped.Verses), nil
	}

	var flat map[string]string
	if err := json.Unmarshal(data, &flat); err != nil {
		return nil, &errors.ParseError{Format: "JSON", Message: "expected a verses object", Err: err}
	}
	return NewDataset(flat), nil
}

// WriteJSON writes the dataset in the wrapped JSON layout. The file is
// replaced atomically; a path ending in .xz is xz-compressed.
func (d *Dataset) WriteJSON(path string) error {
	data, err := json.MarshalIndent(jsonDataset{Verses: d.verses}, "", "  ")
	if err != nil {
		return errors.Wrap(err, "encoding dataset")
	}

	if strings.HasSuffix(strings.ToLower(path), ".xz") {
		var buf bytes.Buffer
		w, err := xz.NewWriter(&buf)
		if err != nil {
			return errors.Wrap(err, "creating xz writer")
		}
		if _, err := w.Write(data); err != nil {
			return errors.NewIO("compress", path, err)
		}
		if err := w.Close(); err != nil {
			return errors.NewIO("compress", path, err)
		}
		data = buf.Bytes()
	}

	if err := atomic.WriteFile(path, bytes.NewReader(data)); err != nil {
		return errors.NewIO("write", path, err)
	}
	return nil
}
