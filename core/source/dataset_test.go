package source

import (
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/gankles/bible-quizzes-christian-2025-sub004/core/errors"
	"github.com/gankles/bible-quizzes-christian-2025-sub004/core/sqlite"
)

func loadKJV(t *testing.T) *Dataset {
	t.Helper()
	d, err := LoadDataset(filepath.Join("testdata", "kjv.json"))
	require.NoError(t, err)
	return d
}

func TestNewDatasetCanonicalKeys(t *testing.T) {
	d := NewDataset(map[string]string{
		"Psalm-23-1":  "The LORD is my shepherd",
		"genesis-1-1": "In the beginning",
		"appendix":    "not a verse key",
	})

	assert.Equal(t, 3, d.Len())
	assert.Equal(t, 2, d.Chapters())

	text, ok := d.Lookup("psalms-23-1")
	require.True(t, ok)
	assert.Equal(t, "The LORD is my shepherd", text)

	_, ok = d.Lookup("psalm-23-1")
	assert.True(t, ok, "alias keys resolve to the canonical key")

	_, ok = d.Lookup("appendix")
	assert.True(t, ok)

	assert.Equal(t, []string{"appendix", "genesis-1-1", "psalms-23-1"}, d.Keys())
}

func TestDatasetChapter(t *testing.T) {
	d := loadKJV(t)

	ch, ok := d.Chapter("genesis", 1)
	require.True(t, ok)
	assert.Len(t, ch, 3)
	assert.Equal(t, "And God said, Let there be light: and there was light.", ch[3])

	_, ok = d.Chapter("genesis", 50)
	assert.False(t, ok)
}

func TestReadJSON(t *testing.T) {
	t.Run("wrapped", func(t *testing.T) {
		d, err := ReadJSON(strings.NewReader(`{"verses":{"genesis-1-1":"In the beginning"}}`))
		require.NoError(t, err)
		assert.Equal(t, 1, d.Len())
	})

	t.Run("flat", func(t *testing.T) {
		d, err := ReadJSON(strings.NewReader(`{"genesis-1-1":"In the beginning","genesis-1-2":"And the earth"}`))
		require.NoError(t, err)
		assert.Equal(t, 2, d.Len())
	})

	t.Run("invalid", func(t *testing.T) {
		_, err := ReadJSON(strings.NewReader(`[1, 2, 3]`))
		require.Error(t, err)
		var pe *errors.ParseError
		assert.True(t, errors.As(err, &pe))
	})
}

func TestLoadDatasetJSON(t *testing.T) {
	d := loadKJV(t)
	assert.Equal(t, 7, d.Len())

	text, ok := d.Lookup("1-john-4-8")
	require.True(t, ok)
	assert.Contains(t, text, "God is love")
}

func TestLoadDatasetMissingFile(t *testing.T) {
	_, err := LoadDataset(filepath.Join(t.TempDir(), "missing.json"))
	var ioErr *errors.IOError
	assert.True(t, errors.As(err, &ioErr))
}

func TestLoadDatasetUnsupported(t *testing.T) {
	_, err := LoadDataset("verses.csv")
	assert.ErrorIs(t, err, errors.ErrUnsupported)
}

func TestWriteJSONRoundTrip(t *testing.T) {
	d := loadKJV(t)

	for _, name := range []string{"out.json", "out.json.xz"} {
		t.Run(name, func(t *testing.T) {
			path := filepath.Join(t.TempDir(), name)
			require.NoError(t, d.WriteJSON(path))

			loaded, err := LoadDataset(path)
			require.NoError(t, err)
			assert.Equal(t, d.Entries(), loaded.Entries())
			assert.Equal(t, d.Digest(), loaded.Digest())
		})
	}
}

func TestWriteJSONXZIsCompressed(t *testing.T) {
	path := filepath.Join(t.TempDir(), "out.json.xz")
	require.NoError(t, loadKJV(t).WriteJSON(path))

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Equal(t, []byte{0xFD, '7', 'z', 'X', 'Z', 0x00}, data[:6], "xz magic")
}

func TestSQLiteRoundTrip(t *testing.T) {
	d := loadKJV(t)
	path := filepath.Join(t.TempDir(), "kjv.db")

	db, err := sqlite.Open(path)
	require.NoError(t, err)
	require.NoError(t, d.WriteSQLite(context.Background(), db))
	require.NoError(t, db.Close())

	loaded, err := LoadDataset(path)
	require.NoError(t, err)
	assert.Equal(t, d.Entries(), loaded.Entries())
	assert.Equal(t, d.Digest(), loaded.Digest())
}

func TestReadOSIS(t *testing.T) {
	d, err := LoadDataset(filepath.Join("testdata", "sample.osis.xml"))
	require.NoError(t, err)

	assert.Equal(t, 4, d.Len(), "non-canonical books are skipped")

	tests := []struct {
		key  string
		want string
	}{
		{"genesis-1-1", "In the beginning God created the heaven and the earth."},
		{"genesis-1-2", "And the earth was without form, and void; and darkness was upon the face of the deep."},
		{"john-3-16", "For God so loved the world,"},
		{"john-3-17", "For God sent not his Son into the world to condemn the world;"},
	}
	for _, tt := range tests {
		t.Run(tt.key, func(t *testing.T) {
			text, ok := d.Lookup(tt.key)
			require.True(t, ok)
			assert.Equal(t, tt.want, text)
		})
	}
}

func TestReadOSISEmpty(t *testing.T) {
	_, err := ReadOSIS(strings.NewReader(`<osis><osisText/></osis>`))
	assert.ErrorIs(t, err, errors.ErrInvalidInput)

	_, err = ReadOSIS(strings.NewReader(`<osis><unclosed>`))
	assert.Error(t, err)
}

func TestDigest(t *testing.T) {
	a := NewDataset(map[string]string{"genesis-1-1": "a", "genesis-1-2": "b"})
	b := NewDataset(map[string]string{"genesis-1-2": "b", "genesis-1-1": "a"})
	c := NewDataset(map[string]string{"genesis-1-1": "a", "genesis-1-2": "c"})

	assert.Equal(t, a.Digest(), b.Digest())
	assert.NotEqual(t, a.Digest(), c.Digest())
	assert.Len(t, a.Digest(), 64)
}

func TestVerifyDigest(t *testing.T) {
	d := loadKJV(t)

	assert.NoError(t, d.VerifyDigest(d.Digest()))
	assert.NoError(t, d.VerifyDigest(strings.ToUpper(d.Digest())))

	err := d.VerifyDigest("00")
	assert.ErrorIs(t, err, errors.ErrInvalidInput)
}

func TestLoadDatasetContentMismatch(t *testing.T) {
	path := filepath.Join(t.TempDir(), "kjv.db")
	require.NoError(t, os.WriteFile(path, []byte(`{"verses":{}}`), 0o644))

	_, err := LoadDataset(path)
	assert.ErrorIs(t, err, errors.ErrInvalidInput)
}
