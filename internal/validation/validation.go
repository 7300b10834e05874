// Package validation checks user-supplied paths, source names and dataset
// files before they reach the loaders.
package validation

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"path/filepath"
	"strings"
	"unicode"
)

const (
	// MaxPathLength is the maximum allowed path length.
	MaxPathLength = 4096
	// MaxSourceNameLength is the maximum length of a source name.
	MaxSourceNameLength = 64
)

// Common validation errors.
var (
	ErrEmptyPath        = errors.New("path cannot be empty")
	ErrPathTooLong      = errors.New("path too long")
	ErrInvalidCharacter = errors.New("invalid character in path")
	ErrInvalidName      = errors.New("invalid source name")
	ErrTypeMismatch     = errors.New("file type mismatch")
)

// ValidatePath checks a filesystem path for length limits and control characters.
func ValidatePath(path string) error {
	if path == "" {
		return ErrEmptyPath
	}
	if len(path) > MaxPathLength {
		return ErrPathTooLong
	}
	if strings.Contains(path, "\x00") {
		return fmt.Errorf("%w: null byte not allowed", ErrInvalidCharacter)
	}
	for _, r := range path {
		if unicode.IsControl(r) {
			return fmt.Errorf("%w: control character not allowed", ErrInvalidCharacter)
		}
	}
	return nil
}

// ValidateSourceName accepts letters, digits, '-' and '_'. Names appear in
// cache keys, so ':' and whitespace are rejected.
func ValidateSourceName(name string) error {
	if strings.TrimSpace(name) == "" {
		return fmt.Errorf("%w: empty", ErrInvalidName)
	}
	if len(name) > MaxSourceNameLength {
		return fmt.Errorf("%w: longer than %d characters", ErrInvalidName, MaxSourceNameLength)
	}
	for _, r := range name {
		if unicode.IsLetter(r) || unicode.IsDigit(r) || r == '-' || r == '_' {
			continue
		}
		return fmt.Errorf("%w: %q not allowed", ErrInvalidName, r)
	}
	return nil
}

// FileType is a dataset file format.
type FileType string

const (
	FileTypeJSON    FileType = "json"
	FileTypeJSONXZ  FileType = "json.xz"
	FileTypeXML     FileType = "xml"
	FileTypeSQLite  FileType = "sqlite"
	FileTypeUnknown FileType = "unknown"
)

// magic signatures of the binary dataset formats.
var magicBytes = []struct {
	fileType FileType
	magic    []byte
}{
	{FileTypeJSONXZ, []byte{0xfd, 0x37, 0x7a, 0x58, 0x5a, 0x00}},
	{FileTypeSQLite, []byte("SQLite format 3\x00")},
}

// FileTypeFromExtension maps a filename to the dataset format its extension names.
func FileTypeFromExtension(filename string) FileType {
	lower := strings.ToLower(filename)
	if strings.HasSuffix(lower, ".json.xz") {
		return FileTypeJSONXZ
	}
	switch filepath.Ext(lower) {
	case ".json":
		return FileTypeJSON
	case ".xml", ".osis":
		return FileTypeXML
	case ".db", ".sqlite", ".sqlite3":
		return FileTypeSQLite
	default:
		return FileTypeUnknown
	}
}

// ValidateFileType reads the head of r and checks that its content agrees
// with the format the filename's extension claims. It returns that format.
func ValidateFileType(r io.Reader, filename string) (FileType, error) {
	buf := make([]byte, 512)
	n, err := io.ReadFull(r, buf)
	if err != nil && err != io.ErrUnexpectedEOF && err != io.EOF {
		return FileTypeUnknown, fmt.Errorf("failed to read file header: %w", err)
	}
	buf = buf[:n]

	expected := FileTypeFromExtension(filename)
	detected := detectFileTypeFromMagic(buf)

	switch expected {
	case FileTypeUnknown:
		return FileTypeUnknown, nil
	case FileTypeJSONXZ, FileTypeSQLite:
		if detected != expected {
			return FileTypeUnknown, fmt.Errorf("%w: %s is not %s", ErrTypeMismatch, filepath.Base(filename), expected)
		}
	default:
		if detected != FileTypeUnknown || !isLikelyText(buf) {
			return FileTypeUnknown, fmt.Errorf("%w: %s is not %s text", ErrTypeMismatch, filepath.Base(filename), expected)
		}
	}
	return expected, nil
}

func detectFileTypeFromMagic(buf []byte) FileType {
	for _, sig := range magicBytes {
		if bytes.HasPrefix(buf, sig.magic) {
			return sig.fileType
		}
	}
	return FileTypeUnknown
}

// isLikelyText reports whether buf looks like UTF-8 or ASCII text.
func isLikelyText(buf []byte) bool {
	if len(buf) == 0 {
		return false
	}
	if bytes.IndexByte(buf, 0) != -1 {
		return false
	}

	printable, control := 0, 0
	for _, b := range buf {
		if b >= 0x20 && b <= 0x7e || b == '\t' || b == '\n' || b == '\r' {
			printable++
		} else if b < 0x20 {
			control++
		}
	}
	return printable > 0 && float64(printable)/float64(printable+control) > 0.95
}
