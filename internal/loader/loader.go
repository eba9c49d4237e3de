// Package loader reads sales datasets from JSON documents and XLSX workbooks.
package loader

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/andresuchdata/seller-analytics/internal/domain"
)

var (
	ErrUnsupportedFormat = errors.New("unsupported dataset format")
	ErrMalformed         = errors.New("malformed dataset")
)

// Format identifies a dataset file encoding
type Format string

const (
	FormatJSON Format = "json"
	FormatXLSX Format = "xlsx"
)

// DetectFormat derives the format from a file name or object key.
func DetectFormat(name string) (Format, error) {
	switch strings.ToLower(filepath.Ext(name)) {
	case ".json":
		return FormatJSON, nil
	case ".xlsx":
		return FormatXLSX, nil
	default:
		return "", fmt.Errorf("%w: %q (expected .json or .xlsx)", ErrUnsupportedFormat, name)
	}
}

// LoadJSON decodes a dataset document shaped like
// {"customers": [...], "products": [...], "sellers": [...], "purchase_records": [...]}.
// Lists absent from the document stay nil.
func LoadJSON(r io.Reader) (*domain.Dataset, error) {
	var ds domain.Dataset
	if err := json.NewDecoder(r).Decode(&ds); err != nil {
		return nil, fmt.Errorf("%w: decode json: %w", ErrMalformed, err)
	}
	return &ds, nil
}

// Load reads a dataset in the given format.
func Load(r io.Reader, format Format) (*domain.Dataset, error) {
	switch format {
	case FormatJSON:
		return LoadJSON(r)
	case FormatXLSX:
		return LoadXLSX(r)
	default:
		return nil, fmt.Errorf("%w: %q", ErrUnsupportedFormat, format)
	}
}

// LoadFile opens path and loads it according to its extension.
func LoadFile(path string) (*domain.Dataset, error) {
	format, err := DetectFormat(path)
	if err != nil {
		return nil, err
	}

	file, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open dataset file: %w", err)
	}
	defer file.Close()

	ds, err := Load(file, format)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	return ds, nil
}

// WriteJSON writes ds as an indented document that LoadJSON reads back.
func WriteJSON(ds *domain.Dataset, w io.Writer) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	if err := enc.Encode(ds); err != nil {
		return fmt.Errorf("failed to encode dataset: %w", err)
	}
	return nil
}
