package listening

import (
	"archive/zip"
	"bytes"
	"errors"
	"fmt"
	"io"
	"os"
	"path"
	"path/filepath"
	"strings"
)

const (
	// MaxExtractedSize caps the total uncompressed size of an archive.
	MaxExtractedSize = 1 << 30

	// HistoryFilePattern matches audio history files inside an export.
	HistoryFilePattern = "*Streaming_History_Audio_*.json"
)

var zipMagic = []byte("PK\x03\x04")

// ParseZip reads a full data export archive. Every audio history file
// is parsed and the events from all of them are merged.
func ParseZip(r io.ReaderAt, size int64, source string) ([]Event, error) {
	zr, err := zip.NewReader(r, size)
	if err != nil {
		return nil, &ParseError{Source: source, Err: fmt.Errorf("invalid ZIP file: %w", err)}
	}

	var batches [][]Event
	var extracted uint64
	for _, f := range zr.File {
		if f.FileInfo().IsDir() {
			continue
		}

		name := f.Name
		if strings.Contains(name, "..") || strings.HasPrefix(name, "/") {
			return nil, &ParseError{Source: source, Err: fmt.Errorf("invalid file path in ZIP: %s", name)}
		}

		extracted += f.UncompressedSize64
		if extracted > MaxExtractedSize {
			return nil, &ParseError{Source: source, Err: errors.New("ZIP file too large when extracted")}
		}

		if ok, _ := path.Match(HistoryFilePattern, path.Base(name)); !ok {
			continue
		}

		events, err := parseZipEntry(f, source+":"+name)
		if err != nil {
			return nil, err
		}
		batches = append(batches, events)
	}

	if len(batches) == 0 {
		return nil, &ParseError{Source: source, Err: errors.New("no streaming history files found in ZIP")}
	}
	return Merge(batches...), nil
}

func parseZipEntry(f *zip.File, source string) ([]Event, error) {
	rc, err := f.Open()
	if err != nil {
		return nil, &ParseError{Source: source, Err: err}
	}
	defer rc.Close()
	return ParseJSON(rc, source)
}

// ParseFile parses one export file, either a ZIP archive or a single
// JSON history file.
func ParseFile(filename string) ([]Event, error) {
	data, err := os.ReadFile(filename)
	if err != nil {
		return nil, &ParseError{Source: filename, Err: err}
	}

	if IsZip(data) || strings.EqualFold(filepath.Ext(filename), ".zip") {
		return ParseZip(bytes.NewReader(data), int64(len(data)), filename)
	}
	return ParseJSON(bytes.NewReader(data), filename)
}

// ParseFiles parses several export files and merges their events.
func ParseFiles(filenames ...string) ([]Event, error) {
	batches := make([][]Event, 0, len(filenames))
	for _, filename := range filenames {
		events, err := ParseFile(filename)
		if err != nil {
			return nil, err
		}
		batches = append(batches, events)
	}
	return Merge(batches...), nil
}

// IsZip reports whether data starts with the ZIP local file header.
func IsZip(data []byte) bool {
	return bytes.HasPrefix(data, zipMagic)
}
