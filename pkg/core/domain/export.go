package domain

import (
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/Masterminds/semver/v3"
)

// ExportVersion is written into every export file.
const ExportVersion = "1.0"

var ErrInvalidImport = errors.New("invalid file format")

// supportedExports covers every file layout this build can read.
var supportedExports = mustConstraint("< 2.0.0")

// ImportMode decides what happens to existing collections on import.
type ImportMode string

const (
	ImportReplace ImportMode = "replace"
	ImportMerge   ImportMode = "merge"
)

func ParseImportMode(s string) (ImportMode, error) {
	switch ImportMode(s) {
	case ImportReplace, ImportMerge:
		return ImportMode(s), nil
	}
	return "", fmt.Errorf("unknown import mode %q", s)
}

// ExportFile is the JSON document produced by export and read by import
type ExportFile struct {
	Version     string       `json:"version"`
	Timestamp   time.Time    `json:"timestamp"`
	Collections []Collection `json:"collections"`
}

func NewExportFile(collections []Collection, now time.Time) ExportFile {
	return ExportFile{
		Version:     ExportVersion,
		Timestamp:   now.UTC(),
		Collections: Normalize(collections),
	}
}

// ExportFilename names the download, e.g. comet-collections-2024-05-01.json.
func ExportFilename(now time.Time, selected bool) string {
	prefix := "comet-collections-"
	if selected {
		prefix += "selected-"
	}
	return prefix + now.UTC().Format("2006-01-02") + ".json"
}

// ParseExportFile validates that data holds a collections array and a
// readable version. A missing version is treated as the current one.
func ParseExportFile(data []byte) (*ExportFile, error) {
	var raw struct {
		Version     string          `json:"version"`
		Timestamp   time.Time       `json:"timestamp"`
		Collections json.RawMessage `json:"collections"`
	}
	if err := json.Unmarshal(data, &raw); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidImport, err)
	}
	if len(raw.Collections) == 0 || raw.Collections[0] != '[' {
		return nil, fmt.Errorf("%w: collections must be an array", ErrInvalidImport)
	}
	if raw.Version != "" {
		v, err := semver.NewVersion(raw.Version)
		if err != nil {
			return nil, fmt.Errorf("%w: version %q", ErrInvalidImport, raw.Version)
		}
		if !supportedExports.Check(v) {
			return nil, fmt.Errorf("%w: unsupported version %s", ErrInvalidImport, raw.Version)
		}
	}

	file := &ExportFile{Version: raw.Version, Timestamp: raw.Timestamp}
	if err := json.Unmarshal(raw.Collections, &file.Collections); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidImport, err)
	}
	file.Collections = Normalize(file.Collections)
	return file, nil
}

func mustConstraint(c string) *semver.Constraints {
	constraint, err := semver.NewConstraint(c)
	if err != nil {
		panic(err)
	}
	return constraint
}
