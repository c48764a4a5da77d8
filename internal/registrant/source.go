package registrant

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
)

// ErrNoDataSource means neither a spreadsheet nor a data file is available.
var ErrNoDataSource = errors.New("no data source: set GOOGLE_SHEETS_ID or provide a JSON file")

// Source produces registrant records. Implementations drop ineligible
// records before returning.
type Source interface {
	Load(ctx context.Context) ([]Record, error)
	Describe() string
}

// FileSource reads a JSON array of pre-normalized records.
type FileSource struct {
	Path string
}

// NewFileSource returns a FileSource for path, or ErrNoDataSource when the
// file does not exist.
func NewFileSource(path string) (*FileSource, error) {
	if path == "" {
		return nil, ErrNoDataSource
	}
	info, err := os.Stat(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, fmt.Errorf("%w (%s not found)", ErrNoDataSource, path)
		}
		return nil, fmt.Errorf("stat data file: %w", err)
	}
	if info.IsDir() {
		return nil, fmt.Errorf("data file %s is a directory", path)
	}
	return &FileSource{Path: path}, nil
}

// Load implements Source.
func (s *FileSource) Load(ctx context.Context) ([]Record, error) {
	data, err := os.ReadFile(s.Path)
	if err != nil {
		return nil, fmt.Errorf("read data file: %w", err)
	}
	var records []Record
	if err := json.Unmarshal(data, &records); err != nil {
		return nil, fmt.Errorf("parse data file %s: %w", s.Path, err)
	}
	for i := range records {
		if records[i].Sport == "" {
			records[i].Sport = SportBaseball
		}
	}
	return Eligible(records), nil
}

// Describe implements Source.
func (s *FileSource) Describe() string {
	return s.Path
}

// Eligible returns the records that can be verified, in input order.
func Eligible(records []Record) []Record {
	out := make([]Record, 0, len(records))
	for _, r := range records {
		if r.Eligible() {
			out = append(out, r)
		}
	}
	return out
}

// FilterDivision keeps records whose division equals division exactly.
// An empty division keeps everything. The input slice is not modified.
func FilterDivision(records []Record, division string) []Record {
	if division == "" {
		return append([]Record(nil), records...)
	}
	out := make([]Record, 0, len(records))
	for _, r := range records {
		if r.Division == division {
			out = append(out, r)
		}
	}
	return out
}
