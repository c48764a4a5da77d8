// Package sheets loads registrants from a Google Sheets tab.
package sheets

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"leaguecheck/internal/registrant"

	"golang.org/x/oauth2/google"
	"golang.org/x/oauth2/jwt"
	"google.golang.org/api/option"
	sheetsapi "google.golang.org/api/sheets/v4"
)

// DefaultTab is the tab read when none is configured.
const DefaultTab = "Player Details"

// ErrNoRows means a spreadsheet had no data rows under its header.
var ErrNoRows = errors.New("no data found in sheet")

// ValueReader fetches a rectangular range of cell values.
type ValueReader interface {
	Values(ctx context.Context, spreadsheetID, readRange string) ([][]any, error)
}

// Config identifies the spreadsheet and the service account used to
// read it.
type Config struct {
	SpreadsheetID       string
	Tab                 string
	ServiceAccountEmail string
	PrivateKey          string
}

// Source loads records from a spreadsheet whose first row is a header.
type Source struct {
	cfg    Config
	reader ValueReader
}

// New builds a source backed by the Google Sheets API.
func New(ctx context.Context, cfg Config) (*Source, error) {
	conf := &jwt.Config{
		Email:      cfg.ServiceAccountEmail,
		PrivateKey: []byte(cfg.PrivateKey),
		Scopes:     []string{sheetsapi.SpreadsheetsReadonlyScope},
		TokenURL:   google.JWTTokenURL,
	}
	svc, err := sheetsapi.NewService(ctx, option.WithHTTPClient(conf.Client(ctx)))
	if err != nil {
		return nil, fmt.Errorf("sheets client: %w", err)
	}
	return NewWithReader(cfg, &apiReader{svc: svc}), nil
}

// NewWithReader builds a source over an arbitrary ValueReader.
func NewWithReader(cfg Config, reader ValueReader) *Source {
	if cfg.Tab == "" {
		cfg.Tab = DefaultTab
	}
	return &Source{cfg: cfg, reader: reader}
}

// Load implements registrant.Source.
func (s *Source) Load(ctx context.Context) ([]registrant.Record, error) {
	rows, err := s.reader.Values(ctx, s.cfg.SpreadsheetID, s.cfg.Tab)
	if err != nil {
		return nil, fmt.Errorf("read sheet %q: %w", s.cfg.Tab, err)
	}
	return RecordsFromRows(rows)
}

// Describe implements registrant.Source.
func (s *Source) Describe() string {
	return fmt.Sprintf("Google Sheets (%s)", s.cfg.Tab)
}

// headerFields maps lower-cased header names to record fields.
var headerFields = map[string]string{
	"firstname":         "firstname",
	"first name":        "firstname",
	"player first name": "firstname",
	"lastname":          "lastname",
	"last name":         "lastname",
	"player last name":  "lastname",
	"address":           "address",
	"street address":    "address",
	"city":              "city",
	"state":             "state",
	"zip":               "zip",
	"postal code":       "zip",
	"sport":             "sport",
	"birthday":          "birthday",
	"birth date":        "birthday",
	"birthdate":         "birthday",
	"player birth date": "birthday",
	"dob":               "birthday",
	"division":          "division",
	"division name":     "division",
	"player division":   "division",
}

// RecordsFromRows normalizes header-keyed rows into eligible records.
func RecordsFromRows(rows [][]any) ([]registrant.Record, error) {
	if len(rows) < 2 {
		return nil, ErrNoRows
	}

	fields := make([]string, len(rows[0]))
	for i, h := range rows[0] {
		fields[i] = headerFields[strings.ToLower(strings.TrimSpace(cell(h)))]
	}

	records := make([]registrant.Record, 0, len(rows)-1)
	for _, row := range rows[1:] {
		var r registrant.Record
		for i, field := range fields {
			if field == "" || i >= len(row) {
				continue
			}
			assign(&r, field, strings.TrimSpace(cell(row[i])))
		}
		r.Sport = registrant.ParseSport(string(r.Sport))
		records = append(records, r)
	}
	return registrant.Eligible(records), nil
}

func assign(r *registrant.Record, field, value string) {
	switch field {
	case "firstname":
		r.FirstName = value
	case "lastname":
		r.LastName = value
	case "address":
		r.Address = value
	case "city":
		r.City = value
	case "state":
		r.State = value
	case "zip":
		r.Zip = value
	case "sport":
		r.Sport = registrant.Sport(value)
	case "birthday":
		r.Birthday = value
	case "division":
		r.Division = value
	}
}

func cell(v any) string {
	if v == nil {
		return ""
	}
	if s, ok := v.(string); ok {
		return s
	}
	return fmt.Sprint(v)
}

type apiReader struct {
	svc *sheetsapi.Service
}

func (a *apiReader) Values(ctx context.Context, spreadsheetID, readRange string) ([][]any, error) {
	resp, err := a.svc.Spreadsheets.Values.Get(spreadsheetID, readRange).Context(ctx).Do()
	if err != nil {
		return nil, err
	}
	return resp.Values, nil
}
