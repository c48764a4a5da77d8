// Package registrant defines the normalized registrant record consumed by the
// verification engine, along with the sources that produce it.
package registrant

import (
	"encoding/json"
	"fmt"
	"strconv"
	"strings"
)

// Sport is the league-finder sport selection.
type Sport string

const (
	SportBaseball   Sport = "baseball"
	SportSoftball   Sport = "softball"
	SportChallenger Sport = "challenger"
)

// ParseSport normalizes a free-form sport value. Anything unrecognized,
// including the empty string, is baseball.
func ParseSport(s string) Sport {
	switch Sport(strings.ToLower(strings.TrimSpace(s))) {
	case SportSoftball:
		return SportSoftball
	case SportChallenger:
		return SportChallenger
	default:
		return SportBaseball
	}
}

// UnmarshalJSON normalizes the sport as it is decoded.
func (s *Sport) UnmarshalJSON(data []byte) error {
	var raw string
	if err := json.Unmarshal(data, &raw); err != nil {
		return fmt.Errorf("sport: %w", err)
	}
	*s = ParseSport(raw)
	return nil
}

// Record is a single registrant. Records are read-only once a source has
// produced them.
type Record struct {
	FirstName string `json:"firstname"`
	LastName  string `json:"lastname"`
	Address   string `json:"address"`
	City      string `json:"city"`
	State     string `json:"state"`
	Zip       string `json:"zip"`
	Sport     Sport  `json:"sport"`
	Birthday  string `json:"birthday,omitempty"` // MM/DD/YYYY
	Division  string `json:"division,omitempty"`
}

// Name returns "First Last".
func (r Record) Name() string {
	return r.FirstName + " " + r.LastName
}

// QueryAddress returns the single-line address typed into the finder form.
func (r Record) QueryAddress() string {
	return fmt.Sprintf("%s, %s, %s %s", r.Address, r.City, r.State, r.Zip)
}

// SportOrDefault returns the record's sport, falling back to baseball.
func (r Record) SportOrDefault() Sport {
	if r.Sport == "" {
		return SportBaseball
	}
	return r.Sport
}

// Eligible reports whether the record carries the minimum fields needed to
// run a query.
func (r Record) Eligible() bool {
	return strings.TrimSpace(r.FirstName) != "" &&
		strings.TrimSpace(r.LastName) != "" &&
		strings.TrimSpace(r.Address) != ""
}

// Birthday is the month/year pair the finder form asks for.
type Birthday struct {
	Month int
	Year  string
}

// MonthValue renders the month the way the form's option values expect it
// ("3", not "03").
func (b Birthday) MonthValue() string {
	return strconv.Itoa(b.Month)
}

// ParseBirthday extracts month and year from a MM/DD/YYYY string.
// ok is false when the value is absent or malformed.
func ParseBirthday(s string) (Birthday, bool) {
	parts := strings.Split(strings.TrimSpace(s), "/")
	if len(parts) != 3 {
		return Birthday{}, false
	}
	month, err := strconv.Atoi(strings.TrimSpace(parts[0]))
	if err != nil || month < 1 || month > 12 {
		return Birthday{}, false
	}
	year := strings.TrimSpace(parts[2])
	if !IsYear(year) {
		return Birthday{}, false
	}
	return Birthday{Month: month, Year: year}, true
}

// BirthdayOr returns the parsed birthday or def when it cannot be parsed.
func (r Record) BirthdayOr(def Birthday) (Birthday, bool) {
	if b, ok := ParseBirthday(r.Birthday); ok {
		return b, true
	}
	return def, false
}

// IsYear reports whether s is a four digit year.
func IsYear(s string) bool {
	if len(s) != 4 {
		return false
	}
	for _, c := range s {
		if c < '0' || c > '9' {
			return false
		}
	}
	return true
}
