package registrant

import (
	"context"
	"encoding/json"
	"errors"
	"go/parser"
	"go/token"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseSport(t *testing.T) {
	tests := []struct {
		in   string
		want Sport
	}{
		{"", SportBaseball},
		{"baseball", SportBaseball},
		{"Softball", SportSoftball},
		{" CHALLENGER ", SportChallenger},
		{"tee-ball", SportBaseball},
	}
	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			assert.Equal(t, tt.want, ParseSport(tt.in))
		})
	}
}

func TestParseBirthday(t *testing.T) {
	tests := []struct {
		name string
		in   string
		want Birthday
		ok   bool
	}{
		{"zero padded month", "03/10/2016", Birthday{Month: 3, Year: "2016"}, true},
		{"december", "12/1/2014", Birthday{Month: 12, Year: "2014"}, true},
		{"empty", "", Birthday{}, false},
		{"no slashes", "2016-03-10", Birthday{}, false},
		{"month out of range", "13/01/2016", Birthday{}, false},
		{"month zero", "0/01/2016", Birthday{}, false},
		{"two digit year", "03/10/16", Birthday{}, false},
		{"garbage month", "xx/10/2016", Birthday{}, false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, ok := ParseBirthday(tt.in)
			assert.Equal(t, tt.ok, ok)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestBirthdayOr_Default(t *testing.T) {
	def := Birthday{Month: 1, Year: "2015"}

	b, parsed := Record{}.BirthdayOr(def)
	assert.False(t, parsed)
	assert.Equal(t, "1", b.MonthValue())
	assert.Equal(t, "2015", b.Year)

	b, parsed = Record{Birthday: "03/10/2016"}.BirthdayOr(def)
	assert.True(t, parsed)
	assert.Equal(t, "3", b.MonthValue())
	assert.Equal(t, "2016", b.Year)
}

func TestRecord_Derived(t *testing.T) {
	r := Record{FirstName: "Ada", LastName: "Lovelace", Address: "1 Main St", City: "Walnut Creek", State: "CA", Zip: "94596"}
	assert.Equal(t, "Ada Lovelace", r.Name())
	assert.Equal(t, "1 Main St, Walnut Creek, CA 94596", r.QueryAddress())
	assert.Equal(t, SportBaseball, r.SportOrDefault())
	assert.True(t, r.Eligible())

	r.Address = "  "
	assert.False(t, r.Eligible())
}

func TestSport_UnmarshalJSON(t *testing.T) {
	var r Record
	require.NoError(t, json.Unmarshal([]byte(`{"firstname":"A","sport":"SOFTBALL"}`), &r))
	assert.Equal(t, SportSoftball, r.Sport)
}

func TestFilterDivision(t *testing.T) {
	records := []Record{
		{FirstName: "a", Division: "Majors"},
		{FirstName: "b", Division: "AAA"},
		{FirstName: "c", Division: "Majors"},
		{FirstName: "d"},
	}

	t.Run("empty filter keeps all", func(t *testing.T) {
		assert.Len(t, FilterDivision(records, ""), len(records))
	})

	for _, div := range []string{"Majors", "AAA", "majors", "Minors"} {
		t.Run(div, func(t *testing.T) {
			out := FilterDivision(records, div)
			assert.LessOrEqual(t, len(out), len(records))
			for _, r := range out {
				assert.Equal(t, div, r.Division)
			}
		})
	}

	out := FilterDivision(records, "Majors")
	assert.Equal(t, []string{"a", "c"}, []string{out[0].FirstName, out[1].FirstName})
	assert.Equal(t, "b", records[1].FirstName, "input must be left untouched")
}

func TestFileSource(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "kids.json")
	data := `[
		{"firstname":"Ada","lastname":"Lovelace","address":"1 Main St","city":"Walnut Creek","state":"CA","zip":"94596","birthday":"03/10/2016"},
		{"firstname":"","lastname":"Nobody","address":"2 Main St"},
		{"firstname":"Grace","lastname":"Hopper","address":"3 Oak Ave","city":"Walnut Creek","state":"CA","zip":"94597","sport":"softball","division":"Majors"}
	]`
	require.NoError(t, os.WriteFile(path, []byte(data), 0o644))

	src, err := NewFileSource(path)
	require.NoError(t, err)
	assert.Equal(t, path, src.Describe())

	records, err := src.Load(context.Background())
	require.NoError(t, err)
	require.Len(t, records, 2)
	assert.Equal(t, "Ada", records[0].FirstName)
	assert.Equal(t, SportBaseball, records[0].Sport)
	assert.Equal(t, SportSoftball, records[1].Sport)
}

func TestNewFileSource_Missing(t *testing.T) {
	_, err := NewFileSource(filepath.Join(t.TempDir(), "missing.json"))
	require.Error(t, err)
	assert.True(t, errors.Is(err, ErrNoDataSource))

	_, err = NewFileSource("")
	assert.ErrorIs(t, err, ErrNoDataSource)
}

func TestFileSource_Malformed(t *testing.T) {
	path := filepath.Join(t.TempDir(), "bad.json")
	require.NoError(t, os.WriteFile(path, []byte(`{"not":"an array"}`), 0o644))
	src, err := NewFileSource(path)
	require.NoError(t, err)
	_, err = src.Load(context.Background())
	assert.Error(t, err)
}

// Spreadsheet loading lives in the sheets subpackage.
func TestRecordModel_NoGoogleImports(t *testing.T) {
	files, err := filepath.Glob("*.go")
	require.NoError(t, err)
	require.NotEmpty(t, files)

	fset := token.NewFileSet()
	for _, name := range files {
		if strings.HasSuffix(name, "_test.go") {
			continue
		}
		f, err := parser.ParseFile(fset, name, nil, parser.ImportsOnly)
		require.NoError(t, err)
		for _, imp := range f.Imports {
			path := strings.Trim(imp.Path.Value, `"`)
			assert.False(t, strings.HasPrefix(path, "google.golang.org/") || strings.HasPrefix(path, "golang.org/x/oauth2"),
				"%s imports %s", name, path)
		}
	}
}
