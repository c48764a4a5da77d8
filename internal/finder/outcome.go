package finder

import "strings"

// Kind enumerates the page states a submission can end in.
type Kind int

const (
	KindUnknown Kind = iota
	KindSingleLeague
	KindMultipleLeagues
	KindNoLeagueFound
	KindAddressNotFound
	KindAddressTooVague
	KindRateLimited
	KindTimeout
)

var kindNames = map[Kind]string{
	KindUnknown:         "unknown",
	KindSingleLeague:    "single_league",
	KindMultipleLeagues: "multiple_leagues",
	KindNoLeagueFound:   "no_league_found",
	KindAddressNotFound: "address_not_found",
	KindAddressTooVague: "address_too_vague",
	KindRateLimited:     "rate_limited",
	KindTimeout:         "timeout",
}

// String returns the snake_case name used in logs, metrics and result files.
func (k Kind) String() string {
	if name, ok := kindNames[k]; ok {
		return name
	}
	return kindNames[KindUnknown]
}

// Outcome is the classification of exactly one submission attempt.
// Leagues is populated only for KindSingleLeague (one name) and
// KindMultipleLeagues (one or more names, in page order).
type Outcome struct {
	Kind    Kind
	Leagues []string
}

// SingleLeague builds a single-league outcome.
func SingleLeague(name string) Outcome {
	return Outcome{Kind: KindSingleLeague, Leagues: []string{name}}
}

// MultipleLeagues builds a multi-league outcome.
func MultipleLeagues(names ...string) Outcome {
	return Outcome{Kind: KindMultipleLeagues, Leagues: append([]string(nil), names...)}
}

// Of builds an outcome that carries no league names.
func Of(kind Kind) Outcome {
	return Outcome{Kind: kind}
}

// Description is the human-readable form written to transcripts and to the
// foundLeague field of failed results.
func (o Outcome) Description() string {
	switch o.Kind {
	case KindSingleLeague, KindMultipleLeagues:
		return strings.Join(o.Leagues, ", ")
	case KindNoLeagueFound:
		return "NO LEAGUE FOUND"
	case KindAddressNotFound:
		return "ADDRESS NOT FOUND"
	case KindAddressTooVague:
		return "ADDRESS TOO VAGUE"
	case KindRateLimited:
		return "API ERROR (possible rate limit)"
	case KindTimeout:
		return "TIMEOUT"
	default:
		return "UNKNOWN"
	}
}

// MatchesLeague reports whether any league name in the outcome contains
// expected, ignoring case. Outcomes without league names never match.
func (o Outcome) MatchesLeague(expected string) bool {
	if o.Kind != KindSingleLeague && o.Kind != KindMultipleLeagues {
		return false
	}
	want := strings.ToUpper(strings.TrimSpace(expected))
	for _, name := range o.Leagues {
		if strings.Contains(strings.ToUpper(name), want) {
			return true
		}
	}
	return false
}

// IsRateLimited is the default retry predicate.
func IsRateLimited(o Outcome) bool {
	return o.Kind == KindRateLimited
}
