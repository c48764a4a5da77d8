package finder

import (
	"fmt"
	"strings"
)

// Form controls and result regions of the league finder page.
const (
	SelectorAddress     = "#address-input"
	SelectorBirthMonth  = "#birth-month-input"
	SelectorBirthYear   = "#birth-year-input"
	SelectorSearch      = "#search-button"
	sportSelectorPrefix = "#sport-type-input-"

	SelectorLeagueName    = `[data-role="league-result-league-name-display"]`
	SelectorMultipleItem  = "#multiple-league-result-list li"
	SelectorMultipleName  = "#multiple-league-result-list li p"
	IDNoResults           = "no-results-row"
	IDGeocodingFailure    = "geocoding-failure-message-row"
	IDPrecisionTooLow     = "geocoding-precision-too-low-message-row"
	IDLeagueLookupFailure = "league-lookup-failure-message-row"
)

// Regions is a snapshot of every result region the page can show after a
// search. Text fields are already trimmed.
type Regions struct {
	LeagueName       string   `json:"leagueName"`
	MultipleItem     string   `json:"multipleItem"`
	MultipleNames    []string `json:"multipleNames"`
	NoResults        bool     `json:"noResults"`
	GeocodingFailure bool     `json:"geocodingFailure"`
	PrecisionTooLow  bool     `json:"precisionTooLow"`
	LookupFailure    bool     `json:"lookupFailure"`
}

// Terminal reports whether the page has settled into a result state.
func (r Regions) Terminal() bool {
	return r.LeagueName != "" ||
		r.MultipleItem != "" ||
		r.NoResults ||
		r.GeocodingFailure ||
		r.PrecisionTooLow ||
		r.LookupFailure
}

// Classify maps a region snapshot to an outcome. When several regions are
// visible at once the first in this order wins: single league, multiple
// leagues, no results, geocoding failure, precision too low, lookup failure.
func Classify(r Regions) Outcome {
	if name := strings.TrimSpace(r.LeagueName); name != "" {
		return SingleLeague(name)
	}
	if names := nonEmpty(r.MultipleNames); len(names) > 0 {
		return MultipleLeagues(names...)
	}
	switch {
	case r.NoResults:
		return Of(KindNoLeagueFound)
	case r.GeocodingFailure:
		return Of(KindAddressNotFound)
	case r.PrecisionTooLow:
		return Of(KindAddressTooVague)
	case r.LookupFailure:
		return Of(KindRateLimited)
	}
	return Of(KindUnknown)
}

func nonEmpty(in []string) []string {
	var out []string
	for _, s := range in {
		if s = strings.TrimSpace(s); s != "" {
			out = append(out, s)
		}
	}
	return out
}

// regionsScript reads the result regions in the browser.
var regionsScript = fmt.Sprintf(`() => {
	const text = (el) => (el && el.textContent ? el.textContent.trim() : "");
	const shown = (id) => {
		const el = document.getElementById(id);
		return !!el && getComputedStyle(el).display !== "none";
	};
	return {
		leagueName: text(document.querySelector(%q)),
		multipleItem: text(document.querySelector(%q)),
		multipleNames: Array.from(document.querySelectorAll(%q)).map(text),
		noResults: shown(%q),
		geocodingFailure: shown(%q),
		precisionTooLow: shown(%q),
		lookupFailure: shown(%q),
	};
}`,
	SelectorLeagueName, SelectorMultipleItem, SelectorMultipleName,
	IDNoResults, IDGeocodingFailure, IDPrecisionTooLow, IDLeagueLookupFailure)

// dumpScript reads the page state recorded on timeouts.
const dumpScript = `() => ({
	title: document.title,
	text: ((document.body && document.body.innerText) || "").substring(0, 500),
	html: document.documentElement ? document.documentElement.outerHTML : "",
})`
