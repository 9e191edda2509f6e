// Package states normalizes the state identifiers found in the education
// finance dataset into canonical two-letter postal codes.
//
// The upstream data mixes three identifier shapes: already-coded entries
// ("NY"), underscore-joined names ("NEW_YORK"), and plain names in assorted
// casing ("new york"). Normalize tries each shape in order and reports
// failure rather than guessing, so callers can drop unmappable rows instead
// of mis-joining them.
package states

import (
	"strings"
	"unicode"
)

// NameToCode maps canonical state names to postal codes. 51 entries: the 50
// states plus the District of Columbia.
var NameToCode = map[string]string{
	"Alabama": "AL", "Alaska": "AK", "Arizona": "AZ", "Arkansas": "AR",
	"California": "CA", "Colorado": "CO", "Connecticut": "CT", "Delaware": "DE",
	"District Of Columbia": "DC", "Florida": "FL", "Georgia": "GA",
	"Hawaii": "HI", "Idaho": "ID", "Illinois": "IL", "Indiana": "IN",
	"Iowa": "IA", "Kansas": "KS", "Kentucky": "KY", "Louisiana": "LA",
	"Maine": "ME", "Maryland": "MD", "Massachusetts": "MA", "Michigan": "MI",
	"Minnesota": "MN", "Mississippi": "MS", "Missouri": "MO", "Montana": "MT",
	"Nebraska": "NE", "Nevada": "NV", "New Hampshire": "NH", "New Jersey": "NJ",
	"New Mexico": "NM", "New York": "NY", "North Carolina": "NC",
	"North Dakota": "ND", "Ohio": "OH", "Oklahoma": "OK", "Oregon": "OR",
	"Pennsylvania": "PA", "Rhode Island": "RI", "South Carolina": "SC",
	"South Dakota": "SD", "Tennessee": "TN", "Texas": "TX", "Utah": "UT",
	"Vermont": "VT", "Virginia": "VA", "Washington": "WA",
	"West Virginia": "WV", "Wisconsin": "WI", "Wyoming": "WY",
}

// upperNameToCode is the uppercased copy of NameToCode used by the third
// lookup tier. Built once at init.
var upperNameToCode = func() map[string]string {
	m := make(map[string]string, len(NameToCode))
	for name, code := range NameToCode {
		m[strings.ToUpper(name)] = code
	}
	return m
}()

// Normalize resolves an arbitrary state identifier to its two-letter code.
// Resolution tiers, first match wins:
//
//  1. a trimmed value of exactly two letters is assumed to already be a code
//     and is returned uppercased;
//  2. underscores become spaces, whitespace is collapsed, the result is
//     title-cased and looked up against the canonical name table;
//  3. the normalized string is uppercased and looked up against an uppercased
//     copy of the same table.
//
// ok is false when no tier matches. Normalize never errors; records that fail
// all tiers are expected to be dropped by the caller, not defaulted.
func Normalize(raw string) (code string, ok bool) {
	s := strings.TrimSpace(raw)
	if s == "" {
		return "", false
	}

	if len(s) == 2 && isAlpha(s) {
		return strings.ToUpper(s), true
	}

	norm := collapseSpaces(strings.ReplaceAll(s, "_", " "))
	if code, ok := NameToCode[titleCase(norm)]; ok {
		return code, true
	}
	if code, ok := upperNameToCode[strings.ToUpper(norm)]; ok {
		return code, true
	}
	return "", false
}

// DisplayName renders a raw identifier for labels: underscores to spaces,
// collapsed whitespace, each word capitalized ("NEW_YORK" -> "New York").
func DisplayName(raw string) string {
	return titleCase(collapseSpaces(strings.ReplaceAll(strings.TrimSpace(raw), "_", " ")))
}

func isAlpha(s string) bool {
	for _, r := range s {
		if !unicode.IsLetter(r) {
			return false
		}
	}
	return true
}

func collapseSpaces(s string) string {
	return strings.Join(strings.Fields(s), " ")
}

// titleCase capitalizes the first letter of each space-separated word and
// lowercases the rest, matching the name table's casing ("district of
// columbia" -> "District Of Columbia").
func titleCase(s string) string {
	words := strings.Fields(s)
	for i, w := range words {
		runes := []rune(strings.ToLower(w))
		runes[0] = unicode.ToUpper(runes[0])
		words[i] = string(runes)
	}
	return strings.Join(words, " ")
}
