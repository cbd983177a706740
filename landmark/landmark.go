package landmark

import (
	"strings"
	"unicode/utf8"
)

// MaxSummaryRunes is the maximum number of runes kept from an upstream extract.
const MaxSummaryRunes = 200

// TruncationMarker is appended to summaries that exceeded MaxSummaryRunes.
const TruncationMarker = "..."

// Landmark is a classified point of interest.
// Values are immutable once produced by the pipeline.
type Landmark struct {
	Title    string   `json:"title"`
	Lat      float64  `json:"lat"`
	Lon      float64  `json:"lon"`
	PageID   int64    `json:"pageid"`
	Summary  string   `json:"summary"`
	Category Category `json:"category"`
}

// RawPlace is a geosearch hit before enrichment.
type RawPlace struct {
	PageID int64   `json:"pageid"`
	Title  string  `json:"title"`
	Lat    float64 `json:"lat"`
	Lon    float64 `json:"lon"`
}

// Truncate cuts text to MaxSummaryRunes runes, appending TruncationMarker
// when anything was removed.
func Truncate(text string) string {
	text = strings.TrimSpace(text)
	if utf8.RuneCountInString(text) <= MaxSummaryRunes {
		return text
	}
	runes := []rune(text)
	return strings.TrimRight(string(runes[:MaxSummaryRunes]), " ") + TruncationMarker
}
