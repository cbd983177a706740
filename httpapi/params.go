package httpapi

import (
	"math"
	"net/url"
	"strconv"
	"strings"

	"github.com/jonwraymond/landmarks/landmark"
)

// ParseParams reads a lookup from query values. Unparseable or
// non-finite numbers are treated as absent.
func ParseParams(q url.Values) landmark.RequestParams {
	return landmark.RequestParams{
		Lat:        number(q, "lat"),
		Lon:        number(q, "lon"),
		North:      number(q, "north"),
		South:      number(q, "south"),
		East:       number(q, "east"),
		West:       number(q, "west"),
		Search:     q.Get("search"),
		Specific:   truthy(q.Get("specific")),
		Categories: landmark.ParseCategories(q.Get("categories")),
	}
}

func number(q url.Values, name string) *float64 {
	raw := strings.TrimSpace(q.Get(name))
	if raw == "" {
		return nil
	}
	v, err := strconv.ParseFloat(raw, 64)
	if err != nil || math.IsNaN(v) || math.IsInf(v, 0) {
		return nil
	}
	return &v
}

func truthy(s string) bool {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "true", "1", "yes", "on":
		return true
	default:
		return false
	}
}
