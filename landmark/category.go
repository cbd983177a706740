package landmark

import (
	"slices"
	"strings"
	"unicode"
)

// Category is the coarse classification of a landmark.
type Category string

const (
	Historical  Category = "Historical"
	Cultural    Category = "Cultural"
	Natural     Category = "Natural"
	Educational Category = "Educational"
	Religious   Category = "Religious"
	Commercial  Category = "Commercial"
	Other       Category = "Other"
)

// AllCategories returns every category in declaration order.
func AllCategories() []Category {
	return []Category{Historical, Cultural, Natural, Educational, Religious, Commercial, Other}
}

// categoryRules is evaluated top to bottom; the first rule with a matching
// keyword wins, so order decides ties. A keyword matches a whole word or its
// plural. A trailing "*" makes it a stem that matches any word it starts.
var categoryRules = []struct {
	category Category
	keywords []string
}{
	{Historical, []string{
		"historic*", "ancient", "medieval", "roman", "castle", "fortress", "ruin*",
		"monument", "memorial", "battle", "amphitheater", "amphitheatre",
		"palace", "archaeolog*", "heritage", "century", "centuries",
	}},
	{Cultural, []string{
		"museum", "art", "arts", "artwork", "gallery", "galleries", "theatre",
		"theater", "opera", "concert", "cultural", "festival", "sculpture",
		"exhibition",
	}},
	{Natural, []string{
		"park", "lake", "river", "mountain", "forest", "island", "beach",
		"nature", "waterfall", "valley", "garden", "reserve", "cave",
	}},
	{Educational, []string{
		"university", "universities", "school", "college", "academy",
		"institute", "library", "libraries", "research", "campus",
	}},
	{Religious, []string{
		"church", "cathedral", "temple", "mosque", "synagogue", "monaster*",
		"chapel", "abbey", "shrine", "parish",
	}},
	{Commercial, []string{
		"shopping", "market", "store", "restaurant", "hotel", "company",
		"companies", "brewery", "breweries", "headquarters", "retail",
	}},
}

// Classify maps free text to a Category by keyword match on its words.
func Classify(text string) Category {
	words := tokenize(text)
	for _, rule := range categoryRules {
		for _, keyword := range rule.keywords {
			if slices.ContainsFunc(words, func(w string) bool { return keywordMatches(keyword, w) }) {
				return rule.category
			}
		}
	}
	return Other
}

func keywordMatches(keyword, word string) bool {
	if stem, ok := strings.CutSuffix(keyword, "*"); ok {
		return strings.HasPrefix(word, stem)
	}
	return word == keyword || word == keyword+"s" || word == keyword+"es"
}

// tokenize lower-cases text and splits it into letter and digit runs, so
// "13th-century" yields "13th" and "century".
func tokenize(text string) []string {
	return strings.FieldsFunc(strings.ToLower(text), func(r rune) bool {
		return !unicode.IsLetter(r) && !unicode.IsDigit(r)
	})
}

// ParseCategory resolves a category name case-insensitively.
func ParseCategory(name string) (Category, bool) {
	name = strings.TrimSpace(name)
	for _, c := range AllCategories() {
		if strings.EqualFold(string(c), name) {
			return c, true
		}
	}
	return "", false
}

// ParseCategories parses a comma-separated list, ignoring unknown names
// and duplicates. The result keeps first-seen order.
func ParseCategories(list string) []Category {
	if strings.TrimSpace(list) == "" {
		return nil
	}
	var out []Category
	seen := make(map[Category]bool)
	for _, part := range strings.Split(list, ",") {
		c, ok := ParseCategory(part)
		if !ok || seen[c] {
			continue
		}
		seen[c] = true
		out = append(out, c)
	}
	return out
}
