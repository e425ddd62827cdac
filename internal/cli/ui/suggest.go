package ui

import (
	"sort"
	"strings"
)

const (
	// DefaultMaxDistance is the largest edit distance still offered as a suggestion
	DefaultMaxDistance = 2
	// DefaultMaxSuggestions caps the number of suggestions returned
	DefaultMaxSuggestions = 3
)

// SuggestOptions configures Suggest
type SuggestOptions struct {
	MaxDistance    int
	MaxSuggestions int
}

// Suggest returns the candidates closest to target, nearest first.
// Comparison is case-insensitive; ties keep candidate order.
//
//	Suggest("rotes", []string{"help", "routes", "models"}, nil) // ["routes"]
func Suggest(target string, candidates []string, opts *SuggestOptions) []string {
	maxDistance, maxSuggestions := DefaultMaxDistance, DefaultMaxSuggestions
	if opts != nil {
		if opts.MaxDistance > 0 {
			maxDistance = opts.MaxDistance
		}
		if opts.MaxSuggestions > 0 {
			maxSuggestions = opts.MaxSuggestions
		}
	}

	type match struct {
		value    string
		distance int
	}

	target = strings.ToLower(target)
	var matches []match
	for _, c := range candidates {
		if d := Distance(target, strings.ToLower(c)); d <= maxDistance {
			matches = append(matches, match{c, d})
		}
	}
	sort.SliceStable(matches, func(i, j int) bool {
		return matches[i].distance < matches[j].distance
	})

	out := make([]string, 0, maxSuggestions)
	for i := 0; i < len(matches) && i < maxSuggestions; i++ {
		out = append(out, matches[i].value)
	}
	return out
}

// Distance is the Levenshtein edit distance between a and b
func Distance(a, b string) int {
	s, t := []rune(a), []rune(b)
	if len(s) == 0 {
		return len(t)
	}
	if len(t) == 0 {
		return len(s)
	}

	prev := make([]int, len(t)+1)
	curr := make([]int, len(t)+1)
	for j := range prev {
		prev[j] = j
	}
	for i := 1; i <= len(s); i++ {
		curr[0] = i
		for j := 1; j <= len(t); j++ {
			cost := 1
			if s[i-1] == t[j-1] {
				cost = 0
			}
			curr[j] = min(prev[j]+1, curr[j-1]+1, prev[j-1]+cost)
		}
		prev, curr = curr, prev
	}
	return prev[len(t)]
}
