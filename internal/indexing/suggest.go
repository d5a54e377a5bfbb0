package indexing

import (
	"sort"
	"strings"

	"github.com/hbollon/go-edlib"
)

// DefaultSuggestThreshold is the minimum Jaro-Winkler similarity a name
// needs to be suggested
const DefaultSuggestThreshold = 0.80

// Suggestion is a known name similar to a missing one
type Suggestion struct {
	Fqn   string  `json:"fqn"`
	Score float64 `json:"score"`
}

// Suggest ranks known names by similarity to name, best first, returning at
// most limit of them. Both the full name and its last segment are compared
// so "acme.Widgte" still finds "com.acme.Widget".
func (s *SourceIndex) Suggest(name string, limit int) []Suggestion {
	return s.SuggestWithThreshold(name, limit, DefaultSuggestThreshold)
}

// SuggestWithThreshold is Suggest with an explicit similarity floor
func (s *SourceIndex) SuggestWithThreshold(name string, limit int, threshold float64) []Suggestion {
	if name == "" || limit <= 0 {
		return nil
	}

	var out []Suggestion
	for _, candidate := range s.Fqns() {
		score := max(similarity(name, candidate), similarity(simpleName(name), simpleName(candidate)))
		if score >= threshold {
			out = append(out, Suggestion{Fqn: candidate, Score: score})
		}
	}

	sort.Slice(out, func(i, j int) bool {
		if out[i].Score != out[j].Score {
			return out[i].Score > out[j].Score
		}
		return out[i].Fqn < out[j].Fqn
	})
	if len(out) > limit {
		out = out[:limit]
	}
	return out
}

func similarity(a, b string) float64 {
	if a == b {
		return 1.0
	}
	if a == "" || b == "" {
		return 0.0
	}
	score, err := edlib.StringsSimilarity(a, b, edlib.JaroWinkler)
	if err != nil {
		return 0.0
	}
	return float64(score)
}

func simpleName(name string) string {
	if i := strings.LastIndexByte(name, '.'); i >= 0 {
		return name[i+1:]
	}
	return name
}
