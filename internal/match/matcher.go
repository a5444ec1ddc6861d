// Package match scores how well a query string matches candidate text.
// Scores are integers in [0,100] and are a pure function of the inputs
// and the Config, so ranked output is reproducible.
package match

import (
	"strings"
)

const (
	// scoreExact is the score for case-insensitive equality after
	// normalization.
	scoreExact = 100
	// scoreSubstring is the base score when the candidate contains the
	// full query as a contiguous substring.
	scoreSubstring = 90
	// boundaryBonus is added when a substring match starts at a token
	// boundary.
	boundaryBonus = 5
)

// Config holds the tuning knobs for the matcher. Zero-value fields are
// replaced with defaults by Normalize-d constructors; use DefaultConfig
// unless the deployment overrides them.
type Config struct {
	// OverlapWeight and EditWeight combine token overlap and edit-distance
	// similarity into the base score. They must sum to 1.
	OverlapWeight float64
	EditWeight    float64
	// PhoneticEnabled gates sound-alike matching.
	PhoneticEnabled bool
	// PhoneticCutoff is the base score below which phonetic matching is
	// attempted.
	PhoneticCutoff int
	// PhoneticScore is the fixed score assigned on a phonetic key match.
	// It is capped at PhoneticCutoff, so a sound-alike hit never outranks
	// any lexical match strong enough to escape the cutoff.
	PhoneticScore int
	// Field weights for ScoreRecord. Title must dominate.
	TitleWeight    float64
	TagsWeight     float64
	CategoryWeight float64
	AuthorWeight   float64
	ExcerptWeight  float64
}

// DefaultConfig returns the production defaults.
func DefaultConfig() Config {
	return Config{
		OverlapWeight:   0.6,
		EditWeight:      0.4,
		PhoneticEnabled: true,
		PhoneticCutoff:  20,
		PhoneticScore:   20,
		TitleWeight:     1.0,
		TagsWeight:      0.8,
		CategoryWeight:  0.7,
		AuthorWeight:    0.6,
		ExcerptWeight:   0.5,
	}
}

// Fields is the matchable projection of one record.
type Fields struct {
	Title    string
	Excerpt  string
	Tags     []string
	Category string
	Author   string
}

// Normalize case-folds, trims, and collapses internal whitespace.
func Normalize(s string) string {
	return strings.Join(strings.Fields(strings.ToLower(s)), " ")
}

// Score rates how well query matches candidate, 0-100.
func Score(cfg Config, query, candidate string) int {
	q := Normalize(query)
	if q == "" {
		return 0
	}
	c := Normalize(candidate)
	if c == "" {
		return 0
	}

	if c == q {
		return scoreExact
	}
	if idx := strings.Index(c, q); idx >= 0 {
		if idx == 0 || c[idx-1] == ' ' {
			return scoreSubstring + boundaryBonus
		}
		return scoreSubstring
	}

	overlap := tokenOverlap(q, c)
	similarity := editSimilarity(q, c)
	base := int(cfg.OverlapWeight*float64(overlap) + cfg.EditWeight*float64(similarity))

	if base < cfg.PhoneticCutoff && cfg.PhoneticEnabled && phoneticMatch(q, c) {
		score := cfg.PhoneticScore
		if score > cfg.PhoneticCutoff {
			score = cfg.PhoneticCutoff
		}
		return clampScore(score)
	}
	return clampScore(base)
}

// ScoreRecord rates how well query matches a structured record. Each field
// score is damped by its weight and the best field wins, so a title hit
// always beats an equally close hit on any other field.
func ScoreRecord(cfg Config, query string, f Fields) int {
	best := weighted(Score(cfg, query, f.Title), cfg.TitleWeight)
	if len(f.Tags) > 0 {
		if s := weighted(Score(cfg, query, strings.Join(f.Tags, " ")), cfg.TagsWeight); s > best {
			best = s
		}
	}
	if f.Category != "" {
		if s := weighted(Score(cfg, query, f.Category), cfg.CategoryWeight); s > best {
			best = s
		}
	}
	if f.Author != "" {
		if s := weighted(Score(cfg, query, f.Author), cfg.AuthorWeight); s > best {
			best = s
		}
	}
	if f.Excerpt != "" {
		if s := weighted(Score(cfg, query, f.Excerpt), cfg.ExcerptWeight); s > best {
			best = s
		}
	}
	return best
}

func weighted(score int, weight float64) int {
	return clampScore(int(float64(score) * weight))
}

func clampScore(s int) int {
	if s < 0 {
		return 0
	}
	if s > 100 {
		return 100
	}
	return s
}

// fuzzyTokenFloor is the per-token edit similarity below which a near-miss
// token earns no overlap credit. Keeps unrelated words from accumulating
// score while letting single-typo tokens count.
const fuzzyTokenFloor = 60

// tokenOverlap returns the average credit of query tokens against the
// candidate: 100 for a whole-token hit, the best per-token edit similarity
// when it clears fuzzyTokenFloor, 0 otherwise.
func tokenOverlap(query, candidate string) int {
	queryTokens := strings.Fields(query)
	if len(queryTokens) == 0 {
		return 0
	}
	candidateTokens := strings.Fields(candidate)

	total := 0
	for _, qt := range queryTokens {
		best := 0
		for _, ct := range candidateTokens {
			if qt == ct {
				best = 100
				break
			}
			if sim := editSimilarity(qt, ct); sim > best {
				best = sim
			}
		}
		if best >= fuzzyTokenFloor {
			total += best
		}
	}
	return total / len(queryTokens)
}

// editSimilarity is 100*(1 - lev(a,b)/max(len(a),len(b))).
func editSimilarity(a, b string) int {
	longest := len(a)
	if len(b) > longest {
		longest = len(b)
	}
	if longest == 0 {
		return 0
	}
	distance := levenshtein(a, b)
	return (longest - distance) * 100 / longest
}

// levenshtein computes edit distance with the two-row dynamic program.
// Inputs are normalized field values, so n*m stays small.
func levenshtein(a, b string) int {
	ra, rb := []rune(a), []rune(b)
	if len(ra) == 0 {
		return len(rb)
	}
	if len(rb) == 0 {
		return len(ra)
	}

	prev := make([]int, len(rb)+1)
	curr := make([]int, len(rb)+1)
	for j := 0; j <= len(rb); j++ {
		prev[j] = j
	}

	for i := 1; i <= len(ra); i++ {
		curr[0] = i
		for j := 1; j <= len(rb); j++ {
			cost := 1
			if ra[i-1] == rb[j-1] {
				cost = 0
			}
			curr[j] = min3(
				prev[j]+1,      // deletion
				curr[j-1]+1,    // insertion
				prev[j-1]+cost, // substitution
			)
		}
		prev, curr = curr, prev
	}
	return prev[len(rb)]
}

func min3(a, b, c int) int {
	if b < a {
		a = b
	}
	if c < a {
		a = c
	}
	return a
}

// phoneticMatch reports whether any query token sounds like any candidate
// token.
func phoneticMatch(query, candidate string) bool {
	candidateKeys := make(map[string]bool)
	for _, tok := range strings.Fields(candidate) {
		if key := soundex(tok); key != "" {
			candidateKeys[key] = true
		}
	}
	if len(candidateKeys) == 0 {
		return false
	}
	for _, tok := range strings.Fields(query) {
		if key := soundex(tok); key != "" && candidateKeys[key] {
			return true
		}
	}
	return false
}
