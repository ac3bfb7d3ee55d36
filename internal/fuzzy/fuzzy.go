// Package fuzzy maps noisy OCR text onto a canonical name list by edit distance.
package fuzzy

// DefaultThreshold is the default strict Levenshtein bound.
const DefaultThreshold = 4

// Distance returns the Levenshtein distance between a and b, counted in runes.
func Distance(a, b string) int {
	ra, rb := []rune(a), []rune(b)
	if len(ra) == 0 {
		return len(rb)
	}
	if len(rb) == 0 {
		return len(ra)
	}

	prev := make([]int, len(rb)+1)
	curr := make([]int, len(rb)+1)
	for j := range prev {
		prev[j] = j
	}
	for i := 1; i <= len(ra); i++ {
		curr[0] = i
		for j := 1; j <= len(rb); j++ {
			cost := 1
			if ra[i-1] == rb[j-1] {
				cost = 0
			}
			curr[j] = min(prev[j]+1, curr[j-1]+1, prev[j-1]+cost)
		}
		prev, curr = curr, prev
	}
	return prev[len(rb)]
}

// Within reports whether Distance(a, b) < threshold.
func Within(a, b string, threshold int) bool {
	return Distance(a, b) < threshold
}

// Match returns the first vocabulary entry within threshold of text.
// Table order is the tie-break: an earlier entry wins over a closer later one.
func Match(text string, vocabulary []string, threshold int) (string, bool) {
	if text == "" {
		return "", false
	}
	for _, name := range vocabulary {
		if Within(text, name, threshold) {
			return name, true
		}
	}
	return "", false
}

// Result is the outcome of matching one OCR string.
type Result struct {
	Name    string `json:"name,omitempty"`
	Raw     string `json:"raw"`
	Matched bool   `json:"matched"`
}

// Matcher holds a vocabulary and threshold.
type Matcher struct {
	vocabulary []string
	threshold  int
}

// NewMatcher creates a matcher. A non-positive threshold selects DefaultThreshold.
func NewMatcher(vocabulary []string, threshold int) *Matcher {
	if threshold <= 0 {
		threshold = DefaultThreshold
	}
	return &Matcher{vocabulary: vocabulary, threshold: threshold}
}

// Threshold returns the strict distance bound in use.
func (m *Matcher) Threshold() int { return m.threshold }

// Match matches normalized OCR text against the vocabulary.
func (m *Matcher) Match(text string) Result {
	name, ok := Match(text, m.vocabulary, m.threshold)
	return Result{Name: name, Raw: text, Matched: ok}
}
