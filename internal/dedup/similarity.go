package dedup

import (
	"crypto/sha256"
	"encoding/hex"
	"strings"
	"unicode"

	"github.com/agnivade/levenshtein"
)

// Component weights and the rejection threshold. These are load-bearing:
// they trade false rejections of fresh text against near-clones slipping
// through, and changing them changes observable engine behavior.
const (
	levWeight     = 0.3
	keywordWeight = 0.4
	phraseWeight  = 0.3

	// DuplicateThreshold is the default similarity above which a candidate
	// is rejected.
	DuplicateThreshold = 0.70
)

var stopWords = map[string]bool{
	"the": true, "and": true, "for": true, "are": true, "but": true,
	"not": true, "you": true, "all": true, "can": true, "her": true,
	"was": true, "one": true, "our": true, "out": true, "has": true,
	"have": true, "had": true, "what": true, "when": true, "where": true,
	"who": true, "why": true, "how": true, "this": true, "that": true,
	"with": true, "from": true, "they": true, "them": true, "were": true,
	"been": true, "will": true, "would": true, "could": true, "should": true,
	"there": true, "their": true, "about": true, "which": true, "your": true,
	"just": true, "into": true, "than": true, "then": true, "some": true,
	"very": true, "also": true, "more": true, "most": true, "does": true,
	"doing": true, "get": true, "got": true, "like": true, "feel": true,
}

// Similarity computes the composite similarity between two texts in [0, 1].
// Exact equality short-circuits to 1.0.
func Similarity(a, b string) float64 {
	if a == b {
		return 1.0
	}
	if a == "" || b == "" {
		return 0
	}

	lev := levenshteinSimilarity(a, b)
	kw := jaccard(Keywords(a), Keywords(b))
	phrase := phraseOverlap(a, b)

	score := levWeight*lev + keywordWeight*kw + phraseWeight*phrase
	if score > 1.0 {
		score = 1.0
	}
	return score
}

// levenshteinSimilarity is 1 - dist/maxLen on rune counts.
func levenshteinSimilarity(a, b string) float64 {
	dist := levenshtein.ComputeDistance(a, b)
	la, lb := len([]rune(a)), len([]rune(b))
	max := la
	if lb > max {
		max = lb
	}
	if max == 0 {
		return 1.0
	}
	return 1.0 - float64(dist)/float64(max)
}

// Keywords extracts the lowercase alphabetic tokens longer than two
// characters, with stop words removed.
func Keywords(text string) []string {
	fields := strings.FieldsFunc(strings.ToLower(text), func(r rune) bool {
		return !unicode.IsLetter(r)
	})
	seen := make(map[string]bool, len(fields))
	result := make([]string, 0, len(fields))
	for _, w := range fields {
		if len(w) <= 2 || stopWords[w] || seen[w] {
			continue
		}
		seen[w] = true
		result = append(result, w)
	}
	return result
}

func jaccard(a, b []string) float64 {
	if len(a) == 0 || len(b) == 0 {
		return 0
	}
	set := make(map[string]bool, len(a))
	for _, w := range a {
		set[w] = true
	}
	var common int
	for _, w := range b {
		if set[w] {
			common++
		}
	}
	union := len(a) + len(b) - common
	if union == 0 {
		return 0
	}
	return float64(common) / float64(union)
}

// phraseOverlap is the dice coefficient over word n-grams of length 2..4.
func phraseOverlap(a, b string) float64 {
	pa := ngrams(a)
	pb := ngrams(b)
	if len(pa) == 0 || len(pb) == 0 {
		return 0
	}
	set := make(map[string]bool, len(pa))
	for _, p := range pa {
		set[p] = true
	}
	var common int
	for _, p := range pb {
		if set[p] {
			common++
		}
	}
	return 2.0 * float64(common) / float64(len(pa)+len(pb))
}

func ngrams(text string) []string {
	words := strings.Fields(strings.ToLower(stripPunct(text)))
	var out []string
	for n := 2; n <= 4; n++ {
		for i := 0; i+n <= len(words); i++ {
			out = append(out, strings.Join(words[i:i+n], " "))
		}
	}
	return out
}

func stripPunct(text string) string {
	return strings.Map(func(r rune) rune {
		if unicode.IsLetter(r) || unicode.IsNumber(r) || unicode.IsSpace(r) {
			return r
		}
		return ' '
	}, text)
}

// TextHash returns a deterministic hash of the normalized text, used for
// O(1) exact-match short-circuits against the memory corpus.
func TextHash(text string) string {
	norm := strings.Join(strings.Fields(strings.ToLower(text)), " ")
	sum := sha256.Sum256([]byte(norm))
	return hex.EncodeToString(sum[:])
}
