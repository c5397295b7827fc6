// Package tokenizer is the reference implementation of the text
// analysis collaborator: a deterministic, order-preserving function
// from raw document or query text to a slice of index terms.
package tokenizer

import (
	"strings"
	"unicode"
	"unicode/utf8"

	"github.com/clipperhouse/uax29/v2/words"
	"github.com/forPelevin/gomoji"
	"github.com/kljensen/snowball/english"
	"golang.org/x/text/cases"
)

// Config controls the optional stages of the pipeline. The minimal
// pipeline (segment, fold case, drop short/emoji tokens) runs
// unconditionally; everything here is an opt-in refinement.
type Config struct {
	Stemming         bool
	StopwordsEnabled bool
	MinRunes         int // terms with fewer Unicode scalars than this are dropped; values below 2 (including 0) become 2
	MaxRunes         int // terms longer than this are dropped; 0 means unbounded
}

// Tokenizer segments, normalizes, and filters text into index terms.
// The same instance MUST be used for both indexing and querying so
// that postings and query terms are comparable.
type Tokenizer struct {
	cfg     Config
	caser   cases.Caser
	stop    map[string]struct{}
}

func New(cfg Config) *Tokenizer {
	if cfg.MinRunes < 2 {
		cfg.MinRunes = 2
	}
	t := &Tokenizer{cfg: cfg, caser: cases.Fold()}
	if cfg.StopwordsEnabled {
		t.stop = englishStopwords
	}
	return t
}

// Tokenize implements the index.TokenizeFunc / bm25.TokenizeFunc
// contract: deterministic, order preserving, never returns a term
// shorter than two Unicode scalars.
func (t *Tokenizer) Tokenize(text string) ([]string, error) {
	if text == "" {
		return nil, nil
	}

	out := make([]string, 0, len(text)/6)
	seg := words.NewSegmenter([]byte(text))
	for seg.Next() {
		raw := string(seg.Value())
		if !isWordlike(raw) {
			continue
		}
		term := t.normalize(raw)
		if term == "" {
			continue
		}
		if n := utf8.RuneCountInString(term); n < t.cfg.MinRunes || (t.cfg.MaxRunes > 0 && n > t.cfg.MaxRunes) {
			continue
		}
		if t.stop != nil {
			if _, skip := t.stop[term]; skip {
				continue
			}
		}
		out = append(out, term)
	}
	return out, nil
}

// normalize case-folds, strips emoji/symbol runes, and optionally
// stems a single word-segment down to an index term. An empty result
// means the segment carried no indexable content (pure punctuation,
// pure emoji, etc).
func (t *Tokenizer) normalize(raw string) string {
	folded := t.caser.String(raw)
	stripped := gomoji.RemoveEmojis(folded)
	stripped = strings.TrimSpace(stripped)
	if stripped == "" {
		return ""
	}
	if !containsLetterOrDigit(stripped) {
		return ""
	}
	if t.cfg.Stemming && isASCIILetters(stripped) {
		return english.Stem(stripped, false)
	}
	return stripped
}

// isWordlike filters uax29 segments down to ones that carry letters
// or digits; pure whitespace and punctuation segments are dropped
// before normalization so they never reach the stopword/length checks.
func isWordlike(s string) bool {
	for _, r := range s {
		if isLetterOrDigit(r) {
			return true
		}
	}
	return false
}

func containsLetterOrDigit(s string) bool {
	for _, r := range s {
		if isLetterOrDigit(r) {
			return true
		}
	}
	return false
}

func isLetterOrDigit(r rune) bool {
	return unicode.IsLetter(r) || unicode.IsDigit(r)
}

func isASCIILetters(s string) bool {
	for _, r := range s {
		if r > utf8.RuneSelf {
			return false
		}
	}
	return true
}
