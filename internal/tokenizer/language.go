package tokenizer

import "github.com/RadhiFadlillah/whatlanggo"

// DetectLanguage returns the ISO 639-3 code of the most likely
// language of text, or "" if no language could be detected with
// reasonable confidence. It is metadata only: it never feeds back
// into Tokenize, so index postings stay independent of it.
func DetectLanguage(text string) string {
	info := whatlanggo.Detect(text)
	if !info.IsReliable() {
		return ""
	}
	return info.Lang.Iso6393()
}
