package tokenizer

import (
	"reflect"
	"testing"
)

func TestTokenizer_BasicSegmentationAndFold(t *testing.T) {
	tok := New(Config{})
	got, err := tok.Tokenize("The Fed raised rates.")
	if err != nil {
		t.Fatalf("Tokenize() error = %v", err)
	}
	want := []string{"the", "fed", "raised", "rates"}
	if !reflect.DeepEqual(got, want) {
		t.Errorf("Tokenize() = %v, want %v", got, want)
	}
}

func TestTokenizer_DropsShortAndPunctuation(t *testing.T) {
	tok := New(Config{})
	got, err := tok.Tokenize("I am, a CEO!")
	if err != nil {
		t.Fatalf("Tokenize() error = %v", err)
	}
	for _, term := range got {
		if len([]rune(term)) < 2 {
			t.Errorf("Tokenize() returned too-short term %q", term)
		}
	}
}

func TestTokenizer_StripsEmoji(t *testing.T) {
	tok := New(Config{})
	got, err := tok.Tokenize("great news 🚀🚀 today")
	if err != nil {
		t.Fatalf("Tokenize() error = %v", err)
	}
	want := []string{"great", "news", "today"}
	if !reflect.DeepEqual(got, want) {
		t.Errorf("Tokenize() = %v, want %v", got, want)
	}
}

func TestTokenizer_StopwordsGated(t *testing.T) {
	withStop := New(Config{StopwordsEnabled: true})
	got, err := withStop.Tokenize("the rate of return")
	if err != nil {
		t.Fatalf("Tokenize() error = %v", err)
	}
	for _, term := range got {
		if term == "the" || term == "of" {
			t.Errorf("Tokenize() with stopwords enabled kept %q", term)
		}
	}

	withoutStop := New(Config{})
	got2, err := withoutStop.Tokenize("the rate of return")
	if err != nil {
		t.Fatalf("Tokenize() error = %v", err)
	}
	if len(got2) <= len(got) {
		t.Errorf("disabling stopwords should keep more terms: got %v vs %v", got2, got)
	}
}

func TestTokenizer_StemmingGated(t *testing.T) {
	stemmed := New(Config{Stemming: true})
	got, err := stemmed.Tokenize("rates rating rated")
	if err != nil {
		t.Fatalf("Tokenize() error = %v", err)
	}
	for i := 1; i < len(got); i++ {
		if got[i] != got[0] {
			t.Errorf("expected stemming to collapse related forms, got %v", got)
			break
		}
	}
}

func TestTokenizer_Deterministic(t *testing.T) {
	tok := New(Config{})
	const text = "Markets rallied after the central bank's surprise announcement."
	a, err := tok.Tokenize(text)
	if err != nil {
		t.Fatalf("Tokenize() error = %v", err)
	}
	b, err := tok.Tokenize(text)
	if err != nil {
		t.Fatalf("Tokenize() error = %v", err)
	}
	if !reflect.DeepEqual(a, b) {
		t.Errorf("Tokenize() not deterministic: %v vs %v", a, b)
	}
}

func TestTokenizer_EmptyInput(t *testing.T) {
	tok := New(Config{})
	got, err := tok.Tokenize("")
	if err != nil {
		t.Fatalf("Tokenize() error = %v", err)
	}
	if len(got) != 0 {
		t.Errorf("Tokenize(\"\") = %v, want empty", got)
	}
}

func TestDetectLanguage_EnglishText(t *testing.T) {
	lang := DetectLanguage("The central bank raised interest rates again this quarter, surprising most analysts who expected a pause.")
	if lang != "" && lang != "eng" {
		t.Errorf("DetectLanguage() = %q, want \"eng\" or \"\" (undetected)", lang)
	}
}
