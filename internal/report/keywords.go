package report

import (
	"strings"
	"unicode/utf8"
)

const (
	maxKeywordWords = 6
	maxKeywordRunes = 64
)

// Reason is one rule a questionable keyword trips.
type Reason int

const (
	TooManyWords Reason = iota
	TooLong
	DoubleQuote
	NonLatin1
)

var reasons = [...]struct{ name, text string }{
	TooManyWords: {"too_many_words", "contains too many words?"},
	TooLong:      {"too_long", "too long?"},
	DoubleQuote:  {"double_quote", "contains a double quote"},
	NonLatin1:    {"non_latin1", "contains non Latin-1 characters"},
}

func (r Reason) String() string { return reasons[r].name }

// Text is the human-readable description used in the report.
func (r Reason) Text() string { return reasons[r].text }

func (r Reason) MarshalText() ([]byte, error) { return []byte(r.String()), nil }

// QuestionableReasons returns every rule keyword trips, in rule order. The
// rules are independent; an empty result means the keyword is fine.
func QuestionableReasons(keyword string) []Reason {
	var out []Reason
	if len(strings.Split(keyword, " ")) > maxKeywordWords {
		out = append(out, TooManyWords)
	}
	if utf8.RuneCountInString(keyword) > maxKeywordRunes {
		out = append(out, TooLong)
	}
	if strings.ContainsRune(keyword, '"') {
		out = append(out, DoubleQuote)
	}
	for _, r := range keyword {
		if r > 0xFF {
			out = append(out, NonLatin1)
			break
		}
	}
	return out
}
