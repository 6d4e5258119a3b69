package service

import (
	"strings"
	"unicode"

	"github.com/antzucaro/matchr"
)

const recognitionSimilarity = 0.85

// RecognitionMatches reports whether the text the speech service recognized
// sounds like the target word. Words match on any shared Double Metaphone
// code or on a Jaro-Winkler similarity of at least 0.85. An empty
// recognition is treated as a match because nothing contradicts the target.
func RecognitionMatches(recognized, target string) bool {
	r := cleanWord(recognized)
	t := cleanWord(target)
	if r == "" || r == t {
		return true
	}

	rp, rs := matchr.DoubleMetaphone(r)
	tp, ts := matchr.DoubleMetaphone(t)
	for _, a := range []string{rp, rs} {
		if a == "" {
			continue
		}
		if a == tp || a == ts {
			return true
		}
	}

	return matchr.JaroWinkler(r, t, false) >= recognitionSimilarity
}

// cleanWord lowercases s and drops punctuation such as the trailing period
// speech services add to display text.
func cleanWord(s string) string {
	s = strings.Map(func(r rune) rune {
		if unicode.IsLetter(r) || unicode.IsDigit(r) || unicode.IsSpace(r) || r == '\'' {
			return unicode.ToLower(r)
		}
		return -1
	}, s)
	return strings.Join(strings.Fields(s), " ")
}
