package agents

import (
	"regexp"
	"strings"
)

// keywordMatcher reports whether a prompt mentions any of a set of terms.
// Words match at a word start, so "test" matches "testing" but not
// "latest"; terms of three letters or fewer must match a whole word;
// file extensions match at a word end.
type keywordMatcher struct {
	re *regexp.Regexp
}

func newKeywordMatcher(terms ...string) keywordMatcher {
	alts := make([]string, len(terms))
	for i, term := range terms {
		q := regexp.QuoteMeta(strings.ToLower(term))
		switch {
		case strings.HasPrefix(term, "."):
			alts[i] = q + `\b`
		case len(term) <= 3:
			alts[i] = `\b` + q + `\b`
		default:
			alts[i] = `\b` + q
		}
	}
	return keywordMatcher{re: regexp.MustCompile(`(?i)(?:` + strings.Join(alts, "|") + `)`)}
}

func (m keywordMatcher) Match(s string) bool { return m.re.MatchString(s) }
