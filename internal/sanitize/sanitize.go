// Package sanitize scrubs generated post text before it is published:
// configured patterns are removed and whitespace is normalized.
package sanitize

import (
	"fmt"
	"regexp"
	"strings"
)

var multiBlankRe = regexp.MustCompile(`\n{3,}`)

// Sanitizer removes disallowed patterns from outbound text.
type Sanitizer struct {
	patterns []*regexp.Regexp
}

// New compiles the pattern list. An invalid pattern is a config error.
func New(patterns []string) (*Sanitizer, error) {
	compiled := make([]*regexp.Regexp, 0, len(patterns))
	for _, p := range patterns {
		re, err := regexp.Compile(p)
		if err != nil {
			return nil, fmt.Errorf("compile sanitize pattern %q: %w", p, err)
		}
		compiled = append(compiled, re)
	}
	return &Sanitizer{patterns: compiled}, nil
}

// Apply removes every pattern match and tidies the remaining whitespace.
func (s *Sanitizer) Apply(text string) string {
	for _, re := range s.patterns {
		text = re.ReplaceAllString(text, "")
	}

	lines := strings.Split(text, "\n")
	for i, line := range lines {
		lines[i] = strings.TrimRight(line, " \t")
	}
	text = strings.Join(lines, "\n")
	text = multiBlankRe.ReplaceAllString(text, "\n\n")
	return strings.TrimSpace(text)
}
