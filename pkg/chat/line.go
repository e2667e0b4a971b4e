package chat

import (
	"fmt"
	"regexp"
	"strings"

	"github.com/teslashibe/go-companion/pkg/affect"
)

// A line may start with [TAG] or [TAG:movement].
var linePrefix = regexp.MustCompile(`^\s*\[([A-Za-z]+)(?::([A-Za-z]+))?\]\s*`)

// ParseLine splits a generated line into its emotion tag, movement and text.
// Unknown tags fall back to NEUTRAL and unknown movements to idle; the
// returned warning describes what was dropped. A line without a prefix is
// NEUTRAL.
func ParseLine(s string) (u affect.Utterance, warn error, err error) {
	text := s
	u.Tag = affect.TagNeutral
	u.Movement = affect.MovementIdle

	if m := linePrefix.FindStringSubmatch(s); m != nil {
		text = s[len(m[0]):]
		tag, tagErr := affect.ParseTag(m[1])
		u.Tag = tag
		warn = tagErr
		if m[2] != "" {
			mv, mvErr := affect.ParseMovement(m[2])
			u.Movement = mv
			if warn == nil {
				warn = mvErr
			}
		}
	}

	u.Text = clean(text)
	if u.Text == "" {
		return affect.Utterance{}, nil, fmt.Errorf("%w: %q", ErrEmptyLine, s)
	}
	return u, warn, nil
}

// clean keeps the first line and strips wrapping quotes.
func clean(s string) string {
	s = strings.TrimSpace(s)
	if i := strings.IndexByte(s, '\n'); i >= 0 {
		s = strings.TrimSpace(s[:i])
	}
	s = strings.Trim(s, `"`)
	return strings.TrimSpace(s)
}
