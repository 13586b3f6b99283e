package format

import (
	"fmt"
	"regexp"
	"strconv"
	"strings"
)

var (
	seqPadRe = regexp.MustCompile(`\{SEQ(\d+)\}`)
)

// FormatNumber renders a reference number from a template, the allocation
// year and the allocated sequence value.
//
// Tokens: {YYYY}, {YY}, {SEQ} and {SEQn} (zero padded to n digits; wider
// values are printed in full, never truncated).
func FormatNumber(template string, year int, seq int64) (string, error) {
	if template == "" {
		return "", fmt.Errorf("number template is empty")
	}
	if !strings.Contains(template, "{SEQ") {
		return "", fmt.Errorf("number template %q has no sequence token", template)
	}
	if seq <= 0 {
		return "", fmt.Errorf("invalid sequence value: %d", seq)
	}
	if year < 0 || year > 9999 {
		return "", fmt.Errorf("invalid year: %d", year)
	}

	out := template

	out = strings.ReplaceAll(out, "{YYYY}", fmt.Sprintf("%04d", year))
	out = strings.ReplaceAll(out, "{YY}", fmt.Sprintf("%02d", year%100))

	out = strings.ReplaceAll(out, "{SEQ}", strconv.FormatInt(seq, 10))

	out = seqPadRe.ReplaceAllStringFunc(out, func(m string) string {
		match := seqPadRe.FindStringSubmatch(m)
		if len(match) != 2 {
			return m
		}

		width, err := strconv.Atoi(match[1])
		if err != nil || width <= 0 {
			return m
		}

		return fmt.Sprintf("%0*d", width, seq)
	})

	if strings.Contains(out, "{") || strings.Contains(out, "}") {
		return "", fmt.Errorf("unresolved token in number template: %s", out)
	}

	return out, nil
}
