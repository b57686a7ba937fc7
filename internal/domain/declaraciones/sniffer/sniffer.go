// Package sniffer provides automatic detection of delimited-text formats for
// customs declaration exports. Legacy SIDUNEA dumps arrive with inconsistent
// delimiters and occasional "Tabla N" banner lines before the real header.
package sniffer

import (
	"fmt"
	"regexp"
	"strings"
)

// Delimiter candidates in priority order. Tab is tried first and is only
// replaced by a strictly higher occurrence count, so a full tie yields tab.
var delimiterCandidates = []rune{'\t', ';', ',', '|'}

// tableTitlePattern matches banner lines like "Tabla 12" emitted by some
// legacy exporters above the header row.
var tableTitlePattern = regexp.MustCompile(`(?i)^tabla\s+\d+`)

// DetectDelimiter inspects the first non-blank line of sample and returns the
// candidate delimiter with the highest occurrence count. It always returns one
// of tab, semicolon, comma or pipe.
func DetectDelimiter(sample string) rune {
	line := firstNonBlankLine(sample)

	best := '\t'
	bestCount := -1
	for _, candidate := range delimiterCandidates {
		count := strings.Count(line, string(candidate))
		if count > bestCount {
			bestCount = count
			best = candidate
		}
	}
	return best
}

// DetectFirstDataLine returns the 1-based line number the parser should treat
// as the header row. Line 1 is skipped when it looks like a title banner:
// either it matches the "Tabla N" pattern or it contains no delimiters while
// line 2 contains at least one. Samples with fewer than 2 lines always start
// at line 1.
func DetectFirstDataLine(sample string, delimiter rune) int {
	lines := splitLines(sample)
	if len(lines) < 2 {
		return 1
	}

	first := cleanLine(lines[0], true)
	second := cleanLine(lines[1], false)

	firstCount := strings.Count(first, string(delimiter))
	secondCount := strings.Count(second, string(delimiter))
	looksLikeTitle := tableTitlePattern.MatchString(strings.TrimSpace(first))

	if looksLikeTitle || (firstCount == 0 && secondCount > 0) {
		return 2
	}
	return 1
}

// DelimiterFromHint resolves a caller-supplied delimiter hint. An empty hint
// or "auto" returns 0, meaning the delimiter should be sniffed from the file.
func DelimiterFromHint(hint string) (rune, error) {
	switch strings.ToLower(strings.TrimSpace(hint)) {
	case "", "auto":
		return 0, nil
	case "tab":
		return '\t', nil
	case "semicolon":
		return ';', nil
	case "comma":
		return ',', nil
	case "pipe":
		return '|', nil
	default:
		return 0, fmt.Errorf("unknown delimiter hint %q", hint)
	}
}

func firstNonBlankLine(sample string) string {
	for _, line := range splitLines(sample) {
		line = cleanLine(line, true)
		if strings.TrimSpace(line) != "" {
			return line
		}
	}
	return ""
}

func splitLines(sample string) []string {
	return strings.Split(strings.ReplaceAll(sample, "\r\n", "\n"), "\n")
}

func cleanLine(line string, firstLine bool) string {
	line = strings.TrimRight(line, "\r")
	if firstLine {
		line = strings.TrimPrefix(line, "\uFEFF")
	}
	return line
}
