package common

import (
	"bufio"
	"strings"
)

var delimiters = []rune{',', '\t', ';', '|'}

// DetectDelimiter picks the delimiter that occurs most often in a raw line of text.
// Ties go to the earlier candidate; an empty line yields a comma.
func DetectDelimiter(line string) rune {
	if line == "" {
		return ','
	}

	maxCount := -1
	winner := ','
	for _, delim := range delimiters {
		count := strings.Count(line, string(delim))
		if count > maxCount {
			maxCount = count
			winner = delim
		}
	}
	return winner
}

// ColumnCount estimates the number of fields in line, ignoring quoting.
func ColumnCount(line string, delimiter rune) int {
	if line == "" {
		return 0
	}
	return strings.Count(line, string(delimiter)) + 1
}

// PeekDelimiter detects the delimiter from the first buffered line of br without
// consuming input.
func PeekDelimiter(br *bufio.Reader) rune {
	buf, _ := br.Peek(br.Size())
	line := string(buf)
	if i := strings.IndexAny(line, "\r\n"); i >= 0 {
		line = line[:i]
	}
	return DetectDelimiter(line)
}
