package tabular

import (
	"strings"
)

// Dialect describes how cells are separated and quoted.
type Dialect struct {
	Delimiter rune `json:"delimiter"`
	Quote     rune `json:"quote"`
}

var DefaultDialect = Dialect{Delimiter: ',', Quote: '"'}

var delimiterCandidates = []rune{',', ';', '\t', '|', ':'}

// Sniff guesses the dialect from complete lines of a file. The delimiter is
// the candidate appearing the same non-zero number of times on the most lines,
// earlier candidates win ties. Single quotes are only chosen when they wrap
// fields and double quotes never do.
func Sniff(sample []byte) Dialect {
	text := strings.ReplaceAll(string(sample), "\r\n", "\n")
	lines := strings.Split(text, "\n")

	dialect := DefaultDialect
	if wrapCount(lines, '\'') > 0 && wrapCount(lines, '"') == 0 {
		dialect.Quote = '\''
	}

	bestScore := 0
	for _, candidate := range delimiterCandidates {
		perCount := make(map[int]int)
		for _, line := range lines {
			if n := countOutsideQuotes(line, candidate, dialect.Quote); n > 0 {
				perCount[n]++
			}
		}

		score := 0
		for _, lineNum := range perCount {
			if lineNum > score {
				score = lineNum
			}
		}

		if score > bestScore {
			dialect.Delimiter, bestScore = candidate, score
		}
	}

	return dialect
}

// wrapCount counts quote characters sitting on a field boundary.
func wrapCount(lines []string, quote rune) int {
	count := 0
	for _, line := range lines {
		runes := []rune(line)
		for i, r := range runes {
			if r != quote {
				continue
			}

			atStart := i == 0 || isDelimiter(runes[i-1])
			atEnd := i == len(runes)-1 || isDelimiter(runes[i+1])
			if atStart || atEnd {
				count++
			}
		}
	}

	return count
}

func isDelimiter(r rune) bool {
	for _, candidate := range delimiterCandidates {
		if r == candidate {
			return true
		}
	}

	return false
}

func countOutsideQuotes(line string, delimiter, quote rune) int {
	count := 0
	quoted := false
	for _, r := range line {
		switch {
		case r == quote:
			quoted = !quoted
		case r == delimiter && !quoted:
			count++
		}
	}

	return count
}
