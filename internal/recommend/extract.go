// Package recommend pulls clinical recommendation statements out of guideline text.
package recommend

import (
	"bytes"
	"encoding/json"
	"regexp"
	"strings"
	"unicode"
)

const bodyLabel = "Recommendation:"

// space also matches Unicode separators such as NBSP, which PDF text
// engines often emit after a label.
const space = `[\s\p{Z}]*`

var (
	corPattern  = regexp.MustCompile(`(?i)Class of Recommendation:` + space + `((?:COR)?` + space + `[A-C1-3]*)`)
	loePattern  = regexp.MustCompile(`(?i)Level of Evidence:` + space + `((?:LOE)?` + space + `[A-C1-3]*)`)
	bodyPattern = regexp.MustCompile(`(?i)` + regexp.QuoteMeta(bodyLabel) + space + `(.*?)\n`)
)

// Extract scans text three times, once per label, and pairs the matches by
// position: record i takes the i-th class, the i-th evidence level and the
// i-th recommendation body. Pairing stops at the shortest list.
func Extract(text string) []Record {
	cors := captures(corPattern, text)
	loes := captures(loePattern, text)
	bodies := bodyCaptures(text)

	n := min(len(cors), len(loes), len(bodies))
	records := make([]Record, 0, n)
	for i := 0; i < n; i++ {
		records = append(records, newRecord(cors[i], loes[i], bodies[i]))
	}
	return records
}

// Encode renders records as the downloadable recommendations.json document:
// a JSON array indented with four spaces, without HTML escaping.
func Encode(records []Record) ([]byte, error) {
	if records == nil {
		records = []Record{}
	}
	var buf bytes.Buffer
	enc := json.NewEncoder(&buf)
	enc.SetEscapeHTML(false)
	enc.SetIndent("", "    ")
	if err := enc.Encode(records); err != nil {
		return nil, err
	}
	return bytes.TrimSuffix(buf.Bytes(), []byte("\n")), nil
}

func captures(re *regexp.Regexp, text string) []string {
	matches := re.FindAllStringSubmatch(text, -1)
	out := make([]string, 0, len(matches))
	for _, m := range matches {
		out = append(out, strings.TrimSpace(m[1]))
	}
	return out
}

func bodyCaptures(text string) []string {
	var out []string
	pos := 0
	for pos < len(text) {
		loc := bodyPattern.FindStringSubmatchIndex(text[pos:])
		if loc == nil {
			break
		}
		start := pos + loc[0]
		if partOfClassLabel(text[:start]) {
			// Resume right after the label so a body label later on the
			// same line is still found.
			pos = start + len(bodyLabel)
			continue
		}
		out = append(out, strings.TrimSpace(text[pos+loc[2]:pos+loc[3]]))
		pos += loc[1]
	}
	return out
}

// partOfClassLabel reports whether prefix, the text before a
// "Recommendation:" label, ends in "class of" followed by whitespace, making
// the label part of a "Class of Recommendation:" label.
func partOfClassLabel(prefix string) bool {
	rest := strings.TrimRightFunc(prefix, isSpace)
	if len(rest) == len(prefix) || !hasFoldSuffix(rest, "of") {
		return false
	}
	rest = rest[:len(rest)-len("of")]
	trimmed := strings.TrimRightFunc(rest, isSpace)
	return len(trimmed) < len(rest) && hasFoldSuffix(trimmed, "class")
}

func hasFoldSuffix(s, suffix string) bool {
	return len(s) >= len(suffix) && strings.EqualFold(s[len(s)-len(suffix):], suffix)
}

func isSpace(r rune) bool {
	return unicode.IsSpace(r) || unicode.Is(unicode.Z, r)
}
