package report

import "strings"

// wrapText splits text into lines no wider than width according to measure.
// Words wider than a full line are broken by byte, which is safe because the
// PDF engine works on single-byte encoded text.
func wrapText(text string, width float64, measure func(string) float64) []string {
	var lines []string
	for _, para := range strings.Split(text, "\n") {
		lines = append(lines, wrapParagraph(para, width, measure)...)
	}
	if len(lines) == 0 {
		return []string{""}
	}
	return lines
}

func wrapParagraph(para string, width float64, measure func(string) float64) []string {
	words := strings.Fields(para)
	if len(words) == 0 {
		return []string{""}
	}
	var lines []string
	current := ""
	for _, word := range words {
		candidate := word
		if current != "" {
			candidate = current + " " + word
		}
		if measure(candidate) <= width {
			current = candidate
			continue
		}
		if current != "" {
			lines = append(lines, current)
			current = ""
		}
		for measure(word) > width && len(word) > 1 {
			cut := breakPoint(word, width, measure)
			lines = append(lines, word[:cut])
			word = word[cut:]
		}
		current = word
	}
	if current != "" {
		lines = append(lines, current)
	}
	return lines
}

// breakPoint returns the longest prefix length of word that fits, at least 1.
func breakPoint(word string, width float64, measure func(string) float64) int {
	cut := 1
	for cut < len(word) && measure(word[:cut+1]) <= width {
		cut++
	}
	return cut
}
