package poster

import "strings"

// WrapText breaks text into lines of at most width runes.
// Words longer than width are split. When more than maxLines lines are
// needed, the last kept line is shortened until placeholder fits after it.
// maxLines <= 0 keeps every line.
func WrapText(text string, width, maxLines int, placeholder string) string {
	words := strings.Fields(text)
	if len(words) == 0 || width <= 0 {
		return ""
	}

	var lines [][]string
	var current []string
	currentLen := 0
	flush := func() {
		if len(current) > 0 {
			lines = append(lines, current)
			current, currentLen = nil, 0
		}
	}

	for _, word := range words {
		runes := []rune(word)
		for len(runes) > width {
			// Fill the rest of the current line, then keep splitting
			room := width - currentLen
			if currentLen > 0 {
				room--
			}
			if room <= 0 {
				flush()
				continue
			}
			current = append(current, string(runes[:room]))
			currentLen += room
			if len(current) > 1 {
				currentLen++
			}
			runes = runes[room:]
			flush()
		}
		if len(runes) == 0 {
			continue
		}

		wordLen := len(runes)
		needed := wordLen
		if currentLen > 0 {
			needed++
		}
		if currentLen+needed > width {
			flush()
			needed = wordLen
		}
		current = append(current, string(runes))
		currentLen += needed
	}
	flush()

	if maxLines <= 0 || len(lines) <= maxLines {
		return joinLines(lines)
	}

	lines = lines[:maxLines]
	last := lines[maxLines-1]
	phLen := len([]rune(placeholder))
	for len(last) > 0 && len([]rune(strings.Join(last, " ")))+phLen > width {
		last = last[:len(last)-1]
	}
	if len(last) == 0 {
		lines[maxLines-1] = []string{strings.TrimSpace(placeholder)}
	} else {
		lines[maxLines-1] = []string{strings.Join(last, " ") + placeholder}
	}
	return joinLines(lines)
}

func joinLines(lines [][]string) string {
	out := make([]string, len(lines))
	for i, l := range lines {
		out[i] = strings.Join(l, " ")
	}
	return strings.Join(out, "\n")
}
