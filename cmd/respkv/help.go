package main

import (
	"strings"
)

// helpWidth is the column flag descriptions wrap at
const helpWidth = 50

// usage formats a flag description for the help output, wrapping it at
// helpWidth columns
func usage(text string) string {
	var lines []string
	line := ""

	for _, word := range strings.Fields(text) {
		switch {
		case line == "":
			line = word
		case len(line)+1+len(word) <= helpWidth:
			line += " " + word
		default:
			lines = append(lines, line)
			line = word
		}
	}
	if line != "" {
		lines = append(lines, line)
	}

	return strings.Join(lines, "\n")
}
