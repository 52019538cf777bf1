package config

import (
	"strconv"
	"strings"
)

// Print renders a tree back to the config language. Re-parsing Print's
// output reproduces an equal tree (spec §8's idempotence law), since
// Print quotes every name or value that is empty or contains whitespace,
// braces, ';', '"' or '#', and never emits comments.
func Print(list []*Entry) string {
	var sb strings.Builder
	printBlock(&sb, list, 0)
	return sb.String()
}

func printBlock(sb *strings.Builder, list []*Entry, depth int) {
	indent := strings.Repeat("\t", depth)
	for _, e := range list {
		sb.WriteString(indent)
		if e.Name != "" {
			sb.WriteString(quoteIfNeeded(e.Name))
			sb.WriteString(" ")
		}
		switch e.Type {
		case Data:
			sb.WriteString(quoteIfNeeded(e.Value))
			sb.WriteString(";\n")
		case List:
			sb.WriteString("{\n")
			printBlock(sb, e.Children, depth+1)
			sb.WriteString(indent)
			sb.WriteString("};\n")
		}
	}
}

func quoteIfNeeded(s string) string {
	needsQuote := s == ""
	for _, r := range s {
		switch r {
		case ' ', '\t', '\n', '\r', '{', '}', ';', '"', '#':
			needsQuote = true
		}
	}
	if !needsQuote {
		return s
	}
	return strconv.Quote(s)
}
