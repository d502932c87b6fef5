// Package parser provides utilities for parsing structured content from LLM
// responses.
package parser

import (
	"sort"
	"strings"
)

// Fields maps a recognized tag to its captured value. A tag that never
// appeared reads as the empty string.
type Fields map[string]string

// Get returns the value captured for tag, or "" when it is missing.
func (f Fields) Get(tag string) string {
	return f[strings.ToUpper(tag)]
}

// Grammar is a tolerant tagged-line grammar. Lines of the form `TAG: value`
// whose tag is recognized start a new field; every following line that does
// not start another recognized tag is appended to the current field. Text
// before the first recognized tag is ignored.
//
// Matching is case-insensitive and tolerates markdown decoration such as
// "- ", "## " or "**TAG:**" around the tag. If a tag appears more than once,
// the last occurrence wins.
type Grammar struct {
	tags  []string
	known map[string]struct{}
}

// NewGrammar creates a grammar recognizing the given tags.
func NewGrammar(tags ...string) *Grammar {
	g := &Grammar{known: make(map[string]struct{}, len(tags))}
	for _, t := range tags {
		t = strings.ToUpper(strings.TrimSpace(t))
		if t == "" {
			continue
		}
		if _, dup := g.known[t]; dup {
			continue
		}
		g.known[t] = struct{}{}
		g.tags = append(g.tags, t)
	}
	return g
}

// Tags returns the recognized tags in declaration order.
func (g *Grammar) Tags() []string {
	out := make([]string, len(g.tags))
	copy(out, g.tags)
	return out
}

// Parse captures every recognized tag in text. The result always holds an
// entry for each recognized tag.
func (g *Grammar) Parse(text string) Fields {
	fields := make(Fields, len(g.tags))
	for _, t := range g.tags {
		fields[t] = ""
	}

	var (
		current string
		buf     []string
	)
	flush := func() {
		if current != "" {
			fields[current] = strings.TrimSpace(strings.Join(buf, "\n"))
		}
	}

	for _, raw := range strings.Split(text, "\n") {
		line := strings.TrimSpace(raw)
		if tag, value, ok := g.match(line); ok {
			flush()
			current = tag
			buf = []string{value}
			continue
		}
		if current != "" {
			buf = append(buf, line)
		}
	}
	flush()

	return fields
}

// match reports whether line opens a recognized tag.
func (g *Grammar) match(line string) (tag, value string, ok bool) {
	idx := strings.Index(line, ":")
	if idx <= 0 {
		return "", "", false
	}
	tag = strings.ToUpper(strings.Trim(line[:idx], " \t*#-_>`"))
	if _, known := g.known[tag]; !known {
		return "", "", false
	}
	value = strings.TrimSpace(strings.TrimLeft(line[idx+1:], "*` \t"))
	return tag, value, true
}

// Format renders fields back into tagged lines in the grammar's tag order,
// skipping empty values. Unknown keys are appended in sorted order.
func (g *Grammar) Format(fields Fields) string {
	var b strings.Builder
	write := func(tag, value string) {
		if value == "" {
			return
		}
		if b.Len() > 0 {
			b.WriteByte('\n')
		}
		b.WriteString(tag)
		b.WriteString(": ")
		b.WriteString(value)
	}

	for _, t := range g.tags {
		write(t, fields[t])
	}

	var extra []string
	for k := range fields {
		if _, known := g.known[k]; !known {
			extra = append(extra, k)
		}
	}
	sort.Strings(extra)
	for _, k := range extra {
		write(k, fields[k])
	}
	return b.String()
}
