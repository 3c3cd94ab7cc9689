// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package identity

import (
	"strings"
	"unicode"
	"unicode/utf8"
)

// Name is a personal name split into its components.
type Name struct {
	Title  string
	First  string
	Middle string
	Last   string
	Suffix string
}

var titles = setOf("dr", "prof", "professor", "mr", "mrs", "ms", "miss", "sir", "dame", "rev", "hon", "herr", "frau")

var suffixes = setOf("jr", "sr", "ii", "iii", "iv", "v", "phd", "md")

// particles start a multi-word last name ("van der Berg").
var particles = setOf("van", "von", "de", "der", "den", "da", "di", "del", "della", "du", "la", "le", "ten", "ter", "dos", "das")

func setOf(words ...string) map[string]bool {
	m := make(map[string]bool, len(words))
	for _, w := range words {
		m[w] = true
	}
	return m
}

// bare lowercases a token and strips trailing dots for table lookups.
func bare(tok string) string {
	return strings.ToLower(strings.TrimRight(tok, "."))
}

// ParseName splits a free-form personal name. It accepts "First Middle
// Last" and "Last, First Middle" forms, recognizes leading titles and
// trailing suffixes, and keeps last-name particles with the last name.
// Every component is capitalized, hyphenated parts included, while
// initials such as "J." are kept as written.
func ParseName(s string) Name {
	var (
		n      Name
		tokens []string
		last   []string
	)

	parts := splitComma(s)
	switch {
	case len(parts) == 0:
		return n
	case len(parts) == 1 || allSuffixes(parts[1:]):
		tokens = strings.Fields(parts[0])
		if len(parts) > 1 {
			n.Suffix = formatSuffix(strings.Join(parts[1:], " "))
		}
	default:
		last = strings.Fields(parts[0])
		tokens = strings.Fields(parts[1])
		if len(parts) > 2 {
			n.Suffix = formatSuffix(strings.Join(parts[2:], " "))
		}
	}

	var title []string
	for len(tokens)+len(last) > 1 && len(tokens) > 0 && titles[bare(tokens[0])] {
		title = append(title, tokens[0])
		tokens = tokens[1:]
	}
	n.Title = strings.Join(title, " ")

	if last == nil {
		for len(tokens) > 1 && suffixes[bare(tokens[len(tokens)-1])] {
			suffix := formatSuffix(tokens[len(tokens)-1])
			n.Suffix = strings.TrimSpace(suffix + " " + n.Suffix)
			tokens = tokens[:len(tokens)-1]
		}
		if len(tokens) == 0 {
			return n
		}
		if len(tokens) == 1 {
			n.First = capitalize(tokens[0])
			return n
		}
		start := len(tokens) - 1
		for i := 1; i < len(tokens)-1; i++ {
			if particles[bare(tokens[i])] {
				start = i
				break
			}
		}
		last = tokens[start:]
		tokens = tokens[:start]
	}

	if len(tokens) > 0 {
		n.First = capitalize(tokens[0])
		n.Middle = joinCapitalized(tokens[1:], false)
	}
	n.Last = joinCapitalized(last, true)
	return n
}

// String renders the name without its title.
func (n Name) String() string {
	var out []string
	for _, c := range []string{n.First, n.Middle, n.Last, n.Suffix} {
		if c != "" {
			out = append(out, c)
		}
	}
	return strings.Join(out, " ")
}

// Normalize returns the canonical spelling of a name.
func Normalize(name string) string {
	return ParseName(name).String()
}

func splitComma(s string) []string {
	var parts []string
	for _, p := range strings.Split(s, ",") {
		if p = strings.Join(strings.Fields(p), " "); p != "" {
			parts = append(parts, p)
		}
	}
	return parts
}

func allSuffixes(parts []string) bool {
	for _, p := range parts {
		for _, tok := range strings.Fields(p) {
			if !suffixes[bare(tok)] {
				return false
			}
		}
	}
	return true
}

func formatSuffix(s string) string {
	var out []string
	for _, tok := range strings.Fields(s) {
		switch bare(tok) {
		case "ii", "iii", "iv", "v":
			out = append(out, strings.ToUpper(tok))
		case "phd":
			out = append(out, "PhD")
		default:
			out = append(out, capitalize(tok))
		}
	}
	return strings.Join(out, " ")
}

// joinCapitalized capitalizes tokens, leaving particles lowercase when
// keepParticles is set.
func joinCapitalized(tokens []string, keepParticles bool) string {
	out := make([]string, len(tokens))
	for i, tok := range tokens {
		if keepParticles && i < len(tokens)-1 && particles[bare(tok)] {
			out[i] = strings.ToLower(tok)
			continue
		}
		out[i] = capitalize(tok)
	}
	return strings.Join(out, " ")
}

// capitalize forces "first letter upper, rest lower" on every part of a
// token separated by hyphens or apostrophes. "Mc" prefixes keep the
// following letter upper.
func capitalize(tok string) string {
	var b strings.Builder
	upper := true
	for i, r := range strings.ToLower(tok) {
		switch {
		case r == '-' || r == '\'':
			b.WriteRune(r)
			upper = true
			continue
		case upper:
			b.WriteRune(unicode.ToUpper(r))
		default:
			b.WriteRune(r)
		}
		upper = false
		if i == 1 && strings.HasPrefix(strings.ToLower(tok), "mc") && utf8.RuneCountInString(tok) > 2 {
			upper = true
		}
	}
	return b.String()
}
