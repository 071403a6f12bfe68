// Package pattern implements the wildcard syntax shared by the listing
// filter and the recursive search: one or more glob patterns separated by
// space, comma or semicolon, matched case-insensitively against entry names.
// `*` matches any run of characters, `?` any single character. Multiple
// patterns are OR-combined.
package pattern

import "strings"

// Parse splits raw input into individual lowercase patterns. An empty input
// yields no patterns; callers decide whether that means "match everything".
func Parse(raw string) []string {
	raw = strings.ReplaceAll(raw, ",", " ")
	raw = strings.ReplaceAll(raw, ";", " ")
	fields := strings.Fields(raw)
	if len(fields) == 0 {
		return nil
	}
	pats := make([]string, 0, len(fields))
	for _, f := range fields {
		pats = append(pats, strings.ToLower(f))
	}
	return pats
}

// Set is a compiled OR-combination of patterns.
type Set struct {
	raw   []string
	tests []func(string) bool
}

// Compile builds a matcher from parsed patterns. A nil or empty slice
// compiles to a set that matches every name.
func Compile(patterns []string) *Set {
	s := &Set{raw: patterns}
	for _, p := range patterns {
		// Plain "*.ext" patterns are by far the most common; a suffix
		// check beats the general matcher.
		if strings.HasPrefix(p, "*.") && !strings.ContainsAny(p[2:], "*?") {
			suffix := p[1:]
			s.tests = append(s.tests, func(name string) bool {
				return strings.HasSuffix(name, suffix)
			})
			continue
		}
		pat := p
		s.tests = append(s.tests, func(name string) bool {
			return wildcardMatch(name, pat)
		})
	}
	return s
}

// CompileString parses and compiles in one step.
func CompileString(raw string) *Set {
	return Compile(Parse(raw))
}

// Empty reports whether the set has no patterns.
func (s *Set) Empty() bool {
	return len(s.tests) == 0
}

// Patterns returns the parsed patterns the set was built from.
func (s *Set) Patterns() []string {
	return s.raw
}

// Match reports whether name matches any pattern in the set. An empty set
// matches everything. Matching is case-insensitive.
func (s *Set) Match(name string) bool {
	if len(s.tests) == 0 {
		return true
	}
	lower := strings.ToLower(name)
	for _, t := range s.tests {
		if t(lower) {
			return true
		}
	}
	return false
}

// wildcardMatch matches name against pattern with * and ? wildcards.
// Iterative two-pointer scan with backtracking on the last star. Operates on
// runes so ? consumes one character, not one byte.
func wildcardMatch(name, pattern string) bool {
	n := []rune(name)
	p := []rune(pattern)
	var ni, pi int
	star, mark := -1, 0

	for ni < len(n) {
		switch {
		case pi < len(p) && (p[pi] == '?' || p[pi] == n[ni]):
			ni++
			pi++
		case pi < len(p) && p[pi] == '*':
			star = pi
			mark = ni
			pi++
		case star >= 0:
			pi = star + 1
			mark++
			ni = mark
		default:
			return false
		}
	}
	for pi < len(p) && p[pi] == '*' {
		pi++
	}
	return pi == len(p)
}
