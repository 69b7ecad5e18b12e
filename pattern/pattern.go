// Package pattern compiles wildcard key patterns to anchored regular
// expressions, computes their priority, and picks the highest-priority
// pattern matching a given key.
package pattern

import (
	"errors"
	"regexp"
	"strings"
	"sync"
)

// ErrEmptyPattern is returned by Compile for a blank literal.
var ErrEmptyPattern = errors.New("pattern: empty pattern literal")

// Compiled holds a pattern literal, its priority, and its matcher.
type Compiled struct {
	Literal  string
	Priority int
	re       *regexp.Regexp
}

// Matches reports whether key matches the compiled pattern.
func (c *Compiled) Matches(key string) bool {
	return c.re.MatchString(key)
}

// ComputePriority derives the auto priority of a pattern literal per the
// pattern grammar: a literal with no wildcard is treated as priority 100
// (on par with an exact match); otherwise 10*segments - 5*wildcards, where
// segments are colon-separated components.
func ComputePriority(literal string) int {
	if !strings.Contains(literal, "*") {
		return 100
	}
	segments := len(strings.Split(literal, ":"))
	wildcards := strings.Count(literal, "*")
	return 10*segments - 5*wildcards
}

// Compile compiles literal (which may contain `*` wildcards, matched
// greedily) into an anchored matcher. priority<0 means "auto": use
// ComputePriority.
func Compile(literal string, priority int) (*Compiled, error) {
	if literal == "" {
		return nil, ErrEmptyPattern
	}
	if priority < 0 {
		priority = ComputePriority(literal)
	}

	parts := strings.Split(literal, "*")
	for i, p := range parts {
		parts[i] = regexp.QuoteMeta(p)
	}
	anchored := "^" + strings.Join(parts, ".*") + "$"
	re, err := regexp.Compile(anchored)
	if err != nil {
		return nil, err
	}
	return &Compiled{Literal: literal, Priority: priority, re: re}, nil
}

// Matcher holds the in-process set of compiled patterns and selects the
// best match for a key. Safe for concurrent use; writes happen under a
// per-save critical section per the spec's concurrency model.
type Matcher struct {
	mu       sync.Mutex
	patterns map[string]*Compiled
}

func NewMatcher() *Matcher {
	return &Matcher{patterns: make(map[string]*Compiled)}
}

// Put inserts or replaces the compiled pattern c under its literal.
func (m *Matcher) Put(c *Compiled) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.patterns[c.Literal] = c
}

// Remove deletes the pattern literal from the set.
func (m *Matcher) Remove(literal string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.patterns, literal)
}

// Reset replaces the whole pattern set, used by a full reload.
func (m *Matcher) Reset(patterns []*Compiled) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.patterns = make(map[string]*Compiled, len(patterns))
	for _, c := range patterns {
		m.patterns[c.Literal] = c
	}
}

// FindBestMatch returns the highest-priority pattern matching key. Among
// matches of equal priority the lexicographically smallest literal wins, so
// the choice does not depend on map iteration order.
func (m *Matcher) FindBestMatch(key string) (*Compiled, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()

	var best *Compiled
	for _, c := range m.patterns {
		if !c.Matches(key) {
			continue
		}
		if best == nil || c.Priority > best.Priority ||
			(c.Priority == best.Priority && c.Literal < best.Literal) {
			best = c
		}
	}
	if best == nil {
		return nil, false
	}
	return best, true
}
