// package header keeps the request header lines a builder accumulates.
//
// Lines are stored verbatim ("Name: Value", with the caller's casing) and
// keyed by the lower-cased name, so setting "x-foo" and later "X-FOO"
// leaves a single "X-FOO: ..." line at the position "x-foo" took first.
package header

import (
	"sort"
	"strings"

	"golang.org/x/net/http/httpguts"
)

type entry struct {
	key  string // lower-cased name
	name string
	line string
}

// Set is an ordered, case-insensitive collection of raw header lines.
// The zero value is ready to use.
type Set struct {
	entries []entry
	index   map[string]int
}

func New() *Set {
	return &Set{}
}

// Parse splits a raw "Name: Value" line. Only the first colon separates
// the name from the value.
func Parse(line string) (name, value string, ok bool) {
	name, value, ok = strings.Cut(line, ":")
	if !ok {
		return "", "", false
	}
	return strings.TrimSpace(name), strings.TrimSpace(value), true
}

// Add stores name: value, replacing any header with the same name.
// Names that are not valid field names are ignored.
func (s *Set) Add(name, value string) bool {
	name, value = strings.TrimSpace(name), strings.TrimSpace(value)
	if !httpguts.ValidHeaderFieldName(name) || !httpguts.ValidHeaderFieldValue(value) {
		return false
	}
	key := strings.ToLower(name)
	e := entry{key: key, name: name, line: name + ": " + value}
	if s.index == nil {
		s.index = map[string]int{}
	}
	if i, ok := s.index[key]; ok {
		s.entries[i] = e
		return true
	}
	s.index[key] = len(s.entries)
	s.entries = append(s.entries, e)
	return true
}

// AddLines merges raw "Name: Value" lines. Lines without a colon are dropped.
func (s *Set) AddLines(lines ...string) {
	for _, l := range lines {
		if name, value, ok := Parse(l); ok {
			s.Add(name, value)
		}
	}
}

// AddMap merges a name → value mapping in name order.
func (s *Set) AddMap(m map[string]string) {
	names := make([]string, 0, len(m))
	for k := range m {
		names = append(names, k)
	}
	sort.Strings(names)
	for _, k := range names {
		s.Add(k, m[k])
	}
}

// Get returns the value stored for name, case-insensitively.
func (s *Set) Get(name string) (string, bool) {
	if s == nil {
		return "", false
	}
	i, ok := s.index[strings.ToLower(strings.TrimSpace(name))]
	if !ok {
		return "", false
	}
	_, v, _ := Parse(s.entries[i].line)
	return v, true
}

func (s *Set) Del(name string) {
	if s == nil {
		return
	}
	key := strings.ToLower(strings.TrimSpace(name))
	i, ok := s.index[key]
	if !ok {
		return
	}
	s.entries = append(s.entries[:i], s.entries[i+1:]...)
	delete(s.index, key)
	for j := i; j < len(s.entries); j++ {
		s.index[s.entries[j].key] = j
	}
}

func (s *Set) Len() int {
	if s == nil {
		return 0
	}
	return len(s.entries)
}

// Lines returns the stored lines in insertion order.
func (s *Set) Lines() []string {
	if s == nil {
		return nil
	}
	lines := make([]string, len(s.entries))
	for i, e := range s.entries {
		lines[i] = e.line
	}
	return lines
}

// Each calls f with the original-case name and the value of every line.
func (s *Set) Each(f func(name, value string)) {
	if s == nil {
		return
	}
	for _, e := range s.entries {
		_, v, _ := Parse(e.line)
		f(e.name, v)
	}
}

func (s *Set) Clone() *Set {
	c := &Set{}
	if s == nil {
		return c
	}
	c.entries = append([]entry(nil), s.entries...)
	c.index = make(map[string]int, len(s.index))
	for k, v := range s.index {
		c.index[k] = v
	}
	return c
}
