package matching

import (
	"sort"
	"strings"
	"unicode/utf8"
)

const (
	MaxInterests     = 10
	MaxInterestRunes = 32
)

// NormalizeInterests trims and lowercases tags, drops empty ones and
// duplicates, truncates long tags and keeps at most MaxInterests of them in
// the order given.
func NormalizeInterests(raw []string) []string {
	if len(raw) == 0 {
		return nil
	}
	seen := make(map[string]struct{}, len(raw))
	out := make([]string, 0, len(raw))
	for _, tag := range raw {
		tag = strings.ToLower(strings.TrimSpace(tag))
		if tag == "" {
			continue
		}
		if utf8.RuneCountInString(tag) > MaxInterestRunes {
			tag = string([]rune(tag)[:MaxInterestRunes])
		}
		if _, dup := seen[tag]; dup {
			continue
		}
		seen[tag] = struct{}{}
		out = append(out, tag)
		if len(out) == MaxInterests {
			break
		}
	}
	if len(out) == 0 {
		return nil
	}
	return out
}

// sharedInterests returns the sorted intersection of two tag lists.
func sharedInterests(a, b []string) []string {
	if len(a) == 0 || len(b) == 0 {
		return nil
	}
	set := make(map[string]struct{}, len(a))
	for _, tag := range a {
		set[tag] = struct{}{}
	}
	var shared []string
	for _, tag := range b {
		if _, ok := set[tag]; ok {
			shared = append(shared, tag)
			delete(set, tag)
		}
	}
	sort.Strings(shared)
	return shared
}
