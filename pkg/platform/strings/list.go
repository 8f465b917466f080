// Package strings holds small helpers for list-valued settings.
package strings

import (
	"strings"
)

// SplitList splits a separated list, trimming each entry and dropping blanks
// and repeats. Order of first appearance is kept.
//
//	SplitList(" a:9092, b:9092,,a:9092", ",") // []string{"a:9092", "b:9092"}
func SplitList(s, sep string) []string {
	parts := strings.Split(s, sep)
	seen := make(map[string]struct{}, len(parts))
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		p = strings.TrimSpace(p)
		if p == "" {
			continue
		}
		if _, dup := seen[p]; dup {
			continue
		}
		seen[p] = struct{}{}
		out = append(out, p)
	}
	return out
}
