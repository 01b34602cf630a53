// Package parser extracts hashtags from progress entry text.
package parser

import (
	"regexp"
	"strings"
)

var tagRe = regexp.MustCompile(`(?:^|\s)#([\p{L}][\p{L}\p{N}_/-]*)`)

// Tags collects the #tags in text, lowercased and deduplicated in order of
// first appearance. The result is never nil.
func Tags(text string) []string {
	out := []string{}
	seen := make(map[string]struct{})
	for _, m := range tagRe.FindAllStringSubmatch(text, -1) {
		t := strings.ToLower(strings.TrimRight(m[1], "/-"))
		if t == "" {
			continue
		}
		if _, dup := seen[t]; dup {
			continue
		}
		seen[t] = struct{}{}
		out = append(out, t)
	}
	return out
}
