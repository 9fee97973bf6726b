// Package pattern applies a runner's named regular-expression patterns to
// a captured log, producing the columns of a single result row.
package pattern

import "github.com/planbench/harness/internal/suite"

// Extract returns, for every name in names, the first capture group of the
// first match of the attribute set's same-named pattern against content, or
// the empty string when set is nil, lacks that pattern, or it didn't match.
func Extract(set *suite.AttributeSet, content string, names []string) map[string]string {
	result := make(map[string]string, len(names))
	for _, n := range names {
		result[n] = ""
	}
	if set == nil {
		return result
	}
	for _, p := range set.Patterns {
		if _, wanted := result[p.Name]; !wanted {
			continue
		}
		if m := p.Regexp.FindStringSubmatch(content); len(m) >= 2 {
			result[p.Name] = m[1]
		}
	}
	return result
}
