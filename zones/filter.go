package zones

import (
	"path/filepath"

	"github.com/ryanuber/go-glob"
)

// MatchSample keeps the zones whose sample file name matches the pattern. Only '*' is a
// wildcard. An empty pattern or "*" keeps every zone, including those without a sample.
func MatchSample(list []*Zone, pattern string) []*Zone {
	if pattern == "" || pattern == "*" {
		return list
	}
	matched := make([]*Zone, 0, len(list))
	for _, z := range list {
		s := z.Sample()
		if s == nil {
			continue
		}
		if glob.Glob(pattern, filepath.Base(s.Path())) {
			matched = append(matched, z)
		}
	}
	return matched
}
