// Package label derives an artist's principal record label from their
// release history. Resolution is a pure transform: no network, no retries,
// no caching.
package label

import (
	"regexp"
	"sort"
	"strings"

	"golang.org/x/text/cases"
	"golang.org/x/text/unicode/norm"

	"github.com/crescendo-data/enrich-cli/internal/model"
)

// DefaultWindow is the recent-release window for the most-frequent method.
const DefaultWindow = 20

// qualifierPattern matches trailing edition qualifiers that mark duplicate
// releases of the same record: "(Deluxe)", "[2011 Remaster]", "- Expanded
// Edition", and the like.
var qualifierPattern = regexp.MustCompile(`(?i)[\s\-–]*[(\[][^)\]]*(deluxe|remaster|expanded|anniversary|edition|version|bonus|reissue|mono|stereo)[^)\]]*[)\]]\s*$`)

var (
	foldCase   = cases.Fold()
	whitespace = regexp.MustCompile(`\s+`)
)

// NormalizeName canonicalizes a release name for deduplication: Unicode
// NFKC normalization, case folding, qualifier stripping, and whitespace
// collapsing.
func NormalizeName(name string) string {
	s := norm.NFKC.String(name)
	for {
		stripped := qualifierPattern.ReplaceAllString(s, "")
		if stripped == s || strings.TrimSpace(stripped) == "" {
			break
		}
		s = stripped
	}
	s = foldCase.String(s)
	s = whitespace.ReplaceAllString(strings.TrimSpace(s), " ")
	return s
}

// Deduplicate collapses releases that share a normalized name and release
// date, keeping one canonical entry per duplicate group. The choice within
// a group is order-independent: labeled entries beat unlabeled ones, then
// the shortest name (the base edition) wins, then the lexicographically
// smaller name.
func Deduplicate(releases []model.Release) []model.Release {
	type key struct {
		name string
		date string
	}

	best := make(map[key]model.Release, len(releases))
	order := make([]key, 0, len(releases))

	for _, r := range releases {
		k := key{name: NormalizeName(r.Name), date: r.ReleaseDate.Format("2006-01-02")}
		cur, seen := best[k]
		if !seen {
			best[k] = r
			order = append(order, k)
			continue
		}
		if preferRelease(r, cur) {
			best[k] = r
		}
	}

	out := make([]model.Release, 0, len(order))
	for _, k := range order {
		out = append(out, best[k])
	}
	return out
}

// preferRelease reports whether a should replace b as a duplicate group's
// canonical entry.
func preferRelease(a, b model.Release) bool {
	if (a.Label != "") != (b.Label != "") {
		return a.Label != ""
	}
	if len(a.Name) != len(b.Name) {
		return len(a.Name) < len(b.Name)
	}
	return a.Name < b.Name
}

// Resolve derives the principal label from releases using the given method.
// An empty release list (or one with no labeled releases) resolves to an
// absent principal with empty evidence. Resolve never mutates its input.
func Resolve(releases []model.Release, method model.LabelMethod, window int) model.LabelInfo {
	info := model.LabelInfo{Method: method}
	if len(releases) == 0 {
		return info
	}

	deduped := Deduplicate(releases)
	sortByDateDesc(deduped)

	switch method {
	case model.LabelMostFrequent:
		return resolveMostFrequent(deduped, window)
	default:
		return resolveLatest(deduped)
	}
}

// resolveLatest picks the label of the most recent labeled release.
func resolveLatest(deduped []model.Release) model.LabelInfo {
	info := model.LabelInfo{Method: model.LabelLatestRelease}
	for _, r := range deduped {
		if r.Label == "" {
			continue
		}
		info.Principal = r.Label
		info.Present = true
		info.Evidence = []model.Release{r}
		return info
	}
	return info
}

// resolveMostFrequent counts label occurrences over the most recent window
// releases; ties break toward the label with the most recent occurrence.
func resolveMostFrequent(deduped []model.Release, window int) model.LabelInfo {
	info := model.LabelInfo{Method: model.LabelMostFrequent}
	if window <= 0 {
		window = DefaultWindow
	}
	if len(deduped) > window {
		deduped = deduped[:window]
	}

	counts := make(map[string]int)
	latest := make(map[string]int) // label -> smallest index (most recent)
	for i, r := range deduped {
		if r.Label == "" {
			continue
		}
		counts[r.Label]++
		if _, ok := latest[r.Label]; !ok {
			latest[r.Label] = i
		}
	}
	if len(counts) == 0 {
		return info
	}

	var winner string
	for lbl, n := range counts {
		if winner == "" {
			winner = lbl
			continue
		}
		switch {
		case n > counts[winner]:
			winner = lbl
		case n == counts[winner] && latest[lbl] < latest[winner]:
			winner = lbl
		}
	}

	info.Principal = winner
	info.Present = true
	for _, r := range deduped {
		if r.Label == winner {
			info.Evidence = append(info.Evidence, r)
		}
	}
	return info
}

// sortByDateDesc orders releases newest-first; equal dates order by name
// for determinism.
func sortByDateDesc(releases []model.Release) {
	sort.SliceStable(releases, func(i, j int) bool {
		if !releases[i].ReleaseDate.Equal(releases[j].ReleaseDate) {
			return releases[i].ReleaseDate.After(releases[j].ReleaseDate)
		}
		return releases[i].Name < releases[j].Name
	})
}
