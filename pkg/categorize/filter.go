package categorize

import (
	"strings"

	"github.com/praetorian-inc/msinfo/pkg/types"
)

// All disables a facet.
const All = "all"

// Searchable is a record that exposes the fields free-text search inspects.
type Searchable interface {
	SearchFields() []string
}

// MatchesSearch reports whether any searchable field of record contains query,
// ignoring case. The empty query matches everything.
func MatchesSearch[T Searchable](record T, query string) bool {
	if query == "" {
		return true
	}
	q := strings.ToLower(query)
	for _, field := range record.SearchFields() {
		if strings.Contains(strings.ToLower(field), q) {
			return true
		}
	}
	return false
}

// Options selects permissions. Empty or All values disable a facet.
type Options struct {
	Search   string
	Type     types.PermissionType
	Category string
}

func facetOff(v string) bool {
	return v == "" || strings.EqualFold(v, All)
}

// Match reports whether p satisfies every active criterion in opts.
func (opts Options) Match(p types.Permission) bool {
	if !MatchesSearch(p, opts.Search) {
		return false
	}
	if !facetOff(string(opts.Type)) && p.Type != opts.Type {
		return false
	}
	if !facetOff(opts.Category) && Categorize(p.Value) != strings.ToLower(opts.Category) {
		return false
	}
	return true
}

// Filter returns the permissions matching opts in their original order.
func Filter(perms []types.Permission, opts Options) []types.Permission {
	out := make([]types.Permission, 0, len(perms))
	for _, p := range perms {
		if opts.Match(p) {
			out = append(out, p)
		}
	}
	return out
}

// FilterApplications returns the applications whose display name or id
// contains search, in their original order.
func FilterApplications(apps []types.Application, search string) []types.Application {
	out := make([]types.Application, 0, len(apps))
	for _, a := range apps {
		if MatchesSearch(a, search) {
			out = append(out, a)
		}
	}
	return out
}

// Count tallies permissions per category.
func Count(perms []types.Permission) map[string]int {
	counts := make(map[string]int)
	for _, p := range perms {
		counts[Categorize(p.Value)]++
	}
	return counts
}
