package security

import (
	"fmt"
	"path"
	"sort"
	"strings"
)

// AccessMode is the single-letter access class used by the map server's
// layer ACL document.
type AccessMode string

const (
	AccessRead  AccessMode = "r"
	AccessWrite AccessMode = "w"
	AccessAdmin AccessMode = "a"
)

// Anyone is the distinguished principal granting access to every caller.
const Anyone = "*"

// Rule is one parsed entry of the remote layer ACL document. The document
// maps "mode:layer-pattern" keys to principal lists separated by semicolons
// or commas, e.g.
//
//	"a:drealcorse:*": "ROLE_GIS_ADMIN;jdoe"
type Rule struct {
	Mode         AccessMode
	LayerPattern string
	Principals   []string
}

// ParseRule parses a single ACL document entry into a Rule.
func ParseRule(key, value string) (Rule, error) {
	mode, pattern, ok := strings.Cut(key, ":")
	if !ok || pattern == "" {
		return Rule{}, fmt.Errorf("malformed ACL rule key %q: want mode:layer", key)
	}

	switch AccessMode(mode) {
	case AccessRead, AccessWrite, AccessAdmin:
	default:
		return Rule{}, fmt.Errorf("unknown access mode %q in ACL rule key %q", mode, key)
	}

	return Rule{
		Mode:         AccessMode(mode),
		LayerPattern: pattern,
		Principals:   splitPrincipals(value),
	}, nil
}

func splitPrincipals(value string) []string {
	fields := strings.FieldsFunc(value, func(r rune) bool {
		return r == ';' || r == ','
	})
	principals := make([]string, 0, len(fields))
	for _, f := range fields {
		if f = strings.TrimSpace(f); f != "" {
			principals = append(principals, f)
		}
	}
	return principals
}

// MatchLayer reports whether the rule's layer pattern covers the given
// layer name. Patterns support the * wildcard; a pattern without wildcards
// requires an exact match.
func (r Rule) MatchLayer(layerName string) bool {
	if !strings.Contains(r.LayerPattern, "*") {
		return r.LayerPattern == layerName
	}
	ok, err := path.Match(r.LayerPattern, layerName)
	return err == nil && ok
}

// Match reports whether any of the rule's principals intersects the
// caller's effective principal set. The Anyone principal matches everyone.
func (r Rule) Match(layerName string, principals []string) bool {
	if !r.MatchLayer(layerName) {
		return false
	}
	for _, rp := range r.Principals {
		if rp == Anyone {
			return true
		}
		for _, p := range principals {
			if rp == p {
				return true
			}
		}
	}
	return false
}

// specificity orders overlapping layer patterns: exact names beat wildcard
// patterns, and among wildcard patterns the one with more literal
// characters wins.
func (r Rule) specificity() int {
	if !strings.Contains(r.LayerPattern, "*") {
		// Exact patterns always rank above any wildcard.
		return 1 << 16
	}
	return len(strings.ReplaceAll(r.LayerPattern, "*", ""))
}

// RuleSet is the ordered list of rules of one ACL document. Source order is
// significant for precedence and must be preserved when decoding.
type RuleSet []Rule

// Match resolves access for a layer and principal set, restricted to the
// given modes (no modes means any mode). Overlapping rules are resolved by
// precedence: the most specific matching layer pattern governs, and among
// equally specific patterns the first one in document order governs. The
// governing rule alone decides the outcome.
func (rs RuleSet) Match(layerName string, principals []string, modes ...AccessMode) bool {
	var candidates []Rule
	for _, rule := range rs {
		if len(modes) > 0 && !containsMode(modes, rule.Mode) {
			continue
		}
		if rule.MatchLayer(layerName) {
			candidates = append(candidates, rule)
		}
	}
	if len(candidates) == 0 {
		return false
	}

	sort.SliceStable(candidates, func(i, j int) bool {
		return candidates[i].specificity() > candidates[j].specificity()
	})

	return candidates[0].Match(layerName, principals)
}

func containsMode(modes []AccessMode, m AccessMode) bool {
	for _, mode := range modes {
		if mode == m {
			return true
		}
	}
	return false
}
