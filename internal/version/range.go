package version

import (
	"errors"
	"fmt"
	"strings"
)

// ErrNoMatch is returned by MaxSatisfying when no candidate satisfies the range.
var ErrNoMatch = errors.New("no version satisfies range")

type rangeOp int

const (
	opEq rangeOp = iota
	opGt
	opGte
	opLt
	opLte
)

type comparator struct {
	op      rangeOp
	version *Version
}

func (c comparator) matches(v *Version) bool {
	cmp := v.Compare(c.version)
	switch c.op {
	case opEq:
		return cmp == 0
	case opGt:
		return cmp > 0
	case opGte:
		return cmp >= 0
	case opLt:
		return cmp < 0
	case opLte:
		return cmp <= 0
	}
	return false
}

// Range represents a version constraint expression such as "^1.2.0",
// "~2.0.0", ">=1.0.0" or an exact version. All comparators must match.
type Range struct {
	raw         string
	comparators []comparator
	any         bool
}

// String returns the original range expression.
func (r *Range) String() string {
	return r.raw
}

// ParseRange parses an npm-style version range expression.
//
// Supported forms: exact ("1.2.3", "=1.2.3"), caret ("^1.2.3"),
// tilde ("~1.2.3"), comparators (">1.2.3", ">=1.2.3", "<2.0.0", "<=2.0.0")
// and wildcards ("", "*", "x", "latest") which match any version.
func ParseRange(rangeStr string) (*Range, error) {
	raw := rangeStr
	rangeStr = strings.TrimSpace(rangeStr)

	switch rangeStr {
	case "", "*", "x", "latest":
		return &Range{raw: raw, any: true}, nil
	}

	r := &Range{raw: raw}

	switch {
	case strings.HasPrefix(rangeStr, "^"):
		v, err := Parse(rangeStr[1:])
		if err != nil {
			return nil, fmt.Errorf("invalid range %q: %w", raw, err)
		}
		r.comparators = []comparator{
			{op: opGte, version: v},
			{op: opLt, version: caretUpperBound(v)},
		}
	case strings.HasPrefix(rangeStr, "~"):
		v, err := Parse(rangeStr[1:])
		if err != nil {
			return nil, fmt.Errorf("invalid range %q: %w", raw, err)
		}
		r.comparators = []comparator{
			{op: opGte, version: v},
			{op: opLt, version: &Version{Major: v.Major, Minor: v.Minor + 1}},
		}
	case strings.HasPrefix(rangeStr, ">="):
		v, err := Parse(rangeStr[2:])
		if err != nil {
			return nil, fmt.Errorf("invalid range %q: %w", raw, err)
		}
		r.comparators = []comparator{{op: opGte, version: v}}
	case strings.HasPrefix(rangeStr, "<="):
		v, err := Parse(rangeStr[2:])
		if err != nil {
			return nil, fmt.Errorf("invalid range %q: %w", raw, err)
		}
		r.comparators = []comparator{{op: opLte, version: v}}
	case strings.HasPrefix(rangeStr, ">"):
		v, err := Parse(rangeStr[1:])
		if err != nil {
			return nil, fmt.Errorf("invalid range %q: %w", raw, err)
		}
		r.comparators = []comparator{{op: opGt, version: v}}
	case strings.HasPrefix(rangeStr, "<"):
		v, err := Parse(rangeStr[1:])
		if err != nil {
			return nil, fmt.Errorf("invalid range %q: %w", raw, err)
		}
		r.comparators = []comparator{{op: opLt, version: v}}
	default:
		v, err := Parse(strings.TrimPrefix(rangeStr, "="))
		if err != nil {
			return nil, fmt.Errorf("invalid range %q: %w", raw, err)
		}
		r.comparators = []comparator{{op: opEq, version: v}}
	}

	return r, nil
}

// caretUpperBound returns the exclusive upper bound for a caret range.
// ^1.2.3 allows <2.0.0, ^0.2.3 allows <0.3.0 and ^0.0.3 allows <0.0.4.
func caretUpperBound(v *Version) *Version {
	switch {
	case v.Major > 0:
		return &Version{Major: v.Major + 1}
	case v.Minor > 0:
		return &Version{Minor: v.Minor + 1}
	default:
		return &Version{Patch: v.Patch + 1}
	}
}

// Matches reports whether v satisfies the range.
//
// Pre-release versions only match ranges that themselves pin the same
// major.minor.patch with a pre-release identifier, mirroring npm's default
// of never silently selecting a pre-release.
func (r *Range) Matches(v *Version) bool {
	if v.Pre != "" && !r.allowsPrerelease(v) {
		return false
	}

	if r.any {
		return v.Pre == ""
	}

	for _, c := range r.comparators {
		if !c.matches(v) {
			return false
		}
	}

	return true
}

func (r *Range) allowsPrerelease(v *Version) bool {
	for _, c := range r.comparators {
		if c.version.Pre != "" &&
			c.version.Major == v.Major &&
			c.version.Minor == v.Minor &&
			c.version.Patch == v.Patch {
			return true
		}
	}
	return false
}

// Satisfies reports whether versionStr satisfies rangeStr.
func Satisfies(versionStr, rangeStr string) (bool, error) {
	v, err := Parse(versionStr)
	if err != nil {
		return false, err
	}

	r, err := ParseRange(rangeStr)
	if err != nil {
		return false, err
	}

	return r.Matches(v), nil
}

// MaxSatisfying returns the highest version among versions that satisfies
// rangeStr. Candidates that are not valid semantic versions are skipped.
// Returns ErrNoMatch when no candidate satisfies the range.
func MaxSatisfying(versions []string, rangeStr string) (string, error) {
	r, err := ParseRange(rangeStr)
	if err != nil {
		return "", err
	}

	var best *Version
	var bestStr string

	for _, candidate := range versions {
		v, err := Parse(candidate)
		if err != nil {
			continue
		}

		if !r.Matches(v) {
			continue
		}

		if best == nil || v.IsGreaterThan(best) {
			best = v
			bestStr = candidate
		}
	}

	if best == nil {
		return "", fmt.Errorf("%w: %s", ErrNoMatch, rangeStr)
	}

	return bestStr, nil
}
