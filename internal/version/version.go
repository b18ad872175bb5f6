package version

import (
	"fmt"
	"strconv"
	"strings"
)

// Version represents a semantic version
type Version struct {
	Major int
	Minor int
	Patch int
	Pre   string // Pre-release identifier (e.g., "alpha", "beta.1")
	Build string // Build metadata (e.g., "20230101.abcd123")
}

// Parse parses a semantic version string into a Version struct
func Parse(versionStr string) (*Version, error) {
	if versionStr == "" {
		return nil, fmt.Errorf("version cannot be empty")
	}

	// Some registries publish versions with a leading "v"
	versionStr = strings.TrimPrefix(versionStr, "v")

	// Handle build metadata (+)
	var buildMeta string
	if idx := strings.Index(versionStr, "+"); idx != -1 {
		buildMeta = versionStr[idx+1:]
		versionStr = versionStr[:idx]
	}

	// Handle pre-release (-)
	var preRelease string
	if idx := strings.Index(versionStr, "-"); idx != -1 {
		preRelease = versionStr[idx+1:]
		versionStr = versionStr[:idx]
	}

	// Parse major.minor.patch
	parts := strings.Split(versionStr, ".")
	if len(parts) != 3 {
		return nil, fmt.Errorf("invalid version format: expected x.y.z, got %s", versionStr)
	}

	major, err := strconv.Atoi(parts[0])
	if err != nil || major < 0 {
		return nil, fmt.Errorf("invalid major version: %s", parts[0])
	}

	minor, err := strconv.Atoi(parts[1])
	if err != nil || minor < 0 {
		return nil, fmt.Errorf("invalid minor version: %s", parts[1])
	}

	patch, err := strconv.Atoi(parts[2])
	if err != nil || patch < 0 {
		return nil, fmt.Errorf("invalid patch version: %s", parts[2])
	}

	return &Version{
		Major: major,
		Minor: minor,
		Patch: patch,
		Pre:   preRelease,
		Build: buildMeta,
	}, nil
}

// String returns the string representation of the version
func (v *Version) String() string {
	result := fmt.Sprintf("%d.%d.%d", v.Major, v.Minor, v.Patch)

	if v.Pre != "" {
		result += "-" + v.Pre
	}

	if v.Build != "" {
		result += "+" + v.Build
	}

	return result
}

// Compare compares two versions and returns:
// -1 if v < other
//
//	0 if v == other
//	1 if v > other
func (v *Version) Compare(other *Version) int {
	// Compare major.minor.patch
	if v.Major != other.Major {
		if v.Major > other.Major {
			return 1
		}
		return -1
	}

	if v.Minor != other.Minor {
		if v.Minor > other.Minor {
			return 1
		}
		return -1
	}

	if v.Patch != other.Patch {
		if v.Patch > other.Patch {
			return 1
		}
		return -1
	}

	// Handle pre-release versions
	// Per semver: 1.0.0-alpha < 1.0.0
	if v.Pre == "" && other.Pre != "" {
		return 1 // Normal version > pre-release
	}
	if v.Pre != "" && other.Pre == "" {
		return -1 // Pre-release < normal version
	}
	if v.Pre != "" && other.Pre != "" {
		// Both are pre-releases, compare lexicographically
		if v.Pre > other.Pre {
			return 1
		} else if v.Pre < other.Pre {
			return -1
		}
	}

	// Build metadata is ignored in precedence comparison
	return 0
}

// IsGreaterThan returns true if v > other
func (v *Version) IsGreaterThan(other *Version) bool {
	return v.Compare(other) > 0
}

// CompareVersions compares two version strings and returns:
// -1 if version1 < version2
//
//	0 if version1 == version2
//	1 if version1 > version2
func CompareVersions(version1, version2 string) (int, error) {
	v1, err := Parse(version1)
	if err != nil {
		return 0, fmt.Errorf("invalid version1 %s: %w", version1, err)
	}

	v2, err := Parse(version2)
	if err != nil {
		return 0, fmt.Errorf("invalid version2 %s: %w", version2, err)
	}

	return v1.Compare(v2), nil
}

// IsValidVersion checks if a string is a valid semantic version
func IsValidVersion(versionStr string) bool {
	_, err := Parse(versionStr)
	return err == nil
}
