package registry

import "strings"

// Dependency spec helpers. A manifest's range string may carry an alias that
// requests a different package than its map key, in the "name@range" or
// "scope:name@range" form. These are pure string splits on "@" and ":".

// ContainsPackageName reports whether spec carries an alias package name.
func ContainsPackageName(spec string) bool {
	return strings.Contains(spec, "@")
}

// ExtractPackageName returns the aliased package name from a spec like
// "scope:real-name@^2.0.0" or "real-name@^2.0.0". Without an "@" the whole
// spec is returned.
func ExtractPackageName(spec string) string {
	if idx := strings.LastIndex(spec, ":"); idx != -1 {
		spec = spec[idx+1:]
	}
	if idx := strings.Index(spec, "@"); idx != -1 {
		return spec[:idx]
	}
	return spec
}

// ExtractVersion returns the range portion after the "@". Without an "@"
// the whole spec is returned.
func ExtractVersion(spec string) string {
	if idx := strings.Index(spec, "@"); idx != -1 {
		return spec[idx+1:]
	}
	return spec
}

// SanitizeVersion strips any leading alias prefix, leaving the bare range.
func SanitizeVersion(spec string) string {
	if ContainsPackageName(spec) {
		return ExtractVersion(spec)
	}
	return spec
}
