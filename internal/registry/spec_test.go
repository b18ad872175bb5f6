package registry

import "testing"

func TestExtractPackageName(t *testing.T) {
	tests := []struct {
		spec string
		want string
	}{
		{"scope:real-name@^2.0.0", "real-name"},
		{"real-name@^2.0.0", "real-name"},
		{"plain-name", "plain-name"},
		{"name@1.0.0", "name"},
	}

	for _, tt := range tests {
		if got := ExtractPackageName(tt.spec); got != tt.want {
			t.Errorf("ExtractPackageName(%q) = %q, want %q", tt.spec, got, tt.want)
		}
	}
}

func TestExtractVersion(t *testing.T) {
	tests := []struct {
		spec string
		want string
	}{
		{"scope:real-name@^2.0.0", "^2.0.0"},
		{"real-name@~1.2.0", "~1.2.0"},
		{"^1.0.0", "^1.0.0"},
	}

	for _, tt := range tests {
		if got := ExtractVersion(tt.spec); got != tt.want {
			t.Errorf("ExtractVersion(%q) = %q, want %q", tt.spec, got, tt.want)
		}
	}
}

func TestContainsPackageName(t *testing.T) {
	if !ContainsPackageName("name@^1.0.0") {
		t.Error("spec with @ must report an alias")
	}
	if ContainsPackageName("^1.0.0") {
		t.Error("spec without @ must not report an alias")
	}
}

func TestSanitizeVersion(t *testing.T) {
	tests := []struct {
		spec string
		want string
	}{
		{"scope:real-name@^2.0.0", "^2.0.0"},
		{"name@1.2.3", "1.2.3"},
		{"~2.0.0", "~2.0.0"},
		{"*", "*"},
	}

	for _, tt := range tests {
		if got := SanitizeVersion(tt.spec); got != tt.want {
			t.Errorf("SanitizeVersion(%q) = %q, want %q", tt.spec, got, tt.want)
		}
	}
}
