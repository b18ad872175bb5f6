package registry

import (
	"encoding/json"
	"time"
)

// Package is the full metadata document a registry publishes for one package
// name: every released version plus distribution tags. It is immutable once
// fetched; a cache miss always re-fetches the whole document.
type Package struct {
	ID         string                   `json:"_id,omitempty"`
	Name       string                   `json:"name"`
	DistTags   map[string]string        `json:"dist-tags,omitempty"`
	Versions   map[string]VersionRecord `json:"versions"`
	Time       map[string]time.Time     `json:"time,omitempty"`
	Author     *Person                  `json:"author,omitempty"`
	Repository *Repository              `json:"repository,omitempty"`
	Readme     string                   `json:"readme,omitempty"`
}

// VersionRecord is one published version of a package, carrying its own
// dependency requirements and the archive descriptor used to fetch and
// verify it.
type VersionRecord struct {
	Name            string            `json:"name"`
	Version         string            `json:"version"`
	Dependencies    map[string]string `json:"dependencies,omitempty"`
	DevDependencies map[string]string `json:"devDependencies,omitempty"`
	Bin             BinFiles          `json:"bin,omitempty"`
	Dist            Dist              `json:"dist"`
}

// Dist describes a version's archive: where to fetch it and what the
// verified, unpacked result must look like.
type Dist struct {
	Tarball      string `json:"tarball"`
	Shasum       string `json:"shasum"`
	FileCount    int    `json:"fileCount,omitempty"`
	UnpackedSize int64  `json:"unpackedSize,omitempty"`
}

// Person represents author/maintainer information
type Person struct {
	Name  string `json:"name"`
	Email string `json:"email,omitempty"`
	URL   string `json:"url,omitempty"`
}

// Repository represents repository information
type Repository struct {
	Type string `json:"type"`
	URL  string `json:"url"`
}

// BinFiles is a version's executable declaration. Registries publish it
// either as a single relative path (the command is named after the package)
// or as a command-name to relative-path mapping.
type BinFiles struct {
	Single   string
	Commands map[string]string
}

// IsEmpty reports whether the version declares no executables.
func (b BinFiles) IsEmpty() bool {
	return b.Single == "" && len(b.Commands) == 0
}

// Links returns the command-name to relative-path pairs to materialize,
// using packageName for the single-path form.
func (b BinFiles) Links(packageName string) map[string]string {
	if b.Single != "" {
		return map[string]string{packageName: b.Single}
	}
	return b.Commands
}

// UnmarshalJSON accepts both the string and the object form.
func (b *BinFiles) UnmarshalJSON(data []byte) error {
	var single string
	if err := json.Unmarshal(data, &single); err == nil {
		b.Single = single
		return nil
	}

	return json.Unmarshal(data, &b.Commands)
}

// MarshalJSON writes back whichever form the record carries.
func (b BinFiles) MarshalJSON() ([]byte, error) {
	if b.Single != "" {
		return json.Marshal(b.Single)
	}
	if len(b.Commands) > 0 {
		return json.Marshal(b.Commands)
	}
	return []byte("null"), nil
}
