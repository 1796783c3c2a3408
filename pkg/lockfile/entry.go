package lockfile

import (
	"errors"
	"slices"
)

// ErrVersionConflict is returned by EntryBuilder.SetVersion when a second,
// different version is assigned to the same entry.
var ErrVersionConflict = errors.New("entry version already set")

// EntryID is one identity token from an entry header.
type EntryID struct {
	Name         string
	VersionRange string
}

func (id EntryID) String() string { return id.Name + "@" + id.VersionRange }

// Dependency is one row of an entry's dependency list.
type Dependency struct {
	Name         string
	VersionRange string
	Optional     bool
}

// Entry is one resolved package.
type Entry struct {
	IDs          []EntryID
	Version      string
	Resolved     string
	Dependencies []Dependency
}

// Name returns the package name of the first identity.
func (e Entry) Name() string { return e.IDs[0].Name }

// EntryBuilder accumulates the pieces of one Entry while its block is being
// parsed. Calls may come in any order.
type EntryBuilder struct {
	ids      []EntryID
	version  string
	resolved string
	deps     []Dependency
	conflict bool
}

// AddID appends an identity. Duplicate identities are ignored.
func (b *EntryBuilder) AddID(id EntryID) *EntryBuilder {
	if !slices.Contains(b.ids, id) {
		b.ids = append(b.ids, id)
	}
	return b
}

// SetVersion records the resolved version. Setting the same value twice is
// harmless; a different second value returns ErrVersionConflict and makes
// Build fail.
func (b *EntryBuilder) SetVersion(v string) error {
	if b.version != "" && b.version != v {
		b.conflict = true
		return ErrVersionConflict
	}
	b.version = v
	return nil
}

// SetResolved records where the package was resolved from.
func (b *EntryBuilder) SetResolved(r string) *EntryBuilder {
	b.resolved = r
	return b
}

// AddDependency appends a dependency row.
func (b *EntryBuilder) AddDependency(d Dependency) *EntryBuilder {
	b.deps = append(b.deps, d)
	return b
}

// Build returns the entry, or false when no identity was added, no version
// was set, or the version was set to conflicting values.
func (b *EntryBuilder) Build() (Entry, bool) {
	if len(b.ids) == 0 || b.version == "" || b.conflict {
		return Entry{}, false
	}
	return Entry{
		IDs:          slices.Clone(b.ids),
		Version:      b.version,
		Resolved:     b.resolved,
		Dependencies: slices.Clone(b.deps),
	}, true
}
