package lockfile

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestBuildRequiresID(t *testing.T) {
	var b EntryBuilder
	require.NoError(t, b.SetVersion("1.0.0"))
	b.AddDependency(Dependency{Name: "dep", VersionRange: "^1"})

	_, ok := b.Build()
	assert.False(t, ok)
}

func TestBuildRequiresVersion(t *testing.T) {
	var b EntryBuilder
	b.AddID(EntryID{Name: "idname", VersionRange: "idversion"})

	_, ok := b.Build()
	assert.False(t, ok)
}

func TestBuildOrderIndependent(t *testing.T) {
	id := EntryID{Name: "idname", VersionRange: "idversion"}
	dep := Dependency{Name: "dep", VersionRange: "^2"}

	orders := map[string]func(b *EntryBuilder){
		"id version dep": func(b *EntryBuilder) {
			b.AddID(id)
			_ = b.SetVersion("1.0.0")
			b.AddDependency(dep)
		},
		"dep version id": func(b *EntryBuilder) {
			b.AddDependency(dep)
			_ = b.SetVersion("1.0.0")
			b.AddID(id)
		},
		"version dep id": func(b *EntryBuilder) {
			_ = b.SetVersion("1.0.0")
			b.AddDependency(dep)
			b.AddID(id)
		},
	}

	for name, fill := range orders {
		t.Run(name, func(t *testing.T) {
			var b EntryBuilder
			fill(&b)
			entry, ok := b.Build()
			require.True(t, ok)
			assert.Equal(t, []EntryID{id}, entry.IDs)
			assert.Equal(t, "1.0.0", entry.Version)
			assert.Equal(t, []Dependency{dep}, entry.Dependencies)
			assert.Equal(t, "idname", entry.Name())
		})
	}
}

func TestSetVersionConflict(t *testing.T) {
	var b EntryBuilder
	b.AddID(EntryID{Name: "a", VersionRange: "^1"})
	require.NoError(t, b.SetVersion("1.0.0"))
	require.NoError(t, b.SetVersion("1.0.0"), "same value twice is allowed")
	assert.ErrorIs(t, b.SetVersion("2.0.0"), ErrVersionConflict)

	_, ok := b.Build()
	assert.False(t, ok)
}

func TestAddIDDeduplicates(t *testing.T) {
	var b EntryBuilder
	id := EntryID{Name: "a", VersionRange: "^1"}
	b.AddID(id).AddID(id).AddID(EntryID{Name: "a", VersionRange: "^1.2"})
	_ = b.SetVersion("1.2.0")

	entry, ok := b.Build()
	require.True(t, ok)
	assert.Len(t, entry.IDs, 2)
	assert.Equal(t, "a@^1", entry.IDs[0].String())
}

func TestBuildReturnsCopies(t *testing.T) {
	var b EntryBuilder
	b.AddID(EntryID{Name: "a", VersionRange: "^1"})
	_ = b.SetVersion("1.0.0")
	entry, _ := b.Build()

	b.AddID(EntryID{Name: "a", VersionRange: "^1.1"})
	assert.Len(t, entry.IDs, 1)
}
