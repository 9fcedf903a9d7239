package storage

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func touch(t *testing.T, dir, name string) {
	t.Helper()
	require.NoError(t, os.WriteFile(filepath.Join(dir, name), []byte("x"), 0644))
}

func TestNextVersionAfterExistingVersions(t *testing.T) {
	dir := t.TempDir()
	v := NewVersioner()

	for _, name := range []string{"A_v1.xlsx", "A_v2.xlsx", "A_v3.xlsx", "A_v4.xlsx", "A_v5.xlsx"} {
		touch(t, dir, name)
	}

	n, err := v.NextVersion(dir, "A", ".xlsx")
	require.NoError(t, err)
	assert.Equal(t, 6, n)
}

func TestNextVersionStartsAtOne(t *testing.T) {
	v := NewVersioner()

	n, err := v.NextVersion(t.TempDir(), "A", ".xlsx")
	require.NoError(t, err)
	assert.Equal(t, 1, n)

	// A directory that does not exist yet counts as empty.
	n, err = v.NextVersion(filepath.Join(t.TempDir(), "missing"), "A", ".xlsx")
	require.NoError(t, err)
	assert.Equal(t, 1, n)
}

func TestNextVersionIgnoresLooseMatches(t *testing.T) {
	dir := t.TempDir()
	v := NewVersioner()

	touch(t, dir, "A_v3.xlsx")
	touch(t, dir, "A_v9_draft.xlsx") // prefix collides, strict grammar does not
	touch(t, dir, "A_v7.csv")        // wrong extension
	touch(t, dir, "B_v8.xlsx")       // different identity

	n, err := v.NextVersion(dir, "A", ".xlsx")
	require.NoError(t, err)
	assert.Equal(t, 4, n)
}

func TestNextVersionCountsTimestampedNames(t *testing.T) {
	dir := t.TempDir()
	v := NewVersioner()

	touch(t, dir, "li_138_v1-20250301-101500.xlsx")
	touch(t, dir, "li_138_v2-20250301-113000.xlsx")

	n, err := v.NextVersion(dir, "li_138", ".xlsx")
	require.NoError(t, err)
	assert.Equal(t, 3, n)
}

func TestRemoveMatchingSweepsLooseMatches(t *testing.T) {
	dir := t.TempDir()
	v := NewVersioner()

	touch(t, dir, "A_v1.xlsx")
	touch(t, dir, "A_v9_draft.xlsx") // survives NextVersion but is swept here
	touch(t, dir, "B_v1.xlsx")

	require.NoError(t, v.RemoveMatching(dir, "A", ".xlsx"))

	entries, err := os.ReadDir(dir)
	require.NoError(t, err)
	require.Len(t, entries, 1)
	assert.Equal(t, "B_v1.xlsx", entries[0].Name())
}

func TestRemoveMatchingKeepsExcludedName(t *testing.T) {
	dir := t.TempDir()
	v := NewVersioner()

	touch(t, dir, "A_v1-20250301-090000.xlsx")
	touch(t, dir, "A_v1-20250301-170000.xlsx")

	require.NoError(t, v.RemoveMatching(dir, "A", ".xlsx", "A_v1-20250301-170000.xlsx"))

	entries, err := os.ReadDir(dir)
	require.NoError(t, err)
	require.Len(t, entries, 1)
	assert.Equal(t, "A_v1-20250301-170000.xlsx", entries[0].Name())
}

func TestNameEncoding(t *testing.T) {
	v := NewVersioner()
	at := time.Date(2025, 3, 1, 9, 30, 15, 0, time.UTC)

	assert.Equal(t, "张三_138_v2.xlsx", v.Name("张三_138", 2, ".xlsx"))
	assert.Equal(t, "张三_138_v2-20250301-093015.xlsx", v.TimestampedName("张三_138", 2, at, ".xlsx"))
}

func TestDecode(t *testing.T) {
	d, ok := Decode("张三_13800001111_v3-20250102-093015.xlsx")
	require.True(t, ok)
	assert.Equal(t, "张三_13800001111", d.Identity)
	assert.Equal(t, 3, d.Version)
	require.True(t, d.HasStamp)
	assert.Equal(t, time.Date(2025, 1, 2, 9, 30, 15, 0, time.UTC), d.Stamp)

	d, ok = Decode("B_v1.json")
	require.True(t, ok)
	assert.Equal(t, "B", d.Identity)
	assert.Equal(t, 1, d.Version)
	assert.False(t, d.HasStamp)

	_, ok = Decode("template.xlsx")
	assert.False(t, ok)

	_, ok = Decode("A_v0.xlsx")
	assert.False(t, ok)
}
