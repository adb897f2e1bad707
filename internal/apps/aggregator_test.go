package apps

import (
	"os"
	"os/exec"
	"path/filepath"
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/chess10kp/xdock/internal/desktop"
)

func writeEntry(t *testing.T, dir, name, content string) string {
	t.Helper()
	require.NoError(t, os.MkdirAll(dir, 0755))
	path := filepath.Join(dir, name)
	require.NoError(t, os.WriteFile(path, []byte(content), 0644))
	return path
}

func newAggregator(t *testing.T) *Aggregator {
	t.Helper()
	scanner, err := desktop.NewScanner(64)
	require.NoError(t, err)
	return NewAggregator(scanner)
}

func TestLoadFromDirectoriesLaterDirectoryWins(t *testing.T) {
	root := t.TempDir()
	dirA := filepath.Join(root, "a")
	dirB := filepath.Join(root, "b")
	writeEntry(t, dirA, "foo.desktop", "[Desktop Entry]\nName=Foo\nExec=/usr/bin/foo\n")
	writeEntry(t, dirA, "bar.desktop", "[Desktop Entry]\nName=Bar\nExec=/usr/bin/bar\n")
	writeEntry(t, dirB, "foo.desktop", "[Desktop Entry]\nName=Foo\nExec=/opt/foo\n")

	agg := newAggregator(t)
	agg.LoadFromDirectories([]string{dirA, dirB})

	rec, ok := agg.Lookup("Foo")
	require.True(t, ok)
	assert.Equal(t, "/opt/foo", rec.Exec)
	assert.Equal(t, []string{"Bar", "Foo"}, agg.Names())
}

func TestLoadFromDirectoriesReplacesCollection(t *testing.T) {
	root := t.TempDir()
	dirA := filepath.Join(root, "a")
	dirB := filepath.Join(root, "b")
	writeEntry(t, dirA, "foo.desktop", "Name=Foo\nExec=foo\n")
	writeEntry(t, dirB, "bar.desktop", "Name=Bar\nExec=bar\n")

	agg := newAggregator(t)
	agg.LoadFromDirectories([]string{dirA})
	agg.LoadFromDirectories([]string{dirB})

	assert.Equal(t, []string{"Bar"}, agg.Names())
}

func TestLoadFromDirectoriesFiltersEntries(t *testing.T) {
	dir := t.TempDir()
	writeEntry(t, dir, "app.desktop", "Name=App\nType=Application\nExec=app\n")
	writeEntry(t, dir, "link.desktop", "Name=Link\nType=Link\n")
	writeEntry(t, dir, "hidden.desktop", "Name=Hidden\nExec=h\nNoDisplay=true\n")
	writeEntry(t, dir, "noname.desktop", "Exec=anon\n")

	agg := newAggregator(t)
	agg.LoadFromDirectories([]string{dir})
	assert.Equal(t, []string{"App", desktop.FallbackName}, agg.Names())

	agg.SetShowHidden(true)
	agg.LoadFromDirectories([]string{dir})
	assert.Equal(t, []string{"App", "Hidden", desktop.FallbackName}, agg.Names())
}

func TestLoadFromPath(t *testing.T) {
	root := t.TempDir()
	bin1 := filepath.Join(root, "bin1")
	bin2 := filepath.Join(root, "bin2")
	require.NoError(t, os.MkdirAll(bin1, 0755))
	require.NoError(t, os.MkdirAll(bin2, 0755))
	require.NoError(t, os.WriteFile(filepath.Join(bin1, "tool"), []byte("#!/bin/sh\n"), 0755))
	require.NoError(t, os.WriteFile(filepath.Join(bin1, "readme"), []byte("text"), 0644))
	require.NoError(t, os.WriteFile(filepath.Join(bin2, "tool"), []byte("#!/bin/sh\n"), 0755))
	require.NoError(t, os.WriteFile(filepath.Join(bin2, "Foo"), []byte("#!/bin/sh\n"), 0755))

	desktopDir := filepath.Join(root, "apps")
	writeEntry(t, desktopDir, "foo.desktop", "Name=Foo\nExec=/opt/foo\n")

	agg := newAggregator(t)
	agg.LoadFromDirectories([]string{desktopDir})
	agg.LoadFromPath(bin1 + string(os.PathListSeparator) + filepath.Join(root, "missing") + string(os.PathListSeparator) + bin2)

	assert.Equal(t, []string{"Foo", "tool"}, agg.Names())

	foo, _ := agg.Lookup("Foo")
	assert.Equal(t, "/opt/foo", foo.Exec, "desktop entries take priority over executables")

	tool, _ := agg.Lookup("tool")
	assert.Equal(t, []string{filepath.Join(bin1, "tool")}, tool.Args(), "first search path directory wins")
	assert.Empty(t, tool.Icon)
	assert.Empty(t, tool.Categories)
}

func TestLoadFromPathUnusualDirectoryNames(t *testing.T) {
	root := t.TempDir()
	for _, dir := range []string{"my bin", `it's "here"`, `back\slash`, "100%done"} {
		bin := filepath.Join(root, dir)
		require.NoError(t, os.MkdirAll(bin, 0755))
		tool := filepath.Join(bin, "tool")
		require.NoError(t, os.WriteFile(tool, []byte("#!/bin/sh\n"), 0755))

		agg := newAggregator(t)
		agg.LoadFromPath(bin)

		rec, ok := agg.Lookup("tool")
		require.True(t, ok, dir)
		assert.Equal(t, []string{tool}, rec.Args(), dir)
		assert.Equal(t, tool, rec.Source, dir)
	}
}

func TestLaunchFromPathDirectoryWithSpace(t *testing.T) {
	bin := filepath.Join(t.TempDir(), "my bin")
	require.NoError(t, os.MkdirAll(bin, 0755))
	marker := filepath.Join(bin, "ran")
	tool := filepath.Join(bin, "tool")
	require.NoError(t, os.WriteFile(tool, []byte("#!/bin/sh\ntouch \"$(dirname \"$0\")/ran\"\n"), 0755))

	agg := newAggregator(t)
	agg.LoadFromPath(bin)
	rec, ok := agg.Lookup("tool")
	require.True(t, ok)

	args := rec.Args()
	require.Len(t, args, 1)
	require.NoError(t, exec.Command(args[0], args[1:]...).Run())
	assert.FileExists(t, marker)
}

func TestLoadFiles(t *testing.T) {
	root := t.TempDir()
	dir := filepath.Join(root, "apps")
	writeEntry(t, dir, "foo.desktop", "Name=Foo\nExec=/usr/bin/foo\n")
	override := writeEntry(t, root, "custom.desktop", "Name=Foo\nExec=/home/me/foo\n")

	agg := newAggregator(t)
	agg.LoadFromDirectories([]string{dir})
	agg.LoadFiles([]string{override, filepath.Join(root, "missing.desktop")})

	rec, ok := agg.Lookup("Foo")
	require.True(t, ok)
	assert.Equal(t, "/home/me/foo", rec.Exec)
	assert.Equal(t, 1, agg.Len())
}

func TestRefresh(t *testing.T) {
	root := t.TempDir()
	dir := filepath.Join(root, "apps")
	writeEntry(t, dir, "a.desktop", "Name=Alpha\nExec=alpha\n")
	extra := writeEntry(t, root, "b.desktop", "Name=Bravo\nExec=bravo\n")

	agg := newAggregator(t)
	n := agg.Refresh(Sources{Dirs: []string{dir}, Files: []string{extra}})

	assert.Equal(t, 2, n)
	assert.Equal(t, []string{"Alpha", "Bravo"}, agg.Names())
}

func seeded(t *testing.T) *Aggregator {
	t.Helper()
	dir := t.TempDir()
	writeEntry(t, dir, "firefox.desktop", "Name=Firefox\nExec=firefox %u\nCategories=Network;WebBrowser;\n")
	writeEntry(t, dir, "files.desktop", "Name=Files\nExec=nautilus\nCategories=System;Utility;\n")
	writeEntry(t, dir, "term.desktop", "Name=Terminal\nExec=xterm\nCategories=System;\n")
	writeEntry(t, dir, "gimp.desktop", "Name=GIMP\nExec=gimp\nCategories=Graphics;\n")

	agg := newAggregator(t)
	agg.LoadFromDirectories([]string{dir})
	return agg
}

func TestByCategory(t *testing.T) {
	agg := seeded(t)

	system := agg.ByCategory("System")
	assert.Len(t, system, 2)
	assert.Contains(t, system, "Files")
	assert.Contains(t, system, "Terminal")

	assert.Empty(t, agg.ByCategory("WebBrowser"), "categories outside the fixed set are rejected")
	assert.Empty(t, agg.ByCategory("Office"))
	assert.Equal(t, 4, agg.Len())
}

func TestBySubstring(t *testing.T) {
	agg := seeded(t)

	got := agg.BySubstring("Fi")
	names := make([]string, 0, len(got))
	for name := range got {
		names = append(names, name)
	}
	assert.ElementsMatch(t, []string{"Firefox", "Files"}, names)

	assert.Empty(t, agg.BySubstring("fi"))
	assert.Empty(t, agg.BySubstring(""))
}

func TestApplyOrderDropsUnlistedEntries(t *testing.T) {
	agg := seeded(t)

	ordered := agg.ApplyOrder([]string{"Terminal", "Missing", "Firefox"})
	names := make([]string, len(ordered))
	for i, rec := range ordered {
		names[i] = rec.Name
	}

	if diff := cmp.Diff([]string{"Terminal", "Firefox"}, names); diff != "" {
		t.Errorf("ApplyOrder mismatch (-want +got):\n%s", diff)
	}
	assert.Equal(t, 4, agg.Len())
}

func TestSearch(t *testing.T) {
	agg := seeded(t)

	all := agg.Search("", 2)
	require.Len(t, all, 2)
	assert.Equal(t, "Files", all[0].Name)
	assert.Equal(t, "Firefox", all[1].Name)

	term := agg.Search("term", 10)
	require.NotEmpty(t, term)
	assert.Equal(t, "Terminal", term[0].Name)

	assert.Empty(t, agg.Search("qqqq", 10))
}

func TestStandardDirsEndWithUserDir(t *testing.T) {
	dirs := StandardDirs()
	require.NotEmpty(t, dirs)
	for _, d := range dirs {
		assert.Equal(t, "applications", filepath.Base(d))
	}
}

func TestIsCategory(t *testing.T) {
	assert.Len(t, Categories, 13)
	assert.True(t, IsCategory("Utility"))
	assert.False(t, IsCategory("utility"))
}
