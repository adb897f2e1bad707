package bus

import (
	"errors"
	"testing"

	"github.com/godbus/dbus/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/chess10kp/xdock/internal/xwin"
)

type fakeBackend struct {
	rescans     int
	favoriteErr error
	names       []string
	plugins     map[string]map[string]string
	windows     map[int][]xwin.Handle
}

func (f *fakeBackend) RescanApplications() int {
	f.rescans++
	return len(f.names)
}

func (f *fakeBackend) RescanFavorites() error { return f.favoriteErr }
func (f *fakeBackend) RescanRecents() error   { return nil }
func (f *fakeBackend) ApplicationNames() []string {
	return f.names
}

func (f *fakeBackend) PluginMetadata(name string) (map[string]string, bool) {
	m, ok := f.plugins[name]
	return m, ok
}

func (f *fakeBackend) WindowsForProcess(pid int) []xwin.Handle {
	return f.windows[pid]
}

func TestObjectMethods(t *testing.T) {
	backend := &fakeBackend{
		names:   []string{"Firefox", "Terminal"},
		plugins: map[string]map[string]string{"Clock": {"Name": "Clock"}},
		windows: map[int][]xwin.Handle{42: {0x10, 0x20}},
	}
	obj := NewObject(backend, Table{})

	n, derr := obj.RescanApplications()
	require.Nil(t, derr)
	assert.Equal(t, uint32(2), n)
	assert.Equal(t, 1, backend.rescans)

	names, derr := obj.ListApplications()
	require.Nil(t, derr)
	assert.Equal(t, []string{"Firefox", "Terminal"}, names)

	meta, derr := obj.PluginMetadata("Clock")
	require.Nil(t, derr)
	assert.Equal(t, "Clock", meta["Name"])

	_, derr = obj.PluginMetadata("Missing")
	assert.NotNil(t, derr)

	ids, derr := obj.WindowsForPid(42)
	require.Nil(t, derr)
	assert.Equal(t, []uint32{0x10, 0x20}, ids)

	ids, derr = obj.WindowsForPid(7)
	require.Nil(t, derr)
	assert.Empty(t, ids)

	backend.favoriteErr = errors.New("disk full")
	assert.NotNil(t, obj.RescanFavorites())
	assert.Nil(t, obj.RescanRecents())
}

func TestListApplicationsNeverNil(t *testing.T) {
	obj := NewObject(&fakeBackend{}, Table{})
	names, derr := obj.ListApplications()
	require.Nil(t, derr)
	assert.NotNil(t, names)
}

func TestPropertyTable(t *testing.T) {
	favorites := []string{"Firefox"}
	showHidden := false
	interval := 100

	table := Table{
		"favorites": Strings(
			func() []string { return favorites },
			func(v []string) error { favorites = v; return nil },
		),
		"show_hidden": Bool(
			func() bool { return showHidden },
			func(v bool) error { showHidden = v; return nil },
		),
		"poll_interval_ms": Int(
			func() int { return interval },
			func(v int) error {
				if v < 10 {
					return errors.New("too small")
				}
				interval = v
				return nil
			},
		),
		"application_count": Int(func() int { return 3 }, nil),
	}
	obj := NewObject(&fakeBackend{}, table)

	keys, _ := obj.Keys()
	assert.Equal(t, []string{"application_count", "favorites", "poll_interval_ms", "show_hidden"}, keys)

	v, derr := obj.Get("favorites")
	require.Nil(t, derr)
	assert.Equal(t, []string{"Firefox"}, v.Value())

	require.Nil(t, obj.Set("favorites", dbus.MakeVariant([]string{"A", "B"})))
	assert.Equal(t, []string{"A", "B"}, favorites)

	require.Nil(t, obj.Set("show_hidden", dbus.MakeVariant(true)))
	assert.True(t, showHidden)

	require.Nil(t, obj.Set("poll_interval_ms", dbus.MakeVariant(uint32(250))))
	assert.Equal(t, 250, interval)
	v, _ = obj.Get("poll_interval_ms")
	assert.Equal(t, int32(250), v.Value())

	assert.NotNil(t, obj.Set("poll_interval_ms", dbus.MakeVariant(int32(1))), "setter errors propagate")
	assert.NotNil(t, obj.Set("show_hidden", dbus.MakeVariant("yes")), "wrong type is rejected")
	assert.NotNil(t, obj.Set("application_count", dbus.MakeVariant(int32(5))), "read-only key")
	assert.NotNil(t, obj.Set("nope", dbus.MakeVariant(1)))

	_, derr = obj.Get("nope")
	assert.NotNil(t, derr)
}

func TestServiceRejectsInvalidPath(t *testing.T) {
	s := NewService("org.chess10kp.XDock", "not/a/path", NewObject(&fakeBackend{}, Table{}))
	assert.Error(t, s.Start())
	assert.NoError(t, s.Stop())
}
