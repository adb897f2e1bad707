package xwin

import (
	"encoding/binary"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeDisplay struct {
	root    map[string]Property
	windows map[Handle]map[string]Property
	reads   int
}

func newFakeDisplay() *fakeDisplay {
	return &fakeDisplay{
		root:    make(map[string]Property),
		windows: make(map[Handle]map[string]Property),
	}
}

func prop32(values ...uint32) Property {
	buf := make([]byte, 4*len(values))
	for i, v := range values {
		binary.LittleEndian.PutUint32(buf[i*4:], v)
	}
	return Property{Format: 32, Value: buf, Length: uint32(len(values))}
}

func (f *fakeDisplay) setClients(atom string, wins ...Handle) {
	vals := make([]uint32, len(wins))
	for i, w := range wins {
		vals[i] = uint32(w)
	}
	f.root[atom] = prop32(vals...)
}

func (f *fakeDisplay) setPID(win Handle, pid uint32) {
	if f.windows[win] == nil {
		f.windows[win] = make(map[string]Property)
	}
	f.windows[win][pidAtom] = prop32(pid)
}

func (f *fakeDisplay) RootProperty(atom string) (Property, error) {
	f.reads++
	p, ok := f.root[atom]
	if !ok {
		return Property{}, fmt.Errorf("no such property %s", atom)
	}
	return p, nil
}

func (f *fakeDisplay) WindowProperty(win Handle, atom string) (Property, error) {
	f.reads++
	p, ok := f.windows[win][atom]
	if !ok {
		return Property{}, fmt.Errorf("no such property %s on %d", atom, win)
	}
	return p, nil
}

func (f *fakeDisplay) Close() {}

func TestPropertyItems(t *testing.T) {
	testCases := []struct {
		name string
		prop Property
		want []uint32
	}{
		{"format 8", Property{Format: 8, Value: []byte{1, 2, 3}, Length: 3}, []uint32{1, 2, 3}},
		{"format 16", Property{Format: 16, Value: []byte{0x01, 0x02, 0xff, 0x00}, Length: 2}, []uint32{0x0201, 0x00ff}},
		{"format 32", prop32(7, 0x01020304), []uint32{7, 0x01020304}},
		{"trailing bytes ignored", Property{Format: 32, Value: []byte{1, 0, 0, 0, 9}}, []uint32{1}},
		{"length caps items", Property{Format: 8, Value: []byte{1, 2, 3}, Length: 1}, []uint32{1}},
		{"unsupported format", Property{Format: 0, Value: []byte{1}}, nil},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			assert.Equal(t, tc.want, tc.prop.Items())
		})
	}
}

func TestWindowsForProcess(t *testing.T) {
	d := newFakeDisplay()
	d.setClients("_NET_CLIENT_LIST", 10, 11, 12, 13)
	d.setPID(10, 100)
	d.setPID(11, 200)
	d.setPID(12, 100)

	loc := NewLocator(d)

	assert.Equal(t, []Handle{10, 12}, loc.WindowsForProcess(100))
	assert.Equal(t, []Handle{11}, loc.WindowsForProcess(200))
	assert.Empty(t, loc.WindowsForProcess(999))
}

func TestWindowsForProcessFallsBackToLegacyList(t *testing.T) {
	d := newFakeDisplay()
	d.setClients("_WIN_CLIENT_LIST", 5)
	d.setPID(5, 42)

	loc := NewLocator(d)
	assert.Equal(t, []Handle{5}, loc.WindowsForProcess(42))
}

func TestWindowsForProcessNoClientList(t *testing.T) {
	loc := NewLocator(newFakeDisplay())
	assert.Empty(t, loc.WindowsForProcess(1))
}

func TestLocatorWithoutDisplay(t *testing.T) {
	loc := NewLocator(nil)

	assert.False(t, loc.Available())
	assert.Empty(t, loc.WindowsForProcess(1))
	assert.Empty(t, loc.ClientPIDs())
	assert.Empty(t, loc.Title(1))

	var nilLoc *Locator
	assert.Empty(t, nilLoc.WindowsForProcess(1))
}

func TestLocatorReadsDisplayEveryCall(t *testing.T) {
	d := newFakeDisplay()
	d.setClients("_NET_CLIENT_LIST", 1)
	loc := NewLocator(d)

	assert.Empty(t, loc.WindowsForProcess(7))

	d.setPID(1, 7)
	assert.Equal(t, []Handle{1}, loc.WindowsForProcess(7))

	d.setClients("_NET_CLIENT_LIST", 1, 2)
	d.setPID(2, 7)
	assert.Equal(t, []Handle{1, 2}, loc.WindowsForProcess(7))
}

func TestClientPIDs(t *testing.T) {
	d := newFakeDisplay()
	d.setClients("_NET_CLIENT_LIST", 1, 2, 3)
	d.setPID(1, 50)
	d.setPID(3, 50)

	table := NewLocator(d).ClientPIDs()
	require.Len(t, table, 1)
	assert.Equal(t, []Handle{1, 3}, table[50])
}

func TestTitle(t *testing.T) {
	d := newFakeDisplay()
	d.windows[1] = map[string]Property{
		"WM_NAME": {Format: 8, Value: []byte("xterm"), Length: 5},
	}
	d.windows[2] = map[string]Property{
		"_NET_WM_NAME": {Format: 8, Value: []byte("Firefox"), Length: 7},
		"WM_NAME":      {Format: 8, Value: []byte("firefox"), Length: 7},
	}

	loc := NewLocator(d)
	assert.Equal(t, "xterm", loc.Title(1))
	assert.Equal(t, "Firefox", loc.Title(2))
	assert.Equal(t, "", loc.Title(3))
}

func TestXDisplayNil(t *testing.T) {
	var d *XDisplay
	_, err := d.RootProperty("_NET_CLIENT_LIST")
	assert.ErrorIs(t, err, ErrNoDisplay)
	d.Close()
}
