// Package bus exposes the launcher on the session D-Bus.
package bus

import (
	"fmt"
	"sync"

	"github.com/godbus/dbus/v5"
	"github.com/godbus/dbus/v5/introspect"

	"github.com/chess10kp/xdock/internal/logging"
	"github.com/chess10kp/xdock/internal/xwin"
)

var log = logging.For("bus")

const Interface = "org.chess10kp.XDock"

// Backend is what the exported methods act on.
type Backend interface {
	RescanApplications() int
	RescanFavorites() error
	RescanRecents() error
	ApplicationNames() []string
	PluginMetadata(name string) (map[string]string, bool)
	WindowsForProcess(pid int) []xwin.Handle
}

// Object carries the exported methods.
type Object struct {
	backend Backend
	props   Table
}

func NewObject(backend Backend, props Table) *Object {
	return &Object{backend: backend, props: props}
}

func (o *Object) RescanApplications() (uint32, *dbus.Error) {
	n := o.backend.RescanApplications()
	return uint32(n), nil
}

func (o *Object) RescanFavorites() *dbus.Error {
	if err := o.backend.RescanFavorites(); err != nil {
		return dbus.MakeFailedError(err)
	}
	return nil
}

func (o *Object) RescanRecents() *dbus.Error {
	if err := o.backend.RescanRecents(); err != nil {
		return dbus.MakeFailedError(err)
	}
	return nil
}

func (o *Object) ListApplications() ([]string, *dbus.Error) {
	names := o.backend.ApplicationNames()
	if names == nil {
		names = []string{}
	}
	return names, nil
}

func (o *Object) PluginMetadata(name string) (map[string]string, *dbus.Error) {
	meta, ok := o.backend.PluginMetadata(name)
	if !ok {
		return nil, dbus.MakeFailedError(fmt.Errorf("unknown plugin %q", name))
	}
	return meta, nil
}

func (o *Object) WindowsForPid(pid uint32) ([]uint32, *dbus.Error) {
	handles := o.backend.WindowsForProcess(int(pid))
	ids := make([]uint32, len(handles))
	for i, h := range handles {
		ids[i] = uint32(h)
	}
	return ids, nil
}

func (o *Object) Get(key string) (dbus.Variant, *dbus.Error) {
	v, err := o.props.get(key)
	if err != nil {
		return dbus.Variant{}, dbus.MakeFailedError(err)
	}
	return v, nil
}

func (o *Object) Set(key string, value dbus.Variant) *dbus.Error {
	if err := o.props.set(key, value); err != nil {
		log.Warnf("set %s failed: %v", key, err)
		return dbus.MakeFailedError(err)
	}
	log.Debugf("set %s = %v", key, value)
	return nil
}

func (o *Object) Keys() ([]string, *dbus.Error) {
	return o.props.Keys(), nil
}

// Service owns the bus connection and the exported object.
type Service struct {
	name    string
	path    dbus.ObjectPath
	object  *Object
	conn    *dbus.Conn
	mu      sync.Mutex
	running bool
}

func NewService(name, path string, object *Object) *Service {
	return &Service{
		name:   name,
		path:   dbus.ObjectPath(path),
		object: object,
	}
}

func (s *Service) Start() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.running {
		return fmt.Errorf("bus service already running")
	}
	if !s.path.IsValid() {
		return fmt.Errorf("invalid object path %q", s.path)
	}

	conn, err := dbus.SessionBus()
	if err != nil {
		return fmt.Errorf("failed to connect to session bus: %w", err)
	}

	if err := conn.Export(s.object, s.path, Interface); err != nil {
		conn.Close()
		return fmt.Errorf("failed to export interface: %w", err)
	}

	node := &introspect.Node{
		Name: string(s.path),
		Interfaces: []introspect.Interface{
			introspect.IntrospectData,
			{Name: Interface, Methods: introspect.Methods(s.object)},
		},
	}
	if err := conn.Export(introspect.NewIntrospectable(node), s.path, "org.freedesktop.DBus.Introspectable"); err != nil {
		conn.Close()
		return fmt.Errorf("failed to export introspection: %w", err)
	}

	reply, err := conn.RequestName(s.name, dbus.NameFlagDoNotQueue)
	if err != nil {
		conn.Close()
		return fmt.Errorf("failed to request name: %w", err)
	}
	if reply != dbus.RequestNameReplyPrimaryOwner {
		conn.Close()
		return fmt.Errorf("name %s already owned by another process", s.name)
	}

	s.conn = conn
	s.running = true
	log.Infof("exported %s on %s", s.path, s.name)
	return nil
}

// Emit sends a signal of the interface, e.g. ApplicationsChanged.
func (s *Service) Emit(signal string, values ...interface{}) {
	s.mu.Lock()
	conn := s.conn
	s.mu.Unlock()

	if conn == nil {
		return
	}
	if err := conn.Emit(s.path, Interface+"."+signal, values...); err != nil {
		log.Warnf("failed to emit %s: %v", signal, err)
	}
}

func (s *Service) Stop() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if !s.running {
		return nil
	}
	s.running = false

	if s.conn != nil {
		if _, err := s.conn.ReleaseName(s.name); err != nil {
			log.Warnf("failed to release %s: %v", s.name, err)
		}
		s.conn.Close()
		s.conn = nil
	}
	log.Infof("bus service stopped")
	return nil
}
