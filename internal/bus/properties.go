package bus

import (
	"fmt"
	"sort"

	"github.com/godbus/dbus/v5"
)

// Property is one entry of the Get/Set table. A nil Set makes the key
// read-only.
type Property struct {
	Get func() dbus.Variant
	Set func(dbus.Variant) error
}

// Table maps property keys to accessors. It is built once at startup.
type Table map[string]Property

// Keys returns the property names, sorted.
func (t Table) Keys() []string {
	keys := make([]string, 0, len(t))
	for k := range t {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

func (t Table) get(key string) (dbus.Variant, error) {
	p, ok := t[key]
	if !ok || p.Get == nil {
		return dbus.Variant{}, fmt.Errorf("unknown property %q", key)
	}
	return p.Get(), nil
}

func (t Table) set(key string, value dbus.Variant) error {
	p, ok := t[key]
	if !ok {
		return fmt.Errorf("unknown property %q", key)
	}
	if p.Set == nil {
		return fmt.Errorf("property %q is read-only", key)
	}
	return p.Set(value)
}

// Strings builds a string-list property.
func Strings(get func() []string, set func([]string) error) Property {
	p := Property{Get: func() dbus.Variant { return dbus.MakeVariant(get()) }}
	if set != nil {
		p.Set = func(v dbus.Variant) error {
			list, ok := v.Value().([]string)
			if !ok {
				return fmt.Errorf("expected string list, got %s", v.Signature())
			}
			return set(list)
		}
	}
	return p
}

// Bool builds a boolean property.
func Bool(get func() bool, set func(bool) error) Property {
	p := Property{Get: func() dbus.Variant { return dbus.MakeVariant(get()) }}
	if set != nil {
		p.Set = func(v dbus.Variant) error {
			b, ok := v.Value().(bool)
			if !ok {
				return fmt.Errorf("expected boolean, got %s", v.Signature())
			}
			return set(b)
		}
	}
	return p
}

// Int builds an integer property exposed as int32. Any integer variant is
// accepted on Set.
func Int(get func() int, set func(int) error) Property {
	p := Property{Get: func() dbus.Variant { return dbus.MakeVariant(int32(get())) }}
	if set != nil {
		p.Set = func(v dbus.Variant) error {
			var n int
			switch x := v.Value().(type) {
			case int32:
				n = int(x)
			case int64:
				n = int(x)
			case uint32:
				n = int(x)
			case uint64:
				n = int(x)
			case int16:
				n = int(x)
			case uint16:
				n = int(x)
			case byte:
				n = int(x)
			default:
				return fmt.Errorf("expected integer, got %s", v.Signature())
			}
			return set(n)
		}
	}
	return p
}
