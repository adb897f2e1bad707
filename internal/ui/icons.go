package ui

import (
	"fmt"
	"path/filepath"

	"github.com/gotk3/gotk3/gdk"
	"github.com/gotk3/gotk3/gtk"
	lru "github.com/hashicorp/golang-lru/v2"
)

const (
	iconSize     = 24
	fallbackIcon = "application-x-executable"
)

// IconCache keeps loaded icons by name. Desktop entries name icons either by
// theme name or by absolute path; both are handled.
type IconCache struct {
	cache *lru.Cache[string, *gdk.Pixbuf]
	theme *gtk.IconTheme
}

func NewIconCache(size int) (*IconCache, error) {
	cache, err := lru.New[string, *gdk.Pixbuf](size)
	if err != nil {
		return nil, fmt.Errorf("failed to create icon cache: %w", err)
	}
	theme, err := gtk.IconThemeGetDefault()
	if err != nil {
		return nil, fmt.Errorf("failed to get default icon theme: %w", err)
	}
	return &IconCache{cache: cache, theme: theme}, nil
}

// Get returns the icon for name, or the fallback icon when name cannot be
// loaded.
func (c *IconCache) Get(name string) (*gdk.Pixbuf, error) {
	if name == "" {
		name = fallbackIcon
	}
	if pixbuf, ok := c.cache.Get(name); ok {
		return pixbuf, nil
	}

	pixbuf, err := c.load(name)
	if err != nil {
		if name == fallbackIcon {
			return nil, err
		}
		log.Debugf("icon %s unavailable: %v", name, err)
		return c.Get(fallbackIcon)
	}

	c.cache.Add(name, pixbuf)
	return pixbuf, nil
}

func (c *IconCache) load(name string) (*gdk.Pixbuf, error) {
	if filepath.IsAbs(name) {
		return gdk.PixbufNewFromFileAtSize(name, iconSize, iconSize)
	}
	if !c.theme.HasIcon(name) {
		return nil, fmt.Errorf("icon %q not found in theme", name)
	}
	return c.theme.LoadIcon(name, iconSize, gtk.ICON_LOOKUP_USE_BUILTIN)
}

func (c *IconCache) Purge() {
	c.cache.Purge()
}
