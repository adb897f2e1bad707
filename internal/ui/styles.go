package ui

import (
	"os"

	"github.com/gotk3/gotk3/gdk"
	"github.com/gotk3/gotk3/gtk"
)

const defaultStyles = `
* {
    font-family: "Iosevka", monospace;
    font-size: 14px;
}

#xdock-window {
    background-color: #0e1419;
    color: #ebdbb2;
}

#xdock-entry {
    background-color: #181825;
    color: #ebdbb2;
    padding: 10px;
    border: none;
    border-bottom: 1px solid #313244;
}

#xdock-entry:focus {
    border-bottom: 1px solid #89b4fa;
}

#xdock-results {
    background-color: transparent;
}

.xdock-row {
    padding: 8px;
    border-bottom: 1px solid #313244;
}

.xdock-row:selected {
    background-color: #89b4fa;
    color: #1e1e2e;
}

.xdock-favorite {
    margin: 4px;
}

#xdock-status {
    color: #888888;
    padding: 4px 10px;
}
`

// SetupStyles installs the built-in stylesheet and, when path names a
// readable file, a user stylesheet on top of it.
func SetupStyles(path string) {
	screen, err := gdk.ScreenGetDefault()
	if err != nil || screen == nil {
		log.Warnf("failed to get default screen: %v", err)
		return
	}

	provider, err := gtk.CssProviderNew()
	if err != nil {
		log.Warnf("failed to create css provider: %v", err)
		return
	}
	if err := provider.LoadFromData(defaultStyles); err != nil {
		log.Warnf("failed to load default styles: %v", err)
		return
	}
	gtk.AddProviderForScreen(screen, provider, gtk.STYLE_PROVIDER_PRIORITY_APPLICATION)

	if path == "" {
		return
	}
	data, err := os.ReadFile(path)
	if err != nil {
		if !os.IsNotExist(err) {
			log.Warnf("failed to read %s: %v", path, err)
		}
		return
	}
	user, err := gtk.CssProviderNew()
	if err != nil {
		return
	}
	if err := user.LoadFromData(string(data)); err != nil {
		log.Warnf("failed to load %s: %v", path, err)
		return
	}
	gtk.AddProviderForScreen(screen, user, gtk.STYLE_PROVIDER_PRIORITY_USER)
}
