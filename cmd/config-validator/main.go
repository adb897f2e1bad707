package main

import (
	"fmt"
	"os"

	"github.com/chess10kp/xdock/internal/config"
)

func main() {
	configPath := "~/.config/xdock/config.toml"
	if len(os.Args) > 1 {
		configPath = os.Args[1]
	}

	fmt.Printf("Validating config: %s\n", configPath)

	cfg, err := config.LoadAndValidateConfig(configPath)
	if err != nil {
		fmt.Printf("Config validation failed: %v\n", err)
		os.Exit(1)
	}

	fmt.Println("Config is valid.")
	fmt.Printf("  application dirs: %v (standard dirs: %v, PATH: %v)\n", cfg.Apps.ExtraDirs, cfg.Apps.ScanStandardDirs, cfg.Apps.ScanPath)
	fmt.Printf("  plugin dirs:      %v\n", cfg.Plugins.Dirs)
	fmt.Printf("  socket:           %s\n", cfg.SocketPath)
	if cfg.Bus.Enabled {
		fmt.Printf("  bus:              %s %s\n", cfg.Bus.Name, cfg.Bus.Path)
	}
}
