package main

import (
	"context"
	"fmt"
	"os"

	child_process_manager "github.com/AgustinSRG/go-child-process-manager"

	"github.com/chess10kp/xdock/cmd/xdock/commands"
	"github.com/chess10kp/xdock/internal/logging"
)

func main() {
	if err := child_process_manager.InitializeChildProcessManager(); err != nil {
		fmt.Fprintf(os.Stderr, "failed to initialize child process manager: %v\n", err)
		os.Exit(1)
	}

	err := commands.Root.ExecuteContext(context.Background())

	child_process_manager.DisposeChildProcessManager()
	logging.Close()
	if err != nil {
		os.Exit(1)
	}
}
