// Package commands holds the xdock command tree.
package commands

import (
	"fmt"
	"os"
	"os/signal"
	"path/filepath"
	"sort"
	"strconv"
	"strings"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/chess10kp/xdock/internal/apps"
	"github.com/chess10kp/xdock/internal/config"
	"github.com/chess10kp/xdock/internal/core"
	"github.com/chess10kp/xdock/internal/desktop"
	"github.com/chess10kp/xdock/internal/launch"
	"github.com/chess10kp/xdock/internal/logging"
	"github.com/chess10kp/xdock/internal/xwin"
)

const defaultConfigPath = "~/.config/xdock/config.toml"

var log = logging.For("cli")

// cfg is loaded once by Root before any subcommand runs.
var cfg *config.Config

var (
	Root = &cobra.Command{
		Use:           "xdock",
		Short:         "X11 application launcher that embeds the windows it starts",
		SilenceUsage:  true,
		SilenceErrors: false,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			path, _ := cmd.Flags().GetString("config")
			loaded, err := config.LoadAndValidateConfig(path)
			if err != nil {
				return err
			}
			cfg = loaded

			level := cfg.Log.Level
			if l, _ := cmd.Flags().GetString("log-level"); l != "" {
				level = l
			}
			return logging.Setup(level, cfg.Log.File)
		},
	}

	Run = &cobra.Command{
		Use:   "run",
		Short: "start the launcher window",
		Args:  cobra.NoArgs,
		RunE:  runApp,
	}

	List = &cobra.Command{
		Use:   "list",
		Short: "list discovered applications",
		Args:  cobra.NoArgs,
		RunE:  listApps,
	}

	Windows = &cobra.Command{
		Use:   "windows [pid]",
		Short: "show top-level windows grouped by owning process",
		Args:  cobra.MaximumNArgs(1),
		RunE:  listWindows,
	}

	Launch = &cobra.Command{
		Use:   "launch <name>",
		Short: "start an application without the window, report its windows and wait for it to exit",
		Args:  cobra.ExactArgs(1),
		RunE:  launchApp,
	}

	Send = &cobra.Command{
		Use:   "send <command> [args...]",
		Short: "send a command to a running launcher",
		Args:  cobra.MinimumNArgs(1),
		RunE:  sendCommand,
	}
)

func init() {
	Root.AddCommand(Run)
	Root.AddCommand(List)
	Root.AddCommand(Windows)
	Root.AddCommand(Launch)
	Root.AddCommand(Send)

	Root.PersistentFlags().String("config", defaultConfigPath, "path to the config file")
	Root.PersistentFlags().String("log-level", "", "override the configured log level")

	List.Flags().String("category", "", "only applications in this category")
	List.Flags().String("grep", "", "only applications whose name contains this text")
	List.Flags().String("fuzzy", "", "fuzzy search, best matches first")
	List.Flags().Bool("hidden", false, "include NoDisplay and Hidden entries")
	List.Flags().Bool("plugins", false, "list plugins instead of applications")

}

func pidFile() string {
	return filepath.Join(os.TempDir(), "xdock.pid")
}

// ensureSingleInstance replaces a previous launcher process, if any.
func ensureSingleInstance() error {
	if data, err := os.ReadFile(pidFile()); err == nil {
		if pid, err := strconv.Atoi(strings.TrimSpace(string(data))); err == nil && pid != os.Getpid() {
			if process, err := os.FindProcess(pid); err == nil {
				if err := process.Signal(syscall.Signal(0)); err == nil {
					log.Infof("stopping previous instance (pid %d)", pid)
					process.Signal(syscall.SIGTERM)
				}
			}
		}
	}
	return os.WriteFile(pidFile(), []byte(strconv.Itoa(os.Getpid())), 0644)
}

func runApp(cmd *cobra.Command, args []string) error {
	if err := ensureSingleInstance(); err != nil {
		return fmt.Errorf("failed to ensure single instance: %w", err)
	}
	defer os.Remove(pidFile())

	app, err := core.NewApp(cfg)
	if err != nil {
		return fmt.Errorf("failed to create application: %w", err)
	}
	return app.Run()
}

// headlessShell builds a shell that is driven by a SerialLoop instead of GTK.
func headlessShell(locator *xwin.Locator) (*core.Shell, *launch.SerialLoop, error) {
	loop := launch.NewSerialLoop()
	shell, err := core.NewShell(cfg, loop, locator, launch.ViewEmbedder{})
	if err != nil {
		loop.Close()
		return nil, nil, err
	}
	shell.RescanApplications()
	return shell, loop, nil
}

func listApps(cmd *cobra.Command, args []string) error {
	category, _ := cmd.Flags().GetString("category")
	grep, _ := cmd.Flags().GetString("grep")
	fuzzy, _ := cmd.Flags().GetString("fuzzy")
	hidden, _ := cmd.Flags().GetBool("hidden")
	plugins, _ := cmd.Flags().GetBool("plugins")

	if hidden {
		cfg.Apps.ShowHidden = true
	}
	shell, loop, err := headlessShell(xwin.NewLocator(nil))
	if err != nil {
		return err
	}
	defer loop.Close()

	out := cmd.OutOrStdout()
	if plugins {
		for _, p := range shell.Plugins().Ordered() {
			fmt.Fprintf(out, "%s\t%s\n", p.Name, p.Exec)
		}
		return nil
	}

	var records []desktop.Record
	switch {
	case category != "":
		if !apps.IsCategory(category) {
			return fmt.Errorf("unknown category %q (one of: %s)", category, strings.Join(apps.Categories, ", "))
		}
		records = sortedValues(shell.Apps().ByCategory(category))
	case grep != "":
		records = sortedValues(shell.Apps().BySubstring(grep))
	case fuzzy != "":
		records = shell.Apps().Search(fuzzy, cfg.Apps.MaxResults)
	default:
		records = shell.Apps().Records()
	}

	for _, rec := range records {
		fmt.Fprintf(out, "%s\t%s\n", rec.Name, rec.Exec)
	}
	return nil
}

func sortedValues(m map[string]desktop.Record) []desktop.Record {
	names := make([]string, 0, len(m))
	for name := range m {
		names = append(names, name)
	}
	sort.Strings(names)

	out := make([]desktop.Record, len(names))
	for i, name := range names {
		out[i] = m[name]
	}
	return out
}

func connectLocator() (*xwin.Locator, func(), error) {
	display, err := xwin.Connect(cfg.Display)
	if err != nil {
		return nil, nil, err
	}
	return xwin.NewLocator(display), display.Close, nil
}

func listWindows(cmd *cobra.Command, args []string) error {
	locator, closeDisplay, err := connectLocator()
	if err != nil {
		return err
	}
	defer closeDisplay()

	out := cmd.OutOrStdout()
	if len(args) == 1 {
		pid, err := strconv.Atoi(args[0])
		if err != nil || pid <= 0 {
			return fmt.Errorf("invalid pid %q", args[0])
		}
		for _, h := range locator.WindowsForProcess(pid) {
			fmt.Fprintf(out, "0x%x\t%s\n", uint32(h), locator.Title(h))
		}
		return nil
	}

	byPID := locator.ClientPIDs()
	pids := make([]int, 0, len(byPID))
	for pid := range byPID {
		pids = append(pids, pid)
	}
	sort.Ints(pids)
	for _, pid := range pids {
		for _, h := range byPID[pid] {
			fmt.Fprintf(out, "%d\t0x%x\t%s\n", pid, uint32(h), locator.Title(h))
		}
	}
	return nil
}

func launchApp(cmd *cobra.Command, args []string) error {
	locator, closeDisplay, err := connectLocator()
	if err != nil {
		log.Warnf("window lookup disabled: %v", err)
		locator, closeDisplay = xwin.NewLocator(nil), func() {}
	}
	defer closeDisplay()

	shell, loop, err := headlessShell(locator)
	if err != nil {
		return err
	}
	defer loop.Close()

	out := cmd.OutOrStdout()
	done := make(chan error, 1)

	var launchErr error
	loop.Invoke(func() {
		app, err := shell.Launch(args[0])
		if err != nil {
			launchErr = err
			return
		}
		fmt.Fprintf(out, "started %s (pid %d)\n", app.Name(), app.PID())
		app.OnReady(func(surfaces []launch.Surface) {
			for _, s := range surfaces {
				fmt.Fprintf(out, "window 0x%x\t%s\n", uint32(s.Handle()), locator.Title(s.Handle()))
			}
		})
		app.OnExit(func(err error) {
			done <- err
		})
	})
	if launchErr != nil {
		return launchErr
	}

	sigs := make(chan os.Signal, 1)
	signal.Notify(sigs, syscall.SIGINT, syscall.SIGTERM)
	defer signal.Stop(sigs)

	select {
	case err := <-done:
		if err != nil {
			fmt.Fprintf(out, "exited: %v\n", err)
		}
		return nil
	case sig := <-sigs:
		log.Infof("received %v, stopping", sig)
		loop.Invoke(shell.Close)
		return nil
	}
}

func sendCommand(cmd *cobra.Command, args []string) error {
	socketPath := os.Getenv("XDOCK_SOCKET")
	if socketPath == "" {
		socketPath = cfg.SocketPath
	}

	reply, err := core.SendMessage(socketPath, strings.Join(args, " "))
	if err != nil {
		return err
	}

	status, body, _ := strings.Cut(reply, " ")
	if status == "error" {
		return fmt.Errorf("%s", body)
	}
	if body != "" {
		fmt.Fprintln(cmd.OutOrStdout(), strings.ReplaceAll(body, "\t", "\n"))
	}
	return nil
}
