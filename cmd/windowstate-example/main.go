package main

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/fatih/color"
	"github.com/spf13/cobra"

	"github.com/axstate/windowstate"
	"github.com/axstate/windowstate/internal/config"
	"github.com/axstate/windowstate/internal/output"
)

var (
	jsonOutput bool
	noColor    bool
	debugMode  bool

	successColor = color.New(color.FgGreen, color.Bold)
	errorColor   = color.New(color.FgRed, color.Bold)
)

var rootCmd = &cobra.Command{
	Use:   "windowstate-example",
	Short: "Example client for the windowstate library",
	Long: `windowstate-example drives the windowstate library against a scripted demo
backend (no real accessibility OS is available in this environment) and
prints the resulting application/window/screen state.`,
	Version: "0.1.0",
}

var listCmd = &cobra.Command{
	Use:   "list",
	Short: "List applications, windows, or screens",
}

var listAppsCmd = &cobra.Command{
	Use:   "apps",
	Short: "List running applications",
	RunE: func(cmd *cobra.Command, args []string) error {
		state, err := startState(cmd.Context())
		if err != nil {
			return err
		}
		defer state.Close()

		apps := state.RunningApplications()
		if jsonOutput {
			return printJSON(apps)
		}
		output.PrintApplicationsTable(apps)
		fmt.Printf("\nTotal: %d applications\n", len(apps))
		return nil
	},
}

var listWindowsCmd = &cobra.Command{
	Use:   "windows",
	Short: "List all known windows",
	RunE: func(cmd *cobra.Command, args []string) error {
		state, err := startState(cmd.Context())
		if err != nil {
			return err
		}
		defer state.Close()

		windows := state.KnownWindows()
		if jsonOutput {
			return printJSON(windows)
		}
		output.PrintWindowsTable(windows)
		fmt.Printf("\nTotal: %d windows\n", len(windows))
		return nil
	},
}

var listScreensCmd = &cobra.Command{
	Use:   "screens",
	Short: "List physical screens",
	RunE: func(cmd *cobra.Command, args []string) error {
		state, err := startState(cmd.Context())
		if err != nil {
			return err
		}
		defer state.Close()

		screens := state.Screens()
		if jsonOutput {
			return printJSON(screens)
		}
		output.PrintScreensTable(screens)
		fmt.Printf("\nTotal: %d screens\n", len(screens))
		return nil
	},
}

var showWindowCmd = &cobra.Command{
	Use:   "show <title-substring>",
	Short: "Show details for the first window whose title matches",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		state, err := startState(cmd.Context())
		if err != nil {
			return err
		}
		defer state.Close()

		needle := strings.ToLower(args[0])
		var match *windowstate.Window
		for _, w := range state.KnownWindows() {
			if strings.Contains(strings.ToLower(w.Title()), needle) {
				match = w
				break
			}
		}
		if match == nil {
			printError(fmt.Sprintf("no window matching %q", args[0]))
			return fmt.Errorf("no match")
		}

		if jsonOutput {
			return printJSON(match)
		}
		output.PrintWindowDetail(match)
		return nil
	},
}

var renderCmd = &cobra.Command{
	Use:   "render",
	Short: "Draw an ASCII layout of every screen's windows",
	RunE: func(cmd *cobra.Command, args []string) error {
		state, err := startState(cmd.Context())
		if err != nil {
			return err
		}
		defer state.Close()

		var screens []output.VisualScreen
		for _, sc := range state.Screens() {
			vs := output.VisualScreen{ID: sc.ID(), Label: sc.ID(), Frame: sc.Frame()}
			for _, app := range state.RunningApplications() {
				for _, w := range app.KnownWindows() {
					if ws := w.Screen(); ws == nil || ws.ID() != sc.ID() {
						continue
					}
					vs.Windows = append(vs.Windows, output.VisualWindow{
						Frame:     w.Frame(),
						Minimized: w.IsMinimized(),
						Label:     fmt.Sprintf("%s: %s", app.DisplayName(), w.Title()),
					})
				}
			}
			screens = append(screens, vs)
		}

		return output.PrintVisualization(screens, -1, output.DefaultVisualizationOptions())
	},
}

var watchCmd = &cobra.Command{
	Use:   "watch",
	Short: "Subscribe to window/application events and print them as they occur",
	Long: `Starts the demo backend, subscribes to frontmost-application, application
launch/terminate and window-frame events, activates one of the running
applications to trigger a frontmost change, then prints whatever events
fired before exiting.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		state, err := startState(cmd.Context())
		if err != nil {
			return err
		}
		defer state.Close()

		state.On(func(e windowstate.FrontmostApplicationChanged) {
			fmt.Printf("frontmost changed: %v -> %v (external=%v)\n", pidOf(e.Old), pidOf(e.New), e.External)
		})
		state.On(func(e windowstate.ApplicationLaunched) {
			fmt.Printf("application launched: pid=%d\n", e.Application.PID())
		})
		state.On(func(e windowstate.ApplicationTerminated) {
			fmt.Printf("application terminated: pid=%d\n", e.Application.PID())
		})
		state.On(func(e windowstate.WindowFrameChanged) {
			fmt.Printf("window frame changed: %q %v -> %v\n", e.Window.Title(), e.Old, e.New)
		})

		apps := state.RunningApplications()
		if len(apps) > 0 {
			if _, err := state.FrontmostApplication.Set(cmd.Context(), apps[len(apps)-1]); err != nil {
				printError(fmt.Sprintf("activate failed: %v", err))
			}
		}

		time.Sleep(100 * time.Millisecond)
		successColor.Println("done")
		return nil
	},
}

func pidOf(a *windowstate.Application) int32 {
	if a == nil {
		return 0
	}
	return a.PID()
}

func startState(ctx context.Context) (*windowstate.State, error) {
	backend := newDemoBackend()
	cfg := config.Default()
	if debugMode {
		cfg.Log.Level = "debug"
	}
	return windowstate.Initialize(ctx,
		windowstate.WithConfig(cfg),
		windowstate.WithFacade(backend.facade),
		windowstate.WithObserverFactory(backend.facade),
		windowstate.WithAppObserver(backend),
		windowstate.WithScreenEnumerator(demoScreenEnumerator{}),
		windowstate.WithSpaceTracker(newDemoSpaceTracker()),
	)
}

func init() {
	rootCmd.PersistentFlags().BoolVar(&jsonOutput, "json", false, "Output in JSON format")
	rootCmd.PersistentFlags().BoolVar(&noColor, "no-color", false, "Disable colored output")
	rootCmd.PersistentFlags().BoolVar(&debugMode, "debug", false, "Enable debug logging")

	rootCmd.AddCommand(listCmd)
	listCmd.AddCommand(listAppsCmd, listWindowsCmd, listScreensCmd)
	rootCmd.AddCommand(showWindowCmd)
	rootCmd.AddCommand(renderCmd)
	rootCmd.AddCommand(watchCmd)

	cobra.OnInitialize(func() {
		if noColor {
			color.NoColor = true
		}
	})
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

func printJSON(data interface{}) error {
	enc := json.NewEncoder(os.Stdout)
	enc.SetIndent("", "  ")
	return enc.Encode(data)
}

func printError(msg string) {
	if noColor {
		fmt.Fprintln(os.Stderr, "Error:", msg)
	} else {
		errorColor.Fprint(os.Stderr, "✗ Error: ")
		fmt.Fprintln(os.Stderr, msg)
	}
}
