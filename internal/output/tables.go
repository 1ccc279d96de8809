package output

import (
	"fmt"
	"os"
	"sort"

	"github.com/olekukonko/tablewriter"

	"github.com/axstate/windowstate"
)

// PrintWindowsTable prints windows in a table format
func PrintWindowsTable(windows []*windowstate.Window) {
	table := tablewriter.NewWriter(os.Stdout)
	table.Header("Title", "App", "PID", "Frame", "Minimized", "Fullscreen")

	sort.Slice(windows, func(i, j int) bool {
		return windows[i].Title() < windows[j].Title()
	})

	for _, win := range windows {
		appName := "-"
		pid := ""
		if app := win.Application(); app != nil {
			appName = truncate(app.DisplayName(), 20)
			pid = fmt.Sprintf("%d", app.PID())
		}

		frame := win.Frame()
		size := fmt.Sprintf("%.0f,%.0f %.0fx%.0f", frame.X, frame.Y, frame.Width, frame.Height)

		table.Append(
			truncate(win.Title(), 30),
			appName,
			pid,
			size,
			boolGlyph(win.IsMinimized()),
			boolGlyph(win.IsFullscreen()),
		)
	}

	table.Render()
}

// PrintScreensTable prints screens in a table format
func PrintScreensTable(screens []*windowstate.Screen) {
	table := tablewriter.NewWriter(os.Stdout)
	table.Header("ID", "Frame", "Application Frame", "Space")

	for _, sc := range screens {
		frame := sc.Frame()
		appFrame := sc.ApplicationFrame()
		space := "-"
		if id, ok := sc.CurrentSpaceID(); ok {
			space = fmt.Sprintf("%d", id)
		}

		table.Append(
			truncate(sc.ID(), 20),
			fmt.Sprintf("%.0fx%.0f", frame.Width, frame.Height),
			fmt.Sprintf("%.0fx%.0f", appFrame.Width, appFrame.Height),
			space,
		)
	}

	table.Render()
}

// PrintApplicationsTable prints applications in a table format
func PrintApplicationsTable(apps []*windowstate.Application) {
	table := tablewriter.NewWriter(os.Stdout)
	table.Header("PID", "Name", "Bundle ID", "Frontmost", "Hidden", "Windows")

	sort.Slice(apps, func(i, j int) bool {
		return apps[i].DisplayName() < apps[j].DisplayName()
	})

	for _, app := range apps {
		table.Append(
			fmt.Sprintf("%d", app.PID()),
			truncate(app.DisplayName(), 25),
			truncate(app.BundleID(), 35),
			boolGlyph(app.IsFrontmost()),
			boolGlyph(app.IsHidden()),
			fmt.Sprintf("%d", len(app.KnownWindows())),
		)
	}

	table.Render()
}

// PrintWindowDetail prints detailed information about a single window
func PrintWindowDetail(win *windowstate.Window) {
	fmt.Printf("Title: %s\n", win.Title())
	if app := win.Application(); app != nil {
		fmt.Printf("Application: %s (PID: %d)\n", app.DisplayName(), app.PID())
	}
	frame := win.Frame()
	fmt.Printf("Position: (%.0f, %.0f)\n", frame.X, frame.Y)
	fmt.Printf("Size: %.0fx%.0f\n", frame.Width, frame.Height)
	fmt.Printf("Minimized: %v\n", win.IsMinimized())
	fmt.Printf("Fullscreen: %v\n", win.IsFullscreen())
	if sc := win.Screen(); sc != nil {
		fmt.Printf("Screen: %s\n", sc.ID())
	}
}

// Helper functions

func boolGlyph(v bool) string {
	if v {
		return "yes"
	}
	return ""
}

func truncate(s string, maxLen int) string {
	if len(s) <= maxLen {
		return s
	}
	return s[:maxLen-3] + "..."
}
