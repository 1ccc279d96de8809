package output

import (
	"fmt"
	"os"
	"sort"
	"strings"

	"github.com/fatih/color"
	"golang.org/x/sys/unix"

	"github.com/axstate/windowstate/internal/geom"
)

// VisualizationOptions controls the appearance of the visualization
type VisualizationOptions struct {
	UseUnicode bool
	ShowIDs    bool
	MaxWidth   int
	MaxHeight  int
}

// DefaultVisualizationOptions returns sensible defaults
func DefaultVisualizationOptions() VisualizationOptions {
	width, height := getTerminalSize()
	return VisualizationOptions{
		UseUnicode: supportsUnicode(),
		ShowIDs:    true,
		MaxWidth:   width,
		MaxHeight:  height,
	}
}

// VisualWindow is the minimal shape the visualizer needs from a window: its
// current frame, minimized state, and a caller-formatted label. Decoupled
// from windowstate.Window so this package stays independently testable.
type VisualWindow struct {
	Frame     geom.Rect
	Minimized bool
	Label     string
}

// VisualScreen is one physical screen's frame plus the windows on it.
type VisualScreen struct {
	ID      string
	Label   string
	Frame   geom.Rect
	Windows []VisualWindow
}

// VisualizeScreen renders a spatial layout of windows for one screen.
func VisualizeScreen(screen VisualScreen, opts VisualizationOptions) string {
	if len(screen.Windows) == 0 {
		return fmt.Sprintf("Screen %s: %s (no windows)\n", screen.ID, screen.Label)
	}

	result := visualizeWindowsForScreen(screen.Windows, screen.Frame, opts)

	header := fmt.Sprintf("Screen %s: %s [%.0fx%.0f]\n", screen.ID, screen.Label, screen.Frame.Width, screen.Frame.Height)
	footer := fmt.Sprintf("\nTotal: %d windows\n", len(screen.Windows))

	return header + result + footer
}

// VisualizeAllScreens renders screens one after another. When
// opts.MaxWidth is at least 100 and there are more than two screens, only
// the first two are rendered, followed by a note giving the total count.
func VisualizeAllScreens(screens []VisualScreen, opts VisualizationOptions) string {
	if len(screens) == 0 {
		return "No screens found\n"
	}

	var result strings.Builder
	limit := len(screens)
	if opts.MaxWidth >= 100 && limit > 2 {
		limit = 2
	}

	for i := 0; i < limit; i++ {
		result.WriteString(VisualizeScreen(screens[i], opts))
		if i < limit-1 {
			result.WriteString("\n")
		}
	}

	if len(screens) > limit {
		result.WriteString(fmt.Sprintf("\n(Showing %d of %d screens)\n", limit, len(screens)))
	}

	return result.String()
}

// visualizeWindowsForScreen creates the actual ASCII visualization using a
// screen's real pixel frame for scaling.
func visualizeWindowsForScreen(windows []VisualWindow, screenFrame geom.Rect, opts VisualizationOptions) string {
	sorted := make([]VisualWindow, len(windows))
	copy(sorted, windows)
	sort.Slice(sorted, func(i, j int) bool { return sorted[i].Label < sorted[j].Label })

	sc := NewScalingContextFromFrame(screenFrame, opts.MaxWidth, opts.MaxHeight)
	canvas := NewCanvas(opts.MaxWidth, opts.MaxHeight, opts.UseUnicode)

	return renderWindowsOnCanvas(sorted, sc, canvas)
}

// renderWindowsOnCanvas draws windows onto a canvas
func renderWindowsOnCanvas(sortedWindows []VisualWindow, sc *ScalingContext, canvas *Canvas) string {
	canvas.DrawBox(0, 0, sc.TermWidth, sc.TermHeight)

	for _, win := range sortedWindows {
		if win.Minimized {
			continue
		}

		x, y := sc.PixelToTerminal(win.Frame.X, win.Frame.Y)
		w, h := sc.ScaleSize(win.Frame.Width, win.Frame.Height)
		x, y, w, h = sc.ClampToCanvas(x, y, w, h)

		if w < 3 || h < 2 {
			continue
		}

		canvas.DrawBox(x, y, w, h)
		if len(win.Label) <= w-2 && h >= 2 {
			canvas.DrawText(x+1, y+1, truncate(win.Label, w-2))
		}
	}

	return canvas.String()
}

// getTerminalSize returns the current terminal dimensions
func getTerminalSize() (width, height int) {
	ws, err := unix.IoctlGetWinsize(int(os.Stdout.Fd()), unix.TIOCGWINSZ)
	if err != nil {
		// Default to 80x24 if we can't detect
		return 80, 24
	}
	return int(ws.Col), int(ws.Row)
}

// supportsUnicode checks if the terminal supports Unicode
func supportsUnicode() bool {
	lang := os.Getenv("LANG")
	lcAll := os.Getenv("LC_ALL")
	return strings.Contains(lang, "UTF-8") || strings.Contains(lcAll, "UTF-8")
}

// PrintVisualization prints a colored visualization of one or all screens to stdout.
func PrintVisualization(screens []VisualScreen, screenIndex int, opts VisualizationOptions) error {
	var result string
	if screenIndex < 0 {
		result = VisualizeAllScreens(screens, opts)
	} else {
		if screenIndex >= len(screens) {
			return fmt.Errorf("screen index %d out of range (have %d screens)", screenIndex, len(screens))
		}
		result = VisualizeScreen(screens[screenIndex], opts)
	}

	if color.NoColor {
		fmt.Print(result)
	} else {
		color.New(color.FgCyan).Print(result)
	}
	return nil
}
