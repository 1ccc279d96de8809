package main

import (
	"context"
	"fmt"
	"sync"

	"github.com/axstate/windowstate/internal/ax"
	"github.com/axstate/windowstate/internal/ax/axfake"
	"github.com/axstate/windowstate/internal/geom"
	"github.com/axstate/windowstate/internal/screens"
)

// demoBackend is a deterministic stand-in for the OS accessibility channel
// and its sibling application/screen/space observers, since this sandbox
// has no real windowing OS behind it. It seeds a couple of applications and
// windows so the example commands have something to show; see
// state_test.go at the repository root for the same fakes exercised
// against real assertions instead of CLI output.
type demoBackend struct {
	facade *axfake.Facade

	mu        sync.Mutex
	frontmost int32
	onLaunch  func(int32)
	onTerm    func(int32)
	onActive  func(int32)
}

func newDemoBackend() *demoBackend {
	f := axfake.New()
	d := &demoBackend{facade: f, frontmost: 100}

	finder := f.NewApplication(100)
	f.SetAttr(finder, ax.AttrTitle, "Finder")
	f.SetAttr(finder, ax.AttrHidden, false)
	finderWin := f.NewWindow(100)
	f.SetAttr(finderWin, ax.AttrPosition, geom.Point{X: 40, Y: 60})
	f.SetAttr(finderWin, ax.AttrSize, geom.Size{Width: 900, Height: 600})
	f.SetAttr(finderWin, ax.AttrTitle, "Downloads")
	f.SetAttr(finderWin, ax.AttrMinimized, false)
	f.SetAttr(finderWin, ax.AttrFullscreen, false)
	f.SetAttr(finderWin, ax.AttrSubrole, "AXStandardWindow")
	f.SetArrayAttr(finder, ax.AttrWindows, []ax.Element{finderWin})

	editor := f.NewApplication(200)
	f.SetAttr(editor, ax.AttrTitle, "Editor")
	f.SetAttr(editor, ax.AttrHidden, false)
	editorWin := f.NewWindow(200)
	f.SetAttr(editorWin, ax.AttrPosition, geom.Point{X: 980, Y: 60})
	f.SetAttr(editorWin, ax.AttrSize, geom.Size{Width: 900, Height: 950})
	f.SetAttr(editorWin, ax.AttrTitle, "main.go")
	f.SetAttr(editorWin, ax.AttrMinimized, false)
	f.SetAttr(editorWin, ax.AttrFullscreen, false)
	f.SetAttr(editorWin, ax.AttrSubrole, "AXStandardWindow")
	f.SetArrayAttr(editor, ax.AttrWindows, []ax.Element{editorWin})

	return d
}

func (d *demoBackend) FrontmostPID(ctx context.Context) (int32, error) {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.frontmost, nil
}

func (d *demoBackend) Activate(ctx context.Context, pid int32) error {
	d.mu.Lock()
	d.frontmost = pid
	cb := d.onActive
	d.mu.Unlock()
	if cb != nil {
		cb(pid)
	}
	return nil
}

func (d *demoBackend) OnLaunch(cb func(int32))    { d.onLaunch = cb }
func (d *demoBackend) OnTerminate(cb func(int32)) { d.onTerm = cb }
func (d *demoBackend) OnActivate(cb func(int32))  { d.onActive = cb }

type demoScreenEnumerator struct{}

func (demoScreenEnumerator) List(ctx context.Context) ([]screens.NativeScreen, error) {
	return []screens.NativeScreen{
		{ID: "demo-display", Frame: geom.Rect{Width: 1920, Height: 1080}, ApplicationFrame: geom.Rect{Y: 25, Width: 1920, Height: 1055}},
	}, nil
}
func (demoScreenEnumerator) OnChange(callback func()) {}

type demoSpaceTracker struct {
	mu      sync.Mutex
	visible map[string]bool
}

func newDemoSpaceTracker() *demoSpaceTracker {
	return &demoSpaceTracker{visible: make(map[string]bool)}
}

func (d *demoSpaceTracker) CreatePinnedWindow(ctx context.Context, screenID string) (string, error) {
	d.mu.Lock()
	defer d.mu.Unlock()
	id := fmt.Sprintf("%s-probe", screenID)
	d.visible[id] = true
	return id, nil
}

func (d *demoSpaceTracker) VisibleWindowIDs(ctx context.Context) ([]string, error) {
	d.mu.Lock()
	defer d.mu.Unlock()
	out := make([]string, 0, len(d.visible))
	for id, v := range d.visible {
		if v {
			out = append(out, id)
		}
	}
	return out, nil
}

func (d *demoSpaceTracker) OnSpaceChange(callback func()) {}
