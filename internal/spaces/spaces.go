// Package spaces infers virtual-desktop ("space") identity, which the OS
// does not enumerate directly, by maintaining one invisible probe window
// per screen and correlating which probes the OS currently reports visible
// (spec.md §4.6).
package spaces

import (
	"context"
	"encoding/json"
	"sort"
	"sync"

	"github.com/axstate/windowstate/internal/logx"
	"github.com/axstate/windowstate/internal/persist"
	"github.com/axstate/windowstate/internal/screens"
)

// OSTracker is the "OS space tracker" external collaborator from spec.md
// §6: creating pinned probe windows, listing which native window ids are
// currently visible, and a callback for active-space changes.
type OSTracker interface {
	CreatePinnedWindow(ctx context.Context, screenID string) (nativeID string, err error)
	VisibleWindowIDs(ctx context.Context) ([]string, error)
	OnSpaceChange(callback func())
}

// Events receives space-will-change / space-did-change notifications.
type Events interface {
	SpaceWillChange(ids []int)
	SpaceDidChange(ids []int)
}

type probeEntry struct {
	nativeID   string
	internalID int
	screenID   string
}

// probeState is the opaque per-probe payload this package persists via
// internal/persist; recovering it lets internal ids survive a restart.
type probeState struct {
	NativeID string `json:"nativeId"`
	ScreenID string `json:"screenId"`
}

// ProbeInfo is a debug snapshot of one probe, as returned by
// Tracker.Probes (supplemented feature: a diagnostic view of the probe set).
type ProbeInfo struct {
	NativeID   string
	InternalID int
	ScreenID   string
	Visible    bool
}

// Tracker owns the probe set and drives the space-change protocol.
type Tracker struct {
	os          OSTracker
	screens     *screens.Tracker
	events      Events
	refreshApps func(ctx context.Context) error

	mu      sync.Mutex
	byNative map[string]*probeEntry
	nextID  int
}

// New constructs a Tracker. refreshApps is called after space-will-change
// to make every application delegate re-enumerate its windows, since the
// window set on the new space differs (spec.md §4.6 step 6); it may be nil
// in tests that don't exercise application reconciliation.
func New(os OSTracker, screenTracker *screens.Tracker, events Events, refreshApps func(ctx context.Context) error) *Tracker {
	return &Tracker{os: os, screens: screenTracker, events: events, refreshApps: refreshApps, byNative: make(map[string]*probeEntry)}
}

// Initialize creates one probe per known screen and subscribes to future
// space-change notifications.
func (t *Tracker) Initialize(ctx context.Context) error {
	for _, s := range t.screens.Screens() {
		if _, err := t.createProbe(ctx, s.ID()); err != nil {
			return err
		}
	}
	t.os.OnSpaceChange(func() { t.HandleSpaceChange(context.Background()) })
	return nil
}

// InitializeWithRecovery restores probes from a previously persisted blob
// before creating any new ones, so probe internal ids already bound to a
// space survive the restart (spec.md §4.6's optional persistence step).
func (t *Tracker) InitializeWithRecovery(ctx context.Context, blob *persist.Blob) error {
	t.mu.Lock()
	t.nextID = blob.NextID
	for id, raw := range blob.Probes {
		var ps probeState
		if err := json.Unmarshal(raw, &ps); err != nil {
			logx.For("spaces").Debug().Err(err).Int("probeID", id).Msg("failed to decode recovered probe, dropping")
			continue
		}
		t.byNative[ps.NativeID] = &probeEntry{nativeID: ps.NativeID, internalID: id, screenID: ps.ScreenID}
	}
	t.mu.Unlock()

	covered := make(map[string]bool)
	t.mu.Lock()
	for _, pe := range t.byNative {
		covered[pe.screenID] = true
	}
	t.mu.Unlock()

	for _, s := range t.screens.Screens() {
		if covered[s.ID()] {
			continue
		}
		if _, err := t.createProbe(ctx, s.ID()); err != nil {
			return err
		}
	}

	t.os.OnSpaceChange(func() { t.HandleSpaceChange(context.Background()) })
	return nil
}

func (t *Tracker) createProbe(ctx context.Context, screenID string) (*probeEntry, error) {
	nativeID, err := t.os.CreatePinnedWindow(ctx, screenID)
	if err != nil {
		return nil, err
	}
	t.mu.Lock()
	t.nextID++
	pe := &probeEntry{nativeID: nativeID, internalID: t.nextID, screenID: screenID}
	t.byNative[nativeID] = pe
	t.mu.Unlock()
	return pe, nil
}

// bestPerScreen buckets currently-visible probes by screen, choosing the
// smallest internal id on each screen (spec.md §4.6 step 4). When
// createMissing is true, a screen with no visible probe gets a fresh one
// created on the spot; otherwise it is simply absent from the result,
// which the staleness check in HandleSpaceChange treats as "different".
func (t *Tracker) bestPerScreen(ctx context.Context, createMissing bool) (map[string]int, error) {
	visibleIDs, err := t.os.VisibleWindowIDs(ctx)
	if err != nil {
		return nil, err
	}
	visible := make(map[string]bool, len(visibleIDs))
	for _, id := range visibleIDs {
		visible[id] = true
	}

	t.mu.Lock()
	best := make(map[string]int)
	for nativeID, pe := range t.byNative {
		if !visible[nativeID] {
			continue
		}
		if cur, ok := best[pe.screenID]; !ok || pe.internalID < cur {
			best[pe.screenID] = pe.internalID
		}
	}
	t.mu.Unlock()

	if createMissing {
		for _, s := range t.screens.Screens() {
			if _, ok := best[s.ID()]; ok {
				continue
			}
			pe, err := t.createProbe(ctx, s.ID())
			if err != nil {
				return nil, err
			}
			best[s.ID()] = pe.internalID
		}
	}
	return best, nil
}

func (t *Tracker) vector(best map[string]int) []int {
	screens := t.screens.Screens()
	out := make([]int, len(screens))
	for i, s := range screens {
		out[i] = best[s.ID()] // 0 ("no id") if absent
	}
	return out
}

func equalVectors(a, b []int) bool {
	if len(a) != len(b) {
		return false
	}
	for i := range a {
		if a[i] != b[i] {
			return false
		}
	}
	return true
}

// HandleSpaceChange runs the full protocol from spec.md §4.6 steps 3-7:
// compute the new per-screen space ids, emit space-will-change, trigger
// application re-enumeration, and emit space-did-change only if the space
// ids are still current once re-enumeration resolves.
func (t *Tracker) HandleSpaceChange(ctx context.Context) error {
	best, err := t.bestPerScreen(ctx, true)
	if err != nil {
		logx.For("spaces").Debug().Err(err).Msg("failed to compute visible probes")
		return err
	}
	willVector := t.vector(best)
	t.events.SpaceWillChange(willVector)

	if t.refreshApps != nil {
		if err := t.refreshApps(ctx); err != nil {
			logx.For("spaces").Debug().Err(err).Msg("application re-enumeration failed during space change")
		}
	}

	latest, err := t.bestPerScreen(ctx, false)
	if err != nil {
		logx.For("spaces").Debug().Err(err).Msg("failed to recompute visible probes for staleness check")
		return err
	}
	if !equalVectors(t.vector(latest), willVector) {
		logx.For("spaces").Debug().Msg("space changed again during re-enumeration, dropping stale did-change")
		return nil
	}

	t.events.SpaceDidChange(willVector)
	for i, s := range t.screens.Screens() {
		t.screens.SetCurrentSpaceID(s.ID(), willVector[i])
	}
	return nil
}

// Probes returns a live debug snapshot of every probe.
func (t *Tracker) Probes(ctx context.Context) []ProbeInfo {
	visibleIDs, _ := t.os.VisibleWindowIDs(ctx)
	visible := make(map[string]bool, len(visibleIDs))
	for _, id := range visibleIDs {
		visible[id] = true
	}

	t.mu.Lock()
	defer t.mu.Unlock()
	out := make([]ProbeInfo, 0, len(t.byNative))
	for _, pe := range t.byNative {
		out = append(out, ProbeInfo{NativeID: pe.nativeID, InternalID: pe.internalID, ScreenID: pe.screenID, Visible: visible[pe.nativeID]})
	}
	sort.Slice(out, func(i, j int) bool { return out[i].InternalID < out[j].InternalID })
	return out
}

// RecoveryBlob snapshots the current probe set into a persist.Blob for the
// caller to save.
func (t *Tracker) RecoveryBlob() (*persist.Blob, error) {
	t.mu.Lock()
	defer t.mu.Unlock()

	b := persist.New()
	b.NextID = t.nextID
	for _, pe := range t.byNative {
		if err := persist.PutProbe(b, pe.internalID, probeState{NativeID: pe.nativeID, ScreenID: pe.screenID}); err != nil {
			return nil, err
		}
	}
	return b, nil
}
