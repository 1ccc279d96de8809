package propcache

import (
	"context"
	"errors"
	"sync"
	"testing"

	"github.com/axstate/windowstate/internal/ax"
	"github.com/axstate/windowstate/internal/werrors"
)

type change struct {
	old, new int
	external bool
}

type recordingNotifier struct {
	mu          sync.Mutex
	changes     []change
	invalidated int
}

func (n *recordingNotifier) Changed(old, new int, external bool) {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.changes = append(n.changes, change{old, new, external})
}

func (n *recordingNotifier) Invalidated() {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.invalidated++
}

type scriptedDelegate struct {
	mu        sync.Mutex
	initVal   int
	initErr   error
	reads     []int
	readIdx   int
	writeFunc func(v int) (int, error)
}

func (d *scriptedDelegate) Initialize(ctx context.Context) (int, error) {
	return d.initVal, d.initErr
}

func (d *scriptedDelegate) Read(ctx context.Context) (int, error) {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.readIdx >= len(d.reads) {
		return d.reads[len(d.reads)-1], nil
	}
	v := d.reads[d.readIdx]
	d.readIdx++
	return v, nil
}

func (d *scriptedDelegate) Write(ctx context.Context, v int) (int, error) {
	if d.writeFunc != nil {
		return d.writeFunc(v)
	}
	return v, nil
}

func newTestSlot(t *testing.T, initVal int, opts ...Option[int]) (*Slot[int], *scriptedDelegate, *recordingNotifier) {
	t.Helper()
	del := &scriptedDelegate{initVal: initVal}
	notif := &recordingNotifier{}
	s := New[int]("test", Comparable[int]{}, del, notif, opts...)
	if err := s.Initialize(context.Background()); err != nil {
		t.Fatalf("Initialize: %v", err)
	}
	return s, del, notif
}

func TestInitialize_PresentAttribute(t *testing.T) {
	s, _, _ := newTestSlot(t, 42)
	if got := s.Value(); got != 42 {
		t.Errorf("Value() = %d, want 42", got)
	}
}

func TestRefresh_EmitsEventOnChange(t *testing.T) {
	s, del, notif := newTestSlot(t, 5)
	del.reads = []int{12}

	got, err := s.Refresh(context.Background())
	if err != nil {
		t.Fatalf("Refresh: %v", err)
	}
	if got != 12 {
		t.Errorf("Refresh() = %d, want 12", got)
	}

	notif.mu.Lock()
	defer notif.mu.Unlock()
	if len(notif.changes) != 1 {
		t.Fatalf("expected 1 change event, got %d", len(notif.changes))
	}
	c := notif.changes[0]
	if c.old != 5 || c.new != 12 || !c.external {
		t.Errorf("change = %+v, want {old:5 new:12 external:true}", c)
	}
}

func TestRefresh_Idempotent_NoExternalChange(t *testing.T) {
	s, del, notif := newTestSlot(t, 5)
	del.reads = []int{5, 5}

	if _, err := s.Refresh(context.Background()); err != nil {
		t.Fatal(err)
	}
	if _, err := s.Refresh(context.Background()); err != nil {
		t.Fatal(err)
	}

	notif.mu.Lock()
	defer notif.mu.Unlock()
	if len(notif.changes) != 0 {
		t.Errorf("expected 0 change events for two no-op refreshes, got %d", len(notif.changes))
	}
}

func TestSet_InternalWrite(t *testing.T) {
	s, _, notif := newTestSlot(t, 0, Writable[int]())

	got, err := s.Set(context.Background(), 50)
	if err != nil {
		t.Fatalf("Set: %v", err)
	}
	if got != 50 {
		t.Errorf("Set() = %d, want 50", got)
	}

	notif.mu.Lock()
	defer notif.mu.Unlock()
	if len(notif.changes) != 1 {
		t.Fatalf("expected 1 change event, got %d", len(notif.changes))
	}
	if notif.changes[0].external {
		t.Error("expected external=false for an un-overridden write")
	}
}

func TestSet_ExternalOverride(t *testing.T) {
	del := &scriptedDelegate{initVal: 5}
	del.writeFunc = func(v int) (int, error) { return 48, nil } // OS snaps 50 -> 48
	notif := &recordingNotifier{}
	s := New[int]("test", Comparable[int]{}, del, notif, Writable[int]())
	if err := s.Initialize(context.Background()); err != nil {
		t.Fatal(err)
	}

	got, err := s.Set(context.Background(), 50)
	if err != nil {
		t.Fatalf("Set: %v", err)
	}
	if got != 48 {
		t.Errorf("Set() = %d, want 48", got)
	}

	notif.mu.Lock()
	defer notif.mu.Unlock()
	if len(notif.changes) != 1 {
		t.Fatalf("expected 1 change event, got %d", len(notif.changes))
	}
	c := notif.changes[0]
	if c.old != 5 || c.new != 48 || !c.external {
		t.Errorf("change = %+v, want {old:5 new:48 external:true}", c)
	}
}

func TestSet_Idempotent_OneEvent(t *testing.T) {
	s, _, notif := newTestSlot(t, 0, Writable[int]())

	if _, err := s.Set(context.Background(), 9); err != nil {
		t.Fatal(err)
	}
	if _, err := s.Set(context.Background(), 9); err != nil {
		t.Fatal(err)
	}

	notif.mu.Lock()
	defer notif.mu.Unlock()
	if len(notif.changes) != 1 {
		t.Errorf("expected exactly 1 change event for set(v) followed by set(v), got %d", len(notif.changes))
	}
}

func TestSet_NotWritable(t *testing.T) {
	s, _, _ := newTestSlot(t, 0)
	if _, err := s.Set(context.Background(), 1); err == nil {
		t.Error("expected error setting a non-writable slot")
	}
}

func TestInitialize_MissingValue_NonOptional_MarksInvalid(t *testing.T) {
	del := &scriptedDelegate{initErr: werrors.New(werrors.MissingValue, errors.New("AXFrame absent"))}
	notif := &recordingNotifier{}
	s := New[int]("test", Comparable[int]{}, del, notif)

	err := s.Initialize(context.Background())
	if err == nil {
		t.Fatal("expected initialization error")
	}
	kind, ok := werrors.KindOf(err)
	if !ok || kind != werrors.InvalidObject {
		t.Errorf("expected InvalidObject, got %v", err)
	}
	if s.IsValid() {
		t.Error("slot should be marked invalid")
	}
	notif.mu.Lock()
	defer notif.mu.Unlock()
	if notif.invalidated != 1 {
		t.Errorf("expected Invalidated() called once, got %d", notif.invalidated)
	}
}

func TestInitialize_MissingValue_Optional_Succeeds(t *testing.T) {
	del := &scriptedDelegate{initVal: 0, initErr: werrors.New(werrors.MissingValue, errors.New("absent"))}
	notif := &recordingNotifier{}
	s := New[int]("test", Comparable[int]{}, del, notif, Optional[int]())

	if err := s.Initialize(context.Background()); err != nil {
		t.Fatalf("Initialize: %v", err)
	}
	if !s.IsValid() {
		t.Error("optional slot should remain valid on missing-value")
	}
}

func TestSet_InvalidObject_MarksInvalidAndNotifies(t *testing.T) {
	notif := &recordingNotifier{}
	invalErr := werrors.NewInvalidObject(ax.ErrInvalidElement)
	writable := New[int]("test-w", Comparable[int]{}, &scriptedDelegate{
		initVal:   1,
		writeFunc: func(v int) (int, error) { return 0, invalErr },
	}, notif, Writable[int]())
	if err := writable.Initialize(context.Background()); err != nil {
		t.Fatal(err)
	}

	if _, err := writable.Set(context.Background(), 2); err == nil {
		t.Fatal("expected error from Set")
	}
	if writable.IsValid() {
		t.Error("slot should be invalid after invalid-object write error")
	}

	// Further writes fail; reads still return last cached value.
	if _, err := writable.Set(context.Background(), 3); !errors.Is(err, werrors.ErrInvalidObject) {
		t.Errorf("expected ErrInvalidObject on write after invalidation, got %v", err)
	}
	if got := writable.Value(); got != 1 {
		t.Errorf("Value() after invalidation = %d, want last cached value 1", got)
	}
}
