package delegate

import (
	"context"
	"errors"
	"testing"

	"github.com/axstate/windowstate/internal/ax"
	"github.com/axstate/windowstate/internal/ax/axfake"
	"github.com/axstate/windowstate/internal/geom"
	"github.com/axstate/windowstate/internal/werrors"
)

func TestScalar_Initialize_Direct(t *testing.T) {
	f := axfake.New()
	el := f.NewWindow(1)
	f.SetAttr(el, ax.AttrTitle, "Terminal")

	d := &Scalar[string]{Facade: f, Element: el, Attr: ax.AttrTitle, Decode: DecodeString}
	got, err := d.Initialize(context.Background())
	if err != nil {
		t.Fatalf("Initialize: %v", err)
	}
	if got != "Terminal" {
		t.Errorf("Initialize() = %q, want Terminal", got)
	}
}

func TestScalar_Initialize_ViaBatch(t *testing.T) {
	f := axfake.New()
	el := f.NewWindow(1)
	f.SetAttr(el, ax.AttrTitle, "Editor")
	f.SetAttr(el, ax.AttrMinimized, true)

	b := NewBatch(f, el, []ax.Attr{ax.AttrTitle, ax.AttrMinimized})
	titleD := &Scalar[string]{Facade: f, Element: el, Attr: ax.AttrTitle, Batch: b, Decode: DecodeString}
	minD := &Scalar[bool]{Facade: f, Element: el, Attr: ax.AttrMinimized, Batch: b, Decode: DecodeBool}

	title, err := titleD.Initialize(context.Background())
	if err != nil {
		t.Fatalf("title Initialize: %v", err)
	}
	if title != "Editor" {
		t.Errorf("title = %q, want Editor", title)
	}
	min, err := minD.Initialize(context.Background())
	if err != nil {
		t.Fatalf("minimized Initialize: %v", err)
	}
	if !min {
		t.Error("minimized = false, want true")
	}
}

func TestScalar_Initialize_MissingValue(t *testing.T) {
	f := axfake.New()
	el := f.NewWindow(1)
	// Title never set: attrs map returns nil.

	d := &Scalar[string]{Facade: f, Element: el, Attr: ax.AttrTitle, Decode: DecodeString}
	_, err := d.Initialize(context.Background())
	if err == nil {
		t.Fatal("expected MissingValue error")
	}
	kind, ok := werrors.KindOf(err)
	if !ok || kind != werrors.MissingValue {
		t.Errorf("expected MissingValue, got %v", err)
	}
}

func TestScalar_Write_Readback(t *testing.T) {
	f := axfake.New()
	el := f.NewWindow(1)
	f.SetAttr(el, ax.AttrTitle, "old")

	d := &Scalar[string]{
		Facade: f, Element: el, Attr: ax.AttrTitle,
		Decode: DecodeString,
		Encode: func(v string) any { return v },
	}
	got, err := d.Write(context.Background(), "new")
	if err != nil {
		t.Fatalf("Write: %v", err)
	}
	if got != "new" {
		t.Errorf("Write() = %q, want new", got)
	}
}

func TestScalar_Write_Unwritable(t *testing.T) {
	f := axfake.New()
	el := f.NewWindow(1)
	d := &Scalar[string]{Facade: f, Element: el, Attr: ax.AttrTitle, Decode: DecodeString}
	if _, err := d.Write(context.Background(), "x"); err == nil {
		t.Fatal("expected error writing a delegate with no Encode")
	}
}

func TestScalar_InvalidElement_ClassifiedAsInvalidObject(t *testing.T) {
	f := axfake.New()
	el := f.NewWindow(1)
	f.SetAttr(el, ax.AttrTitle, "x")
	f.Invalidate(el)

	d := &Scalar[string]{Facade: f, Element: el, Attr: ax.AttrTitle, Decode: DecodeString}
	_, err := d.Initialize(context.Background())
	if !errors.Is(err, werrors.ErrInvalidObject) {
		t.Errorf("expected ErrInvalidObject, got %v", err)
	}
}

func TestPositionFilter_InvertsAxis(t *testing.T) {
	f := axfake.New()
	el := f.NewWindow(1)
	// AX convention: origin top-left, y grows down. Screen union is 1000
	// tall; window is 100 tall, 20px from the top in AX terms.
	f.SetAttr(el, ax.AttrPosition, geom.Point{X: 50, Y: 20})

	inner := &Scalar[geom.Point]{Facade: f, Element: el, Attr: ax.AttrPosition, Decode: DecodePoint, Encode: EncodePoint}
	pf := &PositionFilter{
		Inner:      inner,
		Height:     func() float64 { return 100 },
		GlobalMaxY: func() float64 { return 1000 },
	}

	got, err := pf.Initialize(context.Background())
	if err != nil {
		t.Fatalf("Initialize: %v", err)
	}
	want := geom.Point{X: 50, Y: 1000 - 20 - 100}
	if got != want {
		t.Errorf("Initialize() = %+v, want %+v", got, want)
	}
}

func TestPositionFilter_Write_RoundTrips(t *testing.T) {
	f := axfake.New()
	el := f.NewWindow(1)
	f.SetAttr(el, ax.AttrPosition, geom.Point{X: 0, Y: 0})

	inner := &Scalar[geom.Point]{Facade: f, Element: el, Attr: ax.AttrPosition, Decode: DecodePoint, Encode: EncodePoint}
	pf := &PositionFilter{
		Inner:      inner,
		Height:     func() float64 { return 200 },
		GlobalMaxY: func() float64 { return 900 },
	}

	client := geom.Point{X: 10, Y: 300} // client-convention target
	got, err := pf.Write(context.Background(), client)
	if err != nil {
		t.Fatalf("Write: %v", err)
	}
	if got != client {
		t.Errorf("round trip Write() = %+v, want %+v", got, client)
	}

	rawAX, _ := f.Attribute(context.Background(), el, ax.AttrPosition)
	wantAX := geom.Point{X: 10, Y: 900 - 300 - 200}
	if rawAX != wantAX {
		t.Errorf("stored AX-convention point = %+v, want %+v", rawAX, wantAX)
	}
}

func TestObjectResolver_NoMainWindow_ResolvesZero(t *testing.T) {
	f := axfake.New()
	app := f.NewApplication(1)
	// AXMainWindow left unset.

	resolveCalls := 0
	d := &ObjectResolver[string]{
		Facade: f, Element: app, Attr: ax.AttrMainWindow,
		Resolve: func(ctx context.Context, el ax.Element) (string, error) {
			resolveCalls++
			return "window:" + el.String(), nil
		},
	}
	got, err := d.Initialize(context.Background())
	if err != nil {
		t.Fatalf("Initialize: %v", err)
	}
	if got != "" {
		t.Errorf("Initialize() = %q, want empty", got)
	}
	if resolveCalls != 0 {
		t.Errorf("Resolve called %d times, want 0", resolveCalls)
	}
}

func TestObjectResolver_ResolvesElement(t *testing.T) {
	f := axfake.New()
	app := f.NewApplication(1)
	win := f.NewWindow(1)
	f.SetAttr(app, ax.AttrMainWindow, win)

	d := &ObjectResolver[string]{
		Facade: f, Element: app, Attr: ax.AttrMainWindow,
		Resolve: func(ctx context.Context, el ax.Element) (string, error) {
			return "window:" + el.String(), nil
		},
	}
	got, err := d.Initialize(context.Background())
	if err != nil {
		t.Fatalf("Initialize: %v", err)
	}
	if got != "window:"+win.String() {
		t.Errorf("Initialize() = %q, want window:%s", got, win.String())
	}
}
