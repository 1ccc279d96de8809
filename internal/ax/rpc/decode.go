package rpc

import (
	"encoding/json"
	"fmt"

	"github.com/axstate/windowstate/internal/ax"
	"github.com/axstate/windowstate/internal/geom"
)

// decodeAttrValue turns a raw JSON attribute value into the concrete Go
// type the rest of this repository expects from ax.Facade.Attribute (a
// geom.Point, geom.Size, string, bool, or ax.Element), keyed by attribute
// name the same way axfake's scripted values already are. A JSON `null` (or
// an absent/empty raw message) decodes to a Go nil, matching "value of nil
// with a nil error means the attribute is present but empty" from
// internal/ax's Facade contract.
func decodeAttrValue(name ax.Attr, raw json.RawMessage) (any, error) {
	if len(raw) == 0 || string(raw) == "null" {
		return nil, nil
	}
	switch name {
	case ax.AttrPosition, ax.AttrFrame:
		var p geom.Point
		if err := json.Unmarshal(raw, &p); err != nil {
			return nil, fmt.Errorf("rpc: decode %s as point: %w", name, err)
		}
		return p, nil
	case ax.AttrSize:
		var sz geom.Size
		if err := json.Unmarshal(raw, &sz); err != nil {
			return nil, fmt.Errorf("rpc: decode %s as size: %w", name, err)
		}
		return sz, nil
	case ax.AttrTitle, ax.AttrSubrole, ax.AttrRole:
		var s string
		if err := json.Unmarshal(raw, &s); err != nil {
			return nil, fmt.Errorf("rpc: decode %s as string: %w", name, err)
		}
		return s, nil
	case ax.AttrMinimized, ax.AttrFullscreen, ax.AttrHidden, ax.AttrMain:
		var b bool
		if err := json.Unmarshal(raw, &b); err != nil {
			return nil, fmt.Errorf("rpc: decode %s as bool: %w", name, err)
		}
		return b, nil
	case ax.AttrMainWindow, ax.AttrFocusedWindow:
		var w struct {
			ElementID string `json:"elementId"`
		}
		if err := json.Unmarshal(raw, &w); err != nil {
			return nil, fmt.Errorf("rpc: decode %s as element: %w", name, err)
		}
		if w.ElementID == "" {
			return nil, nil
		}
		return ax.NewElement(w.ElementID), nil
	default:
		var v any
		if err := json.Unmarshal(raw, &v); err != nil {
			return nil, fmt.Errorf("rpc: decode %s: %w", name, err)
		}
		return v, nil
	}
}

// encodeAttrValue turns a Go value accepted by SetAttribute back into the
// wire shape decodeAttrValue expects, so writes round-trip through the same
// convention as reads.
func encodeAttrValue(v any) (json.RawMessage, error) {
	if v == nil {
		return json.RawMessage("null"), nil
	}
	if el, ok := v.(ax.Element); ok {
		return json.Marshal(struct {
			ElementID string `json:"elementId"`
		}{ElementID: el.String()})
	}
	return json.Marshal(v)
}
