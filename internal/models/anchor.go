package models

import (
	"encoding/json"
	"fmt"
)

// Anchor points into the content of one node.
type Anchor struct {
	AnchorID string
	NodeID   string
	Extent   Extent
}

// Validate checks ids and the extent before the anchor is written.
func (a *Anchor) Validate() error {
	if a.AnchorID == "" {
		return invalid("anchorId", "must not be empty")
	}
	if a.NodeID == "" {
		return invalid("nodeId", "must not be empty")
	}
	return ValidateExtent(a.Extent)
}

type anchorJSON struct {
	AnchorID string          `json:"anchorId"`
	NodeID   string          `json:"nodeId"`
	Extent   json.RawMessage `json:"extent"`
}

func (a Anchor) MarshalJSON() ([]byte, error) {
	extent, err := MarshalExtent(a.Extent)
	if err != nil {
		return nil, err
	}
	return json.Marshal(anchorJSON{AnchorID: a.AnchorID, NodeID: a.NodeID, Extent: extent})
}

func (a *Anchor) UnmarshalJSON(data []byte) error {
	var raw anchorJSON
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}
	extent, err := ParseExtent(raw.Extent)
	if err != nil {
		return fmt.Errorf("anchor %s: %w", raw.AnchorID, err)
	}
	a.AnchorID = raw.AnchorID
	a.NodeID = raw.NodeID
	a.Extent = extent
	return nil
}
