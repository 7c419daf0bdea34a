package models

// NodeType is fixed when a node is created.
type NodeType string

const (
	FolderNode   NodeType = "folder"
	TextNode     NodeType = "text"
	ImageNode    NodeType = "image"
	VideoNode    NodeType = "video"
	PDFNode      NodeType = "pdf"
	LocationNode NodeType = "location"
)

// Valid reports whether t is one of the known node types.
func (t NodeType) Valid() bool {
	switch t {
	case FolderNode, TextNode, ImageNode, VideoNode, PDFNode, LocationNode:
		return true
	}
	return false
}

// Node is a content unit in a strict tree.
type Node struct {
	NodeID       string   `json:"nodeId"`
	Type         NodeType `json:"type"`
	Title        string   `json:"title"`
	Content      string   `json:"content"`
	FilePath     NodePath `json:"filePath"`
	ViewType     string   `json:"viewType,omitempty"`
	OwnerID      string   `json:"ownerId,omitempty"`
	UserReadIDs  []string `json:"userReadIds,omitempty"`
	UserWriteIDs []string `json:"userWriteIds,omitempty"`
	Public       bool     `json:"public"`
	Lat          *float64 `json:"lat,omitempty"`
	Lng          *float64 `json:"lng,omitempty"`
}

// Validate checks the invariants a node must hold before it is written.
func (n *Node) Validate() error {
	if n.NodeID == "" {
		return invalid("nodeId", "must not be empty")
	}
	if !n.Type.Valid() {
		return invalid("type", "unknown node type %q", n.Type)
	}
	if err := n.FilePath.Validate(n.NodeID); err != nil {
		return err
	}
	if n.Lat != nil && !finite(*n.Lat) {
		return invalid("lat", "must be finite")
	}
	if n.Lng != nil && !finite(*n.Lng) {
		return invalid("lng", "must be finite")
	}
	return nil
}

// Clone returns a deep copy.
func (n *Node) Clone() *Node {
	c := *n
	c.FilePath = n.FilePath.Clone()
	c.UserReadIDs = cloneStrings(n.UserReadIDs)
	c.UserWriteIDs = cloneStrings(n.UserWriteIDs)
	if n.Lat != nil {
		lat := *n.Lat
		c.Lat = &lat
	}
	if n.Lng != nil {
		lng := *n.Lng
		c.Lng = &lng
	}
	return &c
}

func cloneStrings(s []string) []string {
	if s == nil {
		return nil
	}
	return append([]string(nil), s...)
}
