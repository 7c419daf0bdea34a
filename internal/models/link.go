package models

import "time"

// Link binds two distinct anchors. The relationship is undirected; the
// order of the endpoints only matters for equality.
type Link struct {
	LinkID        string    `json:"linkId"`
	Anchor1ID     string    `json:"anchor1Id"`
	Anchor2ID     string    `json:"anchor2Id"`
	Anchor1NodeID string    `json:"anchor1NodeId"`
	Anchor2NodeID string    `json:"anchor2NodeId"`
	Title         string    `json:"title"`
	Explainer     string    `json:"explainer"`
	DateCreated   time.Time `json:"dateCreated"`
}

// Validate checks ids and the no-self-link rule.
func (l *Link) Validate() error {
	if l.LinkID == "" {
		return invalid("linkId", "must not be empty")
	}
	if l.Anchor1ID == "" || l.Anchor2ID == "" {
		return invalid("anchor", "both anchor ids are required")
	}
	if l.Anchor1ID == l.Anchor2ID {
		return invalid("anchor2Id", "a link cannot connect anchor %q to itself", l.Anchor1ID)
	}
	return nil
}

// Equal compares id, endpoints (in order), title and explainer.
func (l *Link) Equal(o *Link) bool {
	if l == nil || o == nil {
		return l == o
	}
	return l.LinkID == o.LinkID &&
		l.Anchor1ID == o.Anchor1ID &&
		l.Anchor2ID == o.Anchor2ID &&
		l.Title == o.Title &&
		l.Explainer == o.Explainer
}

// Touches reports whether anchorID is one of the endpoints.
func (l *Link) Touches(anchorID string) bool {
	return l.Anchor1ID == anchorID || l.Anchor2ID == anchorID
}

// Opposite returns the endpoint across from anchorID, or "" if anchorID is
// not an endpoint.
func (l *Link) Opposite(anchorID string) string {
	switch anchorID {
	case l.Anchor1ID:
		return l.Anchor2ID
	case l.Anchor2ID:
		return l.Anchor1ID
	}
	return ""
}
