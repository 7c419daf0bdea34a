package models

// NodePath is the ancestor-to-self chain of node ids. The last element is
// the node's own id.
type NodePath []string

// Validate checks the shape invariants of p as the path of node id:
// non-empty, no blank or repeated ids, and ending in id.
func (p NodePath) Validate(id string) error {
	if len(p) == 0 {
		return invalid("filePath", "must not be empty")
	}
	seen := make(map[string]struct{}, len(p))
	for i, elem := range p {
		if elem == "" {
			return invalid("filePath", "element %d is empty", i)
		}
		if _, dup := seen[elem]; dup {
			return invalid("filePath", "id %q appears more than once", elem)
		}
		seen[elem] = struct{}{}
	}
	if last := p[len(p)-1]; last != id {
		return invalid("filePath", "last element %q must equal node id %q", last, id)
	}
	return nil
}

// Last returns the id the path belongs to.
func (p NodePath) Last() string {
	if len(p) == 0 {
		return ""
	}
	return p[len(p)-1]
}

// Parent returns the path of the parent node, or nil for a root.
func (p NodePath) Parent() NodePath {
	if len(p) < 2 {
		return nil
	}
	return p[:len(p)-1].Clone()
}

// IsRoot reports whether the path denotes a root node.
func (p NodePath) IsRoot() bool {
	return len(p) == 1
}

// HasAncestor reports whether id appears anywhere before the last element.
func (p NodePath) HasAncestor(id string) bool {
	i := p.index(id)
	return i >= 0 && i < len(p)-1
}

// Equal compares element by element.
func (p NodePath) Equal(o NodePath) bool {
	if len(p) != len(o) {
		return false
	}
	for i := range p {
		if p[i] != o[i] {
			return false
		}
	}
	return true
}

// Clone returns a copy that shares no memory with p.
func (p NodePath) Clone() NodePath {
	if p == nil {
		return nil
	}
	return append(NodePath(nil), p...)
}

// Rebase replaces everything up to and including moved with newPrefix,
// keeping the relative order of the rest. It returns false when moved is not
// part of p.
func (p NodePath) Rebase(moved string, newPrefix NodePath) (NodePath, bool) {
	i := p.index(moved)
	if i < 0 {
		return nil, false
	}
	out := make(NodePath, 0, len(newPrefix)+len(p)-i-1)
	out = append(out, newPrefix...)
	out = append(out, p[i+1:]...)
	return out, true
}

func (p NodePath) index(id string) int {
	for i, elem := range p {
		if elem == id {
			return i
		}
	}
	return -1
}
