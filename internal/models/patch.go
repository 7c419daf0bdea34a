package models

import "sort"

// FieldType is the expected shape of a patchable node field.
type FieldType string

const (
	FieldString     FieldType = "string"
	FieldEnum       FieldType = "enum"
	FieldNodePath   FieldType = "NodePath"
	FieldCollection FieldType = "collection"
	FieldNumber     FieldType = "number"
	FieldBoolean    FieldType = "boolean"
)

// NodeFieldTypes maps every patchable node field to its shape.
var NodeFieldTypes = map[string]FieldType{
	"nodeId":       FieldString,
	"title":        FieldString,
	"type":         FieldEnum,
	"content":      FieldString,
	"filePath":     FieldNodePath,
	"viewType":     FieldString,
	"userWriteIds": FieldCollection,
	"userReadIds":  FieldCollection,
	"ownerId":      FieldString,
	"lat":          FieldNumber,
	"lng":          FieldNumber,
	"public":       FieldBoolean,
}

// ApplyPatch validates every field of patch and returns a patched copy of n.
// n itself is never modified, so a failed patch leaves no partial change.
func ApplyPatch(n *Node, patch map[string]any) (*Node, error) {
	out := n.Clone()

	// Sorted so the reported failure does not depend on map order.
	names := make([]string, 0, len(patch))
	for name := range patch {
		names = append(names, name)
	}
	sort.Strings(names)

	for _, name := range names {
		kind, ok := NodeFieldTypes[name]
		if !ok {
			return nil, invalid(name, "is not a patchable node field")
		}
		if err := applyField(out, name, kind, patch[name]); err != nil {
			return nil, err
		}
	}
	if err := out.FilePath.Validate(out.NodeID); err != nil {
		return nil, err
	}
	return out, nil
}

func applyField(n *Node, name string, kind FieldType, value any) error {
	switch kind {
	case FieldString:
		s, ok := value.(string)
		if !ok {
			return invalid(name, "must be a string, got %T", value)
		}
		switch name {
		case "nodeId":
			if s != n.NodeID {
				return invalid(name, "is immutable")
			}
		case "title":
			n.Title = s
		case "content":
			n.Content = s
		case "viewType":
			n.ViewType = s
		case "ownerId":
			n.OwnerID = s
		}
	case FieldEnum:
		s, ok := value.(string)
		if !ok || !NodeType(s).Valid() {
			return invalid(name, "must be one of folder, text, image, video, pdf, location")
		}
		if NodeType(s) != n.Type {
			return invalid(name, "is fixed at creation (%s)", n.Type)
		}
	case FieldNodePath:
		ids, ok := toStrings(value)
		if !ok {
			return invalid(name, "must be a list of node ids")
		}
		p := NodePath(ids)
		if err := p.Validate(n.NodeID); err != nil {
			return err
		}
		n.FilePath = p
	case FieldCollection:
		ids, ok := toStrings(value)
		if !ok {
			return invalid(name, "must be a list of strings")
		}
		if name == "userReadIds" {
			n.UserReadIDs = ids
		} else {
			n.UserWriteIDs = ids
		}
	case FieldNumber:
		f, ok := toNumber(value)
		if !ok || !finite(f) {
			return invalid(name, "must be a finite number")
		}
		if name == "lat" {
			n.Lat = &f
		} else {
			n.Lng = &f
		}
	case FieldBoolean:
		b, ok := value.(bool)
		if !ok {
			return invalid(name, "must be a boolean, got %T", value)
		}
		n.Public = b
	}
	return nil
}

func toStrings(v any) ([]string, bool) {
	switch s := v.(type) {
	case []string:
		return append([]string{}, s...), true
	case NodePath:
		return append([]string{}, s...), true
	case []any:
		out := make([]string, 0, len(s))
		for _, elem := range s {
			str, ok := elem.(string)
			if !ok {
				return nil, false
			}
			out = append(out, str)
		}
		return out, true
	default:
		return nil, false
	}
}
