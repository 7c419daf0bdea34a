package models

import (
	"bytes"
	"encoding/json"
	"fmt"
	"math"
)

// ExtentKind tags the variant of an Extent.
type ExtentKind string

const (
	ExtentText      ExtentKind = "text"
	ExtentImage     ExtentKind = "image"
	ExtentLocation  ExtentKind = "location"
	ExtentWholeNode ExtentKind = "node"
)

// Extent describes which region of a node an anchor covers. The set of
// implementations is closed: TextExtent, ImageExtent, LocationExtent and
// WholeNode.
type Extent interface {
	Kind() ExtentKind
	validate() error
}

// TextExtent selects the characters [StartCharacter, EndCharacter) of a text node.
type TextExtent struct {
	Text           string `json:"text"`
	StartCharacter int    `json:"startCharacter"`
	EndCharacter   int    `json:"endCharacter"`
}

// ImageExtent selects a rectangle of an image node.
type ImageExtent struct {
	Left   float64 `json:"left"`
	Top    float64 `json:"top"`
	Right  float64 `json:"right"`
	Bottom float64 `json:"bottom"`
}

// LocationExtent points at a coordinate.
type LocationExtent struct {
	Lat float64 `json:"lat"`
	Lng float64 `json:"lng"`
}

// WholeNode marks an anchor that denotes the entire node. It encodes as null.
type WholeNode struct{}

func (TextExtent) Kind() ExtentKind     { return ExtentText }
func (ImageExtent) Kind() ExtentKind    { return ExtentImage }
func (LocationExtent) Kind() ExtentKind { return ExtentLocation }
func (WholeNode) Kind() ExtentKind      { return ExtentWholeNode }

// MaxCharacterOffset bounds text extent offsets.
const MaxCharacterOffset = math.MaxInt32

func checkOffset(field string, v float64) error {
	if v < 0 || v > MaxCharacterOffset {
		return invalid(field, "must be between 0 and %d, got %.0f", MaxCharacterOffset, v)
	}
	return nil
}

func (e TextExtent) validate() error {
	if err := checkOffset("extent.startCharacter", float64(e.StartCharacter)); err != nil {
		return err
	}
	if err := checkOffset("extent.endCharacter", float64(e.EndCharacter)); err != nil {
		return err
	}
	if e.StartCharacter >= e.EndCharacter {
		return invalid("extent", "startCharacter (%d) must be less than endCharacter (%d)", e.StartCharacter, e.EndCharacter)
	}
	return nil
}

func (e ImageExtent) validate() error {
	for _, f := range []struct {
		name string
		v    float64
	}{
		{"left", e.Left}, {"top", e.Top}, {"right", e.Right}, {"bottom", e.Bottom},
	} {
		if !finite(f.v) {
			return invalid("extent."+f.name, "must be a finite number")
		}
	}
	if e.Left >= e.Right {
		return invalid("extent", "left (%g) must be less than right (%g)", e.Left, e.Right)
	}
	if e.Top >= e.Bottom {
		return invalid("extent", "top (%g) must be less than bottom (%g)", e.Top, e.Bottom)
	}
	return nil
}

func (e LocationExtent) validate() error {
	if !finite(e.Lat) || e.Lat < -90 || e.Lat > 90 {
		return invalid("extent.lat", "must be a finite number in [-90, 90]")
	}
	if !finite(e.Lng) || e.Lng < -180 || e.Lng > 180 {
		return invalid("extent.lng", "must be a finite number in [-180, 180]")
	}
	return nil
}

func (WholeNode) validate() error { return nil }

// ValidateExtent checks the invariants of an already typed extent.
// A nil extent is the whole-node marker and is valid.
func ValidateExtent(e Extent) error {
	if e == nil {
		return nil
	}
	return e.validate()
}

// EqualExtents reports structural equality, variant tag included.
// nil and WholeNode{} are the same extent.
func EqualExtents(a, b Extent) bool {
	return normalize(a) == normalize(b)
}

func normalize(e Extent) Extent {
	if e == nil {
		return WholeNode{}
	}
	return e
}

// ClassifyExtent turns a raw, decoded payload (as produced by encoding/json
// into an any) into exactly one Extent variant. nil classifies as WholeNode.
func ClassifyExtent(payload any) (Extent, error) {
	if payload == nil {
		return WholeNode{}, nil
	}
	fields, ok := payload.(map[string]any)
	if !ok {
		return nil, invalid("extent", "must be an object or null, got %T", payload)
	}

	tag, ok := fields["type"].(string)
	if !ok {
		return nil, invalid("extent.type", "must be one of text, image, location")
	}

	var (
		e   Extent
		err error
	)
	switch ExtentKind(tag) {
	case ExtentText:
		e, err = classifyText(fields)
	case ExtentImage:
		e, err = classifyImage(fields)
	case ExtentLocation:
		e, err = classifyLocation(fields)
	default:
		return nil, invalid("extent.type", "unknown extent type %q", tag)
	}
	if err != nil {
		return nil, err
	}
	if err := e.validate(); err != nil {
		return nil, err
	}
	return e, nil
}

func classifyText(fields map[string]any) (Extent, error) {
	text, ok := fields["text"].(string)
	if !ok {
		return nil, invalid("extent.text", "must be a string")
	}
	start, err := integerField(fields, "startCharacter")
	if err != nil {
		return nil, err
	}
	end, err := integerField(fields, "endCharacter")
	if err != nil {
		return nil, err
	}
	return TextExtent{Text: text, StartCharacter: start, EndCharacter: end}, nil
}

func classifyImage(fields map[string]any) (Extent, error) {
	var e ImageExtent
	for _, f := range []struct {
		name string
		dst  *float64
	}{
		{"left", &e.Left}, {"top", &e.Top}, {"right", &e.Right}, {"bottom", &e.Bottom},
	} {
		v, err := numberField(fields, f.name)
		if err != nil {
			return nil, err
		}
		*f.dst = v
	}
	return e, nil
}

func classifyLocation(fields map[string]any) (Extent, error) {
	lat, err := numberField(fields, "lat")
	if err != nil {
		return nil, err
	}
	lng, err := numberField(fields, "lng")
	if err != nil {
		return nil, err
	}
	return LocationExtent{Lat: lat, Lng: lng}, nil
}

func numberField(fields map[string]any, name string) (float64, error) {
	raw, ok := fields[name]
	if !ok {
		return 0, invalid("extent."+name, "is required")
	}
	v, ok := toNumber(raw)
	if !ok {
		return 0, invalid("extent."+name, "must be a number, got %T", raw)
	}
	if !finite(v) {
		return 0, invalid("extent."+name, "must be finite")
	}
	return v, nil
}

func integerField(fields map[string]any, name string) (int, error) {
	v, err := numberField(fields, name)
	if err != nil {
		return 0, err
	}
	if v != math.Trunc(v) {
		return 0, invalid("extent."+name, "must be an integer, got %g", v)
	}
	if err := checkOffset("extent."+name, v); err != nil {
		return 0, err
	}
	return int(v), nil
}

// ParseExtent decodes the stored JSON form of an extent.
func ParseExtent(data []byte) (Extent, error) {
	data = bytes.TrimSpace(data)
	if len(data) == 0 || bytes.Equal(data, []byte("null")) {
		return WholeNode{}, nil
	}
	var payload any
	if err := json.Unmarshal(data, &payload); err != nil {
		return nil, fmt.Errorf("decode extent: %w", err)
	}
	return ClassifyExtent(payload)
}

// MarshalExtent encodes an extent in its tagged JSON form.
func MarshalExtent(e Extent) ([]byte, error) {
	switch v := normalize(e).(type) {
	case WholeNode:
		return []byte("null"), nil
	case TextExtent:
		type plain TextExtent
		return json.Marshal(struct {
			Type ExtentKind `json:"type"`
			plain
		}{ExtentText, plain(v)})
	case ImageExtent:
		type plain ImageExtent
		return json.Marshal(struct {
			Type ExtentKind `json:"type"`
			plain
		}{ExtentImage, plain(v)})
	case LocationExtent:
		type plain LocationExtent
		return json.Marshal(struct {
			Type ExtentKind `json:"type"`
			plain
		}{ExtentLocation, plain(v)})
	default:
		return nil, fmt.Errorf("unsupported extent %T", e)
	}
}
