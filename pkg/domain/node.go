package domain

import (
	"encoding/json"
	"fmt"
	"strings"
)

// NodeType identifies the kind of a node (e.g. "transform").
type NodeType string

// NodeRef is a weak reference to a node owned by the host graph.
// The UID distinguishes a live node from a later node created under the same name,
// so operations against a stale reference fail with ErrNotFound.
type NodeRef struct {
	Name string `json:"name" yaml:"name"`
	UID  string `json:"uid,omitempty" yaml:"uid,omitempty"`
}

// IsZero reports whether the reference points nowhere.
func (r NodeRef) IsZero() bool {
	return r.Name == "" && r.UID == ""
}

func (r NodeRef) String() string {
	return r.Name
}

// Plug addresses a single attribute on a node.
type Plug struct {
	Node NodeRef `json:"node" yaml:"node"`
	Attr string  `json:"attr" yaml:"attr"`
}

// PlugOf builds a plug for the given node and attribute.
func PlugOf(node NodeRef, attr string) Plug {
	return Plug{Node: node, Attr: attr}
}

// String renders the plug as "node.attr".
func (p Plug) String() string {
	return p.Node.Name + "." + p.Attr
}

// PlugPath is the unresolved "node.attr" form of a plug, as used in scenes and on the command line.
type PlugPath struct {
	Node string `json:"node" yaml:"node"`
	Attr string `json:"attr" yaml:"attr"`
}

// ParsePlugPath splits "node.attr" into its parts.
func ParsePlugPath(s string) (PlugPath, error) {
	idx := strings.LastIndex(s, ".")
	if idx <= 0 || idx == len(s)-1 {
		return PlugPath{}, fmt.Errorf("invalid plug %q: expected node.attribute", s)
	}
	return PlugPath{Node: s[:idx], Attr: s[idx+1:]}, nil
}

func (p PlugPath) String() string {
	return p.Node + "." + p.Attr
}

// AttributeKind describes what an attribute carries.
type AttributeKind string

const (
	KindDouble   AttributeKind = "double"
	KindBool     AttributeKind = "bool"
	KindMessage  AttributeKind = "message"  // connection-only, carries no data
	KindCompound AttributeKind = "compound" // parent of child attributes
)

// Attribute is the definition and current value of an attribute on a node.
type Attribute struct {
	Name     string        `json:"name" yaml:"name"`
	Kind     AttributeKind `json:"kind" yaml:"kind"`
	Parent   string        `json:"parent,omitempty" yaml:"parent,omitempty"`
	Children []string      `json:"children,omitempty" yaml:"children,omitempty"`
	Keyable  bool          `json:"keyable,omitempty" yaml:"keyable,omitempty"`
	Value    any           `json:"value,omitempty" yaml:"value,omitempty"`
}

// MessageAttribute returns a connection-only attribute definition.
func MessageAttribute(name string) Attribute {
	return Attribute{Name: name, Kind: KindMessage}
}

// DoubleAttribute returns a floating point attribute definition.
func DoubleAttribute(name string, value float64) Attribute {
	return Attribute{Name: name, Kind: KindDouble, Value: value}
}

// BoolAttribute returns a boolean attribute definition.
func BoolAttribute(name string, value bool) Attribute {
	return Attribute{Name: name, Kind: KindBool, Value: value}
}

// TransformAttributes returns the attribute set of a built-in transform node.
func TransformAttributes() []Attribute {
	return []Attribute{
		{Name: AttrTranslate, Kind: KindCompound, Children: []string{AttrTranslateX, AttrTranslateY, AttrTranslateZ}},
		{Name: AttrTranslateX, Kind: KindDouble, Parent: AttrTranslate, Keyable: true, Value: 0.0},
		{Name: AttrTranslateY, Kind: KindDouble, Parent: AttrTranslate, Keyable: true, Value: 0.0},
		{Name: AttrTranslateZ, Kind: KindDouble, Parent: AttrTranslate, Keyable: true, Value: 0.0},
		{Name: AttrVisibility, Kind: KindBool, Keyable: true, Value: true},
	}
}

// AsFloat converts a decoded attribute value to float64. Serializers disagree on
// number types (YAML yields int for "0"), so every numeric kind is accepted.
func AsFloat(v any) (float64, bool) {
	switch n := v.(type) {
	case float64:
		return n, true
	case float32:
		return float64(n), true
	case int:
		return float64(n), true
	case int64:
		return float64(n), true
	case uint64:
		return float64(n), true
	case json.Number:
		f, err := n.Float64()
		return f, err == nil
	default:
		return 0, false
	}
}
