// Package gltf builds dgwatch scenes from glTF 2.0 documents.
//
// Every glTF node becomes a transform whose translate values come from the node's
// translation. Custom properties exported into node extras tune the result:
//
//	dg_type      node type, "transform" (default) or "dependency"
//	dg_selected  add the node to the scene selection
//	dg_visible   visibility of a transform
//	dg_callback  pre-create the message attribute the installer wires from
package gltf

import (
	"fmt"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/aretw0/dgwatch/pkg/domain"
	"github.com/mitchellh/mapstructure"
	"github.com/qmuntal/gltf"
)

// Extras are the recognised node custom properties.
type Extras struct {
	Type     string `mapstructure:"dg_type"`
	Selected bool   `mapstructure:"dg_selected"`
	Visible  *bool  `mapstructure:"dg_visible"`
	Callback bool   `mapstructure:"dg_callback"`
}

// CallbackAttr is the attribute created for dg_callback.
const CallbackAttr = "callback"

// Import opens a .gltf or .glb file and converts it. The scene is named after the file.
func Import(path string) (*domain.Scene, error) {
	doc, err := gltf.Open(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open %s: %w", path, err)
	}
	name := strings.TrimSuffix(filepath.Base(path), filepath.Ext(path))
	return Convert(doc, name)
}

// Convert builds a scene from a decoded document.
func Convert(doc *gltf.Document, name string) (*domain.Scene, error) {
	scene := domain.NewScene(name)
	used := make(map[string]bool)

	for i, node := range doc.Nodes {
		extras, err := decodeExtras(node.Extras)
		if err != nil {
			return nil, fmt.Errorf("node %d (%s): %w", i, node.Name, err)
		}

		nodeName := uniqueName(node.Name, i, used)
		spec := domain.NodeSpec{Name: nodeName, Type: domain.NodeTypeTransform}

		switch domain.NodeType(extras.Type) {
		case "", domain.NodeTypeTransform:
			attrs := domain.TransformAttributes()
			for j, a := range attrs {
				switch a.Name {
				case domain.AttrTranslateX:
					attrs[j].Value = float64(node.Translation[0])
				case domain.AttrTranslateY:
					attrs[j].Value = float64(node.Translation[1])
				case domain.AttrTranslateZ:
					attrs[j].Value = float64(node.Translation[2])
				case domain.AttrVisibility:
					if extras.Visible != nil {
						attrs[j].Value = *extras.Visible
					}
				}
			}
			spec.Attributes = attrs
		case domain.NodeTypeDependency:
			spec.Type = domain.NodeTypeDependency
		default:
			return nil, fmt.Errorf("node %s: %w: %q", nodeName, domain.ErrUnknownNodeType, extras.Type)
		}

		if extras.Callback {
			spec.Attributes = append(spec.Attributes, domain.MessageAttribute(CallbackAttr))
		}
		if extras.Selected {
			scene.Selection = append(scene.Selection, nodeName)
		}
		scene.Nodes = append(scene.Nodes, spec)
	}
	return scene, nil
}

// decodeExtras reads custom properties. Exporters write booleans as 0/1, so input is
// weakly typed; unknown keys are ignored.
func decodeExtras(raw any) (Extras, error) {
	var ex Extras
	if raw == nil {
		return ex, nil
	}
	if _, ok := raw.(map[string]any); !ok {
		return ex, nil
	}
	dec, err := mapstructure.NewDecoder(&mapstructure.DecoderConfig{
		WeaklyTypedInput: true,
		Result:           &ex,
	})
	if err != nil {
		return ex, err
	}
	if err := dec.Decode(raw); err != nil {
		return ex, fmt.Errorf("invalid extras: %w", err)
	}
	return ex, nil
}

func uniqueName(name string, index int, used map[string]bool) string {
	if name == "" {
		name = "node" + strconv.Itoa(index)
	}
	candidate := name
	for i := 1; used[candidate]; i++ {
		candidate = name + strconv.Itoa(i)
	}
	used[candidate] = true
	return candidate
}
