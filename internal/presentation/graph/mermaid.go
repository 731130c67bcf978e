package graph

import (
	"fmt"
	"strings"

	"github.com/aretw0/dgwatch/pkg/domain"
)

// Overlay contains live observer state to visualize on the graph.
type Overlay struct {
	// Watched are nodes with an active value reactor.
	Watched []string
	// Selected are nodes in the scene selection.
	Selected []string
}

// GenerateMermaid produces a Mermaid flowchart for a scene.
// It applies semantic styling:
// - Transform: [Rectangle]
// - Dependency node: [/Parallelogram/]
// - Plugin node types: [[Subroutine]]
// Edges are labelled with the source and destination attributes.
func GenerateMermaid(scene *domain.Scene, overlay *Overlay) string {
	var sb strings.Builder
	sb.WriteString("graph LR\n")

	for _, node := range scene.Nodes {
		safeID := sanitizeMermaidID(node.Name)

		opener, closer := "[[", "]]"
		switch node.Type {
		case domain.NodeTypeTransform:
			opener, closer = "[", "]"
		case domain.NodeTypeDependency:
			opener, closer = "[/", "/]"
		}

		label := node.Name
		if node.Type != domain.NodeTypeTransform {
			label = fmt.Sprintf("%s <br/> %s", node.Name, node.Type)
		}
		fmt.Fprintf(&sb, "    %s%s\"%s\"%s\n", safeID, opener, label, closer)
	}

	for _, c := range scene.Connections {
		fmt.Fprintf(&sb, "    %s -- \"%s → %s\" --> %s\n",
			sanitizeMermaidID(c.Source.Node), c.Source.Attr, c.Destination.Attr, sanitizeMermaidID(c.Destination.Node))
	}

	if overlay != nil {
		sb.WriteString("\n    %% Overlay Styles\n")
		// Force black text (color:#000) for contrast regardless of theme.
		sb.WriteString("    classDef watched fill:#e1f5fe,stroke:#01579b,stroke-width:2px,color:#000;\n")
		sb.WriteString("    classDef selected fill:#ffeb3b,stroke:#fbc02d,stroke-width:4px,color:#000;\n")
		writeClass(&sb, overlay.Watched, "watched")
		writeClass(&sb, overlay.Selected, "selected")
	}

	return sb.String()
}

func writeClass(sb *strings.Builder, names []string, class string) {
	seen := make(map[string]bool)
	for _, name := range names {
		safeID := sanitizeMermaidID(name)
		if safeID == "" || seen[safeID] {
			continue
		}
		seen[safeID] = true
		fmt.Fprintf(sb, "    class %s %s;\n", safeID, class)
	}
}

func sanitizeMermaidID(id string) string {
	s := strings.ReplaceAll(id, ".", "_")
	s = strings.ReplaceAll(s, "-", "_")
	s = strings.ReplaceAll(s, "/", "_")
	s = strings.ReplaceAll(s, "|", "_")
	s = strings.ReplaceAll(s, ":", "_")
	return s
}
