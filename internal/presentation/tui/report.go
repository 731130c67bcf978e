package tui

import (
	"fmt"
	"strings"

	"github.com/aretw0/dgwatch/pkg/domain"
	"github.com/aretw0/dgwatch/pkg/registry"
)

// Report renders a scene and its live subscriptions as markdown.
func Report(scene *domain.Scene, subs []registry.Subscription) string {
	var sb strings.Builder
	fmt.Fprintf(&sb, "# Scene `%s`\n\n", scene.Name)

	sb.WriteString("## Nodes\n\n")
	sb.WriteString("| Node | Type | translate | visibility |\n")
	sb.WriteString("|---|---|---|---|\n")
	for i := range scene.Nodes {
		node := &scene.Nodes[i]
		fmt.Fprintf(&sb, "| %s | %s | %s | %s |\n", node.Name, node.Type, translate(node), visibility(node))
	}

	if len(scene.Connections) > 0 {
		sb.WriteString("\n## Connections\n\n")
		for _, c := range scene.Connections {
			fmt.Fprintf(&sb, "- `%s` → `%s`\n", c.Source, c.Destination)
		}
	}

	if len(scene.Selection) > 0 {
		fmt.Fprintf(&sb, "\n**Selection:** %s\n", strings.Join(scene.Selection, ", "))
	}

	sb.WriteString("\n## Subscriptions\n\n")
	if len(subs) == 0 {
		sb.WriteString("_none_\n")
		return sb.String()
	}
	sb.WriteString("| Target | Kind | Handle |\n")
	sb.WriteString("|---|---|---|\n")
	for _, s := range subs {
		fmt.Fprintf(&sb, "| %s | %s | `%s` |\n", s.Target.Name, s.Kind, shortHandle(s.Handle))
	}
	return sb.String()
}

func translate(node *domain.NodeSpec) string {
	parts := make([]string, 0, 3)
	for _, name := range []string{domain.AttrTranslateX, domain.AttrTranslateY, domain.AttrTranslateZ} {
		attr, ok := node.Attribute(name)
		if !ok {
			return "-"
		}
		v, _ := domain.AsFloat(attr.Value)
		parts = append(parts, fmt.Sprintf("%.3f", v))
	}
	return "(" + strings.Join(parts, ", ") + ")"
}

func visibility(node *domain.NodeSpec) string {
	attr, ok := node.Attribute(domain.AttrVisibility)
	if !ok {
		return "-"
	}
	return fmt.Sprint(attr.Value)
}

func shortHandle(h registry.Handle) string {
	if len(h) > 8 {
		return string(h[:8])
	}
	return string(h)
}
