package main

import (
	"context"
	"fmt"
	"os"
	"strconv"

	"github.com/aretw0/dgwatch/internal/cli"
	"github.com/aretw0/dgwatch/internal/presentation/tui"
	"github.com/aretw0/dgwatch/pkg/domain"
	"github.com/spf13/cobra"
)

var setCmd = &cobra.Command{
	Use:   "set <node.attr> <value>",
	Short: "Set an attribute and let observers react",
	Long:  `Writes a double or bool attribute. Installed reactors run before the scene is saved.`,
	Args:  cobra.ExactArgs(2),
	Run: func(cmd *cobra.Command, args []string) {
		ctx := context.Background()
		status := tui.NewStatus(os.Stdout)

		path, err := domain.ParsePlugPath(args[0])
		if err != nil {
			status.Failure("%v", err)
			os.Exit(1)
		}

		s := openSession(ctx, cmd)
		if err := setAttribute(s, path, args[1]); err != nil {
			s.Close(ctx)
			status.Failure("%v", err)
			os.Exit(1)
		}

		ref, _ := s.Lookup(path.Node)
		line := translateLine(s, ref)
		saveOrExit(ctx, s)
		status.Success("%s = %s", path, args[1])
		if line != "" {
			status.Info("%s", line)
		}
	},
}

func setAttribute(s *cli.Session, path domain.PlugPath, raw string) error {
	plug, err := s.Graph.PlugFor(path)
	if err != nil {
		return err
	}
	attrs, err := s.Graph.Attributes(plug.Node)
	if err != nil {
		return err
	}
	for _, attr := range attrs {
		if attr.Name != path.Attr {
			continue
		}
		switch attr.Kind {
		case domain.KindDouble:
			v, err := strconv.ParseFloat(raw, 64)
			if err != nil {
				return fmt.Errorf("%w: %s expects a number", domain.ErrTypeMismatch, path)
			}
			return s.Graph.SetDouble(plug, v)
		case domain.KindBool:
			v, err := strconv.ParseBool(raw)
			if err != nil {
				return fmt.Errorf("%w: %s expects true or false", domain.ErrTypeMismatch, path)
			}
			return s.Graph.SetBool(plug, v)
		default:
			return fmt.Errorf("%w: %s is a %s attribute", domain.ErrTypeMismatch, path, attr.Kind)
		}
	}
	return fmt.Errorf("%w: plug %s", domain.ErrNotFound, path)
}

// translateLine formats the translate of a transform, or returns "" for other nodes.
func translateLine(s *cli.Session, ref domain.NodeRef) string {
	if t, err := s.Graph.NodeType(ref); err != nil || t != domain.NodeTypeTransform {
		return ""
	}
	var xyz [3]float64
	for i, attr := range []string{domain.AttrTranslateX, domain.AttrTranslateY, domain.AttrTranslateZ} {
		xyz[i], _ = s.Graph.Double(domain.PlugOf(ref, attr))
	}
	return fmt.Sprintf("%s.translate = (%.2f, %.2f, %.2f)", ref.Name, xyz[0], xyz[1], xyz[2])
}

func init() {
	rootCmd.AddCommand(setCmd)
}
