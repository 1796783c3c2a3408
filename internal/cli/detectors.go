package cli

import (
	"encoding/json"
	"fmt"
	"io"
	"path/filepath"
	"strings"

	"github.com/charmbracelet/lipgloss"
	"github.com/spf13/cobra"

	"github.com/matzehuels/stackscan/pkg/detector"
)

// detectorsCommand lists the rules in effective precedence order.
func (c *CLI) detectorsCommand() *cobra.Command {
	var asJSON, buildless bool

	cmd := &cobra.Command{
		Use:     "detectors",
		Aliases: []string{"rules"},
		Short:   "List the built-in rules in precedence order",
		Args:    cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			root, err := filepath.Abs(".")
			if err != nil {
				return err
			}
			overrides := map[string]any{}
			if buildless {
				overrides["detector.buildless"] = true
			}
			cfg, err := c.loadConfig(root, overrides)
			if err != nil {
				return err
			}
			set, err := ruleSet(cfg)
			if err != nil {
				return err
			}
			if asJSON {
				return writeRulesJSON(c.out, set.Rules())
			}
			printRules(c.out, set.Rules())
			return nil
		},
	}

	cmd.Flags().BoolVar(&asJSON, "json", false, "print rules as JSON")
	cmd.Flags().BoolVar(&buildless, "buildless", false, "only rules that need no build tool")
	return cmd
}

type ruleJSON struct {
	Name         string   `json:"name"`
	Group        string   `json:"group"`
	Language     string   `json:"language,omitempty"`
	Forge        string   `json:"forge,omitempty"`
	Buildless    bool     `json:"buildless"`
	YieldsTo     []string `json:"yields_to,omitempty"`
	Requirements string   `json:"requirements,omitempty"`
}

func writeRulesJSON(w io.Writer, rules []detector.Rule) error {
	out := make([]ruleJSON, len(rules))
	for i, r := range rules {
		out[i] = ruleJSON{
			Name:         r.Name,
			Group:        r.Group,
			Language:     r.Language,
			Forge:        r.Forge,
			Buildless:    r.Buildless,
			YieldsTo:     r.YieldsTo,
			Requirements: r.Requirements,
		}
	}
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(out)
}

func printRules(w io.Writer, rules []detector.Rule) {
	name := lipgloss.NewStyle().Width(18)
	group := lipgloss.NewStyle().Width(9).Foreground(colorGray)
	lang := lipgloss.NewStyle().Width(10).Foreground(colorGray)

	fmt.Fprintln(w, StyleTitle.Render(fmt.Sprintf("%d rules", len(rules))))
	for i, r := range rules {
		kind := "build"
		if r.Buildless {
			kind = "buildless"
		}
		line := fmt.Sprintf("%2d. %s%s%s%s", i+1,
			name.Render(StyleHighlight.Render(r.Name)),
			group.Render(r.Group),
			lang.Render(r.Language),
			StyleDim.Render(kind))
		if len(r.YieldsTo) > 0 {
			line += StyleDim.Render(" · yields to " + strings.Join(r.YieldsTo, ", "))
		}
		fmt.Fprintln(w, line)
		if r.Requirements != "" {
			printDetail(w, "%s", r.Requirements)
		}
	}
}
