package main

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/edgeo/drivers/dis/dis"
	"github.com/edgeo/drivers/dis/dis/entity"
)

var matcherFile string

var matcherCmd = &cobra.Command{
	Use:   "matcher",
	Short: "Inspect prototype matcher files",
	Long: `Matcher loads a YAML or TOML prototype tree and prints it or resolves entity types against it.

Examples:
  # Print the tree
  edgeo-dis matcher show -f prototypes.yaml

  # Resolve an entity type
  edgeo-dis matcher resolve -f prototypes.toml 1.2.225.1.1`,
}

var matcherShowCmd = &cobra.Command{
	Use:   "show",
	Short: "Print a matcher tree",
	RunE:  runMatcherShow,
}

var matcherResolveCmd = &cobra.Command{
	Use:   "resolve <entity-type>...",
	Short: "Resolve entity types to prototypes",
	Args:  cobra.MinimumNArgs(1),
	RunE:  runMatcherResolve,
}

func init() {
	matcherCmd.PersistentFlags().StringVarP(&matcherFile, "file", "f", "", "Matcher file (.yaml or .toml)")
	matcherCmd.MarkPersistentFlagRequired("file")

	matcherCmd.AddCommand(matcherShowCmd)
	matcherCmd.AddCommand(matcherResolveCmd)
}

func runMatcherShow(cmd *cobra.Command, args []string) error {
	m, err := entity.LoadMatcher(matcherFile)
	if err != nil {
		return err
	}

	f := newFormatter()
	m.Root().Walk(func(depth int, n *entity.Node) {
		value := n.ValueString()
		if depth == 0 {
			value = "root"
		}
		line := strings.Repeat("  ", depth) + value
		if n.Label != "" && depth > 0 {
			line += " (" + n.Label + ")"
		}
		if n.Prototype != "" {
			line += " => " + string(n.Prototype)
		}
		f.Println(line)
	})
	return nil
}

func runMatcherResolve(cmd *cobra.Command, args []string) error {
	m, err := entity.LoadMatcher(matcherFile)
	if err != nil {
		return err
	}

	rows := make([][]string, 0, len(args))
	for _, arg := range args {
		typ, err := dis.ParseEntityType(arg)
		if err != nil {
			return fmt.Errorf("invalid entity type %q: %w", arg, err)
		}
		levels := typ.Levels()
		res := m.Resolve(levels[:])

		path := make([]string, 0, len(res.Path))
		for _, n := range res.Path[1:] {
			path = append(path, n.ValueString())
		}
		proto := "-"
		if res.Found() {
			proto = string(res.Prototype)
		}
		rows = append(rows, []string{typ.String(), strings.Join(path, "."), proto})
	}

	newFormatter().PrintTable([]string{"ENTITY TYPE", "PATH", "PROTOTYPE"}, rows)
	return nil
}
