package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"stillmotion/internal/assemble"
	"stillmotion/internal/media/imagefile"
	"stillmotion/internal/media/metadata"
)

func newProbeCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "probe <file>",
		Short: "Print an image file's metadata tree",
		Args:  cobra.ArbitraryArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			if len(args) != 1 {
				return fmt.Errorf("%w: expected exactly one file", assemble.ErrUsage)
			}
			tree, err := imagefile.Probe(args[0])
			if err != nil {
				return fmt.Errorf("%w: probe %s: %v", assemble.ErrInput, args[0], err)
			}

			rows := flattenTree(tree, "")
			fmt.Fprintln(cmd.OutOrStdout(), renderTable(
				[]string{"Field", "Value"},
				rows,
				[]columnAlignment{alignLeft, alignLeft},
			))

			if captured, err := imagefile.CaptureTime(args[0]); err == nil {
				fmt.Fprintf(cmd.OutOrStdout(), "Capture time: %s\n", captured.Format("2006-01-02 15:04:05"))
			}
			return nil
		},
	}
}

// flattenTree renders nested fields with dotted prefixes, preserving the
// tree's field order.
func flattenTree(tree *metadata.Tree, prefix string) [][]string {
	var rows [][]string
	for _, field := range tree.Fields() {
		name := field.Name
		if prefix != "" {
			name = prefix + "." + field.Name
		}
		switch value := field.Value.(type) {
		case metadata.Scalar:
			rows = append(rows, []string{name, value.Text})
		case *metadata.Tree:
			rows = append(rows, flattenTree(value, name)...)
		}
	}
	return rows
}
