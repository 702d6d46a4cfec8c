package cmd

import (
	"fmt"
	"io"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/smazurov/blinkd/internal/patterns"
)

// CreatePatternsCmd creates the patterns command, which validates a pattern
// file against an LED count and lists what it contains.
func CreatePatternsCmd() *cobra.Command {
	var width int
	var builtin bool
	var export string

	cmd := &cobra.Command{
		Use:   "patterns [file]",
		Short: "Validate and list a pattern file",
		Long: `Loads a TOML or YAML pattern file, checks every pattern against the LED count ` +
			`and prints the patterns that would be loaded. With --builtin, lists the built-in patterns instead. ` +
			`--export writes them out, e.g. to start a custom pattern file from the built-ins.`,
		Args: cobra.MaximumNArgs(1),
		RunE: func(c *cobra.Command, args []string) error {
			source := "built-in"
			var ps []patterns.Pattern
			switch {
			case builtin:
				ps = patterns.Builtin(width)
			case len(args) == 1:
				source = args[0]
				var err error
				if ps, err = patterns.LoadFile(source); err != nil {
					return err
				}
			default:
				return fmt.Errorf("a pattern file is required unless --builtin is set")
			}

			if err := listPatterns(c.OutOrStdout(), source, ps, width); err != nil {
				return err
			}
			if export != "" {
				if err := patterns.SaveFile(export, ps); err != nil {
					return err
				}
				fmt.Fprintf(c.OutOrStdout(), "wrote %s\n", export)
			}
			return nil
		},
	}

	cmd.Flags().IntVarP(&width, "width", "w", 4, "Number of LEDs every frame must match")
	cmd.Flags().BoolVar(&builtin, "builtin", false, "List the built-in patterns")
	cmd.Flags().StringVarP(&export, "export", "o", "", "Also write the patterns to this .toml or .yaml file")
	return cmd
}

func listPatterns(out io.Writer, source string, ps []patterns.Pattern, width int) error {
	tw := tabwriter.NewWriter(out, 0, 0, 2, ' ', 0)
	fmt.Fprintln(tw, "#\tNAME\tFRAMES\tSTATUS")

	usable := 0
	for i, p := range ps {
		status := "ok"
		if err := p.Validate(width); err != nil {
			status = err.Error()
		} else {
			usable++
		}
		fmt.Fprintf(tw, "%d\t%s\t%d\t%s\n", i, p.Name, len(p.Frames), status)
	}
	if err := tw.Flush(); err != nil {
		return err
	}

	fmt.Fprintf(out, "\n%s: %d patterns, %d usable on %d LEDs\n", source, len(ps), usable, width)
	if usable == 0 {
		return fmt.Errorf("%s: no usable pattern", source)
	}
	return nil
}
