package cmd

import (
	"fmt"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/smazurov/blinkd/internal/gpio"
)

// CreateLinesCmd creates the lines command, which lists the lines of a GPIO
// chip with their names and current consumers.
func CreateLinesCmd() *cobra.Command {
	var chip string

	cmd := &cobra.Command{
		Use:   "lines",
		Short: "List the lines of a GPIO chip",
		Long:  `Prints every line of the chip with its name and the consumer holding it, if any.`,
		Args:  cobra.NoArgs,
		RunE: func(c *cobra.Command, _ []string) error {
			infos, err := gpio.ListLines(chip)
			if err != nil {
				if chips := gpio.Chips(); len(chips) > 0 {
					return fmt.Errorf("%w (available chips: %v)", err, chips)
				}
				return err
			}

			tw := tabwriter.NewWriter(c.OutOrStdout(), 0, 0, 2, ' ', 0)
			fmt.Fprintf(tw, "%s\n", chip)
			fmt.Fprintln(tw, "LINE\tNAME\tCONSUMER\tUSED")
			for _, li := range infos {
				name := li.Name
				if name == "" {
					name = "-"
				}
				consumer := li.Consumer
				if consumer == "" {
					consumer = "-"
				}
				fmt.Fprintf(tw, "%d\t%s\t%s\t%t\n", li.Offset, name, consumer, li.Used)
			}
			return tw.Flush()
		},
	}

	cmd.Flags().StringVar(&chip, "chip", "/dev/gpiochip0", "GPIO chip device")
	return cmd
}
