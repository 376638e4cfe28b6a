package main

import (
	"encoding/json"
	"fmt"
	"text/tabwriter"

	"github.com/spf13/cobra"
)

func newModelsCmd(a *app) *cobra.Command {
	var asJSON bool

	cmd := &cobra.Command{
		Use:   "models",
		Short: "List model checkpoints found on disk",
		Args:  cobra.NoArgs,
		RunE: func(_ *cobra.Command, _ []string) error {
			found, err := a.scanner.List()
			if err != nil {
				return err
			}

			if asJSON {
				enc := json.NewEncoder(a.out)
				enc.SetIndent("", "  ")

				return enc.Encode(found)
			}

			if len(found) == 0 {
				fmt.Fprintf(a.errOut, "No models found in %s\n", a.scanner.Root())

				return nil
			}

			w := tabwriter.NewWriter(a.out, 0, 0, 2, ' ', 0)
			fmt.Fprintln(w, "ID\tNAME\tSIZE")

			for _, m := range found {
				fmt.Fprintf(w, "%s\t%s\t%s\n", m.ID, m.Name, m.Size)
			}

			return w.Flush()
		},
	}

	cmd.Flags().BoolVar(&asJSON, "json", false, "Print models as JSON")

	return cmd
}
