package cmd

import (
	"fmt"

	"github.com/idlab-discover/snidpipe/internal/classifier"
	"github.com/idlab-discover/snidpipe/internal/ui"
	"github.com/spf13/cobra"
)

var checkCmd = &cobra.Command{
	Use:   "check",
	Short: "Verify that the SNID executable can be found",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		path, err := classifier.CheckInstalled(snidCommand())
		if err != nil {
			return err
		}
		fmt.Fprintf(cmd.OutOrStdout(), "%s %s\n", ui.GetCheckMark(), ui.FormatKeyValue("SNID", path))
		return nil
	},
}
