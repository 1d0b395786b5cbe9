package cmd

import (
	"fmt"

	"github.com/spf13/cobra"
)

var existsCmd = &cobra.Command{
	Use:   "exists <path>...",
	Short: "Check whether paths resolve",
	Long:  "Print each virtual path followed by true or false. Exits non-zero if any path is missing.",
	Args:  cobra.MinimumNArgs(1),
	RunE:  runExists,
}

func init() {
	rootCmd.AddCommand(existsCmd)
}

func runExists(cmd *cobra.Command, args []string) error {
	fsys, err := openFS(cmd.Context(), cmd)
	if err != nil {
		return err
	}

	missing := 0
	for _, p := range args {
		ok := fsys.Exists(p)
		if !ok {
			missing++
		}
		fmt.Fprintf(cmd.OutOrStdout(), "%s\t%t\n", p, ok)
	}
	if missing > 0 {
		return fmt.Errorf("%d of %d paths not found", missing, len(args))
	}
	return nil
}
