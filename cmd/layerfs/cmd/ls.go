package cmd

import (
	"fmt"

	"github.com/spf13/cobra"
)

var lsCmd = &cobra.Command{
	Use:   "ls <bundle-path>",
	Short: "List bundle entries",
	Long:  "Decode the bundle at a virtual path and list its entries with their sizes.",
	Args:  cobra.ExactArgs(1),
	RunE:  runLs,
}

func init() {
	rootCmd.AddCommand(lsCmd)
}

func runLs(cmd *cobra.Command, args []string) error {
	fsys, err := openFS(cmd.Context(), cmd)
	if err != nil {
		return err
	}

	a, ok := fsys.Archive(args[0])
	if !ok {
		return fmt.Errorf("%s: not a bundle", args[0])
	}

	for _, name := range a.Names() {
		v, _ := a.View(name)
		fmt.Fprintf(cmd.OutOrStdout(), "%s\t%d\n", name, v.Len())
	}
	if a.Len() == 0 {
		fmt.Fprintln(cmd.OutOrStdout(), "(no entries)")
	}
	return nil
}
