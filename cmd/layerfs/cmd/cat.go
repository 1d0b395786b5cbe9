package cmd

import (
	"github.com/spf13/cobra"
)

var catCmd = &cobra.Command{
	Use:   "cat <path>",
	Short: "Print a file",
	Long:  "Resolve a virtual path, including entries inside bundles, and write its content to stdout.",
	Args:  cobra.ExactArgs(1),
	RunE:  runCat,
}

func init() {
	rootCmd.AddCommand(catCmd)
}

func runCat(cmd *cobra.Command, args []string) error {
	fsys, err := openFS(cmd.Context(), cmd)
	if err != nil {
		return err
	}

	data, err := fsys.ReadFile(args[0])
	if err != nil {
		return err
	}
	_, err = cmd.OutOrStdout().Write(data)
	return err
}
