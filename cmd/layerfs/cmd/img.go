package cmd

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/aweris/layerfs/img"
)

var imgCmd = &cobra.Command{
	Use:   "img <path>",
	Short: "Describe an image",
	Long:  "Decode the image at a virtual path and print its size, channel count and sample type.",
	Args:  cobra.ExactArgs(1),
	RunE:  runImg,
}

func init() {
	imgCmd.Flags().Bool("rgba", false, "force four channel output")
	rootCmd.AddCommand(imgCmd)
}

func runImg(cmd *cobra.Command, args []string) error {
	fsys, err := openFS(cmd.Context(), cmd)
	if err != nil {
		return err
	}
	data, err := fsys.ReadFile(args[0])
	if err != nil {
		return err
	}

	rgba, _ := cmd.Flags().GetBool("rgba")
	m, err := img.Decode(data, rgba)
	if err != nil {
		return fmt.Errorf("%s: %w", args[0], err)
	}
	fmt.Fprintf(cmd.OutOrStdout(), "%s\t%dx%d\t%d channels\t%s\n", args[0], m.Width, m.Height, m.Channels, m.Type)
	return nil
}
