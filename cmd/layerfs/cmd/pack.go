package cmd

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/aweris/layerfs/internal/bundle"
)

var packCmd = &cobra.Command{
	Use:   "pack <dir> <out.bundle>",
	Short: "Pack a directory into a bundle",
	Long:  "Pack the regular files directly inside a directory into a single bundle file.",
	Args:  cobra.ExactArgs(2),
	RunE:  runPack,
}

func init() {
	packCmd.Flags().String("codec", "zstd", "payload codec: zstd or raw")
	packCmd.Flags().Int("concurrency", bundle.DefaultConcurrency, "files read in parallel")
	rootCmd.AddCommand(packCmd)
}

func runPack(cmd *cobra.Command, args []string) error {
	dir, out := args[0], args[1]

	codecName, _ := cmd.Flags().GetString("codec")
	codec, err := bundle.ParseCodec(codecName)
	if err != nil {
		return err
	}
	concurrency, _ := cmd.Flags().GetInt("concurrency")

	data, err := bundle.PackDir(cmd.Context(), dir, codec, concurrency)
	if err != nil {
		return fmt.Errorf("pack %s: %w", dir, err)
	}
	if err := os.WriteFile(out, data, 0644); err != nil {
		return fmt.Errorf("write bundle: %w", err)
	}

	fmt.Fprintf(cmd.ErrOrStderr(), "Packed %s into %s (%d bytes, %s)\n", dir, out, len(data), codec)
	return nil
}
