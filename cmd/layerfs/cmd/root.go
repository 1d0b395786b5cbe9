package cmd

import (
	"context"
	"fmt"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/aweris/layerfs"
	"github.com/aweris/layerfs/internal/logging"
)

// projectConfig is looked up in the working directory and its parents.
const projectConfig = "layerfs.yaml"

var rootCmd = &cobra.Command{
	Use:          "layerfs",
	Short:        "Layered virtual filesystem CLI",
	Long:         "Resolve virtual paths across mounted directories, OCI images and bundles.",
	SilenceUsage: true,
}

func Execute() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

func init() {
	cobra.OnInitialize(initConfig)

	rootCmd.PersistentFlags().String("config", "", "config file (default: ./layerfs.yaml or ~/.config/layerfs/config.yaml)")
	rootCmd.PersistentFlags().StringArray("mount", nil, "mount a directory as prefix=root (repeatable, after configured mounts)")
	rootCmd.PersistentFlags().String("log-level", "", "log level: debug, info, warn, error")

	viper.BindPFlag("log_level", rootCmd.PersistentFlags().Lookup("log-level"))
}

func initConfig() {
	if cfg := rootCmd.PersistentFlags().Lookup("config").Value.String(); cfg != "" {
		viper.SetConfigFile(cfg)
	} else if wd, err := os.Getwd(); err == nil {
		if dir, ok := layerfs.FindParentWith(wd, projectConfig); ok {
			viper.SetConfigFile(filepath.Join(dir, projectConfig))
		}
	}
	viper.AddConfigPath(configDir())
	viper.SetConfigName("config")
	viper.SetConfigType("yaml")

	viper.SetEnvPrefix("LAYERFS")
	viper.AutomaticEnv()
	viper.SetDefault("log_level", "warn")

	viper.ReadInConfig()
}

func configDir() string {
	if xdg := os.Getenv("XDG_CONFIG_HOME"); xdg != "" {
		return filepath.Join(xdg, "layerfs")
	}
	if home, err := os.UserHomeDir(); err == nil {
		return filepath.Join(home, ".config", "layerfs")
	}
	return ".layerfs"
}

// openFS builds a Filesystem from the configured mounts followed by the
// --mount flags.
func openFS(ctx context.Context, cmd *cobra.Command) (*layerfs.Filesystem, error) {
	cfgs, err := layerfs.LoadMounts(viper.GetViper())
	if err != nil {
		return nil, err
	}

	flags, err := cmd.Flags().GetStringArray("mount")
	if err != nil {
		return nil, err
	}
	for _, f := range flags {
		c, err := layerfs.ParseMountFlag(f)
		if err != nil {
			return nil, err
		}
		cfgs = append(cfgs, c)
	}
	if len(cfgs) == 0 {
		return nil, fmt.Errorf("no mounts configured; use --mount prefix=root or a config file")
	}

	logger := logging.New(logging.ConsoleWriter(os.Stderr), viper.GetString("log_level"))
	fsys := layerfs.New(layerfs.WithLogger(logger))
	if err := fsys.MountAll(ctx, cfgs); err != nil {
		return nil, err
	}
	return fsys, nil
}
