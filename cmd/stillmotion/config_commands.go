package main

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/pelletier/go-toml/v2"
	"github.com/spf13/cobra"

	"stillmotion/internal/assemble"
	"stillmotion/internal/config"
)

func newConfigCommand() *cobra.Command {
	configCmd := &cobra.Command{
		Use:   "config",
		Short: "Configuration utilities",
	}

	configCmd.AddCommand(newConfigInitCommand())
	configCmd.AddCommand(newConfigShowCommand())

	return configCmd
}

func newConfigInitCommand() *cobra.Command {
	var targetPath string
	var overwrite bool

	cmd := &cobra.Command{
		Use:         "init",
		Short:       "Create a sample configuration file",
		Annotations: map[string]string{"skipConfigLoad": "true"},
		RunE: func(cmd *cobra.Command, args []string) error {
			target := strings.TrimSpace(targetPath)
			if target == "" {
				defaultPath, err := config.DefaultConfigPath()
				if err != nil {
					return fmt.Errorf("%w: determine default config path: %v", assemble.ErrInput, err)
				}
				target = defaultPath
			}

			dir := filepath.Dir(target)
			if err := os.MkdirAll(dir, 0o755); err != nil {
				return fmt.Errorf("%w: create config directory %q: %v", assemble.ErrInput, dir, err)
			}

			if !overwrite {
				if _, err := os.Stat(target); err == nil {
					return fmt.Errorf("%w: config file already exists at %s (use --overwrite to replace it)", assemble.ErrInput, target)
				} else if !os.IsNotExist(err) {
					return fmt.Errorf("%w: check config path: %v", assemble.ErrInput, err)
				}
			}

			if err := config.WriteSample(target); err != nil {
				return fmt.Errorf("%w: write sample config: %v", assemble.ErrInput, err)
			}

			fmt.Fprintf(cmd.OutOrStdout(), "Wrote sample configuration to %s\n", target)
			return nil
		},
	}

	cmd.Flags().StringVarP(&targetPath, "path", "p", "", "Destination for the configuration file")
	cmd.Flags().BoolVar(&overwrite, "overwrite", false, "Overwrite existing configuration if present")
	return cmd
}

func newConfigShowCommand() *cobra.Command {
	return &cobra.Command{
		Use:         "show",
		Short:       "Print the effective configuration",
		Annotations: map[string]string{"skipConfigLoad": "true"},
		RunE: func(cmd *cobra.Command, args []string) error {
			path, _ := cmd.Root().PersistentFlags().GetString("config")
			cfg, resolved, exists, err := config.Load(path)
			if err != nil {
				return fmt.Errorf("%w: %v", assemble.ErrUsage, err)
			}

			out := cmd.OutOrStdout()
			fmt.Fprintf(out, "# Config path: %s\n", resolved)
			if !exists {
				fmt.Fprintln(out, "# File does not exist; showing defaults")
			}
			rendered, err := toml.Marshal(cfg)
			if err != nil {
				return fmt.Errorf("render config: %w", err)
			}
			fmt.Fprint(out, string(rendered))
			return nil
		},
	}
}
