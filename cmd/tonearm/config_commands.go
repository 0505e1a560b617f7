package main

import (
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/spf13/cobra"

	"tonearm/internal/config"
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
					return fmt.Errorf("determine default config path: %w", err)
				}
				target = defaultPath
			} else {
				expanded, err := config.ExpandPath(target)
				if err != nil {
					return fmt.Errorf("resolve config path: %w", err)
				}
				target = expanded
			}

			dir := filepath.Dir(target)
			if err := os.MkdirAll(dir, 0o755); err != nil {
				return fmt.Errorf("create config directory %q: %w", dir, err)
			}

			if !overwrite {
				if _, err := os.Stat(target); err == nil {
					return fmt.Errorf("config file already exists at %s (use --overwrite to replace it)", target)
				} else if err != nil && !os.IsNotExist(err) {
					return fmt.Errorf("check config path: %w", err)
				}
			}

			if err := config.CreateSample(target); err != nil {
				return fmt.Errorf("create sample config: %w", err)
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
		Short:       "Show the effective configuration",
		Annotations: map[string]string{"skipConfigLoad": "true"},
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, path, exists, err := config.Load("")
			if err != nil {
				return fmt.Errorf("load config: %w", err)
			}

			out := cmd.OutOrStdout()
			fmt.Fprintf(out, "Config path: %s\n", path)
			if !exists {
				fmt.Fprintln(out, "Config file did not exist; showing defaults")
			}
			for _, warning := range cfg.Warnings() {
				fmt.Fprintf(out, "warning: %s\n", warning)
			}

			rows := [][2]string{
				{"general.workers", fmt.Sprint(cfg.General.Workers)},
				{"general.cache_path", cfg.General.CachePath},
				{"general.cache_enabled", yesNo(cfg.General.CacheEnabled)},
				{"general.log_dir", cfg.General.LogDir},
				{"quality.lossless_bonus", fmt.Sprint(cfg.Quality.LosslessBonus)},
				{"convert.output_format", cfg.Convert.OutputFormat},
				{"convert.opus_bitrate", fmt.Sprint(cfg.Convert.OpusBitrate)},
				{"convert.always_convert", yesNo(cfg.Convert.AlwaysConvert)},
				{"convert.convert_down", yesNo(cfg.Convert.ConvertDown)},
				{"reconcile.never_downgrade", yesNo(cfg.Reconcile.NeverDowngrade)},
				{"reconcile.destructive", yesNo(cfg.Reconcile.Destructive)},
				{"reconcile.link_mode", yesNo(cfg.Reconcile.LinkMode)},
				{"reconcile.fingerprint", yesNo(cfg.Reconcile.Fingerprint)},
				{"naming.prefer_artist", yesNo(cfg.Naming.PreferArtist)},
				{"logging.format", cfg.Logging.Format},
				{"logging.level", cfg.Logging.Level},
			}
			codecs := make([]string, 0, len(cfg.Quality.CodecMultipliers))
			for codec := range cfg.Quality.CodecMultipliers {
				codecs = append(codecs, codec)
			}
			sort.Strings(codecs)
			for _, codec := range codecs {
				rows = append(rows, [2]string{"quality.codec_multipliers." + codec, fmt.Sprint(cfg.Quality.CodecMultipliers[codec])})
			}

			fmt.Fprintln(out, renderSettingsTable(rows))
			return nil
		},
	}
}
