package main

import (
	"fmt"
	"os"
	"os/signal"
	"path/filepath"
	"strings"
	"syscall"

	"github.com/spf13/cobra"

	"tonearm/internal/executor"
	"tonearm/internal/mediameta"
)

func newConvertCommand(cmdCtx *commandContext) *cobra.Command {
	var (
		deleteOriginal bool
		outputFormat   string
		bitrate        int
	)

	cmd := &cobra.Command{
		Use:   "convert <input> [output]",
		Short: "Transcode a single file to the configured output format",
		Args:  cobra.RangeArgs(1, 2),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := cmdCtx.ensureConfig()
			if err != nil {
				return err
			}
			logger, err := cmdCtx.ensureLogger()
			if err != nil {
				return err
			}

			if format := strings.ToLower(strings.TrimSpace(outputFormat)); format != "" {
				cfg.Convert.OutputFormat = format
				if err := cfg.Validate(); err != nil {
					return err
				}
			}
			if cmd.Flags().Changed("bitrate") {
				if bitrate <= 0 {
					return fmt.Errorf("--bitrate must be positive")
				}
				switch cfg.Convert.OutputFormat {
				case "aac":
					cfg.Convert.AACBitrate = bitrate
				case "mp3":
					cfg.Convert.MP3Bitrate = bitrate
				default:
					cfg.Convert.OpusBitrate = bitrate
				}
			}
			cfg.Convert.DeleteOriginal = cfg.Convert.DeleteOriginal || deleteOriginal

			source := args[0]
			if !mediameta.IsAudioFile(source) {
				return fmt.Errorf("%s is not a supported audio file", source)
			}

			output := ""
			if len(args) == 2 {
				output = args[1]
			} else {
				base := strings.TrimSuffix(source, filepath.Ext(source))
				ext := cfg.Convert.OutputFormat
				if ext == "vorbis" {
					ext = "ogg"
				}
				output = base + "." + ext
			}
			if output == source {
				return fmt.Errorf("output would overwrite input %s; pick another output path", source)
			}

			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer stop()

			if err := executor.New(cfg, logger).Convert(ctx, source, output); err != nil {
				return err
			}
			if cfg.Convert.DeleteOriginal {
				if err := os.Remove(source); err != nil {
					return fmt.Errorf("remove original: %w", err)
				}
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Converted %s -> %s\n", source, output)
			return nil
		},
	}

	cmd.Flags().BoolVar(&deleteOriginal, "delete-original", false, "Remove the input file after a successful conversion")
	cmd.Flags().StringVarP(&outputFormat, "format", "f", "", "Output format (opus, aac, mp3, vorbis)")
	cmd.Flags().IntVarP(&bitrate, "bitrate", "b", 0, "Output bitrate in kbps")
	return cmd
}
