package main

import (
	"io"
	"os"

	"github.com/spf13/cobra"

	"github.com/OJezu/potok/internal/logging"
)

var runCmd = &cobra.Command{
	Use:   "run",
	Short: "Run the line pipeline",
	Long:  `Reads lines from --input (or stdin), applies --transform, drops blank lines and prints the rest.`,
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		levelFlag, _ := cmd.Flags().GetString("log-level")
		level, err := logging.ParseLevel(levelFlag)
		if err != nil {
			return err
		}
		logger := logging.New(level)

		configPath, _ := cmd.Flags().GetString("config")
		fc, opts, err := loadConfig(configPath)
		if err != nil {
			return err
		}

		cfg := pipelineConfig{Transform: fc.Transform, Options: opts}
		if cmd.Flags().Changed("transform") {
			cfg.Transform, _ = cmd.Flags().GetString("transform")
		}
		if passNulls, _ := cmd.Flags().GetBool("pass-nulls"); passNulls {
			cfg.Options.PassNulls = true
		}
		if withMetrics, _ := cmd.Flags().GetBool("metrics"); withMetrics {
			cfg.Metrics = cmd.ErrOrStderr()
		}

		var in io.Reader = cmd.InOrStdin()
		if inputPath, _ := cmd.Flags().GetString("input"); inputPath != "" && inputPath != "-" {
			f, err := os.Open(inputPath)
			if err != nil {
				return err
			}
			defer f.Close()
			in = f
		}

		_, err = runPipeline(cmd.Context(), cfg, in, cmd.OutOrStdout(), logger)
		return err
	},
}

func init() {
	rootCmd.AddCommand(runCmd)

	runCmd.Flags().StringP("config", "c", "", "YAML config file")
	runCmd.Flags().StringP("input", "i", "", "Input file (default stdin)")
	runCmd.Flags().String("transform", "", "Line transform: none, upper, lower, trim")
	runCmd.Flags().Bool("pass-nulls", false, "Keep blank lines as null outcomes")
	runCmd.Flags().Bool("metrics", false, "Print Prometheus metrics to stderr when done")
}
