// Command echocli is an interactive analysis shell for acoustic survey
// CSV exports. It loads echo-sounder measurements, merges vessel GPS
// tracks, and turns short commands into plots, hexagonal maps and
// statistics reports.
package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"echocli/internal/config"
	"echocli/internal/executor"
	"echocli/internal/infrastructure"
)

var version = "dev"

func main() {
	if err := newRootCmd().Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "echocli: %v\n", err)
		os.Exit(1)
	}
}

func newRootCmd() *cobra.Command {
	var (
		configFile string
		oneShot    string
	)
	cmd := &cobra.Command{
		Use:           "echocli",
		Short:         "Interactive acoustic survey analysis",
		Long:          "echocli loads acoustic survey CSV files and answers short\ncommands like 'plot y=backscatter 5min' or 'map hex y=backscatter res=8'.",
		Version:       version,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := config.Load(configFile)
			if err != nil {
				return err
			}
			if _, err := infrastructure.InitializeLogger(cfg.Logging); err != nil {
				return err
			}
			defer infrastructure.CloseLogFile()

			exec, err := executor.New(cfg)
			if err != nil {
				return err
			}
			if oneShot != "" {
				return runOnce(exec, oneShot)
			}
			runREPL(exec)
			return nil
		},
	}
	cmd.Flags().StringVar(&configFile, "config", "echocli.yaml", "configuration file")
	cmd.Flags().StringVarP(&oneShot, "command", "c", "", "run one command and exit")
	return cmd
}
