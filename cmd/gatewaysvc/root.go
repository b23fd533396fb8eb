package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	config "github.com/avvvet/timeline-services/configs"
	gwconfig "github.com/avvvet/timeline-services/internal/gatewaysvc/config"
)

const SERVICE_NAME = "gateway"

var (
	envFile string
	cfg     gwconfig.Config
)

// rootCmd runs the gateway when called without a subcommand.
var rootCmd = &cobra.Command{
	Use:   "gatewaysvc",
	Short: "HTTP gateway over the cards and media DynamoDB tables",
	PersistentPreRun: func(cmd *cobra.Command, args []string) {
		config.LoadEnv(SERVICE_NAME, envFile)
		cfg = gwconfig.Load()
		config.Logging(SERVICE_NAME+"_service", cfg.LogDir, cfg.Debug)
	},
	Args: cobra.NoArgs,
	RunE: runServe,
}

func Execute() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Println(err)
		os.Exit(1)
	}
}

func init() {
	rootCmd.PersistentFlags().StringVar(&envFile, "env-file", "./.env", "Path of the env file to load")
}
