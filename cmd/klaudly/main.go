package main

import (
	"os"

	"github.com/klaudly/klaudly/cmd/klaudly/cmd"
	"github.com/klaudly/klaudly/internal/config"
	"github.com/klaudly/klaudly/internal/logger"

	"github.com/spf13/cobra"
)

func main() {
	cfg := config.Load()
	logger.Init(true, "", cfg.AppEnv)

	rootCmd := &cobra.Command{
		Use:          "klaudly",
		Short:        "Operator tools for klaudly",
		SilenceUsage: true,
	}

	rootCmd.AddCommand(cmd.MigrateCmd(cfg))
	rootCmd.AddCommand(cmd.TokenCmd(cfg))

	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}
