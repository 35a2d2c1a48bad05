// Package main is the entry point for the gemgram CLI.
package main

import (
	"fmt"
	"log/slog"
	"os"

	"github.com/spf13/cobra"

	"github.com/gemgram/gemgram/internal/config"
	"github.com/gemgram/gemgram/internal/core"
	"github.com/gemgram/gemgram/pkg/app"

	// Compiled-in modules. Each registers itself via init().
	_ "github.com/gemgram/gemgram/internal/gateway"
	_ "github.com/gemgram/gemgram/modules/channel/telegram"
	_ "github.com/gemgram/gemgram/modules/provider/gemini"
	_ "github.com/gemgram/gemgram/modules/store/sqlite"
)

// Set by goreleaser ldflags.
var (
	version = "dev"
	commit  = "none"
	date    = "unknown"
)

func main() {
	if err := rootCmd().Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

func rootCmd() *cobra.Command {
	root := &cobra.Command{
		Use:           "gemgram",
		Short:         "A Telegram bot that relays messages to Gemini",
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	root.AddCommand(
		versionCmd(),
		startCmd(),
		configCmd(),
		initCmd(),
		serviceCmd(),
		statsCmd(),
	)
	return root
}

func versionCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Print version and compiled modules",
		Run: func(_ *cobra.Command, _ []string) {
			fmt.Printf("gemgram %s (commit: %s, built: %s)\n", version, commit, date)
			mods := core.GetModules()
			if len(mods) == 0 {
				fmt.Println("\nNo compiled modules.")
				return
			}
			fmt.Println("\nCompiled modules:")
			for _, mod := range mods {
				fmt.Printf("  %s\n", mod.ID)
			}
		},
	}
}

func startCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "start",
		Short: "Start gemgram and run until interrupted",
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfgPath, _ := cmd.Flags().GetString("config")
			dataDir, _ := cmd.Flags().GetString("data-dir")
			return app.Run(app.RunParams{
				ConfigPath: cfgPath,
				Version:    version,
				Commit:     commit,
				Date:       date,
				DataDir:    dataDir,
			})
		},
	}
	cmd.Flags().StringP("config", "c", "", "Path to configuration file")
	cmd.Flags().String("data-dir", "", "Directory for persistent data (default: $XDG_DATA_HOME/gemgram)")
	return cmd
}

func configCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "config",
		Short: "Configuration management",
	}

	check := &cobra.Command{
		Use:   "check",
		Short: "Validate configuration and provision every module",
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfgPath, _ := cmd.Flags().GetString("config")
			if cfgPath == "" {
				resolved, err := app.ResolveConfigPath()
				if err != nil {
					return err
				}
				cfgPath = resolved
			}
			app.LoadDotEnv(cfgPath)

			cfg, err := config.Load(cfgPath)
			if err != nil {
				return err
			}
			if err := config.Validate(cfg); err != nil {
				return err
			}

			logger := slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{
				Level: slog.LevelWarn,
			}))
			appCtx := core.NewAppContext(logger, app.DefaultDataDir())
			appCtx = appCtx.WithModuleConfigs(cfg.Modules)

			application := core.NewApp(appCtx)
			ids := config.Resolve(cfg)
			if err := application.LoadModules(ids); err != nil {
				return err
			}
			defer application.Stop()

			fmt.Printf("Configuration OK (%d modules)\n", len(ids))
			for _, id := range ids {
				fmt.Printf("  %s\n", id)
			}
			return nil
		},
	}
	check.Flags().StringP("config", "c", "", "Path to configuration file")

	cmd.AddCommand(check)
	return cmd
}
