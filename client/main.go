package main

import (
	"fmt"
	"os"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/puyokura/roomchat/api"
)

var rootCmd = &cobra.Command{
	Use:          "roomchat",
	Short:        "Terminal client for the chatroom server",
	SilenceUsage: true,
	RunE:         runClient,
}

var (
	flagConfig string
	v          = viper.New()
)

func init() {
	flags := rootCmd.Flags()
	flags.StringVar(&flagConfig, "config", "", "path to a config file (default ./roomchat.yaml)")
	flags.String("server", "", "chat server base URL")
	flags.String("session", "", "session cookie value of an already logged-in browser session")
	flags.String("room", "", "room to join on startup, as id:name")
	flags.String("log-file", "", "log file path")
	flags.String("log-level", "", "log level (debug, info, warn, error)")
	flags.Duration("interval", 0, "message polling interval")

	bind := map[string]string{
		"server.base_url":       "server",
		"server.session_cookie": "session",
		"ui.start_room":         "room",
		"log.file":              "log-file",
		"log.level":             "log-level",
		"poll.interval":         "interval",
	}
	for k, name := range bind {
		if err := v.BindPFlag(k, flags.Lookup(name)); err != nil {
			panic(err)
		}
	}
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

func runClient(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig(v, flagConfig)
	if err != nil {
		return err
	}

	logger, logFile, err := setupLogging(cfg.Log.File, cfg.Log.Level)
	if err != nil {
		return fmt.Errorf("setup logging: %w", err)
	}
	defer logFile.Close()

	client, err := api.New(cfg.Server.BaseURL,
		api.WithTimeout(cfg.Server.Timeout),
		api.WithSession(cfg.Server.CookieName, cfg.Server.SessionCookie),
		api.WithLogger(logger.With().Str("component", "api").Logger()),
	)
	if err != nil {
		return err
	}
	logger.Info().Str("server", client.BaseURL()).Msg("client starting")

	m := initialModel(client, cfg, logger.With().Str("component", "ui").Logger())
	p := tea.NewProgram(m, tea.WithAltScreen(), tea.WithReportFocus(), tea.WithMouseCellMotion())
	if _, err := p.Run(); err != nil {
		logger.Error().Err(err).Msg("program exited")
		return fmt.Errorf("alas, there's been an error: %w", err)
	}
	logger.Info().Msg("client stopped")
	return nil
}
