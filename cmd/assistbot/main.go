package main

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"assistbot/internal/channel"
	"assistbot/internal/config"
	"assistbot/internal/domain"

	"github.com/spf13/cobra"
)

var (
	version    = "0.1.0"
	logger     *slog.Logger
	configPath string // overridable via --config flag
)

func main() {
	logger = slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: slog.LevelInfo}))

	root := &cobra.Command{
		Use:   "assistbot",
		Short: "assistbot: SMS/MMS personal assistant",
		Long:  "assistbot answers text messages: todo commands, image descriptions, and free-form questions.",
	}

	root.PersistentFlags().StringVarP(&configPath, "config", "c", "", "path to config file (default: ~/.assistbot/config.json)")

	root.AddCommand(initCmd())
	root.AddCommand(sendCmd())
	root.AddCommand(gatewayCmd())
	root.AddCommand(statusCmd())
	root.AddCommand(doctorCmd())
	root.AddCommand(configCmd())

	if err := root.Execute(); err != nil {
		os.Exit(1)
	}
}

// resolveConfigPath returns the config path from --config flag or default.
func resolveConfigPath() string {
	if configPath != "" {
		return configPath
	}
	return config.DefaultConfigPath()
}

// loadConfig loads the config file, falling back to defaults plus environment
// when it does not exist, and reconfigures the global logger from it.
func loadConfig() (*config.Config, error) {
	cfgPath := resolveConfigPath()
	cfg, found, err := config.LoadOrDefaults(cfgPath)
	if err != nil {
		return nil, fmt.Errorf("load config: %w", err)
	}
	logger = newLogger(cfg.General)
	if !found {
		logger.Debug("config not found, using defaults", "path", cfgPath)
	}
	return cfg, nil
}

func newLogger(gc config.GeneralConfig) *slog.Logger {
	var level slog.Level
	switch gc.LogLevel {
	case "debug":
		level = slog.LevelDebug
	case "warn":
		level = slog.LevelWarn
	case "error":
		level = slog.LevelError
	default:
		level = slog.LevelInfo
	}
	opts := &slog.HandlerOptions{Level: level}
	if gc.LogFormat == "json" {
		return slog.New(slog.NewJSONHandler(os.Stderr, opts))
	}
	return slog.New(slog.NewTextHandler(os.Stderr, opts))
}

func initCmd() *cobra.Command {
	var force bool
	cmd := &cobra.Command{
		Use:   "init",
		Short: "Write a default config file",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfgPath := resolveConfigPath()
			if _, err := os.Stat(cfgPath); err == nil && !force {
				return fmt.Errorf("config already exists at %s (use --force to overwrite)", cfgPath)
			}
			if err := config.Save(cfgPath, config.Defaults()); err != nil {
				return err
			}
			logger.Info("initialized", "config", cfgPath)
			return nil
		},
	}
	cmd.Flags().BoolVar(&force, "force", false, "overwrite an existing config file")
	return cmd
}

func sendCmd() *cobra.Command {
	var (
		sender   string
		text     string
		mediaURL string
		asJSON   bool
	)
	cmd := &cobra.Command{
		Use:   "send",
		Short: "Handle one message locally and print the reply",
		Long:  "Builds a normalized message from flags, runs it through the assistant, and prints the reply.",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadConfig()
			if err != nil {
				return err
			}

			ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
			defer stop()

			app, err := buildApp(ctx, cfg)
			if err != nil {
				return err
			}
			defer app.Close()

			msg := domain.InboundMessage{SenderID: sender, Text: text, Timestamp: time.Now()}
			if mediaURL != "" {
				msg.MediaCount = 1
				msg.MediaURL = mediaURL
			}

			reply := app.Assistant.Handle(ctx, msg)
			if asJSON {
				data, _ := json.MarshalIndent(reply, "", "  ")
				fmt.Println(string(data))
				return nil
			}
			fmt.Println(reply.Text)
			return nil
		},
	}
	cmd.Flags().StringVar(&sender, "sender", "local", "sender identifier (e.g. phone number)")
	cmd.Flags().StringVar(&text, "text", "", "message text")
	cmd.Flags().StringVar(&mediaURL, "media-url", "", "URL of an attached image")
	cmd.Flags().BoolVar(&asJSON, "json", false, "print the reply as JSON including the intent")
	return cmd
}

func gatewayCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "gateway",
		Short: "Start the HTTP gateway",
		Long:  "Serves POST /message for normalized inbound messages, plus /health and optional /metrics. Press Ctrl+C to stop.",
		RunE:  runGateway,
	}
}

func runGateway(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	app, err := buildApp(ctx, cfg)
	if err != nil {
		return err
	}
	defer app.Close()

	gw := channel.NewGateway(channel.GatewayConfig{
		Host:            cfg.Gateway.Host,
		Port:            cfg.Gateway.Port,
		Path:            cfg.Gateway.Path,
		Secret:          cfg.Gateway.Secret,
		MetricsEnabled:  cfg.Metrics.Enabled,
		MetricsEndpoint: cfg.Metrics.Endpoint,
		Logger:          logger,
	}, app.Assistant)

	if cfg.Gateway.Secret == "" {
		logger.Warn("gateway secret not set; requests are not authenticated")
	}
	return gw.Start(ctx)
}

func statusCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "status",
		Short: "Show configured backends",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfgPath := resolveConfigPath()
			cfg, found, err := config.LoadOrDefaults(cfgPath)
			if err != nil {
				return err
			}
			logger.Info("config", "path", cfgPath, "loaded", found)
			logger.Info("storage", "backend", cfg.Storage.Backend, "table", cfg.Storage.Table, "dbPath", cfg.Storage.DBPath)
			logger.Info("vision", "backend", cfg.Vision.Backend, "maxLabels", cfg.Vision.MaxLabels, "minConfidence", cfg.Vision.MinConfidence)
			logger.Info("model", "provider", cfg.Model.Provider, "modelId", cfg.Model.ModelID, "apiKey", cfg.Model.APIKey != "")
			logger.Info("aws", "region", cfg.AWS.Region, "profile", cfg.AWS.Profile)
			logger.Info("gateway", "addr", fmt.Sprintf("%s:%d", cfg.Gateway.Host, cfg.Gateway.Port), "path", cfg.Gateway.Path, "metrics", cfg.Metrics.Enabled)
			return nil
		},
	}
}

func configCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "config",
		Short: "View and modify configuration",
		Long:  "Get, set, and list configuration values. Changes are saved to the config file.",
	}

	cmd.AddCommand(&cobra.Command{
		Use:   "get [path]",
		Short: "Get a config value (e.g. storage.table)",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := config.Load(resolveConfigPath())
			if err != nil {
				return fmt.Errorf("load config: %w", err)
			}
			val, err := config.GetByPath(cfg, args[0])
			if err != nil {
				return err
			}
			data, _ := json.MarshalIndent(val, "", "  ")
			fmt.Println(string(data))
			return nil
		},
	})

	cmd.AddCommand(&cobra.Command{
		Use:   "set [path] [value]",
		Short: "Set a config value (e.g. storage.backend sqlite)",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfgPath := resolveConfigPath()
			cfg, err := config.Load(cfgPath)
			if err != nil {
				return fmt.Errorf("load config: %w", err)
			}
			if err := config.SetByPath(cfg, args[0], args[1]); err != nil {
				return fmt.Errorf("set value: %w", err)
			}
			if err := config.Validate(cfg); err != nil {
				return err
			}
			if err := config.Save(cfgPath, cfg); err != nil {
				return fmt.Errorf("save config: %w", err)
			}
			logger.Info("config updated", "path", args[0], "value", args[1], "file", cfgPath)
			return nil
		},
	})

	var asJSON bool
	listCmd := &cobra.Command{
		Use:   "list",
		Short: "List all settable config paths and their values",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := config.Load(resolveConfigPath())
			if err != nil {
				return fmt.Errorf("load config: %w", err)
			}
			return writeConfigList(cmd.OutOrStdout(), config.Sanitize(cfg), asJSON)
		},
	}
	listCmd.Flags().BoolVar(&asJSON, "json", false, "print the config as a JSON document")
	cmd.AddCommand(listCmd)

	cmd.AddCommand(&cobra.Command{
		Use:   "path",
		Short: "Show config file path",
		Run: func(cmd *cobra.Command, args []string) {
			fmt.Println(resolveConfigPath())
		},
	})

	return cmd
}

func writeConfigList(w io.Writer, cfg *config.Config, asJSON bool) error {
	if asJSON {
		data, err := json.MarshalIndent(cfg, "", "  ")
		if err != nil {
			return err
		}
		_, err = fmt.Fprintln(w, string(data))
		return err
	}
	leaves := config.ListPaths(cfg)
	for _, path := range config.SortedPaths(cfg) {
		if _, err := fmt.Fprintf(w, "%s = %v\n", path, leaves[path]); err != nil {
			return err
		}
	}
	return nil
}
