package main

import (
	"context"
	"database/sql"
	"fmt"
	"net"
	"os"
	"path/filepath"
	"time"

	"assistbot/internal/config"

	"github.com/spf13/cobra"
	_ "modernc.org/sqlite"
)

func doctorCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "doctor",
		Short: "Run diagnostic checks on your assistbot setup",
		Long: `Verifies that the configuration, storage backend, AWS credentials and
language model settings are usable. Reports pass/fail for each check.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfgPath := resolveConfigPath()
			fmt.Printf("assistbot doctor v%s\n", version)
			fmt.Printf("━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━\n\n")

			passed, warned, failed := 0, 0, 0

			cfg, found, err := config.LoadOrDefaults(cfgPath)
			if err != nil {
				printFail("Config", err.Error())
				return fmt.Errorf("config invalid")
			}
			if found {
				printPass("Config", cfgPath)
				passed++
			} else {
				printWarn("Config", fmt.Sprintf("not found at %s, using defaults", cfgPath))
				warned++
			}

			ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
			defer cancel()

			needsAWS := cfg.Storage.Backend == "dynamodb" || cfg.Model.Provider == "bedrock" || cfg.Vision.Backend == "rekognition"
			if needsAWS {
				if err := checkAWSCredentials(ctx, cfg.AWS); err != nil {
					printFail("AWS credentials", err.Error())
					failed++
				} else {
					printPass("AWS credentials", "region "+cfg.AWS.Region)
					passed++
				}
			}

			switch cfg.Storage.Backend {
			case "sqlite":
				dbPath := config.ExpandPath(cfg.Storage.DBPath)
				if err := checkDatabase(dbPath); err != nil {
					printFail("Database", err.Error())
					failed++
				} else {
					printPass("Database", dbPath)
					passed++
				}
			case "memory":
				printWarn("Storage", "in-memory; todo lists are lost on exit")
				warned++
			default:
				printPass("Storage", "dynamodb table "+cfg.Storage.Table)
				passed++
			}

			if cfg.Model.Provider != "bedrock" && cfg.Model.APIKey == "" {
				printFail("Model", fmt.Sprintf("%s provider has no API key", cfg.Model.Provider))
				failed++
			} else {
				model := cfg.Model.ModelID
				if model == "" {
					model = "(provider default)"
				}
				printPass("Model", cfg.Model.Provider+" "+model)
				passed++
			}

			if err := checkPort(cfg.Gateway.Host, cfg.Gateway.Port); err != nil {
				printWarn("Gateway port", fmt.Sprintf("port %d may be in use: %v", cfg.Gateway.Port, err))
				warned++
			} else {
				printPass("Gateway port", fmt.Sprintf("%s:%d available", cfg.Gateway.Host, cfg.Gateway.Port))
				passed++
			}

			fmt.Printf("\n━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━\n")
			fmt.Printf("Results: %d passed, %d warnings, %d failed\n", passed, warned, failed)
			if failed > 0 {
				return fmt.Errorf("%d check(s) failed", failed)
			}
			return nil
		},
	}
}

func checkAWSCredentials(ctx context.Context, ac config.AWSConfig) error {
	awsCfg, err := loadAWSConfig(ctx, ac)
	if err != nil {
		return err
	}
	if _, err := awsCfg.Credentials.Retrieve(ctx); err != nil {
		return fmt.Errorf("no credentials: %w", err)
	}
	return nil
}

func checkDatabase(dbPath string) error {
	if err := os.MkdirAll(filepath.Dir(dbPath), 0o755); err != nil {
		return fmt.Errorf("cannot create database directory: %w", err)
	}

	db, err := sql.Open("sqlite", dbPath+"?_journal_mode=WAL&_busy_timeout=5000")
	if err != nil {
		return fmt.Errorf("cannot open: %w", err)
	}
	defer db.Close()

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := db.PingContext(ctx); err != nil {
		return fmt.Errorf("cannot ping: %w", err)
	}
	if _, err := db.ExecContext(ctx, "CREATE TABLE IF NOT EXISTS _doctor_test (id INTEGER PRIMARY KEY)"); err != nil {
		return fmt.Errorf("not writable: %w", err)
	}
	db.ExecContext(ctx, "DROP TABLE IF EXISTS _doctor_test")
	return nil
}

func checkPort(host string, port int) error {
	ln, err := net.Listen("tcp", fmt.Sprintf("%s:%d", host, port))
	if err != nil {
		return err
	}
	ln.Close()
	return nil
}

func printPass(check, detail string) {
	fmt.Printf("  [PASS] %-20s %s\n", check, detail)
}

func printFail(check, detail string) {
	fmt.Printf("  [FAIL] %-20s %s\n", check, detail)
}

func printWarn(check, detail string) {
	fmt.Printf("  [WARN] %-20s %s\n", check, detail)
}
