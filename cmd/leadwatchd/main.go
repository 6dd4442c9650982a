package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"leadwatch/app"
	"leadwatch/internal/profile"
	"leadwatch/internal/version"
	"leadwatch/store/db"
)

var rootCmd = &cobra.Command{
	Use:   "leadwatchd",
	Short: "Monitors Telegram chats for keyword matches and delivers notifications to subscribed leads.",
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		if !isRunningAsSystemdService() {
			_ = godotenv.Load()
		}
		return nil
	},
	RunE: func(cmd *cobra.Command, args []string) error {
		instanceProfile := &profile.Profile{
			Mode:        viper.GetString("mode"),
			Addr:        viper.GetString("addr"),
			Port:        viper.GetInt("port"),
			Data:        viper.GetString("data"),
			Driver:      viper.GetString("driver"),
			DSN:         viper.GetString("dsn"),
			SessionsDir: viper.GetString("sessions-dir"),
			ConfigFile:  viper.GetString("config-file"),
			Version:     version.GetCurrentVersion(viper.GetString("mode")),
		}
		instanceProfile.FromEnv()
		if err := instanceProfile.Validate(); err != nil {
			return fmt.Errorf("invalid configuration: %w", err)
		}

		ctx, cancel := context.WithCancel(context.Background())
		defer cancel()

		a, err := app.New(instanceProfile, slog.Default())
		if err != nil {
			return fmt.Errorf("failed to wire daemon: %w", err)
		}

		if err := a.Start(ctx); err != nil {
			return fmt.Errorf("failed to start daemon: %w", err)
		}

		printGreetings(instanceProfile)

		c := make(chan os.Signal, 1)
		signal.Notify(c, terminationSignals...)

		<-c
		shutdownCtx, shutdownCancel := context.WithTimeout(ctx, 10*time.Second)
		defer shutdownCancel()
		a.Stop(shutdownCtx)
		return nil
	},
}

var migrateCmd = &cobra.Command{
	Use:   "migrate",
	Short: "Apply pending schema migrations and exit.",
	RunE: func(cmd *cobra.Command, args []string) error {
		instanceProfile := &profile.Profile{
			Mode:   viper.GetString("mode"),
			Data:   viper.GetString("data"),
			Driver: viper.GetString("driver"),
			DSN:    viper.GetString("dsn"),
		}
		instanceProfile.FromEnv()
		if err := instanceProfile.Validate(); err != nil {
			return fmt.Errorf("invalid configuration: %w", err)
		}

		driver, err := db.NewDBDriver(instanceProfile)
		if err != nil {
			return fmt.Errorf("failed to open database: %w", err)
		}
		if err := driver.Migrate(context.Background()); err != nil {
			return fmt.Errorf("migration failed: %w", err)
		}
		fmt.Println("migration complete")
		return nil
	},
}

func init() {
	viper.SetDefault("mode", "dev")
	viper.SetDefault("driver", "sqlite")
	viper.SetDefault("port", 28181)

	rootCmd.PersistentFlags().String("mode", "dev", `mode of the daemon, can be "prod", "dev", or "demo"`)
	rootCmd.PersistentFlags().String("addr", "", "address the HTTP surface binds to")
	rootCmd.PersistentFlags().Int("port", 28181, "port the HTTP surface binds to")
	rootCmd.PersistentFlags().String("data", "", "data directory")
	rootCmd.PersistentFlags().String("driver", "sqlite", "database driver (sqlite, postgres)")
	rootCmd.PersistentFlags().String("dsn", "", "database source name (DSN)")
	rootCmd.PersistentFlags().String("sessions-dir", "", "root directory for realtime/history session credentials")
	rootCmd.PersistentFlags().String("config-file", "", "path to the hot-reloadable parameters file")

	for _, name := range []string{"mode", "addr", "port", "data", "driver", "dsn", "sessions-dir", "config-file"} {
		if err := viper.BindPFlag(name, rootCmd.PersistentFlags().Lookup(name)); err != nil {
			panic(err)
		}
	}

	viper.SetEnvPrefix("leadwatch")
	viper.AutomaticEnv()
	viper.SetEnvKeyReplacer(strings.NewReplacer(".", "_", "-", "_"))

	rootCmd.AddCommand(migrateCmd)
}

func printGreetings(p *profile.Profile) {
	fmt.Printf("leadwatchd %s started\n", p.Version)
	fmt.Printf("Mode: %s\n", p.Mode)
	fmt.Printf("Data directory: %s\n", p.Data)
	fmt.Printf("Database driver: %s\n", p.Driver)
	if p.Addr == "" {
		fmt.Printf("HTTP surface listening on port %d\n", p.Port)
	} else {
		fmt.Printf("HTTP surface listening on %s:%d\n", p.Addr, p.Port)
	}
}

func isRunningAsSystemdService() bool {
	return os.Getenv("INVOCATION_ID") != "" || os.Getenv("WATCHDOG_USEC") != ""
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		slog.Error("leadwatchd exited with error", slog.String("error", err.Error()))
		os.Exit(1)
	}
}
