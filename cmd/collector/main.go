package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/go-tangra/go-tangra-diskhealth/cmd/collector/assets"
	"github.com/go-tangra/go-tangra-diskhealth/internal/config"
	"github.com/go-tangra/go-tangra-diskhealth/internal/logging"
	"github.com/go-tangra/go-tangra-diskhealth/internal/server"
	"github.com/go-tangra/go-tangra-diskhealth/internal/store"
	"github.com/go-tangra/go-tangra-diskhealth/internal/winsvc"
)

var (
	version    = "dev"
	commitHash = "unknown"
	buildDate  = "unknown"
)

var cfgFile string

var rootCmd = &cobra.Command{
	Use:   "diskhealth-collector",
	Short: "Disk Health Collector - gRPC daemon that archives disk checkup reports",
	Long: `Disk Health Collector receives disk health reports via gRPC from diskcheck
agents, stores them in a local SQLite database and serves them over REST.

Run without a subcommand to start the daemon (equivalent to 'serve').`,
	SilenceUsage: true,
	RunE:         runServe,
}

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Start the gRPC collector daemon",
	RunE:  runServe,
}

var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "Print version information",
	Run: func(cmd *cobra.Command, args []string) {
		fmt.Printf("diskhealth-collector %s (commit: %s, built: %s)\n", version, commitHash, buildDate)
	},
}

var purgeCmd = &cobra.Command{
	Use:   "purge",
	Short: "Purge reports older than the specified number of days",
	RunE:  runPurge,
}

var purgeDays int

const serviceName = "TangraDiskHealthCollector"

var serviceCmd = &cobra.Command{
	Use:   "service",
	Short: "Manage Windows service installation",
}

var serviceInstallCmd = &cobra.Command{
	Use:   "install",
	Short: "Install as a Windows service",
	RunE:  runServiceInstall,
}

var serviceUninstallCmd = &cobra.Command{
	Use:   "uninstall",
	Short: "Uninstall the Windows service",
	RunE:  runServiceUninstall,
}

func init() {
	rootCmd.PersistentFlags().StringVar(&cfgFile, "config", "", "config file (default: ./configs/collector.yaml)")
	rootCmd.PersistentFlags().String("listen", "", "gRPC listen address (default :9560)")
	rootCmd.PersistentFlags().String("http-listen", "", "HTTP listen address for the REST API and Swagger UI (default :9561)")
	rootCmd.PersistentFlags().String("database", "", "SQLite database path (default diskhealth.db)")
	rootCmd.PersistentFlags().String("client-secret", "", "secret for gRPC agents (empty = no auth)")
	rootCmd.PersistentFlags().String("api-secret", "", "secret for REST API clients (empty = no auth)")
	rootCmd.PersistentFlags().Int("retention-days", 0, "purge reports older than this many days, 0 keeps everything")
	rootCmd.PersistentFlags().String("log-level", "", "log level: debug, info, warn or error")

	purgeCmd.Flags().IntVar(&purgeDays, "days", 90, "purge reports older than this many days")

	serviceCmd.AddCommand(serviceInstallCmd)
	serviceCmd.AddCommand(serviceUninstallCmd)

	rootCmd.AddCommand(serveCmd)
	rootCmd.AddCommand(versionCmd)
	rootCmd.AddCommand(purgeCmd)
	rootCmd.AddCommand(serviceCmd)
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

func setup(cmd *cobra.Command) (*config.Collector, *zap.Logger, error) {
	cfg, err := config.LoadCollector(cfgFile, cmd.Flags())
	if err != nil {
		return nil, nil, fmt.Errorf("load config: %w", err)
	}
	log, err := logging.New(cfg.Log)
	if err != nil {
		return nil, nil, err
	}
	return cfg, log, nil
}

func runServe(cmd *cobra.Command, args []string) error {
	cfg, log, err := setup(cmd)
	if err != nil {
		return err
	}
	defer func() { _ = log.Sync() }()

	// Windows service mode.
	if winsvc.IsWindowsService() {
		svcLog := winsvc.EventLogger(serviceName, log)
		return winsvc.RunService(serviceName, svcLog, func(ctx context.Context) error {
			return server.Run(ctx, svcLog, cfg, assets.OpenApiData)
		})
	}

	// Interactive mode: shut down on SIGINT / SIGTERM.
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	log.Info("Starting disk health collector", zap.String("version", version))
	return server.Run(ctx, log, cfg, assets.OpenApiData)
}

func runServiceInstall(cmd *cobra.Command, _ []string) error {
	_, log, err := setup(cmd)
	if err != nil {
		return err
	}

	exePath, err := winsvc.ExePath()
	if err != nil {
		return err
	}

	svcArgs := []string{"serve"}
	if cfgFile != "" {
		svcArgs = append(svcArgs, "--config", cfgFile)
	}

	if err := winsvc.Install(log, winsvc.Config{
		Name:        serviceName,
		DisplayName: "Tangra Disk Health Collector",
		Description: "Receives disk health reports from agents via gRPC and stores them locally.",
		Args:        svcArgs,
	}, exePath); err != nil {
		return err
	}

	log.Info("Service installed", zap.String("service", serviceName))
	return nil
}

func runServiceUninstall(cmd *cobra.Command, _ []string) error {
	_, log, err := setup(cmd)
	if err != nil {
		return err
	}
	if err := winsvc.Uninstall(log, serviceName); err != nil {
		return err
	}
	log.Info("Service uninstalled", zap.String("service", serviceName))
	return nil
}

func runPurge(cmd *cobra.Command, args []string) error {
	cfg, log, err := setup(cmd)
	if err != nil {
		return err
	}
	defer func() { _ = log.Sync() }()

	db, err := store.New(cfg.DatabasePath)
	if err != nil {
		return fmt.Errorf("open database: %w", err)
	}
	defer db.Close()

	n, err := db.Purge(cmd.Context(), time.Duration(purgeDays)*24*time.Hour)
	if err != nil {
		return fmt.Errorf("purge: %w", err)
	}

	fmt.Printf("Purged %d reports older than %d days\n", n, purgeDays)
	return nil
}
