package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"os/signal"
	"strconv"
	"syscall"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/go-tangra/go-tangra-diskhealth/internal/checkup"
	"github.com/go-tangra/go-tangra-diskhealth/internal/config"
	"github.com/go-tangra/go-tangra-diskhealth/internal/daemon"
	"github.com/go-tangra/go-tangra-diskhealth/internal/logging"
	"github.com/go-tangra/go-tangra-diskhealth/internal/report"
	"github.com/go-tangra/go-tangra-diskhealth/internal/sender"
	"github.com/go-tangra/go-tangra-diskhealth/internal/volume"
	"github.com/go-tangra/go-tangra-diskhealth/internal/winsvc"
)

var (
	version    = "dev"
	commitHash = "unknown"
	buildDate  = "unknown"
)

// exitAtRisk is the exit status of scan --exit-code when a device is at risk.
const exitAtRisk = 2

const serviceName = "TangraDiskHealthAgent"

var (
	cfgFile    string
	outputFile string
	exitCode   bool
)

var rootCmd = &cobra.Command{
	Use:   "diskcheck",
	Short: "Disk health checkup - reconcile storage health from every Windows source",
	Long: `diskcheck queries the disk enumeration, physical disk and failure prediction
providers, reconciles their records into one entry per physical device and
marks the disks backing the target volumes.

Run without a subcommand to print a checkup report (equivalent to 'scan').`,
	SilenceUsage:  true,
	SilenceErrors: true,
	RunE:          runScan,
}

var scanCmd = &cobra.Command{
	Use:   "scan",
	Short: "Run a checkup and print the report",
	RunE:  runScan,
}

var submitCmd = &cobra.Command{
	Use:   "submit",
	Short: "Run a checkup and submit the report to a collector",
	RunE:  runSubmit,
}

var agentCmd = &cobra.Command{
	Use:   "agent",
	Short: "Submit reports and serve collector commands until stopped",
	RunE:  runAgent,
}

var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "Print version information",
	Run: func(cmd *cobra.Command, args []string) {
		fmt.Printf("diskcheck %s (commit: %s, built: %s)\n", version, commitHash, buildDate)
	},
}

var serviceCmd = &cobra.Command{
	Use:   "service",
	Short: "Manage Windows service installation",
}

var serviceInstallCmd = &cobra.Command{
	Use:   "install",
	Short: "Install the agent as a Windows service",
	RunE:  runServiceInstall,
}

var serviceUninstallCmd = &cobra.Command{
	Use:   "uninstall",
	Short: "Uninstall the Windows service",
	RunE:  runServiceUninstall,
}

func init() {
	rootCmd.PersistentFlags().StringVar(&cfgFile, "config", "", "config file (default: ./configs/diskcheck.yaml)")
	rootCmd.PersistentFlags().String("log-level", "", "log level: debug, info, warn or error")
	rootCmd.PersistentFlags().StringSlice("volume", nil, "target volume to check, repeatable (default: the system volume)")
	rootCmd.PersistentFlags().IntSlice("disk", nil, "disk number to mark as target, repeatable")
	rootCmd.PersistentFlags().Duration("timeout", 0, "per-source timeout (default 30s)")

	for _, c := range []*cobra.Command{rootCmd, scanCmd} {
		c.Flags().String("format", "", "output format: text, json or yaml")
		c.Flags().StringVarP(&outputFile, "output", "o", "", "write the report to a file instead of stdout")
		c.Flags().BoolVar(&exitCode, "exit-code", false, "exit with status 2 when any device is at risk")
	}

	for _, c := range []*cobra.Command{submitCmd, agentCmd, serviceInstallCmd} {
		c.Flags().String("collector", "", "collector gRPC address (host:port)")
		c.Flags().String("client-secret", "", "shared secret for the collector")
	}
	for _, c := range []*cobra.Command{agentCmd, serviceInstallCmd} {
		c.Flags().String("client-id", "", "agent identity on the command stream (default: hostname)")
		c.Flags().Duration("scan-interval", 0, "interval between unsolicited checkups, 0 to disable (default 6h)")
	}

	serviceCmd.AddCommand(serviceInstallCmd)
	serviceCmd.AddCommand(serviceUninstallCmd)

	rootCmd.AddCommand(scanCmd)
	rootCmd.AddCommand(submitCmd)
	rootCmd.AddCommand(agentCmd)
	rootCmd.AddCommand(serviceCmd)
	rootCmd.AddCommand(versionCmd)
}

type exitError struct{ code int }

func (e exitError) Error() string { return fmt.Sprintf("exit status %d", e.code) }

func main() {
	if err := rootCmd.Execute(); err != nil {
		var ee exitError
		if errors.As(err, &ee) {
			os.Exit(ee.code)
		}
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

// setup loads configuration and builds the logger for cmd.
func setup(cmd *cobra.Command) (*config.Agent, *zap.Logger, error) {
	cfg, err := config.LoadAgent(cfgFile, cmd.Flags())
	if err != nil {
		return nil, nil, fmt.Errorf("load config: %w", err)
	}
	log, err := logging.New(cfg.Log)
	if err != nil {
		return nil, nil, err
	}
	return cfg, log, nil
}

func newCheckup(log *zap.Logger, cfg *config.Agent) *checkup.Checkup {
	volumes := cfg.Volumes
	if len(volumes) == 0 && len(cfg.Disks) == 0 {
		volumes = []string{volume.SystemVolume()}
	}
	return checkup.New(log, checkup.Options{
		Volumes: volumes,
		Disks:   cfg.Disks,
		Timeout: cfg.SourceTimeout,
	})
}

func signalContext() (context.Context, context.CancelFunc) {
	return signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
}

func runScan(cmd *cobra.Command, _ []string) error {
	cfg, log, err := setup(cmd)
	if err != nil {
		return err
	}
	defer func() { _ = log.Sync() }()

	format, err := report.ParseFormat(cfg.Format)
	if err != nil {
		return err
	}

	ctx, stop := signalContext()
	defer stop()

	rep, err := newCheckup(log, cfg).Run(ctx)
	if err != nil {
		return fmt.Errorf("checkup: %w", err)
	}

	var w io.Writer = os.Stdout
	if outputFile != "" {
		f, err := os.Create(outputFile)
		if err != nil {
			return fmt.Errorf("create output file: %w", err)
		}
		defer f.Close()
		w = f
	}

	if err := report.Encode(w, rep, format); err != nil {
		return fmt.Errorf("write report: %w", err)
	}
	if outputFile != "" {
		log.Info("Report written", zap.String("path", outputFile))
	}

	if exitCode && !rep.Healthy() {
		return exitError{code: exitAtRisk}
	}
	return nil
}

func runSubmit(cmd *cobra.Command, _ []string) error {
	cfg, log, err := setup(cmd)
	if err != nil {
		return err
	}
	defer func() { _ = log.Sync() }()

	if cfg.Collector.Address == "" {
		return errors.New("collector address is required (--collector or collector.address)")
	}

	ctx, stop := signalContext()
	defer stop()

	rep, err := newCheckup(log, cfg).Run(ctx)
	if err != nil {
		return fmt.Errorf("checkup: %w", err)
	}

	id, err := sender.Send(ctx, cfg.Collector.Address, cfg.Collector.ClientSecret, rep)
	if err != nil {
		return err
	}

	log.Info("Report submitted",
		zap.Int64("id", id),
		zap.String("collector", cfg.Collector.Address),
		zap.Int("devices", rep.Summary.Total),
		zap.Int("at_risk", rep.Summary.AtRisk))
	return nil
}

func runAgent(cmd *cobra.Command, _ []string) error {
	cfg, log, err := setup(cmd)
	if err != nil {
		return err
	}
	defer func() { _ = log.Sync() }()

	if cfg.Collector.Address == "" {
		return errors.New("collector address is required (--collector or collector.address)")
	}

	clientID := cfg.Collector.ClientID
	if clientID == "" {
		if clientID, err = os.Hostname(); err != nil {
			return fmt.Errorf("determine client id: %w", err)
		}
	}

	run := func(ctx context.Context, log *zap.Logger) error {
		c := newCheckup(log, cfg)
		return daemon.New(log, daemon.Config{
			CollectorAddr: cfg.Collector.Address,
			ClientSecret:  cfg.Collector.ClientSecret,
			ClientID:      clientID,
			Version:       version,
			ScanInterval:  cfg.ScanInterval,
		}, c.Run).Run(ctx)
	}

	if winsvc.IsWindowsService() {
		svcLog := winsvc.EventLogger(serviceName, log)
		return winsvc.RunService(serviceName, svcLog, func(ctx context.Context) error {
			return run(ctx, svcLog)
		})
	}

	ctx, stop := signalContext()
	defer stop()

	return run(ctx, log)
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

	// Forward explicitly set flags to the service command line.
	svcArgs := []string{"agent"}
	if cfgFile != "" {
		svcArgs = append(svcArgs, "--config", cfgFile)
	}
	for _, name := range []string{"collector", "client-secret", "client-id", "scan-interval", "log-level", "timeout"} {
		if f := cmd.Flags().Lookup(name); f != nil && f.Changed {
			svcArgs = append(svcArgs, "--"+name, f.Value.String())
		}
	}
	if cmd.Flags().Changed("volume") {
		vols, _ := cmd.Flags().GetStringSlice("volume")
		for _, v := range vols {
			svcArgs = append(svcArgs, "--volume", v)
		}
	}
	if cmd.Flags().Changed("disk") {
		disks, _ := cmd.Flags().GetIntSlice("disk")
		for _, n := range disks {
			svcArgs = append(svcArgs, "--disk", strconv.Itoa(n))
		}
	}

	// Every source is a WMI provider, so the agent waits for the WMI service.
	if err := winsvc.Install(log, winsvc.Config{
		Name:         serviceName,
		DisplayName:  "Tangra Disk Health Agent",
		Description:  "Runs disk health checkups and reports them to the Tangra disk health collector.",
		Args:         svcArgs,
		Dependencies: []string{"Winmgmt"},
		DelayedStart: true,
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
