package daemon

import (
	"context"
	"fmt"
	"math"
	"sync"
	"time"

	"go.uber.org/zap"
	"golang.org/x/sync/singleflight"
	"google.golang.org/grpc"
	"google.golang.org/grpc/credentials/insecure"

	collectorv1 "github.com/go-tangra/go-tangra-diskhealth/api/collector/v1"
	"github.com/go-tangra/go-tangra-diskhealth/internal/report"
	"github.com/go-tangra/go-tangra-diskhealth/internal/sender"
)

// Config holds agent-mode configuration.
type Config struct {
	CollectorAddr string
	ClientSecret  string
	ClientID      string
	Version       string
	// ScanInterval schedules unsolicited checkups; zero disables them.
	ScanInterval time.Duration
}

// ScanFunc runs one disk checkup.
type ScanFunc func(ctx context.Context) (*report.Report, error)

const (
	baseBackoff = 1 * time.Second
	maxBackoff  = 2 * time.Minute
)

// Daemon submits checkup reports to a collector and serves its commands.
type Daemon struct {
	cfg      Config
	scan     ScanFunc
	log      *zap.Logger
	dialOpts []grpc.DialOption
	scans    singleflight.Group
}

// New creates a daemon. Extra dial options are applied to every collector
// connection.
func New(log *zap.Logger, cfg Config, scan ScanFunc, opts ...grpc.DialOption) *Daemon {
	return &Daemon{
		cfg:      cfg,
		scan:     scan,
		log:      log.With(zap.String("collector", cfg.CollectorAddr), zap.String("client_id", cfg.ClientID)),
		dialOpts: append([]grpc.DialOption{grpc.WithTransportCredentials(insecure.NewCredentials())}, opts...),
	}
}

// Run performs an initial scan-and-submit, then enters a reconnect loop
// that streams commands from the collector until ctx is cancelled.
func (d *Daemon) Run(ctx context.Context) error {
	if err := d.scanAndSend(ctx); err != nil {
		return fmt.Errorf("initial report submit: %w", err)
	}
	d.log.Info("Initial report submitted; entering agent mode")

	var wg sync.WaitGroup
	if d.cfg.ScanInterval > 0 {
		wg.Add(1)
		go func() {
			defer wg.Done()
			d.scheduleLoop(ctx)
		}()
	}

	d.reconnectLoop(ctx)
	wg.Wait()
	return nil
}

func (d *Daemon) scheduleLoop(ctx context.Context) {
	ticker := time.NewTicker(d.cfg.ScanInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if err := d.scanAndSend(ctx); err != nil && ctx.Err() == nil {
				d.log.Warn("Scheduled scan failed", zap.Error(err))
			}
		}
	}
}

func (d *Daemon) reconnectLoop(ctx context.Context) {
	attempt := 0
	for {
		select {
		case <-ctx.Done():
			d.log.Info("Agent shutting down")
			return
		default:
		}

		connected, err := d.streamLoop(ctx)
		if ctx.Err() != nil {
			d.log.Info("Agent shutting down")
			return
		}
		if connected {
			attempt = 0
		}

		attempt++
		backoff := calcBackoff(attempt)
		d.log.Warn("Stream disconnected; reconnecting",
			zap.Int("attempt", attempt), zap.Duration("backoff", backoff), zap.Error(err))

		select {
		case <-ctx.Done():
			return
		case <-time.After(backoff):
		}
	}
}

// streamLoop reports whether the stream was established before it failed.
func (d *Daemon) streamLoop(ctx context.Context) (bool, error) {
	conn, err := grpc.NewClient(d.cfg.CollectorAddr, d.dialOpts...)
	if err != nil {
		return false, fmt.Errorf("dial collector: %w", err)
	}
	defer conn.Close()

	client := collectorv1.NewDiskHealthCollectorServiceClient(conn)

	stream, err := client.StreamCommands(sender.WithSecret(ctx, d.cfg.ClientSecret), &collectorv1.StreamCommandsRequest{
		ClientId:      d.cfg.ClientID,
		ClientVersion: d.cfg.Version,
	})
	if err != nil {
		return false, fmt.Errorf("open stream: %w", err)
	}

	d.log.Info("Connected to collector; waiting for commands")

	for {
		cmd, err := stream.Recv()
		if err != nil {
			return true, fmt.Errorf("recv: %w", err)
		}

		log := d.log.With(zap.String("command_id", cmd.CommandId))
		switch cmd.CommandType {
		case collectorv1.CommandRescan:
			log.Info("Received rescan command")
			if err := d.scanAndSend(ctx); err != nil {
				log.Error("Rescan failed", zap.Error(err))
			} else {
				log.Info("Rescan complete; report re-submitted")
			}
		default:
			log.Warn("Unknown command type, ignoring", zap.String("command_type", string(cmd.CommandType)))
		}
	}
}

// scanAndSend runs a checkup and submits it. Concurrent callers share one
// checkup.
func (d *Daemon) scanAndSend(ctx context.Context) error {
	_, err, _ := d.scans.Do("scan", func() (any, error) {
		rep, err := d.scan(ctx)
		if err != nil {
			return nil, fmt.Errorf("scan: %w", err)
		}

		id, err := sender.Send(ctx, d.cfg.CollectorAddr, d.cfg.ClientSecret, rep, d.dialOpts...)
		if err != nil {
			return nil, err
		}

		d.log.Info("Report submitted",
			zap.Int64("id", id),
			zap.Int("devices", rep.Summary.Total),
			zap.Int("at_risk", rep.Summary.AtRisk))
		return id, nil
	})
	return err
}

func calcBackoff(attempt int) time.Duration {
	attempt = min(max(attempt, 1), 16)
	d := baseBackoff * time.Duration(math.Pow(2, float64(attempt-1)))
	if d > maxBackoff {
		d = maxBackoff
	}
	return d
}
