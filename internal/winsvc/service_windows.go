//go:build windows

package winsvc

import (
	"context"
	"errors"
	"fmt"
	"os"
	"time"

	"go.uber.org/zap"
	"golang.org/x/sys/windows/svc"
	"golang.org/x/sys/windows/svc/eventlog"
	"golang.org/x/sys/windows/svc/mgr"
)

const (
	stopTimeout        = 30 * time.Second
	stopPollInterval   = 500 * time.Millisecond
	failureResetPeriod = 24 * time.Hour
	eventTypes         = eventlog.Error | eventlog.Warning | eventlog.Info
)

// restartPolicy restarts a failed service twice, then leaves it stopped
// until failureResetPeriod passes without another failure.
var restartPolicy = []mgr.RecoveryAction{
	{Type: mgr.ServiceRestart, Delay: 10 * time.Second},
	{Type: mgr.ServiceRestart, Delay: 30 * time.Second},
	{Type: mgr.NoAction},
}

// EventLogger opens the named event log source and returns a logger that
// writes to it at log's level. If the source cannot be opened, log is
// returned unchanged.
func EventLogger(name string, log *zap.Logger) *zap.Logger {
	elog, err := eventlog.Open(name)
	if err != nil {
		log.Warn("Event log unavailable; keeping stderr logging", zap.String("source", name), zap.Error(err))
		return log
	}
	return withEventCore(log, elog)
}

// IsWindowsService reports whether the SCM started this process.
func IsWindowsService() bool {
	ok, err := svc.IsWindowsService()
	return err == nil && ok
}

// handler adapts a blocking run function to the SCM control protocol.
type handler struct {
	name string
	log  *zap.Logger
	run  func(ctx context.Context) error
}

func (h *handler) Execute(_ []string, req <-chan svc.ChangeRequest, changes chan<- svc.Status) (bool, uint32) {
	const accepts = svc.AcceptStop | svc.AcceptShutdown
	changes <- svc.Status{State: svc.StartPending}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	done := make(chan error, 1)
	go func() { done <- h.run(ctx) }()

	changes <- svc.Status{State: svc.Running, Accepts: accepts}
	h.log.Info("Service running", zap.String("service", h.name))

	for {
		select {
		case err := <-done:
			changes <- svc.Status{State: svc.StopPending}
			return h.exitCode(err)

		case cr := <-req:
			switch cr.Cmd {
			case svc.Interrogate:
				changes <- cr.CurrentStatus
			case svc.Stop, svc.Shutdown:
				changes <- svc.Status{State: svc.StopPending, WaitHint: uint32(stopTimeout / time.Millisecond)}
				cancel()
				h.awaitStop(done)
				return false, 0
			default:
				h.log.Warn("Unexpected service control request",
					zap.String("service", h.name), zap.Uint32("cmd", uint32(cr.Cmd)))
			}
		}
	}
}

// exitCode reports a run error as a service-specific exit code so the SCM
// applies the recovery policy.
func (h *handler) exitCode(err error) (bool, uint32) {
	if err == nil || errors.Is(err, context.Canceled) {
		h.log.Info("Service finished", zap.String("service", h.name))
		return false, 0
	}
	h.log.Error("Service stopped with error", zap.String("service", h.name), zap.Error(err))
	return true, 1
}

func (h *handler) awaitStop(done <-chan error) {
	select {
	case err := <-done:
		if err != nil && !errors.Is(err, context.Canceled) {
			h.log.Warn("Service returned an error while stopping", zap.String("service", h.name), zap.Error(err))
		}
	case <-time.After(stopTimeout):
		h.log.Warn("Timed out waiting for graceful shutdown",
			zap.String("service", h.name), zap.Duration("timeout", stopTimeout))
	}
}

// RunService hands the process to the SCM and blocks until the service
// stops. run's context is cancelled on a stop or shutdown request.
func RunService(name string, log *zap.Logger, run func(ctx context.Context) error) error {
	return svc.Run(name, &handler{name: name, log: log, run: run})
}

// Install registers an auto-start service for exePath, applies the restart
// policy and creates the event log source.
func Install(log *zap.Logger, cfg Config, exePath string) error {
	if err := cfg.Validate(); err != nil {
		return err
	}

	m, err := mgr.Connect()
	if err != nil {
		return fmt.Errorf("connect to SCM: %w", err)
	}
	defer m.Disconnect()

	if s, err := m.OpenService(cfg.Name); err == nil {
		s.Close()
		return fmt.Errorf("%w: %s", ErrExists, cfg.Name)
	}

	s, err := m.CreateService(cfg.Name, exePath, mgr.Config{
		DisplayName:      cfg.DisplayName,
		Description:      cfg.Description,
		StartType:        mgr.StartAutomatic,
		DelayedAutoStart: cfg.DelayedStart,
		Dependencies:     cfg.Dependencies,
	}, cfg.Args...)
	if err != nil {
		return fmt.Errorf("create service %s: %w", cfg.Name, err)
	}
	defer s.Close()

	if err := s.SetRecoveryActions(restartPolicy, uint32(failureResetPeriod/time.Second)); err != nil {
		log.Warn("Could not set service recovery actions", zap.String("service", cfg.Name), zap.Error(err))
	}
	// A run error exits with a service-specific code, not a crash.
	if err := s.SetRecoveryActionsOnNonCrashFailures(true); err != nil {
		log.Warn("Could not enable recovery on error exits", zap.String("service", cfg.Name), zap.Error(err))
	}
	if err := eventlog.InstallAsEventCreate(cfg.Name, eventTypes); err != nil {
		log.Warn("Could not install event log source", zap.String("service", cfg.Name), zap.Error(err))
	}

	log.Debug("Service registered",
		zap.String("service", cfg.Name),
		zap.String("exe", exePath),
		zap.Strings("args", cfg.Args),
		zap.Strings("depends_on", cfg.Dependencies))
	return nil
}

// Uninstall stops the named service if it is running, then removes it and
// its event log source.
func Uninstall(log *zap.Logger, name string) error {
	m, err := mgr.Connect()
	if err != nil {
		return fmt.Errorf("connect to SCM: %w", err)
	}
	defer m.Disconnect()

	s, err := m.OpenService(name)
	if err != nil {
		return fmt.Errorf("open service %s: %w", name, err)
	}
	defer s.Close()

	if err := stopAndWait(s, stopTimeout); err != nil {
		log.Warn("Service did not stop before removal", zap.String("service", name), zap.Error(err))
	}

	if err := s.Delete(); err != nil {
		return fmt.Errorf("delete service %s: %w", name, err)
	}
	if err := eventlog.Remove(name); err != nil {
		log.Debug("Event log source not removed", zap.String("service", name), zap.Error(err))
	}
	return nil
}

func stopAndWait(s *mgr.Service, timeout time.Duration) error {
	st, err := s.Query()
	if err != nil {
		return fmt.Errorf("query state: %w", err)
	}
	if st.State == svc.Stopped {
		return nil
	}
	if st.State != svc.StopPending {
		if _, err := s.Control(svc.Stop); err != nil {
			return fmt.Errorf("send stop: %w", err)
		}
	}

	deadline := time.Now().Add(timeout)
	for time.Now().Before(deadline) {
		time.Sleep(stopPollInterval)
		if st, err = s.Query(); err != nil {
			return fmt.Errorf("query state: %w", err)
		}
		if st.State == svc.Stopped {
			return nil
		}
	}
	return fmt.Errorf("state %d after %s", st.State, timeout)
}

// ExePath returns the path of the running executable.
func ExePath() (string, error) {
	p, err := os.Executable()
	if err != nil {
		return "", fmt.Errorf("determine executable path: %w", err)
	}
	return p, nil
}
