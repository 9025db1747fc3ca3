//go:build !windows

package winsvc

import (
	"context"
	"errors"

	"go.uber.org/zap"
)

// ErrUnsupported is returned by service management calls outside Windows.
var ErrUnsupported = errors.New("windows services are not supported on this platform")

// IsWindowsService always returns false on non-Windows platforms.
func IsWindowsService() bool { return false }

// EventLogger returns log unchanged on non-Windows platforms.
func EventLogger(_ string, log *zap.Logger) *zap.Logger { return log }

// RunService is not supported on non-Windows platforms.
func RunService(_ string, _ *zap.Logger, _ func(ctx context.Context) error) error {
	return ErrUnsupported
}

// Install is not supported on non-Windows platforms.
func Install(_ *zap.Logger, cfg Config, _ string) error {
	if err := cfg.Validate(); err != nil {
		return err
	}
	return ErrUnsupported
}

// Uninstall is not supported on non-Windows platforms.
func Uninstall(_ *zap.Logger, _ string) error {
	return ErrUnsupported
}

// ExePath is only meaningful on Windows.
func ExePath() (string, error) {
	return "", ErrUnsupported
}
