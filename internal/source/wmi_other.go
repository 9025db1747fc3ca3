//go:build !windows

package source

import (
	"context"
	"fmt"
)

func wmiQuery(_ context.Context, query, _ string, _ any) error {
	return fmt.Errorf("%w: %q needs wmi, which is windows only", ErrUnavailable, query)
}
