//go:build windows

package source

import (
	"context"
	"errors"
	"fmt"

	"github.com/yusufpapurcu/wmi"
)

func wmiQuery(_ context.Context, query, namespace string, dst any) error {
	var err error
	if namespace == "" {
		err = wmi.Query(query, dst)
	} else {
		err = wmi.Query(query, dst, nil, namespace)
	}

	// Rows decode fine when the provider exposes extra or differently typed
	// properties; the fields we need are still populated.
	var mismatch *wmi.ErrFieldMismatch
	if errors.As(err, &mismatch) {
		return nil
	}
	if isProviderMissing(err) {
		return fmt.Errorf("%w: %v", ErrUnavailable, err)
	}
	return err
}
