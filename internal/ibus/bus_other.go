//go:build !linux

package ibus

import "context"

// Serve is only available on Linux.
func Serve(ctx context.Context, address, name string, e *Engine) error {
	return ErrUnsupported
}
