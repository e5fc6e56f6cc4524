package utils

import (
	"context"
	"io"
)

// TryClose closes v if it has a Close method, with or without a context.
func TryClose(ctx context.Context, v interface{}) error {
	switch c := v.(type) {
	case interface{ Close(context.Context) error }:
		return c.Close(ctx)
	case io.Closer:
		return c.Close()
	default:
		return nil
	}
}
