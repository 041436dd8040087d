//go:build !linux

package input

import (
	"context"
	"io"
)

// cancelable returns r as is; a blocked console read is abandoned at
// shutdown.
func cancelable(ctx context.Context, r io.Reader) io.Reader {
	return r
}
