package input

import (
	"context"
	"io"
	"os"
	"time"

	"golang.org/x/sys/unix"
)

const pollInterval = 100 * time.Millisecond

// pollReader reads a file descriptor without blocking past ctx.
type pollReader struct {
	ctx context.Context
	f   *os.File
}

func (p *pollReader) Read(b []byte) (int, error) {
	fds := []unix.PollFd{{Fd: int32(p.f.Fd()), Events: unix.POLLIN}}
	for {
		if p.ctx.Err() != nil {
			return 0, io.EOF
		}
		n, err := unix.Poll(fds, int(pollInterval/time.Millisecond))
		if err == unix.EINTR {
			continue
		}
		if err != nil {
			return 0, err
		}
		if n > 0 {
			return p.f.Read(b)
		}
	}
}

func cancelable(ctx context.Context, r io.Reader) io.Reader {
	if f, ok := r.(*os.File); ok {
		return &pollReader{ctx: ctx, f: f}
	}
	return r
}
