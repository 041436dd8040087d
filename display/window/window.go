// Package window shows frames in a desktop window.
//
// The window lives on a goroutine locked to its OS thread, since window
// systems expect every call to come from the thread that created the
// window. Open waits for that thread to report whether the window could be
// created.
package window

import (
	"context"
	"fmt"
	"image"
	"runtime"
	"sync"
	"time"

	"emorobot.org/command"
	"emorobot.org/display"
	"github.com/golang/glog"
)

// surface is a native window.
type surface interface {
	// Show displays img scaled to size.
	Show(img image.Image, size image.Point) error
	// Poll handles window events for up to d and returns the key pressed,
	// or -1.
	Poll(d time.Duration) int
	// Visible reports false once the user closed the window.
	Visible() bool
	Close() error
}

// opener creates a surface. A zero size leaves the window size to the
// window system.
type opener func(title string, size image.Point) (surface, error)

// Window is a display.Sink and the source of the window's quit requests.
type Window struct {
	Title string

	// size is the size every frame is scaled to, or zero to fit each
	// frame to height.
	size   image.Point
	height int

	frames *mailbox
	quit   chan struct{}
	stop   chan struct{}
	done   chan struct{}
	once   sync.Once
}

// keyDelay is how long each event pump waits for a key.
const keyDelay = 10 * time.Millisecond

// open starts the window thread and waits for the window. Frames of the
// given size are shown at the given height; a zero frame size scales every
// frame by its own aspect ratio.
func open(ctx context.Context, title string, frame image.Point, height int, newSurface opener) (*Window, error) {
	w := &Window{
		Title:  title,
		height: height,
		frames: newMailbox(),
		quit:   make(chan struct{}),
		stop:   make(chan struct{}),
		done:   make(chan struct{}),
	}
	if frame != (image.Point{}) {
		w.size = display.FitHeight(frame, height)
	}
	ready := make(chan error, 1)
	go w.loop(ctx, newSurface, ready)
	select {
	case err := <-ready:
		if err != nil {
			return nil, fmt.Errorf("window: %w: %v", display.ErrUnavailable, err)
		}
		glog.Infof("window: opened %q, frames scaled to %v", title, w.size)
		return w, nil
	case <-ctx.Done():
		w.Close()
		return nil, fmt.Errorf("window: %w", ctx.Err())
	}
}

func (w *Window) loop(ctx context.Context, newSurface opener, ready chan<- error) {
	defer close(w.done)
	runtime.LockOSThread()
	defer runtime.UnlockOSThread()
	s, err := newSurface(w.Title, w.size)
	ready <- err
	if err != nil {
		return
	}
	defer s.Close()
	shown := false
	for {
		select {
		case <-ctx.Done():
			return
		case <-w.stop:
			return
		default:
		}
		if img, ok := w.frames.take(); ok {
			size := w.size
			if size == (image.Point{}) {
				size = display.FitHeight(img.Bounds().Size(), w.height)
			}
			if err := s.Show(img, size); err != nil {
				glog.Warningf("window: %v", err)
			} else {
				shown = true
			}
		}
		key := s.Poll(keyDelay)
		if key == 'q' || key == 'Q' {
			glog.Info("window: q pressed")
			close(w.quit)
			return
		}
		if shown && !s.Visible() {
			glog.Info("window: closed")
			close(w.quit)
			return
		}
	}
}

// Size returns the size frames are scaled to, or zero if each frame is
// fitted to the window height on its own.
func (w *Window) Size() image.Point {
	return w.size
}

// Render queues img for the window thread.
func (w *Window) Render(img image.Image) error {
	w.frames.put(img)
	return nil
}

// Close destroys the window and waits for its thread to finish.
func (w *Window) Close() error {
	w.once.Do(func() { close(w.stop) })
	<-w.done
	return nil
}

func (w *Window) Name() string {
	return "window " + w.Title
}

// Run sends quit when q is pressed in the window or the window is closed.
func (w *Window) Run(ctx context.Context, q *command.Queue) error {
	select {
	case <-w.quit:
		q.Push(command.Quit)
	case <-ctx.Done():
	}
	return nil
}

// hasDisplay reports whether a window system is reachable on goos.
func hasDisplay(goos string, getenv func(string) string) bool {
	switch goos {
	case "windows", "darwin", "ios", "android":
		return true
	}
	return getenv("DISPLAY") != "" || getenv("WAYLAND_DISPLAY") != ""
}

var _ display.Sink = (*Window)(nil)
