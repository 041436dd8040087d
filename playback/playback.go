// Package playback plays an emotion's frame sequence on a display at a fixed
// frame rate, stopping early when a command is waiting.
package playback

import (
	"context"
	"image"
	"time"

	"emorobot.org/display"
	"emorobot.org/frames"
	"github.com/golang/glog"
	"github.com/google/uuid"
)

// Outcome is how a Play call ended.
type Outcome int

const (
	// Completed means a one-shot sequence ran to the end (or was empty).
	Completed Outcome = iota
	// Interrupted means a command arrived. The command is left queued.
	Interrupted
	// Aborted means the robot is shutting down.
	Aborted
)

func (o Outcome) String() string {
	switch o {
	case Completed:
		return "completed"
	case Interrupted:
		return "interrupted"
	case Aborted:
		return "aborted"
	default:
		return "invalid"
	}
}

// Session is one decision to play frames.
type Session struct {
	ID      uuid.UUID
	Emotion string
	Frames  []frames.Frame
	FPS     int
	Loop    bool
	// Transition marks the accelerated neutral bridge played before a
	// requested emotion.
	Transition bool
}

// NewSession returns a session with a fresh ID.
func NewSession(emotion string, seq []frames.Frame, fps int, loop bool) Session {
	return Session{
		ID:      uuid.New(),
		Emotion: emotion,
		Frames:  seq,
		FPS:     fps,
		Loop:    loop,
	}
}

// Images decodes frames.
type Images interface {
	Image(f frames.Frame) (image.Image, error)
}

// Engine plays sessions. It only ever looks at whether a command is
// pending; consuming commands is up to the caller.
type Engine struct {
	sink    display.Sink
	images  Images
	pending func() bool
	// Hold is how long a one-shot sequence keeps its last frame.
	Hold time.Duration
}

func New(sink display.Sink, images Images, pending func() bool) *Engine {
	return &Engine{
		sink:    sink,
		images:  images,
		pending: pending,
		Hold:    500 * time.Millisecond,
	}
}

// Play renders the session's frames in order, sleeping 1/FPS after each.
// It returns Aborted as soon as ctx is done and Interrupted before the next
// frame once a command is pending. A looping session only ends that way; a
// one-shot session holds its final frame for Hold and returns Completed.
func (e *Engine) Play(ctx context.Context, s Session) Outcome {
	if len(s.Frames) == 0 {
		glog.Warningf("playback: no frames for emotion %s", s.Emotion)
		return Completed
	}
	fps := s.FPS
	if fps <= 0 {
		glog.Warningf("playback: %s: invalid frame rate %d, using 1", s.Emotion, fps)
		fps = 1
	}
	delay := time.Second / time.Duration(fps)
	if glog.V(1) {
		glog.Infof("playback: %s session %s: %d frames at %d fps, loop %v, transition %v",
			s.Emotion, s.ID, len(s.Frames), fps, s.Loop, s.Transition)
	}
	for {
		for _, f := range s.Frames {
			if ctx.Err() != nil {
				return Aborted
			}
			if e.pending() {
				return Interrupted
			}
			e.show(f)
			if !sleep(ctx, delay) {
				return Aborted
			}
		}
		if !s.Loop {
			if !sleep(ctx, e.Hold) {
				return Aborted
			}
			return Completed
		}
		if ctx.Err() != nil {
			return Aborted
		}
		if e.pending() {
			return Interrupted
		}
	}
}

// show renders a single frame. Failures are logged and the frame skipped.
func (e *Engine) show(f frames.Frame) {
	img, err := e.images.Image(f)
	if err != nil {
		glog.Warningf("playback: %s: skipping frame: %v", f.Emotion, err)
		return
	}
	if err := e.sink.Render(img); err != nil {
		glog.Warningf("playback: %s: render %s: %v", f.Emotion, f.Path, err)
	}
}

// sleep waits for d and reports whether ctx was still live afterwards.
func sleep(ctx context.Context, d time.Duration) bool {
	if d <= 0 {
		return ctx.Err() == nil
	}
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return false
	case <-t.C:
		return true
	}
}
