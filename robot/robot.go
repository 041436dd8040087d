// Package robot implements the state machine that turns commands into
// emotion playback.
//
// The robot starts idle and waits for "boot". Booted, it loops the neutral
// animation and plays requested emotions after a short neutral transition.
// "sleep" loops the sleep animation until any command wakes it, and
// "exit" or "quit" shuts it down from any state.
package robot

import (
	"context"
	"sync/atomic"
	"time"

	"emorobot.org/command"
	"emorobot.org/display"
	"emorobot.org/emotion"
	"emorobot.org/frames"
	"emorobot.org/playback"
	"github.com/golang/glog"
	"golang.org/x/sync/errgroup"
)

type State int32

const (
	Idle State = iota
	Booting
	Neutral
	PlayingEmotion
	Sleeping
	ShuttingDown
)

func (s State) String() string {
	switch s {
	case Idle:
		return "idle"
	case Booting:
		return "booting"
	case Neutral:
		return "neutral"
	case PlayingEmotion:
		return "emotion"
	case Sleeping:
		return "sleeping"
	case ShuttingDown:
		return "shutdown"
	default:
		return "invalid"
	}
}

// Indicator is notified from the control loop whenever the state or the
// emotion on display changes.
type Indicator interface {
	Indicate(s State, emotion string)
}

// Source produces commands until ctx is done.
type Source interface {
	Name() string
	Run(ctx context.Context, q *command.Queue) error
}

// Library provides the frames of each emotion.
type Library interface {
	Frames(name string) []frames.Frame
	playback.Images
}

type Config struct {
	Table      *emotion.Table
	Library    Library
	Sink       display.Sink
	Indicators []Indicator
}

// Controller runs the robot. Its context is the shutdown signal shared with
// every input source started through Go.
type Controller struct {
	table      *emotion.Table
	lib        Library
	sink       display.Sink
	engine     *playback.Engine
	queue      *command.Queue
	indicators []Indicator

	ctx    context.Context
	cancel context.CancelFunc
	tasks  errgroup.Group

	state   atomic.Int32
	emotion string
	started bool
}

// taskTimeout bounds the wait for input sources at shutdown.
const taskTimeout = 2 * time.Second

// New returns a controller that shuts down when parent is done.
func New(parent context.Context, cfg Config) *Controller {
	ctx, cancel := context.WithCancel(parent)
	q := new(command.Queue)
	c := &Controller{
		table:      cfg.Table,
		lib:        cfg.Library,
		sink:       cfg.Sink,
		queue:      q,
		indicators: cfg.Indicators,
		ctx:        ctx,
		cancel:     cancel,
	}
	c.engine = playback.New(cfg.Sink, cfg.Library, q.Pending)
	c.engine.Hold = cfg.Table.Hold
	return c
}

// Commands returns the queue input sources push to.
func (c *Controller) Commands() *command.Queue {
	return c.queue
}

// State returns the current state. It is safe to call from any goroutine.
func (c *Controller) State() State {
	return State(c.state.Load())
}

// Go runs an input source until the controller shuts down.
func (c *Controller) Go(src Source) {
	c.tasks.Go(func() error {
		glog.Infof("robot: starting input %s", src.Name())
		err := src.Run(c.ctx, c.queue)
		if err != nil && c.ctx.Err() == nil {
			glog.Errorf("robot: input %s: %v", src.Name(), err)
		}
		return err
	})
}

// Run drives the robot until an exit command or until the parent context
// is done. On return input sources are stopped and the sink is released.
func (c *Controller) Run() {
	defer c.shutdown()
	s := Idle
	c.enter(Idle, "")
	for s != ShuttingDown {
		if c.ctx.Err() != nil {
			break
		}
		switch s {
		case Idle:
			s = c.idle()
		case Booting:
			s = c.boot()
		case Neutral:
			s = c.neutral()
		case Sleeping:
			s = c.sleeping()
		default:
			panic("robot: invalid state " + s.String())
		}
	}
}

func (c *Controller) idle() State {
	for {
		cmd, ok := c.queue.TryPop()
		if !ok {
			if !c.wait() {
				return ShuttingDown
			}
			continue
		}
		switch {
		case cmd == command.Boot:
			return Booting
		case command.IsExit(cmd):
			return ShuttingDown
		default:
			ignore(Idle, cmd)
		}
	}
}

func (c *Controller) boot() State {
	c.enter(Booting, emotion.Bootup)
	if c.play(emotion.Bootup, false, false) == playback.Aborted {
		return ShuttingDown
	}
	return Neutral
}

func (c *Controller) neutral() State {
	if cmd, ok := c.queue.TryPop(); ok && cmd != "" {
		switch {
		case c.table.Requestable(cmd):
			return c.request(cmd)
		case cmd == command.Sleep:
			return Sleeping
		case cmd == command.Bootup3:
			c.enter(PlayingEmotion, emotion.Bootup3)
			if c.play(emotion.Bootup3, false, false) == playback.Aborted {
				return ShuttingDown
			}
			return Neutral
		case command.IsExit(cmd):
			return ShuttingDown
		default:
			ignore(Neutral, cmd)
			return Neutral
		}
	}
	return c.loop(Neutral, emotion.Neutral)
}

// request plays a requested emotion behind a neutral transition.
func (c *Controller) request(name string) State {
	c.enter(PlayingEmotion, name)
	if c.play(emotion.Neutral, false, true) == playback.Aborted {
		return ShuttingDown
	}
	e, _ := c.table.Get(name)
	if c.play(name, e.Loop, false) == playback.Aborted {
		return ShuttingDown
	}
	return Neutral
}

func (c *Controller) sleeping() State {
	if cmd, ok := c.queue.TryPop(); ok {
		switch {
		case command.IsExit(cmd):
			return ShuttingDown
		case cmd != "":
			// Any input wakes the robot and is otherwise dropped.
			glog.Infof("robot: woken by %q", cmd)
			return Neutral
		default:
			return Sleeping
		}
	}
	return c.loop(Sleeping, emotion.Sleep)
}

// loop shows the looping animation of a resting state until something
// happens.
func (c *Controller) loop(s State, name string) State {
	c.enter(s, name)
	e, _ := c.table.Get(name)
	loop := e != nil && e.Loop
	if c.play(name, loop, false) == playback.Aborted {
		return ShuttingDown
	}
	if len(c.lib.Frames(name)) == 0 && !c.wait() {
		return ShuttingDown
	}
	return s
}

func (c *Controller) play(name string, loop, transition bool) playback.Outcome {
	fps := c.table.TransitionFPS
	if e, ok := c.table.Get(name); ok && !transition {
		fps = e.FPS
	}
	s := playback.NewSession(name, c.lib.Frames(name), fps, loop)
	s.Transition = transition
	out := c.engine.Play(c.ctx, s)
	if glog.V(1) {
		glog.Infof("robot: %s session %s %v", name, s.ID, out)
	}
	return out
}

// wait blocks until a command may be available. It reports false if the
// robot is shutting down.
func (c *Controller) wait() bool {
	if c.queue.Pending() {
		return true
	}
	select {
	case <-c.ctx.Done():
		return false
	case <-c.queue.Ready():
		return true
	}
}

func (c *Controller) enter(s State, name string) {
	if c.started && State(c.state.Load()) == s && c.emotion == name {
		return
	}
	c.started = true
	glog.Infof("robot: %v %s", s, name)
	c.state.Store(int32(s))
	c.emotion = name
	for _, ind := range c.indicators {
		ind.Indicate(s, name)
	}
}

func (c *Controller) shutdown() {
	c.enter(ShuttingDown, "")
	c.cancel()
	done := make(chan struct{})
	go func() {
		c.tasks.Wait()
		close(done)
	}()
	select {
	case <-done:
	case <-time.After(taskTimeout):
		glog.Warningf("robot: input sources still running after %v", taskTimeout)
	}
	if p, ok := c.sink.(display.Panel); ok {
		if err := p.Clear(); err != nil {
			glog.Warningf("robot: clear display: %v", err)
		}
	}
	if err := c.sink.Close(); err != nil {
		glog.Warningf("robot: close display: %v", err)
	}
	glog.Info("robot: display released")
}

func ignore(s State, cmd string) {
	if glog.V(2) {
		glog.Infof("robot: %v: ignoring %q", s, cmd)
	}
}
