// Package input turns console lines, serial lines and touches of the capacitive
// sensor into robot commands.
package input

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"os"
	"time"

	"emorobot.org/command"
	"github.com/golang/glog"
	"github.com/tarm/serial"
	"periph.io/x/conn/v3/gpio"
)

// Lines reads one command per line.
type Lines struct {
	Label string
	R     io.Reader
}

// Stdin returns the console source.
func Stdin() *Lines {
	return &Lines{Label: "stdin", R: os.Stdin}
}

func (l *Lines) Name() string {
	return l.Label
}

// Run pushes every line read until end of input, an exit command or ctx
// is done. End of input only ends this source.
func (l *Lines) Run(ctx context.Context, q *command.Queue) error {
	sc := bufio.NewScanner(cancelable(ctx, l.R))
	for sc.Scan() {
		if ctx.Err() != nil {
			return nil
		}
		cmd := command.Normalize(sc.Text())
		q.Push(cmd)
		if command.IsExit(cmd) {
			return nil
		}
	}
	if err := sc.Err(); err != nil && ctx.Err() == nil {
		return fmt.Errorf("input: %s: %w", l.Label, err)
	}
	glog.Infof("input: %s: end of input", l.Label)
	return nil
}

// Serial reads commands from a serial port, such as a companion
// microcontroller or a USB gadget console.
type Serial struct {
	Device string
	Baud   int
}

func (s *Serial) Name() string {
	return "serial " + s.Device
}

const serialTimeout = 100 * time.Millisecond

func (s *Serial) Run(ctx context.Context, q *command.Queue) error {
	baud := s.Baud
	if baud == 0 {
		baud = 115200
	}
	p, err := serial.OpenPort(&serial.Config{Name: s.Device, Baud: baud, ReadTimeout: serialTimeout})
	if err != nil {
		return fmt.Errorf("input: serial: %w", err)
	}
	defer p.Close()
	l := &Lines{Label: s.Name(), R: &timeoutReader{ctx: ctx, r: p}}
	return l.Run(ctx, q)
}

// timeoutReader retries the empty reads of a port opened with a read
// timeout until ctx is done.
type timeoutReader struct {
	ctx context.Context
	r   io.Reader
}

func (t *timeoutReader) Read(b []byte) (int, error) {
	for {
		n, err := t.r.Read(b)
		if n > 0 || (err != nil && err != io.EOF) {
			return n, err
		}
		if t.ctx.Err() != nil {
			return 0, io.EOF
		}
	}
}

// Touch reports touches of a sensor wired to an input pin. The pin reads
// high while touched.
type Touch struct {
	Pin gpio.PinIn
	// Command is pushed for each touch.
	Command string
	// Debounce is the quiet period after a touch.
	Debounce time.Duration
	// Poll bounds how long the pin is waited on before ctx is checked.
	Poll time.Duration
}

func (t *Touch) Name() string {
	return "touch " + t.Pin.Name()
}

func (t *Touch) Run(ctx context.Context, q *command.Queue) error {
	poll := t.Poll
	if poll <= 0 {
		poll = 100 * time.Millisecond
	}
	edges := true
	if err := t.Pin.In(gpio.PullDown, gpio.RisingEdge); err != nil {
		glog.Warningf("input: %s: no edge detection, polling: %v", t.Name(), err)
		edges = false
		if err := t.Pin.In(gpio.PullDown, gpio.NoEdge); err != nil {
			return fmt.Errorf("input: touch: %w", err)
		}
	}
	prev := t.Pin.Read()
	var last time.Time
	for {
		var touched bool
		if edges {
			touched = t.Pin.WaitForEdge(poll) && t.Pin.Read() == gpio.High
		} else {
			if !sleep(ctx, poll) {
				return nil
			}
			l := t.Pin.Read()
			touched = l == gpio.High && prev == gpio.Low
			prev = l
		}
		if ctx.Err() != nil {
			return nil
		}
		if !touched {
			continue
		}
		now := time.Now()
		if !last.IsZero() && now.Sub(last) < t.Debounce {
			continue
		}
		last = now
		glog.Infof("input: touched, sending %q", t.Command)
		q.Push(t.Command)
	}
}

func sleep(ctx context.Context, d time.Duration) bool {
	tm := time.NewTimer(d)
	defer tm.Stop()
	select {
	case <-ctx.Done():
		return false
	case <-tm.C:
		return true
	}
}
