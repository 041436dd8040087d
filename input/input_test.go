package input

import (
	"context"
	"io"
	"strings"
	"testing"
	"time"

	"emorobot.org/command"
	"periph.io/x/conn/v3/gpio"
	"periph.io/x/conn/v3/gpio/gpiotest"
)

func drain(q *command.Queue) []string {
	var cmds []string
	for {
		cmd, ok := q.TryPop()
		if !ok {
			return cmds
		}
		cmds = append(cmds, cmd)
	}
}

func TestLines(t *testing.T) {
	q := new(command.Queue)
	l := &Lines{Label: "test", R: strings.NewReader("Happy\n\n  SLEEP \nexit\nsad\n")}
	if err := l.Run(context.Background(), q); err != nil {
		t.Fatal(err)
	}
	got := strings.Join(drain(q), ",")
	if want := "happy,,sleep,exit"; got != want {
		t.Errorf("got %q, want %q", got, want)
	}
}

func TestLinesEOF(t *testing.T) {
	q := new(command.Queue)
	l := &Lines{Label: "test", R: strings.NewReader("boot\nangry")}
	if err := l.Run(context.Background(), q); err != nil {
		t.Fatal(err)
	}
	if got := strings.Join(drain(q), ","); got != "boot,angry" {
		t.Errorf("got %q", got)
	}
}

type flakyPort struct {
	empty int
	data  string
}

func (f *flakyPort) Read(b []byte) (int, error) {
	if f.empty > 0 {
		f.empty--
		return 0, io.EOF
	}
	if f.data == "" {
		return 0, io.EOF
	}
	n := copy(b, f.data)
	f.data = f.data[n:]
	return n, nil
}

func TestTimeoutReader(t *testing.T) {
	q := new(command.Queue)
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	port := &flakyPort{empty: 3, data: "blink\nquit\n"}
	l := &Lines{Label: "serial", R: &timeoutReader{ctx: ctx, r: port}}
	if err := l.Run(ctx, q); err != nil {
		t.Fatal(err)
	}
	if got := strings.Join(drain(q), ","); got != "blink,quit" {
		t.Errorf("got %q", got)
	}
}

func TestTimeoutReaderCancel(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	r := &timeoutReader{ctx: ctx, r: new(flakyPort)}
	if n, err := r.Read(make([]byte, 8)); n != 0 || err != io.EOF {
		t.Errorf("got %d, %v after cancel", n, err)
	}
}

func waitLen(t *testing.T, q *command.Queue, n int) {
	t.Helper()
	deadline := time.Now().Add(5 * time.Second)
	for q.Len() < n {
		if time.Now().After(deadline) {
			t.Fatalf("got %d commands, want %d", q.Len(), n)
		}
		time.Sleep(time.Millisecond)
	}
}

func runTouch(t *testing.T, touch *Touch, q *command.Queue) (stop func()) {
	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error)
	go func() {
		done <- touch.Run(ctx, q)
	}()
	return func() {
		cancel()
		select {
		case err := <-done:
			if err != nil {
				t.Error(err)
			}
		case <-time.After(5 * time.Second):
			t.Error("touch sensor did not stop")
		}
	}
}

func TestTouchEdges(t *testing.T) {
	pin := &gpiotest.Pin{N: "GPIO17", Num: 17, EdgesChan: make(chan gpio.Level)}
	q := new(command.Queue)
	touch := &Touch{Pin: pin, Command: "Happy", Debounce: 50 * time.Millisecond, Poll: 10 * time.Millisecond}
	stop := runTouch(t, touch, q)
	pin.EdgesChan <- gpio.High
	waitLen(t, q, 1)
	// Bounces are dropped.
	pin.EdgesChan <- gpio.High
	pin.EdgesChan <- gpio.High
	time.Sleep(60 * time.Millisecond)
	pin.EdgesChan <- gpio.High
	waitLen(t, q, 2)
	stop()
	if got := strings.Join(drain(q), ","); got != "happy,happy" {
		t.Errorf("got %q", got)
	}
	pin.Lock()
	pull := pin.P
	pin.Unlock()
	if pull != gpio.PullDown {
		t.Errorf("pin pull %v, want pull down", pull)
	}
}

func TestTouchPolling(t *testing.T) {
	// Without an edge channel the fake pin refuses edge detection.
	pin := &gpiotest.Pin{N: "GPIO17", Num: 17}
	q := new(command.Queue)
	touch := &Touch{Pin: pin, Command: "excited", Debounce: time.Millisecond, Poll: 2 * time.Millisecond}
	stop := runTouch(t, touch, q)
	defer stop()
	for {
		pin.Lock()
		pull := pin.P
		pin.Unlock()
		if pull == gpio.PullDown {
			break
		}
		time.Sleep(time.Millisecond)
	}
	// Let the fallback configuration settle.
	time.Sleep(20 * time.Millisecond)
	pin.Out(gpio.High)
	waitLen(t, q, 1)
	// Holding the sensor is a single touch.
	time.Sleep(30 * time.Millisecond)
	if n := q.Len(); n != 1 {
		t.Errorf("got %d commands while held", n)
	}
	pin.Out(gpio.Low)
	time.Sleep(20 * time.Millisecond)
	pin.Out(gpio.High)
	waitLen(t, q, 2)
}
