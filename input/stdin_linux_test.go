package input

import (
	"context"
	"os"
	"testing"
	"time"

	"emorobot.org/command"
)

func TestPollReaderCancel(t *testing.T) {
	r, w, err := os.Pipe()
	if err != nil {
		t.Fatal(err)
	}
	defer r.Close()
	defer w.Close()
	q := new(command.Queue)
	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error)
	go func() {
		done <- (&Lines{Label: "pipe", R: r}).Run(ctx, q)
	}()
	if _, err := w.WriteString("boot\n"); err != nil {
		t.Fatal(err)
	}
	waitLen(t, q, 1)
	cancel()
	select {
	case err := <-done:
		if err != nil {
			t.Error(err)
		}
	case <-time.After(5 * time.Second):
		t.Fatal("blocked read outlived shutdown")
	}
	if cmd, _ := q.TryPop(); cmd != "boot" {
		t.Errorf("got %q", cmd)
	}
}
