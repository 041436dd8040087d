// Command hwtest exercises the robot's hardware one part at a time.
//
// Subcommand servo sweeps the head servos, touch counts touches of the
// sensor, charlcd writes test text to the character LCD and frame shows an
// image on the panel.
package main

import (
	"context"
	"flag"
	"fmt"
	"image"
	_ "image/jpeg"
	_ "image/png"
	"os"
	"os/signal"
	"slices"
	"time"

	"emorobot.org/charlcd"
	"emorobot.org/command"
	"emorobot.org/input"
	"emorobot.org/lcd"
	"emorobot.org/servo"
	"github.com/golang/glog"
	"periph.io/x/conn/v3/gpio/gpioreg"
	"periph.io/x/host/v3"
)

var (
	servoCmd   = flag.NewFlagSet("servo", flag.ExitOnError)
	touchCmd   = flag.NewFlagSet("touch", flag.ExitOnError)
	charlcdCmd = flag.NewFlagSet("charlcd", flag.ExitOnError)
	frameCmd   = flag.NewFlagSet("frame", flag.ExitOnError)
	servoBus   = servoCmd.String("bus", "", "I²C bus (default first)")
	servoStep  = servoCmd.Duration("step", time.Second, "time at each angle")
	touchPin   = touchCmd.String("pin", "GPIO17", "touch sensor pin")
	touchFor   = touchCmd.Duration("for", 30*time.Second, "how long to count touches")
	lcdStep    = charlcdCmd.Duration("step", 2*time.Second, "time each message is shown")
	frameHold  = frameCmd.Duration("hold", 5*time.Second, "how long the frame is shown")
	frameLight = frameCmd.Int("backlight", 50, "backlight in percent")
)

func main() {
	flag.Set("logtostderr", "true")
	if len(os.Args) <= 1 {
		fmt.Fprintf(os.Stderr, "hwtest: specify 'servo', 'touch', 'charlcd' or 'frame'\n")
		os.Exit(2)
	}
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()
	args := os.Args[2:]
	var err error
	switch cmd := os.Args[1]; cmd {
	case "servo":
		servoCmd.Parse(args)
		err = sweep(ctx)
	case "touch":
		touchCmd.Parse(args)
		err = touches(ctx)
	case "charlcd":
		charlcdCmd.Parse(args)
		err = lcdText(ctx)
	case "frame":
		frameCmd.Parse(args)
		err = frame(ctx, frameCmd.Arg(0))
	default:
		fmt.Fprintf(os.Stderr, "hwtest: unknown command: %q\n", cmd)
		os.Exit(2)
	}
	glog.Flush()
	if err != nil {
		fmt.Fprintf(os.Stderr, "hwtest: %v\n", err)
		os.Exit(2)
	}
}

// pause waits for d and reports whether the test should go on.
func pause(ctx context.Context, d time.Duration) bool {
	select {
	case <-ctx.Done():
		return false
	case <-time.After(d):
		return true
	}
}

func sweep(ctx context.Context) error {
	c, err := servo.Open(*servoBus, servo.Address, servo.Head)
	if err != nil {
		return err
	}
	defer c.Close()
	for ch := range len(servo.Head) {
		k := servo.Head[ch]
		fmt.Printf("servo %d (%s)\n", ch, k.Name)
		for _, deg := range slices.Concat(k.Sweep, []float64{90}) {
			fmt.Printf("  %v°\n", deg)
			if err := c.SetAngle(ch, deg); err != nil {
				return err
			}
			if !pause(ctx, *servoStep) {
				return nil
			}
		}
	}
	return nil
}

func touches(ctx context.Context) error {
	if _, err := host.Init(); err != nil {
		return err
	}
	p := gpioreg.ByName(*touchPin)
	if p == nil {
		return fmt.Errorf("unknown pin %q", *touchPin)
	}
	ctx, cancel := context.WithTimeout(ctx, *touchFor)
	defer cancel()
	q := new(command.Queue)
	t := &input.Touch{Pin: p, Command: "touch", Debounce: 500 * time.Millisecond}
	done := make(chan error, 1)
	go func() { done <- t.Run(ctx, q) }()
	fmt.Printf("touch the sensor on %s during the next %v\n", p, *touchFor)
	n := 0
	for {
		select {
		case err := <-done:
			fmt.Printf("%d touches\n", n)
			return err
		case <-q.Ready():
			for {
				if _, ok := q.TryPop(); !ok {
					break
				}
				n++
				fmt.Printf("touch %d\n", n)
			}
		}
	}
}

func lcdText(ctx context.Context) error {
	l, err := charlcd.Open()
	if err != nil {
		return err
	}
	defer l.Close()
	show := func(lines ...string) bool {
		for i, s := range lines {
			if err = l.WriteLine(i, s); err != nil {
				return false
			}
		}
		return pause(ctx, *lcdStep)
	}
	if !show("Hello, World!") || !show("LCD Screen Test", "Raspberry Pi") {
		return err
	}
	msg := "This is a scrolling test message for LCD screen"
	for i := 0; i+charlcd.Width <= len(msg); i++ {
		if err := l.WriteLine(0, msg[i:i+charlcd.Width]); err != nil {
			return err
		}
		if !pause(ctx, 300*time.Millisecond) {
			return nil
		}
	}
	if err := l.Clear(); err != nil {
		return err
	}
	show("Test Complete!")
	return err
}

func frame(ctx context.Context, path string) error {
	if path == "" {
		return fmt.Errorf("frame: specify an image file")
	}
	f, err := os.Open(path)
	if err != nil {
		return err
	}
	img, _, err := image.Decode(f)
	f.Close()
	if err != nil {
		return fmt.Errorf("frame: %s: %w", path, err)
	}
	l, err := lcd.Open(*frameLight)
	if err != nil {
		return err
	}
	defer l.Close()
	if err := l.Render(img); err != nil {
		return err
	}
	pause(ctx, *frameHold)
	return l.Clear()
}
