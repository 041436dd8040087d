// Command emo runs the emotion robot. It reads commands from the console,
// and optionally from a serial port and a touch sensor, and plays the
// matching emotion animations in a preview window or on the robot's LCD.
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"image"
	"io"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"emorobot.org/charlcd"
	"emorobot.org/command"
	"emorobot.org/display"
	"emorobot.org/emotion"
	"emorobot.org/frames"
	"emorobot.org/input"
	"emorobot.org/lcd"
	"emorobot.org/robot"
	"emorobot.org/servo"
	"github.com/golang/glog"
	"periph.io/x/conn/v3/gpio/gpioreg"
	"periph.io/x/host/v3"
)

var (
	framesDir     = flag.String("frames", "emotions", "directory with a sub-directory of frames per emotion")
	sinkKind      = flag.String("display", "window", "where frames are shown ('window', 'panel')")
	configFile    = flag.String("config", "", "YAML emotion table merged over the built-in one")
	serialDev     = flag.String("serial", "", "serial device to read commands from")
	serialBaud    = flag.Int("baud", 115200, "serial baud rate")
	touchPin      = flag.String("touch", "", "GPIO of the touch sensor, for example GPIO17")
	touchCommand  = flag.String("touch-command", "happy", "command sent on touch")
	touchDebounce = flag.Duration("touch-debounce", 500*time.Millisecond, "minimum time between touches")
	useServos     = flag.Bool("servo", false, "pose the head servos through a PCA9685")
	servoBus      = flag.String("servo-bus", "", "I²C bus of the servo controller (default first)")
	useCharLCD    = flag.Bool("charlcd", false, "show the robot state on a 16x2 character LCD")
	backlight     = flag.Int("backlight", 50, "panel backlight in percent")
	windowHeight  = flag.Int("window-height", 200, "height of frames in the preview window")
	cacheSize     = flag.Int("cache", 64, "number of decoded frames kept in memory")
)

func main() {
	flag.Set("logtostderr", "true")
	flag.Parse()
	err := run()
	glog.Flush()
	if err != nil {
		fmt.Fprintf(os.Stderr, "emo: %v\n", err)
		os.Exit(2)
	}
}

func run() error {
	table := emotion.Defaults()
	if *configFile != "" {
		t, err := emotion.Load(*configFile)
		if err != nil {
			return err
		}
		table = t
	}
	repo, err := frames.Open(*framesDir, table.Names(), frames.Options{CacheSize: *cacheSize})
	if err != nil {
		return err
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	var indicators []robot.Indicator
	if *useCharLCD {
		if *sinkKind == "panel" {
			return errors.New("-charlcd: the character LCD shares pins with the panel")
		}
		c, err := charlcd.Open()
		if err != nil {
			return err
		}
		defer c.Close()
		indicators = append(indicators, c)
	}
	if *useServos {
		s, err := servo.Open(*servoBus, servo.Address, servo.Head)
		if err != nil {
			return err
		}
		defer s.Close()
		indicators = append(indicators, &servo.Poser{Servos: s, Table: table})
	}
	var touch *input.Touch
	if *touchPin != "" {
		if _, err := host.Init(); err != nil {
			return fmt.Errorf("touch: %w", err)
		}
		p := gpioreg.ByName(*touchPin)
		if p == nil {
			return fmt.Errorf("touch: unknown pin %q", *touchPin)
		}
		cmd := command.Normalize(*touchCommand)
		if !table.Requestable(cmd) && cmd != command.Sleep && cmd != command.Bootup3 {
			glog.Warningf("touch command %q is not an emotion", cmd)
		}
		touch = &input.Touch{Pin: p, Command: cmd, Debounce: *touchDebounce}
	}

	sink, sources, err := openSink(ctx, repo.Dimensions())
	if err != nil {
		return err
	}
	c := robot.New(ctx, robot.Config{
		Table:      table,
		Library:    repo,
		Sink:       sink,
		Indicators: indicators,
	})
	banner(os.Stdout, table)
	c.Go(input.Stdin())
	for _, src := range sources {
		c.Go(src)
	}
	if *serialDev != "" {
		c.Go(&input.Serial{Device: *serialDev, Baud: *serialBaud})
	}
	if touch != nil {
		c.Go(touch)
	}
	c.Run()
	glog.Info("emo: shut down")
	return nil
}

func openSink(ctx context.Context, frame image.Point) (display.Sink, []robot.Source, error) {
	switch *sinkKind {
	case "window":
		return openWindow(ctx, frame, *windowHeight)
	case "panel":
		l, err := lcd.Open(*backlight)
		if err != nil {
			return nil, nil, err
		}
		return l, nil, nil
	default:
		return nil, nil, fmt.Errorf("unknown display %q", *sinkKind)
	}
}

func banner(w io.Writer, table *emotion.Table) {
	fmt.Fprintln(w, "Emotion robot ready. Commands:")
	fmt.Fprintf(w, "  %-10s start the robot\n", command.Boot)
	fmt.Fprintf(w, "  %-10s %s\n", "emotions", strings.Join(table.Requestables(), ", "))
	fmt.Fprintf(w, "  %-10s replay the boot animation\n", command.Bootup3)
	fmt.Fprintf(w, "  %-10s sleep until the next command\n", command.Sleep)
	fmt.Fprintf(w, "  %-10s shut down\n", command.Exit+", "+command.Quit)
}
