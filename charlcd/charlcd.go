// Package charlcd drives a 16x2 HD44780 character display wired in 4-bit
// mode, used as a status line for the robot.
package charlcd

import (
	"fmt"
	"strings"
	"time"

	"emorobot.org/robot"
	"github.com/golang/glog"
	"periph.io/x/conn/v3/gpio"
	"periph.io/x/host/v3"
	"periph.io/x/host/v3/bcm283x"
)

type Pins struct {
	RS, E          gpio.PinOut
	D4, D5, D6, D7 gpio.PinOut
}

// DefaultPins is the wiring used on the robot's Raspberry Pi. It shares
// pins with the SPI panel, so only one of them can be attached.
var DefaultPins = Pins{
	RS: bcm283x.GPIO25,
	E:  bcm283x.GPIO24,
	D4: bcm283x.GPIO23,
	D5: bcm283x.GPIO22,
	D6: bcm283x.GPIO27,
	D7: bcm283x.GPIO18,
}

const (
	Width = 16
	Lines = 2
)

var lineAddr = [Lines]byte{0x80, 0xc0}

// pulse is the enable pulse width and settle time.
var pulse = 500 * time.Microsecond

type LCD struct {
	pins Pins
}

func Open() (*LCD, error) {
	if _, err := host.Init(); err != nil {
		return nil, fmt.Errorf("charlcd: %w", err)
	}
	return New(DefaultPins)
}

func New(pins Pins) (*LCD, error) {
	l := &LCD{pins: pins}
	for _, p := range []gpio.PinOut{pins.RS, pins.E, pins.D4, pins.D5, pins.D6, pins.D7} {
		if err := p.Out(gpio.Low); err != nil {
			return nil, fmt.Errorf("charlcd: %w", err)
		}
	}
	for _, cmd := range []byte{
		0x33, 0x32, // Switch to 4-bit mode.
		0x06, // Cursor moves right.
		0x0c, // Display on, cursor off.
		0x28, // Two lines, 5x8 font.
		0x01, // Clear.
	} {
		if err := l.send(cmd, false); err != nil {
			return nil, err
		}
	}
	time.Sleep(pulse)
	return l, nil
}

func (l *LCD) send(b byte, char bool) error {
	if err := l.pins.RS.Out(gpio.Level(char)); err != nil {
		return fmt.Errorf("charlcd: %w", err)
	}
	if err := l.nibble(b >> 4); err != nil {
		return err
	}
	return l.nibble(b & 0xf)
}

func (l *LCD) nibble(n byte) error {
	data := []gpio.PinOut{l.pins.D4, l.pins.D5, l.pins.D6, l.pins.D7}
	for i, p := range data {
		if err := p.Out(gpio.Level(n&(1<<i) != 0)); err != nil {
			return fmt.Errorf("charlcd: %w", err)
		}
	}
	time.Sleep(pulse)
	if err := l.pins.E.Out(gpio.High); err != nil {
		return fmt.Errorf("charlcd: %w", err)
	}
	time.Sleep(pulse)
	if err := l.pins.E.Out(gpio.Low); err != nil {
		return fmt.Errorf("charlcd: %w", err)
	}
	time.Sleep(pulse)
	return nil
}

// WriteLine replaces a line, truncating or padding msg to the display
// width. Characters outside ASCII are shown as '?'.
func (l *LCD) WriteLine(line int, msg string) error {
	if line < 0 || line >= Lines {
		return fmt.Errorf("charlcd: no line %d", line)
	}
	if err := l.send(lineAddr[line], false); err != nil {
		return err
	}
	buf := []byte(strings.Repeat(" ", Width))
	i := 0
	for _, r := range msg {
		if i == Width {
			break
		}
		if r < 0x20 || r > 0x7e {
			r = '?'
		}
		buf[i] = byte(r)
		i++
	}
	for _, c := range buf {
		if err := l.send(c, true); err != nil {
			return err
		}
	}
	return nil
}

func (l *LCD) Clear() error {
	return l.send(0x01, false)
}

func (l *LCD) Close() error {
	return l.Clear()
}

// Indicate shows the robot state on the first line and the emotion on the
// second.
func (l *LCD) Indicate(s robot.State, emotion string) {
	if err := l.WriteLine(0, "EMO "+s.String()); err != nil {
		glog.Warningf("charlcd: %v", err)
		return
	}
	if err := l.WriteLine(1, emotion); err != nil {
		glog.Warningf("charlcd: %v", err)
	}
}
