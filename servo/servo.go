// Package servo drives hobby servos through a PCA9685 PWM controller on
// I²C.
package servo

import (
	"fmt"
	"maps"
	"math"
	"slices"
	"time"

	"emorobot.org/emotion"
	"emorobot.org/robot"
	"github.com/golang/glog"
	"periph.io/x/conn/v3/i2c"
	"periph.io/x/conn/v3/i2c/i2creg"
	"periph.io/x/host/v3"
)

// Address is the PCA9685 default I²C address.
const Address = 0x40

const (
	regMode1    = 0x00
	regLED0     = 0x06
	regAllLED   = 0xfa
	regPrescale = 0xfe

	mode1Sleep   = 0x10
	mode1AutoInc = 0x20
	mode1Restart = 0x80

	oscillator = 25_000_000
	// Servos expect a 50 Hz frame.
	frequency = 50
	period    = time.Second / frequency

	Channels = 16
)

// Kind is a servo model.
type Kind struct {
	Name     string
	MinPulse time.Duration
	MaxPulse time.Duration
	// Sweep are the test angles for the model.
	Sweep []float64
}

var (
	SG90 = Kind{Name: "SG90", MinPulse: 750 * time.Microsecond, MaxPulse: 2250 * time.Microsecond, Sweep: []float64{0, 45, 90, 135, 180}}
	MG90 = Kind{Name: "MG90", MinPulse: 750 * time.Microsecond, MaxPulse: 2250 * time.Microsecond, Sweep: []float64{0, 60, 90, 120, 180}}
)

// Head is the robot's servo layout: two SG90s and an MG90.
var Head = map[int]Kind{0: SG90, 1: SG90, 2: MG90}

type Controller struct {
	dev   *i2c.Dev
	bus   i2c.BusCloser
	kinds map[int]Kind
}

// Open connects to a controller on the named I²C bus, "" for the first.
func Open(bus string, addr uint16, kinds map[int]Kind) (*Controller, error) {
	if _, err := host.Init(); err != nil {
		return nil, fmt.Errorf("servo: %w", err)
	}
	b, err := i2creg.Open(bus)
	if err != nil {
		return nil, fmt.Errorf("servo: %w", err)
	}
	c, err := New(b, addr, kinds)
	if err != nil {
		b.Close()
		return nil, err
	}
	c.bus = b
	return c, nil
}

// New initializes the controller for 50 Hz servo pulses.
func New(b i2c.Bus, addr uint16, kinds map[int]Kind) (*Controller, error) {
	c := &Controller{
		dev:   &i2c.Dev{Bus: b, Addr: addr},
		kinds: kinds,
	}
	prescale := byte(math.Round(oscillator/(4096*frequency))) - 1
	for _, w := range [][]byte{
		{regMode1, mode1Sleep},
		{regPrescale, prescale},
		{regMode1, mode1AutoInc},
	} {
		if err := c.dev.Tx(w, nil); err != nil {
			return nil, fmt.Errorf("servo: %w", err)
		}
	}
	// The oscillator needs 500µs to stabilize before restarting.
	time.Sleep(time.Millisecond)
	if err := c.dev.Tx([]byte{regMode1, mode1AutoInc | mode1Restart}, nil); err != nil {
		return nil, fmt.Errorf("servo: %w", err)
	}
	return c, nil
}

func (c *Controller) kind(ch int) Kind {
	if k, ok := c.kinds[ch]; ok {
		return k
	}
	return SG90
}

// SetAngle moves the servo on channel ch to deg degrees, clamped to
// [0, 180].
func (c *Controller) SetAngle(ch int, deg float64) error {
	if ch < 0 || ch >= Channels {
		return fmt.Errorf("servo: invalid channel %d", ch)
	}
	k := c.kind(ch)
	deg = min(max(deg, 0), 180)
	pulse := k.MinPulse + time.Duration(float64(k.MaxPulse-k.MinPulse)*deg/180)
	off := uint16(math.Round(float64(pulse) * 4096 / float64(period)))
	reg := byte(regLED0 + 4*ch)
	if err := c.dev.Tx([]byte{reg, 0, 0, byte(off), byte(off >> 8)}, nil); err != nil {
		return fmt.Errorf("servo: channel %d: %w", ch, err)
	}
	return nil
}

// Release stops the pulses on every channel, letting the servos go limp.
func (c *Controller) Release() error {
	if err := c.dev.Tx([]byte{regAllLED, 0, 0, 0, 0x10}, nil); err != nil {
		return fmt.Errorf("servo: %w", err)
	}
	return nil
}

func (c *Controller) Close() error {
	err := c.Release()
	if c.bus != nil {
		if cerr := c.bus.Close(); err == nil && cerr != nil {
			err = fmt.Errorf("servo: %w", cerr)
		}
		c.bus = nil
	}
	return err
}

// Poser moves the head into the pose of each emotion as it starts.
type Poser struct {
	Servos *Controller
	Table  *emotion.Table
}

func (p *Poser) Indicate(s robot.State, name string) {
	if s == robot.ShuttingDown {
		if err := p.Servos.Release(); err != nil {
			glog.Warningf("%v", err)
		}
		return
	}
	e, ok := p.Table.Get(name)
	if !ok {
		return
	}
	for _, ch := range slices.Sorted(maps.Keys(e.Pose)) {
		if err := p.Servos.SetAngle(ch, e.Pose[ch]); err != nil {
			glog.Warningf("%v", err)
		}
	}
}
