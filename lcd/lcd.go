// package lcd implements an LCD driver for the Waveshare 2" 240x320 ST7789
// panel.
package lcd

import (
	"errors"
	"fmt"
	"image"
	"image/color"
	"time"
	"unsafe"

	"emorobot.org/display"
	"emorobot.org/rgb16"
	"github.com/golang/glog"
	"periph.io/x/conn/v3"
	"periph.io/x/conn/v3/gpio"
	"periph.io/x/conn/v3/physic"
	"periph.io/x/conn/v3/spi"
	"periph.io/x/conn/v3/spi/spireg"
	"periph.io/x/host/v3"
	"periph.io/x/host/v3/bcm283x"
)

// Pins are the control lines next to the SPI bus.
type Pins struct {
	DC  gpio.PinOut
	RST gpio.PinOut
	BL  gpio.PinOut
}

type LCD struct {
	port      spi.PortCloser
	conn      spi.Conn
	pins      Pins
	madctl    byte
	window    image.Rectangle
	fb        *rgb16.Image
	txBuf     []byte
	backlight int
	lit       bool
}

const (
	lcdWidth  = 240
	lcdHeight = 320

	// Scan directions for portrait and landscape frames.
	portrait  = 0x00
	landscape = 0x70

	backlightFreq = 1 * physic.KiloHertz
)

// DefaultPins is the wiring of the Waveshare module on a Raspberry Pi.
var DefaultPins = Pins{
	DC:  bcm283x.GPIO25,
	RST: bcm283x.GPIO27,
	BL:  bcm283x.GPIO18,
}

// Open initializes the panel on the first SPI bus. Errors wrap
// display.ErrUnavailable.
func Open(backlight int) (*LCD, error) {
	if _, err := host.Init(); err != nil {
		return nil, fmt.Errorf("lcd: %w: %w", display.ErrUnavailable, err)
	}
	p, err := spireg.Open("")
	if err != nil {
		return nil, fmt.Errorf("lcd: %w: %w", display.ErrUnavailable, err)
	}
	c, err := p.Connect(40*physic.MegaHertz, spi.Mode0, 8)
	if err != nil {
		p.Close()
		return nil, fmt.Errorf("lcd: %w: %w", display.ErrUnavailable, err)
	}
	l, err := New(c, DefaultPins)
	if err != nil {
		p.Close()
		return nil, fmt.Errorf("%w: %w", display.ErrUnavailable, err)
	}
	l.port = p
	if err := l.SetBacklight(backlight); err != nil {
		l.Close()
		return nil, err
	}
	glog.Infof("lcd: %dx%d panel on %s", lcdWidth, lcdHeight, c)
	return l, nil
}

// New initializes a panel on an already connected bus.
func New(c spi.Conn, pins Pins) (*LCD, error) {
	l := &LCD{
		conn:      c,
		pins:      pins,
		backlight: 100,
	}
	maxTx := 4096
	if lim, ok := c.(conn.Limits); ok {
		maxTx = lim.MaxTxSize()
	}
	l.txBuf = make([]byte, maxTx)
	if err := l.setup(); err != nil {
		return nil, err
	}
	return l, nil
}

func (l *LCD) sendCommand(cmd byte, data ...byte) error {
	if err := l.pins.DC.Out(gpio.Low); err != nil {
		return err
	}
	if err := l.conn.Tx([]byte{cmd}, nil); err != nil {
		return err
	}
	if len(data) > 0 {
		if err := l.pins.DC.Out(gpio.High); err != nil {
			return err
		}
		if err := l.conn.Tx(data, nil); err != nil {
			return err
		}
	}
	return nil
}

func (l *LCD) setup() error {
	if err := l.pins.DC.Out(gpio.High); err != nil {
		return fmt.Errorf("lcd: %w", err)
	}
	// Turn off backlight during setup.
	if err := l.pins.BL.Out(gpio.Low); err != nil {
		return fmt.Errorf("lcd: %w", err)
	}

	// Reset LCD.
	for _, lvl := range []gpio.Level{gpio.High, gpio.Low, gpio.High} {
		if err := l.pins.RST.Out(lvl); err != nil {
			return fmt.Errorf("lcd: %w", err)
		}
		time.Sleep(10 * time.Millisecond)
	}

	var cmdErr error
	sendCommand := func(cmd byte, data ...byte) {
		if cmdErr != nil {
			return
		}
		cmdErr = l.sendCommand(cmd, data...)
	}
	sendCommand(0x36 /*MADCTL*/, portrait)
	sendCommand(0x3a /*COLMOD*/, 0x05)
	sendCommand(0x21 /*INVON*/)
	sendCommand(0xb2 /*PORCTRL*/, 0x0c, 0x0c, 0x00, 0x33, 0x33)
	sendCommand(0xb7 /*GCTRL*/, 0x35)
	sendCommand(0xbb /*VCOMS*/, 0x1f)
	sendCommand(0xc0 /*LCMCTRL*/, 0x2c)
	sendCommand(0xc2 /*VDVVRHEN*/, 0x01)
	sendCommand(0xc3 /*VRHS*/, 0x12)
	sendCommand(0xc4 /*VDVS*/, 0x20)
	sendCommand(0xc6 /*FRCTRL2*/, 0x0f)
	sendCommand(0xd0 /*PWCTRL1*/, 0xa4, 0xa1)
	sendCommand(0xe0 /*PVGAMCTRL*/, 0xd0, 0x08, 0x11, 0x08, 0x0c, 0x15, 0x39, 0x33, 0x50, 0x36, 0x13, 0x14, 0x29, 0x2d)
	sendCommand(0xe1 /*NVGAMCTRL*/, 0xd0, 0x08, 0x10, 0x08, 0x06, 0x06, 0x39, 0x44, 0x51, 0x0b, 0x16, 0x14, 0x2f, 0x31)
	sendCommand(0x11 /*SLPOUT*/)
	if cmdErr == nil {
		time.Sleep(120 * time.Millisecond)
	}
	sendCommand(0x29 /*DISPON*/)
	if cmdErr != nil {
		return fmt.Errorf("lcd: SPI command: %w", cmdErr)
	}
	l.madctl = portrait
	return nil
}

// orient picks the scan direction that shows a frame of the given size
// without cropping.
func orient(frame image.Point) (image.Point, byte) {
	if frame.X > frame.Y {
		return image.Pt(lcdHeight, lcdWidth), landscape
	}
	return image.Pt(lcdWidth, lcdHeight), portrait
}

// Render shows img upside down, stretched to the panel, matching how the
// panel is mounted in the head.
func (l *LCD) Render(img image.Image) error {
	dims, madctl := orient(img.Bounds().Size())
	src := display.Rotate180(display.Scale(img, dims))
	l.framebuffer(dims).Convert(src)
	return l.flush(madctl)
}

// Clear blanks the panel.
func (l *LCD) Clear() error {
	dims, madctl := orient(image.Pt(lcdWidth, lcdHeight))
	if l.fb != nil {
		dims, madctl = l.fb.Rect.Size(), l.madctl
	}
	l.framebuffer(dims).Fill(color.Black)
	return l.flush(madctl)
}

func (l *LCD) framebuffer(dims image.Point) *rgb16.Image {
	if l.fb == nil || l.fb.Rect.Size() != dims {
		l.fb = rgb16.New(image.Rectangle{Max: dims})
	}
	return l.fb
}

func (l *LCD) flush(madctl byte) error {
	if madctl != l.madctl {
		if err := l.sendCommand(0x36 /*MADCTL*/, madctl); err != nil {
			return fmt.Errorf("lcd: %w", err)
		}
		l.madctl = madctl
		l.window = image.Rectangle{}
	}
	if err := l.draw(l.fb); err != nil {
		return err
	}
	// Turn on backlight if necessary.
	if !l.lit {
		if err := l.applyBacklight(); err != nil {
			return err
		}
		l.lit = true
	}
	return nil
}

func (l *LCD) draw(img *rgb16.Image) error {
	if err := l.setWindow(img.Rect); err != nil {
		return fmt.Errorf("lcd: %w", err)
	}
	if err := l.pins.DC.Out(gpio.High); err != nil {
		return fmt.Errorf("lcd: %w", err)
	}
	pix := unsafe.Slice((*byte)(unsafe.Pointer(&img.Pix[0])), len(img.Pix)*2)
	for len(pix) > 0 {
		n := copy(l.txBuf, pix)
		if err := l.conn.Tx(l.txBuf[:n], nil); err != nil {
			return fmt.Errorf("lcd: blit: %w", err)
		}
		pix = pix[n:]
	}
	return nil
}

func (l *LCD) setWindow(r image.Rectangle) error {
	if l.window == r {
		return l.sendCommand(0x2c /* RAMWR */)
	}
	l.window = r

	var cmdErr error
	sendCommand := func(cmd byte, data ...byte) {
		if cmdErr != nil {
			return
		}
		cmdErr = l.sendCommand(cmd, data...)
	}
	sendCommand(0x2a /* CASET */, byte(r.Min.X>>8), byte(r.Min.X), byte((r.Max.X-1)>>8), byte((r.Max.X)-1))
	sendCommand(0x2b /* RASET */, byte(r.Min.Y>>8), byte(r.Min.Y), byte((r.Max.Y-1)>>8), byte((r.Max.Y)-1))
	sendCommand(0x2c /* RAMWR */)
	return cmdErr
}

// SetBacklight sets the brightness in percent. It takes effect once the
// first frame is shown.
func (l *LCD) SetBacklight(percent int) error {
	l.backlight = min(max(percent, 0), 100)
	if !l.lit {
		return nil
	}
	return l.applyBacklight()
}

func (l *LCD) applyBacklight() error {
	duty := gpio.DutyMax * gpio.Duty(l.backlight) / 100
	err := l.pins.BL.PWM(duty, backlightFreq)
	if err == nil {
		return nil
	}
	// Without PWM the backlight is either on or off.
	glog.V(1).Infof("lcd: backlight PWM: %v", err)
	lvl := gpio.Level(l.backlight > 0)
	if err := l.pins.BL.Out(lvl); err != nil {
		return fmt.Errorf("lcd: backlight: %w", err)
	}
	return nil
}

func (l *LCD) Close() error {
	var errs []error
	if err := l.pins.BL.Out(gpio.Low); err != nil {
		errs = append(errs, err)
	}
	if l.port != nil {
		errs = append(errs, l.port.Close())
		l.port = nil
	}
	l.conn = nil
	if err := errors.Join(errs...); err != nil {
		return fmt.Errorf("lcd: %w", err)
	}
	return nil
}

var _ display.Panel = (*LCD)(nil)
