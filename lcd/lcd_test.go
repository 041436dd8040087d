package lcd

import (
	"bytes"
	"image"
	"image/color"
	"testing"

	"periph.io/x/conn/v3/gpio"
	"periph.io/x/conn/v3/gpio/gpiotest"
	"periph.io/x/conn/v3/physic"
	"periph.io/x/conn/v3/spi"
	"periph.io/x/conn/v3/spi/spitest"
)

func newTestLCD(t *testing.T) (*LCD, *spitest.Record, Pins) {
	t.Helper()
	rec := new(spitest.Record)
	c, err := rec.Connect(40*physic.MegaHertz, spi.Mode0, 8)
	if err != nil {
		t.Fatal(err)
	}
	pins := Pins{
		DC:  &gpiotest.Pin{N: "DC", Num: 25},
		RST: &gpiotest.Pin{N: "RST", Num: 27},
		BL:  &gpiotest.Pin{N: "BL", Num: 18},
	}
	l, err := New(c, pins)
	if err != nil {
		t.Fatal(err)
	}
	return l, rec, pins
}

// pixels returns the bytes written after the last RAMWR.
func pixels(rec *spitest.Record) []byte {
	rec.Lock()
	defer rec.Unlock()
	var data []byte
	for i := len(rec.Ops) - 1; i >= 0; i-- {
		if bytes.Equal(rec.Ops[i].W, []byte{0x2c}) {
			for _, op := range rec.Ops[i+1:] {
				data = append(data, op.W...)
			}
			return data
		}
	}
	return nil
}

func wrote(rec *spitest.Record, cmd ...byte) bool {
	rec.Lock()
	defer rec.Unlock()
	for i := 0; i+1 < len(rec.Ops); i++ {
		if rec.Ops[i].W[0] == cmd[0] && bytes.Equal(rec.Ops[i+1].W, cmd[1:]) {
			return true
		}
	}
	return false
}

func TestSetup(t *testing.T) {
	_, rec, pins := newTestLCD(t)
	if len(rec.Ops) == 0 {
		t.Fatal("no commands sent")
	}
	if got := rec.Ops[len(rec.Ops)-1].W; !bytes.Equal(got, []byte{0x29}) {
		t.Errorf("last command %x, want DISPON", got)
	}
	if !wrote(rec, 0x3a, 0x05) {
		t.Error("16-bit color mode not selected")
	}
	if l := pins.BL.(*gpiotest.Pin).Read(); l != gpio.Low {
		t.Error("backlight on before the first frame")
	}
	if l := pins.RST.(*gpiotest.Pin).Read(); l != gpio.High {
		t.Error("panel left in reset")
	}
}

func TestRenderLandscape(t *testing.T) {
	l, rec, pins := newTestLCD(t)
	if err := l.SetBacklight(50); err != nil {
		t.Fatal(err)
	}
	img := image.NewRGBA(image.Rect(0, 0, lcdHeight, lcdWidth))
	img.SetRGBA(0, 0, color.RGBA{R: 0xff, A: 0xff})
	if err := l.Render(img); err != nil {
		t.Fatal(err)
	}
	if !wrote(rec, 0x36, landscape) {
		t.Error("landscape scan direction not selected")
	}
	if !wrote(rec, 0x2a, 0x00, 0x00, 0x01, 0x3f) {
		t.Error("column window does not span 320 pixels")
	}
	pix := pixels(rec)
	if len(pix) != lcdWidth*lcdHeight*2 {
		t.Fatalf("wrote %d bytes of pixels", len(pix))
	}
	// Rotated: the top left pixel is sent last.
	if got := pix[len(pix)-2:]; !bytes.Equal(got, []byte{0xf8, 0x00}) {
		t.Errorf("last pixel %x, want red", got)
	}
	if !bytes.Equal(pix[:2], []byte{0, 0}) {
		t.Errorf("first pixel %x, want black", pix[:2])
	}
	bl := pins.BL.(*gpiotest.Pin)
	bl.Lock()
	duty := bl.D
	bl.Unlock()
	if duty != gpio.DutyMax/2 {
		t.Errorf("backlight duty %v, want 50%%", duty)
	}
}

func TestRenderScaled(t *testing.T) {
	l, rec, _ := newTestLCD(t)
	img := image.NewRGBA(image.Rect(0, 0, 120, 160))
	if err := l.Render(img); err != nil {
		t.Fatal(err)
	}
	if n := len(pixels(rec)); n != lcdWidth*lcdHeight*2 {
		t.Errorf("wrote %d bytes of pixels", n)
	}
	if wrote(rec, 0x36, landscape) {
		t.Error("portrait frame shown in landscape")
	}
}

func TestClear(t *testing.T) {
	l, rec, pins := newTestLCD(t)
	img := image.NewRGBA(image.Rect(0, 0, 240, 320))
	for i := range img.Pix {
		img.Pix[i] = 0xff
	}
	if err := l.Render(img); err != nil {
		t.Fatal(err)
	}
	if err := l.Clear(); err != nil {
		t.Fatal(err)
	}
	for i, b := range pixels(rec) {
		if b != 0 {
			t.Fatalf("byte %d is %#x after clear", i, b)
		}
	}
	if err := l.Close(); err != nil {
		t.Fatal(err)
	}
	if lvl := pins.BL.(*gpiotest.Pin).Read(); lvl != gpio.Low {
		t.Error("backlight on after close")
	}
}
