//go:build opencv

package window

import (
	"context"
	"errors"
	"image"
	"os"
	"runtime"
	"time"

	"gocv.io/x/gocv"
)

// Open creates an OpenCV window showing frames of the given size scaled to
// height. It fails with display.ErrUnavailable when no window can be
// created.
func Open(ctx context.Context, title string, frame image.Point, height int) (*Window, error) {
	return open(ctx, title, frame, height, newCVSurface)
}

type cvSurface struct {
	win *gocv.Window
	// visibility is false if the backend cannot report it.
	visibility bool
	mat        gocv.Mat
	scaled     gocv.Mat
}

func newCVSurface(title string, size image.Point) (surface, error) {
	if !hasDisplay(runtime.GOOS, os.Getenv) {
		return nil, errors.New("no window system (DISPLAY is not set)")
	}
	win := gocv.NewWindow(title)
	if size != (image.Point{}) {
		win.ResizeWindow(size.X, size.Y)
	}
	win.WaitKey(1)
	v := win.GetWindowProperty(gocv.WindowPropertyVisible)
	if v < 0 {
		win.Close()
		return nil, errors.New("window could not be created")
	}
	return &cvSurface{
		win:        win,
		visibility: v > 0,
		mat:        gocv.NewMat(),
		scaled:     gocv.NewMat(),
	}, nil
}

func (s *cvSurface) Show(img image.Image, size image.Point) error {
	m, err := gocv.ImageToMatRGB(img)
	if err != nil {
		return err
	}
	s.mat.Close()
	s.mat = m
	if size == img.Bounds().Size() {
		s.win.IMShow(s.mat)
		return nil
	}
	gocv.Resize(s.mat, &s.scaled, size, 0, 0, gocv.InterpolationLinear)
	s.win.IMShow(s.scaled)
	return nil
}

func (s *cvSurface) Poll(d time.Duration) int {
	return s.win.WaitKey(int(d / time.Millisecond))
}

func (s *cvSurface) Visible() bool {
	if !s.visibility {
		return true
	}
	return s.win.GetWindowProperty(gocv.WindowPropertyVisible) > 0
}

func (s *cvSurface) Close() error {
	s.mat.Close()
	s.scaled.Close()
	return s.win.Close()
}
