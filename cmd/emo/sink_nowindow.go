//go:build !opencv

package main

import (
	"context"
	"fmt"
	"image"

	"emorobot.org/display"
	"emorobot.org/robot"
)

func openWindow(ctx context.Context, frame image.Point, height int) (display.Sink, []robot.Source, error) {
	return nil, nil, fmt.Errorf("window: %w: built without -tags opencv", display.ErrUnavailable)
}
