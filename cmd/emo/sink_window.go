//go:build opencv

package main

import (
	"context"
	"image"

	"emorobot.org/display"
	"emorobot.org/display/window"
	"emorobot.org/robot"
)

func openWindow(ctx context.Context, frame image.Point, height int) (display.Sink, []robot.Source, error) {
	w, err := window.Open(ctx, "Emotion Robot", frame, height)
	if err != nil {
		return nil, nil, err
	}
	return w, []robot.Source{w}, nil
}
