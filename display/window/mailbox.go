package window

import (
	"image"
	"sync"
)

// mailbox holds the latest frame for the window thread. Frames not yet
// shown are replaced.
type mailbox struct {
	mu    sync.Mutex
	img   image.Image
	ready chan struct{}
}

func newMailbox() *mailbox {
	return &mailbox{ready: make(chan struct{}, 1)}
}

func (m *mailbox) put(img image.Image) {
	m.mu.Lock()
	m.img = img
	m.mu.Unlock()
	select {
	case m.ready <- struct{}{}:
	default:
	}
}

func (m *mailbox) take() (image.Image, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	img := m.img
	m.img = nil
	return img, img != nil
}
