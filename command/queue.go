// Package command implements the queue that carries textual commands from
// input sources to the robot's control loop.
package command

import (
	"strings"
	"sync"

	"github.com/gammazero/deque"
)

// Reserved command tokens. Every other non-empty token is either an emotion
// name or ignored.
const (
	Boot    = "boot"
	Bootup3 = "bootup3"
	Sleep   = "sleep"
	Exit    = "exit"
	Quit    = "quit"
)

// IsExit reports whether cmd requests shutdown.
func IsExit(cmd string) bool {
	return cmd == Exit || cmd == Quit
}

// Normalize trims and lower-cases a raw input token.
func Normalize(s string) string {
	return strings.ToLower(strings.TrimSpace(s))
}

// Queue is an unbounded FIFO of commands. Any number of goroutines may push;
// a single consumer polls with TryPop. The zero value is ready to use.
type Queue struct {
	mu    sync.Mutex
	cmds  deque.Deque[string]
	ready chan struct{}
	once  sync.Once
}

func (q *Queue) init() {
	q.once.Do(func() {
		q.ready = make(chan struct{}, 1)
	})
}

// Push appends a normalized command. It never blocks. Empty tokens are
// queued too; it is up to the consumer to ignore them.
func (q *Queue) Push(cmd string) {
	q.init()
	q.mu.Lock()
	q.cmds.PushBack(Normalize(cmd))
	q.mu.Unlock()
	select {
	case q.ready <- struct{}{}:
	default:
	}
}

// TryPop removes and returns the oldest command, if any.
func (q *Queue) TryPop() (string, bool) {
	q.mu.Lock()
	defer q.mu.Unlock()
	if q.cmds.Len() == 0 {
		return "", false
	}
	return q.cmds.PopFront(), true
}

// Pending reports whether at least one command is queued.
func (q *Queue) Pending() bool {
	q.mu.Lock()
	defer q.mu.Unlock()
	return q.cmds.Len() > 0
}

// Len returns the number of queued commands.
func (q *Queue) Len() int {
	q.mu.Lock()
	defer q.mu.Unlock()
	return q.cmds.Len()
}

// Ready returns a channel that receives a value after Push. Notifications
// coalesce, so a receive means "check TryPop", not "exactly one command".
func (q *Queue) Ready() <-chan struct{} {
	q.init()
	return q.ready
}
