// Package emotion describes the robot's emotions: frame rate, loop policy and
// servo pose for each, plus the playback constants shared by all of them.
package emotion

import (
	"errors"
	"fmt"
	"os"
	"slices"
	"time"

	"emorobot.org/command"
	"gopkg.in/yaml.v3"
)

// Names of the emotions the state machine plays on its own.
const (
	Bootup  = "bootup"
	Bootup3 = "bootup3"
	Neutral = "neutral"
	Sleep   = "sleep"
)

var ErrInvalid = errors.New("invalid emotion table")

// Emotion is one animation category.
type Emotion struct {
	Name string
	// FPS is the playback rate in frames per second.
	FPS int
	// Loop is whether the emotion repeats until interrupted when played
	// through normal dispatch. Transition playback never loops.
	Loop bool
	// Pose maps servo channels to angles in degrees, applied when the
	// emotion starts. Nil leaves the servos alone.
	Pose map[int]float64
}

// Table is the set of known emotions and the shared playback settings.
type Table struct {
	// TransitionFPS is the rate of the neutral bridge animation played
	// before a requested emotion.
	TransitionFPS int
	// Hold is how long a one-shot emotion keeps its final frame.
	Hold time.Duration

	Emotions map[string]*Emotion
	// order is the declaration order, used for loading and listing.
	order []string
}

// Defaults returns the stock emotion table.
func Defaults() *Table {
	t := &Table{
		TransitionFPS: 60,
		Hold:          500 * time.Millisecond,
		Emotions:      make(map[string]*Emotion),
	}
	for _, e := range []Emotion{
		{Name: Bootup, FPS: 20},
		{Name: Bootup3, FPS: 20},
		{Name: Neutral, FPS: 20, Loop: true, Pose: map[int]float64{0: 90, 1: 90, 2: 90}},
		{Name: "angry", FPS: 60, Pose: map[int]float64{0: 45, 1: 135, 2: 60}},
		{Name: "blink", FPS: 40},
		{Name: "blink2", FPS: 40},
		{Name: "dizzy", FPS: 90, Pose: map[int]float64{2: 120}},
		{Name: "excited", FPS: 10, Pose: map[int]float64{0: 0, 1: 180, 2: 90}},
		{Name: "happy", FPS: 20, Pose: map[int]float64{0: 0, 1: 180, 2: 90}},
		{Name: "happy2", FPS: 20, Pose: map[int]float64{0: 0, 1: 180, 2: 90}},
		{Name: "happy3", FPS: 20, Pose: map[int]float64{0: 0, 1: 180, 2: 90}},
		{Name: "sad", FPS: 20, Pose: map[int]float64{0: 135, 1: 45, 2: 90}},
		{Name: Sleep, FPS: 15, Loop: true, Pose: map[int]float64{0: 180, 1: 0, 2: 90}},
	} {
		t.add(e)
	}
	return t
}

func (t *Table) add(e Emotion) {
	if _, ok := t.Emotions[e.Name]; !ok {
		t.order = append(t.order, e.Name)
	}
	e2 := e
	t.Emotions[e.Name] = &e2
}

// Load reads a YAML table from path and merges it over the defaults.
// Emotions absent from the file keep their stock settings; new names are
// appended in sorted order.
func Load(path string) (*Table, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("emotion: %w", err)
	}
	t, err := Parse(data)
	if err != nil {
		return nil, fmt.Errorf("emotion: %s: %w", path, err)
	}
	return t, nil
}

// document is the YAML form of a Table. Pointer fields distinguish
// "absent" from the zero value.
type document struct {
	TransitionFPS int               `yaml:"transition_fps"`
	Hold          time.Duration     `yaml:"hold"`
	Emotions      map[string]*entry `yaml:"emotions"`
}

type entry struct {
	FPS  int             `yaml:"fps"`
	Loop *bool           `yaml:"loop"`
	Pose map[int]float64 `yaml:"pose"`
}

// Parse is like Load for an in-memory document.
func Parse(data []byte) (*Table, error) {
	var doc document
	if err := yaml.Unmarshal(data, &doc); err != nil {
		return nil, err
	}
	t := Defaults()
	if doc.TransitionFPS != 0 {
		t.TransitionFPS = doc.TransitionFPS
	}
	if doc.Hold != 0 {
		t.Hold = doc.Hold
	}
	names := make([]string, 0, len(doc.Emotions))
	for name := range doc.Emotions {
		names = append(names, name)
	}
	slices.Sort(names)
	for _, name := range names {
		e := Emotion{Name: name}
		if old, ok := t.Emotions[name]; ok {
			e = *old
		}
		if ent := doc.Emotions[name]; ent != nil {
			if ent.FPS != 0 {
				e.FPS = ent.FPS
			}
			if ent.Loop != nil {
				e.Loop = *ent.Loop
			}
			if ent.Pose != nil {
				e.Pose = ent.Pose
			}
		}
		t.add(e)
	}
	if err := t.Validate(); err != nil {
		return nil, err
	}
	return t, nil
}

// Validate checks the table invariants.
func (t *Table) Validate() error {
	if t.TransitionFPS <= 0 {
		return fmt.Errorf("%w: transition_fps must be positive, got %d", ErrInvalid, t.TransitionFPS)
	}
	if t.Hold < 0 {
		return fmt.Errorf("%w: negative hold %v", ErrInvalid, t.Hold)
	}
	for _, name := range []string{Bootup, Neutral, Sleep} {
		if _, ok := t.Emotions[name]; !ok {
			return fmt.Errorf("%w: missing emotion %q", ErrInvalid, name)
		}
	}
	for _, name := range t.order {
		e := t.Emotions[name]
		if name == "" || name != command.Normalize(name) || name == command.Boot || command.IsExit(name) {
			return fmt.Errorf("%w: %q is not a valid emotion name", ErrInvalid, name)
		}
		if e.FPS <= 0 {
			return fmt.Errorf("%w: %s: fps must be positive, got %d", ErrInvalid, name, e.FPS)
		}
		for ch, deg := range e.Pose {
			if ch < 0 || ch > 15 {
				return fmt.Errorf("%w: %s: servo channel %d out of range", ErrInvalid, name, ch)
			}
			if deg < 0 || deg > 180 {
				return fmt.Errorf("%w: %s: servo angle %v out of range", ErrInvalid, name, deg)
			}
		}
	}
	return nil
}

// Names returns every emotion in declaration order.
func (t *Table) Names() []string {
	return slices.Clone(t.order)
}

// Get returns the named emotion.
func (t *Table) Get(name string) (*Emotion, bool) {
	e, ok := t.Emotions[name]
	return e, ok
}

// Requestable reports whether name may be requested by a command. The
// emotions the state machine plays itself are reserved.
func (t *Table) Requestable(name string) bool {
	switch name {
	case Bootup, Bootup3, Neutral, Sleep:
		return false
	}
	_, ok := t.Emotions[name]
	return ok
}

// Requestables lists the requestable emotions in declaration order.
func (t *Table) Requestables() []string {
	var names []string
	for _, n := range t.order {
		if t.Requestable(n) {
			names = append(names, n)
		}
	}
	return names
}
