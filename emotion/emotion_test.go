package emotion

import (
	"errors"
	"slices"
	"testing"
	"time"
)

func TestDefaults(t *testing.T) {
	tab := Defaults()
	if err := tab.Validate(); err != nil {
		t.Fatal(err)
	}
	for _, c := range []struct {
		name string
		fps  int
		loop bool
	}{
		{"bootup", 20, false},
		{"neutral", 20, true},
		{"sleep", 15, true},
		{"angry", 60, false},
		{"dizzy", 90, false},
		{"excited", 10, false},
	} {
		e, ok := tab.Get(c.name)
		if !ok {
			t.Errorf("%s: missing", c.name)
			continue
		}
		if e.FPS != c.fps || e.Loop != c.loop {
			t.Errorf("%s: got fps %d loop %v, want fps %d loop %v", c.name, e.FPS, e.Loop, c.fps, c.loop)
		}
	}
	if tab.TransitionFPS != 60 || tab.Hold != 500*time.Millisecond {
		t.Errorf("got transition %d fps hold %v", tab.TransitionFPS, tab.Hold)
	}
	want := []string{"angry", "blink", "blink2", "dizzy", "excited", "happy", "happy2", "happy3", "sad"}
	if got := tab.Requestables(); !slices.Equal(got, want) {
		t.Errorf("requestable emotions %v, want %v", got, want)
	}
}

func TestParse(t *testing.T) {
	doc := `
transition_fps: 30
hold: 250ms
emotions:
  happy:
    fps: 25
  neutral:
    pose: {0: 10}
  wink:
    fps: 12
    loop: true
  dizzy:
`
	tab, err := Parse([]byte(doc))
	if err != nil {
		t.Fatal(err)
	}
	if tab.TransitionFPS != 30 || tab.Hold != 250*time.Millisecond {
		t.Errorf("got transition %d fps hold %v", tab.TransitionFPS, tab.Hold)
	}
	if e, _ := tab.Get("happy"); e.FPS != 25 || e.Loop {
		t.Errorf("happy: got %+v", e)
	}
	// Fields absent from the document keep their defaults.
	if e, _ := tab.Get("neutral"); e.FPS != 20 || !e.Loop || e.Pose[0] != 10 {
		t.Errorf("neutral: got %+v", e)
	}
	if e, _ := tab.Get("dizzy"); e.FPS != 90 {
		t.Errorf("dizzy: got %+v", e)
	}
	if !tab.Requestable("wink") {
		t.Error("wink not requestable")
	}
	names := tab.Names()
	if names[len(names)-1] != "wink" {
		t.Errorf("new emotion not appended: %v", names)
	}
}

func TestParseInvalid(t *testing.T) {
	for _, doc := range []string{
		"transition_fps: -1",
		"emotions: {happy: {fps: -3}}",
		"emotions: {new: {}}",
		"emotions: {exit: {fps: 10}}",
		"emotions: {Wink: {fps: 10}}",
		"emotions: {' wink': {fps: 10}}",
		"emotions: {sad: {pose: {16: 90}}}",
		"emotions: {sad: {pose: {0: 200}}}",
	} {
		if _, err := Parse([]byte(doc)); !errors.Is(err, ErrInvalid) {
			t.Errorf("%q: got error %v, want ErrInvalid", doc, err)
		}
	}
	if _, err := Parse([]byte("emotions: [")); err == nil {
		t.Error("malformed YAML accepted")
	}
}

func TestRequestable(t *testing.T) {
	tab := Defaults()
	for _, c := range []struct {
		name string
		ok   bool
	}{
		{"happy", true},
		{"sad", true},
		{"neutral", false},
		{"sleep", false},
		{"bootup", false},
		{"bootup3", false},
		{"xyz", false},
		{"", false},
	} {
		if got := tab.Requestable(c.name); got != c.ok {
			t.Errorf("Requestable(%q) = %v, want %v", c.name, got, c.ok)
		}
	}
}
