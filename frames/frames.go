// Package frames loads the pre-rendered frame images of each emotion.
//
// Frames live in one directory per emotion under a common root, named with
// a prefix, a frame number and an image extension:
//
//	frames/happy/frame1.png
//	frames/happy/frame2.png
//	frames/happy/frame10.png
//
// Frames are ordered by [Compare], so frame2 plays before frame10.
package frames

import (
	"errors"
	"fmt"
	"image"
	_ "image/gif"
	_ "image/jpeg"
	_ "image/png"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/golang/glog"
	_ "golang.org/x/image/bmp"
	_ "golang.org/x/image/webp"
)

// Frame references one image of an emotion's sequence.
type Frame struct {
	Emotion string
	// Index is the number embedded in the file name, or -1.
	Index int
	Path  string
	// Size is the image size read from the file header.
	Size image.Point
}

// Options tune a Repository.
type Options struct {
	// Prefix of frame file names. Defaults to "frame".
	Prefix string
	// Ext is the file extension including the dot, matched without
	// regard to case. Defaults to ".png".
	Ext string
	// CacheSize is the number of decoded frames kept in memory. Zero
	// disables caching.
	CacheSize int
}

// Repository holds the ordered frames of every loaded emotion. It is not
// safe for concurrent use; the control loop owns it.
type Repository struct {
	root  string
	opts  Options
	seqs  map[string][]Frame
	dims  image.Point
	cache *cache
}

var ErrInvalidName = errors.New("frames: invalid emotion name")

// Open loads the frames of every emotion in names from root. The frame
// dimensions are taken from the first frame of the first emotion, in the
// order given, that has any. A missing root leaves every sequence empty.
func Open(root string, names []string, opts Options) (*Repository, error) {
	if fi, err := os.Stat(root); err != nil {
		glog.Warningf("frames: %v", err)
	} else if !fi.IsDir() {
		glog.Warningf("frames: %s: not a directory", root)
	}
	if opts.Prefix == "" {
		opts.Prefix = "frame"
	}
	if opts.Ext == "" {
		opts.Ext = ".png"
	}
	r := &Repository{
		root:  root,
		opts:  opts,
		seqs:  make(map[string][]Frame),
		cache: newCache(opts.CacheSize),
	}
	for _, name := range names {
		seq, err := r.Load(name)
		if err != nil {
			return nil, err
		}
		glog.Infof("frames: loaded %d frames for %s", len(seq), name)
		if r.dims == (image.Point{}) && len(seq) > 0 {
			r.dims = seq[0].Size
		}
	}
	if r.dims == (image.Point{}) {
		glog.Warningf("frames: no frames found under %s", root)
	}
	return r, nil
}

// Load reads the directory of one emotion and returns its frames in
// natural order. Files whose image header cannot be decoded are skipped.
// A missing directory yields an empty sequence. The result replaces the
// cached sequence for the emotion.
func (r *Repository) Load(name string) ([]Frame, error) {
	if name == "" || name == "." || name == ".." || strings.ContainsAny(name, `/\`) {
		return nil, fmt.Errorf("%w: %q", ErrInvalidName, name)
	}
	dir := filepath.Join(r.root, name)
	entries, err := os.ReadDir(dir)
	if err != nil {
		glog.Warningf("frames: %s: %v", name, err)
		r.seqs[name] = nil
		return nil, nil
	}
	var files []string
	for _, e := range entries {
		n := e.Name()
		if e.IsDir() || !strings.HasPrefix(n, r.opts.Prefix) || !strings.EqualFold(filepath.Ext(n), r.opts.Ext) {
			continue
		}
		files = append(files, n)
	}
	Sort(files)
	seq := make([]Frame, 0, len(files))
	prev := -1
	for _, n := range files {
		path := filepath.Join(dir, n)
		cfg, err := decodeConfig(path)
		if err != nil {
			glog.Warningf("frames: %s: skipping %s: %v", name, n, err)
			continue
		}
		idx := r.index(n)
		if idx >= 0 && prev >= 0 {
			switch {
			case idx == prev:
				glog.Warningf("frames: %s: duplicate frame number %d (%s)", name, idx, n)
			case idx > prev+1:
				glog.Warningf("frames: %s: frames %d to %d missing", name, prev+1, idx-1)
			}
		}
		if idx >= 0 {
			prev = idx
		}
		seq = append(seq, Frame{
			Emotion: name,
			Index:   idx,
			Path:    path,
			Size:    image.Pt(cfg.Width, cfg.Height),
		})
	}
	r.seqs[name] = seq
	return seq, nil
}

// index extracts the frame number from a file name, or returns -1.
func (r *Repository) index(name string) int {
	s := strings.TrimPrefix(name, r.opts.Prefix)
	s = s[:len(s)-len(filepath.Ext(s))]
	n, err := strconv.Atoi(s)
	if err != nil || n < 0 {
		return -1
	}
	return n
}

// Frames returns the loaded sequence for an emotion, or nil. The slice
// must not be modified.
func (r *Repository) Frames(name string) []Frame {
	return r.seqs[name]
}

// Dimensions returns the frame size resolved by Open, or the zero point
// if no frame was found.
func (r *Repository) Dimensions() image.Point {
	return r.dims
}

// Image decodes a frame, consulting the cache first.
func (r *Repository) Image(f Frame) (image.Image, error) {
	if img, ok := r.cache.get(f.Path); ok {
		return img, nil
	}
	img, err := decode(f.Path)
	if err != nil {
		return nil, fmt.Errorf("frames: %w", err)
	}
	r.cache.put(f.Path, img)
	return img, nil
}

func decode(path string) (image.Image, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()
	img, _, err := image.Decode(f)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	return img, nil
}

func decodeConfig(path string) (image.Config, error) {
	f, err := os.Open(path)
	if err != nil {
		return image.Config{}, err
	}
	defer f.Close()
	cfg, _, err := image.DecodeConfig(f)
	return cfg, err
}
