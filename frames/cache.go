package frames

import (
	"container/list"
	"image"
)

// cache is a least-recently-used set of decoded frames keyed by path.
type cache struct {
	max   int
	ll    list.List
	items map[string]*list.Element
}

type cacheEntry struct {
	path string
	img  image.Image
}

func newCache(size int) *cache {
	return &cache{
		max:   size,
		items: make(map[string]*list.Element),
	}
}

func (c *cache) get(path string) (image.Image, bool) {
	e, ok := c.items[path]
	if !ok {
		return nil, false
	}
	c.ll.MoveToFront(e)
	return e.Value.(*cacheEntry).img, true
}

func (c *cache) put(path string, img image.Image) {
	if c.max <= 0 {
		return
	}
	if e, ok := c.items[path]; ok {
		e.Value.(*cacheEntry).img = img
		c.ll.MoveToFront(e)
		return
	}
	c.items[path] = c.ll.PushFront(&cacheEntry{path: path, img: img})
	for c.ll.Len() > c.max {
		last := c.ll.Back()
		c.ll.Remove(last)
		delete(c.items, last.Value.(*cacheEntry).path)
	}
}

func (c *cache) len() int {
	return c.ll.Len()
}
