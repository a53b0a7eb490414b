package http

import (
	"bytes"
	"container/list"
	"fmt"
	"image"
	"image/png"
	"sync"

	"github.com/couchcryptid/weather-fx-panel/internal/observability"
)

// imageCache keeps encoded PNGs of the picker fields, keyed by what they were
// painted for. Dragging across the hue strip revisits the same hues often.
type imageCache struct {
	lru     *lruCache
	metrics *observability.Metrics
}

func newImageCache(maxEntries int, metrics *observability.Metrics) *imageCache {
	return &imageCache{lru: newLRUCache(maxEntries), metrics: metrics}
}

// encode returns the PNG for key, encoding img on a miss.
func (c *imageCache) encode(key string, img image.Image) ([]byte, error) {
	if data, ok := c.lru.get(key); ok {
		c.metrics.FieldCache.WithLabelValues("hit").Inc()
		return data, nil
	}
	c.metrics.FieldCache.WithLabelValues("miss").Inc()

	var buf bytes.Buffer
	if err := png.Encode(&buf, img); err != nil {
		return nil, fmt.Errorf("encode png: %w", err)
	}
	data := buf.Bytes()
	c.lru.put(key, data)
	return data, nil
}

func fieldKey(hue float64, b image.Rectangle) string {
	return fmt.Sprintf("field:%.6f:%dx%d", hue, b.Dx(), b.Dy())
}

func stripKey(b image.Rectangle) string {
	return fmt.Sprintf("hue:%dx%d", b.Dx(), b.Dy())
}

// lruCache is a thread-safe LRU of encoded images.
type lruCache struct {
	maxEntries int
	mu         sync.Mutex
	order      *list.List // front is most recently used
	entries    map[string]*list.Element
}

type entry struct {
	key   string
	value []byte
}

func newLRUCache(maxEntries int) *lruCache {
	return &lruCache{
		maxEntries: maxEntries,
		order:      list.New(),
		entries:    make(map[string]*list.Element),
	}
}

func (c *lruCache) get(key string) ([]byte, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()

	el, ok := c.entries[key]
	if !ok {
		return nil, false
	}
	c.order.MoveToFront(el)
	return el.Value.(*entry).value, true
}

func (c *lruCache) put(key string, value []byte) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if el, ok := c.entries[key]; ok {
		el.Value.(*entry).value = value
		c.order.MoveToFront(el)
		return
	}
	c.entries[key] = c.order.PushFront(&entry{key: key, value: value})

	for c.order.Len() > c.maxEntries {
		oldest := c.order.Back()
		c.order.Remove(oldest)
		delete(c.entries, oldest.Value.(*entry).key)
	}
}

func (c *lruCache) len() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.order.Len()
}
