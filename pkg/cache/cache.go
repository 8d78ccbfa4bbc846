// Package cache - ограниченный по размеру кэш с TTL.
//
// Политика вытеснения задается явно: FIFO (по порядку вставки, повторная
// запись не продлевает жизнь в очереди) или LRU (чтение поднимает запись).
// Записи старше TTL игнорируются при чтении и удаляются лениво.
// Инвалидации при изменениях нет: вызывающий сам делает Delete или Purge.
package cache

import (
	"container/list"
	"sync"
	"time"
)

type Policy int

const (
	FIFO Policy = iota
	LRU
)

func (p Policy) String() string {
	if p == LRU {
		return "lru"
	}
	return "fifo"
}

type Options struct {
	Capacity int
	TTL      time.Duration
	Policy   Policy
	// Now - источник времени; nil = time.Now
	Now func() time.Time
}

// DefaultOptions - 100 записей, 30 секунд, порядок вставки
func DefaultOptions() Options {
	return Options{Capacity: 100, TTL: 30 * time.Second, Policy: FIFO}
}

type entry[K comparable, V any] struct {
	key      K
	value    V
	storedAt time.Time
}

type Cache[K comparable, V any] struct {
	mu    sync.Mutex
	opts  Options
	items map[K]*list.Element
	order *list.List // front = самая старая
}

func New[K comparable, V any](opts Options) *Cache[K, V] {
	if opts.Capacity <= 0 {
		opts.Capacity = DefaultOptions().Capacity
	}
	if opts.TTL <= 0 {
		opts.TTL = DefaultOptions().TTL
	}
	if opts.Now == nil {
		opts.Now = time.Now
	}
	return &Cache[K, V]{
		opts:  opts,
		items: make(map[K]*list.Element, opts.Capacity),
		order: list.New(),
	}
}

// Get возвращает значение, если запись моложе TTL
func (c *Cache[K, V]) Get(key K) (V, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()

	var zero V
	el, ok := c.items[key]
	if !ok {
		return zero, false
	}
	e := el.Value.(*entry[K, V])
	if c.opts.Now().Sub(e.storedAt) >= c.opts.TTL {
		c.removeElement(el)
		return zero, false
	}
	if c.opts.Policy == LRU {
		c.order.MoveToBack(el)
	}
	return e.value, true
}

// Set сохраняет значение. При переполнении вытесняется запись из головы очереди.
func (c *Cache[K, V]) Set(key K, value V) {
	c.mu.Lock()
	defer c.mu.Unlock()

	now := c.opts.Now()
	if el, ok := c.items[key]; ok {
		e := el.Value.(*entry[K, V])
		e.value = value
		e.storedAt = now
		if c.opts.Policy == LRU {
			c.order.MoveToBack(el)
		}
		return
	}

	for c.order.Len() >= c.opts.Capacity {
		c.removeElement(c.order.Front())
	}
	c.items[key] = c.order.PushBack(&entry[K, V]{key: key, value: value, storedAt: now})
}

func (c *Cache[K, V]) Delete(key K) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if el, ok := c.items[key]; ok {
		c.removeElement(el)
	}
}

// Purge очищает кэш целиком
func (c *Cache[K, V]) Purge() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.items = make(map[K]*list.Element, c.opts.Capacity)
	c.order.Init()
}

// Len - количество записей, включая еще не вычищенные просроченные
func (c *Cache[K, V]) Len() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.order.Len()
}

func (c *Cache[K, V]) Options() Options {
	return c.opts
}

func (c *Cache[K, V]) removeElement(el *list.Element) {
	e := c.order.Remove(el).(*entry[K, V])
	delete(c.items, e.key)
}
