// Package keylock - мьютекс на строковый ключ (обычно ID пользователя).
// Запись о ключе живет, пока его кто-то держит или ждет, поэтому карта
// не растет с числом когда-либо встреченных пользователей.
package keylock

import "sync"

type entry struct {
	mu   sync.Mutex
	refs int
}

type Locks struct {
	mu   sync.Mutex
	keys map[string]*entry
}

func New() *Locks {
	return &Locks{keys: make(map[string]*entry)}
}

// Lock блокирует ключ и возвращает функцию освобождения; вызывать ее ровно один раз
func (l *Locks) Lock(key string) func() {
	l.mu.Lock()
	e, ok := l.keys[key]
	if !ok {
		e = &entry{}
		l.keys[key] = e
	}
	e.refs++
	l.mu.Unlock()

	e.mu.Lock()
	return func() {
		e.mu.Unlock()

		l.mu.Lock()
		e.refs--
		if e.refs == 0 {
			delete(l.keys, key)
		}
		l.mu.Unlock()
	}
}

// Len - число ключей, которые сейчас кто-то держит или ждет
func (l *Locks) Len() int {
	l.mu.Lock()
	defer l.mu.Unlock()
	return len(l.keys)
}
