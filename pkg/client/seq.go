package client

// maxPendingSeqs - сколько seq сверх непрерывной отметки держать до принудительного сдвига
const maxPendingSeqs = 1024

// seqTracker отбрасывает повторы журнала. mark - все seq <= mark уже получены,
// seen - полученные сверх mark. Живой кадр может обогнать досылку после
// переподключения, поэтому одной максимальной отметки мало.
type seqTracker struct {
	mark   uint64
	seen   map[uint64]struct{}
	synced bool
}

// accept - true, если seq видим впервые
func (t *seqTracker) accept(seq uint64) bool {
	if !t.synced {
		// первое событие сессии без resume: раньше него ничего не ждем
		t.synced = true
		if t.mark == 0 && seq > 0 {
			t.mark = seq - 1
		}
	}
	if seq <= t.mark {
		return false
	}
	if t.seen == nil {
		t.seen = make(map[uint64]struct{})
	}
	if _, dup := t.seen[seq]; dup {
		return false
	}
	t.seen[seq] = struct{}{}
	t.compact()

	if len(t.seen) > maxPendingSeqs {
		lowest := seq
		for s := range t.seen {
			if s < lowest {
				lowest = s
			}
		}
		t.advance(lowest - 1)
	}
	return true
}

// advance сдвигает отметку: сервер подтвердил, что до seq досылать нечего
func (t *seqTracker) advance(seq uint64) {
	t.synced = true
	if seq <= t.mark {
		return
	}
	t.mark = seq
	for s := range t.seen {
		if s <= t.mark {
			delete(t.seen, s)
		}
	}
	t.compact()
}

func (t *seqTracker) compact() {
	for {
		if _, ok := t.seen[t.mark+1]; !ok {
			return
		}
		delete(t.seen, t.mark+1)
		t.mark++
	}
}
