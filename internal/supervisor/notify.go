package supervisor

// NotificationKind says what changed.
type NotificationKind int

const (
	NotifyStatus NotificationKind = iota
	NotifyMessage
	NotifyError
)

func (k NotificationKind) String() string {
	switch k {
	case NotifyStatus:
		return "status"
	case NotifyMessage:
		return "message"
	case NotifyError:
		return "error"
	default:
		return "unknown"
	}
}

// Notification is delivered to watchers in the order changes happen.
// Status is the snapshot right after the change.
type Notification struct {
	Kind    NotificationKind
	Status  Status
	Message *Message
	Err     *Error
}

type watcher struct {
	ch      chan Notification
	dropped int
}

// Watch registers a watcher. The returned channel is closed by cancel or
// by Close. A watcher that falls more than the buffer size behind loses
// notifications rather than blocking the supervisor.
func (s *Supervisor) Watch() (<-chan Notification, func()) {
	s.mu.Lock()
	defer s.mu.Unlock()

	ch := make(chan Notification, s.notifyBuffer)
	if s.closed {
		close(ch)
		return ch, func() {}
	}

	id := s.nextWatcher
	s.nextWatcher++
	s.watchers[id] = &watcher{ch: ch}

	return ch, func() {
		s.mu.Lock()
		defer s.mu.Unlock()
		if w, ok := s.watchers[id]; ok {
			delete(s.watchers, id)
			close(w.ch)
		}
	}
}

// notifyLocked fans n out without blocking. Callers hold s.mu.
func (s *Supervisor) notifyLocked(n Notification) {
	for _, w := range s.watchers {
		select {
		case w.ch <- n:
		default:
			w.dropped++
			s.metrics.Dropped()
		}
	}
}

func (s *Supervisor) notifyStatusLocked() {
	s.notifyLocked(Notification{Kind: NotifyStatus, Status: s.statusLocked()})
}

func (s *Supervisor) closeWatchersLocked() {
	for id, w := range s.watchers {
		if w.dropped > 0 {
			s.log.Debug("Watcher dropped notifications", "count", w.dropped)
		}
		close(w.ch)
		delete(s.watchers, id)
	}
}
