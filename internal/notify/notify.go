package notify

import (
	"sync"

	log "github.com/sirupsen/logrus"
)

// Kind is the severity of a notification.
type Kind string

const (
	KindSuccess Kind = "success"
	KindWarning Kind = "warning"
	KindError   Kind = "error"
)

// Notification is a short toast shown to the user.
type Notification struct {
	Kind        Kind   `json:"kind"`
	Title       string `json:"title"`
	Description string `json:"description"`
}

// Notifier displays notifications.
type Notifier interface {
	Notify(n Notification)
}

// Recorder keeps every notification it receives, in order.
type Recorder struct {
	mu    sync.Mutex
	items []Notification
}

func (r *Recorder) Notify(n Notification) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.items = append(r.items, n)
}

// Items returns a copy of the recorded notifications.
func (r *Recorder) Items() []Notification {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]Notification, len(r.items))
	copy(out, r.items)
	return out
}

// LogNotifier writes notifications to a logrus logger.
type LogNotifier struct {
	Logger log.FieldLogger
}

func (l LogNotifier) Notify(n Notification) {
	logger := l.Logger
	if logger == nil {
		logger = log.StandardLogger()
	}
	entry := logger.WithField("kind", string(n.Kind))
	switch n.Kind {
	case KindError:
		entry.Errorf("%s: %s", n.Title, n.Description)
	case KindWarning:
		entry.Warnf("%s: %s", n.Title, n.Description)
	default:
		entry.Infof("%s: %s", n.Title, n.Description)
	}
}
