package handler

import (
	"encoding/json"

	"github.com/gin-contrib/sessions"
	"github.com/imagegallery/internal/form"
	"github.com/imagegallery/internal/notify"
	"github.com/imagegallery/internal/view"
	log "github.com/sirupsen/logrus"
)

const (
	sessionFormKey   = "image_form"
	sessionViewerKey = "viewer"
)

// 会话中的值统一以 JSON 字符串保存，避免注册 gob 类型

func loadJSON(session sessions.Session, key string, dst interface{}) bool {
	raw, ok := session.Get(key).(string)
	if !ok || raw == "" {
		return false
	}
	return json.Unmarshal([]byte(raw), dst) == nil
}

func storeJSON(session sessions.Session, key string, value interface{}) {
	data, err := json.Marshal(value)
	if err != nil {
		session.Delete(key)
		return
	}
	session.Set(key, string(data))
}

// loadForm returns the open form of this session, or nil.
func loadForm(session sessions.Session) *form.Form {
	var f form.Form
	if !loadJSON(session, sessionFormKey, &f) || !f.Open {
		return nil
	}
	return &f
}

func saveForm(session sessions.Session, f *form.Form) {
	if f == nil || !f.Open {
		session.Delete(sessionFormKey)
		return
	}
	storeJSON(session, sessionFormKey, f)
}

func loadViewer(session sessions.Session) view.Viewer {
	var v view.Viewer
	loadJSON(session, sessionViewerKey, &v)
	return v
}

func saveViewer(session sessions.Session, v view.Viewer) {
	storeJSON(session, sessionViewerKey, v)
}

// sessionNotifier queues notifications as flashes shown on the next page.
type sessionNotifier struct {
	session sessions.Session
}

func (n sessionNotifier) Notify(item notify.Notification) {
	data, err := json.Marshal(item)
	if err != nil {
		return
	}
	n.session.AddFlash(string(data))
}

// popNotifications consumes the queued flashes.
func popNotifications(session sessions.Session, logger log.FieldLogger) []notify.Notification {
	flashes := session.Flashes()
	items := make([]notify.Notification, 0, len(flashes))
	for _, flash := range flashes {
		raw, ok := flash.(string)
		if !ok {
			continue
		}
		var item notify.Notification
		if err := json.Unmarshal([]byte(raw), &item); err != nil {
			logger.WithError(err).Warn("dropping malformed notification")
			continue
		}
		items = append(items, item)
	}
	return items
}
