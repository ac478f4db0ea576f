package portal

import (
	"sync"
	"time"
)

type MessageKind string

const (
	KindSuccess MessageKind = "success"
	KindError   MessageKind = "error"
)

type MessageState int

const (
	StateHidden MessageState = iota
	StateShowingSuccess
	StateShowingError
)

func (s MessageState) String() string {
	switch s {
	case StateShowingSuccess:
		return "showing-success"
	case StateShowingError:
		return "showing-error"
	default:
		return "hidden"
	}
}

// Message is what a visitor's message region currently shows.
type Message struct {
	Kind      MessageKind
	Text      string
	ExpiresAt time.Time
}

// FormValues are the signup fields kept across a failed submit.
type FormValues struct {
	Email    string
	Activity string
}

type region struct {
	msg   *Message
	form  *FormValues
	timer *time.Timer
	// version is the sequence number of the message currently shown.
	version uint64
}

// Messages holds one message region per visitor session. A newer message
// replaces the current one and its pending hide timer; nothing is queued.
// Sequence numbers are shared by all regions, so a timer armed for a region
// that was since dropped and recreated never matches the new message.
type Messages struct {
	mu        sync.Mutex
	hideAfter time.Duration
	now       func() time.Time
	regions   map[string]*region
	seq       uint64
}

func NewMessages(hideAfter time.Duration) *Messages {
	return &Messages{
		hideAfter: hideAfter,
		now:       time.Now,
		regions:   make(map[string]*region),
	}
}

// Show puts a message in the session's region and arms its hide timer.
func (m *Messages) Show(session string, kind MessageKind, text string) Message {
	m.mu.Lock()
	defer m.mu.Unlock()

	r := m.region(session)
	if r.timer != nil {
		r.timer.Stop()
	}
	m.seq++
	version := m.seq
	r.version = version

	msg := Message{Kind: kind, Text: text, ExpiresAt: m.now().Add(m.hideAfter)}
	r.msg = &msg
	r.timer = time.AfterFunc(m.hideAfter, func() { m.hide(session, version) })
	return msg
}

// Current returns the visible message, if any.
func (m *Messages) Current(session string) (Message, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()

	r, ok := m.regions[session]
	if !ok || r.msg == nil {
		return Message{}, false
	}
	return *r.msg, true
}

func (m *Messages) State(session string) MessageState {
	msg, ok := m.Current(session)
	switch {
	case !ok:
		return StateHidden
	case msg.Kind == KindSuccess:
		return StateShowingSuccess
	default:
		return StateShowingError
	}
}

// KeepForm remembers the submitted signup fields until the next TakeForm.
func (m *Messages) KeepForm(session string, form FormValues) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.region(session).form = &form
}

// ClearForm forgets any remembered signup fields.
func (m *Messages) ClearForm(session string) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if r, ok := m.regions[session]; ok {
		r.form = nil
		m.dropIfIdle(session, r)
	}
}

// TakeForm returns and forgets the remembered signup fields.
func (m *Messages) TakeForm(session string) FormValues {
	m.mu.Lock()
	defer m.mu.Unlock()

	r, ok := m.regions[session]
	if !ok || r.form == nil {
		return FormValues{}
	}
	form := *r.form
	r.form = nil
	m.dropIfIdle(session, r)
	return form
}

func (m *Messages) hide(session string, version uint64) {
	m.mu.Lock()
	defer m.mu.Unlock()

	r, ok := m.regions[session]
	if !ok || r.version != version {
		return
	}
	r.msg = nil
	r.timer = nil
	m.dropIfIdle(session, r)
}

func (m *Messages) region(session string) *region {
	r, ok := m.regions[session]
	if !ok {
		r = &region{}
		m.regions[session] = r
	}
	return r
}

func (m *Messages) dropIfIdle(session string, r *region) {
	if r.msg == nil && r.form == nil {
		delete(m.regions, session)
	}
}
