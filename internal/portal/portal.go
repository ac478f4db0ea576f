package portal

import (
	"context"
	"errors"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"go.uber.org/zap"

	"activityportal/internal/activities"
	"activityportal/internal/backend"
	"activityportal/internal/database"
	"activityportal/internal/metrics"
)

// Copy shown in the message region.
const (
	GenericErrorMessage   = "An error occurred"
	SignupFailedMessage   = "Failed to sign up. Please try again."
	UnregisterFailedMsg   = "Failed to unregister. Please try again."
	MissingFieldsMessage  = "Please enter an email and select an activity."
	ActivitiesUpdatedType = "activities-updated"
)

// ErrMissingField rejects an action before it reaches the backend.
var ErrMissingField = errors.New("email and activity are required")

// Backend is the subset of the activities API the portal relays to.
type Backend interface {
	ListActivities(ctx context.Context) (activities.Store, error)
	Signup(ctx context.Context, activity, email string) (*backend.Result, error)
	Unregister(ctx context.Context, activity, email string) (*backend.Result, error)
}

// ActionRecorder persists action outcomes.
type ActionRecorder interface {
	RecordAction(ctx context.Context, entry database.ActionLog) error
}

// Broadcaster pushes events to live clients.
type Broadcaster interface {
	Broadcast(updateType string, data interface{})
}

type Options struct {
	HideAfter   time.Duration
	Recorder    ActionRecorder
	Broadcaster Broadcaster
}

// Outcome is the result of one signup or unregister as shown to the visitor.
type Outcome struct {
	Kind       MessageKind
	Message    string
	StatusCode int
	Refreshed  bool
	// Rejected is set when the action never reached the backend.
	Rejected bool
}

// Portal owns the activity store and runs the visitor actions against the
// backend. Actions are independent: they may overlap and each produces its
// own message and its own refresh.
type Portal struct {
	backend  Backend
	logger   *zap.Logger
	recorder ActionRecorder
	notify   Broadcaster
	messages *Messages

	tickets atomic.Uint64

	mu      sync.RWMutex
	store   activities.Store
	applied uint64
}

func New(b Backend, logger *zap.Logger, opts Options) *Portal {
	if opts.HideAfter <= 0 {
		opts.HideAfter = 5 * time.Second
	}
	return &Portal{
		backend:  b,
		logger:   logger.With(zap.String("component", "portal")),
		recorder: opts.Recorder,
		notify:   opts.Broadcaster,
		messages: NewMessages(opts.HideAfter),
	}
}

func (p *Portal) Messages() *Messages {
	return p.messages
}

// Snapshot returns the current store and the ticket of the fetch that
// produced it (0 before the first successful fetch).
func (p *Portal) Snapshot() (activities.Store, uint64) {
	p.mu.RLock()
	defer p.mu.RUnlock()
	return p.store, p.applied
}

// LoadActivities fetches all activities and replaces the store. On failure
// the store is left as it was. A response that arrives after a newer fetch
// has already been applied is discarded.
func (p *Portal) LoadActivities(ctx context.Context) error {
	ticket := p.tickets.Add(1)

	store, err := p.backend.ListActivities(ctx)
	if err != nil {
		p.logger.Error("error fetching activities", zap.Uint64("ticket", ticket), zap.Error(err))
		return err
	}

	p.mu.Lock()
	defer p.mu.Unlock()

	if ticket < p.applied {
		metrics.StaleResponses.Inc()
		p.logger.Debug("discarding stale activities response",
			zap.Uint64("ticket", ticket), zap.Uint64("applied", p.applied))
		return nil
	}

	p.store = store
	p.applied = ticket
	metrics.StoreReplacements.Inc()
	return nil
}

// Signup registers email for activity and reloads the store on success.
// An empty session runs the action without touching any message region.
func (p *Portal) Signup(ctx context.Context, session, activity, email string) Outcome {
	out := p.run(ctx, session, action{
		name:       "signup",
		failedText: SignupFailedMessage,
		call:       p.backend.Signup,
	}, activity, email)

	switch {
	case session == "":
	case out.Kind == KindSuccess:
		p.messages.ClearForm(session)
	default:
		p.messages.KeepForm(session, FormValues{Email: email, Activity: activity})
	}
	return out
}

// Unregister removes email from activity and reloads the store on success.
func (p *Portal) Unregister(ctx context.Context, session, activity, email string) Outcome {
	return p.run(ctx, session, action{
		name:       "unregister",
		failedText: UnregisterFailedMsg,
		call:       p.backend.Unregister,
	}, activity, email)
}

type action struct {
	name       string
	failedText string
	call       func(ctx context.Context, activity, email string) (*backend.Result, error)
}

func (p *Portal) run(ctx context.Context, session string, a action, activity, email string) Outcome {
	// The visitor leaving must not abort a write or the refresh after it.
	ctx = context.WithoutCancel(ctx)
	log := p.logger.With(zap.String("action", a.name), zap.String("activity", activity))

	var out Outcome
	var outcome string

	switch {
	case strings.TrimSpace(activity) == "" || strings.TrimSpace(email) == "":
		out = Outcome{Kind: KindError, Message: MissingFieldsMessage, Rejected: true}
		outcome = database.OutcomeRejected
		log.Info("action rejected", zap.Error(ErrMissingField))

	default:
		res, err := a.call(ctx, activity, email)
		out, outcome = classify(res, err, a.failedText)
		if err != nil {
			log.Warn("action failed", zap.String("outcome", outcome), zap.Error(err))
		}
	}

	if session != "" {
		p.messages.Show(session, out.Kind, out.Message)
	}
	metrics.Actions.WithLabelValues(a.name, string(out.Kind)).Inc()

	if out.Kind == KindSuccess {
		if err := p.LoadActivities(ctx); err == nil {
			out.Refreshed = true
			if p.notify != nil {
				_, version := p.Snapshot()
				p.notify.Broadcast(ActivitiesUpdatedType, map[string]interface{}{"version": version})
			}
		}
	}

	p.record(ctx, database.ActionLog{
		Action:     a.name,
		Activity:   activity,
		Email:      email,
		Outcome:    outcome,
		Message:    out.Message,
		StatusCode: out.StatusCode,
	})
	return out
}

func classify(res *backend.Result, err error, failedText string) (Outcome, string) {
	if err == nil {
		return Outcome{Kind: KindSuccess, Message: res.Message, StatusCode: res.StatusCode}, database.OutcomeSuccess
	}

	var apiErr *backend.APIError
	if errors.As(err, &apiErr) {
		msg := apiErr.Detail
		if msg == "" {
			msg = GenericErrorMessage
		}
		return Outcome{Kind: KindError, Message: msg, StatusCode: apiErr.StatusCode}, database.OutcomeAPIError
	}

	return Outcome{Kind: KindError, Message: failedText}, database.OutcomeTransportError
}

func (p *Portal) record(ctx context.Context, entry database.ActionLog) {
	if p.recorder == nil {
		return
	}
	if err := p.recorder.RecordAction(ctx, entry); err != nil {
		p.logger.Error("error logging action", zap.String("action", entry.Action), zap.Error(err))
	}
}
