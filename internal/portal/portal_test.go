package portal

import (
	"context"
	"errors"
	"net/http"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"

	"activityportal/internal/activities"
	"activityportal/internal/backend"
	"activityportal/internal/database"
)

type fakeBackend struct {
	mu         sync.Mutex
	lists      int
	listFn     func(call int) (activities.Store, error)
	signupFn   func(activity, email string) (*backend.Result, error)
	unregister func(activity, email string) (*backend.Result, error)
	writes     int
}

func (f *fakeBackend) ListActivities(ctx context.Context) (activities.Store, error) {
	f.mu.Lock()
	f.lists++
	call := f.lists
	fn := f.listFn
	f.mu.Unlock()
	if fn == nil {
		return activities.NewStore(nil), nil
	}
	return fn(call)
}

func (f *fakeBackend) Signup(ctx context.Context, activity, email string) (*backend.Result, error) {
	f.mu.Lock()
	f.writes++
	f.mu.Unlock()
	return f.signupFn(activity, email)
}

func (f *fakeBackend) Unregister(ctx context.Context, activity, email string) (*backend.Result, error) {
	f.mu.Lock()
	f.writes++
	f.mu.Unlock()
	return f.unregister(activity, email)
}

func (f *fakeBackend) listCalls() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.lists
}

type fakeRecorder struct {
	mu      sync.Mutex
	entries []database.ActionLog
	err     error
}

func (r *fakeRecorder) RecordAction(ctx context.Context, entry database.ActionLog) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.entries = append(r.entries, entry)
	return r.err
}

type fakeBroadcaster struct {
	mu     sync.Mutex
	events []string
}

func (b *fakeBroadcaster) Broadcast(updateType string, data interface{}) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.events = append(b.events, updateType)
}

func storeOf(names ...string) activities.Store {
	entries := make([]activities.Entry, len(names))
	for i, n := range names {
		entries[i] = activities.Entry{Name: n, Activity: activities.Activity{MaxParticipants: 10}}
	}
	return activities.NewStore(entries)
}

func newTestPortal(t *testing.T, b Backend, rec ActionRecorder, bc Broadcaster) *Portal {
	t.Helper()
	opts := Options{HideAfter: time.Hour, Recorder: rec}
	if bc != nil {
		opts.Broadcaster = bc
	}
	return New(b, zaptest.NewLogger(t), opts)
}

func TestLoadActivities_ReplacesStore(t *testing.T) {
	b := &fakeBackend{listFn: func(call int) (activities.Store, error) {
		if call == 1 {
			return storeOf("Chess Club"), nil
		}
		return storeOf("Drama", "Choir"), nil
	}}
	p := newTestPortal(t, b, nil, nil)

	require.NoError(t, p.LoadActivities(context.Background()))
	s, v1 := p.Snapshot()
	assert.Equal(t, 1, s.Len())

	require.NoError(t, p.LoadActivities(context.Background()))
	s, v2 := p.Snapshot()
	assert.Equal(t, 2, s.Len())
	_, ok := s.Get("Chess Club")
	assert.False(t, ok, "store is replaced, not merged")
	assert.Greater(t, v2, v1)
}

func TestLoadActivities_FailureKeepsStore(t *testing.T) {
	b := &fakeBackend{listFn: func(call int) (activities.Store, error) {
		if call == 1 {
			return storeOf("Chess Club"), nil
		}
		return activities.Store{}, &backend.TransportError{Op: backend.OpList, Err: errors.New("connection refused")}
	}}
	p := newTestPortal(t, b, nil, nil)

	require.NoError(t, p.LoadActivities(context.Background()))
	err := p.LoadActivities(context.Background())
	assert.True(t, backend.IsTransport(err))

	s, _ := p.Snapshot()
	_, ok := s.Get("Chess Club")
	assert.True(t, ok)
}

func TestLoadActivities_DiscardsStaleResponse(t *testing.T) {
	entered := make(chan struct{})
	release := make(chan struct{})
	b := &fakeBackend{listFn: func(call int) (activities.Store, error) {
		if call == 1 {
			close(entered)
			<-release
			return storeOf("Old"), nil
		}
		return storeOf("New"), nil
	}}
	p := newTestPortal(t, b, nil, nil)

	done := make(chan error)
	go func() { done <- p.LoadActivities(context.Background()) }()
	<-entered

	require.NoError(t, p.LoadActivities(context.Background()))
	close(release)
	require.NoError(t, <-done)

	s, version := p.Snapshot()
	_, ok := s.Get("New")
	assert.True(t, ok)
	assert.Equal(t, uint64(2), version)
}

func TestSignup_AlreadyRegistered(t *testing.T) {
	b := &fakeBackend{signupFn: func(activity, email string) (*backend.Result, error) {
		return nil, &backend.APIError{Op: backend.OpSignup, StatusCode: http.StatusBadRequest, Detail: "Already registered"}
	}}
	rec := &fakeRecorder{}
	p := newTestPortal(t, b, rec, nil)

	out := p.Signup(context.Background(), "s1", "Chess Club", "a@x.com")

	assert.Equal(t, KindError, out.Kind)
	assert.Equal(t, "Already registered", out.Message)
	assert.False(t, out.Refreshed)
	assert.Equal(t, 0, b.listCalls(), "no refetch after an application error")

	msg, ok := p.Messages().Current("s1")
	require.True(t, ok)
	assert.Equal(t, "Already registered", msg.Text)
	assert.Equal(t, StateShowingError, p.Messages().State("s1"))
	assert.Equal(t, FormValues{Email: "a@x.com", Activity: "Chess Club"}, p.Messages().TakeForm("s1"), "form is not reset")

	require.Len(t, rec.entries, 1)
	assert.Equal(t, database.OutcomeAPIError, rec.entries[0].Outcome)
	assert.Equal(t, http.StatusBadRequest, rec.entries[0].StatusCode)
}

func TestSignup_SuccessClearsFormAndRefreshes(t *testing.T) {
	b := &fakeBackend{
		signupFn: func(activity, email string) (*backend.Result, error) {
			return &backend.Result{StatusCode: http.StatusOK, Message: "Signed up a@x.com for Chess Club"}, nil
		},
		listFn: func(call int) (activities.Store, error) { return storeOf("Chess Club"), nil },
	}
	bc := &fakeBroadcaster{}
	p := newTestPortal(t, b, &fakeRecorder{}, bc)
	p.Messages().KeepForm("s1", FormValues{Email: "old@x.com"})

	out := p.Signup(context.Background(), "s1", "Chess Club", "a@x.com")

	assert.Equal(t, KindSuccess, out.Kind)
	assert.Equal(t, "Signed up a@x.com for Chess Club", out.Message)
	assert.True(t, out.Refreshed)
	assert.Equal(t, 1, b.listCalls())
	assert.Equal(t, FormValues{}, p.Messages().TakeForm("s1"))
	assert.Equal(t, []string{ActivitiesUpdatedType}, bc.events)
}

func TestSignup_Failures(t *testing.T) {
	tests := []struct {
		name    string
		err     error
		wantMsg string
	}{
		{name: "transport", err: &backend.TransportError{Op: backend.OpSignup, Err: errors.New("dial tcp: refused")}, wantMsg: SignupFailedMessage},
		{name: "api error without detail", err: &backend.APIError{Op: backend.OpSignup, StatusCode: http.StatusNotFound}, wantMsg: GenericErrorMessage},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			b := &fakeBackend{signupFn: func(activity, email string) (*backend.Result, error) { return nil, tt.err }}
			p := newTestPortal(t, b, nil, nil)

			out := p.Signup(context.Background(), "s1", "Chess Club", "a@x.com")

			assert.Equal(t, KindError, out.Kind)
			assert.Equal(t, tt.wantMsg, out.Message)
			assert.Equal(t, 0, b.listCalls())
		})
	}
}

func TestSignup_MissingFieldsNeverReachBackend(t *testing.T) {
	b := &fakeBackend{}
	rec := &fakeRecorder{}
	p := newTestPortal(t, b, rec, nil)

	out := p.Signup(context.Background(), "s1", "", "a@x.com")

	assert.Equal(t, KindError, out.Kind)
	assert.Equal(t, MissingFieldsMessage, out.Message)
	assert.Equal(t, 0, b.writes)
	require.Len(t, rec.entries, 1)
	assert.Equal(t, database.OutcomeRejected, rec.entries[0].Outcome)
}

func TestUnregister_SuccessRefetches(t *testing.T) {
	b := &fakeBackend{
		unregister: func(activity, email string) (*backend.Result, error) {
			assert.Equal(t, "Chess Club", activity)
			assert.Equal(t, "a@x.com", email)
			return &backend.Result{StatusCode: http.StatusOK, Message: "Unregistered"}, nil
		},
		listFn: func(call int) (activities.Store, error) { return storeOf("Chess Club"), nil },
	}
	p := newTestPortal(t, b, nil, nil)

	out := p.Unregister(context.Background(), "s1", "Chess Club", "a@x.com")

	assert.Equal(t, KindSuccess, out.Kind)
	assert.Equal(t, "Unregistered", out.Message)
	assert.True(t, out.Refreshed)
	assert.Equal(t, 1, b.listCalls())
	assert.Equal(t, StateShowingSuccess, p.Messages().State("s1"))
}

func TestUnregister_TransportFailure(t *testing.T) {
	b := &fakeBackend{unregister: func(activity, email string) (*backend.Result, error) {
		return nil, &backend.TransportError{Op: backend.OpUnregister, Err: errors.New("timeout")}
	}}
	p := newTestPortal(t, b, nil, nil)

	out := p.Unregister(context.Background(), "s1", "Chess Club", "a@x.com")

	assert.Equal(t, UnregisterFailedMsg, out.Message)
	assert.Equal(t, StateShowingError, p.Messages().State("s1"))
}

func TestSignup_RefreshFailureStillSucceeds(t *testing.T) {
	b := &fakeBackend{
		signupFn: func(activity, email string) (*backend.Result, error) {
			return &backend.Result{StatusCode: http.StatusOK, Message: "ok"}, nil
		},
		listFn: func(call int) (activities.Store, error) {
			return activities.Store{}, &backend.TransportError{Op: backend.OpList, Err: errors.New("reset")}
		},
	}
	bc := &fakeBroadcaster{}
	p := newTestPortal(t, b, nil, bc)

	out := p.Signup(context.Background(), "s1", "Chess Club", "a@x.com")

	assert.Equal(t, KindSuccess, out.Kind)
	assert.False(t, out.Refreshed)
	assert.Empty(t, bc.events)
}

func TestRecorderFailureDoesNotAffectAction(t *testing.T) {
	b := &fakeBackend{signupFn: func(activity, email string) (*backend.Result, error) {
		return &backend.Result{StatusCode: http.StatusOK, Message: "ok"}, nil
	}}
	p := newTestPortal(t, b, &fakeRecorder{err: errors.New("db closed")}, nil)

	out := p.Signup(context.Background(), "s1", "Chess Club", "a@x.com")

	assert.Equal(t, KindSuccess, out.Kind)
}

func TestActions_WithoutSessionLeaveNoRegion(t *testing.T) {
	b := &fakeBackend{
		signupFn: func(activity, email string) (*backend.Result, error) {
			return nil, &backend.APIError{Op: backend.OpSignup, StatusCode: http.StatusBadRequest, Detail: "Already registered"}
		},
		unregister: func(activity, email string) (*backend.Result, error) {
			return &backend.Result{StatusCode: http.StatusOK, Message: "Unregistered"}, nil
		},
	}
	p := newTestPortal(t, b, nil, nil)

	out := p.Signup(context.Background(), "", "Chess Club", "a@x.com")
	assert.Equal(t, "Already registered", out.Message)

	out = p.Unregister(context.Background(), "", "Chess Club", "a@x.com")
	assert.Equal(t, KindSuccess, out.Kind)

	p.messages.mu.Lock()
	defer p.messages.mu.Unlock()
	assert.Empty(t, p.messages.regions)
}
