package portal

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMessages_ShowAndAutoHide(t *testing.T) {
	m := NewMessages(20 * time.Millisecond)

	assert.Equal(t, StateHidden, m.State("s1"))

	m.Show("s1", KindSuccess, "Signed up")
	assert.Equal(t, StateShowingSuccess, m.State("s1"))

	msg, ok := m.Current("s1")
	require.True(t, ok)
	assert.Equal(t, "Signed up", msg.Text)

	assert.Eventually(t, func() bool {
		return m.State("s1") == StateHidden
	}, time.Second, 5*time.Millisecond)

	m.mu.Lock()
	defer m.mu.Unlock()
	assert.Empty(t, m.regions, "hidden regions without a form are dropped")
}

func TestMessages_NewerMessageWins(t *testing.T) {
	m := NewMessages(time.Hour)

	m.Show("s1", KindSuccess, "first")
	m.mu.Lock()
	stale := m.regions["s1"].version
	m.mu.Unlock()

	m.Show("s1", KindError, "second")

	// the first message's timer firing late must not hide the second
	m.hide("s1", stale)

	msg, ok := m.Current("s1")
	require.True(t, ok)
	assert.Equal(t, "second", msg.Text)
	assert.Equal(t, StateShowingError, m.State("s1"))
}

func TestMessages_SessionsAreIndependent(t *testing.T) {
	m := NewMessages(time.Hour)

	m.Show("s1", KindError, "nope")

	assert.Equal(t, StateShowingError, m.State("s1"))
	assert.Equal(t, StateHidden, m.State("s2"))
}

func TestMessages_ExpiresAt(t *testing.T) {
	m := NewMessages(5 * time.Second)
	now := time.Date(2026, 10, 17, 12, 0, 0, 0, time.UTC)
	m.now = func() time.Time { return now }

	msg := m.Show("s1", KindSuccess, "ok")

	assert.Equal(t, now.Add(5*time.Second), msg.ExpiresAt)
}

func TestMessages_FormIsTakenOnce(t *testing.T) {
	m := NewMessages(time.Hour)

	m.KeepForm("s1", FormValues{Email: "a@x.com", Activity: "Chess Club"})

	assert.Equal(t, FormValues{Email: "a@x.com", Activity: "Chess Club"}, m.TakeForm("s1"))
	assert.Equal(t, FormValues{}, m.TakeForm("s1"))
}

func TestMessages_ClearForm(t *testing.T) {
	m := NewMessages(time.Hour)

	m.KeepForm("s1", FormValues{Email: "a@x.com"})
	m.ClearForm("s1")

	assert.Equal(t, FormValues{}, m.TakeForm("s1"))
}

func TestMessageState_String(t *testing.T) {
	assert.Equal(t, "hidden", StateHidden.String())
	assert.Equal(t, "showing-success", StateShowingSuccess.String())
	assert.Equal(t, "showing-error", StateShowingError.String())
}

func TestMessages_RecreatedRegionIgnoresOldTimer(t *testing.T) {
	m := NewMessages(time.Hour)

	m.Show("s1", KindSuccess, "first")
	m.mu.Lock()
	old := m.regions["s1"].version
	m.mu.Unlock()

	// the first message hides and its region is dropped
	m.hide("s1", old)
	assert.Equal(t, StateHidden, m.State("s1"))

	m.Show("s1", KindError, "second")

	// a late call carrying the dropped region's version
	m.hide("s1", old)

	msg, ok := m.Current("s1")
	require.True(t, ok)
	assert.Equal(t, "second", msg.Text)
}
