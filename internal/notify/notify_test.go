package notify

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/safetyfirst/backend/internal/models"
	"github.com/slack-go/slack"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type recordingNotifier struct {
	mu      sync.Mutex
	notices []Notice
	started chan struct{}
	release chan struct{}
	err     error
}

func (r *recordingNotifier) Notify(ctx context.Context, n Notice) error {
	if r.started != nil {
		r.started <- struct{}{}
	}
	if r.release != nil {
		<-r.release
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	r.notices = append(r.notices, n)
	return r.err
}

func (r *recordingNotifier) count() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.notices)
}

type slackMock struct {
	PostMessageContextFunc func(ctx context.Context, channelID string, options ...slack.MsgOption) (string, string, error)

	mu    sync.Mutex
	calls []string
}

func (m *slackMock) PostMessageContext(ctx context.Context, channelID string, options ...slack.MsgOption) (string, string, error) {
	m.mu.Lock()
	m.calls = append(m.calls, channelID)
	m.mu.Unlock()
	return m.PostMessageContextFunc(ctx, channelID, options...)
}

func notice(t models.EventType) Notice {
	inc := models.NewIncident(nil, models.SeverityMajor, time.Now())
	return Notice{Type: t, Incident: inc, At: time.Now()}
}

func TestDispatcherDeliversToAllNotifiers(t *testing.T) {
	a, b := &recordingNotifier{}, &recordingNotifier{err: errors.New("down")}
	d := NewDispatcher(3, 10, a, b)

	for i := 0; i < 5; i++ {
		require.True(t, d.Publish(notice(models.EventTypeCreated)))
	}
	d.Stop()

	assert.Equal(t, 5, a.count())
	assert.Equal(t, 5, b.count())
}

func TestDispatcherDropsWhenFull(t *testing.T) {
	n := &recordingNotifier{started: make(chan struct{}, 10), release: make(chan struct{})}
	d := NewDispatcher(1, 1, n)

	require.True(t, d.Publish(notice(models.EventTypeCreated)))
	<-n.started // worker is busy with the first notice

	assert.True(t, d.Publish(notice(models.EventTypeAssignment)))
	assert.False(t, d.Publish(notice(models.EventTypeArchive)))

	close(n.release)
	d.Stop()
	assert.Equal(t, 2, n.count())
}

func TestDispatcherAfterStop(t *testing.T) {
	n := &recordingNotifier{}
	d := NewDispatcher(1, 1, n)
	d.Stop()
	d.Stop()

	assert.False(t, d.Publish(notice(models.EventTypeCreated)))
	assert.Equal(t, 0, n.count())
}

func TestSlackNotifier(t *testing.T) {
	mock := &slackMock{
		PostMessageContextFunc: func(ctx context.Context, channelID string, options ...slack.MsgOption) (string, string, error) {
			return channelID, "1700000000.000100", nil
		},
	}
	s := NewSlackNotifierWithClient(mock, "C-SAFETY")

	require.NoError(t, s.Notify(context.Background(), notice(models.EventTypeCreated)))
	assert.Equal(t, []string{"C-SAFETY"}, mock.calls)

	mock.PostMessageContextFunc = func(ctx context.Context, channelID string, options ...slack.MsgOption) (string, string, error) {
		return "", "", errors.New("channel_not_found")
	}
	err := s.Notify(context.Background(), notice(models.EventTypeCreated))
	assert.ErrorContains(t, err, "channel_not_found")
}

func TestNoticeText(t *testing.T) {
	n := notice(models.EventTypeCreated)
	n.Incident.Location = &models.PlantLocation{NameHe: "מחסן"}
	assert.Contains(t, n.Text(), "דיווח חדש")
	assert.Contains(t, n.Text(), "במחסן")
	assert.Contains(t, n.Text(), models.SeverityMajor.Label())

	n = notice(models.EventTypeAssignment)
	n.Incident.AssignedUser = &models.User{FullName: "דנה לוי"}
	assert.Contains(t, n.Text(), "דנה לוי")

	n = notice(models.EventTypeStatusChange)
	n.From = models.StatusAssigned
	n.Incident.Status = models.StatusResolved
	assert.Contains(t, n.Text(), models.StatusResolved.Label())

	id := uuid.New()
	ev := models.IncidentEvent{Type: models.EventTypeArchive, FromStatus: models.StatusNew, ActorID: &id}
	got := NoticeFor(ev, n.Incident)
	assert.Equal(t, models.EventTypeArchive, got.Type)
	assert.Equal(t, &id, got.ActorID)
}
