package notify

import (
	"context"
	"fmt"

	"github.com/safetyfirst/backend/internal/logger"
	"github.com/slack-go/slack"
)

// LogNotifier writes every notice to the application log.
type LogNotifier struct{}

func (LogNotifier) Notify(ctx context.Context, n Notice) error {
	entry := logger.WithIncident(n.Incident.ID, string(n.Type)).
		WithField("from_status", string(n.From)).
		WithField("to_status", string(n.Incident.Status)).
		WithField("severity", string(n.Incident.Severity))
	if n.ActorID != nil {
		entry = entry.WithField("actor_id", n.ActorID.String())
	}
	entry.Info("Incident changed")
	return nil
}

// SlackPoster is the part of the Slack API client the notifier uses.
type SlackPoster interface {
	PostMessageContext(ctx context.Context, channelID string, options ...slack.MsgOption) (string, string, error)
}

// SlackNotifier posts notices to a channel.
type SlackNotifier struct {
	client  SlackPoster
	channel string
}

func NewSlackNotifier(token, channel string) *SlackNotifier {
	return &SlackNotifier{client: slack.New(token), channel: channel}
}

func NewSlackNotifierWithClient(client SlackPoster, channel string) *SlackNotifier {
	return &SlackNotifier{client: client, channel: channel}
}

func (s *SlackNotifier) Notify(ctx context.Context, n Notice) error {
	_, _, err := s.client.PostMessageContext(ctx, s.channel, slack.MsgOptionText(n.Text(), false))
	if err != nil {
		return fmt.Errorf("post to slack channel %s: %w", s.channel, err)
	}
	return nil
}
