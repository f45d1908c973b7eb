package voice

import (
	"context"
	"encoding/json"

	"lending-core/internal/common/errors"

	"github.com/redis/go-redis/v9"
)

const EventVoicemailReceived = "voicemail.received"

// Publisher broadcasts voicemail events for live listeners (dashboard,
// websocket bridges).
type Publisher interface {
	PublishVoicemail(ctx context.Context, vm Voicemail) error
}

// RedisPublisher publishes events on a Redis pub/sub channel.
type RedisPublisher struct {
	client  *redis.Client
	channel string
}

func NewRedisPublisher(client *redis.Client, channel string) *RedisPublisher {
	return &RedisPublisher{client: client, channel: channel}
}

func (p *RedisPublisher) PublishVoicemail(ctx context.Context, vm Voicemail) error {
	payload, err := json.Marshal(VoicemailEvent{
		Type:      EventVoicemailReceived,
		Voicemail: vm,
	})
	if err != nil {
		return errors.NewEventPublishFailedError(err)
	}
	if err := p.client.Publish(ctx, p.channel, payload).Err(); err != nil {
		return errors.NewEventPublishFailedError(err)
	}
	return nil
}

// NoopPublisher is used when Redis is not configured.
type NoopPublisher struct{}

func (NoopPublisher) PublishVoicemail(context.Context, Voicemail) error { return nil }
