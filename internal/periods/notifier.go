package periods

import (
	"context"
	"encoding/json"
	"log/slog"

	"github.com/redis/go-redis/v9"
)

// NotifyChannel is the pub/sub channel period lifecycle notifications go out on.
const NotifyChannel = "periods.events"

// RedisNotifier publishes redacted lifecycle notifications on a Redis channel.
// Delivery failures are logged and swallowed; notifications never block or
// fail the lifecycle operation that produced them.
type RedisNotifier struct {
	client *redis.Client
	logger *slog.Logger
}

func NewRedisNotifier(client *redis.Client, logger *slog.Logger) *RedisNotifier {
	return &RedisNotifier{client: client, logger: logger}
}

func (n *RedisNotifier) Notify(ctx context.Context, notification Notification) {
	if n == nil || n.client == nil {
		return
	}
	body, err := json.Marshal(map[string]string{
		"kind":         string(notification.Kind),
		"branch_name":  notification.BranchName,
		"period_range": notification.PeriodRange,
		"actor_role":   notification.ActorRole,
	})
	if err != nil {
		return
	}
	if err := n.client.Publish(ctx, NotifyChannel, body).Err(); err != nil && n.logger != nil {
		n.logger.Warn("publish period notification",
			slog.String("kind", string(notification.Kind)),
			slog.Any("error", err))
	}
}
