package redis

import (
	"context"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
)

const deliveryKeyTTL = 30 * 24 * time.Hour

// DeliveryLog tracks which webhook orders have already been seen. The
// payment platform retries delivery, and each retry legitimately mints a
// fresh, functionally identical key; the log only lets us tell first
// deliveries from duplicates in logs and metrics. It never blocks
// issuance.
type DeliveryLog struct {
	client *redis.Client
	logger *zap.Logger
}

func NewDeliveryLog(client *redis.Client, logger *zap.Logger) *DeliveryLog {
	return &DeliveryLog{
		client: client,
		logger: logger.Named("DeliveryLog"),
	}
}

// MarkSeen records the order and reports whether this is the first
// delivery. On any Redis error it assumes a first delivery so a broken
// cache can never affect webhook handling.
func (l *DeliveryLog) MarkSeen(ctx context.Context, orderID string) bool {
	key := fmt.Sprintf("webhook:delivered:%s", orderID)

	first, err := l.client.SetNX(ctx, key, time.Now().UTC().Format(time.RFC3339), deliveryKeyTTL).Result()
	if err != nil {
		l.logger.Warn("Failed to record webhook delivery marker, assuming first delivery",
			zap.String("order_id", orderID), zap.Error(err))
		return true
	}

	return first
}
