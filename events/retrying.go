package events

import (
	"context"

	"recordbin/logging"
	"recordbin/patterns/retry"
)

// RetryingPublisher 按退避策略重试发布，最终失败只记录日志
type RetryingPublisher struct {
	next   Publisher
	cfg    retry.Config
	logger logging.Logger
}

// NewRetryingPublisher 包装 next；logger 为空时使用全局日志
func NewRetryingPublisher(next Publisher, cfg retry.Config, logger logging.Logger) *RetryingPublisher {
	if logger == nil {
		logger = logging.Named("events.publisher")
	}
	return &RetryingPublisher{next: next, cfg: cfg, logger: logger}
}

// Publish 始终返回 nil：事件投递失败不影响已提交的业务操作
func (p *RetryingPublisher) Publish(ctx context.Context, event Event) error {
	err := retry.Do(ctx, func(ctx context.Context, attempt int) error {
		if err := p.next.Publish(ctx, event); err != nil {
			p.logger.Debug(ctx, "publish attempt failed",
				logging.String("event_id", event.ID),
				logging.Int("attempt", attempt),
				logging.Error(err))
			return err
		}
		return nil
	}, p.cfg)
	if err != nil {
		p.logger.Warn(ctx, "event dropped",
			logging.String("event_id", event.ID),
			logging.String("kind", string(event.Kind)),
			logging.String("family", string(event.Family)),
			logging.Int64("record_id", event.RecordID),
			logging.Error(err))
	}
	return nil
}
