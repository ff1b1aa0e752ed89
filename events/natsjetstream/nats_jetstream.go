// Package natsjetstream 基于 NATS JetStream 持久队列订阅的事件传输
package natsjetstream

import (
	"context"
	"errors"
	"strings"
	"sync"
	"time"

	"github.com/nats-io/nats.go"

	"recordbin/events"
	"recordbin/logging"
)

// Config JetStream 传输配置
type Config struct {
	URL           string
	Stream        string
	SubjectPrefix string
	DurablePrefix string
	AckWait       time.Duration
	MaxAckPending int
	Logger        logging.Logger
	Conn          *nats.Conn

	// Retention workqueue|limits|interest（默认 workqueue）
	Retention string
	MaxBytes  int64
	Replicas  int
}

// Transport 每个事件类型一个主题，每个主题一个持久队列订阅
type Transport struct {
	cfg      Config
	logger   logging.Logger
	registry *events.Registry

	mu       sync.RWMutex
	conn     *nats.Conn
	js       nats.JetStreamContext
	ownsConn bool
	subs     map[events.Kind]*nats.Subscription
	running  bool
}

// NewTransport 创建传输，连接在 Start 时建立
func NewTransport(cfg Config) *Transport {
	if cfg.Stream == "" {
		cfg.Stream = "RECORDBIN"
	}
	if cfg.SubjectPrefix == "" {
		cfg.SubjectPrefix = "recordbin."
	}
	if cfg.DurablePrefix == "" {
		cfg.DurablePrefix = "recordbin-"
	}
	if cfg.AckWait <= 0 {
		cfg.AckWait = 30 * time.Second
	}
	if cfg.MaxAckPending <= 0 {
		cfg.MaxAckPending = 1024
	}
	if cfg.Logger == nil {
		cfg.Logger = logging.Named("events.natsjetstream")
	}
	return &Transport{
		cfg:      cfg,
		logger:   cfg.Logger,
		registry: events.NewRegistry(),
		subs:     make(map[events.Kind]*nats.Subscription),
	}
}

// Publish 发布到 JetStream，等待服务端确认
func (t *Transport) Publish(ctx context.Context, event events.Event) error {
	t.mu.RLock()
	js := t.js
	running := t.running
	t.mu.RUnlock()
	if !running || js == nil {
		return errors.New("nats transport not running")
	}
	data, err := events.Marshal(event)
	if err != nil {
		return err
	}
	msg := nats.NewMsg(t.subjectName(event.Kind))
	msg.Data = data
	// 事件 ID 作为去重键
	msg.Header.Set(nats.MsgIdHdr, event.ID)
	_, err = js.PublishMsg(msg, nats.Context(ctx))
	return err
}

// Subscribe 注册处理器；KindAny 展开为全部具体类型
func (t *Transport) Subscribe(kind events.Kind, handler events.Handler) error {
	kinds := expand(kind)
	for _, k := range kinds {
		t.registry.Add(k, handler)
	}
	t.mu.Lock()
	defer t.mu.Unlock()
	if !t.running {
		return nil
	}
	for _, k := range kinds {
		if err := t.subscribeLocked(k); err != nil {
			return err
		}
	}
	return nil
}

// Unsubscribe 移除处理器；类型无处理器时排空订阅
func (t *Transport) Unsubscribe(kind events.Kind, handler events.Handler) error {
	for _, k := range expand(kind) {
		if !t.registry.Remove(k, handler) {
			continue
		}
		t.mu.Lock()
		if sub, ok := t.subs[k]; ok {
			_ = sub.Drain()
			delete(t.subs, k)
		}
		t.mu.Unlock()
	}
	return nil
}

// Start 建立连接、确保流存在并订阅已注册类型
func (t *Transport) Start(ctx context.Context) error {
	t.mu.Lock()
	defer t.mu.Unlock()
	if t.running {
		return errors.New("nats transport already running")
	}
	if err := t.ensureConnection(); err != nil {
		return err
	}
	if err := t.ensureStream(); err != nil {
		return err
	}
	for _, k := range t.registry.Kinds() {
		if err := t.subscribeLocked(k); err != nil {
			return err
		}
	}
	t.running = true
	return nil
}

// Close 排空订阅；自建连接一并关闭
func (t *Transport) Close() error {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.running = false
	for k, sub := range t.subs {
		_ = sub.Drain()
		delete(t.subs, k)
	}
	if t.ownsConn && t.conn != nil {
		t.conn.Close()
	}
	t.conn = nil
	t.js = nil
	return nil
}

// Stats 返回统计信息
func (t *Transport) Stats() events.Stats {
	t.mu.RLock()
	running := t.running
	t.mu.RUnlock()
	return t.registry.Stats(running)
}

func (t *Transport) ensureConnection() error {
	if t.conn != nil && t.js != nil {
		return nil
	}
	if t.cfg.Conn != nil {
		t.conn = t.cfg.Conn
	} else {
		url := t.cfg.URL
		if url == "" {
			url = nats.DefaultURL
		}
		conn, err := nats.Connect(url, nats.Name("recordbin"))
		if err != nil {
			return err
		}
		t.conn = conn
		t.ownsConn = true
	}
	js, err := t.conn.JetStream()
	if err != nil {
		return err
	}
	t.js = js
	return nil
}

func (t *Transport) ensureStream() error {
	_, err := t.js.StreamInfo(t.cfg.Stream)
	if err == nil {
		return nil
	}
	if !errors.Is(err, nats.ErrStreamNotFound) && !strings.Contains(err.Error(), "stream not found") {
		return err
	}
	sc := &nats.StreamConfig{
		Name:      t.cfg.Stream,
		Subjects:  []string{t.cfg.SubjectPrefix + ">"},
		Retention: retentionPolicy(t.cfg.Retention),
	}
	if t.cfg.MaxBytes > 0 {
		sc.MaxBytes = t.cfg.MaxBytes
	}
	if t.cfg.Replicas > 0 {
		sc.Replicas = t.cfg.Replicas
	}
	_, err = t.js.AddStream(sc)
	return err
}

func retentionPolicy(s string) nats.RetentionPolicy {
	switch strings.ToLower(s) {
	case "limits":
		return nats.LimitsPolicy
	case "interest":
		return nats.InterestPolicy
	default:
		return nats.WorkQueuePolicy
	}
}

func (t *Transport) subscribeLocked(kind events.Kind) error {
	if _, exists := t.subs[kind]; exists {
		return nil
	}
	durable := t.durableName(kind)
	sub, err := t.js.QueueSubscribe(t.subjectName(kind), durable, t.handleMessage,
		nats.ManualAck(),
		nats.Durable(durable),
		nats.AckWait(t.cfg.AckWait),
		nats.MaxAckPending(t.cfg.MaxAckPending))
	if err != nil {
		return err
	}
	t.subs[kind] = sub
	return nil
}

// handleMessage 解码失败直接 ACK；处理器失败时 NAK 以便重投
func (t *Transport) handleMessage(msg *nats.Msg) {
	ctx := context.Background()
	event, err := events.Unmarshal(msg.Data)
	if err != nil {
		t.logger.Warn(ctx, "decode nats message failed", logging.String("subject", msg.Subject), logging.Error(err))
		_ = msg.Ack()
		return
	}
	failed := false
	for _, h := range t.registry.Match(event.Kind) {
		if herr := h.Handle(ctx, event); herr != nil {
			failed = true
			t.logger.Warn(ctx, "event handler failed",
				logging.String("handler", h.Name()),
				logging.String("event_id", event.ID),
				logging.Error(herr))
		}
	}
	if failed {
		_ = msg.Nak()
		return
	}
	if err := msg.Ack(); err != nil {
		t.logger.Warn(ctx, "nats ack failed", logging.Error(err))
	}
}

func (t *Transport) subjectName(kind events.Kind) string {
	return t.cfg.SubjectPrefix + string(kind)
}

// durableName 持久名不能包含点号
func (t *Transport) durableName(kind events.Kind) string {
	return t.cfg.DurablePrefix + strings.ReplaceAll(string(kind), ".", "-")
}

func expand(kind events.Kind) []events.Kind {
	if kind == events.KindAny {
		return events.Kinds
	}
	return []events.Kind{kind}
}

var _ events.Transport = (*Transport)(nil)
