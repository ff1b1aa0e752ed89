// Package app 组装 recordbin：数据库、回收站引擎、事件传输、活动日志与 HTTP 路由
package app

import (
	"context"
	stderrors "errors"
	"fmt"
	"net/http"
	"time"

	_ "github.com/jackc/pgx/v5/stdlib"
	_ "modernc.org/sqlite"

	"recordbin/activity"
	"recordbin/cache"
	"recordbin/codegen/snowflake"
	"recordbin/config"
	"recordbin/data/db/basic"
	"recordbin/data/db/migrations"
	"recordbin/domain/record"
	"recordbin/domain/snapshot"
	"recordbin/errors"
	"recordbin/events"
	"recordbin/events/natsjetstream"
	"recordbin/events/redisstreams"
	eventsync "recordbin/events/sync"
	"recordbin/logging"
	"recordbin/metrics"
	"recordbin/patterns/retry"
	"recordbin/transport/rest"
	"recordbin/trash"
)

// Options 组装选项
type Options struct {
	// Consume 为 true 时本进程消费事件并写活动日志；同步传输总是就地消费
	Consume bool
	Logger  logging.Logger
}

// App 已组装的依赖集合
type App struct {
	cfg       *config.Config
	logger    logging.Logger
	db        *basic.DB
	metrics   *metrics.Metrics
	transport events.Transport
	recorder  *activity.Recorder

	BusinessProfiles *trash.Engine[record.BusinessProfile, snapshot.BusinessProfile]
	Clients          *trash.Engine[record.Client, snapshot.Client]
	Invoices         *trash.Engine[record.Invoice, snapshot.Invoice]
}

// New 打开数据库、按需迁移并组装三个记录族的引擎
func New(ctx context.Context, cfg *config.Config, opts Options) (*App, error) {
	logger := opts.Logger
	if logger == nil {
		logger = logging.GetLogger()
	}

	db, err := basic.New(cfg.Database.DB())
	if err != nil {
		return nil, fmt.Errorf("open database: %w", err)
	}
	if cfg.Database.Migrate {
		if err := migrations.Up(ctx, db.SQL(), cfg.Database.Driver); err != nil {
			_ = db.Close()
			return nil, fmt.Errorf("migrate: %w", err)
		}
	}

	transport, err := transportFactory(cfg.Events, logger)
	if err != nil {
		_ = db.Close()
		return nil, err
	}
	release := func() {
		_ = transport.Close()
		_ = db.Close()
	}

	ids, err := snowflake.NewGenerator(cfg.Activity.Datacenter, cfg.Activity.Worker)
	if err != nil {
		release()
		return nil, err
	}

	a := &App{
		cfg:       cfg,
		logger:    logger,
		db:        db,
		metrics:   metrics.New(),
		transport: transport,
		recorder:  activity.NewRecorder(db, ids, logger.WithFields(logging.Component("activity"))),
	}
	if opts.Consume || cfg.Events.Transport == config.TransportSync {
		if err := transport.Subscribe(events.KindAny, a.recorder); err != nil {
			release()
			return nil, err
		}
	}

	publisher := events.NewRetryingPublisher(transport, retry.Config{
		MaxAttempts:   cfg.Events.Retry.Attempts,
		InitialDelay:  cfg.Events.Retry.Delay,
		BackoffFactor: 2,
		MaxDelay:      2 * time.Second,
	}, logger.WithFields(logging.Component("events")))

	engineOpts := trash.Options{
		Publisher:   publisher,
		Observer:    a.metrics,
		Logger:      logger.WithFields(logging.Component("trash")),
		MaxBulkSize: cfg.Trash.MaxBulk,
	}
	if cfg.Cache.Size > 0 {
		engineOpts.Cache = cache.NewArchiveCache(cfg.Cache.Size, cfg.Cache.TTL, a.metrics.CacheLookup)
	}

	a.BusinessProfiles = trash.NewBusinessProfileEngine(db, engineOpts)
	a.Clients = trash.NewClientEngine(db, engineOpts)
	a.Invoices = trash.NewInvoiceEngine(db, engineOpts)
	return a, nil
}

var transportFactory = newTransport

func newTransport(cfg config.EventsConfig, logger logging.Logger) (events.Transport, error) {
	switch cfg.Transport {
	case config.TransportRedis:
		return redisstreams.NewTransport(redisstreams.Config{
			Addr:         cfg.Redis.Addr,
			Password:     cfg.Redis.Password,
			DB:           cfg.Redis.DB,
			StreamPrefix: cfg.Redis.Prefix,
			GroupName:    cfg.Redis.Group,
			MaxLen:       cfg.Redis.MaxLen,
			Logger:       logger.WithFields(logging.Component("events.redisstreams")),
		})
	case config.TransportNATS:
		return natsjetstream.NewTransport(natsjetstream.Config{
			URL:           cfg.NATS.URL,
			Stream:        cfg.NATS.Stream,
			SubjectPrefix: cfg.NATS.Subject,
			Logger:        logger.WithFields(logging.Component("events.natsjetstream")),
		}), nil
	default:
		return eventsync.NewTransport(), nil
	}
}

// Start 启动事件传输，ctx 取消后消费协程退出
func (a *App) Start(ctx context.Context) error {
	if err := a.transport.Start(ctx); err != nil {
		return fmt.Errorf("start %s event transport: %w", a.cfg.Events.Transport, err)
	}
	return nil
}

// Router HTTP 路由
func (a *App) Router() http.Handler {
	return rest.NewRouter(rest.Config{
		BusinessProfiles: a.BusinessProfiles,
		Clients:          a.Clients,
		Invoices:         a.Invoices,
		Metrics:          a.metrics,
		Logger:           a.logger.WithFields(logging.Component("rest")),
		Ping:             a.db.SQL().PingContext,
		PageSize:         a.cfg.Trash.PageSize,
	})
}

// Operations 按记录族取引擎
func (a *App) Operations(family record.Family) (trash.Operations, error) {
	switch family {
	case record.FamilyBusinessProfile:
		return a.BusinessProfiles, nil
	case record.FamilyClient:
		return a.Clients, nil
	case record.FamilyInvoice:
		return a.Invoices, nil
	default:
		return nil, errors.NewValidationError(fmt.Sprintf("unknown record family %q", family))
	}
}

// Activity 活动日志
func (a *App) Activity() *activity.Recorder { return a.recorder }

// Metrics 指标
func (a *App) Metrics() *metrics.Metrics { return a.metrics }

// Close 关闭事件传输与数据库
func (a *App) Close() error {
	return stderrors.Join(a.transport.Close(), a.db.Close())
}
