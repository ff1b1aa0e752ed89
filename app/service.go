package app

import (
	"context"
	stderrors "errors"
	"net/http"

	"recordbin/config"
	"recordbin/logging"
	"recordbin/server"
)

// Service 把 App 接入 server.Engine 的生命周期
type Service struct {
	cfg    *config.Config
	logger logging.Logger
	app    *App
	http   *http.Server
}

var _ server.IServer = (*Service)(nil)

// NewService cfg 须已加载
func NewService(cfg *config.Config, logger logging.Logger) *Service {
	if logger == nil {
		logger = logging.GetLogger()
	}
	return &Service{cfg: cfg, logger: logger}
}

func (s *Service) Name() string { return "recordbin" }

// LoadConfig 配置由调用方加载，这里只做校验
func (s *Service) LoadConfig() error {
	return s.cfg.Validate()
}

func (s *Service) SetupDependencies(ctx context.Context) error {
	a, err := New(ctx, s.cfg, Options{Consume: true, Logger: s.logger})
	if err != nil {
		return err
	}
	s.app = a
	s.http = &http.Server{
		Addr:         s.cfg.HTTP.Addr,
		Handler:      a.Router(),
		ReadTimeout:  s.cfg.HTTP.Timeout.Read,
		WriteTimeout: s.cfg.HTTP.Timeout.Write,
		IdleTimeout:  s.cfg.HTTP.Timeout.Idle,
	}
	return nil
}

func (s *Service) StartBackgroundTasks(ctx context.Context) error {
	return s.app.Start(ctx)
}

// Run 阻塞直到 Shutdown 关闭监听
func (s *Service) Run(ctx context.Context) error {
	s.logger.Info(ctx, "http server listening", logging.String("addr", s.http.Addr))
	if err := s.http.ListenAndServe(); err != nil && !stderrors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}

func (s *Service) Shutdown(ctx context.Context) error {
	var errs []error
	if s.http != nil {
		errs = append(errs, s.http.Shutdown(ctx))
	}
	if s.app != nil {
		errs = append(errs, s.app.Close())
	}
	return stderrors.Join(errs...)
}

// App 已组装的依赖，SetupDependencies 之前为 nil
func (s *Service) App() *App { return s.app }
