package server

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"sync/atomic"
	"syscall"

	"golang.org/x/sync/errgroup"

	"recordbin/logging"
)

// IServer 业务应用实现的生命周期步骤，Engine 按固定顺序调用
type IServer interface {
	Name() string

	// LoadConfig 解析配置文件与环境变量
	LoadConfig() error

	// SetupDependencies 连接数据库、组装引擎与路由
	SetupDependencies(ctx context.Context) error

	// StartBackgroundTasks 启动事件消费等非阻塞任务，ctx 在关闭时取消
	StartBackgroundTasks(ctx context.Context) error

	// Run 阻塞运行主服务，ctx 取消后应尽快返回
	Run(ctx context.Context) error

	// Shutdown 释放资源
	Shutdown(ctx context.Context) error
}

// Engine 编排启动流程：LoadConfig -> Setup -> Background -> Run -> 信号/错误 -> Shutdown
type Engine struct {
	server  IServer
	options *Options
	logger  logging.Logger
	state   atomic.Int32
}

// NewEngine 创建启动引擎
func NewEngine(server IServer, logger logging.Logger, opts ...Option) *Engine {
	options := DefaultOptions()
	if name := server.Name(); name != "" {
		options.Name = name
	}
	for _, o := range opts {
		o(options)
	}
	if logger == nil {
		logger = logging.Named("server")
	}
	e := &Engine{server: server, options: options, logger: logger.WithFields(logging.String("app", options.Name))}
	e.setState(StatePending)
	return e
}

// State 当前状态
func (e *Engine) State() State { return State(e.state.Load()) }

func (e *Engine) setState(s State) { e.state.Store(int32(s)) }

// Start 执行完整生命周期，直到 ctx 取消、收到 SIGINT/SIGTERM 或 Run 返回
func (e *Engine) Start(ctx context.Context) error {
	e.logger.Info(ctx, "starting", logging.String("version", e.options.Version))

	e.setState(StateInitializing)
	if err := e.server.LoadConfig(); err != nil {
		e.setState(StateError)
		return fmt.Errorf("failed to load config: %w", err)
	}

	setupCtx, setupCancel := context.WithTimeout(ctx, e.options.StartupTimeout)
	err := e.server.SetupDependencies(setupCtx)
	setupCancel()
	if err != nil {
		e.setState(StateError)
		return fmt.Errorf("failed to setup dependencies: %w", err)
	}
	e.setState(StatePrepared)

	for _, hook := range e.options.OnBeforeStart {
		if err := hook(ctx); err != nil {
			e.setState(StateError)
			return fmt.Errorf("OnBeforeStart hook failed: %w", err)
		}
	}

	sigCtx, stop := signal.NotifyContext(ctx, os.Interrupt, syscall.SIGTERM)
	defer stop()
	runCtx, cancel := context.WithCancel(sigCtx)
	defer cancel()

	if err := e.server.StartBackgroundTasks(runCtx); err != nil {
		_ = e.shutdown(ctx)
		e.setState(StateError)
		return fmt.Errorf("failed to start background tasks: %w", err)
	}

	e.setState(StateRunning)
	g, gctx := errgroup.WithContext(runCtx)
	g.Go(func() error {
		defer cancel()
		return e.server.Run(gctx)
	})
	g.Go(func() error {
		<-gctx.Done()
		e.logger.Info(ctx, "shutting down")
		return e.shutdown(ctx)
	})

	for _, hook := range e.options.OnAfterStart {
		if err := hook(runCtx); err != nil {
			e.logger.Warn(ctx, "OnAfterStart hook failed", logging.Error(err))
		}
	}

	if err := g.Wait(); err != nil {
		e.setState(StateError)
		return fmt.Errorf("server execution error: %w", err)
	}
	e.setState(StateStopped)
	e.logger.Info(ctx, "shutdown complete")
	return nil
}

// shutdown 使用独立于 ctx 取消信号的超时上下文
func (e *Engine) shutdown(ctx context.Context) error {
	e.setState(StateStopping)
	shutdownCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), e.options.ShutdownTimeout)
	defer cancel()

	for _, hook := range e.options.OnBeforeStop {
		if err := hook(shutdownCtx); err != nil {
			e.logger.Warn(ctx, "OnBeforeStop hook failed", logging.Error(err))
		}
	}
	if err := e.server.Shutdown(shutdownCtx); err != nil {
		e.logger.Error(ctx, "shutdown error", logging.Error(err))
		return err
	}
	for _, hook := range e.options.OnAfterStop {
		if err := hook(shutdownCtx); err != nil {
			e.logger.Warn(ctx, "OnAfterStop hook failed", logging.Error(err))
		}
	}
	return nil
}
