// Package server 定义了应用服务的生命周期管理接口和运行时契约
package server

import (
	"context"
	"time"
)

// State 定义服务器生命周期状态
type State int32

const (
	// StatePending 等待初始化
	StatePending State = iota
	// StateInitializing 正在加载配置
	StateInitializing
	// StatePrepared 依赖已就绪，等待启动
	StatePrepared
	// StateRunning 服务正在运行
	StateRunning
	// StateStopping 正在执行优雅关闭
	StateStopping
	// StateStopped 服务已停止
	StateStopped
	// StateError 发生不可恢复的错误
	StateError
)

// String 返回状态的字符串表示
func (s State) String() string {
	switch s {
	case StatePending:
		return "Pending"
	case StateInitializing:
		return "Initializing"
	case StatePrepared:
		return "Prepared"
	case StateRunning:
		return "Running"
	case StateStopping:
		return "Stopping"
	case StateStopped:
		return "Stopped"
	case StateError:
		return "Error"
	default:
		return "Unknown"
	}
}

// Hook 生命周期回调，ctx 可用于超时控制
type Hook func(ctx context.Context) error

// Options 启动配置选项
type Options struct {
	Name            string
	Version         string
	StartupTimeout  time.Duration
	ShutdownTimeout time.Duration

	OnBeforeStart []Hook
	OnAfterStart  []Hook
	OnBeforeStop  []Hook
	OnAfterStop   []Hook
}

// Option 配置修改函数
type Option func(*Options)

// DefaultOptions 获取默认配置
func DefaultOptions() *Options {
	return &Options{
		Name:            "recordbin",
		Version:         "0.0.0",
		StartupTimeout:  30 * time.Second,
		ShutdownTimeout: 10 * time.Second,
	}
}

// WithVersion 设置服务版本
func WithVersion(version string) Option {
	return func(o *Options) {
		o.Version = version
	}
}

// WithStartupTimeout 设置依赖初始化超时
func WithStartupTimeout(t time.Duration) Option {
	return func(o *Options) {
		if t > 0 {
			o.StartupTimeout = t
		}
	}
}

// WithShutdownTimeout 设置关闭超时时间
func WithShutdownTimeout(t time.Duration) Option {
	return func(o *Options) {
		if t > 0 {
			o.ShutdownTimeout = t
		}
	}
}

// WithAfterStart 添加启动后回调，失败只记录告警
func WithAfterStart(fn Hook) Option {
	return func(o *Options) {
		o.OnAfterStart = append(o.OnAfterStart, fn)
	}
}

// WithBeforeStop 添加关闭前回调
func WithBeforeStop(fn Hook) Option {
	return func(o *Options) {
		o.OnBeforeStop = append(o.OnBeforeStop, fn)
	}
}

// WithAfterStop 添加停止后回调
func WithAfterStop(fn Hook) Option {
	return func(o *Options) {
		o.OnAfterStop = append(o.OnAfterStop, fn)
	}
}
