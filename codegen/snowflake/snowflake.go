// Package snowflake 生成按时间递增的 64 位 ID，用作活动日志主键
package snowflake

import (
	"errors"
	"fmt"
	"sync"
	"time"
)

const (
	// 起始时间戳 (2024-01-01 00:00:00 UTC)
	epoch int64 = 1704067200000

	datacenterIDBits = 5
	workerIDBits     = 5
	sequenceBits     = 12

	maxDatacenterID = -1 ^ (-1 << datacenterIDBits) // 31
	maxWorkerID     = -1 ^ (-1 << workerIDBits)     // 31
	maxSequence     = -1 ^ (-1 << sequenceBits)     // 4095

	workerIDShift      = sequenceBits
	datacenterIDShift  = sequenceBits + workerIDBits
	timestampLeftShift = sequenceBits + workerIDBits + datacenterIDBits

	// maxBackwardDrift 时钟小幅回拨时等待追平，超过则报错
	maxBackwardDrift = 5 * time.Millisecond
)

// ErrClockBackwards 时钟回拨超过容忍范围
var ErrClockBackwards = errors.New("clock moved backwards, refusing to generate id")

// Generator 雪花 ID 生成器，并发安全
type Generator struct {
	mu           sync.Mutex
	datacenterID int64
	workerID     int64
	sequence     int64
	lastMillis   int64
	now          func() time.Time
}

// Option 生成器选项
type Option func(*Generator)

// WithClock 替换时钟（测试用）
func WithClock(now func() time.Time) Option {
	return func(g *Generator) { g.now = now }
}

// NewGenerator 创建生成器，datacenterID 与 workerID 取值 0..31
func NewGenerator(datacenterID, workerID int64, opts ...Option) (*Generator, error) {
	if datacenterID < 0 || datacenterID > maxDatacenterID {
		return nil, fmt.Errorf("datacenter ID %d out of range [0,%d]", datacenterID, maxDatacenterID)
	}
	if workerID < 0 || workerID > maxWorkerID {
		return nil, fmt.Errorf("worker ID %d out of range [0,%d]", workerID, maxWorkerID)
	}
	g := &Generator{datacenterID: datacenterID, workerID: workerID, lastMillis: -1, now: time.Now}
	for _, opt := range opts {
		opt(g)
	}
	return g, nil
}

// NextID 生成下一个 ID
func (g *Generator) NextID() (int64, error) {
	g.mu.Lock()
	defer g.mu.Unlock()

	now := g.millis()
	if now < g.lastMillis {
		drift := time.Duration(g.lastMillis-now) * time.Millisecond
		if drift > maxBackwardDrift {
			return 0, fmt.Errorf("%w: %s", ErrClockBackwards, drift)
		}
		for now < g.lastMillis {
			time.Sleep(time.Millisecond)
			now = g.millis()
		}
	}

	if now == g.lastMillis {
		g.sequence = (g.sequence + 1) & maxSequence
		if g.sequence == 0 {
			// 本毫秒序列号用完，等待下一毫秒
			for now <= g.lastMillis {
				time.Sleep(100 * time.Microsecond)
				now = g.millis()
			}
		}
	} else {
		g.sequence = 0
	}
	g.lastMillis = now

	return ((now - epoch) << timestampLeftShift) |
		(g.datacenterID << datacenterIDShift) |
		(g.workerID << workerIDShift) |
		g.sequence, nil
}

func (g *Generator) millis() int64 {
	return g.now().UnixMilli()
}

// Parts ID 的组成部分
type Parts struct {
	Time         time.Time
	DatacenterID int64
	WorkerID     int64
	Sequence     int64
}

// Parse 拆解 ID
func Parse(id int64) Parts {
	return Parts{
		Time:         time.UnixMilli((id >> timestampLeftShift) + epoch).UTC(),
		DatacenterID: (id >> datacenterIDShift) & maxDatacenterID,
		WorkerID:     (id >> workerIDShift) & maxWorkerID,
		Sequence:     id & maxSequence,
	}
}
