package promo

import (
	"context"
	"sync"
	"time"

	"go.uber.org/zap"
)

type Repo interface {
	ExpirePromotions(ctx context.Context, now time.Time) (int64, error)
}

type Expirer interface {
	Start()
	Close()
}

type Config struct {
	Repo     Repo
	Interval time.Duration
	Timeout  time.Duration
	Log      *zap.Logger
	Now      func() time.Time
}

type expirer struct {
	repo     Repo
	interval time.Duration
	timeout  time.Duration
	log      *zap.Logger
	now      func() time.Time

	done chan struct{}
	once sync.Once
	wg   sync.WaitGroup
}

// NewExpirer создаёт фоновый процесс, который по тикеру снимает флаг active
// с закончившихся акций.
func NewExpirer(cfg Config) Expirer {
	if cfg.Now == nil {
		cfg.Now = time.Now
	}
	if cfg.Log == nil {
		cfg.Log = zap.NewNop()
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = 5 * time.Second
	}

	return &expirer{
		repo:     cfg.Repo,
		interval: cfg.Interval,
		timeout:  cfg.Timeout,
		log:      cfg.Log,
		now:      cfg.Now,
		done:     make(chan struct{}),
	}
}

func (e *expirer) Start() {
	e.wg.Add(1)
	go e.run()
}

func (e *expirer) Close() {
	e.once.Do(func() { close(e.done) })
	e.wg.Wait()
}

func (e *expirer) run() {
	defer e.wg.Done()

	e.sweep()

	ticker := time.NewTicker(e.interval)
	defer ticker.Stop()
	for {
		select {
		case <-ticker.C:
			e.sweep()
		case <-e.done:
			return
		}
	}
}

func (e *expirer) sweep() {
	ctx, cancel := context.WithTimeout(context.Background(), e.timeout)
	defer cancel()

	n, err := e.repo.ExpirePromotions(ctx, e.now())
	if err != nil {
		e.log.Error("expire promotions", zap.Error(err))
		return
	}
	if n > 0 {
		e.log.Info("promotions expired", zap.Int64("count", n))
	}
}
