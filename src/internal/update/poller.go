package update

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/charmbracelet/log"
	"github.com/yhonda-ohishi-pub-dev/ytgrab/src/pkg/models"
)

// Checker runs one update check
type Checker interface {
	Check(ctx context.Context) (models.CheckResult, error)
}

// Poller checks the release feed on a fixed interval
type Poller struct {
	checker  Checker
	interval time.Duration
	notify   func(models.CheckResult)
	logger   *log.Logger

	ctx    context.Context
	cancel context.CancelFunc
	wg     sync.WaitGroup
}

// NewPoller creates a poller. notify receives every completed check,
// including failed ones.
func NewPoller(checker Checker, interval time.Duration, notify func(models.CheckResult), logger *log.Logger) *Poller {
	if logger == nil {
		logger = log.Default()
	}
	if notify == nil {
		notify = func(models.CheckResult) {}
	}
	ctx, cancel := context.WithCancel(context.Background())
	return &Poller{
		checker:  checker,
		interval: interval,
		notify:   notify,
		logger:   logger.WithPrefix("poller"),
		ctx:      ctx,
		cancel:   cancel,
	}
}

// Start starts the polling loop
func (p *Poller) Start() {
	p.logger.Info("starting release poller", "interval", p.interval)

	p.wg.Add(1)
	go p.pollLoop()
}

// Stop stops the polling loop and waits for an in-flight check
func (p *Poller) Stop() {
	p.cancel()
	p.wg.Wait()
	p.logger.Info("release poller stopped")
}

func (p *Poller) pollLoop() {
	defer p.wg.Done()

	ticker := time.NewTicker(p.interval)
	defer ticker.Stop()

	// Poll immediately on start
	p.poll()

	for {
		select {
		case <-p.ctx.Done():
			return
		case <-ticker.C:
			p.poll()
		}
	}
}

func (p *Poller) poll() {
	res, err := p.checker.Check(p.ctx)
	switch {
	case errors.Is(err, models.ErrUpdateInProgress):
		p.logger.Debug("update in progress, skipping poll")
		return
	case err != nil && p.ctx.Err() != nil:
		return
	case err != nil:
		p.logger.Warn("poll failed", "err", err)
	}
	p.notify(res)
}
