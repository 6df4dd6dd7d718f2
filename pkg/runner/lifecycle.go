package runner

import (
	"context"
	"errors"
	"log/slog"
	"sync"
	"sync/atomic"
	"time"

	"github.com/voxhaus/voxhaus/pkg/logging"
)

// Daemon runs a recognition service until its context is canceled or
// startup fails, then drains long-lived resources with a bounded
// timeout. State transitions are CAS-guarded so Run and Stop stay safe
// to call from different goroutines.
type Daemon struct {
	state        int32
	cancel       context.CancelFunc
	stopOnce     sync.Once
	drainer      Drainer
	drainTimeout time.Duration
	stopErr      error
	logger       *slog.Logger
}

func NewDaemon(drainer Drainer, drainTimeout time.Duration, logger *slog.Logger) *Daemon {
	if drainTimeout <= 0 {
		drainTimeout = 10 * time.Second
	}
	return &Daemon{
		state:        int32(StateNew),
		drainer:      drainer,
		drainTimeout: drainTimeout,
		logger:       logging.NewComponentLogger(logger, "daemon"),
	}
}

// Run starts the daemon via start and blocks until ctx is canceled.
// It can be called once; later calls fail with an invalid transition.
func (d *Daemon) Run(ctx context.Context, start StartFunc) error {
	if !d.casState(StateNew, StateStarting) {
		return errors.New("daemon already started")
	}
	PrintBanner()

	runCtx, cancel := context.WithCancel(ctx)
	d.cancel = cancel

	if start != nil {
		if err := start(runCtx); err != nil {
			d.logger.Error("startup_failed", slog.String("error", err.Error()))
			cancel()
			return errors.Join(err, d.stop())
		}
	}
	d.setState(StateRunning)
	d.logger.Info("daemon_running")

	<-runCtx.Done()
	return d.stop()
}

// Stop cancels the run context and drains. Safe to call repeatedly.
func (d *Daemon) Stop() error {
	if d.cancel != nil {
		d.cancel()
	}
	return d.stop()
}

func (d *Daemon) State() State {
	return State(atomic.LoadInt32(&d.state))
}

func (d *Daemon) stop() error {
	d.stopOnce.Do(func() {
		d.setState(StateDraining)
		d.logger.Info("daemon_draining")
		if d.drainer != nil {
			done := make(chan struct{})
			go func() {
				if err := d.drainer.Drain(); err != nil {
					d.logger.Error("drain_failed", slog.String("error", err.Error()))
				}
				close(done)
			}()
			select {
			case <-done:
			case <-time.After(d.drainTimeout):
				d.stopErr = errors.New("drain timeout")
			}
		}
		d.setState(StateStopped)
		d.logger.Info("daemon_stopped")
	})
	return d.stopErr
}

func (d *Daemon) casState(from, to State) bool {
	return atomic.CompareAndSwapInt32(&d.state, int32(from), int32(to))
}

func (d *Daemon) setState(s State) {
	atomic.StoreInt32(&d.state, int32(s))
}
