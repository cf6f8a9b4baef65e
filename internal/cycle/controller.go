// Package cycle runs the automation loop: a crash-recoverable countdown
// controller that fires full community cycles at a fixed interval.
package cycle

import (
	"context"
	"sync"
	"time"

	"go.uber.org/zap"
)

// CycleRunner executes one full cycle over the agent population.
type CycleRunner interface {
	RunCycle(ctx context.Context) *Summary
}

// Status is a snapshot of the controller for the API.
type Status struct {
	Running       bool      `json:"running"`
	IntervalSecs  int       `json:"interval_secs"`
	CountdownSecs int       `json:"countdown_secs"`
	LastCycleAt   time.Time `json:"last_cycle_at,omitempty"`
	LastSummary   *Summary  `json:"last_summary,omitempty"`
}

// Controller owns the countdown loop. A single goroutine ticks once per
// second, checkpoints after every tick, and fires a cycle when the countdown
// reaches zero. Start and Stop are idempotent; stopping cancels the loop but
// lets an in-flight cycle finish.
type Controller struct {
	runner CycleRunner
	ckpt   CheckpointStore
	logger *zap.Logger

	mu          sync.Mutex
	running     bool
	interval    int
	countdown   int
	cancel      context.CancelFunc
	wg          sync.WaitGroup
	lastCycleAt time.Time
	lastSummary *Summary
}

// NewController creates a stopped controller.
func NewController(runner CycleRunner, ckpt CheckpointStore, logger *zap.Logger) *Controller {
	return &Controller{runner: runner, ckpt: ckpt, logger: logger}
}

// Start begins the countdown with a full interval. Returns false if the
// controller was already running.
func (c *Controller) Start(intervalSecs int) bool {
	return c.start(intervalSecs, intervalSecs, false)
}

// Restore reloads the checkpoint written before the last shutdown. If the
// controller was running, the countdown resumes with the checkpointed value
// minus the downtime; a countdown that expired while down fires a cycle
// immediately and then continues on the full interval.
func (c *Controller) Restore(ctx context.Context) error {
	cp, err := c.ckpt.Load(ctx)
	if err != nil {
		return err
	}
	if cp == nil || !cp.IsRunning {
		return nil
	}
	remaining := RemainingCountdown(cp, time.Now())
	c.logger.Info("restoring controller from checkpoint",
		zap.Int("interval_secs", cp.IntervalSecs),
		zap.Int("remaining_secs", remaining))
	c.start(cp.IntervalSecs, remaining, remaining == 0)
	return nil
}

func (c *Controller) start(intervalSecs, countdownSecs int, fireNow bool) bool {
	c.mu.Lock()
	if c.running {
		c.mu.Unlock()
		return false
	}
	c.running = true
	c.interval = intervalSecs
	c.countdown = countdownSecs
	if fireNow {
		c.countdown = intervalSecs
	}
	ctx, cancel := context.WithCancel(context.Background())
	c.cancel = cancel
	c.mu.Unlock()

	c.saveCheckpoint()
	c.logger.Info("controller started", zap.Int("interval_secs", intervalSecs))

	c.wg.Add(1)
	go c.loop(ctx, fireNow)
	return true
}

// Stop halts the countdown and waits for the loop goroutine to exit. A cycle
// already in flight completes; no new one starts. Safe to call when stopped.
func (c *Controller) Stop() bool {
	c.mu.Lock()
	if !c.running {
		c.mu.Unlock()
		return false
	}
	c.running = false
	c.cancel()
	c.mu.Unlock()

	c.wg.Wait()
	c.saveCheckpoint()
	c.logger.Info("controller stopped")
	return true
}

// Shutdown halts the loop for process exit without writing a stopped
// checkpoint. The last running checkpoint survives, so Restore resumes the
// countdown after a restart. Stop, by contrast, is the operator's "turn it
// off and keep it off".
func (c *Controller) Shutdown() {
	c.mu.Lock()
	if !c.running {
		c.mu.Unlock()
		return
	}
	c.running = false
	c.cancel()
	c.mu.Unlock()
	c.wg.Wait()
	c.logger.Info("controller halted for shutdown")
}

// Status reports the current controller state.
func (c *Controller) Status() Status {
	c.mu.Lock()
	defer c.mu.Unlock()
	return Status{
		Running:       c.running,
		IntervalSecs:  c.interval,
		CountdownSecs: c.countdown,
		LastCycleAt:   c.lastCycleAt,
		LastSummary:   c.lastSummary,
	}
}

func (c *Controller) loop(ctx context.Context, fireNow bool) {
	defer c.wg.Done()

	if fireNow {
		c.fire(ctx)
	}

	ticker := time.NewTicker(time.Second)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			c.mu.Lock()
			c.countdown--
			expired := c.countdown <= 0
			if expired {
				c.countdown = c.interval
			}
			c.mu.Unlock()

			c.saveCheckpoint()
			if expired {
				c.fire(ctx)
			}
		}
	}
}

// fire runs one cycle synchronously inside the loop goroutine, so cycles
// never overlap. The cycle gets its own context: a Stop during a cycle lets
// the cycle finish.
func (c *Controller) fire(loopCtx context.Context) {
	summary := c.runner.RunCycle(context.Background())

	c.mu.Lock()
	c.lastCycleAt = time.Now()
	c.lastSummary = summary
	c.mu.Unlock()

	select {
	case <-loopCtx.Done():
	default:
		c.saveCheckpoint()
	}
}

func (c *Controller) saveCheckpoint() {
	c.mu.Lock()
	cp := &Checkpoint{
		IsRunning:     c.running,
		IntervalSecs:  c.interval,
		CountdownSecs: c.countdown,
		CheckpointAt:  time.Now(),
	}
	c.mu.Unlock()

	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	if err := c.ckpt.Save(ctx, cp); err != nil {
		c.logger.Warn("checkpoint save failed", zap.Error(err))
	}
}
