package reminder

import (
	"context"
	"fmt"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/nhle/taskpilot/internal/logging"
	"github.com/nhle/taskpilot/internal/store"
)

// dispatchTimeout is the maximum time allowed for a single dispatch pass.
const dispatchTimeout = 30 * time.Second

// Notifier delivers a due reminder to the user.
type Notifier interface {
	Notify(ctx context.Context, r store.Reminder) error
}

// NotifierFunc adapts a function to the Notifier interface.
type NotifierFunc func(ctx context.Context, r store.Reminder) error

func (f NotifierFunc) Notify(ctx context.Context, r store.Reminder) error {
	return f(ctx, r)
}

// LogNotifier delivers reminders as log entries.
type LogNotifier struct {
	Logger *zap.Logger
}

func (n LogNotifier) Notify(_ context.Context, r store.Reminder) error {
	logging.OrNop(n.Logger).Info(Message(r),
		zap.String("task_id", r.TaskID),
		zap.String("kind", r.Kind),
		zap.Time("fire_at", r.FireAt))
	return nil
}

// Message renders the user-facing text of a reminder.
func Message(r store.Reminder) string {
	if r.Kind != store.ReminderKindLead {
		return fmt.Sprintf("Deadline reached: %s", r.TaskTitle)
	}
	if r.DueAt == nil {
		return fmt.Sprintf("Upcoming deadline: %s", r.TaskTitle)
	}
	return fmt.Sprintf("Upcoming deadline: %s (due %s)",
		r.TaskTitle, r.DueAt.Local().Format("Mon Jan 2 15:04"))
}

// Dispatcher polls for due reminders and hands them to a Notifier.
type Dispatcher struct {
	store    Store
	notifier Notifier
	interval time.Duration
	now      func() time.Time
	logger   *zap.Logger

	firedCh chan store.Reminder
	stopCh  chan struct{}
	doneCh  chan struct{}
	mu      sync.Mutex
	running bool
}

// NewDispatcher creates a Dispatcher polling every interval (30s when not positive).
func NewDispatcher(
	s Store,
	notifier Notifier,
	interval time.Duration,
	logger *zap.Logger,
	opts ...Option,
) *Dispatcher {
	if interval <= 0 {
		interval = 30 * time.Second
	}
	o := buildOptions(opts)
	return &Dispatcher{
		store:    s,
		notifier: notifier,
		interval: interval,
		now:      o.now,
		logger:   logging.OrNop(logger).Named("dispatcher"),
		firedCh:  make(chan store.Reminder, 16),
	}
}

// Fired delivers each reminder after it was successfully dispatched.
// Reminders are dropped from the channel when nobody keeps up with it.
func (d *Dispatcher) Fired() <-chan store.Reminder {
	return d.firedCh
}

// Start runs the polling loop in the background until Stop is called or
// ctx is done. Calling Start on a running dispatcher does nothing.
func (d *Dispatcher) Start(ctx context.Context) {
	d.mu.Lock()
	if d.running {
		d.mu.Unlock()
		return
	}
	d.running = true
	d.stopCh = make(chan struct{})
	d.doneCh = make(chan struct{})
	stopCh, doneCh := d.stopCh, d.doneCh
	d.mu.Unlock()

	go d.loop(ctx, stopCh, doneCh)
}

// Stop halts the polling loop and waits for it to exit.
func (d *Dispatcher) Stop() {
	d.mu.Lock()
	if !d.running {
		d.mu.Unlock()
		return
	}
	close(d.stopCh)
	d.running = false
	doneCh := d.doneCh
	d.mu.Unlock()

	<-doneCh
}

func (d *Dispatcher) loop(ctx context.Context, stopCh, doneCh chan struct{}) {
	defer close(doneCh)

	ticker := time.NewTicker(d.interval)
	defer ticker.Stop()

	// Do an initial pass immediately
	d.dispatch(ctx)

	for {
		select {
		case <-stopCh:
			return
		case <-ctx.Done():
			return
		case <-ticker.C:
			d.dispatch(ctx)
		}
	}
}

func (d *Dispatcher) dispatch(ctx context.Context) {
	ctx, cancel := context.WithTimeout(ctx, dispatchTimeout)
	defer cancel()

	if _, err := d.RunOnce(ctx); err != nil {
		d.logger.Warn("dispatching reminders", zap.Error(err))
	}
}

// RunOnce notifies every reminder due now and marks it fired. A reminder
// whose notification fails stays pending for the next pass. It returns the
// number of reminders fired.
func (d *Dispatcher) RunOnce(ctx context.Context) (int, error) {
	due, err := d.store.DueReminders(ctx, d.now())
	if err != nil {
		return 0, fmt.Errorf("loading due reminders: %w", err)
	}

	fired := 0
	for _, r := range due {
		if err := d.notifier.Notify(ctx, r); err != nil {
			d.logger.Warn("notifying reminder",
				zap.String("reminder_id", r.ID),
				zap.String("task_id", r.TaskID),
				zap.Error(err))
			continue
		}
		if err := d.store.MarkReminderFired(ctx, r.ID); err != nil {
			return fired, fmt.Errorf("marking reminder %s fired: %w", r.ID, err)
		}
		r.Fired = true
		fired++
		d.sendFired(r)
	}
	return fired, nil
}

// sendFired publishes r without blocking the dispatcher.
func (d *Dispatcher) sendFired(r store.Reminder) {
	select {
	case d.firedCh <- r:
	default:
	}
}
