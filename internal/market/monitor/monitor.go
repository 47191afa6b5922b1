package monitor

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"time"

	"darkermonitor/internal/market/snapshot"
	"darkermonitor/pkg/darkerdb"

	"go.uber.org/zap"
)

// RecoveryDelay is the fixed wait after an unexpected iteration failure.
const RecoveryDelay = 5 * time.Second

var ErrInvalidInterval = errors.New("poll interval must be positive")

type State int

const (
	Polling State = iota
	Stopped
)

func (s State) String() string {
	switch s {
	case Polling:
		return "polling"
	case Stopped:
		return "stopped"
	default:
		return fmt.Sprintf("state(%d)", int(s))
	}
}

// Fetcher retrieves one market snapshot.
type Fetcher interface {
	GetMarket(ctx context.Context, limit int, condense bool) darkerdb.Result
}

// Store persists snapshots.
type Store interface {
	WriteCurrent(s darkerdb.MarketSnapshot) error
	WriteHistory(s darkerdb.MarketSnapshot, t time.Time) (string, error)
}

// PollConfig governs a single monitoring run.
type PollConfig struct {
	Interval     time.Duration
	OutputFile   string
	HistoryDir   string
	StoreHistory bool

	Limit    int
	Condense bool
}

type Option func(*Monitor)

// WithClock replaces the wall clock, mainly for tests.
func WithClock(c Clock) Option {
	return func(m *Monitor) { m.clock = c }
}

// WithOutput sets where the stop acknowledgement is printed (default stdout).
func WithOutput(w io.Writer) Option {
	return func(m *Monitor) { m.out = w }
}

// WithStore replaces the file-backed snapshot store.
func WithStore(s Store) Option {
	return func(m *Monitor) { m.store = s }
}

// Monitor polls the market on a fixed interval and persists every snapshot.
// It runs on the caller's goroutine; iterations never overlap.
type Monitor struct {
	cfg     PollConfig
	fetcher Fetcher
	store   Store
	clock   Clock
	logger  *zap.Logger
	out     io.Writer

	state State
}

func New(cfg PollConfig, fetcher Fetcher, logger *zap.Logger, opts ...Option) (*Monitor, error) {
	if cfg.Interval <= 0 {
		return nil, fmt.Errorf("%w: %s", ErrInvalidInterval, cfg.Interval)
	}
	if cfg.Limit <= 0 {
		cfg.Limit = darkerdb.DefaultLimit
	}
	if logger == nil {
		logger = zap.NewNop()
	}

	m := &Monitor{
		cfg:     cfg,
		fetcher: fetcher,
		store:   snapshot.NewWriter(cfg.OutputFile, cfg.HistoryDir),
		clock:   realClock{},
		logger:  logger,
		out:     os.Stdout,
		state:   Polling,
	}
	for _, opt := range opts {
		opt(m)
	}
	return m, nil
}

// State returns the current loop state. Only meaningful once Run has returned
// or from the goroutine running it.
func (m *Monitor) State() State {
	return m.state
}

// Run polls until ctx is cancelled, then returns nil. Cancellation is observed
// at the start of each iteration and interrupts the wait between iterations;
// an in-flight fetch or write always completes.
func (m *Monitor) Run(ctx context.Context) error {
	m.state = Polling
	m.logger.Info("starting market monitor",
		zap.Duration("interval", m.cfg.Interval),
		zap.String("output_file", m.cfg.OutputFile),
		zap.Bool("store_history", m.cfg.StoreHistory))

	for {
		if ctx.Err() != nil {
			m.state = Stopped
			m.logger.Info("market monitor stopped by user")
			// Printed regardless of log level.
			fmt.Fprintln(m.out, "Market monitor stopped by user")
			return nil
		}

		if err := m.iterate(ctx); err != nil {
			m.logger.Error("market monitor iteration failed", zap.Error(err))
			m.logger.Info("retrying", zap.Duration("delay", RecoveryDelay))
			_ = m.clock.Sleep(ctx, RecoveryDelay)
			continue
		}

		_ = m.clock.Sleep(ctx, m.cfg.Interval)
	}
}

// iterate performs one fetch and write. A failed fetch is not an error; the
// fetcher has already reported it and the files are left untouched.
func (m *Monitor) iterate(ctx context.Context) (err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("panic: %v", r)
		}
	}()

	now := m.clock.Now()

	res := m.fetcher.GetMarket(context.WithoutCancel(ctx), m.cfg.Limit, m.cfg.Condense)
	if !res.OK() {
		m.logger.Debug("no market data this iteration", zap.Error(res.Err))
		return nil
	}

	if err := m.store.WriteCurrent(res.Snapshot); err != nil {
		return fmt.Errorf("write current snapshot: %w", err)
	}
	m.logger.Info("market data updated",
		zap.String("timestamp", now.Format(snapshot.HistoryTimeLayout)),
		zap.String("file", m.cfg.OutputFile))

	if m.cfg.StoreHistory {
		path, err := m.store.WriteHistory(res.Snapshot, now)
		if err != nil {
			return fmt.Errorf("write history snapshot: %w", err)
		}
		m.logger.Debug("history snapshot saved", zap.String("file", path))
	}

	return nil
}
