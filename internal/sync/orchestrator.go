package sync

import (
	"context"
	"log/slog"
	stdsync "sync"
	"time"

	"github.com/meridian-pos/meridian-pos/internal/observability"
)

// Orchestrator schedules sync attempts: a fixed sales interval, an
// immediate check on start, manual triggers, and connectivity
// transitions. It guarantees at most one in-flight run per kind; going
// offline only stops further scheduling and never cancels a running unit.
type Orchestrator struct {
	products *ProductSync
	sales    *SalesSync
	tokens   TokenSource
	baseURL  func() string
	interval time.Duration
	logger   *slog.Logger
	metrics  *observability.Metrics
	clock    func() time.Time

	onCatalogSynced func(ctx context.Context)

	mu      stdsync.Mutex
	running map[Kind]bool
	online  bool
	wake    chan struct{}
}

// Options collects the orchestrator dependencies.
type Options struct {
	Products *ProductSync
	Sales    *SalesSync
	Tokens   TokenSource
	// BaseURL is resolved once per sync attempt, not cached indefinitely.
	BaseURL       func() string
	SalesInterval time.Duration
	Logger        *slog.Logger
	Metrics       *observability.Metrics
	// OnCatalogSynced runs after a catalog pull completes, e.g. to drop
	// cached lookups.
	OnCatalogSynced func(ctx context.Context)
}

// NewOrchestrator constructs the orchestrator. The terminal starts out
// assumed online; the connectivity probe corrects that shortly after boot.
func NewOrchestrator(opts Options) *Orchestrator {
	logger := opts.Logger
	if logger == nil {
		logger = slog.Default()
	}
	interval := opts.SalesInterval
	if interval <= 0 {
		interval = 2 * time.Minute
	}
	return &Orchestrator{
		products: opts.Products,
		sales:    opts.Sales,
		tokens:   opts.Tokens,
		baseURL:  opts.BaseURL,
		interval: interval,
		logger:   logger.With(slog.String("component", "orchestrator")),
		metrics:  opts.Metrics,
		clock:    time.Now,

		onCatalogSynced: opts.OnCatalogSynced,

		running: map[Kind]bool{},
		online:  true,
		wake:    make(chan struct{}, 1),
	}
}

// Run drives the schedule until the context is cancelled: one immediate
// check on start, then the sales interval, plus wake-ups on reconnect.
func (o *Orchestrator) Run(ctx context.Context) error {
	o.kick(ctx)

	ticker := time.NewTicker(o.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-ticker.C:
			if !o.Online() {
				continue
			}
			if _, err := o.TriggerSales(ctx); err != nil {
				o.logger.Warn("scheduled sales sync", slog.Any("error", err))
			}
		case <-o.wake:
			o.kick(ctx)
		}
	}
}

// SetOnline records a connectivity transition. Coming back online wakes
// the schedule for an immediate attempt.
func (o *Orchestrator) SetOnline(online bool) {
	o.mu.Lock()
	was := o.online
	o.online = online
	o.mu.Unlock()

	if online == was {
		return
	}
	o.logger.Info("connectivity changed", slog.Bool("online", online))
	if online {
		select {
		case o.wake <- struct{}{}:
		default:
		}
	}
}

// Online reports the last observed connectivity state.
func (o *Orchestrator) Online() bool {
	o.mu.Lock()
	defer o.mu.Unlock()
	return o.online
}

// TriggerSales runs one sales push unless one is already in flight
// (OutcomeBusy) or no token is available yet (OutcomeSkipped).
func (o *Orchestrator) TriggerSales(ctx context.Context) (Outcome, error) {
	return o.run(ctx, KindSales, func(ctx context.Context, baseURL, token string) (Outcome, error) {
		return o.sales.SyncSales(ctx, baseURL, token)
	})
}

// TriggerProducts runs one catalog pull under the same guards.
func (o *Orchestrator) TriggerProducts(ctx context.Context) (Outcome, error) {
	outcome, err := o.run(ctx, KindProducts, func(ctx context.Context, baseURL, token string) (Outcome, error) {
		return o.products.StartSync(ctx, baseURL, token)
	})
	if outcome == OutcomeCompleted && o.onCatalogSynced != nil {
		o.onCatalogSynced(ctx)
	}
	return outcome, err
}

// TriggerResult summarises a manual sync of both kinds.
type TriggerResult struct {
	Sales         Outcome `json:"sales"`
	SalesError    string  `json:"sales_error,omitempty"`
	Products      Outcome `json:"products"`
	ProductsError string  `json:"products_error,omitempty"`
}

// ManualSync runs both kinds back to back and reports their outcomes.
func (o *Orchestrator) ManualSync(ctx context.Context) TriggerResult {
	var result TriggerResult
	var err error
	result.Sales, err = o.TriggerSales(ctx)
	if err != nil {
		result.SalesError = err.Error()
	}
	result.Products, err = o.TriggerProducts(ctx)
	if err != nil {
		result.ProductsError = err.Error()
	}
	return result
}

type runFunc func(ctx context.Context, baseURL, token string) (Outcome, error)

func (o *Orchestrator) run(ctx context.Context, kind Kind, fn runFunc) (Outcome, error) {
	if !o.begin(kind) {
		return OutcomeBusy, nil
	}
	defer o.end(kind)

	token, err := o.tokens.Token(ctx)
	if err != nil {
		o.logger.Warn("token lookup failed", slog.Any("error", err))
		return OutcomeSkipped, nil
	}
	if token == "" {
		// Not logged in yet: nothing to do, not a failure.
		return OutcomeSkipped, nil
	}

	start := o.clock()
	outcome, err := fn(ctx, o.baseURL(), token)
	o.metrics.ObserveSyncRun(string(kind), string(outcome), time.Since(start))
	return outcome, err
}

func (o *Orchestrator) begin(kind Kind) bool {
	o.mu.Lock()
	defer o.mu.Unlock()
	if o.running[kind] {
		return false
	}
	o.running[kind] = true
	return true
}

func (o *Orchestrator) end(kind Kind) {
	o.mu.Lock()
	defer o.mu.Unlock()
	delete(o.running, kind)
}

func (o *Orchestrator) kick(ctx context.Context) {
	if _, err := o.TriggerSales(ctx); err != nil {
		o.logger.Warn("sales sync", slog.Any("error", err))
	}
	if _, err := o.TriggerProducts(ctx); err != nil {
		o.logger.Warn("product sync", slog.Any("error", err))
	}
}
