package driftdetect

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log"
	"net/http"
	"sync/atomic"
	"time"

	_ "github.com/lib/pq"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/espirado/model-drift-detection/internal/adapters/journal"
	"github.com/espirado/model-drift-detection/internal/adapters/observability"
	"github.com/espirado/model-drift-detection/internal/adapters/queue"
	"github.com/espirado/model-drift-detection/internal/adapters/sink"
	"github.com/espirado/model-drift-detection/internal/alerting"
	"github.com/espirado/model-drift-detection/internal/app/pipeline"
	"github.com/espirado/model-drift-detection/internal/changepoint"
	"github.com/espirado/model-drift-detection/internal/domain"
	"github.com/espirado/model-drift-detection/internal/ingest"
	"github.com/espirado/model-drift-detection/internal/ports"
	"github.com/espirado/model-drift-detection/internal/reference"
	"github.com/espirado/model-drift-detection/internal/stats"
	"github.com/espirado/model-drift-detection/internal/window"
)

// MonitorOption customizes the dependencies used by Monitor.
type MonitorOption func(*monitorOverrides)

type monitorOverrides struct {
	observability Observability
	windowQueue   WindowQueue
	alertQueue    AlertQueue
	alertSink     AlertSink
	recordsSink   RecordsSink
	journal       Journal
	tick          time.Duration
	now           func() time.Time
}

// WithObservability plugs in a custom observability backend (OpenTelemetry, structured logs, etc.).
func WithObservability(obs Observability) MonitorOption {
	return func(o *monitorOverrides) {
		o.observability = obs
	}
}

// WithWindowQueue injects a custom sealed-window queue implementation.
func WithWindowQueue(q WindowQueue) MonitorOption {
	return func(o *monitorOverrides) {
		o.windowQueue = q
	}
}

// WithAlertQueue injects a custom dispatch queue implementation.
func WithAlertQueue(q AlertQueue) MonitorOption {
	return func(o *monitorOverrides) {
		o.alertQueue = q
	}
}

// WithAlertSink injects a custom alert sink so alerts can be routed to any
// pager, webhook, or database. Required when no Timescale connection string
// is configured.
func WithAlertSink(s AlertSink) MonitorOption {
	return func(o *monitorOverrides) {
		o.alertSink = s
	}
}

// WithRecordsSink streams every drift metric and change point (alerting or
// not) to the given sink for dashboards and offline analysis.
func WithRecordsSink(s RecordsSink) MonitorOption {
	return func(o *monitorOverrides) {
		o.recordsSink = s
	}
}

// WithJournal lets callers bring their own alert journal or reuse an
// existing instance.
func WithJournal(j Journal) MonitorOption {
	return func(o *monitorOverrides) {
		o.journal = j
	}
}

// WithTickInterval sets how often the wall-clock ticker advances the
// watermark. Defaults to one second.
func WithTickInterval(d time.Duration) MonitorOption {
	return func(o *monitorOverrides) {
		o.tick = d
	}
}

// WithClock overrides the wall clock, mostly for tests.
func WithClock(now func() time.Time) MonitorOption {
	return func(o *monitorOverrides) {
		o.now = now
	}
}

// Monitor wires up the ingest → window → evaluate → dispatch pipeline and
// exposes simple lifecycle hooks for embedding drift detection inside any
// Go service.
type Monitor struct {
	cfg    *Config
	policy ports.Policy
	obs    ports.Observability

	ingestor *ingest.Ingestor
	agg      *window.Aggregator
	refs     *reference.Manager
	eval     *pipeline.Evaluator

	windowQueue ports.WindowQueue
	alertQueue  ports.AlertQueue
	alertSink   ports.AlertSink
	journal     ports.Journal
	db          *sql.DB

	tick time.Duration
	now  func() time.Time

	running  atomic.Bool
	sampleCh chan *domain.Sample
	ticker   *time.Ticker

	intakeDoneCh   chan struct{}
	evalStopCh     chan struct{}
	evalDoneCh     chan struct{}
	dispatchStopCh chan struct{}
	dispatchDoneCh chan struct{}
	gaugeStopCh    chan struct{}
	metricsSrv     *http.Server
}

// NewMonitor bootstraps the default adapters (in-memory queues, file alert
// journal, Timescale sink, Prometheus observability), replays any
// undelivered alerts from the journal, and wires the evaluation pipeline.
// Callers can use MonitorOption values to override any dependency.
func NewMonitor(cfg *Config, opts ...MonitorOption) (*Monitor, error) {
	if cfg == nil {
		return nil, fmt.Errorf("config is required")
	}
	cfg.ApplyDefaults()
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	var overrides monitorOverrides
	for _, opt := range opts {
		if opt != nil {
			opt(&overrides)
		}
	}

	obs := overrides.observability
	if obs == nil {
		obs = observability.NewPromObs(nil)
	}

	var (
		jrn ports.Journal
		err error
	)
	if overrides.journal != nil {
		jrn = overrides.journal
	} else {
		jrn, err = journal.NewFileJournal(cfg.Journal.Dir)
		if err != nil {
			return nil, err
		}
	}

	wq := overrides.windowQueue
	if wq == nil {
		wq = queue.NewWindowQueue(cfg.Policy.MaxQueueLen)
	}
	aq := overrides.alertQueue
	if aq == nil {
		aq = queue.NewAlertQueue(cfg.Policy.MaxQueueLen)
	}

	if err := pipeline.ReplayJournal(jrn, aq, cfg.Policy, obs); err != nil {
		return nil, err
	}

	var (
		db  *sql.DB
		snk ports.AlertSink
	)
	if overrides.alertSink != nil {
		snk = overrides.alertSink
	} else if cfg.Timescale.ConnString != "" {
		db, err = sql.Open("postgres", cfg.Timescale.ConnString)
		if err != nil {
			return nil, err
		}
		snk = sink.NewTimescaleSink(db, cfg.Timescale.AlertsTable, cfg.Timescale.MetricsTable)
	} else {
		return nil, fmt.Errorf("an alert sink is required: configure timescale.conn_string or pass WithAlertSink")
	}

	records := overrides.recordsSink
	if records == nil {
		if ts, ok := snk.(ports.RecordsSink); ok {
			records = ts
		}
	}

	now := overrides.now
	if now == nil {
		now = time.Now
	}

	agg, err := window.NewAggregator(cfg.Window.Size, cfg.Window.GracePeriod,
		window.Alignment(cfg.Window.Alignment), cfg.Window.MaxOpen)
	if err != nil {
		return nil, err
	}

	refs, err := reference.NewManager(reference.Config{
		Policy:      reference.Policy(cfg.Reference.Policy),
		WindowCount: cfg.Reference.WindowCount,
		Decay:       cfg.Reference.Decay,
		Bins:        cfg.Comparator.Bins,
		MinSamples:  cfg.Reference.MinSamples,
	})
	if err != nil {
		return nil, err
	}

	cmp, err := stats.NewComparator(cfg.Window.MinSamples)
	if err != nil {
		return nil, err
	}

	det, err := changepoint.NewDetector(cfg.ChangePoint.Signal, cfg.ChangePoint.Horizon, cfg.ChangePoint.Penalty)
	if err != nil {
		return nil, err
	}

	alerts, err := alerting.NewManager(cfg.AlertThresholds(), cfg.Alerting.Cooldown, now)
	if err != nil {
		return nil, err
	}

	tick := overrides.tick
	if tick <= 0 {
		tick = time.Second
	}

	return &Monitor{
		cfg:      cfg,
		policy:   cfg.Policy,
		obs:      obs,
		ingestor: ingest.New(cfg.Window.GracePeriod, now),
		agg:      agg,
		refs:     refs,
		eval: &pipeline.Evaluator{
			Comparator: cmp,
			References: refs,
			Detector:   det,
			Alerts:     alerts,
			Journal:    jrn,
			Dispatch:   aq,
			Records:    records,
			Policy:     cfg.Policy,
			Obs:        obs,
		},
		windowQueue: wq,
		alertQueue:  aq,
		alertSink:   snk,
		journal:     jrn,
		db:          db,
		tick:        tick,
		now:         now,
	}, nil
}

// Observe validates one sample and hands it to the intake stage. Rejected
// samples return a *ValidationError and are counted. Under the "drop"
// backpressure policy a full intake buffer returns ErrQueueFull; under
// "block" the call waits for the pipeline to catch up.
//
// Observe must not be called concurrently with Shutdown.
func (m *Monitor) Observe(s Sample) error {
	if !m.running.Load() {
		return ErrNotRunning
	}

	ds, err := m.ingestor.Normalize(ingest.Record{
		Timestamp:   s.Timestamp,
		Numeric:     s.Numeric,
		Categorical: s.Categorical,
		SourceID:    s.SourceID,
	})
	if err != nil {
		m.obs.IncCounter("drift_samples_rejected_total", 1)
		return err
	}

	if m.policy.OnQueueFull == "drop" {
		select {
		case m.sampleCh <- ds:
			return nil
		default:
			m.obs.IncCounter("drift_queue_dropped_total", 1)
			return ErrQueueFull
		}
	}
	m.sampleCh <- ds
	return nil
}

// SetBaseline replaces the reference distributions with ones built from the
// given samples. Under a rolling policy the rolling state restarts from this
// snapshot. Safe to call whether or not the monitor is running.
func (m *Monitor) SetBaseline(samples []Sample) error {
	if len(samples) == 0 {
		return fmt.Errorf("baseline needs at least one sample")
	}

	var lo, hi time.Time
	normalized := make([]*domain.Sample, 0, len(samples))
	for _, s := range samples {
		ds, err := m.ingestor.Normalize(ingest.Record{
			Timestamp:   s.Timestamp,
			Numeric:     s.Numeric,
			Categorical: s.Categorical,
			SourceID:    s.SourceID,
		})
		if err != nil {
			return err
		}
		normalized = append(normalized, ds)
		if lo.IsZero() || ds.Timestamp.Before(lo) {
			lo = ds.Timestamp
		}
		if hi.IsZero() || ds.Timestamp.After(hi) {
			hi = ds.Timestamp
		}
	}

	w := domain.NewWindow(lo, hi.Add(time.Nanosecond))
	for _, ds := range normalized {
		w.Add(ds)
	}
	w.Seal(0)

	_, err := m.refs.Snapshot(w)
	return err
}

// Reference returns the current baseline, or nil before any baseline exists.
func (m *Monitor) Reference() *ReferenceSet {
	return m.refs.Current()
}

// Watermark reports the aggregator's event-time watermark. Only meaningful
// while the monitor is stopped, since the intake goroutine owns the
// aggregator while running.
func (m *Monitor) Watermark() time.Time {
	return m.agg.Watermark()
}

// Start launches the intake, evaluation, and dispatch stages along with the
// watermark ticker and the observability stack. It returns immediately; call
// Run to block on a context instead.
func (m *Monitor) Start() error {
	if m == nil {
		return fmt.Errorf("monitor is nil")
	}
	if !m.running.CompareAndSwap(false, true) {
		return fmt.Errorf("monitor already running")
	}

	m.sampleCh = make(chan *domain.Sample, m.policy.MaxQueueLen)
	m.ticker = time.NewTicker(m.tick)
	m.intakeDoneCh = make(chan struct{})
	m.evalStopCh = make(chan struct{})
	m.evalDoneCh = make(chan struct{})
	m.dispatchStopCh = make(chan struct{})
	m.dispatchDoneCh = make(chan struct{})

	go func() {
		pipeline.RunIntake(m.sampleCh, m.ticker.C, m.agg, m.windowQueue, m.policy, m.obs)
		close(m.intakeDoneCh)
	}()

	go func() {
		m.eval.RunEvaluate(m.windowQueue, m.evalStopCh)
		close(m.evalDoneCh)
	}()

	dispatchCfg := pipeline.DispatchConfig{
		Attempts: m.cfg.Alerting.DispatchAttempts,
		Backoff:  m.cfg.Alerting.DispatchBackoff,
	}
	go func() {
		pipeline.RunDispatch(m.alertQueue, m.journal, m.alertSink, dispatchCfg, m.policy, m.obs, m.dispatchStopCh)
		close(m.dispatchDoneCh)
	}()

	m.startMetrics()
	return nil
}

// Run starts the monitor and blocks until the provided context is cancelled.
// Upon cancellation it attempts a graceful shutdown.
func (m *Monitor) Run(ctx context.Context) error {
	if err := m.Start(); err != nil {
		return err
	}
	<-ctx.Done()
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	return m.Shutdown(shutdownCtx)
}

// Shutdown drains the pipeline in stage order: intake seals and flushes every
// open window, the evaluator empties the window queue, then dispatch flushes
// the alert queue. No accepted sample is abandoned mid-flight.
func (m *Monitor) Shutdown(ctx context.Context) error {
	if !m.running.CompareAndSwap(true, false) {
		return ErrNotRunning
	}

	var errs []error

	close(m.sampleCh)
	if err := awaitDone(ctx, m.intakeDoneCh, "intake"); err != nil {
		errs = append(errs, err)
	}

	close(m.evalStopCh)
	if err := awaitDone(ctx, m.evalDoneCh, "evaluate"); err != nil {
		errs = append(errs, err)
	}

	close(m.dispatchStopCh)
	if err := awaitDone(ctx, m.dispatchDoneCh, "dispatch"); err != nil {
		errs = append(errs, err)
	}

	m.ticker.Stop()
	if m.gaugeStopCh != nil {
		close(m.gaugeStopCh)
	}
	if m.metricsSrv != nil {
		if err := m.metricsSrv.Shutdown(ctx); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errs = append(errs, err)
		}
	}
	if m.db != nil {
		if err := m.db.Close(); err != nil {
			errs = append(errs, err)
		}
	}

	return errors.Join(errs...)
}

func awaitDone(ctx context.Context, done <-chan struct{}, stage string) error {
	select {
	case <-done:
		return nil
	case <-ctx.Done():
		return fmt.Errorf("%s stage did not drain: %w", stage, ctx.Err())
	}
}

func (m *Monitor) startMetrics() {
	if m.cfg.Metrics.Addr == "" {
		return
	}

	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.Handler())
	mux.HandleFunc("/healthz", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("ok"))
	})

	m.metricsSrv = &http.Server{
		Addr:    m.cfg.Metrics.Addr,
		Handler: mux,
	}

	go func() {
		if err := m.metricsSrv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Printf("metrics server exited: %v", err)
		}
	}()

	m.gaugeStopCh = make(chan struct{})
	go m.recordResourceGauges(m.gaugeStopCh, time.Second)
}

func (m *Monitor) recordResourceGauges(stop <-chan struct{}, interval time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-stop:
			return
		case <-ticker.C:
			stats := m.journal.Stats()
			m.obs.SetGauge("drift_journal_size_bytes", float64(stats.SizeBytes))
			m.obs.SetGauge("drift_queue_length", float64(m.windowQueue.Len()))
		}
	}
}
