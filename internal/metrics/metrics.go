package metrics

import (
	"math"
	"sync"
	"sync/atomic"
	"time"
)

// MetricType defines types of metrics we track
type MetricType string

const (
	TypeCounter     MetricType = "counter"
	TypeGauge       MetricType = "gauge"
	TypeTimer       MetricType = "timer"
	TypeErrorRate   MetricType = "error_rate"
	TypeHealthCheck MetricType = "health"
)

// Well-known metric names
const (
	CounterCacheHits         = "cache.hits"
	CounterCacheMisses       = "cache.misses"
	CounterCacheErrors       = "cache.errors"
	CounterMessagesPublished = "broker.published"
	CounterPublishFailures   = "broker.publish_failures"
	CounterEventsCreated     = "events.created"
	CounterEventsSettled     = "events.settled"
	CounterOrdersCreated     = "orders.created"
	CounterOrdersRejected    = "orders.rejected"
	TimerPublish             = "broker.publish"
	TimerConnect             = "connector.connect"
	ErrorRatePublish         = "broker.publish"
	ErrorRateConnect         = "connector.connect"
	TimerDatabaseQueryPrefix = "db.query."
	ErrorRateDatabasePrefix  = "db.query."
)

// TimerMetric captures timing information
type TimerMetric struct {
	Count         int64   `json:"count"`
	TotalTimeMs   int64   `json:"total_time_ms"`
	AverageTimeMs float64 `json:"average_time_ms"`
	MinTimeMs     int64   `json:"min_time_ms"`
	MaxTimeMs     int64   `json:"max_time_ms"`
}

// ErrorRateMetric captures error rates
type ErrorRateMetric struct {
	Total     int64   `json:"total"`
	Errors    int64   `json:"errors"`
	ErrorRate float64 `json:"error_rate"`
}

type timer struct {
	count       int64
	totalTimeMs int64
	minTimeMs   int64
	maxTimeMs   int64
}

type errorRate struct {
	total  int64
	errors int64
}

// Metrics is the in-process collector shared by every component of a runtime.
// Each map entry is created once under the write lock and updated atomically after.
type Metrics struct {
	mu           sync.RWMutex
	counters     map[string]*int64
	gauges       map[string]*int64
	timers       map[string]*timer
	errorRates   map[string]*errorRate
	healthChecks map[string]*int64
	startTime    time.Time
}

// NewMetrics creates a new metrics collector
func NewMetrics() *Metrics {
	return &Metrics{
		counters:     make(map[string]*int64),
		gauges:       make(map[string]*int64),
		timers:       make(map[string]*timer),
		errorRates:   make(map[string]*errorRate),
		healthChecks: make(map[string]*int64),
		startTime:    time.Now(),
	}
}

// entry returns m[name], creating it with mk if missing.
func entry[V any](mu *sync.RWMutex, m map[string]*V, name string, mk func() *V) *V {
	mu.RLock()
	v, ok := m[name]
	mu.RUnlock()
	if ok {
		return v
	}

	mu.Lock()
	defer mu.Unlock()
	if v, ok = m[name]; !ok {
		v = mk()
		m[name] = v
	}
	return v
}

func newInt64() *int64 { return new(int64) }

// IncrementCounter increments a counter by 1
func (m *Metrics) IncrementCounter(name string) {
	m.IncrementCounterBy(name, 1)
}

// IncrementCounterBy increments a counter by the specified value
func (m *Metrics) IncrementCounterBy(name string, value int64) {
	atomic.AddInt64(entry(&m.mu, m.counters, name, newInt64), value)
}

// SetGauge sets a gauge to a specific value
func (m *Metrics) SetGauge(name string, value int64) {
	atomic.StoreInt64(entry(&m.mu, m.gauges, name, newInt64), value)
}

// RecordTimer records a timing measurement
func (m *Metrics) RecordTimer(name string, d time.Duration) {
	ms := d.Milliseconds()
	t := entry(&m.mu, m.timers, name, func() *timer {
		return &timer{minTimeMs: math.MaxInt64}
	})

	atomic.AddInt64(&t.count, 1)
	atomic.AddInt64(&t.totalTimeMs, ms)

	for {
		cur := atomic.LoadInt64(&t.minTimeMs)
		if ms >= cur || atomic.CompareAndSwapInt64(&t.minTimeMs, cur, ms) {
			break
		}
	}
	for {
		cur := atomic.LoadInt64(&t.maxTimeMs)
		if ms <= cur || atomic.CompareAndSwapInt64(&t.maxTimeMs, cur, ms) {
			break
		}
	}
}

// RecordSuccess records a successful operation for error rate tracking
func (m *Metrics) RecordSuccess(name string) {
	m.recordErrorRate(name, false)
}

// RecordError records an error for error rate tracking
func (m *Metrics) RecordError(name string) {
	m.recordErrorRate(name, true)
}

func (m *Metrics) recordErrorRate(name string, isError bool) {
	er := entry(&m.mu, m.errorRates, name, func() *errorRate { return &errorRate{} })
	atomic.AddInt64(&er.total, 1)
	if isError {
		atomic.AddInt64(&er.errors, 1)
	}
}

// SetHealth sets the health status of a component
func (m *Metrics) SetHealth(component string, isHealthy bool) {
	var v int64
	if isHealthy {
		v = 1
	}
	atomic.StoreInt64(entry(&m.mu, m.healthChecks, component, newInt64), v)
}

// RecordConnectAttempt records one dial attempt made by a connector.
func (m *Metrics) RecordConnectAttempt(resource string, ok bool, d time.Duration) {
	m.RecordTimer(TimerConnect+"."+resource, d)
	if ok {
		m.RecordSuccess(ErrorRateConnect + "." + resource)
	} else {
		m.RecordError(ErrorRateConnect + "." + resource)
	}
}

// RecordPublish records the outcome of a broker publish.
func (m *Metrics) RecordPublish(exchange string, ok bool, d time.Duration) {
	m.RecordTimer(TimerPublish, d)
	if ok {
		m.IncrementCounter(CounterMessagesPublished)
		m.RecordSuccess(ErrorRatePublish)
		return
	}
	m.IncrementCounter(CounterPublishFailures)
	m.IncrementCounter(CounterPublishFailures + "." + exchange)
	m.RecordError(ErrorRatePublish)
}

// RecordCacheLookup records a cache hit or miss.
func (m *Metrics) RecordCacheLookup(hit bool) {
	if hit {
		m.IncrementCounter(CounterCacheHits)
		return
	}
	m.IncrementCounter(CounterCacheMisses)
}

// RecordDatabaseQuery records a database statement by kind (select, raw, ...).
func (m *Metrics) RecordDatabaseQuery(kind string, ok bool, d time.Duration) {
	m.RecordTimer(TimerDatabaseQueryPrefix+kind, d)
	if ok {
		m.RecordSuccess(ErrorRateDatabasePrefix + kind)
	} else {
		m.RecordError(ErrorRateDatabasePrefix + kind)
	}
}

// GetCounters returns all counters
func (m *Metrics) GetCounters() map[string]int64 {
	return snapshot(&m.mu, m.counters, atomic.LoadInt64)
}

// GetGauges returns all gauges
func (m *Metrics) GetGauges() map[string]int64 {
	return snapshot(&m.mu, m.gauges, atomic.LoadInt64)
}

// GetTimers returns all timers
func (m *Metrics) GetTimers() map[string]TimerMetric {
	return snapshot(&m.mu, m.timers, func(t *timer) TimerMetric {
		count := atomic.LoadInt64(&t.count)
		total := atomic.LoadInt64(&t.totalTimeMs)
		var avg float64
		if count > 0 {
			avg = float64(total) / float64(count)
		}
		return TimerMetric{
			Count:         count,
			TotalTimeMs:   total,
			AverageTimeMs: avg,
			MinTimeMs:     atomic.LoadInt64(&t.minTimeMs),
			MaxTimeMs:     atomic.LoadInt64(&t.maxTimeMs),
		}
	})
}

// GetErrorRates returns all error rates
func (m *Metrics) GetErrorRates() map[string]ErrorRateMetric {
	return snapshot(&m.mu, m.errorRates, func(er *errorRate) ErrorRateMetric {
		total := atomic.LoadInt64(&er.total)
		errs := atomic.LoadInt64(&er.errors)
		var rate float64
		if total > 0 {
			rate = float64(errs) / float64(total) * 100.0
		}
		return ErrorRateMetric{Total: total, Errors: errs, ErrorRate: rate}
	})
}

// GetHealthChecks returns all health checks
func (m *Metrics) GetHealthChecks() map[string]bool {
	return snapshot(&m.mu, m.healthChecks, func(v *int64) bool {
		return atomic.LoadInt64(v) > 0
	})
}

func snapshot[V, R any](mu *sync.RWMutex, m map[string]*V, read func(*V) R) map[string]R {
	mu.RLock()
	defer mu.RUnlock()

	out := make(map[string]R, len(m))
	for name, v := range m {
		out[name] = read(v)
	}
	return out
}

// GetUptimeSeconds returns the service uptime in seconds
func (m *Metrics) GetUptimeSeconds() int64 {
	return int64(time.Since(m.startTime).Seconds())
}

// GetAllMetrics returns all metrics in a structured format
func (m *Metrics) GetAllMetrics() map[string]interface{} {
	return map[string]interface{}{
		"uptime_seconds": m.GetUptimeSeconds(),
		"counters":       m.GetCounters(),
		"gauges":         m.GetGauges(),
		"timers":         m.GetTimers(),
		"error_rates":    m.GetErrorRates(),
		"health_checks":  m.GetHealthChecks(),
	}
}
