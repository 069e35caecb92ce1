package http

import (
	"strconv"
	"strings"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/adaptor"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/jhoicas/firmador-dte/internal/application/dto"
)

// Operaciones instrumentadas en dte_operations_total.
const (
	OperationSign    = "sign"
	OperationVerify  = "verify"
	OperationExtract = "extract"
)

// Metrics agrupa las métricas Prometheus del servicio sobre un registry propio.
type Metrics struct {
	registry *prometheus.Registry

	httpRequestsTotal   *prometheus.CounterVec
	httpRequestDuration *prometheus.HistogramVec
	httpInflight        prometheus.Gauge
	operationsTotal     *prometheus.CounterVec
}

// NewMetrics crea el registry con las métricas HTTP, las de operaciones DTE y los collectors
// de runtime de Go.
func NewMetrics() (*Metrics, error) {
	m := &Metrics{
		registry: prometheus.NewRegistry(),
		httpRequestsTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "http_requests_total",
			Help: "Número total de requests procesadas",
		}, []string{"method", "path", "status"}),
		httpRequestDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "http_request_duration_seconds",
			Help:    "Latencia de los requests HTTP",
			Buckets: prometheus.DefBuckets,
		}, []string{"method", "path"}),
		httpInflight: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "http_inflight_requests",
			Help: "Requests en vuelo",
		}),
		operationsTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "dte_operations_total",
			Help: "Operaciones de firma, verificación y extracción por código de resultado",
		}, []string{"operation", "code"}), // code: OK | COD_8xx | COD_500
	}
	for _, c := range []prometheus.Collector{
		m.httpRequestsTotal,
		m.httpRequestDuration,
		m.httpInflight,
		m.operationsTotal,
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	} {
		if err := registerCollector(m.registry, c); err != nil {
			return nil, err
		}
	}
	return m, nil
}

// RegisterPool expone el estado del pool de auditoría.
func (m *Metrics) RegisterPool(pool *pgxpool.Pool) error {
	if pool == nil {
		return nil
	}
	return registerCollector(m.registry, newPoolCollector(pool))
}

// Handler sirve /metrics.
func (m *Metrics) Handler() fiber.Handler {
	return adaptor.HTTPHandler(promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{}))
}

// Middleware instrumenta cada request (contador, latencia, inflight). La ruta se etiqueta con
// el patrón registrado, no con el path literal.
func (m *Metrics) Middleware() fiber.Handler {
	return func(c *fiber.Ctx) error {
		m.httpInflight.Inc()
		start := time.Now()
		err := c.Next()
		m.httpInflight.Dec()

		method := strings.ToUpper(c.Method())
		path := routeLabel(c)
		status := c.Response().StatusCode()
		if err != nil {
			if fe, ok := err.(*fiber.Error); ok {
				status = fe.Code
			} else {
				status = fiber.StatusInternalServerError
			}
		}
		m.httpRequestDuration.WithLabelValues(method, path).Observe(time.Since(start).Seconds())
		m.httpRequestsTotal.WithLabelValues(method, path, strconv.Itoa(status)).Inc()
		return err
	}
}

// ObserveOperation cuenta el resultado de una operación DTE.
func (m *Metrics) ObserveOperation(operation string, res dto.Result) {
	if m == nil {
		return
	}
	code := "OK"
	if !res.Success {
		code = res.ErrorCode
	}
	m.operationsTotal.WithLabelValues(operation, code).Inc()
}

func routeLabel(c *fiber.Ctx) string {
	r := c.Route()
	if r == nil || len(r.Handlers) == 0 {
		// Sin ruta registrada: una sola etiqueta para todos los paths desconocidos.
		return "unmatched"
	}
	return r.Path
}

// registerCollector registra el collector en el registry indicado, ignorando duplicados.
func registerCollector(reg prometheus.Registerer, collector prometheus.Collector) error {
	if err := reg.Register(collector); err != nil {
		if _, ok := err.(prometheus.AlreadyRegisteredError); ok {
			return nil
		}
		return err
	}
	return nil
}

// poolCollector expone gauges del pool de PostgreSQL de auditoría.
type poolCollector struct {
	pool *pgxpool.Pool

	acquiredDesc *prometheus.Desc
	idleDesc     *prometheus.Desc
	totalDesc    *prometheus.Desc
}

func newPoolCollector(pool *pgxpool.Pool) *poolCollector {
	return &poolCollector{
		pool:         pool,
		acquiredDesc: prometheus.NewDesc("audit_pgxpool_acquired", "Conexiones de auditoría adquiridas", nil, nil),
		idleDesc:     prometheus.NewDesc("audit_pgxpool_idle", "Conexiones de auditoría inactivas", nil, nil),
		totalDesc:    prometheus.NewDesc("audit_pgxpool_total", "Conexiones de auditoría totales", nil, nil),
	}
}

func (c *poolCollector) Describe(ch chan<- *prometheus.Desc) {
	ch <- c.acquiredDesc
	ch <- c.idleDesc
	ch <- c.totalDesc
}

func (c *poolCollector) Collect(ch chan<- prometheus.Metric) {
	stat := c.pool.Stat()
	ch <- prometheus.MustNewConstMetric(c.acquiredDesc, prometheus.GaugeValue, float64(stat.AcquiredConns()))
	ch <- prometheus.MustNewConstMetric(c.idleDesc, prometheus.GaugeValue, float64(stat.IdleConns()))
	ch <- prometheus.MustNewConstMetric(c.totalDesc, prometheus.GaugeValue, float64(stat.TotalConns()))
}
