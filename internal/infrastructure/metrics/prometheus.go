package metrics

import (
	"net/http"
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/jhoicas/cocina-stock-api/internal/application/inventory"
)

const namespace = "cocina_stock"

var _ inventory.Metrics = (*Prometheus)(nil)

// Prometheus contadores del motor de inventario y de la API HTTP, en un registro propio.
type Prometheus struct {
	registry *prometheus.Registry

	deductions   *prometheus.CounterVec
	transactions *prometheus.CounterVec
	lowStock     prometheus.Counter

	httpRequests *prometheus.CounterVec
	httpDuration *prometheus.HistogramVec
}

// New crea el registro con las métricas del proceso y del runtime de Go.
func New() *Prometheus {
	p := &Prometheus{
		registry: prometheus.NewRegistry(),
		deductions: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "recipe_deductions_total",
			Help:      "Descuentos por receta por resultado (success, insufficient, replayed, error).",
		}, []string{"result"}),
		transactions: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "stock_transactions_total",
			Help:      "Transacciones de stock registradas por tipo.",
		}, []string{"type"}),
		lowStock: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "low_stock_warnings_total",
			Help:      "Avisos de stock bajo emitidos tras un descuento.",
		}),
		httpRequests: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "http",
			Name:      "requests_total",
			Help:      "Peticiones HTTP por método, ruta y código.",
		}, []string{"method", "route", "status"}),
		httpDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Subsystem: "http",
			Name:      "request_duration_seconds",
			Help:      "Duración de las peticiones HTTP.",
			Buckets:   prometheus.DefBuckets,
		}, []string{"method", "route"}),
	}
	p.registry.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
		p.deductions, p.transactions, p.lowStock, p.httpRequests, p.httpDuration,
	)
	return p
}

func (p *Prometheus) DeductionFinished(result string) {
	p.deductions.WithLabelValues(result).Inc()
}

func (p *Prometheus) TransactionsRecorded(txType string, n int) {
	if n > 0 {
		p.transactions.WithLabelValues(txType).Add(float64(n))
	}
}

func (p *Prometheus) LowStockWarnings(n int) {
	if n > 0 {
		p.lowStock.Add(float64(n))
	}
}

// ObserveHTTP registra una petición atendida. route es el patrón de la ruta, no la URL concreta.
func (p *Prometheus) ObserveHTTP(method, route string, status int, elapsed time.Duration) {
	p.httpRequests.WithLabelValues(method, route, strconv.Itoa(status)).Inc()
	p.httpDuration.WithLabelValues(method, route).Observe(elapsed.Seconds())
}

// Handler expone el registro en formato de texto de Prometheus.
func (p *Prometheus) Handler() http.Handler {
	return promhttp.HandlerFor(p.registry, promhttp.HandlerOpts{Registry: p.registry})
}

// Registry para tests y colectores adicionales.
func (p *Prometheus) Registry() *prometheus.Registry {
	return p.registry
}
