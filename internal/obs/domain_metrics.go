package obs

import (
	"fmt"
	"sync"

	"github.com/prometheus/client_golang/prometheus"
)

var (
	domainOnce sync.Once

	// InvoicesCreatedTotal counts invoice creation outcomes.
	InvoicesCreatedTotal *prometheus.CounterVec
	// PDFRenderTotal counts PDF render outcomes.
	PDFRenderTotal *prometheus.CounterVec
	// PDFRenderLatency records PDF render latency in milliseconds.
	PDFRenderLatency prometheus.Histogram
	// InvoiceEmailsTotal counts invoice email delivery outcomes.
	InvoiceEmailsTotal *prometheus.CounterVec
)

// MustRegisterDomainMetrics initialises and registers domain-specific Prometheus collectors.
func MustRegisterDomainMetrics(namespace string, reg prometheus.Registerer) {
	domainOnce.Do(func() {
		if reg == nil {
			reg = prometheus.DefaultRegisterer
		}
		InvoicesCreatedTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "invoices_created_total",
			Help:      "Count of invoice creation outcomes.",
		}, []string{"result"})
		PDFRenderTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "pdf_render_total",
			Help:      "Count of invoice PDF render outcomes.",
		}, []string{"result"})
		PDFRenderLatency = prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "pdf_render_duration_ms",
			Help:      "Latency for invoice PDF rendering in milliseconds.",
			Buckets:   []float64{100, 250, 500, 1000, 2500, 5000, 10000, 30000},
		})
		InvoiceEmailsTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "invoice_emails_total",
			Help:      "Count of invoice email delivery outcomes.",
		}, []string{"result"})

		mustRegisterCollector(reg, InvoicesCreatedTotal, func(existing prometheus.Collector) {
			if v, ok := existing.(*prometheus.CounterVec); ok {
				InvoicesCreatedTotal = v
			}
		})
		mustRegisterCollector(reg, PDFRenderTotal, func(existing prometheus.Collector) {
			if v, ok := existing.(*prometheus.CounterVec); ok {
				PDFRenderTotal = v
			}
		})
		mustRegisterCollector(reg, PDFRenderLatency, func(existing prometheus.Collector) {
			if v, ok := existing.(prometheus.Histogram); ok {
				PDFRenderLatency = v
			}
		})
		mustRegisterCollector(reg, InvoiceEmailsTotal, func(existing prometheus.Collector) {
			if v, ok := existing.(*prometheus.CounterVec); ok {
				InvoiceEmailsTotal = v
			}
		})
	})
}

func mustRegisterCollector(reg prometheus.Registerer, collector prometheus.Collector, reuse func(prometheus.Collector)) {
	if err := reg.Register(collector); err != nil {
		if are, ok := err.(prometheus.AlreadyRegisteredError); ok {
			if reuse != nil {
				reuse(are.ExistingCollector)
			}
			return
		}
		panic(fmt.Errorf("register domain metric: %w", err))
	}
}
