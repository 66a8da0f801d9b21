package metrics

import "github.com/prometheus/client_golang/prometheus"

func init() { register(translationRequestsTotal, ocrItemsTotal) }

var (
	translationRequestsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "translation_requests_total",
			Help: "Translation requests, labeled by result.",
		},
		[]string{"result"}, // 'cached', 'done', 'in_progress', 'failed', 'rate_limited', 'not_ready'
	)

	ocrItemsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "ocr_items_total",
			Help: "Per-image OCR outcomes inside image jobs.",
		},
		[]string{"result"}, // 'text', 'empty', 'error'
	)
)

func IncTranslation(result string) {
	translationRequestsTotal.WithLabelValues(norm(result)).Inc()
}

func IncOCRItem(result string) {
	ocrItemsTotal.WithLabelValues(norm(result)).Inc()
}
