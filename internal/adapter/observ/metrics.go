package observ

import (
	"github.com/7amooo12/SamaStylestore/internal/usecase"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	cartMutations = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "cart_mutations_total",
			Help: "Cart mutations by operation and outcome",
		},
		[]string{"op", "result"},
	)

	orphanedLines = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "cart_orphaned_lines_total",
			Help: "Cart lines skipped because their product left the catalog",
		},
	)

	checkoutAmount = promauto.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "checkout_amount_cents",
			Help:    "Amounts sent to the payment provider, in cents",
			Buckets: prometheus.ExponentialBuckets(1000, 2, 10), // $10 .. ~$5k
		},
	)
)

// PromRecorder reports cart measurements to the default Prometheus registry.
type PromRecorder struct{}

func NewPromRecorder() PromRecorder { return PromRecorder{} }

func (PromRecorder) Mutation(op, result string) { cartMutations.WithLabelValues(op, result).Inc() }
func (PromRecorder) OrphanedLine()              { orphanedLines.Inc() }
func (PromRecorder) CheckoutAmount(cents int64) { checkoutAmount.Observe(float64(cents)) }

var _ usecase.Recorder = PromRecorder{}
