package emotion

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	metricFusionPasses = promauto.NewCounter(prometheus.CounterOpts{
		Name: "emotion_fusion_passes_total",
		Help: "Fusion passes run across both source streams",
	})
)
