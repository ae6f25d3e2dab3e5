package capture

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	metricStateTransitions = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "capture_state_transitions_total",
		Help: "Capture session state transitions",
	}, []string{"from", "to"})

	metricEngineRestarts = promauto.NewCounter(prometheus.CounterOpts{
		Name: "capture_engine_restarts_total",
		Help: "Recognition engine auto-restart attempts",
	})

	metricHardResets = promauto.NewCounter(prometheus.CounterOpts{
		Name: "capture_engine_hard_resets_total",
		Help: "Engine handles discarded after unrecoverable platform faults",
	})

	metricRetryExhausted = promauto.NewCounter(prometheus.CounterOpts{
		Name: "capture_retry_exhausted_total",
		Help: "Restart decisions suppressed because the retry budget ran out",
	})

	metricEngineErrors = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "capture_engine_errors_total",
		Help: "Recognition engine errors by kind",
	}, []string{"kind"})

	metricTranscriptFinals = promauto.NewCounter(prometheus.CounterOpts{
		Name: "capture_transcript_finals_total",
		Help: "Final transcript segments emitted on the immediate path",
	})

	metricTranscriptFlushes = promauto.NewCounter(prometheus.CounterOpts{
		Name: "capture_transcript_flushes_total",
		Help: "Utterances finalized by the silence timer",
	})

	metricTranscriptDedup = promauto.NewCounter(prometheus.CounterOpts{
		Name: "capture_transcript_dedup_suppressed_total",
		Help: "Silence flushes suppressed because the text already went out",
	})

	metricAudioLevel = promauto.NewHistogram(prometheus.HistogramOpts{
		Name:    "capture_audio_level",
		Help:    "Normalized audio level samples",
		Buckets: prometheus.LinearBuckets(0, 0.1, 10),
	})
)
