// Package metrics registers the persistence counters exposed on /metrics.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Result label values.
const (
	ResultOK      = "ok"
	ResultError   = "error"
	ResultSkipped = "skipped"
)

var (
	LocalSaves = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "memodesk",
			Name:      "local_saves_total",
			Help:      "Snapshot writes to the local store.",
		},
		[]string{"result"},
	)

	RemotePushes = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "memodesk",
			Name:      "remote_pushes_total",
			Help:      "Snapshot pushes to the hosted repository.",
		},
		[]string{"result"},
	)

	RemoteLoadFallbacks = promauto.NewCounter(
		prometheus.CounterOpts{
			Namespace: "memodesk",
			Name:      "remote_load_fallbacks_total",
			Help:      "Remote loads that fell back to the local snapshot.",
		},
	)

	CoalescedPushes = promauto.NewCounter(
		prometheus.CounterOpts{
			Namespace: "memodesk",
			Name:      "remote_pushes_coalesced_total",
			Help:      "Push requests folded into an already pending push.",
		},
	)

	Autosaves = promauto.NewCounter(
		prometheus.CounterOpts{
			Namespace: "memodesk",
			Name:      "autosaves_total",
			Help:      "Editor drafts committed by the autosave timer.",
		},
	)
)
