package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	SessionsCreated = promauto.NewCounter(prometheus.CounterOpts{
		Namespace: "casevault",
		Name:      "upload_sessions_created_total",
		Help:      "Upload sessions issued with a presigned URL.",
	})

	UploadsConfirmed = promauto.NewCounter(prometheus.CounterOpts{
		Namespace: "casevault",
		Name:      "uploads_confirmed_total",
		Help:      "Pending uploads transitioned to completed.",
	})

	FilesReaped = promauto.NewCounter(prometheus.CounterOpts{
		Namespace: "casevault",
		Name:      "files_reaped_total",
		Help:      "Expired pending upload records removed by the reaper.",
	})

	FilesDeleted = promauto.NewCounter(prometheus.CounterOpts{
		Namespace: "casevault",
		Name:      "files_deleted_total",
		Help:      "Completed files deleted on request.",
	})
)
