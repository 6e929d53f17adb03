package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

const (
	ResultIssued       = "issued"
	ResultIgnored      = "ignored"
	ResultBadSignature = "bad_signature"
	ResultBadPayload   = "bad_payload"
	ResultError        = "error"
)

var (
	WebhookEvents = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "carvd_webhook_events_total",
		Help: "Webhook deliveries processed, labelled by outcome.",
	}, []string{"result"})

	DuplicateDeliveries = promauto.NewCounter(prometheus.CounterOpts{
		Name: "carvd_webhook_duplicate_deliveries_total",
		Help: "Webhook deliveries for orders that were already seen.",
	})

	LicensesIssued = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "carvd_licenses_issued_total",
		Help: "License keys minted, labelled by issuance source.",
	}, []string{"source"})
)
