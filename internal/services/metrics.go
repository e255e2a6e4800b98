package services

import "github.com/prometheus/client_golang/prometheus"

var (
	// inboundEvents counts persisted inbound events by channel and threading policy.
	inboundEvents = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "helpdesk_inbound_events_total",
			Help: "Inbound events persisted, by channel and message type.",
		},
		[]string{"channel", "message_type"},
	)

	// inboundDropped counts payload elements that produced no message.
	inboundDropped = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "helpdesk_inbound_dropped_total",
			Help: "Inbound payload elements skipped, by reason.",
		},
		[]string{"reason"},
	)

	// outboundReplies counts reply dispatches by kind and outcome.
	outboundReplies = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "helpdesk_outbound_replies_total",
			Help: "Outbound replies dispatched, by kind and outcome.",
		},
		[]string{"kind", "outcome"},
	)
)

func init() {
	prometheus.MustRegister(inboundEvents, inboundDropped, outboundReplies)
}
