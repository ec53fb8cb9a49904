package metrics

import (
	"strings"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	WebsocketClients = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "bitcoinswitch_websocket_clients",
		Help: "Current number of connected switch devices",
	})

	InvoicesCreated = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "bitcoinswitch_invoices_created_total",
		Help: "Total LNURL invoices created",
	}, []string{"kind"})

	PaymentsSettled = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "bitcoinswitch_payments_settled_total",
		Help: "Total switch payments settled",
	}, []string{"kind"})

	PayloadsDelivered = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "bitcoinswitch_payloads_delivered_total",
		Help: "Total pin payloads sent to devices",
	}, []string{"source"})

	PayloadsDropped = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "bitcoinswitch_payloads_dropped_total",
		Help: "Total pin payloads not delivered",
	}, []string{"reason"})

	ListenerQueueLength = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "bitcoinswitch_listener_queue_length",
		Help: "Paid invoices waiting for settlement",
	})
)

func SetWebsocketClients(count int) {
	if count < 0 {
		count = 0
	}
	WebsocketClients.Set(float64(count))
}

func IncInvoicesCreated(kind string) {
	InvoicesCreated.WithLabelValues(label(kind)).Inc()
}

func IncPaymentsSettled(kind string) {
	PaymentsSettled.WithLabelValues(label(kind)).Inc()
}

func IncPayloadsDelivered(source string) {
	PayloadsDelivered.WithLabelValues(label(source)).Inc()
}

func IncPayloadsDropped(reason string) {
	PayloadsDropped.WithLabelValues(label(reason)).Inc()
}

func SetListenerQueueLength(length int) {
	if length < 0 {
		length = 0
	}
	ListenerQueueLength.Set(float64(length))
}

func label(value string) string {
	value = strings.TrimSpace(value)
	if value == "" {
		return "unknown"
	}
	return value
}
