package metrics

import (
	"testing"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
)

func TestSetWebsocketClients_ClampsNegative(t *testing.T) {
	SetWebsocketClients(3)
	assert.Equal(t, float64(3), testutil.ToFloat64(WebsocketClients))

	SetWebsocketClients(-1)
	assert.Equal(t, float64(0), testutil.ToFloat64(WebsocketClients))
}

func TestIncPayloadsDropped_EmptyReason(t *testing.T) {
	before := testutil.ToFloat64(PayloadsDropped.WithLabelValues("unknown"))
	IncPayloadsDropped("  ")
	assert.Equal(t, before+1, testutil.ToFloat64(PayloadsDropped.WithLabelValues("unknown")))
}
