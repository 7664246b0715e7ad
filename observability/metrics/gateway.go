package metrics

import (
	"math/big"
	"sync"

	"github.com/prometheus/client_golang/prometheus"
)

// GatewayMetrics aggregates the counters exported by the payment-gateway
// engine. Amount counters are expressed in the smallest settlement unit.
type GatewayMetrics struct {
	settlements      prometheus.Counter
	withdrawals      prometheus.Counter
	refunds          prometheus.Counter
	grossVolume      prometheus.Counter
	feeVolume        prometheus.Counter
	withdrawalVolume prometheus.Counter
	refundVolume     prometheus.Counter
	payoutFailures   *prometheus.CounterVec
}

var (
	gatewayOnce     sync.Once
	gatewayRegistry *GatewayMetrics
)

func Gateway() *GatewayMetrics {
	gatewayOnce.Do(func() {
		gatewayRegistry = &GatewayMetrics{
			settlements: prometheus.NewCounter(prometheus.CounterOpts{
				Name: "gateway_settlements_total",
				Help: "Count of successfully settled payments.",
			}),
			withdrawals: prometheus.NewCounter(prometheus.CounterOpts{
				Name: "gateway_withdrawals_total",
				Help: "Count of processed balance withdrawals.",
			}),
			refunds: prometheus.NewCounter(prometheus.CounterOpts{
				Name: "gateway_refunds_total",
				Help: "Count of processed payment refunds.",
			}),
			grossVolume: prometheus.NewCounter(prometheus.CounterOpts{
				Name: "gateway_gross_volume_units",
				Help: "Cumulative gross settled amount in smallest units.",
			}),
			feeVolume: prometheus.NewCounter(prometheus.CounterOpts{
				Name: "gateway_fee_volume_units",
				Help: "Cumulative withheld fees in smallest units.",
			}),
			withdrawalVolume: prometheus.NewCounter(prometheus.CounterOpts{
				Name: "gateway_withdrawal_volume_units",
				Help: "Cumulative withdrawn amount in smallest units.",
			}),
			refundVolume: prometheus.NewCounter(prometheus.CounterOpts{
				Name: "gateway_refund_volume_units",
				Help: "Cumulative refunded amount in smallest units.",
			}),
			payoutFailures: prometheus.NewCounterVec(prometheus.CounterOpts{
				Name: "gateway_payout_failures_total",
				Help: "Count of failed outbound disbursements by flow.",
			}, []string{"flow"}),
		}
		prometheus.MustRegister(
			gatewayRegistry.settlements,
			gatewayRegistry.withdrawals,
			gatewayRegistry.refunds,
			gatewayRegistry.grossVolume,
			gatewayRegistry.feeVolume,
			gatewayRegistry.withdrawalVolume,
			gatewayRegistry.refundVolume,
			gatewayRegistry.payoutFailures,
		)
	})
	return gatewayRegistry
}

// SettlementProcessed records a settled payment with its withheld fees.
func (m *GatewayMetrics) SettlementProcessed(gross, fees *big.Int) {
	if m == nil {
		return
	}
	m.settlements.Inc()
	m.grossVolume.Add(bigFloat(gross))
	m.feeVolume.Add(bigFloat(fees))
}

// WithdrawalProcessed records a committed withdrawal with its amount.
func (m *GatewayMetrics) WithdrawalProcessed(amount *big.Int) {
	if m == nil {
		return
	}
	m.withdrawals.Inc()
	m.withdrawalVolume.Add(bigFloat(amount))
}

// RefundProcessed records a committed refund with its amount.
func (m *GatewayMetrics) RefundProcessed(amount *big.Int) {
	if m == nil {
		return
	}
	m.refunds.Inc()
	m.refundVolume.Add(bigFloat(amount))
}

// PayoutFailed records an outbound disbursement failure for the given flow.
func (m *GatewayMetrics) PayoutFailed(flow string) {
	if m == nil {
		return
	}
	m.payoutFailures.WithLabelValues(flow).Inc()
}

func bigFloat(v *big.Int) float64 {
	if v == nil {
		return 0
	}
	f, _ := new(big.Float).SetInt(v).Float64()
	return f
}
