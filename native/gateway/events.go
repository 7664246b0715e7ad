package gateway

import (
	"encoding/hex"
	"math/big"
	"strconv"

	"paygate/core/types"
)

const (
	EventTypeMerchantRegistered = "gateway.merchant.registered"
	EventTypeMerchantUpdated    = "gateway.merchant.updated"
	EventTypePaymentCreated     = "gateway.payment.created"
	EventTypePaymentSettled     = "gateway.payment.settled"
	EventTypePaymentRefunded    = "gateway.payment.refunded"
	EventTypeBalanceWithdrawn   = "gateway.balance.withdrawn"
	EventTypePayoutFailed       = "gateway.payout.failed"
	EventTypeParamsUpdated      = "gateway.params.updated"
)

// NewMerchantRegisteredEvent returns the canonical payload for a fresh
// business registration.
func NewMerchantRegisteredEvent(b *Business) *types.Event {
	return newMerchantEvent(EventTypeMerchantRegistered, b)
}

// NewMerchantUpdatedEvent returns the canonical payload for a business
// profile change.
func NewMerchantUpdatedEvent(b *Business) *types.Event {
	return newMerchantEvent(EventTypeMerchantUpdated, b)
}

// NewPaymentCreatedEvent returns the canonical payload for a new invoice.
func NewPaymentCreatedEvent(p *PaymentRequest) *types.Event {
	return newPaymentEvent(EventTypePaymentCreated, p)
}

// NewPaymentSettledEvent returns the canonical payload emitted when an invoice
// settles, including the fee split applied.
func NewPaymentSettledEvent(p *PaymentRequest, fees FeeBreakdown) *types.Event {
	evt := newPaymentEvent(EventTypePaymentSettled, p)
	evt.Attributes["platformFee"] = bigString(fees.PlatformFee)
	evt.Attributes["businessFee"] = bigString(fees.BusinessFee)
	evt.Attributes["netAmount"] = bigString(fees.NetAmount)
	return evt
}

// NewPaymentRefundedEvent returns the canonical payload for a refund of a
// completed payment.
func NewPaymentRefundedEvent(p *PaymentRequest) *types.Event {
	return newPaymentEvent(EventTypePaymentRefunded, p)
}

// NewBalanceWithdrawnEvent returns the canonical payload for a balance
// withdrawal.
func NewBalanceWithdrawnEvent(owner [20]byte, amount, remaining *big.Int) *types.Event {
	return &types.Event{Type: EventTypeBalanceWithdrawn, Attributes: map[string]string{
		"business":  hex.EncodeToString(owner[:]),
		"amount":    bigString(amount),
		"remaining": bigString(remaining),
	}}
}

// NewPayoutFailedEvent records an outbound disbursement that failed after the
// local ledger mutation committed. The entry is the hook for operator
// reconciliation.
func NewPayoutFailedEvent(flow string, recipient [20]byte, amount *big.Int, reason string) *types.Event {
	return &types.Event{Type: EventTypePayoutFailed, Attributes: map[string]string{
		"flow":      flow,
		"recipient": hex.EncodeToString(recipient[:]),
		"amount":    bigString(amount),
		"reason":    reason,
	}}
}

// NewParamsUpdatedEvent returns the canonical payload for a platform
// configuration change.
func NewParamsUpdatedEvent(p *Params) *types.Event {
	if p == nil {
		return &types.Event{Type: EventTypeParamsUpdated, Attributes: map[string]string{}}
	}
	return &types.Event{Type: EventTypeParamsUpdated, Attributes: map[string]string{
		"feeCollector":   hex.EncodeToString(p.FeeCollector[:]),
		"platformFeeBps": strconv.FormatUint(uint64(p.PlatformFeeBps), 10),
	}}
}

func newMerchantEvent(eventType string, b *Business) *types.Event {
	attrs := make(map[string]string)
	if b == nil {
		return &types.Event{Type: eventType, Attributes: attrs}
	}
	attrs["owner"] = hex.EncodeToString(b.Owner[:])
	attrs["name"] = b.Name
	attrs["feeBps"] = strconv.FormatUint(uint64(b.FeeBps), 10)
	attrs["active"] = strconv.FormatBool(b.Active)
	if b.WebhookURL != "" {
		attrs["webhookUrl"] = b.WebhookURL
	}
	return &types.Event{Type: eventType, Attributes: attrs}
}

func newPaymentEvent(eventType string, p *PaymentRequest) *types.Event {
	attrs := make(map[string]string)
	if p == nil {
		return &types.Event{Type: eventType, Attributes: attrs}
	}
	attrs["id"] = strconv.FormatUint(p.ID, 10)
	attrs["business"] = hex.EncodeToString(p.Business[:])
	attrs["amount"] = bigString(p.Amount)
	attrs["reference"] = p.Reference
	attrs["status"] = p.Status.String()
	attrs["expiresAt"] = strconv.FormatUint(p.ExpiresAt, 10)
	if !isZeroAddress(p.Payer) {
		attrs["payer"] = hex.EncodeToString(p.Payer[:])
	}
	return &types.Event{Type: eventType, Attributes: attrs}
}

func bigString(v *big.Int) string {
	if v == nil {
		return "0"
	}
	return v.String()
}
