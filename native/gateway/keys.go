package gateway

import "fmt"

func businessKey(owner [20]byte) []byte {
	return []byte(fmt.Sprintf("gateway/business/%x", owner))
}

func paymentKey(id uint64) []byte {
	return []byte(fmt.Sprintf("gateway/payment/%d", id))
}

// referenceKey indexes (business, reference) -> payment ID. Entries are
// permanent: a reference stays bound to its payment even after expiry.
func referenceKey(owner [20]byte, reference string) []byte {
	return []byte(fmt.Sprintf("gateway/reference/%x/%s", owner, reference))
}

func balanceKey(owner [20]byte) []byte {
	return []byte(fmt.Sprintf("gateway/balance/%x", owner))
}

func businessPaymentsKey(owner [20]byte) []byte {
	return []byte(fmt.Sprintf("gateway/business-payments/%x", owner))
}

func paymentCounterKey() []byte {
	return []byte("gateway/payments/seq")
}

func paramsKey() []byte {
	return []byte("gateway/params")
}
