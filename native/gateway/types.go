package gateway

import (
	"math/big"

	ethcrypto "github.com/ethereum/go-ethereum/crypto"
)

const (
	maxNameLength        = 128
	maxWebhookLength     = 256
	maxDescriptionLength = 256
	maxReferenceLength   = 64

	// Fee rates are expressed in basis points and must stay below 10%.
	maxFeeBps             = 999
	defaultPlatformFeeBps = 100
	feeDenominator        = 10_000

	// Payment lifetimes are measured in blocks and bounded below roughly 30
	// days at the reference block cadence.
	maxLifetimeBlocks = 4320
)

// PaymentStatus enumerates the persisted lifecycle states of a payment
// request. Expiry is a derived condition observed through IsPaymentValid and
// is never written back into the record.
type PaymentStatus uint8

const (
	PaymentPending PaymentStatus = iota
	PaymentCompleted
	PaymentRefunded
)

// Valid reports whether the status value is within the supported range.
func (s PaymentStatus) Valid() bool {
	switch s {
	case PaymentPending, PaymentCompleted, PaymentRefunded:
		return true
	default:
		return false
	}
}

func (s PaymentStatus) String() string {
	switch s {
	case PaymentPending:
		return "pending"
	case PaymentCompleted:
		return "completed"
	case PaymentRefunded:
		return "refunded"
	default:
		return "unknown"
	}
}

// Business is the registry record for a merchant identity. The owner address
// is the unique key; an address registers at most once.
type Business struct {
	Owner          [20]byte
	Name           string
	WebhookURL     string
	FeeBps         uint32
	Active         bool
	TotalProcessed *big.Int
	RegisteredAt   uint64
}

// Clone returns a deep copy so callers can mutate the copy without affecting
// the stored instance.
func (b *Business) Clone() *Business {
	if b == nil {
		return nil
	}
	clone := *b
	if b.TotalProcessed != nil {
		clone.TotalProcessed = new(big.Int).Set(b.TotalProcessed)
	} else {
		clone.TotalProcessed = big.NewInt(0)
	}
	return &clone
}

// PaymentRequest is a single invoice issued by a registered business.
// Identifiers are assigned sequentially starting at 1 and never reused.
type PaymentRequest struct {
	ID          uint64
	Business    [20]byte
	Payer       [20]byte
	Amount      *big.Int
	Description string
	Reference   string
	Status      PaymentStatus
	CreatedAt   uint64
	ExpiresAt   uint64
	ProcessedAt uint64
	Processor   [20]byte
}

// Clone returns a deep copy of the payment request.
func (p *PaymentRequest) Clone() *PaymentRequest {
	if p == nil {
		return nil
	}
	clone := *p
	if p.Amount != nil {
		clone.Amount = new(big.Int).Set(p.Amount)
	} else {
		clone.Amount = big.NewInt(0)
	}
	return &clone
}

// FeeBreakdown is the settlement-time fee split for a payment amount. Both fee
// terms use floor division; fractional fee units are systematically left with
// the business.
type FeeBreakdown struct {
	PlatformFee *big.Int
	BusinessFee *big.Int
	TotalFees   *big.Int
	NetAmount   *big.Int
}

// SettlementReceipt summarises a successful invoice settlement.
type SettlementReceipt struct {
	PaymentID uint64
	NetAmount *big.Int
	TotalFees *big.Int
}

var vaultAddress = func() [20]byte {
	var addr [20]byte
	copy(addr[:], ethcrypto.Keccak256([]byte("gateway/vault"))[12:])
	return addr
}()

// ModuleVault returns the settlement holding account. Collected amounts rest
// here between the inbound collection and the outbound disbursements.
func ModuleVault() [20]byte {
	return vaultAddress
}

func isZeroAddress(addr [20]byte) bool {
	var zero [20]byte
	return addr == zero
}
