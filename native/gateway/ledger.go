package gateway

import (
	"encoding/binary"
	"fmt"
	"math/big"
	"strings"
)

type ledgerState interface {
	KVGet(key []byte, out interface{}) (bool, error)
	KVPut(key []byte, value interface{}) error
	KVAppend(key []byte, value []byte) error
	KVGetList(key []byte, out interface{}) error
}

// Ledger owns payment records and the permanent reference index. Identifiers
// are assigned from a monotonic counter; the counter only advances when a
// creation succeeds.
type Ledger struct {
	st ledgerState
}

// NewLedger constructs a ledger backed by the provided state accessor.
func NewLedger(st ledgerState) *Ledger {
	return &Ledger{st: st}
}

// ValidateCreate checks the caller-supplied invoice fields against the ledger
// bounds without touching state.
func (l *Ledger) ValidateCreate(amount *big.Int, description, reference string, lifetimeBlocks uint64) error {
	if amount == nil || amount.Sign() <= 0 {
		return fmt.Errorf("%w: amount must be positive", ErrInvalidInput)
	}
	if lifetimeBlocks == 0 || lifetimeBlocks >= maxLifetimeBlocks {
		return fmt.Errorf("%w: lifetime must be within (0, %d) blocks", ErrInvalidInput, maxLifetimeBlocks)
	}
	if strings.TrimSpace(description) == "" {
		return fmt.Errorf("%w: description required", ErrInvalidInput)
	}
	if len(description) > maxDescriptionLength {
		return fmt.Errorf("%w: description exceeds %d bytes", ErrInvalidInput, maxDescriptionLength)
	}
	if strings.TrimSpace(reference) == "" {
		return fmt.Errorf("%w: reference required", ErrInvalidInput)
	}
	if len(reference) > maxReferenceLength {
		return fmt.Errorf("%w: reference exceeds %d bytes", ErrInvalidInput, maxReferenceLength)
	}
	return nil
}

// Create persists a new pending payment for the business, binds the reference
// permanently, and returns the assigned identifier. A reference already used
// by the business fails the creation even if the earlier payment expired
// unsettled.
func (l *Ledger) Create(business [20]byte, amount *big.Int, description, reference string, lifetimeBlocks, height uint64) (*PaymentRequest, error) {
	if err := l.ValidateCreate(amount, description, reference, lifetimeBlocks); err != nil {
		return nil, err
	}
	reference = strings.TrimSpace(reference)
	ok, err := l.st.KVGet(referenceKey(business, reference), nil)
	if err != nil {
		return nil, err
	}
	if ok {
		return nil, fmt.Errorf("%w: reference %q already used", ErrAlreadyProcessed, reference)
	}
	id, err := l.nextID()
	if err != nil {
		return nil, err
	}
	payment := &PaymentRequest{
		ID:          id,
		Business:    business,
		Amount:      new(big.Int).Set(amount),
		Description: strings.TrimSpace(description),
		Reference:   reference,
		Status:      PaymentPending,
		CreatedAt:   height,
		ExpiresAt:   height + lifetimeBlocks,
	}
	if err := l.st.KVPut(paymentKey(id), payment); err != nil {
		return nil, err
	}
	if err := l.st.KVPut(referenceKey(business, reference), id); err != nil {
		return nil, err
	}
	var encoded [8]byte
	binary.BigEndian.PutUint64(encoded[:], id)
	if err := l.st.KVAppend(businessPaymentsKey(business), encoded[:]); err != nil {
		return nil, err
	}
	return payment.Clone(), nil
}

// Get returns the payment stored under the provided identifier, if any.
func (l *Ledger) Get(id uint64) (*PaymentRequest, bool, error) {
	payment := new(PaymentRequest)
	ok, err := l.st.KVGet(paymentKey(id), payment)
	if err != nil || !ok {
		return nil, ok, err
	}
	if payment.Amount == nil {
		payment.Amount = big.NewInt(0)
	}
	return payment, true, nil
}

// GetByReference resolves the reference index and then loads the record.
func (l *Ledger) GetByReference(business [20]byte, reference string) (*PaymentRequest, bool, error) {
	trimmed := strings.TrimSpace(reference)
	if trimmed == "" {
		return nil, false, nil
	}
	var id uint64
	ok, err := l.st.KVGet(referenceKey(business, trimmed), &id)
	if err != nil || !ok {
		return nil, false, err
	}
	return l.Get(id)
}

// IsValid reports whether the payment exists, is still pending, and has not
// reached its expiry height. Expiry is never persisted; a pending payment past
// its expiry height simply stays unsettleable.
func (l *Ledger) IsValid(id, height uint64) (bool, error) {
	payment, ok, err := l.Get(id)
	if err != nil || !ok {
		return false, err
	}
	return payment.Status == PaymentPending && height < payment.ExpiresAt, nil
}

// PaymentIDs lists every payment identifier created by the business, in
// creation order.
func (l *Ledger) PaymentIDs(business [20]byte) ([]uint64, error) {
	var raw [][]byte
	if err := l.st.KVGetList(businessPaymentsKey(business), &raw); err != nil {
		return nil, err
	}
	ids := make([]uint64, 0, len(raw))
	for _, entry := range raw {
		if len(entry) != 8 {
			return nil, fmt.Errorf("gateway: malformed payment index entry")
		}
		ids = append(ids, binary.BigEndian.Uint64(entry))
	}
	return ids, nil
}

// NextID returns the identifier the next successful creation will be assigned.
func (l *Ledger) NextID() (uint64, error) {
	var counter uint64
	if _, err := l.st.KVGet(paymentCounterKey(), &counter); err != nil {
		return 0, err
	}
	return counter + 1, nil
}

func (l *Ledger) nextID() (uint64, error) {
	var counter uint64
	if _, err := l.st.KVGet(paymentCounterKey(), &counter); err != nil {
		return 0, err
	}
	counter++
	if err := l.st.KVPut(paymentCounterKey(), counter); err != nil {
		return 0, err
	}
	return counter, nil
}

func (l *Ledger) put(payment *PaymentRequest) error {
	if payment == nil {
		return fmt.Errorf("gateway: nil payment")
	}
	if payment.Amount == nil {
		payment.Amount = big.NewInt(0)
	}
	if !payment.Status.Valid() {
		return fmt.Errorf("gateway: invalid payment status %d", payment.Status)
	}
	return l.st.KVPut(paymentKey(payment.ID), payment)
}
