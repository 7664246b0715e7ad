package gateway

import (
	"fmt"
	"math/big"
	"strings"
)

type registryState interface {
	KVGet(key []byte, out interface{}) (bool, error)
	KVPut(key []byte, value interface{}) error
}

// Registry persists merchant records. A business must exist here before the
// payment ledger accepts invoices from its owner.
type Registry struct {
	st registryState
}

// NewRegistry constructs a registry backed by the provided state accessor.
func NewRegistry(st registryState) *Registry {
	return &Registry{st: st}
}

func validateName(name string) (string, error) {
	trimmed := strings.TrimSpace(name)
	if trimmed == "" {
		return "", fmt.Errorf("%w: name required", ErrInvalidInput)
	}
	if len(trimmed) > maxNameLength {
		return "", fmt.Errorf("%w: name exceeds %d bytes", ErrInvalidInput, maxNameLength)
	}
	return trimmed, nil
}

func validateWebhook(url string) (string, error) {
	trimmed := strings.TrimSpace(url)
	if len(trimmed) > maxWebhookLength {
		return "", fmt.Errorf("%w: webhook URL exceeds %d bytes", ErrInvalidInput, maxWebhookLength)
	}
	return trimmed, nil
}

// Register creates the business record for the caller. Fee rate starts at
// zero, the record is active, and the registration height is immutable once
// set. A second registration by the same identity fails without touching the
// existing record.
func (r *Registry) Register(owner [20]byte, name, webhookURL string, height uint64) (*Business, error) {
	ok, err := r.st.KVGet(businessKey(owner), nil)
	if err != nil {
		return nil, err
	}
	if ok {
		return nil, ErrAlreadyRegistered
	}
	trimmedName, err := validateName(name)
	if err != nil {
		return nil, err
	}
	trimmedWebhook, err := validateWebhook(webhookURL)
	if err != nil {
		return nil, err
	}
	business := &Business{
		Owner:          owner,
		Name:           trimmedName,
		WebhookURL:     trimmedWebhook,
		FeeBps:         0,
		Active:         true,
		TotalProcessed: big.NewInt(0),
		RegisteredAt:   height,
	}
	if err := r.st.KVPut(businessKey(owner), business); err != nil {
		return nil, err
	}
	return business.Clone(), nil
}

// Update replaces the caller's name, webhook URL and fee rate. All other
// fields are untouched.
func (r *Registry) Update(owner [20]byte, name, webhookURL string, feeBps uint32) (*Business, error) {
	business, ok, err := r.Get(owner)
	if err != nil {
		return nil, err
	}
	if !ok {
		return nil, ErrBusinessNotRegistered
	}
	trimmedName, err := validateName(name)
	if err != nil {
		return nil, err
	}
	trimmedWebhook, err := validateWebhook(webhookURL)
	if err != nil {
		return nil, err
	}
	if feeBps > maxFeeBps {
		return nil, fmt.Errorf("%w: fee rate %d exceeds %d bps", ErrInvalidInput, feeBps, maxFeeBps)
	}
	business.Name = trimmedName
	business.WebhookURL = trimmedWebhook
	business.FeeBps = feeBps
	if err := r.put(business); err != nil {
		return nil, err
	}
	return business.Clone(), nil
}

// SetActive flips the merchant's active flag. Inactive merchants cannot have
// their invoices settled.
func (r *Registry) SetActive(owner [20]byte, active bool) (*Business, error) {
	business, ok, err := r.Get(owner)
	if err != nil {
		return nil, err
	}
	if !ok {
		return nil, ErrBusinessNotRegistered
	}
	business.Active = active
	if err := r.put(business); err != nil {
		return nil, err
	}
	return business.Clone(), nil
}

// Get returns the business registered by the provided identity, if any.
func (r *Registry) Get(owner [20]byte) (*Business, bool, error) {
	business := new(Business)
	ok, err := r.st.KVGet(businessKey(owner), business)
	if err != nil || !ok {
		return nil, ok, err
	}
	if business.TotalProcessed == nil {
		business.TotalProcessed = big.NewInt(0)
	}
	return business, true, nil
}

func (r *Registry) put(business *Business) error {
	if business == nil {
		return fmt.Errorf("gateway: nil business")
	}
	if business.TotalProcessed == nil {
		business.TotalProcessed = big.NewInt(0)
	}
	return r.st.KVPut(businessKey(business.Owner), business)
}
