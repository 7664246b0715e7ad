package gateway

import (
	"fmt"
	"log/slog"
	"math/big"
	"sync"

	"paygate/core/events"
	"paygate/core/types"
	"paygate/observability/metrics"
)

type engineState interface {
	KVGet(key []byte, out interface{}) (bool, error)
	KVPut(key []byte, value interface{}) error
	KVAppend(key []byte, value []byte) error
	KVGetList(key []byte, out interface{}) error
	Begin()
	Commit() error
	Rollback()
}

// TransferService moves the settlement asset between identities. It is an
// injected collaborator so deployments can plug in external rails and tests
// can substitute failing implementations.
type TransferService interface {
	Transfer(from, to [20]byte, amount *big.Int, memo string) error
}

// AuditEntry is the durable record handed to the configured auditor after a
// flow commits.
type AuditEntry struct {
	Flow         string
	PaymentID    uint64
	Business     [20]byte
	Counterparty [20]byte
	Amount       *big.Int
	Fees         *big.Int
	PayoutFailed bool
	Memo         string
}

// Auditor receives a record of every committed flow, including disbursements
// that failed after the local mutation was retained.
type Auditor interface {
	Record(entry AuditEntry) error
}

type noopAuditor struct{}

func (noopAuditor) Record(AuditEntry) error { return nil }

type gatewayEvent struct {
	evt *types.Event
}

func (e gatewayEvent) EventType() string {
	if e.evt == nil {
		return ""
	}
	return e.evt.Type
}

func (e gatewayEvent) Event() *types.Event { return e.evt }

// Engine orchestrates the payment lifecycle: merchant registration, invoice
// creation, settlement with the atomic fee split, withdrawals and refunds.
//
// Every public operation is serialized behind the engine mutex and executed
// as a single state transition: local mutations are buffered in the state
// overlay and either commit together or not at all. Outbound disbursements
// (fee payout, withdrawal payout, refund payout) run after the local commit;
// a disbursement failure is surfaced as ErrTransferFailed and recorded for
// reconciliation, never rolled back.
type Engine struct {
	mu        sync.Mutex
	st        engineState
	transfers TransferService
	registry  *Registry
	ledger    *Ledger
	emitter   events.Emitter
	auditor   Auditor
	log       *slog.Logger
	heightFn  func() uint64
}

// NewEngine wires the gateway engine with its state backend and transfer
// collaborator. Callers must configure the height source via SetHeightFunc
// before settling height-sensitive flows.
func NewEngine(st engineState, transfers TransferService) *Engine {
	return &Engine{
		st:        st,
		transfers: transfers,
		registry:  NewRegistry(st),
		ledger:    NewLedger(st),
		emitter:   events.NoopEmitter{},
		auditor:   noopAuditor{},
		log:       slog.Default(),
		heightFn:  func() uint64 { return 0 },
	}
}

// SetEmitter configures the event emitter. Passing nil resets it to a no-op
// implementation.
func (e *Engine) SetEmitter(emitter events.Emitter) {
	if emitter == nil {
		e.emitter = events.NoopEmitter{}
		return
	}
	e.emitter = emitter
}

// SetAuditor configures the audit sink. Passing nil resets it to a no-op
// implementation.
func (e *Engine) SetAuditor(auditor Auditor) {
	if auditor == nil {
		e.auditor = noopAuditor{}
		return
	}
	e.auditor = auditor
}

// SetLogger overrides the logger used for operational warnings.
func (e *Engine) SetLogger(log *slog.Logger) {
	if log == nil {
		e.log = slog.Default()
		return
	}
	e.log = log
}

// SetHeightFunc configures the block-height source. The height is read once
// at operation entry, never cached across operations.
func (e *Engine) SetHeightFunc(height func() uint64) {
	if height == nil {
		e.heightFn = func() uint64 { return 0 }
		return
	}
	e.heightFn = height
}

func (e *Engine) emit(evt *types.Event) {
	if e == nil || e.emitter == nil || evt == nil {
		return
	}
	e.emitter.Emit(gatewayEvent{evt: evt})
}

func (e *Engine) audit(entry AuditEntry) {
	if err := e.auditor.Record(entry); err != nil {
		e.log.Warn("gateway audit record failed", "flow", entry.Flow, "err", err)
	}
}

// RegisterBusiness creates the caller's merchant record.
func (e *Engine) RegisterBusiness(caller [20]byte, name, webhookURL string) error {
	e.mu.Lock()
	defer e.mu.Unlock()
	height := e.heightFn()
	e.st.Begin()
	business, err := e.registry.Register(caller, name, webhookURL, height)
	if err != nil {
		e.st.Rollback()
		return err
	}
	if err := e.st.Commit(); err != nil {
		e.st.Rollback()
		return err
	}
	e.emit(NewMerchantRegisteredEvent(business))
	return nil
}

// UpdateBusiness replaces the caller's name, webhook URL and fee rate.
func (e *Engine) UpdateBusiness(caller [20]byte, name, webhookURL string, feeBps uint32) error {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.st.Begin()
	business, err := e.registry.Update(caller, name, webhookURL, feeBps)
	if err != nil {
		e.st.Rollback()
		return err
	}
	if err := e.st.Commit(); err != nil {
		e.st.Rollback()
		return err
	}
	e.emit(NewMerchantUpdatedEvent(business))
	return nil
}

// SetMerchantActive flips a merchant's active flag. Only the platform owner
// may invoke it.
func (e *Engine) SetMerchantActive(caller, merchant [20]byte, active bool) error {
	e.mu.Lock()
	defer e.mu.Unlock()
	params, err := loadParams(e.st)
	if err != nil {
		return err
	}
	if caller != params.Owner {
		return ErrUnauthorized
	}
	e.st.Begin()
	business, err := e.registry.SetActive(merchant, active)
	if err != nil {
		e.st.Rollback()
		return err
	}
	if err := e.st.Commit(); err != nil {
		e.st.Rollback()
		return err
	}
	e.emit(NewMerchantUpdatedEvent(business))
	return nil
}

// CreatePayment issues a new invoice for the calling business and returns the
// assigned identifier. The identifier counter only advances on success.
func (e *Engine) CreatePayment(caller [20]byte, amount *big.Int, description, reference string, lifetimeBlocks uint64) (uint64, error) {
	e.mu.Lock()
	defer e.mu.Unlock()
	height := e.heightFn()
	if err := e.ledger.ValidateCreate(amount, description, reference, lifetimeBlocks); err != nil {
		return 0, err
	}
	_, ok, err := e.registry.Get(caller)
	if err != nil {
		return 0, err
	}
	if !ok {
		return 0, ErrBusinessNotRegistered
	}
	e.st.Begin()
	payment, err := e.ledger.Create(caller, amount, description, reference, lifetimeBlocks, height)
	if err != nil {
		e.st.Rollback()
		return 0, err
	}
	if err := e.st.Commit(); err != nil {
		e.st.Rollback()
		return 0, err
	}
	e.emit(NewPaymentCreatedEvent(payment))
	return payment.ID, nil
}

// PayInvoice settles a pending payment on behalf of the caller. The gross
// amount moves from the caller to the module vault, the fee split is computed
// with the platform and business rates in force at settlement time, the net
// amount is credited to the business balance, and the platform fee is paid out
// to the configured collector.
func (e *Engine) PayInvoice(caller [20]byte, paymentID uint64) (*SettlementReceipt, error) {
	e.mu.Lock()
	defer e.mu.Unlock()
	height := e.heightFn()
	params, err := loadParams(e.st)
	if err != nil {
		return nil, err
	}
	payment, ok, err := e.ledger.Get(paymentID)
	if err != nil {
		return nil, err
	}
	if !ok {
		return nil, ErrPaymentNotFound
	}
	business, ok, err := e.registry.Get(payment.Business)
	if err != nil {
		return nil, err
	}
	if !ok {
		return nil, ErrBusinessNotRegistered
	}
	if !business.Active {
		return nil, fmt.Errorf("%w: business inactive", ErrUnauthorized)
	}
	if payment.Status != PaymentPending {
		return nil, ErrAlreadyProcessed
	}
	if height >= payment.ExpiresAt {
		return nil, ErrExpired
	}

	fees := CalculateFees(payment.Amount, params.PlatformFeeBps, business.FeeBps)

	e.st.Begin()
	memo := fmt.Sprintf("gateway: settle payment %d", paymentID)
	if err := e.transfers.Transfer(caller, vaultAddress, payment.Amount, memo); err != nil {
		e.st.Rollback()
		return nil, fmt.Errorf("%w: %v", ErrTransferFailed, err)
	}
	if _, err := e.creditBalance(payment.Business, fees.NetAmount); err != nil {
		e.st.Rollback()
		return nil, err
	}
	payment.Status = PaymentCompleted
	payment.Payer = caller
	payment.Processor = caller
	payment.ProcessedAt = height
	if err := e.ledger.put(payment); err != nil {
		e.st.Rollback()
		return nil, err
	}
	business.TotalProcessed = new(big.Int).Add(business.TotalProcessed, payment.Amount)
	if err := e.registry.put(business); err != nil {
		e.st.Rollback()
		return nil, err
	}
	if err := e.st.Commit(); err != nil {
		e.st.Rollback()
		return nil, err
	}

	e.emit(NewPaymentSettledEvent(payment, fees))
	metrics.Gateway().SettlementProcessed(payment.Amount, fees.TotalFees)

	entry := AuditEntry{
		Flow:         "settlement",
		PaymentID:    paymentID,
		Business:     payment.Business,
		Counterparty: caller,
		Amount:       payment.Amount,
		Fees:         fees.TotalFees,
		Memo:         payment.Reference,
	}
	if fees.PlatformFee.Sign() > 0 {
		feeMemo := fmt.Sprintf("gateway: platform fee payment %d", paymentID)
		if err := e.transfers.Transfer(vaultAddress, params.FeeCollector, fees.PlatformFee, feeMemo); err != nil {
			e.payoutFailed("settlement", params.FeeCollector, fees.PlatformFee, err)
			entry.PayoutFailed = true
			e.audit(entry)
			return nil, fmt.Errorf("%w: fee payout: %v", ErrTransferFailed, err)
		}
	}
	e.audit(entry)
	return &SettlementReceipt{
		PaymentID: paymentID,
		NetAmount: fees.NetAmount,
		TotalFees: fees.TotalFees,
	}, nil
}

// Withdraw debits the caller's accumulated balance and disburses the amount
// from the module vault. The debit commits before the transfer; a failed
// transfer is recorded for reconciliation rather than re-credited.
func (e *Engine) Withdraw(caller [20]byte, amount *big.Int) (*big.Int, error) {
	e.mu.Lock()
	defer e.mu.Unlock()
	_, ok, err := e.registry.Get(caller)
	if err != nil {
		return nil, err
	}
	if !ok {
		return nil, ErrBusinessNotRegistered
	}
	if amount == nil || amount.Sign() <= 0 {
		return nil, fmt.Errorf("%w: amount must be positive", ErrInvalidInput)
	}
	e.st.Begin()
	remaining, err := e.debitBalance(caller, amount)
	if err != nil {
		e.st.Rollback()
		return nil, err
	}
	if err := e.st.Commit(); err != nil {
		e.st.Rollback()
		return nil, err
	}

	e.emit(NewBalanceWithdrawnEvent(caller, amount, remaining))
	metrics.Gateway().WithdrawalProcessed(amount)

	entry := AuditEntry{
		Flow:         "withdrawal",
		Business:     caller,
		Counterparty: caller,
		Amount:       amount,
	}
	if err := e.transfers.Transfer(vaultAddress, caller, amount, "gateway: withdraw"); err != nil {
		e.payoutFailed("withdrawal", caller, amount, err)
		entry.PayoutFailed = true
		e.audit(entry)
		return nil, fmt.Errorf("%w: %v", ErrTransferFailed, err)
	}
	e.audit(entry)
	return new(big.Int).Set(amount), nil
}

// Refund returns a completed payment's full gross amount to the original
// payer, debited from the owning business's balance. The business must have
// replenished the earlier fee deduction from other settlements to cover it.
func (e *Engine) Refund(caller [20]byte, paymentID uint64) (*big.Int, error) {
	e.mu.Lock()
	defer e.mu.Unlock()
	height := e.heightFn()
	payment, ok, err := e.ledger.Get(paymentID)
	if err != nil {
		return nil, err
	}
	if !ok || isZeroAddress(payment.Payer) {
		return nil, ErrPaymentNotFound
	}
	if caller != payment.Business {
		return nil, ErrUnauthorized
	}
	if payment.Status != PaymentCompleted {
		return nil, ErrAlreadyProcessed
	}
	e.st.Begin()
	if _, err := e.debitBalance(caller, payment.Amount); err != nil {
		e.st.Rollback()
		return nil, err
	}
	payment.Status = PaymentRefunded
	payment.ProcessedAt = height
	if err := e.ledger.put(payment); err != nil {
		e.st.Rollback()
		return nil, err
	}
	if err := e.st.Commit(); err != nil {
		e.st.Rollback()
		return nil, err
	}

	e.emit(NewPaymentRefundedEvent(payment))
	metrics.Gateway().RefundProcessed(payment.Amount)

	entry := AuditEntry{
		Flow:         "refund",
		PaymentID:    paymentID,
		Business:     caller,
		Counterparty: payment.Payer,
		Amount:       payment.Amount,
		Memo:         payment.Reference,
	}
	memo := fmt.Sprintf("gateway: refund payment %d", paymentID)
	if err := e.transfers.Transfer(vaultAddress, payment.Payer, payment.Amount, memo); err != nil {
		e.payoutFailed("refund", payment.Payer, payment.Amount, err)
		entry.PayoutFailed = true
		e.audit(entry)
		return nil, fmt.Errorf("%w: %v", ErrTransferFailed, err)
	}
	e.audit(entry)
	return payment.Clone().Amount, nil
}

// SetPlatformFee updates the platform fee rate. Owner only.
func (e *Engine) SetPlatformFee(caller [20]byte, bps uint32) error {
	e.mu.Lock()
	defer e.mu.Unlock()
	params, err := loadParams(e.st)
	if err != nil {
		return err
	}
	if caller != params.Owner {
		return ErrUnauthorized
	}
	if bps > maxFeeBps {
		return fmt.Errorf("%w: platform fee %d exceeds %d bps", ErrInvalidInput, bps, maxFeeBps)
	}
	params.PlatformFeeBps = bps
	e.st.Begin()
	if err := e.st.KVPut(paramsKey(), params); err != nil {
		e.st.Rollback()
		return err
	}
	if err := e.st.Commit(); err != nil {
		e.st.Rollback()
		return err
	}
	e.emit(NewParamsUpdatedEvent(params))
	return nil
}

// SetFeeCollector updates the platform fee collector. Owner only; the null
// identity is rejected.
func (e *Engine) SetFeeCollector(caller, collector [20]byte) error {
	e.mu.Lock()
	defer e.mu.Unlock()
	params, err := loadParams(e.st)
	if err != nil {
		return err
	}
	if caller != params.Owner {
		return ErrUnauthorized
	}
	if isZeroAddress(collector) {
		return fmt.Errorf("%w: fee collector must not be the null identity", ErrInvalidInput)
	}
	params.FeeCollector = collector
	e.st.Begin()
	if err := e.st.KVPut(paramsKey(), params); err != nil {
		e.st.Rollback()
		return err
	}
	if err := e.st.Commit(); err != nil {
		e.st.Rollback()
		return err
	}
	e.emit(NewParamsUpdatedEvent(params))
	return nil
}

// GetBusiness returns the registered business for the identity, if any.
func (e *Engine) GetBusiness(owner [20]byte) (*Business, bool, error) {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.registry.Get(owner)
}

// GetPayment returns the payment stored under the identifier, if any.
func (e *Engine) GetPayment(id uint64) (*PaymentRequest, bool, error) {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.ledger.Get(id)
}

// GetPaymentByReference resolves a (business, reference) pair to its payment.
func (e *Engine) GetPaymentByReference(business [20]byte, reference string) (*PaymentRequest, bool, error) {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.ledger.GetByReference(business, reference)
}

// BusinessBalance returns the accumulated settlement balance for the business.
func (e *Engine) BusinessBalance(owner [20]byte) (*big.Int, error) {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.balanceOf(owner)
}

// BusinessPaymentIDs lists the identifiers of every payment the business has
// created, in creation order.
func (e *Engine) BusinessPaymentIDs(owner [20]byte) ([]uint64, error) {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.ledger.PaymentIDs(owner)
}

// PlatformFee returns the platform fee rate in basis points.
func (e *Engine) PlatformFee() (uint32, error) {
	e.mu.Lock()
	defer e.mu.Unlock()
	params, err := loadParams(e.st)
	if err != nil {
		return 0, err
	}
	return params.PlatformFeeBps, nil
}

// FeeCollector returns the configured platform fee collector.
func (e *Engine) FeeCollector() ([20]byte, error) {
	e.mu.Lock()
	defer e.mu.Unlock()
	params, err := loadParams(e.st)
	if err != nil {
		return [20]byte{}, err
	}
	return params.FeeCollector, nil
}

// CalculateFees previews the settlement split for an amount and business fee
// rate under the platform rate currently in force.
func (e *Engine) CalculateFees(amount *big.Int, businessFeeBps uint32) (FeeBreakdown, error) {
	e.mu.Lock()
	defer e.mu.Unlock()
	if businessFeeBps > maxFeeBps {
		return FeeBreakdown{}, fmt.Errorf("%w: fee rate %d exceeds %d bps", ErrInvalidInput, businessFeeBps, maxFeeBps)
	}
	params, err := loadParams(e.st)
	if err != nil {
		return FeeBreakdown{}, err
	}
	return CalculateFees(amount, params.PlatformFeeBps, businessFeeBps), nil
}

// IsPaymentValid reports whether the payment is still settleable at the
// current height.
func (e *Engine) IsPaymentValid(id uint64) (bool, error) {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.ledger.IsValid(id, e.heightFn())
}

// NextPaymentID returns the identifier the next created payment will receive.
func (e *Engine) NextPaymentID() (uint64, error) {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.ledger.NextID()
}

func (e *Engine) payoutFailed(flow string, recipient [20]byte, amount *big.Int, cause error) {
	e.emit(NewPayoutFailedEvent(flow, recipient, amount, cause.Error()))
	metrics.Gateway().PayoutFailed(flow)
	e.log.Warn("gateway disbursement failed",
		"flow", flow,
		"recipient", fmt.Sprintf("%x", recipient),
		"amount", bigString(amount),
		"err", cause,
	)
}
