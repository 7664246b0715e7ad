package main

import (
	"fmt"
	"math/big"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"paygate/audit"
	"paygate/config"
	"paygate/core/state"
	"paygate/native/bank"
	"paygate/native/gateway"
	"paygate/observability/logging"
	"paygate/storage"
)

var configPath = defaultConfigPath()

func defaultConfigPath() string {
	if value := strings.TrimSpace(os.Getenv("PAYGATE_CONFIG")); value != "" {
		return value
	}
	return "./paygate.toml"
}

func main() {
	args := os.Args[1:]
	args = applyGlobalFlags(args)

	if len(args) < 1 {
		printUsage()
		return
	}

	command := args[0]
	switch command {
	case "init":
		runInit()
	case "register":
		requireArgs(args, 3, "register <owner> <name> [webhook]")
		webhook := ""
		if len(args) > 3 {
			webhook = args[3]
		}
		runRegister(args[1], args[2], webhook)
	case "update":
		requireArgs(args, 5, "update <owner> <name> <webhook> <fee-bps>")
		runUpdate(args[1], args[2], args[3], args[4])
	case "create-payment":
		requireArgs(args, 6, "create-payment <business> <amount> <description> <reference> <lifetime-blocks>")
		runCreatePayment(args[1], args[2], args[3], args[4], args[5])
	case "pay":
		requireArgs(args, 3, "pay <payer> <payment-id>")
		runPay(args[1], args[2])
	case "withdraw":
		requireArgs(args, 3, "withdraw <business> <amount>")
		runWithdraw(args[1], args[2])
	case "refund":
		requireArgs(args, 3, "refund <business> <payment-id>")
		runRefund(args[1], args[2])
	case "set-fee":
		requireArgs(args, 3, "set-fee <owner> <bps>")
		runSetFee(args[1], args[2])
	case "set-collector":
		requireArgs(args, 3, "set-collector <owner> <collector>")
		runSetCollector(args[1], args[2])
	case "set-active":
		requireArgs(args, 4, "set-active <owner> <merchant> <true|false>")
		runSetActive(args[1], args[2], args[3])
	case "business":
		requireArgs(args, 2, "business <owner>")
		runShowBusiness(args[1])
	case "payment":
		requireArgs(args, 2, "payment <id>")
		runShowPayment(args[1])
	case "balance":
		requireArgs(args, 2, "balance <business>")
		runShowBalance(args[1])
	case "mint":
		requireArgs(args, 3, "mint <address> <amount>")
		runMint(args[1], args[2])
	case "height":
		runShowHeight()
	case "advance":
		requireArgs(args, 2, "advance <blocks>")
		runAdvance(args[1])
	default:
		fmt.Printf("Unknown command: %s\n", command)
		printUsage()
		os.Exit(1)
	}
}

func applyGlobalFlags(args []string) []string {
	out := args[:0]
	for i := 0; i < len(args); i++ {
		arg := args[i]
		switch {
		case arg == "--config":
			if i+1 >= len(args) {
				fatal(fmt.Errorf("--config requires a path"))
			}
			i++
			configPath = args[i]
		case strings.HasPrefix(arg, "--config="):
			configPath = strings.TrimPrefix(arg, "--config=")
		default:
			out = append(out, arg)
		}
	}
	return out
}

func printUsage() {
	fmt.Println("Usage: paygate-cli [--config <path>] <command> [args]")
	fmt.Println("\nPlatform:")
	fmt.Println("  init                                                 Seed platform parameters from the config file")
	fmt.Println("  set-fee <owner> <bps>                                Update the platform fee rate")
	fmt.Println("  set-collector <owner> <collector>                    Update the platform fee collector")
	fmt.Println("  set-active <owner> <merchant> <true|false>           Toggle a merchant's active flag")
	fmt.Println("\nMerchants:")
	fmt.Println("  register <owner> <name> [webhook]                    Register a merchant")
	fmt.Println("  update <owner> <name> <webhook> <fee-bps>            Update a merchant profile")
	fmt.Println("  business <owner>                                     Show a merchant record")
	fmt.Println("  balance <business>                                   Show a merchant's accumulated balance")
	fmt.Println("\nPayments:")
	fmt.Println("  create-payment <business> <amount> <description> <reference> <lifetime-blocks>")
	fmt.Println("  pay <payer> <payment-id>                             Settle a pending payment")
	fmt.Println("  withdraw <business> <amount>                         Withdraw accumulated balance")
	fmt.Println("  refund <business> <payment-id>                       Refund a completed payment")
	fmt.Println("  payment <id>                                         Show a payment record")
	fmt.Println("\nLedger:")
	fmt.Println("  mint <address> <amount>                              Credit settlement units (local testing)")
	fmt.Println("  height                                               Show the current ledger height")
	fmt.Println("  advance <blocks>                                     Advance the ledger height")
}

func requireArgs(args []string, count int, usage string) {
	if len(args) < count {
		fmt.Printf("Usage: paygate-cli %s\n", usage)
		os.Exit(1)
	}
}

func fatal(err error) {
	fmt.Fprintf(os.Stderr, "Error: %v\n", err)
	os.Exit(1)
}

// ledger bundles the opened stores for one CLI invocation. Every command opens
// the ledger, runs a single operation, and closes it again.
type ledger struct {
	cfg    *config.Config
	db     *storage.LevelDB
	st     *state.Manager
	bank   *bank.Engine
	engine *gateway.Engine
	audits *audit.Store
}

func openLedger() *ledger {
	cfg, err := config.Load(configPath)
	if err != nil {
		fatal(err)
	}
	log := logging.Setup(cfg.Service, cfg.Environment)
	db, err := storage.NewLevelDB(filepath.Join(cfg.DataDir, "state"))
	if err != nil {
		fatal(err)
	}
	st := state.NewManager(db)
	bankEngine := bank.NewEngine(st)
	engine := gateway.NewEngine(st, bankEngine)
	engine.SetLogger(log)
	engine.SetHeightFunc(func() uint64 { return readHeight(st) })

	audits, err := audit.NewStore(cfg.AuditPath)
	if err != nil {
		db.Close()
		fatal(err)
	}
	engine.SetAuditor(audits)

	return &ledger{cfg: cfg, db: db, st: st, bank: bankEngine, engine: engine, audits: audits}
}

func (l *ledger) close() {
	if l.audits != nil {
		l.audits.Close()
	}
	if l.db != nil {
		l.db.Close()
	}
}

var heightKey = []byte("ledger/height")

func readHeight(st *state.Manager) uint64 {
	var height uint64
	if _, err := st.KVGet(heightKey, &height); err != nil {
		fatal(err)
	}
	return height
}

func runInit() {
	l := openLedger()
	defer l.close()
	seed, err := l.cfg.GatewayInit()
	if err != nil {
		fatal(err)
	}
	if err := gateway.Initialize(l.st, seed); err != nil {
		fatal(err)
	}
	fmt.Printf("Platform initialized: owner=%s collector=%s fee=%d bps\n",
		l.cfg.Owner, l.cfg.FeeCollector, seed.PlatformFeeBps)
}

func runRegister(owner, name, webhook string) {
	l := openLedger()
	defer l.close()
	addr := parseAddr(owner)
	if err := l.engine.RegisterBusiness(addr, name, webhook); err != nil {
		fatal(err)
	}
	fmt.Printf("Registered %q for %s\n", name, owner)
}

func runUpdate(owner, name, webhook, bps string) {
	l := openLedger()
	defer l.close()
	addr := parseAddr(owner)
	rate := parseBps(bps)
	if err := l.engine.UpdateBusiness(addr, name, webhook, rate); err != nil {
		fatal(err)
	}
	fmt.Printf("Updated %s: name=%q fee=%d bps\n", owner, name, rate)
}

func runCreatePayment(business, amount, description, reference, lifetime string) {
	l := openLedger()
	defer l.close()
	addr := parseAddr(business)
	value := parseAmount(amount)
	blocks, err := strconv.ParseUint(lifetime, 10, 64)
	if err != nil {
		fatal(fmt.Errorf("invalid lifetime %q", lifetime))
	}
	id, err := l.engine.CreatePayment(addr, value, description, reference, blocks)
	if err != nil {
		fatal(err)
	}
	fmt.Printf("Created payment %d (reference %q)\n", id, reference)
}

func runPay(payer, id string) {
	l := openLedger()
	defer l.close()
	addr := parseAddr(payer)
	receipt, err := l.engine.PayInvoice(addr, parseID(id))
	if err != nil {
		fatal(err)
	}
	fmt.Printf("Settled payment %d: net=%s fees=%s\n", receipt.PaymentID, receipt.NetAmount, receipt.TotalFees)
}

func runWithdraw(business, amount string) {
	l := openLedger()
	defer l.close()
	addr := parseAddr(business)
	withdrawn, err := l.engine.Withdraw(addr, parseAmount(amount))
	if err != nil {
		fatal(err)
	}
	fmt.Printf("Withdrew %s to %s\n", withdrawn, business)
}

func runRefund(business, id string) {
	l := openLedger()
	defer l.close()
	addr := parseAddr(business)
	refunded, err := l.engine.Refund(addr, parseID(id))
	if err != nil {
		fatal(err)
	}
	fmt.Printf("Refunded %s for payment %s\n", refunded, id)
}

func runSetFee(owner, bps string) {
	l := openLedger()
	defer l.close()
	rate := parseBps(bps)
	if err := l.engine.SetPlatformFee(parseAddr(owner), rate); err != nil {
		fatal(err)
	}
	fmt.Printf("Platform fee set to %d bps\n", rate)
}

func runSetCollector(owner, collector string) {
	l := openLedger()
	defer l.close()
	if err := l.engine.SetFeeCollector(parseAddr(owner), parseAddr(collector)); err != nil {
		fatal(err)
	}
	fmt.Printf("Fee collector set to %s\n", collector)
}

func runSetActive(owner, merchant, active string) {
	l := openLedger()
	defer l.close()
	flag, err := strconv.ParseBool(active)
	if err != nil {
		fatal(fmt.Errorf("invalid active flag %q", active))
	}
	if err := l.engine.SetMerchantActive(parseAddr(owner), parseAddr(merchant), flag); err != nil {
		fatal(err)
	}
	fmt.Printf("Merchant %s active=%t\n", merchant, flag)
}

func runShowBusiness(owner string) {
	l := openLedger()
	defer l.close()
	business, ok, err := l.engine.GetBusiness(parseAddr(owner))
	if err != nil {
		fatal(err)
	}
	if !ok {
		fatal(fmt.Errorf("no business registered for %s", owner))
	}
	fmt.Printf("Owner:           %x\n", business.Owner)
	fmt.Printf("Name:            %s\n", business.Name)
	fmt.Printf("Webhook:         %s\n", business.WebhookURL)
	fmt.Printf("Fee:             %d bps\n", business.FeeBps)
	fmt.Printf("Active:          %t\n", business.Active)
	fmt.Printf("Total processed: %s\n", business.TotalProcessed)
	fmt.Printf("Registered at:   %d\n", business.RegisteredAt)
}

func runShowPayment(id string) {
	l := openLedger()
	defer l.close()
	payment, ok, err := l.engine.GetPayment(parseID(id))
	if err != nil {
		fatal(err)
	}
	if !ok {
		fatal(fmt.Errorf("no payment %s", id))
	}
	valid, err := l.engine.IsPaymentValid(payment.ID)
	if err != nil {
		fatal(err)
	}
	fmt.Printf("ID:          %d\n", payment.ID)
	fmt.Printf("Business:    %x\n", payment.Business)
	fmt.Printf("Amount:      %s\n", payment.Amount)
	fmt.Printf("Description: %s\n", payment.Description)
	fmt.Printf("Reference:   %s\n", payment.Reference)
	fmt.Printf("Status:      %s\n", payment.Status)
	fmt.Printf("Created at:  %d\n", payment.CreatedAt)
	fmt.Printf("Expires at:  %d\n", payment.ExpiresAt)
	fmt.Printf("Settleable:  %t\n", valid)
}

func runShowBalance(business string) {
	l := openLedger()
	defer l.close()
	balance, err := l.engine.BusinessBalance(parseAddr(business))
	if err != nil {
		fatal(err)
	}
	fmt.Printf("Balance: %s\n", balance)
}

func runMint(address, amount string) {
	l := openLedger()
	defer l.close()
	if err := l.bank.Mint(parseAddr(address), parseAmount(amount)); err != nil {
		fatal(err)
	}
	fmt.Printf("Minted %s to %s\n", amount, address)
}

func runShowHeight() {
	l := openLedger()
	defer l.close()
	fmt.Printf("Height: %d\n", readHeight(l.st))
}

func runAdvance(blocks string) {
	l := openLedger()
	defer l.close()
	delta, err := strconv.ParseUint(blocks, 10, 64)
	if err != nil || delta == 0 {
		fatal(fmt.Errorf("invalid block count %q", blocks))
	}
	height := readHeight(l.st) + delta
	if err := l.st.KVPut(heightKey, height); err != nil {
		fatal(err)
	}
	fmt.Printf("Height: %d\n", height)
}

func parseAddr(value string) [20]byte {
	addr, err := config.ParseAddress(value)
	if err != nil {
		fatal(err)
	}
	return addr
}

func parseAmount(value string) *big.Int {
	amount, ok := new(big.Int).SetString(strings.TrimSpace(value), 10)
	if !ok {
		fatal(fmt.Errorf("invalid amount %q", value))
	}
	return amount
}

func parseID(value string) uint64 {
	id, err := strconv.ParseUint(strings.TrimSpace(value), 10, 64)
	if err != nil {
		fatal(fmt.Errorf("invalid payment id %q", value))
	}
	return id
}

func parseBps(value string) uint32 {
	bps, err := strconv.ParseUint(strings.TrimSpace(value), 10, 32)
	if err != nil {
		fatal(fmt.Errorf("invalid fee rate %q", value))
	}
	return uint32(bps)
}
