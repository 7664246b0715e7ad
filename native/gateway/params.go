package gateway

import "fmt"

// Params is the process-wide platform configuration. The owner is fixed at
// initialization; the fee rate and collector are owner-mutable afterwards.
type Params struct {
	Owner          [20]byte
	FeeCollector   [20]byte
	PlatformFeeBps uint32
}

// InitConfig seeds the platform parameters exactly once at deployment.
type InitConfig struct {
	Owner          [20]byte
	FeeCollector   [20]byte
	PlatformFeeBps uint32
}

type paramsState interface {
	KVGet(key []byte, out interface{}) (bool, error)
	KVPut(key []byte, value interface{}) error
}

// Initialize writes the platform parameters. It fails if the gateway has been
// initialized before; there is no implicit reset.
func Initialize(st paramsState, cfg InitConfig) error {
	ok, err := st.KVGet(paramsKey(), nil)
	if err != nil {
		return err
	}
	if ok {
		return ErrAlreadyInitialized
	}
	if isZeroAddress(cfg.Owner) {
		return fmt.Errorf("%w: owner required", ErrInvalidInput)
	}
	if isZeroAddress(cfg.FeeCollector) {
		return fmt.Errorf("%w: fee collector must not be the null identity", ErrInvalidInput)
	}
	bps := cfg.PlatformFeeBps
	if bps == 0 {
		bps = defaultPlatformFeeBps
	}
	if bps > maxFeeBps {
		return fmt.Errorf("%w: platform fee %d exceeds %d bps", ErrInvalidInput, bps, maxFeeBps)
	}
	return st.KVPut(paramsKey(), Params{
		Owner:          cfg.Owner,
		FeeCollector:   cfg.FeeCollector,
		PlatformFeeBps: bps,
	})
}

func loadParams(st paramsState) (*Params, error) {
	params := new(Params)
	ok, err := st.KVGet(paramsKey(), params)
	if err != nil {
		return nil, err
	}
	if !ok {
		return nil, ErrNotInitialized
	}
	return params, nil
}
