package gateway

import "math/big"

// CalculateFees splits the gross amount into platform fee, business fee and
// net amount. Both fee terms use floor (integer) division by 10_000, so
// fractional fee units are deliberately under-collected. The caller guarantees
// the amount covers the total fees by construction: both rates are bounded
// below 1000 bps, so the combined rate never reaches 20%.
func CalculateFees(amount *big.Int, platformBps, businessBps uint32) FeeBreakdown {
	gross := big.NewInt(0)
	if amount != nil {
		gross = new(big.Int).Set(amount)
	}
	platformFee := feeShare(gross, platformBps)
	businessFee := feeShare(gross, businessBps)
	totalFees := new(big.Int).Add(platformFee, businessFee)
	return FeeBreakdown{
		PlatformFee: platformFee,
		BusinessFee: businessFee,
		TotalFees:   totalFees,
		NetAmount:   new(big.Int).Sub(gross, totalFees),
	}
}

func feeShare(gross *big.Int, bps uint32) *big.Int {
	if gross.Sign() <= 0 || bps == 0 {
		return big.NewInt(0)
	}
	fee := new(big.Int).Mul(gross, new(big.Int).SetUint64(uint64(bps)))
	return fee.Div(fee, big.NewInt(feeDenominator))
}
