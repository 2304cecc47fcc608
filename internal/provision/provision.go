// Package provision computes the native-currency collateral an offer ladder
// must lock to cover the protocol's gas-refund guarantee. All arithmetic is
// big.Int in wei; these values gate real fund transfers and must stay exact.
package provision

import "math/big"

// MaxGasreq is the protocol's 24-bit ceiling on an offer's gas requirement.
const MaxGasreq = 16_777_215

// PerOffer returns gasPrice * (gasreq + offerGasbase), the collateral locked
// by a single offer.
func PerOffer(gasPrice, offerGasbase, gasreq *big.Int) *big.Int {
	sum := new(big.Int).Add(gasreq, offerGasbase)
	return sum.Mul(sum, gasPrice)
}

// Total returns perOffer * nOffers.
func Total(perOffer *big.Int, nOffers int64) *big.Int {
	return new(big.Int).Mul(perOffer, big.NewInt(nOffers))
}

// MinGives returns density * (gasreq + offerGasbase), the smallest per-level
// amount the protocol accepts. An offer below this is rejected on-chain, so
// callers validate against it before submitting.
func MinGives(density, offerGasbase, gasreq *big.Int) *big.Int {
	sum := new(big.Int).Add(gasreq, offerGasbase)
	return sum.Mul(sum, density)
}

// Missing returns max(0, needed - (locked + free)), the extra collateral that
// must ride along with the populate transaction.
func Missing(needed, locked, free *big.Int) *big.Int {
	have := new(big.Int).Add(locked, free)
	if needed.Cmp(have) <= 0 {
		return new(big.Int)
	}
	return have.Sub(needed, have)
}

// ValidGasreq reports whether gasreq fits the protocol's 24-bit field.
func ValidGasreq(gasreq uint64) bool {
	return gasreq > 0 && gasreq <= MaxGasreq
}
