package hdwallet

// Sizes in bytes of the components of a transaction spending p2wpkh inputs to
// explicit (unblinded) p2wpkh outputs plus the fee output.
const (
	// version + segwit flag + locktime
	txOverheadSize = 9
	// hash + index + sequence + empty scriptsig
	inputSize = 40 + 1
	// len + witness[sig,pubkey] + no issuance proof + no token proof + no pegin
	inputWitnessSize = 1 + 107 + 1 + 1 + 1
	// explicit asset + explicit value + empty nonce + len + p2wpkh script
	outputSize = 33 + 9 + 1 + 1 + 22
	// explicit asset + explicit value + empty nonce + empty script
	feeOutputSize = 33 + 9 + 1 + 1
	// empty range proof + empty surjection proof
	outputWitnessSize = 1 + 1
)

// estimateVirtualSize returns the virtual size of a transaction with the
// given number of inputs and outputs, the fee output excluded.
func estimateVirtualSize(numInputs, numOutputs int) int {
	baseSize := txOverheadSize +
		varIntSerializeSize(uint64(numInputs)) +
		varIntSerializeSize(uint64(numOutputs+1)) +
		numInputs*inputSize +
		numOutputs*outputSize + feeOutputSize
	witnessSize := numInputs*inputWitnessSize + (numOutputs+1)*outputWitnessSize

	weight := baseSize*3 + baseSize + witnessSize
	return (weight + 3) / 4
}

// estimateFee returns the fee for the given transaction shape at feeRate,
// expressed in satoshi per 1000 virtual bytes.
func estimateFee(numInputs, numOutputs int, feeRate uint64) uint64 {
	vsize := uint64(estimateVirtualSize(numInputs, numOutputs))
	return (vsize*feeRate + 999) / 1000
}

func varIntSerializeSize(val uint64) int {
	switch {
	case val < 0xfd:
		return 1
	case val <= 0xffff:
		return 3
	case val <= 0xffffffff:
		return 5
	default:
		return 9
	}
}
