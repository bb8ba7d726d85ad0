package solana

import "fmt"

// Serialized transaction layout: a compact-u16 count of signatures, the
// 64-byte signatures themselves, then the message. The aggregator builds
// the transaction with the wallet as fee payer, so our signature goes in
// the first slot.

const signatureSize = 64

// SignTransaction signs the message portion of a serialized transaction with
// the wallet key and writes the signature into the fee-payer slot. The input
// is not modified; a signed copy is returned.
func (w *Wallet) SignTransaction(rawTx []byte) ([]byte, error) {
	numSigs, sigStart, err := decodeCompactU16(rawTx)
	if err != nil {
		return nil, fmt.Errorf("solana: parse transaction: %w", err)
	}
	if numSigs == 0 {
		return nil, fmt.Errorf("solana: transaction has no signature slots")
	}

	msgStart := sigStart + numSigs*signatureSize
	if msgStart >= len(rawTx) {
		return nil, fmt.Errorf("solana: transaction truncated: %d signature slots in %d bytes", numSigs, len(rawTx))
	}

	signed := make([]byte, len(rawTx))
	copy(signed, rawTx)
	copy(signed[sigStart:sigStart+signatureSize], w.Sign(rawTx[msgStart:]))
	return signed, nil
}

// decodeCompactU16 reads a compact-u16 (shortvec) length prefix: up to three
// bytes, seven bits each, least significant group first.
func decodeCompactU16(data []byte) (value, bytesRead int, err error) {
	for i := 0; i < 3; i++ {
		if i >= len(data) {
			return 0, 0, fmt.Errorf("compact-u16 truncated")
		}
		b := data[i]
		value |= int(b&0x7f) << (7 * i)
		if b&0x80 == 0 {
			return value, i + 1, nil
		}
	}
	return 0, 0, fmt.Errorf("compact-u16 too long")
}
