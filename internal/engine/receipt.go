// receipt.go - Receipts: proof bytes plus the public journal.

package engine

import (
	"fmt"

	"github.com/fxamacker/cbor/v2"

	"shielded/internal/protocol"
)

// Receipt is an opaque proof together with the journal of public outputs it
// attests to, tagged with the image that produced it.
type Receipt struct {
	Image   ImageID `cbor:"1,keyasint"`
	Journal []byte  `cbor:"2,keyasint"`
	Proof   []byte  `cbor:"3,keyasint"`
}

// Bytes serializes the receipt envelope.
func (r Receipt) Bytes() ([]byte, error) {
	b, err := cbor.Marshal(r)
	if err != nil {
		return nil, fmt.Errorf("%w: encode: %v", ErrMalformedReceipt, err)
	}
	return b, nil
}

// ReceiptFromBytes decodes a receipt envelope produced by Bytes.
func ReceiptFromBytes(b []byte) (Receipt, error) {
	var r Receipt
	if err := cbor.Unmarshal(b, &r); err != nil {
		return Receipt{}, fmt.Errorf("%w: decode: %v", ErrMalformedReceipt, err)
	}
	return r, nil
}

// Instance decodes the receipt's journal into its public fields.
func (r Receipt) Instance() (protocol.ComplianceInstance, error) {
	inst, err := protocol.ParseJournal(r.Journal)
	if err != nil {
		return protocol.ComplianceInstance{}, fmt.Errorf("%w: %v", ErrMalformedReceipt, err)
	}
	return inst, nil
}
