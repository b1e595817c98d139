package store

import (
	"fmt"

	"github.com/fxamacker/cbor/v2"

	"github.com/chazu/turmite/pkg/vm"
)

// cborEncMode uses canonical mode so equal outcomes encode to equal bytes.
var cborEncMode cbor.EncMode

func init() {
	em, err := cbor.CanonicalEncOptions().EncMode()
	if err != nil {
		panic(fmt.Sprintf("store: failed to create CBOR enc mode: %v", err))
	}
	cborEncMode = em
}

// Outcome is the archived result of one run.
type Outcome struct {
	Tape         []uint16 `cbor:"1,keyasint,omitempty"`
	Head         int      `cbor:"2,keyasint"`
	FinalAddress uint32   `cbor:"3,keyasint"`
	Moves        int      `cbor:"4,keyasint"`
	Cause        int      `cbor:"5,keyasint"`
	Decimal      string   `cbor:"6,keyasint,omitempty"`
}

// OutcomeOf converts a run result for archiving.
func OutcomeOf(r *vm.Result, decimal string) *Outcome {
	return &Outcome{
		Tape:         r.Tape,
		Head:         r.Head,
		FinalAddress: r.FinalAddress,
		Moves:        r.Moves,
		Cause:        int(r.Cause),
		Decimal:      decimal,
	}
}

// MarshalOutcome serializes an Outcome to CBOR bytes.
func MarshalOutcome(o *Outcome) ([]byte, error) {
	return cborEncMode.Marshal(o)
}

// UnmarshalOutcome deserializes an Outcome from CBOR bytes.
func UnmarshalOutcome(data []byte) (*Outcome, error) {
	var o Outcome
	if err := cbor.Unmarshal(data, &o); err != nil {
		return nil, fmt.Errorf("store: unmarshal outcome: %w", err)
	}
	return &o, nil
}
