// Package fingerprint identifies sky map configurations. Two maps built from
// configurations with the same fingerprint are the same map.
package fingerprint

import (
	"github.com/aukilabs/go-tooling/pkg/errors"
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/common/hexutil"
	"github.com/ethereum/go-ethereum/crypto"
	"github.com/google/uuid"
	"github.com/segmentio/encoding/json"
)

const (
	ErrTypeMismatch = "fingerprint_mismatch"
	ErrTypeInvalid  = "fingerprint_invalid"
)

// Fingerprint is the Keccak-256 digest of the JSON encoding of a value.
type Fingerprint [32]byte

// Of returns the fingerprint of v. Struct fields are encoded in declaration
// order and map keys are sorted, which makes the encoding canonical.
func Of(v any) (Fingerprint, error) {
	b, err := json.Marshal(v)
	if err != nil {
		return Fingerprint{}, errors.New("encoding fingerprinted value failed").
			WithType(ErrTypeInvalid).
			Wrap(err)
	}
	return Fingerprint(crypto.Keccak256Hash(b)), nil
}

// Parse parses a 0x prefixed hex fingerprint.
func Parse(s string) (Fingerprint, error) {
	b, err := hexutil.Decode(s)
	if err != nil {
		return Fingerprint{}, errors.New("decoding fingerprint failed").
			WithType(ErrTypeInvalid).
			WithTag("fingerprint", s).
			Wrap(err)
	}
	if len(b) != len(Fingerprint{}) {
		return Fingerprint{}, errors.New("fingerprint has a bad length").
			WithType(ErrTypeInvalid).
			WithTag("fingerprint", s).
			WithTag("length", len(b))
	}
	return Fingerprint(b), nil
}

func (f Fingerprint) String() string {
	return common.Hash(f).Hex()
}

// UUID returns a name based UUID derived from the fingerprint.
func (f Fingerprint) UUID() uuid.UUID {
	return uuid.NewSHA1(uuid.NameSpaceOID, f[:])
}

func (f Fingerprint) MarshalText() ([]byte, error) {
	return []byte(f.String()), nil
}

// Verify checks that the fingerprint of v is the expected one.
func Verify(v any, expected string) error {
	return instrumentVerification(func() error {
		want, err := Parse(expected)
		if err != nil {
			return err
		}

		got, err := Of(v)
		if err != nil {
			return err
		}

		if got != want {
			return errors.New("fingerprint mismatch").
				WithType(ErrTypeMismatch).
				WithTag("expected", want.String()).
				WithTag("actual", got.String())
		}
		return nil
	})
}
