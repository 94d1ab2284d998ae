package domain

import (
	"encoding/binary"
	"encoding/hex"
	"fmt"
	"strings"

	"golang.org/x/crypto/sha3"
)

// Address is a 20-byte account or contract address in canonical lower-case
// 0x-prefixed hex form.
type Address string

// ZeroAddress doubles as the payment-token sentinel for native currency.
const ZeroAddress Address = "0x0000000000000000000000000000000000000000"

// ParseAddress validates s and returns its canonical form. Mixed-case input
// is accepted without checksum verification.
func ParseAddress(s string) (Address, error) {
	s = strings.TrimSpace(s)
	if len(s) != 42 || !strings.HasPrefix(s, "0x") && !strings.HasPrefix(s, "0X") {
		return "", fmt.Errorf("%w: invalid address %q", ErrInvalidArgument, s)
	}
	if _, err := hex.DecodeString(s[2:]); err != nil {
		return "", fmt.Errorf("%w: invalid address %q", ErrInvalidArgument, s)
	}
	return Address("0x" + strings.ToLower(s[2:])), nil
}

// MustAddress is ParseAddress for constants and tests.
func MustAddress(s string) Address {
	a, err := ParseAddress(s)
	if err != nil {
		panic(err)
	}
	return a
}

func (a Address) IsZero() bool {
	return a == "" || a == ZeroAddress
}

func (a Address) Bytes() []byte {
	b, _ := hex.DecodeString(strings.TrimPrefix(string(a), "0x"))
	return b
}

func (a Address) String() string {
	return string(a)
}

// Checksum renders the EIP-55 mixed-case form.
func (a Address) Checksum() string {
	lower := strings.TrimPrefix(string(a), "0x")
	h := sha3.NewLegacyKeccak256()
	_, _ = h.Write([]byte(lower))
	digest := h.Sum(nil)

	out := make([]byte, len(lower))
	for i := 0; i < len(lower); i++ {
		c := lower[i]
		nibble := digest[i/2]
		if i%2 == 0 {
			nibble >>= 4
		} else {
			nibble &= 0x0f
		}
		if c >= 'a' && c <= 'f' && nibble >= 8 {
			c -= 'a' - 'A'
		}
		out[i] = c
	}
	return "0x" + string(out)
}

// DeriveVaultAddress computes the custody address of an owner's vault, in the
// spirit of CREATE2: keccak256(manager ++ owner ++ slot)[12:].
func DeriveVaultAddress(manager, owner Address, slot int) Address {
	var slotBytes [8]byte
	binary.BigEndian.PutUint64(slotBytes[:], uint64(slot))

	h := sha3.NewLegacyKeccak256()
	_, _ = h.Write(manager.Bytes())
	_, _ = h.Write(owner.Bytes())
	_, _ = h.Write(slotBytes[:])
	digest := h.Sum(nil)
	return Address("0x" + hex.EncodeToString(digest[12:]))
}
