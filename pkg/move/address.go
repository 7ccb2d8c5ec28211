package move

import "encoding/hex"

// Address is the 32-byte identity of an account, object, or package.
type Address [32]byte

// ZeroAddress is the all-zero address, used as a placeholder package id
// for the mutator's synthetic, non-Move housekeeping calls (pre/post
// hooks, process_balance, process_key_store): Validate exempts it from
// ABI resolution.
var ZeroAddress = Address{}

func (a Address) String() string {
	return "0x" + hex.EncodeToString(a[:])
}

// AddressFromHex parses a (optionally 0x-prefixed) hex string into an
// Address. Shorter inputs are left-padded with zero bytes, matching
// on-chain address normalization.
func AddressFromHex(s string) (Address, error) {
	if len(s) >= 2 && s[0] == '0' && (s[1] == 'x' || s[1] == 'X') {
		s = s[2:]
	}
	if len(s)%2 != 0 {
		s = "0" + s
	}
	raw, err := hex.DecodeString(s)
	if err != nil {
		return Address{}, newError(ErrUnknown, "invalid address hex", err)
	}
	if len(raw) > 32 {
		return Address{}, newError(ErrUnknown, "address too long", nil)
	}
	var a Address
	copy(a[32-len(raw):], raw)
	return a, nil
}
