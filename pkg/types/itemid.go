package types

import (
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"
)

// ItemID is the SHA-256 digest of an item's content.
type ItemID [sha256.Size]byte

// ComputeItemID hashes content into an ItemID.
func ComputeItemID(content []byte) ItemID {
	return ItemID(sha256.Sum256(content))
}

// Hex returns the 64-character hex encoding.
func (id ItemID) Hex() string {
	return hex.EncodeToString(id[:])
}

func (id ItemID) String() string {
	return id.Hex()
}

// ParseItemID parses a 64-character hex string.
func ParseItemID(s string) (ItemID, error) {
	if len(s) != sha256.Size*2 {
		return ItemID{}, fmt.Errorf("invalid item ID length: expected %d, got %d", sha256.Size*2, len(s))
	}

	decoded, err := hex.DecodeString(s)
	if err != nil {
		return ItemID{}, fmt.Errorf("invalid hex string: %w", err)
	}

	var id ItemID
	copy(id[:], decoded)
	return id, nil
}

// MarshalJSON implements json.Marshaler.
func (id ItemID) MarshalJSON() ([]byte, error) {
	return json.Marshal(id.Hex())
}

// UnmarshalJSON implements json.Unmarshaler.
func (id *ItemID) UnmarshalJSON(data []byte) error {
	var s string
	if err := json.Unmarshal(data, &s); err != nil {
		return err
	}

	parsed, err := ParseItemID(s)
	if err != nil {
		return err
	}
	*id = parsed
	return nil
}
