package domain

import (
	"math/big"
	"time"
)

// ManifestRecord is the persisted form of a published consolation manifest.
// Body holds the exact wire-format JSON bytes; the same bytes are archived to
// object storage. A published manifest is immutable: the on-chain root is
// authoritative and must equal the locally recomputed root bit-for-bit.
type ManifestRecord struct {
	SeasonID    string
	MerkleRoot  string
	LeafCount   int
	TotalAmount *big.Int
	Body        []byte
	BuiltAt     time.Time
}
