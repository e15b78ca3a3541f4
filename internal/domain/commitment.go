package domain

import "encoding/hex"

// Commitment ties an answer to the evidence texts behind it. Leaves are
// SHA-256 digests of canonicalized paragraph texts in citation order; Root
// is the Merkle root handed to the external notarization publisher.
type Commitment struct {
	Leaves [][]byte
	Root   []byte
}

// RootHex returns the root digest as a lowercase hex string.
func (c Commitment) RootHex() string {
	return hex.EncodeToString(c.Root)
}

// LeafHexes returns every leaf digest as a lowercase hex string.
func (c Commitment) LeafHexes() []string {
	out := make([]string, len(c.Leaves))
	for i, leaf := range c.Leaves {
		out[i] = hex.EncodeToString(leaf)
	}
	return out
}
