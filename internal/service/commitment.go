package service

import (
	"crypto/sha256"
	"strings"

	"github.com/nyayatech/nyaya/internal/domain"
)

// BuildCommitment hashes the evidence texts behind an answer into a
// binary Merkle tree and returns the leaves with the root. Texts are
// canonicalized first so the commitment is invariant to incidental
// formatting differences. An empty input yields the defined all-zero
// root, never an error.
func BuildCommitment(texts []string) domain.Commitment {
	leaves := make([][]byte, 0, len(texts))
	for _, text := range texts {
		sum := sha256.Sum256([]byte(canonicalizeText(text)))
		leaves = append(leaves, sum[:])
	}

	root := make([]byte, sha256.Size)
	if len(leaves) > 0 {
		copy(root, merkleRoot(leaves))
	}

	return domain.Commitment{Leaves: leaves, Root: root}
}

// canonicalizeText collapses all whitespace runs to single spaces, trims,
// and lowercases.
func canonicalizeText(text string) string {
	return strings.ToLower(strings.Join(strings.Fields(text), " "))
}

// merkleRoot pairs adjacent nodes level by level, duplicating the last
// node when a level has odd cardinality, until one root remains.
func merkleRoot(leaves [][]byte) []byte {
	level := make([][]byte, len(leaves))
	copy(level, leaves)

	for len(level) > 1 {
		if len(level)%2 == 1 {
			level = append(level, level[len(level)-1])
		}
		next := make([][]byte, 0, len(level)/2)
		for i := 0; i < len(level); i += 2 {
			pair := make([]byte, 0, 2*sha256.Size)
			pair = append(pair, level[i]...)
			pair = append(pair, level[i+1]...)
			sum := sha256.Sum256(pair)
			next = append(next, sum[:])
		}
		level = next
	}
	return level[0]
}
