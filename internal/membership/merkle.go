package membership

import (
	"bytes"
	"encoding/hex"
	"fmt"
	"strings"

	"golang.org/x/crypto/sha3"

	"rentfun-backend/internal/domain"
)

// Hash is a keccak-256 digest.
type Hash [32]byte

func (h Hash) Hex() string {
	return "0x" + hex.EncodeToString(h[:])
}

func ParseHash(s string) (Hash, error) {
	var h Hash
	raw, err := hex.DecodeString(strings.TrimPrefix(strings.ToLower(s), "0x"))
	if err != nil || len(raw) != len(h) {
		return h, fmt.Errorf("%w: invalid hash %q", domain.ErrInvalidArgument, s)
	}
	copy(h[:], raw)
	return h, nil
}

func keccak(parts ...[]byte) Hash {
	var h Hash
	d := sha3.NewLegacyKeccak256()
	for _, p := range parts {
		d.Write(p)
	}
	d.Sum(h[:0])
	return h
}

// Leaf is the whitelist leaf of an address: keccak256 of its 20 bytes.
func Leaf(addr domain.Address) Hash {
	return keccak(addr.Bytes())
}

// hashPair hashes two nodes in sorted order so proofs need no direction bits.
func hashPair(a, b Hash) Hash {
	if bytes.Compare(a[:], b[:]) > 0 {
		a, b = b, a
	}
	return keccak(a[:], b[:])
}

// Tree is a sorted-pair merkle tree over a whitelist. An odd node at the end
// of a level is carried up unchanged.
type Tree struct {
	levels [][]Hash
	index  map[domain.Address]int
}

func NewTree(whitelist []domain.Address) (*Tree, error) {
	if len(whitelist) == 0 {
		return nil, fmt.Errorf("%w: empty whitelist", domain.ErrInvalidArgument)
	}
	leaves := make([]Hash, len(whitelist))
	index := make(map[domain.Address]int, len(whitelist))
	for i, addr := range whitelist {
		leaves[i] = Leaf(addr)
		index[addr] = i
	}

	levels := [][]Hash{leaves}
	for level := leaves; len(level) > 1; {
		next := make([]Hash, 0, (len(level)+1)/2)
		for i := 0; i < len(level); i += 2 {
			if i+1 == len(level) {
				next = append(next, level[i])
				continue
			}
			next = append(next, hashPair(level[i], level[i+1]))
		}
		levels = append(levels, next)
		level = next
	}
	return &Tree{levels: levels, index: index}, nil
}

func (t *Tree) Root() Hash {
	return t.levels[len(t.levels)-1][0]
}

// Proof returns the sibling path of addr, or false if it is not listed.
func (t *Tree) Proof(addr domain.Address) ([]Hash, bool) {
	i, ok := t.index[addr]
	if !ok {
		return nil, false
	}
	var proof []Hash
	for _, level := range t.levels[:len(t.levels)-1] {
		sibling := i ^ 1
		if sibling < len(level) {
			proof = append(proof, level[sibling])
		}
		i /= 2
	}
	return proof, true
}

// Verify checks that leaf is included under root.
func Verify(root, leaf Hash, proof []Hash) bool {
	node := leaf
	for _, sibling := range proof {
		node = hashPair(node, sibling)
	}
	return node == root
}
