package membership

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"rentfun-backend/internal/domain"
	"rentfun-backend/internal/logger"
)

var (
	ErrNotWhitelisted = errors.New("membership: address is not whitelisted")
	ErrAlreadyMinted  = errors.New("membership: already minted")
)

// Mintable is the issuing side of the membership collection.
type Mintable interface {
	Address() domain.Address
	Mint(to domain.Address, tokenID domain.TokenID) error
}

// Minter issues membership tokens to whitelisted addresses, one per address,
// with sequential token ids starting at 1.
type Minter struct {
	mu         sync.Mutex
	root       Hash
	collection Mintable
	minted     map[domain.Address]domain.TokenID
	next       domain.TokenID
}

func NewMinter(root Hash, collection Mintable) *Minter {
	return &Minter{
		root:       root,
		collection: collection,
		minted:     make(map[domain.Address]domain.TokenID),
		next:       1,
	}
}

func (m *Minter) Root() Hash { return m.root }

func (m *Minter) Mint(_ context.Context, to domain.Address, proof []Hash) (domain.TokenID, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if !Verify(m.root, Leaf(to), proof) {
		return 0, fmt.Errorf("%w: %s", ErrNotWhitelisted, to)
	}
	if id, ok := m.minted[to]; ok {
		return 0, fmt.Errorf("%w: %s holds #%d", ErrAlreadyMinted, to, id)
	}

	id := m.next
	logger.ChainCall(m.collection.Address().String(), "Mint", "to", to, "token_id", id)
	err := m.collection.Mint(to, id)
	logger.ChainResult(m.collection.Address().String(), "Mint", err, "to", to, "token_id", id)
	if err != nil {
		return 0, fmt.Errorf("mint membership #%d: %w", id, err)
	}
	m.minted[to] = id
	m.next++
	return id, nil
}
