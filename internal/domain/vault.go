package domain

import "time"

// Vault is a custody container owned by exactly one address. ID is an index
// into the manager's arena; Slot counts the owner's vaults from zero.
type Vault struct {
	ID        int64     `json:"id"`
	Owner     Address   `json:"owner"`
	Address   Address   `json:"address"`
	Slot      int       `json:"slot"`
	CreatedOn time.Time `json:"created_on"`
}
