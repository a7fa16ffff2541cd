package entities

import "time"

// PoolKind identifies a yield pool flavor.
type PoolKind string

const (
	// PoolKindRegular is the boosted-rate pool with a withdrawal cooldown.
	PoolKindRegular PoolKind = "regular"

	// PoolKindProtected is the lower-rate pool with instant withdrawal.
	PoolKindProtected PoolKind = "protected"

	// PoolKindPerena is the Perena seed pool, surfaced read-only
	// alongside the lending pools.
	PoolKindPerena PoolKind = "perena"
)

// IsValid checks if the pool kind is supported
func (k PoolKind) IsValid() bool {
	switch k {
	case PoolKindRegular, PoolKindProtected, PoolKindPerena:
		return true
	}
	return false
}

// SupportsWithdraw reports whether a withdrawal can be generated for
// the pool through the lending provider.
func (k PoolKind) SupportsWithdraw() bool {
	return k == PoolKindRegular || k == PoolKindProtected
}

// PoolDescriptor is the rate and capacity data shown for one pool.
type PoolDescriptor struct {
	Kind                PoolKind `json:"kind"`
	MintAddress         string   `json:"mint_address"`
	APY                 float64  `json:"apy"`
	MaxWithdrawalAmount uint64   `json:"max_withdrawal_amount"`
	OpenCapacity        uint64   `json:"open_capacity"`
	Price               float64  `json:"price"`
}

// PoolData is the cached pool dataset with its fetch time, stored as
// one record so readers never see rates from one fetch paired with a
// timestamp from another.
type PoolData struct {
	Pools     []PoolDescriptor `json:"pools"`
	FetchedAt time.Time        `json:"fetched_at"`
}

// PoolDepositRequest describes a deposit into one or both lending pools.
// Amounts are in base units of the mint.
type PoolDepositRequest struct {
	Owner           string `json:"owner"`
	MintAddress     string `json:"mint_address"`
	RegularAmount   uint64 `json:"regular_amount"`
	ProtectedAmount uint64 `json:"protected_amount"`
}

// Validate checks the deposit request before any network call.
func (r *PoolDepositRequest) Validate() error {
	if r.Owner == "" {
		return ErrMissingOwner
	}
	if r.MintAddress == "" {
		return ErrMissingMint
	}
	if r.RegularAmount == 0 && r.ProtectedAmount == 0 {
		return ErrNegativeAmount
	}
	return nil
}

// PoolWithdrawRequest describes a withdrawal from one lending pool.
type PoolWithdrawRequest struct {
	Owner       string   `json:"owner"`
	MintAddress string   `json:"mint_address"`
	Kind        PoolKind `json:"kind"`
	Amount      uint64   `json:"amount"`
}

// Validate checks the withdrawal request before any network call.
func (r *PoolWithdrawRequest) Validate() error {
	if r.Owner == "" {
		return ErrMissingOwner
	}
	if r.MintAddress == "" {
		return ErrMissingMint
	}
	if !r.Kind.SupportsWithdraw() {
		return ErrPoolNotWithdrawable
	}
	if r.Amount == 0 {
		return ErrNegativeAmount
	}
	return nil
}
