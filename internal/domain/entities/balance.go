package entities

import (
	"errors"
	"time"

	"github.com/shopspring/decimal"
)

var (
	ErrNegativeAmount = errors.New("amount must be positive")
	ErrAmountOverflow = errors.New("amount exceeds representable range")
)

// Asset identifies a supported stablecoin.
type Asset string

const (
	AssetUSDC Asset = "USDC"
	AssetUSDT Asset = "USDT"
)

// StablecoinDecimals is the on-chain precision of USDC and USDT mints.
const StablecoinDecimals = 6

// IsValid checks if the asset is supported
func (a Asset) IsValid() bool {
	return a == AssetUSDC || a == AssetUSDT
}

// BalanceSource identifies where a balance figure came from.
type BalanceSource string

const (
	BalanceSourceChain BalanceSource = "chain"
	BalanceSourceLulo  BalanceSource = "lulo"
)

// SourceStatus describes the health of one balance source in a snapshot.
type SourceStatus string

const (
	SourceStatusOK    SourceStatus = "ok"
	SourceStatusStale SourceStatus = "stale"
	SourceStatusError SourceStatus = "error"
)

// AssetBalance is one asset's holding, kept in integer base units to
// avoid float drift. Display is derived, never stored independently.
type AssetBalance struct {
	Asset     Asset  `json:"asset"`
	Mint      string `json:"mint"`
	BaseUnits uint64 `json:"base_units"`
	Decimals  int32  `json:"decimals"`
	Display   string `json:"display"`
}

// NewAssetBalance builds a balance with the display string derived
// from the base units.
func NewAssetBalance(asset Asset, mint string, baseUnits uint64, decimals int32) AssetBalance {
	return AssetBalance{
		Asset:     asset,
		Mint:      mint,
		BaseUnits: baseUnits,
		Decimals:  decimals,
		Display:   FormatBaseUnits(baseUnits, decimals),
	}
}

// FormatBaseUnits renders integer base units as a two-decimal string,
// e.g. 1234500 with 6 decimals renders "1.23".
func FormatBaseUnits(baseUnits uint64, decimals int32) string {
	return decimal.New(int64(baseUnits), -decimals).StringFixed(2)
}

// ParseDisplayAmount converts a user-entered decimal amount into base
// units, truncating precision beyond the mint's decimals.
func ParseDisplayAmount(amount string, decimals int32) (uint64, error) {
	d, err := decimal.NewFromString(amount)
	if err != nil {
		return 0, err
	}
	if d.IsNegative() {
		return 0, ErrNegativeAmount
	}
	units := d.Shift(decimals).Truncate(0)
	if !units.BigInt().IsUint64() {
		return 0, ErrAmountOverflow
	}
	return units.BigInt().Uint64(), nil
}

// PoolBalance is a holding inside a yield pool.
type PoolBalance struct {
	Pool      PoolKind `json:"pool"`
	Asset     Asset    `json:"asset"`
	BaseUnits uint64   `json:"base_units"`
	Display   string   `json:"display"`
}

// BalanceSnapshot is one consistent view of everything an owner holds.
// Sources records per-source health so a failing source degrades that
// slice of the snapshot without blanking the rest.
type BalanceSnapshot struct {
	Owner   string                         `json:"owner"`
	Assets  []AssetBalance                 `json:"assets"`
	Pools   []PoolBalance                  `json:"pools"`
	Sources map[BalanceSource]SourceStatus `json:"sources"`
	TakenAt time.Time                      `json:"taken_at"`
}

// TotalDisplay sums wallet and pool holdings into one display figure.
func (s *BalanceSnapshot) TotalDisplay() string {
	total := decimal.Zero
	for _, a := range s.Assets {
		total = total.Add(decimal.New(int64(a.BaseUnits), -a.Decimals))
	}
	for _, p := range s.Pools {
		total = total.Add(decimal.New(int64(p.BaseUnits), -StablecoinDecimals))
	}
	return total.StringFixed(2)
}

// EmptySnapshot returns a snapshot with zero holdings for an owner,
// used when the owner has no token accounts yet.
func EmptySnapshot(owner string, mints map[Asset]string) *BalanceSnapshot {
	assets := make([]AssetBalance, 0, len(mints))
	for asset, mint := range mints {
		assets = append(assets, NewAssetBalance(asset, mint, 0, StablecoinDecimals))
	}
	return &BalanceSnapshot{
		Owner:   owner,
		Assets:  assets,
		Pools:   []PoolBalance{},
		Sources: map[BalanceSource]SourceStatus{BalanceSourceChain: SourceStatusOK},
		TakenAt: time.Now().UTC(),
	}
}
