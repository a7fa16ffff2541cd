package entities

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestFormatBaseUnits(t *testing.T) {
	assert.Equal(t, "0.00", FormatBaseUnits(0, 6))
	assert.Equal(t, "1.23", FormatBaseUnits(1234500, 6))
	assert.Equal(t, "0.99", FormatBaseUnits(999999, 6))
	assert.Equal(t, "1250.50", FormatBaseUnits(1250500000, 6))
}

func TestParseDisplayAmount(t *testing.T) {
	units, err := ParseDisplayAmount("12.50", 6)
	require.NoError(t, err)
	assert.Equal(t, uint64(12500000), units)

	units, err = ParseDisplayAmount("0.000001", 6)
	require.NoError(t, err)
	assert.Equal(t, uint64(1), units)

	// precision beyond the mint's decimals truncates
	units, err = ParseDisplayAmount("1.0000019", 6)
	require.NoError(t, err)
	assert.Equal(t, uint64(1000001), units)

	_, err = ParseDisplayAmount("-5", 6)
	assert.ErrorIs(t, err, ErrNegativeAmount)

	_, err = ParseDisplayAmount("not a number", 6)
	assert.Error(t, err)
}

func TestParseDisplayAmountRoundTrip(t *testing.T) {
	for _, display := range []string{"0.00", "0.01", "1.23", "1250.50", "999999.99"} {
		units, err := ParseDisplayAmount(display, 6)
		require.NoError(t, err)
		assert.Equal(t, display, FormatBaseUnits(units, 6))
	}
}

func TestSnapshotTotalDisplay(t *testing.T) {
	snap := &BalanceSnapshot{
		Assets: []AssetBalance{
			NewAssetBalance(AssetUSDC, "mint-a", 10500000, 6),
			NewAssetBalance(AssetUSDT, "mint-b", 2000000, 6),
		},
		Pools: []PoolBalance{
			{Pool: PoolKindRegular, Asset: AssetUSDC, BaseUnits: 7500000},
		},
	}
	assert.Equal(t, "20.00", snap.TotalDisplay())
}

func TestEmptySnapshot(t *testing.T) {
	snap := EmptySnapshot("owner-address", map[Asset]string{AssetUSDC: "mint-a"})
	require.Len(t, snap.Assets, 1)
	assert.Equal(t, "0.00", snap.Assets[0].Display)
	assert.Equal(t, "0.00", snap.TotalDisplay())
}

func TestTransferRequestValidate(t *testing.T) {
	valid := TransferRequest{Owner: "a", Recipient: "b", MintAddress: "m", Amount: 1}
	assert.NoError(t, valid.Validate())

	self := valid
	self.Recipient = "a"
	assert.ErrorIs(t, self.Validate(), ErrSelfTransfer)

	zero := valid
	zero.Amount = 0
	assert.ErrorIs(t, zero.Validate(), ErrNegativeAmount)
}

func TestPoolWithdrawRequestValidate(t *testing.T) {
	valid := PoolWithdrawRequest{Owner: "a", MintAddress: "m", Kind: PoolKindProtected, Amount: 1}
	assert.NoError(t, valid.Validate())

	perena := valid
	perena.Kind = PoolKindPerena
	assert.ErrorIs(t, perena.Validate(), ErrPoolNotWithdrawable)
}

func TestPoolDepositRequestValidate(t *testing.T) {
	valid := PoolDepositRequest{Owner: "a", MintAddress: "m", RegularAmount: 5}
	assert.NoError(t, valid.Validate())

	empty := PoolDepositRequest{Owner: "a", MintAddress: "m"}
	assert.Error(t, empty.Validate())
}
