package entities

import (
	"errors"
	"time"

	"github.com/google/uuid"
)

var (
	ErrMissingOwner        = errors.New("owner address is required")
	ErrMissingMint         = errors.New("mint address is required")
	ErrMissingRecipient    = errors.New("recipient address is required")
	ErrPoolNotWithdrawable = errors.New("pool does not support withdrawals")
	ErrSelfTransfer        = errors.New("cannot transfer to own address")
)

// Operation identifies a money-moving operation kind.
type Operation string

const (
	OperationPoolDeposit    Operation = "pool_deposit"
	OperationPoolWithdraw   Operation = "pool_withdraw"
	OperationWalletTransfer Operation = "wallet_transfer"
	OperationBankTransfer   Operation = "bank_transfer"
	OperationSwap           Operation = "swap"
)

// IsValid checks if the operation kind is supported
func (o Operation) IsValid() bool {
	switch o {
	case OperationPoolDeposit, OperationPoolWithdraw,
		OperationWalletTransfer, OperationBankTransfer, OperationSwap:
		return true
	}
	return false
}

// AttemptState is a stage in an operation attempt's lifecycle.
type AttemptState string

const (
	AttemptStateIdle           AttemptState = "idle"
	AttemptStateQuoteRequested AttemptState = "quote_requested"
	AttemptStateQuoteReceived  AttemptState = "quote_received"
	AttemptStateSigning        AttemptState = "signing"
	AttemptStateSubmitted      AttemptState = "submitted"
	AttemptStateConfirming     AttemptState = "confirming"
	AttemptStateConfirmed      AttemptState = "confirmed"
	AttemptStateFailed         AttemptState = "failed"
)

// IsTerminal reports whether the attempt has reached a final state.
func (s AttemptState) IsTerminal() bool {
	return s == AttemptStateConfirmed || s == AttemptStateFailed
}

// Attempt tracks one pass through the transaction pipeline. A new
// attempt gets a fresh ID so results from a superseded attempt can be
// recognized and dropped.
type Attempt struct {
	ID          uuid.UUID    `json:"id"`
	Operation   Operation    `json:"operation"`
	Target      string       `json:"target"`
	State       AttemptState `json:"state"`
	Signature   string       `json:"signature,omitempty"`
	FailureKind string       `json:"failure_kind,omitempty"`
	Error       string       `json:"error,omitempty"`
	StartedAt   time.Time    `json:"started_at"`
	UpdatedAt   time.Time    `json:"updated_at"`
}

// NewAttempt starts an attempt in the idle state.
func NewAttempt(op Operation, target string) *Attempt {
	now := time.Now().UTC()
	return &Attempt{
		ID:        uuid.New(),
		Operation: op,
		Target:    target,
		State:     AttemptStateIdle,
		StartedAt: now,
		UpdatedAt: now,
	}
}

// TransferRequest describes a direct stablecoin transfer to another
// wallet. Amount is in base units of the mint.
type TransferRequest struct {
	Owner       string `json:"owner"`
	Recipient   string `json:"recipient"`
	MintAddress string `json:"mint_address"`
	Amount      uint64 `json:"amount"`
}

// Validate checks the transfer request before any network call.
func (r *TransferRequest) Validate() error {
	if r.Owner == "" {
		return ErrMissingOwner
	}
	if r.Recipient == "" {
		return ErrMissingRecipient
	}
	if r.Recipient == r.Owner {
		return ErrSelfTransfer
	}
	if r.MintAddress == "" {
		return ErrMissingMint
	}
	if r.Amount == 0 {
		return ErrNegativeAmount
	}
	return nil
}

// BankTransferRequest describes an off-ramp transfer: stablecoins are
// sent to the provider's pool address and paid out in fiat to a
// verified bank account.
type BankTransferRequest struct {
	Owner         string `json:"owner"`
	MintAddress   string `json:"mint_address"`
	Amount        uint64 `json:"amount"`
	BankAccountID string `json:"bank_account_id"`
}

// Validate checks the bank transfer request before any network call.
func (r *BankTransferRequest) Validate() error {
	if r.Owner == "" {
		return ErrMissingOwner
	}
	if r.MintAddress == "" {
		return ErrMissingMint
	}
	if r.Amount == 0 {
		return ErrNegativeAmount
	}
	if r.BankAccountID == "" {
		return errors.New("bank account is required")
	}
	return nil
}

// SwapRequest describes a token swap routed through the aggregator.
type SwapRequest struct {
	Owner      string `json:"owner"`
	InputMint  string `json:"input_mint"`
	OutputMint string `json:"output_mint"`
	Amount     uint64 `json:"amount"`
}

// Validate checks the swap request before any network call.
func (r *SwapRequest) Validate() error {
	if r.Owner == "" {
		return ErrMissingOwner
	}
	if r.InputMint == "" || r.OutputMint == "" {
		return ErrMissingMint
	}
	if r.InputMint == r.OutputMint {
		return errors.New("input and output mints must differ")
	}
	if r.Amount == 0 {
		return ErrNegativeAmount
	}
	return nil
}
