package orchestrator

import (
	"context"
	"encoding/base64"
	"errors"
	"fmt"

	bin "github.com/gagliardetto/binary"
	"github.com/gagliardetto/solana-go"
	associatedtokenaccount "github.com/gagliardetto/solana-go/programs/associated-token-account"
	"github.com/gagliardetto/solana-go/programs/token"

	"github.com/nimrid/Corre/internal/adapters/jupiter"
	"github.com/nimrid/Corre/internal/adapters/lulo"
	"github.com/nimrid/Corre/internal/domain/entities"
	domainerrors "github.com/nimrid/Corre/internal/domain/errors"
)

// LendingProvider builds unsigned pool transactions.
type LendingProvider interface {
	GenerateDepositTransaction(ctx context.Context, req *lulo.DepositRequest) (*lulo.TransactionResponse, error)
	GenerateWithdrawTransaction(ctx context.Context, req *lulo.WithdrawRequest) (*lulo.TransactionResponse, error)
}

// SwapProvider quotes and executes swaps.
type SwapProvider interface {
	GetOrder(ctx context.Context, req *jupiter.OrderRequest) (*jupiter.OrderResponse, error)
	Execute(ctx context.Context, req *jupiter.ExecuteRequest) (*jupiter.ExecuteResponse, error)
}

// PoolAddressProvider supplies the off-ramp deposit wallet.
type PoolAddressProvider interface {
	PoolAddress(ctx context.Context) (string, error)
}

// AccountChecker reports whether a wallet already holds a token
// account for a mint.
type AccountChecker interface {
	HasTokenAccount(ctx context.Context, owner, mint string) (bool, error)
}

// Sources wires the engine to the concrete providers behind each
// operation kind.
type Sources struct {
	engine   *Orchestrator
	lending  LendingProvider
	swaps    SwapProvider
	offramp  PoolAddressProvider
	accounts AccountChecker
}

// NewSources binds providers to an engine.
func NewSources(engine *Orchestrator, lending LendingProvider, swaps SwapProvider, offramp PoolAddressProvider, accounts AccountChecker) *Sources {
	return &Sources{
		engine:   engine,
		lending:  lending,
		swaps:    swaps,
		offramp:  offramp,
		accounts: accounts,
	}
}

// Deposit moves wallet funds into the lending pools.
func (s *Sources) Deposit(ctx context.Context, req *entities.PoolDepositRequest) (*entities.Attempt, error) {
	if err := req.Validate(); err != nil {
		return nil, domainerrors.ValidationError("deposit", err.Error())
	}

	owner := s.engine.wallet.Address().String()
	p := &plan{
		quote: func(ctx context.Context) (*solana.Transaction, error) {
			resp, err := s.lending.GenerateDepositTransaction(ctx, &lulo.DepositRequest{
				Owner:           owner,
				FeePayer:        owner,
				MintAddress:     req.MintAddress,
				RegularAmount:   req.RegularAmount,
				ProtectedAmount: req.ProtectedAmount,
			})
			if err != nil {
				return nil, wrapLuloError(err)
			}
			if err := resp.Validate(); err != nil {
				return nil, domainerrors.UpstreamError("lulo", "", err)
			}
			return decodeTransaction(resp.Transaction)
		},
		submit:  s.submitRaw,
		confirm: s.engine.rpc.WaitForConfirmation,
	}
	return s.engine.run(ctx, entities.OperationPoolDeposit, owner, req.MintAddress, p)
}

// Withdraw moves pool funds back to the wallet. Regular withdrawals
// only start the provider's cooldown; protected ones land immediately.
func (s *Sources) Withdraw(ctx context.Context, req *entities.PoolWithdrawRequest) (*entities.Attempt, error) {
	if err := req.Validate(); err != nil {
		return nil, domainerrors.ValidationError("withdraw", err.Error())
	}

	owner := s.engine.wallet.Address().String()
	p := &plan{
		quote: func(ctx context.Context) (*solana.Transaction, error) {
			resp, err := s.lending.GenerateWithdrawTransaction(ctx, &lulo.WithdrawRequest{
				Owner:       owner,
				FeePayer:    owner,
				MintAddress: req.MintAddress,
				Amount:      req.Amount,
				Protected:   req.Kind == entities.PoolKindProtected,
			})
			if err != nil {
				return nil, wrapLuloError(err)
			}
			if err := resp.Validate(); err != nil {
				return nil, domainerrors.UpstreamError("lulo", "", err)
			}
			return decodeTransaction(resp.Transaction)
		},
		submit:  s.submitRaw,
		confirm: s.engine.rpc.WaitForConfirmation,
	}
	target := fmt.Sprintf("%s:%s", req.Kind, req.MintAddress)
	return s.engine.run(ctx, entities.OperationPoolWithdraw, owner, target, p)
}

// Transfer sends stablecoins directly to another wallet. The
// transaction is built locally, so the only upstreams involved are the
// chain itself.
func (s *Sources) Transfer(ctx context.Context, req *entities.TransferRequest) (*entities.Attempt, error) {
	if err := req.Validate(); err != nil {
		return nil, domainerrors.ValidationError("transfer", err.Error())
	}

	owner := s.engine.wallet.Address().String()
	p := &plan{
		quote: func(ctx context.Context) (*solana.Transaction, error) {
			return s.buildTokenTransfer(ctx, req.Recipient, req.MintAddress, req.Amount)
		},
		submit:  s.submitRaw,
		confirm: s.engine.rpc.WaitForConfirmation,
	}
	return s.engine.run(ctx, entities.OperationWalletTransfer, owner, req.Recipient, p)
}

// BankTransfer sends stablecoins to the off-ramp pool wallet; the
// provider pays out fiat to the verified bank account.
func (s *Sources) BankTransfer(ctx context.Context, req *entities.BankTransferRequest) (*entities.Attempt, error) {
	if err := req.Validate(); err != nil {
		return nil, domainerrors.ValidationError("bank_transfer", err.Error())
	}

	owner := s.engine.wallet.Address().String()
	p := &plan{
		quote: func(ctx context.Context) (*solana.Transaction, error) {
			poolAddress, err := s.offramp.PoolAddress(ctx)
			if err != nil {
				return nil, err
			}
			return s.buildTokenTransfer(ctx, poolAddress, req.MintAddress, req.Amount)
		},
		submit:  s.submitRaw,
		confirm: s.engine.rpc.WaitForConfirmation,
	}
	return s.engine.run(ctx, entities.OperationBankTransfer, owner, req.BankAccountID, p)
}

// Swap exchanges one token for another through the aggregator. The
// aggregator routes and lands the transaction, but its execute
// response only reports acceptance; the attempt still waits for the
// signature to reach the configured commitment.
func (s *Sources) Swap(ctx context.Context, req *entities.SwapRequest) (*entities.Attempt, error) {
	if err := req.Validate(); err != nil {
		return nil, domainerrors.ValidationError("swap", err.Error())
	}

	owner := s.engine.wallet.Address().String()
	var requestID string
	p := &plan{
		quote: func(ctx context.Context) (*solana.Transaction, error) {
			order, err := s.swaps.GetOrder(ctx, &jupiter.OrderRequest{
				InputMint:  req.InputMint,
				OutputMint: req.OutputMint,
				Amount:     req.Amount,
				Taker:      owner,
			})
			if err != nil {
				return nil, wrapJupiterError(err)
			}
			requestID = order.RequestID
			return decodeTransaction(order.Transaction)
		},
		submit: func(ctx context.Context, signed *solana.Transaction) (string, error) {
			raw, err := signed.MarshalBinary()
			if err != nil {
				return "", domainerrors.InternalError("failed to serialize transaction", err)
			}
			resp, err := s.swaps.Execute(ctx, &jupiter.ExecuteRequest{
				SignedTransaction: base64.StdEncoding.EncodeToString(raw),
				RequestID:         requestID,
			})
			if err != nil {
				return "", wrapJupiterError(err)
			}
			return resp.Signature, nil
		},
		confirm: s.engine.rpc.WaitForConfirmation,
	}
	target := fmt.Sprintf("%s:%s", req.InputMint, req.OutputMint)
	return s.engine.run(ctx, entities.OperationSwap, owner, target, p)
}

// buildTokenTransfer assembles an SPL token transfer between
// associated token accounts, creating the recipient's account when it
// does not exist yet.
func (s *Sources) buildTokenTransfer(ctx context.Context, recipient, mintAddress string, amount uint64) (*solana.Transaction, error) {
	owner := s.engine.wallet.Address()

	recipientKey, err := solana.PublicKeyFromBase58(recipient)
	if err != nil {
		return nil, domainerrors.ValidationError("recipient", "invalid recipient address")
	}
	mint, err := solana.PublicKeyFromBase58(mintAddress)
	if err != nil {
		return nil, domainerrors.ValidationError("mint", "invalid mint address")
	}

	sourceATA, _, err := solana.FindAssociatedTokenAddress(owner, mint)
	if err != nil {
		return nil, domainerrors.InternalError("failed to derive source account", err)
	}
	destATA, _, err := solana.FindAssociatedTokenAddress(recipientKey, mint)
	if err != nil {
		return nil, domainerrors.InternalError("failed to derive destination account", err)
	}

	instructions := make([]solana.Instruction, 0, 2)

	hasAccount, err := s.accounts.HasTokenAccount(ctx, recipient, mintAddress)
	if err != nil {
		return nil, domainerrors.UpstreamError("rpc", "", err)
	}
	if !hasAccount {
		instructions = append(instructions,
			associatedtokenaccount.NewCreateInstruction(owner, recipientKey, mint).Build())
	}

	instructions = append(instructions,
		token.NewTransferInstruction(amount, sourceATA, destATA, owner, nil).Build())

	blockhash, err := s.engine.rpc.GetLatestBlockhash(ctx)
	if err != nil {
		return nil, domainerrors.UpstreamError("rpc", "", err)
	}
	hash, err := solana.HashFromBase58(blockhash)
	if err != nil {
		return nil, domainerrors.InternalError("invalid blockhash", err)
	}

	tx, err := solana.NewTransaction(instructions, hash, solana.TransactionPayer(owner))
	if err != nil {
		return nil, domainerrors.InternalError("failed to build transaction", err)
	}
	return tx, nil
}

// submitRaw serializes and sends a signed transaction to the chain.
func (s *Sources) submitRaw(ctx context.Context, signed *solana.Transaction) (string, error) {
	raw, err := signed.MarshalBinary()
	if err != nil {
		return "", domainerrors.InternalError("failed to serialize transaction", err)
	}
	return s.engine.rpc.SendRawTransaction(ctx, base64.StdEncoding.EncodeToString(raw))
}

// decodeTransaction parses a provider-built transaction from base64.
func decodeTransaction(txBase64 string) (*solana.Transaction, error) {
	raw, err := base64.StdEncoding.DecodeString(txBase64)
	if err != nil {
		return nil, domainerrors.UpstreamError("provider", "provider returned an unreadable transaction", err)
	}
	tx, err := solana.TransactionFromDecoder(bin.NewBinDecoder(raw))
	if err != nil {
		return nil, domainerrors.UpstreamError("provider", "provider returned an unreadable transaction", err)
	}
	return tx, nil
}

func wrapLuloError(err error) error {
	var apiErr *lulo.ErrorResponse
	if errors.As(err, &apiErr) {
		return domainerrors.UpstreamError("lulo", apiErr.Error(), err)
	}
	return domainerrors.UpstreamError("lulo", "", err)
}

func wrapJupiterError(err error) error {
	var apiErr *jupiter.ErrorResponse
	if errors.As(err, &apiErr) {
		return domainerrors.UpstreamError("jupiter", apiErr.Message, err)
	}
	var execErr *jupiter.ExecuteError
	if errors.As(err, &execErr) {
		return domainerrors.OnChainError("", execErr)
	}
	return domainerrors.UpstreamError("jupiter", "", err)
}
