// Package orchestrator drives money-moving operations through a fixed
// pipeline: quote, sign, submit, confirm. Every operation kind shares
// the same engine; only the plan that builds and lands the transaction
// differs. The engine enforces one attempt in flight per target and
// keeps balance snapshots honest after anything lands on chain.
package orchestrator

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/gagliardetto/solana-go"
	"github.com/google/uuid"
	"github.com/prometheus/client_golang/prometheus"

	"github.com/nimrid/Corre/internal/adapters/solanarpc"
	"github.com/nimrid/Corre/internal/domain/entities"
	domainerrors "github.com/nimrid/Corre/internal/domain/errors"
	"github.com/nimrid/Corre/internal/domain/services/wallet"
	"github.com/nimrid/Corre/pkg/logger"
	"github.com/nimrid/Corre/pkg/metrics"
)

// ChainSubmitter is the RPC surface the engine needs.
type ChainSubmitter interface {
	GetLatestBlockhash(ctx context.Context) (string, error)
	SendRawTransaction(ctx context.Context, txBase64 string) (string, error)
	WaitForConfirmation(ctx context.Context, signature string) error
}

// BalanceInvalidator refreshes an owner's snapshot after an operation
// changes on-chain state.
type BalanceInvalidator interface {
	InvalidateAndRefresh(ctx context.Context, owner string) (*entities.BalanceSnapshot, error)
}

// plan is one operation's concrete steps. quote produces the unsigned
// transaction; submit lands the signed one and returns its signature;
// confirm blocks until the signature's outcome is known.
type plan struct {
	quote   func(ctx context.Context) (*solana.Transaction, error)
	submit  func(ctx context.Context, signed *solana.Transaction) (string, error)
	confirm func(ctx context.Context, signature string) error
}

// Orchestrator runs operation attempts and tracks their lifecycle.
type Orchestrator struct {
	rpc      ChainSubmitter
	wallet   wallet.Wallet
	balances BalanceInvalidator
	logger   *logger.Logger

	mu       sync.Mutex
	active   map[string]uuid.UUID // (operation,target) -> current attempt
	attempts map[uuid.UUID]*entities.Attempt
}

// New creates an orchestrator bound to one wallet.
func New(rpc ChainSubmitter, w wallet.Wallet, balances BalanceInvalidator, logger *logger.Logger) *Orchestrator {
	return &Orchestrator{
		rpc:      rpc,
		wallet:   w,
		balances: balances,
		logger:   logger,
		active:   make(map[string]uuid.UUID),
		attempts: make(map[uuid.UUID]*entities.Attempt),
	}
}

// Attempt returns a tracked attempt by ID.
func (o *Orchestrator) Attempt(id uuid.UUID) (*entities.Attempt, error) {
	o.mu.Lock()
	defer o.mu.Unlock()
	attempt, ok := o.attempts[id]
	if !ok {
		return nil, domainerrors.NotFoundError("operation")
	}
	cp := *attempt
	return &cp, nil
}

// Cancel withdraws the in-flight claim for a target. The running
// attempt keeps executing, but its remaining transitions are dropped
// and a new attempt for the target may start immediately.
func (o *Orchestrator) Cancel(op entities.Operation, target string) {
	o.mu.Lock()
	defer o.mu.Unlock()
	key := inflightKey(op, target)
	if id, ok := o.active[key]; ok {
		delete(o.active, key)
		if attempt, ok := o.attempts[id]; ok && !attempt.State.IsTerminal() {
			attempt.State = entities.AttemptStateFailed
			attempt.FailureKind = string(domainerrors.KindConflict)
			attempt.Error = "superseded by a newer attempt"
			attempt.UpdatedAt = time.Now().UTC()
		}
	}
}

// run drives one attempt through the pipeline. It returns the final
// attempt alongside any failure so callers can report both.
func (o *Orchestrator) run(ctx context.Context, op entities.Operation, owner, target string, p *plan) (*entities.Attempt, error) {
	key := inflightKey(op, target)

	o.mu.Lock()
	if _, busy := o.active[key]; busy {
		o.mu.Unlock()
		metrics.OrchestrationsTotal.WithLabelValues(string(op), "rejected").Inc()
		return nil, domainerrors.ConflictError(string(op), target)
	}
	attempt := entities.NewAttempt(op, target)
	o.active[key] = attempt.ID
	o.attempts[attempt.ID] = attempt
	o.mu.Unlock()

	timer := prometheus.NewTimer(metrics.OrchestrationDuration.WithLabelValues(string(op)))
	defer timer.ObserveDuration()

	result, err := o.execute(ctx, attempt, key, p)

	o.mu.Lock()
	if o.active[key] == attempt.ID {
		delete(o.active, key)
	}
	o.mu.Unlock()

	outcome := "confirmed"
	if err != nil {
		outcome = string(domainerrors.KindOf(err))
	}
	metrics.OrchestrationsTotal.WithLabelValues(string(op), outcome).Inc()

	return result, err
}

func (o *Orchestrator) execute(ctx context.Context, attempt *entities.Attempt, key string, p *plan) (*entities.Attempt, error) {
	// Quote. A quote failure surfaces the upstream's message as-is and
	// is never retried automatically; the user decides what changes.
	if !o.transition(attempt, key, entities.AttemptStateQuoteRequested) {
		return o.abandoned(attempt)
	}
	tx, err := p.quote(ctx)
	if err != nil {
		return o.fail(attempt, key, err), err
	}
	if !o.transition(attempt, key, entities.AttemptStateQuoteReceived) {
		return o.abandoned(attempt)
	}

	// Sign. A cancelled attempt must never reach the wallet.
	if !o.transition(attempt, key, entities.AttemptStateSigning) {
		return o.abandoned(attempt)
	}
	signed, err := o.wallet.SignTransaction(ctx, tx)
	if err != nil {
		err = domainerrors.SigningError(err)
		return o.fail(attempt, key, err), err
	}

	// Submit. Last ownership check before anything can land on chain;
	// signing may have raced with a Cancel.
	if !o.owns(key, attempt.ID) {
		return o.abandoned(attempt)
	}
	signature, err := p.submit(ctx, signed)
	if err != nil {
		err = o.classifySubmitError(err)
		return o.fail(attempt, key, err), err
	}
	o.setSignature(attempt, signature)
	o.transition(attempt, key, entities.AttemptStateSubmitted)

	// Confirm. The transaction is on chain now, so a late Cancel no
	// longer aborts the pipeline; only the state writes are dropped.
	o.transition(attempt, key, entities.AttemptStateConfirming)
	if err := p.confirm(ctx, signature); err != nil {
		err = o.classifyConfirmError(signature, err)
		o.refreshAfterChain(ctx, attempt, err)
		return o.fail(attempt, key, err), err
	}

	o.transition(attempt, key, entities.AttemptStateConfirmed)
	o.logger.Info("Operation confirmed",
		"operation", attempt.Operation, "target", attempt.Target, "signature", signature)

	if _, err := o.balances.InvalidateAndRefresh(ctx, o.wallet.Address().String()); err != nil {
		o.logger.Warn("Post-confirmation balance refresh failed", "error", err)
	}
	return attempt, nil
}

// classifySubmitError separates upstream rejections from everything else.
func (o *Orchestrator) classifySubmitError(err error) error {
	var domainErr *domainerrors.DomainError
	if errors.As(err, &domainErr) {
		return err
	}
	var rpcErr *solanarpc.RPCError
	if errors.As(err, &rpcErr) {
		return domainerrors.UpstreamError("rpc", rpcErr.Message, err)
	}
	return domainerrors.UpstreamError("rpc", "", err)
}

// classifyConfirmError separates a transaction that executed and
// failed from one whose outcome is simply unknown.
func (o *Orchestrator) classifyConfirmError(signature string, err error) error {
	if errors.Is(err, solanarpc.ErrTxFailed) {
		return domainerrors.OnChainError(signature, err)
	}
	if errors.Is(err, solanarpc.ErrConfirmationTimeout) {
		return domainerrors.ConfirmationTimeoutError(signature)
	}
	return domainerrors.InternalError("confirmation failed", err)
}

// refreshAfterChain refetches balances after an on-chain failure. The
// transaction may still have moved funds, so cached figures cannot be
// trusted. A timeout skips the refresh; nothing is known to have
// changed yet.
func (o *Orchestrator) refreshAfterChain(ctx context.Context, attempt *entities.Attempt, err error) {
	if !domainerrors.IsOnChain(err) {
		return
	}
	if _, rerr := o.balances.InvalidateAndRefresh(ctx, o.wallet.Address().String()); rerr != nil {
		o.logger.Warn("Post-failure balance refresh failed", "error", rerr)
	}
}

// transition advances the attempt and reports whether it still holds
// the in-flight claim. A false return means the attempt was superseded
// and the pipeline must stop before the next side effect.
func (o *Orchestrator) transition(attempt *entities.Attempt, key string, state entities.AttemptState) bool {
	o.mu.Lock()
	defer o.mu.Unlock()
	if o.active[key] != attempt.ID {
		return false
	}
	attempt.State = state
	attempt.UpdatedAt = time.Now().UTC()
	return true
}

// owns reports whether the attempt still holds the in-flight claim.
func (o *Orchestrator) owns(key string, id uuid.UUID) bool {
	o.mu.Lock()
	defer o.mu.Unlock()
	return o.active[key] == id
}

func (o *Orchestrator) setSignature(attempt *entities.Attempt, signature string) {
	o.mu.Lock()
	defer o.mu.Unlock()
	attempt.Signature = signature
	attempt.UpdatedAt = time.Now().UTC()
}

// abandoned is the terminal result of a pipeline that lost its claim.
// Cancel already marked the attempt; execute only reports the outcome.
func (o *Orchestrator) abandoned(attempt *entities.Attempt) (*entities.Attempt, error) {
	return attempt, domainerrors.New(domainerrors.KindConflict, "superseded by a newer attempt")
}

func (o *Orchestrator) fail(attempt *entities.Attempt, key string, err error) *entities.Attempt {
	o.mu.Lock()
	defer o.mu.Unlock()
	if o.active[key] != attempt.ID {
		return attempt
	}
	attempt.State = entities.AttemptStateFailed
	attempt.FailureKind = string(domainerrors.KindOf(err))
	attempt.Error = domainerrors.UserMessage(err)
	attempt.UpdatedAt = time.Now().UTC()
	return attempt
}

func inflightKey(op entities.Operation, target string) string {
	return string(op) + ":" + target
}
