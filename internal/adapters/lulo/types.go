package lulo

import "fmt"

// ErrorResponse is Lulo's error body: {"error": {"message": "..."}}
type ErrorResponse struct {
	Inner struct {
		Message string `json:"message"`
	} `json:"error"`
	StatusCode int `json:"-"`
}

// Error implements the error interface
func (e *ErrorResponse) Error() string {
	return e.Inner.Message
}

// Pool is one pool's rate and capacity figures.
type Pool struct {
	Type                string  `json:"type"` // "regular" or "protected"
	APY                 float64 `json:"apy"`
	MaxWithdrawalAmount float64 `json:"maxWithdrawalAmount"`
	OpenCapacity        float64 `json:"openCapacity"`
	Price               float64 `json:"price"`
}

// PoolsResponse is the pool.getPools payload.
type PoolsResponse struct {
	Regular   Pool `json:"regular"`
	Protected Pool `json:"protected"`
}

// AccountResponse is the account.getAccount payload. Amounts are in
// display units of the mint.
type AccountResponse struct {
	Owner             string  `json:"owner"`
	RegularBalance    float64 `json:"regularBalance"`
	ProtectedBalance  float64 `json:"protectedBalance"`
	TotalUSDValue     float64 `json:"totalUsdValue"`
	PendingWithdrawal float64 `json:"pendingWithdrawalAmount"`
}

// DepositRequest asks for an unsigned deposit transaction. Amounts are
// in base units of the mint.
type DepositRequest struct {
	Owner           string `json:"owner"`
	FeePayer        string `json:"feePayer"`
	MintAddress     string `json:"mintAddress"`
	RegularAmount   uint64 `json:"regularAmount,omitempty"`
	ProtectedAmount uint64 `json:"protectedAmount,omitempty"`
}

// WithdrawRequest asks for an unsigned withdrawal transaction.
// Protected selects the instant-withdrawal endpoint.
type WithdrawRequest struct {
	Owner       string `json:"owner"`
	FeePayer    string `json:"feePayer"`
	MintAddress string `json:"mintAddress"`
	Amount      uint64 `json:"amount"`
	Protected   bool   `json:"-"`
}

// TransactionResponse carries the unsigned transaction Lulo built,
// base64-encoded.
type TransactionResponse struct {
	Transaction string `json:"transaction"`
}

// Validate checks the response carries a transaction.
func (r *TransactionResponse) Validate() error {
	if r.Transaction == "" {
		return fmt.Errorf("response missing transaction")
	}
	return nil
}
