package jupiter

import "fmt"

// ExecuteStatusSuccess is the status Jupiter returns for a landed swap.
const ExecuteStatusSuccess = "Success"

// ErrorResponse is Jupiter's HTTP error body.
type ErrorResponse struct {
	Message    string `json:"error"`
	StatusCode int    `json:"-"`
}

// Error implements the error interface
func (e *ErrorResponse) Error() string {
	return e.Message
}

// ExecuteError is a swap that was submitted but did not land.
type ExecuteError struct {
	Status  string
	Code    int
	Message string
}

// Error implements the error interface
func (e *ExecuteError) Error() string {
	if e.Message != "" {
		return e.Message
	}
	return fmt.Sprintf("swap execution failed with status %s", e.Status)
}

// OrderRequest describes the swap to quote. Amount is in base units of
// the input mint.
type OrderRequest struct {
	InputMint  string
	OutputMint string
	Amount     uint64
	Taker      string
}

// OrderResponse carries the quote and the unsigned transaction.
type OrderResponse struct {
	Transaction string `json:"transaction"`
	RequestID   string `json:"requestId"`
	InAmount    string `json:"inAmount"`
	OutAmount   string `json:"outAmount"`
	PriceImpact string `json:"priceImpactPct"`
}

// ExecuteRequest submits the signed order transaction.
type ExecuteRequest struct {
	SignedTransaction string `json:"signedTransaction"`
	RequestID         string `json:"requestId"`
}

// ExecuteResponse is the execution outcome.
type ExecuteResponse struct {
	Status    string `json:"status"`
	Signature string `json:"signature"`
	Code      int    `json:"code"`
	Error     string `json:"error"`
}
