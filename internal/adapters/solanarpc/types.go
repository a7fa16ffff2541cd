package solanarpc

import (
	"encoding/json"
	"fmt"
)

// rpcRequest is the JSON-RPC 2.0 request envelope.
type rpcRequest struct {
	JSONRPC string      `json:"jsonrpc"`
	ID      int         `json:"id"`
	Method  string      `json:"method"`
	Params  interface{} `json:"params,omitempty"`
}

// rpcResponse is the JSON-RPC 2.0 response envelope.
type rpcResponse struct {
	JSONRPC string          `json:"jsonrpc"`
	ID      int             `json:"id"`
	Result  json.RawMessage `json:"result"`
	Error   *RPCError       `json:"error,omitempty"`
}

// RPCError is the node's structured error
type RPCError struct {
	Code    int    `json:"code"`
	Message string `json:"message"`
}

// Error implements the error interface
func (e *RPCError) Error() string {
	return fmt.Sprintf("rpc error %d: %s", e.Code, e.Message)
}

// TokenAccount is a parsed SPL token account holding.
type TokenAccount struct {
	Address  string
	Mint     string
	Owner    string
	Amount   string // integer base units, kept as string per the wire format
	Decimals int32
}

// tokenAccountsResult mirrors the getTokenAccountsByOwner jsonParsed shape.
type tokenAccountsResult struct {
	Value []struct {
		Pubkey  string `json:"pubkey"`
		Account struct {
			Data struct {
				Parsed struct {
					Info struct {
						Mint        string `json:"mint"`
						Owner       string `json:"owner"`
						TokenAmount struct {
							Amount   string `json:"amount"`
							Decimals int32  `json:"decimals"`
						} `json:"tokenAmount"`
					} `json:"info"`
				} `json:"parsed"`
			} `json:"data"`
		} `json:"account"`
	} `json:"value"`
}

type blockhashResult struct {
	Value struct {
		Blockhash            string `json:"blockhash"`
		LastValidBlockHeight uint64 `json:"lastValidBlockHeight"`
	} `json:"value"`
}

// SignatureStatus is the node's view of one signature.
type SignatureStatus struct {
	Slot               uint64      `json:"slot"`
	Confirmations      *uint64     `json:"confirmations"`
	Err                interface{} `json:"err"`
	ConfirmationStatus string      `json:"confirmationStatus"`
}

// Reached reports whether the status satisfies the given commitment.
// Finalized satisfies confirmed; confirmed does not satisfy finalized.
func (s *SignatureStatus) Reached(commitment string) bool {
	switch commitment {
	case "finalized":
		return s.ConfirmationStatus == "finalized"
	default:
		return s.ConfirmationStatus == "confirmed" || s.ConfirmationStatus == "finalized"
	}
}

type signatureStatusesResult struct {
	Value []*SignatureStatus `json:"value"`
}
