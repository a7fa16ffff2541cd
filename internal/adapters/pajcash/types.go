package pajcash

// ErrorResponse is PAJ's error body.
type ErrorResponse struct {
	Message    string `json:"message"`
	StatusCode int    `json:"-"`
}

// Error implements the error interface
func (e *ErrorResponse) Error() string {
	return e.Message
}

// SessionResponse carries the bearer token for authenticated calls.
type SessionResponse struct {
	Token string `json:"token"`
}

// Bank is a supported payout bank.
type Bank struct {
	ID   string `json:"id"`
	Name string `json:"name"`
	Code string `json:"code"`
}

// BankAccount is a saved payout destination.
type BankAccount struct {
	ID            string `json:"id"`
	BankID        string `json:"bankId"`
	BankName      string `json:"bankName"`
	AccountNumber string `json:"accountNumber"`
	AccountName   string `json:"accountName"`
}

// AddBankAccountRequest saves a new payout destination.
type AddBankAccountRequest struct {
	BankID        string `json:"bankId"`
	AccountNumber string `json:"accountNumber"`
	AccountName   string `json:"accountName"`
}

// ResolvedAccount is the holder lookup for an account number.
type ResolvedAccount struct {
	AccountName   string `json:"accountName"`
	AccountNumber string `json:"accountNumber"`
	BankID        string `json:"bankId"`
}

// RateResponse quotes a fiat payout for a stablecoin amount.
type RateResponse struct {
	Rate struct {
		Rate struct {
			TargetCurrency float64 `json:"targetCurrency"`
		} `json:"rate"`
		Amounts struct {
			UserAmountFiat float64 `json:"userAmountFiat"`
		} `json:"amounts"`
	} `json:"rate"`
}

// FiatRate returns the unit exchange rate.
func (r *RateResponse) FiatRate() float64 {
	return r.Rate.Rate.TargetCurrency
}

// PayoutAmount returns the fiat amount the user would receive.
func (r *RateResponse) PayoutAmount() float64 {
	return r.Rate.Amounts.UserAmountFiat
}

// Wallet is a wallet linked to an off-ramp account.
type Wallet struct {
	PublicKey string `json:"publicKey"`
	AccountID string `json:"accountId"`
}

// LinkWalletPayload is the message signed to prove key control.
type LinkWalletPayload struct {
	PublicKey string `json:"publicKey"`
	AccountID string `json:"accountId"`
	Timestamp int64  `json:"timestamp"`
}

// LinkWalletRequest links a wallet. Signature is the base58 signature
// of the JSON-encoded payload.
type LinkWalletRequest struct {
	Payload   LinkWalletPayload `json:"payload"`
	Signature string            `json:"signature"`
}
