package gbpay

// Wire payloads of the GBPAY JSON API.

type authRequest struct {
	APIKey    string `json:"api_key"`
	APISecret string `json:"api_secret"`
	Scope     string `json:"scope,omitempty"`
}

type authResponse struct {
	AccessToken string `json:"access_token"`
	ExpiresIn   int64  `json:"expires_in"` // seconds
}

type quoteRequest struct {
	Reference    string `json:"reference"`
	Amount       int64  `json:"amount"`
	Currency     string `json:"currency"`
	Kind         string `json:"destination_type"`
	AccountRef   string `json:"account_number"`
	HolderName   string `json:"account_name,omitempty"`
	BankCode     string `json:"bank_code,omitempty"`
	OperatorCode string `json:"operator_code,omitempty"`
	Country      string `json:"country"`
	Narration    string `json:"narration,omitempty"`
}

type quoteResponse struct {
	QuoteID string `json:"quote_id"`
	Status  string `json:"status"`
}

type executeResponse struct {
	TransactionReference string `json:"transaction_reference"`
	Status               string `json:"status"`
}

type statusResponse struct {
	TransactionReference string `json:"transaction_reference"`
	Status               string `json:"status"`
	FailureReason        string `json:"failure_reason,omitempty"`
}

type lookupRequest struct {
	Kind         string `json:"destination_type"`
	AccountRef   string `json:"account_number"`
	BankCode     string `json:"bank_code,omitempty"`
	OperatorCode string `json:"operator_code,omitempty"`
	Country      string `json:"country"`
}

type lookupResponse struct {
	HolderName string `json:"account_name"`
	Valid      bool   `json:"valid"`
}

type catalogEntry struct {
	Code string `json:"code"`
	Name string `json:"name"`
}

type errorResponse struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}
