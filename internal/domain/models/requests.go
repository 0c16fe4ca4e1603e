package models

// Requests for the decision HTTP endpoints.

type AnalyzeRequest struct {
	Symbol      string   `json:"symbol" validate:"required,max=16"`
	CompanyName string   `json:"companyName" validate:"max=128"`
	Context     string   `json:"context" validate:"max=4000"`
	Units       []string `json:"units" validate:"omitempty,dive,required"`
}

type StockRef struct {
	Symbol      string `json:"symbol" validate:"required,max=16"`
	CompanyName string `json:"companyName" validate:"max=128"`
}

type BatchAnalyzeRequest struct {
	Stocks  []StockRef `json:"stocks" validate:"required,min=1,max=50,dive"`
	Context string     `json:"context" validate:"max=4000"`
	Units   []string   `json:"units" validate:"omitempty,dive,required"`
}

type DecideRequest struct {
	Symbol string `json:"symbol" validate:"required,max=16"`
}

// PushEnvelope is the inbound push-subscription body.
type PushEnvelope struct {
	Message struct {
		Data       string            `json:"data"` // base64 JSON
		MessageID  string            `json:"messageId"`
		Attributes map[string]string `json:"attributes"`
	} `json:"message"`
	Subscription string `json:"subscription"`
}

// PriceUpdate is the decoded payload of a price-update event.
type PriceUpdate struct {
	Symbol string  `json:"symbol"`
	Price  float64 `json:"price,omitempty"`
}
