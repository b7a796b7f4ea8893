package domain

// VerifyResult captures the outcome of the verification stage.
type VerifyResult struct {
	OK      bool   `json:"ok"`
	Mobile  string `json:"mobile"`
	PANTail string `json:"pan_tail"`
}

// UnderwriteDecision is produced once by the underwriting stage and is
// immutable afterwards. Offer economics are set only when Approve is true;
// Reason only when it is false.
type UnderwriteDecision struct {
	Approve bool    `json:"approve"`
	Score   int     `json:"score"`
	APR     float64 `json:"apr,omitempty"`
	EMI     int64   `json:"emi,omitempty"`
	Amount  int64   `json:"amount,omitempty"`
	Tenure  int     `json:"tenure,omitempty"`
	Reason  string  `json:"reason,omitempty"`
}
