package domain

// KFS is the Key Fact Statement: the finalized summary of sanctioned loan
// terms. What is persisted is exactly what was shown; nothing is recomputed
// from the rendered document afterwards. JSON keys match the statement users
// see, so the stored artifact reads the same as the on-screen summary.
type KFS struct {
	Name      string `json:"Name"`
	PANLast4  string `json:"PAN last 4"`
	Amount    int64  `json:"Amount"`
	Tenure    int    `json:"Tenure"`
	EMI       int64  `json:"EMI"`
	APR       string `json:"APR"`
	MandateID string `json:"MandateID"`
}

// SanctionResult is returned by the sanction stage after the KFS has been
// persisted and the letter rendered.
type SanctionResult struct {
	OK          bool   `json:"ok"`
	DocumentRef string `json:"document_ref"`
	KFS         KFS    `json:"kfs"`
	KFSRef      string `json:"kfs_ref"`
}
