/**
 * @description
 * This file defines the transfer domain models: the in-flight transfer intent
 * built up step by step during a conversation, the state and step constants
 * for the confirmation flow, and the result returned by a committed transfer.
 *
 * @notes
 * - A TransferIntent is exclusively owned by one conversation session. It is
 *   destroyed immediately after commit or cancellation and is never replayed.
 * - The OTP code is retained server-side only; no caller-facing DTO in this
 *   package carries it.
 */

package domain

import "time"

// Transfer kinds. A destination is a beneficiary XOR one of the caller's own
// accounts, tagged by kind.
const (
	TransferKindBeneficiary = "beneficiary"
	TransferKindOwnAccount  = "own_account"
)

// Transfer mode identifiers.
const (
	ModeIMPS     = "imps"
	ModeNEFT     = "neft"
	ModeRTGS     = "rtgs"
	ModeInternal = "internal"
)

// Mode-specific amount bounds, enforced before an OTP is ever issued.
const (
	IMPSMaxAmount = 500000 // inclusive upper bound
	RTGSMinAmount = 200000 // inclusive lower bound
)

// States of the transfer confirmation flow. The order is strict: a flow never
// skips forward, and the terminal states are absorbing.
type TransferState string

const (
	StateCollectKind        TransferState = "COLLECT_KIND"
	StateCollectSource      TransferState = "COLLECT_SOURCE"
	StateCollectDestination TransferState = "COLLECT_DESTINATION"
	StateCollectAmount      TransferState = "COLLECT_AMOUNT"
	StateCollectMode        TransferState = "COLLECT_MODE"
	StateAwaitConfirmation  TransferState = "AWAIT_CONFIRMATION"
	StateOTPIssued          TransferState = "OTP_ISSUED"
	StateCommitted          TransferState = "COMMITTED"
	StateCancelled          TransferState = "CANCELLED"
	StateFailed             TransferState = "FAILED"
)

// Terminal reports whether the state admits no further transitions.
func (s TransferState) Terminal() bool {
	return s == StateCommitted || s == StateCancelled || s == StateFailed
}

// TransferIntent is the transient aggregate collected across a conversation.
// Fields fill in as the flow asks clarifying questions; the intent becomes
// commit-ready once source, destination, amount and mode are set and the
// caller has explicitly confirmed.
type TransferIntent struct {
	Handle        string
	UserID        string
	State         TransferState
	Kind          string // 'beneficiary' or 'own_account'
	SourceID      string
	BeneficiaryID string // set iff Kind == beneficiary
	DestinationID string // set iff Kind == own_account
	Amount        int64  // positive rupees
	Mode          string
	Confirmed     bool
	OTP           string // server-side only
	CreatedAt     time.Time
	UpdatedAt     time.Time
}

// DestinationRef returns whichever destination identifier the intent carries.
func (in *TransferIntent) DestinationRef() string {
	if in.Kind == TransferKindOwnAccount {
		return in.DestinationID
	}
	return in.BeneficiaryID
}

// TransferPrompt is the structured output of one flow step: which state the
// flow is now in, what it needs next, and the selectable options if the step
// presents a choice. Natural language is rendered only at the presentation
// boundary; this struct is what crosses it.
type TransferPrompt struct {
	Handle        string           `json:"handle"`
	State         TransferState    `json:"state"`
	RequiredInput string           `json:"required_input,omitempty"`
	Message       string           `json:"message"`
	Options       []PromptOption   `json:"options,omitempty"`
	Summary       *TransferSummary `json:"summary,omitempty"`
}

// PromptOption is one selectable choice presented to the caller.
type PromptOption struct {
	ID   string `json:"id"`
	Text string `json:"text"`
}

// TransferSummary restates the intent for the confirmation step. Mode is
// empty for internal transfers, matching the spoken confirmation which omits
// mode text in that case.
type TransferSummary struct {
	Amount      int64  `json:"amount"`
	Source      string `json:"source"`
	Destination string `json:"destination"`
	Mode        string `json:"mode,omitempty"`
}

// TransferReceipt is returned once, at commit time.
type TransferReceipt struct {
	TransactionRef string `json:"transaction_ref"`
	Amount         int64  `json:"amount"`
	Source         string `json:"source"`
	Destination    string `json:"destination"`
	Mode           string `json:"mode"`
	NewBalance     int64  `json:"new_balance"`
}
