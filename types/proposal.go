package types

import (
	"time"

	"github.com/shopspring/decimal"
)

type ProposalStatus string

const (
	ProposalDiscussion ProposalStatus = "DISCUSSION"
	ProposalVoting     ProposalStatus = "VOTING"
	ProposalVoted      ProposalStatus = "VOTED"
	ProposalExpired    ProposalStatus = "EXPIRED"
)

// CanTransition reports whether the forward-only status machine allows s -> next.
func (s ProposalStatus) CanTransition(next ProposalStatus) bool {
	switch s {
	case ProposalDiscussion:
		return next == ProposalVoting || next == ProposalExpired
	case ProposalVoting:
		return next == ProposalVoted
	}
	return false
}

type Proposal struct {
	ID         uint64 `json:"id" bson:"id"`
	ProposedBy string `json:"proposedBy" bson:"proposedBy"`
	Title      string `json:"title" bson:"title"`

	StartAt       time.Time `json:"startAt" bson:"startAt"`
	EndAt         time.Time `json:"endAt" bson:"endAt"`
	CreatedAt     time.Time `json:"createdAt" bson:"createdAt"`
	LastUpdatedAt time.Time `json:"lastUpdatedAt" bson:"lastUpdatedAt"`

	VoteForIssuer     string `json:"voteForIssuer" bson:"voteForIssuer"`
	VoteAgainstIssuer string `json:"voteAgainstIssuer" bson:"voteAgainstIssuer"`
	VoteAbstainIssuer string `json:"voteAbstainIssuer,omitempty" bson:"voteAbstainIssuer,omitempty"`

	Status ProposalStatus `json:"proposalStatus" bson:"proposalStatus"`

	VoteForResult     decimal.Decimal `json:"voteForResult" bson:"voteForResult"`
	VoteAgainstResult decimal.Decimal `json:"voteAgainstResult" bson:"voteAgainstResult"`
	VoteAbstainResult decimal.Decimal `json:"voteAbstainResult" bson:"voteAbstainResult"`

	AquaCirculatingSupply float64   `json:"aquaCirculatingSupply" bson:"aquaCirculatingSupply"`
	IceCirculatingSupply  float64   `json:"iceCirculatingSupply" bson:"iceCirculatingSupply"`
	ResultsUpdatedAt      time.Time `json:"resultsUpdatedAt" bson:"resultsUpdatedAt"`
}

// ChoiceIssuer pairs a vote choice with the ledger account that receives its balances.
type ChoiceIssuer struct {
	Choice VoteChoice
	Issuer string
}

// Issuers lists the claimant accounts to scan. Abstain is included only when defined.
func (p *Proposal) Issuers() []ChoiceIssuer {
	issuers := []ChoiceIssuer{
		{Choice: VoteFor, Issuer: p.VoteForIssuer},
		{Choice: VoteAgainst, Issuer: p.VoteAgainstIssuer},
	}
	if p.VoteAbstainIssuer != "" {
		issuers = append(issuers, ChoiceIssuer{Choice: VoteAbstain, Issuer: p.VoteAbstainIssuer})
	}
	return issuers
}

// IsVotingAt reports whether the proposal accepts votes at t.
func (p *Proposal) IsVotingAt(t time.Time) bool {
	return p.Status == ProposalVoting && !p.StartAt.After(t) && !p.EndAt.Before(t)
}

// Reconcilable reports whether votes of the proposal may still be reconciled.
func (p *Proposal) Reconcilable() bool {
	return p.Status == ProposalVoting || p.Status == ProposalVoted
}

// ProposalResults is the denormalised result write. Nil supply figures are left unchanged.
type ProposalResults struct {
	VoteForResult         decimal.Decimal
	VoteAgainstResult     decimal.Decimal
	VoteAbstainResult     decimal.Decimal
	AquaCirculatingSupply *float64
	IceCirculatingSupply  *float64
	UpdatedAt             time.Time
}

type ProposalsFilter struct {
	Statuses []ProposalStatus
	// Zero values disable the window filter.
	ActiveAt time.Time
	// Zero values disable the discussion expiry filter.
	LastUpdatedBefore time.Time
	// Zero values disable the end time filter.
	EndBefore time.Time
}
