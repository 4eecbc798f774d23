package types

import (
	"time"

	"github.com/shopspring/decimal"
)

type VoteChoice string

const (
	VoteFor     VoteChoice = "vote_for"
	VoteAgainst VoteChoice = "vote_against"
	VoteAbstain VoteChoice = "vote_abstain"
)

func (c VoteChoice) IsValid() bool {
	switch c {
	case VoteFor, VoteAgainst, VoteAbstain:
		return true
	}
	return false
}

// Vote is one logical vote. It can be backed by different claimable balances over time.
type Vote struct {
	ID         string `json:"id" bson:"_id"`
	ProposalID uint64 `json:"proposalId" bson:"proposalId"`

	Key        string `json:"key" bson:"key"`
	GroupIndex int    `json:"groupIndex" bson:"groupIndex"`

	ClaimableBalanceID string     `json:"claimableBalanceId" bson:"claimableBalanceId"`
	VoteChoice         VoteChoice `json:"voteChoice" bson:"voteChoice"`

	Amount         decimal.Decimal  `json:"amount" bson:"amount"`
	OriginalAmount decimal.Decimal  `json:"originalAmount" bson:"originalAmount"`
	VotedAmount    *decimal.Decimal `json:"votedAmount,omitempty" bson:"votedAmount"`

	AccountIssuer   string    `json:"accountIssuer" bson:"accountIssuer"`
	AssetCode       string    `json:"assetCode" bson:"assetCode"`
	TransactionLink string    `json:"transactionLink" bson:"transactionLink"`
	CreatedAt       time.Time `json:"createdAt" bson:"createdAt"`

	Retired bool `json:"retired" bson:"retired"`
}

// VoteSlot is the (key, group index) identity of a vote within a proposal.
type VoteSlot struct {
	Key        string
	GroupIndex int
}

func (v *Vote) Slot() VoteSlot {
	return VoteSlot{Key: v.Key, GroupIndex: v.GroupIndex}
}

// Fields that an update may rewrite.
const (
	FieldClaimableBalanceID = "claimableBalanceId"
	FieldAmount             = "amount"
	FieldVotedAmount        = "votedAmount"
	FieldTransactionLink    = "transactionLink"
	FieldRetired            = "retired"
	FieldKey                = "key"
	FieldGroupIndex         = "groupIndex"
)

// UpdateFields is the field set written for refreshed votes.
var UpdateFields = []string{
	FieldClaimableBalanceID,
	FieldAmount,
	FieldVotedAmount,
	FieldTransactionLink,
	FieldRetired,
	FieldKey,
	FieldGroupIndex,
}

// VoteChanges is the outcome of one reconciliation pass, written as one unit.
type VoteChanges struct {
	Create []*Vote
	Update []*Vote
	Retire []*Vote
}

func (c *VoteChanges) Empty() bool {
	return len(c.Create) == 0 && len(c.Update) == 0 && len(c.Retire) == 0
}

// VotesFilter selects stored votes. Zero values disable a criterion.
type VotesFilter struct {
	ProposalID         uint64
	ClaimableBalanceID string
	VoteChoice         VoteChoice
	ActiveOnly         bool
	// Nil returns every match.
	Pagination *Pagination
}
