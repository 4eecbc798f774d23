package types

import (
	"time"

	"github.com/shopspring/decimal"
)

const OpCreateClaimableBalance = "create_claimable_balance"

// ClaimableBalance is a claimable balance record as returned by Horizon.
type ClaimableBalance struct {
	ID               string          `json:"id"`
	Asset            string          `json:"asset"`
	Amount           decimal.Decimal `json:"amount"`
	Sponsor          string          `json:"sponsor"`
	LastModifiedTime *time.Time      `json:"last_modified_time"`
	Claimants        []Claimant      `json:"claimants"`
	PagingToken      string          `json:"paging_token"`
	Links            BalanceLinks    `json:"_links"`
}

type Claimant struct {
	Destination string    `json:"destination"`
	Predicate   Predicate `json:"predicate"`
}

// Predicate keeps only the parts of a claim predicate that carry vote metadata.
type Predicate struct {
	Unconditional bool          `json:"unconditional,omitempty"`
	Not           *NotPredicate `json:"not,omitempty"`
}

type NotPredicate struct {
	AbsBefore      string `json:"abs_before,omitempty"`
	AbsBeforeEpoch string `json:"abs_before_epoch,omitempty"`
}

// UnlockTime returns the "not before" time of the claimant, preferring the ISO value.
func (c Claimant) UnlockTime() (string, bool) {
	if c.Predicate.Not == nil {
		return "", false
	}
	if c.Predicate.Not.AbsBefore != "" {
		return c.Predicate.Not.AbsBefore, true
	}
	if c.Predicate.Not.AbsBeforeEpoch != "" {
		return c.Predicate.Not.AbsBeforeEpoch, true
	}
	return "", false
}

type Link struct {
	Href      string `json:"href"`
	Templated bool   `json:"templated,omitempty"`
}

type BalanceLinks struct {
	Self         Link `json:"self"`
	Transactions Link `json:"transactions"`
	Operations   Link `json:"operations"`
}

// Operation is an entry of a claimable balance operation history.
type Operation struct {
	ID              string          `json:"id"`
	Type            string          `json:"type"`
	CreatedAt       time.Time       `json:"created_at"`
	Amount          decimal.Decimal `json:"amount"`
	TransactionHash string          `json:"transaction_hash"`
	PagingToken     string          `json:"paging_token"`
}
