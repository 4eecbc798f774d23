package types

import "time"

// ReconcileReport summarises one reconciliation pass of a proposal.
type ReconcileReport struct {
	ProposalID uint64        `json:"proposalId"`
	Freeze     bool          `json:"freeze"`
	Balances   int           `json:"balances"`
	Groups     int           `json:"groups"`
	Created    int           `json:"created"`
	Updated    int           `json:"updated"`
	Unchanged  int           `json:"unchanged"`
	Retired    int           `json:"retired"`
	Skipped    int           `json:"skipped"`
	StartedAt  time.Time     `json:"startedAt"`
	Duration   time.Duration `json:"duration"`
}

// Writes returns the number of rows the pass changed.
func (r *ReconcileReport) Writes() int {
	return r.Created + r.Updated + r.Retired
}

// BatchReport summarises a run over several proposals.
type BatchReport struct {
	Proposals int                `json:"proposals"`
	Succeeded int                `json:"succeeded"`
	Failed    int                `json:"failed"`
	Busy      int                `json:"busy"`
	Reports   []*ReconcileReport `json:"reports"`
	Errors    map[uint64]string  `json:"errors,omitempty"`
}
