package governance

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/shopspring/decimal"

	"github.com/aquagov/governance-backend/types"
)

var ErrNotAVote = errors.New("balance is not a vote")

// Candidate is a balance accepted as a vote, before it is bound to a stored row.
type Candidate struct {
	Balance       *types.ClaimableBalance
	Choice        types.VoteChoice
	Key           string
	AccountIssuer string
	Asset         types.Asset
}

// Origin is the amount and time a balance was first created with.
type Origin struct {
	Amount    decimal.Decimal
	CreatedAt time.Time
}

type Parser struct {
	cfg    Config
	assets map[types.Asset]struct{}
}

func NewParser(cfg Config) *Parser {
	cfg = cfg.withDefaults()
	assets := make(map[types.Asset]struct{}, len(cfg.Assets))
	for _, a := range cfg.Assets {
		assets[a] = struct{}{}
	}
	return &Parser{cfg: cfg, assets: assets}
}

// Classify validates a balance found under the issuer of choice. Rejections wrap ErrNotAVote.
func (p *Parser) Classify(balance *types.ClaimableBalance, proposal *types.Proposal, choice types.VoteChoice) (*Candidate, error) {
	asset, err := types.ParseAsset(balance.Asset)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrNotAVote, err)
	}
	if _, ok := p.assets[asset]; !ok {
		return nil, fmt.Errorf("%w: unrecognised asset %s", ErrNotAVote, balance.Asset)
	}
	key, issuer, err := GenerateVoteKey(balance, proposal.ID, choice)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrNotAVote, err)
	}
	if p.cfg.StrictUnlockCheck {
		if err := p.checkUnlock(balance, proposal); err != nil {
			return nil, fmt.Errorf("%w: %w", ErrNotAVote, err)
		}
	}
	return &Candidate{
		Balance:       balance,
		Choice:        choice,
		Key:           key,
		AccountIssuer: issuer,
		Asset:         asset,
	}, nil
}

// NewVote builds the first row of a vote. Original amount and creation time come from the
// balance's creation, not its last modification.
func (p *Parser) NewVote(proposalID uint64, c *Candidate, groupIndex int, origin Origin, freeze bool) *types.Vote {
	vote := &types.Vote{
		ProposalID:         proposalID,
		Key:                c.Key,
		GroupIndex:         groupIndex,
		ClaimableBalanceID: c.Balance.ID,
		VoteChoice:         c.Choice,
		Amount:             c.Balance.Amount,
		OriginalAmount:     origin.Amount,
		AccountIssuer:      c.AccountIssuer,
		AssetCode:          c.Asset.Code,
		TransactionLink:    transactionLink(c.Balance),
		CreatedAt:          origin.CreatedAt.UTC(),
	}
	if freeze {
		voted := c.Balance.Amount
		vote.VotedAmount = &voted
	}
	return vote
}

// UpdatedVote refreshes an existing row from the balance now backing it. Identity, original
// amount and creation time are carried over.
func (p *Parser) UpdatedVote(existing *types.Vote, c *Candidate, groupIndex int, freeze bool) *types.Vote {
	vote := *existing
	vote.Key = c.Key
	vote.GroupIndex = groupIndex
	vote.ClaimableBalanceID = c.Balance.ID
	vote.Amount = c.Balance.Amount
	vote.TransactionLink = transactionLink(c.Balance)
	vote.Retired = false
	if freeze {
		voted := c.Balance.Amount
		vote.VotedAmount = &voted
	} else if existing.VotedAmount != nil {
		voted := *existing.VotedAmount
		vote.VotedAmount = &voted
	}
	return &vote
}

// transactionLink drops the templated query suffix, e.g. "{?cursor,limit,order}".
func transactionLink(balance *types.ClaimableBalance) string {
	href := balance.Links.Transactions.Href
	if i := strings.IndexByte(href, '{'); i >= 0 {
		href = href[:i]
	}
	return href
}

// voteChanged reports whether any persisted update field differs.
func voteChanged(old, updated *types.Vote) bool {
	if old.ClaimableBalanceID != updated.ClaimableBalanceID ||
		old.TransactionLink != updated.TransactionLink ||
		old.Retired != updated.Retired ||
		old.Key != updated.Key ||
		old.GroupIndex != updated.GroupIndex ||
		!old.Amount.Equal(updated.Amount) {
		return true
	}
	if (old.VotedAmount == nil) != (updated.VotedAmount == nil) {
		return true
	}
	return old.VotedAmount != nil && !old.VotedAmount.Equal(*updated.VotedAmount)
}
