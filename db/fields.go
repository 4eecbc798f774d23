package db

import (
	"fmt"

	"go.mongodb.org/mongo-driver/bson"

	"github.com/aquagov/governance-backend/types"
)

// voteSetDoc builds the $set document for the given field names.
func voteSetDoc(v *types.Vote, fields []string) (bson.M, error) {
	set := bson.M{}
	for _, f := range fields {
		switch f {
		case types.FieldClaimableBalanceID:
			set[f] = v.ClaimableBalanceID
		case types.FieldAmount:
			set[f] = v.Amount
		case types.FieldVotedAmount:
			set[f] = v.VotedAmount
		case types.FieldTransactionLink:
			set[f] = v.TransactionLink
		case types.FieldRetired:
			set[f] = v.Retired
		case types.FieldKey:
			set[f] = v.Key
		case types.FieldGroupIndex:
			set[f] = v.GroupIndex
		default:
			return nil, fmt.Errorf("unknown vote field %q", f)
		}
	}
	return set, nil
}

// copyVoteFields copies the named fields from src into dst.
func copyVoteFields(dst, src *types.Vote, fields []string) error {
	for _, f := range fields {
		switch f {
		case types.FieldClaimableBalanceID:
			dst.ClaimableBalanceID = src.ClaimableBalanceID
		case types.FieldAmount:
			dst.Amount = src.Amount
		case types.FieldVotedAmount:
			dst.VotedAmount = cloneDecimal(src.VotedAmount)
		case types.FieldTransactionLink:
			dst.TransactionLink = src.TransactionLink
		case types.FieldRetired:
			dst.Retired = src.Retired
		case types.FieldKey:
			dst.Key = src.Key
		case types.FieldGroupIndex:
			dst.GroupIndex = src.GroupIndex
		default:
			return fmt.Errorf("unknown vote field %q", f)
		}
	}
	return nil
}
