package types

import (
	"errors"
	"fmt"
	"strings"

	"github.com/aquagov/governance-backend/utils"
)

const NativeAsset = "native"

// Governance vote assets. ICE issues both governance tokens.
const (
	AquaAssetCode      = "AQUA"
	AquaAssetIssuer    = "GBNZILSTVQZ4R7IKQDGHYGY2QXL5QOFJYQMXPKWRRM5PAV7Y4M67AQUA"
	GovernIceAssetCode = "governICE"
	GdIceAssetCode     = "gdICE"
	IceAssetIssuer     = "GAXSGZ2JM3LNWOO4WRGADISNMWO4HQLG4QBGUZRKH5ZHL3EQBGX73ICE"
)

// DefaultVoteAssets returns the assets accepted as votes when none are configured.
func DefaultVoteAssets() []Asset {
	return []Asset{
		{Code: AquaAssetCode, Issuer: AquaAssetIssuer},
		{Code: GovernIceAssetCode, Issuer: IceAssetIssuer},
		{Code: GdIceAssetCode, Issuer: IceAssetIssuer},
	}
}

var ErrInvalidAsset = errors.New("invalid asset string")

// Asset identifies a ledger asset by code and issuer. Native lumens have an empty issuer.
type Asset struct {
	Code   string `json:"code" bson:"code" yaml:"code"`
	Issuer string `json:"issuer" bson:"issuer" yaml:"issuer"`
}

func (a Asset) IsNative() bool {
	return a.Issuer == "" && (a.Code == "" || a.Code == NativeAsset)
}

// String returns the Horizon representation, CODE:ISSUER or native.
func (a Asset) String() string {
	if a.IsNative() {
		return NativeAsset
	}
	return fmt.Sprintf("%s:%s", a.Code, a.Issuer)
}

// ParseAsset parses the Horizon asset string.
func ParseAsset(s string) (Asset, error) {
	if s == NativeAsset {
		return Asset{Code: NativeAsset}, nil
	}
	parts := strings.Split(s, ":")
	if len(parts) != 2 || parts[0] == "" || parts[1] == "" {
		return Asset{}, fmt.Errorf("%w: %q", ErrInvalidAsset, s)
	}
	if !utils.IsValidAccount(parts[1]) {
		return Asset{}, fmt.Errorf("%w: bad issuer in %q", ErrInvalidAsset, s)
	}
	return Asset{Code: parts[0], Issuer: parts[1]}, nil
}

// ParseAssetList parses a comma separated list of CODE:ISSUER entries.
func ParseAssetList(s string) ([]Asset, error) {
	var assets []Asset
	for _, item := range strings.Split(s, ",") {
		item = strings.TrimSpace(item)
		if item == "" {
			continue
		}
		// Issuers typed into config are normalised; Horizon values are parsed as is.
		if i := strings.IndexByte(item, ':'); i > 0 {
			item = item[:i+1] + utils.CleanUpAccount(item[i+1:])
		}
		asset, err := ParseAsset(item)
		if err != nil {
			return nil, err
		}
		assets = append(assets, asset)
	}
	return assets, nil
}
