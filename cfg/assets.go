// Package cfg
package cfg

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"

	"github.com/aquagov/governance-backend/types"
)

type assetsFile struct {
	Assets []types.Asset `yaml:"assets"`
}

// loadGovernanceAssets resolves the recognised vote assets. The YAML file wins over the
// env list; with neither set AQUA, governICE and gdICE are recognised.
func loadGovernanceAssets(path, list string) ([]types.Asset, error) {
	if path != "" {
		content, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("failed to read governance assets file %s: %w", path, err)
		}
		return parseAssetsFile(content)
	}
	if list != "" {
		return types.ParseAssetList(list)
	}
	return types.DefaultVoteAssets(), nil
}

func parseAssetsFile(content []byte) ([]types.Asset, error) {
	var file assetsFile
	if err := yaml.Unmarshal(content, &file); err != nil {
		return nil, fmt.Errorf("failed to parse governance assets file: %w", err)
	}
	if len(file.Assets) == 0 {
		return nil, fmt.Errorf("governance assets file lists no assets")
	}
	for _, a := range file.Assets {
		if a.Code == "" || a.Issuer == "" {
			return nil, fmt.Errorf("%w: %q", types.ErrInvalidAsset, a.String())
		}
	}
	return file.Assets, nil
}
