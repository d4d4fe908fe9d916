package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

// Token defaults used when no profile or flag overrides them.
const (
	DefaultTokenName     = "Shmelya_Longshaggydoggo"
	DefaultTokenSymbol   = "SHMELYA"
	DefaultTokenURI      = "https://ipfs.io/ipfs/bafkreihr7jvkfejam6enwqlazrureik433h23iwiggt7drrbcbhdl2q7ca"
	DefaultTokenDecimals = 6
	DefaultMintAmount    = 1_000_000
)

// TokenConfig describes the mint to create and the supply to issue.
// Amount is expressed in base units and is not scaled by Decimals.
type TokenConfig struct {
	Name                 string `yaml:"name" json:"name"`
	Symbol               string `yaml:"symbol" json:"symbol"`
	URI                  string `yaml:"uri" json:"uri"`
	Decimals             uint8  `yaml:"decimals" json:"decimals"`
	Amount               uint64 `yaml:"amount" json:"amount"`
	SellerFeeBasisPoints uint16 `yaml:"sellerFeeBasisPoints" json:"sellerFeeBasisPoints"`
	IsMutable            bool   `yaml:"isMutable" json:"isMutable"`
}

// DefaultTokenConfig returns the built-in token parameters.
func DefaultTokenConfig() TokenConfig {
	return TokenConfig{
		Name:      DefaultTokenName,
		Symbol:    DefaultTokenSymbol,
		URI:       DefaultTokenURI,
		Decimals:  DefaultTokenDecimals,
		Amount:    DefaultMintAmount,
		IsMutable: true,
	}
}

// tokenProfile mirrors TokenConfig with pointers so absent keys keep defaults.
type tokenProfile struct {
	Name                 *string `yaml:"name"`
	Symbol               *string `yaml:"symbol"`
	URI                  *string `yaml:"uri"`
	Decimals             *uint8  `yaml:"decimals"`
	Amount               *uint64 `yaml:"amount"`
	SellerFeeBasisPoints *uint16 `yaml:"sellerFeeBasisPoints"`
	IsMutable            *bool   `yaml:"isMutable"`
}

// LoadTokenConfig reads a YAML token profile layered over DefaultTokenConfig.
// An empty path returns the defaults.
func LoadTokenConfig(path string) (TokenConfig, error) {
	cfg := DefaultTokenConfig()
	if path == "" {
		return cfg, nil
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return TokenConfig{}, fmt.Errorf("read token profile: %w", err)
	}
	return ParseTokenConfig(data)
}

// ParseTokenConfig decodes YAML bytes layered over DefaultTokenConfig.
func ParseTokenConfig(data []byte) (TokenConfig, error) {
	cfg := DefaultTokenConfig()
	var p tokenProfile
	if err := yaml.Unmarshal(data, &p); err != nil {
		return TokenConfig{}, fmt.Errorf("parse token profile: %w", err)
	}
	if p.Name != nil {
		cfg.Name = *p.Name
	}
	if p.Symbol != nil {
		cfg.Symbol = *p.Symbol
	}
	if p.URI != nil {
		cfg.URI = *p.URI
	}
	if p.Decimals != nil {
		cfg.Decimals = *p.Decimals
	}
	if p.Amount != nil {
		cfg.Amount = *p.Amount
	}
	if p.SellerFeeBasisPoints != nil {
		cfg.SellerFeeBasisPoints = *p.SellerFeeBasisPoints
	}
	if p.IsMutable != nil {
		cfg.IsMutable = *p.IsMutable
	}
	return cfg, nil
}

// LoadEnv loads .env style files into the process environment without
// overriding variables that are already set. Missing files are ignored.
func LoadEnv(paths ...string) error {
	if len(paths) == 0 {
		paths = []string{".env"}
	}
	for _, p := range paths {
		if p == "" {
			continue
		}
		if err := godotenv.Load(p); err != nil {
			if errors.Is(err, fs.ErrNotExist) {
				continue
			}
			return fmt.Errorf("load env file %s: %w", p, err)
		}
	}
	return nil
}
