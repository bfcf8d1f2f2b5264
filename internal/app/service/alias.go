package service

import (
	"crypto/rand"
	"math/big"
	"regexp"

	"github.com/sifan077/SnipURL/internal/app/apperr"
)

const (
	codeAlphabet    = "ABCDEFGHIJKLMNOPQRSTUVWXYZabcdefghijklmnopqrstuvwxyz0123456789"
	defaultCodeLen  = 7
	customAliasMin  = 3
	customAliasMax  = 32
	defaultMaxRetry = 5
)

var customAliasPattern = regexp.MustCompile(`^[A-Za-z0-9_-]+$`)

// Route prefixes and well-known paths that a custom alias would shadow.
var reservedAliases = map[string]struct{}{
	"shorten":      {},
	"bulk-shorten": {},
	"urls":         {},
	"analytics":    {},
	"auth":         {},
	"health":       {},
	"metrics":      {},
	"rate-limits":  {},
	"admin":        {},
	"api":          {},
	"login":        {},
	"register":     {},
}

// AliasGenerator produces candidate short codes. It never reserves a code:
// uniqueness is enforced by the mapping store's constraint at insert time.
type AliasGenerator struct {
	length int
}

// NewAliasGenerator builds a generator producing codes of the given length.
func NewAliasGenerator(length int) *AliasGenerator {
	if length <= 0 {
		length = defaultCodeLen
	}
	return &AliasGenerator{length: length}
}

// Random returns one candidate code from the URL-safe alphabet.
func (g *AliasGenerator) Random() (string, error) {
	buf := make([]byte, g.length)
	alphabetLen := big.NewInt(int64(len(codeAlphabet)))
	for i := range buf {
		n, err := rand.Int(rand.Reader, alphabetLen)
		if err != nil {
			return "", err
		}
		buf[i] = codeAlphabet[n.Int64()]
	}
	return string(buf), nil
}

// ValidateCustom checks charset, length bounds and the reserved-word list for
// a caller-supplied alias.
func (g *AliasGenerator) ValidateCustom(alias string) error {
	if len(alias) < customAliasMin || len(alias) > customAliasMax {
		return apperr.ValidationField("custom_alias", "custom alias must be between 3 and 32 characters").
			WithDetail("length", len(alias))
	}
	if !customAliasPattern.MatchString(alias) {
		return apperr.ValidationField("custom_alias", "custom alias may only contain letters, digits, '-' and '_'")
	}
	if _, reserved := reservedAliases[alias]; reserved {
		return apperr.ValidationField("custom_alias", "custom alias is reserved").
			WithDetail("alias", alias)
	}
	return nil
}
