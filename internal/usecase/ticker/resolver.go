// Package ticker extracts canonical asset keys from broker product descriptions
package ticker

import (
	"regexp"
	"strings"

	"github.com/simaogato/portfolio-ledger/internal/domain"
)

const tokenSeparator = " - "

// FixedIncomePrefixes are the product prefixes that mark a fixed-income asset
var FixedIncomePrefixes = []string{"CDB", "LCI", "LCA", "TESOURO", "DEBENTURE"}

const treasuryPrefix = "TESOURO"

// B3 equity tickers: four letters followed by the one- or two-digit class suffix
var variableTickerPattern = regexp.MustCompile(`^[A-Z]{4}[0-9]{1,2}`)

// Kind classifies a product description as fixed or variable income
func Kind(product string) domain.LotKind {
	upper := strings.ToUpper(strings.TrimSpace(product))
	for _, prefix := range FixedIncomePrefixes {
		if hasKeywordPrefix(upper, prefix) {
			return domain.LotKindFixedIncome
		}
	}
	return domain.LotKindVariableIncome
}

// IsTreasury reports whether the product is a treasury bond
func IsTreasury(product string) bool {
	return hasKeywordPrefix(strings.ToUpper(strings.TrimSpace(product)), treasuryPrefix)
}

// hasKeywordPrefix matches prefix as a whole word so tickers such as LCAM3
// are not mistaken for an LCA
func hasKeywordPrefix(s, prefix string) bool {
	if !strings.HasPrefix(s, prefix) {
		return false
	}
	if len(s) == len(prefix) {
		return true
	}
	next := s[len(prefix)]
	return next < 'A' || next > 'Z'
}

// Resolve extracts the asset key from a product description:
//   - treasury bonds keep the whole trimmed text ("Tesouro Selic 2024")
//   - other fixed income keeps the first two " - " tokens ("CDB - CDBC247FRL8")
//   - variable income keeps the ticker at the start of the first token ("SAPR11")
func Resolve(product string) string {
	trimmed := strings.TrimSpace(product)
	if trimmed == "" {
		return ""
	}

	if Kind(trimmed) == domain.LotKindFixedIncome {
		if IsTreasury(trimmed) {
			return trimmed
		}
		tokens := splitTokens(trimmed)
		if len(tokens) > 2 {
			tokens = tokens[:2]
		}
		return strings.Join(tokens, tokenSeparator)
	}

	first := splitTokens(trimmed)[0]
	if fields := strings.Fields(first); len(fields) > 0 {
		first = fields[0]
	}
	if match := variableTickerPattern.FindString(strings.ToUpper(first)); match != "" {
		return match
	}
	return first
}

// Suffix returns the numeric class suffix of a variable-income ticker, or "" if none
func Suffix(ticker string) string {
	match := variableTickerPattern.FindString(strings.ToUpper(ticker))
	if match == "" {
		return ""
	}
	return match[4:]
}

func splitTokens(s string) []string {
	parts := strings.Split(s, tokenSeparator)
	tokens := make([]string, 0, len(parts))
	for _, p := range parts {
		if p = strings.TrimSpace(p); p != "" {
			tokens = append(tokens, p)
		}
	}
	if len(tokens) == 0 {
		return []string{s}
	}
	return tokens
}
