// Package classifier maps noisy broker text to canonical movement and
// transaction types. Both classifiers are pure and safe for concurrent use;
// their keyword tables are copied at construction and never change.
package classifier

import (
	"strings"

	"github.com/simaogato/portfolio-ledger/internal/domain"
)

// MovementClassifier maps (direction, text) to a MovementType by set membership
type MovementClassifier struct {
	table map[domain.Direction]map[string]domain.MovementType
}

// NewMovementClassifier creates a MovementClassifier over a normalized copy of table
func NewMovementClassifier(table MovementTable) *MovementClassifier {
	normalized := make(map[domain.Direction]map[string]domain.MovementType, len(table))
	for direction, entries := range table {
		set := make(map[string]domain.MovementType, len(entries))
		for text, movement := range entries {
			set[Normalize(text)] = movement
		}
		normalized[direction] = set
	}
	return &MovementClassifier{table: normalized}
}

// Classify returns the movement type, or MovementUnclassified when the text is
// not a member of the direction's set
func (c *MovementClassifier) Classify(direction domain.Direction, text string) domain.MovementType {
	set, ok := c.table[direction]
	if !ok {
		return domain.MovementUnclassified
	}
	if movement, ok := set[Normalize(text)]; ok {
		return movement
	}
	return domain.MovementUnclassified
}

// TransactionTypeClassifier maps (direction, text) to a TransactionType.
// Rules are evaluated in order and the first match wins:
//  1. transfer without purchase/sale -> TRANSFER
//  2. purchase/sale -> SELL on ENTRY, BUY on EXIT
//  3. ENTRY with an income keyword -> the keyword's PROFIT_* type
//  4. fee or charge -> TAX
//  5. OTHER
type TransactionTypeClassifier struct {
	transfer []string
	trade    []string
	income   []IncomeKeyword
	fee      []string
}

// NewTransactionTypeClassifier creates a TransactionTypeClassifier over a normalized copy of table
func NewTransactionTypeClassifier(table TypeTable) *TransactionTypeClassifier {
	income := make([]IncomeKeyword, len(table.IncomeKeywords))
	for i, kw := range table.IncomeKeywords {
		income[i] = IncomeKeyword{Keyword: Normalize(kw.Keyword), Type: kw.Type}
	}
	return &TransactionTypeClassifier{
		transfer: normalizeAll(table.TransferKeywords),
		trade:    normalizeAll(table.TradeKeywords),
		income:   income,
		fee:      normalizeAll(table.FeeKeywords),
	}
}

// Classify returns the transaction type for the text
func (c *TransactionTypeClassifier) Classify(direction domain.Direction, text string) domain.TransactionType {
	normalized := Normalize(text)
	isTrade := containsAny(normalized, c.trade)

	if !isTrade && containsAny(normalized, c.transfer) {
		return domain.TransactionTypeTransfer
	}

	if isTrade {
		if direction == domain.DirectionEntry {
			return domain.TransactionTypeSell
		}
		return domain.TransactionTypeBuy
	}

	if direction == domain.DirectionEntry {
		for _, kw := range c.income {
			if strings.Contains(normalized, kw.Keyword) {
				return kw.Type
			}
		}
	}

	if containsAny(normalized, c.fee) {
		return domain.TransactionTypeTax
	}

	return domain.TransactionTypeOther
}

func normalizeAll(keywords []string) []string {
	out := make([]string, 0, len(keywords))
	for _, kw := range keywords {
		if n := Normalize(kw); n != "" {
			out = append(out, n)
		}
	}
	return out
}

func containsAny(text string, keywords []string) bool {
	for _, kw := range keywords {
		if strings.Contains(text, kw) {
			return true
		}
	}
	return false
}
