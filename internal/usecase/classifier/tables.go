package classifier

import "github.com/simaogato/portfolio-ledger/internal/domain"

// MovementTable maps a direction to the set of movement descriptions it accepts.
// Keys are matched after Normalize, so they may be written with accents.
type MovementTable map[domain.Direction]map[string]domain.MovementType

// IncomeKeyword binds an income keyword to the PROFIT_* type it produces
type IncomeKeyword struct {
	Keyword string
	Type    domain.TransactionType
}

// TypeTable holds the keyword lists behind transaction typing.
// IncomeKeywords is ordered: the first keyword contained in the text wins.
type TypeTable struct {
	TransferKeywords []string
	TradeKeywords    []string
	IncomeKeywords   []IncomeKeyword
	FeeKeywords      []string
}

// DefaultMovementTable returns the movement descriptions used by the B3
// custody statement. A fresh map is returned on each call.
func DefaultMovementTable() MovementTable {
	return MovementTable{
		domain.DirectionEntry: {
			"Crédito":                           domain.MovementCredit,
			"Compra / Venda":                    domain.MovementCredit,
			"Compra":                            domain.MovementCredit,
			"Rendimento":                        domain.MovementCredit,
			"Dividendo":                         domain.MovementCredit,
			"Juros":                             domain.MovementCredit,
			"Juros Sobre Capital Próprio":       domain.MovementCredit,
			"Resgate":                           domain.MovementCredit,
			"Leilão de Fração":                  domain.MovementCredit,
			"Fração em Ativos":                  domain.MovementCredit,
			"Reembolso":                         domain.MovementCredit,
			"Transferência":                     domain.MovementTransfer,
			"Transferência - Liquidação":        domain.MovementTransfer,
			"Direito de Subscrição":             domain.MovementSubscription,
			"Direitos de Subscrição - Exercido": domain.MovementSubscription,
			"Recibo de Subscrição":              domain.MovementSubscription,
			"Atualização":                       domain.MovementUpdate,
			"Bonificação em Ativos":             domain.MovementBonusInAssets,
			"Amortização":                       domain.MovementAmortization,
		},
		domain.DirectionExit: {
			"Débito":                                domain.MovementDebit,
			"Compra / Venda":                        domain.MovementDebit,
			"Venda":                                 domain.MovementDebit,
			"Cobrança de Taxa Semestral":            domain.MovementDebit,
			"Taxa de Custódia":                      domain.MovementDebit,
			"Transferência":                         domain.MovementTransfer,
			"Transferência - Liquidação":            domain.MovementTransfer,
			"Direito de Subscrição":                 domain.MovementSubscription,
			"Direitos de Subscrição - Não Exercido": domain.MovementSubscription,
			"Cessão de Direitos":                    domain.MovementSubscription,
			"Cessão de Direitos - Solicitada":       domain.MovementSubscription,
			"Atualização":                           domain.MovementUpdate,
		},
	}
}

// DefaultTypeTable returns the keyword lists for transaction typing
func DefaultTypeTable() TypeTable {
	return TypeTable{
		TransferKeywords: []string{"transfer"},
		TradeKeywords:    []string{"compra / venda", "compra/venda", "compra e venda"},
		IncomeKeywords: []IncomeKeyword{
			{Keyword: "rendimento", Type: domain.TransactionTypeProfitIncome},
			{Keyword: "dividendo", Type: domain.TransactionTypeProfitDividend},
			{Keyword: "juros", Type: domain.TransactionTypeProfitInterest},
			{Keyword: "resgate", Type: domain.TransactionTypeProfitOther},
			{Keyword: "amortizacao", Type: domain.TransactionTypeProfitOther},
			{Keyword: "bonificacao", Type: domain.TransactionTypeProfitOther},
		},
		FeeKeywords: []string{"taxa", "cobranca", "tarifa", "emolumento", "corretagem"},
	}
}
