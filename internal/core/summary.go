package core

// Summary aggregates a set of transactions for reporting.
type Summary struct {
	TotalIncome      float64
	TotalExpenses    float64
	TotalInvestments float64
	NetBalance       float64
	TransactionCount int
	ByTag            map[string]float64
	ByCategory       map[string]float64
}

// BuildSummary computes totals and per-tag / per-category breakdowns.
// Subscriptions count as expenses; untagged transactions are grouped under
// "Sin etiqueta".
func BuildSummary(txs []Transaction) Summary {
	s := Summary{
		TransactionCount: len(txs),
		ByTag:            make(map[string]float64),
		ByCategory:       make(map[string]float64),
	}
	for _, tx := range txs {
		switch tx.Type {
		case Ingreso:
			s.TotalIncome += tx.Amount
		case Inversion:
			s.TotalInvestments += tx.Amount
		default:
			s.TotalExpenses += tx.Amount
		}

		tag := string(tx.Tag)
		if tag == "" {
			tag = "Sin etiqueta"
		}
		cat := tx.Category
		if cat == "" {
			cat = "Sin categoría"
		}
		s.ByTag[tag] += tx.Amount
		s.ByCategory[cat] += tx.Amount
	}
	s.NetBalance = s.TotalIncome - s.TotalExpenses - s.TotalInvestments
	return s
}
