package services

import (
	"context"
	"fmt"
	"strconv"
	"strings"
	"unicode"

	"golang.org/x/text/unicode/norm"

	"gastobot/internal/core"
	"gastobot/internal/store"
)

// Resolver turns a free-text search term into candidate transactions for
// delete and update. A numeric term matches by exact amount; anything else
// matches by case-insensitive substring on the description. When the
// accented term matches nothing, the search retries with diacritics
// stripped.
type Resolver struct {
	store store.TransactionStore
}

func NewResolver(s store.TransactionStore) *Resolver {
	return &Resolver{store: s}
}

// Resolve returns up to store.SearchLimit candidates ordered most recent
// first. The first result is the authoritative match.
func (r *Resolver) Resolve(ctx context.Context, term string, date core.Date) ([]core.Transaction, error) {
	term = strings.TrimSpace(term)
	if term == "" {
		return nil, nil
	}

	q := store.SearchQuery{Term: term, Date: date}
	if amount, err := strconv.ParseFloat(strings.ReplaceAll(term, ",", ""), 64); err == nil {
		q.Amount = &amount
	}

	matches, err := r.store.SearchTransactions(ctx, q)
	if err != nil {
		return nil, fmt.Errorf("search transactions: %w", err)
	}
	if len(matches) > 0 || q.Amount != nil {
		return matches, nil
	}

	stripped := stripDiacritics(term)
	if stripped == term {
		return matches, nil
	}
	matches, err = r.store.SearchTransactions(ctx, store.SearchQuery{Term: stripped, Date: date})
	if err != nil {
		return nil, fmt.Errorf("search transactions: %w", err)
	}
	return matches, nil
}

// stripDiacritics removes combining marks ("Café" matches "cafe").
func stripDiacritics(s string) string {
	var b strings.Builder
	for _, r := range norm.NFD.String(s) {
		if unicode.Is(unicode.Mn, r) {
			continue
		}
		b.WriteRune(r)
	}
	return b.String()
}
