package services

import (
	"context"
	"fmt"
	"testing"

	"gastobot/internal/core"
	"gastobot/internal/store"
	"gastobot/internal/store/memory"
)

func seedResolverStore(t *testing.T) *memory.Store {
	t.Helper()
	st := memory.New()
	st.SetClock(stepClock())

	ctx := context.Background()
	seed := []core.Transaction{
		{Amount: 150, Description: "Uber al centro", Category: "Transporte", Type: core.Gasto, Date: core.NewDate(2026, 8, 18)},
		{Amount: 89, Description: "Uber nocturno", Category: "Transporte", Type: core.Gasto, Date: core.NewDate(2026, 8, 19)},
		{Amount: 1234.50, Description: "Superama despensa", Category: "Alimentación", Type: core.Gasto, Date: core.NewDate(2026, 8, 17)},
		{Amount: 45, Description: "cafe internet", Category: "Servicios", Type: core.Gasto, Date: core.NewDate(2026, 8, 16)},
	}
	for _, tx := range seed {
		if _, err := st.CreateTransaction(ctx, tx); err != nil {
			t.Fatalf("seed: %v", err)
		}
	}
	return st
}

func TestResolver_Resolve(t *testing.T) {
	st := seedResolverStore(t)
	r := NewResolver(st)
	ctx := context.Background()

	t.Run("substring match most recent first", func(t *testing.T) {
		matches, err := r.Resolve(ctx, "uber", core.Date{})
		if err != nil {
			t.Fatalf("Resolve: %v", err)
		}
		if len(matches) != 2 {
			t.Fatalf("got %d matches, want 2", len(matches))
		}
		if matches[0].Description != "Uber nocturno" {
			t.Errorf("first match = %q, want the most recent", matches[0].Description)
		}
	})

	t.Run("numeric term matches amount exactly", func(t *testing.T) {
		matches, err := r.Resolve(ctx, "1,234.50", core.Date{})
		if err != nil {
			t.Fatalf("Resolve: %v", err)
		}
		if len(matches) != 1 || matches[0].Description != "Superama despensa" {
			t.Errorf("matches = %+v, want the Superama entry", matches)
		}
	})

	t.Run("numeric term never falls back to substring", func(t *testing.T) {
		matches, err := r.Resolve(ctx, "9999", core.Date{})
		if err != nil {
			t.Fatalf("Resolve: %v", err)
		}
		if len(matches) != 0 {
			t.Errorf("got %d matches, want none", len(matches))
		}
	})

	t.Run("accented term retries without diacritics", func(t *testing.T) {
		matches, err := r.Resolve(ctx, "café", core.Date{})
		if err != nil {
			t.Fatalf("Resolve: %v", err)
		}
		if len(matches) != 1 || matches[0].Description != "cafe internet" {
			t.Errorf("matches = %+v, want the cafe entry", matches)
		}
	})

	t.Run("date narrows the search", func(t *testing.T) {
		matches, err := r.Resolve(ctx, "uber", core.NewDate(2026, 8, 18))
		if err != nil {
			t.Fatalf("Resolve: %v", err)
		}
		if len(matches) != 1 || matches[0].Description != "Uber al centro" {
			t.Errorf("matches = %+v, want only the 08-18 Uber", matches)
		}
	})

	t.Run("empty term matches nothing", func(t *testing.T) {
		matches, err := r.Resolve(ctx, "   ", core.Date{})
		if err != nil || matches != nil {
			t.Errorf("Resolve = (%v, %v), want (nil, nil)", matches, err)
		}
	})
}

func TestResolver_Resolve_Limit(t *testing.T) {
	st := memory.New()
	st.SetClock(stepClock())
	ctx := context.Background()
	for i := 0; i < store.SearchLimit+3; i++ {
		_, err := st.CreateTransaction(ctx, core.Transaction{
			Amount: 50, Description: fmt.Sprintf("tacos %d", i), Category: "Alimentación",
			Type: core.Gasto, Date: core.NewDate(2026, 8, 10+i),
		})
		if err != nil {
			t.Fatalf("seed: %v", err)
		}
	}

	matches, err := NewResolver(st).Resolve(ctx, "tacos", core.Date{})
	if err != nil {
		t.Fatalf("Resolve: %v", err)
	}
	if len(matches) != store.SearchLimit {
		t.Errorf("got %d matches, want capped at %d", len(matches), store.SearchLimit)
	}
}

func TestStripDiacritics(t *testing.T) {
	tests := []struct {
		input string
		want  string
	}{
		{"café", "cafe"},
		{"categoría", "categoria"},
		{"ÑOÑO", "NONO"},
		{"plain", "plain"},
	}

	for _, tt := range tests {
		t.Run(tt.input, func(t *testing.T) {
			if got := stripDiacritics(tt.input); got != tt.want {
				t.Errorf("stripDiacritics(%q) = %q, want %q", tt.input, got, tt.want)
			}
		})
	}
}
