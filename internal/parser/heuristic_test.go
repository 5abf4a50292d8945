package parser

import (
	"strings"
	"testing"

	"gastobot/internal/core"
)

func TestHeuristic_Parse(t *testing.T) {
	today := core.NewDate(2026, 8, 20)
	h := New()

	tests := []struct {
		name       string
		text       string
		wantAmount float64
		wantType   core.TransactionType
		wantTag    core.ProjectTag
		wantStatus core.PaymentStatus
	}{
		{
			name:       "expense with tag",
			text:       "Gasté 150 en Uber #Personal",
			wantAmount: 150,
			wantType:   core.Gasto,
			wantTag:    core.TagPersonal,
			wantStatus: core.Pagado,
		},
		{
			name:       "income keyword",
			text:       "Me pagaron 5000 del sueldo",
			wantAmount: 5000,
			wantType:   core.Ingreso,
			wantStatus: core.Pagado,
		},
		{
			name:       "thousands separator",
			text:       "Compré una laptop de $25,499.99",
			wantAmount: 25499.99,
			wantType:   core.Gasto,
			wantStatus: core.Pagado,
		},
		{
			name:       "pending freelance payment is income",
			text:       "Cliente debe 3000 del proyecto web, pendiente",
			wantAmount: 3000,
			wantType:   core.Ingreso,
			wantStatus: core.Pendiente,
		},
		{
			name:       "pending expense stays expense",
			text:       "Debo 200 de la cuenta del restaurante",
			wantAmount: 200,
			wantType:   core.Gasto,
			wantStatus: core.Pendiente,
		},
		{
			name:       "no keywords defaults to expense",
			text:       "350 tacos",
			wantAmount: 350,
			wantType:   core.Gasto,
			wantStatus: core.Pagado,
		},
		{
			name:       "no amount yields zero",
			text:       "compré algo",
			wantAmount: 0,
			wantType:   core.Gasto,
			wantStatus: core.Pagado,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			intent := h.Parse(tt.text, today)

			if intent.Operation != core.OpCreate {
				t.Errorf("Operation = %q, want create", intent.Operation)
			}
			if intent.Amount != tt.wantAmount {
				t.Errorf("Amount = %.2f, want %.2f", intent.Amount, tt.wantAmount)
			}
			if intent.Type != tt.wantType {
				t.Errorf("Type = %q, want %q", intent.Type, tt.wantType)
			}
			if intent.Tag != tt.wantTag {
				t.Errorf("Tag = %q, want %q", intent.Tag, tt.wantTag)
			}
			if intent.PaymentStatus != tt.wantStatus {
				t.Errorf("PaymentStatus = %q, want %q", intent.PaymentStatus, tt.wantStatus)
			}
			if !intent.Date.Equal(today) {
				t.Errorf("Date = %v, want %v", intent.Date, today)
			}
			if intent.Category != DefaultCategory {
				t.Errorf("Category = %q, want %q", intent.Category, DefaultCategory)
			}
			if intent.AccountSource != core.DefaultAccountSource {
				t.Errorf("AccountSource = %q, want %q", intent.AccountSource, core.DefaultAccountSource)
			}
		})
	}
}

func TestHeuristic_Parse_TruncatesDescription(t *testing.T) {
	long := strings.Repeat("a", 150)
	intent := New().Parse(long, core.NewDate(2026, 8, 20))

	if got := len([]rune(intent.Description)); got != 100 {
		t.Errorf("len(Description) = %d, want 100", got)
	}
}

func TestExtractAmount(t *testing.T) {
	tests := []struct {
		input string
		want  float64
	}{
		{"Gasté 150 en Uber", 150},
		{"$1,234.50 de super", 1234.50},
		{"pagué 99.9", 99.9},
		{"12,000 de renta", 12000},
		{"sin números aquí", 0},
		{"", 0},
	}

	for _, tt := range tests {
		t.Run(tt.input, func(t *testing.T) {
			if got := ExtractAmount(tt.input); got != tt.want {
				t.Errorf("ExtractAmount(%q) = %v, want %v", tt.input, got, tt.want)
			}
		})
	}
}
