package core

import (
	"encoding/json"
	"errors"
	"testing"
	"time"
)

func TestParseDate(t *testing.T) {
	tests := []struct {
		name     string
		input    string
		want     Date
		wantZero bool
		wantErr  bool
	}{
		{name: "iso date", input: "2026-03-15", want: NewDate(2026, 3, 15)},
		{name: "with surrounding spaces", input: "  2026-03-15  ", want: NewDate(2026, 3, 15)},
		{name: "empty is zero", input: "", wantZero: true},
		{name: "null is zero", input: "null", wantZero: true},
		{name: "garbage", input: "tomorrow", wantErr: true},
		{name: "wrong layout", input: "15/03/2026", wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := ParseDate(tt.input)
			if tt.wantErr {
				if err == nil {
					t.Fatalf("ParseDate(%q) expected error, got %v", tt.input, got)
				}
				return
			}
			if err != nil {
				t.Fatalf("ParseDate(%q) unexpected error: %v", tt.input, err)
			}
			if tt.wantZero {
				if !got.IsZero() {
					t.Errorf("ParseDate(%q) = %v, want zero date", tt.input, got)
				}
				return
			}
			if !got.Equal(tt.want) {
				t.Errorf("ParseDate(%q) = %v, want %v", tt.input, got, tt.want)
			}
		})
	}
}

func TestDate_DaysUntil(t *testing.T) {
	base := NewDate(2026, 8, 20)

	tests := []struct {
		name  string
		other Date
		want  int
	}{
		{name: "three days ahead", other: NewDate(2026, 8, 23), want: 3},
		{name: "same day", other: NewDate(2026, 8, 20), want: 0},
		{name: "one day past", other: NewDate(2026, 8, 19), want: -1},
		{name: "across month boundary", other: NewDate(2026, 9, 1), want: 12},
		{name: "zero other", other: Date{}, want: 0},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := base.DaysUntil(tt.other); got != tt.want {
				t.Errorf("DaysUntil() = %d, want %d", got, tt.want)
			}
		})
	}
}

func TestDate_JSON(t *testing.T) {
	t.Run("marshal set date", func(t *testing.T) {
		b, err := json.Marshal(NewDate(2026, 1, 5))
		if err != nil {
			t.Fatalf("Marshal: %v", err)
		}
		if string(b) != `"2026-01-05"` {
			t.Errorf("Marshal = %s, want %q", b, "2026-01-05")
		}
	})

	t.Run("marshal zero date as null", func(t *testing.T) {
		b, err := json.Marshal(Date{})
		if err != nil {
			t.Fatalf("Marshal: %v", err)
		}
		if string(b) != "null" {
			t.Errorf("Marshal = %s, want null", b)
		}
	})

	t.Run("unmarshal iso date", func(t *testing.T) {
		var d Date
		if err := json.Unmarshal([]byte(`"2026-01-05"`), &d); err != nil {
			t.Fatalf("Unmarshal: %v", err)
		}
		if !d.Equal(NewDate(2026, 1, 5)) {
			t.Errorf("Unmarshal = %v, want 2026-01-05", d)
		}
	})

	t.Run("unmarshal rfc3339 timestamp truncates to day", func(t *testing.T) {
		var d Date
		if err := json.Unmarshal([]byte(`"2026-01-05T18:30:00Z"`), &d); err != nil {
			t.Fatalf("Unmarshal: %v", err)
		}
		if !d.Equal(NewDate(2026, 1, 5)) {
			t.Errorf("Unmarshal = %v, want 2026-01-05", d)
		}
	})

	t.Run("unmarshal null", func(t *testing.T) {
		var d Date
		if err := json.Unmarshal([]byte("null"), &d); err != nil {
			t.Fatalf("Unmarshal: %v", err)
		}
		if !d.IsZero() {
			t.Errorf("Unmarshal(null) = %v, want zero", d)
		}
	})
}

func TestParseTransactionType(t *testing.T) {
	tests := []struct {
		input string
		want  TransactionType
	}{
		{"ingreso", Ingreso},
		{"gasto", Gasto},
		{"inversion", Inversion},
		{"suscripcion", Suscripcion},
		{"INGRESO", Ingreso},
		{"  Gasto  ", Gasto},
		{"expense", Gasto},
		{"", Gasto},
		{"nonsense", Gasto},
	}

	for _, tt := range tests {
		t.Run(tt.input, func(t *testing.T) {
			if got := ParseTransactionType(tt.input); got != tt.want {
				t.Errorf("ParseTransactionType(%q) = %q, want %q", tt.input, got, tt.want)
			}
		})
	}
}

func TestTransaction_Validate(t *testing.T) {
	valid := Transaction{
		Amount:      150,
		Description: "Uber",
		Category:    "Transporte",
		Type:        Gasto,
		Date:        NewDate(2026, 8, 20),
	}

	tests := []struct {
		name    string
		mutate  func(*Transaction)
		wantErr error
	}{
		{name: "valid", mutate: func(tx *Transaction) {}},
		{name: "zero amount", mutate: func(tx *Transaction) { tx.Amount = 0 }, wantErr: ErrInvalidAmount},
		{name: "negative amount", mutate: func(tx *Transaction) { tx.Amount = -10 }, wantErr: ErrInvalidAmount},
		{name: "blank description", mutate: func(tx *Transaction) { tx.Description = "   " }, wantErr: ErrEmptyDescription},
		{name: "blank category", mutate: func(tx *Transaction) { tx.Category = "" }, wantErr: ErrEmptyCategory},
		{name: "unknown type", mutate: func(tx *Transaction) { tx.Type = "prestamo" }, wantErr: ErrInvalidType},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			tx := valid
			tt.mutate(&tx)

			err := tx.Validate()
			if tt.wantErr == nil {
				if err != nil {
					t.Errorf("Validate() unexpected error: %v", err)
				}
				return
			}
			if !errors.Is(err, tt.wantErr) {
				t.Errorf("Validate() = %v, want %v", err, tt.wantErr)
			}
		})
	}
}

func TestTransactionPatch_IsEmpty(t *testing.T) {
	if !(TransactionPatch{}).IsEmpty() {
		t.Error("empty patch should report IsEmpty")
	}

	amount := 500.0
	if (TransactionPatch{Amount: &amount}).IsEmpty() {
		t.Error("patch with amount should not report IsEmpty")
	}

	status := Pagado
	if (TransactionPatch{PaymentStatus: &status}).IsEmpty() {
		t.Error("patch with status should not report IsEmpty")
	}
}

func TestConversationContext_Append(t *testing.T) {
	now := time.Now()

	t.Run("tracks last transaction", func(t *testing.T) {
		var cc ConversationContext
		cc.Append("Gasté 150 en Uber", 7, now)
		cc.Append("Gasté 200 en comida", 8, now)

		if cc.LastTransactionID != 8 {
			t.Errorf("LastTransactionID = %d, want 8", cc.LastTransactionID)
		}
		if len(cc.History) != 2 {
			t.Errorf("len(History) = %d, want 2", len(cc.History))
		}
	})

	t.Run("evicts oldest beyond limit", func(t *testing.T) {
		var cc ConversationContext
		for i := 1; i <= ContextHistoryLimit+3; i++ {
			cc.Append("msg", int64(i), now)
		}

		if len(cc.History) != ContextHistoryLimit {
			t.Fatalf("len(History) = %d, want %d", len(cc.History), ContextHistoryLimit)
		}
		if cc.History[0].TransactionID != 4 {
			t.Errorf("oldest entry = %d, want 4", cc.History[0].TransactionID)
		}
		if cc.History[len(cc.History)-1].TransactionID != int64(ContextHistoryLimit+3) {
			t.Errorf("newest entry = %d, want %d", cc.History[len(cc.History)-1].TransactionID, ContextHistoryLimit+3)
		}
	})
}
