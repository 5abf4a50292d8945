package services

import (
	"context"
	"testing"

	"gastobot/internal/core"
	"gastobot/internal/store/memory"
)

func TestContextService_RecordAndLookup(t *testing.T) {
	st := memory.New()
	svc := NewContextService(st)
	ctx := context.Background()
	phone := "+5215550001"

	if _, ok, err := svc.LastTransactionID(ctx, phone); err != nil || ok {
		t.Fatalf("fresh sender: LastTransactionID = (ok=%v, err=%v), want no context", ok, err)
	}

	if err := svc.Record(ctx, phone, "Gasté 150 en Uber", 7); err != nil {
		t.Fatalf("Record: %v", err)
	}
	if err := svc.Record(ctx, phone, "Gasté 80 en café", 9); err != nil {
		t.Fatalf("Record: %v", err)
	}

	id, ok, err := svc.LastTransactionID(ctx, phone)
	if err != nil || !ok {
		t.Fatalf("LastTransactionID = (ok=%v, err=%v), want context", ok, err)
	}
	if id != 9 {
		t.Errorf("LastTransactionID = %d, want 9", id)
	}

	cc, err := st.GetContext(ctx, phone)
	if err != nil {
		t.Fatalf("GetContext: %v", err)
	}
	if len(cc.History) != 2 {
		t.Errorf("len(History) = %d, want 2", len(cc.History))
	}
}

func TestContextService_HistoryEviction(t *testing.T) {
	st := memory.New()
	svc := NewContextService(st)
	ctx := context.Background()
	phone := "+5215550001"

	for i := 1; i <= core.ContextHistoryLimit+5; i++ {
		if err := svc.Record(ctx, phone, "msg", int64(i)); err != nil {
			t.Fatalf("Record: %v", err)
		}
	}

	cc, err := st.GetContext(ctx, phone)
	if err != nil {
		t.Fatalf("GetContext: %v", err)
	}
	if len(cc.History) != core.ContextHistoryLimit {
		t.Errorf("len(History) = %d, want %d", len(cc.History), core.ContextHistoryLimit)
	}
	if cc.LastTransactionID != int64(core.ContextHistoryLimit+5) {
		t.Errorf("LastTransactionID = %d, want %d", cc.LastTransactionID, core.ContextHistoryLimit+5)
	}
}

func TestContextService_SendersAreIsolated(t *testing.T) {
	st := memory.New()
	svc := NewContextService(st)
	ctx := context.Background()

	if err := svc.Record(ctx, "+521111", "gasto uno", 1); err != nil {
		t.Fatalf("Record: %v", err)
	}
	if err := svc.Record(ctx, "+522222", "gasto dos", 2); err != nil {
		t.Fatalf("Record: %v", err)
	}

	id, ok, err := svc.LastTransactionID(ctx, "+521111")
	if err != nil || !ok || id != 1 {
		t.Errorf("sender one: (id=%d, ok=%v, err=%v), want id 1", id, ok, err)
	}
	id, ok, err = svc.LastTransactionID(ctx, "+522222")
	if err != nil || !ok || id != 2 {
		t.Errorf("sender two: (id=%d, ok=%v, err=%v), want id 2", id, ok, err)
	}
}
