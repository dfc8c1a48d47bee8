package memory_test

import (
	"context"
	"errors"
	"fmt"
	"testing"
	"time"

	"github.com/artpar/rewardctl/adapters/memory"
	"github.com/artpar/rewardctl/ports"
)

func seed(t *testing.T, store *memory.JournalStore) {
	t.Helper()
	base := time.Date(2024, 3, 1, 12, 0, 0, 0, time.UTC)
	entries := []ports.JournalEntry{
		{ID: "j1", TypeURL: "/rewardchain.rewardchain.MsgCreatePartner", Status: ports.TxStatusCommitted, CreatedAt: base},
		{ID: "j2", TypeURL: "/rewardchain.rewardchain.MsgSwap", Status: ports.TxStatusFailed, CreatedAt: base.Add(time.Minute)},
		{ID: "j3", TypeURL: "/rewardchain.rewardchain.MsgSwap", Status: ports.TxStatusCommitted, CreatedAt: base.Add(2 * time.Minute)},
	}
	for _, e := range entries {
		if err := store.Record(context.Background(), e); err != nil {
			t.Fatalf("Record(%s) error = %v", e.ID, err)
		}
	}
}

func TestJournalStore_RecordGet(t *testing.T) {
	store := memory.NewJournalStore()
	ctx := context.Background()

	if err := store.Record(ctx, ports.JournalEntry{ID: "j1", TxHash: "ABC"}); err != nil {
		t.Fatal(err)
	}
	e, err := store.Get(ctx, "j1")
	if err != nil {
		t.Fatalf("Get error = %v", err)
	}
	if e.TxHash != "ABC" || e.Payload != "{}" {
		t.Errorf("Get = %+v", e)
	}

	if _, err := store.Get(ctx, "nope"); !errors.Is(err, memory.ErrNotFound) {
		t.Errorf("Get missing error = %v, want ErrNotFound", err)
	}
	if err := store.Record(ctx, ports.JournalEntry{ID: "j1"}); err == nil {
		t.Error("expected error for duplicate id")
	}
	if err := store.Record(ctx, ports.JournalEntry{}); err == nil {
		t.Error("expected error for empty id")
	}
}

func TestJournalStore_List(t *testing.T) {
	store := memory.NewJournalStore()
	seed(t, store)
	ctx := context.Background()

	tests := []struct {
		name    string
		filter  ports.JournalFilter
		wantIDs []string
		total   int
	}{
		{"all newest first", ports.JournalFilter{}, []string{"j3", "j2", "j1"}, 3},
		{"by type", ports.JournalFilter{TypeURL: "/rewardchain.rewardchain.MsgSwap"}, []string{"j3", "j2"}, 2},
		{"by status", ports.JournalFilter{Status: ports.TxStatusFailed}, []string{"j2"}, 1},
		{"paged", ports.JournalFilter{Limit: 1, Offset: 1}, []string{"j2"}, 3},
		{"past end", ports.JournalFilter{Offset: 5}, []string{}, 3},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := store.List(ctx, tt.filter)
			if err != nil {
				t.Fatal(err)
			}
			ids := make([]string, len(got))
			for i, e := range got {
				ids[i] = e.ID
			}
			if fmt.Sprint(ids) != fmt.Sprint(tt.wantIDs) {
				t.Errorf("List ids = %v, want %v", ids, tt.wantIDs)
			}
			n, _ := store.Count(ctx, tt.filter)
			if n != tt.total {
				t.Errorf("Count = %d, want %d", n, tt.total)
			}
		})
	}
}
