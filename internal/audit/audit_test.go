package audit

import (
	"context"
	"testing"
	"time"

	"github.com/Shivanand-hulikatti/ticketing-projections/internal/model"
)

func TestMemoryForEntityNewestFirst(t *testing.T) {
	ctx := context.Background()
	m := NewMemory()
	base := time.Date(2026, 3, 1, 0, 0, 0, 0, time.UTC)
	for i, id := range []string{"e1", "e2", "e1", "e1"} {
		_ = m.Append(ctx, model.AuditLogEntry{
			ID:        string(rune('a' + i)),
			EntityID:  id,
			Timestamp: base.Add(time.Duration(i) * time.Minute),
		})
	}

	got, err := m.ForEntity(ctx, "e1", 2)
	if err != nil {
		t.Fatal(err)
	}
	if len(got) != 2 || got[0].ID != "d" || got[1].ID != "c" {
		t.Errorf("got %+v", got)
	}
	if len(m.Entries()) != 4 {
		t.Errorf("Entries = %d", len(m.Entries()))
	}
}
