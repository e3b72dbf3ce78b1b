package readmodel

import (
	"context"
	"testing"

	"github.com/Shivanand-hulikatti/ticketing-projections/internal/model"
)

func TestMemoryCollectionGetPut(t *testing.T) {
	ctx := context.Background()
	c := NewMemoryCollection[model.EventMetrics]()

	if _, ok, err := c.Get(ctx, "e1"); err != nil || ok {
		t.Fatalf("Get on empty = ok:%v err:%v", ok, err)
	}

	in := model.EventMetrics{EventID: "e1", Title: "Show", CouponUsage: map[string]int{"A": 1}}
	if err := c.Put(ctx, "e1", in); err != nil {
		t.Fatalf("Put: %v", err)
	}
	in.CouponUsage["A"] = 50

	got, ok, err := c.Get(ctx, "e1")
	if err != nil || !ok {
		t.Fatalf("Get = ok:%v err:%v", ok, err)
	}
	if got.Title != "Show" || got.CouponUsage["A"] != 1 {
		t.Errorf("got %+v; store must not alias caller maps", got)
	}

	got.CouponUsage["A"] = 7
	again, _, _ := c.Get(ctx, "e1")
	if again.CouponUsage["A"] != 1 {
		t.Errorf("returned record aliases stored state")
	}
	if c.Len() != 1 {
		t.Errorf("Len = %d", c.Len())
	}
}

func TestMemoryCollectionHonoursContext(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	c := NewMemoryCollection[model.DailySalesReport]()
	if err := c.Put(ctx, "2026-03-01", model.DailySalesReport{}); err == nil {
		t.Errorf("Put with cancelled context succeeded")
	}
}

func TestMemoryDeduper(t *testing.T) {
	ctx := context.Background()
	d := NewMemoryDeduper()
	if seen, _ := d.Seen(ctx, "m1"); seen {
		t.Fatalf("fresh deduper reports m1 seen")
	}
	_ = d.Mark(ctx, "m1")
	if seen, _ := d.Seen(ctx, "m1"); !seen {
		t.Errorf("m1 not seen after Mark")
	}
}
