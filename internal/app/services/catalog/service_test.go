package catalog

import (
	"context"
	"math"
	"testing"

	"github.com/R3E-Network/calcstore/internal/app/domain/item"
	"github.com/R3E-Network/calcstore/internal/app/storage/memory"
	"github.com/R3E-Network/calcstore/internal/apperrors"
)

func TestService(t *testing.T) {
	svc := New(memory.New(), nil)
	ctx := context.Background()

	pen, err := svc.Create(ctx, "pen", 3)
	if err != nil {
		t.Fatalf("create: %v", err)
	}
	if pen != (item.Item{ID: 1, Name: "pen", Price: 3}) {
		t.Fatalf("unexpected item: %+v", pen)
	}

	ink, err := svc.Create(ctx, "ink", 12)
	if err != nil {
		t.Fatalf("create: %v", err)
	}
	if ink.ID <= pen.ID {
		t.Fatalf("expected increasing ids, got %d after %d", ink.ID, pen.ID)
	}

	first, err := svc.List(ctx)
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	second, err := svc.List(ctx)
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if len(first) != 2 || first[0] != pen || first[1] != ink {
		t.Fatalf("unexpected list: %+v", first)
	}
	for i := range first {
		if first[i] != second[i] {
			t.Fatalf("list not stable: %+v vs %+v", first, second)
		}
	}
}

func TestCreateRejectsOutOfRangePrice(t *testing.T) {
	svc := New(memory.New(), nil)
	_, err := svc.Create(context.Background(), "yacht", math.MaxInt32+1)
	if apperrors.KindOf(err) != apperrors.KindValidation {
		t.Fatalf("expected validation error, got %v", err)
	}
}
