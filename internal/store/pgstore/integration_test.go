//go:build integration

package pgstore

import (
	"context"
	"os"
	"testing"

	"github.com/anatolykoptev/go_edunote/internal/store"
	"github.com/anatolykoptev/go_edunote/internal/store/storetest"
)

func TestConformance(t *testing.T) {
	dsn := os.Getenv("DATABASE_URL")
	if dsn == "" {
		t.Skip("DATABASE_URL not set")
	}
	storetest.Run(t, func(t *testing.T) store.Store {
		ctx := context.Background()
		s, err := Connect(ctx, dsn)
		if err != nil {
			t.Fatalf("Connect: %v", err)
		}
		if err := s.Reset(ctx); err != nil {
			t.Fatalf("Reset: %v", err)
		}
		return s
	})
}
