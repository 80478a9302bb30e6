//go:build integration

package mongo_test

import (
	"context"
	"log/slog"
	"testing"

	"github.com/testcontainers/testcontainers-go/modules/mongodb"

	"github.com/xraph/ledgerwork/id"
	"github.com/xraph/ledgerwork/store"
	mongostore "github.com/xraph/ledgerwork/store/mongo"
	"github.com/xraph/ledgerwork/store/storetest"
)

// setupContainer starts one MongoDB container for the whole test and
// returns its connection URI.
func setupContainer(t *testing.T) string {
	t.Helper()

	ctx := context.Background()
	container, err := mongodb.Run(ctx, "mongo:7")
	if err != nil {
		t.Fatalf("start mongo container: %v", err)
	}
	t.Cleanup(func() {
		if termErr := container.Terminate(ctx); termErr != nil {
			t.Logf("terminate container: %v", termErr)
		}
	})

	uri, err := container.ConnectionString(ctx)
	if err != nil {
		t.Fatalf("get connection string: %v", err)
	}
	return uri
}

func TestConformance(t *testing.T) {
	uri := setupContainer(t)

	storetest.Run(t, func(t *testing.T) store.Store {
		ctx := context.Background()
		// A database per subtest keeps the suite's cases isolated.
		s, err := mongostore.Open(ctx, uri, "ledgerwork_"+id.NewPassID().String(),
			mongostore.WithLogger(slog.Default()))
		if err != nil {
			t.Fatalf("open: %v", err)
		}
		t.Cleanup(func() {
			_ = s.DB().Drop(context.Background())
			_ = s.Close()
		})
		if err := s.Migrate(ctx); err != nil {
			t.Fatalf("migrate: %v", err)
		}
		return s
	})
}
