// Package storeutils is the fact store factory package
package storeutils

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/papercomputeco/engram/pkg/store"
	"github.com/papercomputeco/engram/pkg/store/postgres"
	"github.com/papercomputeco/engram/pkg/store/sqlite"
)

type NewDriverOpts struct {
	Provider    string
	SQLitePath  string
	PostgresURL string
	Dimensions  int
	Logger      *slog.Logger
}

func NewDriver(ctx context.Context, o *NewDriverOpts) (store.Driver, error) {
	switch o.Provider {
	case "sqlite":
		return sqlite.NewDriver(sqlite.Config{
			DBPath:     o.SQLitePath,
			Dimensions: o.Dimensions,
		}, o.Logger)
	case "postgres":
		return postgres.NewDriver(ctx, postgres.Config{
			URL:        o.PostgresURL,
			Dimensions: o.Dimensions,
		}, o.Logger)
	default:
		return nil, fmt.Errorf("unsupported store provider: %s", o.Provider)
	}
}
