package duckdb

import (
	"log/slog"

	"github.com/leapstack-labs/ansfeed/pkg/adapter"
)

func init() {
	adapter.Register("duckdb", func(l *slog.Logger) adapter.Adapter { return New(l) })
}
