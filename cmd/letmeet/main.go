package main

import (
	"log/slog"

	"github.com/ahmedasif11/let-meet-sub000/internal/cli"
	"github.com/ahmedasif11/let-meet-sub000/internal/logging"
)

func main() {
	logging.Init(slog.LevelWarn)
	cli.Execute()
}
