// Package service implements the administrative operations of the gateway
// configuration store. Each exported method is one logical CLI operation and
// runs inside a single transaction: it either fully applies or leaves the
// store untouched.
package service

import (
	"log/slog"

	"guacaman/internal/db"
)

type Service struct {
	store *db.Store
	log   *slog.Logger
}

func New(store *db.Store, log *slog.Logger) *Service {
	if log == nil {
		log = slog.Default()
	}
	return &Service{store: store, log: log}
}
