package storage

import (
	"context"

	"github.com/google/uuid"
	appmanifest "github.com/manifest/backend/internal/application/manifest"
)

// NopArchive discards payloads. It is used when storage is disabled.
type NopArchive struct{}

// ArchiveBatchPayload does nothing
func (NopArchive) ArchiveBatchPayload(context.Context, uuid.UUID, string, []byte) error {
	return nil
}

var _ appmanifest.PayloadArchive = NopArchive{}
