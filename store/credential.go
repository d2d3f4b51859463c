package store

import (
	"context"
	"errors"
	"fmt"

	"github.com/K3das/orange-scribe/credential"
	"github.com/K3das/orange-scribe/store/db"
	"github.com/jackc/pgx/v5"
	"go.uber.org/zap"
)

var _ credential.Store = (*Store)(nil)

// GetCredential returns the stored API key. Any failure is logged and
// reported as an absent key.
func (s *Store) GetCredential(ctx context.Context) (string, bool) {
	setting, err := s.GetSetting(ctx, credential.StorageKey)
	if errors.Is(err, pgx.ErrNoRows) {
		s.log.Debug("no credential stored")
		return "", false
	} else if err != nil {
		s.log.Error("failed to read credential", zap.Error(err))
		return "", false
	}

	if setting.Value == "" {
		return "", false
	}
	return setting.Value, true
}

func (s *Store) SetCredential(ctx context.Context, value string) error {
	err := s.UpsertSetting(ctx, db.UpsertSettingParams{
		Key:   credential.StorageKey,
		Value: value,
	})
	if err != nil {
		return fmt.Errorf("writing credential: %w", err)
	}
	return nil
}
