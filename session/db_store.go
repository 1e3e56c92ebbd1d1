package session

import (
	"errors"
	"fmt"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"nourish/models"
)

// DBStore keeps the credential in the session database so it survives
// restarts. Several processes may share the file; the last write wins.
type DBStore struct {
	db *gorm.DB
}

func NewDBStore(db *gorm.DB) *DBStore { return &DBStore{db: db} }

func (s *DBStore) Get() (*models.Credential, error) {
	var rows []models.TokenRecord
	err := s.db.
		Where("key IN ?", []string{models.TokenKey, models.RefreshTokenKey}).
		Find(&rows).Error
	if err != nil {
		return nil, fmt.Errorf("session: load tokens: %w", err)
	}

	var cred models.Credential
	for _, r := range rows {
		switch r.Key {
		case models.TokenKey:
			cred.AccessToken = r.Value
		case models.RefreshTokenKey:
			cred.RefreshToken = r.Value
		}
	}
	if cred.AccessToken == "" {
		return nil, nil
	}
	return &cred, nil
}

func (s *DBStore) Set(accessToken, refreshToken string) error {
	if accessToken == "" {
		return errors.New("session: empty access token")
	}
	return s.db.Transaction(func(tx *gorm.DB) error {
		if err := upsert(tx, models.TokenKey, accessToken); err != nil {
			return err
		}
		if refreshToken == "" {
			return tx.Where("key = ?", models.RefreshTokenKey).Delete(&models.TokenRecord{}).Error
		}
		return upsert(tx, models.RefreshTokenKey, refreshToken)
	})
}

func (s *DBStore) SetAccess(accessToken string) error {
	if accessToken == "" {
		return errors.New("session: empty access token")
	}
	return upsert(s.db, models.TokenKey, accessToken)
}

func (s *DBStore) Clear() error {
	err := s.db.
		Where("key IN ?", []string{models.TokenKey, models.RefreshTokenKey}).
		Delete(&models.TokenRecord{}).Error
	if err != nil {
		return fmt.Errorf("session: clear tokens: %w", err)
	}
	return nil
}

func upsert(db *gorm.DB, key, value string) error {
	rec := models.TokenRecord{Key: key, Value: value}
	err := db.Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "key"}},
		DoUpdates: clause.AssignmentColumns([]string{"value", "updated_at"}),
	}).Create(&rec).Error
	if err != nil {
		return fmt.Errorf("session: store %s: %w", key, err)
	}
	return nil
}
