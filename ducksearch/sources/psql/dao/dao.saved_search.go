// ducksearch/sources/psql/dao/dao.saved_search.go
package dao

import (
	"context"

	"ducksearch/ducksearch/sources/psql/models"

	"gorm.io/gorm"
)

type SavedSearchDAO struct {
	DB *gorm.DB
}

func NewSavedSearchDAO(db *gorm.DB) *SavedSearchDAO {
	return &SavedSearchDAO{DB: db}
}

func (dao *SavedSearchDAO) Create(ctx context.Context, s *models.SavedSearch) error {
	return dao.DB.WithContext(ctx).Create(s).Error
}

// ListRecent returns at most limit rows, newest first.
func (dao *SavedSearchDAO) ListRecent(ctx context.Context, limit int) ([]models.SavedSearch, error) {
	var rows []models.SavedSearch
	err := dao.DB.WithContext(ctx).Order("created_at desc").Limit(limit).Find(&rows).Error
	if err != nil {
		return nil, err
	}
	return rows, nil
}
