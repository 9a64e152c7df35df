package controllers

import (
	"context"
	"errors"
	"time"

	"ducksearch/ducksearch/sources/psql/models"
	"ducksearch/ducksearch/sources/storage"
	"ducksearch/ducksearch/utils/errs"
	"ducksearch/ducksearch/utils/logging"
	"ducksearch/ducksearch/utils/types"

	"go.uber.org/zap"
)

const saveOp = "save"

// ErrNoDatabase is returned by ListSaved when no database is configured.
var ErrNoDatabase = errors.New("saved search log is not configured")

type ResultUploader interface {
	UploadResults(ctx context.Context, filename string, data []byte) (string, error)
}

type SavedSearchStore interface {
	Create(ctx context.Context, s *models.SavedSearch) error
	ListRecent(ctx context.Context, limit int) ([]models.SavedSearch, error)
}

type SaveController struct {
	files    *storage.FileStore
	uploader ResultUploader
	log      SavedSearchStore
	now      func() time.Time
}

// NewSaveController takes optional uploader and log; pass nil to disable them.
func NewSaveController(files *storage.FileStore, uploader ResultUploader, log SavedSearchStore) *SaveController {
	return &SaveController{files: files, uploader: uploader, log: log, now: time.Now}
}

// Save writes the results file. The object store upload and the database row
// are best effort: their failures are logged and do not fail the save.
func (c *SaveController) Save(ctx context.Context, req types.SaveRequest) (*types.SaveResponse, error) {
	if len(req.Results) == 0 {
		return nil, errs.Invalid(saveOp, "no results to save")
	}
	filename := storage.SanitizeFilename(req.Filename, c.now())
	data, err := storage.EncodeResults(req.Results)
	if err != nil {
		return nil, err
	}
	path, err := c.files.Write(filename, data)
	if err != nil {
		return nil, err
	}
	resp := &types.SaveResponse{Success: true, Filename: filename, Filepath: path}

	if c.uploader != nil {
		key, err := c.uploader.UploadResults(ctx, filename, data)
		if err != nil {
			logging.ErrorLogger.Error("upload saved results", zap.String("filename", filename), zap.Error(err))
		} else {
			resp.ObjectKey = key
		}
	}

	if c.log != nil {
		row := &models.SavedSearch{
			Filename:  filename,
			Location:  path,
			ObjectKey: resp.ObjectKey,
			Query:     req.Query,
			Category:  req.Category,
			Count:     len(req.Results),
		}
		if err := c.log.Create(ctx, row); err != nil {
			logging.ErrorLogger.Error("record saved search", zap.String("filename", filename), zap.Error(err))
		}
	}

	logging.AppLogger.Info("results saved",
		zap.String("filename", filename),
		zap.Int("count", len(req.Results)),
		zap.String("object_key", resp.ObjectKey))
	return resp, nil
}

func (c *SaveController) ListSaved(ctx context.Context, limit int) ([]models.SavedSearch, error) {
	if c.log == nil {
		return nil, ErrNoDatabase
	}
	return c.log.ListRecent(ctx, limit)
}
