package service

import (
	"context"
	"errors"

	"go.uber.org/zap"

	appErrors "github.com/noah-isme/attendance-tracker/pkg/errors"
)

type resettable interface {
	Reset(ctx context.Context) error
}

// ClearDataRequest must carry Confirm=true for ClearAll to proceed.
type ClearDataRequest struct {
	Confirm bool `json:"confirm"`
}

// DataService wipes every persisted collection.
type DataService struct {
	stores []resettable
	logger *zap.Logger
}

// NewDataService builds a DataService over the given stores.
func NewDataService(logger *zap.Logger, stores ...resettable) *DataService {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &DataService{stores: stores, logger: logger}
}

// ClearAll resets every store once explicitly confirmed. Each store is
// attempted even if an earlier one fails.
func (s *DataService) ClearAll(ctx context.Context, req ClearDataRequest) error {
	if !req.Confirm {
		return appErrors.Clone(appErrors.ErrConfirmationRequired, "set confirm to true to clear all data")
	}

	var errs []error
	for _, store := range s.stores {
		if err := store.Reset(ctx); err != nil {
			errs = append(errs, err)
		}
	}
	if len(errs) > 0 {
		err := errors.Join(errs...)
		s.logger.Error("failed to clear data", zap.Error(err))
		return appErrors.WrapAs(appErrors.ErrStorageWrite, err, "failed to clear data")
	}
	s.logger.Info("all data cleared")
	return nil
}
