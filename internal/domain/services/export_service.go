package services

import (
	"context"
	"fmt"
	"io"
	"time"

	"github.com/ak/oms/internal/domain/models"
	"github.com/ak/oms/internal/domain/repositories"
	"github.com/ak/oms/internal/infrastructure/export"
	"github.com/ak/oms/internal/pkg/logger"
	"go.uber.org/zap"
)

// ExportService renders courier manifests from the order source
type ExportService interface {
	Manifest(ctx context.Context, req ManifestRequest, w io.Writer) (export.Result, error)
}

type ManifestRequest struct {
	Courier export.Courier
	Status  models.OrderStatus // zero means confirmed
	Date    *time.Time         // delivery date; nil means any
}

type ExportSettings struct {
	CSVEncoding string
	Sender      export.Sender
	Location    *time.Location
}

type exportService struct {
	orders   OrderService
	settings ExportSettings
	logger   *logger.Logger
}

func NewExportService(orders OrderService, settings ExportSettings, log *logger.Logger) ExportService {
	if settings.Location == nil {
		settings.Location = time.UTC
	}
	return &exportService{
		orders:   orders,
		settings: settings,
		logger:   log.WithComponent("export-service"),
	}
}

func (s *exportService) Manifest(ctx context.Context, req ManifestRequest, w io.Writer) (export.Result, error) {
	writer, err := export.NewWriter(req.Courier, s.settings.CSVEncoding, s.logger)
	if err != nil {
		return export.Result{}, fmt.Errorf("%w: %v", ErrValidation, err)
	}

	status := req.Status
	if status == "" {
		status = models.OrderStatusConfirmed
	}

	// Manifests go to couriers, so they never come from a stale snapshot
	orders, err := s.orders.Fetch(ctx, repositories.TimeWindow{})
	if err != nil {
		return export.Result{}, err
	}

	selected := s.selectOrders(orders, status, req.Date)
	rows := export.BuildRows(selected, s.settings.Location)

	result, err := writer.Write(w, rows, s.settings.Sender)
	if err != nil {
		return export.Result{}, fmt.Errorf("failed to write manifest: %w", err)
	}

	s.logger.Info("Manifest exported",
		zap.String("courier", string(req.Courier)),
		zap.String("batch_id", result.BatchID),
		zap.Int("rows", result.Rows),
		zap.String("encoding", result.Encoding),
	)
	return result, nil
}

func (s *exportService) selectOrders(orders []*models.Order, status models.OrderStatus, date *time.Time) []*models.Order {
	var day string
	if date != nil {
		day = date.In(s.settings.Location).Format("2006-01-02")
	}

	selected := make([]*models.Order, 0, len(orders))
	for _, o := range orders {
		if o == nil || o.Status != status {
			continue
		}
		if day != "" {
			if o.DeliveryDate == nil || o.DeliveryDate.In(s.settings.Location).Format("2006-01-02") != day {
				continue
			}
		}
		selected = append(selected, o)
	}
	return selected
}
