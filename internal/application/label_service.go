package application

import (
	"context"
	"errors"
	"fmt"

	"github.com/Upcasted/optimus-courier/internal/domain"
	"github.com/Upcasted/optimus-courier/internal/infrastructure/labels"
	"github.com/Upcasted/optimus-courier/pkg/logging"
	"github.com/Upcasted/optimus-courier/pkg/metrics"
)

// ErrNoLabels is returned when not a single label could be produced
var ErrNoLabels = errors.New("niciun AWB nu a putut fi descărcat")

const (
	mergedFilename = "merged-awb.pdf"
	zipFilename    = "awb-files.zip"
)

// LabelService downloads label PDFs and lays them out on label-sized pages
type LabelService struct {
	orders    domain.OrderRepository
	courier   domain.CourierClient
	assembler *labels.Assembler
	logger    *logging.Logger
	metrics   *metrics.Metrics
}

// NewLabelService creates a new LabelService
func NewLabelService(orders domain.OrderRepository, courier domain.CourierClient, assembler *labels.Assembler, logger *logging.Logger, m *metrics.Metrics) *LabelService {
	return &LabelService{
		orders:    orders,
		courier:   courier,
		assembler: assembler,
		logger:    logger.WithComponent("label-service"),
		metrics:   m,
	}
}

// MergeLabels places every page of every waybill in one PDF. Waybills that fail to download are skipped.
func (s *LabelService) MergeLabels(ctx context.Context, awbIDs []string) (*LabelFile, error) {
	var sources []labels.Source
	var missing []string
	for _, id := range awbIDs {
		data, err := s.courier.GetWaybillPDF(ctx, id)
		if err != nil {
			s.logger.WithContext(ctx).WithError(err).Warn("Label download failed", "awbNumber", id)
			missing = append(missing, id)
			continue
		}
		sources = append(sources, labels.Source{Name: id, Data: data})
	}

	if len(sources) == 0 {
		return nil, ErrNoLabels
	}

	doc, err := s.assembler.Assemble(sources)
	if errors.Is(err, labels.ErrNoPages) {
		return nil, ErrNoLabels
	}
	if err != nil {
		return nil, fmt.Errorf("failed to merge labels: %w", err)
	}

	s.metrics.RecordLabelsAssembled("merged")
	return &LabelFile{
		Filename:    mergedFilename,
		ContentType: ContentTypePDF,
		Data:        doc.Data,
		Pages:       doc.Pages,
		Missing:     missing,
	}, nil
}

// MergeLabelsForOrders merges the first waybill of each order that has one
func (s *LabelService) MergeLabelsForOrders(ctx context.Context, orderIDs []string) (*LabelFile, error) {
	var awbIDs []string
	err := s.eachOrder(ctx, orderIDs, func(order *domain.Order) {
		awbIDs = append(awbIDs, order.FirstAWB())
	})
	if err != nil {
		return nil, err
	}
	return s.MergeLabels(ctx, awbIDs)
}

// ZipLabelsForOrders packages every waybill of every order as its own laid-out PDF
func (s *LabelService) ZipLabelsForOrders(ctx context.Context, orderIDs []string) (*LabelFile, error) {
	var awbIDs []string
	err := s.eachOrder(ctx, orderIDs, func(order *domain.Order) {
		awbIDs = append(awbIDs, order.AWBNumbers()...)
	})
	if err != nil {
		return nil, err
	}

	var files []labels.File
	var missing []string
	for _, id := range awbIDs {
		doc, err := s.singleLabel(ctx, id)
		if err != nil {
			s.logger.WithContext(ctx).WithError(err).Warn("Label skipped from archive", "awbNumber", id)
			missing = append(missing, id)
			continue
		}
		files = append(files, labels.File{Name: "awb-" + id + ".pdf", Data: doc.Data})
	}

	if len(files) == 0 {
		return nil, ErrNoLabels
	}

	archive, err := labels.Package(files)
	if err != nil {
		return nil, fmt.Errorf("failed to package labels: %w", err)
	}

	s.metrics.RecordLabelsAssembled("zip")
	return &LabelFile{
		Filename:    zipFilename,
		ContentType: ContentTypeZip,
		Data:        archive,
		Pages:       len(files),
		Missing:     missing,
	}, nil
}

// DownloadSingleLabel returns one waybill laid out on label pages, for inline display
func (s *LabelService) DownloadSingleLabel(ctx context.Context, awbID string) (*LabelFile, error) {
	doc, err := s.singleLabel(ctx, awbID)
	if err != nil {
		return nil, err
	}

	s.metrics.RecordLabelsAssembled("single")
	return &LabelFile{
		Filename:    "awb-" + awbID + ".pdf",
		ContentType: ContentTypePDF,
		Inline:      true,
		Data:        doc.Data,
		Pages:       doc.Pages,
	}, nil
}

// singleLabel surfaces courier errors as is; an unusable PDF becomes ErrNoLabels
func (s *LabelService) singleLabel(ctx context.Context, awbID string) (*labels.Document, error) {
	data, err := s.courier.GetWaybillPDF(ctx, awbID)
	if err != nil {
		return nil, err
	}

	doc, err := s.assembler.Assemble([]labels.Source{{Name: awbID, Data: data}})
	if errors.Is(err, labels.ErrNoPages) {
		return nil, ErrNoLabels
	}
	if err != nil {
		return nil, fmt.Errorf("failed to lay out label %s: %w", awbID, err)
	}
	return doc, nil
}

// eachOrder visits the orders that exist and carry a waybill
func (s *LabelService) eachOrder(ctx context.Context, orderIDs []string, fn func(*domain.Order)) error {
	for _, id := range orderIDs {
		order, err := s.orders.FindByID(ctx, id)
		if err != nil {
			return fmt.Errorf("failed to load order %s: %w", id, err)
		}
		if order == nil || !order.HasAWB() {
			continue
		}
		fn(order)
	}
	return nil
}
