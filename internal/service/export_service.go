package service

import (
	"context"
	"strconv"
	"time"

	"go.uber.org/zap"

	"github.com/SiPilip/gathering-api/internal/models"
	appErrors "github.com/SiPilip/gathering-api/pkg/errors"
	"github.com/SiPilip/gathering-api/pkg/export"
)

const (
	exportFilePrefix = "data_pendaftaran"
	exportPageSize   = 100
)

var registrationExportHeaders = []string{
	"ID",
	"Tipe",
	"Nama Pendaftar",
	"No HP",
	"Kategori Umur (Individu)",
	"Jml Anggota",
	"Tagihan",
	"Terbayar",
	"Status",
	"Tanggal Daftar",
	"Sumber Input",
}

// RegistrationPDFOptions lays out the registration table for PDF exports.
func RegistrationPDFOptions() []export.PDFOption {
	return []export.PDFOption{
		export.WithColumnWeights(map[string]float64{
			"ID":                       2.4,
			"Nama Pendaftar":           2,
			"Kategori Umur (Individu)": 1.4,
			"Jml Anggota":              0.8,
			"Tanggal Daftar":           1.4,
		}),
		export.WithRightAligned("Jml Anggota", "Tagihan", "Terbayar"),
	}
}

type registrationLister interface {
	List(ctx context.Context, filter models.RegistrationFilter) ([]models.RegistrationDetail, int, error)
}

type csvRenderer interface {
	Render(data export.Dataset) ([]byte, error)
}

type pdfRenderer interface {
	Render(data export.Dataset, title string) ([]byte, error)
}

// ExportConfig tunes export behaviour.
type ExportConfig struct {
	Title    string
	Location *time.Location
}

// ExportResult is a rendered export ready to be streamed to the client.
type ExportResult struct {
	FileName    string
	ContentType string
	Payload     []byte
	Rows        int
}

// ExportService renders registration lists as CSV or PDF downloads.
type ExportService struct {
	registrations registrationLister
	csv           csvRenderer
	pdf           pdfRenderer
	logger        *zap.Logger
	cfg           ExportConfig
	now           func() time.Time
}

// NewExportService constructs an ExportService.
func NewExportService(registrations registrationLister, cfg ExportConfig, logger *zap.Logger, csv csvRenderer, pdf pdfRenderer) *ExportService {
	if logger == nil {
		logger = zap.NewNop()
	}
	if cfg.Title == "" {
		cfg.Title = "Data Pendaftaran"
	}
	if cfg.Location == nil {
		cfg.Location = time.UTC
	}
	if csv == nil {
		csv = export.NewCSVExporter()
	}
	if pdf == nil {
		pdf = export.NewPDFExporter(RegistrationPDFOptions()...)
	}
	return &ExportService{registrations: registrations, csv: csv, pdf: pdf, logger: logger, cfg: cfg, now: time.Now}
}

// Registrations renders every registration matching filter in the requested
// format. Pagination fields of the filter are ignored.
func (s *ExportService) Registrations(ctx context.Context, filter models.RegistrationFilter, format export.Format) (*ExportResult, error) {
	items, err := s.collect(ctx, filter)
	if err != nil {
		return nil, err
	}
	dataset := s.buildDataset(items)

	var payload []byte
	switch format {
	case export.FormatCSV:
		payload, err = s.csv.Render(dataset)
	case export.FormatPDF:
		payload, err = s.pdf.Render(dataset, s.cfg.Title)
	default:
		return nil, appErrors.Clone(appErrors.ErrValidation, "unsupported export format")
	}
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to render export")
	}

	s.logger.Info("registrations exported", zap.String("format", string(format)), zap.Int("rows", len(items)))
	return &ExportResult{
		FileName:    export.FileName(exportFilePrefix, format, s.now().In(s.cfg.Location)),
		ContentType: format.ContentType(),
		Payload:     payload,
		Rows:        len(items),
	}, nil
}

func (s *ExportService) collect(ctx context.Context, filter models.RegistrationFilter) ([]models.RegistrationDetail, error) {
	filter.PageSize = exportPageSize
	var all []models.RegistrationDetail
	for page := 1; ; page++ {
		filter.Page = page
		items, total, err := s.registrations.List(ctx, filter)
		if err != nil {
			return nil, appErrors.Store(err, "failed to load registrations for export")
		}
		all = append(all, items...)
		if len(items) < exportPageSize || len(all) >= total {
			return all, nil
		}
	}
}

func (s *ExportService) buildDataset(items []models.RegistrationDetail) export.Dataset {
	rows := make([]map[string]string, 0, len(items))
	for _, item := range items {
		ageCategory := "-"
		memberCount := 1
		if item.Type == models.RegistrationTypeIndividual {
			ageCategory = ageCategoryLabel(item.AgeCategory)
		} else {
			memberCount = len(item.FamilyMembers)
		}
		rows = append(rows, map[string]string{
			"ID":                       item.ID,
			"Tipe":                     string(item.Type),
			"Nama Pendaftar":           item.RepresentativeName,
			"No HP":                    item.PhoneNumber,
			"Kategori Umur (Individu)": ageCategory,
			"Jml Anggota":              strconv.Itoa(memberCount),
			"Tagihan":                  strconv.FormatInt(item.TotalFee, 10),
			"Terbayar":                 strconv.FormatInt(item.TotalPaid, 10),
			"Status":                   string(item.Status),
			"Tanggal Daftar":           item.CreatedAt.In(s.cfg.Location).Format("2/1/2006"),
			"Sumber Input":             string(item.Source),
		})
	}
	return export.Dataset{Headers: registrationExportHeaders, Rows: rows}
}

func ageCategoryLabel(category models.AgeCategory) string {
	switch category {
	case models.AgeCategoryAdult:
		return "Dewasa"
	case models.AgeCategoryYouth:
		return "Pemuda"
	default:
		return "Anak"
	}
}
