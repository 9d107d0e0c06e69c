package service

import (
	"fmt"
	"strconv"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/noah-isme/attendance-tracker/internal/models"
	appErrors "github.com/noah-isme/attendance-tracker/pkg/errors"
	"github.com/noah-isme/attendance-tracker/pkg/export"
)

// ReportFormat enumerates supported report encodings.
type ReportFormat string

const (
	ReportFormatCSV ReportFormat = "csv"
	ReportFormatPDF ReportFormat = "pdf"
)

// Attendance report columns.
const (
	colSubject      = "Subject"
	colRequired     = "Required %"
	colAttended     = "Attended"
	colTotal        = "Total"
	colPercentage   = "Attendance %"
	colCanMiss      = "Can Miss"
	colNeedToAttend = "Need To Attend"
)

type renderer interface {
	Render(data export.Dataset) ([]byte, error)
}

type overviewSource interface {
	Overview() AttendanceOverview
}

// Report is a rendered attendance report ready to download.
type Report struct {
	Filename    string
	ContentType string
	Body        []byte
}

// ReportService renders the attendance overview as CSV or PDF.
type ReportService struct {
	source overviewSource
	csv    renderer
	pdf    renderer
	logger *zap.Logger
	now    func() time.Time
}

// NewReportService constructs a ReportService. Nil renderers fall back to the pkg/export ones.
func NewReportService(source overviewSource, csv, pdf renderer, logger *zap.Logger) *ReportService {
	if csv == nil {
		csv = export.NewCSVExporter()
	}
	if pdf == nil {
		pdf = export.NewPDFExporter()
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &ReportService{source: source, csv: csv, pdf: pdf, logger: logger, now: time.Now}
}

// AttendanceReport renders the current attendance overview in format.
func (s *ReportService) AttendanceReport(format ReportFormat) (*Report, error) {
	format = ReportFormat(strings.ToLower(strings.TrimSpace(string(format))))
	if format == "" {
		format = ReportFormatCSV
	}

	var (
		r           renderer
		contentType string
	)
	switch format {
	case ReportFormatCSV:
		r, contentType = s.csv, "text/csv"
	case ReportFormatPDF:
		r, contentType = s.pdf, "application/pdf"
	default:
		return nil, appErrors.Clone(appErrors.ErrValidation, fmt.Sprintf("unsupported report format %q", format))
	}

	generatedAt := s.now().UTC()
	body, err := r.Render(buildAttendanceDataset(s.source.Overview(), generatedAt))
	if err != nil {
		s.logger.Error("failed to render attendance report", zap.String("format", string(format)), zap.Error(err))
		return nil, appErrors.WrapAs(appErrors.ErrInternal, err, "failed to render report")
	}

	return &Report{
		Filename:    fmt.Sprintf("attendance_%s.%s", generatedAt.Format("20060102_150405"), format),
		ContentType: contentType,
		Body:        body,
	}, nil
}

func buildAttendanceDataset(overview AttendanceOverview, generatedAt time.Time) export.Dataset {
	rows := make([]map[string]string, 0, len(overview.Subjects))
	for _, summary := range overview.Subjects {
		rows = append(rows, map[string]string{
			colSubject:      summary.Name,
			colRequired:     strconv.Itoa(summary.RequiredAttendance),
			colAttended:     strconv.Itoa(summary.AttendedClasses),
			colTotal:        strconv.Itoa(summary.TotalClasses),
			colPercentage:   formatPercent(summary.Percentage),
			colCanMiss:      formatCanMiss(summary.Projection),
			colNeedToAttend: formatNeedToAttend(summary.Projection),
		})
	}
	return export.Dataset{
		Title:   "Attendance Report",
		Headers: []string{colSubject, colRequired, colAttended, colTotal, colPercentage, colCanMiss, colNeedToAttend},
		Rows:    rows,
		Footer: []string{
			fmt.Sprintf("Overall attendance: %s%%", formatPercent(overview.Overall)),
			fmt.Sprintf("Generated at %s", generatedAt.Format(time.RFC3339)),
		},
	}
}

func formatPercent(v float64) string {
	return strconv.FormatFloat(v, 'f', 2, 64)
}

func formatCanMiss(p models.Projection) string {
	if p.Unlimited {
		return "unlimited"
	}
	return strconv.Itoa(p.CanMiss)
}

func formatNeedToAttend(p models.Projection) string {
	if p.Unreachable {
		return "unreachable"
	}
	return strconv.Itoa(p.NeedToAttend)
}
