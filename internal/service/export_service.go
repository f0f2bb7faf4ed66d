package service

import (
	"context"
	"errors"
	"fmt"
	"os"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/noah-isme/campus-portal-api/internal/dto"
	appErrors "github.com/noah-isme/campus-portal-api/pkg/errors"
	"github.com/noah-isme/campus-portal-api/pkg/export"
	"github.com/noah-isme/campus-portal-api/pkg/storage"
)

type timetableSource interface {
	StudentTimetable(ctx context.Context, userID string) (*dto.StudentTimetable, bool, error)
}

type fileStore interface {
	Save(name string, data []byte) (string, error)
	Open(name string) (*os.File, error)
}

type urlSigner interface {
	Generate(ownerID, path string) (string, time.Time, error)
	Parse(token string, allowExpired bool) (storage.DownloadTicket, error)
}

// ExportFile is an opened export ready to stream.
type ExportFile struct {
	File        *os.File
	Name        string
	ContentType string
}

// ExportService renders timetables to files and issues signed download links.
type ExportService struct {
	timetables timetableSource
	store      fileStore
	signer     urlSigner
	metrics    *MetricsService
	baseURL    string
	logger     *zap.Logger
	now        func() time.Time
}

// NewExportService wires the export service. baseURL prefixes download tokens,
// e.g. "/api/exports/".
func NewExportService(timetables timetableSource, store fileStore, signer urlSigner, metrics *MetricsService, baseURL string, logger *zap.Logger) *ExportService {
	if logger == nil {
		logger = zap.NewNop()
	}
	if baseURL == "" {
		baseURL = "/api/exports/"
	}
	if !strings.HasSuffix(baseURL, "/") {
		baseURL += "/"
	}
	return &ExportService{
		timetables: timetables,
		store:      store,
		signer:     signer,
		metrics:    metrics,
		baseURL:    baseURL,
		logger:     logger,
		now:        func() time.Time { return time.Now().UTC() },
	}
}

// ExportTimetable renders the caller's timetable as csv or pdf.
func (s *ExportService) ExportTimetable(ctx context.Context, userID, format string) (*dto.TimetableExport, error) {
	format = strings.ToLower(strings.TrimSpace(format))
	if format == "" {
		format = "csv"
	}
	renderer, err := export.ForFormat(format)
	if err != nil {
		return nil, appErrors.Validation(err, "format must be csv or pdf")
	}

	timetable, _, err := s.timetables.StudentTimetable(ctx, userID)
	if err != nil {
		return nil, err
	}
	body, err := renderer.Render(timetableDataset(timetable, s.now()))
	if err != nil {
		return nil, appErrors.Internal(err, "failed to render timetable")
	}

	name := fmt.Sprintf("timetables/%s/%d.%s", timetable.StudentID, s.now().UnixNano(), renderer.Extension())
	path, err := s.store.Save(name, body)
	if err != nil {
		return nil, appErrors.Internal(err, "failed to store timetable export")
	}
	token, expiresAt, err := s.signer.Generate(userID, path)
	if err != nil {
		return nil, appErrors.Internal(err, "failed to sign download link")
	}
	s.metrics.RecordExport(format)
	s.logger.Info("timetable exported", zap.String("student_id", timetable.StudentID), zap.String("format", format))

	return &dto.TimetableExport{
		Format:    format,
		URL:       s.baseURL + token,
		ExpiresAt: expiresAt.Format(time.RFC3339),
	}, nil
}

// Open resolves a download token to the stored file.
func (s *ExportService) Open(token string) (*ExportFile, error) {
	ticket, err := s.signer.Parse(token, false)
	if err != nil {
		if errors.Is(err, storage.ErrTokenExpired) {
			return nil, appErrors.Clone(appErrors.ErrUnauthorized, "download link expired")
		}
		return nil, appErrors.Clone(appErrors.ErrUnauthorized, "invalid download link")
	}
	file, err := s.store.Open(ticket.Path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "export no longer available")
		}
		return nil, appErrors.Internal(err, "failed to open export")
	}
	name := ticket.Path
	if idx := strings.LastIndex(name, "/"); idx >= 0 {
		name = name[idx+1:]
	}
	return &ExportFile{File: file, Name: "timetable-" + name, ContentType: contentTypeFor(name)}, nil
}

func contentTypeFor(name string) string {
	if strings.HasSuffix(name, ".pdf") {
		return export.NewPDFExporter().ContentType()
	}
	return export.NewCSVExporter().ContentType()
}

func timetableDataset(timetable *dto.StudentTimetable, generated time.Time) export.Dataset {
	rows := make([]map[string]string, 0, timetable.SessionCount)
	for _, day := range timetable.Days {
		for _, session := range day.Sessions {
			instructor := ""
			if session.InstructorName != nil {
				instructor = *session.InstructorName
			}
			rows = append(rows, map[string]string{
				"Day":        day.Day,
				"Start":      session.StartTime,
				"End":        session.EndTime,
				"Course":     session.CourseCode,
				"Name":       session.CourseName,
				"Type":       string(session.SessionType),
				"Room":       session.Room,
				"Instructor": instructor,
			})
		}
	}
	return export.Dataset{
		Title:    "Weekly timetable",
		Subtitle: "Generated " + generated.Format("2006-01-02 15:04 MST"),
		Headers:  []string{"Day", "Start", "End", "Course", "Name", "Type", "Room", "Instructor"},
		Rows:     rows,
	}
}
