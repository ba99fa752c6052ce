package receipt

import (
	"context"
	"fmt"
	"log/slog"
	"path/filepath"
	"regexp"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/zombor/livestock-receipts/internal/expense"
	"github.com/zombor/livestock-receipts/internal/pipeline"
)

// IDGenerator generates unique IDs for scans
type IDGenerator interface {
	Generate() string
}

// TimeSource provides the current time
type TimeSource interface {
	Now() time.Time
}

// Processor extracts a ProcessingResult from a stored receipt
type Processor interface {
	ProcessReceipt(ctx context.Context, req pipeline.ProcessReceiptRequest) (*expense.ProcessingResult, error)
}

type uuidGenerator struct{}

func (uuidGenerator) Generate() string {
	return uuid.NewString()
}

type defaultTimeSource struct{}

func (defaultTimeSource) Now() time.Time {
	return time.Now()
}

// Service handles scan operations
type Service struct {
	db          DB
	processor   Processor
	storage     Storage
	idGenerator IDGenerator
	timeSource  TimeSource
}

// NewService creates a new Service with UUID scan IDs and the wall clock
func NewService(db DB, processor Processor, storage Storage) *Service {
	return NewServiceWithDeps(db, processor, storage, uuidGenerator{}, defaultTimeSource{})
}

// NewServiceWithDeps creates a new Service with custom dependencies for testing
func NewServiceWithDeps(db DB, processor Processor, storage Storage, idGen IDGenerator, timeSrc TimeSource) *Service {
	return &Service{
		db:          db,
		processor:   processor,
		storage:     storage,
		idGenerator: idGen,
		timeSource:  timeSrc,
	}
}

var (
	filenameJunk   = regexp.MustCompile(`[^a-zA-Z0-9\s\-_]`)
	filenameSpaces = regexp.MustCompile(`\s+`)
)

const maxFilenameBase = 50

// sanitizeFilename strips special characters and shortens long phone
// camera names. A missing extension is filled in from the content type.
func sanitizeFilename(filename, contentType string) string {
	ext := filepath.Ext(filename)
	base := strings.TrimSuffix(filepath.Base(filename), ext)
	if ContentTypeForExtension(ext) == "" {
		if guessed := ExtensionForContentType(contentType); guessed != "" {
			ext = guessed
		}
	}
	ext = strings.ToLower(filenameJunk.ReplaceAllString(ext, ""))
	if ext != "" {
		ext = "." + ext
	}

	base = filenameJunk.ReplaceAllString(base, "")
	base = strings.TrimSpace(filenameSpaces.ReplaceAllString(base, " "))
	if len(base) > maxFilenameBase {
		base = base[:maxFilenameBase]
	}
	if base == "" {
		base = "receipt"
	}
	return base + ext
}

// ProcessReceipt stores an uploaded receipt, runs extraction and saves the
// result as a draft scan. The stored file is removed if extraction fails.
func (s *Service) ProcessReceipt(ctx context.Context, userID, filename string, data []byte, contentType string, opts expense.ProcessingOptions) (*Scan, error) {
	id := s.idGenerator.Generate()
	now := s.timeSource.Now()

	savedPath, err := s.storage.Save(fmt.Sprintf("%s_%s", id, sanitizeFilename(filename, contentType)), data)
	if err != nil {
		return nil, fmt.Errorf("saving file: %w", err)
	}

	result, err := s.processor.ProcessReceipt(ctx, pipeline.ProcessReceiptRequest{
		ImageRef: savedPath,
		UserID:   userID,
		Options:  opts,
	})
	if err != nil {
		slog.Error("Failed to process receipt",
			"filename", filename,
			"content_type", contentType,
			"file_size", len(data),
			"error", err,
		)
		s.removeFile(savedPath)
		return nil, fmt.Errorf("processing receipt: %w", err)
	}

	scan := &Scan{
		ID:          id,
		Filename:    savedPath,
		ContentType: contentType,
		UserID:      userID,
		Status:      StatusDraft,
		Result:      *result,
		CreatedAt:   now,
		UpdatedAt:   now,
	}
	if err := s.db.SaveScan(scan); err != nil {
		s.removeFile(savedPath)
		return nil, fmt.Errorf("saving scan to database: %w", err)
	}
	return scan, nil
}

func (s *Service) removeFile(path string) {
	if err := s.storage.Delete(path); err != nil {
		slog.Warn("Failed to delete file", "filename", path, "error", err)
	}
}

// GetScan retrieves a scan by ID
func (s *Service) GetScan(id string) (*Scan, error) {
	scan, err := s.db.GetScan(id)
	if err != nil {
		return nil, fmt.Errorf("getting scan: %w", err)
	}
	return scan, nil
}

// ListScans returns all scans
func (s *Service) ListScans() ([]*Scan, error) {
	scans, err := s.db.ListScans()
	if err != nil {
		return nil, fmt.Errorf("listing scans: %w", err)
	}
	return scans, nil
}

// DeleteScan removes a scan and its file
func (s *Service) DeleteScan(id string) error {
	scan, err := s.db.GetScan(id)
	if err != nil {
		return fmt.Errorf("getting scan for deletion: %w", err)
	}

	s.removeFile(scan.Filename)

	if err := s.db.DeleteScan(id); err != nil {
		return fmt.Errorf("deleting scan from database: %w", err)
	}
	return nil
}

// GetScanFile retrieves the uploaded file for a scan
func (s *Service) GetScanFile(id string) ([]byte, string, error) {
	scan, err := s.db.GetScan(id)
	if err != nil {
		return nil, "", fmt.Errorf("getting scan: %w", err)
	}

	data, err := s.storage.Get(scan.Filename)
	if err != nil {
		return nil, "", fmt.Errorf("getting file: %w", err)
	}
	return data, scan.ContentType, nil
}

// UpdateItemCategory moves one line item to another category
func (s *Service) UpdateItemCategory(id string, index int, category, subcategory string) (*Scan, error) {
	return s.editDraft(id, func(r expense.ProcessingResult) (expense.ProcessingResult, error) {
		return r.WithItemCategory(index, category, subcategory)
	})
}

// BulkRecategorize moves every item in one category to another
func (s *Service) BulkRecategorize(id, from, category, subcategory string) (*Scan, error) {
	return s.editDraft(id, func(r expense.ProcessingResult) (expense.ProcessingResult, error) {
		return r.WithBulkCategory(from, category, subcategory)
	})
}

// UpdateFeedWeight corrects the weight of a feed item
func (s *Service) UpdateFeedWeight(id string, index int, weight float64) (*Scan, error) {
	return s.editDraft(id, func(r expense.ProcessingResult) (expense.ProcessingResult, error) {
		return r.WithFeedWeight(index, weight)
	})
}

func (s *Service) editDraft(id string, edit func(expense.ProcessingResult) (expense.ProcessingResult, error)) (*Scan, error) {
	scan, err := s.db.GetScan(id)
	if err != nil {
		return nil, fmt.Errorf("getting scan: %w", err)
	}
	if scan.Status == StatusConfirmed {
		return nil, ErrAlreadyConfirmed
	}

	result, err := edit(scan.Result)
	if err != nil {
		return nil, err
	}
	scan.Result = result
	scan.UpdatedAt = s.timeSource.Now()

	if err := s.db.SaveScan(scan); err != nil {
		return nil, fmt.Errorf("saving scan: %w", err)
	}
	return scan, nil
}

// ConfirmScan marks a scan final and remembers its vendor for matching
// future receipts.
func (s *Service) ConfirmScan(id string) (*Scan, error) {
	scan, err := s.db.GetScan(id)
	if err != nil {
		return nil, fmt.Errorf("getting scan: %w", err)
	}
	if scan.Status == StatusConfirmed {
		return scan, nil
	}

	scan.Status = StatusConfirmed
	scan.UpdatedAt = s.timeSource.Now()
	if err := s.db.SaveScan(scan); err != nil {
		return nil, fmt.Errorf("saving scan: %w", err)
	}

	if vendor := scan.Result.ReceiptData.Vendor; vendor != "" && vendor != expense.UnknownVendor {
		if err := s.db.SaveVendor(vendor); err != nil {
			slog.Warn("Failed to record vendor", "vendor", vendor, "error", err)
		}
	}
	return scan, nil
}
