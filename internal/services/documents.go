package services

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/ledongthuc/pdf"

	"exam-predictor/internal/models"
)

// ErrUnsupportedFileType is returned for uploads outside the extension
// allowlist.
var ErrUnsupportedFileType = errors.New("unsupported file type: only .pdf, .docx and .txt are accepted")

var allowedExtensions = map[string]bool{
	".pdf":  true,
	".docx": true,
	".txt":  true,
}

// AllowedExtension reports whether the file name passes the upload allowlist.
func AllowedExtension(name string) bool {
	return allowedExtensions[strings.ToLower(filepath.Ext(name))]
}

// ReliableExtraction reports whether text extraction is dependable for the
// file. Only .txt is; .pdf and .docx are accepted but warned about.
func ReliableExtraction(name string) bool {
	return strings.EqualFold(filepath.Ext(name), ".txt")
}

// DocumentService archives uploads and records their metadata. Binary content
// is never parsed into text; for PDFs only the page count is probed.
type DocumentService struct {
	db        *sql.DB
	uploadDir string
}

func NewDocumentService(db *sql.DB, uploadDir string) *DocumentService {
	return &DocumentService{db: db, uploadDir: uploadDir}
}

// Archive stores the uploaded bytes under a generated name and inserts a
// metadata row.
func (s *DocumentService) Archive(ctx context.Context, original string, data []byte) (*models.Document, error) {
	if !AllowedExtension(original) {
		return nil, ErrUnsupportedFileType
	}

	if err := os.MkdirAll(s.uploadDir, 0o755); err != nil {
		return nil, fmt.Errorf("ensure upload dir: %w", err)
	}

	name := uuid.NewString() + filepath.Ext(original)
	storedPath := filepath.Join(s.uploadDir, name)
	if err := os.WriteFile(storedPath, data, 0o644); err != nil {
		return nil, fmt.Errorf("write file: %w", err)
	}

	binary := LooksBinary(string(data))
	pages := 0
	if strings.EqualFold(filepath.Ext(original), ".pdf") {
		pages = pdfPageCount(storedPath)
	}

	now := time.Now().UTC()
	res, err := s.db.ExecContext(ctx, `
		INSERT INTO documents (original_name, stored_path, size_bytes, page_count, is_binary, uploaded_at)
		VALUES (?, ?, ?, ?, ?, ?);
	`, original, storedPath, len(data), pages, binary, now)
	if err != nil {
		return nil, fmt.Errorf("insert document: %w", err)
	}
	id, _ := res.LastInsertId()

	return &models.Document{
		ID:           id,
		OriginalName: original,
		StoredPath:   storedPath,
		SizeBytes:    int64(len(data)),
		PageCount:    pages,
		Binary:       binary,
		UploadedAt:   now,
	}, nil
}

// pdfPageCount is a best-effort metadata probe; unreadable PDFs report 0.
func pdfPageCount(path string) int {
	f, r, err := pdf.Open(path)
	if err != nil {
		return 0
	}
	defer f.Close()
	return r.NumPage()
}
