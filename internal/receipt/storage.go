package receipt

import (
	"fmt"
	"net/http"
	"os"
	"path/filepath"
	"strings"

	"github.com/zombor/livestock-receipts/internal/scanning"
)

// Storage defines the interface for file storage operations
type Storage interface {
	// Save saves a file and returns the path/filename
	Save(filename string, data []byte) (string, error)

	// Get retrieves a file by path
	Get(path string) ([]byte, error)

	// Load retrieves a file as a receipt image for scanning
	Load(path string) (scanning.Image, error)

	// Delete removes a file
	Delete(path string) error
}

// LocalStorage implements the Storage interface using local filesystem
type LocalStorage struct {
	basePath string
}

// NewLocalStorage creates a new LocalStorage instance
func NewLocalStorage(basePath string) (*LocalStorage, error) {
	if err := os.MkdirAll(basePath, 0755); err != nil {
		return nil, fmt.Errorf("creating storage directory: %w", err)
	}

	return &LocalStorage{
		basePath: basePath,
	}, nil
}

// Save saves a file to local storage
func (l *LocalStorage) Save(filename string, data []byte) (string, error) {
	path, err := l.resolve(filename)
	if err != nil {
		return "", err
	}
	if err := os.WriteFile(path, data, 0644); err != nil {
		return "", fmt.Errorf("writing file: %w", err)
	}
	return filename, nil
}

// Get retrieves a file from local storage
func (l *LocalStorage) Get(path string) ([]byte, error) {
	fullPath, err := l.resolve(path)
	if err != nil {
		return nil, err
	}
	data, err := os.ReadFile(fullPath)
	if err != nil {
		return nil, fmt.Errorf("reading file: %w", err)
	}
	return data, nil
}

// Load reads a stored receipt. The content type comes from the file
// extension, or from the bytes when the extension is unknown.
func (l *LocalStorage) Load(path string) (scanning.Image, error) {
	data, err := l.Get(path)
	if err != nil {
		return scanning.Image{}, err
	}
	contentType := ContentTypeForExtension(filepath.Ext(path))
	if contentType == "" {
		contentType = http.DetectContentType(data)
	}
	return scanning.Image{Data: data, ContentType: contentType, Ref: path}, nil
}

// Delete removes a file from local storage
func (l *LocalStorage) Delete(path string) error {
	fullPath, err := l.resolve(path)
	if err != nil {
		return err
	}
	if err := os.Remove(fullPath); err != nil {
		return fmt.Errorf("deleting file: %w", err)
	}
	return nil
}

// resolve keeps paths inside the storage directory
func (l *LocalStorage) resolve(path string) (string, error) {
	if path == "" || filepath.Base(path) != path {
		return "", fmt.Errorf("invalid file name: %q", path)
	}
	return filepath.Join(l.basePath, path), nil
}

var extensionTypes = map[string]string{
	".jpg":  "image/jpeg",
	".jpeg": "image/jpeg",
	".png":  "image/png",
	".gif":  "image/gif",
	".pdf":  "application/pdf",
	".heic": "image/heic",
	".heif": "image/heif",
	".txt":  "text/plain",
}

// ContentTypeForExtension maps a receipt file extension to its MIME type,
// or "" when unknown.
func ContentTypeForExtension(ext string) string {
	return extensionTypes[strings.ToLower(ext)]
}

// ExtensionForContentType is the reverse of ContentTypeForExtension.
func ExtensionForContentType(contentType string) string {
	contentType = strings.ToLower(strings.TrimSpace(contentType))
	if i := strings.Index(contentType, ";"); i != -1 {
		contentType = strings.TrimSpace(contentType[:i])
	}
	switch contentType {
	case "image/jpeg":
		return ".jpg"
	case "image/png":
		return ".png"
	case "image/gif":
		return ".gif"
	case "application/pdf":
		return ".pdf"
	case "image/heic":
		return ".heic"
	case "image/heif":
		return ".heif"
	case "text/plain":
		return ".txt"
	}
	return ""
}
