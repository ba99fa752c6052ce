package receipt

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/zombor/livestock-receipts/internal/expense"
	"github.com/zombor/livestock-receipts/internal/pipeline"
)

// maxUploadSize fits high-resolution phone photos
const maxUploadSize = int64(50 << 20)

const fileTooLarge = "File is too large. Maximum size is 50MB. Please compress or resize your image."

type errorResponse struct {
	Error       string `json:"error"`
	ManualEntry bool   `json:"manual_entry,omitempty"`
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		slog.Error("Error encoding response", "error", err)
	}
}

func writeError(w http.ResponseWriter, status int, message string) {
	writeJSON(w, status, errorResponse{Error: message})
}

// writeServiceError maps service errors onto HTTP statuses
func writeServiceError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, ErrNotFound):
		writeError(w, http.StatusNotFound, "Scan not found")
	case errors.Is(err, ErrAlreadyConfirmed):
		writeError(w, http.StatusConflict, err.Error())
	case errors.Is(err, expense.ErrItemIndex),
		errors.Is(err, expense.ErrUnknownCategory),
		errors.Is(err, expense.ErrUnknownSubcategory),
		errors.Is(err, expense.ErrNotFeed),
		errors.Is(err, expense.ErrInvalidWeight):
		writeError(w, http.StatusBadRequest, err.Error())
	default:
		slog.Error("Error handling scan request", "error", err)
		writeError(w, http.StatusInternalServerError, "Internal server error")
	}
}

func (s *Server) handleListCategories(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, expense.Categories())
}

func (s *Server) handleListScans(w http.ResponseWriter, r *http.Request) {
	scans, err := s.service.ListScans()
	if err != nil {
		writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, scans)
}

// handleUploadScan accepts a multipart receipt upload and processes it
func (s *Server) handleUploadScan(w http.ResponseWriter, r *http.Request) {
	r.Body = http.MaxBytesReader(w, r.Body, maxUploadSize)
	if err := r.ParseMultipartForm(maxUploadSize); err != nil {
		slog.Error("Error parsing multipart form", "error", err)
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			writeError(w, http.StatusRequestEntityTooLarge, fileTooLarge)
			return
		}
		writeError(w, http.StatusBadRequest, "Error parsing form")
		return
	}

	f, header, err := r.FormFile("file")
	if err != nil {
		slog.Error("Error getting file from form", "error", err)
		if errors.Is(err, http.ErrMissingFile) {
			writeError(w, http.StatusBadRequest, "No file was selected. Please choose a file to upload.")
			return
		}
		writeError(w, http.StatusBadRequest, "No file provided")
		return
	}
	defer f.Close()

	data, err := io.ReadAll(f)
	if err != nil {
		slog.Error("Error reading file data", "error", err, "filename", header.Filename)
		writeError(w, http.StatusInternalServerError, "Error reading file. Please try again.")
		return
	}

	opts, err := optionsFromForm(r)
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	scan, err := s.service.ProcessReceipt(r.Context(), uploaderID(r), header.Filename, data, uploadContentType(header.Header.Get("Content-Type"), header.Filename), opts)
	if err != nil {
		slog.Error("Error processing receipt", "filename", header.Filename, "error", err)
		var exhausted *pipeline.ExhaustedError
		if errors.As(err, &exhausted) {
			writeJSON(w, http.StatusUnprocessableEntity, errorResponse{Error: exhausted.Error(), ManualEntry: true})
			return
		}
		writeError(w, http.StatusInternalServerError, "Error processing receipt. Please try again.")
		return
	}

	writeJSON(w, http.StatusCreated, scan)
}

// uploadContentType prefers the part's declared type, unless it is the
// generic octet-stream browsers send for HEIC photos.
func uploadContentType(declared, filename string) string {
	declared = strings.ToLower(strings.TrimSpace(declared))
	if declared != "" && declared != "application/octet-stream" {
		return declared
	}
	if ct := ContentTypeForExtension(filepath.Ext(filename)); ct != "" {
		return ct
	}
	return "application/octet-stream"
}

// uploaderID is the user_id form field, or the basic auth user
func uploaderID(r *http.Request) string {
	if id := strings.TrimSpace(r.FormValue("user_id")); id != "" {
		return id
	}
	if user, _, ok := r.BasicAuth(); ok {
		return user
	}
	return ""
}

// optionsFromForm starts from the default options and applies any
// options sent with the upload.
func optionsFromForm(r *http.Request) (expense.ProcessingOptions, error) {
	opts := expense.DefaultOptions()
	flags := []struct {
		name  string
		value *bool
	}{
		{"extract_feed_weights", &opts.ExtractFeedWeights},
		{"categorize_line_items", &opts.CategorizeLineItems},
		{"validate_with_database", &opts.ValidateWithDatabase},
	}
	for _, f := range flags {
		raw := r.FormValue(f.name)
		if raw == "" {
			continue
		}
		v, err := strconv.ParseBool(raw)
		if err != nil {
			return opts, fmt.Errorf("invalid %s: %q", f.name, raw)
		}
		*f.value = v
	}

	if raw := r.FormValue("confidence_threshold"); raw != "" {
		v, err := strconv.ParseFloat(raw, 64)
		if err != nil || v <= 0 || v > 1 {
			return opts, fmt.Errorf("invalid confidence_threshold: %q", raw)
		}
		opts.ConfidenceThreshold = v
	}
	return opts, nil
}

func (s *Server) handleGetScan(w http.ResponseWriter, r *http.Request) {
	scan, err := s.service.GetScan(r.PathValue("id"))
	if err != nil {
		writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, scan)
}

func (s *Server) handleGetScanFile(w http.ResponseWriter, r *http.Request) {
	data, contentType, err := s.service.GetScanFile(r.PathValue("id"))
	if err != nil {
		if errors.Is(err, ErrNotFound) {
			writeError(w, http.StatusNotFound, "File not found")
			return
		}
		writeServiceError(w, err)
		return
	}

	w.Header().Set("Content-Type", contentType)
	w.Write(data)
}

func (s *Server) handleDeleteScan(w http.ResponseWriter, r *http.Request) {
	if err := s.service.DeleteScan(r.PathValue("id")); err != nil {
		writeServiceError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

type categoryRequest struct {
	From        string `json:"from,omitempty"`
	Category    string `json:"category"`
	Subcategory string `json:"subcategory"`
}

type feedWeightRequest struct {
	FeedWeight float64 `json:"feed_weight"`
}

func decodeBody(w http.ResponseWriter, r *http.Request, v any) bool {
	if err := json.NewDecoder(r.Body).Decode(v); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid request body")
		return false
	}
	return true
}

func itemIndex(w http.ResponseWriter, r *http.Request) (int, bool) {
	index, err := strconv.Atoi(r.PathValue("index"))
	if err != nil {
		writeError(w, http.StatusBadRequest, "Invalid item index")
		return 0, false
	}
	return index, true
}

func (s *Server) handleUpdateItemCategory(w http.ResponseWriter, r *http.Request) {
	index, ok := itemIndex(w, r)
	if !ok {
		return
	}
	var req categoryRequest
	if !decodeBody(w, r, &req) {
		return
	}

	scan, err := s.service.UpdateItemCategory(r.PathValue("id"), index, req.Category, req.Subcategory)
	if err != nil {
		writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, scan)
}

func (s *Server) handleUpdateFeedWeight(w http.ResponseWriter, r *http.Request) {
	index, ok := itemIndex(w, r)
	if !ok {
		return
	}
	var req feedWeightRequest
	if !decodeBody(w, r, &req) {
		return
	}

	scan, err := s.service.UpdateFeedWeight(r.PathValue("id"), index, req.FeedWeight)
	if err != nil {
		writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, scan)
}

func (s *Server) handleRecategorize(w http.ResponseWriter, r *http.Request) {
	var req categoryRequest
	if !decodeBody(w, r, &req) {
		return
	}
	if req.From == "" {
		writeError(w, http.StatusBadRequest, "from category required")
		return
	}

	scan, err := s.service.BulkRecategorize(r.PathValue("id"), req.From, req.Category, req.Subcategory)
	if err != nil {
		writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, scan)
}

func (s *Server) handleConfirmScan(w http.ResponseWriter, r *http.Request) {
	scan, err := s.service.ConfirmScan(r.PathValue("id"))
	if err != nil {
		writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, scan)
}
