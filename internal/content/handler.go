package handler

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"time"

	"portfoliocms/internal/content/model"
	"portfoliocms/internal/content/service"
	"portfoliocms/pkg/logger"
	"portfoliocms/pkg/respond"
	"portfoliocms/store"
)

type ContentHandler struct {
	Service *service.ContentService
	Engine  string
}

func NewContentHandler(service *service.ContentService, engine string) *ContentHandler {
	return &ContentHandler{Service: service, Engine: engine}
}

func (h *ContentHandler) Health(w http.ResponseWriter, r *http.Request) {
	respond.JSON(w, http.StatusOK, model.HealthResponse{
		Status:    "ok",
		Message:   "Server is running",
		Engine:    h.Engine,
		Timestamp: time.Now().UTC().Format(time.RFC3339),
	})
}

func (h *ContentHandler) GetContent(w http.ResponseWriter, r *http.Request) {
	doc, err := h.Service.ReadContent(r.Context())
	if err != nil {
		h.writeStoreError(w, err)
		return
	}
	respond.JSON(w, http.StatusOK, doc)
}

func (h *ContentHandler) GetSection(w http.ResponseWriter, r *http.Request) {
	section := r.PathValue("section")

	value, ok, err := h.Service.ReadSection(r.Context(), section)
	if err != nil {
		h.writeStoreError(w, err)
		return
	}
	if !ok {
		respond.Error(w, http.StatusNotFound, "Section not found", fmt.Sprintf("Section %q does not exist", section))
		return
	}
	respond.JSON(w, http.StatusOK, value)
}

func (h *ContentHandler) UpdateSection(w http.ResponseWriter, r *http.Request) {
	section := r.PathValue("section")

	value, err := decodeBody(r)
	if err != nil {
		respond.Error(w, http.StatusBadRequest, "Validation failed", err.Error())
		return
	}
	if value == nil {
		respond.Error(w, http.StatusBadRequest, "Validation failed", "Request body is required")
		return
	}

	data, err := h.Service.UpdateSection(r.Context(), section, value)
	if err != nil {
		h.writeStoreError(w, err)
		return
	}
	respond.JSON(w, http.StatusOK, model.SectionResponse{
		Success: true,
		Message: fmt.Sprintf("Section %q updated successfully", section),
		Data:    data,
	})
}

func (h *ContentHandler) AddItem(w http.ResponseWriter, r *http.Request) {
	section := r.PathValue("section")

	item, ok := decodeObject(w, r, "Item data is required")
	if !ok {
		return
	}

	added, err := h.Service.AddItem(r.Context(), section, item)
	if err != nil {
		h.writeStoreError(w, err)
		return
	}
	respond.JSON(w, http.StatusCreated, model.ItemResponse{
		Success: true,
		Message: fmt.Sprintf("Item added to %q successfully", section),
		Item:    added,
	})
}

func (h *ContentHandler) UpdateItem(w http.ResponseWriter, r *http.Request) {
	section, itemID := r.PathValue("section"), r.PathValue("id")

	patch, ok := decodeObject(w, r, "Update data is required")
	if !ok {
		return
	}

	data, err := h.Service.UpdateItem(r.Context(), section, itemID, patch)
	if err != nil {
		h.writeStoreError(w, err)
		return
	}
	respond.JSON(w, http.StatusOK, model.SectionResponse{
		Success: true,
		Message: fmt.Sprintf("Item updated in %q successfully", section),
		Data:    data,
	})
}

func (h *ContentHandler) DeleteItem(w http.ResponseWriter, r *http.Request) {
	section, itemID := r.PathValue("section"), r.PathValue("id")

	data, err := h.Service.DeleteItem(r.Context(), section, itemID)
	if err != nil {
		h.writeStoreError(w, err)
		return
	}
	respond.JSON(w, http.StatusOK, model.SectionResponse{
		Success: true,
		Message: fmt.Sprintf("Item deleted from %q successfully", section),
		Data:    data,
	})
}

func (h *ContentHandler) RestoreBackup(w http.ResponseWriter, r *http.Request) {
	doc, err := h.Service.RestoreBackup(r.Context())
	if err != nil {
		h.writeStoreError(w, err)
		return
	}
	respond.JSON(w, http.StatusOK, model.RestoreResponse{
		Success: true,
		Message: "Content restored from backup",
		Data:    doc,
	})
}

// writeStoreError maps store failures onto HTTP statuses.
func (h *ContentHandler) writeStoreError(w http.ResponseWriter, err error) {
	var remote *store.RemoteError
	switch {
	case errors.Is(err, store.ErrNotAnArray), errors.Is(err, store.ErrInvalidItem):
		respond.Error(w, http.StatusBadRequest, "Invalid operation", err.Error())
	case errors.Is(err, store.ErrItemNotFound):
		respond.Error(w, http.StatusNotFound, "Not found", err.Error())
	case errors.Is(err, store.ErrDuplicateItem), errors.Is(err, store.ErrConflict):
		respond.Error(w, http.StatusConflict, "Conflict", err.Error())
	case errors.Is(err, store.ErrWriteInProgress):
		w.Header().Set("Retry-After", "1")
		respond.Error(w, http.StatusServiceUnavailable, "Busy", "Another change is being saved. Please try again shortly.")
	case errors.Is(err, store.ErrNoBackup):
		respond.Error(w, http.StatusNotFound, "Not found", "No backup available")
	case errors.Is(err, store.ErrUnsupported):
		respond.Error(w, http.StatusNotImplemented, "Not supported", err.Error())
	case errors.Is(err, store.ErrStoreUnavailable):
		logger.Sugar.Errorf("Handler: content store unavailable: %v", err)
		respond.Error(w, http.StatusServiceUnavailable, "Unavailable", "Content temporarily unavailable")
	case errors.As(err, &remote):
		logger.Sugar.Errorf("Handler: remote store rejected request: %v", err)
		respond.Error(w, http.StatusBadGateway, "Upstream error", remote.Message)
	default:
		logger.Sugar.Errorf("Handler: content store failure: %v", err)
		respond.Error(w, http.StatusInternalServerError, "Internal server error", "An unexpected error occurred")
	}
}

// decodeBody reads any JSON value; an empty body decodes to nil.
func decodeBody(r *http.Request) (any, error) {
	data, err := io.ReadAll(r.Body)
	if err != nil {
		return nil, errors.New("request body too large or unreadable")
	}
	if len(bytes.TrimSpace(data)) == 0 {
		return nil, nil
	}
	var v any
	dec := json.NewDecoder(bytes.NewReader(data))
	dec.UseNumber()
	if err := dec.Decode(&v); err != nil {
		return nil, errors.New("invalid JSON in request body")
	}
	return v, nil
}

// decodeObject reads a non-empty JSON object, writing a 400 otherwise.
func decodeObject(w http.ResponseWriter, r *http.Request, emptyMsg string) (map[string]any, bool) {
	v, err := decodeBody(r)
	if err != nil {
		respond.Error(w, http.StatusBadRequest, "Validation failed", err.Error())
		return nil, false
	}
	obj, ok := v.(map[string]any)
	if !ok || len(obj) == 0 {
		respond.Error(w, http.StatusBadRequest, "Validation failed", emptyMsg)
		return nil, false
	}
	return obj, true
}
