// Package upload stores admin-uploaded images on local disk.
package upload

import (
	"errors"
	"net/http"

	"portfoliocms/pkg/logger"
	"portfoliocms/pkg/respond"
)

type UploadResponse struct {
	Success bool      `json:"success"`
	Message string    `json:"message"`
	Data    *FileInfo `json:"data"`
}

type ListResponse struct {
	Success bool       `json:"success"`
	Data    []FileInfo `json:"data"`
}

type MessageResponse struct {
	Success bool   `json:"success"`
	Message string `json:"message"`
}

type Handler struct {
	Service *Service
}

func NewHandler(service *Service) *Handler {
	return &Handler{Service: service}
}

func (h *Handler) Upload(w http.ResponseWriter, r *http.Request) {
	r.Body = http.MaxBytesReader(w, r.Body, MaxFileSize+1<<20)
	if err := r.ParseMultipartForm(1 << 20); err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			respond.Error(w, http.StatusBadRequest, "File too large", "Image must be less than 10MB")
			return
		}
		respond.Error(w, http.StatusBadRequest, "Upload error", "Invalid multipart form")
		return
	}

	file, header, err := r.FormFile("image")
	if err != nil {
		respond.Error(w, http.StatusBadRequest, "Upload failed", "No image file provided")
		return
	}
	defer file.Close()

	info, err := h.Service.Save(header.Filename, file)
	switch {
	case errors.Is(err, ErrFileTooLarge):
		respond.Error(w, http.StatusBadRequest, "File too large", "Image must be less than 10MB")
		return
	case errors.Is(err, ErrNotAnImage):
		respond.Error(w, http.StatusBadRequest, "Upload error", err.Error())
		return
	case err != nil:
		logger.Sugar.Errorf("Handler: Failed to save upload: %v", err)
		respond.Error(w, http.StatusInternalServerError, "Upload failed", "Could not store image")
		return
	}

	respond.JSON(w, http.StatusCreated, UploadResponse{Success: true, Message: "Image uploaded successfully", Data: info})
}

func (h *Handler) List(w http.ResponseWriter, r *http.Request) {
	files, err := h.Service.List()
	if err != nil {
		logger.Sugar.Errorf("Handler: Failed to list uploads: %v", err)
		respond.Error(w, http.StatusInternalServerError, "Internal server error", "Could not list images")
		return
	}
	respond.JSON(w, http.StatusOK, ListResponse{Success: true, Data: files})
}

func (h *Handler) Delete(w http.ResponseWriter, r *http.Request) {
	err := h.Service.Delete(r.PathValue("filename"))
	switch {
	case errors.Is(err, ErrInvalidName):
		respond.Error(w, http.StatusBadRequest, "Delete failed", "Invalid file name")
		return
	case errors.Is(err, ErrNotFound):
		respond.Error(w, http.StatusNotFound, "Delete failed", "Image not found")
		return
	case err != nil:
		logger.Sugar.Errorf("Handler: Failed to delete upload: %v", err)
		respond.Error(w, http.StatusInternalServerError, "Delete failed", "Could not delete image")
		return
	}
	respond.JSON(w, http.StatusOK, MessageResponse{Success: true, Message: "Image deleted successfully"})
}
