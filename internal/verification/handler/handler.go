// Package handler exposes the verification pipeline over HTTP.
package handler

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"

	id "talanta/pkg/domain"
	"talanta/pkg/domainerrors"
	"talanta/pkg/platform/httputil"
	authmw "talanta/pkg/platform/middleware/auth"

	"talanta/internal/verification/models"
	"talanta/internal/verification/service"
)

// Service is the slice of the orchestrator the HTTP layer needs.
type Service interface {
	Upload(ctx context.Context, userID id.UserID, docType models.DocumentType, filename string, data []byte) (*models.VerificationRecord, error)
	Status(ctx context.Context, callerID id.UserID, recID id.VerificationID) (*models.VerificationRecord, error)
	ListByUser(ctx context.Context, userID id.UserID) ([]models.VerificationRecord, error)
	AddClaim(ctx context.Context, userID id.UserID, skill string) error
}

// Handler handles verification endpoints.
type Handler struct {
	svc       Service
	validator authmw.JWTValidator
	logger    *slog.Logger
}

func New(svc Service, validator authmw.JWTValidator, logger *slog.Logger) *Handler {
	return &Handler{svc: svc, validator: validator, logger: logger}
}

// Register registers the verification routes with the chi router.
func (h *Handler) Register(r chi.Router) {
	vr := chi.NewRouter()
	vr.Use(middleware.RequestID)
	vr.Use(middleware.Recoverer)
	vr.Use(authmw.RequireAuth(h.validator, h.logger))
	vr.Post("/verify/upload", h.handleUpload)
	vr.Get("/verify/status/{id}", h.handleStatus)
	vr.Get("/verify/my-verifications", h.handleList)
	vr.Post("/skills/claim", h.handleClaim)

	r.Mount("/", vr)
}

func (h *Handler) handleUpload(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	userID, ok := authmw.GetUserID(ctx)
	if !ok {
		httputil.WriteError(w, domainerrors.New(domainerrors.CodeInternal, "authentication context error"))
		return
	}

	// Slack above the document cap for the multipart framing itself.
	r.Body = http.MaxBytesReader(w, r.Body, service.MaxUploadBytes+64<<10)
	if err := r.ParseMultipartForm(service.MaxUploadBytes); err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			httputil.WriteError(w, domainerrors.New(domainerrors.CodeTooLarge, "file exceeds 5MB limit"))
			return
		}
		httputil.WriteError(w, domainerrors.New(domainerrors.CodeBadRequest, "invalid multipart form"))
		return
	}

	docType, ok := models.ParseDocumentType(r.FormValue("document_type"))
	if !ok {
		httputil.WriteError(w, domainerrors.New(domainerrors.CodeBadRequest,
			"document_type must be one of NATIONAL_ID, CERTIFICATE, DIPLOMA, LICENSE, TRANSCRIPT"))
		return
	}

	file, header, err := r.FormFile("file")
	if err != nil {
		httputil.WriteError(w, domainerrors.New(domainerrors.CodeBadRequest, "file is required"))
		return
	}
	defer file.Close()

	data, err := io.ReadAll(file)
	if err != nil {
		httputil.WriteError(w, domainerrors.New(domainerrors.CodeBadRequest, "could not read file"))
		return
	}

	rec, err := h.svc.Upload(ctx, userID, docType, header.Filename, data)
	if err != nil {
		h.logger.WarnContext(ctx, "upload refused", "user_id", userID, "error", err)
		httputil.WriteError(w, err)
		return
	}

	httputil.WriteJSON(w, http.StatusAccepted, toUploadResponse(rec))
}

func (h *Handler) handleStatus(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	userID, ok := authmw.GetUserID(ctx)
	if !ok {
		httputil.WriteError(w, domainerrors.New(domainerrors.CodeInternal, "authentication context error"))
		return
	}

	recID, err := id.ParseVerificationID(chi.URLParam(r, "id"))
	if err != nil {
		httputil.WriteError(w, domainerrors.New(domainerrors.CodeBadRequest, "invalid verification id"))
		return
	}

	rec, err := h.svc.Status(ctx, userID, recID)
	if err != nil {
		httputil.WriteError(w, err)
		return
	}

	httputil.WriteJSON(w, http.StatusOK, toVerificationResponse(rec))
}

func (h *Handler) handleList(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	userID, ok := authmw.GetUserID(ctx)
	if !ok {
		httputil.WriteError(w, domainerrors.New(domainerrors.CodeInternal, "authentication context error"))
		return
	}

	recs, err := h.svc.ListByUser(ctx, userID)
	if err != nil {
		h.logger.ErrorContext(ctx, "failed to list verifications", "user_id", userID, "error", err)
		httputil.WriteError(w, err)
		return
	}

	httputil.WriteJSON(w, http.StatusOK, toListResponse(recs))
}

func (h *Handler) handleClaim(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	userID, ok := authmw.GetUserID(ctx)
	if !ok {
		httputil.WriteError(w, domainerrors.New(domainerrors.CodeInternal, "authentication context error"))
		return
	}

	var req claimRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		httputil.WriteError(w, domainerrors.New(domainerrors.CodeBadRequest, "invalid request body"))
		return
	}

	if err := h.svc.AddClaim(ctx, userID, req.Skill); err != nil {
		httputil.WriteError(w, err)
		return
	}

	httputil.WriteJSON(w, http.StatusCreated, claimResponse{Skill: req.Skill, Status: "claimed"})
}
