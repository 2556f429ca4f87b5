package documents

import (
	"context"
	"errors"
	"fmt"
	"io"
	"mime"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"github.com/carepoint/hms/internal/platform/apperr"
	"github.com/carepoint/hms/internal/platform/auth"
	"github.com/carepoint/hms/internal/platform/blobstore"
	"github.com/carepoint/hms/internal/platform/metrics"
	"github.com/carepoint/hms/internal/platform/store"
)

const (
	maxFileNameLen    = 100
	maxDescriptionLen = 500
)

type Service struct {
	repo     Repository
	blobs    blobstore.Store
	metrics  *metrics.DocumentMetrics
	logger   zerolog.Logger
	tracer   trace.Tracer
	maxBytes int64
	now      func() time.Time
}

// NewService wires document uploads. maxBytes caps the stored payload size.
func NewService(repo Repository, blobs blobstore.Store, m *metrics.DocumentMetrics, logger zerolog.Logger, maxBytes int64) *Service {
	return &Service{
		repo:     repo,
		blobs:    blobs,
		metrics:  m,
		logger:   logger.With().Str("component", "documents").Logger(),
		tracer:   otel.Tracer("github.com/carepoint/hms/internal/domain/documents"),
		maxBytes: maxBytes,
		now:      time.Now,
	}
}

// Upload stores the payload and then its metadata row. The two writes are
// not atomic: when the insert fails the blob is deleted again.
func (s *Service) Upload(ctx context.Context, caller auth.Caller, up Upload) (doc *Document, err error) {
	ctx, span := s.tracer.Start(ctx, "documents.Upload", trace.WithAttributes(
		attribute.String("hms.caller.role", string(caller.Role)),
		attribute.Int64("hms.document.declared_size", up.Size),
	))
	var stored int64
	defer func() {
		s.metrics.ObserveUpload(uploadOutcome(err), stored)
		endSpan(span, err)
	}()

	patientID, err := s.uploadPatient(ctx, caller, up.PatientID)
	if err != nil {
		return nil, err
	}
	mediaType, desc, err := s.validateUpload(up)
	if err != nil {
		return nil, err
	}

	path := fmt.Sprintf("%s/%d-%s", caller.UserID, s.now().UnixMilli(), sanitizeFileName(up.FileName))
	// One byte over the cap is enough to tell an oversized stream apart.
	obj, err := s.blobs.Put(ctx, path, mediaType, io.LimitReader(up.Body, s.maxBytes+1))
	if err != nil {
		if errors.Is(err, blobstore.ErrExists) {
			return nil, apperr.Conflict(apperr.CodeConflict, "a document is already stored at this path, retry the upload")
		}
		return nil, apperr.Transient(fmt.Errorf("store blob: %w", err))
	}
	if obj.Size > s.maxBytes {
		s.compensate(ctx, path, errors.New("payload exceeds limit"))
		return nil, apperr.Validation("file", fmt.Sprintf("must not exceed %d bytes", s.maxBytes))
	}
	span.SetAttributes(attribute.String("hms.document.path", path))

	doc, err = s.repo.Create(ctx, store.Record{
		"patient_id":  patientID,
		"file_name":   up.FileName,
		"file_path":   path,
		"file_size":   obj.Size,
		"file_type":   mediaType,
		"description": desc,
		"uploaded_by": caller.ProfileID,
	})
	if err != nil {
		s.compensate(ctx, path, err)
		return nil, err
	}
	stored = obj.Size

	s.logger.Info().
		Str("document_id", doc.ID.String()).
		Str("patient_id", patientID.String()).
		Int64("size", obj.Size).
		Msg("document uploaded")
	return doc, nil
}

// compensate removes a blob whose metadata row was never written. It runs
// even if the request context is already cancelled.
func (s *Service) compensate(ctx context.Context, path string, cause error) {
	ctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), 10*time.Second)
	defer cancel()
	if err := s.blobs.Delete(ctx, path); err != nil {
		s.metrics.ObserveCompensation("failed")
		s.logger.Error().Err(err).AnErr("cause", cause).Str("path", path).
			Msg("orphaned blob: compensating delete failed")
		return
	}
	s.metrics.ObserveCompensation("deleted")
	s.logger.Warn().AnErr("cause", cause).Str("path", path).Msg("blob removed after failed metadata insert")
}

// uploadPatient resolves whose document this is. Patients upload for
// themselves; staff name a patient.
func (s *Service) uploadPatient(ctx context.Context, caller auth.Caller, patientID uuid.UUID) (uuid.UUID, error) {
	switch caller.Role {
	case auth.RolePatient:
		if patientID != uuid.Nil && patientID != caller.ProfileID {
			return uuid.Nil, apperr.Forbidden("patients can only upload their own documents")
		}
		return caller.ProfileID, nil
	case auth.RoleDoctor, auth.RoleAdmin:
		if patientID == uuid.Nil {
			return uuid.Nil, apperr.Validation("patient_id", "is required")
		}
		ok, err := s.repo.IsPatient(ctx, patientID)
		if err != nil {
			return uuid.Nil, err
		}
		if !ok {
			return uuid.Nil, apperr.Validation("patient_id", "must reference a patient")
		}
		return patientID, nil
	}
	return uuid.Nil, apperr.Forbidden("unknown role")
}

func (s *Service) validateUpload(up Upload) (string, *string, error) {
	fe := apperr.FieldErrors{}
	if up.Body == nil || strings.TrimSpace(up.FileName) == "" {
		fe.Add("file", "is required")
	}
	mediaType, _, err := mime.ParseMediaType(up.ContentType)
	mediaType = strings.ToLower(mediaType)
	if err != nil || !allowedTypes[mediaType] {
		fe.Add("file", "type must be PDF, PNG, JPEG, DICOM or plain text")
	}
	switch {
	case up.Size > s.maxBytes:
		fe.Add("file", fmt.Sprintf("must not exceed %d bytes", s.maxBytes))
	case up.Size == 0:
		fe.Add("file", "is empty")
	}
	var desc *string
	if up.Description != nil {
		d := strings.TrimSpace(*up.Description)
		if len([]rune(d)) > maxDescriptionLen {
			fe.Add("description", fmt.Sprintf("must be at most %d characters", maxDescriptionLen))
		}
		if d != "" {
			desc = &d
		}
	}
	return mediaType, desc, fe.Err()
}

// List returns documents newest first. Patients only see their own.
func (s *Service) List(ctx context.Context, caller auth.Caller, patientID *uuid.UUID, limit, offset int) ([]*Document, int, error) {
	var filters []store.Filter
	switch caller.Role {
	case auth.RolePatient:
		if patientID != nil && *patientID != caller.ProfileID {
			return nil, 0, apperr.Forbidden("patients can only view their own documents")
		}
		filters = append(filters, store.Where("patient_id", caller.ProfileID))
	case auth.RoleDoctor, auth.RoleAdmin:
		if patientID != nil {
			filters = append(filters, store.Where("patient_id", *patientID))
		}
	default:
		return nil, 0, apperr.Forbidden("unknown role")
	}
	return s.repo.List(ctx, store.Query{
		Filters: filters,
		Order:   []store.Order{store.Desc("created_at")},
		Limit:   limit,
		Offset:  offset,
	})
}

func (s *Service) Get(ctx context.Context, caller auth.Caller, id uuid.UUID) (*Document, error) {
	doc, err := s.repo.GetByID(ctx, id)
	if err != nil {
		if errors.Is(err, apperr.ErrNotFound) {
			return nil, apperr.NotFound("document")
		}
		return nil, err
	}
	if caller.Is(auth.RolePatient) && doc.PatientID != caller.ProfileID {
		return nil, apperr.NotFound("document")
	}
	return doc, nil
}

// Content opens the payload of a document visible to caller. The caller
// must close the reader.
func (s *Service) Content(ctx context.Context, caller auth.Caller, id uuid.UUID) (*Document, io.ReadCloser, error) {
	doc, err := s.Get(ctx, caller, id)
	if err != nil {
		return nil, nil, err
	}
	rc, _, err := s.blobs.Get(ctx, doc.FilePath)
	if err != nil {
		if errors.Is(err, blobstore.ErrNotFound) {
			s.logger.Error().Str("document_id", doc.ID.String()).Str("path", doc.FilePath).
				Msg("document payload missing from blob store")
			return nil, nil, apperr.NotFound("document content")
		}
		return nil, nil, apperr.Transient(fmt.Errorf("read blob: %w", err))
	}
	return doc, rc, nil
}

// sanitizeFileName keeps [A-Za-z0-9._-], replacing anything else with an
// underscore, and caps the length.
func sanitizeFileName(name string) string {
	var b strings.Builder
	for _, r := range name {
		switch {
		case r >= 'a' && r <= 'z', r >= 'A' && r <= 'Z', r >= '0' && r <= '9', r == '.', r == '_', r == '-':
			b.WriteRune(r)
		default:
			b.WriteByte('_')
		}
		if b.Len() >= maxFileNameLen {
			break
		}
	}
	out := strings.Trim(b.String(), ".")
	if out == "" {
		return "file"
	}
	return out
}

func uploadOutcome(err error) string {
	if err == nil {
		return "stored"
	}
	switch apperr.KindOf(err) {
	case apperr.KindValidation, apperr.KindForbidden:
		return "rejected"
	}
	return "error"
}

func endSpan(span trace.Span, err error) {
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
	}
	span.End()
}
