package server

import (
	"errors"
	"fmt"
	"net/http"
	"strconv"

	"github.com/google/uuid"
	"github.com/jonathan/application-assistant/internal/pipeline"
	"github.com/jonathan/application-assistant/internal/server/middleware"
	"github.com/jonathan/application-assistant/internal/types"
	"github.com/sirupsen/logrus"
)

// CreateApplicationResponse is returned by POST /applications.
type CreateApplicationResponse struct {
	ID      uuid.UUID                 `json:"id"`
	Outputs types.Outputs             `json:"outputs"`
	Errors  map[types.ToolName]string `json:"errors"`
}

// PaywallResponse is returned with 402 when the free quota is used up.
type PaywallResponse struct {
	Error string `json:"error"`
	Used  int    `json:"used"`
	Limit int    `json:"limit"`
}

// SaveFailedResponse carries the generated package when storing it failed,
// so the client can keep the content and retry.
type SaveFailedResponse struct {
	Error   string                    `json:"error"`
	Outputs types.Outputs             `json:"outputs"`
	Errors  map[types.ToolName]string `json:"errors"`
}

// StatusResponse is returned by PUT /applications/{id}/status.
type StatusResponse struct {
	ID               uuid.UUID               `json:"id"`
	Status           types.ApplicationStatus `json:"status"`
	CallbackReceived bool                    `json:"callbackReceived"`
}

// identity returns the caller or writes a 401.
func (s *Server) identity(w http.ResponseWriter, r *http.Request) (middleware.Identity, bool) {
	id, err := middleware.GetIdentity(r)
	if err != nil {
		s.errorResponse(w, http.StatusUnauthorized, "Unauthorized")
		return middleware.Identity{}, false
	}
	return id, true
}

// ownedRecord loads the application named by the {id} path value and checks
// that the caller owns it. Records owned by someone else are reported as
// missing so ids cannot be probed.
func (s *Server) ownedRecord(w http.ResponseWriter, r *http.Request, ownerID string) (*types.ApplicationRecord, bool) {
	id, err := uuid.Parse(r.PathValue("id"))
	if err != nil {
		s.errorResponse(w, http.StatusBadRequest, "Invalid application ID")
		return nil, false
	}

	record, err := s.records.GetByID(r.Context(), id)
	if err != nil {
		s.logger.WithError(err).WithField("application_id", id.String()).Error("Failed to load application")
		s.errorResponse(w, HTTPStatus(err), "Failed to load application")
		return nil, false
	}
	if record == nil || record.OwnerID != ownerID {
		s.errorResponse(w, http.StatusNotFound, "Application not found")
		return nil, false
	}
	return record, true
}

func (s *Server) handleUsage(w http.ResponseWriter, r *http.Request) {
	id, ok := s.identity(w, r)
	if !ok {
		return
	}
	s.jsonResponse(w, http.StatusOK, s.gate.CheckAllowed(r.Context(), id.UserID, id.Email))
}

func (s *Server) handleCreateApplication(w http.ResponseWriter, r *http.Request) {
	id, ok := s.identity(w, r)
	if !ok {
		return
	}

	var req types.CreateApplicationRequest
	if !s.readRequest(w, r, &req) {
		return
	}
	tools, err := types.ParseTools(req.Tools)
	if err != nil {
		s.errorResponse(w, http.StatusBadRequest, err.Error())
		return
	}

	result, err := s.runner.CreateApplication(r.Context(), pipeline.CreateOptions{
		OwnerID:        id.UserID,
		Email:          id.Email,
		Company:        req.Company,
		JobTitle:       req.JobTitle,
		JobDescription: req.JobDescription,
		Resume:         req.Resume,
		Tools:          tools,
	})
	if err != nil {
		var saveErr *pipeline.SaveError
		if errors.As(err, &saveErr) {
			s.jsonResponse(w, http.StatusInternalServerError, SaveFailedResponse{
				Error:   "Failed to save application",
				Outputs: saveErr.Outcome.Outputs,
				Errors:  saveErr.Outcome.Errors,
			})
			return
		}
		s.logger.WithError(err).WithField("user_id", id.UserID).Error("Application creation failed")
		s.errorResponse(w, HTTPStatus(err), clientMessage(err, "Failed to generate application package"))
		return
	}

	if result.Denied() {
		s.jsonResponse(w, http.StatusPaymentRequired, PaywallResponse{
			Error: string(result.Decision.Reason),
			Used:  result.Decision.Used,
			Limit: result.Decision.Limit,
		})
		return
	}

	s.jsonResponse(w, http.StatusCreated, CreateApplicationResponse{
		ID:      result.Record.ID,
		Outputs: result.Outcome.Outputs,
		Errors:  result.Outcome.Errors,
	})
}

func (s *Server) handleListApplications(w http.ResponseWriter, r *http.Request) {
	id, ok := s.identity(w, r)
	if !ok {
		return
	}

	records, err := s.records.QueryByOwner(r.Context(), id.UserID)
	if err != nil {
		s.logger.WithError(err).WithField("user_id", id.UserID).Error("Failed to list applications")
		s.errorResponse(w, HTTPStatus(err), "Failed to list applications")
		return
	}
	if records == nil {
		records = []types.ApplicationRecord{}
	}
	s.jsonResponse(w, http.StatusOK, records)
}

func (s *Server) handleApplicationStats(w http.ResponseWriter, r *http.Request) {
	id, ok := s.identity(w, r)
	if !ok {
		return
	}

	records, err := s.records.QueryByOwner(r.Context(), id.UserID)
	if err != nil {
		s.logger.WithError(err).WithField("user_id", id.UserID).Error("Failed to load applications for stats")
		s.errorResponse(w, HTTPStatus(err), "Failed to load statistics")
		return
	}
	s.jsonResponse(w, http.StatusOK, types.ComputeStats(records))
}

func (s *Server) handleGetApplication(w http.ResponseWriter, r *http.Request) {
	id, ok := s.identity(w, r)
	if !ok {
		return
	}
	record, ok := s.ownedRecord(w, r, id.UserID)
	if !ok {
		return
	}
	s.jsonResponse(w, http.StatusOK, record)
}

func (s *Server) handleUpdateStatus(w http.ResponseWriter, r *http.Request) {
	id, ok := s.identity(w, r)
	if !ok {
		return
	}

	var req types.UpdateStatusRequest
	if !s.readRequest(w, r, &req) {
		return
	}
	status, err := types.ParseApplicationStatus(req.Status)
	if err != nil {
		s.errorResponse(w, http.StatusBadRequest, err.Error())
		return
	}

	record, ok := s.ownedRecord(w, r, id.UserID)
	if !ok {
		return
	}

	if err := s.records.UpdateStatus(r.Context(), record.ID, status); err != nil {
		s.logger.WithError(err).WithField("application_id", record.ID.String()).Error("Failed to update status")
		s.errorResponse(w, HTTPStatus(err), "Failed to update status")
		return
	}

	s.jsonResponse(w, http.StatusOK, StatusResponse{
		ID:               record.ID,
		Status:           status,
		CallbackReceived: status.CallbackReceived(),
	})
}

func (s *Server) handleExportApplication(w http.ResponseWriter, r *http.Request) {
	id, ok := s.identity(w, r)
	if !ok {
		return
	}
	record, ok := s.ownedRecord(w, r, id.UserID)
	if !ok {
		return
	}

	artifact, err := s.exporter.Render(r.Context(), record)
	if err != nil {
		s.logger.WithFields(logrus.Fields{
			"application_id": record.ID.String(),
			"error":          err.Error(),
		}).Error("Export failed")
		s.errorResponse(w, http.StatusInternalServerError, "Failed to export application")
		return
	}

	w.Header().Set("Content-Type", artifact.ContentType)
	w.Header().Set("Content-Disposition", fmt.Sprintf("attachment; filename=%q", artifact.Filename))
	w.Header().Set("Content-Length", strconv.Itoa(len(artifact.Data)))
	w.WriteHeader(http.StatusOK)
	if _, err := w.Write(artifact.Data); err != nil {
		s.logger.WithError(err).Warn("Failed to write export")
	}
}
