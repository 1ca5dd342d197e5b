package server

import (
	"net/http"

	"github.com/jonathan/application-assistant/internal/generation"
	"github.com/jonathan/application-assistant/internal/prompts"
	"github.com/jonathan/application-assistant/internal/types"
)

// validatable is implemented by every request body in types.
type validatable interface {
	Validate() error
}

// readRequest decodes and validates a request body, writing a 400 on failure.
func (s *Server) readRequest(w http.ResponseWriter, r *http.Request, req validatable) bool {
	if err := decodeJSON(r, w, req); err != nil {
		s.errorResponse(w, http.StatusBadRequest, "Invalid request body")
		return false
	}
	if err := req.Validate(); err != nil {
		s.errorResponse(w, http.StatusBadRequest, err.Error())
		return false
	}
	return true
}

// complete runs one standalone prompt and writes {field: text}.
func (s *Server) complete(w http.ResponseWriter, r *http.Request, tool types.ToolName, prompt, field string) {
	text, err := s.generator.Complete(r.Context(), tool, prompt)
	if err != nil {
		s.logger.WithError(err).WithField("tool", tool).Error("Generation failed")
		s.errorResponse(w, HTTPStatus(err), clientMessage(err, generation.SpecFor(tool).FailureReason))
		return
	}
	s.jsonResponse(w, http.StatusOK, map[string]string{field: text})
}

func (s *Server) handleOptimizeResume(w http.ResponseWriter, r *http.Request) {
	var req types.OptimizeResumeRequest
	if !s.readRequest(w, r, &req) {
		return
	}
	s.complete(w, r, types.ToolResume, prompts.OptimizeResume(req.Resume), "optimized")
}

func (s *Server) handleGenerateCoverLetter(w http.ResponseWriter, r *http.Request) {
	var req types.JobAndResumeRequest
	if !s.readRequest(w, r, &req) {
		return
	}
	s.complete(w, r, types.ToolCoverLetter, prompts.CoverLetter(req.JobDescription, req.Resume), "coverLetter")
}

func (s *Server) handleGenerateInterviewPrep(w http.ResponseWriter, r *http.Request) {
	var req types.JobAndResumeRequest
	if !s.readRequest(w, r, &req) {
		return
	}
	s.complete(w, r, types.ToolInterviewPrep, prompts.InterviewPrep(req.JobDescription, req.Resume), "interviewPrep")
}

func (s *Server) handleAnalyzeJobDescription(w http.ResponseWriter, r *http.Request) {
	var req types.AnalyzeJobRequest
	if !s.readRequest(w, r, &req) {
		return
	}
	s.complete(w, r, types.ToolJobAnalyzer, prompts.JobAnalyzer(req.JobDescription), "analysis")
}

func (s *Server) handleOptimizeLinkedIn(w http.ResponseWriter, r *http.Request) {
	var req types.OptimizeLinkedInRequest
	if !s.readRequest(w, r, &req) {
		return
	}
	s.complete(w, r, types.ToolLinkedIn, prompts.OptimizeLinkedIn(req.LinkedInProfile), "optimized")
}

// packageRequest reads a package body into a generation request.
func (s *Server) packageRequest(w http.ResponseWriter, r *http.Request) (types.GenerationRequest, bool) {
	var req types.PackageRequest
	if !s.readRequest(w, r, &req) {
		return types.GenerationRequest{}, false
	}
	tools, err := types.ParseTools(req.Tools)
	if err != nil {
		s.errorResponse(w, http.StatusBadRequest, err.Error())
		return types.GenerationRequest{}, false
	}
	return types.GenerationRequest{JobDescription: req.JobDescription, Resume: req.Resume, Tools: tools}, true
}

// handleGeneratePackage runs every selected tool and returns
// {outputs, errors}; errors is null when every tool succeeded.
func (s *Server) handleGeneratePackage(w http.ResponseWriter, r *http.Request) {
	req, ok := s.packageRequest(w, r)
	if !ok {
		return
	}

	outcome, err := s.generator.Generate(r.Context(), req)
	if err != nil {
		s.logger.WithError(err).Error("Package generation failed")
		s.errorResponse(w, HTTPStatus(err), clientMessage(err, "Failed to generate application package"))
		return
	}
	s.jsonResponse(w, http.StatusOK, outcome)
}

// handleGeneratePackageStream is the SSE variant of handleGeneratePackage:
// one "progress" event per tool state change, then "complete" or "error".
func (s *Server) handleGeneratePackageStream(w http.ResponseWriter, r *http.Request) {
	req, ok := s.packageRequest(w, r)
	if !ok {
		return
	}

	sse, err := NewSSEWriter(w)
	if err != nil {
		s.errorResponse(w, http.StatusInternalServerError, err.Error())
		return
	}

	orchestrator := s.generator.Observe(sse.WriteProgress)
	outcome, err := orchestrator.Generate(r.Context(), req)
	if err != nil {
		s.logger.WithError(err).Error("Package generation failed")
		sse.WriteError(clientMessage(err, "Failed to generate application package"))
		return
	}
	sse.WriteComplete(outcome)
}
