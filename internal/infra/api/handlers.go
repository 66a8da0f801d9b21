package api

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-playground/validator/v10"

	"manuscript-pipeline/internal/domain/model"
	portuc "manuscript-pipeline/internal/domain/ports/usecase"
	"manuscript-pipeline/internal/infra/logging"
	"manuscript-pipeline/internal/usecase"
)

type enqueueRequest struct {
	TargetID string          `json:"targetId" validate:"required,max=128"`
	JobType  string          `json:"jobType" validate:"required,oneof=IMAGE_OCR AUDIO_TRANSCRIPTION VIDEO_EXTRACTION"`
	Payload  json.RawMessage `json:"payload" validate:"required"`
}

type jobResponse struct {
	JobID      string `json:"jobId"`
	TargetID   string `json:"targetId"`
	JobType    string `json:"jobType"`
	Generation string `json:"generation"`
}

func toJobResponse(j *model.Job) jobResponse {
	return jobResponse{JobID: j.ID, TargetID: j.TargetID, JobType: string(j.Type), Generation: j.Generation}
}

func (s *Server) handleEnqueue(w http.ResponseWriter, r *http.Request) {
	var req enqueueRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid request body")
		return
	}
	req.TargetID = strings.TrimSpace(req.TargetID)
	if err := s.validate.Struct(req); err != nil {
		writeError(w, http.StatusUnprocessableEntity, validationMessage(err))
		return
	}
	payload, err := model.DecodePayload(model.JobType(req.JobType), req.Payload)
	if err != nil {
		writeError(w, http.StatusUnprocessableEntity, "payload does not match jobType")
		return
	}

	job, err := s.queue.Enqueue(r.Context(), req.TargetID, payload)
	if err != nil {
		s.fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusAccepted, toJobResponse(job))
}

func (s *Server) handleFinalize(w http.ResponseWriter, r *http.Request) {
	job, err := s.status.EnqueueFromMedia(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		s.fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusAccepted, toJobResponse(job))
}

func (s *Server) handleStatus(w http.ResponseWriter, r *http.Request) {
	v, err := s.status.GetStatus(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		s.fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, v)
}

func (s *Server) handleTranslation(w http.ResponseWriter, r *http.Request) {
	res, err := s.translation.RequestTranslation(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		s.fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, res)
}

type dispatchResponse struct {
	Message       string `json:"message,omitempty"`
	Success       bool   `json:"success,omitempty"`
	Superseded    bool   `json:"superseded,omitempty"`
	Error         string `json:"error,omitempty"`
	Detail        string `json:"detail,omitempty"`
	JobID         string `json:"jobId,omitempty"`
	TargetID      string `json:"targetId,omitempty"`
	JobType       string `json:"jobType,omitempty"`
	WillRetry     *bool  `json:"willRetry,omitempty"`
	NextAttemptIn string `json:"nextAttemptIn,omitempty"`
}

func (s *Server) handleDispatch(w http.ResponseWriter, r *http.Request) {
	res, err := s.dispatcher.RunOnce(r.Context())
	if err != nil {
		logging.With(r.Context(), s.log).Error().Err(err).Msg("dispatch failed")
		writeJSON(w, http.StatusInternalServerError, dispatchResponse{
			Error:  "Failed to claim next job. Did you run the migrations?",
			Detail: usecase.Summarize(err),
		})
		return
	}

	switch res.Outcome {
	case portuc.DispatchNoWork:
		writeJSON(w, http.StatusOK, dispatchResponse{Message: "No pending jobs"})
	case portuc.DispatchSuccess:
		writeJSON(w, http.StatusOK, dispatchResponse{Success: true, JobID: res.JobID, TargetID: res.TargetID, JobType: res.JobType})
	case portuc.DispatchSuperseded:
		writeJSON(w, http.StatusOK, dispatchResponse{Superseded: true, JobID: res.JobID, TargetID: res.TargetID, JobType: res.JobType})
	default:
		retry := res.WillRetry
		writeJSON(w, http.StatusInternalServerError, dispatchResponse{
			Error:         res.Error,
			JobID:         res.JobID,
			TargetID:      res.TargetID,
			JobType:       res.JobType,
			WillRetry:     &retry,
			NextAttemptIn: seconds(res.NextAttemptIn),
		})
	}
}

// fail writes the mapped status; 5xx causes are logged and summarized.
func (s *Server) fail(w http.ResponseWriter, r *http.Request, err error) {
	code := statusFor(err)
	if code >= http.StatusInternalServerError {
		logging.With(r.Context(), s.log).Error().Err(err).Str("path", r.URL.Path).Msg("request failed")
	}
	writeError(w, code, usecase.Summarize(err))
}

func validationMessage(err error) string {
	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) || len(verrs) == 0 {
		return "invalid request"
	}
	fe := verrs[0]
	switch fe.Tag() {
	case "required":
		return fmt.Sprintf("%s is required", fe.Field())
	case "oneof":
		return fmt.Sprintf("%s must be one of: %s", fe.Field(), fe.Param())
	default:
		return fmt.Sprintf("%s is invalid", fe.Field())
	}
}

func seconds(d time.Duration) string {
	return fmt.Sprintf("%ds", int(d/time.Second))
}
