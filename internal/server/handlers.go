package server

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/ShayCichocki/anvil/internal/orchestrator"
)

// StartJobRequest is the POST /v1/jobs body.
type StartJobRequest struct {
	Task          string `json:"task" binding:"required"`
	Language      string `json:"language"`
	MaxIterations int    `json:"max_iterations"`
}

// StartJobResponse is the POST /v1/jobs reply.
type StartJobResponse struct {
	JobID string `json:"job_id"`
}

// AnswerRequest is the POST /v1/jobs/:id/answers body.
type AnswerRequest struct {
	QuestionID string `json:"question_id" binding:"required"`
	Answer     string `json:"answer" binding:"required"`
}

// FeedbackRequest is the POST /v1/jobs/:id/feedback body.
type FeedbackRequest struct {
	Message string `json:"message" binding:"required"`
}

type errorResponse struct {
	Error string `json:"error"`
}

func (s *Server) handleHealth(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"status": "ok"})
}

func (s *Server) handleStartJob(c *gin.Context) {
	var req StartJobRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, errorResponse{Error: err.Error()})
		return
	}

	jobID, err := s.engine.StartJob(req.Task, req.Language, req.MaxIterations)
	if err != nil {
		c.JSON(statusFor(err), errorResponse{Error: err.Error()})
		return
	}
	c.JSON(http.StatusCreated, StartJobResponse{JobID: jobID})
}

func (s *Server) handleListJobs(c *gin.Context) {
	c.JSON(http.StatusOK, s.engine.ListJobs())
}

func (s *Server) handleGetJob(c *gin.Context) {
	status, err := s.engine.GetStatus(c.Param("id"))
	if err != nil {
		c.JSON(statusFor(err), errorResponse{Error: err.Error()})
		return
	}
	c.JSON(http.StatusOK, status)
}

func (s *Server) handleCancelJob(c *gin.Context) {
	if err := s.engine.CancelJob(c.Param("id")); err != nil {
		c.JSON(statusFor(err), errorResponse{Error: err.Error()})
		return
	}
	c.JSON(http.StatusAccepted, gin.H{"status": "cancelling"})
}

func (s *Server) handleSubmitAnswer(c *gin.Context) {
	var req AnswerRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, errorResponse{Error: err.Error()})
		return
	}
	if err := s.engine.SubmitAnswer(c.Param("id"), req.QuestionID, req.Answer); err != nil {
		c.JSON(statusFor(err), errorResponse{Error: err.Error()})
		return
	}
	c.JSON(http.StatusOK, gin.H{"status": "accepted"})
}

func (s *Server) handleSubmitFeedback(c *gin.Context) {
	var req FeedbackRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, errorResponse{Error: err.Error()})
		return
	}
	if err := s.engine.SubmitFeedback(c.Param("id"), req.Message); err != nil {
		c.JSON(statusFor(err), errorResponse{Error: err.Error()})
		return
	}
	c.JSON(http.StatusOK, gin.H{"status": "accepted"})
}

// statusFor maps engine sentinel errors to HTTP status codes.
func statusFor(err error) int {
	switch {
	case errors.Is(err, orchestrator.ErrJobNotFound):
		return http.StatusNotFound
	case errors.Is(err, orchestrator.ErrJobTerminal),
		errors.Is(err, orchestrator.ErrJobNotTerminal):
		return http.StatusConflict
	case errors.Is(err, orchestrator.ErrShuttingDown):
		return http.StatusServiceUnavailable
	default:
		return http.StatusBadRequest
	}
}
