package server

import (
	"context"
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/jonathan/blog-agent/internal/db"
	"github.com/jonathan/blog-agent/internal/pipeline"
	"github.com/jonathan/blog-agent/internal/queue"
	"github.com/jonathan/blog-agent/internal/types"
)

// generationFailedMessage is the public error for any generation that could
// not produce a post.
const generationFailedMessage = "failed to generate blog with AI"

func (s *Server) handleHealth(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"status": "ok"})
}

// handleGenerate runs one generation synchronously under the request deadline.
func (s *Server) handleGenerate(c *gin.Context) {
	var req types.PublishRequest
	if !s.bind(c, &req, req.Validate) {
		return
	}

	ctx, cancel := context.WithTimeout(c.Request.Context(), s.requestTimeout)
	defer cancel()

	result, err := s.publisher.Publish(ctx, req, nil)
	if err != nil {
		s.generationFailed(c, err)
		return
	}
	c.JSON(http.StatusCreated, result)
}

// handleGenerateBatch runs each topic in order. Topics that fail are omitted.
func (s *Server) handleGenerateBatch(c *gin.Context) {
	var req types.BatchRequest
	if !s.bind(c, &req, req.Validate) {
		return
	}

	results, err := s.publisher.PublishBatch(c.Request.Context(), req)
	if err != nil {
		s.generationFailed(c, err)
		return
	}
	if results == nil {
		results = []*pipeline.Result{}
	}
	c.JSON(http.StatusCreated, results)
}

func (s *Server) handleEnqueue(c *gin.Context) {
	var req types.PublishRequest
	if !s.bind(c, &req, req.Validate) {
		return
	}

	id, err := s.jobs.Enqueue(c.Request.Context(), req)
	if err != nil {
		s.logger.Error("failed to enqueue job", zap.Error(err))
		s.errorResponse(c, http.StatusInternalServerError, "failed to enqueue job")
		return
	}
	c.JSON(http.StatusAccepted, gin.H{"job_id": id})
}

func (s *Server) handleJobStatus(c *gin.Context) {
	status, err := s.jobs.Status(c.Request.Context(), c.Param("id"))
	if errors.Is(err, queue.ErrJobNotFound) {
		c.JSON(http.StatusNotFound, gin.H{"status": "not_found"})
		return
	}
	if err != nil {
		s.logger.Error("failed to read job status", zap.String("job_id", c.Param("id")), zap.Error(err))
		s.errorResponse(c, http.StatusInternalServerError, "failed to read job status")
		return
	}
	c.JSON(http.StatusOK, status)
}

func (s *Server) handleGetPost(c *gin.Context) {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		s.errorResponse(c, http.StatusBadRequest, "invalid post id")
		return
	}
	post, err := s.posts.GetPost(c.Request.Context(), id)
	s.postResponse(c, post, err, &ErrNotFound{Resource: "post", ID: id.String()})
}

func (s *Server) handleGetPostBySlug(c *gin.Context) {
	slug := c.Param("slug")
	post, err := s.posts.GetPostBySlug(c.Request.Context(), slug)
	s.postResponse(c, post, err, &ErrNotFound{Resource: "post", ID: slug})
}

func (s *Server) postResponse(c *gin.Context, post *db.Post, err error, notFound *ErrNotFound) {
	if err == nil && post == nil {
		err = notFound
	}
	if err != nil {
		status := HTTPStatus(err)
		if status == http.StatusInternalServerError {
			s.logger.Error("failed to read post", zap.Error(err))
			s.errorResponse(c, status, "failed to read post")
			return
		}
		s.errorResponse(c, status, err.Error())
		return
	}
	c.JSON(http.StatusOK, post)
}

// bind decodes the JSON body into dst and runs its validation. It writes the
// 400 response itself and reports whether the handler may continue.
func (s *Server) bind(c *gin.Context, dst any, validate func() error) bool {
	if err := c.ShouldBindJSON(dst); err != nil {
		s.errorResponse(c, http.StatusBadRequest, validationError(err).Error())
		return false
	}
	if err := validate(); err != nil {
		s.errorResponse(c, http.StatusBadRequest, validationError(err).Error())
		return false
	}
	return true
}

// generationFailed hides provider details behind a single public message.
func (s *Server) generationFailed(c *gin.Context, err error) {
	_ = c.Error(err)
	status := HTTPStatus(err)
	if status == http.StatusBadRequest {
		s.errorResponse(c, status, err.Error())
		return
	}
	s.logger.Error("generation failed", zap.Error(err))
	s.errorResponse(c, http.StatusInternalServerError, generationFailedMessage)
}

// errorResponse writes an error JSON response
func (s *Server) errorResponse(c *gin.Context, status int, message string) {
	c.AbortWithStatusJSON(status, gin.H{"error": message})
}
