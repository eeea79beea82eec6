package server

import (
	"bytes"
	"fmt"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/Makepad-fr/tada-remote/internal/model"
	"github.com/Makepad-fr/tada-remote/internal/storage/sqlite"
)

type todoRequest struct {
	Description *string       `json:"description"`
	Status      *model.Status `json:"status"`
}

// handleList returns every todo.
func (s *Server) handleList(c *gin.Context) {
	todos, err := s.repo.List(c.Request.Context(), "")
	if err != nil {
		s.respondError(c, http.StatusInternalServerError, err)
		return
	}
	c.JSON(http.StatusOK, todos)
}

// handleFilter returns todos with the requested status.
func (s *Server) handleFilter(c *gin.Context) {
	status, err := model.ParseStatus(c.Query("status"))
	if err != nil {
		s.respondError(c, http.StatusBadRequest, err)
		return
	}
	todos, err := s.repo.List(c.Request.Context(), status)
	if err != nil {
		s.respondError(c, http.StatusInternalServerError, err)
		return
	}
	c.JSON(http.StatusOK, todos)
}

// handleCreate inserts a todo and returns it with its id.
func (s *Server) handleCreate(c *gin.Context) {
	var req todoRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		s.respondError(c, http.StatusBadRequest, err)
		return
	}
	if req.Description == nil {
		s.respondError(c, http.StatusBadRequest, fmt.Errorf("description is required"))
		return
	}

	todo, err := s.repo.Create(c.Request.Context(), *req.Description, getStatus(req.Status))
	if err != nil {
		s.respondError(c, http.StatusInternalServerError, err)
		return
	}
	c.JSON(http.StatusCreated, todo)
}

// handleUpdate sets whichever fields the body carries.
func (s *Server) handleUpdate(c *gin.Context) {
	var req todoRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		s.respondError(c, http.StatusBadRequest, err)
		return
	}

	todo, err := s.repo.Update(c.Request.Context(), c.Param("id"), sqlite.Changes{
		Description: req.Description,
		Status:      req.Status,
	})
	if err != nil {
		s.respondError(c, http.StatusInternalServerError, err)
		return
	}
	c.JSON(http.StatusOK, todo)
}

// handleDelete removes a todo completely.
func (s *Server) handleDelete(c *gin.Context) {
	if err := s.repo.Delete(c.Request.Context(), c.Param("id")); err != nil {
		s.respondError(c, http.StatusInternalServerError, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"status": "deleted"})
}

// handleUpload imports the CSV sent as multipart field "file".
func (s *Server) handleUpload(c *gin.Context) {
	fh, err := c.FormFile("file")
	if err != nil {
		s.respondError(c, http.StatusBadRequest, fmt.Errorf("file is required: %w", err))
		return
	}
	f, err := fh.Open()
	if err != nil {
		s.respondError(c, http.StatusBadRequest, err)
		return
	}
	defer f.Close()

	n, err := s.repo.Import(c.Request.Context(), f)
	if err != nil {
		s.respondError(c, http.StatusInternalServerError, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"imported": n})
}

// handleDownload streams every todo as todos.csv.
func (s *Server) handleDownload(c *gin.Context) {
	var buf bytes.Buffer
	if err := s.repo.Export(c.Request.Context(), &buf); err != nil {
		s.respondError(c, http.StatusInternalServerError, err)
		return
	}
	c.Header("Content-Disposition", `attachment; filename="todos.csv"`)
	c.Data(http.StatusOK, "text/csv; charset=utf-8", buf.Bytes())
}

func getStatus(v *model.Status) model.Status {
	if v == nil {
		return ""
	}
	return *v
}
