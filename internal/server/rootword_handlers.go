package server

import (
	"errors"
	"io"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/hibiken/asynq"

	"github.com/rootword-dev/rootword/internal/ddl"
	"github.com/rootword-dev/rootword/internal/models"
	"github.com/rootword-dev/rootword/internal/rootwords"
	"github.com/rootword-dev/rootword/internal/seed"
	"github.com/rootword-dev/rootword/internal/tasks"
)

// ApplyRootWordRequest represents a root word application
type ApplyRootWordRequest struct {
	WordName       string  `json:"word_name" binding:"required" validate:"max=64,wordname"`
	MySQLType      string  `json:"mysql_type" binding:"required" validate:"max=64"`
	DorisType      string  `json:"doris_type" binding:"required" validate:"max=64"`
	ClickHouseType string  `json:"clickhouse_type" binding:"required" validate:"max=64"`
	Remark         *string `json:"remark" validate:"omitempty,max=256"`
}

// AuditRootWordRequest represents an audit decision
type AuditRootWordRequest struct {
	WordID      string  `json:"word_id" binding:"required"`
	AuditResult int     `json:"audit_result" binding:"required" validate:"oneof=1 2"`
	AuditRemark *string `json:"audit_remark" validate:"omitempty,max=256"`
}

// UpdateRootWordRequest is a partial update of a root word
type UpdateRootWordRequest struct {
	ID             string  `json:"id" binding:"required"`
	WordName       *string `json:"word_name" validate:"omitempty,max=64,wordname"`
	MySQLType      *string `json:"mysql_type" validate:"omitempty,max=64"`
	DorisType      *string `json:"doris_type" validate:"omitempty,max=64"`
	ClickHouseType *string `json:"clickhouse_type" validate:"omitempty,max=64"`
	Remark         *string `json:"remark" validate:"omitempty,max=256"`
}

// ListRootWordsRequest filters the root word list
type ListRootWordsRequest struct {
	PageNum   int    `json:"page_num" validate:"omitempty,min=1"`
	PageSize  int    `json:"page_size" validate:"omitempty,min=1,max=100"`
	WordName  string `json:"word_name"`
	Status    string `json:"status" validate:"omitempty,oneof=pending_audit effective discarded"`
	ApplyUser string `json:"apply_user"`
}

// DDLRequest carries a CREATE TABLE statement
type DDLRequest struct {
	DDL string `json:"ddl" binding:"required"`
}

func (s *Server) respondRootWordError(c *gin.Context, err error, action string) {
	switch {
	case errors.Is(err, rootwords.ErrNotFound):
		c.JSON(http.StatusNotFound, gin.H{"error": "Root word not found"})
	case errors.Is(err, rootwords.ErrNotOwner):
		c.JSON(http.StatusForbidden, gin.H{"error": err.Error()})
	case errors.Is(err, rootwords.ErrNameTaken),
		errors.Is(err, rootwords.ErrInvalidState):
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
	default:
		s.logger.Error().Err(err).Msg("Failed to " + action)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to " + action})
	}
}

func (s *Server) bindAndValidate(c *gin.Context, req interface{}) bool {
	if err := c.ShouldBindJSON(req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return false
	}
	if err := s.validator.Struct(req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return false
	}
	return true
}

// @Summary Apply for a root word
// @Tags root-word
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param request body ApplyRootWordRequest true "Application"
// @Success 200 {object} Response
// @Router /api/root-word/apply [post]
func (s *Server) applyRootWord(c *gin.Context) {
	var req ApplyRootWordRequest
	if !s.bindAndValidate(c, &req) {
		return
	}

	sessionData, _ := GetSessionData(c)
	word, err := s.rootWordsService.Apply(c.Request.Context(), rootwords.ApplyParams{
		WordName:       req.WordName,
		MySQLType:      req.MySQLType,
		DorisType:      req.DorisType,
		ClickHouseType: req.ClickHouseType,
		Remark:         req.Remark,
	}, sessionData.Username)
	if err != nil {
		s.respondRootWordError(c, err, "apply root word")
		return
	}

	respondOK(c, "root word submitted for audit", word)
}

// @Summary Delete a pending root word
// @Description Applicants can delete their own words while pending audit
// @Tags root-word
// @Security BearerAuth
// @Param id path string true "Root word ID"
// @Success 200 {object} Response
// @Router /api/root-word/delete-pending/{id} [delete]
func (s *Server) deletePendingRootWord(c *gin.Context) {
	sessionData, _ := GetSessionData(c)
	if err := s.rootWordsService.DeletePending(c.Request.Context(), c.Param("id"), sessionData.Username); err != nil {
		s.respondRootWordError(c, err, "delete root word")
		return
	}
	respondOK(c, "root word deleted", nil)
}

// @Summary Audit a root word
// @Tags root-word
// @Security BearerAuth
// @Param request body AuditRootWordRequest true "Audit decision"
// @Success 200 {object} Response
// @Router /api/root-word/audit [post]
func (s *Server) auditRootWord(c *gin.Context) {
	var req AuditRootWordRequest
	if !s.bindAndValidate(c, &req) {
		return
	}

	sessionData, _ := GetSessionData(c)
	word, err := s.rootWordsService.Audit(c.Request.Context(), rootwords.AuditParams{
		WordID:      req.WordID,
		AuditResult: req.AuditResult,
		AuditRemark: req.AuditRemark,
	}, sessionData.Username)
	if err != nil {
		s.respondRootWordError(c, err, "audit root word")
		return
	}

	respondOK(c, "audit complete", word)
}

// @Summary Discard an effective root word
// @Tags root-word
// @Security BearerAuth
// @Param id path string true "Root word ID"
// @Success 200 {object} Response
// @Router /api/root-word/discard/{id} [post]
func (s *Server) discardRootWord(c *gin.Context) {
	sessionData, _ := GetSessionData(c)
	if err := s.rootWordsService.Discard(c.Request.Context(), c.Param("id"), sessionData.Username); err != nil {
		s.respondRootWordError(c, err, "discard root word")
		return
	}
	respondOK(c, "root word discarded", nil)
}

// @Summary Recover a discarded root word
// @Tags root-word
// @Security BearerAuth
// @Param id path string true "Root word ID"
// @Success 200 {object} Response
// @Router /api/root-word/recover/{id} [post]
func (s *Server) recoverRootWord(c *gin.Context) {
	sessionData, _ := GetSessionData(c)
	if err := s.rootWordsService.Recover(c.Request.Context(), c.Param("id"), sessionData.Username); err != nil {
		s.respondRootWordError(c, err, "recover root word")
		return
	}
	respondOK(c, "root word recovered", nil)
}

// @Summary Edit a root word
// @Tags root-word
// @Security BearerAuth
// @Param request body UpdateRootWordRequest true "Changes"
// @Success 200 {object} Response
// @Router /api/root-word/update [put]
func (s *Server) updateRootWord(c *gin.Context) {
	var req UpdateRootWordRequest
	if !s.bindAndValidate(c, &req) {
		return
	}

	sessionData, _ := GetSessionData(c)
	word, err := s.rootWordsService.Update(c.Request.Context(), rootwords.UpdateParams{
		ID:             req.ID,
		WordName:       req.WordName,
		MySQLType:      req.MySQLType,
		DorisType:      req.DorisType,
		ClickHouseType: req.ClickHouseType,
		Remark:         req.Remark,
	}, sessionData.Username)
	if err != nil {
		s.respondRootWordError(c, err, "update root word")
		return
	}

	respondOK(c, "root word updated", word)
}

// @Summary Force delete a root word
// @Tags root-word
// @Security BearerAuth
// @Param id path string true "Root word ID"
// @Success 200 {object} Response
// @Router /api/root-word/force-delete/{id} [delete]
func (s *Server) forceDeleteRootWord(c *gin.Context) {
	sessionData, _ := GetSessionData(c)
	if err := s.rootWordsService.ForceDelete(c.Request.Context(), c.Param("id"), sessionData.Username); err != nil {
		s.respondRootWordError(c, err, "delete root word")
		return
	}
	respondOK(c, "root word deleted", nil)
}

// @Summary List root words
// @Tags root-word
// @Security BearerAuth
// @Param request body ListRootWordsRequest true "Filters"
// @Success 200 {object} Response
// @Router /api/root-word/list [post]
func (s *Server) listRootWords(c *gin.Context) {
	var req ListRootWordsRequest
	if c.Request.ContentLength != 0 && !s.bindAndValidate(c, &req) {
		return
	}

	page, err := s.rootWordsService.List(c.Request.Context(), rootwords.ListParams{
		PageNum:   req.PageNum,
		PageSize:  req.PageSize,
		WordName:  req.WordName,
		Status:    models.RootWordStatus(req.Status),
		ApplyUser: req.ApplyUser,
	})
	if err != nil {
		s.respondRootWordError(c, err, "list root words")
		return
	}

	respondOK(c, "success", page)
}

// @Summary Root word operation log
// @Tags root-word
// @Security BearerAuth
// @Param id path string true "Root word ID"
// @Success 200 {object} Response
// @Router /api/root-word/logs/{id} [get]
func (s *Server) getRootWordLogs(c *gin.Context) {
	logs, err := s.rootWordsService.Logs(c.Request.Context(), c.Param("id"))
	if err != nil {
		s.respondRootWordError(c, err, "load operation logs")
		return
	}
	respondOK(c, "success", logs)
}

// @Summary Check DDL against the dictionary
// @Tags root-word
// @Security BearerAuth
// @Param request body DDLRequest true "DDL"
// @Success 200 {object} Response
// @Router /api/root-word/ddl/check [post]
func (s *Server) checkDDL(c *gin.Context) {
	var req DDLRequest
	if !s.bindAndValidate(c, &req) {
		return
	}

	dict, err := s.dictionary.Snapshot(c.Request.Context())
	if err != nil {
		s.logger.Error().Err(err).Msg("Failed to load dictionary")
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to load dictionary"})
		return
	}

	result := ddl.Check(req.DDL, dict)
	s.logger.Debug().
		Str("engine", string(result.Engine)).
		Int("fields", len(result.Parsed)).
		Int("non_compliant", len(result.NonCompliant)).
		Msg("DDL checked")

	respondOK(c, "success", result)
}

// @Summary Replace DDL column types with standard types
// @Tags root-word
// @Security BearerAuth
// @Param request body DDLRequest true "DDL"
// @Success 200 {object} Response
// @Router /api/root-word/ddl/replace [post]
func (s *Server) replaceDDL(c *gin.Context) {
	var req DDLRequest
	if !s.bindAndValidate(c, &req) {
		return
	}

	dict, err := s.dictionary.Snapshot(c.Request.Context())
	if err != nil {
		s.logger.Error().Err(err).Msg("Failed to load dictionary")
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to load dictionary"})
		return
	}

	respondOK(c, "success", ddl.Replace(req.DDL, dict))
}

// ImportResponse identifies the enqueued import
type ImportResponse struct {
	TaskID string `json:"task_id"`
	Words  int    `json:"words"`
}

// @Summary Import a seed document
// @Description Accepts a YAML or JSON seed document and imports it in the background
// @Tags root-word
// @Accept json,x-yaml
// @Security BearerAuth
// @Success 200 {object} Response
// @Router /api/root-word/import [post]
func (s *Server) importRootWords(c *gin.Context) {
	body, err := io.ReadAll(io.LimitReader(c.Request.Body, 4<<20))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Failed to read request body"})
		return
	}

	words, err := seed.Parse(body)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	sessionData, _ := GetSessionData(c)
	task, err := tasks.NewImportRootWordsTask(words, sessionData.Username, sessionData.UserID)
	if err != nil {
		s.logger.Error().Err(err).Msg("Failed to create import task")
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to create import task"})
		return
	}

	info, err := s.enqueuer.Enqueue(task, asynq.Retention(24*time.Hour))
	if err != nil {
		s.logger.Error().Err(err).Msg("Failed to enqueue import task")
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to enqueue import task"})
		return
	}

	s.logger.Info().
		Str("task_id", info.ID).
		Int("words", len(words)).
		Str("imported_by", sessionData.Username).
		Msg("Root word import enqueued")

	respondOK(c, "import enqueued", ImportResponse{TaskID: info.ID, Words: len(words)})
}
