package rootwords

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/rs/zerolog"
	"gorm.io/gorm"

	"github.com/rootword-dev/rootword/internal/assert"
	"github.com/rootword-dev/rootword/internal/models"
)

var (
	ErrNotFound     = errors.New("root word not found")
	ErrNameTaken    = errors.New("root word name already exists")
	ErrInvalidState = errors.New("root word is not in a valid state for this operation")
	ErrNotOwner     = errors.New("only the applicant can delete this root word")
)

// Audit results accepted by Audit
const (
	AuditApprove = 1
	AuditReject  = 2
)

// Invalidator is notified whenever the set of effective words may have changed
type Invalidator interface {
	Invalidate()
}

type Service struct {
	db          *gorm.DB
	invalidator Invalidator
	logger      zerolog.Logger
	now         func() time.Time
}

func NewService(db *gorm.DB, invalidator Invalidator, logger zerolog.Logger) *Service {
	return &Service{
		db:          db,
		invalidator: invalidator,
		logger:      logger.With().Str("component", "rootwords_service").Logger(),
		now:         time.Now,
	}
}

// ApplyParams describes a new root word application
type ApplyParams struct {
	WordName       string
	MySQLType      string
	DorisType      string
	ClickHouseType string
	Remark         *string
}

// Apply submits a root word for audit. A name previously deleted or
// discarded is reused and reset to pending audit.
func (s *Service) Apply(ctx context.Context, params ApplyParams, username string) (*models.RootWord, error) {
	var word models.RootWord

	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var existing models.RootWord
		err := tx.Where("word_name = ?", params.WordName).First(&existing).Error
		switch {
		case err == nil:
			if !existing.Deleted && existing.Status != models.StatusDiscarded {
				return ErrNameTaken
			}

			existing.MySQLType = params.MySQLType
			existing.DorisType = params.DorisType
			existing.ClickHouseType = params.ClickHouseType
			existing.Remark = params.Remark
			existing.Status = models.StatusPendingAudit
			existing.ApplyUser = username
			existing.ApplyTime = s.now()
			existing.AuditUser = nil
			existing.AuditTime = nil
			existing.AuditRemark = nil
			existing.Deleted = false
			if err := tx.Save(&existing).Error; err != nil {
				return fmt.Errorf("failed to reapply root word: %w", err)
			}
			word = existing
			return s.writeLog(tx, word.ID, models.OpCreate, username, "reapplied root word: "+word.WordName)

		case errors.Is(err, gorm.ErrRecordNotFound):
			word = models.RootWord{
				WordName:       params.WordName,
				MySQLType:      params.MySQLType,
				DorisType:      params.DorisType,
				ClickHouseType: params.ClickHouseType,
				Remark:         params.Remark,
				Status:         models.StatusPendingAudit,
				ApplyUser:      username,
				ApplyTime:      s.now(),
			}
			if err := tx.Create(&word).Error; err != nil {
				return fmt.Errorf("failed to create root word: %w", err)
			}
			return s.writeLog(tx, word.ID, models.OpCreate, username, "created root word: "+word.WordName)

		default:
			return fmt.Errorf("failed to check existing root word: %w", err)
		}
	})
	if err != nil {
		return nil, err
	}

	s.logger.Info().
		Str("word_id", word.ID).
		Str("word_name", word.WordName).
		Str("apply_user", username).
		Msg("Root word applied")

	return &word, nil
}

// DeletePending soft deletes a pending word on behalf of its applicant
func (s *Service) DeletePending(ctx context.Context, id, username string) error {
	return s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		word, err := findLive(tx, id)
		if err != nil {
			return err
		}
		if word.Status != models.StatusPendingAudit {
			return ErrInvalidState
		}
		if word.ApplyUser != username {
			return ErrNotOwner
		}

		if err := tx.Model(word).Update("deleted", true).Error; err != nil {
			return fmt.Errorf("failed to delete root word: %w", err)
		}
		return s.writeLog(tx, word.ID, models.OpDelete, username, "deleted pending root word: "+word.WordName)
	})
}

// AuditParams carries an audit decision
type AuditParams struct {
	WordID      string
	AuditResult int
	AuditRemark *string
}

// Audit approves or rejects a pending word. A rejected word stays pending
// with the audit remark recorded.
func (s *Service) Audit(ctx context.Context, params AuditParams, username string) (*models.RootWord, error) {
	if params.AuditResult != AuditApprove && params.AuditResult != AuditReject {
		return nil, fmt.Errorf("invalid audit result %d", params.AuditResult)
	}

	var word *models.RootWord
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var err error
		word, err = findLive(tx, params.WordID)
		if err != nil {
			return err
		}
		if word.Status != models.StatusPendingAudit {
			return ErrInvalidState
		}

		now := s.now()
		word.AuditUser = &username
		word.AuditTime = &now
		word.AuditRemark = params.AuditRemark

		content := "approved root word: " + word.WordName
		if params.AuditResult == AuditApprove {
			word.Status = models.StatusEffective
		} else {
			content = fmt.Sprintf("rejected root word: %s, reason: %s", word.WordName, deref(params.AuditRemark))
		}

		if err := tx.Save(word).Error; err != nil {
			return fmt.Errorf("failed to audit root word: %w", err)
		}
		return s.writeLog(tx, word.ID, models.OpAudit, username, content)
	})
	if err != nil {
		return nil, err
	}

	if word.Status == models.StatusEffective {
		s.invalidate()
	}
	return word, nil
}

// Discard moves an effective word to discarded
func (s *Service) Discard(ctx context.Context, id, username string) error {
	return s.transition(ctx, id, username, models.StatusEffective, models.StatusDiscarded, models.OpDiscard, "discarded root word: ")
}

// Recover moves a discarded word back to effective
func (s *Service) Recover(ctx context.Context, id, username string) error {
	return s.transition(ctx, id, username, models.StatusDiscarded, models.StatusEffective, models.OpRecover, "recovered root word: ")
}

func (s *Service) transition(ctx context.Context, id, username string, from, to models.RootWordStatus, op models.OperationType, content string) error {
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		word, err := findLive(tx, id)
		if err != nil {
			return err
		}
		if word.Status != from {
			return ErrInvalidState
		}

		if err := tx.Model(word).Update("status", to).Error; err != nil {
			return fmt.Errorf("failed to update root word status: %w", err)
		}
		return s.writeLog(tx, word.ID, op, username, content+word.WordName)
	})
	if err != nil {
		return err
	}

	s.invalidate()
	return nil
}

// UpdateParams is a partial update; nil fields are left unchanged
type UpdateParams struct {
	ID             string
	WordName       *string
	MySQLType      *string
	DorisType      *string
	ClickHouseType *string
	Remark         *string
}

// Update edits a live word
func (s *Service) Update(ctx context.Context, params UpdateParams, username string) (*models.RootWord, error) {
	var word *models.RootWord
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var err error
		word, err = findLive(tx, params.ID)
		if err != nil {
			return err
		}

		if params.WordName != nil && *params.WordName != word.WordName {
			var count int64
			if err := tx.Model(&models.RootWord{}).
				Where("word_name = ? AND id <> ?", *params.WordName, word.ID).
				Count(&count).Error; err != nil {
				return fmt.Errorf("failed to check root word name: %w", err)
			}
			if count > 0 {
				return ErrNameTaken
			}
			word.WordName = *params.WordName
		}
		if params.MySQLType != nil {
			word.MySQLType = *params.MySQLType
		}
		if params.DorisType != nil {
			word.DorisType = *params.DorisType
		}
		if params.ClickHouseType != nil {
			word.ClickHouseType = *params.ClickHouseType
		}
		if params.Remark != nil {
			word.Remark = params.Remark
		}

		if err := tx.Save(word).Error; err != nil {
			return fmt.Errorf("failed to update root word: %w", err)
		}
		return s.writeLog(tx, word.ID, models.OpUpdate, username, "edited root word: "+word.WordName)
	})
	if err != nil {
		return nil, err
	}

	s.invalidate()
	return word, nil
}

// ForceDelete soft deletes any live word regardless of status
func (s *Service) ForceDelete(ctx context.Context, id, username string) error {
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		word, err := findLive(tx, id)
		if err != nil {
			return err
		}
		if err := tx.Model(word).Update("deleted", true).Error; err != nil {
			return fmt.Errorf("failed to delete root word: %w", err)
		}
		return s.writeLog(tx, word.ID, models.OpDelete, username, "force deleted root word: "+word.WordName)
	})
	if err != nil {
		return err
	}

	s.invalidate()
	return nil
}

// Get returns a live word by ID
func (s *Service) Get(ctx context.Context, id string) (*models.RootWord, error) {
	return findLive(s.db.WithContext(ctx), id)
}

// ListParams filters a page of live words
type ListParams struct {
	PageNum   int
	PageSize  int
	WordName  string
	Status    models.RootWordStatus
	ApplyUser string
}

// Page is one page of list results
type Page struct {
	List     []models.RootWord `json:"list"`
	Total    int64             `json:"total"`
	PageNum  int               `json:"page_num"`
	PageSize int               `json:"page_size"`
}

// List returns live words newest first
func (s *Service) List(ctx context.Context, params ListParams) (*Page, error) {
	if params.PageNum < 1 {
		params.PageNum = 1
	}
	if params.PageSize < 1 || params.PageSize > 100 {
		params.PageSize = 10
	}

	query := s.db.WithContext(ctx).Model(&models.RootWord{}).Where("deleted = ?", false)
	if name := strings.TrimSpace(params.WordName); name != "" {
		query = query.Where("word_name LIKE ?", "%"+name+"%")
	}
	if params.Status != "" {
		query = query.Where("status = ?", params.Status)
	}
	if params.ApplyUser != "" {
		query = query.Where("apply_user = ?", params.ApplyUser)
	}

	page := &Page{List: []models.RootWord{}, PageNum: params.PageNum, PageSize: params.PageSize}
	if err := query.Count(&page.Total).Error; err != nil {
		return nil, fmt.Errorf("failed to count root words: %w", err)
	}
	if err := query.Order("id DESC").
		Offset((params.PageNum - 1) * params.PageSize).
		Limit(params.PageSize).
		Find(&page.List).Error; err != nil {
		return nil, fmt.Errorf("failed to list root words: %w", err)
	}

	return page, nil
}

// Logs returns the operation log of a word, newest first
func (s *Service) Logs(ctx context.Context, id string) ([]models.OperationLog, error) {
	var count int64
	if err := s.db.WithContext(ctx).Model(&models.RootWord{}).Where("id = ?", id).Count(&count).Error; err != nil {
		return nil, fmt.Errorf("failed to load root word: %w", err)
	}
	if count == 0 {
		return nil, ErrNotFound
	}

	logs := []models.OperationLog{}
	if err := s.db.WithContext(ctx).
		Where("word_id = ?", id).
		Order("id DESC").
		Find(&logs).Error; err != nil {
		return nil, fmt.Errorf("failed to load operation logs: %w", err)
	}
	return logs, nil
}

// ImportWord is one entry of a bulk import
type ImportWord struct {
	WordName       string
	MySQLType      string
	DorisType      string
	ClickHouseType string
	Remark         *string
}

// ImportResult counts the outcome of a bulk import
type ImportResult struct {
	Created int `json:"created"`
	Skipped int `json:"skipped"`
}

// Import creates effective words approved by username. Names that already
// exist are skipped.
func (s *Service) Import(ctx context.Context, words []ImportWord, username string) (ImportResult, error) {
	var result ImportResult

	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		for _, w := range words {
			var count int64
			if err := tx.Model(&models.RootWord{}).Where("word_name = ?", w.WordName).Count(&count).Error; err != nil {
				return fmt.Errorf("failed to check root word %q: %w", w.WordName, err)
			}
			if count > 0 {
				result.Skipped++
				continue
			}

			now := s.now()
			word := models.RootWord{
				WordName:       w.WordName,
				MySQLType:      w.MySQLType,
				DorisType:      w.DorisType,
				ClickHouseType: w.ClickHouseType,
				Remark:         w.Remark,
				Status:         models.StatusEffective,
				ApplyUser:      username,
				ApplyTime:      now,
				AuditUser:      &username,
				AuditTime:      &now,
			}
			if err := tx.Create(&word).Error; err != nil {
				return fmt.Errorf("failed to import root word %q: %w", w.WordName, err)
			}
			if err := s.writeLog(tx, word.ID, models.OpCreate, username, "imported root word: "+word.WordName); err != nil {
				return err
			}
			result.Created++
		}
		return nil
	})
	if err != nil {
		return ImportResult{}, err
	}

	if result.Created > 0 {
		s.invalidate()
	}
	s.logger.Info().
		Int("created", result.Created).
		Int("skipped", result.Skipped).
		Str("operation_user", username).
		Msg("Root words imported")

	return result, nil
}

func (s *Service) writeLog(tx *gorm.DB, wordID string, op models.OperationType, username, content string) error {
	assert.Length(wordID, 26) // ULID
	assert.NotEmpty(username, "operation user")

	entry := models.OperationLog{
		WordID:           wordID,
		OperationType:    op,
		OperationUser:    username,
		OperationContent: content,
	}
	if err := tx.Create(&entry).Error; err != nil {
		return fmt.Errorf("failed to write operation log: %w", err)
	}
	return nil
}

func (s *Service) invalidate() {
	if s.invalidator != nil {
		s.invalidator.Invalidate()
	}
}

func findLive(tx *gorm.DB, id string) (*models.RootWord, error) {
	var word models.RootWord
	if err := tx.Where("id = ? AND deleted = ?", id, false).First(&word).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("failed to load root word: %w", err)
	}
	return &word, nil
}

func deref(s *string) string {
	if s == nil {
		return ""
	}
	return *s
}
