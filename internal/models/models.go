package models

import (
	"time"

	"github.com/oklog/ulid/v2"
	"gorm.io/gorm"
)

// BaseModel provides common fields and auto-generated ULID for all models
type BaseModel struct {
	ID        string    `json:"id" gorm:"primaryKey;type:varchar(26)"`
	CreatedAt time.Time `json:"create_time" gorm:"autoCreateTime"`
}

// BeforeCreate generates a ULID for the ID field if it's empty
func (b *BaseModel) BeforeCreate(tx *gorm.DB) error {
	if b.ID == "" {
		b.ID = ulid.Make().String()
	}
	return nil
}

// Config is a singleton row holding server-generated secrets
type Config struct {
	BaseModel
	JWTSecret string `json:"-" gorm:"type:varchar(64);not null"` // Generated on first start when JWT_SECRET is unset
}

// Role values stored on users
const (
	RoleUser  = "user"
	RoleAdmin = "admin"
)

// User represents a local account
type User struct {
	BaseModel
	Username     string    `json:"username" gorm:"type:varchar(32);uniqueIndex;not null"`
	PasswordHash string    `json:"-" gorm:"type:varchar(256);not null"`
	Role         string    `json:"role" gorm:"type:varchar(16);not null;default:user"`
	UpdatedAt    time.Time `json:"update_time" gorm:"autoUpdateTime"`
}

// IsAdmin reports whether the user holds the admin role
func (u *User) IsAdmin() bool {
	return u.Role == RoleAdmin
}

// RootWordStatus is the review state of a root word
type RootWordStatus string

const (
	StatusPendingAudit RootWordStatus = "pending_audit"
	StatusEffective    RootWordStatus = "effective"
	StatusDiscarded    RootWordStatus = "discarded"
)

// Valid reports whether s is a known status
func (s RootWordStatus) Valid() bool {
	switch s {
	case StatusPendingAudit, StatusEffective, StatusDiscarded:
		return true
	}
	return false
}

// RootWord is a standardized column name with its type in each engine
type RootWord struct {
	BaseModel
	WordName       string         `json:"word_name" gorm:"type:varchar(64);uniqueIndex;not null"`
	MySQLType      string         `json:"mysql_type" gorm:"column:mysql_type;type:varchar(64);not null"`
	DorisType      string         `json:"doris_type" gorm:"type:varchar(64);not null"`
	ClickHouseType string         `json:"clickhouse_type" gorm:"column:clickhouse_type;type:varchar(64);not null"`
	Remark         *string        `json:"remark" gorm:"type:varchar(256)"`
	Status         RootWordStatus `json:"status" gorm:"type:varchar(16);index;not null;default:pending_audit"`
	ApplyUser      string         `json:"apply_user" gorm:"type:varchar(32);not null"`
	ApplyTime      time.Time      `json:"apply_time" gorm:"not null"`
	AuditUser      *string        `json:"audit_user" gorm:"type:varchar(32)"`
	AuditTime      *time.Time     `json:"audit_time"`
	AuditRemark    *string        `json:"audit_remark" gorm:"type:varchar(256)"`
	Deleted        bool           `json:"deleted" gorm:"index;not null;default:false"`
	UpdatedAt      time.Time      `json:"update_time" gorm:"autoUpdateTime"`
}

// OperationType classifies an operation log entry
type OperationType string

const (
	OpCreate  OperationType = "create"
	OpAudit   OperationType = "audit"
	OpDiscard OperationType = "discard"
	OpDelete  OperationType = "delete"
	OpRecover OperationType = "recover"
	OpUpdate  OperationType = "update"
)

// OperationLog records every mutation applied to a root word
type OperationLog struct {
	BaseModel
	WordID           string        `json:"word_id" gorm:"type:varchar(26);index;not null"`
	OperationType    OperationType `json:"operation_type" gorm:"type:varchar(16);not null"`
	OperationUser    string        `json:"operation_user" gorm:"type:varchar(32);not null"`
	OperationContent string        `json:"operation_content" gorm:"type:varchar(512);not null"`

	RootWord *RootWord `json:"-" gorm:"foreignKey:WordID;constraint:OnDelete:CASCADE"`
}

// AutoMigrate runs database migrations for all models
func AutoMigrate(db *gorm.DB) error {
	models := []interface{}{
		&Config{}, &User{}, &RootWord{}, &OperationLog{},
	}

	return db.AutoMigrate(models...)
}

// FindByID safely finds a record by string ID
func FindByID[T any](db *gorm.DB, id string, model *T) error {
	return db.Where("id = ?", id).First(model).Error
}
