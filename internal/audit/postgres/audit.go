package postgres

import (
	"context"
	"encoding/json"

	auditDomain "github.com/workstream/access-management/internal/audit"
	"github.com/workstream/access-management/internal/core/datamodel/audit"
	"gorm.io/gorm"
)

// AuditRepository implements the audit.Repository interface using GORM.
type AuditRepository struct {
	db *gorm.DB
}

func NewAuditRepository(db *gorm.DB) auditDomain.Repository {
	return &AuditRepository{db: db}
}

func (r *AuditRepository) Create(ctx context.Context, entry *auditDomain.LogEntry) error {
	targets, err := json.Marshal(entry.TargetUsers)
	if err != nil {
		return err
	}
	before, err := json.Marshal(entry.BeforeState)
	if err != nil {
		return err
	}
	after, err := json.Marshal(entry.AfterState)
	if err != nil {
		return err
	}

	model := &audit.PermissionAssignmentLog{
		ID:            entry.ID,
		UserID:        entry.ActorID,
		TargetUsers:   string(targets),
		OperationType: entry.OperationType,
		BeforeState:   string(before),
		AfterState:    string(after),
		Details:       entry.Details,
		Status:        entry.Status,
		IPAddress:     entry.Metadata.IPAddress,
		UserAgent:     entry.Metadata.UserAgent,
		CreatedAt:     entry.CreatedAt,
	}
	if entry.ErrorMessage != "" {
		model.ErrorMessage = &entry.ErrorMessage
	}

	return r.db.WithContext(ctx).Create(model).Error
}

func (r *AuditRepository) Query(ctx context.Context, filter auditDomain.QueryFilter) ([]*auditDomain.LogEntry, error) {
	query := r.db.WithContext(ctx).Model(&audit.PermissionAssignmentLog{})

	if filter.ActorID > 0 {
		query = query.Where("user_id = ?", filter.ActorID)
	}
	if filter.TargetUserID > 0 {
		// target_users is a compact JSON array of ids; match the id only at
		// element boundaries so 5 does not match 15 or 51
		token := targetToken(filter.TargetUserID)
		query = query.Where(
			"target_users = ? OR target_users LIKE ? OR target_users LIKE ? OR target_users LIKE ?",
			"["+token+"]", "["+token+",%", "%,"+token+"]", "%,"+token+",%",
		)
	}
	if filter.OperationType != "" {
		query = query.Where("operation_type = ?", filter.OperationType)
	}
	if !filter.From.IsZero() {
		query = query.Where("created_at >= ?", filter.From)
	}
	if !filter.To.IsZero() {
		query = query.Where("created_at <= ?", filter.To)
	}

	var models []*audit.PermissionAssignmentLog
	err := query.Order("created_at DESC").
		Limit(filter.Limit).
		Offset(filter.Offset).
		Find(&models).Error
	if err != nil {
		return nil, err
	}

	entries := make([]*auditDomain.LogEntry, 0, len(models))
	for _, model := range models {
		entry, err := fromDataModel(model)
		if err != nil {
			return nil, err
		}
		entries = append(entries, entry)
	}
	return entries, nil
}

func fromDataModel(model *audit.PermissionAssignmentLog) (*auditDomain.LogEntry, error) {
	entry := &auditDomain.LogEntry{
		ID:            model.ID,
		ActorID:       model.UserID,
		OperationType: model.OperationType,
		Details:       model.Details,
		Status:        model.Status,
		CreatedAt:     model.CreatedAt,
	}
	entry.Metadata.IPAddress = model.IPAddress
	entry.Metadata.UserAgent = model.UserAgent
	if model.ErrorMessage != nil {
		entry.ErrorMessage = *model.ErrorMessage
	}

	if model.TargetUsers != "" {
		if err := json.Unmarshal([]byte(model.TargetUsers), &entry.TargetUsers); err != nil {
			return nil, err
		}
	}
	if model.BeforeState != "" {
		var before interface{}
		if err := json.Unmarshal([]byte(model.BeforeState), &before); err == nil {
			entry.BeforeState = before
		}
	}
	if model.AfterState != "" {
		var after interface{}
		if err := json.Unmarshal([]byte(model.AfterState), &after); err == nil {
			entry.AfterState = after
		}
	}

	return entry, nil
}

func targetToken(userID int64) string {
	data, _ := json.Marshal(userID)
	return string(data)
}
