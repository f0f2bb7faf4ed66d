package service

import (
	"context"
	"encoding/json"

	"go.uber.org/zap"

	"github.com/noah-isme/campus-portal-api/internal/models"
)

type auditRepository interface {
	Create(ctx context.Context, entry *models.AuditLog) error
}

// AuditService records audit entries without failing the caller.
type AuditService struct {
	repo   auditRepository
	logger *zap.Logger
}

func NewAuditService(repo auditRepository, logger *zap.Logger) *AuditService {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &AuditService{repo: repo, logger: logger}
}

// AuditEntry describes one audited operation.
type AuditEntry struct {
	UserID     string
	Action     string
	Resource   string
	ResourceID string
	Before     map[string]interface{}
	Details    map[string]interface{}
	IP         string
	UserAgent  string
}

// Record writes entry; failures are logged at warn level.
func (s *AuditService) Record(ctx context.Context, entry AuditEntry) {
	if s == nil || s.repo == nil {
		return
	}
	log := &models.AuditLog{
		Action:    entry.Action,
		Resource:  entry.Resource,
		IPAddress: entry.IP,
		UserAgent: entry.UserAgent,
	}
	if entry.UserID != "" {
		log.UserID = &entry.UserID
	}
	if entry.ResourceID != "" {
		log.ResourceID = &entry.ResourceID
	}
	if len(entry.Before) > 0 {
		if body, err := json.Marshal(entry.Before); err == nil {
			log.OldValues = body
		}
	}
	if len(entry.Details) > 0 {
		if body, err := json.Marshal(entry.Details); err == nil {
			log.NewValues = body
		}
	}
	if err := s.repo.Create(ctx, log); err != nil {
		s.logger.Warn("failed to record audit log", zap.String("action", entry.Action), zap.String("resource", entry.Resource), zap.Error(err))
	}
}
