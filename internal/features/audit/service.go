package audit

import (
	"context"
	"time"

	common_models "go-reports/internal/common/models"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

type AuditService interface {
	LogChange(ctx context.Context, actor string, action common_models.AuditAction, module string, recordID string, changes map[string]common_models.Change) error
	ListLogs(ctx context.Context, filters map[string]interface{}, page, limit int64) ([]common_models.AuditLog, error)
}

type AuditServiceImpl struct {
	Repo AuditRepository
}

func NewAuditService(repo AuditRepository) AuditService {
	return &AuditServiceImpl{Repo: repo}
}

func (s *AuditServiceImpl) LogChange(ctx context.Context, actor string, action common_models.AuditAction, module string, recordID string, changes map[string]common_models.Change) error {
	if actor == "" {
		actor = "system"
	}

	log := common_models.AuditLog{
		ID:        primitive.NewObjectID(),
		Action:    action,
		Module:    module,
		RecordID:  recordID,
		ActorID:   actor,
		Changes:   changes,
		Timestamp: time.Now(),
	}

	return s.Repo.Create(ctx, log)
}

func (s *AuditServiceImpl) ListLogs(ctx context.Context, filters map[string]interface{}, page, limit int64) ([]common_models.AuditLog, error) {
	if page < 1 {
		page = 1
	}
	if limit < 1 {
		limit = 10
	}
	offset := (page - 1) * limit
	return s.Repo.List(ctx, filters, limit, offset)
}
