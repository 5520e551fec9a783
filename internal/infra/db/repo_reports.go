package db

import (
	"context"
	"encoding/json"
	"errors"
	"time"

	"agenttrust/internal/domain"

	"gorm.io/gorm"
)

type ReportRepository struct {
	db *gorm.DB
}

func NewReportRepository(db *gorm.DB) *ReportRepository {
	return &ReportRepository{db: db}
}

func (r *ReportRepository) Put(ctx context.Context, report domain.AgentReport) (domain.AgentReport, error) {
	if r.db == nil {
		return domain.AgentReport{}, errDBUnavailable
	}
	id := report.ID
	if id == "" {
		generated, err := newUUID()
		if err != nil {
			return domain.AgentReport{}, err
		}
		id = generated
	}
	createdAt := report.CreatedAt
	if createdAt.IsZero() {
		createdAt = time.Now().UTC()
	}
	reportJSON, err := json.Marshal(report.Report)
	if err != nil {
		return domain.AgentReport{}, err
	}
	var policyJSON []byte
	if report.Policy != nil {
		policyJSON, err = json.Marshal(report.Policy)
		if err != nil {
			return domain.AgentReport{}, err
		}
	}
	model := AgentReportModel{
		ID:         id,
		AgentID:    report.AgentID,
		Valid:      report.Report.Valid,
		Score:      report.Report.Score,
		ReportJSON: reportJSON,
		PolicyJSON: policyJSON,
		CreatedAt:  createdAt,
	}
	if err := r.db.WithContext(ctx).Create(&model).Error; err != nil {
		return domain.AgentReport{}, err
	}
	report.ID = id
	report.CreatedAt = createdAt
	return report, nil
}

func (r *ReportRepository) LatestByAgent(ctx context.Context, agentID string) (*domain.AgentReport, error) {
	if r.db == nil {
		return nil, errDBUnavailable
	}
	var model AgentReportModel
	err := r.db.WithContext(ctx).
		Where("agent_id = ?", agentID).
		Order("created_at DESC").
		First(&model).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, domain.ErrNotFound
		}
		return nil, err
	}
	return reportFromModel(model)
}

func reportFromModel(model AgentReportModel) (*domain.AgentReport, error) {
	out := domain.AgentReport{
		ID:        model.ID,
		AgentID:   model.AgentID,
		CreatedAt: model.CreatedAt,
	}
	if err := json.Unmarshal(model.ReportJSON, &out.Report); err != nil {
		return nil, err
	}
	if len(model.PolicyJSON) > 0 {
		out.Policy = &domain.PolicyDecision{}
		if err := json.Unmarshal(model.PolicyJSON, out.Policy); err != nil {
			return nil, err
		}
	}
	return &out, nil
}
