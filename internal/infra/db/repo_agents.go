package db

import (
	"context"
	"errors"
	"time"

	"agenttrust/internal/domain"

	"gorm.io/gorm"
)

type AgentRepository struct {
	db *gorm.DB
}

func NewAgentRepository(db *gorm.DB) *AgentRepository {
	return &AgentRepository{db: db}
}

func (r *AgentRepository) Create(ctx context.Context, agent domain.Agent) (domain.Agent, error) {
	if r.db == nil {
		return domain.Agent{}, errDBUnavailable
	}
	id := agent.ID
	if id == "" {
		generated, err := newUUID()
		if err != nil {
			return domain.Agent{}, err
		}
		id = generated
	}
	createdAt := agent.CreatedAt
	if createdAt.IsZero() {
		createdAt = time.Now().UTC()
	}
	model := AgentModel{
		ID:          id,
		Name:        agent.Name,
		DocumentURL: agent.DocumentURL,
		Tags:        joinTags(agent.Tags),
		CreatedAt:   createdAt,
	}
	if err := r.db.WithContext(ctx).Create(&model).Error; err != nil {
		if errors.Is(err, gorm.ErrDuplicatedKey) {
			return domain.Agent{}, domain.ErrAlreadyExists
		}
		return domain.Agent{}, err
	}
	return agentFromModel(model), nil
}

func (r *AgentRepository) GetByID(ctx context.Context, id string) (*domain.Agent, error) {
	if r.db == nil {
		return nil, errDBUnavailable
	}
	var model AgentModel
	err := r.db.WithContext(ctx).Where("id = ?", id).First(&model).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, domain.ErrNotFound
		}
		return nil, err
	}
	agent := agentFromModel(model)
	return &agent, nil
}

func (r *AgentRepository) List(ctx context.Context) ([]domain.Agent, error) {
	if r.db == nil {
		return nil, errDBUnavailable
	}
	var models []AgentModel
	err := r.db.WithContext(ctx).Order("created_at ASC").Find(&models).Error
	if err != nil {
		return nil, err
	}
	out := make([]domain.Agent, 0, len(models))
	for _, model := range models {
		out = append(out, agentFromModel(model))
	}
	return out, nil
}

func (r *AgentRepository) Delete(ctx context.Context, id string) error {
	if r.db == nil {
		return errDBUnavailable
	}
	result := r.db.WithContext(ctx).Where("id = ?", id).Delete(&AgentModel{})
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return domain.ErrNotFound
	}
	return nil
}

func agentFromModel(model AgentModel) domain.Agent {
	return domain.Agent{
		ID:          model.ID,
		Name:        model.Name,
		DocumentURL: model.DocumentURL,
		Tags:        splitTags(model.Tags),
		CreatedAt:   model.CreatedAt,
	}
}
