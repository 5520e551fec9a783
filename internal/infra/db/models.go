package db

import "time"

type AgentModel struct {
	ID          string    `gorm:"type:uuid;primaryKey"`
	Name        string    `gorm:"uniqueIndex;not null"`
	DocumentURL string    `gorm:"not null"`
	Tags        string
	CreatedAt   time.Time `gorm:"not null"`
}

func (AgentModel) TableName() string { return "agents" }

type AgentReportModel struct {
	ID         string    `gorm:"type:uuid;primaryKey"`
	AgentID    string    `gorm:"type:uuid;index;not null"`
	Valid      bool      `gorm:"not null"`
	Score      int       `gorm:"not null"`
	ReportJSON []byte    `gorm:"type:jsonb;not null"`
	PolicyJSON []byte    `gorm:"type:jsonb"`
	CreatedAt  time.Time `gorm:"index;not null"`
}

func (AgentReportModel) TableName() string { return "agent_reports" }
