package schemas

import (
	"time"

	"github.com/tokamak-network/trh-pipeline/pkg/domain/entities"

	"gorm.io/datatypes"
	"gorm.io/gorm"
)

type Deployment struct {
	ID          string                    `gorm:"type:varchar(64);primaryKey;column:id"`
	ProjectID   string                    `gorm:"column:project_id;not null;index:idx_deployments_project_created,priority:1"`
	UserID      *string                   `gorm:"column:user_id;index"`
	Environment entities.Environment      `gorm:"column:environment;not null"`
	Status      entities.DeploymentStatus `gorm:"column:status;not null;index"`
	Provider    string                    `gorm:"column:provider"`
	Config      datatypes.JSON            `gorm:"column:config"`
	Logs        datatypes.JSON            `gorm:"column:logs;not null"`
	URL         string                    `gorm:"column:url"`
	Error       string                    `gorm:"column:error"`
	Version     int64                     `gorm:"column:version;not null;default:1"`
	CreatedAt   time.Time                 `gorm:"column:created_at;index:idx_deployments_project_created,priority:2"`
	UpdatedAt   time.Time                 `gorm:"column:updated_at;autoUpdateTime:false"`
	DeployedAt  *time.Time                `gorm:"column:deployed_at"`
	DeletedAt   gorm.DeletedAt            `gorm:"column:deleted_at;index"`
}

func (Deployment) TableName() string {
	return "deployments"
}
