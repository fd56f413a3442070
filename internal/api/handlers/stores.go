package handlers

import (
	"context"

	"github.com/excuse-lab/excuse-api/internal/gateway"
	"github.com/excuse-lab/excuse-api/internal/models"
	"github.com/excuse-lab/excuse-api/internal/prompt"
	"github.com/excuse-lab/excuse-api/internal/services"
)

// ExcuseGenerator is implemented by *gateway.Gateway
type ExcuseGenerator interface {
	Generate(ctx context.Context, req prompt.Request) (*gateway.Result, error)
	ProviderName() string
}

// ExcuseStore is implemented by *services.ExcuseService
type ExcuseStore interface {
	List(userID string) ([]models.Excuse, error)
	Get(id uint) (*models.Excuse, error)
	Create(excuse *models.Excuse) error
	Delete(id uint, userID string) error
	Categories() ([]string, error)
}

// GenerationLogStore is implemented by *services.GenerationLogService
type GenerationLogStore interface {
	Record(entry *models.GenerationLog) error
	Stats() (*services.GenerationStats, error)
}
