package services

import (
	"errors"
	"fmt"

	"github.com/excuse-lab/excuse-api/internal/models"
	"gorm.io/gorm"
)

// ErrExcuseNotFound is returned when no visible excuse matches the id
var ErrExcuseNotFound = errors.New("excuse not found")

type ExcuseService struct {
	db *gorm.DB
}

func NewExcuseService(db *gorm.DB) *ExcuseService {
	return &ExcuseService{db: db}
}

// List returns the shared excuses, newest first. With a userID the caller's own excuses are
// included as well.
func (s *ExcuseService) List(userID string) ([]models.Excuse, error) {
	query := s.db.Order("created_at DESC")
	if userID == "" {
		query = query.Where("user_id = ''")
	} else {
		query = query.Where("user_id = '' OR user_id = ?", userID)
	}

	var excuses []models.Excuse
	if err := query.Find(&excuses).Error; err != nil {
		return nil, fmt.Errorf("list excuses: %w", err)
	}
	return excuses, nil
}

// Get retrieves one excuse by id
func (s *ExcuseService) Get(id uint) (*models.Excuse, error) {
	var excuse models.Excuse
	if err := s.db.First(&excuse, id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrExcuseNotFound
		}
		return nil, fmt.Errorf("get excuse %d: %w", id, err)
	}
	return &excuse, nil
}

// Create stores a new excuse and fills in its id and timestamps
func (s *ExcuseService) Create(excuse *models.Excuse) error {
	if err := s.db.Create(excuse).Error; err != nil {
		return fmt.Errorf("create excuse: %w", err)
	}
	return nil
}

// Delete soft-deletes an excuse owned by userID
func (s *ExcuseService) Delete(id uint, userID string) error {
	result := s.db.Where("id = ? AND user_id = ?", id, userID).Delete(&models.Excuse{})
	if result.Error != nil {
		return fmt.Errorf("delete excuse %d: %w", id, result.Error)
	}
	if result.RowsAffected == 0 {
		return ErrExcuseNotFound
	}
	return nil
}

// Categories returns the distinct non-empty categories in alphabetical order
func (s *ExcuseService) Categories() ([]string, error) {
	var categories []string
	err := s.db.Model(&models.Excuse{}).
		Where("category <> ''").
		Distinct().
		Order("category").
		Pluck("category", &categories).Error
	if err != nil {
		return nil, fmt.Errorf("list categories: %w", err)
	}
	return categories, nil
}
