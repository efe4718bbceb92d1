// services/catalog.go - Read-only lookups of competitions and courses
package services

import (
	"context"
	"errors"

	"acmportal/apperrors"
	"acmportal/models"

	"gorm.io/gorm"
)

type CatalogService struct {
	db *gorm.DB
}

func NewCatalogService(db *gorm.DB) *CatalogService {
	return &CatalogService{db: db}
}

// CourseView is a course with its open seats.
type CourseView struct {
	models.Course
	RemainingSeats *int `json:"remaining_seats"`
}

// ListCompetitions returns the active competitions.
func (s *CatalogService) ListCompetitions(ctx context.Context) ([]models.Competition, error) {
	var comps []models.Competition
	err := s.db.WithContext(ctx).
		Where("is_active = ?", true).
		Preload("FieldConfig").
		Order("created_at DESC").
		Find(&comps).Error
	return comps, err
}

// CompetitionBySlug finds an active competition with its field config.
func (s *CatalogService) CompetitionBySlug(ctx context.Context, slug string) (*models.Competition, error) {
	var comp models.Competition
	err := s.db.WithContext(ctx).
		Where("slug = ? AND is_active = ?", slug, true).
		Preload("FieldConfig").
		First(&comp).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, apperrors.New(apperrors.CodeNotFound, "Competition not found")
	}
	if err != nil {
		return nil, err
	}
	return &comp, nil
}

// CourseBySlug finds an active course with schedule, active children and
// the open seat count.
func (s *CatalogService) CourseBySlug(ctx context.Context, slug string) (*CourseView, error) {
	db := s.db.WithContext(ctx)

	var course models.Course
	err := db.Where("slug = ? AND is_active = ?", slug, true).
		Preload("Schedule", func(tx *gorm.DB) *gorm.DB {
			return tx.Order("weekday, start_time")
		}).
		Preload("Children", "is_active = ?", true).
		First(&course).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, apperrors.New(apperrors.CodeNotFound, "Course not found")
	}
	if err != nil {
		return nil, err
	}

	view := &CourseView{Course: course}
	remaining, limited, err := RemainingSeats(db, &course)
	if err != nil {
		return nil, err
	}
	if limited {
		view.RemainingSeats = &remaining
	}
	return view, nil
}

// CompetitionByID finds an active competition by primary key.
func (s *CatalogService) CompetitionByID(ctx context.Context, id uint) (*models.Competition, error) {
	var comp models.Competition
	err := s.db.WithContext(ctx).
		Where("id = ? AND is_active = ?", id, true).
		Preload("FieldConfig").
		First(&comp).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, apperrors.New(apperrors.CodeNotFound, "Competition not found")
	}
	if err != nil {
		return nil, err
	}
	return &comp, nil
}

// CourseByID finds an active course by primary key.
func (s *CatalogService) CourseByID(ctx context.Context, id uint) (*models.Course, error) {
	var course models.Course
	err := s.db.WithContext(ctx).Where("id = ? AND is_active = ?", id, true).First(&course).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, apperrors.New(apperrors.CodeNotFound, "Course not found")
	}
	if err != nil {
		return nil, err
	}
	return &course, nil
}
