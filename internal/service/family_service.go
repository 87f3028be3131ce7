package service

import (
	"errors"
	"fmt"
	"time"

	"readquest/internal/credentials"
	"readquest/internal/models"
	"readquest/internal/repository"
)

// LinkCodeTTL is how long a parent's link code can be redeemed
const LinkCodeTTL = 24 * time.Hour

var (
	ErrLinkCodeInvalid = errors.New("link code is invalid or expired")
	ErrNotStudent      = errors.New("only student accounts can be linked")
)

// FamilyService handles parent/student links
type FamilyService struct {
	families FamilyStore
	now      func() time.Time
}

// NewFamilyService creates a new family service
func NewFamilyService(families FamilyStore) *FamilyService {
	return &FamilyService{families: families, now: time.Now}
}

// CreateLinkCode issues a new link code for a parent
func (s *FamilyService) CreateLinkCode(parentID int64) (*models.LinkCode, error) {
	expiresAt := s.now().Add(LinkCodeTTL)
	for attempt := 0; attempt < 5; attempt++ {
		code, err := credentials.GenerateLinkCode()
		if err != nil {
			return nil, fmt.Errorf("failed to generate link code: %w", err)
		}
		lc, err := s.families.CreateLinkCode(code, parentID, expiresAt)
		if errors.Is(err, repository.ErrDuplicate) {
			continue
		}
		if err != nil {
			return nil, err
		}
		return lc, nil
	}
	return nil, errors.New("failed to generate a unique link code")
}

// RedeemLinkCode links a student to the parent that issued code
func (s *FamilyService) RedeemLinkCode(student *models.User, code string) (*models.LinkCode, error) {
	if student.IsParent() {
		return nil, ErrNotStudent
	}
	lc, err := s.families.RedeemLinkCode(credentials.NormalizeLinkCode(code), student.ID, s.now())
	if err != nil {
		return nil, err
	}
	if lc == nil {
		return nil, ErrLinkCodeInvalid
	}
	return lc, nil
}

// Children returns the students linked to a parent
func (s *FamilyService) Children(parentID int64) ([]models.User, error) {
	return s.families.ListChildren(parentID)
}

// Parents returns the parents a student is linked to
func (s *FamilyService) Parents(studentID int64) ([]models.User, error) {
	return s.families.ListParents(studentID)
}

// Unlink removes a student from a parent's family
func (s *FamilyService) Unlink(parentID, studentID int64) error {
	err := s.families.Unlink(parentID, studentID)
	if errors.Is(err, repository.ErrNotFound) {
		return ErrNotLinked
	}
	return err
}
