package repository

import (
	"database/sql"
	"fmt"
	"time"

	"readquest/internal/database"
	"readquest/internal/models"
)

// FamilyRepository handles parent/student links and the codes that create them
type FamilyRepository struct {
	db *database.DB
}

// NewFamilyRepository creates a new family repository
func NewFamilyRepository(db *database.DB) *FamilyRepository {
	return &FamilyRepository{db: db}
}

// CreateLinkCode stores a link code issued by a parent
func (r *FamilyRepository) CreateLinkCode(code string, parentID int64, expiresAt time.Time) (*models.LinkCode, error) {
	query := "INSERT INTO link_codes (code, parent_id, expires_at) VALUES (?, ?, ?)"
	if _, err := r.db.Exec(query, code, parentID, expiresAt.UTC()); err != nil {
		if r.db.IsUniqueViolation(err) {
			return nil, ErrDuplicate
		}
		return nil, fmt.Errorf("failed to create link code: %w", err)
	}
	return &models.LinkCode{
		Code:      code,
		ParentID:  parentID,
		ExpiresAt: expiresAt,
		CreatedAt: time.Now(),
	}, nil
}

func getLinkCode(db database.DBTX, code string) (*models.LinkCode, error) {
	query := "SELECT code, parent_id, expires_at, created_at FROM link_codes WHERE code = ?"
	lc := &models.LinkCode{}
	err := db.QueryRow(query, code).Scan(&lc.Code, &lc.ParentID, &lc.ExpiresAt, &lc.CreatedAt)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get link code: %w", err)
	}
	return lc, nil
}

// RedeemLinkCode links studentID to the parent that issued code and consumes
// the code. It returns the link code, nil when unknown or expired.
func (r *FamilyRepository) RedeemLinkCode(code string, studentID int64, now time.Time) (*models.LinkCode, error) {
	tx, err := r.db.Begin()
	if err != nil {
		return nil, fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	lc, err := getLinkCode(tx, code)
	if err != nil {
		return nil, err
	}
	if lc == nil || now.After(lc.ExpiresAt) {
		return nil, nil
	}

	var existing int
	err = tx.QueryRow("SELECT COUNT(*) FROM parent_links WHERE parent_id = ? AND student_id = ?", lc.ParentID, studentID).Scan(&existing)
	if err != nil {
		return nil, fmt.Errorf("failed to check link: %w", err)
	}
	if existing == 0 {
		if _, err := tx.Exec("INSERT INTO parent_links (parent_id, student_id) VALUES (?, ?)", lc.ParentID, studentID); err != nil {
			return nil, fmt.Errorf("failed to link accounts: %w", err)
		}
	}

	if _, err := tx.Exec("DELETE FROM link_codes WHERE code = ?", code); err != nil {
		return nil, fmt.Errorf("failed to consume link code: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return nil, fmt.Errorf("failed to commit transaction: %w", err)
	}
	return lc, nil
}

// DeleteExpiredLinkCodes removes link codes past their expiry
func (r *FamilyRepository) DeleteExpiredLinkCodes(now time.Time) (int64, error) {
	result, err := r.db.Exec("DELETE FROM link_codes WHERE expires_at < ?", now.UTC())
	if err != nil {
		return 0, fmt.Errorf("failed to delete expired link codes: %w", err)
	}
	n, _ := result.RowsAffected()
	return n, nil
}

// IsLinked checks if a student is linked to a parent
func (r *FamilyRepository) IsLinked(parentID, studentID int64) (bool, error) {
	query := "SELECT COUNT(*) FROM parent_links WHERE parent_id = ? AND student_id = ?"
	var count int
	if err := r.db.QueryRow(query, parentID, studentID).Scan(&count); err != nil {
		return false, fmt.Errorf("failed to check link: %w", err)
	}
	return count > 0, nil
}

// ListChildren retrieves the students linked to a parent
func (r *FamilyRepository) ListChildren(parentID int64) ([]models.User, error) {
	query := `
		SELECT u.id, u.email, u.name, u.role, u.created_at, u.updated_at
		FROM parent_links pl
		INNER JOIN users u ON pl.student_id = u.id
		WHERE pl.parent_id = ?
		ORDER BY u.name
	`
	return r.queryUsers(query, parentID)
}

// ListParents retrieves the parents a student is linked to
func (r *FamilyRepository) ListParents(studentID int64) ([]models.User, error) {
	query := `
		SELECT u.id, u.email, u.name, u.role, u.created_at, u.updated_at
		FROM parent_links pl
		INNER JOIN users u ON pl.parent_id = u.id
		WHERE pl.student_id = ?
		ORDER BY u.name
	`
	return r.queryUsers(query, studentID)
}

func (r *FamilyRepository) queryUsers(query string, id int64) ([]models.User, error) {
	rows, err := r.db.Query(query, id)
	if err != nil {
		return nil, fmt.Errorf("failed to query linked users: %w", err)
	}
	defer rows.Close()

	users := []models.User{}
	for rows.Next() {
		var user models.User
		if err := rows.Scan(&user.ID, &user.Email, &user.Name, &user.Role, &user.CreatedAt, &user.UpdatedAt); err != nil {
			return nil, fmt.Errorf("failed to scan linked user: %w", err)
		}
		users = append(users, user)
	}
	return users, rows.Err()
}

// Unlink removes the link between a parent and a student
func (r *FamilyRepository) Unlink(parentID, studentID int64) error {
	result, err := r.db.Exec("DELETE FROM parent_links WHERE parent_id = ? AND student_id = ?", parentID, studentID)
	if err != nil {
		return fmt.Errorf("failed to unlink: %w", err)
	}
	if n, _ := result.RowsAffected(); n == 0 {
		return ErrNotFound
	}
	return nil
}
