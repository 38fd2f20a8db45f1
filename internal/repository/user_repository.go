package repository

import (
	"context"
	"fmt"
	"strings"

	"github.com/jmoiron/sqlx"
	"github.com/lib/pq"

	"github.com/campushq/announcements-api/internal/models"
)

const userColumns = `id, username, email, password_hash, first_name, last_name, role, active, created_at, updated_at`

// RecipientFilter narrows the active-user set when resolving announcement
// recipients. A nil Roles slice means every role; Usernames applies only
// when RestrictUsernames is set, so an explicitly empty member list matches
// nobody (fail closed).
type RecipientFilter struct {
	Roles             []models.UserRole
	ProgrammeID       *int64
	Usernames         []string
	RestrictUsernames bool
}

// UserRepository provides persistence for user accounts and programme
// memberships.
type UserRepository struct {
	db *sqlx.DB
}

// NewUserRepository creates the repository.
func NewUserRepository(db *sqlx.DB) *UserRepository {
	return &UserRepository{db: db}
}

// FindByUsername returns the user with the given username.
func (r *UserRepository) FindByUsername(ctx context.Context, username string) (*models.User, error) {
	query := fmt.Sprintf("SELECT %s FROM users WHERE username = $1", userColumns)
	var user models.User
	if err := r.db.GetContext(ctx, &user, query, username); err != nil {
		return nil, err
	}
	return &user, nil
}

// FindByID returns the user with the given id.
func (r *UserRepository) FindByID(ctx context.Context, id string) (*models.User, error) {
	query := fmt.Sprintf("SELECT %s FROM users WHERE id = $1", userColumns)
	var user models.User
	if err := r.db.GetContext(ctx, &user, query, id); err != nil {
		return nil, err
	}
	return &user, nil
}

// HasProgrammeMembership reports whether the user has a recorded membership
// in the programme.
func (r *UserRepository) HasProgrammeMembership(ctx context.Context, userID string, programmeID int64) (bool, error) {
	const query = `SELECT EXISTS (SELECT 1 FROM user_programmes WHERE user_id = $1 AND programme_id = $2)`
	var exists bool
	if err := r.db.GetContext(ctx, &exists, query, userID, programmeID); err != nil {
		return false, fmt.Errorf("check programme membership: %w", err)
	}
	return exists, nil
}

// ListRecipients returns active users matching every narrowing filter.
func (r *UserRepository) ListRecipients(ctx context.Context, filter RecipientFilter) ([]models.User, error) {
	where := []string{"active = TRUE"}
	args := []interface{}{}

	if len(filter.Roles) > 0 {
		roles := make([]string, len(filter.Roles))
		for i, role := range filter.Roles {
			roles[i] = string(role)
		}
		where = append(where, fmt.Sprintf("role = ANY($%d)", len(args)+1))
		args = append(args, pq.Array(roles))
	}

	if filter.ProgrammeID != nil {
		where = append(where, fmt.Sprintf("EXISTS (SELECT 1 FROM user_programmes up WHERE up.user_id = users.id AND up.programme_id = $%d)", len(args)+1))
		args = append(args, *filter.ProgrammeID)
	}

	if filter.RestrictUsernames {
		usernames := filter.Usernames
		if usernames == nil {
			usernames = []string{}
		}
		where = append(where, fmt.Sprintf("username = ANY($%d)", len(args)+1))
		args = append(args, pq.Array(usernames))
	}

	query := fmt.Sprintf(`SELECT %s FROM users WHERE %s ORDER BY username`,
		userColumns, strings.Join(where, " AND "))

	var users []models.User
	if err := r.db.SelectContext(ctx, &users, query, args...); err != nil {
		return nil, fmt.Errorf("list recipients: %w", err)
	}
	return users, nil
}
