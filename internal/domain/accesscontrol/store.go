package accesscontrol

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5/pgxpool"
)

type Store interface {
	AssignRole(ctx context.Context, userID int64, role RoleName) error
	RemoveRole(ctx context.Context, userID int64, role RoleName) error
	GetUserRoles(ctx context.Context, userID int64) ([]Role, error)

	// HasAnyRole is the single authorization predicate every state-changing
	// operation goes through.
	HasAnyRole(ctx context.Context, userID int64, roles ...RoleName) (bool, error)
}

type Repository struct {
	db *pgxpool.Pool
}

func NewRepository(db *pgxpool.Pool) Store {
	return &Repository{db: db}
}

func (r *Repository) AssignRole(ctx context.Context, userID int64, role RoleName) error {
	const query = `
        INSERT INTO user_roles (user_id, role_id)
        SELECT $1, id FROM roles WHERE name = $2
        ON CONFLICT DO NOTHING`
	_, err := r.db.Exec(ctx, query, userID, string(role))
	return err
}

func (r *Repository) RemoveRole(ctx context.Context, userID int64, role RoleName) error {
	const query = `
        DELETE FROM user_roles ur
        USING roles ro
        WHERE ur.role_id = ro.id AND ur.user_id = $1 AND ro.name = $2`
	res, err := r.db.Exec(ctx, query, userID, string(role))
	if err != nil {
		return err
	}
	if res.RowsAffected() == 0 {
		return fmt.Errorf("role %q not held by user_id=%d", role, userID)
	}
	return nil
}

func (r *Repository) GetUserRoles(ctx context.Context, userID int64) ([]Role, error) {
	const query = `
        SELECT r.id, r.name, r.description, r.created_at, r.updated_at
        FROM roles r
        JOIN user_roles ur ON ur.role_id = r.id
        WHERE ur.user_id = $1`
	rows, err := r.db.Query(ctx, query, userID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var roles []Role
	for rows.Next() {
		var role Role
		if err := rows.Scan(&role.ID, &role.Name, &role.Description, &role.CreatedAt, &role.UpdatedAt); err != nil {
			return nil, err
		}
		roles = append(roles, role)
	}
	return roles, rows.Err()
}

func (r *Repository) HasAnyRole(ctx context.Context, userID int64, roles ...RoleName) (bool, error) {
	if len(roles) == 0 {
		return false, nil
	}

	names := make([]string, 0, len(roles))
	for _, role := range roles {
		names = append(names, string(role))
	}

	const query = `
        SELECT EXISTS (
            SELECT 1
            FROM user_roles ur
            JOIN roles r ON ur.role_id = r.id
            WHERE ur.user_id = $1 AND r.name = ANY($2)
        )`
	var ok bool
	err := r.db.QueryRow(ctx, query, userID, names).Scan(&ok)
	return ok, err
}
