package users

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"fmt"
	"loft/internal/database"
	"strings"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgtype"
	"github.com/jackc/pgx/v5/pgxpool"
)

type Store interface {
	GetByID(context.Context, int64) (*User, error)
	GetByEmail(context.Context, string) (*User, error)
	Create(ctx context.Context, tx pgx.Tx, user *User) error
	CreateAndInvite(ctx context.Context, user *User, token string, exp time.Duration) error
	Activate(context.Context, string) error
	Delete(context.Context, int64) error
	SetProfile(context.Context, string, int64) error
	GetProfileUrl(context.Context, int64) (*string, error)
	UpdateUser(context.Context, int64, map[string]interface{}) error
	SaveRefreshToken(ctx context.Context, userID int64, refreshToken string) error
	DeleteRefreshToken(ctx context.Context, userID int64) error
	GetRefreshToken(ctx context.Context, userID int64) (string, error)
	UpdateResetToken(ctx context.Context, email, resetToken string, resetTokenExpires time.Time) error
	GetByResetToken(ctx context.Context, resetToken string) (*User, error)
	ResetPassword(ctx context.Context, user *User) error
}

type Repository struct {
	db *pgxpool.Pool
}

func NewRepository(db *pgxpool.Pool) Store {
	return &Repository{db: db}
}

func (r *Repository) Create(ctx context.Context, tx pgx.Tx, user *User) error {
	query := `
	  INSERT INTO users (first_name, last_name, password, email, phone) VALUES ($1, $2, $3, $4, $5) RETURNING id, created_at, updated_at
	`

	ctx, cancel := context.WithTimeout(ctx, QueryTimeoutDuration)
	defer cancel()

	err := tx.QueryRow(
		ctx, query, user.FirstName, user.LastName, user.Password.hash, user.Email, user.Phone,
	).Scan(&user.ID, &user.CreatedAt, &user.UpdatedAt)

	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == "23505" {
			switch {
			case strings.Contains(pgErr.ConstraintName, "email"):
				return ErrDuplicateEmail
			case strings.Contains(pgErr.ConstraintName, "phone"):
				return ErrDuplicatePhone
			}
		}
		return err
	}
	return nil
}

func (r *Repository) CreateAndInvite(ctx context.Context, user *User, token string, invitationExp time.Duration) error {
	return database.WithTx(r.db, ctx, func(tx pgx.Tx) error {
		if err := r.Create(ctx, tx, user); err != nil {
			return err
		}

		return r.createUserInvitation(ctx, tx, token, invitationExp, user.ID)
	})
}

func (r *Repository) createUserInvitation(ctx context.Context, tx pgx.Tx, token string, exp time.Duration, userID int64) error {
	query := `INSERT INTO user_invitations (token, user_id, expiry) VALUES ($1, $2, $3)`

	ctx, cancel := context.WithTimeout(ctx, QueryTimeoutDuration)
	defer cancel()

	_, err := tx.Exec(ctx, query, token, userID, time.Now().Add(exp))
	return err
}

func (r *Repository) Activate(ctx context.Context, token string) error {
	return database.WithTx(r.db, ctx, func(tx pgx.Tx) error {
		user, err := r.getUserFromInvitation(ctx, tx, token)
		if err != nil {
			return err
		}

		// idempotent: already active counts as success
		if user.IsActive {
			return nil
		}

		_, err = tx.Exec(ctx, `UPDATE users SET is_active = TRUE WHERE id = $1`, user.ID)
		return err
	})
}

func (r *Repository) getUserFromInvitation(ctx context.Context, tx pgx.Tx, token string) (*User, error) {
	query := `
		SELECT u.id, u.first_name, u.last_name, u.email, u.created_at, u.is_active
		FROM users u
		JOIN user_invitations ui ON u.id = ui.user_id
		WHERE ui.token = $1 AND ui.expiry > $2
	`

	hash := sha256.Sum256([]byte(token))
	hashToken := hex.EncodeToString(hash[:])

	ctx, cancel := context.WithTimeout(ctx, QueryTimeoutDuration)
	defer cancel()

	user := &User{}
	err := tx.QueryRow(ctx, query, hashToken, time.Now()).Scan(
		&user.ID,
		&user.FirstName,
		&user.LastName,
		&user.Email,
		&user.CreatedAt,
		&user.IsActive,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, err
	}

	return user, nil
}

func (r *Repository) GetByID(ctx context.Context, userID int64) (*User, error) {
	query := `
		SELECT
			id,
			first_name,
			last_name,
			email,
			phone,
			password,
			profile_picture_url,
			is_active,
			created_at,
			updated_at
		FROM users
		WHERE id = $1
	`

	ctx, cancel := context.WithTimeout(ctx, QueryTimeoutDuration)
	defer cancel()

	user := &User{}

	err := r.db.QueryRow(ctx, query, userID).Scan(
		&user.ID,
		&user.FirstName,
		&user.LastName,
		&user.Email,
		&user.Phone,
		&user.Password.hash,
		&user.ProfilePictureURL,
		&user.IsActive,
		&user.CreatedAt,
		&user.UpdatedAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, err
	}

	return user, nil
}

func (r *Repository) GetByEmail(ctx context.Context, email string) (*User, error) {
	query := `
		SELECT id, first_name, phone, email, password, created_at FROM users
		WHERE email = $1 AND is_active = true
	`

	ctx, cancel := context.WithTimeout(ctx, QueryTimeoutDuration)
	defer cancel()

	user := &User{}
	err := r.db.QueryRow(ctx, query, email).Scan(
		&user.ID,
		&user.FirstName,
		&user.Phone,
		&user.Email,
		&user.Password.hash,
		&user.CreatedAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, err
	}

	return user, nil
}

func (r *Repository) Delete(ctx context.Context, userID int64) error {
	return database.WithTx(r.db, ctx, func(tx pgx.Tx) error {
		if _, err := tx.Exec(ctx, `DELETE FROM users WHERE id = $1`, userID); err != nil {
			return err
		}

		_, err := tx.Exec(ctx, `DELETE FROM user_invitations WHERE user_id = $1`, userID)
		return err
	})
}

func (r *Repository) SetProfile(ctx context.Context, url string, userID int64) error {
	query := `UPDATE users SET profile_picture_url = $1 WHERE id = $2`
	_, err := r.db.Exec(ctx, query, url, userID)
	return err
}

func (r *Repository) GetProfileUrl(ctx context.Context, userID int64) (*string, error) {
	var old pgtype.Text
	query := `SELECT profile_picture_url FROM users WHERE id = $1`

	err := r.db.QueryRow(ctx, query, userID).Scan(&old)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("failed to retrieve profile picture URL: %w", err)
	}

	if !old.Valid {
		return nil, nil // keep NULL
	}
	v := old.String
	return &v, nil
}

func (r *Repository) UpdateUser(ctx context.Context, userID int64, updates map[string]interface{}) error {
	if len(updates) == 0 {
		return fmt.Errorf("no fields to update")
	}

	// Build query dynamically based on provided fields
	setClauses := []string{}
	args := []interface{}{}
	argCounter := 1

	for field, value := range updates {
		// Sanitize field names to prevent SQL injection
		if !isValidField(field) {
			return fmt.Errorf("invalid field name: %s", field)
		}
		setClauses = append(setClauses, fmt.Sprintf("%s = $%d", field, argCounter))
		args = append(args, value)
		argCounter++
	}
	args = append(args, userID)

	query := fmt.Sprintf("UPDATE users SET %s, updated_at = NOW() WHERE id = $%d",
		strings.Join(setClauses, ", "), argCounter)

	_, err := r.db.Exec(ctx, query, args...)
	if err != nil {
		return fmt.Errorf("failed to update user: %w", err)
	}
	return nil
}

func isValidField(field string) bool {
	validFields := map[string]bool{
		"first_name": true,
		"last_name":  true,
		"phone":      true,
	}
	return validFields[field]
}

func (r *Repository) SaveRefreshToken(ctx context.Context, userID int64, refreshToken string) error {
	query := `UPDATE users SET refresh_token = $1, updated_at = NOW() WHERE id = $2`
	_, err := r.db.Exec(ctx, query, refreshToken, userID)
	if err != nil {
		return fmt.Errorf("failed to save refresh token: %w", err)
	}
	return nil
}

func (r *Repository) DeleteRefreshToken(ctx context.Context, userID int64) error {
	query := `UPDATE users SET refresh_token = NULL, updated_at = NOW() WHERE id = $1`
	_, err := r.db.Exec(ctx, query, userID)
	if err != nil {
		return fmt.Errorf("failed to delete refresh token: %w", err)
	}
	return nil
}

func (r *Repository) GetRefreshToken(ctx context.Context, userID int64) (string, error) {
	var refreshToken string

	query := `SELECT refresh_token FROM users WHERE id = $1`
	err := r.db.QueryRow(ctx, query, userID).Scan(&refreshToken)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return "", fmt.Errorf("no refresh token found for user %d", userID)
		}
		return "", fmt.Errorf("failed to retrieve refresh token: %w", err)
	}

	return refreshToken, nil
}

func (r *Repository) UpdateResetToken(ctx context.Context, email, resetToken string, resetTokenExpires time.Time) error {
	query := `
        UPDATE users
        SET reset_password_token = $1, reset_password_expires = $2
        WHERE email = $3
    `
	_, err := r.db.Exec(ctx, query, resetToken, resetTokenExpires, email)
	return err
}

func (r *Repository) GetByResetToken(ctx context.Context, resetToken string) (*User, error) {
	query := `
        SELECT id, first_name, last_name, email, phone, password, reset_password_token, reset_password_expires, created_at, updated_at
        FROM users
        WHERE reset_password_token = $1
    `
	var user User
	err := r.db.QueryRow(ctx, query, resetToken).Scan(
		&user.ID, &user.FirstName, &user.LastName, &user.Email, &user.Phone, &user.Password.hash, &user.ResetPasswordToken, &user.ResetPasswordExpires, &user.CreatedAt, &user.UpdatedAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, err
	}
	return &user, nil
}

// ResetPassword stores the new password hash and clears the reset token.
func (r *Repository) ResetPassword(ctx context.Context, user *User) error {
	query := `
		UPDATE users
		SET password = $1, reset_password_token = NULL, reset_password_expires = NULL, updated_at = NOW()
		WHERE id = $2
	`

	ctx, cancel := context.WithTimeout(ctx, QueryTimeoutDuration)
	defer cancel()

	_, err := r.db.Exec(ctx, query, user.Password.hash, user.ID)
	return err
}
