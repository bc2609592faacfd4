package auth

import (
	"context"
	"database/sql"
	"errors"
	"time"

	"github.com/google/uuid"
	"github.com/uptrace/bun"
)

// Users is the identity store. Every lookup used for authentication
// excludes inactive records and, unless the WithPassword variant is used,
// strips the password hash at query construction.
type Users interface {
	Create(ctx context.Context, record *User) (*User, error)
	GetByID(ctx context.Context, id uuid.UUID) (*User, error)
	GetByIDWithPassword(ctx context.Context, id uuid.UUID) (*User, error)
	GetByEmail(ctx context.Context, email string) (*User, error)
	GetByEmailWithPassword(ctx context.Context, email string) (*User, error)
	GetByResetTokenHash(ctx context.Context, digest string) (*User, error)
	SetResetToken(ctx context.Context, id uuid.UUID, digest string, expiresAt time.Time) error
	ClearResetToken(ctx context.Context, id uuid.UUID) error
	UpdatePassword(ctx context.Context, id uuid.UUID, passwordHash string) error
	Deactivate(ctx context.Context, id uuid.UUID) error
}

type users struct {
	db *bun.DB
}

var _ Users = (*users)(nil)

// NewUsersRepository returns the bun-backed identity store.
func NewUsersRepository(db *bun.DB) Users {
	return &users{db: db}
}

// CreateSchema creates the users table. Meant for tests and small
// deployments; production schema belongs to the host app's migrations.
func CreateSchema(ctx context.Context, db *bun.DB) error {
	_, err := db.NewCreateTable().Model((*User)(nil)).IfNotExists().Exec(ctx)
	return err
}

func (r *users) Create(ctx context.Context, record *User) (*User, error) {
	prepareUserDefaults(record)

	if _, err := r.db.NewInsert().Model(record).Exec(ctx); err != nil {
		return nil, err
	}

	return record, nil
}

func (r *users) GetByID(ctx context.Context, id uuid.UUID) (*User, error) {
	return r.getOne(ctx, false, func(q *bun.SelectQuery) *bun.SelectQuery {
		return q.Where("?TableAlias.id = ?", id)
	})
}

func (r *users) GetByIDWithPassword(ctx context.Context, id uuid.UUID) (*User, error) {
	return r.getOne(ctx, true, func(q *bun.SelectQuery) *bun.SelectQuery {
		return q.Where("?TableAlias.id = ?", id)
	})
}

func (r *users) GetByEmail(ctx context.Context, email string) (*User, error) {
	return r.getOne(ctx, false, func(q *bun.SelectQuery) *bun.SelectQuery {
		return q.Where("?TableAlias.email = ?", NormalizeEmail(email))
	})
}

func (r *users) GetByEmailWithPassword(ctx context.Context, email string) (*User, error) {
	return r.getOne(ctx, true, func(q *bun.SelectQuery) *bun.SelectQuery {
		return q.Where("?TableAlias.email = ?", NormalizeEmail(email))
	})
}

func (r *users) GetByResetTokenHash(ctx context.Context, digest string) (*User, error) {
	return r.getOne(ctx, false, func(q *bun.SelectQuery) *bun.SelectQuery {
		return q.
			Where("?TableAlias.reset_token_hash = ?", digest).
			Where("?TableAlias.reset_token_expires_at > ?", time.Now())
	})
}

func (r *users) SetResetToken(ctx context.Context, id uuid.UUID, digest string, expiresAt time.Time) error {
	res, err := r.db.NewUpdate().Model((*User)(nil)).
		Set("reset_token_hash = ?", digest).
		Set("reset_token_expires_at = ?", expiresAt).
		Set("updated_at = ?", time.Now()).
		Where("id = ?", id).
		Where("active = ?", true).
		Exec(ctx)
	if err != nil {
		return err
	}

	return requireAffected(res)
}

func (r *users) ClearResetToken(ctx context.Context, id uuid.UUID) error {
	res, err := r.db.NewUpdate().Model((*User)(nil)).
		Set("reset_token_hash = NULL").
		Set("reset_token_expires_at = NULL").
		Set("updated_at = ?", time.Now()).
		Where("id = ?", id).
		Exec(ctx)
	if err != nil {
		return err
	}

	return requireAffected(res)
}

func (r *users) UpdatePassword(ctx context.Context, id uuid.UUID, passwordHash string) error {
	now := time.Now()
	// stamp the change one second in the past so a token issued within the
	// same second as the change still passes the freshness check
	changedAt := now.Add(-time.Second)

	res, err := r.db.NewUpdate().Model((*User)(nil)).
		Set("password_hash = ?", passwordHash).
		Set("password_changed_at = ?", changedAt).
		Set("reset_token_hash = NULL").
		Set("reset_token_expires_at = NULL").
		Set("updated_at = ?", now).
		Where("id = ?", id).
		Where("active = ?", true).
		Exec(ctx)
	if err != nil {
		return err
	}

	return requireAffected(res)
}

func (r *users) Deactivate(ctx context.Context, id uuid.UUID) error {
	res, err := r.db.NewUpdate().Model((*User)(nil)).
		Set("active = ?", false).
		Set("updated_at = ?", time.Now()).
		Where("id = ?", id).
		Exec(ctx)
	if err != nil {
		return err
	}

	return requireAffected(res)
}

func (r *users) getOne(ctx context.Context, withPassword bool, apply func(*bun.SelectQuery) *bun.SelectQuery) (*User, error) {
	record := &User{}

	q := r.db.NewSelect().Model(record).
		Where("?TableAlias.active = ?", true)

	if !withPassword {
		q = q.ExcludeColumn("password_hash")
	}

	if err := apply(q).Limit(1).Scan(ctx); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrIdentityNotFound
		}
		return nil, err
	}

	return record, nil
}

func requireAffected(res sql.Result) error {
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return ErrIdentityNotFound
	}
	return nil
}

func prepareUserDefaults(record *User) {
	if record == nil {
		return
	}

	if record.ID == uuid.Nil {
		record.ID = uuid.New()
	}

	if record.Role == "" || !IsValidRole(record.Role) {
		record.Role = RoleUser
	}

	if record.Photo == "" {
		record.Photo = DefaultPhoto
	}

	record.Active = true

	now := time.Now()
	if record.CreatedAt == nil {
		record.CreatedAt = &now
	}
	record.UpdatedAt = &now
}
