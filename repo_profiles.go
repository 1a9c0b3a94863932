package authgate

import (
	"context"

	"github.com/goliatone/go-repository-bun"
	"github.com/google/uuid"
	"github.com/uptrace/bun"
)

var CompleteOnboardingSQL = `UPDATE "user_profiles" AS "prf"
SET
	"onboarding_completed" = TRUE,
	"updated_at" = current_timestamp
WHERE (
	"prf"."user_id" = ?
) RETURNING *;`

var UpdateProfileDisplaySQL = `UPDATE "user_profiles" AS "prf"
SET
	"display_name" = ?,
	"avatar_url" = ?,
	"updated_at" = current_timestamp
WHERE (
	"prf"."user_id" = ?
) RETURNING *;`

// Profiles stores the authorization and onboarding record per user
type Profiles interface {
	GetByUserID(ctx context.Context, userID uuid.UUID) (*Profile, error)
	GetByUserIDTx(ctx context.Context, tx bun.IDB, userID uuid.UUID) (*Profile, error)

	CountTx(ctx context.Context, tx bun.IDB) (int, error)
	CreateTx(ctx context.Context, tx bun.IDB, record *Profile) (*Profile, error)

	UpdateDisplay(ctx context.Context, userID uuid.UUID, displayName, avatarURL string) error
	CompleteOnboarding(ctx context.Context, userID uuid.UUID) error
	CompleteOnboardingTx(ctx context.Context, tx bun.IDB, userID uuid.UUID) error
}

type profiles struct {
	repo repository.Repository[*Profile]
	db   *bun.DB
}

var _ Profiles = (*profiles)(nil)

// NewProfilesRepository builds the bun backed Profiles store
func NewProfilesRepository(db *bun.DB) Profiles {
	repo := repository.NewRepository[*Profile](db, repository.ModelHandlers[*Profile]{
		NewRecord: func() *Profile { return &Profile{} },
		GetID: func(p *Profile) uuid.UUID {
			if p == nil {
				return uuid.Nil
			}
			return p.ID
		},
		SetID: func(p *Profile, id uuid.UUID) {
			if p != nil {
				p.ID = id
			}
		},
	})

	return &profiles{
		repo: repo,
		db:   db,
	}
}

func (a *profiles) GetByUserID(ctx context.Context, userID uuid.UUID) (*Profile, error) {
	return a.GetByUserIDTx(ctx, a.db, userID)
}

func (a *profiles) GetByUserIDTx(ctx context.Context, tx bun.IDB, userID uuid.UUID) (*Profile, error) {
	record := &Profile{}
	err := tx.NewSelect().
		Model(record).
		Where("?TableAlias.user_id = ?", userID).
		Limit(1).
		Scan(ctx)

	if err != nil {
		if repository.IsRecordNotFound(err) {
			return nil, repository.NewRecordNotFound().
				WithMetadata(map[string]any{
					"user_id": userID.String(),
				})
		}
		return nil, err
	}

	return record, nil
}

func (a *profiles) CountTx(ctx context.Context, tx bun.IDB) (int, error) {
	return tx.NewSelect().Model((*Profile)(nil)).Count(ctx)
}

func (a *profiles) CreateTx(ctx context.Context, tx bun.IDB, record *Profile) (*Profile, error) {
	if record != nil && record.ID == uuid.Nil {
		record.ID = uuid.New()
	}
	return a.repo.CreateTx(ctx, tx, record)
}

func (a *profiles) UpdateDisplay(ctx context.Context, userID uuid.UUID, displayName, avatarURL string) error {
	res, err := a.repo.RawTx(ctx, a.db, UpdateProfileDisplaySQL, displayName, avatarURL, userID.String())
	if err != nil {
		return err
	}

	if len(res) == 0 {
		return repository.NewRecordNotFound().
			WithMetadata(map[string]any{
				"user_id": userID.String(),
			})
	}

	return nil
}

func (a *profiles) CompleteOnboarding(ctx context.Context, userID uuid.UUID) error {
	return a.CompleteOnboardingTx(ctx, a.db, userID)
}

func (a *profiles) CompleteOnboardingTx(ctx context.Context, tx bun.IDB, userID uuid.UUID) error {
	res, err := a.repo.RawTx(ctx, tx, CompleteOnboardingSQL, userID.String())
	if err != nil {
		return err
	}

	if len(res) == 0 {
		return repository.NewRecordNotFound().
			WithMetadata(map[string]any{
				"user_id": userID.String(),
			})
	}

	return nil
}
