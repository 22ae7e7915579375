package services

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"gorm.io/gorm"

	"github.com/peacelink/peacelink/internal/models"
	apperrors "github.com/peacelink/peacelink/pkg/errors"
)

// TargetCriteria describes who an emergency broadcast should reach.
// Counties are accepted on the wire but the resolver does not consult them;
// see the product note in DESIGN.md.
type TargetCriteria struct {
	BroadcastAll bool
	States       []string
	Regions      []string
	Counties     []string
}

// TargetResolver computes the recipient set for a broadcast. It is read-only
// and deterministic for a fixed user population.
type TargetResolver struct {
	db *gorm.DB
}

// NewTargetResolver constructs a TargetResolver.
func NewTargetResolver(db *gorm.DB) (*TargetResolver, error) {
	if db == nil {
		return nil, errors.New("target resolver: db is required")
	}
	return &TargetResolver{db: db}, nil
}

// Validate rejects criteria that cannot reach anyone.
func (r *TargetResolver) Validate(criteria TargetCriteria) error {
	if criteria.BroadcastAll {
		return nil
	}
	if len(normaliseStrings(criteria.States)) == 0 && len(normaliseStrings(criteria.Regions)) == 0 {
		return apperrors.NewBadRequest("alert must broadcast to all or name target states or regions")
	}
	return nil
}

// Resolve returns the deduplicated set of active users matching the criteria.
// A targeted alert reaches the union of state and region matches: a user is
// included when their state is listed OR their location is listed.
func (r *TargetResolver) Resolve(ctx context.Context, criteria TargetCriteria) ([]models.User, error) {
	ctx = ensureContext(ctx)
	if err := r.Validate(criteria); err != nil {
		return nil, err
	}

	query := r.db.WithContext(ctx).Where("is_active = ?", true)

	if !criteria.BroadcastAll {
		states := normaliseStrings(criteria.States)
		regions := normaliseStrings(criteria.Regions)

		var conds []string
		var args []any
		if len(states) > 0 {
			conds = append(conds, "state IN ?")
			args = append(args, states)
		}
		if len(regions) > 0 {
			conds = append(conds, "location IN ?")
			args = append(args, regions)
		}
		query = query.Where(strings.Join(conds, " OR "), args...)
	}

	var users []models.User
	if err := query.Order("id").Find(&users).Error; err != nil {
		return nil, fmt.Errorf("target resolver: query population: %w", err)
	}

	return users, nil
}
