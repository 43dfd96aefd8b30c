package service

import (
	"context"
	"fmt"
	"sort"
	"time"

	"crewsignal/internal/constants"
	"crewsignal/internal/models"

	gocache "github.com/patrickmn/go-cache"
	"github.com/sirupsen/logrus"
)

type ResolverStore interface {
	ListCandidateIDs(ctx context.Context, excludeUserID string) ([]string, error)
	GetCrewMembers(ctx context.Context, crewID string) ([]string, error)
}

// TargetResolver expands a signal's target specification into a
// deduplicated candidate user-ID set with the sender excluded.
type TargetResolver struct {
	store     ResolverStore
	crewCache *gocache.Cache
	logger    *logrus.Logger
}

func NewTargetResolver(store ResolverStore, logger *logrus.Logger) *TargetResolver {
	return &TargetResolver{
		store: store,
		crewCache: gocache.New(
			constants.CrewCacheTTLMinutes*time.Minute,
			constants.CrewCacheSweepMinutes*time.Minute,
		),
		logger: logger,
	}
}

func (r *TargetResolver) Resolve(ctx context.Context, signal *models.Signal) ([]string, error) {
	switch signal.TargetType {
	case models.TargetAll:
		// Every registered user except the sender.
		return r.store.ListCandidateIDs(ctx, signal.SenderID)

	case models.TargetCrews:
		return r.resolveCrews(ctx, signal)

	case models.TargetContacts:
		// Declared in the data model but never implemented upstream of
		// this resolver. Kept visible instead of silently dropped.
		r.logger.WithField("signalId", signal.ID).
			Warn("Target type 'contacts' is not implemented; resolving to empty set")
		return nil, nil

	default:
		return nil, fmt.Errorf("unknown target type %q", signal.TargetType)
	}
}

func (r *TargetResolver) resolveCrews(ctx context.Context, signal *models.Signal) ([]string, error) {
	seen := make(map[string]struct{})

	for _, crewID := range signal.TargetIDs {
		members, err := r.crewMembers(ctx, crewID)
		if err != nil {
			return nil, fmt.Errorf("failed to resolve crew %s: %w", crewID, err)
		}

		for _, memberID := range members {
			if memberID == signal.SenderID {
				continue
			}
			seen[memberID] = struct{}{}
		}
	}

	candidates := make([]string, 0, len(seen))
	for id := range seen {
		candidates = append(candidates, id)
	}
	sort.Strings(candidates)

	return candidates, nil
}

func (r *TargetResolver) crewMembers(ctx context.Context, crewID string) ([]string, error) {
	if cached, found := r.crewCache.Get(crewID); found {
		return cached.([]string), nil
	}

	members, err := r.store.GetCrewMembers(ctx, crewID)
	if err != nil {
		return nil, err
	}

	r.crewCache.Set(crewID, members, gocache.DefaultExpiration)
	return members, nil
}
