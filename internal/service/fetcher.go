package service

import (
	"context"
	"fmt"
	"time"

	"crewsignal/internal/constants"
	"crewsignal/internal/models"
	pushtypes "crewsignal/pkg/push/types"

	"github.com/sirupsen/logrus"
)

type FetcherStore interface {
	GetUsersByIDs(ctx context.Context, ids []string) ([]models.User, error)
	GetLocationsByUserIDs(ctx context.Context, ids []string) (map[string]models.UserLocation, error)
}

// DispatchCandidate is one (user, token, location) tuple ready for the
// proximity filter. A user with two valid tokens yields two candidates.
type DispatchCandidate struct {
	UserID   string
	Token    string
	Location models.Coordinates
}

// LocationTokenFetcher turns candidate user IDs into dispatch candidates:
// it collects each candidate's valid delivery tokens and last-known
// location, dropping candidates that lack either.
type LocationTokenFetcher struct {
	store          FetcherStore
	logger         *logrus.Logger
	maxLocationAge time.Duration
	now            func() time.Time
}

func NewLocationTokenFetcher(store FetcherStore, maxLocationAge time.Duration, logger *logrus.Logger) *LocationTokenFetcher {
	return &LocationTokenFetcher{
		store:          store,
		logger:         logger,
		maxLocationAge: maxLocationAge,
		now:            time.Now,
	}
}

func (f *LocationTokenFetcher) Fetch(ctx context.Context, candidateIDs []string) ([]DispatchCandidate, error) {
	var candidates []DispatchCandidate

	// The store limits IN-clause lookups, so candidates go through in
	// fixed-size batches.
	for start := 0; start < len(candidateIDs); start += constants.LookupBatchSize {
		end := start + constants.LookupBatchSize
		if end > len(candidateIDs) {
			end = len(candidateIDs)
		}

		batch, err := f.fetchBatch(ctx, candidateIDs[start:end])
		if err != nil {
			return nil, err
		}
		candidates = append(candidates, batch...)
	}

	return candidates, nil
}

func (f *LocationTokenFetcher) fetchBatch(ctx context.Context, ids []string) ([]DispatchCandidate, error) {
	users, err := f.store.GetUsersByIDs(ctx, ids)
	if err != nil {
		return nil, fmt.Errorf("failed to fetch users: %w", err)
	}

	tokensByUser := make(map[string][]string)
	var tokenBearers []string
	for _, user := range users {
		tokens := validTokens(user)
		if len(tokens) == 0 {
			// No deliverable device; the location lookup would be wasted.
			f.logger.WithField("userId", user.ID).Debug("Skipping candidate without valid push token")
			continue
		}
		tokensByUser[user.ID] = tokens
		tokenBearers = append(tokenBearers, user.ID)
	}

	if len(tokenBearers) == 0 {
		return nil, nil
	}

	locations, err := f.store.GetLocationsByUserIDs(ctx, tokenBearers)
	if err != nil {
		return nil, fmt.Errorf("failed to fetch locations: %w", err)
	}

	var candidates []DispatchCandidate
	for _, userID := range tokenBearers {
		location, ok := locations[userID]
		if !ok {
			// Cannot be distance-filtered, so excluded rather than
			// defaulted to in range.
			f.logger.WithField("userId", userID).Debug("Skipping candidate without location record")
			continue
		}

		if f.maxLocationAge > 0 && f.now().Sub(location.UpdatedAt) > f.maxLocationAge {
			f.logger.WithFields(logrus.Fields{
				"userId":    userID,
				"updatedAt": location.UpdatedAt,
			}).Debug("Skipping candidate with stale location record")
			continue
		}

		for _, token := range tokensByUser[userID] {
			candidates = append(candidates, DispatchCandidate{
				UserID:   userID,
				Token:    token,
				Location: location.Location,
			})
		}
	}

	return candidates, nil
}

// validTokens collects a user's delivery tokens from both the primary
// field and the additional-token list, keeping only well-formed ones.
func validTokens(user models.User) []string {
	seen := make(map[string]struct{})
	var tokens []string

	appendToken := func(token string) {
		if !pushtypes.IsValidToken(token) {
			return
		}
		if _, dup := seen[token]; dup {
			return
		}
		seen[token] = struct{}{}
		tokens = append(tokens, token)
	}

	appendToken(user.PushToken)
	for _, token := range user.ExtraPushTokens {
		appendToken(token)
	}

	return tokens
}
