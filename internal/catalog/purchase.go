package catalog

import (
	"context"
	"errors"
	"strings"

	"gamecatalog/pkg/database"
	apperrors "gamecatalog/pkg/errors"
	"gamecatalog/pkg/logger"
	"gamecatalog/pkg/models"
)

// Purchase records that requesterID owns gameID. Free and paid games take
// the same path; the result type only tells the client which one it was.
// Seed entries are not in the persisted store and report NotFound.
func (s *Service) Purchase(ctx context.Context, gameID string, requesterID string) (*models.PurchaseResult, error) {
	if strings.TrimSpace(requesterID) == "" {
		return nil, apperrors.Unauthenticated("authentication required to purchase", nil)
	}

	rec := models.PurchaseRecord{
		ID:          s.newID(),
		UserID:      requesterID,
		GameID:      gameID,
		PurchasedAt: s.now().UTC(),
	}

	g, err := s.store.CreatePurchase(ctx, rec)
	switch {
	case errors.Is(err, ErrGameNotFound):
		return nil, apperrors.NotFound("Game", err)
	case database.IsUniqueViolation(err):
		return nil, apperrors.AlreadyOwned(gameID)
	case err != nil:
		return nil, s.storeError(ctx, "purchase game", err)
	}

	res := &models.PurchaseResult{
		GameID:      g.ID,
		Title:       g.Title,
		Price:       g.Price,
		PurchasedAt: rec.PurchasedAt,
	}
	if g.Price == nil || *g.Price == 0 {
		res.Type = models.PurchaseFree
		res.Message = "Game added to your library"
	} else {
		res.Type = models.PurchasePaid
		res.Message = "Purchase completed"
	}

	if s.metrics != nil {
		s.metrics.Purchases.WithLabelValues(res.Type).Inc()
	}
	logger.Ctx(ctx).Info().Str("user_id", requesterID).Str("game_id", g.ID).Str("type", res.Type).Msg("game purchased")
	return res, nil
}
