package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/sirupsen/logrus"

	"github.com/waste3d/civicplatform-api/services/economy-service/internal/application/usecase"
	"github.com/waste3d/civicplatform-api/services/economy-service/internal/catalog"
	"github.com/waste3d/civicplatform-api/services/economy-service/internal/domain"
	"github.com/waste3d/civicplatform-api/services/economy-service/internal/infrastructure/repository"
	"github.com/waste3d/civicplatform-api/services/economy-service/internal/middleware"
)

type EconomyHandler struct {
	store        repository.ProfileStore
	catalog      *catalog.Bundle
	achievements *usecase.AchievementEngine
	ledger       *usecase.CurrencyLedger
	purchases    *usecase.PurchaseEngine
	items        *usecase.ItemEffectEngine
	log          logrus.FieldLogger
}

func NewEconomyHandler(
	store repository.ProfileStore,
	bundle *catalog.Bundle,
	achievements *usecase.AchievementEngine,
	ledger *usecase.CurrencyLedger,
	purchases *usecase.PurchaseEngine,
	items *usecase.ItemEffectEngine,
	log logrus.FieldLogger,
) *EconomyHandler {
	return &EconomyHandler{
		store:        store,
		catalog:      bundle,
		achievements: achievements,
		ledger:       ledger,
		purchases:    purchases,
		items:        items,
		log:          log,
	}
}

// statusFor maps a typed rejection to the HTTP status the UI expects.
func statusFor(reason domain.FailureReason) int {
	switch reason {
	case domain.ReasonNone:
		return http.StatusOK
	case domain.ReasonProfileNotFound, domain.ReasonItemNotFound:
		return http.StatusNotFound
	case domain.ReasonItemUnavailable, domain.ReasonOutOfStock, domain.ReasonOfferExpired,
		domain.ReasonNoUsableItem, domain.ReasonItemExpired:
		return http.StatusConflict
	case domain.ReasonInsufficientFunds:
		return http.StatusPaymentRequired
	case domain.ReasonInvalidAmount:
		return http.StatusBadRequest
	case domain.ReasonUnknownEffect:
		return http.StatusUnprocessableEntity
	default:
		return http.StatusServiceUnavailable
	}
}

// currentUser returns the authenticated user id, or writes 401/400 and
// returns false.
func currentUser(c *gin.Context) (string, bool) {
	userID := c.GetString(middleware.UserIDKey)
	if userID == "" {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "Unauthorized"})
		return "", false
	}
	if _, err := uuid.Parse(userID); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid user id"})
		return "", false
	}
	return userID, true
}

func (h *EconomyHandler) fail(c *gin.Context, err error) {
	reason := domain.ReasonFor(err)
	status := statusFor(reason)
	if status >= http.StatusInternalServerError {
		h.log.WithError(err).WithField("path", c.FullPath()).Error("request failed")
	}
	msg := err.Error()
	if reason == domain.ReasonTryAgain {
		msg = "Something went wrong, please try again"
	}
	c.JSON(status, gin.H{"error": msg, "reason": reason})
}
