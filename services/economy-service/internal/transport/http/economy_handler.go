package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/waste3d/civicplatform-api/services/economy-service/internal/domain"
)

type shopItemView struct {
	domain.ShopItem
	EffectivePrice int64 `json:"effective_price"`
	SoldOut        bool  `json:"sold_out"`
}

func (h *EconomyHandler) ListShopItems(c *gin.Context) {
	stock, err := h.store.ReadStock(c)
	if err != nil {
		h.fail(c, err)
		return
	}

	items := h.catalog.Shop.All()
	out := make([]shopItemView, 0, len(items))
	for _, it := range items {
		if n, ok := stock[it.ID]; ok {
			it.StockRemaining = &n
		}
		out = append(out, shopItemView{
			ShopItem:       it,
			EffectivePrice: it.EffectivePrice(),
			SoldOut:        it.StockRemaining != nil && *it.StockRemaining <= 0,
		})
	}
	c.JSON(http.StatusOK, gin.H{"version": h.catalog.Version, "items": out})
}

func (h *EconomyHandler) ListAchievements(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"version": h.catalog.Version, "achievements": h.catalog.Achievements.All()})
}

func (h *EconomyHandler) CreateProfile(c *gin.Context) {
	userID, ok := currentUser(c)
	if !ok {
		return
	}
	p, err := h.store.CreateProfile(c, userID)
	if err != nil {
		h.fail(c, err)
		return
	}
	c.JSON(http.StatusCreated, p)
}

func (h *EconomyHandler) GetProfile(c *gin.Context) {
	userID, ok := currentUser(c)
	if !ok {
		return
	}
	p, err := h.store.ReadProfile(c, userID)
	if err != nil {
		h.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{
		"profile":  p,
		"progress": h.achievements.Progress(p),
	})
}

func (h *EconomyHandler) ListTransactions(c *gin.Context) {
	userID, ok := currentUser(c)
	if !ok {
		return
	}
	if _, err := h.store.ReadProfile(c, userID); err != nil {
		h.fail(c, err)
		return
	}
	txs, err := h.ledger.History(c, userID)
	if err != nil {
		h.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"transactions": txs})
}

type purchaseReq struct {
	ItemID string `json:"item_id" binding:"required"`
}

func (h *EconomyHandler) Purchase(c *gin.Context) {
	userID, ok := currentUser(c)
	if !ok {
		return
	}
	var req purchaseReq
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Field 'item_id' is required"})
		return
	}

	res := h.purchases.Purchase(c, userID, req.ItemID)
	c.JSON(statusFor(res.Reason), res)
}

type useItemReq struct {
	ItemID   string `json:"item_id" binding:"required"`
	TargetID string `json:"target_id"`
}

func (h *EconomyHandler) UseItem(c *gin.Context) {
	userID, ok := currentUser(c)
	if !ok {
		return
	}
	var req useItemReq
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Field 'item_id' is required"})
		return
	}

	res := h.items.Use(c, userID, req.ItemID, req.TargetID)
	c.JSON(statusFor(res.Reason), res)
}

type actionReq struct {
	Action string `json:"action" binding:"required"`
}

func (h *EconomyHandler) RecordAction(c *gin.Context) {
	userID, ok := currentUser(c)
	if !ok {
		return
	}
	var req actionReq
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Field 'action' is required"})
		return
	}

	unlocked := h.achievements.RecordAction(c, userID, req.Action)
	c.JSON(http.StatusOK, gin.H{"unlocked": unlocked})
}

func (h *EconomyHandler) Evaluate(c *gin.Context) {
	userID, ok := currentUser(c)
	if !ok {
		return
	}
	unlocked := h.achievements.Evaluate(c, userID, nil)
	c.JSON(http.StatusOK, gin.H{"unlocked": unlocked})
}
