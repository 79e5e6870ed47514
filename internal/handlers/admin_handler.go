package handlers

import (
	"errors"
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"

	"storefront-service/internal/services"
	"storefront-service/pkg/common"
)

// AdminHandler serves the back office: pricing, users, top-ups and
// settlements.
type AdminHandler struct {
	Pricing    *services.PricingService
	Account    *services.AccountService
	Topup      *services.TopupService
	Settlement *services.SettlementService
	Wepay      *services.WepayService
}

type OverrideRequest struct {
	ProductType string  `json:"product_type" binding:"required"`
	ProductID   string  `json:"product_id" binding:"required"`
	Name        string  `json:"name"`
	Category    string  `json:"category"`
	CostPrice   float64 `json:"cost_price"`
	SellPrice   float64 `json:"sell_price" binding:"required,gt=0"`
}

func (h *AdminHandler) SaveOverride(c *gin.Context) {
	var req OverrideRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, common.NewErrorResponse(err.Error(), nil, http.StatusBadRequest))
		return
	}

	override, err := h.Pricing.SaveOverride(services.SaveOverrideDTO{
		ProductType: req.ProductType,
		ProductID:   req.ProductID,
		Name:        req.Name,
		Category:    req.Category,
		CostPrice:   req.CostPrice,
		SellPrice:   req.SellPrice,
		UpdatedBy:   c.GetString(ctxUidKey),
	})
	if err != nil {
		c.JSON(http.StatusInternalServerError, common.NewErrorResponse("Override save failed", nil, http.StatusInternalServerError))
		return
	}

	c.JSON(http.StatusOK, common.NewSuccessResponse(override, "Override saved"))
}

func (h *AdminHandler) DeleteOverride(c *gin.Context) {
	if err := h.Pricing.DeleteOverride(c.Param("type"), c.Param("productId")); err != nil {
		c.JSON(http.StatusInternalServerError, common.NewErrorResponse("Override delete failed", nil, http.StatusInternalServerError))
		return
	}
	c.JSON(http.StatusOK, common.NewSuccessResponse(nil, "Reverted to API price"))
}

func (h *AdminHandler) ListOverrides(c *gin.Context) {
	page, _ := strconv.Atoi(c.DefaultQuery("page", "1"))
	limit, _ := strconv.Atoi(c.DefaultQuery("limit", "50"))

	result, err := h.Pricing.ListOverrides(page, limit)
	if err != nil {
		c.JSON(http.StatusInternalServerError, common.NewErrorResponse("Override lookup failed", nil, http.StatusInternalServerError))
		return
	}
	c.JSON(http.StatusOK, result)
}

func (h *AdminHandler) ListUsers(c *gin.Context) {
	page, _ := strconv.Atoi(c.DefaultQuery("page", "1"))
	limit, _ := strconv.Atoi(c.DefaultQuery("limit", "50"))

	result, err := h.Account.ListUsers(services.ListUsersDTO{
		Search: c.Query("search"),
		Page:   page,
		Limit:  limit,
	})
	if err != nil {
		c.JSON(http.StatusInternalServerError, common.NewErrorResponse("User lookup failed", nil, http.StatusInternalServerError))
		return
	}
	c.JSON(http.StatusOK, result)
}

type SuspendRequest struct {
	Until  *time.Time `json:"until"`
	Reason string     `json:"reason" binding:"required"`
}

func (h *AdminHandler) SuspendUser(c *gin.Context) {
	var req SuspendRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, common.NewErrorResponse(err.Error(), nil, http.StatusBadRequest))
		return
	}

	err := h.Account.Suspend(services.SuspendDTO{
		Uid:    c.Param("uid"),
		Until:  req.Until,
		Reason: req.Reason,
		By:     c.GetString(ctxUidKey),
	})
	if err != nil {
		respondAccountError(c, err)
		return
	}
	c.JSON(http.StatusOK, common.NewSuccessResponse(nil, "User suspended"))
}

func (h *AdminHandler) UnsuspendUser(c *gin.Context) {
	if err := h.Account.Unsuspend(c.Param("uid"), c.GetString(ctxUidKey)); err != nil {
		respondAccountError(c, err)
		return
	}
	c.JSON(http.StatusOK, common.NewSuccessResponse(nil, "User unsuspended"))
}

type RoleRequest struct {
	Role string `json:"role" binding:"required"`
}

func (h *AdminHandler) SetRole(c *gin.Context) {
	var req RoleRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, common.NewErrorResponse(err.Error(), nil, http.StatusBadRequest))
		return
	}

	if err := h.Account.SetRole(c.Param("uid"), req.Role, c.GetString(ctxUidKey)); err != nil {
		respondAccountError(c, err)
		return
	}
	c.JSON(http.StatusOK, common.NewSuccessResponse(nil, "Role updated"))
}

type AdjustBalanceRequest struct {
	Amount float64 `json:"amount" binding:"required"`
	Note   string  `json:"note"`
}

func (h *AdminHandler) AdjustBalance(c *gin.Context) {
	var req AdjustBalanceRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, common.NewErrorResponse(err.Error(), nil, http.StatusBadRequest))
		return
	}

	err := h.Account.AdjustBalance(c.Param("uid"), req.Amount, req.Note, c.GetString(ctxUidKey))
	if err != nil {
		if errors.Is(err, services.ErrInsufficientBalance) {
			c.JSON(http.StatusBadRequest, common.NewErrorResponse("Debit exceeds balance", nil, http.StatusBadRequest))
			return
		}
		respondAccountError(c, err)
		return
	}
	c.JSON(http.StatusOK, common.NewSuccessResponse(nil, "Balance adjusted"))
}

type ManualTopupRequest struct {
	Uid    string  `json:"uid" binding:"required"`
	Amount float64 `json:"amount" binding:"required,gt=0"`
	Note   string  `json:"note"`
}

func (h *AdminHandler) ManualTopup(c *gin.Context) {
	var req ManualTopupRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, common.NewErrorResponse(err.Error(), nil, http.StatusBadRequest))
		return
	}

	topup, err := h.Topup.ManualTopup(req.Uid, req.Amount, c.GetString(ctxUidKey), req.Note)
	if err != nil {
		respondAccountError(c, err)
		return
	}
	c.JSON(http.StatusOK, common.NewSuccessResponse(topup, "Topup completed"))
}

func (h *AdminHandler) ListTopups(c *gin.Context) {
	page, _ := strconv.Atoi(c.DefaultQuery("page", "1"))
	limit, _ := strconv.Atoi(c.DefaultQuery("limit", "50"))

	result, err := h.Topup.ListTopups(services.ListTopupsDTO{
		Uid:    c.Query("uid"),
		Status: c.Query("status"),
		Page:   page,
		Limit:  limit,
	})
	if err != nil {
		c.JSON(http.StatusInternalServerError, common.NewErrorResponse("Topup lookup failed", nil, http.StatusInternalServerError))
		return
	}
	c.JSON(http.StatusOK, result)
}

type FailTopupRequest struct {
	Reason string `json:"reason" binding:"required"`
}

func (h *AdminHandler) FailTopup(c *gin.Context) {
	id, err := strconv.Atoi(c.Param("id"))
	if err != nil {
		c.JSON(http.StatusBadRequest, common.NewErrorResponse("Invalid topup id", nil, http.StatusBadRequest))
		return
	}

	var req FailTopupRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, common.NewErrorResponse(err.Error(), nil, http.StatusBadRequest))
		return
	}

	if err := h.Topup.Fail(id, req.Reason); err != nil {
		if errors.Is(err, services.ErrTopupTerminal) {
			c.JSON(http.StatusConflict, common.NewErrorResponse("Topup already settled", nil, http.StatusConflict))
			return
		}
		c.JSON(http.StatusInternalServerError, common.NewErrorResponse("Topup update failed", nil, http.StatusInternalServerError))
		return
	}
	c.JSON(http.StatusOK, common.NewSuccessResponse(nil, "Topup failed"))
}

func (h *AdminHandler) ListSettlements(c *gin.Context) {
	page, _ := strconv.Atoi(c.DefaultQuery("page", "1"))
	limit, _ := strconv.Atoi(c.DefaultQuery("limit", "50"))

	result, err := h.Settlement.ListSettlements(c.Query("status"), page, limit)
	if err != nil {
		c.JSON(http.StatusInternalServerError, common.NewErrorResponse("Settlement lookup failed", nil, http.StatusInternalServerError))
		return
	}
	c.JSON(http.StatusOK, result)
}

// ReconcileSettlement forces an immediate reconcile of one reference instead
// of waiting for the scheduled sweep.
func (h *AdminHandler) ReconcileSettlement(c *gin.Context) {
	if err := h.Settlement.Reconcile(c.Request.Context(), c.Param("reference")); err != nil {
		c.JSON(http.StatusBadGateway, common.NewErrorResponse("Reconcile failed: "+err.Error(), nil, http.StatusBadGateway))
		return
	}
	c.JSON(http.StatusOK, common.NewSuccessResponse(nil, "Reconciled"))
}

// ProviderBalance shows the remaining wePAY merchant balance.
func (h *AdminHandler) ProviderBalance(c *gin.Context) {
	balance, err := h.Wepay.Balance(c.Request.Context())
	if err != nil {
		respondProviderError(c, err)
		return
	}
	c.JSON(http.StatusOK, common.NewSuccessResponse(gin.H{"balance": balance}, "Provider balance fetched"))
}

func respondAccountError(c *gin.Context, err error) {
	if errors.Is(err, services.ErrUserNotFound) {
		c.JSON(http.StatusNotFound, common.NewErrorResponse("User not found", nil, http.StatusNotFound))
		return
	}
	c.JSON(http.StatusInternalServerError, common.NewErrorResponse("Operation failed", nil, http.StatusInternalServerError))
}
