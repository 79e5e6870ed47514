package handlers

import (
	"errors"
	"io"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	"storefront-service/internal/services"
	"storefront-service/pkg/common"
)

// StorefrontHandler serves the consumer-facing API: catalog, wallet,
// purchases and top-ups.
type StorefrontHandler struct {
	Peamsub  *services.PeamsubService
	Wepay    *services.WepayService
	Purchase *services.PurchaseService
	Wallet   *services.WalletService
	Topup    *services.TopupService
	Account  *services.AccountService
	Activity *services.ActivityService
}

func (h *StorefrontHandler) catalog(provider string) services.ProviderGateway {
	switch provider {
	case services.ProviderPeamsub:
		return h.Peamsub
	case services.ProviderWepay:
		return h.Wepay
	default:
		return nil
	}
}

type RegisterRequest struct {
	Email    string `json:"email" binding:"required,email"`
	ShopName string `json:"shop_name"`
}

func (h *StorefrontHandler) Register(c *gin.Context) {
	var req RegisterRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, common.NewErrorResponse(err.Error(), nil, http.StatusBadRequest))
		return
	}

	user, err := h.Account.Register(services.RegisterDTO{
		Uid:      c.GetString(ctxUidKey),
		Email:    req.Email,
		ShopName: req.ShopName,
	})
	if err != nil {
		c.JSON(http.StatusInternalServerError, common.NewErrorResponse("Registration failed", nil, http.StatusInternalServerError))
		return
	}

	c.JSON(http.StatusOK, common.NewSuccessResponse(user, "Registered"))
}

func (h *StorefrontHandler) GetCatalog(c *gin.Context) {
	gw := h.catalog(c.Param("provider"))
	if gw == nil {
		c.JSON(http.StatusNotFound, common.NewErrorResponse("Unknown provider", nil, http.StatusNotFound))
		return
	}

	products, err := gw.FetchProducts(c.Request.Context())
	if err != nil {
		respondProviderError(c, err)
		return
	}

	c.JSON(http.StatusOK, common.NewSuccessResponse(products, "Products fetched"))
}

func (h *StorefrontHandler) RefreshCatalog(c *gin.Context) {
	var err error
	switch c.Param("provider") {
	case services.ProviderPeamsub:
		err = h.Peamsub.RefreshProducts(c.Request.Context())
	case services.ProviderWepay:
		err = h.Wepay.RefreshProducts(c.Request.Context())
	default:
		c.JSON(http.StatusNotFound, common.NewErrorResponse("Unknown provider", nil, http.StatusNotFound))
		return
	}
	if err != nil {
		c.JSON(http.StatusInternalServerError, common.NewErrorResponse("Refresh failed", nil, http.StatusInternalServerError))
		return
	}

	c.JSON(http.StatusOK, common.NewSuccessResponse(nil, "Catalog refreshed"))
}

func (h *StorefrontHandler) GetBalance(c *gin.Context) {
	balance, err := h.Wallet.Balance(c.GetString(ctxUidKey))
	if err != nil {
		if errors.Is(err, services.ErrUserNotFound) {
			c.JSON(http.StatusNotFound, common.NewErrorResponse("User not found", nil, http.StatusNotFound))
			return
		}
		c.JSON(http.StatusInternalServerError, common.NewErrorResponse("Balance lookup failed", nil, http.StatusInternalServerError))
		return
	}

	c.JSON(http.StatusOK, common.NewSuccessResponse(gin.H{"balance": balance}, "Balance fetched"))
}

type PurchaseRequest struct {
	Provider    string            `json:"provider" binding:"required"`
	ProductType string            `json:"product_type" binding:"required"`
	ProductID   string            `json:"product_id" binding:"required"`
	Inputs      map[string]string `json:"inputs"`
	AttemptID   string            `json:"attempt_id" binding:"required"`
}

func (h *StorefrontHandler) CreatePurchase(c *gin.Context) {
	var req PurchaseRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, common.NewErrorResponse(err.Error(), nil, http.StatusBadRequest))
		return
	}

	settlement, err := h.Purchase.Purchase(c.Request.Context(), services.PurchaseDTO{
		Uid:          c.GetString(ctxUidKey),
		Provider:     req.Provider,
		ProductType:  req.ProductType,
		ProductID:    req.ProductID,
		PlayerInputs: req.Inputs,
		AttemptID:    req.AttemptID,
	})

	switch {
	case err == nil:
		c.JSON(http.StatusOK, common.NewSuccessResponse(settlement, "Purchase successful"))
	case errors.Is(err, services.ErrPurchaseAmbiguous):
		c.JSON(http.StatusAccepted, common.NewSuccessResponse(settlement,
			"รายการอยู่ระหว่างตรวจสอบ ระบบจะคืนเงินอัตโนมัติหากไม่สำเร็จ"))
	case errors.Is(err, services.ErrInsufficientBalance):
		c.JSON(http.StatusBadRequest, common.NewErrorResponse("ยอดเงินคงเหลือไม่เพียงพอ", nil, http.StatusBadRequest))
	case errors.Is(err, services.ErrPriceUnavailable):
		c.JSON(http.StatusBadRequest, common.NewErrorResponse("ไม่พบราคาสินค้า กรุณาติดต่อผู้ดูแลระบบ", nil, http.StatusBadRequest))
	case errors.Is(err, services.ErrAccountSuspended):
		c.JSON(http.StatusForbidden, common.NewErrorResponse("บัญชีของคุณถูกระงับ", nil, http.StatusForbidden))
	case errors.Is(err, services.ErrProductNotFound), errors.Is(err, services.ErrUnknownProvider):
		c.JSON(http.StatusNotFound, common.NewErrorResponse("ไม่พบสินค้า", nil, http.StatusNotFound))
	case errors.Is(err, services.ErrDuplicateAttempt):
		c.JSON(http.StatusConflict, common.NewErrorResponse("รายการนี้กำลังดำเนินการอยู่", nil, http.StatusConflict))
	case errors.Is(err, services.ErrUserNotFound):
		c.JSON(http.StatusNotFound, common.NewErrorResponse("User not found", nil, http.StatusNotFound))
	default:
		respondProviderError(c, err)
	}
}

func (h *StorefrontHandler) ListPurchases(c *gin.Context) {
	page, _ := strconv.Atoi(c.DefaultQuery("page", "1"))
	limit, _ := strconv.Atoi(c.DefaultQuery("limit", "50"))

	result, err := h.Purchase.ListPurchases(c.GetString(ctxUidKey), page, limit)
	if err != nil {
		c.JSON(http.StatusInternalServerError, common.NewErrorResponse("History lookup failed", nil, http.StatusInternalServerError))
		return
	}

	c.JSON(http.StatusOK, result)
}

func (h *StorefrontHandler) SubmitSlipTopup(c *gin.Context) {
	file, err := c.FormFile("slip")
	if err != nil {
		c.JSON(http.StatusBadRequest, common.NewErrorResponse("Missing slip image", nil, http.StatusBadRequest))
		return
	}

	f, err := file.Open()
	if err != nil {
		c.JSON(http.StatusBadRequest, common.NewErrorResponse("Unreadable slip image", nil, http.StatusBadRequest))
		return
	}
	defer f.Close()

	image, err := io.ReadAll(f)
	if err != nil {
		c.JSON(http.StatusBadRequest, common.NewErrorResponse("Unreadable slip image", nil, http.StatusBadRequest))
		return
	}

	topup, err := h.Topup.SubmitSlip(c.Request.Context(), c.GetString(ctxUidKey), image, file.Filename)
	switch {
	case err == nil:
		c.JSON(http.StatusOK, common.NewSuccessResponse(topup, "Topup completed"))
	case errors.Is(err, services.ErrDuplicateSlip):
		c.JSON(http.StatusConflict, common.NewErrorResponse("สลิปนี้ถูกใช้งานแล้ว", nil, http.StatusConflict))
	case errors.Is(err, services.ErrUserNotFound):
		c.JSON(http.StatusNotFound, common.NewErrorResponse("User not found", nil, http.StatusNotFound))
	default:
		respondProviderError(c, err)
	}
}

func (h *StorefrontHandler) ListTopups(c *gin.Context) {
	page, _ := strconv.Atoi(c.DefaultQuery("page", "1"))
	limit, _ := strconv.Atoi(c.DefaultQuery("limit", "50"))

	result, err := h.Topup.ListTopups(services.ListTopupsDTO{
		Uid:   c.GetString(ctxUidKey),
		Page:  page,
		Limit: limit,
	})
	if err != nil {
		c.JSON(http.StatusInternalServerError, common.NewErrorResponse("Topup lookup failed", nil, http.StatusInternalServerError))
		return
	}

	c.JSON(http.StatusOK, result)
}

func (h *StorefrontHandler) ListNotifications(c *gin.Context) {
	page, _ := strconv.Atoi(c.DefaultQuery("page", "1"))
	limit, _ := strconv.Atoi(c.DefaultQuery("limit", "50"))

	result, err := h.Activity.ListNotifications(c.GetString(ctxUidKey), page, limit)
	if err != nil {
		c.JSON(http.StatusInternalServerError, common.NewErrorResponse("Notification lookup failed", nil, http.StatusInternalServerError))
		return
	}

	c.JSON(http.StatusOK, result)
}

// respondProviderError surfaces a decoded provider message, or a generic
// bad-gateway envelope for transport failures.
func respondProviderError(c *gin.Context, err error) {
	var perr *services.ProviderError
	if errors.As(err, &perr) {
		c.JSON(http.StatusBadRequest, common.NewErrorResponse(perr.Message, gin.H{"code": perr.Code}, http.StatusBadRequest))
		return
	}
	c.JSON(http.StatusBadGateway, common.NewErrorResponse("ไม่สามารถเชื่อมต่อผู้ให้บริการได้", nil, http.StatusBadGateway))
}
