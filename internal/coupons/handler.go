package coupons

import (
	"errors"
	"io"
	"net/http"

	"github.com/gin-gonic/gin"

	"smartcv-backend/internal/shared/server/respond"
)

const (
	ErrorCodeInvalid  = "COUPON_INVALID"
	ErrorCodeInternal = "COUPON_ERROR"
)

// Checker is implemented by Validator.
type Checker interface {
	Validate(code string) (string, error)
}

// Handler serves POST /validate-coupon.
type Handler struct {
	Coupons Checker
}

// NewHandler constructs a Handler.
func NewHandler(c Checker) *Handler {
	return &Handler{Coupons: c}
}

// RegisterRoutes attaches the coupon route.
func (h *Handler) RegisterRoutes(rg gin.IRoutes) {
	rg.POST("/validate-coupon", h.ValidateCoupon)
}

type validateRequest struct {
	CouponCode string `json:"couponCode"`
}

// ValidateCoupon responds {valid:true,message} or 400 {valid:false,error}.
func (h *Handler) ValidateCoupon(c *gin.Context) {
	var body validateRequest
	if err := c.ShouldBindJSON(&body); err != nil && !errors.Is(err, io.EOF) {
		respond.ErrorWith(c, http.StatusBadRequest, ErrorCodeInvalid, ErrCodeRequired.Error(), gin.H{"valid": false})
		return
	}

	_, err := h.Coupons.Validate(body.CouponCode)
	switch {
	case err == nil:
		respond.OK(c, gin.H{"valid": true, "message": "Coupon code is valid"})
	case errors.Is(err, ErrCodeRequired), errors.Is(err, ErrNotConfigured), errors.Is(err, ErrUnknownCode):
		respond.ErrorWith(c, http.StatusBadRequest, ErrorCodeInvalid, err.Error(), gin.H{"valid": false})
	default:
		respond.ErrorWith(c, http.StatusInternalServerError, ErrorCodeInternal, "Failed to validate coupon code", gin.H{"valid": false})
	}
}
