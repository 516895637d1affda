package order

import (
	"errors"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"gorm.io/gorm"

	"github.com/dwarvesf/payment-listener/internal/model"
	"github.com/dwarvesf/payment-listener/internal/store"
	"github.com/dwarvesf/payment-listener/internal/utils/logger"
	"github.com/dwarvesf/payment-listener/internal/view"
)

type StatusResponse struct {
	ID             string            `json:"id"`
	Status         model.OrderStatus `json:"status"`
	Type           model.OrderType   `json:"type"`
	TransferHash   *string           `json:"transfer_hash,omitempty"`
	TransferLog    *uint             `json:"transfer_log_index,omitempty"`
	CustomerWallet *string           `json:"customer_wallet,omitempty"`
	PaidAt         *time.Time        `json:"paid_at,omitempty"`
	ExpiresAt      *time.Time        `json:"expires_at,omitempty"`
}

type handler struct {
	db     *gorm.DB
	store  *store.Store
	logger *logger.Logger
}

func New(db *gorm.DB, store *store.Store, logger *logger.Logger) IHandler {
	return &handler{
		db:     db,
		store:  store,
		logger: logger,
	}
}

// GetStatus godoc
// @Summary Get order payment status
// @Description Lets a checkout page poll whether its order has been paid on chain
// @id getOrderStatus
// @Tags Order
// @Accept json
// @Produce json
// @Param id path string true "Order ID"
// @Success 200 {object} view.Response[StatusResponse]
// @Failure 404 {object} view.Response[any]
// @Failure 500 {object} view.Response[any]
// @Router /api/v1/orders/{id}/status [get]
func (h *handler) GetStatus(c *gin.Context) {
	id := c.Param("id")

	o, err := h.store.Order.GetByID(h.db.WithContext(c.Request.Context()), id)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			c.JSON(http.StatusNotFound, view.CreateResponse[any](nil, err, "ORDER_NOT_FOUND", "order not found"))
			return
		}
		h.logger.Error("[OrderHandler][GetStatus]", map[string]string{
			"orderId": id,
			"error":   err.Error(),
		})
		c.JSON(http.StatusInternalServerError, view.CreateResponse[any](nil, err, "", "can't get order status"))
		return
	}

	c.JSON(http.StatusOK, view.CreateResponse(StatusResponse{
		ID:             o.ID,
		Status:         o.Status,
		Type:           o.Type,
		TransferHash:   o.TransferHash,
		TransferLog:    o.TransferLogIndex,
		CustomerWallet: o.CustomerWallet,
		PaidAt:         o.PaidAt,
		ExpiresAt:      o.ExpiresAt,
	}, nil, "", ""))
}
