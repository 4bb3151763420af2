package server

import (
	"net/http"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/shopspring/decimal"
	transactiondomain "github.com/smallbiznis/comiso/internal/transaction/domain"
	"github.com/smallbiznis/comiso/pkg/db/pagination"
)

type createTransactionRequest struct {
	OrderRelayID string          `json:"order_relay_id"`
	OrderID      string          `json:"order_id"`
	OrderItemID  string          `json:"order_item_id"`
	ProductID    string          `json:"product_id"`
	PartnerID    string          `json:"partner_id"`
	SupplierID   string          `json:"supplier_id"`
	OrderAmount  decimal.Decimal `json:"order_amount"`
	AsOf         *time.Time      `json:"as_of"`
}

func (s *Server) CreateTransaction(c *gin.Context) {
	var req createTransactionRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		AbortWithError(c, invalidRequestError())
		return
	}

	resp, err := s.transactionSvc.Create(c.Request.Context(), transactiondomain.CreateRequest{
		OrderRelayID: strings.TrimSpace(req.OrderRelayID),
		OrderID:      strings.TrimSpace(req.OrderID),
		OrderItemID:  strings.TrimSpace(req.OrderItemID),
		ProductID:    req.ProductID,
		PartnerID:    req.PartnerID,
		SupplierID:   req.SupplierID,
		OrderAmount:  req.OrderAmount,
		AsOf:         req.AsOf,
	})
	if err != nil {
		AbortWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"data": resp})
}

func (s *Server) ListTransactions(c *gin.Context) {
	var query struct {
		PageToken    string `form:"page_token"`
		PageSize     int    `form:"page_size"`
		OrderRelayID string `form:"order_relay_id"`
		OrderID      string `form:"order_id"`
		ProductID    string `form:"product_id"`
		PartnerID    string `form:"partner_id"`
		SupplierID   string `form:"supplier_id"`
		Unsettled    bool   `form:"unsettled"`
	}
	if err := c.ShouldBindQuery(&query); err != nil {
		AbortWithError(c, invalidRequestError())
		return
	}

	// An order relay id identifies at most one transaction, so the filter
	// degenerates to a point lookup.
	if relayID := strings.TrimSpace(query.OrderRelayID); relayID != "" {
		trx, err := s.transactionSvc.GetByOrderRelay(c.Request.Context(), relayID)
		if err != nil {
			AbortWithError(c, err)
			return
		}
		c.JSON(http.StatusOK, gin.H{"data": transactiondomain.ListResponse{
			Transactions: []transactiondomain.CommissionTransaction{*trx},
		}})
		return
	}

	resp, err := s.transactionSvc.List(c.Request.Context(), transactiondomain.ListRequest{
		Pagination: pagination.Pagination{
			PageToken: strings.TrimSpace(query.PageToken),
			PageSize:  query.PageSize,
		},
		OrderID:    strings.TrimSpace(query.OrderID),
		ProductID:  strings.TrimSpace(query.ProductID),
		PartnerID:  strings.TrimSpace(query.PartnerID),
		SupplierID: strings.TrimSpace(query.SupplierID),
		Unsettled:  query.Unsettled,
	})
	if err != nil {
		AbortWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"data": resp})
}

func (s *Server) GetTransactionByID(c *gin.Context) {
	id := strings.TrimSpace(c.Param("id"))
	resp, err := s.transactionSvc.Get(c.Request.Context(), id)
	if err != nil {
		AbortWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"data": resp})
}
