package server

import (
	"net/http"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/shopspring/decimal"
	policydomain "github.com/smallbiznis/comiso/internal/policy/domain"
	"github.com/smallbiznis/comiso/pkg/db/pagination"
)

type createPolicyRequest struct {
	Code            string                       `json:"code"`
	CalculationType policydomain.CalculationType `json:"calculation_type"`
	Rate            *decimal.Decimal             `json:"rate"`
	FixedAmount     *decimal.Decimal             `json:"fixed_amount"`
	TieredRates     policydomain.TieredRates     `json:"tiered_rates"`
	ScopeType       policydomain.ScopeType       `json:"scope_type"`
	ProductID       *string                      `json:"product_id"`
	PartnerID       *string                      `json:"partner_id"`
	SupplierID      *string                      `json:"supplier_id"`
	Priority        *int                         `json:"priority"`
	ValidFrom       *time.Time                   `json:"valid_from"`
	ValidUntil      *time.Time                   `json:"valid_until"`
	Status          *policydomain.RuleStatus     `json:"status"`
}

func (s *Server) CreatePolicy(c *gin.Context) {
	var req createPolicyRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		AbortWithError(c, invalidRequestError())
		return
	}

	resp, err := s.policySvc.Create(c.Request.Context(), policydomain.CreateRequest{
		Code:            strings.TrimSpace(req.Code),
		CalculationType: req.CalculationType,
		Rate:            req.Rate,
		FixedAmount:     req.FixedAmount,
		TieredRates:     req.TieredRates,
		ScopeType:       req.ScopeType,
		ProductID:       req.ProductID,
		PartnerID:       req.PartnerID,
		SupplierID:      req.SupplierID,
		Priority:        req.Priority,
		ValidFrom:       req.ValidFrom,
		ValidUntil:      req.ValidUntil,
		Status:          req.Status,
	})
	if err != nil {
		AbortWithError(c, err)
		return
	}

	_ = s.auditSvc.AuditLog(c.Request.Context(), "", nil, "policy.create", "commission_rule", &resp.ID, map[string]any{
		"code":             resp.Code,
		"calculation_type": string(resp.CalculationType),
		"scope_type":       string(resp.ScopeType),
	})

	c.JSON(http.StatusOK, gin.H{"data": resp})
}

func (s *Server) ListPolicies(c *gin.Context) {
	var query struct {
		PageToken string `form:"page_token"`
		PageSize  int    `form:"page_size"`
		Status    string `form:"status"`
		ScopeType string `form:"scope_type"`
	}
	if err := c.ShouldBindQuery(&query); err != nil {
		AbortWithError(c, invalidRequestError())
		return
	}

	resp, err := s.policySvc.List(c.Request.Context(), policydomain.ListRequest{
		Pagination: pagination.Pagination{
			PageToken: strings.TrimSpace(query.PageToken),
			PageSize:  query.PageSize,
		},
		Status:    policydomain.RuleStatus(strings.TrimSpace(query.Status)),
		ScopeType: policydomain.ScopeType(strings.TrimSpace(query.ScopeType)),
	})
	if err != nil {
		AbortWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"data": resp})
}

func (s *Server) GetPolicyByID(c *gin.Context) {
	id := strings.TrimSpace(c.Param("id"))
	resp, err := s.policySvc.Get(c.Request.Context(), id)
	if err != nil {
		AbortWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"data": resp})
}

type updatePolicyRequest struct {
	Code            *string                       `json:"code"`
	CalculationType *policydomain.CalculationType `json:"calculation_type"`
	Rate            *decimal.Decimal              `json:"rate"`
	FixedAmount     *decimal.Decimal              `json:"fixed_amount"`
	TieredRates     policydomain.TieredRates      `json:"tiered_rates"`
	Priority        *int                          `json:"priority"`
	ValidFrom       *time.Time                    `json:"valid_from"`
	ValidUntil      *time.Time                    `json:"valid_until"`
	Status          *policydomain.RuleStatus      `json:"status"`
}

func (s *Server) UpdatePolicy(c *gin.Context) {
	id := strings.TrimSpace(c.Param("id"))

	var req updatePolicyRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		AbortWithError(c, invalidRequestError())
		return
	}

	resp, err := s.policySvc.Update(c.Request.Context(), id, policydomain.UpdateRequest{
		Code:            req.Code,
		CalculationType: req.CalculationType,
		Rate:            req.Rate,
		FixedAmount:     req.FixedAmount,
		TieredRates:     req.TieredRates,
		Priority:        req.Priority,
		ValidFrom:       req.ValidFrom,
		ValidUntil:      req.ValidUntil,
		Status:          req.Status,
	})
	if err != nil {
		AbortWithError(c, err)
		return
	}

	_ = s.auditSvc.AuditLog(c.Request.Context(), "", nil, "policy.update", "commission_rule", &resp.ID, map[string]any{
		"code": resp.Code,
	})

	c.JSON(http.StatusOK, gin.H{"data": resp})
}

func (s *Server) DeletePolicy(c *gin.Context) {
	id := strings.TrimSpace(c.Param("id"))
	if err := s.policySvc.Delete(c.Request.Context(), id); err != nil {
		AbortWithError(c, err)
		return
	}

	_ = s.auditSvc.AuditLog(c.Request.Context(), "", nil, "policy.delete", "commission_rule", &id, nil)

	c.JSON(http.StatusOK, gin.H{"data": gin.H{"deleted": true}})
}
