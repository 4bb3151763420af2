package server

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/bwmarrin/snowflake"
	"github.com/gin-gonic/gin"
	auditdomain "github.com/smallbiznis/comiso/internal/audit/domain"
	"github.com/smallbiznis/comiso/internal/config"
	policydomain "github.com/smallbiznis/comiso/internal/policy/domain"
	transactiondomain "github.com/smallbiznis/comiso/internal/transaction/domain"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

type fakePolicyService struct {
	createErr   error
	lastCreate  policydomain.CreateRequest
	getResponse *policydomain.Response
	getErr      error
}

func (f *fakePolicyService) Create(_ context.Context, req policydomain.CreateRequest) (*policydomain.Response, error) {
	f.lastCreate = req
	if f.createErr != nil {
		return nil, f.createErr
	}
	return &policydomain.Response{ID: "1", Code: req.Code, CalculationType: req.CalculationType, ScopeType: req.ScopeType}, nil
}

func (f *fakePolicyService) Get(context.Context, string) (*policydomain.Response, error) {
	return f.getResponse, f.getErr
}

func (f *fakePolicyService) Update(_ context.Context, id string, _ policydomain.UpdateRequest) (*policydomain.Response, error) {
	return &policydomain.Response{ID: id}, nil
}

func (f *fakePolicyService) Delete(context.Context, string) error { return nil }

func (f *fakePolicyService) List(context.Context, policydomain.ListRequest) (*policydomain.ListResponse, error) {
	return &policydomain.ListResponse{}, nil
}

type fakeTransactionService struct {
	createErr error
}

func (f *fakeTransactionService) Create(_ context.Context, req transactiondomain.CreateRequest) (*transactiondomain.CommissionTransaction, error) {
	if f.createErr != nil {
		return nil, f.createErr
	}
	return &transactiondomain.CommissionTransaction{OrderRelayID: req.OrderRelayID}, nil
}

func (f *fakeTransactionService) Get(context.Context, string) (*transactiondomain.CommissionTransaction, error) {
	return nil, transactiondomain.ErrNotFound
}

func (f *fakeTransactionService) GetByOrderRelay(context.Context, string) (*transactiondomain.CommissionTransaction, error) {
	return nil, transactiondomain.ErrNotFound
}

func (f *fakeTransactionService) List(context.Context, transactiondomain.ListRequest) (*transactiondomain.ListResponse, error) {
	return &transactiondomain.ListResponse{}, nil
}

type fakeAuditService struct {
	actions []string
}

func (f *fakeAuditService) AuditLog(_ context.Context, _ string, _ *string, action string, _ string, _ *string, _ map[string]any) error {
	f.actions = append(f.actions, action)
	return nil
}

func (f *fakeAuditService) List(context.Context, auditdomain.ListAuditLogRequest) (auditdomain.ListAuditLogResponse, error) {
	return auditdomain.ListAuditLogResponse{}, nil
}

func newTestServer(t *testing.T) (*Server, *fakePolicyService, *fakeTransactionService, *fakeAuditService) {
	t.Helper()
	gin.SetMode(gin.TestMode)

	node, err := snowflake.NewNode(1)
	require.NoError(t, err)

	policySvc := &fakePolicyService{}
	transactionSvc := &fakeTransactionService{}
	auditSvc := &fakeAuditService{}

	srv := NewServer(ServerParams{
		Gin:            NewEngine(zap.NewNop(), nil),
		Cfg:            config.Config{},
		GenID:          node,
		PolicySvc:      policySvc,
		TransactionSvc: transactionSvc,
		AuditSvc:       auditSvc,
	})
	return srv, policySvc, transactionSvc, auditSvc
}

func TestCreatePolicy_WritesAuditEntry(t *testing.T) {
	srv, policySvc, _, auditSvc := newTestServer(t)

	body, _ := json.Marshal(map[string]any{
		"code":             "default-10pct",
		"calculation_type": "PERCENTAGE",
		"rate":             "10",
		"scope_type":       "DEFAULT",
	})
	req := httptest.NewRequest(http.MethodPost, "/v1/commission/policies", bytes.NewReader(body))
	rec := httptest.NewRecorder()
	srv.engine.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "default-10pct", policySvc.lastCreate.Code)
	assert.Equal(t, []string{"policy.create"}, auditSvc.actions)
}

func TestCreatePolicy_ValidationErrorMapsTo400(t *testing.T) {
	srv, policySvc, _, auditSvc := newTestServer(t)
	policySvc.createErr = policydomain.ErrInvalidRate

	body, _ := json.Marshal(map[string]any{
		"code":             "bad",
		"calculation_type": "PERCENTAGE",
		"scope_type":       "DEFAULT",
	})
	req := httptest.NewRequest(http.MethodPost, "/v1/commission/policies", bytes.NewReader(body))
	rec := httptest.NewRecorder()
	srv.engine.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Empty(t, auditSvc.actions)

	var resp struct {
		Error struct {
			Type   string `json:"type"`
			Errors []struct {
				Code string `json:"code"`
			} `json:"errors"`
		} `json:"error"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.Equal(t, "validation_error", resp.Error.Type)
	require.Len(t, resp.Error.Errors, 1)
	assert.Equal(t, "invalid_rate", resp.Error.Errors[0].Code)
}

func TestGetPolicy_NotFoundMapsTo404(t *testing.T) {
	srv, policySvc, _, _ := newTestServer(t)
	policySvc.getErr = policydomain.ErrNotFound

	req := httptest.NewRequest(http.MethodGet, "/v1/commission/policies/123", nil)
	rec := httptest.NewRecorder()
	srv.engine.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestCreateTransaction_DuplicateMapsTo409(t *testing.T) {
	srv, _, transactionSvc, _ := newTestServer(t)
	transactionSvc.createErr = transactiondomain.ErrDuplicateOrderRelay

	body, _ := json.Marshal(map[string]any{
		"order_relay_id": "relay-1",
		"order_amount":   "1000",
	})
	req := httptest.NewRequest(http.MethodPost, "/v1/commission/transactions", bytes.NewReader(body))
	rec := httptest.NewRecorder()
	srv.engine.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusConflict, rec.Code)
}

func TestCreateTransaction_MalformedBodyMapsTo400(t *testing.T) {
	srv, _, _, _ := newTestServer(t)

	req := httptest.NewRequest(http.MethodPost, "/v1/commission/transactions", bytes.NewReader([]byte("{not json")))
	rec := httptest.NewRecorder()
	srv.engine.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestHealthEndpoint(t *testing.T) {
	srv, _, _, _ := newTestServer(t)

	req := httptest.NewRequest(http.MethodGet, "/health", nil)
	rec := httptest.NewRecorder()
	srv.engine.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusOK, rec.Code)
}
