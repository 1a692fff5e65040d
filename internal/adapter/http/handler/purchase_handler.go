package handler

import (
	"agentstore-payments/internal/adapter/http/dto"
	"agentstore-payments/internal/core/domain"
	"agentstore-payments/internal/core/ports"
	"agentstore-payments/pkg/apperror"
	"agentstore-payments/pkg/response"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
)

// PurchaseHandler handles purchase endpoints.
type PurchaseHandler struct {
	purchaseSvc   ports.PurchaseService
	settlementSvc ports.SettlementService
}

// NewPurchaseHandler creates a new PurchaseHandler.
func NewPurchaseHandler(purchaseSvc ports.PurchaseService, settlementSvc ports.SettlementService) *PurchaseHandler {
	return &PurchaseHandler{purchaseSvc: purchaseSvc, settlementSvc: settlementSvc}
}

// Purchase handles POST /api/v1/purchases.
func (h *PurchaseHandler) Purchase(c *gin.Context) {
	var req dto.PurchaseRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, apperror.Validation(err.Error()))
		return
	}

	agentID, err := uuid.Parse(req.AgentID)
	if err != nil {
		response.Error(c, apperror.Validation("agent_id must be a valid UUID"))
		return
	}

	result, err := h.purchaseSvc.Purchase(c.Request.Context(), ports.PurchaseRequest{
		AgentID:       agentID,
		WalletAddress: req.WalletAddress,
		TxHash:        req.TxHash,
	})
	if err != nil {
		response.Error(c, err)
		return
	}

	response.Created(c, dto.PurchaseResponse{
		Entitlement: toEntitlementResponse(result.Entitlement),
		Transaction: toTransactionResponse(result.Transaction),
		FeeSplit:    toFeeSplitResponse(result.FeeSplit),
	})
}

// Gasless handles POST /api/v1/purchases/gasless.
func (h *PurchaseHandler) Gasless(c *gin.Context) {
	var req dto.GaslessRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, apperror.Validation(err.Error()))
		return
	}

	agentID, err := uuid.Parse(req.AgentID)
	if err != nil {
		response.Error(c, apperror.Validation("agent_id must be a valid UUID"))
		return
	}

	result, err := h.settlementSvc.Settle(c.Request.Context(), ports.SettleRequest{
		AgentID:       agentID,
		WalletAddress: req.WalletAddress,
		Authorization: domain.TransferAuthorization{
			From:        req.Authorization.From,
			To:          req.Authorization.To,
			Value:       req.Authorization.Value,
			ValidAfter:  req.Authorization.ValidAfter,
			ValidBefore: req.Authorization.ValidBefore,
			Nonce:       req.Authorization.Nonce,
			Signature:   req.Signature,
		},
	})
	if err != nil {
		response.Error(c, err)
		return
	}

	resp := dto.PurchaseResponse{
		Entitlement: toEntitlementResponse(result.Entitlement),
		Transaction: toTransactionResponse(result.Transaction),
		FeeSplit:    toFeeSplitResponse(result.FeeSplit),
	}
	if result.Proof != nil {
		resp.Proof = &dto.ProofResponse{
			TxHash:        result.Proof.TxHash,
			Status:        result.Proof.Status,
			Confirmations: result.Proof.Confirmations,
			Network:       result.Proof.Network,
		}
	}
	response.Created(c, resp)
}

// toEntitlementResponse converts domain.Entitlement to DTO.
func toEntitlementResponse(e *domain.Entitlement) dto.EntitlementResponse {
	resp := dto.EntitlementResponse{
		ID:            e.ID.String(),
		Token:         e.Token,
		AgentID:       e.AgentID.String(),
		WalletAddress: e.WalletAddress,
		PricingModel:  string(e.PricingModel),
		AmountPaid:    e.AmountPaid,
		Currency:      e.Currency,
		Status:        string(e.Status),
		CreatedAt:     e.CreatedAt.Format("2006-01-02T15:04:05Z07:00"),
	}
	if e.ExpiresAt != nil {
		s := e.ExpiresAt.Format("2006-01-02T15:04:05Z07:00")
		resp.ExpiresAt = &s
	}
	return resp
}

// toTransactionResponse converts domain.Transaction to DTO.
func toTransactionResponse(tx *domain.Transaction) dto.TransactionResponse {
	return dto.TransactionResponse{
		TxHash:        tx.TxHash,
		Amount:        tx.Amount,
		Currency:      tx.Currency,
		Status:        string(tx.Status),
		BlockNumber:   tx.BlockNumber,
		Confirmations: tx.Confirmations,
	}
}

// toFeeSplitResponse converts domain.FeeSplit to DTO.
func toFeeSplitResponse(fs domain.FeeSplit) dto.FeeSplitResponse {
	return dto.FeeSplitResponse{
		PlatformAddress:  fs.PlatformAddress,
		PlatformAmount:   fs.PlatformAmount,
		PlatformPercent:  fs.PlatformPercent,
		PublisherAddress: fs.PublisherAddress,
		PublisherAmount:  fs.PublisherAmount,
		PublisherPercent: fs.PublisherPercent,
	}
}
