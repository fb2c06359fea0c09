package handlers

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"

	"taskfi_backend/internal/domain"
	"taskfi_backend/internal/wallet"
)

// WalletChallenge issues a one-shot nonce and the exact message to sign.
func (h *Handler) WalletChallenge(c *gin.Context) {
	address, ok := getAddress(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "unauthorized"})
		return
	}

	nonce, err := h.Challenges.Issue(c.Request.Context(), address)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to issue challenge"})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"nonce":   nonce,
		"message": wallet.ChallengeMessage(address, nonce),
	})
}

type WalletVerifyRequest struct {
	Nonce     string `json:"nonce"`
	Signature string `json:"signature"`
}

// WalletVerify consumes the challenge, verifies the personal-sign proof and
// runs the one-time airdrop.
func (h *Handler) WalletVerify(c *gin.Context) {
	address, ok := getAddress(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "unauthorized"})
		return
	}

	var req WalletVerifyRequest
	if err := c.BindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "bad request"})
		return
	}

	ctx := c.Request.Context()
	if err := h.Challenges.Consume(ctx, address, req.Nonce); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid or expired challenge"})
		return
	}

	message := wallet.ChallengeMessage(address, req.Nonce)
	txHash, err := h.Ledger.VerifyAndAirdrop(ctx, address, message, req.Signature)
	if err != nil {
		switch {
		case errors.Is(err, domain.ErrVerification):
			c.JSON(http.StatusUnauthorized, gin.H{"error": "signature verification failed"})
		case errors.Is(err, domain.ErrTransfer):
			c.JSON(http.StatusBadGateway, gin.H{"error": "token transfer failed, try again"})
		default:
			c.JSON(http.StatusInternalServerError, gin.H{"error": "verification failed"})
		}
		return
	}

	h.Balance.Invalidate(ctx, address)
	c.JSON(http.StatusOK, gin.H{
		"verified": true,
		"tx_hash":  txHash,
	})
}

// WalletBalance returns the cached on-chain token balance.
func (h *Handler) WalletBalance(c *gin.Context) {
	address, ok := getAddress(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "unauthorized"})
		return
	}

	balance, err := h.Balance.GetBalance(c.Request.Context(), address)
	if err != nil {
		c.JSON(http.StatusBadGateway, gin.H{"error": "failed to read on-chain balance"})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"address": address,
		"balance": balance,
	})
}
