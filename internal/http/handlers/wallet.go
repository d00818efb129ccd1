package handlers

import (
	"errors"
	"io"
	"net/http"

	"github.com/gin-gonic/gin"

	"guess_dapp/internal/logger"
	"guess_dapp/internal/service"
)

func (h *Handler) GetWallet(c *gin.Context) {
	account, ok := h.Wallet.Account()
	resp := gin.H{"is_connected": ok}
	if ok {
		resp["account"] = account.Hex()
	}
	c.JSON(http.StatusOK, resp)
}

type ConnectRequest struct {
	Passphrase string `json:"passphrase"`
}

// ConnectWallet unlocks the key and issues a session token for its account
func (h *Handler) ConnectWallet(c *gin.Context) {
	var req ConnectRequest
	if err := c.ShouldBindJSON(&req); err != nil && !errors.Is(err, io.EOF) {
		c.JSON(http.StatusBadRequest, gin.H{"error": "bad request"})
		return
	}

	account, err := h.Wallet.Connect(req.Passphrase)
	if err != nil {
		h.log.Warn("wallet connect failed", logger.Err(err))
		writeError(c, err)
		return
	}

	token, err := service.GenerateJWT(account)
	if err != nil {
		h.log.Error("token generation failed", logger.Err(err))
		c.JSON(http.StatusInternalServerError, gin.H{"error": "token generation failed"})
		return
	}

	h.log.Info("wallet connected", "account", account.Hex())
	h.Game.Notify()

	c.JSON(http.StatusOK, gin.H{
		"account":    account.Hex(),
		"token":      token,
		"expires_in": int(service.SessionTTL.Seconds()),
	})
}

func (h *Handler) DisconnectWallet(c *gin.Context) {
	h.Wallet.Disconnect()
	h.log.Info("wallet disconnected")
	h.Game.Notify()
	c.JSON(http.StatusOK, gin.H{"is_connected": false})
}
