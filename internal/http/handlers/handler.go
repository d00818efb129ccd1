package handlers

import (
	"errors"
	"log/slog"
	"math/big"
	"net/http"

	"github.com/gin-gonic/gin"

	"guess_dapp/internal/game"
	"guess_dapp/internal/logger"
	"guess_dapp/internal/wallet"
)

type Handler struct {
	Game    *game.Controller
	Wallet  *wallet.Wallet
	ChainID *big.Int
	log     *slog.Logger
}

func NewHandler(ctrl *game.Controller, w *wallet.Wallet, chainID *big.Int) *Handler {
	return &Handler{
		Game:    ctrl,
		Wallet:  w,
		ChainID: chainID,
		log:     logger.Component("http"),
	}
}

// writeError maps controller errors to status codes
func writeError(c *gin.Context, err error) {
	status := http.StatusInternalServerError
	switch {
	case errors.Is(err, game.ErrNotConnected):
		status = http.StatusForbidden
	case errors.Is(err, game.ErrClaimUnavailable):
		status = http.StatusNotFound
	case errors.Is(err, game.ErrClaimLocked):
		status = http.StatusConflict
	case errors.Is(err, game.ErrReadFailed), errors.Is(err, game.ErrWriteRejected):
		status = http.StatusBadGateway
	case errors.Is(err, wallet.ErrBadPassphrase):
		status = http.StatusUnauthorized
	case errors.Is(err, wallet.ErrNoKeySource):
		status = http.StatusServiceUnavailable
	}
	c.JSON(status, gin.H{"error": err.Error()})
}
