package handlers

import (
	"bytes"
	"encoding/json"
	"errors"
	"math"
	"math/big"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
)

// Config describes the deployment the host is bound to
func (h *Handler) Config(c *gin.Context) {
	cfg := h.Game.Config()
	resp := gin.H{
		"contract":     cfg.Contract.Address.Hex(),
		"abi":          cfg.Contract.Variant,
		"capabilities": cfg.Capabilities,
	}
	if h.ChainID != nil {
		resp["chain_id"] = h.ChainID.String()
	}
	c.JSON(http.StatusOK, resp)
}

func (h *Handler) GetGame(c *gin.Context) {
	c.JSON(http.StatusOK, h.Game.Snapshot())
}

// FetchSecret refreshes the cached secret. The value itself stays hidden
// until revealed.
func (h *Handler) FetchSecret(c *gin.Context) {
	if _, err := h.Game.FetchSecret(c.Request.Context()); err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, h.Game.Snapshot())
}

type GuessRequest struct {
	Guess json.RawMessage `json:"guess"`
}

func (h *Handler) SubmitGuess(c *gin.Context) {
	var req GuessRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "bad request"})
		return
	}
	guess, err := guessText(req.Guess)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	outcome, err := h.Game.SubmitGuess(c.Request.Context(), guess)
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{
		"outcome": outcome,
		"state":   h.Game.Snapshot(),
	})
}

// guessText turns the guess field into the text compared with the secret.
// Strings are taken verbatim. Numbers behave like a float64 compared with
// an integer: an integral value matches its decimal form, anything else
// never matches.
func guessText(raw json.RawMessage) (string, error) {
	raw = bytes.TrimSpace(raw)
	if len(raw) == 0 || bytes.Equal(raw, []byte("null")) {
		return "", errors.New("guess is required")
	}

	switch raw[0] {
	case '"':
		var s string
		if err := json.Unmarshal(raw, &s); err != nil {
			return "", errors.New("guess must be a string or a number")
		}
		return s, nil
	case '-', '0', '1', '2', '3', '4', '5', '6', '7', '8', '9':
		f, err := strconv.ParseFloat(string(raw), 64)
		if err != nil || math.IsInf(f, 0) {
			// out of float range, cannot equal any integer
			return string(raw), nil
		}
		bf := big.NewFloat(f)
		if !bf.IsInt() {
			return string(raw), nil
		}
		n, _ := bf.Int(nil)
		return n.String(), nil
	default:
		return "", errors.New("guess must be a string or a number")
	}
}

func (h *Handler) Reveal(c *gin.Context) {
	if err := h.Game.Reveal(); err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, h.Game.Snapshot())
}

// RestartGame submits the restart transaction. The confirmation arrives
// later on the state stream.
func (h *Handler) RestartGame(c *gin.Context) {
	if err := h.Game.RestartGame(c.Request.Context()); err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusAccepted, h.Game.Snapshot())
}

func (h *Handler) ClaimToken(c *gin.Context) {
	if err := h.Game.ClaimToken(c.Request.Context()); err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusAccepted, h.Game.Snapshot())
}

func (h *Handler) CloseModal(c *gin.Context) {
	h.Game.CloseModal()
	c.JSON(http.StatusOK, h.Game.Snapshot())
}

func (h *Handler) DismissNotice(c *gin.Context) {
	id := c.Param("id")
	if !h.Game.DismissNotice(id) {
		c.JSON(http.StatusNotFound, gin.H{"error": "notice not found"})
		return
	}
	h.log.Debug("notice dismissed", "id", id)
	c.JSON(http.StatusOK, h.Game.Snapshot())
}
