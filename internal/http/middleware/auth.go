package middleware

import (
	"net/http"
	"strings"

	"github.com/ethereum/go-ethereum/common"
	"github.com/gin-gonic/gin"

	"guess_dapp/internal/service"
)

// AccountKey is the gin context key holding the authenticated account
const AccountKey = "account"

// JWT requires a bearer token issued for the account that is connected right
// now. A token from an earlier session stops working once the wallet
// disconnects or switches account.
func JWT(current func() (common.Address, bool)) gin.HandlerFunc {
	return func(c *gin.Context) {
		header := c.GetHeader("Authorization")
		token, ok := strings.CutPrefix(header, "Bearer ")
		if !ok || token == "" {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "token required"})
			return
		}

		account, err := service.ParseJWT(token)
		if err != nil {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "invalid token"})
			return
		}

		connected, ok := current()
		if !ok || connected != account {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "session is not for the connected wallet"})
			return
		}

		c.Set(AccountKey, account)
		c.Next()
	}
}
