package handlers

import (
	"github.com/gagliardetto/solana-go"
	"github.com/gin-gonic/gin"

	"github.com/weisyn/wager/client/core/builder"
	"github.com/weisyn/wager/client/pkg/deeplink"
)

// BalanceResponse 余额
type BalanceResponse struct {
	Address  solana.PublicKey `json:"address"`
	Lamports uint64           `json:"lamports"`
	SOL      string           `json:"sol"`
}

func (h *Handler) accountQuery(c *gin.Context) (solana.PublicKey, bool) {
	addr, err := optionalAddress(c.Query("address"))
	if err != nil {
		fail(c, err)
		return solana.PublicKey{}, false
	}
	if addr.IsZero() {
		addr = h.svc.Account()
	}
	return addr, true
}

// Balance GET /v1/account/balance?address=
func (h *Handler) Balance(c *gin.Context) {
	addr, good := h.accountQuery(c)
	if !good {
		return
	}
	bal, err := h.svc.Balance(c.Request.Context(), addr)
	if err != nil {
		fail(c, err)
		return
	}
	ok(c, BalanceResponse{Address: addr, Lamports: bal.Uint64(), SOL: bal.SOL()})
}

// Tokens GET /v1/account/tokens?address=
func (h *Handler) Tokens(c *gin.Context) {
	addr, good := h.accountQuery(c)
	if !good {
		return
	}
	list, err := h.svc.TokenAccounts(c.Request.Context(), addr)
	if err != nil {
		fail(c, err)
		return
	}
	ok(c, list)
}

// Airdrop POST /v1/account/airdrop?amount=1
func (h *Handler) Airdrop(c *gin.Context) {
	var amount builder.Lamports
	if raw := c.Query("amount"); raw != "" {
		var err error
		if amount, err = builder.ParseSOL(raw); err != nil {
			fail(c, err)
			return
		}
	}
	sig, err := h.svc.Airdrop(c.Request.Context(), amount)
	if err != nil {
		fail(c, err)
		return
	}
	ok(c, gin.H{
		"signature": sig.String(),
		"explorer":  deeplink.ExplorerURL(h.explorer, deeplink.ExplorerTx, sig.String(), h.svc.Cluster()),
	})
}
