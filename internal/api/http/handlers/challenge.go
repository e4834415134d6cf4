package handlers

import (
	"github.com/gagliardetto/solana-go"
	"github.com/gin-gonic/gin"

	"github.com/weisyn/wager/client/core/program"
	"github.com/weisyn/wager/client/core/status"
)

// StatusResponse 玩家状态
type StatusResponse struct {
	Challenge solana.PublicKey      `json:"challenge"`
	Player    solana.PublicKey      `json:"player"`
	Type      program.ChallengeType `json:"type"`
	Status    status.PlayerStatus   `json:"status"`
}

// ChallengeInfo GET /v1/challenges/:address
func (h *Handler) ChallengeInfo(c *gin.Context) {
	addr, good := addressParam(c, "address")
	if !good {
		return
	}
	ct, good := challengeType(c)
	if !good {
		return
	}
	info, err := h.svc.Info(c.Request.Context(), ct, addr)
	if err != nil {
		fail(c, err)
		return
	}
	ok(c, info)
}

// Status GET /v1/challenges/:address/status
func (h *Handler) Status(c *gin.Context) {
	h.status(c, false)
}

// RefreshStatus POST /v1/challenges/:address/status/refresh
func (h *Handler) RefreshStatus(c *gin.Context) {
	h.status(c, true)
}

func (h *Handler) status(c *gin.Context, refresh bool) {
	addr, good := addressParam(c, "address")
	if !good {
		return
	}
	ct, good := challengeType(c)
	if !good {
		return
	}

	var (
		st  status.PlayerStatus
		err error
	)
	if refresh {
		st, err = h.svc.RefreshStatus(c.Request.Context(), ct, addr)
	} else {
		st, err = h.svc.Status(c.Request.Context(), ct, addr)
	}
	if err != nil {
		fail(c, err)
		return
	}
	ok(c, StatusResponse{Challenge: addr, Player: h.svc.Account(), Type: ct, Status: st})
}
