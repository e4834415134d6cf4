package handlers

import (
	"github.com/gin-gonic/gin"

	"github.com/weisyn/wager/client/pkg/deeplink"
)

// LinkResponse 深链解析结果
type LinkResponse struct {
	*deeplink.Link
	Screen          deeplink.Screen `json:"screen"`
	ChallengeURL    string          `json:"challenge_url,omitempty"`
	VaultAccountURL string          `json:"vault_account_url,omitempty"`
}

// ResolveLink GET /v1/link
//
// 接受 ?url=<完整深链>，或直接把深链参数放在查询串中。
func (h *Handler) ResolveLink(c *gin.Context) {
	var (
		link *deeplink.Link
		err  error
	)
	if raw := c.Query("url"); raw != "" {
		link, err = deeplink.ParseURL(raw)
	} else {
		link, err = deeplink.Parse(c.Request.URL.Query())
	}
	if err != nil {
		fail(c, err)
		return
	}

	resp := LinkResponse{Link: link, Screen: link.Screen()}
	if link.Challenge != "" {
		resp.ChallengeURL = deeplink.ExplorerURL(h.explorer, deeplink.ExplorerAccount, link.Challenge, link.Cluster)
	}
	if link.VaultAddress != "" {
		resp.VaultAccountURL = deeplink.ExplorerURL(h.explorer, deeplink.ExplorerAccount, link.VaultAddress, link.Cluster)
	}
	ok(c, resp)
}
