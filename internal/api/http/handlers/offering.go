package handlers

import (
	"github.com/gin-gonic/gin"

	"github.com/weisyn/wager/client/core/offering"
)

// OfferingView offering 及展示名
type OfferingView struct {
	offering.Offering
	DisplayName string `json:"display_name"`
}

// Offerings GET /v1/challenges/:address/offerings?metadata=true
func (h *Handler) Offerings(c *gin.Context) {
	addr, good := addressParam(c, "address")
	if !good {
		return
	}
	list, err := h.svc.Offerings(c.Request.Context(), addr, truthy(c.Query("metadata")))
	if err != nil {
		fail(c, err)
		return
	}
	views := make([]OfferingView, 0, len(list))
	for _, o := range list {
		views = append(views, OfferingView{Offering: o, DisplayName: o.DisplayName()})
	}
	ok(c, views)
}

// Metadata GET /v1/offerings/:mint/metadata
func (h *Handler) Metadata(c *gin.Context) {
	mint, good := addressParam(c, "mint")
	if !good {
		return
	}
	if h.resolver == nil {
		fail(c, offering.ErrMetadataNotFound)
		return
	}
	md, err := h.resolver.Resolve(c.Request.Context(), mint)
	if err != nil {
		fail(c, err)
		return
	}
	ok(c, md)
}
