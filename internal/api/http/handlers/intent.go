package handlers

import (
	"fmt"
	"net/http"
	"strings"

	"github.com/gagliardetto/solana-go"
	"github.com/gin-gonic/gin"

	"github.com/weisyn/wager/client/core/builder"
	"github.com/weisyn/wager/client/core/program"
	"github.com/weisyn/wager/client/core/submit"
	"github.com/weisyn/wager/client/pkg/deeplink"
)

// IntentRequest POST /v1/intents 请求体
//
// amount 以 SOL 为单位（如 "0.5"）；NFT offering 使用 mint + count。
// redeem/sign 使用 transaction（base64）。
type IntentRequest struct {
	Kind        builder.Kind `json:"kind" binding:"required"`
	Type        string       `json:"type"`
	Challenge   string       `json:"challenge"`
	Amount      string       `json:"amount"`
	Mint        string       `json:"mint"`
	Count       uint64       `json:"count"`
	Offering    string       `json:"offering"`
	Owner       string       `json:"owner"`
	Transaction string       `json:"transaction"`
}

// SubmissionView 提交结果
type SubmissionView struct {
	ID        string       `json:"id"`
	Kind      builder.Kind `json:"kind"`
	Success   bool         `json:"success"`
	OK        bool         `json:"ok"`
	Class     submit.Class `json:"class"`
	Message   string       `json:"message"`
	Signature string       `json:"signature,omitempty"`
	Explorer  string       `json:"explorer,omitempty"`
	Attempts  int          `json:"attempts"`
}

func optionalAddress(s string) (solana.PublicKey, error) {
	if strings.TrimSpace(s) == "" {
		return solana.PublicKey{}, nil
	}
	return builder.ParseAddress(s)
}

// Intent 把请求转换为意图
func (r IntentRequest) Intent() (builder.Intent, error) {
	ct, err := program.ParseChallengeType(r.Type)
	if err != nil {
		return builder.Intent{}, fmt.Errorf("%w: %v", builder.ErrInvalidIntent, err)
	}
	challenge, err := optionalAddress(r.Challenge)
	if err != nil {
		return builder.Intent{}, err
	}

	switch r.Kind {
	case builder.KindJoin:
		return builder.NewJoin(ct, challenge)
	case builder.KindLeave:
		return builder.NewLeave(ct, challenge)
	case builder.KindAccept:
		return builder.NewAccept(challenge)
	case builder.KindAddOffering:
		if r.Mint != "" {
			mint, err := builder.ParseAddress(r.Mint)
			if err != nil {
				return builder.Intent{}, err
			}
			return builder.NewAddNftOffering(challenge, mint, r.Count)
		}
		amount, err := builder.ParseSOL(r.Amount)
		if err != nil {
			return builder.Intent{}, err
		}
		return builder.NewAddSolOffering(challenge, amount)
	case builder.KindRemoveOffering:
		off, err := builder.ParseAddress(r.Offering)
		if err != nil {
			return builder.Intent{}, err
		}
		return builder.NewRemoveOffering(challenge, off)
	case builder.KindCreateTokenAccount:
		mint, err := optionalAddress(r.Mint)
		if err != nil {
			return builder.Intent{}, err
		}
		owner, err := optionalAddress(r.Owner)
		if err != nil {
			return builder.Intent{}, err
		}
		return builder.NewCreateTokenAccount(mint, owner)
	case builder.KindRedeemSigned:
		return builder.NewRedeemSigned(r.Transaction)
	case builder.KindSignRaw:
		return builder.NewSignRaw(r.Transaction)
	default:
		return builder.Intent{}, fmt.Errorf("%w: unknown kind %q", builder.ErrInvalidIntent, r.Kind)
	}
}

// SubmitIntent POST /v1/intents
//
// 分类后的失败仍返回 200，由 success/class 表达；请求本身无效时返回 4xx。
func (h *Handler) SubmitIntent(c *gin.Context) {
	var req IntentRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		fail(c, fmt.Errorf("%w: %v", builder.ErrInvalidIntent, err))
		return
	}
	intent, err := req.Intent()
	if err != nil {
		fail(c, err)
		return
	}

	result, err := h.svc.Submit(c.Request.Context(), intent)
	if err != nil {
		fail(c, err)
		return
	}

	view := SubmissionView{
		ID:       result.ID,
		Kind:     result.Kind,
		Success:  result.Success(),
		OK:       result.OK(),
		Class:    result.Class(),
		Message:  result.Message(),
		Attempts: result.Attempts,
	}
	if result.Success() {
		view.Signature = result.Signature.String()
		view.Explorer = deeplink.ExplorerURL(h.explorer, deeplink.ExplorerTx, view.Signature, h.svc.Cluster())
	}
	c.JSON(http.StatusOK, view)
}
