// Package offering offering 列表与 NFT 元数据
package offering

import (
	"github.com/gagliardetto/solana-go"

	"github.com/weisyn/wager/client/core/builder"
	"github.com/weisyn/wager/client/core/program"
)

// Offering 挑战上的质押资产
type Offering struct {
	Address    solana.PublicKey  `json:"address"`
	Challenge  solana.PublicKey  `json:"challenge"`
	Authority  solana.PublicKey  `json:"authority"`
	Amount     uint64            `json:"amount"`
	IsEscrowed bool              `json:"is_escrowed"`
	Mint       *solana.PublicKey `json:"mint,omitempty"`
	Metadata   *Metadata         `json:"metadata,omitempty"`
}

func fromAccount(acc program.OfferingAccount) Offering {
	return Offering{
		Address:    acc.Address,
		Challenge:  acc.Challenge,
		Authority:  acc.Authority,
		Amount:     acc.Amount,
		IsEscrowed: acc.IsEscrowed,
		Mint:       acc.Mint,
	}
}

// IsNFT 是否为 NFT offering
func (o Offering) IsNFT() bool {
	return o.Mint != nil
}

// DisplayName 展示名称：NFT 为 "NFT - <mint>"，SOL 为 "<amount> SOL"
func (o Offering) DisplayName() string {
	if o.IsNFT() {
		if o.Metadata != nil && o.Metadata.Name != "" {
			return o.Metadata.Name
		}
		return "NFT - " + o.Mint.String()
	}
	return builder.Lamports(o.Amount).String()
}
