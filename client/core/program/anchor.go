package program

import (
	"bytes"
	"crypto/sha256"
	"fmt"

	bin "github.com/gagliardetto/binary"
	"github.com/gagliardetto/solana-go"
)

// 指令名
const (
	ixJoin           = "join"
	ixLeave          = "leave"
	ixAccept         = "accept"
	ixAddSolOffering = "add_sol_offering"
	ixAddNftOffering = "add_nft_offering"
	ixRemoveOffering = "remove_offering"
)

// 账户类型名
const (
	accountChallenge = "Challenge"
	accountPlayer    = "Player"
	accountOffering  = "Offering"
)

// PDA 种子
var (
	seedPlayer   = []byte("player")
	seedPool     = []byte("pool")
	seedOffering = []byte("offering")
	seedEscrow   = []byte("escrow")
)

// anchorDiscriminator Anchor 8 字节判别符: sha256("namespace:name")[:8]
func anchorDiscriminator(namespace, name string) [8]byte {
	hash := sha256.Sum256([]byte(namespace + ":" + name))
	var out [8]byte
	copy(out[:], hash[:8])
	return out
}

// InstructionDiscriminator 指令判别符
func InstructionDiscriminator(name string) [8]byte {
	return anchorDiscriminator("global", name)
}

// AccountDiscriminator 账户判别符
func AccountDiscriminator(name string) [8]byte {
	return anchorDiscriminator("account", name)
}

// encodeInstruction 判别符 + borsh 参数
func encodeInstruction(name string, args func(enc *bin.Encoder) error) ([]byte, error) {
	buf := new(bytes.Buffer)
	disc := InstructionDiscriminator(name)
	buf.Write(disc[:])
	if args != nil {
		if err := args(bin.NewBorshEncoder(buf)); err != nil {
			return nil, fmt.Errorf("encode %s args: %w", name, err)
		}
	}
	return buf.Bytes(), nil
}

// checkDiscriminator 校验账户数据前 8 字节
func checkDiscriminator(data []byte, name string) error {
	want := AccountDiscriminator(name)
	if len(data) < len(want) || !bytes.Equal(data[:len(want)], want[:]) {
		return fmt.Errorf("%w: not a %s account", ErrInvalidAccountData, name)
	}
	return nil
}

// PlayerAddress 玩家 PDA: ["player", challenge, player]
func PlayerAddress(programID, challenge, player solana.PublicKey) (solana.PublicKey, error) {
	addr, _, err := solana.FindProgramAddress([][]byte{seedPlayer, challenge[:], player[:]}, programID)
	return addr, err
}

// PoolAddress 奖池 PDA: ["pool", challenge]
func PoolAddress(programID, challenge solana.PublicKey) (solana.PublicKey, error) {
	addr, _, err := solana.FindProgramAddress([][]byte{seedPool, challenge[:]}, programID)
	return addr, err
}

// EscrowAddress 托管 PDA: ["escrow", challenge]
func EscrowAddress(programID, challenge solana.PublicKey) (solana.PublicKey, error) {
	addr, _, err := solana.FindProgramAddress([][]byte{seedEscrow, challenge[:]}, programID)
	return addr, err
}

// OfferingAddress offering PDA: ["offering", challenge, authority, mint]
// SOL offering 以 System Program 作为 mint 种子
func OfferingAddress(programID, challenge, authority, mint solana.PublicKey) (solana.PublicKey, error) {
	addr, _, err := solana.FindProgramAddress([][]byte{seedOffering, challenge[:], authority[:], mint[:]}, programID)
	return addr, err
}
