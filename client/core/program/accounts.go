package program

import (
	"bytes"
	"fmt"

	bin "github.com/gagliardetto/binary"
	"github.com/gagliardetto/solana-go"
)

// 账户数据布局（borsh，均以 8 字节判别符开头）
//
//	Challenge: authority(32) entry_fee(u64) rake_bps(u16) max_players(u16) players(u16) state(u8)
//	Player:    challenge(32) user(32) status(u8)
//	Offering:  challenge(32) authority(32) amount(u64) is_escrowed(bool) mint(Option<Pubkey>)
const (
	offeringChallengeOffset = 8
	playerChallengeOffset   = 8
)

func readPublicKey(dec *bin.Decoder) (solana.PublicKey, error) {
	b, err := dec.ReadNBytes(solana.PublicKeyLength)
	if err != nil {
		return solana.PublicKey{}, err
	}
	return solana.PublicKeyFromBytes(b), nil
}

// DecodeChallenge 解析挑战账户
func DecodeChallenge(address solana.PublicKey, t ChallengeType, data []byte) (*ChallengeInfo, error) {
	if err := checkDiscriminator(data, accountChallenge); err != nil {
		return nil, err
	}
	dec := bin.NewBorshDecoder(data[8:])

	info := &ChallengeInfo{Address: address, Type: t}
	var err error
	if info.Authority, err = readPublicKey(dec); err != nil {
		return nil, wrapDecode(accountChallenge, err)
	}
	if info.EntryFee, err = dec.ReadUint64(bin.LE); err != nil {
		return nil, wrapDecode(accountChallenge, err)
	}
	if info.RakeBps, err = dec.ReadUint16(bin.LE); err != nil {
		return nil, wrapDecode(accountChallenge, err)
	}
	if info.MaxPlayers, err = dec.ReadUint16(bin.LE); err != nil {
		return nil, wrapDecode(accountChallenge, err)
	}
	if info.Players, err = dec.ReadUint16(bin.LE); err != nil {
		return nil, wrapDecode(accountChallenge, err)
	}
	state, err := dec.ReadUint8()
	if err != nil {
		return nil, wrapDecode(accountChallenge, err)
	}
	info.State = ChallengeState(state)
	return info, nil
}

// DecodePlayerStatus 解析玩家账户中的状态
func DecodePlayerStatus(data []byte) (PlayerStatus, error) {
	if err := checkDiscriminator(data, accountPlayer); err != nil {
		return NotInGame, err
	}
	dec := bin.NewBorshDecoder(data[8:])
	if err := dec.SkipBytes(2 * solana.PublicKeyLength); err != nil {
		return NotInGame, wrapDecode(accountPlayer, err)
	}
	status, err := dec.ReadUint8()
	if err != nil {
		return NotInGame, wrapDecode(accountPlayer, err)
	}
	if status > uint8(Joined) {
		return NotInGame, fmt.Errorf("%w: player status %d", ErrInvalidAccountData, status)
	}
	return PlayerStatus(status), nil
}

// DecodeOffering 解析 offering 账户
func DecodeOffering(address solana.PublicKey, data []byte) (*OfferingAccount, error) {
	if err := checkDiscriminator(data, accountOffering); err != nil {
		return nil, err
	}
	dec := bin.NewBorshDecoder(data[8:])

	off := &OfferingAccount{Address: address}
	var err error
	if off.Challenge, err = readPublicKey(dec); err != nil {
		return nil, wrapDecode(accountOffering, err)
	}
	if off.Authority, err = readPublicKey(dec); err != nil {
		return nil, wrapDecode(accountOffering, err)
	}
	if off.Amount, err = dec.ReadUint64(bin.LE); err != nil {
		return nil, wrapDecode(accountOffering, err)
	}
	if off.IsEscrowed, err = dec.ReadBool(); err != nil {
		return nil, wrapDecode(accountOffering, err)
	}
	hasMint, err := dec.ReadUint8()
	if err != nil {
		return nil, wrapDecode(accountOffering, err)
	}
	if hasMint == 1 {
		mint, err := readPublicKey(dec)
		if err != nil {
			return nil, wrapDecode(accountOffering, err)
		}
		off.Mint = &mint
	}
	return off, nil
}

func wrapDecode(name string, err error) error {
	return fmt.Errorf("%w: decode %s: %v", ErrInvalidAccountData, name, err)
}

// ===== 编码（测试与本地模拟使用） =====

// EncodeChallenge 编码挑战账户
func EncodeChallenge(info *ChallengeInfo) []byte {
	buf := new(bytes.Buffer)
	disc := AccountDiscriminator(accountChallenge)
	buf.Write(disc[:])
	enc := bin.NewBorshEncoder(buf)
	_ = enc.WriteBytes(info.Authority[:], false)
	_ = enc.WriteUint64(info.EntryFee, bin.LE)
	_ = enc.WriteUint16(info.RakeBps, bin.LE)
	_ = enc.WriteUint16(info.MaxPlayers, bin.LE)
	_ = enc.WriteUint16(info.Players, bin.LE)
	_ = enc.WriteUint8(uint8(info.State))
	return buf.Bytes()
}

// EncodePlayer 编码玩家账户
func EncodePlayer(challenge, user solana.PublicKey, status PlayerStatus) []byte {
	buf := new(bytes.Buffer)
	disc := AccountDiscriminator(accountPlayer)
	buf.Write(disc[:])
	enc := bin.NewBorshEncoder(buf)
	_ = enc.WriteBytes(challenge[:], false)
	_ = enc.WriteBytes(user[:], false)
	_ = enc.WriteUint8(uint8(status))
	return buf.Bytes()
}

// EncodeOffering 编码 offering 账户
func EncodeOffering(off *OfferingAccount) []byte {
	buf := new(bytes.Buffer)
	disc := AccountDiscriminator(accountOffering)
	buf.Write(disc[:])
	enc := bin.NewBorshEncoder(buf)
	_ = enc.WriteBytes(off.Challenge[:], false)
	_ = enc.WriteBytes(off.Authority[:], false)
	_ = enc.WriteUint64(off.Amount, bin.LE)
	_ = enc.WriteBool(off.IsEscrowed)
	if off.Mint != nil {
		_ = enc.WriteUint8(1)
		_ = enc.WriteBytes(off.Mint[:], false)
	} else {
		_ = enc.WriteUint8(0)
	}
	return buf.Bytes()
}
