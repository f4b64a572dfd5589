// Package protocol defines the wire framing and scalar encoding of
// spec.md §6, and the stable client/server packet ordinals. Adapted
// from the teacher's internal/net/packet package (Reader/Writer shape)
// but re-keyed to the spec's u64-length-prefixed, u16-packet-id, UTF-8
// wire format instead of the teacher's L1J null-terminated Big5 strings.
package protocol

// ClientPacketID enumerates the stable client→server opcodes of spec.md §6.
type ClientPacketID uint16

const (
	COnlineCheck ClientPacketID = iota
	CLogin
	CHandShake
	CMove
	CDir
	CAttack
	CUseItem
	CUnequip
	CSwitchInvSlot
	CPickUp
	CDropItem
	CDeleteItem
	CSwitchStorageSlot
	CDeleteStorageItem
	CDepositItem
	CWithdrawItem
	CMessage
	CCommand
	CSetTarget
	CCloseStorage
	CCloseShop
	CCloseTrade
	CBuyItem
	CSellItem
	CAddTradeItem
	CRemoveTradeItem
	CUpdateTradeMoney
	CSubmitTrade
	CAcceptTrade
	CDeclineTrade
	CPing
	CDisconnect
)

// ServerPacketID enumerates the stable server→client opcodes of spec.md §6.
type ServerPacketID uint16

const (
	SAlertMsg ServerPacketID = iota
	SFltAlert
	SLoginOk
	SMyIndex
	SMoveOk
	SPlayerData
	SOnlineCheck
	SPlayerInv
	SPlayerInvSlot
	SPlayerStorage
	SPlayerStorageSlot
	SPlayerEquipment
	SPlayerLevel
	SPlayerMoney
	SPlayerPk
	SChatMsg
	SOpenStorage
	SOpenShop
	SClearIsUsingType
	SUpdateTradeItem
	SUpdateTradeMoney
	SInitTrade
	STradeStatus
	STradeRequest
	SPlayItemSfx
	SPing
	SHandShake
	STlsHandShake
	SClearData
	SNpcMove
	SNpcDir
	SNpcSpawn
	SNpcUnload
	SPlayerMove
	SPlayerDir
	SPlayerSpawn
	SPlayerUnload
	SDamage
	SVitals
	SAttack
	SItemLoad
	SEntityUnload
)

// Session limits from spec.md §6.
const (
	MaxUsernameLen = 63
	MaxPasswordLen = 127
	MaxChatLen     = 255
	MaxSpriteID    = 6 // sprite index < 6
	MaxFrameBytes  = 4096
)

// UsernameCharClass / PasswordCharClass describe the accepted
// character sets; enforced by dispatch validation (spec.md §4.7).
const (
	UsernameExtra = "_$&!~"
	PasswordExtra = UsernameExtra + "%@?"
)
