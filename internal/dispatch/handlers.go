package dispatch

import (
	"context"
	"strings"
	"time"

	"go.uber.org/zap"
	"golang.org/x/text/width"

	"github.com/l1jgo/server/internal/errs"
	"github.com/l1jgo/server/internal/geom"
	"github.com/l1jgo/server/internal/identity"
	"github.com/l1jgo/server/internal/netio"
	"github.com/l1jgo/server/internal/persist"
	"github.com/l1jgo/server/internal/protocol"
	"github.com/l1jgo/server/internal/worldmap"
)

// Register wires every client packet id to its handler with a per-state
// allow-list: OnlineCheck in Handshake and Accepted, Login only in
// Handshake, HandShake only in Accepted, and every gameplay packet only
// while Online.
func Register(reg *Registry) {
	reg.Register(protocol.COnlineCheck, []netio.State{netio.StateHandshake, netio.StateAccepted}, handleOnlineCheck)
	reg.Register(protocol.CLogin, []netio.State{netio.StateHandshake}, handleLogin)
	reg.Register(protocol.CHandShake, []netio.State{netio.StateAccepted}, handleHandShake)

	online := []netio.State{netio.StateOnline}
	reg.Register(protocol.CMove, online, handleMove)
	reg.Register(protocol.CDir, online, handleDir)
	reg.Register(protocol.CAttack, online, handleAttack)
	reg.Register(protocol.CMessage, online, handleMessage)
	reg.Register(protocol.CDropItem, online, handleDropItem)
	reg.Register(protocol.CPickUp, online, handlePickUp)
	reg.Register(protocol.CUseItem, online, handleUseItem)
	reg.Register(protocol.CBuyItem, online, handleBuyItem)
	reg.Register(protocol.CSellItem, online, handleSellItem)
	reg.Register(protocol.CCloseShop, online, handleCloseShop)
	reg.Register(protocol.CPing, online, handlePing)
	reg.Register(protocol.CDisconnect, online, handleDisconnect)
}

// writeAlert encodes and sends a session-scoped AlertMsg (spec.md §8
// scenario 1: "Server replies AlertMsg{..., close}").
func writeAlert(sess *netio.Session, msg string, closeConn bool) {
	body := protocol.NewWriter(protocol.SAlertMsg).String(msg).Bool(closeConn).Done()
	sess.Send(body)
	if closeConn {
		sess.Close()
	}
}

func writeFltAlert(sess *netio.Session, msg string) {
	sess.Send(protocol.NewWriter(protocol.SFltAlert).String(msg).Done())
}

// handleOnlineCheck answers a liveness probe; allowed both pre- and
// post-handshake since it carries no entity-bound state.
func handleOnlineCheck(ctx *Router, sess *netio.Session, r *protocol.Reader) error {
	sess.Send(protocol.NewWriter(protocol.SOnlineCheck).Done())
	return nil
}

// handleLogin is the combined register-or-login flow of spec.md §4.6/§8
// scenario 1: an unknown username registers a fresh account, a known
// one is authenticated against its stored hash. Either path arms a
// handshake and leaves the session at Accepted awaiting HandShake.
func handleLogin(ctx *Router, sess *netio.Session, r *protocol.Reader) error {
	username, err := r.String()
	if err != nil {
		return errs.Wrap(errs.KindInvalidPacket, "login username", err)
	}
	password, err := r.String()
	if err != nil {
		return errs.Wrap(errs.KindInvalidPacket, "login password", err)
	}
	email, err := r.String()
	if err != nil {
		return errs.Wrap(errs.KindInvalidPacket, "login email", err)
	}
	sprite, err := r.U8()
	if err != nil {
		return errs.Wrap(errs.KindInvalidPacket, "login sprite", err)
	}

	if len(username) == 0 || len(username) > protocol.MaxUsernameLen || !validCharClass(username, protocol.UsernameExtra) {
		writeAlert(sess, "Invalid username.", true)
		return nil
	}
	if len(password) == 0 || len(password) > protocol.MaxPasswordLen || !validCharClass(password, protocol.PasswordExtra) {
		writeAlert(sess, "Invalid password.", true)
		return nil
	}
	if sprite >= protocol.MaxSpriteID {
		writeAlert(sess, "Invalid sprite.", true)
		return nil
	}

	bg := context.Background()
	acct, err := ctx.Accounts.Load(bg, username)
	if err != nil {
		return errs.Wrap(errs.KindPersistence, "load account", err)
	}

	var registered bool
	if acct == nil {
		acct, err = ctx.Accounts.Create(bg, username, password, email)
		if err != nil {
			writeAlert(sess, "Account Was Not Created.", true)
			return errs.Wrap(errs.KindRegisterFail, "create account", err)
		}
		if err := ctx.Characters.Create(bg, acct.ID, ctx.SpawnPos, int32(sprite), ctx.VitalMax); err != nil {
			writeAlert(sess, "Account Was Not Created.", true)
			return errs.Wrap(errs.KindRegisterFail, "create character", err)
		}
		registered = true
	} else if !ctx.Accounts.ValidatePassword(acct.PasswordHash, password) {
		writeFltAlert(sess, "Incorrect password.")
		return errs.New(errs.KindIncorrectPassword, username)
	}

	if !ctx.MarkOnline(acct.ID, sess.ID) {
		writeFltAlert(sess, "Account already logged in.")
		return errs.New(errs.KindMultiLogin, username)
	}

	sess.AccountID = acct.ID
	sess.SetState(netio.StateAccepted)

	if registered {
		writeAlert(sess, "Account Was Created. Welcome to the world.", false)
		logKind(ctx, acct.ID, persist.LogKindRegister, sess.IP)
	} else {
		logKind(ctx, acct.ID, persist.LogKindLogin, sess.IP)
	}

	code := ctx.Hs.Register(sess.ID, acct.ID)
	sess.Send(protocol.NewWriter(protocol.SMyIndex).U64(0).Done())
	sess.Send(protocol.NewWriter(protocol.SHandShake).String(code).Done())
	return nil
}

func logKind(ctx *Router, accountID uint64, kind persist.LogKind, ip string) {
	if err := ctx.Logs.Write(context.Background(), ctx.ServerID, accountID, kind, string(kind), ip); err != nil {
		ctx.Log.Warn("audit log write failed", zap.Error(err), zap.String("kind", string(kind)))
	}
}

// handleHandShake consumes the client's echoed handshake, loads the
// persisted character, spawns it through the identity registry, and
// promotes the session to Online (spec.md §8 scenario 1: "places K on
// map ... at spawn").
func handleHandShake(ctx *Router, sess *netio.Session, r *protocol.Reader) error {
	code, err := r.String()
	if err != nil {
		return errs.Wrap(errs.KindInvalidPacket, "handshake code", err)
	}
	accountID, ok := ctx.Hs.Confirm(code, sess.ID)
	if !ok || accountID != sess.AccountID {
		return errs.New(errs.KindPacketManipulation, "handshake mismatch")
	}

	bg := context.Background()
	row, err := ctx.Characters.Load(bg, accountID)
	if err != nil || row == nil {
		writeAlert(sess, "Character data could not be loaded.", true)
		ctx.MarkOffline(accountID)
		return errs.Wrap(errs.KindPersistence, "load character", err)
	}
	inv, err := ctx.Items.LoadInventory(bg, accountID)
	if err != nil {
		return errs.Wrap(errs.KindPersistence, "load inventory", err)
	}
	equip, err := ctx.Items.LoadEquipment(bg, accountID)
	if err != nil {
		return errs.Wrap(errs.KindPersistence, "load equipment", err)
	}
	bank, err := ctx.Items.LoadStorage(bg, accountID)
	if err != nil {
		return errs.Wrap(errs.KindPersistence, "load storage", err)
	}

	player := &worldmap.PlayerRecord{
		AccountID: row.AccountID,
		Username:  row.Username,
		SessionID: sess.ID,
		PeerAddr:  sess.IP,
		SpriteID:  row.Sprite,
		Combat: worldmap.CombatBlock{
			Level:    row.Level,
			LevelExp: row.LevelExp,
			Vital:    row.Vital,
			VitalMax: row.VitalMax,
			Dead:     row.InDeath,
		},
		Position: worldmap.PlayerMovement{
			Pos:       row.Pos,
			SpawnPos:  row.Spawn,
			Direction: row.Dir,
		},
		Inventory: inv,
		Equipment: equip,
		Bank:      bank,
		Money:     row.Money,
	}

	key := ctx.Ident.SpawnPlayer(row.Pos.Map, player)
	sess.EntityKey = key.Encode()
	sess.CurrentPos = row.Pos
	sess.CurrentDir = row.Dir
	sess.SetState(netio.StateOnline)
	ctx.NetReg.SetMap(sess.ID, row.Pos.Map)
	return nil
}

// requirePrelude implements the gameplay-handler prelude of spec.md
// §4.7: "reject if entity_key_option is None; look up the owning map".
func requirePrelude(ctx *Router, sess *netio.Session) (identity.Key, geom.MapPos, bool) {
	if sess.EntityKey == 0 {
		return identity.Key{}, geom.MapPos{}, false
	}
	key := identity.DecodeKey(sess.EntityKey)
	mp, ok := ctx.OwningMap(sess)
	return key, mp, ok
}

func handleMove(ctx *Router, sess *netio.Session, r *protocol.Reader) error {
	dirByte, err := r.U8()
	if err != nil {
		return errs.Wrap(errs.KindInvalidPacket, "move dir", err)
	}
	dir := geom.Direction(dirByte)
	if !dir.Valid() {
		return errs.New(errs.KindPacketManipulation, "move direction out of range")
	}
	key, mp, ok := requirePrelude(ctx, sess)
	if !ok {
		return nil
	}
	ctx.RouteTo(mp, worldmap.Incoming{VerifyPlayerMove: &worldmap.VerifyPlayerMove{Key: key, Dir: dir, From: sess.CurrentPos}})
	sess.CurrentDir = dir
	sess.CurrentPos = geom.Step(sess.CurrentPos, dir)
	return nil
}

func handleDir(ctx *Router, sess *netio.Session, r *protocol.Reader) error {
	dirByte, err := r.U8()
	if err != nil {
		return errs.Wrap(errs.KindInvalidPacket, "dir", err)
	}
	dir := geom.Direction(dirByte)
	if !dir.Valid() {
		return errs.New(errs.KindPacketManipulation, "direction out of range")
	}
	_, mp, ok := requirePrelude(ctx, sess)
	if !ok {
		return nil
	}
	sess.CurrentDir = dir
	ctx.RouteTo(mp, worldmap.Incoming{VerifyPlayerMove: &worldmap.VerifyPlayerMove{
		Key: identity.DecodeKey(sess.EntityKey), Dir: dir, From: sess.CurrentPos,
	}})
	return nil
}

func handleAttack(ctx *Router, sess *netio.Session, r *protocol.Reader) error {
	targetRaw, err := r.U64()
	if err != nil {
		return errs.Wrap(errs.KindInvalidPacket, "attack target", err)
	}
	attacker, mp, ok := requirePrelude(ctx, sess)
	if !ok {
		return nil
	}
	target := identity.DecodeKey(targetRaw)
	ctx.RouteTo(mp, worldmap.Incoming{RequestPlayerAttack: &worldmap.RequestPlayerAttack{Attacker: attacker, Target: target}})
	return nil
}

func handleMessage(ctx *Router, sess *netio.Session, r *protocol.Reader) error {
	text, err := r.String()
	if err != nil {
		return errs.Wrap(errs.KindInvalidPacket, "message text", err)
	}
	// Fold fullwidth/halfwidth Unicode forms to their canonical widths,
	// then truncate the folded text to MaxChatLen bytes.
	text = width.Fold.String(text)
	if len(text) > protocol.MaxChatLen {
		text = text[:protocol.MaxChatLen]
	}
	key, mp, ok := requirePrelude(ctx, sess)
	if !ok {
		return nil
	}
	ctx.RouteTo(mp, worldmap.Incoming{PlayerMessage: &worldmap.PlayerMessageMsg{From: key, Text: text}})
	return nil
}

func handleDropItem(ctx *Router, sess *netio.Session, r *protocol.Reader) error {
	slot, err := r.U16()
	if err != nil {
		return errs.Wrap(errs.KindInvalidPacket, "drop slot", err)
	}
	amount, err := r.U16()
	if err != nil {
		return errs.Wrap(errs.KindInvalidPacket, "drop amount", err)
	}
	if int(slot) >= worldmap.InventorySize || amount == 0 {
		return errs.New(errs.KindPacketManipulation, "drop slot/amount out of range")
	}
	attacker, mp, ok := requirePrelude(ctx, sess)
	if !ok {
		return nil
	}

	reply := make(chan worldmap.DropClaimReply, 1)
	if !ctx.RouteTo(mp, worldmap.Incoming{RequestItemDrop: &worldmap.RequestItemDrop{
		Attacker: attacker, Tile: sess.CurrentPos, Slot: int(slot), Amount: amount, ReplyTo: reply,
	}}) {
		writeFltAlert(sess, "Could not drop item.")
		return nil
	}

	select {
	case claim := <-reply:
		if claim.Accepted == 0 {
			writeFltAlert(sess, "No space to drop item here.")
			return nil
		}
		ctx.RouteTo(mp, worldmap.Incoming{DropItemCommit: &worldmap.DropItemCommit{
			Claim: claim.Claim, Attacker: attacker, Slot: int(slot), Item: claim.Item, Amount: claim.Accepted,
		}})
	case <-time.After(2 * time.Second):
		writeFltAlert(sess, "Drop timed out.")
	}
	return nil
}

// handleBuyItem resolves a BuyItem packet (spec.md §6): npcID/orderIdx
// address the static shop table the client already cached from the
// NPC's spawn packet (encodeNpcSpawn carries TemplateID), the same way
// the client already holds a static item catalog for display. Pricing
// is resolved here, against data.ShopTable; money and inventory are
// mutated only on the owning map actor.
func handleBuyItem(ctx *Router, sess *netio.Session, r *protocol.Reader) error {
	npcID, err := r.U32()
	if err != nil {
		return errs.Wrap(errs.KindInvalidPacket, "buy npc id", err)
	}
	orderIdx, err := r.U16()
	if err != nil {
		return errs.Wrap(errs.KindInvalidPacket, "buy order idx", err)
	}
	packs, err := r.U16()
	if err != nil {
		return errs.Wrap(errs.KindInvalidPacket, "buy packs", err)
	}
	if packs == 0 {
		packs = 1
	}

	shop := ctx.Shops.Get(int32(npcID))
	if shop == nil || int(orderIdx) >= len(shop.SellingItems) {
		writeFltAlert(sess, "That item is not for sale here.")
		return nil
	}
	si := shop.SellingItems[orderIdx]

	player, mp, ok := requirePrelude(ctx, sess)
	if !ok {
		return nil
	}

	reply := make(chan worldmap.ShopResult, 1)
	total := uint64(si.SellingPrice) * uint64(packs)
	if !ctx.RouteTo(mp, worldmap.Incoming{ShopBuy: &worldmap.ShopBuy{
		Player:     player,
		Item:       protocol.ItemDescriptor{Num: si.ItemNum, Val: si.PackCount * packs},
		TotalPrice: total,
		ReplyTo:    reply,
	}}) {
		writeFltAlert(sess, "Could not complete purchase.")
		return nil
	}

	select {
	case res := <-reply:
		if !res.OK {
			writeFltAlert(sess, "Purchase failed: insufficient funds or inventory full.")
		}
	case <-time.After(2 * time.Second):
		writeFltAlert(sess, "Purchase timed out.")
	}
	return nil
}

// handleSellItem resolves a SellItem packet, pricing against the NPC's
// purchasing list; the map actor validates the slot still holds what
// was quoted before mutating money/inventory.
func handleSellItem(ctx *Router, sess *netio.Session, r *protocol.Reader) error {
	npcID, err := r.U32()
	if err != nil {
		return errs.Wrap(errs.KindInvalidPacket, "sell npc id", err)
	}
	itemNum, err := r.U32()
	if err != nil {
		return errs.Wrap(errs.KindInvalidPacket, "sell item num", err)
	}
	slot, err := r.U16()
	if err != nil {
		return errs.Wrap(errs.KindInvalidPacket, "sell slot", err)
	}
	amount, err := r.U16()
	if err != nil {
		return errs.Wrap(errs.KindInvalidPacket, "sell amount", err)
	}
	if int(slot) >= worldmap.InventorySize || amount == 0 {
		return errs.New(errs.KindPacketManipulation, "sell slot/amount out of range")
	}

	shop := ctx.Shops.Get(int32(npcID))
	if shop == nil {
		writeFltAlert(sess, "This NPC does not buy items.")
		return nil
	}
	pi, ok := shop.FindPurchasing(itemNum)
	if !ok {
		writeFltAlert(sess, "This NPC does not buy that item.")
		return nil
	}

	player, mp, ok := requirePrelude(ctx, sess)
	if !ok {
		return nil
	}

	reply := make(chan worldmap.ShopResult, 1)
	if !ctx.RouteTo(mp, worldmap.Incoming{ShopSell: &worldmap.ShopSell{
		Player:    player,
		Slot:      int(slot),
		ItemNum:   itemNum,
		Amount:    amount,
		UnitPrice: uint64(pi.PurchasingPrice),
		ReplyTo:   reply,
	}}) {
		writeFltAlert(sess, "Could not complete sale.")
		return nil
	}

	select {
	case res := <-reply:
		if !res.OK {
			writeFltAlert(sess, "Sale failed.")
		}
	case <-time.After(2 * time.Second):
		writeFltAlert(sess, "Sale timed out.")
	}
	return nil
}

// handleCloseShop clears the player's using-state back to none; the
// server trusts the client's close request since a shop interaction
// carries no mutable shared state once BuyItem/SellItem transactions
// are themselves independently validated.
func handleCloseShop(ctx *Router, sess *netio.Session, r *protocol.Reader) error {
	sess.Send(protocol.NewWriter(protocol.SClearIsUsingType).Done())
	return nil
}

func handlePickUp(ctx *Router, sess *netio.Session, r *protocol.Reader) error {
	_, err := r.U64()
	if err != nil {
		return errs.Wrap(errs.KindInvalidPacket, "pickup item key", err)
	}
	_, _, ok := requirePrelude(ctx, sess)
	if !ok {
		return nil
	}
	// Ground-item pickup is not implemented: no Incoming variant exists
	// for it, so the packet is read and acknowledged without error and
	// the map's Items table is left unchanged.
	return nil
}

func handleUseItem(ctx *Router, sess *netio.Session, r *protocol.Reader) error {
	slot, err := r.U16()
	if err != nil {
		return errs.Wrap(errs.KindInvalidPacket, "use item slot", err)
	}
	if int(slot) >= worldmap.InventorySize {
		return errs.New(errs.KindPacketManipulation, "use item slot out of range")
	}
	_, _, ok := requirePrelude(ctx, sess)
	if !ok {
		return nil
	}
	return nil
}

func handlePing(ctx *Router, sess *netio.Session, r *protocol.Reader) error {
	sess.Send(protocol.NewWriter(protocol.SPing).Done())
	return nil
}

func handleDisconnect(ctx *Router, sess *netio.Session, r *protocol.Reader) error {
	sess.SetState(netio.StateDisconnecting)
	if sess.AccountID != 0 {
		logKind(ctx, sess.AccountID, persist.LogKindDisconnect, sess.IP)
		ctx.MarkOffline(sess.AccountID)
	}
	sess.Close()
	return nil
}

// validCharClass enforces spec.md §6's username/password character
// classes: alphanumeric plus the given extra punctuation set.
func validCharClass(s, extra string) bool {
	for _, r := range s {
		switch {
		case r >= 'a' && r <= 'z', r >= 'A' && r <= 'Z', r >= '0' && r <= '9':
		case strings.ContainsRune(extra, r):
		default:
			return false
		}
	}
	return true
}
