package worldmap

import (
	"github.com/l1jgo/server/internal/batch"
	"github.com/l1jgo/server/internal/protocol"
)

// onShopBuy resolves a BuyItem packet (spec.md §6): deduct the quoted
// total from the buyer's money, then place the purchased item in a
// matching stack or the first empty slot. The map actor is the sole
// writer of both fields, so dispatch only ever supplies the quote.
func (a *Actor) onShopBuy(m *ShopBuy) {
	p, ok := a.Players[m.Player]
	if !ok || p.Money < m.TotalPrice {
		select {
		case m.ReplyTo <- ShopResult{OK: false}:
		default:
		}
		return
	}

	slot := findInventorySlot(p, m.Item)
	if slot < 0 {
		select {
		case m.ReplyTo <- ShopResult{OK: false, Money: p.Money}:
		default:
		}
		return
	}

	p.Money -= m.TotalPrice
	if p.Inventory[slot].Empty() {
		p.Inventory[slot].Item = m.Item
	} else {
		p.Inventory[slot].Item.Val += m.Item.Val
	}

	a.out.Add(batch.Token{Map: a.Pos, Kind: batch.KindPlayerInvSlot, Socket: p.SessionID}, protocol.SPlayerInvSlot, encodeInvSlot(uint16(slot), p.Inventory[slot].Item))
	a.out.Add(batch.Token{Map: a.Pos, Kind: batch.KindPlayerMoney, Socket: p.SessionID}, protocol.SPlayerMoney, encodeMoney(p.Money))

	select {
	case m.ReplyTo <- ShopResult{OK: true, Money: p.Money}:
	default:
	}
}

// onShopSell resolves a SellItem packet: the quoted slot must still
// hold the item number the quote was computed for, and at least the
// requested amount of it.
func (a *Actor) onShopSell(m *ShopSell) {
	p, ok := a.Players[m.Player]
	if !ok || m.Slot < 0 || m.Slot >= InventorySize {
		select {
		case m.ReplyTo <- ShopResult{OK: false}:
		default:
		}
		return
	}
	slot := &p.Inventory[m.Slot]
	if slot.Empty() || slot.Item.Num != m.ItemNum || slot.Item.Val < m.Amount {
		select {
		case m.ReplyTo <- ShopResult{OK: false, Money: p.Money}:
		default:
		}
		return
	}

	if slot.Item.Val <= m.Amount {
		*slot = InventorySlot{}
	} else {
		slot.Item.Val -= m.Amount
	}
	p.Money += m.UnitPrice * uint64(m.Amount)

	a.out.Add(batch.Token{Map: a.Pos, Kind: batch.KindPlayerInvSlot, Socket: p.SessionID}, protocol.SPlayerInvSlot, encodeInvSlot(uint16(m.Slot), slot.Item))
	a.out.Add(batch.Token{Map: a.Pos, Kind: batch.KindPlayerMoney, Socket: p.SessionID}, protocol.SPlayerMoney, encodeMoney(p.Money))

	select {
	case m.ReplyTo <- ShopResult{OK: true, Money: p.Money}:
	default:
	}
}

// findInventorySlot returns a slot index already stacking want, or the
// first empty slot, or -1 if the inventory is full.
func findInventorySlot(p *PlayerRecord, want protocol.ItemDescriptor) int {
	empty := -1
	for i, s := range p.Inventory {
		if s.Empty() {
			if empty < 0 {
				empty = i
			}
			continue
		}
		if stacksWith(s.Item, want) {
			return i
		}
	}
	return empty
}
