package data

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"
)

// ShopItem is one entry in an NPC's shop (spec.md packet ids BuyItem /
// SellItem — a shop is a static price list, not a content-scripting
// system, so it stays in scope unlike skill/armor-set data).
type ShopItem struct {
	ItemNum         uint32 `yaml:"item_num"`
	PackCount       uint16 `yaml:"pack_count"`       // items per purchase (0 treated as 1)
	SellingPrice    int64  `yaml:"selling_price"`    // price NPC sells at (-1 = not selling)
	PurchasingPrice int64  `yaml:"purchasing_price"` // price NPC buys at (-1 = not buying)
}

// Shop holds the sell/buy item lists for one NPC template.
type Shop struct {
	NpcID           int32
	SellingItems    []ShopItem
	PurchasingItems []ShopItem
}

// ShopTable holds all NPC shops indexed by NpcID.
type ShopTable struct {
	shops map[int32]*Shop
}

func (t *ShopTable) Get(npcID int32) *Shop { return t.shops[npcID] }
func (t *ShopTable) Count() int            { return len(t.shops) }

type shopEntry struct {
	NpcID int32      `yaml:"npc_id"`
	Items []ShopItem `yaml:"items"`
}

type shopListFile struct {
	Shops []shopEntry `yaml:"shops"`
}

// LoadShopTable loads NPC shop data from a YAML file.
func LoadShopTable(path string) (*ShopTable, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read shop list %s: %w", path, err)
	}
	var f shopListFile
	if err := yaml.Unmarshal(raw, &f); err != nil {
		return nil, fmt.Errorf("parse shop list: %w", err)
	}
	t := &ShopTable{shops: make(map[int32]*Shop, len(f.Shops))}
	for _, entry := range f.Shops {
		shop := &Shop{NpcID: entry.NpcID}
		for _, it := range entry.Items {
			if it.PackCount == 0 {
				it.PackCount = 1
			}
			if it.SellingPrice >= 0 {
				shop.SellingItems = append(shop.SellingItems, it)
			}
			if it.PurchasingPrice >= 0 {
				shop.PurchasingItems = append(shop.PurchasingItems, it)
			}
		}
		t.shops[entry.NpcID] = shop
	}
	return t, nil
}

// FindSelling looks up a shop's price for buying itemNum from the NPC.
func (s *Shop) FindSelling(itemNum uint32) (ShopItem, bool) {
	for _, it := range s.SellingItems {
		if it.ItemNum == itemNum {
			return it, true
		}
	}
	return ShopItem{}, false
}

// FindPurchasing looks up a shop's price for selling itemNum to the NPC.
func (s *Shop) FindPurchasing(itemNum uint32) (ShopItem, bool) {
	for _, it := range s.PurchasingItems {
		if it.ItemNum == itemNum {
			return it, true
		}
	}
	return ShopItem{}, false
}
