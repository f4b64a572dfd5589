package persist

import (
	"context"

	"github.com/l1jgo/server/internal/protocol"
	"github.com/l1jgo/server/internal/worldmap"
)

// ItemRepo persists the fixed-size inventory/equipment/storage arrays
// of spec.md §6 (data model: "inventory/equipment/bank/trade arrays of
// item slots of fixed sizes"). Trade is session-only and never
// persisted; bank maps to the spec's "storage" table.
type ItemRepo struct {
	db *DB
}

func NewItemRepo(db *DB) *ItemRepo {
	return &ItemRepo{db: db}
}

// LoadInventory/LoadEquipment/LoadStorage each read one account's slots
// into a fixed-size array sized per worldmap.InventorySize/EquipmentSize/BankSize.
func (r *ItemRepo) LoadInventory(ctx context.Context, accountID uint64) ([worldmap.InventorySize]worldmap.InventorySlot, error) {
	var out [worldmap.InventorySize]worldmap.InventorySlot
	err := r.loadInto(ctx, "inventory", accountID, out[:])
	return out, err
}

func (r *ItemRepo) LoadEquipment(ctx context.Context, accountID uint64) ([worldmap.EquipmentSize]worldmap.InventorySlot, error) {
	var out [worldmap.EquipmentSize]worldmap.InventorySlot
	err := r.loadInto(ctx, "equipment", accountID, out[:])
	return out, err
}

func (r *ItemRepo) LoadStorage(ctx context.Context, accountID uint64) ([worldmap.BankSize]worldmap.InventorySlot, error) {
	var out [worldmap.BankSize]worldmap.InventorySlot
	err := r.loadInto(ctx, "storage", accountID, out[:])
	return out, err
}

func (r *ItemRepo) loadInto(ctx context.Context, table string, accountID uint64, out []worldmap.InventorySlot) error {
	rows, err := r.db.Pool.Query(ctx,
		`SELECT slot, item_num, item_val, level, data0, data1, data2, data3, data4
		 FROM `+table+` WHERE account_id = $1`, accountID,
	)
	if err != nil {
		return err
	}
	defer rows.Close()

	for rows.Next() {
		var slot int
		var d protocol.ItemDescriptor
		if err := rows.Scan(&slot, &d.Num, &d.Val, &d.Level,
			&d.Data[0], &d.Data[1], &d.Data[2], &d.Data[3], &d.Data[4]); err != nil {
			return err
		}
		if slot < 0 || slot >= len(out) {
			continue
		}
		out[slot] = worldmap.InventorySlot{Item: d}
	}
	return rows.Err()
}

// SaveInventory/SaveEquipment/SaveStorage replace an account's slots
// wholesale inside one transaction (fixed-size arrays make a
// delete-then-reinsert simpler than diffing individual slots).
func (r *ItemRepo) SaveInventory(ctx context.Context, accountID uint64, slots []worldmap.InventorySlot) error {
	return r.saveFrom(ctx, "inventory", accountID, slots)
}

func (r *ItemRepo) SaveEquipment(ctx context.Context, accountID uint64, slots []worldmap.InventorySlot) error {
	return r.saveFrom(ctx, "equipment", accountID, slots)
}

func (r *ItemRepo) SaveStorage(ctx context.Context, accountID uint64, slots []worldmap.InventorySlot) error {
	return r.saveFrom(ctx, "storage", accountID, slots)
}

func (r *ItemRepo) saveFrom(ctx context.Context, table string, accountID uint64, slots []worldmap.InventorySlot) error {
	tx, err := r.db.Pool.Begin(ctx)
	if err != nil {
		return err
	}
	defer tx.Rollback(ctx)

	if _, err := tx.Exec(ctx, `DELETE FROM `+table+` WHERE account_id = $1`, accountID); err != nil {
		return err
	}
	for slot, s := range slots {
		if s.Empty() {
			continue
		}
		d := s.Item
		_, err := tx.Exec(ctx,
			`INSERT INTO `+table+` (account_id, slot, item_num, item_val, level, data0, data1, data2, data3, data4)
			 VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10)`,
			accountID, slot, d.Num, d.Val, d.Level, d.Data[0], d.Data[1], d.Data[2], d.Data[3], d.Data[4],
		)
		if err != nil {
			return err
		}
	}
	return tx.Commit(ctx)
}
