package persist

import (
	"context"
	"errors"

	"github.com/jackc/pgx/v5"

	"github.com/l1jgo/server/internal/geom"
	"github.com/l1jgo/server/internal/worldmap"
)

// CharacterRow is the flat row shape the location/combat/general tables
// of spec.md §6 assemble into, keyed by account_id (the spec's data
// model has one player per account, unlike the teacher's
// account-to-many-characters schema).
type CharacterRow struct {
	AccountID uint64
	Username  string
	Spawn     geom.Position
	Pos       geom.Position
	Dir       geom.Direction

	Level      int32
	LevelExp   int64
	Vital      [3]int32
	VitalMax   [3]int32
	InDeath    bool
	PK         bool

	Sprite        int32
	Money         uint64
	ResetCount    int32
	ItemTimerMS   int64
	DeathTimerMS  int64
}

type CharacterRepo struct {
	db *DB
}

func NewCharacterRepo(db *DB) *CharacterRepo {
	return &CharacterRepo{db: db}
}

// Load reads the location/combat/general rows for an account, joined
// against account for the username (spec.md §6 table layout).
func (r *CharacterRepo) Load(ctx context.Context, accountID uint64) (*CharacterRow, error) {
	c := &CharacterRow{AccountID: accountID}
	var spawnMX, spawnMY, spawnGroup, spawnX, spawnY int32
	var posMX, posMY, posGroup, posX, posY int32
	var dir uint8
	err := r.db.Pool.QueryRow(ctx,
		`SELECT a.username,
		        l.spawn_mx, l.spawn_my, l.spawn_group, l.spawn_x, l.spawn_y,
		        l.mx, l.my, l."group", l.x, l.y, l.dir,
		        c.level, c.level_exp, c.vital_hp, c.vital_mp, c.vital_sp,
		        c.vital_max_hp, c.vital_max_mp, c.vital_max_sp, c.in_death, c.pk,
		        g.sprite, g.money, g.reset_count, g.item_timer_ms, g.death_timer_ms
		 FROM account a
		 JOIN location l ON l.account_id = a.id
		 JOIN combat c ON c.account_id = a.id
		 JOIN general g ON g.account_id = a.id
		 WHERE a.id = $1`, accountID,
	).Scan(
		&c.Username,
		&spawnMX, &spawnMY, &spawnGroup, &spawnX, &spawnY,
		&posMX, &posMY, &posGroup, &posX, &posY, &dir,
		&c.Level, &c.LevelExp, &c.Vital[0], &c.Vital[1], &c.Vital[2],
		&c.VitalMax[0], &c.VitalMax[1], &c.VitalMax[2], &c.InDeath, &c.PK,
		&c.Sprite, &c.Money, &c.ResetCount, &c.ItemTimerMS, &c.DeathTimerMS,
	)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	c.Spawn = geom.Position{X: spawnX, Y: spawnY, Map: geom.MapPos{MX: spawnMX, MY: spawnMY, Group: spawnGroup}}
	c.Pos = geom.Position{X: posX, Y: posY, Map: geom.MapPos{MX: posMX, MY: posMY, Group: posGroup}}
	c.Dir = geom.Direction(dir)
	return c, nil
}

// Create inserts the three rows that back a brand-new player (spec.md
// §8 scenario 1: a fresh account spawns at a fixed position with full
// vitals and no money).
func (r *CharacterRepo) Create(ctx context.Context, accountID uint64, spawn geom.Position, sprite int32, vitalMax [3]int32) error {
	tx, err := r.db.Pool.Begin(ctx)
	if err != nil {
		return err
	}
	defer tx.Rollback(ctx)

	_, err = tx.Exec(ctx,
		`INSERT INTO location (account_id, spawn_mx, spawn_my, spawn_group, spawn_x, spawn_y, mx, my, "group", x, y, dir)
		 VALUES ($1,$2,$3,$4,$5,$6,$2,$3,$4,$5,$6,0)`,
		accountID, spawn.Map.MX, spawn.Map.MY, spawn.Map.Group, spawn.X, spawn.Y,
	)
	if err != nil {
		return err
	}
	_, err = tx.Exec(ctx,
		`INSERT INTO combat (account_id, level, level_exp, vital_hp, vital_mp, vital_sp, vital_max_hp, vital_max_mp, vital_max_sp, in_death, pk)
		 VALUES ($1, 1, 0, $2, $3, $4, $2, $3, $4, false, false)`,
		accountID, vitalMax[0], vitalMax[1], vitalMax[2],
	)
	if err != nil {
		return err
	}
	_, err = tx.Exec(ctx,
		`INSERT INTO general (account_id, sprite, money, reset_count, item_timer_ms, death_timer_ms)
		 VALUES ($1, $2, 0, 0, 0, 0)`,
		accountID, sprite,
	)
	if err != nil {
		return err
	}
	return tx.Commit(ctx)
}

// Save persists a player's mutable state back to the three tables in
// one transaction (spec.md §4.1 "players are ... persisted" on logout
// and map-crossing save points).
func (r *CharacterRepo) Save(ctx context.Context, p *worldmap.PlayerRecord) error {
	tx, err := r.db.Pool.Begin(ctx)
	if err != nil {
		return err
	}
	defer tx.Rollback(ctx)

	_, err = tx.Exec(ctx,
		`UPDATE location SET mx=$2, my=$3, "group"=$4, x=$5, y=$6, dir=$7 WHERE account_id=$1`,
		p.AccountID, p.Position.Pos.Map.MX, p.Position.Pos.Map.MY, p.Position.Pos.Map.Group,
		p.Position.Pos.X, p.Position.Pos.Y, uint8(p.Position.Direction),
	)
	if err != nil {
		return err
	}
	_, err = tx.Exec(ctx,
		`UPDATE combat SET level=$2, level_exp=$3, vital_hp=$4, vital_mp=$5, vital_sp=$6,
		        vital_max_hp=$7, vital_max_mp=$8, vital_max_sp=$9, in_death=$10, pk=$11
		 WHERE account_id=$1`,
		p.AccountID, p.Combat.Level, p.Combat.LevelExp,
		p.Combat.Vital[0], p.Combat.Vital[1], p.Combat.Vital[2],
		p.Combat.VitalMax[0], p.Combat.VitalMax[1], p.Combat.VitalMax[2],
		p.Combat.Dead, false, // PK flagging is not yet surfaced on PlayerRecord
	)
	if err != nil {
		return err
	}
	_, err = tx.Exec(ctx,
		`UPDATE general SET sprite=$2, money=$3 WHERE account_id=$1`,
		p.AccountID, p.SpriteID, p.Money,
	)
	if err != nil {
		return err
	}
	return tx.Commit(ctx)
}
