package persist

import "context"

// LogKind classifies an audit log entry (spec.md §6 "log(server_id,
// user_id, kind, message, ip)").
type LogKind string

const (
	LogKindRegister   LogKind = "register"
	LogKindLogin      LogKind = "login"
	LogKindLogout     LogKind = "logout"
	LogKindDisconnect LogKind = "disconnect"
	LogKindDeath      LogKind = "death"
)

// LogRepo appends audit entries, repurposed from the teacher's
// economic write-ahead log (internal/persist/wal.go) into the spec's
// plain append-only log table: the spec has no trade/shop/auction
// economy to replay on crash recovery, so the batched-transaction
// shape collapses to a single-row insert per event.
type LogRepo struct {
	db *DB
}

func NewLogRepo(db *DB) *LogRepo {
	return &LogRepo{db: db}
}

func (r *LogRepo) Write(ctx context.Context, serverID int, userID uint64, kind LogKind, message, ip string) error {
	_, err := r.db.Pool.Exec(ctx,
		`INSERT INTO log (server_id, user_id, kind, message, ip) VALUES ($1, $2, $3, $4, $5)`,
		serverID, userID, string(kind), message, ip,
	)
	return err
}
