package sqlstore

import (
	"context"
	"database/sql"
	"encoding/json"
	"strconv"
	"time"

	"github.com/kasraf/reelbase/internal/model"
)

// ActivityLog is the append-only audit table plus the paginated admin read.
type ActivityLog struct {
	db *sql.DB
}

func NewActivityLog(db *sql.DB) *ActivityLog {
	return &ActivityLog{db: db}
}

// Append inserts one audit row.  There is no update or delete path.
func (l *ActivityLog) Append(ctx context.Context, e model.ActivityEntry) error {
	var meta []byte
	if len(e.Metadata) > 0 {
		b, err := json.Marshal(e.Metadata)
		if err != nil {
			return err
		}
		meta = b
	}
	created := e.CreatedAt
	if created.IsZero() {
		created = time.Now().UTC()
	}
	_, err := l.db.ExecContext(ctx,
		`INSERT INTO user_activity_logs (actor_id, action, entity_type, entity_id, entity_title, metadata, ip, created_at)
		 VALUES (?,?,?,?,?,?,?,?)`,
		e.ActorID, e.Action, e.EntityType, e.EntityID, e.EntityTitle, meta, e.IP, created)
	return err
}

// Page returns one page of entries (newest first) joined with actor and,
// when the entry targets a user, target display names, plus the total row
// count for pagination controls.
func (l *ActivityLog) Page(ctx context.Context, page, size int) ([]model.ActivityView, int64, error) {
	if page < 1 {
		page = 1
	}
	offset := (page - 1) * size

	rows, err := l.db.QueryContext(ctx,
		`SELECT a.id, a.actor_id, a.action, a.entity_type, a.entity_id, a.entity_title,
		        a.metadata, a.ip, a.created_at,
		        COALESCE(actor.name, ''),
		        COALESCE(target.name, '')
		 FROM user_activity_logs a
		 LEFT JOIN users actor ON actor.id = a.actor_id
		 LEFT JOIN users target ON a.entity_type = 'user' AND target.id = a.entity_id
		 ORDER BY a.created_at DESC, a.id DESC
		 LIMIT ? OFFSET ?`, size, offset)
	if err != nil {
		return nil, 0, err
	}
	defer rows.Close()

	var out []model.ActivityView
	for rows.Next() {
		var (
			v    model.ActivityView
			id   uint64
			meta []byte
			et   sql.NullString
			eid  sql.NullString
			etl  sql.NullString
			ip   sql.NullString
		)
		if err := rows.Scan(&id, &v.ActorID, &v.Action, &et, &eid, &etl,
			&meta, &ip, &v.CreatedAt, &v.ActorName, &v.TargetName); err != nil {
			return nil, 0, err
		}
		v.ID = strconv.FormatUint(id, 10)
		v.EntityType, v.EntityID, v.EntityTitle, v.IP = et.String, eid.String, etl.String, ip.String
		if len(meta) > 0 {
			_ = json.Unmarshal(meta, &v.Metadata)
		}
		out = append(out, v)
	}
	if err := rows.Err(); err != nil {
		return nil, 0, err
	}

	var total int64
	if err := l.db.QueryRowContext(ctx,
		"SELECT COUNT(*) FROM user_activity_logs").Scan(&total); err != nil {
		return nil, 0, err
	}
	return out, total, nil
}
