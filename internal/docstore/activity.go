package docstore

import (
	"context"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"github.com/kasraf/reelbase/internal/model"
)

// ActivityLog is the append-only user_activity_logs collection.
type ActivityLog struct {
	entries *mongo.Collection
	users   *mongo.Collection
}

func NewActivityLog(db *mongo.Database) *ActivityLog {
	return &ActivityLog{
		entries: db.Collection("user_activity_logs"),
		users:   db.Collection("users"),
	}
}

type activityDoc struct {
	ID          primitive.ObjectID `bson:"_id,omitempty"`
	ActorID     string             `bson:"actor_id"`
	Action      string             `bson:"action"`
	EntityType  string             `bson:"entity_type,omitempty"`
	EntityID    string             `bson:"entity_id,omitempty"`
	EntityTitle string             `bson:"entity_title,omitempty"`
	Metadata    map[string]any     `bson:"metadata,omitempty"`
	IP          string             `bson:"ip,omitempty"`
	CreatedAt   time.Time          `bson:"created_at"`
}

// Append inserts one audit document.
func (l *ActivityLog) Append(ctx context.Context, e model.ActivityEntry) error {
	created := e.CreatedAt
	if created.IsZero() {
		created = time.Now().UTC()
	}
	_, err := l.entries.InsertOne(ctx, activityDoc{
		ActorID:     e.ActorID,
		Action:      e.Action,
		EntityType:  e.EntityType,
		EntityID:    e.EntityID,
		EntityTitle: e.EntityTitle,
		Metadata:    e.Metadata,
		IP:          e.IP,
		CreatedAt:   created,
	})
	return err
}

// Page returns one page of entries (newest first) with actor and target
// display names resolved, plus the total count for pagination controls.
func (l *ActivityLog) Page(ctx context.Context, page, size int) ([]model.ActivityView, int64, error) {
	if page < 1 {
		page = 1
	}
	skip := int64((page - 1) * size)

	cur, err := l.entries.Find(ctx, bson.M{}, options.Find().
		SetSort(bson.D{{Key: "created_at", Value: -1}, {Key: "_id", Value: -1}}).
		SetSkip(skip).
		SetLimit(int64(size)))
	if err != nil {
		return nil, 0, err
	}
	var docs []activityDoc
	if err := cur.All(ctx, &docs); err != nil {
		return nil, 0, err
	}

	names, err := l.displayNames(ctx, docs)
	if err != nil {
		return nil, 0, err
	}

	out := make([]model.ActivityView, 0, len(docs))
	for _, d := range docs {
		v := model.ActivityView{
			ActivityEntry: model.ActivityEntry{
				ID:          d.ID.Hex(),
				ActorID:     d.ActorID,
				Action:      d.Action,
				EntityType:  d.EntityType,
				EntityID:    d.EntityID,
				EntityTitle: d.EntityTitle,
				Metadata:    d.Metadata,
				IP:          d.IP,
				CreatedAt:   d.CreatedAt,
			},
			ActorName: names[d.ActorID],
		}
		if d.EntityType == "user" {
			v.TargetName = names[d.EntityID]
		}
		out = append(out, v)
	}

	total, err := l.entries.CountDocuments(ctx, bson.M{})
	if err != nil {
		return nil, 0, err
	}
	return out, total, nil
}

// displayNames resolves the user ids referenced by the page in one query.
func (l *ActivityLog) displayNames(ctx context.Context, docs []activityDoc) (map[string]string, error) {
	ids := make([]string, 0, len(docs)*2)
	seen := make(map[string]bool, len(docs)*2)
	for _, d := range docs {
		for _, id := range []string{d.ActorID, d.EntityID} {
			if id != "" && !seen[id] {
				seen[id] = true
				ids = append(ids, id)
			}
		}
	}
	names := make(map[string]string, len(ids))
	if len(ids) == 0 {
		return names, nil
	}
	cur, err := l.users.Find(ctx, bson.M{"_id": bson.M{"$in": ids}},
		options.Find().SetProjection(bson.M{"name": 1}))
	if err != nil {
		return nil, err
	}
	var users []struct {
		ID   string `bson:"_id"`
		Name string `bson:"name"`
	}
	if err := cur.All(ctx, &users); err != nil {
		return nil, err
	}
	for _, u := range users {
		names[u.ID] = u.Name
	}
	return names, nil
}
