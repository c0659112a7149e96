package records

import (
	"context"
	"sort"

	"github.com/NordCoder/Uptimer/internal/domain/notification"
	"github.com/NordCoder/Uptimer/internal/domain/record"
)

var _ notification.Repo = (*NotificationRepo)(nil)

type NotificationRepo struct{ g record.Gateway }

func NewNotificationRepo(g record.Gateway) *NotificationRepo { return &NotificationRepo{g: g} }

func (r *NotificationRepo) Create(ctx context.Context, n *notification.Notification) error {
	return putJSON(ctx, r.g, record.KindNotifications, n.ID, n)
}

func (r *NotificationRepo) Get(ctx context.Context, id string) (*notification.Notification, error) {
	var n notification.Notification
	if err := getJSON(ctx, r.g, record.KindNotifications, id, &n); err != nil {
		return nil, err
	}
	return &n, nil
}

func (r *NotificationRepo) ListByUser(ctx context.Context, userID string, limit int) ([]*notification.Notification, error) {
	if limit <= 0 {
		limit = 50
	}
	all, err := listJSON[notification.Notification](ctx, r.g, record.KindNotifications)
	if err != nil {
		return nil, err
	}
	out := make([]*notification.Notification, 0, limit)
	for i := range all {
		if all[i].UserID == userID {
			out = append(out, &all[i])
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].SentAt.After(out[j].SentAt) })
	if len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}
