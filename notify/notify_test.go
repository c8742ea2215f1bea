package notify

import (
	"context"
	"errors"
	"testing"

	"exposure/types"
)

func TestNotifyAndRead(t *testing.T) {
	svc := NewService()
	ctx := context.Background()

	svc.Notify(ctx, types.Notification{
		UserID:      "author-1",
		Type:        types.NotifyReviewRejected,
		Message:     "rejected: logo missing",
		RelatedType: "article",
		RelatedID:   "a1",
	})
	svc.Notify(ctx, types.Notification{
		UserID:  "author-1",
		Type:    types.NotifyPublishSuccess,
		Message: "published",
	})
	svc.Notify(ctx, types.Notification{
		UserID:  "author-2",
		Type:    types.NotifyReviewApproved,
		Message: "approved",
	})

	list := svc.ListForUser("author-1")
	if len(list) != 2 {
		t.Fatalf("list = %d, want 2", len(list))
	}
	for _, n := range list {
		if n.ID == "" {
			t.Error("notification stored without an id")
		}
		if n.IsRead {
			t.Error("new notification already read")
		}
	}

	if got := svc.UnreadCount("author-1"); got != 2 {
		t.Errorf("unread = %d, want 2", got)
	}

	if err := svc.MarkRead(list[0].ID); err != nil {
		t.Fatalf("MarkRead: %v", err)
	}
	if got := svc.UnreadCount("author-1"); got != 1 {
		t.Errorf("unread after read = %d, want 1", got)
	}

	if err := svc.MarkRead("missing"); !errors.Is(err, types.ErrNotFound) {
		t.Errorf("MarkRead(missing) = %v", err)
	}
}

func TestDropRelated(t *testing.T) {
	svc := NewService()
	ctx := context.Background()

	svc.Notify(ctx, types.Notification{UserID: "u", RelatedType: "article", RelatedID: "a1", Message: "x"})
	svc.Notify(ctx, types.Notification{UserID: "u", RelatedType: "article", RelatedID: "a2", Message: "y"})

	svc.DropRelated("article", "a1")

	list := svc.ListForUser("u")
	if len(list) != 1 || list[0].RelatedID != "a2" {
		t.Fatalf("list = %+v", list)
	}
}
