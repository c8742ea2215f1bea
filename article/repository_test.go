package article

import (
	"context"
	"errors"
	"testing"

	"exposure/types"
)

type capturedNotifier struct {
	events []types.Notification
}

func (c *capturedNotifier) Notify(ctx context.Context, n types.Notification) {
	c.events = append(c.events, n)
}

func newTestRepo(selfCheckers ...string) (*Repository, *capturedNotifier) {
	allowed := make(map[string]bool)
	for _, u := range selfCheckers {
		allowed[u] = true
	}
	notifier := &capturedNotifier{}
	repo := NewRepository(NewMemoryStore(), notifier, func(userID string) bool {
		return allowed[userID]
	})
	return repo, notifier
}

func draftArticle() *types.Article {
	return &types.Article{
		Title:     "A closer look at Example Co",
		Content:   "<p>body</p>",
		BrandName: "Example Co",
	}
}

func mustCreate(t *testing.T, repo *Repository) *types.Article {
	t.Helper()
	a, err := repo.Create(context.Background(), draftArticle(), "author-1")
	if err != nil {
		t.Fatalf("Create: %v", err)
	}
	return a
}

func TestCreateStartsAtVersionOne(t *testing.T) {
	repo, _ := newTestRepo()
	a := mustCreate(t, repo)

	if a.Status != types.StatusDraft {
		t.Errorf("status = %s, want draft", a.Status)
	}
	if a.Version != 1 {
		t.Errorf("version = %d, want 1", a.Version)
	}
	if a.Slug == "" {
		t.Error("slug should be derived from title")
	}

	versions, err := repo.ListVersions(context.Background(), a.ID)
	if err != nil {
		t.Fatalf("ListVersions: %v", err)
	}
	if len(versions) != 1 || versions[0].ChangeType != types.ChangeCreate {
		t.Fatalf("expected one create version, got %+v", versions)
	}
}

// Scenario: draft -> submit -> approve -> published, versions 1..3 with no
// version appended by the publish itself.
func TestApprovalPath(t *testing.T) {
	repo, notifier := newTestRepo()
	ctx := context.Background()
	a := mustCreate(t, repo)

	a, err := repo.Submit(ctx, a.ID, a.Version, "author-1")
	if err != nil {
		t.Fatalf("Submit: %v", err)
	}
	if a.Status != types.StatusPending || a.Version != 2 {
		t.Fatalf("after submit: status=%s version=%d", a.Status, a.Version)
	}

	a, err = repo.Approve(ctx, a.ID, a.Version, "reviewer-1")
	if err != nil {
		t.Fatalf("Approve: %v", err)
	}
	if a.Status != types.StatusReady || a.Version != 3 {
		t.Fatalf("after approve: status=%s version=%d", a.Status, a.Version)
	}
	if a.ReviewerID != "reviewer-1" {
		t.Errorf("reviewer = %q", a.ReviewerID)
	}

	a, err = repo.MarkPublished(ctx, a.ID, "abc123", a.UpdatedAt)
	if err != nil {
		t.Fatalf("MarkPublished: %v", err)
	}
	if a.Status != types.StatusPublished || a.CommitSHA != "abc123" {
		t.Fatalf("after publish: status=%s sha=%s", a.Status, a.CommitSHA)
	}
	if a.Version != 3 {
		t.Errorf("publish must not bump the version, got %d", a.Version)
	}

	assertContiguousVersions(t, repo, a.ID, 3)

	if len(notifier.events) != 2 {
		t.Fatalf("expected approve+publish notifications, got %d", len(notifier.events))
	}
	if notifier.events[0].Type != types.NotifyReviewApproved || notifier.events[1].Type != types.NotifyPublishSuccess {
		t.Errorf("notification types = %s, %s", notifier.events[0].Type, notifier.events[1].Type)
	}
}

// Scenario: reject with reason, edit, resubmit. The cycle must be repeatable.
func TestRejectEditResubmitCycle(t *testing.T) {
	repo, notifier := newTestRepo()
	ctx := context.Background()
	a := mustCreate(t, repo)

	for cycle := 0; cycle < 3; cycle++ {
		var err error
		a, err = repo.Submit(ctx, a.ID, a.Version, "author-1")
		if err != nil {
			t.Fatalf("cycle %d Submit: %v", cycle, err)
		}

		a, err = repo.Reject(ctx, a.ID, a.Version, "reviewer-1", "logo missing")
		if err != nil {
			t.Fatalf("cycle %d Reject: %v", cycle, err)
		}
		if a.Status != types.StatusRejected || a.RejectReason != "logo missing" {
			t.Fatalf("cycle %d: status=%s reason=%q", cycle, a.Status, a.RejectReason)
		}

		title := "edited title"
		a, err = repo.Update(ctx, a.ID, types.ArticlePatch{Title: &title}, a.Version, "author-1")
		if err != nil {
			t.Fatalf("cycle %d Update: %v", cycle, err)
		}
	}

	a, err := repo.Submit(ctx, a.ID, a.Version, "author-1")
	if err != nil {
		t.Fatalf("final Submit: %v", err)
	}
	if a.Status != types.StatusPending {
		t.Errorf("status = %s, want pending", a.Status)
	}
	if a.RejectReason != "" {
		t.Error("resubmit should clear the reject reason")
	}

	assertContiguousVersions(t, repo, a.ID, a.Version)

	// reject versions must carry the reason
	versions, _ := repo.ListVersions(ctx, a.ID)
	rejects := 0
	for _, v := range versions {
		if v.ChangeType == types.ChangeReviewReject {
			rejects++
			if v.ChangeReason != "logo missing" {
				t.Errorf("reject version %d reason = %q", v.VersionNumber, v.ChangeReason)
			}
		}
	}
	if rejects != 3 {
		t.Errorf("reject versions = %d, want 3", rejects)
	}
	if len(notifier.events) != 3 {
		t.Errorf("reject notifications = %d, want 3", len(notifier.events))
	}
}

func TestSelfCheckAuthorization(t *testing.T) {
	repo, _ := newTestRepo("trusted")
	ctx := context.Background()
	a := mustCreate(t, repo)

	// unauthorized user: forbidden, status unchanged
	if _, err := repo.SelfCheck(ctx, a.ID, a.Version, "author-1"); err == nil {
		t.Fatal("expected forbidden error")
	} else {
		var forbidden *types.ForbiddenError
		if !errors.As(err, &forbidden) {
			t.Fatalf("expected ForbiddenError, got %T", err)
		}
	}
	got, _ := repo.Get(ctx, a.ID)
	if got.Status != types.StatusDraft || got.Version != 1 {
		t.Fatalf("status/version changed after denied self-check: %s v%d", got.Status, got.Version)
	}

	// authorized user: draft -> ready directly
	a, err := repo.SelfCheck(ctx, a.ID, a.Version, "trusted")
	if err != nil {
		t.Fatalf("SelfCheck: %v", err)
	}
	if a.Status != types.StatusReady || a.Version != 2 {
		t.Fatalf("after self-check: status=%s version=%d", a.Status, a.Version)
	}

	// self-check is only reachable from draft
	if _, err := repo.SelfCheck(ctx, a.ID, a.Version, "trusted"); err == nil {
		t.Fatal("expected conflict on self-check from ready")
	}
}

func TestInvalidTransitionsConflict(t *testing.T) {
	repo, _ := newTestRepo()
	ctx := context.Background()
	a := mustCreate(t, repo)

	cases := []struct {
		name string
		run  func() error
	}{
		{"approve draft", func() error { _, err := repo.Approve(ctx, a.ID, 0, "r"); return err }},
		{"reject draft", func() error { _, err := repo.Reject(ctx, a.ID, 0, "r", "bad"); return err }},
		{"publish draft", func() error { _, err := repo.MarkPublished(ctx, a.ID, "sha", a.CreatedAt); return err }},
	}

	for _, tc := range cases {
		err := tc.run()
		var conflict *types.StateConflictError
		if !errors.As(err, &conflict) {
			t.Errorf("%s: expected StateConflictError, got %v", tc.name, err)
		}
	}

	got, _ := repo.Get(ctx, a.ID)
	if got.Status != types.StatusDraft || got.Version != 1 {
		t.Fatalf("article mutated by rejected transitions: %s v%d", got.Status, got.Version)
	}
}

func TestStaleVersionRejected(t *testing.T) {
	repo, _ := newTestRepo()
	ctx := context.Background()
	a := mustCreate(t, repo)

	title := "new title"
	if _, err := repo.Update(ctx, a.ID, types.ArticlePatch{Title: &title}, a.Version, "author-1"); err != nil {
		t.Fatalf("Update: %v", err)
	}

	// second writer still holds version 1
	other := "other title"
	_, err := repo.Update(ctx, a.ID, types.ArticlePatch{Title: &other}, 1, "author-2")
	var stale *types.StaleVersionError
	if !errors.As(err, &stale) {
		t.Fatalf("expected StaleVersionError, got %v", err)
	}
	if stale.Expected != 1 || stale.Actual != 2 {
		t.Errorf("stale = %+v", stale)
	}
}

func TestRestore(t *testing.T) {
	repo, _ := newTestRepo()
	ctx := context.Background()
	a := mustCreate(t, repo)
	originalTitle := a.Title

	title := "changed"
	a, err := repo.Update(ctx, a.ID, types.ArticlePatch{Title: &title}, a.Version, "author-1")
	if err != nil {
		t.Fatalf("Update: %v", err)
	}

	// restore to version 1: new version 3, content matches snapshot 1
	a, err = repo.Restore(ctx, a.ID, 1, "author-1")
	if err != nil {
		t.Fatalf("Restore: %v", err)
	}
	if a.Version != 3 {
		t.Errorf("version after restore = %d, want 3", a.Version)
	}
	if a.Title != originalTitle {
		t.Errorf("title = %q, want %q", a.Title, originalTitle)
	}

	// the historical version itself is untouched
	versions, _ := repo.ListVersions(ctx, a.ID)
	if len(versions) != 3 {
		t.Fatalf("versions = %d, want 3", len(versions))
	}
	if versions[0].Snapshot.Title != originalTitle {
		t.Error("restore mutated the historical snapshot")
	}
	if versions[2].ChangeType != types.ChangeRestore {
		t.Errorf("latest change type = %s, want restore", versions[2].ChangeType)
	}

	// restore to the current version number is rejected
	if _, err := repo.Restore(ctx, a.ID, a.Version, "author-1"); err == nil {
		t.Fatal("expected conflict restoring to current version")
	}

	// restore to a missing version is not found
	if _, err := repo.Restore(ctx, a.ID, 99, "author-1"); !errors.Is(err, types.ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
}

func TestEmptyPatchIsNoOp(t *testing.T) {
	repo, _ := newTestRepo()
	ctx := context.Background()
	a := mustCreate(t, repo)

	got, err := repo.Update(ctx, a.ID, types.ArticlePatch{}, a.Version, "author-1")
	if err != nil {
		t.Fatalf("Update: %v", err)
	}
	if got.Version != 1 {
		t.Errorf("empty patch bumped version to %d", got.Version)
	}
}

func TestPatchDistinguishesOmittedFromEmpty(t *testing.T) {
	repo, _ := newTestRepo()
	ctx := context.Background()
	a := mustCreate(t, repo)

	empty := ""
	a, err := repo.Update(ctx, a.ID, types.ArticlePatch{Excerpt: &empty}, a.Version, "author-1")
	if err != nil {
		t.Fatalf("Update: %v", err)
	}
	if a.Version != 2 {
		t.Errorf("set-to-empty should count as an edit, version = %d", a.Version)
	}
	if a.Title == "" {
		t.Error("omitted title was cleared")
	}
}

func TestDeleteCascadesVersions(t *testing.T) {
	repo, _ := newTestRepo()
	ctx := context.Background()
	a := mustCreate(t, repo)

	if err := repo.Delete(ctx, a.ID); err != nil {
		t.Fatalf("Delete: %v", err)
	}
	if _, err := repo.Get(ctx, a.ID); !errors.Is(err, types.ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
	if _, err := repo.ListVersions(ctx, a.ID); !errors.Is(err, types.ErrNotFound) {
		t.Fatalf("versions should be gone with the article, got %v", err)
	}
}

// assertContiguousVersions checks the core history invariant: version
// numbers 1..n with no gaps or duplicates.
func assertContiguousVersions(t *testing.T, repo *Repository, articleID string, want int) {
	t.Helper()

	versions, err := repo.ListVersions(context.Background(), articleID)
	if err != nil {
		t.Fatalf("ListVersions: %v", err)
	}
	if len(versions) != want {
		t.Fatalf("version count = %d, want %d", len(versions), want)
	}
	for i, v := range versions {
		if v.VersionNumber != i+1 {
			t.Fatalf("version[%d].VersionNumber = %d, want %d", i, v.VersionNumber, i+1)
		}
	}
}
