package article

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"

	"exposure/types"
)

// Notifier receives lifecycle events. Delivery is best effort: a failed
// notification never fails the transition that produced it.
type Notifier interface {
	Notify(ctx context.Context, n types.Notification)
}

// SelfCheckFunc decides whether a user may move a draft straight to ready.
// Authorization lives outside this package and is injected.
type SelfCheckFunc func(userID string) bool

// Repository enforces the article lifecycle. Every content-affecting
// mutation bumps the version and appends exactly one version record; the
// store's compare-and-swap guarantees numbers never repeat or skip.
type Repository struct {
	store        Store
	notifier     Notifier // may be nil
	canSelfCheck SelfCheckFunc
}

// NewRepository wires the repository
func NewRepository(store Store, notifier Notifier, canSelfCheck SelfCheckFunc) *Repository {
	if canSelfCheck == nil {
		canSelfCheck = func(string) bool { return false }
	}
	return &Repository{store: store, notifier: notifier, canSelfCheck: canSelfCheck}
}

// Create persists a composed draft at version 1
func (r *Repository) Create(ctx context.Context, draft *types.Article, authorID string) (*types.Article, error) {
	if draft.Title == "" {
		return nil, &types.ValidationError{Field: "title", Reason: "required"}
	}
	if draft.Content == "" {
		return nil, &types.ValidationError{Field: "content", Reason: "required"}
	}

	now := time.Now()
	a := *draft
	a.ID = uuid.NewString()
	a.Status = types.StatusDraft
	a.Version = 1
	a.AuthorID = authorID
	a.ReviewerID = ""
	a.RejectReason = ""
	a.CommitSHA = ""
	a.PublishedAt = nil
	a.CreatedAt = now
	a.UpdatedAt = now
	if a.Slug == "" {
		a.Slug = Slugify(a.Title)
	}

	v := r.versionRecord(&a, types.ChangeCreate, "", authorID)
	if err := r.store.Insert(ctx, &a, v); err != nil {
		return nil, err
	}
	return &a, nil
}

// Get loads one article
func (r *Repository) Get(ctx context.Context, id string) (*types.Article, error) {
	return r.store.Get(ctx, id)
}

// List loads all articles
func (r *Repository) List(ctx context.Context) ([]*types.Article, error) {
	return r.store.List(ctx)
}

// Update applies a partial edit. Only draft and rejected articles are
// editable; the edit bumps the version.
func (r *Repository) Update(ctx context.Context, id string, patch types.ArticlePatch, expectedVersion int, userID string) (*types.Article, error) {
	a, err := r.load(ctx, id, expectedVersion)
	if err != nil {
		return nil, err
	}

	switch a.Status {
	case types.StatusDraft, types.StatusRejected:
	default:
		return nil, &types.StateConflictError{Current: string(a.Status), Attempted: "edit"}
	}

	if patch.Empty() {
		return a, nil
	}

	prev := a.Version
	patch.Apply(a)
	a.Version++
	a.UpdatedAt = time.Now()

	v := r.versionRecord(a, types.ChangeEdit, "", userID)
	if err := r.store.Update(ctx, a, prev, v); err != nil {
		return nil, err
	}
	return a, nil
}

// Submit moves a draft or an edited rejected article into review
func (r *Repository) Submit(ctx context.Context, id string, expectedVersion int, userID string) (*types.Article, error) {
	a, err := r.load(ctx, id, expectedVersion)
	if err != nil {
		return nil, err
	}

	switch a.Status {
	case types.StatusDraft, types.StatusRejected:
	default:
		return nil, &types.StateConflictError{Current: string(a.Status), Attempted: "submit"}
	}

	prev := a.Version
	a.Status = types.StatusPending
	a.RejectReason = ""
	a.Version++
	a.UpdatedAt = time.Now()

	v := r.versionRecord(a, types.ChangeEdit, "", userID)
	if err := r.store.Update(ctx, a, prev, v); err != nil {
		return nil, err
	}
	return a, nil
}

// SelfCheck moves a draft straight to ready, bypassing review. Only reachable
// from draft and only for users the predicate admits.
func (r *Repository) SelfCheck(ctx context.Context, id string, expectedVersion int, userID string) (*types.Article, error) {
	if !r.canSelfCheck(userID) {
		return nil, &types.ForbiddenError{Action: "self-check"}
	}

	a, err := r.load(ctx, id, expectedVersion)
	if err != nil {
		return nil, err
	}
	if a.Status != types.StatusDraft {
		return nil, &types.StateConflictError{Current: string(a.Status), Attempted: "self-check"}
	}

	prev := a.Version
	a.Status = types.StatusReady
	a.Version++
	a.UpdatedAt = time.Now()

	v := r.versionRecord(a, types.ChangeEdit, "self-check", userID)
	if err := r.store.Update(ctx, a, prev, v); err != nil {
		return nil, err
	}
	return a, nil
}

// Approve accepts a pending article. The approved state is transient: the
// article lands on ready in the same transition.
func (r *Repository) Approve(ctx context.Context, id string, expectedVersion int, reviewerID string) (*types.Article, error) {
	a, err := r.load(ctx, id, expectedVersion)
	if err != nil {
		return nil, err
	}
	if a.Status != types.StatusPending {
		return nil, &types.StateConflictError{Current: string(a.Status), Attempted: "approve"}
	}

	prev := a.Version
	a.Status = types.StatusReady
	a.ReviewerID = reviewerID
	a.Version++
	a.UpdatedAt = time.Now()

	v := r.versionRecord(a, types.ChangeEdit, "approved", reviewerID)
	if err := r.store.Update(ctx, a, prev, v); err != nil {
		return nil, err
	}

	r.notify(ctx, types.Notification{
		UserID:      a.AuthorID,
		Type:        types.NotifyReviewApproved,
		Message:     fmt.Sprintf("%q was approved and is ready to publish", a.Title),
		RelatedType: "article",
		RelatedID:   a.ID,
	})
	return a, nil
}

// Reject sends a pending article back with a reason
func (r *Repository) Reject(ctx context.Context, id string, expectedVersion int, reviewerID, reason string) (*types.Article, error) {
	if reason == "" {
		return nil, &types.ValidationError{Field: "reason", Reason: "required"}
	}

	a, err := r.load(ctx, id, expectedVersion)
	if err != nil {
		return nil, err
	}
	if a.Status != types.StatusPending {
		return nil, &types.StateConflictError{Current: string(a.Status), Attempted: "reject"}
	}

	prev := a.Version
	a.Status = types.StatusRejected
	a.ReviewerID = reviewerID
	a.RejectReason = reason
	a.Version++
	a.UpdatedAt = time.Now()

	v := r.versionRecord(a, types.ChangeReviewReject, reason, reviewerID)
	if err := r.store.Update(ctx, a, prev, v); err != nil {
		return nil, err
	}

	r.notify(ctx, types.Notification{
		UserID:      a.AuthorID,
		Type:        types.NotifyReviewRejected,
		Message:     fmt.Sprintf("%q was rejected: %s", a.Title, reason),
		RelatedType: "article",
		RelatedID:   a.ID,
	})
	return a, nil
}

// ListVersions returns the article's history, ascending
func (r *Repository) ListVersions(ctx context.Context, id string) ([]types.ArticleVersion, error) {
	return r.store.ListVersions(ctx, id)
}

// Restore copies a historical snapshot onto the article as a new version.
// The target version is never touched; restoring to the current version is
// rejected as a conflict rather than silently doing nothing.
func (r *Repository) Restore(ctx context.Context, id string, versionNumber int, userID string) (*types.Article, error) {
	a, err := r.store.Get(ctx, id)
	if err != nil {
		return nil, err
	}

	switch a.Status {
	case types.StatusDraft, types.StatusRejected:
	default:
		return nil, &types.StateConflictError{Current: string(a.Status), Attempted: "restore"}
	}
	if versionNumber == a.Version {
		return nil, &types.StateConflictError{
			Current:   string(a.Status),
			Attempted: "restore",
			Detail:    fmt.Sprintf("version %d is already current", versionNumber),
		}
	}

	target, err := r.store.GetVersion(ctx, id, versionNumber)
	if err != nil {
		return nil, err
	}

	prev := a.Version
	a.ApplySnapshot(target.Snapshot)
	a.Version++
	a.UpdatedAt = time.Now()

	v := r.versionRecord(a, types.ChangeRestore, fmt.Sprintf("restored from version %d", versionNumber), userID)
	if err := r.store.Update(ctx, a, prev, v); err != nil {
		return nil, err
	}
	return a, nil
}

// MarkPublished records a successful publish. The content did not change, so
// no version is appended; the version counter is untouched.
func (r *Repository) MarkPublished(ctx context.Context, id, commitSHA string, publishedAt time.Time) (*types.Article, error) {
	a, err := r.store.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	if a.Status != types.StatusReady {
		return nil, &types.StateConflictError{Current: string(a.Status), Attempted: "publish"}
	}

	a.Status = types.StatusPublished
	a.CommitSHA = commitSHA
	a.PublishedAt = &publishedAt
	a.UpdatedAt = time.Now()

	if err := r.store.Update(ctx, a, a.Version, nil); err != nil {
		return nil, err
	}

	r.notify(ctx, types.Notification{
		UserID:      a.AuthorID,
		Type:        types.NotifyPublishSuccess,
		Message:     fmt.Sprintf("%q was published", a.Title),
		RelatedType: "article",
		RelatedID:   a.ID,
	})
	return a, nil
}

// Delete removes the article and its versions. Notification cleanup is the
// caller's business (weak references, best effort).
func (r *Repository) Delete(ctx context.Context, id string) error {
	return r.store.Delete(ctx, id)
}

// load fetches the article and applies the caller's optimistic version
// check. expectedVersion <= 0 skips the check; the store's compare-and-swap
// still serializes the write itself.
func (r *Repository) load(ctx context.Context, id string, expectedVersion int) (*types.Article, error) {
	a, err := r.store.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	if expectedVersion > 0 && expectedVersion != a.Version {
		return nil, &types.StaleVersionError{Expected: expectedVersion, Actual: a.Version}
	}
	return a, nil
}

func (r *Repository) versionRecord(a *types.Article, change types.ChangeType, reason, userID string) *types.ArticleVersion {
	return &types.ArticleVersion{
		ArticleID:     a.ID,
		VersionNumber: a.Version,
		Snapshot:      a.Snapshot(),
		ChangeType:    change,
		ChangeReason:  reason,
		ChangedBy:     userID,
		CreatedAt:     time.Now(),
	}
}

func (r *Repository) notify(ctx context.Context, n types.Notification) {
	if r.notifier != nil {
		r.notifier.Notify(ctx, n)
	}
}
