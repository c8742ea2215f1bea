package types

import "time"

// ArticleStatus is the review lifecycle state of an article
type ArticleStatus string

const (
	StatusDraft     ArticleStatus = "draft"
	StatusPending   ArticleStatus = "pending"
	StatusApproved  ArticleStatus = "approved"
	StatusRejected  ArticleStatus = "rejected"
	StatusReady     ArticleStatus = "ready"
	StatusPublished ArticleStatus = "published"
)

// ImageSource tells where an article image came from
type ImageSource string

const (
	ImageSourceAI     ImageSource = "ai"
	ImageSourceUpload ImageSource = "upload"
)

// ArticleImage is one image reference attached to an article
type ArticleImage struct {
	URL    string      `json:"url"`
	Alt    string      `json:"alt,omitempty"`
	Source ImageSource `json:"source"`
}

// ArticleImages holds the hero image plus ordered in-content images
type ArticleImages struct {
	Hero    *ArticleImage  `json:"hero,omitempty"`
	Content []ArticleImage `json:"content,omitempty"`
}

// Article is a piece of generated content moving through the review pipeline.
// Version increases with every content-affecting mutation; (ID, Version)
// uniquely identifies an ArticleVersion record.
type Article struct {
	ID           string        `json:"id"`
	Status       ArticleStatus `json:"status"`
	Version      int           `json:"version"`
	Title        string        `json:"title"`
	Slug         string        `json:"slug"`
	Category     string        `json:"category,omitempty"`
	Excerpt      string        `json:"excerpt,omitempty"`
	Content      string        `json:"content"`
	Images       ArticleImages `json:"images"`
	Products     []ProductInfo `json:"products,omitempty"`
	TrackingLink string        `json:"tracking_link,omitempty"`
	MerchantURL  string        `json:"merchant_url,omitempty"`
	BrandName    string        `json:"brand_name,omitempty"`
	KeywordCount int           `json:"keyword_count"`
	PublishDate  *time.Time    `json:"publish_date,omitempty"`
	AuthorID     string        `json:"author_id"`
	ReviewerID   string        `json:"reviewer_id,omitempty"`
	RejectReason string        `json:"reject_reason,omitempty"`
	PublishedAt  *time.Time    `json:"published_at,omitempty"`
	CommitSHA    string        `json:"commit_sha,omitempty"`
	CreatedAt    time.Time     `json:"created_at"`
	UpdatedAt    time.Time     `json:"updated_at"`
}

// ChangeType classifies why a version snapshot was taken
type ChangeType string

const (
	ChangeCreate       ChangeType = "create"
	ChangeEdit         ChangeType = "edit"
	ChangeReviewReject ChangeType = "review_reject"
	ChangeRestore      ChangeType = "restore"
)

// ArticleSnapshot holds the content fields captured in a version.
// Lifecycle fields (status, reviewer, commit sha) are deliberately excluded:
// restore brings back content, not review history.
type ArticleSnapshot struct {
	Title        string        `json:"title"`
	Slug         string        `json:"slug"`
	Category     string        `json:"category,omitempty"`
	Excerpt      string        `json:"excerpt,omitempty"`
	Content      string        `json:"content"`
	Images       ArticleImages `json:"images"`
	Products     []ProductInfo `json:"products,omitempty"`
	TrackingLink string        `json:"tracking_link,omitempty"`
	KeywordCount int           `json:"keyword_count"`
}

// ArticleVersion is one append-only history entry for an article
type ArticleVersion struct {
	ArticleID     string          `json:"article_id"`
	VersionNumber int             `json:"version_number"`
	Snapshot      ArticleSnapshot `json:"snapshot"`
	ChangeType    ChangeType      `json:"change_type"`
	ChangeReason  string          `json:"change_reason,omitempty"`
	ChangedBy     string          `json:"changed_by"`
	CreatedAt     time.Time       `json:"created_at"`
}

// Snapshot captures the article's content fields for versioning
func (a *Article) Snapshot() ArticleSnapshot {
	return ArticleSnapshot{
		Title:        a.Title,
		Slug:         a.Slug,
		Category:     a.Category,
		Excerpt:      a.Excerpt,
		Content:      a.Content,
		Images:       a.Images,
		Products:     a.Products,
		TrackingLink: a.TrackingLink,
		KeywordCount: a.KeywordCount,
	}
}

// ApplySnapshot copies a snapshot's content fields back onto the article
func (a *Article) ApplySnapshot(s ArticleSnapshot) {
	a.Title = s.Title
	a.Slug = s.Slug
	a.Category = s.Category
	a.Excerpt = s.Excerpt
	a.Content = s.Content
	a.Images = s.Images
	a.Products = s.Products
	a.TrackingLink = s.TrackingLink
	a.KeywordCount = s.KeywordCount
}

// ArticlePatch is a partial update where nil means "leave unchanged"
// and a pointer to the zero value means "set to empty".
type ArticlePatch struct {
	Title        *string        `json:"title,omitempty"`
	Slug         *string        `json:"slug,omitempty"`
	Category     *string        `json:"category,omitempty"`
	Excerpt      *string        `json:"excerpt,omitempty"`
	Content      *string        `json:"content,omitempty"`
	Images       *ArticleImages `json:"images,omitempty"`
	Products     *[]ProductInfo `json:"products,omitempty"`
	TrackingLink *string        `json:"tracking_link,omitempty"`
	KeywordCount *int           `json:"keyword_count,omitempty"`
	PublishDate  *time.Time     `json:"publish_date,omitempty"`
}

// Empty reports whether the patch changes nothing
func (p ArticlePatch) Empty() bool {
	return p.Title == nil && p.Slug == nil && p.Category == nil &&
		p.Excerpt == nil && p.Content == nil && p.Images == nil &&
		p.Products == nil && p.TrackingLink == nil && p.KeywordCount == nil &&
		p.PublishDate == nil
}

// Apply writes the patch's set fields onto the article
func (p ArticlePatch) Apply(a *Article) {
	if p.Title != nil {
		a.Title = *p.Title
	}
	if p.Slug != nil {
		a.Slug = *p.Slug
	}
	if p.Category != nil {
		a.Category = *p.Category
	}
	if p.Excerpt != nil {
		a.Excerpt = *p.Excerpt
	}
	if p.Content != nil {
		a.Content = *p.Content
	}
	if p.Images != nil {
		a.Images = *p.Images
	}
	if p.Products != nil {
		a.Products = *p.Products
	}
	if p.TrackingLink != nil {
		a.TrackingLink = *p.TrackingLink
	}
	if p.KeywordCount != nil {
		a.KeywordCount = *p.KeywordCount
	}
	if p.PublishDate != nil {
		a.PublishDate = p.PublishDate
	}
}
