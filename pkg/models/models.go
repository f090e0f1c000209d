package models

// CommentEntry is one top-level comment on a post
type CommentEntry struct {
	Author string `json:"author"`
	Text   string `json:"comment"`
}

// PostMetrics holds the engagement counters of a single post.
// Counters are never negative; a value that could not be read is 0.
type PostMetrics struct {
	ID          string         `json:"id"`
	Views       int64          `json:"views"`
	Likes       int64          `json:"likes"`
	Comments    int64          `json:"comments"`
	Saves       int64          `json:"saves"`
	Shares      int64          `json:"shares"`
	Link        string         `json:"link"`
	Description string         `json:"description"`
	CommentList []CommentEntry `json:"commentsArray"`

	// ExtractionError is set when the detail pass failed and the detail fields were reset
	ExtractionError string `json:"extractionError,omitempty"`
}

// ResetDetail reverts every field filled by the detail pass to its zero value.
// Listing fields (ID, Views, Link) are kept.
func (p *PostMetrics) ResetDetail() {
	p.Likes = 0
	p.Comments = 0
	p.Saves = 0
	p.Shares = 0
	p.Description = ""
	p.CommentList = []CommentEntry{}
}

// MergeDetail copies the detail-pass fields of d into p
func (p *PostMetrics) MergeDetail(d PostMetrics) {
	p.Likes = d.Likes
	p.Comments = d.Comments
	p.Saves = d.Saves
	p.Shares = d.Shares
	p.Description = d.Description
	p.CommentList = d.CommentList
	if p.CommentList == nil {
		p.CommentList = []CommentEntry{}
	}
	p.ExtractionError = d.ExtractionError
}

// RunStatus describes how an orchestration run ended
type RunStatus string

const (
	StatusComplete         RunStatus = "complete"
	StatusSessionFailed    RunStatus = "session_failed"
	StatusNavigationFailed RunStatus = "navigation_failed"
	StatusFollowersTimeout RunStatus = "followers_timeout"
	StatusPostsTimeout     RunStatus = "posts_timeout"
	StatusCancelled        RunStatus = "cancelled"
	StatusFailed           RunStatus = "failed"
)

// ProfileResult is the outcome of one orchestration run.
// Posts keep the order of the profile listing.
type ProfileResult struct {
	Handle    string        `json:"handle"`
	Posts     []PostMetrics `json:"videos"`
	Followers int64         `json:"followers"`
	Status    RunStatus     `json:"status"`
}

// EmptyResult is the zero result returned when a run ends before any data is read
func EmptyResult(handle string, status RunStatus) ProfileResult {
	return ProfileResult{
		Handle: handle,
		Posts:  []PostMetrics{},
		Status: status,
	}
}

// Totals aggregates the posts and adds the follower count
func (r ProfileResult) Totals() AggregateTotals {
	totals := Aggregate(r.Posts)
	totals.Followers = r.Followers
	return totals
}
