package scraper

import "regexp"

// Profile page
const (
	selectorFollowers = `strong[data-e2e="followers-count"]`
	selectorPostItem  = `div[data-e2e='user-post-item']`
)

// Post page
const (
	selectorLikes         = `strong[data-e2e="like-count"]`
	selectorComments      = `strong[data-e2e="comment-count"]`
	selectorSaves         = `strong[data-e2e="favorite-count"]`
	selectorShares        = `strong[data-e2e="share-count"]`
	selectorDescription   = `h1[data-e2e="browse-video-desc"]`
	selectorComment       = `p[data-e2e="comment-level-1"]`
	selectorCommentAuthor = `span[data-e2e="comment-username"]`
)

var videoIDPattern = regexp.MustCompile(`/video/(\d+)`)

// PostID returns the numeric identifier in a post permalink, or "" when there is none
func PostID(link string) string {
	m := videoIDPattern.FindStringSubmatch(link)
	if m == nil {
		return ""
	}
	return m[1]
}
