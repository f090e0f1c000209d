package scraper

import (
	"context"
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"ttscraper/pkg/browser"
	"ttscraper/pkg/browser/browsertest"
	"ttscraper/pkg/config"
	"ttscraper/pkg/logger"
	"ttscraper/pkg/models"
)

const profileURL = testBaseURL + "/@creator"

func postURL(id int) string {
	return fmt.Sprintf("%s/video/%d", profileURL, id)
}

// newProfileFixture serves a profile with n posts, each with a detail page
func newProfileFixture(followers string, n int) *browsertest.Launcher {
	l := browsertest.NewLauncher()

	items := make([]listing, 0, n)
	for i := 1; i <= n; i++ {
		id := 1000 + i
		items = append(items, listing{
			href:  fmt.Sprintf("/@creator/video/%d", id),
			views: fmt.Sprintf("%dK", i),
		})
		l.AddDocument(postURL(id), browsertest.Document{HTML: postHTML(detail{
			likes:       "1.2K",
			comments:    "34",
			saves:       "5",
			shares:      "1,001",
			description: fmt.Sprintf("post %d #fyp", i),
			commentList: []comment{
				{author: "fan", text: "first!"},
				{text: "no author here"},
			},
		})})
	}
	l.AddDocument(profileURL, browsertest.Document{HTML: profileHTML(followers, items)})
	return l
}

func newTestScraper(l browser.Launcher, cfg *config.Config) (*Scraper, *logger.TestLogger) {
	tl := logger.NewTestLogger()
	return New(l, nil, cfg, tl), tl
}

func TestScrapeProfileEndToEnd(t *testing.T) {
	l := newProfileFixture("10.5K", 5)
	cfg := testConfig()
	cfg.Scrape.PostCap = 3
	s, tl := newTestScraper(l, cfg)

	result := s.ScrapeProfile(context.Background(), "@creator")

	assert.Equal(t, models.StatusComplete, result.Status)
	assert.Equal(t, "creator", result.Handle)
	assert.Equal(t, int64(10500), result.Followers)
	require.Len(t, result.Posts, 3)

	for i, post := range result.Posts {
		id := 1000 + i + 1
		assert.Equal(t, fmt.Sprint(id), post.ID)
		assert.Equal(t, postURL(id), post.Link)
		assert.Equal(t, int64(i+1)*1000, post.Views)
		assert.Equal(t, int64(1200), post.Likes)
		assert.Equal(t, int64(34), post.Comments)
		assert.Equal(t, int64(5), post.Saves)
		assert.Equal(t, int64(1001), post.Shares)
		assert.Equal(t, fmt.Sprintf("post %d #fyp", i+1), post.Description)
		assert.Equal(t, []models.CommentEntry{
			{Author: "fan", Text: "first!"},
			{Author: "", Text: "no author here"},
		}, post.CommentList)
		assert.Empty(t, post.ExtractionError)
	}

	totals := result.Totals()
	assert.Equal(t, models.AggregateTotals{
		Views:     6000,
		Likes:     3600,
		Comments:  102,
		Saves:     15,
		Shares:    3003,
		Followers: 10500,
	}, totals)

	require.Len(t, l.Browsers(), 1)
	assert.Equal(t, 1, l.Browsers()[0].CloseCalls())

	page := l.Pages()[0]
	assert.Equal(t, config.DefaultUserAgent, page.UserAgent())
	assert.Equal(t, []browsertest.Point{{X: 100, Y: 100}, {X: 200, Y: 200}, {X: 300, Y: 300}}, page.Moves())
	assert.Equal(t, []string{profileURL, postURL(1001), postURL(1002), postURL(1003)}, page.Visited())
	assert.Equal(t, 3, page.Backs())
	assert.Greater(t, page.Scrolls(), 0)

	assert.True(t, tl.HasMessage("Scrape finished"))
	assert.False(t, tl.HasError())
}

func TestScrapeProfileAcceptsProfileURL(t *testing.T) {
	l := newProfileFixture("12", 1)
	s, _ := newTestScraper(l, testConfig())

	result := s.ScrapeProfile(context.Background(), "https://www.tiktok.com/@creator?lang=en")
	assert.Equal(t, models.StatusComplete, result.Status)
	assert.Equal(t, "creator", result.Handle)
	assert.Equal(t, int64(12), result.Followers)
}

func TestScrapeProfileUserAgentFromAntiBot(t *testing.T) {
	tests := []struct {
		name    string
		cfgUA   string
		antiBot func(cfg *config.Config) *browser.AntiBot
		want    string
	}{
		{
			name:  "unset user agent falls back to default",
			cfgUA: "",
			want:  config.DefaultUserAgent,
		},
		{
			name:  "injected anti-bot wins over config",
			cfgUA: "from-config/1.0",
			antiBot: func(cfg *config.Config) *browser.AntiBot {
				return browser.NewAntiBot(config.BrowserConfig{UserAgent: "injected/2.0"}, cfg.Captcha)
			},
			want: "injected/2.0",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			l := newProfileFixture("1", 1)
			cfg := testConfig()
			cfg.Browser.UserAgent = tt.cfgUA

			var ab *browser.AntiBot
			if tt.antiBot != nil {
				ab = tt.antiBot(cfg)
			}
			s := New(l, ab, cfg, logger.NewTestLogger())

			result := s.ScrapeProfile(context.Background(), "creator")
			require.Equal(t, models.StatusComplete, result.Status)
			assert.Equal(t, tt.want, l.Pages()[0].UserAgent())
		})
	}
}

func TestScrapeProfileFewerPostsThanCap(t *testing.T) {
	l := newProfileFixture("1", 2)
	s, _ := newTestScraper(l, testConfig())

	result := s.ScrapeProfile(context.Background(), "creator")
	assert.Equal(t, models.StatusComplete, result.Status)
	assert.Len(t, result.Posts, 2)
}

func TestScrapeProfileFollowersTimeout(t *testing.T) {
	l := browsertest.NewLauncher()
	l.AddDocument(profileURL, browsertest.Document{HTML: profileHTML("", []listing{{href: "/@creator/video/1", views: "5"}})})
	s, _ := newTestScraper(l, testConfig())

	result := s.ScrapeProfile(context.Background(), "creator")

	assert.Equal(t, models.StatusFollowersTimeout, result.Status)
	assert.Equal(t, int64(0), result.Followers)
	assert.NotNil(t, result.Posts)
	assert.Empty(t, result.Posts)
	assert.Equal(t, models.AggregateTotals{}, result.Totals())
	assert.Equal(t, 1, l.Browsers()[0].CloseCalls())
}

func TestScrapeProfilePostsTimeout(t *testing.T) {
	l := browsertest.NewLauncher()
	l.AddDocument(profileURL, browsertest.Document{HTML: profileHTML("2M", nil)})
	s, _ := newTestScraper(l, testConfig())

	result := s.ScrapeProfile(context.Background(), "creator")

	assert.Equal(t, models.StatusPostsTimeout, result.Status)
	assert.Equal(t, int64(2000000), result.Followers)
	assert.Empty(t, result.Posts)
	assert.Equal(t, 1, l.Browsers()[0].CloseCalls())
}

func TestScrapeProfilePostWithMissingElements(t *testing.T) {
	l := browsertest.NewLauncher()
	l.AddDocument(profileURL, browsertest.Document{HTML: profileHTML("3", []listing{{href: "/@creator/video/77", views: "1.5K"}})})
	l.AddDocument(postURL(77), browsertest.Document{HTML: postHTML(detail{})})
	s, _ := newTestScraper(l, testConfig())

	result := s.ScrapeProfile(context.Background(), "creator")

	require.Len(t, result.Posts, 1)
	post := result.Posts[0]
	assert.Equal(t, models.StatusComplete, result.Status)
	assert.Equal(t, "77", post.ID)
	assert.Equal(t, int64(1500), post.Views)
	assert.Zero(t, post.Likes)
	assert.Zero(t, post.Comments)
	assert.Zero(t, post.Saves)
	assert.Zero(t, post.Shares)
	assert.Empty(t, post.Description)
	assert.Equal(t, []models.CommentEntry{}, post.CommentList)
	assert.Empty(t, post.ExtractionError)
}

func TestScrapeProfilePostFailureKeepsListing(t *testing.T) {
	l := newProfileFixture("3", 3)
	l.AddDocument(postURL(1002), browsertest.Document{NavigateErr: errors.New("net::ERR_CONNECTION_RESET")})
	l.AddDocument(postURL(1003), browsertest.Document{HTML: postHTML(detail{likes: "9"}), HTMLErr: errors.New("target closed")})
	s, tl := newTestScraper(l, testConfig())

	result := s.ScrapeProfile(context.Background(), "creator")

	assert.Equal(t, models.StatusComplete, result.Status)
	require.Len(t, result.Posts, 3)

	assert.Equal(t, int64(1200), result.Posts[0].Likes)
	assert.Empty(t, result.Posts[0].ExtractionError)

	for _, post := range result.Posts[1:] {
		assert.NotEmpty(t, post.ExtractionError)
		assert.NotZero(t, post.Views)
		assert.NotEmpty(t, post.Link)
		assert.Zero(t, post.Likes)
		assert.Equal(t, []models.CommentEntry{}, post.CommentList)
	}
	assert.Contains(t, result.Posts[1].ExtractionError, "ERR_CONNECTION_RESET")

	assert.Equal(t, 3, l.Pages()[0].Backs())
	assert.Len(t, tl.GetMessagesByLevel("WARN"), 2)
}

func TestScrapeProfilePostWithoutLink(t *testing.T) {
	l := browsertest.NewLauncher()
	l.AddDocument(profileURL, browsertest.Document{HTML: profileHTML("3", []listing{{views: "10"}})})
	s, _ := newTestScraper(l, testConfig())

	result := s.ScrapeProfile(context.Background(), "creator")

	require.Len(t, result.Posts, 1)
	assert.Equal(t, int64(10), result.Posts[0].Views)
	assert.Empty(t, result.Posts[0].ID)
	assert.Empty(t, result.Posts[0].Link)
	assert.Contains(t, result.Posts[0].ExtractionError, "post has no link")
}

func TestScrapeProfileSessionFailures(t *testing.T) {
	tests := []struct {
		name       string
		setup      func(l *browsertest.Launcher)
		wantStatus models.RunStatus
		wantCloses int
	}{
		{
			name:       "launch fails",
			setup:      func(l *browsertest.Launcher) { l.LaunchErr = errors.New("chrome not found") },
			wantStatus: models.StatusSessionFailed,
			wantCloses: 0,
		},
		{
			name:       "new page fails",
			setup:      func(l *browsertest.Launcher) { l.NewPageErr = errors.New("target crashed") },
			wantStatus: models.StatusSessionFailed,
			wantCloses: 1,
		},
		{
			name:       "user agent fails",
			setup:      func(l *browsertest.Launcher) { l.UserAgentErr = errors.New("protocol error") },
			wantStatus: models.StatusSessionFailed,
			wantCloses: 1,
		},
		{
			name:       "pointer fails",
			setup:      func(l *browsertest.Launcher) { l.MouseErr = errors.New("input dispatch failed") },
			wantStatus: models.StatusSessionFailed,
			wantCloses: 1,
		},
		{
			name: "navigation fails",
			setup: func(l *browsertest.Launcher) {
				l.AddDocument(profileURL, browsertest.Document{NavigateErr: errors.New("net::ERR_NAME_NOT_RESOLVED")})
			},
			wantStatus: models.StatusNavigationFailed,
			wantCloses: 1,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			l := newProfileFixture("1K", 2)
			tt.setup(l)
			s, _ := newTestScraper(l, testConfig())

			result := s.ScrapeProfile(context.Background(), "creator")

			assert.Equal(t, tt.wantStatus, result.Status)
			assert.Empty(t, result.Posts)
			assert.Zero(t, result.Followers)

			closes := 0
			for _, b := range l.Browsers() {
				closes += b.CloseCalls()
			}
			assert.Equal(t, tt.wantCloses, closes)
		})
	}
}

func TestScrapeProfileRetriesLaunch(t *testing.T) {
	l := newProfileFixture("1K", 1)
	l.LaunchErr = errors.New("devtools not ready")
	l.FailLaunches = 1
	s, tl := newTestScraper(l, testConfig())

	result := s.ScrapeProfile(context.Background(), "creator")

	assert.Equal(t, models.StatusComplete, result.Status)
	assert.Equal(t, 2, l.LaunchAttempts())
	assert.Equal(t, 1, l.Launches())
	assert.True(t, tl.HasMessage("Retrying operation"))
}

func TestScrapeProfileLaunchAttemptsExhausted(t *testing.T) {
	l := newProfileFixture("1K", 1)
	l.LaunchErr = errors.New("chrome not found")
	cfg := testConfig()
	cfg.Browser.LaunchAttempts = 3
	s, _ := newTestScraper(l, cfg)

	result := s.ScrapeProfile(context.Background(), "creator")

	assert.Equal(t, models.StatusSessionFailed, result.Status)
	assert.Equal(t, 3, l.LaunchAttempts())
	assert.Equal(t, 0, l.Launches())
}

func TestScrapeProfileScrollFailureContinues(t *testing.T) {
	l := newProfileFixture("7", 1)
	l.ScrollErr = errors.New("eval failed")
	cfg := testConfig()
	cfg.Scrape.ScrollComments = false
	s, tl := newTestScraper(l, cfg)

	result := s.ScrapeProfile(context.Background(), "creator")

	assert.Equal(t, models.StatusComplete, result.Status)
	assert.Equal(t, int64(7), result.Followers)
	assert.True(t, tl.HasMessage("Profile scroll failed, continuing"))
}

func TestScrapeProfileCancelledBeforeStart(t *testing.T) {
	l := newProfileFixture("7", 1)
	s, _ := newTestScraper(l, testConfig())

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	result := s.ScrapeProfile(ctx, "creator")
	assert.Equal(t, models.StatusCancelled, result.Status)
	assert.Empty(t, result.Posts)
	assert.Equal(t, 0, l.Launches())
}

func TestScrapeProfileCancelledMidIteration(t *testing.T) {
	base := newProfileFixture("7", 3)
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	l := pageHook{Launcher: base, wrap: func(p browser.Page) browser.Page {
		return cancelOnNavigate{Page: p, url: postURL(1002), cancel: cancel}
	}}
	s, _ := newTestScraper(l, testConfig())

	result := s.ScrapeProfile(ctx, "creator")

	assert.Equal(t, models.StatusCancelled, result.Status)
	assert.Equal(t, int64(7), result.Followers)
	require.Len(t, result.Posts, 3)
	assert.Equal(t, int64(1200), result.Posts[0].Likes)
	assert.NotEmpty(t, result.Posts[1].ExtractionError)
	assert.Zero(t, result.Posts[2].Likes)
	assert.Equal(t, 1, base.Browsers()[0].CloseCalls())
}

func TestScrapeProfileRecoversPanic(t *testing.T) {
	base := newProfileFixture("7", 1)
	l := pageHook{Launcher: base, wrap: func(p browser.Page) browser.Page {
		return panicOnHTML{Page: p}
	}}
	s, tl := newTestScraper(l, testConfig())

	var result models.ProfileResult
	require.NotPanics(t, func() {
		result = s.ScrapeProfile(context.Background(), "creator")
	})

	assert.Equal(t, models.StatusFailed, result.Status)
	assert.Equal(t, 1, base.Browsers()[0].CloseCalls())
	assert.True(t, tl.HasMessage("Scrape panicked"))
}

func TestScrapeProfileLogsStates(t *testing.T) {
	l := newProfileFixture("7", 1)
	s, tl := newTestScraper(l, testConfig())
	s.ScrapeProfile(context.Background(), "creator")

	var states []string
	runIDs := map[interface{}]bool{}
	for _, msg := range tl.GetMessagesByLevel("DEBUG") {
		if msg.Message == "Scrape state" {
			states = append(states, msg.Fields["state"].(string))
			runIDs[msg.Fields["run_id"]] = true
		}
	}
	assert.Equal(t, []string{
		stateLaunching, stateNavigating, stateSimulating, statePaginating,
		stateWaitingFollowers, stateWaitingPosts, stateExtractingList,
		stateIteratingPosts, stateAggregating, stateClosed,
	}, states)
	assert.Len(t, runIDs, 1)
}

func TestNormalizeHandle(t *testing.T) {
	tests := []struct {
		in   string
		want string
	}{
		{"creator", "creator"},
		{"@creator", "creator"},
		{"  @creator  ", "creator"},
		{"https://www.tiktok.com/@creator", "creator"},
		{"https://www.tiktok.com/@creator/", "creator"},
		{"https://www.tiktok.com/@creator/video/123?is_from_webapp=1", "creator"},
		{"", ""},
		{"@", ""},
	}

	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			assert.Equal(t, tt.want, NormalizeHandle(tt.in))
		})
	}
}

func TestProfileURL(t *testing.T) {
	cfg := testConfig()
	cfg.Scrape.BaseURL = "https://www.tiktok.com/"
	s, _ := newTestScraper(browsertest.NewLauncher(), cfg)
	assert.Equal(t, "https://www.tiktok.com/@someone", s.ProfileURL("someone"))
}

func TestPostID(t *testing.T) {
	assert.Equal(t, "7234", PostID("https://www.tiktok.com/@a/video/7234"))
	assert.Equal(t, "7234", PostID("https://www.tiktok.com/@a/video/7234?lang=en"))
	assert.Equal(t, "", PostID("https://www.tiktok.com/@a/photo/7234"))
	assert.Equal(t, "", PostID(""))
}
