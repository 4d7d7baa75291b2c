package ghpr

import (
	"context"
	"fmt"
	"regexp"
	"strconv"

	"github.com/google/go-github/v57/github"
	"golang.org/x/time/rate"

	cserr "github.com/changescribe/changescribe/internal/errors"
	"github.com/changescribe/changescribe/internal/logging"
)

// PRRef identifies one pull request
type PRRef struct {
	Owner  string
	Repo   string
	Number int
}

func (r PRRef) String() string {
	return fmt.Sprintf("%s/%s#%d", r.Owner, r.Repo, r.Number)
}

var prRefRe = regexp.MustCompile(`^([\w.-]+)/([\w.-]+)#(\d+)$`)

// ParsePRRef parses an "owner/repo#number" reference
func ParsePRRef(s string) (PRRef, error) {
	m := prRefRe.FindStringSubmatch(s)
	if m == nil {
		return PRRef{}, fmt.Errorf("invalid pull request reference %q (want owner/repo#number)", s)
	}
	n, err := strconv.Atoi(m[3])
	if err != nil || n <= 0 {
		return PRRef{}, fmt.Errorf("invalid pull request number in %q", s)
	}
	return PRRef{Owner: m[1], Repo: m[2], Number: n}, nil
}

// Fetcher retrieves pull request diffs from the GitHub API.
// Unauthenticated access works for public repositories but hits the
// anonymous quota quickly.
type Fetcher struct {
	client  *github.Client
	limiter *rate.Limiter
}

// NewFetcher creates a fetcher. token may be empty; requestsPerSecond
// bounds the API call rate (non-positive falls back to 1 rps).
func NewFetcher(token string, requestsPerSecond int) *Fetcher {
	client := github.NewClient(nil)
	if token != "" {
		client = client.WithAuthToken(token)
	}
	if requestsPerSecond <= 0 {
		requestsPerSecond = 1
	}
	return &Fetcher{
		client:  client,
		limiter: rate.NewLimiter(rate.Limit(requestsPerSecond), requestsPerSecond),
	}
}

// FetchDiff returns the unified diff of a pull request along with its
// base and head refs.
func (f *Fetcher) FetchDiff(ctx context.Context, ref PRRef) (diffText, baseRef, headRef string, err error) {
	if err := f.limiter.Wait(ctx); err != nil {
		return "", "", "", cserr.Timeout(err)
	}
	pr, _, err := f.client.PullRequests.Get(ctx, ref.Owner, ref.Repo, ref.Number)
	if err != nil {
		return "", "", "", fmt.Errorf("fetching pull request %s: %w", ref, err)
	}
	baseRef = pr.GetBase().GetRef()
	headRef = pr.GetHead().GetRef()

	if err := f.limiter.Wait(ctx); err != nil {
		return "", "", "", cserr.Timeout(err)
	}
	raw, _, err := f.client.PullRequests.GetRaw(ctx, ref.Owner, ref.Repo, ref.Number,
		github.RawOptions{Type: github.Diff})
	if err != nil {
		return "", "", "", fmt.Errorf("fetching diff for %s: %w", ref, err)
	}

	logging.Info("fetched pull request diff", "pr", ref.String(), "base", baseRef, "head", headRef, "bytes", len(raw))
	return raw, baseRef, headRef, nil
}
