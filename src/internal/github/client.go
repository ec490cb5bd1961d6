package github

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"os"
	"path/filepath"
	"strings"

	"github.com/google/go-github/v67/github"
	"github.com/yhonda-ohishi-pub-dev/ytgrab/src/pkg/models"
	"golang.org/x/oauth2"
)

const (
	releasesPerPage = 10
	copyBufferSize  = 32 * 1024
)

// Client reads the release feed and downloads release assets
type Client struct {
	gh       *github.Client
	download *http.Client
	owner    string
	repo     string
	cfg      models.FeedConfig
}

// NewClient creates a feed client. A token, when set, is only sent to the
// API; asset downloads go through a plain client so redirects to storage
// hosts never carry it.
func NewClient(cfg models.FeedConfig) (*Client, error) {
	var api *http.Client
	if cfg.Token != "" {
		ts := oauth2.StaticTokenSource(&oauth2.Token{AccessToken: cfg.Token})
		api = oauth2.NewClient(context.Background(), ts)
	}

	gh := github.NewClient(api)
	if cfg.APIURL != "" {
		base := cfg.APIURL
		if !strings.HasSuffix(base, "/") {
			base += "/"
		}
		u, err := url.Parse(base)
		if err != nil {
			return nil, fmt.Errorf("invalid feed api url: %w", err)
		}
		gh.BaseURL = u
	}

	return &Client{
		gh:       gh,
		download: &http.Client{},
		owner:    cfg.Owner,
		repo:     cfg.Repo,
		cfg:      cfg,
	}, nil
}

// ListReleases returns the newest releases, newest first. Drafts are
// dropped.
func (c *Client) ListReleases(ctx context.Context) ([]models.ReleaseInfo, error) {
	if c.cfg.Timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, c.cfg.Timeout)
		defer cancel()
	}

	releases, _, err := c.gh.Repositories.ListReleases(ctx, c.owner, c.repo, &github.ListOptions{
		PerPage: releasesPerPage,
	})
	if err != nil {
		return nil, fmt.Errorf("%w: fetch releases for %s/%s: %w", models.ErrNetwork, c.owner, c.repo, err)
	}

	out := make([]models.ReleaseInfo, 0, len(releases))
	for _, r := range releases {
		if r.GetDraft() {
			continue
		}
		out = append(out, convertRelease(r))
	}
	return out, nil
}

// DownloadAsset streams assetURL into destPath and reports the running byte
// count. total is -1 when the server does not send a length. A partial file
// is removed on failure.
func (c *Client) DownloadAsset(ctx context.Context, assetURL, destPath string, progress func(downloaded, total int64)) (int64, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, assetURL, nil)
	if err != nil {
		return 0, fmt.Errorf("%w: create request: %w", models.ErrNetwork, err)
	}
	req.Header.Set("Accept", "application/octet-stream")

	resp, err := c.download.Do(req)
	if err != nil {
		return 0, fmt.Errorf("%w: download %s: %w", models.ErrNetwork, assetURL, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return 0, fmt.Errorf("%w: download %s: %s", models.ErrNetwork, assetURL, resp.Status)
	}

	if err := os.MkdirAll(filepath.Dir(destPath), 0o755); err != nil {
		return 0, fmt.Errorf("%w: create directory: %w", models.ErrTransientIO, err)
	}
	out, err := os.Create(destPath)
	if err != nil {
		return 0, fmt.Errorf("%w: create file: %w", models.ErrTransientIO, err)
	}

	downloaded, err := copyWithProgress(out, resp.Body, resp.ContentLength, progress)
	if closeErr := out.Close(); err == nil && closeErr != nil {
		err = fmt.Errorf("%w: close file: %w", models.ErrTransientIO, closeErr)
	}
	if err != nil {
		os.Remove(destPath)
		return downloaded, err
	}
	return downloaded, nil
}

func copyWithProgress(dst io.Writer, src io.Reader, total int64, progress func(downloaded, total int64)) (int64, error) {
	var downloaded int64
	buffer := make([]byte, copyBufferSize)
	for {
		n, err := src.Read(buffer)
		if n > 0 {
			if _, writeErr := dst.Write(buffer[:n]); writeErr != nil {
				return downloaded, fmt.Errorf("%w: write file: %w", models.ErrTransientIO, writeErr)
			}
			downloaded += int64(n)
			if progress != nil {
				progress(downloaded, total)
			}
		}
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return downloaded, fmt.Errorf("%w: read response: %w", models.ErrNetwork, err)
		}
	}
	if total > 0 && downloaded != total {
		return downloaded, fmt.Errorf("%w: short body, got %d of %d bytes", models.ErrNetwork, downloaded, total)
	}
	return downloaded, nil
}

func convertRelease(r *github.RepositoryRelease) models.ReleaseInfo {
	info := models.ReleaseInfo{
		Tag:          r.GetTagName(),
		Name:         r.GetName(),
		IsPrerelease: r.GetPrerelease(),
		PublishedAt:  r.GetPublishedAt().Time,
		ReleaseURL:   r.GetHTMLURL(),
		Assets:       make([]models.Asset, 0, len(r.Assets)),
	}
	for _, a := range r.Assets {
		info.Assets = append(info.Assets, models.Asset{
			Name:        a.GetName(),
			DownloadURL: a.GetBrowserDownloadURL(),
			Size:        int64(a.GetSize()),
		})
	}
	return info
}
