package storage

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/google/go-github/v66/github"
	"github.com/t4zn/medicaps-sub001/internal/config"
)

// GitHubStorage commits files into a repository through the contents API and
// serves them from a CDN mirroring that repository.
type GitHubStorage struct {
	client *github.Client
	cdnURL string
	owner  string
	repo   string
	branch string
}

func NewGitHubStorage(cfg *config.Config) (*GitHubStorage, error) {
	client := github.NewClient(&http.Client{Timeout: 60 * time.Second}).WithAuthToken(cfg.GitHubToken)

	// BaseURL needs the trailing slash or relative request paths drop a segment.
	base, err := url.Parse(strings.TrimRight(cfg.GitHubAPIURL, "/") + "/")
	if err != nil {
		return nil, fmt.Errorf("invalid GITHUB_API_URL: %w", err)
	}
	client.BaseURL = base

	slog.Info("github storage initialized", "repo", cfg.GitHubOwner+"/"+cfg.GitHubRepo, "branch", cfg.GitHubBranch)
	return &GitHubStorage{
		client: client,
		cdnURL: strings.TrimRight(cfg.GitHubCDNBaseURL, "/"),
		owner:  cfg.GitHubOwner,
		repo:   cfg.GitHubRepo,
		branch: cfg.GitHubBranch,
	}, nil
}

func (g *GitHubStorage) Upload(ctx context.Context, key, _ string, body io.Reader, _ int64) (string, error) {
	data, err := io.ReadAll(body)
	if err != nil {
		return "", fmt.Errorf("read upload body: %w", err)
	}

	_, _, err = g.client.Repositories.CreateFile(ctx, g.owner, g.repo, key, &github.RepositoryContentFileOptions{
		Message: github.String("Upload " + key),
		Content: data,
		Branch:  github.String(g.branch),
	})
	if err != nil {
		return "", fmt.Errorf("github upload %s: %w", key, err)
	}
	return fmt.Sprintf("%s/%s/%s@%s/%s", g.cdnURL, g.owner, g.repo, g.branch, key), nil
}

// Delete needs the blob SHA, so it looks the file up first.
func (g *GitHubStorage) Delete(ctx context.Context, key string) error {
	existing, _, resp, err := g.client.Repositories.GetContents(ctx, g.owner, g.repo, key,
		&github.RepositoryContentGetOptions{Ref: g.branch})
	if isGitHubNotFound(resp) {
		return ErrObjectNotFound
	}
	if err != nil {
		return fmt.Errorf("github lookup %s: %w", key, err)
	}
	if existing == nil {
		return fmt.Errorf("github lookup %s: path is a directory", key)
	}

	_, resp, err = g.client.Repositories.DeleteFile(ctx, g.owner, g.repo, key, &github.RepositoryContentFileOptions{
		Message: github.String("Delete " + key),
		SHA:     github.String(existing.GetSHA()),
		Branch:  github.String(g.branch),
	})
	if isGitHubNotFound(resp) {
		return ErrObjectNotFound
	}
	if err != nil {
		return fmt.Errorf("github delete %s: %w", key, err)
	}
	return nil
}

func isGitHubNotFound(resp *github.Response) bool {
	return resp != nil && resp.StatusCode == http.StatusNotFound
}
