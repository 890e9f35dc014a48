package github

import (
	"context"
	"fmt"
	"net/http"
	"net/url"
	"strings"
	"unicode/utf8"

	"github.com/google/go-github/v66/github"
	"github.com/nahidhasan98/review-relay/internal/models"
	"golang.org/x/sync/errgroup"
)

// Fetch resolves every path at commitSHA into an envelope block. A failed
// repository lookup aborts the fetch and returns a diagnostic document;
// per-path failures only affect their own block.
func (f *Fetcher) Fetch(ctx context.Context, owner, repo, commitSHA string, paths []string) *models.FetchResult {
	if len(paths) == 0 {
		f.log.Debug("No paths to fetch")
		return &models.FetchResult{}
	}

	f.log.Infof("Fetching %d files from %s/%s@%s", len(paths), owner, repo, shortSHA(commitSHA))

	if diagnostic := f.checkRepository(ctx, owner, repo); diagnostic != "" {
		return &models.FetchResult{
			Document:        diagnostic,
			RepositoryError: diagnostic,
		}
	}

	blocks := make([]models.FileContentBlock, len(paths))

	// Each goroutine writes only its own index, so no locking is needed
	g := new(errgroup.Group)
	g.SetLimit(f.concurrency)
	for i, path := range paths {
		g.Go(func() error {
			blocks[i] = f.fetchFile(ctx, owner, repo, path, commitSHA)
			return nil
		})
	}
	_ = g.Wait()

	rendered := make([]string, len(blocks))
	failed := 0
	for i, block := range blocks {
		rendered[i] = block.String()
		if block.Failed() {
			failed++
		}
	}

	if failed > 0 {
		f.log.Warnf("Fetched %d files from %s/%s, %d failed", len(paths), owner, repo, failed)
	} else {
		f.log.Infof("Fetched %d files from %s/%s", len(paths), owner, repo)
	}

	return &models.FetchResult{
		Document: strings.Join(rendered, "\n"),
		Blocks:   blocks,
	}
}

// checkRepository confirms the repository is reachable. It returns a
// diagnostic string when it is not.
func (f *Fetcher) checkRepository(ctx context.Context, owner, repo string) string {
	ctx, cancel := context.WithTimeout(ctx, f.timeout)
	defer cancel()

	_, resp, err := f.client.Repositories.Get(ctx, owner, repo)
	if reason := failureReason(resp, err); reason != "" {
		diagnostic := fmt.Sprintf("repository %s/%s: %s", owner, repo, reason)
		f.log.Error("Repository lookup failed", fmt.Errorf("%s", diagnostic))
		return diagnostic
	}

	f.log.Debugf("Repository %s/%s found", owner, repo)
	return ""
}

// fetchFile retrieves one path at ref
func (f *Fetcher) fetchFile(ctx context.Context, owner, repo, path, ref string) models.FileContentBlock {
	ctx, cancel := context.WithTimeout(ctx, f.timeout)
	defer cancel()

	var (
		file *github.RepositoryContent
		resp *github.Response
		err  error
	)
	if strings.Contains(path, "..") {
		file, resp, err = f.getFileContents(ctx, owner, repo, path, ref)
	} else {
		opts := &github.RepositoryContentGetOptions{Ref: ref}
		file, _, resp, err = f.client.Repositories.GetContents(ctx, owner, repo, path, opts)
	}
	if reason := failureReason(resp, err); reason != "" {
		f.log.Warnf("Failed to fetch %s: %s", path, reason)
		return models.NewErrorBlock(path, reason)
	}
	if file == nil {
		f.log.Warnf("Path %s is a directory", path)
		return models.NewErrorBlock(path, "path is a directory")
	}

	content, err := fileContent(file)
	if err != nil {
		f.log.Warnf("Failed to decode %s: %v", path, err)
		return models.NewErrorBlock(path, err.Error())
	}

	f.log.Debugf("Fetched %s (%d bytes)", path, len(content))
	return models.NewFileBlock(path, content)
}

// getFileContents requests a single file through the contents API without
// the client's path guard, which refuses any path containing "..", file
// names like "CHANGELOG..md" included. Dot segments are still refused.
func (f *Fetcher) getFileContents(ctx context.Context, owner, repo, path, ref string) (*github.RepositoryContent, *github.Response, error) {
	segments := strings.Split(path, "/")
	for i, segment := range segments {
		if segment == "." || segment == ".." {
			return nil, nil, fmt.Errorf("path contains a %q segment", segment)
		}
		segments[i] = url.PathEscape(segment)
	}

	u := fmt.Sprintf("repos/%s/%s/contents/%s?ref=%s",
		url.PathEscape(owner), url.PathEscape(repo), strings.Join(segments, "/"), url.QueryEscape(ref))
	req, err := f.client.NewRequest(http.MethodGet, u, nil)
	if err != nil {
		return nil, nil, err
	}

	file := new(github.RepositoryContent)
	resp, err := f.client.Do(ctx, req, file)
	if err != nil {
		return nil, resp, err
	}
	return file, resp, nil
}

// fileContent returns the decoded text of a contents response. The client
// decodes base64 (line wrapped by GitHub) and the result must be UTF-8.
func fileContent(file *github.RepositoryContent) (string, error) {
	content, err := file.GetContent()
	if err != nil {
		return "", fmt.Errorf("decode content: %w", err)
	}
	if !utf8.ValidString(content) {
		return "", fmt.Errorf("content is not valid UTF-8")
	}
	return content, nil
}

// failureReason returns "" for a 200 response, the status code for any
// other response and the error text when no response was received.
func failureReason(resp *github.Response, err error) string {
	if resp != nil && resp.Response != nil && resp.StatusCode != http.StatusOK {
		return fmt.Sprintf("%d", resp.StatusCode)
	}
	if err != nil {
		return err.Error()
	}
	return ""
}

func shortSHA(sha string) string {
	if len(sha) > models.ShortIDLength {
		return sha[:models.ShortIDLength]
	}
	return sha
}
