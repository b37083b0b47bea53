package importer

import (
	"context"
	"encoding/base64"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"slices"
	"strings"
	"time"

	"github.com/Masterminds/semver/v3"
	"golang.org/x/time/rate"

	"github.com/addonsdir/addons-server/internal/domain"
)

const (
	// DefaultGitHubAPIURL is the public GitHub REST endpoint.
	DefaultGitHubAPIURL = "https://api.github.com"

	defaultTimeout = 30 * time.Second
	tagsPerPage    = 100
	maxTagPages    = 10
	manifestFile   = "composer.json"
)

// GitHubConfig configures the GitHub provider.
type GitHubConfig struct {
	APIURL string // Defaults to DefaultGitHubAPIURL
	Token  string // Optional; raises the API rate limit when set
	// RequestsPerSecond and Burst bound outbound calls. Zero means 1/s with burst 5.
	RequestsPerSecond float64
	Burst             int
}

// GitHub is a Provider backed by the GitHub REST API.
type GitHub struct {
	http    *http.Client
	baseURL string
	token   string
	limiter *rate.Limiter
	logger  *slog.Logger
}

var _ Provider = (*GitHub)(nil)

// NewGitHub creates a rate-limited GitHub provider.
func NewGitHub(cfg GitHubConfig, logger *slog.Logger) *GitHub {
	baseURL := strings.TrimRight(cfg.APIURL, "/")
	if baseURL == "" {
		baseURL = DefaultGitHubAPIURL
	}
	rps := cfg.RequestsPerSecond
	if rps <= 0 {
		rps = 1
	}
	burst := cfg.Burst
	if burst <= 0 {
		burst = 5
	}
	if logger == nil {
		logger = slog.Default()
	}

	return &GitHub{
		http:    &http.Client{Timeout: defaultTimeout},
		baseURL: baseURL,
		token:   cfg.Token,
		limiter: rate.NewLimiter(rate.Limit(rps), burst),
		logger:  logger,
	}
}

// Name implements Provider.
func (g *GitHub) Name() string { return "github" }

// IsValidURL implements Provider.
func (g *GitHub) IsValidURL(raw string) bool {
	_, _, ok := parseGitHubURL(raw)
	return ok
}

// NormalizeURL implements Provider.
func (g *GitHub) NormalizeURL(raw string) (string, error) {
	owner, repo, ok := parseGitHubURL(raw)
	if !ok {
		return "", fmt.Errorf("%w: %q", ErrUnsupportedURL, raw)
	}
	return canonicalGitHubURL(owner, repo), nil
}

// NewImporter implements Provider.
func (g *GitHub) NewImporter(normalized string) (Importer, error) {
	owner, repo, ok := parseGitHubURL(normalized)
	if !ok {
		return nil, fmt.Errorf("%w: %q", ErrUnsupportedURL, normalized)
	}
	return &GitHubImporter{
		gh:    g,
		owner: strings.ToLower(owner),
		repo:  strings.ToLower(repo),
	}, nil
}

// get performs a rate-limited GET against the API and decodes JSON into out.
func (g *GitHub) get(ctx context.Context, path string, query url.Values, out any) error {
	if err := g.limiter.Wait(ctx); err != nil {
		return fmt.Errorf("rate limit wait: %w", err)
	}

	u := g.baseURL + path
	if len(query) > 0 {
		u += "?" + query.Encode()
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u, nil)
	if err != nil {
		return fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("Accept", "application/vnd.github+json")
	req.Header.Set("User-Agent", "addons-server")
	if g.token != "" {
		req.Header.Set("Authorization", "Bearer "+g.token)
	}

	g.logger.Debug("github request", "path", path)

	resp, err := g.http.Do(req)
	if err != nil {
		return fmt.Errorf("execute request: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return fmt.Errorf("read response: %w", err)
	}

	switch {
	case resp.StatusCode == http.StatusOK:
	case resp.StatusCode == http.StatusNotFound:
		return ErrNotFound
	case resp.StatusCode == http.StatusTooManyRequests,
		resp.StatusCode == http.StatusForbidden && resp.Header.Get("X-RateLimit-Remaining") == "0":
		return ErrRateLimited
	case resp.StatusCode >= 500:
		return ErrServer
	default:
		return fmt.Errorf("unexpected status %d: %s", resp.StatusCode, string(body))
	}

	if err := json.Unmarshal(body, out); err != nil {
		return fmt.Errorf("parse response: %w", err)
	}
	return nil
}

// GitHubImporter reads a single GitHub repository.
type GitHubImporter struct {
	gh    *GitHub
	owner string
	repo  string
}

var _ Importer = (*GitHubImporter)(nil)

// RepositoryURL implements Importer.
func (i *GitHubImporter) RepositoryURL() string {
	return canonicalGitHubURL(i.owner, i.repo)
}

func (i *GitHubImporter) repoPath() string {
	return "/repos/" + url.PathEscape(i.owner) + "/" + url.PathEscape(i.repo)
}

// Fetch implements Importer.
func (i *GitHubImporter) Fetch(ctx context.Context) (*Metadata, error) {
	var info repoInfo
	if err := i.gh.get(ctx, i.repoPath(), nil, &info); err != nil {
		return nil, fmt.Errorf("fetch %s/%s: %w", i.owner, i.repo, err)
	}

	manifest, _, err := i.manifest(ctx, info.DefaultBranch)
	if err != nil {
		return nil, err
	}

	meta := &Metadata{
		Name:             info.Name,
		ShortDescription: info.Description,
		Repository:       i.RepositoryURL(),
		License:          info.License.spdx(),
	}
	if manifest != nil {
		meta.ComposerName = manifest.Name
		meta.Description = manifest.Description
		if meta.ShortDescription == "" {
			meta.ShortDescription = manifest.Description
		}
		if l := manifest.license(); l != "" {
			meta.License = l
		}
	}
	return meta, nil
}

// ImportVersions implements Importer. Tags that are not semantic versions
// are skipped.
func (i *GitHubImporter) ImportVersions(ctx context.Context) ([]*domain.Version, error) {
	tags, err := i.listTags(ctx)
	if err != nil {
		return nil, err
	}

	byName := make(map[string]repoTag, len(tags))
	names := make([]string, 0, len(tags))
	for _, t := range tags {
		byName[t.Name] = t
		names = append(names, t.Name)
	}

	var defaultLicense string
	versions := make([]*domain.Version, 0, len(names))
	for _, sv := range sortVersionTags(names) {
		tag := byName[sv.Original()]

		manifest, raw, err := i.manifest(ctx, tag.Name)
		if err != nil {
			return nil, err
		}

		v := &domain.Version{
			Version:         tag.Name,
			ComposerJSON:    raw,
			DistType:        "zip",
			DistURL:         tag.ZipballURL,
			SourceType:      "git",
			SourceURL:       i.RepositoryURL() + ".git",
			SourceReference: tag.Commit.SHA,
		}
		if v.DistURL == "" {
			v.DistURL = i.gh.baseURL + i.repoPath() + "/zipball/" + url.PathEscape(tag.Name)
		}
		if manifest != nil {
			v.License = manifest.license()
		}
		if v.License == "" {
			if defaultLicense == "" {
				defaultLicense = i.repoLicense(ctx)
			}
			v.License = defaultLicense
		}
		versions = append(versions, v)
	}

	i.gh.logger.Debug("imported github versions",
		"repository", i.RepositoryURL(),
		"tags", len(tags),
		"versions", len(versions),
	)
	return versions, nil
}

func (i *GitHubImporter) listTags(ctx context.Context) ([]repoTag, error) {
	var all []repoTag
	for page := 1; page <= maxTagPages; page++ {
		q := url.Values{}
		q.Set("per_page", fmt.Sprint(tagsPerPage))
		q.Set("page", fmt.Sprint(page))

		var batch []repoTag
		if err := i.gh.get(ctx, i.repoPath()+"/tags", q, &batch); err != nil {
			return nil, fmt.Errorf("list tags %s/%s: %w", i.owner, i.repo, err)
		}
		all = append(all, batch...)
		if len(batch) < tagsPerPage {
			break
		}
	}
	return all, nil
}

// manifest reads composer.json at ref. A missing file is not an error.
func (i *GitHubImporter) manifest(ctx context.Context, ref string) (*composerManifest, string, error) {
	q := url.Values{}
	if ref != "" {
		q.Set("ref", ref)
	}

	var c contentResponse
	err := i.gh.get(ctx, i.repoPath()+"/contents/"+manifestFile, q, &c)
	if errors.Is(err, ErrNotFound) {
		return nil, "", nil
	}
	if err != nil {
		return nil, "", fmt.Errorf("read %s at %q: %w", manifestFile, ref, err)
	}

	raw, err := c.decode()
	if err != nil {
		return nil, "", fmt.Errorf("decode %s at %q: %w", manifestFile, ref, err)
	}

	var m composerManifest
	if err := json.Unmarshal([]byte(raw), &m); err != nil {
		i.gh.logger.Warn("invalid composer manifest",
			"repository", i.RepositoryURL(),
			"ref", ref,
			"error", err,
		)
		return nil, raw, nil
	}
	return &m, raw, nil
}

func (i *GitHubImporter) repoLicense(ctx context.Context) string {
	var info repoInfo
	if err := i.gh.get(ctx, i.repoPath(), nil, &info); err != nil {
		return ""
	}
	return info.License.spdx()
}

// sortVersionTags returns the tags that parse as semantic versions, newest first.
func sortVersionTags(tags []string) []*semver.Version {
	var versions []*semver.Version
	for _, tag := range tags {
		v, err := semver.NewVersion(tag)
		if err != nil {
			continue
		}
		versions = append(versions, v)
	}

	slices.SortFunc(versions, func(a, b *semver.Version) int {
		return b.Compare(a)
	})
	return versions
}

// Raw API response types.

type repoInfo struct {
	Name          string       `json:"name"`
	FullName      string       `json:"full_name"`
	Description   string       `json:"description"`
	DefaultBranch string       `json:"default_branch"`
	HTMLURL       string       `json:"html_url"`
	License       *repoLicense `json:"license"`
}

type repoLicense struct {
	SPDXID string `json:"spdx_id"`
}

func (l *repoLicense) spdx() string {
	if l == nil || l.SPDXID == "NOASSERTION" {
		return ""
	}
	return l.SPDXID
}

type repoTag struct {
	Name       string `json:"name"`
	ZipballURL string `json:"zipball_url"`
	Commit     struct {
		SHA string `json:"sha"`
	} `json:"commit"`
}

type contentResponse struct {
	Content  string `json:"content"`
	Encoding string `json:"encoding"`
}

func (c *contentResponse) decode() (string, error) {
	if c.Encoding != "base64" {
		return c.Content, nil
	}
	// GitHub wraps base64 content at 60 columns.
	b, err := base64.StdEncoding.DecodeString(strings.ReplaceAll(c.Content, "\n", ""))
	if err != nil {
		return "", err
	}
	return string(b), nil
}

type composerManifest struct {
	Name        string          `json:"name"`
	Description string          `json:"description"`
	License     json.RawMessage `json:"license"`
}

// license returns the manifest license; composer allows a string or a list.
func (m *composerManifest) license() string {
	if len(m.License) == 0 {
		return ""
	}
	var single string
	if err := json.Unmarshal(m.License, &single); err == nil {
		return single
	}
	var list []string
	if err := json.Unmarshal(m.License, &list); err == nil {
		return strings.Join(list, ", ")
	}
	return ""
}
