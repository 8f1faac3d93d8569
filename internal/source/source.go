// Package source discovers and downloads regulator disclosure archives over HTTP.
package source

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"os"
	"path"
	"path/filepath"
	"sort"
	"strconv"
	"strings"
	"time"

	"golang.org/x/net/html"

	"github.com/leapstack-labs/ansfeed/pkg/core"
	"github.com/leapstack-labs/ansfeed/pkg/period"
)

// Default locations of the regulator's open-data tree.
const (
	DefaultBaseURL     = "https://dadosabertos.ans.gov.br/FTP/PDA/demonstracoes_contabeis"
	DefaultRegistryURL = "https://dadosabertos.ans.gov.br/FTP/PDA/operadoras_de_plano_de_saude_ativas/Relatorio_cadop.csv"
)

const chunkSize = 1 << 20

// ErrNoArtifacts is returned by List when the listing holds no usable archives.
var ErrNoArtifacts = errors.New("no artifacts found")

// Source lists and fetches source artifacts.
type Source interface {
	// List returns artifacts ordered by period, oldest first.
	List(ctx context.Context) ([]core.Artifact, error)
	// Fetch downloads a into dir and returns the local file path.
	Fetch(ctx context.Context, a core.Artifact, dir string) (string, error)
}

// Config configures an HTTPSource.
type Config struct {
	BaseURL         string        `koanf:"base_url"`
	ListTimeout     time.Duration `koanf:"list_timeout"`
	DownloadTimeout time.Duration `koanf:"download_timeout"`
	UserAgent       string        `koanf:"user_agent"`
	// PerYear keeps only the latest PerYear quarters of each year. Zero keeps all.
	PerYear int `koanf:"per_year"`
}

// HTTPSource scrapes year-indexed directory listings.
type HTTPSource struct {
	cfg    Config
	client *http.Client
	logger *slog.Logger
}

// New creates an HTTPSource. Zero config fields take defaults.
func New(cfg Config, client *http.Client, logger *slog.Logger) *HTTPSource {
	if cfg.BaseURL == "" {
		cfg.BaseURL = DefaultBaseURL
	}
	cfg.BaseURL = strings.TrimRight(cfg.BaseURL, "/")
	if cfg.ListTimeout <= 0 {
		cfg.ListTimeout = 60 * time.Second
	}
	if cfg.DownloadTimeout <= 0 {
		cfg.DownloadTimeout = 120 * time.Second
	}
	if client == nil {
		client = http.DefaultClient
	}
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}
	return &HTTPSource{cfg: cfg, client: client, logger: logger}
}

// List walks the base listing for year directories, then each year's
// listing for .zip archives whose name carries a period.
func (s *HTTPSource) List(ctx context.Context) ([]core.Artifact, error) {
	body, err := s.get(ctx, s.cfg.BaseURL+"/")
	if err != nil {
		return nil, fmt.Errorf("list %s: %w", s.cfg.BaseURL, err)
	}
	links, err := parseLinks(body)
	if err != nil {
		return nil, err
	}

	var years []int
	for _, href := range links {
		y := strings.Trim(href, "/")
		if !isDigits(y) {
			continue
		}
		if n, err := strconv.Atoi(y); err == nil {
			years = append(years, n)
		}
	}
	sort.Ints(years)

	var found []core.Artifact
	for _, year := range years {
		dir := strconv.Itoa(year)
		body, err := s.get(ctx, s.cfg.BaseURL+"/"+dir+"/")
		if err != nil {
			s.logger.Warn("failed to list year", slog.Int("year", year), slog.String("error", err.Error()))
			continue
		}
		links, err := parseLinks(body)
		if err != nil {
			s.logger.Warn("failed to parse year listing", slog.Int("year", year), slog.String("error", err.Error()))
			continue
		}
		for _, href := range links {
			if !strings.HasSuffix(strings.ToLower(href), ".zip") {
				continue
			}
			p, ok := period.Extract(path.Base(href))
			if !ok {
				continue
			}
			found = append(found, core.Artifact{Period: p, RemotePath: remotePath(dir, href)})
		}
	}

	found = LatestPerYear(found, s.cfg.PerYear)
	if len(found) == 0 {
		return nil, ErrNoArtifacts
	}
	s.logger.Debug("listed artifacts", slog.Int("count", len(found)))
	return found, nil
}

// LatestPerYear sorts artifacts by period and keeps the newest n of each year.
// n <= 0 keeps everything.
func LatestPerYear(artifacts []core.Artifact, n int) []core.Artifact {
	sorted := make([]core.Artifact, len(artifacts))
	copy(sorted, artifacts)
	sort.SliceStable(sorted, func(i, j int) bool {
		return sorted[i].Period.Before(sorted[j].Period)
	})
	if n <= 0 {
		return sorted
	}

	var out []core.Artifact
	for i := 0; i < len(sorted); {
		j := i
		for j < len(sorted) && sorted[j].Year == sorted[i].Year {
			j++
		}
		start := max(i, j-n)
		out = append(out, sorted[start:j]...)
		i = j
	}
	return out
}

// Fetch downloads a into dir.
func (s *HTTPSource) Fetch(ctx context.Context, a core.Artifact, dir string) (string, error) {
	return s.FetchURL(ctx, s.resolve(a.RemotePath), dir)
}

// FetchURL downloads rawURL into dir, naming the file after the URL's last
// path element. Partial files are removed on failure.
func (s *HTTPSource) FetchURL(ctx context.Context, rawURL, dir string) (string, error) {
	u, err := url.Parse(rawURL)
	if err != nil {
		return "", fmt.Errorf("parse url: %w", err)
	}
	name := path.Base(u.Path)
	if name == "." || name == "/" {
		return "", fmt.Errorf("url %q has no file name", rawURL)
	}
	if err := os.MkdirAll(dir, 0o750); err != nil {
		return "", err
	}

	ctx, cancel := context.WithTimeout(ctx, s.cfg.DownloadTimeout)
	defer cancel()

	resp, err := s.do(ctx, rawURL)
	if err != nil {
		return "", err
	}
	defer func() { _ = resp.Body.Close() }()

	dest := filepath.Join(dir, name)
	f, err := os.Create(dest)
	if err != nil {
		return "", err
	}
	if _, err := io.CopyBuffer(f, resp.Body, make([]byte, chunkSize)); err != nil {
		_ = f.Close()
		_ = os.Remove(dest)
		return "", fmt.Errorf("download %s: %w", rawURL, err)
	}
	if err := f.Close(); err != nil {
		_ = os.Remove(dest)
		return "", err
	}
	return dest, nil
}

func (s *HTTPSource) resolve(remote string) string {
	ref, err := url.Parse(remote)
	if err != nil || ref.IsAbs() {
		return remote
	}
	if strings.HasPrefix(remote, "/") {
		if base, err := url.Parse(s.cfg.BaseURL); err == nil {
			return base.ResolveReference(ref).String()
		}
	}
	return s.cfg.BaseURL + "/" + remote
}

func (s *HTTPSource) get(ctx context.Context, rawURL string) ([]byte, error) {
	ctx, cancel := context.WithTimeout(ctx, s.cfg.ListTimeout)
	defer cancel()

	resp, err := s.do(ctx, rawURL)
	if err != nil {
		return nil, err
	}
	defer func() { _ = resp.Body.Close() }()
	return io.ReadAll(resp.Body)
}

func (s *HTTPSource) do(ctx context.Context, rawURL string) (*http.Response, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, rawURL, nil)
	if err != nil {
		return nil, err
	}
	if s.cfg.UserAgent != "" {
		req.Header.Set("User-Agent", s.cfg.UserAgent)
	}

	resp, err := s.client.Do(req)
	if err != nil {
		return nil, err
	}
	if resp.StatusCode != http.StatusOK {
		_ = resp.Body.Close()
		return nil, fmt.Errorf("GET %s: HTTP %d", rawURL, resp.StatusCode)
	}
	return resp, nil
}

// parseLinks returns the href of every anchor in an HTML document.
func parseLinks(body []byte) ([]string, error) {
	doc, err := html.Parse(bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("parse listing: %w", err)
	}

	var links []string
	var walk func(*html.Node)
	walk = func(n *html.Node) {
		if n.Type == html.ElementNode && n.Data == "a" {
			for _, attr := range n.Attr {
				if attr.Key == "href" && attr.Val != "" {
					links = append(links, attr.Val)
					break
				}
			}
		}
		for c := n.FirstChild; c != nil; c = c.NextSibling {
			walk(c)
		}
	}
	walk(doc)
	return links, nil
}

func remotePath(dir, href string) string {
	if strings.Contains(href, "://") || strings.HasPrefix(href, "/") {
		return href
	}
	return dir + "/" + href
}

func isDigits(s string) bool {
	if s == "" {
		return false
	}
	for _, c := range s {
		if c < '0' || c > '9' {
			return false
		}
	}
	return true
}
