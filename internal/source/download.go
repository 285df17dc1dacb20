package source

import (
	"archive/zip"
	"context"
	"fmt"
	"io"
	"net/http"
	"os"
	"path/filepath"
	"strings"
	"time"

	"go.uber.org/zap"
)

// DownloaderConfig configures a Downloader. Zero values get defaults.
type DownloaderConfig struct {
	BaseURL        string
	Dir            string
	KeepFiles      bool
	MaxRetries     int
	InitialBackoff time.Duration
	MaxBackoff     time.Duration
	Timeout        time.Duration
	Client         *http.Client
}

// Downloader fetches dump files over HTTP into a working directory and
// extracts zip archives next to them.
type Downloader struct {
	baseURL        string
	dir            string
	ownsDir        bool
	keepFiles      bool
	maxRetries     int
	initialBackoff time.Duration
	maxBackoff     time.Duration
	client         *http.Client
	logger         *zap.Logger
	now            func() time.Time
	created        []string
}

// NewDownloader creates a Downloader. Without Dir a temporary directory is
// used and removed by Cleanup.
func NewDownloader(cfg DownloaderConfig, logger *zap.Logger) (*Downloader, error) {
	if cfg.BaseURL == "" {
		return nil, fmt.Errorf("download: base URL is required")
	}
	if cfg.MaxRetries < 0 {
		cfg.MaxRetries = 0
	}
	if cfg.InitialBackoff <= 0 {
		cfg.InitialBackoff = 500 * time.Millisecond
	}
	if cfg.MaxBackoff <= 0 {
		cfg.MaxBackoff = 30 * time.Second
	}
	client := cfg.Client
	if client == nil {
		client = &http.Client{Timeout: cfg.Timeout}
	}

	d := &Downloader{
		baseURL:        strings.TrimSuffix(cfg.BaseURL, "/") + "/",
		dir:            cfg.Dir,
		keepFiles:      cfg.KeepFiles,
		maxRetries:     cfg.MaxRetries,
		initialBackoff: cfg.InitialBackoff,
		maxBackoff:     cfg.MaxBackoff,
		client:         client,
		logger:         logger,
		now:            time.Now,
	}

	if d.dir == "" {
		dir, err := os.MkdirTemp("", "geonames-")
		if err != nil {
			return nil, fmt.Errorf("download: create work dir: %w", err)
		}
		d.dir = dir
		d.ownsDir = true
	} else if err := os.MkdirAll(d.dir, 0o755); err != nil {
		return nil, fmt.Errorf("download: create %s: %w", d.dir, err)
	}
	return d, nil
}

func (d *Downloader) AllCountries(ctx context.Context) (string, error) {
	return d.fetchZip(ctx, allCountriesFile+".zip")
}

func (d *Downloader) CountryInfo(ctx context.Context) (string, error) {
	return d.fetch(ctx, countryInfoFile)
}

func (d *Downloader) DailyModifications(ctx context.Context) (string, error) {
	return d.fetch(ctx, modificationsFile(yesterday(d.now())))
}

func (d *Downloader) DailyDeletes(ctx context.Context) (string, error) {
	return d.fetch(ctx, deletesFile(yesterday(d.now())))
}

func (d *Downloader) AlternateNames(ctx context.Context) (string, error) {
	return d.fetchZip(ctx, alternateNamesFile+".zip")
}

func (d *Downloader) AlternateNamesModifications(ctx context.Context) (string, error) {
	return d.fetch(ctx, alternateNamesModificationsFile(yesterday(d.now())))
}

func (d *Downloader) AlternateNamesDeletes(ctx context.Context) (string, error) {
	return d.fetch(ctx, alternateNamesDeletesFile(yesterday(d.now())))
}

// Cleanup removes downloaded and extracted files unless files are kept.
func (d *Downloader) Cleanup() error {
	if d.keepFiles {
		return nil
	}
	if d.ownsDir {
		return os.RemoveAll(d.dir)
	}
	var firstErr error
	for _, path := range d.created {
		if err := os.Remove(path); err != nil && !os.IsNotExist(err) && firstErr == nil {
			firstErr = err
		}
	}
	d.created = nil
	return firstErr
}

// Dir returns the working directory.
func (d *Downloader) Dir() string {
	return d.dir
}

func (d *Downloader) fetchZip(ctx context.Context, name string) (string, error) {
	archive, err := d.fetch(ctx, name)
	if err != nil {
		return "", err
	}

	txt, err := extract(archive, d.dir)
	if err != nil {
		return "", err
	}
	d.created = append(d.created, txt)
	d.logger.Info("Extracted archive", zap.String("archive", name), zap.String("file", filepath.Base(txt)))
	return txt, nil
}

func (d *Downloader) fetch(ctx context.Context, name string) (string, error) {
	path := filepath.Join(d.dir, name)
	if d.keepFiles {
		if _, err := os.Stat(path); err == nil {
			d.logger.Info("Using previously downloaded file", zap.String("file", name))
			return path, nil
		}
	}

	url := d.baseURL + name
	var lastErr error
	for attempt := 0; attempt <= d.maxRetries; attempt++ {
		if err := ctx.Err(); err != nil {
			return "", err
		}

		retryable, err := d.download(ctx, url, path)
		if err == nil {
			d.created = append(d.created, path)
			d.logger.Info("Downloaded file", zap.String("url", url))
			return path, nil
		}
		lastErr = err
		if !retryable || attempt == d.maxRetries {
			break
		}

		wait := backoff(d.initialBackoff, attempt, d.maxBackoff)
		d.logger.Warn("Download failed, retrying",
			zap.String("url", url),
			zap.Int("attempt", attempt+1),
			zap.Duration("backoff", wait),
			zap.Error(err),
		)
		if err := sleepWithContext(ctx, wait); err != nil {
			return "", err
		}
	}
	return "", lastErr
}

// download writes url to path. A partial file is removed on failure.
func (d *Downloader) download(ctx context.Context, url, path string) (retryable bool, err error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return false, fmt.Errorf("HTTP GET %s: %w", url, err)
	}

	resp, err := d.client.Do(req)
	if err != nil {
		return true, fmt.Errorf("HTTP GET %s: %w", url, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return isRetryableStatus(resp.StatusCode), fmt.Errorf("HTTP GET %s: status %d", url, resp.StatusCode)
	}

	out, err := os.Create(path)
	if err != nil {
		return false, fmt.Errorf("creating file %s: %w", path, err)
	}

	success := false
	defer func() {
		out.Close()
		if !success {
			os.Remove(path)
		}
	}()

	if _, err := io.Copy(out, resp.Body); err != nil {
		return true, fmt.Errorf("writing file %s: %w", path, err)
	}
	if err := out.Close(); err != nil {
		return false, fmt.Errorf("closing file %s: %w", path, err)
	}
	success = true
	return false, nil
}

// extract writes the text entry of archive into dir and returns its path.
func extract(archive, dir string) (string, error) {
	r, err := zip.OpenReader(archive)
	if err != nil {
		return "", fmt.Errorf("failed to open zip %s: %w", filepath.Base(archive), err)
	}
	defer r.Close()

	want := strings.TrimSuffix(filepath.Base(archive), filepath.Ext(archive)) + ".txt"
	var entry *zip.File
	for _, f := range r.File {
		name := filepath.Base(f.Name)
		if strings.EqualFold(name, want) {
			entry = f
			break
		}
		if entry == nil && strings.HasSuffix(name, ".txt") {
			entry = f
		}
	}
	if entry == nil {
		return "", fmt.Errorf("no txt file found in zip %s", filepath.Base(archive))
	}

	src, err := entry.Open()
	if err != nil {
		return "", fmt.Errorf("failed to open file in zip: %w", err)
	}
	defer src.Close()

	path := filepath.Join(dir, filepath.Base(entry.Name))
	out, err := os.Create(path)
	if err != nil {
		return "", fmt.Errorf("creating file %s: %w", path, err)
	}
	if _, err := io.Copy(out, src); err != nil {
		out.Close()
		os.Remove(path)
		return "", fmt.Errorf("extracting %s: %w", entry.Name, err)
	}
	if err := out.Close(); err != nil {
		return "", fmt.Errorf("closing file %s: %w", path, err)
	}
	return path, nil
}

func isRetryableStatus(code int) bool {
	return code == http.StatusTooManyRequests || code >= 500
}

func backoff(initial time.Duration, attempt int, max time.Duration) time.Duration {
	d := initial << attempt
	if d <= 0 || d > max {
		return max
	}
	return d
}

// sleepWithContext waits for d or until ctx is done, whichever comes first.
func sleepWithContext(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return ctx.Err()
	}
	timer := time.NewTimer(d)
	defer timer.Stop()

	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}
