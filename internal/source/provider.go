// Package source resolves the local paths of the GeoNames dump files a run reads.
package source

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/alexivanou/geonames-sync/internal/config"
	"go.uber.org/zap"
)

// Provider returns the local path of every dataset a run may need.
type Provider interface {
	AllCountries(ctx context.Context) (string, error)
	CountryInfo(ctx context.Context) (string, error)
	DailyModifications(ctx context.Context) (string, error)
	DailyDeletes(ctx context.Context) (string, error)
	AlternateNames(ctx context.Context) (string, error)
	AlternateNamesModifications(ctx context.Context) (string, error)
	AlternateNamesDeletes(ctx context.Context) (string, error)
	// Cleanup removes files the provider created.
	Cleanup() error
}

// File names published by download.geonames.org. Daily files carry the date
// of the previous day.
const (
	allCountriesFile   = "allCountries"
	countryInfoFile    = "countryInfo.txt"
	alternateNamesFile = "alternateNamesV2"
	dateLayout         = "2006-01-02"
)

func modificationsFile(day time.Time) string {
	return "modifications-" + day.Format(dateLayout) + ".txt"
}

func deletesFile(day time.Time) string {
	return "deletes-" + day.Format(dateLayout) + ".txt"
}

func alternateNamesModificationsFile(day time.Time) string {
	return "alternateNamesModifications-" + day.Format(dateLayout) + ".txt"
}

func alternateNamesDeletesFile(day time.Time) string {
	return "alternateNamesDeletes-" + day.Format(dateLayout) + ".txt"
}

// yesterday returns the UTC date the daily files of now refer to.
func yesterday(now time.Time) time.Time {
	return now.UTC().AddDate(0, 0, -1)
}

// Directory reads files already present in Dir.
type Directory struct {
	Dir string
	Now func() time.Time
}

// NewDirectory creates a Directory provider rooted at dir.
func NewDirectory(dir string) *Directory {
	return &Directory{Dir: dir, Now: time.Now}
}

func (d *Directory) AllCountries(context.Context) (string, error) {
	return d.firstExisting(allCountriesFile+".zip", allCountriesFile+".txt")
}

func (d *Directory) CountryInfo(context.Context) (string, error) {
	return d.firstExisting(countryInfoFile)
}

func (d *Directory) DailyModifications(context.Context) (string, error) {
	return d.firstExisting(modificationsFile(yesterday(d.Now())))
}

func (d *Directory) DailyDeletes(context.Context) (string, error) {
	return d.firstExisting(deletesFile(yesterday(d.Now())))
}

func (d *Directory) AlternateNames(context.Context) (string, error) {
	return d.firstExisting(alternateNamesFile+".zip", alternateNamesFile+".txt")
}

func (d *Directory) AlternateNamesModifications(context.Context) (string, error) {
	return d.firstExisting(alternateNamesModificationsFile(yesterday(d.Now())))
}

func (d *Directory) AlternateNamesDeletes(context.Context) (string, error) {
	return d.firstExisting(alternateNamesDeletesFile(yesterday(d.Now())))
}

// Cleanup never removes files it did not create.
func (d *Directory) Cleanup() error {
	return nil
}

func (d *Directory) firstExisting(names ...string) (string, error) {
	for _, name := range names {
		path := filepath.Join(d.Dir, name)
		if _, err := os.Stat(path); err == nil {
			return path, nil
		}
	}
	return "", fmt.Errorf("%s not found in %s: %w", names[0], d.Dir, os.ErrNotExist)
}

// Overrides returns explicit paths where set and defers to Base otherwise.
type Overrides struct {
	Base                      Provider
	AllCountriesPath          string
	CountryInfoPath           string
	DailyModificationsPath    string
	DailyDeletesPath          string
	AlternateNamesPath        string
	AlternateNamesModsPath    string
	AlternateNamesDeletesPath string
}

func (o *Overrides) pick(ctx context.Context, path string, fallback func(context.Context) (string, error)) (string, error) {
	if path == "" {
		return fallback(ctx)
	}
	if _, err := os.Stat(path); err != nil {
		return "", fmt.Errorf("source file %s: %w", path, err)
	}
	return path, nil
}

func (o *Overrides) AllCountries(ctx context.Context) (string, error) {
	return o.pick(ctx, o.AllCountriesPath, o.Base.AllCountries)
}

func (o *Overrides) CountryInfo(ctx context.Context) (string, error) {
	return o.pick(ctx, o.CountryInfoPath, o.Base.CountryInfo)
}

func (o *Overrides) DailyModifications(ctx context.Context) (string, error) {
	return o.pick(ctx, o.DailyModificationsPath, o.Base.DailyModifications)
}

func (o *Overrides) DailyDeletes(ctx context.Context) (string, error) {
	return o.pick(ctx, o.DailyDeletesPath, o.Base.DailyDeletes)
}

func (o *Overrides) AlternateNames(ctx context.Context) (string, error) {
	return o.pick(ctx, o.AlternateNamesPath, o.Base.AlternateNames)
}

func (o *Overrides) AlternateNamesModifications(ctx context.Context) (string, error) {
	return o.pick(ctx, o.AlternateNamesModsPath, o.Base.AlternateNamesModifications)
}

func (o *Overrides) AlternateNamesDeletes(ctx context.Context) (string, error) {
	return o.pick(ctx, o.AlternateNamesDeletesPath, o.Base.AlternateNamesDeletes)
}

func (o *Overrides) Cleanup() error {
	return o.Base.Cleanup()
}

// FromConfig builds the provider described by cfg: the local directory, or a
// Downloader writing into it when downloads are enabled.
func FromConfig(cfg config.SourceConfig, logger *zap.Logger) (Provider, error) {
	if !cfg.Download {
		return NewDirectory(cfg.Dir), nil
	}
	return NewDownloader(DownloaderConfig{
		BaseURL:    cfg.BaseURL,
		Dir:        cfg.Dir,
		KeepFiles:  cfg.KeepFiles,
		MaxRetries: 3,
		Timeout:    time.Hour,
	}, logger)
}
