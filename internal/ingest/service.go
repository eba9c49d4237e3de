// Package ingest imports dataset files from uploads, object storage and Google Drive.
package ingest

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"path"
	"strings"

	"github.com/andresuchdata/seller-analytics/internal/domain"
	"github.com/andresuchdata/seller-analytics/internal/drive"
	"github.com/andresuchdata/seller-analytics/internal/loader"
	"github.com/andresuchdata/seller-analytics/internal/storage"
	"github.com/rs/zerolog/log"
	"golang.org/x/sync/errgroup"
)

const syncConcurrency = 4

var ErrSourceNotConfigured = errors.New("import source is not configured")

// Importer persists a validated dataset.
type Importer interface {
	ImportDataset(ctx context.Context, name string, dataset *domain.Dataset) (*domain.DatasetInfo, error)
}

// DriveSource is the part of drive.Service used for imports.
type DriveSource interface {
	GetFile(ctx context.Context, fileID string) (*drive.File, error)
	DownloadFile(ctx context.Context, fileID string, w io.Writer) error
}

type Service struct {
	importer      Importer
	storage       storage.ObjectStorage
	drive         DriveSource
	archivePrefix string
}

// NewService wires the import sources. storage and drive may be nil when not configured.
func NewService(importer Importer, objectStorage storage.ObjectStorage, driveSource DriveSource, archivePrefix string) *Service {
	return &Service{
		importer:      importer,
		storage:       objectStorage,
		drive:         driveSource,
		archivePrefix: archivePrefix,
	}
}

// ImportUpload loads an uploaded file, persists it and, when storage is
// configured, archives the raw bytes under <prefix><dataset id>.<ext>.
func (s *Service) ImportUpload(ctx context.Context, name string, format loader.Format, r io.Reader) (*domain.DatasetInfo, error) {
	raw, err := io.ReadAll(r)
	if err != nil {
		return nil, fmt.Errorf("failed to read upload: %w", err)
	}

	dataset, err := loader.Load(bytes.NewReader(raw), format)
	if err != nil {
		return nil, err
	}

	info, err := s.importer.ImportDataset(ctx, name, dataset)
	if err != nil {
		return nil, err
	}

	if s.storage != nil {
		key := s.archivePrefix + info.ID + "." + string(format)
		if err := s.storage.UploadObject(ctx, key, raw); err != nil {
			log.Warn().Err(err).Str("dataset_id", info.ID).Str("key", key).Msg("ingest: archive upload failed")
		}
	}

	return info, nil
}

// ImportFromStorage imports the object stored under key.
func (s *Service) ImportFromStorage(ctx context.Context, key, name string) (*domain.DatasetInfo, error) {
	if s.storage == nil {
		return nil, ErrSourceNotConfigured
	}

	format, err := loader.DetectFormat(key)
	if err != nil {
		return nil, err
	}

	obj, err := s.storage.OpenObject(ctx, key)
	if err != nil {
		return nil, err
	}
	defer obj.Close()

	dataset, err := loader.Load(obj, format)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", key, err)
	}

	if name == "" {
		name = baseName(key)
	}
	return s.importer.ImportDataset(ctx, name, dataset)
}

// ImportFromDrive downloads a Drive file and imports it.
func (s *Service) ImportFromDrive(ctx context.Context, fileID, name string) (*domain.DatasetInfo, error) {
	if s.drive == nil {
		return nil, ErrSourceNotConfigured
	}

	file, err := s.drive.GetFile(ctx, fileID)
	if err != nil {
		return nil, err
	}

	format, err := loader.DetectFormat(file.Name)
	if err != nil {
		return nil, err
	}

	pr, pw := io.Pipe()
	go func() {
		err := s.drive.DownloadFile(ctx, fileID, pw)
		pw.CloseWithError(err)
	}()
	defer pr.Close()

	dataset, err := loader.Load(pr, format)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", file.Name, err)
	}

	if name == "" {
		name = baseName(file.Name)
	}
	return s.importer.ImportDataset(ctx, name, dataset)
}

// SyncResult is the outcome of importing one object during a sync.
type SyncResult struct {
	Key     string              `json:"key"`
	Dataset *domain.DatasetInfo `json:"dataset,omitempty"`
	Error   string              `json:"error,omitempty"`
}

// SyncPrefix imports every dataset object under prefix. A failing object is
// reported in its result and does not stop the others.
func (s *Service) SyncPrefix(ctx context.Context, prefix string) ([]SyncResult, error) {
	if s.storage == nil {
		return nil, ErrSourceNotConfigured
	}

	objects, err := s.storage.ListObjects(ctx, prefix)
	if err != nil {
		return nil, err
	}

	var keys []string
	for _, obj := range objects {
		if _, err := loader.DetectFormat(obj.Key); err == nil {
			keys = append(keys, obj.Key)
		}
	}

	results := make([]SyncResult, len(keys))
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(syncConcurrency)
	for i, key := range keys {
		i, key := i, key
		g.Go(func() error {
			results[i].Key = key
			info, err := s.ImportFromStorage(gctx, key, "")
			if err != nil {
				log.Error().Err(err).Str("key", key).Msg("ingest: sync import failed")
				results[i].Error = err.Error()
				return nil
			}
			results[i].Dataset = info
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}

	log.Info().Str("prefix", prefix).Int("objects", len(keys)).Msg("ingest: sync finished")
	return results, nil
}

func baseName(key string) string {
	base := path.Base(key)
	return strings.TrimSuffix(base, path.Ext(base))
}
