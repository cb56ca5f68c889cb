package migrate

import (
	"context"
	"fmt"
	"io"
	"log"
	"time"

	"github.com/toothbrush/portal-migrate/apim"
	"github.com/toothbrush/portal-migrate/internal/progress"
	"github.com/toothbrush/portal-migrate/media"
	"github.com/toothbrush/portal-migrate/snapshot"
	"github.com/vbauerster/mpb/v8"
)

// ContentAPI is what the migrator needs from the management API.  *apim.API satisfies it.
type ContentAPI interface {
	ListContentTypes(ctx context.Context) ([]string, error)
	ListContentItems(ctx context.Context, contentType string) ([]apim.ContentItem, error)
	PutContentItem(ctx context.Context, identifier string, body apim.ContentItem) (apim.ContentItem, error)
	MediaSASURL(ctx context.Context) (string, error)
}

// Migrator exports a portal into a snapshot folder, or imports one from it.  Neither direction is
// transactional: whatever was written before a failure stays written.
type Migrator struct {
	cfg   Config
	api   ContentAPI
	media *media.Syncer

	Logger   *log.Logger
	Progress *mpb.Progress

	// Only move content items; leave the media container alone.
	SkipMedia bool
	// Import reads the snapshot and logs what it would write, without writing.
	DryRun bool

	now func() time.Time
}

type Option func(*Migrator)

func WithLogger(l *log.Logger) Option {
	return func(m *Migrator) { m.Logger = l }
}

func WithProgress(p *mpb.Progress) Option {
	return func(m *Migrator) { m.Progress = p }
}

// WithWorkers sets concurrent media transfers; 1 (the default) is sequential.
func WithWorkers(n int) Option {
	return func(m *Migrator) { m.media.Workers = n }
}

// WithOpener replaces how SAS URLs become blob containers.
func WithOpener(open media.Opener) Option {
	return func(m *Migrator) { m.media.Open = open }
}

func WithSkipMedia(skip bool) Option {
	return func(m *Migrator) { m.SkipMedia = skip }
}

func WithDryRun(dry bool) Option {
	return func(m *Migrator) { m.DryRun = dry }
}

func New(cfg Config, api ContentAPI, opts ...Option) (*Migrator, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	if api == nil {
		return nil, fmt.Errorf("migrate: no management API client")
	}

	m := &Migrator{
		cfg:    cfg,
		api:    api,
		media:  media.NewSyncer(api),
		Logger: log.New(io.Discard, "", 0),
		now:    time.Now,
	}
	for _, opt := range opts {
		opt(m)
	}
	if m.Logger == nil {
		m.Logger = log.New(io.Discard, "", 0)
	}
	m.media.Logger = m.Logger
	m.media.Progress = m.Progress

	return m, nil
}

// Summary reports what a run moved.
type Summary struct {
	ContentTypes int
	ContentItems int
	Media        media.Result
}

// Export captures content into data.json, then downloads the media container.
func (m *Migrator) Export(ctx context.Context) (Summary, error) {
	m.Logger.Println("Exporting portal...")

	snap, types, err := m.Capture(ctx)
	if err != nil {
		return Summary{}, err
	}
	summary := Summary{
		ContentTypes: len(types),
		ContentItems: snap.Len(),
	}

	if !m.SkipMedia {
		res, err := m.DownloadMedia(ctx)
		summary.Media = res
		if err != nil {
			return summary, err
		}
	}

	manifest := snapshot.Manifest{
		SubscriptionID:    m.cfg.SubscriptionID,
		ResourceGroupName: m.cfg.ResourceGroupName,
		ServiceName:       m.cfg.ServiceName,
		APIVersion:        apim.APIVersion,
		CapturedAt:        m.now().UTC(),
		ContentTypes:      types,
		ContentItems:      summary.ContentItems,
		MediaFiles:        summary.Media.Files,
		MediaBytes:        summary.Media.Bytes,
		MediaSkipped:      m.SkipMedia,
	}
	if err := snapshot.WriteManifest(m.cfg.SnapshotFolder, manifest); err != nil {
		return summary, err
	}

	m.Logger.Println("Export complete.")
	return summary, nil
}

// Import replays data.json against the service, then uploads local media.
func (m *Migrator) Import(ctx context.Context) (Summary, error) {
	m.Logger.Println("Importing portal...")

	written, err := m.Generate(ctx)
	summary := Summary{ContentItems: written}
	if err != nil {
		return summary, err
	}

	switch {
	case m.SkipMedia:
	case m.DryRun:
		if err := m.logMediaUpload(); err != nil {
			return summary, err
		}
	default:
		res, err := m.UploadMedia(ctx)
		summary.Media = res
		if err != nil {
			return summary, err
		}
	}

	m.Logger.Println("Import complete.")
	return summary, nil
}

// Capture lists every item of every content type and writes them to data.json.  Nothing is written
// unless the whole listing succeeds.
func (m *Migrator) Capture(ctx context.Context) (*snapshot.Snapshot, []string, error) {
	types, err := m.api.ListContentTypes(ctx)
	if err != nil {
		return nil, nil, fmt.Errorf("migrate: capture failed: %w", err)
	}
	m.Logger.Printf("Capturing %d content types...\n", len(types))

	bar := progress.Add(m.Progress, "content types", len(types))
	snap := snapshot.New()
	for _, contentType := range types {
		items, err := m.api.ListContentItems(ctx, contentType)
		if err != nil {
			bar.Abort()
			return nil, nil, fmt.Errorf("migrate: capture failed: %w", err)
		}
		for _, item := range items {
			if _, err := snap.AddItem(item); err != nil {
				bar.Abort()
				return nil, nil, fmt.Errorf("migrate: capture failed for type %s: %w", contentType, err)
			}
		}
		bar.Increment()
	}

	if err := snapshot.Write(m.cfg.SnapshotFolder, snap); err != nil {
		return nil, nil, err
	}
	m.Logger.Printf("...captured %d content items into %s\n", snap.Len(), snapshot.DataPath(m.cfg.SnapshotFolder))

	return snap, types, nil
}

// Generate writes each snapshot entry back with PUT <identifier>, in file order.  It returns how
// many items were written (or would have been, on a dry run).
func (m *Migrator) Generate(ctx context.Context) (int, error) {
	snap, err := snapshot.Read(m.cfg.SnapshotFolder)
	if err != nil {
		return 0, err
	}
	m.Logger.Printf("Replaying %d content items...\n", snap.Len())

	bar := progress.Add(m.Progress, "content items", snap.Len())
	written := 0
	for _, e := range snap.Entries() {
		if m.DryRun {
			m.Logger.Printf("(dry run) PUT %s\n", e.ID)
		} else if _, err := m.api.PutContentItem(ctx, e.ID, e.Body); err != nil {
			bar.Abort()
			return written, fmt.Errorf("migrate: replay failed after %d items: %w", written, err)
		}
		written++
		bar.Increment()
	}

	m.Logger.Printf("...replayed %d content items.\n", written)
	return written, nil
}

func (m *Migrator) DownloadMedia(ctx context.Context) (media.Result, error) {
	res, err := m.media.DownloadAll(ctx, snapshot.MediaPath(m.cfg.SnapshotFolder))
	if err != nil {
		return res, fmt.Errorf("migrate: media download failed: %w", err)
	}
	m.Logger.Printf("...downloaded %d media files (%d bytes).\n", res.Files, res.Bytes)
	return res, nil
}

// logMediaUpload reports what UploadMedia would send, without asking for a SAS URL.
func (m *Migrator) logMediaUpload() error {
	dir := snapshot.MediaPath(m.cfg.SnapshotFolder)
	files, err := media.ListMediaFiles(dir)
	if err != nil {
		return fmt.Errorf("migrate: media listing failed: %w", err)
	}

	var size int64
	for _, f := range files {
		m.Logger.Printf("(dry run) upload %s\n", f.BlobName)
		size += f.Size
	}
	m.Logger.Printf("(dry run) would upload %d media files (%d bytes) from %s\n", len(files), size, dir)
	return nil
}

func (m *Migrator) UploadMedia(ctx context.Context) (media.Result, error) {
	res, err := m.media.UploadAll(ctx, snapshot.MediaPath(m.cfg.SnapshotFolder))
	if err != nil {
		return res, fmt.Errorf("migrate: media upload failed: %w", err)
	}
	m.Logger.Printf("...uploaded %d media files (%d bytes).\n", res.Files, res.Bytes)
	return res, nil
}
