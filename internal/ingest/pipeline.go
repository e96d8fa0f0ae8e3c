package ingest

import (
	"context"
	"path/filepath"
	"runtime"
	"time"

	"github.com/google/uuid"

	"github.com/flower-explorer/vistool/internal/conf"
	"github.com/flower-explorer/vistool/internal/datastore"
	"github.com/flower-explorer/vistool/internal/errors"
	"github.com/flower-explorer/vistool/internal/logger"
	"github.com/flower-explorer/vistool/internal/observability/metrics"
)

// Options configures a Pipeline.
type Options struct {
	Root            string   // absolute data root
	Cameras         []string // camera folder names
	RawExtensions   []string
	JPEGExtensions  []string
	PositionPattern string
	Workers         int // parallel folder scans, <= 0 means one per CPU
}

// OptionsFromSettings builds pipeline options from the loaded settings.
func OptionsFromSettings(settings *conf.Settings) (Options, error) {
	root, err := settings.DataRoot()
	if err != nil {
		return Options{}, err
	}
	return Options{
		Root:            root,
		Cameras:         settings.Ingest.Cameras,
		RawExtensions:   settings.Ingest.RawExtensions,
		JPEGExtensions:  settings.Ingest.JPEGExtensions,
		PositionPattern: settings.Ingest.PositionPattern,
		Workers:         settings.Ingest.Workers,
	}, nil
}

// Pipeline populates the catalog from the data root.
type Pipeline struct {
	store   datastore.Interface
	opts    Options
	log     logger.Logger
	metrics *metrics.IngestMetrics
}

// NewPipeline creates a pipeline writing to store. log and m may be nil.
func NewPipeline(store datastore.Interface, opts Options, log logger.Logger, m *metrics.IngestMetrics) *Pipeline {
	if log == nil {
		log = logger.NewSlogLogger(nil, logger.LogLevelInfo, nil)
	}
	if opts.Workers <= 0 {
		opts.Workers = runtime.NumCPU()
	}
	return &Pipeline{
		store:   store,
		opts:    opts,
		log:     log.Module("ingest"),
		metrics: m,
	}
}

// flightRow is the projection read back for the position pass
type flightRow struct {
	ID   int64
	Path string
}

// Run ingests the data root. It is safe to run repeatedly over the same tree: flights, cameras and
// images are reused, and stored paths and positions are only ever overwritten with new values.
// Missing position files and empty image sets are reported as warnings, not errors.
func (p *Pipeline) Run(ctx context.Context) (*Report, error) {
	report := &Report{
		RunID:     uuid.New().String(),
		Root:      p.opts.Root,
		StartedAt: time.Now(),
	}
	log := p.log.WithContext(ctx).With(logger.String("run_id", report.RunID))
	log.Info("ingestion started",
		logger.String("root", p.opts.Root),
		logger.Int("workers", p.opts.Workers),
		logger.Time("started_at", report.StartedAt))

	err := p.run(ctx, log, report)
	report.Elapsed = time.Since(report.StartedAt)

	if err != nil {
		p.metrics.RecordRun(metrics.StatusError, report.Elapsed)
		log.Error("ingestion failed", logger.Error(err), logger.Duration("elapsed", report.Elapsed))
		return report, errors.Wrap(err).
			Component("ingest").
			Context("run_id", report.RunID).
			Timing("ingest_run", report.Elapsed).
			Build()
	}

	p.metrics.RecordRun(metrics.StatusSuccess, report.Elapsed)
	log.Info("ingestion finished",
		logger.Int("camera_folders", report.CameraFolders),
		logger.Int("flights_created", report.FlightsCreated),
		logger.Int("raw_files", report.RawFiles),
		logger.Int("jpeg_files", report.JPEGFiles),
		logger.Int("positions_applied", report.PositionsApplied),
		logger.Int("warnings", len(report.Warnings)),
		logger.Duration("elapsed", report.Elapsed))
	return report, nil
}

func (p *Pipeline) run(ctx context.Context, log logger.Logger, report *Report) error {
	folders, unreadable, err := Discover(p.opts.Root, p.opts.Cameras)
	if err != nil {
		return err
	}
	for _, u := range unreadable {
		log.Warn("unreadable directory skipped", logger.String("dir", u.Path), logger.Error(u.Err))
		report.warn(WarnUnreadableDirectory, u.Path, 0, u.Err)
		p.metrics.RecordWarning(WarnUnreadableDirectory)
	}
	report.CameraFolders = len(folders)
	if len(folders) == 0 {
		log.Warn("no camera folders found", logger.String("root", p.opts.Root), logger.Any("cameras", p.opts.Cameras))
	}

	// Walking is read-only and runs in parallel; catalog writes stay sequential.
	files, err := scanFolders(ctx, folders, p.opts.RawExtensions, p.opts.JPEGExtensions, p.opts.Workers)
	if err != nil {
		return err
	}

	flights := make(map[int64]bool)
	cameras := make(map[int64]bool)
	for i, folder := range folders {
		if err := ctx.Err(); err != nil {
			return err
		}
		if err := p.ingestFolder(ctx, log, report, folder, files[i], flights, cameras); err != nil {
			return err
		}
	}
	report.FlightsCreated, report.FlightsReused = tally(flights)
	report.CamerasCreated, report.CamerasReused = tally(cameras)

	if err := p.mergePositions(ctx, log, report); err != nil {
		return err
	}

	counts, err := p.store.TableCounts(ctx)
	if err != nil {
		return err
	}
	for table, n := range counts {
		log.Debug("table rows", logger.String("table", table), logger.Int64("rows", n))
	}
	return nil
}

// ingestFolder registers the flight, the camera and the image files of one camera folder
func (p *Pipeline) ingestFolder(ctx context.Context, log logger.Logger, report *Report, folder CameraFolder,
	files FolderFiles, flights, cameras map[int64]bool) error {
	flightID, created, err := p.store.RegisterFlight(ctx, folder.StudySite(), folder.Date, folder.FlightPath)
	if err != nil {
		return err
	}
	if _, seen := flights[flightID]; !seen {
		flights[flightID] = created
	}

	cameraID, created, err := p.store.RegisterCamera(ctx, folder.Camera)
	if err != nil {
		return err
	}
	if _, seen := cameras[cameraID]; !seen {
		cameras[cameraID] = created
	}

	flog := log.With(
		logger.Int64("flight_id", flightID),
		logger.String("study_site", folder.StudySite()),
		logger.String("date", folder.Date),
		logger.String("camera", folder.Camera))
	p.metrics.RecordCameraFolder(folder.Camera)

	for _, set := range []struct {
		kind  datastore.PathKind
		paths []string
		warn  string
	}{
		{datastore.PathRaw, files.Raw, WarnMissingRawImages},
		{datastore.PathJPG, files.JPEG, WarnMissingJPEGImages},
	} {
		if len(set.paths) == 0 {
			// A camera may legitimately produce a single format
			flog.Info("no images of this type in camera folder",
				logger.String("kind", string(set.kind)),
				logger.String("path", folder.Dir))
			report.warn(set.warn, folder.Dir, flightID, errors.ErrMissingImageSet)
			p.metrics.RecordWarning(set.warn)
			continue
		}

		sightings := make([]datastore.ImagePath, 0, len(set.paths))
		for _, path := range set.paths {
			rel, err := RelativePath(p.opts.Root, path)
			if err != nil {
				return err
			}
			sightings = append(sightings, datastore.ImagePath{
				FlightID: flightID,
				CameraID: cameraID,
				Label:    Label(path),
				Path:     rel,
			})
		}
		if err := p.store.UpsertImagePaths(ctx, set.kind, sightings); err != nil {
			return err
		}

		if set.kind == datastore.PathRaw {
			report.RawFiles += len(sightings)
		} else {
			report.JPEGFiles += len(sightings)
		}
		p.metrics.RecordFiles(string(set.kind), len(sightings))
		flog.Debug("images registered", logger.String("kind", string(set.kind)), logger.Int("count", len(sightings)))
	}
	return nil
}

// mergePositions applies the position file of every catalogued flight
func (p *Pipeline) mergePositions(ctx context.Context, log logger.Logger, report *Report) error {
	rows, err := datastore.QueryRows[flightRow](ctx, p.store, "SELECT id, path FROM flights ORDER BY id")
	if err != nil {
		return err
	}

	for _, flight := range rows {
		if err := ctx.Err(); err != nil {
			return err
		}
		flightDir := filepath.Join(p.opts.Root, filepath.FromSlash(flight.Path))
		flog := log.With(logger.Int64("flight_id", flight.ID), logger.String("path", flightDir))

		path, err := FindPositionFile(flightDir, p.opts.PositionPattern)
		if errors.Is(err, errors.ErrMissingPositionFile) {
			flog.Warn("no camera positions found, positions stay empty")
			report.warn(WarnMissingPositionFile, flightDir, flight.ID, err)
			p.metrics.RecordWarning(WarnMissingPositionFile)
			continue
		}
		if err != nil {
			return err
		}

		table, err := ReadPositionFile(path)
		if err != nil {
			flog.Warn("unreadable camera position file skipped", logger.String("file", path), logger.Error(err))
			report.warn(WarnInvalidPositionFile, path, flight.ID, err)
			p.metrics.RecordWarning(WarnInvalidPositionFile)
			continue
		}

		applied, err := p.store.ApplyPositions(ctx, flight.ID, table.Positions)
		if err != nil {
			return err
		}
		unmatched := len(table.Positions) - applied
		unaligned := len(table.Unaligned)

		report.PositionFiles++
		report.PositionRows += table.Rows()
		report.PositionsApplied += applied
		report.PositionsUnmatched += unmatched
		report.PositionsUnaligned += unaligned
		p.metrics.RecordPositionRows(applied, unmatched, unaligned)

		if unaligned > 0 {
			flog.Debug("camera position rows without estimates",
				logger.String("file", path),
				logger.Any("labels", table.Unaligned))
		}
		flog.Debug("camera positions merged",
			logger.String("file", path),
			logger.Int("rows", table.Rows()),
			logger.Int("applied", applied),
			logger.Int("unaligned", unaligned),
			logger.Int("unmatched", unmatched))
	}
	return nil
}

func tally(seen map[int64]bool) (created, reused int) {
	for _, c := range seen {
		if c {
			created++
		} else {
			reused++
		}
	}
	return created, reused
}
