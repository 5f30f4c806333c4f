// Package pipeline runs the building morphology extraction for one city:
// regions, population, footprints, heights, indicators, the spatial join,
// aggregation and export.
package pipeline

import (
	"context"
	"path/filepath"
	"time"

	"github.com/rotisserie/eris"
	"go.uber.org/zap"

	"github.com/sells-group/urban-morph/internal/aggregate"
	"github.com/sells-group/urban-morph/internal/config"
	"github.com/sells-group/urban-morph/internal/export"
	"github.com/sells-group/urban-morph/internal/faults"
	"github.com/sells-group/urban-morph/internal/geo"
	"github.com/sells-group/urban-morph/internal/indicator"
	"github.com/sells-group/urban-morph/internal/model"
	"github.com/sells-group/urban-morph/internal/raster"
	"github.com/sells-group/urban-morph/internal/region"
	"github.com/sells-group/urban-morph/internal/store"
)

// Output file names written under the data output directory.
const (
	RegionInfoFile    = "region2info_building.json"
	BuildingIndexFile = "buildings_index.csv"
	VisualFile        = "visual.geojson"
)

// Runner wires the extraction stages together.
type Runner struct {
	cfg       *config.Config
	opener    raster.Opener
	projector geo.Projector
	calc      indicator.Calculator
	policy    aggregate.Policy
	crs       geo.CRS
	store     store.Store
}

// Result is everything a run produced.
type Result struct {
	RunID     string
	Stats     model.RunStats
	Regions   model.RegionTable
	Records   map[string]export.RegionRecord
	Scaler    export.Scaler
	Buildings []model.Building
	Outputs   []string
}

// New validates the configuration and builds a Runner. st may be nil to skip
// persistence.
func New(cfg *config.Config, opener raster.Opener, projector geo.Projector, st store.Store) (*Runner, error) {
	g, err := geo.NewGeodesic(cfg.Geodesic.Ellipsoid)
	if err != nil {
		return nil, eris.Wrap(err, "pipeline: geodesic model")
	}
	policy, err := aggregate.ParsePolicy(cfg.Pipeline.AssignmentPolicy)
	if err != nil {
		return nil, eris.Wrap(err, "pipeline: assignment policy")
	}
	crs, err := geo.ParseCRS(cfg.Data.RegionCRS)
	if err != nil {
		return nil, eris.Wrap(err, "pipeline: region crs")
	}
	if opener == nil {
		return nil, eris.New("pipeline: raster opener is required")
	}
	if projector == nil {
		projector = geo.BuiltinProjector{}
	}
	return &Runner{
		cfg:       cfg,
		opener:    opener,
		projector: projector,
		calc:      indicator.NewCalculator(g),
		policy:    policy,
		crs:       crs,
		store:     st,
	}, nil
}

// Run executes every stage in order. Any precondition failure (a missing
// input, a zero-area region) aborts the run; per-building failures only drop
// the building.
func (r *Runner) Run(ctx context.Context) (*Result, error) {
	log := zap.L().With(zap.String("city", r.cfg.Data.City))
	log.Info("pipeline: starting run")

	res := &Result{}
	if r.store != nil {
		run, err := r.store.CreateRun(ctx, r.cfg.Data.City)
		if err != nil {
			return nil, eris.Wrap(err, "pipeline: create run")
		}
		res.RunID = run.ID
	}

	err := r.run(ctx, res, log)
	if err == nil && r.store != nil {
		err = r.persist(ctx, res)
	}
	if err != nil {
		if r.store != nil {
			if failErr := r.store.FailRun(context.WithoutCancel(ctx), res.RunID, err); failErr != nil {
				log.Warn("pipeline: failed to record run failure", zap.Error(failErr))
			}
		}
		return nil, err
	}

	log.Info("pipeline: run complete",
		zap.String("run_id", res.RunID),
		zap.Int("regions", res.Stats.Regions),
		zap.Int("buildings_in", res.Stats.BuildingsIn),
		zap.Int("assigned", res.Stats.Assigned),
	)
	return res, nil
}

func (r *Runner) run(ctx context.Context, res *Result, log *zap.Logger) error {
	stage := func(name string, fn func() error) error {
		if err := ctx.Err(); err != nil {
			return eris.Wrapf(err, "pipeline: %s", name)
		}
		start := time.Now()
		err := fn()
		log.Debug("pipeline: stage finished",
			zap.String("stage", name),
			zap.Duration("elapsed", time.Since(start)),
			zap.Error(err),
		)
		return err
	}

	var (
		regions   model.RegionTable
		buildings []model.Building
	)

	if err := stage("regions", func() error {
		var err error
		regions, err = region.Load(r.cfg.Data.RegionPath(), r.crs)
		res.Stats.Regions = regions.Len()
		return err
	}); err != nil {
		return err
	}

	if err := stage("population", func() error {
		var err error
		regions, err = r.population(regions)
		return err
	}); err != nil {
		return err
	}

	if err := stage("footprints", func() error {
		fp, err := region.LoadFootprintsGeoJSON(r.cfg.Data.FootprintPath(), geo.EPSG4326)
		if err != nil {
			return err
		}
		buildings = fp.Buildings
		res.Stats.BuildingsIn = len(fp.Buildings) + fp.Skipped
		res.Stats.SkippedGeometry = fp.Skipped
		return nil
	}); err != nil {
		return err
	}

	if err := stage("heights", func() error {
		var err error
		buildings, err = r.heights(regions, buildings, &res.Stats)
		return err
	}); err != nil {
		return err
	}

	if err := stage("indicators", func() error {
		m, err := Measure(buildings, r.calc)
		if err != nil {
			return err
		}
		buildings = m.Buildings
		res.Stats.DroppedInvalid = m.Invalid
		return nil
	}); err != nil {
		return err
	}

	if err := stage("join", func() error {
		j, err := aggregate.Joiner{Projector: r.projector, Policy: r.policy}.Join(buildings, regions)
		if err != nil {
			return err
		}
		buildings = j.Assigned
		res.Stats.DroppedOutside = j.Outside
		res.Stats.Ambiguous = j.Ambiguous
		res.Stats.DroppedAmbiguous = j.Discarded
		res.Stats.Assigned = len(j.Assigned)
		return nil
	}); err != nil {
		return err
	}

	if err := stage("aggregate", func() error {
		var err error
		regions, err = aggregate.Aggregate(regions, buildings)
		return err
	}); err != nil {
		return err
	}

	if err := stage("export", func() error {
		var err error
		res.Records, res.Scaler, err = export.Records(regions)
		if err != nil {
			return err
		}
		res.Outputs, err = r.write(res.Records, regions, buildings)
		return err
	}); err != nil {
		return err
	}

	res.Regions = regions
	res.Buildings = buildings
	return nil
}

// population sums positive population pixels inside each region.
func (r *Runner) population(regions model.RegionTable) (model.RegionTable, error) {
	path := r.cfg.Data.PopulationFile
	if err := raster.RequireFiles("population raster", path); err != nil {
		return model.RegionTable{}, err
	}
	ts := raster.TileSet{Paths: []string{path}, Opener: r.opener, Projector: r.projector}
	tr, err := ts.Reduce(regions.Shapes(), raster.SumPositive)
	if err != nil {
		return model.RegionTable{}, eris.Wrap(err, "pipeline: population")
	}
	if n := tr.Uncovered(); n > 0 {
		zap.L().Warn("pipeline: regions outside the population raster",
			zap.Int("regions", n),
			zap.Error(faults.ErrRasterExtentMismatch),
		)
	}
	return regions.WithPopulation(tr.Values)
}

// heights takes the max height pixel per building across every tile the
// region extent needs, then drops buildings at or below the minimum height.
func (r *Runner) heights(regions model.RegionTable, buildings []model.Building, stats *model.RunStats) ([]model.Building, error) {
	plan := PlanHeightTiles(r.cfg.Data, r.cfg.Pipeline, regions.Bound())
	if err := raster.RequireFiles("height tile", plan.Paths...); err != nil {
		return nil, err
	}

	shapes := make([]geo.Shape, len(buildings))
	for i, b := range buildings {
		shapes[i] = b.Shape
	}
	ts := raster.TileSet{Paths: plan.Paths, Opener: r.opener, Projector: r.projector}
	tr, err := ts.Reduce(shapes, raster.Max)
	if err != nil {
		return nil, eris.Wrap(err, "pipeline: heights")
	}

	kept := make([]model.Building, 0, len(buildings))
	for i, b := range buildings {
		if !tr.Covered[i] {
			stats.Uncovered++
			zap.L().Debug("building outside height tiles",
				zap.String("building", b.ID),
				zap.Error(faults.ErrRasterExtentMismatch),
			)
		}
		b.Height = tr.Values[i]
		if b.Height <= r.cfg.Pipeline.MinHeight {
			stats.DroppedHeight++
			continue
		}
		kept = append(kept, b)
	}
	zap.L().Info("pipeline: heights extracted",
		zap.Int("tiles", len(plan.Paths)),
		zap.Int("buildings", len(buildings)),
		zap.Int("kept", len(kept)),
		zap.Int("uncovered", stats.Uncovered),
	)
	return kept, nil
}

func (r *Runner) write(records map[string]export.RegionRecord, regions model.RegionTable, buildings []model.Building) ([]string, error) {
	dir := r.cfg.Data.OutputPath()

	info := filepath.Join(dir, RegionInfoFile)
	if err := export.WriteRegionInfo(info, records); err != nil {
		return nil, err
	}
	outputs := []string{info}

	if r.cfg.Pipeline.BuildingIndex {
		path := filepath.Join(dir, BuildingIndexFile)
		if err := export.WriteBuildingIndexFile(path, model.IndexRows(buildings)); err != nil {
			return nil, err
		}
		outputs = append(outputs, path)
	}
	if r.cfg.Pipeline.Visual {
		path := filepath.Join(dir, VisualFile)
		if err := export.WriteVisualLayer(path, regions, buildings); err != nil {
			return nil, err
		}
		outputs = append(outputs, path)
	}
	return outputs, nil
}

func (r *Runner) persist(ctx context.Context, res *Result) error {
	if _, err := r.store.SaveRegions(ctx, res.RunID, res.Records); err != nil {
		return eris.Wrap(err, "pipeline: save regions")
	}
	if _, err := r.store.SaveBuildings(ctx, res.RunID, model.IndexRows(res.Buildings)); err != nil {
		return eris.Wrap(err, "pipeline: save buildings")
	}
	if err := r.store.CompleteRun(ctx, res.RunID, res.Stats); err != nil {
		return eris.Wrap(err, "pipeline: complete run")
	}
	return nil
}
