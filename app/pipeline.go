package app

import (
	"context"
	"io"
	"os"
	"time"

	"cdibeta/adapters/tabular"
	"cdibeta/domain/core"
	"cdibeta/domain/model"
	"cdibeta/internal"
	"cdibeta/internal/betareg"
	"cdibeta/internal/config"
	"cdibeta/internal/diagnostics"
	"cdibeta/internal/errors"
	"cdibeta/internal/prepare"
	"cdibeta/internal/report"
	"cdibeta/internal/testkit"
)

// CDIConfig is the concrete model declaration for the infant-directed
// speech preference analysis: daily vocabulary percentile regressed on
// the standardized IDS preference score, with age, testing method,
// North American English status, and age band as moderators, gender as
// an additive covariate, and random intercepts per lab and per subject.
func CDIConfig() model.Config {
	return model.Config{
		Response:     tabular.ColDailyPercentile,
		Predictor:    tabular.ColZIDSPref,
		AgeCovariate: tabular.ColZAgeMo,
		Moderators:   []string{tabular.ColAgeRange, tabular.ColMethod, tabular.ColNAE},
		Covariates:   []string{tabular.ColGender},
		Groups:       []string{tabular.ColLab, tabular.ColSubject},
	}
}

// Pipeline runs one complete analysis: load, preprocess, fit the model
// quartet, diagnose, compare, and print the report. Results live only
// for the duration of the run; nothing is persisted.
type Pipeline struct {
	cfg *config.Config
	log *internal.Logger
	out io.Writer
}

// NewPipeline wires a pipeline to its configuration and output stream
func NewPipeline(cfg *config.Config, out io.Writer) *Pipeline {
	return &Pipeline{cfg: cfg, log: internal.DefaultLogger, out: out}
}

// Run executes the full analysis. A model that fails to converge is
// reported and skipped; the run fails only when loading or
// preprocessing makes every downstream step impossible.
func (p *Pipeline) Run(ctx context.Context) error {
	started := time.Now()
	manifest := model.NewRunManifest(p.cfg.Data.InputFile, p.cfg.Analysis.Seed)
	rep := report.NewWriter(p.out)
	rep.Header(manifest)

	reader := tabular.NewDataReader(p.cfg.Data.InputFile)
	table, err := reader.Read()
	if err != nil {
		return errors.LoadFailed(p.cfg.Data.InputFile, err)
	}
	manifest.RowsLoaded = table.Len()
	p.log.Info("loaded %d rows from %s", table.Len(), p.cfg.Data.InputFile)

	mc := CDIConfig()
	quartet := mc.Quartet()

	// The full model references every variable any quartet member uses,
	// so one complete-case pass serves all four fits identically.
	prepared, err := prepare.Prepare(table, quartet[0].Variables())
	if err != nil {
		return errors.Wrap(err, "preprocessing failed")
	}
	manifest.RowsModeled = prepared.RowsOut
	manifest.Rescaled = prepared.Rescaled
	rep.Preprocessing(prepared)

	fits := make(map[string]*model.Fit, len(quartet))
	for _, spec := range quartet {
		fit, err := betareg.Fit(spec, prepared.Table)
		if err != nil {
			manifest.ModelsFailed++
			p.log.Error("model %s failed: %v", spec.Name, err)
			rep.ModelFailed(spec, err)
			continue
		}
		manifest.ModelsFit++
		fits[spec.Name] = fit
		rep.Model(fit, diagnostics.Summarize(fit))
	}
	if len(fits) == 0 {
		return errors.NoConvergence("all", core.ErrNotConverged)
	}

	p.diagnose(rep, quartet, prepared, fits)
	p.compare(rep, fits)

	if p.cfg.Analysis.RunStability {
		if err := p.stability(ctx, rep, prepared, fits); err != nil {
			return errors.Wrap(err, "stability check failed")
		}
	}

	manifest.RuntimeMs = time.Since(started).Milliseconds()
	rep.Footer(manifest)
	return nil
}

// diagnose prints the advisory checks: overdispersion for every fitted
// model, collinearity and random-effects normality for the full model.
func (p *Pipeline) diagnose(rep *report.Writer, quartet []model.Spec, prepared *prepare.Prepared, fits map[string]*model.Fit) {
	rep.OverdispersionHeader()
	for _, spec := range quartet {
		if fit, ok := fits[spec.Name]; ok {
			rep.Overdispersion(diagnostics.Overdispersion(fit))
		}
	}

	if fit, ok := fits[model.ModelFull]; ok {
		entries, err := diagnostics.VIF(fit.Spec, prepared.Table)
		if err != nil {
			p.log.Warn("VIF not computed: %v", err)
		} else {
			rep.VIF(entries)
		}
		rep.Normality(diagnostics.RandomEffectsNormality(fit))
	}
}

// comparisonPairs lists the nested pairs tested, null first
var comparisonPairs = [][2]string{
	{model.ModelNull, model.ModelFull},
	{model.ModelNullNoInt, model.ModelFullNoInt},
}

// compare runs the likelihood-ratio tests between the nested pairs
func (p *Pipeline) compare(rep *report.Writer, fits map[string]*model.Fit) {
	rep.ComparisonHeader()
	for _, pair := range comparisonPairs {
		null, okNull := fits[pair[0]]
		full, okFull := fits[pair[1]]
		if !okNull || !okFull {
			rep.ComparisonFailed(pair[0], pair[1], core.ErrNotConverged)
			continue
		}
		cmp, err := diagnostics.LikelihoodRatio(null, full)
		if err != nil {
			p.log.Error("comparison %s vs %s failed: %v", pair[0], pair[1], err)
			rep.ComparisonFailed(pair[0], pair[1], err)
			continue
		}
		rep.Comparison(cmp)
	}
}

// stability runs the group-drop sensitivity check on the full model
func (p *Pipeline) stability(ctx context.Context, rep *report.Writer, prepared *prepare.Prepared, fits map[string]*model.Fit) error {
	fit, ok := fits[model.ModelFull]
	if !ok {
		p.log.Warn("stability check skipped: full model did not converge")
		return nil
	}
	sr, err := diagnostics.GroupDropStability(ctx, fit.Spec, prepared.Table, fit, diagnostics.StabilityOptions{
		MaxParallel: p.cfg.Analysis.MaxParallel,
		FitOptions:  betareg.DefaultOptions(),
	})
	if err != nil {
		return err
	}
	rep.Stability(sr)
	return nil
}

// Simulate writes a synthetic dataset to path in the loader's CSV
// format, for pipeline rehearsal and power exploration.
func Simulate(path string, gen testkit.GeneratorConfig) error {
	t := testkit.GenerateCDITable(gen)
	if err := os.WriteFile(path, testkit.WriteCSV(t), 0o644); err != nil {
		return errors.Wrap(err, "writing simulated dataset")
	}
	internal.DefaultLogger.Info("wrote %d simulated rows to %s", t.Len(), path)
	return nil
}
