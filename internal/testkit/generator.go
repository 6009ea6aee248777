package testkit

import (
	"fmt"
	"math"
	"math/rand/v2"

	"gonum.org/v1/gonum/stat/distuv"

	"cdibeta/adapters/tabular"
)

// GeneratorConfig controls the synthetic CDI dataset. All randomness
// flows from Seed, so identical configs produce identical tables.
type GeneratorConfig struct {
	Labs           int
	SubjectsPerLab int
	ObsPerSubject  int
	Effect         float64 // true predictor effect on the logit scale
	AgeEffect      float64
	Dispersion     float64
	LabSD          float64
	SubjectSD      float64
	Seed           int64
}

// DefaultGeneratorConfig returns a moderate dataset: enough labs for
// the normality check, repeated measurements per subject so the
// subject-level intercept is identified.
func DefaultGeneratorConfig() GeneratorConfig {
	return GeneratorConfig{
		Labs:           12,
		SubjectsPerLab: 8,
		ObsPerSubject:  5,
		Effect:         0,
		AgeEffect:      0.4,
		Dispersion:     30,
		LabSD:          0.3,
		SubjectSD:      0.4,
		Seed:           42,
	}
}

// GenerateCDITable builds a synthetic dataset on the raw percentile
// scale (0-100) with the full loader schema, suitable for feeding
// straight into the preprocessing and fitting pipeline.
func GenerateCDITable(cfg GeneratorConfig) *tabular.Table {
	src := rand.NewPCG(uint64(cfg.Seed), uint64(cfg.Seed)>>1)
	rng := rand.New(src)
	labNormal := distuv.Normal{Mu: 0, Sigma: cfg.LabSD, Src: src}
	subjNormal := distuv.Normal{Mu: 0, Sigma: cfg.SubjectSD, Src: src}

	n := cfg.Labs * cfg.SubjectsPerLab * cfg.ObsPerSubject

	percentile := make([]float64, 0, n)
	idsPref := make([]float64, 0, n)
	ageMo := make([]float64, 0, n)
	ageDays := make([]float64, 0, n)
	vocab := make([]float64, 0, n)
	method := make([]string, 0, n)
	gender := make([]string, 0, n)
	labid := make([]string, 0, n)
	subid := make([]string, 0, n)
	nae := make([]string, 0, n)
	agerange := make([]string, 0, n)

	baseline := math.Log(0.3 / 0.7)

	for lab := 0; lab < cfg.Labs; lab++ {
		labName := fmt.Sprintf("lab%02d", lab+1)
		labEffect := labNormal.Rand()
		labMethod := "cdi_form"
		if lab%2 == 1 {
			labMethod = "interview"
		}
		labNAE := "nae"
		if lab%3 == 2 {
			labNAE = "non-nae"
		}

		for s := 0; s < cfg.SubjectsPerLab; s++ {
			subName := fmt.Sprintf("%s-s%03d", labName, s+1)
			subEffect := subjNormal.Rand()

			age := 12 + 12*rng.Float64()
			band := "12-18"
			if age >= 18 {
				band = "18-24"
			}
			sex := "F"
			if rng.Float64() < 0.5 {
				sex = "M"
			}
			ids := 0.5 + 0.2*rng.NormFloat64()
			zIDS := (ids - 0.5) / 0.2
			zAge := (age - 18) / 3.46 // uniform(12,24) moments

			for o := 0; o < cfg.ObsPerSubject; o++ {
				eta := baseline + cfg.AgeEffect*zAge + cfg.Effect*zIDS + labEffect + subEffect
				mu := 1 / (1 + math.Exp(-eta))
				mu = math.Min(math.Max(mu, 1e-4), 1-1e-4)

				beta := distuv.Beta{Alpha: mu * cfg.Dispersion, Beta: (1 - mu) * cfg.Dispersion, Src: src}
				y := beta.Rand()
				y = math.Min(math.Max(y, 1e-4), 1-1e-4)

				percentile = append(percentile, y*100)
				idsPref = append(idsPref, ids)
				ageMo = append(ageMo, age)
				ageDays = append(ageDays, age*30.44)
				vocab = append(vocab, math.Floor(y*680))
				method = append(method, labMethod)
				gender = append(gender, sex)
				labid = append(labid, labName)
				subid = append(subid, subName)
				nae = append(nae, labNAE)
				agerange = append(agerange, band)
			}
		}
	}

	t := tabular.NewTable(n)
	t.SetNumeric(tabular.ColDailyPercentile, percentile)
	t.SetNumeric(tabular.ColIDSPref, idsPref)
	t.SetNumeric(tabular.ColAgeMo, ageMo)
	t.SetNumeric(tabular.ColAgeDays, ageDays)
	t.SetNumeric(tabular.ColVocabNWords, vocab)
	t.SetLabels(tabular.ColMethod, method)
	t.SetLabels(tabular.ColGender, gender)
	t.SetLabels(tabular.ColLab, labid)
	t.SetLabels(tabular.ColSubject, subid)
	t.SetLabels(tabular.ColNAE, nae)
	t.SetLabels(tabular.ColAgeRange, agerange)
	t.Coerce(tabular.ColAgeRange)
	return t
}

// WriteCSV renders the table in the loader's delimited format, mainly
// for the simulate command and loader round-trip tests.
func WriteCSV(t *tabular.Table) []byte {
	cols := tabular.RequiredColumns()
	var out []byte
	for i, c := range cols {
		if i > 0 {
			out = append(out, ',')
		}
		out = append(out, c...)
	}
	out = append(out, '\n')
	for i := 0; i < t.Len(); i++ {
		for j, c := range cols {
			if j > 0 {
				out = append(out, ',')
			}
			if v, ok := t.Numeric[c]; ok {
				if !math.IsNaN(v[i]) {
					out = append(out, fmt.Sprintf("%g", v[i])...)
				}
			} else {
				out = append(out, t.Labels[c][i]...)
			}
		}
		out = append(out, '\n')
	}
	return out
}
