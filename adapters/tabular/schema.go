package tabular

// Column names of the CDI percentile dataset. The loader fails when any
// of the required columns is absent from the header row.
const (
	ColDailyPercentile = "daily_percentile"
	ColIDSPref         = "IDS_pref"
	ColAgeMo           = "age_mo"
	ColAgeDays         = "CDI.agedays"
	ColMethod          = "method"
	ColGender          = "gender"
	ColLab             = "labid"
	ColSubject         = "subid_unique"
	ColNAE             = "nae"
	ColVocabNWords     = "vocab_nwords"
	ColAgeRange        = "CDI.agerange"

	// Standardized columns added by the preprocessor
	ColZIDSPref = "z_ids_pref"
	ColZAgeMo   = "z_age_mo"
)

// NumericColumns are parsed as float64 with NaN for missing cells
var NumericColumns = []string{
	ColDailyPercentile,
	ColIDSPref,
	ColAgeMo,
	ColAgeDays,
	ColVocabNWords,
}

// LabelColumns stay free-form label values
var LabelColumns = []string{
	ColMethod,
	ColGender,
	ColLab,
	ColSubject,
	ColNAE,
	ColAgeRange,
}

// CategoricalColumns are coerced to a finite level set at load time
var CategoricalColumns = []string{ColAgeRange}

// RequiredColumns returns every column the loader expects in the header
func RequiredColumns() []string {
	cols := make([]string, 0, len(NumericColumns)+len(LabelColumns))
	cols = append(cols, NumericColumns...)
	cols = append(cols, LabelColumns...)
	return cols
}
