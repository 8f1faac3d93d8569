package pipeline

import "path/filepath"

// Outputs names the files a run writes under a working directory.
type Outputs struct {
	WorkDir string
}

// ExpensesDir holds every dataset written by the pipeline and is the
// directory that gets packaged.
func (o Outputs) ExpensesDir() string { return filepath.Join(o.WorkDir, "expenses") }

// ConsolidatedPath is the consolidated dataset, also used as the cache file.
func (o Outputs) ConsolidatedPath() string {
	return filepath.Join(o.ExpensesDir(), "consolidated_expenses.csv")
}

// ValidPath is the valid partition.
func (o Outputs) ValidPath() string {
	return filepath.Join(o.ExpensesDir(), "valid", "valid_expenses.csv")
}

// NegativePath is the negative amount partition.
func (o Outputs) NegativePath() string {
	return filepath.Join(o.ExpensesDir(), "invalid", "negative_amount.csv")
}

// ZeroPath is the zero amount partition.
func (o Outputs) ZeroPath() string {
	return filepath.Join(o.ExpensesDir(), "invalid", "zero_amount.csv")
}

// InvalidTaxIDPath is the invalid tax id partition.
func (o Outputs) InvalidTaxIDPath() string {
	return filepath.Join(o.ExpensesDir(), "invalid", "invalid_tax_id.csv")
}

// PackagePath is the zip of ExpensesDir. It lives outside that directory.
func (o Outputs) PackagePath() string {
	return filepath.Join(o.WorkDir, "consolidated_expenses.zip")
}
