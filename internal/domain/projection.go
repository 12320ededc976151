package domain

// ValueFormat is a formatting hint for the rendering side.
type ValueFormat string

const (
	FormatCurrency ValueFormat = "currency"
	FormatInteger  ValueFormat = "integer"
)

// ProjectedValue is one y-value of a dataset.
type ProjectedValue struct {
	Value   float64 `json:"value"`
	Display string  `json:"display"`
}

// Dataset is one line of the chart (approved, pending or cancelled).
type Dataset struct {
	Key    string           `json:"key"`
	Label  string           `json:"label"`
	Values []ProjectedValue `json:"values"`
}

// ProjectedSeries is a TimeSeries reshaped for one ViewMode.
type ProjectedSeries struct {
	Mode     ViewMode    `json:"mode"`
	Title    string      `json:"title"`
	Format   ValueFormat `json:"format"`
	Unit     string      `json:"unit,omitempty"`
	Labels   []string    `json:"labels"`
	Datasets []Dataset   `json:"datasets"`
	Empty    bool        `json:"empty"`
}

// MetricCard is one headline number of the metrics snapshot.
type MetricCard struct {
	Key     string      `json:"key"`
	Section string      `json:"section"`
	Label   string      `json:"label"`
	Value   float64     `json:"value"`
	Display string      `json:"display"`
	Format  ValueFormat `json:"format"`
}
