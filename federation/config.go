package federation

import (
	"errors"
	"io"
	"math"
	"os"
	"strconv"

	"github.com/hupe1980/nodulefed/candidate"
	"github.com/hupe1980/nodulefed/internal/table"
)

// Row is one client's share of each class.
type Row struct {
	ClientID    string
	Class0Ratio float64
	Class1Ratio float64
}

// Ratio returns the ratio for label l.
func (r Row) Ratio(l candidate.Label) float64 {
	if l == candidate.Class1 {
		return r.Class1Ratio
	}
	return r.Class0Ratio
}

// Config is the ordered client table. Row order is client index order.
type Config struct {
	Rows []Row
}

// NumClients returns the number of rows.
func (c Config) NumClients() int { return len(c.Rows) }

var configFields = [...]string{"clientId", "class0Ratio", "class1Ratio"}

// ConfigSource names a config read through LoadConfig in its ParseErrors.
const ConfigSource = "federation config"

// LoadConfig reads a header row followed by clientId,class0Ratio,class1Ratio
// rows. A malformed row fails the whole load with a *candidate.ParseError.
// Ratio ranges are checked later by Validate.
func LoadConfig(r io.Reader) (Config, error) {
	return loadConfig(ConfigSource, r)
}

// LoadConfigFile reads a configuration from path. ParseErrors name path as
// their source.
func LoadConfigFile(path string) (Config, error) {
	f, err := os.Open(path)
	if err != nil {
		return Config{}, err
	}
	defer f.Close()
	return loadConfig(path, f)
}

func loadConfig(source string, r io.Reader) (Config, error) {
	var cfg Config
	err := table.Read(r, table.Options{Columns: len(configFields), Header: true}, func(line int, f []string) error {
		row := Row{ClientID: f[0]}
		for i, dst := range []*float64{&row.Class0Ratio, &row.Class1Ratio} {
			v, err := strconv.ParseFloat(f[i+1], 64)
			if err != nil {
				return candidate.NewParseError(source, line, i+1, err)
			}
			*dst = v
		}
		cfg.Rows = append(cfg.Rows, row)
		return nil
	})
	if err != nil {
		var te *table.Error
		if errors.As(err, &te) {
			return Config{}, candidate.NewParseError(source, te.Line, te.Column, te.Err)
		}
		return Config{}, err
	}
	return cfg, nil
}

// Validate checks that cfg has at least one row, that every ratio is a finite
// number in [0,1] and that totals are non-negative. Ratio sums are not
// checked: clients may share or leave samples unallocated.
func Validate(cfg Config, totals candidate.Totals) error {
	if len(cfg.Rows) == 0 {
		return ErrNoClients
	}
	for _, l := range candidate.Labels {
		if n := totals.Of(l); n < 0 {
			return NewConfigError(-1, "total"+l.String(), strconv.Itoa(n), ErrNegativeTotal)
		}
	}
	for c, row := range cfg.Rows {
		for i, l := range candidate.Labels {
			v := row.Ratio(l)
			if math.IsNaN(v) || v < 0 || v > 1 {
				return NewConfigError(c, configFields[i+1], strconv.FormatFloat(v, 'g', -1, 64), ErrRatioRange)
			}
		}
	}
	return nil
}

// Quota is the number of samples of each class a client asks for.
type Quota struct {
	Class0 int `json:"class0"`
	Class1 int `json:"class1"`
}

// Of returns the quota for label l.
func (q Quota) Of(l candidate.Label) int {
	if l == candidate.Class1 {
		return q.Class1
	}
	return q.Class0
}

// ClientQuota returns floor(ratio * total) per class, against the original
// totals.
func ClientQuota(row Row, totals candidate.Totals) Quota {
	return Quota{
		Class0: int(math.Floor(row.Class0Ratio * float64(totals.Class0))),
		Class1: int(math.Floor(row.Class1Ratio * float64(totals.Class1))),
	}
}

// Oversubscribed returns the classes whose summed client quotas exceed the
// class total. Later clients of such a class receive clamped windows.
func Oversubscribed(cfg Config, totals candidate.Totals) []candidate.Label {
	var sum Quota
	for _, row := range cfg.Rows {
		q := ClientQuota(row, totals)
		sum.Class0 += q.Class0
		sum.Class1 += q.Class1
	}
	var out []candidate.Label
	for _, l := range candidate.Labels {
		if sum.Of(l) > totals.Of(l) {
			out = append(out, l)
		}
	}
	return out
}
