// Package reference holds the population data the power profiler classifies
// athletes against. Tables are plain data decoded from TOML so further
// populations can be added without touching the classification code.
package reference

import (
	_ "embed"
	"errors"
	"fmt"
	"sort"
	"sync"

	"github.com/BurntSushi/toml"

	"github.com/vitalsync/server/pkg/types"
)

//go:embed coggan.toml
var defaultTOML []byte

// ErrInvalidTable is wrapped by every validation failure.
var ErrInvalidTable = errors.New("invalid reference table")

// Band is one classification row. MaxWkg of zero means open-ended.
type Band struct {
	Category      string  `toml:"category" json:"category"`
	MinWkg        float64 `toml:"min_wkg" json:"minWkg"`
	MaxWkg        float64 `toml:"max_wkg" json:"maxWkg"`
	PercentileMin float64 `toml:"percentile_min" json:"percentileMin"`
	PercentileMax float64 `toml:"percentile_max" json:"percentileMax"`
}

// Curve is the population floor ("Untrained") and ceiling ("World Class")
// W/kg for one canonical effort duration.
type Curve struct {
	Floor   float64
	Ceiling float64
}

type Population struct {
	Sex    types.Sex
	Bands  []Band // sorted by descending MinWkg
	Curves map[types.EffortDuration]Curve
}

type Tables struct {
	Version     string
	populations map[types.Sex]*Population
}

type tomlCurve struct {
	Duration string  `toml:"duration"`
	Floor    float64 `toml:"floor"`
	Ceiling  float64 `toml:"ceiling"`
}

type tomlPopulation struct {
	Sex    string      `toml:"sex"`
	Bands  []Band      `toml:"band"`
	Curves []tomlCurve `toml:"curve"`
}

type tomlDocument struct {
	Version     string           `toml:"version"`
	Populations []tomlPopulation `toml:"population"`
}

var (
	defaultOnce   sync.Once
	defaultTables *Tables
)

// Default returns the embedded Coggan tables. It panics if the embedded
// document is broken, which the package tests guard against.
func Default() *Tables {
	defaultOnce.Do(func() {
		t, err := Parse(defaultTOML)
		if err != nil {
			panic(fmt.Sprintf("embedded reference tables: %v", err))
		}
		defaultTables = t
	})
	return defaultTables
}

// Load reads tables from a TOML file.
func Load(path string) (*Tables, error) {
	var doc tomlDocument
	if _, err := toml.DecodeFile(path, &doc); err != nil {
		return nil, fmt.Errorf("decode reference tables %s: %w", path, err)
	}
	return build(doc)
}

// Parse decodes tables from TOML bytes.
func Parse(data []byte) (*Tables, error) {
	var doc tomlDocument
	if _, err := toml.Decode(string(data), &doc); err != nil {
		return nil, fmt.Errorf("decode reference tables: %w", err)
	}
	return build(doc)
}

func build(doc tomlDocument) (*Tables, error) {
	if len(doc.Populations) == 0 {
		return nil, fmt.Errorf("%w: no populations", ErrInvalidTable)
	}

	t := &Tables{
		Version:     doc.Version,
		populations: make(map[types.Sex]*Population, len(doc.Populations)),
	}

	for _, tp := range doc.Populations {
		sex := types.Sex(tp.Sex)
		if sex != types.SexMale && sex != types.SexFemale {
			return nil, fmt.Errorf("%w: unknown sex %q", ErrInvalidTable, tp.Sex)
		}
		if _, dup := t.populations[sex]; dup {
			return nil, fmt.Errorf("%w: duplicate population %q", ErrInvalidTable, sex)
		}
		if len(tp.Bands) == 0 {
			return nil, fmt.Errorf("%w: population %q has no bands", ErrInvalidTable, sex)
		}

		bands := append([]Band(nil), tp.Bands...)
		sort.SliceStable(bands, func(i, j int) bool {
			return bands[i].MinWkg > bands[j].MinWkg
		})

		curves := make(map[types.EffortDuration]Curve, len(tp.Curves))
		for _, c := range tp.Curves {
			d, err := types.ParseEffortDuration(c.Duration)
			if err != nil {
				return nil, fmt.Errorf("%w: population %q: %v", ErrInvalidTable, sex, err)
			}
			if c.Ceiling <= c.Floor {
				return nil, fmt.Errorf("%w: population %q curve %s: ceiling must exceed floor", ErrInvalidTable, sex, d)
			}
			curves[d] = Curve{Floor: c.Floor, Ceiling: c.Ceiling}
		}
		for _, d := range types.EffortDurations {
			if _, ok := curves[d]; !ok {
				return nil, fmt.Errorf("%w: population %q missing curve for %s", ErrInvalidTable, sex, d)
			}
		}

		t.populations[sex] = &Population{Sex: sex, Bands: bands, Curves: curves}
	}

	if _, ok := t.populations[types.SexMale]; !ok {
		return nil, fmt.Errorf("%w: male population is required as the fallback", ErrInvalidTable)
	}
	return t, nil
}

// Population returns the population for sex, falling back to male when the
// sex is unknown or has no table of its own.
func (t *Tables) Population(sex types.Sex) *Population {
	if p, ok := t.populations[sex]; ok {
		return p
	}
	return t.populations[types.SexMale]
}

// Classify returns the highest band whose floor wkg meets or exceeds. Bands
// must be sorted by descending MinWkg. A W/kg exactly on a boundary lands in
// the higher band; anything above the top band's maximum stays in the top band.
func Classify(bands []Band, wkg float64) (Band, bool) {
	for _, b := range bands {
		if b.MinWkg <= wkg {
			return b, true
		}
	}
	return Band{}, false
}

// Classify classifies wkg against the population's bands.
func (p *Population) Classify(wkg float64) (Band, bool) {
	return Classify(p.Bands, wkg)
}

// Percentile linearly interpolates wkg between the duration's floor (0) and
// ceiling (100), clamped to [0, 100].
func (p *Population) Percentile(d types.EffortDuration, wkg float64) (float64, bool) {
	c, ok := p.Curves[d]
	if !ok {
		return 0, false
	}
	pct := (wkg - c.Floor) / (c.Ceiling - c.Floor) * 100
	switch {
	case pct < 0:
		pct = 0
	case pct > 100:
		pct = 100
	}
	return pct, true
}
