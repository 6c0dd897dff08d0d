package source

import (
	"context"
	"time"

	"github.com/rotisserie/eris"
	"go.uber.org/zap"

	"github.com/sells-group/regionsync/internal/cache"
)

// CacheFiles names the cache entry of each source.
type CacheFiles struct {
	RKI          string
	Distribution string
	Destatis     string
	RiskLayer    string
}

// DefaultCacheFiles returns the default cache entry names.
func DefaultCacheFiles() CacheFiles {
	return CacheFiles{
		RKI:          ".rki.cache.json",
		Distribution: ".rki-distribution.cache.json",
		Destatis:     ".destatis.cache.json",
		RiskLayer:    ".rskl.cache.json",
	}
}

// Bundle is the raw input of one reconciliation pass. Counties is the
// primary region list; the other datasets are auxiliary and may be empty.
type Bundle struct {
	Counties     []County
	Demographics []Demographic
	RiskLayer    []RiskRecord
	Distribution []DistributionGroup
	Sources      []string
}

// CollectorConfig wires the sources of a Collector. RKI is required; a nil
// auxiliary source is skipped.
type CollectorConfig struct {
	RKI          *RKI
	Destatis     *Destatis
	RiskLayer    *RiskLayer
	Distribution bool
	Cache        *cache.Store
	Files        CacheFiles
}

// Collector loads every configured source through the cache.
type Collector struct {
	cfg CollectorConfig
}

// NewCollector creates a Collector.
func NewCollector(cfg CollectorConfig) *Collector {
	if cfg.Cache == nil {
		cfg.Cache = cache.New("", false)
	}
	def := DefaultCacheFiles()
	if cfg.Files.RKI == "" {
		cfg.Files.RKI = def.RKI
	}
	if cfg.Files.Distribution == "" {
		cfg.Files.Distribution = def.Distribution
	}
	if cfg.Files.Destatis == "" {
		cfg.Files.Destatis = def.Destatis
	}
	if cfg.Files.RiskLayer == "" {
		cfg.Files.RiskLayer = def.RiskLayer
	}
	return &Collector{cfg: cfg}
}

// Load fetches each source in turn, reading from the cache when an entry
// exists. Any failed fetch aborts the load.
func (c *Collector) Load(ctx context.Context) (*Bundle, error) {
	log := zap.L().With(zap.String("component", "source.collector"))
	if c.cfg.RKI == nil {
		return nil, eris.New("collector: rki source required")
	}

	start := time.Now()
	b := &Bundle{Sources: []string{RKICopyright}}

	counties, err := cache.Through(ctx, c.cfg.Cache, c.cfg.Files.RKI, c.cfg.RKI.Counties)
	if err != nil {
		return nil, eris.Wrap(err, "collector: load rki counties")
	}
	b.Counties = counties

	if c.cfg.Distribution {
		groups, err := cache.Through(ctx, c.cfg.Cache, c.cfg.Files.Distribution, c.cfg.RKI.Distribution)
		if err != nil {
			return nil, eris.Wrap(err, "collector: load rki distribution")
		}
		b.Distribution = groups
	}

	if c.cfg.Destatis != nil {
		demo, err := cache.Through(ctx, c.cfg.Cache, c.cfg.Files.Destatis, c.cfg.Destatis.Counties)
		if err != nil {
			return nil, eris.Wrap(err, "collector: load destatis")
		}
		b.Demographics = demo
		b.Sources = append(b.Sources, DestatisCopyright)
	}

	if c.cfg.RiskLayer != nil {
		risk, err := cache.Through(ctx, c.cfg.Cache, c.cfg.Files.RiskLayer, c.cfg.RiskLayer.Counties)
		if err != nil {
			return nil, eris.Wrap(err, "collector: load risklayer")
		}
		b.RiskLayer = risk
		b.Sources = append(b.Sources, RiskLayerCopyright)
	}

	log.Info("sources loaded",
		zap.Int("counties", len(b.Counties)),
		zap.Int("demographics", len(b.Demographics)),
		zap.Int("risklayer", len(b.RiskLayer)),
		zap.Int("distribution_groups", len(b.Distribution)),
		zap.Duration("elapsed", time.Since(start)),
	)
	return b, nil
}
