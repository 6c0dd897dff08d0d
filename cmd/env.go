package main

import (
	"context"

	"github.com/rotisserie/eris"
	"go.uber.org/zap"

	"github.com/sells-group/regionsync/internal/cache"
	"github.com/sells-group/regionsync/internal/config"
	"github.com/sells-group/regionsync/internal/fetcher"
	"github.com/sells-group/regionsync/internal/reconcile"
	"github.com/sells-group/regionsync/internal/runlog"
	"github.com/sells-group/regionsync/internal/source"
	"github.com/sells-group/regionsync/internal/syncer"
	"github.com/sells-group/regionsync/internal/timeseries"
	"github.com/sells-group/regionsync/pkg/casesapi"
)

// sources bundles the source clients built from config.
type sources struct {
	rki       *source.RKI
	destatis  *source.Destatis
	riskLayer *source.RiskLayer
}

func newFetcher(c *config.Config) fetcher.Fetcher {
	return fetcher.NewHTTPFetcher(fetcher.HTTPOptions{
		UserAgent:    c.Fetch.UserAgent,
		Timeout:      c.Fetch.Timeout(),
		MaxAttempts:  c.Fetch.MaxAttempts,
		RateLimiters: fetcher.DefaultRateLimiters(),
	})
}

func newSources(c *config.Config) sources {
	f := newFetcher(c)
	s := sources{
		rki: source.NewRKI(f, source.RKIConfig{
			CountiesURL:     c.Sources.RKI.CountiesURL,
			DistributionURL: c.Sources.RKI.DistributionURL,
			ReportsURL:      c.Sources.RKI.ReportsURL,
			PageSize:        c.Sources.RKI.PageSize,
			MaxRecords:      c.Sources.RKI.MaxRecords,
		}),
	}
	if c.Sources.Destatis.Enabled {
		s.destatis = source.NewDestatis(f, c.Sources.Destatis.URL)
	}
	if c.Sources.RiskLayer.Enabled {
		s.riskLayer = source.NewRiskLayer(f, source.RiskLayerConfig{
			URL:     c.Sources.RiskLayer.URL,
			Format:  c.Sources.RiskLayer.Format,
			Charset: c.Sources.RiskLayer.Charset,
			Sheet:   c.Sources.RiskLayer.Sheet,
		})
	}
	return s
}

// loadSnapshot runs the explicit load step and one reconciliation pass.
func loadSnapshot(ctx context.Context, c *config.Config, src sources) (*reconcile.Snapshot, error) {
	if err := c.Validate("load"); err != nil {
		return nil, err
	}

	collector := source.NewCollector(source.CollectorConfig{
		RKI:          src.rki,
		Destatis:     src.destatis,
		RiskLayer:    src.riskLayer,
		Distribution: c.Sources.RKI.Distribution,
		Cache:        cache.New(c.Cache.Dir, c.Cache.Enabled),
	})
	bundle, err := collector.Load(ctx)
	if err != nil {
		return nil, eris.Wrap(err, "load sources")
	}

	engine := reconcile.New(reconcile.WithLogger(zap.L().With(zap.String("component", "reconcile"))))
	snap := engine.Reconcile(bundle)
	return snap, nil
}

func newCasesClient(c *config.Config) casesapi.Client {
	return casesapi.NewClient(c.Remote.BaseURL, c.Remote.Token,
		casesapi.WithAuthScheme(c.Remote.AuthScheme),
		casesapi.WithTimeout(c.Remote.Timeout()),
	)
}

func openRunLog(ctx context.Context, c *config.Config) (runlog.Store, error) {
	st, err := runlog.Open(ctx, c.RunLog.Driver, c.RunLog.DSN)
	if err != nil {
		return nil, eris.Wrap(err, "open run log")
	}
	return st, nil
}

func newSyncer(c *config.Config, client casesapi.Client, runs runlog.Store) *syncer.Syncer {
	return syncer.New(client,
		syncer.WithLogger(zap.L().With(zap.String("component", "syncer"))),
		syncer.WithRunLog(runs),
		syncer.WithSkipUnchanged(c.Sync.SkipUnchanged),
	)
}

func newReconstructor(client casesapi.Client) *timeseries.Reconstructor {
	return timeseries.NewReconstructor(client,
		timeseries.WithLogger(zap.L().With(zap.String("component", "timeseries"))),
	)
}
