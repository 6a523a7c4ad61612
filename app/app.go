// Package app wires the engine, the upstream transport, the Redis protocol
// query service and the metrics endpoint into one server process.
package app

import (
	"context"
	"errors"
	"net/http"

	"golang.org/x/sync/errgroup"

	"github.com/moontrade/orderflow/engine"
	"github.com/moontrade/orderflow/logger"
	"github.com/moontrade/orderflow/metrics"
	"github.com/moontrade/orderflow/transport"
)

// Main runs the server until ctx is done or a component fails.
func Main(ctx context.Context, conf Config) error {
	conf.def()
	if err := conf.Validate(); err != nil {
		return err
	}
	if err := logInit(conf); err != nil {
		return err
	}
	tlscfg, err := tlsInit(conf)
	if err != nil {
		return err
	}

	collector := metrics.NewCollector()
	eng, err := engine.New(engine.Options{
		BlockSize:       conf.BlockSize,
		FilterCacheSize: conf.FilterCacheSize,
		Metrics:         collector,
	})
	if err != nil {
		return err
	}
	src := sourceInit(conf)
	if src != nil {
		defer src.Close()
	}

	ln, err := listen(conf, tlscfg)
	if err != nil {
		return err
	}
	svc := NewService(conf, eng, src, collector)
	srv := collector.Server(conf.MetricsAddr)
	if conf.ServerReady != nil {
		conf.ServerReady(ln.Addr().String())
	}

	g, ctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		return svc.Serve(ctx, ln)
	})
	g.Go(func() error {
		stop := context.AfterFunc(ctx, func() { srv.Close() })
		defer stop()
		logger.Notice("metrics listening at %s", conf.MetricsAddr)
		if err := srv.ListenAndServe(); !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	})
	if src != nil {
		g.Go(func() error {
			return ingest(ctx, conf, src, eng)
		})
	}
	return g.Wait()
}

func sourceInit(conf Config) transport.Source {
	if conf.Transport.Kind != "redis" {
		return nil
	}
	return transport.NewRedis(transport.RedisOptions{
		Addr:           conf.Transport.Addr,
		Auth:           conf.Transport.Auth,
		EventChannel:   conf.Transport.EventChannel,
		ConnectChannel: conf.Transport.ConnectChannel,
		DialTimeout:    conf.Transport.DialTimeout,
	})
}

// ingest applies batches from src in arrival order. Malformed batches are
// dropped; any other failure stops the server. The automatic handshake runs
// beside the receive loop and is announced once the loop is subscribed.
func ingest(ctx context.Context, conf Config, src transport.Source, eng *engine.Engine) error {
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		return src.Receive(gctx, func(batch []byte) error {
			_, err := eng.Apply(batch)
			if errors.Is(err, engine.ErrMalformedBatch) {
				logger.WarnErr(err, "size", len(batch), "dropped batch")
				return nil
			}
			return err
		})
	})
	if conf.Transport.AutoConnect != nil && *conf.Transport.AutoConnect {
		g.Go(func() error {
			return src.Connect(gctx)
		})
	}
	err := g.Wait()
	if ctx.Err() != nil {
		return nil
	}
	return err
}
