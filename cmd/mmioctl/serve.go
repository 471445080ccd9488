package main

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/heptiolabs/healthcheck"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/srediag/plugin-mmio/adapter"
	"github.com/srediag/plugin-mmio/internal/logger"
	"github.com/srediag/plugin-mmio/pkg/mmio"
	"github.com/srediag/plugin-mmio/pkg/uio"
)

const shutdownTimeout = 5 * time.Second

func cmdServe(ctx context.Context, src source, w *mmio.Window, opts *options, args []string) error {
	if len(args) != 1 {
		return errors.New("usage: serve ADDR")
	}
	reg := prometheus.NewRegistry()
	reg.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))

	hook, err := adapter.NewPrometheusHook(reg, opts.namespace)
	if err != nil {
		return err
	}
	acc := adapter.Instrument(w, hook)

	health := healthcheck.NewHandler()
	adapter.RegisterChecks(health, acc, adapter.Probe{
		Name:   "probe",
		Offset: opts.probe.offset,
		Width:  mmio.Width(opts.probe.width),
		Mask:   opts.probe.mask,
		Expect: opts.probe.expect,
	})

	if opts.irq {
		is, ok := src.(irqSource)
		if !ok {
			return errors.New("-irq requires a uio device")
		}
		watcher, err := startIRQCounter(ctx, is.IRQ(), reg, opts.namespace)
		if err != nil {
			return err
		}
		defer watcher.Stop()
	}

	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.HandlerFor(reg, promhttp.HandlerOpts{Registry: reg}))
	mux.HandleFunc("/live", health.LiveEndpoint)
	mux.HandleFunc("/ready", health.ReadyEndpoint)

	srv := &http.Server{Addr: args[0], Handler: mux, ReadHeaderTimeout: 10 * time.Second}
	errc := make(chan error, 1)
	go func() { errc <- srv.ListenAndServe() }()
	log.Infof("serving %s on %s", w, args[0])

	select {
	case err := <-errc:
		return err
	case <-ctx.Done():
	}
	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		return err
	}
	if err := <-errc; !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}

func startIRQCounter(ctx context.Context, src uio.IRQSource, reg prometheus.Registerer, namespace string) (*uio.IRQWatcher, error) {
	irqs := prometheus.NewCounter(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "uio_interrupts_total",
		Help:      "Total number of uio interrupts observed.",
	})
	if err := reg.Register(irqs); err != nil {
		return nil, err
	}
	watcher, err := uio.NewIRQWatcher(src, uio.DefaultConfig())
	if err != nil {
		return nil, err
	}
	watcher.Subscribe(func(ev uio.IRQEvent) {
		irqs.Inc()
		if logger.DebugMode() {
			log.Debugf("irq count=%d at %s", ev.Count, ev.Time.Format(time.RFC3339Nano))
		}
	})
	if err := watcher.Start(ctx); err != nil {
		watcher.Stop()
		return nil, err
	}
	return watcher, nil
}
