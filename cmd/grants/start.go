package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"path/filepath"
	"sync"
	"syscall"
	"time"

	"github.com/axiomesh/axiom-kit/log"
	"github.com/axiomesh/grants"
	"github.com/axiomesh/grants/core"
	"github.com/axiomesh/grants/repo"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/urfave/cli/v2"
)

func start(ctx *cli.Context) error {
	p, err := getRootPath(ctx)
	if err != nil {
		return err
	}
	r, err := repo.Load(p)
	if err != nil {
		return err
	}

	err = log.Initialize(
		log.WithReportCaller(r.Config.Log.ReportCaller),
		log.WithPersist(true),
		log.WithFilePath(filepath.Join(r.Config.RepoRoot, repo.LogsDirName)),
		log.WithFileName(r.Config.Log.Filename),
		log.WithMaxAge(r.Config.Log.MaxAge),
		log.WithRotationTime(r.Config.Log.RotationTime),
	)
	if err != nil {
		return fmt.Errorf("log initialize: %w", err)
	}

	printVersion()

	n, err := newNode(ctx)
	if err != nil {
		return fmt.Errorf("new node error: %w", err)
	}

	d := &daemon{node: n}
	if r.Config.Keeper.Enable {
		d.keeper = n.newKeeper(ctx.Context)
	}
	if r.Config.Metrics.Enable {
		d.metrics = newMetricsServer(n, r.Config.Metrics.ListenAddr)
	}

	var wg sync.WaitGroup
	wg.Add(1)
	handleShutdown(d, &wg)

	if err := d.Start(); err != nil {
		return fmt.Errorf("start grants failed: %w", err)
	}

	fmt.Println("=============Grants is ready=============")

	wg.Wait()

	return nil
}

// daemon bundles the long running parts of the start command.
type daemon struct {
	node    *node
	keeper  *core.Keeper
	metrics *http.Server
}

func (d *daemon) Start() error {
	if d.metrics != nil {
		go func() {
			if err := d.metrics.ListenAndServe(); err != nil && err != http.ErrServerClosed {
				d.node.logger.Errorf("metrics server: %s", err)
			}
		}()
		d.node.logger.Infof("metrics served at %s/metrics", d.metrics.Addr)
	}
	if d.keeper != nil {
		if err := d.keeper.Start(); err != nil {
			return err
		}
	}
	return nil
}

func (d *daemon) Stop() error {
	if d.keeper != nil {
		if err := d.keeper.Stop(); err != nil {
			return err
		}
	}
	if d.metrics != nil {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := d.metrics.Shutdown(ctx); err != nil {
			return err
		}
	}
	return d.node.Close()
}

func newMetricsServer(n *node, addr string) *http.Server {
	n.registry.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.HandlerFor(n.registry, promhttp.HandlerOpts{}))
	return &http.Server{
		Addr:              addr,
		Handler:           mux,
		ReadHeaderTimeout: 10 * time.Second,
	}
}

func printVersion() {
	fmt.Printf("Grants version: %s-%s-%s\n", grants.CurrentVersion, grants.CurrentBranch, grants.CurrentCommit)
	fmt.Printf("App build date: %s\n", grants.BuildDate)
	fmt.Printf("System version: %s\n", grants.Platform)
	fmt.Printf("Golang version: %s\n", grants.GoVersion)
	fmt.Println()
}

func handleShutdown(d *daemon, wg *sync.WaitGroup) {
	var stop = make(chan os.Signal, 2)
	signal.Notify(stop, syscall.SIGTERM)
	signal.Notify(stop, syscall.SIGINT)

	go func() {
		<-stop
		fmt.Println("received interrupt signal, shutting down...")
		if err := d.Stop(); err != nil {
			panic(err)
		}
		wg.Done()
		os.Exit(0)
	}()
}
