// File: cmd/dispatchdemo/main.go
// Package main
// Minimal demonstration of the dispatcher facade: submits one call and one
// direct task, prints their results, and exits.
// Author: momentics <momentics@gmail.com>
// License: Apache-2.0

package main

import (
	"context"
	"flag"
	"fmt"
	"log"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/taskline/dispatcher/api"
	"github.com/taskline/dispatcher/facade"
	"github.com/taskline/dispatcher/promise"
)

func main() {
	configPath := flag.String("config", "", "optional YAML config file overriding pool tunables")
	debugAddr := flag.String("debug-addr", ":9090", "debug/metrics HTTP listen address")
	enableDebug := flag.Bool("debug", false, "mount the debug/metrics HTTP surface")
	flag.Parse()

	cfg := facade.DefaultConfig()
	cfg.ConfigPath = *configPath
	cfg.EnableDebugHTTP = *enableDebug
	cfg.DebugListenAddr = *debugAddr

	d, err := facade.New(cfg)
	if err != nil {
		log.Fatalf("failed to build dispatcher: %v", err)
	}
	if err := d.Start(); err != nil {
		log.Fatalf("failed to start dispatcher: %v", err)
	}
	defer d.Stop(false)

	d.Registry().Register("square", func(args []any) (any, error) {
		n := args[0].(int)
		return n * n, nil
	})

	p, err := d.Call("square", 7)
	if err != nil {
		log.Fatalf("call failed: %v", err)
	}
	v, err := mustPromise(p).Wait(context.Background())
	if err != nil {
		log.Fatalf("square(7) failed: %v", err)
	}
	fmt.Printf("square(7) = %v\n", v)

	p2, err := d.Execute(api.TaskFunc(func(r api.Resolver) {
		r.Resolve(api.StatusSuccess, "direct task result")
	}))
	if err != nil {
		log.Fatalf("execute failed: %v", err)
	}
	v2, err := mustPromise(p2).Wait(context.Background())
	if err != nil {
		log.Fatalf("direct task failed: %v", err)
	}
	fmt.Printf("direct task = %v\n", v2)

	m := d.Metrics()
	fmt.Printf("live=%d idle=%d busy=%d submitted=%d completed=%d failed=%d\n",
		m.LiveWorkers, m.IdleWorkers, m.BusyWorkers, m.TasksSubmitted, m.TasksCompleted, m.TasksFailed)

	if *enableDebug {
		fmt.Printf("debug/metrics surface listening on %s\n", *debugAddr)
		sig := make(chan os.Signal, 1)
		signal.Notify(sig, syscall.SIGINT, syscall.SIGTERM)
		select {
		case <-sig:
		case <-time.After(5 * time.Minute):
		}
	}
}

func mustPromise(p api.Promise[any]) *promise.Promise[any] {
	pp, ok := p.(*promise.Promise[any])
	if !ok {
		log.Fatalf("promise is not the reference implementation: %T", p)
	}
	return pp
}
