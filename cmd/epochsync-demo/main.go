// Command epochsync-demo runs a small population of simulated mutator
// threads against the epoch synchronization protocol, driving repeated
// Initiator rounds until interrupted.
package main

import (
	"context"
	"math/rand"
	"net/http"
	"os"
	"os/signal"
	"sync"
	"syscall"
	"time"

	"github.com/benbjohnson/clock"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/gcrefine/epochsync/kernel/threads/foundation"
	"github.com/gcrefine/epochsync/kernel/threads/registry"
	"github.com/gcrefine/epochsync/kernel/threads/supervisor"
	"github.com/gcrefine/epochsync/kernel/utils"
)

const mutatorCount = 8

func main() {
	log := utils.DefaultLogger("epochsync-demo")

	g := foundation.NewGlobalState()
	metrics := foundation.NewMetrics(g)
	reg := prometheus.NewRegistry()
	metrics.Register(reg)
	foundation.SetMetrics(metrics)

	shutdown := utils.NewGracefulShutdown(5*time.Second, log)

	threads := registry.NewThreadRegistry(log)
	handshake := supervisor.NewHandshake()
	safepoints := supervisor.NewSafepointController()
	opQueue := supervisor.NewOpQueue(32)
	shutdown.Register(func() error {
		opQueue.Close()
		return nil
	})

	realClock := supervisor.NewRealClock()
	spin := supervisor.NewSpinYielder(clock.New(), 200*time.Microsecond)
	tasks := supervisor.NewScheduleTaskQueue(clock.New())
	tasks.RegisterTask("epoch-reset", func() {
		opQueue.Execute(func() {
			var deferred foundation.DeferredBuffer
			foundation.Reset(g, threads, &deferred)
			log.Info("safepoint reset executed")
		})
	})

	httpServer := &http.Server{Addr: ":9090", Handler: promHandler(reg)}
	go func() {
		if err := httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Error("metrics server failed", utils.Err(err))
		}
	}()
	shutdown.Register(func() error {
		ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
		defer cancel()
		return httpServer.Shutdown(ctx)
	})

	stopMutators := make(chan struct{})
	var wg sync.WaitGroup
	handles := make([]*registry.MutatorHandle, 0, mutatorCount)
	for i := 0; i < mutatorCount; i++ {
		h := registry.NewMutatorHandle()
		threads.Register(h)
		handles = append(handles, h)

		wg.Add(1)
		go runMutator(&wg, stopMutators, h, g)
	}
	shutdown.Register(func() error {
		close(stopMutators)
		wg.Wait()
		for _, h := range handles {
			threads.Deregister(h)
		}
		return nil
	})

	cfg := foundation.DefaultConfig()
	cfg.WaitTimeout = 20 * time.Millisecond

	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer cancel()

	log.Info("epochsync-demo running", utils.Int("mutators", mutatorCount))

	ticker := time.NewTicker(50 * time.Millisecond)
	defer ticker.Stop()

round:
	for {
		select {
		case <-ctx.Done():
			break round
		case <-ticker.C:
			in := foundation.New(g, true, cfg, foundation.InitiatorDeps{
				Threads:    threads,
				Handshake:  handshake,
				Safepoints: safepoints,
				Clock:      realClock,
				SpinYield:  spin,
				Log:        log,
			})
			syncCtx, syncCancel := context.WithTimeout(ctx, cfg.WaitTimeout*4)
			outcome := in.Synchronize(syncCtx)
			syncCancel()
			log.Debug("synchronize round complete",
				utils.String("outcome", outcome.String()),
				utils.Uint64("required_frontier", in.RequiredFrontier()),
			)
			if foundation.ResetScheduled(g) {
				tasks.ScheduleTask("epoch-reset", 0)
			}
		}
	}

	log.Info("shutdown signal received")
	if err := shutdown.Shutdown(context.Background()); err != nil {
		log.Error("shutdown failed", utils.Err(err))
		os.Exit(1)
	}
}

// runMutator simulates a mutator thread issuing stores and occasionally
// parking in native code, periodically adopting the global epoch like a
// safepoint check would in a real VM. UpdateSelf is called directly from
// this goroutine rather than through the VM operation queue: it must
// never block on the dedicated safepoint-operation thread, only race
// against it under inSafepoint's guard.
func runMutator(wg *sync.WaitGroup, stop chan struct{}, h *registry.MutatorHandle, g *foundation.GlobalState) {
	defer wg.Done()
	rng := rand.New(rand.NewSource(int64(len(h.ThreadID()))))

	for {
		select {
		case <-stop:
			return
		default:
		}

		foundation.UpdateSelf(h.Epoch(), g)

		if rng.Intn(10) == 0 {
			h.EnterParked()
			time.Sleep(time.Duration(rng.Intn(5)) * time.Millisecond)
			h.ExitParked()
		}

		time.Sleep(time.Duration(5+rng.Intn(15)) * time.Millisecond)
	}
}

func promHandler(reg *prometheus.Registry) http.Handler {
	return promhttp.HandlerFor(reg, promhttp.HandlerOpts{})
}
