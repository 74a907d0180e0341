// Command bench runs a synthetic Zipf-distributed workload against a
// Sharded cache and exposes Prometheus metrics and, optionally, pprof.
package main

import (
	"context"
	"fmt"
	"math/rand"
	"net/http"
	_ "net/http/pprof" // registers /debug/pprof/* on DefaultServeMux
	"os"
	"runtime"
	"strconv"
	"sync"
	"sync/atomic"
	"time"

	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/rs/zerolog"
	"github.com/spf13/pflag"
	"gopkg.in/yaml.v3"

	"github.com/WSPlXA/fdkvcache/fdtoken"
	"github.com/WSPlXA/fdkvcache/kvcache"
	pmet "github.com/WSPlXA/fdkvcache/metrics/prom"
)

// scenario is the shape of an optional --scenario YAML file. It is read
// once at startup and never hot-reloaded, consistent with the cache's
// no-resize-after-construction invariant.
type scenario struct {
	Capacity int     `yaml:"capacity"`
	Shards   int     `yaml:"shards"`
	Workers  int     `yaml:"workers"`
	ReadPct  int     `yaml:"read_pct"`
	Keys     int     `yaml:"keys"`
	ZipfS    float64 `yaml:"zipf_s"`
	ZipfV    float64 `yaml:"zipf_v"`
	Preload  int     `yaml:"preload"`
}

func main() {
	log := zerolog.New(zerolog.ConsoleWriter{Out: os.Stderr}).With().Timestamp().Logger()

	var (
		capacity     = pflag.IntP("cap", "c", 100_000, "total cache capacity (entries)")
		shards       = pflag.Int("shards", 0, "number of shards (0=auto)")
		workers      = pflag.Int("workers", 2*runtime.GOMAXPROCS(0), "number of worker goroutines")
		duration     = pflag.Duration("duration", 10*time.Second, "benchmark duration")
		readPct      = pflag.Int("reads", 80, "read percentage [0..100]")
		keys         = pflag.Int("keys", 1_000_000, "keyspace size")
		zipfS        = pflag.Float64("zipf-s", 1.1, "Zipf s > 1 (skew)")
		zipfV        = pflag.Float64("zipf-v", 1.0, "Zipf v")
		seed         = pflag.Int64("seed", time.Now().UnixNano(), "random seed")
		preload      = pflag.Int("preload", 0, "preload entries (0 = cap/2)")
		scenarioPath = pflag.String("scenario", "", "optional YAML file overriding the flags above except duration and seed")
		pprofAddr    = pflag.String("pprof", "", "serve pprof at addr (e.g. :6060); empty = disabled")
		metricsAddr  = pflag.String("http", ":8080", "serve Prometheus metrics at addr")
	)
	pflag.Parse()

	sc := scenario{
		Capacity: *capacity, Shards: *shards, Workers: *workers, ReadPct: *readPct,
		Keys: *keys, ZipfS: *zipfS, ZipfV: *zipfV, Preload: *preload,
	}
	if *scenarioPath != "" {
		raw, err := os.ReadFile(*scenarioPath)
		if err != nil {
			log.Fatal().Err(err).Str("path", *scenarioPath).Msg("read scenario file")
		}
		if err := yaml.Unmarshal(raw, &sc); err != nil {
			log.Fatal().Err(err).Msg("parse scenario file")
		}
	}
	if sc.Workers <= 0 {
		sc.Workers = 1
	}

	if *pprofAddr != "" {
		go func() {
			log.Info().Str("addr", *pprofAddr).Msg("serving pprof")
			log.Err(http.ListenAndServe(*pprofAddr, nil)).Msg("pprof server stopped")
		}()
	}

	metrics := pmet.New(nil, "fdkvcache", "bench", nil)
	http.Handle("/metrics", promhttp.Handler())
	go func() {
		log.Info().Str("addr", *metricsAddr).Msg("serving prometheus metrics")
		log.Err(http.ListenAndServe(*metricsAddr, nil)).Msg("metrics server stopped")
	}()

	c := kvcache.NewSharded[string, string](sc.Shards, sc.Capacity, kvcache.ShardedOptions[string, string]{
		Options: kvcache.Options[string, string]{Metrics: metrics},
	})

	pl := sc.Preload
	if pl == 0 {
		pl = sc.Capacity / 2
	}
	handles := make([]fdtoken.Token, 0, pl)
	for i := 0; i < pl; i++ {
		k := "k:" + strconv.Itoa(i)
		handles = append(handles, c.Insert(1, k, "v"+strconv.Itoa(i)))
	}
	log.Info().Int("preloaded", len(handles)).Int("shards", c.ShardCount()).Msg("preload complete")

	keysMax := uint64(sc.Keys - 1)

	var inserts, reads, writes, hits, misses, total uint64
	ctx, cancel := context.WithTimeout(context.Background(), *duration)
	defer cancel()

	start := time.Now()
	var wg sync.WaitGroup
	wg.Add(sc.Workers)
	for w := 0; w < sc.Workers; w++ {
		go func(id int) {
			defer wg.Done()

			localR := rand.New(rand.NewSource(*seed + int64(id)*9973))
			localZipf := rand.NewZipf(localR, sc.ZipfS, sc.ZipfV, keysMax)

			keyByZipf := func() string {
				return "k:" + strconv.FormatUint(localZipf.Uint64(), 10)
			}

			for {
				select {
				case <-ctx.Done():
					return
				default:
				}

				atomic.AddUint64(&total, 1)
				if int(localR.Int31n(100)) < sc.ReadPct {
					atomic.AddUint64(&reads, 1)
					var v string
					if c.Get(c.FindHandle(keyByZipf()), &v) {
						atomic.AddUint64(&hits, 1)
					} else {
						atomic.AddUint64(&misses, 1)
					}
				} else {
					atomic.AddUint64(&writes, 1)
					k := keyByZipf()
					if h := c.InsertOrAssign(1, k, "v"+strconv.Itoa(localR.Int())); !fdtoken.IsNull(h) {
						atomic.AddUint64(&inserts, 1)
					}
				}
			}
		}(w)
	}
	wg.Wait()
	elapsed := time.Since(start)

	ops := atomic.LoadUint64(&total)
	readsN := atomic.LoadUint64(&reads)
	writesN := atomic.LoadUint64(&writes)
	hitsN := atomic.LoadUint64(&hits)
	missesN := atomic.LoadUint64(&misses)

	hitRate := 0.0
	if readsN > 0 {
		hitRate = float64(hitsN) / float64(readsN) * 100
	}

	fmt.Printf("cap=%d shards=%d workers=%d keys=%d dur=%v seed=%d\n",
		sc.Capacity, c.ShardCount(), sc.Workers, sc.Keys, elapsed, *seed)
	fmt.Printf("ops=%d (%.0f ops/s)  reads=%d  writes=%d\n",
		ops, float64(ops)/elapsed.Seconds(), readsN, writesN)
	fmt.Printf("hits=%d  misses=%d  hit-rate=%.2f%%\n", hitsN, missesN, hitRate)
	fmt.Printf("Len()=%d\n", c.Len())
}
