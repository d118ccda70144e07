package main

import (
	"context"
	"fmt"
	"net/http"
	"net/http/pprof"
	"os"
	"reflect"
	"sync/atomic"
	"syscall"
	"time"

	"github.com/aukilabs/go-tooling/pkg/cli"
	"github.com/aukilabs/go-tooling/pkg/errors"
	"github.com/aukilabs/go-tooling/pkg/events"
	"github.com/aukilabs/go-tooling/pkg/logs"
	"github.com/aukilabs/go-tooling/pkg/metrics"
	"github.com/aukilabs/skymap/config"
	"github.com/aukilabs/skymap/featureflag"
	skyhttp "github.com/aukilabs/skymap/http"
	"github.com/aukilabs/skymap/smoketest"
	skywebsocket "github.com/aukilabs/skymap/websocket"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/segmentio/encoding/json"
	"golang.org/x/net/websocket"
)

var (
	// The skymapd version number. Set at build.
	version = "v0.1.0"

	infoGauge = promauto.NewGauge(prometheus.GaugeOpts{
		Name:        "skymap_info",
		Help:        "Sky map service information.",
		ConstLabels: prometheus.Labels{"version": version},
	})
)

// This will effectively disable obfuscation of the config struct. Without it, the keys would get obfuscated causing the cli package to generate garbled command-line options.
// https://github.com/burrowers/garble/issues/403
var _ = reflect.TypeOf(serviceConfig{})

type serviceConfig struct {
	Addr               string        `cli:""        env:"SKYMAP_ADDR"                  help:"Listening address for lookup requests."`
	AdminAddr          string        `cli:""        env:"SKYMAP_ADMIN_ADDR"            help:"Admin listening address."`
	PublicEndpoint     string        `cli:""        env:"SKYMAP_PUBLIC_ENDPOINT"       help:"The public endpoint where this server is reachable."`
	MapConfig          string        `cli:""        env:"SKYMAP_MAP_CONFIG"            help:"The YAML file of the sky map configuration. The default dodecahedral map is served when empty."`
	MapFingerprint     string        `cli:""        env:"SKYMAP_MAP_FINGERPRINT"       help:"The expected fingerprint of the sky map configuration."`
	LogLevel           string        `cli:""        env:"SKYMAP_LOG_LEVEL"             help:"Log level (debug|info|warning|error)."`
	LogIndent          bool          `cli:""        env:"SKYMAP_LOG_INDENT"            help:"Indent logs."`
	LookupCacheSize    int           `cli:",hidden" env:"SKYMAP_LOOKUP_CACHE_SIZE"     help:"The number of HTTP lookups kept in cache."`
	SmokeTestSamples   int           `cli:",hidden" env:"SKYMAP_SMOKE_TEST_SAMPLES"    help:"The number of coordinates checked by the startup smoke test."`
	ClientIdleTimeout  time.Duration `cli:",hidden" env:"SKYMAP_CLIENT_IDLE_TIMEOUT"   help:"Time until an idle WebSocket client will be disconnected."`
	MaxBatchSize       int           `cli:",hidden" env:"SKYMAP_MAX_BATCH_SIZE"        help:"The maximum number of coordinates of a WebSocket lookup."`
	LogSummaryInterval time.Duration `cli:",hidden" env:"SKYMAP_LOG_SUMMARY_INTERVAL"  help:"The duration between each log summary by connection."`
	Events             eventsConfig  `cli:",hidden" env:"-"                            help:"Event pusher configuration."`
	FeatureFlags       []string      `cli:",hidden" env:"SKYMAP_FEATURE_FLAGS"         help:"Comma separated feature flags"`
	Version            bool          `cli:""        env:"-"                            help:"Show version."`
	Help               bool          `cli:""        env:"-"                            help:"Show help."`
}

type eventsConfig struct {
	Endpoint      string        `cli:",hidden" env:"SKYMAP_EVENTS_ENDPOINT"       help:"Endpoint to where events are pushed."`
	FlushInterval time.Duration `cli:",hidden" env:"SKYMAP_EVENTS_FLUSH_INTERVAL" help:"The duration between each event flush."`
	BatchSize     int           `cli:",hidden" env:"SKYMAP_EVENTS_BATCH_SIZE"     help:"The maximum number of events sent at once."`
	QueueSize     int           `cli:",hidden" env:"SKYMAP_EVENTS_QUEUE_SIZE"     help:"The size of the queue where events are stored."`
}

func main() {
	conf := serviceConfig{
		Addr:               ":4100",
		AdminAddr:          ":18191",
		PublicEndpoint:     "http://localhost:4100",
		LogLevel:           logs.InfoLevel.String(),
		LookupCacheSize:    4096,
		SmokeTestSamples:   smoketest.DefaultSamples,
		ClientIdleTimeout:  skywebsocket.DefaultIdleTimeout,
		MaxBatchSize:       skywebsocket.DefaultMaxBatchSize,
		LogSummaryInterval: time.Minute,
		Events: eventsConfig{
			FlushInterval: events.DefaultFlushInterval,
			BatchSize:     events.DefaultBatchSize,
			QueueSize:     events.DefaultQueueSize,
		},
	}

	// set the information gauge to 1, useful for SUM query
	infoGauge.Set(1)

	ctx, cancel := cli.ContextWithSignals(context.Background(),
		os.Interrupt,
		syscall.SIGTERM,
	)
	defer cancel()

	cli.Register().
		Help("Starts the sky map lookup server.").
		Options(&conf)
	cli.Load()

	if conf.Version {
		fmt.Println(version)
		os.Exit(0)
	}

	logs.SetLevel(logs.ParseLevel(conf.LogLevel))
	logs.Encoder = json.Marshal
	if conf.LogIndent {
		logs.Encoder = func(v any) ([]byte, error) {
			return json.MarshalIndent(v, "", "  ")
		}
	}

	errors.Encoder = json.Marshal

	if conf.Events.Endpoint != "" {
		eventsPusher := events.Pusher{
			Endpoint:      conf.Events.Endpoint,
			FlushInterval: conf.Events.FlushInterval,
			BatchSize:     conf.Events.BatchSize,
			QueueSize:     conf.Events.QueueSize,
			Transport:     metrics.HTTPTransport(http.DefaultTransport),
		}
		go eventsPusher.Start()
		defer eventsPusher.Close()

		eventsLogger := events.Logger{
			Pusher:           &eventsPusher,
			SDKType:          "skymap",
			SDKVersionFamily: version,
		}
		logs.SetLogger(eventsLogger.Log)
	}

	featureFlags := featureflag.New(conf.FeatureFlags)

	mapConfig, err := loadMapConfig(conf)
	if err != nil {
		logs.Fatal(err)
	}

	fingerprint, err := mapConfig.Fingerprint()
	if err != nil {
		logs.Fatal(err)
	}

	var buildOptions []config.BuildOption
	featureFlags.IfSet(featureflag.FlagLinearTractScan, func() {
		buildOptions = append(buildOptions, config.WithLinearScan())
	})

	skyMap, err := config.Build(mapConfig, buildOptions...)
	if err != nil {
		logs.Fatal(errors.New("building sky map failed").Wrap(err))
	}

	var ready atomic.Bool
	readinessCheck := ready.Load

	featureFlags.IfNotSet(featureflag.FlagDisableSmokeTest, func() {
		res, err := smoketest.Run(ctx, skyMap, smoketest.Options{
			Samples: conf.SmokeTestSamples,
		})
		if err != nil {
			logs.Fatal(err)
		}
		if !res.Passed {
			logs.Fatal(errors.New("sky map failed the smoke test").
				WithTag("uncovered", res.Uncovered).
				WithTag("multiple_owners", res.MultipleOwners).
				WithTag("round_trip_errors", res.RoundTripErrors).
				WithTag("patch_tiling_errors", res.PatchTilingErrors))
		}
	})

	cacheSize := conf.LookupCacheSize
	featureFlags.IfSet(featureflag.FlagDisableLookupCache, func() {
		cacheSize = 0
	})

	lookupHandler, err := skyhttp.NewLookupHandler(skyMap, cacheSize)
	if err != nil {
		logs.Fatal(err)
	}

	var service http.ServeMux
	lookupHandler.Register(&service)

	service.Handle("/health", skyhttp.HandleWithCORS(http.HandlerFunc(skyhttp.HandleHealthCheck)))
	service.Handle("/ready", skyhttp.HandleWithCORS(skyhttp.HandleReadyCheck(readinessCheck)))
	service.Handle("/version", skyhttp.HandleWithCORS(skyhttp.HandleVersion(skyhttp.Version{
		Version:     version,
		Layout:      skyMap.Layout(),
		Tracts:      skyMap.Len(),
		Fingerprint: fingerprint.String(),
		MapUUID:     fingerprint.UUID().String(),
	})))
	service.Handle("POST /smoke-test", smoketest.HandleSmokeTest(skyMap, smoketest.Options{
		Samples: conf.SmokeTestSamples,
	}))

	featureFlags.IfNotSet(featureflag.FlagDisableWebSocket, func() {
		service.Handle("/ws", websocket.Server{
			Handler: func(conn *websocket.Conn) {
				defer conn.Close()

				var h skywebsocket.Handler = &skywebsocket.LookupHandler{
					SkyMap:            skyMap,
					ClientIdleTimeout: conf.ClientIdleTimeout,
					MaxBatchSize:      conf.MaxBatchSize,
				}
				h = skywebsocket.HandlerWithLogs(h, conf.LogSummaryInterval)
				h = skywebsocket.HandlerWithMetrics(h, conf.PublicEndpoint)
				defer h.Close()

				skywebsocket.Handle(ctx, conn, h)
			},
		})
	})

	var admin http.ServeMux
	admin.Handle("/metrics", promhttp.Handler())
	admin.HandleFunc("/health", skyhttp.HandleHealthCheck)
	admin.HandleFunc("/debug/pprof/", pprof.Index)
	admin.HandleFunc("/debug/pprof/cmdline", pprof.Cmdline)
	admin.HandleFunc("/debug/pprof/profile", pprof.Profile)
	admin.HandleFunc("/debug/pprof/symbol", pprof.Symbol)
	admin.HandleFunc("/debug/pprof/trace", pprof.Trace)
	admin.Handle("/debug/pprof/goroutine", pprof.Handler("goroutine"))
	admin.Handle("/debug/pprof/heap", pprof.Handler("heap"))
	admin.Handle("/debug/pprof/threadcreate", pprof.Handler("threadcreate"))
	admin.Handle("/debug/pprof/block", pprof.Handler("block"))
	admin.HandleFunc("/ready", skyhttp.HandleReadyCheck(readinessCheck))

	ready.Store(true)

	logs.WithTag("version", version).
		WithTag("log_level", conf.LogLevel).
		WithTag("endpoint", conf.PublicEndpoint).
		WithTag("layout", skyMap.Layout()).
		WithTag("tracts", skyMap.Len()).
		WithTag("fingerprint", fingerprint.String()).
		WithTag("feature_flags", featureFlags.Flags()).
		Info("starting sky map server")

	skyhttp.ListenAndServe(ctx,
		&http.Server{Addr: conf.Addr, Handler: metrics.HTTPHandler(&service,
			skyhttp.MetricsPathFormatter)},
		&http.Server{Addr: conf.AdminAddr, Handler: &admin},
	)
}

func loadMapConfig(conf serviceConfig) (config.MapConfig, error) {
	c := config.DefaultMapConfig()
	if conf.MapConfig != "" {
		var err error
		if c, err = config.Load(conf.MapConfig); err != nil {
			return config.MapConfig{}, err
		}
	}

	if conf.MapFingerprint != "" {
		if err := c.VerifyFingerprint(conf.MapFingerprint); err != nil {
			return config.MapConfig{}, errors.New("unexpected sky map configuration").
				WithTag("map_config", conf.MapConfig).
				Wrap(err)
		}
	}
	return c, nil
}
