package main

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"os"
	"text/tabwriter"
	"time"

	"github.com/danielgtaylor/huma/v2/humacli"
	"github.com/joho/godotenv"
	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"

	"github.com/manuel-moraleschaves/PF3311-proyecto/internal/layers"
	"github.com/manuel-moraleschaves/PF3311-proyecto/internal/report"
	"github.com/manuel-moraleschaves/PF3311-proyecto/internal/server"
	"github.com/manuel-moraleschaves/PF3311-proyecto/internal/service"
	"github.com/manuel-moraleschaves/PF3311-proyecto/internal/wfs"
)

// Options defines all CLI flags and env vars for the dashboard server.
// Flags: --host, --port, --canton-url, --road-url, ...
// Env vars: SERVICE_HOST, SERVICE_PORT, SERVICE_CANTON_URL, ...
type Options struct {
	Host         string `doc:"Host to bind to" default:"0.0.0.0"`
	Port         int    `doc:"Port to listen on" short:"p" default:"8086"`
	CantonURL    string `doc:"WFS endpoint of the canton boundary layer" default:"https://geos.snitcr.go.cr/be/IGN_5/wfs"`
	CantonLayer  string `doc:"Feature type of the canton boundary layer" default:"IGN_5:limitecantonal_5k"`
	RoadURL      string `doc:"WFS endpoint of the road network layer" default:"https://geos.snitcr.go.cr/be/IGN_200/wfs"`
	RoadLayer    string `doc:"Feature type of the road network layer" default:"IGN_200:redvial_200k"`
	SRSName      string `doc:"CRS requested from both layers" default:"urn:ogc:def:crs:EPSG::5367"`
	FetchTimeout int    `doc:"WFS request timeout in seconds" default:"120"`
	SessionTTL   int    `doc:"Idle session lifetime in minutes" default:"30"`
	DBPath       string `doc:"DuckDB file of the stats warehouse (empty for in-memory)" default:""`
	LogLevel     string `doc:"Log level (debug, info, warn, error)" default:"info"`
	LogFormat    string `doc:"Log format (text, json)" default:"text"`
}

func (o *Options) sources() layers.Sources {
	src := layers.DefaultSources()
	src.Cantons.Query.BaseURL = o.CantonURL
	src.Cantons.Query.TypeName = o.CantonLayer
	src.Cantons.Query.SRSName = o.SRSName
	src.Roads.Query.BaseURL = o.RoadURL
	src.Roads.Query.TypeName = o.RoadLayer
	src.Roads.Query.SRSName = o.SRSName
	return src
}

func (o *Options) fetchTimeout() time.Duration {
	return time.Duration(o.FetchTimeout) * time.Second
}

func newLogger(opts *Options) *logrus.Logger {
	log := logrus.New()
	if opts.LogFormat == "json" {
		log.SetFormatter(&logrus.JSONFormatter{TimestampFormat: time.RFC3339Nano})
	} else {
		log.SetFormatter(&logrus.TextFormatter{FullTimestamp: true, TimestampFormat: time.RFC3339Nano})
	}
	level, err := logrus.ParseLevel(opts.LogLevel)
	if err != nil {
		log.WithError(err).Warn("unknown log level, using info")
		level = logrus.InfoLevel
	}
	log.SetLevel(level)
	return log
}

func newServer(opts *Options, log logrus.FieldLogger) (*server.Server, error) {
	return server.New(server.Config{
		Host:         opts.Host,
		Port:         fmt.Sprintf("%d", opts.Port),
		Sources:      opts.sources(),
		FetchTimeout: opts.fetchTimeout(),
		SessionTTL:   time.Duration(opts.SessionTTL) * time.Minute,
		DBPath:       opts.DBPath,
		Log:          log,
	})
}

// newStats builds a stats service for one-shot commands.
func newStats(opts *Options, log logrus.FieldLogger) *service.StatsService {
	return service.NewStatsService(service.StatsConfig{
		Fetcher: wfs.NewClient(opts.fetchTimeout()),
		Sources: opts.sources(),
		Log:     log,
	})
}

func fatal(log logrus.FieldLogger, err error, msg string) {
	log.WithError(err).Error(msg)
	os.Exit(1)
}

func main() {
	// .env is optional
	_ = godotenv.Load()

	cli := humacli.New(func(hooks humacli.Hooks, opts *Options) {
		log := newLogger(opts)
		var srv *server.Server
		var httpSrv *http.Server

		hooks.OnStart(func() {
			var err error
			srv, err = newServer(opts, log)
			if err != nil {
				fatal(log, err, "failed to create server")
			}
			addr := fmt.Sprintf("%s:%d", opts.Host, opts.Port)
			displayHost := opts.Host
			if displayHost == "0.0.0.0" {
				displayHost = "localhost"
			}
			baseURL := fmt.Sprintf("http://%s:%d", displayHost, opts.Port)

			fmt.Println()
			fmt.Printf("redvial dashboard starting...\n")
			fmt.Printf("  Server:  %s\n", baseURL)
			fmt.Printf("  Cantons: %s (%s)\n", opts.CantonLayer, opts.CantonURL)
			fmt.Printf("  Roads:   %s (%s)\n", opts.RoadLayer, opts.RoadURL)
			fmt.Println()
			fmt.Printf("  Metrics: %s/metrics\n", baseURL)
			fmt.Printf("  Docs:    %s/docs\n", baseURL)
			fmt.Printf("  OpenAPI: %s/openapi.json\n", baseURL)
			fmt.Println()

			httpSrv = &http.Server{Addr: addr, Handler: srv}
			if err := httpSrv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
				fatal(log, err, "server error")
			}
		})

		hooks.OnStop(func() {
			if httpSrv != nil {
				ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
				defer cancel()
				httpSrv.Shutdown(ctx)
			}
			if srv != nil {
				srv.Close()
			}
		})
	})

	cli.Root().Use = "redvial"
	cli.Root().Short = "Road network length and density per canton of Costa Rica"
	cli.Root().Version = "1.0.0"

	// spec subcommand: export OpenAPI spec
	specCmd := &cobra.Command{
		Use:   "spec",
		Short: "Export OpenAPI spec (JSON by default, --yaml for YAML)",
		Run: humacli.WithOptions(func(cmd *cobra.Command, args []string, opts *Options) {
			log := newLogger(opts)
			srv, err := newServer(opts, log)
			if err != nil {
				fatal(log, err, "failed to create server")
			}
			defer srv.Close()
			spec := srv.OpenAPI()

			useYAML, _ := cmd.Flags().GetBool("yaml")

			var output []byte
			if useYAML {
				output, err = yaml.Marshal(spec)
			} else {
				output, err = json.MarshalIndent(spec, "", "  ")
			}
			if err != nil {
				fatal(log, err, "failed to marshal spec")
			}
			fmt.Println(string(output))
		}),
	}
	specCmd.Flags().BoolP("yaml", "y", false, "Output as YAML instead of JSON")
	cli.Root().AddCommand(specCmd)

	// categories subcommand: list the road categories of the live layers
	cli.Root().AddCommand(&cobra.Command{
		Use:   "categories",
		Short: "Fetch the layers and list the road categories",
		Run: humacli.WithOptions(func(cmd *cobra.Command, args []string, opts *Options) {
			log := newLogger(opts)
			t, err := newStats(opts, log).Load(cmd.Context(), nil)
			if err != nil {
				fatal(log, err, "failed to load layers")
			}
			for _, c := range t.Categories {
				fmt.Println(c)
			}
		}),
	})

	// stats subcommand: print the stat table of one category
	statsCmd := &cobra.Command{
		Use:   "stats",
		Short: "Fetch the layers and print the per-canton table of a category",
		Run: humacli.WithOptions(func(cmd *cobra.Command, args []string, opts *Options) {
			log := newLogger(opts)
			category, _ := cmd.Flags().GetString("category")

			stats := newStats(opts, log)
			ctx := cmd.Context()
			t, err := stats.Load(ctx, func(pct int, status string) {
				log.WithField("progress", pct).Info(status)
			})
			if err != nil {
				fatal(log, err, "failed to load layers")
			}
			if err := t.CheckCategories(); err != nil {
				fatal(log, err, "no categories")
			}
			if category == "" {
				category = t.Categories[0]
			}
			rows, err := stats.Stats(ctx, t, category)
			if err != nil {
				fatal(log, err, "failed to compute stats")
			}
			printTable(report.NewTable(category, rows))
		}),
	}
	statsCmd.Flags().StringP("category", "c", "", "Road category (defaults to the first one)")
	cli.Root().AddCommand(statsCmd)

	cli.Run()
}

func printTable(t report.Table) {
	fmt.Printf("Categoría: %s\n\n", t.Category)
	w := tabwriter.NewWriter(os.Stdout, 0, 4, 2, ' ', tabwriter.AlignRight)
	fmt.Fprintf(w, "\t%s\t%s\t%s\t\n", report.ColumnCanton, report.ColumnLength, report.ColumnDensity)
	for _, r := range t.Rows {
		fmt.Fprintf(w, "%d\t%s\t%s\t%s\t\n", r.Index, r.Canton, r.LengthText(), r.DensityText())
	}
	w.Flush()
	fmt.Printf("\nTotal: %.2f km\n", t.TotalKm)
}
