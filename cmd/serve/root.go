package serve

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/ValentinKolb/treekv/internal/config"
	"github.com/ValentinKolb/treekv/internal/controlplane"
	"github.com/ValentinKolb/treekv/internal/gate"
	"github.com/ValentinKolb/treekv/internal/interp"
	"github.com/ValentinKolb/treekv/internal/logging"
	"github.com/ValentinKolb/treekv/internal/metrics"
	"github.com/ValentinKolb/treekv/internal/registry"
	"github.com/ValentinKolb/treekv/internal/server"
	"github.com/ValentinKolb/treekv/internal/tree"
	"github.com/ValentinKolb/treekv/internal/worker"
)

var (
	serveCfg *config.ServerConfig

	ServeCmd = &cobra.Command{
		Use:     "serve",
		Short:   "Start the treekv server",
		Long:    `Start the treekv server with the specified configuration. The configuration can be set via command line flags or environment variables. The format of the environment variables is TREEKV_<flag> (e.g. TREEKV_LOG_LEVEL=debug)`,
		PreRunE: processConfig,
		RunE:    run,
	}
)

func init() {
	cobra.OnInitialize(config.InitViper)
	config.BindFlags(ServeCmd)
}

// processConfig reads the configuration from the command line flags and
// environment variables.
func processConfig(cmd *cobra.Command, _ []string) error {
	cfg, err := config.Load(cmd)
	if err != nil {
		return err
	}
	serveCfg = cfg
	return nil
}

// run wires the tree, interpreter, worker lifecycle, and control plane
// together and blocks until the operator console reaches end-of-input and
// the shutdown sequence completes.
func run(_ *cobra.Command, _ []string) error {
	level, err := logging.ParseLevel(serveCfg.LogLevel)
	if err != nil {
		return err
	}
	log := logging.New("treekv")
	log.SetLevel(level)

	tr := tree.New()
	reg := registry.New()
	g := gate.New()
	in := interp.New(tr)
	m := metrics.New(reg)
	cp := controlplane.New(reg, g, tr, log).WithMetrics(m)

	deps := worker.Deps{
		Registry:    reg,
		Gate:        g,
		Accept:      cp,
		Interpreter: in,
		Log:         log,
		Metrics:     m,
	}

	addr := fmt.Sprintf(":%d", serveCfg.Port)
	srv, err := server.Listen(addr, deps, log)
	if err != nil {
		return fmt.Errorf("listen on %s: %w", addr, err)
	}

	if serveCfg.MetricsAddr != "" {
		go func() {
			if err := metrics.ServeHTTP(serveCfg.MetricsAddr); err != nil {
				log.Errorf("metrics server: %v", err)
			}
		}()
	}

	monitor := controlplane.NewSignalMonitor(reg, log)
	monitor.Start()

	log.Infof("listening on %s", srv.Addr())
	go srv.Run()

	cp.RunConsole(os.Stdin, os.Stdout, monitor, srv.Stop)
	return nil
}
