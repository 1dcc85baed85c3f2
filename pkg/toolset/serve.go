package toolset

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	flag "github.com/spf13/pflag"

	"github.com/iotaledger/hive.go/app/configuration"
	"github.com/iotaledger/ledger-ipfs/pkg/metrics/collector"
	"github.com/iotaledger/ledger-ipfs/pkg/model"
)

const (
	RouteHealth  = "/health"
	RouteMetrics = "/metrics"
	RouteContent = "/api/content/:address"
)

func serve(args []string) error {
	fs := configuration.NewUnsortedFlagSet("", flag.ContinueOnError)
	p := bindParameters(fs)
	bindAddressFlag := fs.String(FlagToolBindAddress, "127.0.0.1:9311", "bind address of the HTTP server")
	goMetricsFlag := fs.Bool("goMetrics", false, "include go metrics")
	processMetricsFlag := fs.Bool("processMetrics", false, "include process metrics")

	fs.Usage = usage(fs, ToolServe, fmt.Sprintf("--%s %s", FlagToolBindAddress, "0.0.0.0:9311"))

	if err := parseFlagSet(fs, args); err != nil {
		return err
	}

	if err := p.load(fs); err != nil {
		return err
	}

	env, err := newEnvironment(p)
	if err != nil {
		return err
	}
	defer env.shutdown()

	c := collector.New()
	if *goMetricsFlag {
		c.Registry.MustRegister(collectors.NewGoCollector())
	}
	if *processMetricsFlag {
		c.Registry.MustRegister(collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))
	}
	if err := c.RegisterCollection(env.manager.MetricsCollection()); err != nil {
		return err
	}

	engine := newEngine(env, c)

	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer cancel()

	bindAddr := *bindAddressFlag
	server := &http.Server{Addr: bindAddr, Handler: engine, ReadTimeout: 5 * time.Second}

	go func() {
		env.logger.LogInfo("You can now access the API", "url", fmt.Sprintf("http://%s", bindAddr))
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			env.logger.LogError("Stopping HTTP server due to an error", "err", err)
			cancel()
		}
	}()

	<-ctx.Done()
	env.logger.LogInfo("Stopping HTTP server ...")

	shutdownCtx, shutdownCtxCancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer shutdownCtxCancel()

	//nolint:contextcheck // the serve context is already done
	if err := server.Shutdown(shutdownCtx); err != nil {
		env.logger.LogWarn("Stopping HTTP server failed", "err", err)
	}

	env.logger.LogInfo("Stopping HTTP server ... done")

	return nil
}

func newEngine(env *environment, c *collector.Collector) *echo.Echo {
	engine := echo.New()
	engine.HideBanner = true
	engine.HidePort = true
	engine.Use(middleware.Recover())

	engine.GET(RouteHealth, func(ctx echo.Context) error {
		if env.store.IsUp(ctx.Request().Context()) {
			return ctx.NoContent(http.StatusOK)
		}

		return ctx.NoContent(http.StatusServiceUnavailable)
	})

	metricsHandler := promhttp.HandlerFor(c, promhttp.HandlerOpts{EnableOpenMetrics: true})
	engine.GET(RouteMetrics, echo.WrapHandler(metricsHandler))

	engine.GET(RouteContent, func(ctx echo.Context) error {
		handles, err := env.manager.FindContent(ctx.Request().Context(), model.NewAddress(ctx.Param("address")), 0)
		if err != nil {
			return echo.NewHTTPError(http.StatusInternalServerError, err.Error())
		}

		infos := make([]handleInfo, 0, len(handles))
		for _, handle := range handles {
			infos = append(infos, newHandleInfo(handle))
		}

		return ctx.JSON(http.StatusOK, infos)
	})

	return engine
}
