package main

import (
	"context"
	"errors"
	"net"
	"net/http"
	"os"
	"os/signal"
	"strconv"
	"syscall"
	"time"

	promclient "github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"

	"github.com/cloudhut/kadminion/agent"
	"github.com/cloudhut/kadminion/audit"
	"github.com/cloudhut/kadminion/kadmin"
	"github.com/cloudhut/kadminion/logging"
	"github.com/cloudhut/kadminion/prometheus"
)

// Injected at build time via ldflags
var (
	version = "development"
	builtAt = ""
)

func main() {
	startupLogger := zap.NewExample()

	cfg, err := newConfig(startupLogger)
	if err != nil {
		startupLogger.Fatal("failed to parse config", zap.Error(err))
	}

	redactor := logging.NewRedactor()
	registerSecrets(redactor, cfg)

	logger := logging.NewLogger(cfg.Logger, cfg.Exporter.Namespace, redactor)
	logger.Info("started kadminion",
		zap.String("version", version),
		zap.String("built_at", builtAt))

	// The exporter reads the version from the environment when it registers
	// its metrics.
	err = os.Setenv("EXPORTER_VERSION", version)
	if err != nil {
		logger.Fatal("failed to set exporter version env variable", zap.Error(err))
	}

	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	// Create kadmin service
	kadminSvc, err := kadmin.NewService(cfg.Kadmin, logger, redactor, cfg.Exporter.Namespace)
	if err != nil {
		logger.Fatal("failed to setup kadmin service", zap.Error(err))
	}
	defer kadminSvc.Close()

	// Create audit service if audit events shall be published to Kafka
	var auditSvc *audit.Service
	if cfg.Audit.Enabled {
		auditSvc, err = audit.NewService(cfg.Audit, logger, redactor, cfg.Exporter.Namespace)
		if err != nil {
			logger.Fatal("failed to setup audit service", zap.Error(err))
		}
		err = auditSvc.Start(ctx)
		if err != nil {
			logger.Fatal("failed to start audit service", zap.Error(err))
		}
	}

	// Create agent service that reconciles principals, keytabs and the krb5 config
	agentSvc, err := agent.NewService(cfg.Agent, logger, kadminSvc, auditSvc, cfg.Exporter.Namespace)
	if err != nil {
		logger.Fatal("failed to setup agent service", zap.Error(err))
	}

	err = agentSvc.Start(ctx)
	if cfg.Agent.ReconcileInterval == 0 {
		// One shot mode, the process is done after a single reconcile. Flush
		// pending audit events before exiting.
		if auditSvc != nil {
			auditSvc.Close()
		}
		if err != nil {
			logger.Fatal("reconcile failed", zap.Error(err))
		}
		logger.Info("reconcile complete, exiting because the reconcile interval is zero")
		return
	}
	if err != nil {
		logger.Fatal("failed to start agent service", zap.Error(err))
	}

	// Prometheus exporter
	exporter, err := prometheus.NewExporter(cfg.Exporter, logger, agentSvc)
	if err != nil {
		logger.Fatal("failed to setup prometheus exporter", zap.Error(err))
	}
	exporter.InitializeMetrics()
	promclient.MustRegister(exporter)

	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.Handler())
	mux.HandleFunc("/ready", func(w http.ResponseWriter, _ *http.Request) {
		if agentSvc.IsReady() {
			w.WriteHeader(http.StatusOK)
			return
		}
		w.WriteHeader(http.StatusServiceUnavailable)
	})

	address := net.JoinHostPort(cfg.Exporter.Host, strconv.Itoa(cfg.Exporter.Port))
	srv := &http.Server{Addr: address, Handler: mux}

	go func() {
		<-ctx.Done()
		shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer shutdownCancel()
		if err := srv.Shutdown(shutdownCtx); err != nil {
			logger.Warn("failed to shut down the http server cleanly", zap.Error(err))
		}
	}()

	logger.Info("listening on address", zap.String("listen_address", address))
	if cfg.Exporter.TLSCertFile != "" && cfg.Exporter.TLSKeyFile != "" {
		err = srv.ListenAndServeTLS(cfg.Exporter.TLSCertFile, cfg.Exporter.TLSKeyFile)
	} else {
		err = srv.ListenAndServe()
	}
	if err != nil && !errors.Is(err, http.ErrServerClosed) {
		logger.Error("error starting HTTP server", zap.Error(err))
		os.Exit(1)
	}

	if auditSvc != nil {
		auditSvc.Close()
	}
	logger.Info("kadminion stopped")
}

// registerSecrets adds every credential from the config to the redactor. The
// kadmin service registers Kerberos credentials again as they are used, the
// audit client credentials are only seen here.
func registerSecrets(redactor *logging.Redactor, cfg Config) {
	const placeholder = "[PROTECTED]"

	redactor.Register(cfg.Agent.Realm.Admin.Password, placeholder)
	for _, identity := range cfg.Agent.Identities {
		redactor.Register(identity.Identity.Password, placeholder)
	}
	redactor.Register(cfg.Audit.SASL.Password, placeholder)
	redactor.Register(cfg.Audit.SASL.GSSAPI.Password, placeholder)
	redactor.Register(cfg.Audit.TLS.Passphrase, placeholder)
}
