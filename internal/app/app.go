// Package app wires the top-level aggregate together: load config,
// build the logging router from sinks, dial the upstream server, accept
// downstream connections, and serve the admin dashboard — the same
// overall shape as the teacher's app.Run, with server.Hub/game HTTP
// handler wiring replaced by session.Session + netio.Listener +
// admin.Server.
package app

import (
	"context"
	"fmt"
	"log"
	"net"
	"net/http"
	"os"
	"strconv"
	"time"

	"uoproxy/internal/admin"
	"uoproxy/internal/command"
	"uoproxy/internal/config"
	"uoproxy/internal/downstream"
	"uoproxy/internal/netio"
	"uoproxy/internal/session"
	"uoproxy/internal/telemetry"
	"uoproxy/internal/walk"
	"uoproxy/logging"
	"uoproxy/logging/sinks"
)

// Deps lets callers override the ambient logger; Run builds everything
// else from cfg.
type Deps struct {
	Logger telemetry.Logger
}

// Run dials the upstream server, listens for downstream clients, and
// blocks until ctx is canceled or the listener fails unrecoverably.
func Run(ctx context.Context, cfg config.Config, deps Deps) error {
	telemetryLogger := deps.Logger
	if telemetryLogger == nil {
		telemetryLogger = telemetry.WrapLogger(log.Default())
	}

	logConfig := logging.DefaultConfig()
	logConfig.MinimumSeverity = severityFromString(cfg.LogLevel)

	adminHub := admin.NewHub()
	namedSinks := []logging.NamedSink{
		{Name: "console", Sink: sinks.NewConsoleSink(os.Stdout, logging.ConsoleConfig{})},
		{Name: "admin", Sink: adminHub.AsSink()},
	}

	router, err := logging.NewRouter(logging.ClockFunc(time.Now), logConfig, namedSinks)
	if err != nil {
		return fmt.Errorf("failed to construct logging router: %w", err)
	}
	defer func() {
		if cerr := router.Close(ctx); cerr != nil {
			telemetryLogger.Printf("failed to close logging router: %v", cerr)
		}
	}()

	registry := session.NewRegistry()
	key := session.Key{
		Username:       cfg.Username,
		ServerIndex:    cfg.ServerIndex,
		CharacterIndex: cfg.CharacterIndex,
	}

	reconnector := session.NewReconnector(cfg.ReconnectRatePerSecond, cfg.ReconnectBurst, cfg.ReconnectBackoffCap)

	upstreamConn, err := netio.DialUpstream(ctx, cfg.UpstreamAddress)
	if err != nil {
		return fmt.Errorf("failed to dial upstream %s: %w", cfg.UpstreamAddress, err)
	}

	sess := session.New(key, cfg.ClientRevision, session.NewUpstreamConn(upstreamConn), router)
	sess.SetBackground(cfg.Background)
	sess.SetAutoreconnect(cfg.AutoReconnect)
	registry.Put(sess)

	coordinator := walk.New(sess.World(), sess)

	cmdChannel := command.New(
		func() []string {
			var names []string
			for _, s := range registry.Snapshot() {
				names = append(names, fmt.Sprintf("%s#%d.%d", s.Key.Username, s.Key.ServerIndex, s.Key.CharacterIndex))
			}
			return names
		},
		func(command.Session) { reconnector.Reset() },
	)

	go runUpstreamWithReconnect(ctx, cfg, sess, coordinator, reconnector, telemetryLogger, upstreamConn)

	listener, err := netio.Listen(cfg.ListenAddress)
	if err != nil {
		return fmt.Errorf("failed to bind downstream listener on %s: %w", cfg.ListenAddress, err)
	}
	defer listener.Close()
	telemetryLogger.Printf("listening for downstream clients on %s", cfg.ListenAddress)

	if cfg.AdminListenAddress != "" {
		adminServer := admin.NewServer(registry, adminHub)
		go func() {
			telemetryLogger.Printf("admin dashboard listening on %s", cfg.AdminListenAddress)
			if err := http.ListenAndServe(cfg.AdminListenAddress, adminServer.Handler()); err != nil {
				telemetryLogger.Printf("admin dashboard stopped: %v", err)
			}
		}()
	}

	var nextEndpointID int
	for {
		nc, err := listener.Accept(ctx)
		if err != nil {
			if ctx.Err() != nil {
				sess.Teardown(ctx, nil)
				return nil
			}
			telemetryLogger.Printf("accept failed: %v", err)
			continue
		}
		if cfg.MaxAttachedClients > 0 && sess.Endpoints().Len() >= cfg.MaxAttachedClients {
			telemetryLogger.Printf("rejecting downstream from %s: %d clients already attached", nc.RemoteAddr(), cfg.MaxAttachedClients)
			nc.Close()
			continue
		}

		nextEndpointID++
		id := "ep-" + strconv.Itoa(nextEndpointID)
		telemetryLogger.Printf("endpoint %s attached from %s", id, nc.RemoteAddr())

		ep := downstream.NewEndpoint(id, session.NewEndpointConn(nc))
		sess.Attach(ctx, ep, cfg.ClientRevision, nextEndpointID == 1)
		go sess.RunDownstream(ctx, ep, nc, coordinator, cmdChannel)
	}
}

// runUpstreamWithReconnect drives the upstream socket for the lifetime
// of ctx, redialing through reconnector whenever the connection drops
// and the session still wants autoreconnect, and tearing the session
// down once it gives up. nc is the already-dialed connection Run
// opened before the session existed.
func runUpstreamWithReconnect(ctx context.Context, cfg config.Config, sess *session.Session, coordinator *walk.Coordinator, reconnector *session.Reconnector, logger telemetry.Logger, nc net.Conn) {
	for {
		if nc == nil {
			if err := reconnector.Wait(ctx); err != nil {
				return
			}
			dialed, err := netio.DialUpstream(ctx, cfg.UpstreamAddress)
			if err != nil {
				logger.Printf("upstream reconnect failed (%s): %v", reconnector.Describe(), err)
				continue
			}
			sess.SetUpstream(session.NewUpstreamConn(dialed))
			nc = dialed
			reconnector.Reset()
		}

		var disconnectErr error
		sess.RunUpstream(ctx, nc, coordinator, func(err error) { disconnectErr = err })
		if ctx.Err() != nil {
			return
		}
		logger.Printf("upstream connection lost: %v", disconnectErr)
		nc = nil
		if !sess.Autoreconnect() {
			sess.Teardown(ctx, fmt.Errorf("upstream disconnected"))
			return
		}
	}
}

// severityFromString maps a config.Config.LogLevel value ("debug",
// "info", "warn", "error") to the corresponding logging.Severity,
// defaulting to SeverityInfo for an unrecognized level.
func severityFromString(level string) logging.Severity {
	switch level {
	case "debug":
		return logging.SeverityDebug
	case "info":
		return logging.SeverityInfo
	case "warn":
		return logging.SeverityWarn
	case "error":
		return logging.SeverityError
	default:
		return logging.SeverityInfo
	}
}
