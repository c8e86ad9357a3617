package bot

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/mymmrac/telego"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"tg-moderation/internal/config"
	"tg-moderation/internal/logger"
)

var allowedUpdates = []string{"message", "chat_member", "my_chat_member", "callback_query"}

// Server serves the webhook endpoint (in webhook mode), the debug page and
// the Prometheus metrics.
type Server struct {
	server   *http.Server
	certFile string
	keyFile  string
}

// Start blocks until the server stops. A graceful shutdown is not an error.
func (s *Server) Start() error {
	logger.Infof("Starting HTTP server on %s", s.server.Addr)

	var err error
	if s.certFile != "" && s.keyFile != "" {
		logger.Infof("Using TLS with cert: %s, key: %s", s.certFile, s.keyFile)
		err = s.server.ListenAndServeTLS(s.certFile, s.keyFile)
	} else {
		err = s.server.ListenAndServe()
	}
	if errors.Is(err, http.ErrServerClosed) {
		return nil
	}
	return err
}

// Shutdown gracefully shuts down the server
func (s *Server) Shutdown(ctx context.Context) error {
	return s.server.Shutdown(ctx)
}

// Addr is the listen address.
func (s *Server) Addr() string {
	return s.server.Addr
}

// newMux registers the debug and metrics endpoints.
func newMux(ctx context.Context, bot *telego.Bot, cfg config.WebhookConfig) *http.ServeMux {
	mux := http.NewServeMux()

	if cfg.MetricsPath != "" {
		mux.Handle(cfg.MetricsPath, promhttp.Handler())
	}

	if cfg.DebugPath != "" {
		mux.HandleFunc(cfg.DebugPath, func(w http.ResponseWriter, r *http.Request) {
			logger.Infof("Debug endpoint accessed: %s %s", r.Method, r.URL.Path)
			w.Header().Set("Content-Type", "text/plain; charset=utf-8")
			w.WriteHeader(http.StatusOK)
			_, _ = w.Write([]byte(debugReport(ctx, bot, cfg.Endpoint)))
		})
	}
	return mux
}

func debugReport(ctx context.Context, bot *telego.Bot, endpoint string) string {
	var b strings.Builder
	b.WriteString("Moderation bot is running\n\n")

	if me, err := bot.GetMe(ctx); err == nil {
		fmt.Fprintf(&b, "Bot username: %s\n", me.Username)
	}
	if endpoint == "" {
		b.WriteString("Update source: long polling\n")
		return b.String()
	}

	fmt.Fprintf(&b, "Webhook path: %s\n", endpoint)
	info, err := bot.GetWebhookInfo(ctx)
	if err != nil {
		fmt.Fprintf(&b, "\nError getting webhook info: %v", err)
		return b.String()
	}
	b.WriteString("\nWebhook Info:\n")
	fmt.Fprintf(&b, "URL: %s\n", info.URL)
	fmt.Fprintf(&b, "Custom Certificate: %v\n", info.HasCustomCertificate)
	fmt.Fprintf(&b, "Pending Updates: %d\n", info.PendingUpdateCount)
	if info.LastErrorDate > 0 {
		errorTime := time.Unix(int64(info.LastErrorDate), 0)
		fmt.Fprintf(&b, "Last Error: [%s] %s\n", errorTime.Format("2006-01-02 15:04:05"), info.LastErrorMessage)
	}
	return b.String()
}

// webhookPath validates the endpoint and returns the path updates arrive on.
func webhookPath(endpoint, certFile, keyFile string) (string, error) {
	if (certFile == "" || keyFile == "") && !strings.HasPrefix(endpoint, "https://") {
		return "", fmt.Errorf("HTTPS configuration required: set cert_file and key_file in config or use a HTTPS proxy")
	}

	parsed, err := url.Parse(endpoint)
	if err != nil {
		return "", fmt.Errorf("invalid webhook endpoint: %w", err)
	}
	if parsed.Path == "" || parsed.Path == "/" {
		logger.Infof("No path specified in webhook endpoint, using default path: /webhook")
		return "/webhook", nil
	}
	return parsed.Path, nil
}

// SetupUpdates chooses the update source. A configured endpoint registers a
// webhook served by the returned server; otherwise updates are long polled
// and the server only exposes debug and metrics.
func SetupUpdates(ctx context.Context, bot *telego.Bot, cfg config.WebhookConfig, secretToken string) (<-chan telego.Update, *Server, error) {
	listenPort := cfg.ListenPort
	if listenPort == "" {
		listenPort = "8443"
		logger.Infof("Using default listen port: %s", listenPort)
	}

	mux := newMux(ctx, bot, cfg)
	server := &Server{
		server: &http.Server{
			Addr:              "0.0.0.0:" + listenPort,
			Handler:           mux,
			ReadHeaderTimeout: 10 * time.Second,
		},
		certFile: cfg.CertFile,
		keyFile:  cfg.KeyFile,
	}

	if cfg.Endpoint == "" {
		if err := bot.DeleteWebhook(ctx, &telego.DeleteWebhookParams{}); err != nil {
			return nil, nil, fmt.Errorf("failed to delete existing webhook: %w", err)
		}
		logger.Infof("No webhook endpoint configured, using long polling")
		updates, err := bot.UpdatesViaLongPolling(ctx, &telego.GetUpdatesParams{
			Timeout:        30,
			AllowedUpdates: allowedUpdates,
		})
		if err != nil {
			return nil, nil, fmt.Errorf("failed to start long polling: %w", err)
		}
		return updates, server, nil
	}

	path, err := webhookPath(cfg.Endpoint, cfg.CertFile, cfg.KeyFile)
	if err != nil {
		return nil, nil, err
	}

	logger.Infof("Setting webhook to: %s", cfg.Endpoint)
	err = bot.SetWebhook(ctx, &telego.SetWebhookParams{
		URL:            cfg.Endpoint,
		AllowedUpdates: allowedUpdates,
		SecretToken:    secretToken,
	})
	if err != nil {
		return nil, nil, fmt.Errorf("failed to set webhook: %w", err)
	}

	if info, err := bot.GetWebhookInfo(ctx); err != nil {
		logger.Warningf("Failed to get webhook info: %v", err)
	} else {
		logger.Infof("Webhook info: URL=%s, HasCustomCert=%v, PendingUpdateCount=%d",
			info.URL, info.HasCustomCertificate, info.PendingUpdateCount)
		if info.LastErrorDate > 0 {
			logger.Warningf("Webhook last error: [%d] %s", info.LastErrorDate, info.LastErrorMessage)
		}
	}

	updates, err := bot.UpdatesViaWebhook(ctx, telego.WebhookHTTPServeMux(mux, path, secretToken))
	if err != nil {
		return nil, nil, fmt.Errorf("failed to get updates channel: %w", err)
	}
	return updates, server, nil
}
