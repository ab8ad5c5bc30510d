// cmd/web/main.go
//
// Colégio Elizângela Filomena – HTTP entry point.
//
// Start-up
// --------
//
//  1. Resolve secrets through Vault when VAULT_ADDR is set, then load the
//     layered configuration (conf/global.yaml → conf/.env → COLEGIO_ env).
//
//  2. Start the rotating JSON logger (tees to console when running in a TTY).
//
//  3. Open the MySQL pool and build one table gateway per table.
//
//  4. Wire sessions, sign-in, templates, the notification queue and the
//     optional GeoIP database.
//
//  5. Build the router:
//
//     • request id → access log → recoverer → security headers
//     • optional HTTPS redirect → request info
//     • /metrics and /static/ outside CSRF
//     • /admin back office and the public site behind CSRF
//
//  6. Serve until SIGINT/SIGTERM, then drain requests and the mail queue.
//
// Large comment blocks are framed by blank “//” lines; inline comments use
// a single “//”.
package main

import (
	"context"
	"log"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"
	"golang.org/x/term"

	"github.com/franciscocoimbra11-prog/colegio-elizangela-filomena/internal/admin"
	"github.com/franciscocoimbra11-prog/colegio-elizangela-filomena/internal/auth"
	"github.com/franciscocoimbra11-prog/colegio-elizangela-filomena/internal/config"
	"github.com/franciscocoimbra11-prog/colegio-elizangela-filomena/internal/database"
	"github.com/franciscocoimbra11-prog/colegio-elizangela-filomena/internal/form"
	"github.com/franciscocoimbra11-prog/colegio-elizangela-filomena/internal/logger"
	"github.com/franciscocoimbra11-prog/colegio-elizangela-filomena/internal/message"
	"github.com/franciscocoimbra11-prog/colegio-elizangela-filomena/internal/middleware"
	"github.com/franciscocoimbra11-prog/colegio-elizangela-filomena/internal/requestinfo"
	"github.com/franciscocoimbra11-prog/colegio-elizangela-filomena/internal/school"
	"github.com/franciscocoimbra11-prog/colegio-elizangela-filomena/internal/server"
	"github.com/franciscocoimbra11-prog/colegio-elizangela-filomena/internal/session"
	"github.com/franciscocoimbra11-prog/colegio-elizangela-filomena/internal/site"
	"github.com/franciscocoimbra11-prog/colegio-elizangela-filomena/internal/tableapi"
	"github.com/franciscocoimbra11-prog/colegio-elizangela-filomena/internal/vault"
	"github.com/franciscocoimbra11-prog/colegio-elizangela-filomena/internal/view"
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := run(ctx); err != nil {
		log.Fatalf("colegio: %v", err)
	}
}

func run(ctx context.Context) error {
	//
	// ── 1.  Configuration ───────────────────────────────────────────────
	//
	// Until the configured logger exists, write JSON to stderr.
	zap.ReplaceGlobals(zap.Must(zap.NewProduction()))

	var secrets config.SecretSource
	if vault.Enabled() {
		vc, err := vault.New(ctx, zap.S())
		if err != nil {
			return err
		}
		secrets = vc
	}
	cfg, err := config.Load(ctx, config.Options{Secrets: secrets})
	if err != nil {
		return err
	}

	//
	// ── 2.  Logger ──────────────────────────────────────────────────────
	//
	logOut, err := logger.New(logger.Options{
		Dir:   cfg.Logging.Dir,
		Level: cfg.Logging.Level,
		Tee:   term.IsTerminal(int(os.Stdout.Fd())),
	})
	if err != nil {
		return err
	}
	defer func() { _ = logOut.Sync() }()

	//
	// ── 3.  Database and gateways ───────────────────────────────────────
	//
	db, err := database.OpenWithOptions(ctx, cfg.Database.ResolvedDSN(),
		cfg.Database.MaxOpenConns, cfg.Database.MaxIdleConns)
	if err != nil {
		logOut.Errorw("database unavailable", "err", err)
		return err
	}
	defer db.Close()
	logOut.Infow("database online")

	var (
		inscriptions = tableapi.New[school.Inscription](db, school.TableInscriptions)
		news         = tableapi.New[school.News](db, school.TableNews)
		contacts     = tableapi.New[school.ContactMessage](db, school.TableContacts)
		subscribers  = tableapi.New[school.Subscriber](db, school.TableSubscribers)
		documents    = tableapi.New[school.Document](db, school.TableDocuments)
		users        = tableapi.New[school.AdminUser](db, school.TableAdminUsers)
	)

	//
	// ── 4.  Services ────────────────────────────────────────────────────
	//
	sessions := session.New(session.Options{
		CookieName: cfg.Session.CookieName,
		Secure:     cfg.Session.Secure,
		HashKey:    cfg.Session.CookieHashKey(),
	})
	provider := auth.NewProvider(users, sessions, auth.Options{
		Secret: cfg.Session.Secret,
		Issuer: cfg.Session.Issuer,
		TTL:    cfg.Session.TTL,
	})

	themeDir := cfg.Site.ThemeDir
	if themeDir != "" && !filepath.IsAbs(themeDir) {
		themeDir = filepath.Join(cfg.Paths.Root, themeDir)
	}
	engine, err := view.New(view.Options{
		Site:     cfg.Site.Name,
		BaseURL:  cfg.HTTP.BaseURL,
		ThemeDir: themeDir,
		Sessions: sessions,
	})
	if err != nil {
		logOut.Errorw("templates failed to parse", "err", err)
		return err
	}
	forms := form.NewDecoder(form.Options{MinFill: cfg.Forms.MinFillTime, MaxAge: cfg.Forms.MaxAge})

	var sender message.Sender = message.LogSender{Log: logOut}
	if cfg.Notify.ResendAPIKey != "" {
		sender = message.NewResendSender(cfg.Notify.ResendAPIKey, cfg.Notify.From)
	}
	queue := message.NewQueue(sender, cfg.Notify.QueueSize, logOut)
	defer func() {
		cctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
		defer cancel()
		if err := queue.Close(cctx); err != nil {
			logOut.Warnw("mail queue not drained", "err", err)
		}
	}()

	resolver := &requestinfo.Resolver{TrustProxy: cfg.HTTP.TrustProxy}
	if cfg.Geo.DBPath != "" {
		geo, err := requestinfo.OpenGeo(cfg.Geo.DBPath)
		if err != nil {
			logOut.Warnw("geoip disabled", "path", cfg.Geo.DBPath, "err", err)
		} else {
			defer geo.Close()
			resolver.Geo = geo
		}
	}

	public := site.New(site.Deps{
		News:      news,
		Documents: documents,
		Submitter: site.NewSubmitter(site.SubmitterDeps{
			Inscriptions: inscriptions,
			Contacts:     contacts,
			Subscribers:  subscribers,
			Notify:       queue,
			NotifyTo:     cfg.Notify.To,
			Log:          logOut,
		}),
		View:      engine,
		Forms:     forms,
		NewsLimit: cfg.Site.NewsLimit,
	})
	backOffice := admin.New(admin.Deps{
		Inscriptions: inscriptions,
		News:         news,
		Messages:     contacts,
		Auth:         provider,
		Sessions:     sessions,
		View:         engine,
		Forms:        forms,
		ListLimit:    cfg.Admin.ListLimit,
		SearchDelay:  cfg.Admin.SearchDebounce,
	})

	//
	// ── 5.  Router ──────────────────────────────────────────────────────
	//
	r := chi.NewRouter()
	r.Use(chimw.RequestID)
	if cfg.HTTP.TrustProxy {
		r.Use(chimw.RealIP)
	}
	r.Use(middleware.RequestLogger(logOut))
	r.Use(chimw.Recoverer)
	r.Use(middleware.Security)
	if cfg.HTTP.ForceHTTPS {
		r.Use(middleware.ForceHTTPS)
	}
	r.Use(resolver.Enrich)
	r.NotFound(public.NotFound)

	r.Handle("/metrics", promhttp.Handler())
	r.Handle("/static/*", engine.Static())

	r.Group(func(r chi.Router) {
		r.Use(middleware.CSRF(middleware.CSRFOptions{
			Key:            []byte(cfg.CSRF.Key),
			Secure:         cfg.Session.Secure,
			TrustedOrigins: cfg.CSRF.TrustedOrigins,
		}))
		r.Mount("/admin", backOffice.Routes())
		r.Mount("/", public.Routes())
	})

	//
	// ── 6.  Serve ───────────────────────────────────────────────────────
	//
	return server.Run(ctx, server.New(cfg.HTTP.ListenAddr, r), logOut)
}
