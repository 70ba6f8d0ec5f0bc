package main

import (
	"context"
	"database/sql"
	"fmt"
	"io/fs"
	"log"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gofiber/fiber/v2"
	gconfig "github.com/goliatone/go-config/config"
	"github.com/goliatone/go-errors"
	"github.com/goliatone/go-logger/glog"
	"github.com/goliatone/go-persistence-bun"
	"github.com/goliatone/go-print"
	"github.com/goliatone/go-router"
	"github.com/uptrace/bun"
	"github.com/uptrace/bun/dialect/sqlitedialect"
	"github.com/uptrace/bun/driver/sqliteshim"

	bookshelf "github.com/goliatone/go-bookshelf"
	"github.com/goliatone/go-bookshelf/books"
	"github.com/goliatone/go-bookshelf/config"
)

type App struct {
	config    *gconfig.Container[*config.BaseConfig]
	logger    *glog.BaseLogger
	bunDB     *bun.DB
	repo      bookshelf.RepositoryManager
	gateway   *bookshelf.LocalGateway
	auth      *bookshelf.Orchestrator
	approvals *bookshelf.ApprovalWorkflow
	shelf     books.Books
	srv       router.Server[*fiber.App]
}

func (a *App) Config() *config.BaseConfig {
	return a.config.Raw()
}

func (a *App) GetLogger(name string) glog.Logger {
	return a.logger.GetLogger(name)
}

func main() {

	lgr := glog.NewLogger(
		glog.WithLoggerTypePretty(),
		glog.WithLevel(glog.Info),
		glog.WithName("bookshelf"),
		glog.WithAddSource(false),
		glog.WithRichErrorHandler(errors.ToSlogAttributes),
	)

	cfg := gconfig.New(&config.BaseConfig{}).
		WithLogger(lgr.GetLogger("config"))

	ctx := context.Background()
	if err := cfg.Load(ctx); err != nil {
		panic(err)
	}

	app := &App{
		config: cfg,
		logger: lgr,
	}

	if err := WithPersistence(ctx, app); err != nil {
		panic(err)
	}

	if err := WithAccounts(ctx, app); err != nil {
		panic(err)
	}

	if err := WithShelf(ctx, app); err != nil {
		panic(err)
	}

	WithHTTPServer(ctx, app)

	app.auth.Start(ctx)

	app.srv.Serve(app.Config().GetServer().GetAddress())

	WaitExitSignal()
}

func WithPersistence(ctx context.Context, app *App) error {
	db, err := sql.Open(sqliteshim.ShimName, app.Config().GetPersistence().GetDSN())
	if err != nil {
		log.Fatal(err)
		return err
	}

	persistence.RegisterModel((*bookshelf.User)(nil))
	persistence.RegisterModel((*bookshelf.IdentityRecord)(nil))
	persistence.RegisterModel((*bookshelf.RegistrationAttempt)(nil))
	persistence.RegisterModel((*bookshelf.SecurityLog)(nil))
	persistence.RegisterModel((*books.Book)(nil))

	cfg := app.Config().GetPersistence()
	dialect := sqlitedialect.New()
	client, err := persistence.New(cfg, db, dialect)
	if err != nil {
		log.Fatal(err)
		return err
	}

	client.SetLogger(app.GetLogger("persistence"))
	migrationsFS, err := fs.Sub(bookshelf.GetMigrationsFS(), "data/sql/migrations")
	if err != nil {
		return err
	}
	client.RegisterDialectMigrations(
		migrationsFS,
		persistence.WithDialectSourceLabel("data/sql/migrations"),
		persistence.WithValidationTargets("postgres", "sqlite"),
	)
	if err := client.ValidateDialects(ctx); err != nil {
		return err
	}

	if err := client.Migrate(ctx); err != nil {
		return err
	}

	if report := client.Report(); report != nil && !report.IsZero() {
		fmt.Printf("report: %s\n", report.String())
	}

	app.bunDB = client.DB()
	app.repo = bookshelf.NewRepositoryManager(client.DB())

	return nil
}

func WithAccounts(ctx context.Context, app *App) error {
	if err := app.repo.Validate(); err != nil {
		return err
	}

	authCfg := app.Config().GetAuth()

	app.gateway = bookshelf.NewLocalGateway(app.bunDB, authCfg,
		bookshelf.WithGatewayLogger(app.GetLogger("gateway")),
	)

	throttle := bookshelf.NewRegistrationThrottle(app.repo.RegistrationAttempts(),
		bookshelf.WithThrottleLogger(app.GetLogger("throttle")),
	)

	sink := bookshelf.NewStoreSecuritySink(app.repo.SecurityLogs())

	app.auth = bookshelf.NewOrchestrator(app.gateway, app.repo.Users(),
		bookshelf.WithAdminEmail(authCfg.GetAdminEmail()),
		bookshelf.WithThrottle(throttle),
		bookshelf.WithSecuritySink(sink),
		bookshelf.WithOrchestratorLogger(app.GetLogger("auth")),
	)

	app.approvals = bookshelf.NewApprovalWorkflow(app.repo.Users(), app.gateway,
		bookshelf.WithApprovalSecuritySink(sink),
		bookshelf.WithApprovalLogger(app.GetLogger("approvals")),
	)

	return nil
}

func WithShelf(ctx context.Context, app *App) error {
	app.shelf = books.NewRepository(app.bunDB)

	manifestDir := app.Config().GetShelf().GetManifestDir()
	if _, err := os.Stat(manifestDir); err != nil {
		app.GetLogger("shelf").Warn("manifest dir missing, skipping import", "dir", manifestDir)
		return nil
	}

	importer := books.NewImporter(app.shelf,
		books.WithImporterLogger(app.GetLogger("shelf:import")),
	)

	count, err := importer.ImportFS(ctx, os.DirFS(manifestDir))
	if err != nil {
		return err
	}

	app.GetLogger("shelf").Info("book manifests imported", "count", count)
	return nil
}

func WithHTTPServer(ctx context.Context, app *App) {
	srv := router.NewFiberAdapter(func(a *fiber.App) *fiber.App {
		return router.DefaultFiberOptions(fiber.New(fiber.Config{
			UnescapePath:      true,
			EnablePrintRoutes: app.Config().GetServer().GetDebug(),
			StrictRouting:     false,
		}))
	})

	srv.Router().WithLogger(app.GetLogger("router"))

	authCfg := app.Config().GetAuth()
	cookieName := authCfg.GetCookieName()
	if cookieName == "" {
		cookieName = bookshelf.DefaultSessionCookie
	}

	if app.Config().GetServer().GetDebug() {
		fmt.Println("============")
		fmt.Println(print.MaybeHighlightJSON(app.Config()))
		fmt.Println("============")
	}

	bookshelf.RegisterAuthRoutes(srv.Router().Group("/"),
		bookshelf.WithControllerAuth(app.auth),
		bookshelf.WithControllerApprovals(app.approvals),
		bookshelf.WithControllerLogger(app.GetLogger("auth:ctrl")),
		bookshelf.WithControllerDebug(app.Config().GetServer().GetDebug()),
		bookshelf.WithControllerCookie(cookieName, time.Duration(authCfg.GetTokenExpiration())*time.Hour),
	)

	books.RegisterShelfRoutes(srv.Router().Group("/"), app.shelf, app.auth,
		books.WithShelfLogger(app.GetLogger("shelf:ctrl")),
		books.WithShelfCookie(cookieName),
	)

	app.srv = srv
}

func WaitExitSignal() os.Signal {
	ch := make(chan os.Signal, 3)
	signal.Notify(ch,
		syscall.SIGINT,
		syscall.SIGQUIT,
		syscall.SIGTERM,
	)
	return <-ch
}
