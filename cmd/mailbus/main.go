package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/getsentry/sentry-go"
	"github.com/pkg/errors"
	"github.com/rs/zerolog"
	"github.com/spf13/viper"

	"github.com/quantonganh/mailbus"
	"github.com/quantonganh/mailbus/auth"
	"github.com/quantonganh/mailbus/bolt"
	"github.com/quantonganh/mailbus/http"
	"github.com/quantonganh/mailbus/newsletter"
	"github.com/quantonganh/mailbus/postgres"
	"github.com/quantonganh/mailbus/postmark"
	"github.com/quantonganh/mailbus/resend"
	"github.com/quantonganh/mailbus/sendgrid"
	"github.com/quantonganh/mailbus/ses"
	"github.com/quantonganh/mailbus/smtp"
	"github.com/quantonganh/mailbus/subscription"
)

func main() {
	v := viper.New()
	v.SetConfigName("config")
	v.AddConfigPath(".")
	v.AddConfigPath("./config")
	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			fmt.Fprintln(os.Stderr, err)
			os.Exit(1)
		}
	}

	config, err := mailbus.LoadConfig(v)
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}

	logger := newLogger(config.Log.Level)

	if err := sentry.Init(sentry.ClientOptions{
		Dsn: config.Sentry.DSN,
	}); err != nil {
		logger.Fatal().Err(err).Msg("sentry.Init")
	}
	defer sentry.Flush(2 * time.Second)

	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer cancel()

	if len(os.Args) > 1 && os.Args[1] == "useradd" {
		if err := userAdd(ctx, config, logger, os.Args[2:]); err != nil {
			fmt.Fprintln(os.Stderr, err)
			os.Exit(1)
		}
		return
	}

	a, err := newApp(config, logger)
	if err != nil {
		logger.Fatal().Err(err).Msg("failed to create app")
	}

	if err := a.Run(ctx); err != nil {
		_ = a.Close()
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}

	logger.Info().Str("addr", config.HTTP.Addr).Str("url", a.httpServer.URL()).Msg("mailbus is running")

	<-ctx.Done()

	if err := a.Close(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func newLogger(level string) zerolog.Logger {
	lvl, err := zerolog.ParseLevel(level)
	if err != nil || level == "" {
		lvl = zerolog.InfoLevel
	}
	return zerolog.New(os.Stdout).Level(lvl).With().
		Timestamp().
		Logger()
}

type app struct {
	config     *mailbus.Config
	logger     zerolog.Logger
	db         mailbus.Database
	store      mailbus.SubscriptionStore
	users      mailbus.UserStore
	httpServer *http.Server
}

func newApp(config *mailbus.Config, logger zerolog.Logger) (*app, error) {
	httpServer, err := http.NewServer(logger)
	if err != nil {
		return nil, err
	}

	a := &app{
		config:     config,
		logger:     logger,
		httpServer: httpServer,
	}

	switch config.DB.Type {
	case "postgres":
		db := postgres.NewDB(config.DB.DSN, logger)
		db.MaxOpenConns = config.DB.MaxOpenConns
		a.db, a.store, a.users = db, postgres.NewSubscriptionStore(db), postgres.NewUserStore(db)
	case "bolt":
		db := bolt.NewDB(config.DB.Path)
		a.db, a.store, a.users = db, bolt.NewSubscriptionStore(db), bolt.NewUserStore(db)
	default:
		return nil, errors.Errorf("unsupported database type %q", config.DB.Type)
	}

	return a, nil
}

func (a *app) Run(ctx context.Context) error {
	if err := a.db.Open(); err != nil {
		return err
	}

	gateway, err := newMailGateway(ctx, a.config)
	if err != nil {
		return err
	}

	a.httpServer.Addr = a.config.HTTP.Addr
	a.httpServer.Domain = a.config.HTTP.Domain
	a.httpServer.BaseURL = a.config.HTTP.BaseURL

	if err := a.httpServer.Listen(); err != nil {
		return err
	}

	a.httpServer.DB = a.db
	a.httpServer.SubscriptionService = subscription.NewService(a.store, gateway, subscription.Config{
		BaseURL:     a.httpServer.URL(),
		ProductName: a.config.Newsletter.Product.Name,
	}, a.logger.With().Str("component", "subscription").Logger())
	a.httpServer.NewsletterService = newsletter.NewPublisher(a.store, gateway, a.config.Newsletter.Concurrency,
		a.logger.With().Str("component", "newsletter").Logger())
	a.httpServer.AuthService = auth.NewService(a.users)

	return a.httpServer.Open()
}

func (a *app) Close() error {
	if a.httpServer != nil {
		if err := a.httpServer.Close(); err != nil {
			return err
		}
	}

	if a.db != nil {
		if err := a.db.Close(); err != nil {
			return err
		}
	}

	return nil
}

func newMailGateway(ctx context.Context, config *mailbus.Config) (mailbus.MailGateway, error) {
	mc := config.Mail
	switch mc.Provider {
	case "postmark":
		sender, err := mailbus.ParseSubscriberEmail(mc.From)
		if err != nil {
			return nil, errors.Wrap(err, "invalid sender email")
		}
		return postmark.NewGateway(mc.Postmark.BaseURL, sender, mc.Postmark.Token, mc.Timeout), nil
	case "smtp":
		return smtp.NewGateway(smtp.Config{
			Host:     mc.SMTP.Host,
			Port:     mc.SMTP.Port,
			Username: mc.SMTP.Username,
			Password: mc.SMTP.Password,
			From:     mc.From,
			Timeout:  mc.Timeout,
		}), nil
	case "sendgrid":
		return sendgrid.NewGateway(mc.SendGrid.APIKey, mc.From, mc.Timeout), nil
	case "resend":
		return resend.NewGateway(mc.Resend.APIKey, mc.From, mc.Timeout), nil
	case "ses":
		return ses.NewGateway(ctx, ses.Config{
			Region:    mc.SES.Region,
			AccessKey: mc.SES.AccessKey,
			SecretKey: mc.SES.SecretKey,
			From:      mc.From,
			Timeout:   mc.Timeout,
		})
	default:
		return nil, errors.Errorf("unsupported mail provider %q", mc.Provider)
	}
}

// userAdd creates a user allowed to publish newsletters
func userAdd(ctx context.Context, config *mailbus.Config, logger zerolog.Logger, args []string) error {
	fs := flag.NewFlagSet("useradd", flag.ContinueOnError)
	username := fs.String("username", "", "publisher username")
	password := fs.String("password", os.Getenv("MAILBUS_PASSWORD"), "publisher password (defaults to $MAILBUS_PASSWORD)")
	if err := fs.Parse(args); err != nil {
		return err
	}

	a, err := newApp(config, logger)
	if err != nil {
		return err
	}
	if err := a.db.Open(); err != nil {
		return err
	}
	defer a.db.Close()

	user, err := auth.NewService(a.users).CreateUser(ctx, *username, *password)
	if err != nil {
		return errors.Wrap(err, mailbus.ErrorMessage(err))
	}

	logger.Info().Str("user_id", user.ID.String()).Str("username", user.Username).Msg("created user")

	return nil
}
