// Package app wires the configured backends into the HTTP router
package app

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jovaandres/rest-api-ev/db"
	"github.com/jovaandres/rest-api-ev/internal"
	"github.com/jovaandres/rest-api-ev/internal/account"
	"github.com/jovaandres/rest-api-ev/internal/service"
	"github.com/jovaandres/rest-api-ev/internal/task"
	"github.com/jovaandres/rest-api-ev/internal/token"
	"github.com/jovaandres/rest-api-ev/pkg/security"

	"github.com/chenyahui/gin-cache/persist"
	"github.com/gin-gonic/gin"
	"github.com/redis/go-redis/v9"
	v "github.com/spf13/viper"
	"go.uber.org/zap"
)

type App struct {
	Router *gin.Engine
	Deps   *internal.Deps

	closers []func() error
}

// New builds the app from the loaded configuration. Background jobs run
// until ctx is cancelled.
func New(ctx context.Context) (*App, error) {
	if err := makeLogger(v.GetString("app.env"), v.GetString("app.log_level")); err != nil {
		return nil, err
	}

	a := &App{}

	st, err := db.Open(ctx)
	if err != nil {
		return nil, err
	}
	a.closers = append(a.closers, st.Close)

	deny, err := a.denylist(ctx)
	if err != nil {
		a.Close()
		return nil, err
	}

	notifier, err := a.notifier()
	if err != nil {
		a.Close()
		return nil, err
	}

	hasher, err := security.New(v.GetString("security.hasher"), v.GetInt("security.bcrypt_cost"))
	if err != nil {
		a.Close()
		return nil, err
	}

	tasks, err := task.Open(v.GetString("tasks.file"))
	if err != nil {
		a.Close()
		return nil, err
	}
	tasks.CacheResults(persist.NewMemoryStore(time.Minute), 15*time.Second)

	issuer := token.NewIssuer(v.GetString("jwt.secret"), st, deny)
	sessionTTL := v.GetDuration("jwt.session_ttl")

	accounts := account.NewManager(st, issuer, hasher, notifier, account.Config{
		Origin:          v.GetString("app.origin_frontend"),
		VerificationTTL: v.GetDuration("jwt.verification_ttl"),
		ResetTTL:        v.GetDuration("jwt.reset_ttl"),
		SessionTTL:      sessionTTL,
		ConcealAccounts: v.GetBool("security.conceal_accounts"),
	})
	// Drain pending mail before the transports below are closed.
	a.closers = append(a.closers, func() error {
		accounts.Close()
		return nil
	})

	a.Deps = &internal.Deps{
		Accounts:      accounts,
		Reminders:     st,
		Tasks:         tasks,
		SecureCookies: v.GetBool("host.ssl.enabled"),
		SessionTTL:    sessionTTL,
	}

	a.Router = NewRouter(ctx, a.Deps, RouterConfig{
		CORSOrigins:    v.GetStringSlice("host.cors_origins"),
		RateLimit:      v.GetFloat64("security.rate_limit"),
		ProbeRateLimit: v.GetFloat64("security.probe_rate_limit"),
	})

	go service.TokenCleanup(ctx, v.GetDuration("cleanup.interval"), st)

	return a, nil
}

func (a *App) denylist(ctx context.Context) (token.Denylist, error) {
	switch kind := v.GetString("session.revocation"); kind {
	case "memory":
		d := token.NewMemoryDenylist()
		a.closers = append(a.closers, d.Close)
		return d, nil
	case "redis":
		rdb := redis.NewClient(&redis.Options{
			Addr:     v.GetString("redis.addr"),
			Password: v.GetString("redis.password"),
			DB:       v.GetInt("redis.db"),
		})
		a.closers = append(a.closers, rdb.Close)

		if err := rdb.Ping(ctx).Err(); err != nil {
			return nil, fmt.Errorf("failed to connect to redis, %w", err)
		}
		return token.NewRedisDenylist(rdb), nil
	default:
		return nil, fmt.Errorf("unknown session revocation backend %q", kind)
	}
}

func (a *App) notifier() (service.Notifier, error) {
	kind := v.GetString("notifier.type")

	// Development never sends real mail.
	if kind == "log" || (kind == "smtp" && v.GetString("app.env") == "development") {
		return service.LogNotifier{}, nil
	}

	switch kind {
	case "smtp":
		return service.NewMailer(service.MailConfig{
			Host:     v.GetString("mail.host"),
			Port:     v.GetInt("mail.port"),
			Username: v.GetString("mail.username"),
			Password: v.GetString("mail.password"),
			From:     v.GetString("mail.from"),
			SSL:      v.GetBool("mail.ssl"),
		}), nil
	case "amqp":
		q, err := service.NewQueueNotifier(v.GetString("amqp.url"), v.GetString("amqp.queue"))
		if err != nil {
			return nil, fmt.Errorf("failed to connect to the mail queue, %w", err)
		}
		a.closers = append(a.closers, q.Close)
		return q, nil
	default:
		return nil, fmt.Errorf("unknown notifier type %q", kind)
	}
}

// Close releases everything New opened, in reverse order.
func (a *App) Close() error {
	var errs []error
	for i := len(a.closers) - 1; i >= 0; i-- {
		if err := a.closers[i](); err != nil {
			errs = append(errs, err)
		}
	}
	a.closers = nil

	if err := errors.Join(errs...); err != nil {
		zap.L().Error("Failed to close app", zap.Error(err))
		return err
	}

	return nil
}
