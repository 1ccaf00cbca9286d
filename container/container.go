package container

import (
	"context"
	"fmt"
	"os"
	"strings"
	"sync"
	"time"

	"github.com/sony/sonyflake"
	"github.com/yusufsyaifudin/tagihan/config"
	"github.com/yusufsyaifudin/tagihan/internal/logic/journal"
	"github.com/yusufsyaifudin/tagihan/pkg/cache"
	"github.com/yusufsyaifudin/tagihan/pkg/mailclient"
	"github.com/yusufsyaifudin/tagihan/pkg/tracer"
	"github.com/yusufsyaifudin/ylog"
)

// Container is an abstraction layer to be used in use-case to stitch all business logic.
type Container interface {
	Mailer(cred *mailclient.EmailCredential) (*mailclient.SmtpMailer, error)
	Journal() (*journal.Journal, error)
	MessageID(domain string) (func() (string, error), error)
}

// DefaultContainerImpl the real implementation of Container
type DefaultContainerImpl struct {
	ctx     context.Context
	cfg     *config.Config
	version string

	lock    sync.Mutex
	closers []Closer
	journal *journal.Journal
	flake   *sonyflake.Sonyflake
}

// Ensure that DefaultContainerImpl implements Container
var _ Container = (*DefaultContainerImpl)(nil)

// Setup return pointer because it heavily used.
// Only tracing is started here, everything else is built on first use so a
// dry run or the list command never dials anything.
// It returns DefaultContainerImpl instead of Container so the caller can Close it.
func Setup(ctx context.Context, conf *config.Config, version string) (*DefaultContainerImpl, error) {
	dep := &DefaultContainerImpl{
		ctx:     ctx,
		cfg:     conf,
		version: version,
		closers: make([]Closer, 0),
	}

	if ctx == nil || conf == nil {
		return nil, fmt.Errorf("container needs a context and a config")
	}

	if conf.Tracing.JaegerEndpoint != "" {
		exp, err := tracer.NewJaeger(conf.Tracing.JaegerEndpoint)
		if err != nil {
			return nil, err
		}

		tp := tracer.InitTraceProvider(exp, "tagihan", version)
		dep.register("tracer", closeFunc(func() error {
			return tp.Shutdown(context.Background())
		}))

		ylog.Info(ctx, "tracing to jaeger", ylog.KV("endpoint", conf.Tracing.JaegerEndpoint))
	}

	return dep, nil
}

func (a *DefaultContainerImpl) register(name string, closer closeFunc) {
	a.closers = append(a.closers, NewNamedCloser(name, closer))
}

// Mailer returns an SMTP mailer that connects on its first send.
func (a *DefaultContainerImpl) Mailer(cred *mailclient.EmailCredential) (*mailclient.SmtpMailer, error) {
	a.lock.Lock()
	defer a.lock.Unlock()

	mailer, err := mailclient.NewSmtp(&mailclient.SmtpMailerConfig{
		EmailCredential: cred,
	})
	if err != nil {
		return nil, fmt.Errorf("smtp mailer: %w", err)
	}

	a.register("smtp "+cred.Addr(), mailer.Close)
	return mailer, nil
}

// Journal returns nil without error when journal.type is none.
func (a *DefaultContainerImpl) Journal() (*journal.Journal, error) {
	a.lock.Lock()
	defer a.lock.Unlock()

	if a.journal != nil {
		return a.journal, nil
	}

	conf := a.cfg.Journal
	var store cache.Cache
	switch conf.Type {
	case "", "none":
		return nil, nil

	case "file":
		file, err := cache.NewFile(conf.Path)
		if err != nil {
			return nil, err
		}

		a.register("journal file", file.Close)
		store = file

	case "redis":
		if conf.Redis == nil {
			return nil, fmt.Errorf("journal type redis needs journal.redis")
		}

		redisConn, err := newRedis(a.ctx, *conf.Redis)
		if err != nil {
			return nil, err
		}

		a.register("journal redis", redisConn.Close)
		store, err = cache.NewRedis(cache.RedisConfig{
			DB:     redisConn,
			Prefix: conf.Prefix,
		})
		if err != nil {
			return nil, err
		}

	default:
		return nil, fmt.Errorf("unknown journal type: %s", conf.Type)
	}

	j, err := journal.New(journal.Config{
		Cache:     store,
		Retention: conf.Retention,
	})
	if err != nil {
		return nil, err
	}

	a.journal = j
	return j, nil
}

// MessageID returns a generator of unique "<id>.tagihan@domain" message ids.
func (a *DefaultContainerImpl) MessageID(domain string) (func() (string, error), error) {
	a.lock.Lock()
	defer a.lock.Unlock()

	domain = strings.TrimSpace(domain)
	if domain == "" {
		return nil, fmt.Errorf("message id domain is empty")
	}

	if a.flake == nil {
		settings := sonyflake.Settings{
			StartTime: time.Date(2021, 6, 28, 00, 00, 00, 00, time.UTC),
		}

		a.flake = sonyflake.NewSonyflake(settings)
		if a.flake == nil {
			// no private IPv4 address to derive the machine id from
			settings.MachineID = func() (uint16, error) {
				return uint16(os.Getpid()), nil
			}

			a.flake = sonyflake.NewSonyflake(settings)
		}
	}

	if a.flake == nil {
		return nil, fmt.Errorf("cannot prepare message id generator")
	}

	flake := a.flake
	return func() (string, error) {
		id, err := flake.NextID()
		if err != nil {
			return "", fmt.Errorf("error generate id: %w", err)
		}

		return fmt.Sprintf("%d.tagihan@%s", id, domain), nil
	}, nil
}

// Close will close all dependencies.
func (a *DefaultContainerImpl) Close() error {
	a.lock.Lock()
	defer a.lock.Unlock()

	err := closeAll(a.ctx, a.closers)
	a.closers = nil
	a.journal = nil
	return err
}
