package main

import (
	"context"
	"encoding/json"
	"errors"
	"flag"
	"fmt"
	"os"
	"strings"
	"sync"
	"time"

	"github.com/joho/godotenv"
	"go.uber.org/zap"

	"revornix/internal/client"
	sessionadapters "revornix/internal/client/adapters/session"
	"revornix/internal/client/config"
	"revornix/internal/client/domain"
	"revornix/pkg/logger"
	"revornix/pkg/shutdown"
)

// Константы для переменных окружения.
const (
	EnvLoggerMode  = "REVORNIX_LOGGER_MODE"
	EnvLoggerLevel = "REVORNIX_LOGGER_LEVEL"
	EnvEmail       = "REVORNIX_EMAIL"
	EnvPassword    = "REVORNIX_PASSWORD"
)

// Константы для сообщений об ошибках.
const (
	ErrInitLogger           = "failed to initialize logger"
	ErrSyncLogger           = "failed to sync logger"
	ErrLoadEnvFile          = "failed to preload env file"
	ErrLoadConfig           = "failed to load configuration"
	ErrInitLoggerWithConfig = "failed to initialize logger with configuration settings"
	ErrCreateClient         = "failed to create client"
	ErrLogin                = "login failed"
	ErrRequest              = "request failed"
	ErrLogout               = "logout failed"
	ErrCloseClient          = "failed to close client"
)

// Константы для игнорируемых ошибок.
const (
	ErrSyncStderr = "sync /dev/stderr: invalid argument"
	ErrSyncStdout = "sync /dev/stdout: invalid argument"
)

// Константы для сообщений клиента.
const (
	LogClientStarted   = "revornix client started"
	LogClientDone      = "revornix client finished"
	LogLoggedIn        = "logged in"
	LogSessionReset    = "session reset, stopping until next login"
	LogNotAuthorized   = "no stored credentials, requests will be sent anonymously"
	LogPollingFinished = "polling finished"
)

type flags struct {
	envPath     string
	email       string
	password    string
	path        string
	concurrency int
	interval    time.Duration
	logout      bool
}

func parseFlags() flags {
	var f flags
	flag.StringVar(&f.envPath, "env", ".env", "path to .env file")
	flag.StringVar(&f.email, "email", os.Getenv(EnvEmail), "log in with this email before sending requests")
	flag.StringVar(&f.password, "password", "", "password for -email (defaults to "+EnvPassword+")")
	flag.StringVar(&f.path, "path", "/user/mine", "API path to GET")
	flag.IntVar(&f.concurrency, "concurrency", 1, "number of concurrent requests per round")
	flag.DurationVar(&f.interval, "interval", 0, "repeat rounds with this interval until interrupted (0 runs one round)")
	flag.BoolVar(&f.logout, "logout", false, "log out before exiting")
	flag.Parse()

	if f.password == "" {
		f.password = os.Getenv(EnvPassword)
	}
	if f.concurrency < 1 {
		f.concurrency = 1
	}
	return f
}

func main() {
	f := parseFlags()

	if err := godotenv.Load(f.envPath); err != nil && !errors.Is(err, os.ErrNotExist) {
		fmt.Fprintf(os.Stderr, "%s: %v\n", ErrLoadEnvFile, err)
	}

	env := logger.Development
	if strings.ToLower(os.Getenv(EnvLoggerMode)) == "production" {
		env = logger.Production
	}

	log, err := logger.NewLogger(env, os.Getenv(EnvLoggerLevel))
	if err != nil {
		panic(ErrInitLogger + ": " + err.Error())
	}
	logger.SetGlobalLogger(log)

	ctx := logger.NewRequestIDContext(context.Background(), "")

	var exitCode int

	func() {
		defer func() {
			if err := log.Sync(); err != nil {
				errMsg := err.Error()
				if strings.Contains(errMsg, ErrSyncStderr) || strings.Contains(errMsg, ErrSyncStdout) {
					return
				}
				fmt.Fprintf(os.Stderr, "%s: %v\n", ErrSyncLogger, err)
			}
		}()

		cfg, err := config.Load(ctx, f.envPath)
		if err != nil {
			log.Error(ctx, ErrLoadConfig, zap.Error(err))
			exitCode = 1
			return
		}

		finalLogger, err := logger.NewLogger(cfg.Logging.GetEnvironment(), cfg.Logging.Level)
		if err != nil {
			log.Error(ctx, ErrInitLoggerWithConfig, zap.Error(err))
			exitCode = 1
			return
		}
		logger.SetGlobalLogger(finalLogger)
		log = finalLogger

		log.Info(ctx, LogClientStarted,
			zap.String("environment", string(cfg.Logging.GetEnvironment())),
			zap.String("path", f.path),
			zap.Int("concurrency", f.concurrency),
			zap.Duration("interval", f.interval))

		runCtx, stop := context.WithCancel(ctx)
		defer stop()

		c, err := client.New(ctx, cfg,
			client.WithResetter(sessionadapters.ResetFunc(func(ctx context.Context) {
				log.Warn(ctx, LogSessionReset)
				stop()
			})))
		if err != nil {
			log.Error(ctx, ErrCreateClient, zap.Error(err))
			exitCode = 1
			return
		}

		if f.email != "" {
			if err := c.Auth.Login(ctx, f.email, f.password); err != nil {
				log.Error(ctx, ErrLogin, zap.Error(err))
				_ = c.Close()
				exitCode = 1
				return
			}
			log.Info(ctx, LogLoggedIn, zap.String("email", f.email))
		} else if ok, _ := c.Auth.Authenticated(ctx); !ok {
			log.Warn(ctx, LogNotAuthorized)
		}

		if f.interval <= 0 {
			if !runRound(runCtx, c, f) {
				exitCode = 1
			}
		} else {
			go func() {
				defer stop()
				poll(runCtx, c, f)
				log.Info(ctx, LogPollingFinished)
			}()
			// Ожидание прерывается сигналом или остановкой опроса после сброса сессии.
			_ = shutdown.Wait(runCtx, cfg.HTTP.Timeout)
		}

		_ = shutdown.Run(ctx, cfg.HTTP.Timeout,
			func(ctx context.Context) error {
				if !f.logout {
					return nil
				}
				if err := c.Auth.Logout(ctx); err != nil {
					log.Warn(ctx, ErrLogout, zap.Error(err))
					return err
				}
				return nil
			},
		)
		if err := c.Close(); err != nil {
			log.Warn(ctx, ErrCloseClient, zap.Error(err))
		}

		log.Info(ctx, LogClientDone)
	}()

	if exitCode != 0 {
		os.Exit(exitCode)
	}
}

func poll(ctx context.Context, c *client.Client, f flags) {
	ticker := time.NewTicker(f.interval)
	defer ticker.Stop()

	for {
		runRound(ctx, c, f)
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
		}
	}
}

// runRound отправляет f.concurrency одновременных запросов и печатает результаты.
// Возвращает false, если хотя бы один запрос завершился ошибкой.
func runRound(ctx context.Context, c *client.Client, f flags) bool {
	var (
		wg     sync.WaitGroup
		mu     sync.Mutex
		failed bool
	)

	for i := range f.concurrency {
		wg.Add(1)
		go func() {
			defer wg.Done()

			reqCtx := logger.NewRequestIDContext(ctx, "")
			resp, err := c.Dispatcher.Get(reqCtx, f.path, nil)

			mu.Lock()
			defer mu.Unlock()
			if err != nil {
				failed = true
				logger.Log(reqCtx).Error(reqCtx, ErrRequest,
					zap.Int("worker", i),
					zap.Int("code", domain.StatusOf(err)),
					zap.Error(err))
				return
			}
			printResponse(resp)
		}()
	}
	wg.Wait()

	return !failed
}

func printResponse(resp *domain.Response) {
	if resp.Data != nil {
		out, err := json.MarshalIndent(resp.Data, "", "  ")
		if err == nil {
			fmt.Println(string(out))
			return
		}
	}
	fmt.Println(resp.Text)
}
