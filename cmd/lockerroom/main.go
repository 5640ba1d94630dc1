// lockerroom is a terminal client for the LockerRoom platform. Each
// invocation shares the durable session store with every other one, so two
// shells behave like two browser tabs: a logout in one is picked up by a
// `watch` running in the other.
package main

import (
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/lockerroom/lockerroom/internal/api"
	"github.com/lockerroom/lockerroom/internal/cache"
	"github.com/lockerroom/lockerroom/internal/config"
	"github.com/lockerroom/lockerroom/internal/notify"
	"github.com/lockerroom/lockerroom/internal/observability"
	"github.com/lockerroom/lockerroom/internal/session"
	"github.com/lockerroom/lockerroom/internal/storage"
)

func main() {
	if len(os.Args) < 2 {
		usage()
		os.Exit(2)
	}

	cfg := config.Load()
	log := observability.NewLogger(cfg.Env)

	// durable store: redis when configured, a shared JSON file otherwise
	var durable storage.Store

	if cfg.RedisAddr != "" {
		rs := storage.NewRedis(storage.RedisConfig{
			Addr:     cfg.RedisAddr,
			Password: cfg.RedisPassword,
			DB:       cfg.RedisDB,
		}, log)

		defer rs.Close()

		durable = rs
	} else {
		fs, err := storage.NewFile(cfg.StoragePath)

		if err != nil {
			log.Error("storage init failed", "err", err)
			os.Exit(1)
		}

		durable = fs
	}

	bus := notify.NewBus(log)
	watcher := notify.NewWatcher(durable, session.WatchedKeys(), 250*time.Millisecond, bus)

	facade := session.New(session.Options{
		Durable: durable,
		Client:  api.New(cfg.APIBaseURL, log, nil),
		Queries: cache.New(30 * time.Second),
		Bus:     bus,
		Watcher: watcher,
		Log:     log,
		TTL:     cfg.UserCacheTTL,
		Landing: cfg.LandingRoute,
		Hooks: session.Hooks{
			Reload: func(landingURL string) {
				fmt.Printf("session ended; sign in again at %s\n", landingURL)
			},
			RedirectLogin: func(reason string) {
				fmt.Printf("account deactivated: %s\n", reason)
			},
		},
	})

	ctx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()

	switch os.Args[1] {
	case "login":
		runLogin(ctx, facade)
	case "register":
		runRegister(ctx, facade)
	case "logout":
		facade.Logout()
	case "whoami":
		runWhoami(ctx, facade)
	case "forgot-password":
		runForgotPassword(ctx, api.New(cfg.APIBaseURL, log, nil))
	case "reset-password":
		runResetPassword(ctx, api.New(cfg.APIBaseURL, log, nil))
	case "watch":
		runWatch(facade, bus, watcher)
	default:
		usage()
		os.Exit(2)
	}
}

func runLogin(ctx context.Context, facade *session.Facade) {
	fs := flag.NewFlagSet("login", flag.ExitOnError)
	email := fs.String("email", "", "account email")
	password := fs.String("password", "", "account password")
	_ = fs.Parse(os.Args[2:])

	u, requiresReset, err := facade.Login(ctx, *email, *password)

	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}

	fmt.Printf("signed in as %s (%s)\n", u.Name, u.Role)

	if requiresReset {
		fmt.Println("your password must be reset before continuing")
	}
}

func runRegister(ctx context.Context, facade *session.Facade) {
	fs := flag.NewFlagSet("register", flag.ExitOnError)
	name := fs.String("name", "", "display name")
	email := fs.String("email", "", "account email")
	password := fs.String("password", "", "account password")
	role := fs.String("role", "", "requested role (default student)")
	school := fs.String("school", "", "school id")
	_ = fs.Parse(os.Args[2:])

	u, _, err := facade.Register(ctx, api.RegisterRequest{
		Name:     *name,
		Email:    *email,
		Password: *password,
		Role:     *role,
		SchoolID: *school,
	})

	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}

	fmt.Printf("registered %s as %s\n", u.Email, u.Role)
}

func runForgotPassword(ctx context.Context, client *api.Client) {
	fs := flag.NewFlagSet("forgot-password", flag.ExitOnError)
	email := fs.String("email", "", "account email")
	_ = fs.Parse(os.Args[2:])

	if err := client.ForgotPassword(ctx, *email); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}

	fmt.Println("if the account exists, a reset token has been issued")
}

func runResetPassword(ctx context.Context, client *api.Client) {
	fs := flag.NewFlagSet("reset-password", flag.ExitOnError)
	token := fs.String("token", "", "reset token")
	password := fs.String("password", "", "new password")
	_ = fs.Parse(os.Args[2:])

	if err := client.ResetPassword(ctx, *token, *password); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}

	fmt.Println("password updated; sign in with the new password")
}

func runWhoami(ctx context.Context, facade *session.Facade) {
	u, ok := facade.CurrentUser(ctx)

	if !ok {
		fmt.Println("not signed in")
		os.Exit(1)
	}

	out, _ := json.MarshalIndent(u, "", "  ")
	fmt.Println(string(out))
}

// runWatch keeps a binder mounted and prints every identity change until
// interrupted. Useful for watching another process log in or out.
func runWatch(facade *session.Facade, bus *notify.Bus, watcher *notify.Watcher) {
	binder := session.NewBinder(facade, bus, func(s session.Snapshot) {
		switch {
		case s.IsLoading:
			fmt.Println("loading...")
		case s.User != nil:
			fmt.Printf("signed in: %s (%s)\n", s.User.Name, s.User.Role)
		default:
			fmt.Println("signed out")
		}
	})

	binder.Start(context.Background())
	defer binder.Close()

	watcher.Start()
	defer watcher.Stop()

	stop := make(chan os.Signal, 1)
	signal.Notify(stop, syscall.SIGINT, syscall.SIGTERM)
	<-stop
}

func usage() {
	fmt.Fprintln(os.Stderr, `usage: lockerroom <command> [flags]

commands:
  login            -email -password
  register         -name -email -password [-role] [-school]
  logout
  whoami
  forgot-password  -email
  reset-password   -token -password
  watch`)
}
