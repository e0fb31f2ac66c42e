package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"path/filepath"
	"runtime/debug"
	"syscall"
	"time"

	"github.com/common-nighthawk/go-figure"
	"github.com/jrsteele09/sahasik/auth"
	fakecourserepo "github.com/jrsteele09/sahasik/courses/repofake"
	"github.com/jrsteele09/sahasik/internal/config"
	"github.com/jrsteele09/sahasik/server"
	"github.com/jrsteele09/sahasik/token/keys"
	refreshrepofake "github.com/jrsteele09/sahasik/token/refresh/repofake"
	fakeuserrepo "github.com/jrsteele09/sahasik/users/repofake"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
	flag "github.com/spf13/pflag"
)

const signingKeyID = "sahasik-dev"

var (
	configPath = flag.StringP("config", "c", "", "YAML config file (defaults to $SAHASIK_CONFIG)")
	single     = flag.Bool("single", false, "serve every service from the auth port")
)

func main() {
	flag.Parse()
	for {
		if err := run(); err != nil {
			log.Fatal().Err(err).Msg("Error running server")
			time.Sleep(1 * time.Second)
		} else {
			break
		}
	}
	log.Info().Msg("Server stopped")
}

func run() (returnError error) {
	defer func() {
		if r := recover(); r != nil {
			log.Error().Interface("panic", r).Msg("Recovered from panic")
			debug.PrintStack()
			returnError = errors.New("panic recovered")
		}
	}()

	c, err := config.Load(*configPath)
	if err != nil {
		return err
	}
	setupLogging(c)
	displayAppname(c.GetAppName())

	servers, err := newServers(c)
	if err != nil {
		return err
	}
	for _, s := range servers {
		go listenAndServe(s)
	}
	waitForStopSignal()
	return shutdown(servers...)
}

// newServers wires the shared repositories into one listener per service
func newServers(c config.Config) ([]*http.Server, error) {
	repos := server.Repos{
		Users:         fakeuserrepo.NewFakeUserRepo(),
		Courses:       fakecourserepo.NewFakeCourseRepo(),
		RefreshTokens: refreshrepofake.NewFakeRefreshTokenRepo(),
	}
	if err := server.Seed(repos); err != nil {
		return nil, err
	}

	keyPair, err := keys.LoadOrGenerate(filepath.Join(c.GetDataFolder(), "signing.pem"), signingKeyID)
	if err != nil {
		return nil, err
	}
	authService, err := auth.NewAuthService(auth.Repos{Users: repos.Users, RefreshTokens: repos.RefreshTokens}, keys.NewKeyPairSigner(keyPair), c)
	if err != nil {
		return nil, err
	}

	listeners := map[server.Service]string{
		server.ServiceAuth:   c.GetAuthPort(),
		server.ServiceUser:   c.GetUserPort(),
		server.ServiceCourse: c.GetCoursePort(),
	}
	if *single {
		listeners = map[server.Service]string{server.ServiceAll: c.GetAuthPort()}
	}

	servers := make([]*http.Server, 0, len(listeners))
	for service, addr := range listeners {
		handler, err := server.New(c, service, authService, repos)
		if err != nil {
			return nil, err
		}
		servers = append(servers, &http.Server{
			Addr:              addr,
			Handler:           handler,
			ReadHeaderTimeout: 10 * time.Second,
		})
	}
	return servers, nil
}

func listenAndServe(server *http.Server) {
	log.Info().Str("addr", server.Addr).Msg("Server listening")
	if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		log.Error().Err(err).Str("addr", server.Addr).Msg("server.ListenAndServe")
	}
}

func waitForStopSignal() {
	stop := make(chan os.Signal, 1)
	signal.Notify(stop, os.Interrupt, syscall.SIGTERM)
	<-stop
}

func shutdown(servers ...*http.Server) error {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	var errs []error
	for _, server := range servers {
		if err := server.Shutdown(ctx); err != nil {
			errs = append(errs, fmt.Errorf("server.Shutdown %s: %w", server.Addr, err))
		}
	}
	return errors.Join(errs...)
}

func setupLogging(c config.Config) {
	level, err := zerolog.ParseLevel(c.GetLogLevel())
	if err != nil {
		level = zerolog.InfoLevel
	}
	zerolog.SetGlobalLevel(level)
	if c.GetEnv() == "DEV" {
		log.Logger = log.Output(zerolog.ConsoleWriter{Out: os.Stderr, TimeFormat: time.Kitchen})
	}
}

func displayAppname(appname string) {
	myFigure := figure.NewFigure(appname, "cybermedium", true)
	myFigure.Print()
	fmt.Println()
}
