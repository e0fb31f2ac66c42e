// Command sahasik is a terminal client for the LMS services. The refresh
// token is kept in the configured credential store between invocations.
package main

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"os/signal"
	"strconv"
	"syscall"

	"github.com/jrsteele09/sahasik/credentials/redisrepo"
	credentialsrepofake "github.com/jrsteele09/sahasik/credentials/repofake"
	"github.com/jrsteele09/sahasik/internal/config"
	"github.com/jrsteele09/sahasik/lms"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
	flag "github.com/spf13/pflag"
)

const usage = `usage: sahasik [flags] <command> [args]

commands:
  login                        sign in (--user or --email, --password)
  logout                       forget the stored session
  whoami                       show the signed-in user
  courses list|search <q>|get <id>|create|update <id>|delete <id>
  users list|teachers|students

flags:
`

var (
	configPath = flag.StringP("config", "c", "", "YAML config file (defaults to $SAHASIK_CONFIG)")
	redisAddr  = flag.String("redis", "", "keep credentials in redis at this address")
	ephemeral  = flag.Bool("ephemeral", false, "keep credentials in memory only")
	verify     = flag.Bool("verify", false, "verify issued tokens against the auth service JWKS")
	verbose    = flag.BoolP("verbose", "v", false, "debug logging")

	username = flag.StringP("user", "u", "", "username for login")
	email    = flag.StringP("email", "e", "", "email for login")
	password = flag.StringP("password", "p", os.Getenv("SAHASIK_PASSWORD"), "password for login (defaults to $SAHASIK_PASSWORD)")

	courseName  = flag.String("name", "", "course name for courses create/update")
	courseCode  = flag.String("code", "", "course code for courses create/update")
	courseLevel = flag.String("level", "beginner", "course level for courses create/update")
	credits     = flag.Int("credits", 0, "course credits for courses create/update")
	description = flag.String("description", "", "course description for courses create/update")
)

func main() {
	flag.Usage = func() {
		fmt.Fprint(os.Stderr, usage)
		flag.PrintDefaults()
	}
	flag.Parse()

	zerolog.SetGlobalLevel(zerolog.WarnLevel)
	if *verbose {
		zerolog.SetGlobalLevel(zerolog.DebugLevel)
	}
	log.Logger = log.Output(zerolog.ConsoleWriter{Out: os.Stderr})

	if flag.NArg() == 0 {
		flag.Usage()
		os.Exit(2)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()
	if err := run(ctx, flag.Args()); err != nil {
		fmt.Fprintln(os.Stderr, "error:", err)
		os.Exit(1)
	}
}

func run(ctx context.Context, args []string) error {
	cfg, err := config.Load(*configPath)
	if err != nil {
		return err
	}

	var opts []lms.Option
	switch {
	case *ephemeral:
		opts = append(opts, lms.WithRefreshRepo(credentialsrepofake.NewFakeRefreshRepo()))
	case *redisAddr != "":
		client := redisrepo.NewClient(*redisAddr)
		defer client.Close()
		opts = append(opts, lms.WithRefreshRepo(redisrepo.New(client, "")))
	}
	if *verify {
		opts = append(opts, lms.WithTokenVerification())
	}

	client, err := lms.New(ctx, cfg, opts...)
	if err != nil {
		return err
	}
	defer client.Close()

	cmd := args[0]
	switch cmd {
	case "login":
		user, err := client.Session.Login(ctx, *username, *email, *password)
		if err != nil {
			return err
		}
		fmt.Printf("Signed in as %s (%s)\n", user.FullName, user.Role)
		return nil
	case "logout":
		return client.Session.Logout(ctx)
	}

	// Every other command needs the stored session
	if _, err := client.Session.ValidateSession(ctx); err != nil {
		return fmt.Errorf("not signed in, run sahasik login: %w", err)
	}

	switch cmd {
	case "whoami":
		return printJSON(client.Session.User())
	case "courses":
		return coursesCommand(ctx, client, args[1:])
	case "users":
		return usersCommand(ctx, client, args[1:])
	}
	return fmt.Errorf("unknown command %q", cmd)
}

func printJSON(v any) error {
	enc := json.NewEncoder(os.Stdout)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

func idArg(args []string) (int, error) {
	if len(args) == 0 {
		return 0, fmt.Errorf("missing course id")
	}
	return strconv.Atoi(args[0])
}
