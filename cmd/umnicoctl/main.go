package main

import (
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"io"
	"os"

	"umnico/internal/engine/subscriptions"
	"umnico/internal/pkg/logger"
	"umnico/internal/pkg/validator"
	"umnico/internal/platform/auth"
	"umnico/internal/platform/config"
	"umnico/internal/platform/umnico"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
)

const usage = `usage: umnicoctl [-config path] <command> [flags]

commands:
  whoami                              resolve and print the account identity
  list                                list webhook subscriptions
  create -url URL -name NAME          create a subscription
  update -id ID -url URL -name NAME -status 0|1
  delete -id ID                       delete a subscription
  hash-password -password PASSWORD    print a bcrypt hash for admin.password_hash
  token -subject NAME                 mint an admin API token
`

func main() {
	if err := run(os.Args[1:], os.Stdout); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func run(args []string, out io.Writer) error {
	global := flag.NewFlagSet("umnicoctl", flag.ContinueOnError)
	configPath := global.String("config", "configs/config.yaml", "Path to config file")
	global.Usage = func() { fmt.Fprint(global.Output(), usage) }
	if err := global.Parse(args); err != nil {
		return err
	}
	if global.NArg() == 0 {
		global.Usage()
		return fmt.Errorf("missing command")
	}

	cfg, err := config.Load(*configPath)
	if err != nil {
		return fmt.Errorf("failed to load config: %w", err)
	}
	logger.Init(cfg.Logging)
	// stdout carries command output
	log.Logger = log.Output(zerolog.ConsoleWriter{Out: os.Stderr})
	ctx := log.Logger.WithContext(context.Background())

	command, rest := global.Arg(0), global.Args()[1:]
	switch command {
	case "hash-password":
		return hashPassword(rest, out)
	case "token":
		return mintToken(cfg, rest, out)
	}

	manager := subscriptions.NewManager(umnico.NewClient(cfg.Umnico), subscriptions.NewIdentity(cfg.Umnico.AccountID))

	var data interface{}
	switch command {
	case "whoami":
		data, err = manager.ResolveIdentity(ctx)
	case "list":
		data, err = manager.ListSubscriptions(ctx)
	case "create":
		data, err = create(ctx, manager, rest)
	case "update":
		data, err = update(ctx, manager, rest)
	case "delete":
		data, err = remove(ctx, manager, rest)
	default:
		global.Usage()
		return fmt.Errorf("unknown command %q", command)
	}
	if err != nil {
		return err
	}
	return printJSON(out, data)
}

func create(ctx context.Context, m *subscriptions.Manager, args []string) (interface{}, error) {
	fs := flag.NewFlagSet("create", flag.ContinueOnError)
	url := fs.String("url", "", "Callback URL")
	name := fs.String("name", "", "Subscription name")
	if err := fs.Parse(args); err != nil {
		return nil, err
	}
	if err := validateSubscription(*url, *name); err != nil {
		return nil, err
	}
	return m.CreateSubscription(ctx, *url, *name)
}

func update(ctx context.Context, m *subscriptions.Manager, args []string) (interface{}, error) {
	fs := flag.NewFlagSet("update", flag.ContinueOnError)
	id := fs.String("id", "", "Subscription id")
	url := fs.String("url", "", "Callback URL")
	name := fs.String("name", "", "Subscription name")
	status := fs.Int("status", 1, "1 enabled, 0 disabled")
	if err := fs.Parse(args); err != nil {
		return nil, err
	}
	if err := validateSubscription(*url, *name); err != nil {
		return nil, err
	}
	return m.UpdateSubscription(ctx, *id, *url, *name, *status)
}

func remove(ctx context.Context, m *subscriptions.Manager, args []string) (interface{}, error) {
	fs := flag.NewFlagSet("delete", flag.ContinueOnError)
	id := fs.String("id", "", "Subscription id")
	if err := fs.Parse(args); err != nil {
		return nil, err
	}
	return m.DeleteSubscription(ctx, *id)
}

func validateSubscription(url, name string) error {
	if err := validator.IsCallbackURL(url); err != nil {
		return err
	}
	return validator.IsSubscriptionName(name)
}

func hashPassword(args []string, out io.Writer) error {
	fs := flag.NewFlagSet("hash-password", flag.ContinueOnError)
	password := fs.String("password", "", "Password to hash")
	if err := fs.Parse(args); err != nil {
		return err
	}
	if *password == "" {
		return fmt.Errorf("-password is required")
	}
	hash, err := auth.HashPassword(*password)
	if err != nil {
		return err
	}
	fmt.Fprintln(out, hash)
	return nil
}

func mintToken(cfg *config.Config, args []string, out io.Writer) error {
	fs := flag.NewFlagSet("token", flag.ContinueOnError)
	subject := fs.String("subject", cfg.Admin.Username, "Token subject")
	if err := fs.Parse(args); err != nil {
		return err
	}
	token, err := auth.NewTokenService(cfg.JWT).GenerateAccessToken(*subject, auth.RoleAdmin)
	if err != nil {
		return err
	}
	fmt.Fprintln(out, token)
	return nil
}

func printJSON(out io.Writer, v interface{}) error {
	enc := json.NewEncoder(out)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}
