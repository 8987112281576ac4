package main

import (
	"fmt"
	"os"
	"path/filepath"
	"runtime"

	"github.com/bromapp/flostore/internal/cli"
	"github.com/knadh/koanf"
	"github.com/knadh/koanf/parsers/yaml"
	"github.com/knadh/koanf/providers/file"
	"github.com/muesli/coral"
	"github.com/pkg/errors"
)

var (
	version  = "dev"
	revision = "none"
	date     = "unknown"

	cfg     string
	user    string
	passkey string
)

func main() {
	c := &coral.Command{
		Use:     "flostore",
		Short:   "Maintenance tooling for encrypted flostore journals",
		Version: fmt.Sprintf("%s - build %.7s @ %s - %s", version, revision, date, runtime.Version()),
		Args:    coral.ExactArgs(0),
	}
	c.PersistentFlags().StringVarP(&cfg, "config", "c", "flostore.yml", "Configuration file")
	c.PersistentFlags().StringVarP(&user, "user", "u", "", "User id (overrides the configuration file)")
	c.PersistentFlags().StringVarP(&passkey, "passkey", "k", "", "Passkey (prompted when needed and not given)")

	c.AddCommand(setkeyCmd)
	c.AddCommand(clearkeyCmd)
	c.AddCommand(createCmd)
	c.AddCommand(listCmd)
	c.AddCommand(showCmd)
	c.AddCommand(deleteCmd)
	c.AddCommand(exportCmd)
	c.AddCommand(wipeCmd)

	createCmd.Flags().StringVar(&title, "title", "", "Entry title")
	createCmd.Flags().StringVar(&body, "body", "", "Entry body")
	createCmd.Flags().StringVar(&entryDate, "date", "", "Entry date (defaults to today)")

	if err := c.Execute(); err != nil {
		fmt.Println(err)
		os.Exit(1)
	}
}

// newApp loads the configuration file and wires the store stack.
func newApp() (*cli.App, error) {
	konf := koanf.New(".")
	if _, err := os.Stat(cfg); err == nil {
		if err = konf.Load(file.Provider(cfg), yaml.Parser()); err != nil {
			return nil, errors.Wrap(err, "could not load configuration")
		}
	}

	base := konf.String("base_path")
	if base == "" {
		base = "data"
	}

	secretsPath := konf.String("secrets_path")
	if secretsPath == "" {
		secretsPath = filepath.Join(base, "secrets.db")
	}

	if konf.String("secret_key") == "" {
		return nil, errors.New("secret_key not found")
	}

	id := user
	if id == "" {
		id = konf.String("user")
	}

	logFile := konf.String("log_file")
	if logFile == "" {
		logFile = "flostore.log"
	}

	return cli.NewApp(cli.Config{
		BasePath:     base,
		SecretsPath:  secretsPath,
		DeviceSecret: konf.MustBytes("secret_key"),
		UserID:       id,
		Logger:       cli.NewLogger(logFile),
	})
}

func run(fn func(app *cli.App) error) func(*coral.Command, []string) error {
	return func(_ *coral.Command, _ []string) error {
		app, err := newApp()
		if err != nil {
			return err
		}
		defer app.Close()

		return fn(app)
	}
}

var (
	title     string
	body      string
	entryDate string

	setkeyCmd = &coral.Command{
		Use:   "setkey",
		Short: "Persist the user's passkey in the sealed secret store",
		Args:  coral.ExactArgs(0),
		RunE: run(func(app *cli.App) error {
			return app.SetKey(passkey)
		}),
	}

	clearkeyCmd = &coral.Command{
		Use:   "clearkey",
		Short: "Remove the user's persisted passkey",
		Args:  coral.ExactArgs(0),
		RunE: run(func(app *cli.App) error {
			return app.ClearKey()
		}),
	}

	createCmd = &coral.Command{
		Use:   "create",
		Short: "Create a journal entry",
		Args:  coral.ExactArgs(0),
		RunE: run(func(app *cli.App) error {
			return app.Create(title, body, entryDate, passkey)
		}),
	}

	listCmd = &coral.Command{
		Use:   "list",
		Short: "List journal entries, most recent first",
		Args:  coral.ExactArgs(0),
		RunE: run(func(app *cli.App) error {
			return app.List(passkey)
		}),
	}

	showCmd = &coral.Command{
		Use:   "show ID",
		Short: "Print one full journal entry",
		Args:  coral.ExactArgs(1),
		RunE: func(_ *coral.Command, args []string) error {
			app, err := newApp()
			if err != nil {
				return err
			}
			defer app.Close()

			return app.Show(args[0], passkey)
		},
	}

	deleteCmd = &coral.Command{
		Use:   "delete IDS",
		Short: "Delete entries (id, comma list or JSON array)",
		Args:  coral.ExactArgs(1),
		RunE: func(_ *coral.Command, args []string) error {
			app, err := newApp()
			if err != nil {
				return err
			}
			defer app.Close()

			return app.Delete(args[0], passkey)
		},
	}

	exportCmd = &coral.Command{
		Use:   "export",
		Short: "Export the decrypted journal as JSON",
		Args:  coral.ExactArgs(0),
		RunE: run(func(app *cli.App) error {
			return app.Export(passkey)
		}),
	}

	wipeCmd = &coral.Command{
		Use:   "wipe",
		Short: "Delete the user's whole document",
		Args:  coral.ExactArgs(0),
		RunE: run(func(app *cli.App) error {
			return app.Wipe()
		}),
	}
)
