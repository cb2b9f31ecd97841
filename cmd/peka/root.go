package main

import (
	"bufio"
	"errors"
	"fmt"
	"io"
	"os"

	"github.com/rs/zerolog"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/nalsan/peka/internal/config"
	"github.com/nalsan/peka/internal/db"
	"github.com/nalsan/peka/internal/logging"
	"github.com/nalsan/peka/internal/service"
	"github.com/nalsan/peka/internal/vault"
)

const cliVersion = "0.2.0"

// Exit codes.
const (
	exitOK         = 0
	exitFailure    = 1
	exitValidation = 2
	exitNotFound   = 3
	exitAuth       = 4
	exitPathSafety = 5
)

type userError struct {
	msg string
}

func (e userError) Error() string { return e.msg }

// app carries everything a command needs once PersistentPreRunE has run.
type app struct {
	v       *viper.Viper
	cfgFile string

	cfg     config.Config
	log     zerolog.Logger
	svc     *service.Service
	journal *db.Journal

	stdin  io.Reader
	lines  *bufio.Reader
	stdout io.Writer
	stderr io.Writer
}

func run(args []string, stdin io.Reader, stdout, stderr io.Writer) int {
	a := &app{
		v:      viper.New(),
		stdin:  stdin,
		lines:  bufio.NewReader(stdin),
		stdout: stdout,
		stderr: stderr,
	}
	root := a.rootCmd()
	root.SetArgs(args)
	root.SetIn(stdin)
	root.SetOut(stdout)
	root.SetErr(stderr)

	err := root.Execute()
	if a.journal != nil {
		if cerr := a.journal.Close(); cerr != nil {
			a.log.Warn().Err(cerr).Msg("close journal")
		}
	}
	if err == nil {
		return exitOK
	}

	fmt.Fprintf(stderr, "error: %s\n", err.Error())
	return exitCode(err)
}

func exitCode(err error) int {
	var uerr userError
	switch {
	case errors.As(err, &uerr):
		return exitValidation
	case errors.Is(err, vault.ErrValidation):
		return exitValidation
	case errors.Is(err, vault.ErrNotFound):
		return exitNotFound
	case errors.Is(err, vault.ErrAuthentication):
		return exitAuth
	case errors.Is(err, vault.ErrPathSafety):
		return exitPathSafety
	default:
		return exitFailure
	}
}

func (a *app) rootCmd() *cobra.Command {
	root := &cobra.Command{
		Use:   "peka",
		Short: "Encrypted credential vaults protected by a master password",
		Long: `peka keeps folders of login credentials in encrypted vault files.
Each vault is a single .peka file sealed with AES-256-GCM under a key derived
from its master password with Argon2id. Folders can additionally be locked
behind a four digit PIN.`,
		SilenceUsage:      true,
		SilenceErrors:     true,
		PersistentPreRunE: a.setup,
	}

	flags := root.PersistentFlags()
	flags.StringVar(&a.cfgFile, "config", "", "config file (default is $HOME/.peka.yaml)")
	flags.String("vault-dir", "", "directory holding vault files")
	flags.String("log-level", "", "log level (debug, info, warn, error)")
	flags.String("log-format", "", "log format (console, json)")
	flags.Bool("no-journal", false, "do not record operations in the journal")

	a.bindFlag(root, config.KeyVaultDir, "vault-dir")
	a.bindFlag(root, config.KeyLogLevel, "log-level")
	a.bindFlag(root, config.KeyLogFormat, "log-format")

	root.AddCommand(
		a.versionCmd(),
		a.createCmd(),
		a.listCmd(),
		a.openCmd(),
		a.deleteCmd(),
		a.exportCmd(),
		a.importCmd(),
		a.historyCmd(),
		a.folderCmd(),
		a.credentialCmd(),
	)
	return root
}

func (a *app) bindFlag(root *cobra.Command, key, flag string) {
	if err := a.v.BindPFlag(key, root.PersistentFlags().Lookup(flag)); err != nil {
		panic(fmt.Sprintf("failed to bind %s flag: %v", flag, err))
	}
}

func (a *app) setup(cmd *cobra.Command, _ []string) error {
	if cmd.Name() == "version" || cmd.Name() == "help" {
		return nil
	}

	if err := config.ReadFile(a.v, a.cfgFile); err != nil {
		return err
	}
	cfg, err := config.Load(a.v)
	if err != nil {
		return userError{msg: err.Error()}
	}
	a.cfg = cfg

	logOpts := cfg.Log
	logOpts.Writer = a.stderr
	if a.log, err = logging.New(logOpts); err != nil {
		return userError{msg: err.Error()}
	}

	opts := []service.Option{
		service.WithLogger(a.log),
		service.WithKDFParams(cfg.KDF),
	}
	noJournal, _ := cmd.Flags().GetBool("no-journal")
	if cfg.Journal.Enabled && !noJournal {
		j, err := db.OpenJournal(cfg.Journal.Path)
		if err != nil {
			a.log.Warn().Err(err).Str("path", cfg.Journal.Path).Msg("journal unavailable")
		} else {
			a.journal = j
			a.pruneJournal(cfg.Journal.Keep)
			opts = append(opts, service.WithJournal(j))
		}
	}

	a.svc, err = service.New(cfg.VaultDir, opts...)
	if err != nil {
		return fmt.Errorf("init service: %w", err)
	}
	a.log.Debug().Str("dir", a.svc.Dir()).Msg("vault directory")
	return nil
}

// pruneJournal trims the journal to its newest keep events. Failures are
// logged only; the journal never blocks a vault operation.
func (a *app) pruneJournal(keep int) {
	if keep <= 0 {
		return
	}
	n, err := a.journal.Count()
	if err != nil {
		a.log.Warn().Err(err).Str("path", a.journal.Path()).Msg("count journal events")
		return
	}
	if n <= int64(keep) {
		return
	}
	removed, err := a.journal.Prune(keep)
	if err != nil {
		a.log.Warn().Err(err).Str("path", a.journal.Path()).Msg("prune journal")
		return
	}
	a.log.Debug().Int64("removed", removed).Int("keep", keep).Str("path", a.journal.Path()).Msg("journal pruned")
}

func (a *app) versionCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Print the peka version",
		Args:  cobra.NoArgs,
		Run: func(cmd *cobra.Command, _ []string) {
			fmt.Fprintln(a.stdout, cliVersion)
		},
	}
}

// stdinIsTerminal reports whether prompts can hide input.
func (a *app) stdinIsTerminal() bool {
	f, ok := a.stdin.(*os.File)
	return ok && isTerminal(f)
}
