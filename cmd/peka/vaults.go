package main

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"path/filepath"
	"strings"
	"text/tabwriter"
	"time"

	"github.com/spf13/cobra"

	"github.com/nalsan/peka/auth"
	"github.com/nalsan/peka/internal/vault"
	"github.com/nalsan/peka/krypto"
	"github.com/nalsan/peka/store"
)

// vaultPath maps a command argument to a vault file. Anything that already
// names a file is used as given; otherwise the argument is treated as a vault
// name inside the vault directory.
func (a *app) vaultPath(arg string) string {
	if store.Exists(arg) {
		return arg
	}
	if strings.ContainsRune(arg, filepath.Separator) || filepath.Ext(arg) == store.Extension {
		return arg
	}
	return store.Paths{Dir: a.svc.Dir()}.VaultPath(arg)
}

func (a *app) createCmd() *cobra.Command {
	var skipPolicy bool
	cmd := &cobra.Command{
		Use:   "create <name>",
		Short: "Create a new, empty vault",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			name := args[0]
			pw, err := a.promptNewSecret("New master password: ", "Confirm master password: ")
			if err != nil {
				return err
			}
			defer krypto.Wipe(pw)

			if a.cfg.Policy.Enforce && !skipPolicy {
				if err := a.checkPolicy(cmd.Context(), string(pw), name); err != nil {
					return err
				}
			}

			res, err := a.svc.CreateVault(name, string(pw))
			if err != nil {
				return err
			}
			fmt.Fprintf(a.stdout, "Created vault %q at %s\n", strings.TrimSpace(name), res.Path)
			return nil
		},
	}
	cmd.Flags().BoolVar(&skipPolicy, "skip-policy", false, "do not enforce the master password policy")
	return cmd
}

func (a *app) checkPolicy(ctx context.Context, pw, name string) error {
	if ctx == nil {
		ctx = context.Background()
	}
	ctx, cancel := context.WithTimeout(ctx, 10*time.Second)
	defer cancel()

	opts := auth.DefaultValidateOptions()
	opts.MinZXCVBNScore = a.cfg.Policy.MinScore
	opts.UserInputs = []string{name}
	opts.EnableHIBP = a.cfg.Policy.HIBP

	err := auth.ValidateMasterPasswordAdvanced(ctx, pw, opts)
	if err == nil {
		return nil
	}
	if errors.Is(err, auth.ErrWeakPassword) {
		return userError{msg: err.Error()}
	}
	return fmt.Errorf("validate master password: %w", err)
}

func (a *app) listCmd() *cobra.Command {
	var asJSON bool
	cmd := &cobra.Command{
		Use:   "list",
		Short: "List vault files in the vault directory",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			vaults, err := a.svc.ListVaults()
			if err != nil {
				return err
			}
			if asJSON {
				return a.writeJSON(vaults)
			}
			if len(vaults) == 0 {
				fmt.Fprintf(a.stdout, "No vaults in %s\n", a.svc.Dir())
				return nil
			}
			tw := tabwriter.NewWriter(a.stdout, 0, 0, 2, ' ', 0)
			fmt.Fprintln(tw, "NAME\tPATH")
			for _, v := range vaults {
				fmt.Fprintf(tw, "%s\t%s\n", v.VaultName, v.Path)
			}
			return tw.Flush()
		},
	}
	cmd.Flags().BoolVar(&asJSON, "json", false, "print JSON")
	return cmd
}

func (a *app) openCmd() *cobra.Command {
	var (
		asJSON        bool
		showPasswords bool
	)
	cmd := &cobra.Command{
		Use:   "open <vault>",
		Short: "Decrypt a vault and show its folders",
		Long: `Decrypt a vault and show its folders. Credentials inside secure folders are
hidden; use "peka folder unlock" with the folder PIN to see them.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			master, err := a.masterPassword()
			if err != nil {
				return err
			}
			contents, err := a.svc.OpenVault(a.vaultPath(args[0]), master)
			if err != nil {
				return err
			}
			view := lockSecureFolders(contents)
			if asJSON {
				return a.writeJSON(view)
			}
			a.printContents(view, showPasswords)
			return nil
		},
	}
	cmd.Flags().BoolVar(&asJSON, "json", false, "print JSON")
	cmd.Flags().BoolVar(&showPasswords, "show-passwords", false, "print passwords instead of masking them")
	return cmd
}

func (a *app) deleteCmd() *cobra.Command {
	var force bool
	cmd := &cobra.Command{
		Use:   "delete <vault>",
		Short: "Delete a vault file from the vault directory",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			path := a.vaultPath(args[0])
			if !force {
				answer, err := a.promptLine(fmt.Sprintf("Delete %s permanently? [y/N]: ", path))
				if err != nil {
					return err
				}
				if !strings.EqualFold(strings.TrimSpace(answer), "y") && !strings.EqualFold(strings.TrimSpace(answer), "yes") {
					fmt.Fprintln(a.stdout, "Aborted.")
					return nil
				}
			}
			if err := a.svc.DeleteVault(path); err != nil {
				return err
			}
			fmt.Fprintf(a.stdout, "Deleted %s\n", path)
			return nil
		},
	}
	cmd.Flags().BoolVarP(&force, "force", "f", false, "do not ask for confirmation")
	return cmd
}

func (a *app) exportCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "export <vault> <destination>",
		Short: "Copy a vault file out of the vault directory",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			path := a.vaultPath(args[0])
			if err := a.svc.ExportVaultFile(path, args[1]); err != nil {
				return err
			}
			fmt.Fprintf(a.stdout, "Exported %s to %s\n", path, args[1])
			return nil
		},
	}
}

func (a *app) importCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "import <file>",
		Short: "Copy an external vault file into the vault directory",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			res, err := a.svc.ImportVault(args[0])
			if err != nil {
				return err
			}
			fmt.Fprintf(a.stdout, "Imported vault to %s\n", res.Path)
			return nil
		},
	}
}

func (a *app) historyCmd() *cobra.Command {
	var (
		limit  int
		asJSON bool
	)
	cmd := &cobra.Command{
		Use:   "history",
		Short: "Show recent vault operations",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			if a.journal == nil {
				return userError{msg: "the operation journal is disabled"}
			}
			events, err := a.svc.History(limit)
			if err != nil {
				return err
			}
			if asJSON {
				return a.writeJSON(events)
			}
			tw := tabwriter.NewWriter(a.stdout, 0, 0, 2, ' ', 0)
			fmt.Fprintln(tw, "TIME\tOPERATION\tRESULT\tVAULT")
			for _, e := range events {
				result := "ok"
				if !e.Success {
					result = e.ErrorKind
				}
				fmt.Fprintf(tw, "%s\t%s\t%s\t%s\n", e.At.Local().Format(time.DateTime), e.Op, result, e.VaultPath)
			}
			return tw.Flush()
		},
	}
	cmd.Flags().IntVarP(&limit, "limit", "n", 20, "number of events to show")
	cmd.Flags().BoolVar(&asJSON, "json", false, "print JSON")
	return cmd
}

func (a *app) writeJSON(v any) error {
	enc := json.NewEncoder(a.stdout)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

// lockSecureFolders drops the credentials of PIN-protected folders.
func lockSecureFolders(c vault.Contents) vault.Contents {
	out := c
	out.Folders = make([]vault.PublicFolder, len(c.Folders))
	for i, f := range c.Folders {
		if f.Secure {
			f.Credentials = []vault.PublicCredential{}
		}
		out.Folders[i] = f
	}
	return out
}

func (a *app) printContents(c vault.Contents, showPasswords bool) {
	fmt.Fprintf(a.stdout, "Vault: %s\n", c.VaultName)
	if len(c.Folders) == 0 {
		fmt.Fprintln(a.stdout, "  (no folders)")
		return
	}
	for _, f := range c.Folders {
		lock := ""
		if f.Secure {
			lock = " [locked]"
		}
		fmt.Fprintf(a.stdout, "\n%s%s  (id %s)\n", f.Name, lock, f.ID)
		a.printCredentials(f, showPasswords)
	}
}

func (a *app) printCredentials(f vault.PublicFolder, showPasswords bool) {
	if f.Secure && len(f.Credentials) == 0 {
		fmt.Fprintln(a.stdout, "  unlock with: peka folder unlock <vault> "+f.ID)
		return
	}
	if len(f.Credentials) == 0 {
		fmt.Fprintln(a.stdout, "  (empty)")
		return
	}
	tw := tabwriter.NewWriter(a.stdout, 0, 0, 2, ' ', 0)
	fmt.Fprintln(tw, "  TITLE\tUSERNAME\tPASSWORD\tID")
	for _, cred := range f.Credentials {
		pw := "********"
		if showPasswords {
			pw = cred.Password
		}
		fmt.Fprintf(tw, "  %s\t%s\t%s\t%s\n", cred.Title, cred.Username, pw, cred.ID)
	}
	tw.Flush()
}
