package main

import (
	"context"
	"errors"
	"fmt"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/atotto/clipboard"
	"github.com/spf13/cobra"

	"github.com/nalsan/peka/internal/service"
	"github.com/nalsan/peka/internal/vault"
	"github.com/nalsan/peka/krypto"
)

var errIncorrectPIN = vault.NewError(vault.ErrAuthentication, "incorrect PIN", nil)

func (a *app) folderCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "folder",
		Short: "Manage folders inside a vault",
	}
	cmd.AddCommand(a.folderAddCmd(), a.folderDeleteCmd(), a.folderUnlockCmd())
	return cmd
}

func (a *app) folderAddCmd() *cobra.Command {
	var secure bool
	cmd := &cobra.Command{
		Use:   "add <vault> <name>",
		Short: "Create a folder",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			master, err := a.masterPassword()
			if err != nil {
				return err
			}
			var pin string
			if secure {
				b, err := a.promptNewSecret("Folder PIN (4 digits): ", "Confirm PIN: ")
				if err != nil {
					return err
				}
				pin = string(b)
				krypto.Wipe(b)
			}

			contents, err := a.svc.CreateFolder(a.vaultPath(args[0]), master, args[1], secure, pin)
			if err != nil {
				return err
			}
			f := contents.Folders[len(contents.Folders)-1]
			fmt.Fprintf(a.stdout, "Created folder %q (id %s)\n", f.Name, f.ID)
			return nil
		},
	}
	cmd.Flags().BoolVar(&secure, "secure", false, "protect the folder with a PIN")
	return cmd
}

func (a *app) folderDeleteCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "delete <vault> <folder-id>",
		Short: "Delete a folder and every credential in it",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			master, err := a.masterPassword()
			if err != nil {
				return err
			}
			if _, err := a.svc.DeleteFolder(a.vaultPath(args[0]), master, args[1]); err != nil {
				return err
			}
			fmt.Fprintf(a.stdout, "Deleted folder %s\n", args[1])
			return nil
		},
	}
}

func (a *app) folderUnlockCmd() *cobra.Command {
	var showPasswords bool
	cmd := &cobra.Command{
		Use:   "unlock <vault> <folder-id>",
		Short: "Show the credentials of a PIN-protected folder",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			path := a.vaultPath(args[0])
			master, err := a.masterPassword()
			if err != nil {
				return err
			}
			pinBytes, err := a.promptSecret("Folder PIN: ")
			if err != nil {
				return err
			}
			pin := string(pinBytes)
			krypto.Wipe(pinBytes)

			ok, err := a.svc.VerifyFolderPin(path, master, args[1], pin)
			if err != nil {
				return err
			}
			if !ok {
				return errIncorrectPIN
			}

			contents, err := a.svc.OpenVault(path, master)
			if err != nil {
				return err
			}
			for _, f := range contents.Folders {
				if f.ID == args[1] {
					fmt.Fprintf(a.stdout, "%s  (id %s)\n", f.Name, f.ID)
					a.printCredentials(f, showPasswords)
					return nil
				}
			}
			return vault.NotFound("Folder not found")
		},
	}
	cmd.Flags().BoolVar(&showPasswords, "show-passwords", false, "print passwords instead of masking them")
	return cmd
}

func (a *app) credentialCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:     "credential",
		Aliases: []string{"cred"},
		Short:   "Manage credentials inside a folder",
	}
	cmd.AddCommand(a.credentialAddCmd(), a.credentialDeleteCmd(), a.credentialCopyCmd())
	return cmd
}

func (a *app) credentialAddCmd() *cobra.Command {
	var in service.NewCredential
	cmd := &cobra.Command{
		Use:   "add <vault> <folder-id>",
		Short: "Add a credential; the password is prompted for",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			master, err := a.masterPassword()
			if err != nil {
				return err
			}
			pw, err := a.promptNewSecret("Credential password: ", "Confirm credential password: ")
			if err != nil {
				return err
			}
			cred := in
			cred.Password = string(pw)
			krypto.Wipe(pw)
			if strings.TrimSpace(cred.Title) == "" {
				cred.Title = cred.Username
			}

			contents, err := a.svc.AddCredential(a.vaultPath(args[0]), master, args[1], cred)
			if err != nil {
				return err
			}
			for _, f := range contents.Folders {
				if f.ID == args[1] && len(f.Credentials) > 0 {
					fmt.Fprintf(a.stdout, "Added credential (id %s)\n", f.Credentials[len(f.Credentials)-1].ID)
				}
			}
			return nil
		},
	}
	cmd.Flags().StringVar(&in.Title, "title", "", "display title (defaults to the username)")
	cmd.Flags().StringVarP(&in.Username, "username", "u", "", "username or email")
	cmd.Flags().StringVar(&in.Notes, "notes", "", "free-form notes")
	return cmd
}

func (a *app) credentialDeleteCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "delete <vault> <folder-id> <credential-id>",
		Short: "Delete a credential",
		Args:  cobra.ExactArgs(3),
		RunE: func(cmd *cobra.Command, args []string) error {
			master, err := a.masterPassword()
			if err != nil {
				return err
			}
			if _, err := a.svc.DeleteCredential(a.vaultPath(args[0]), master, args[1], args[2]); err != nil {
				return err
			}
			fmt.Fprintf(a.stdout, "Deleted credential %s\n", args[2])
			return nil
		},
	}
}

func (a *app) credentialCopyCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "copy <vault> <folder-id> <credential-id>",
		Short: "Copy a password to the clipboard and clear it again after a delay",
		Args:  cobra.ExactArgs(3),
		RunE: func(cmd *cobra.Command, args []string) error {
			path := a.vaultPath(args[0])
			master, err := a.masterPassword()
			if err != nil {
				return err
			}
			contents, err := a.svc.OpenVault(path, master)
			if err != nil {
				return err
			}
			cred, folder, err := findCredential(contents, args[1], args[2])
			if err != nil {
				return err
			}
			if folder.Secure {
				pinBytes, err := a.promptSecret("Folder PIN: ")
				if err != nil {
					return err
				}
				pin := string(pinBytes)
				krypto.Wipe(pinBytes)
				ok, err := a.svc.VerifyFolderPin(path, master, folder.ID, pin)
				if err != nil {
					return err
				}
				if !ok {
					return errIncorrectPIN
				}
			}

			if clipboard.Unsupported {
				return errors.New("no clipboard utility available on this system")
			}
			if err := clipboard.WriteAll(cred.Password); err != nil {
				return fmt.Errorf("copy to clipboard: %w", err)
			}
			if a.cfg.ClipboardClear <= 0 {
				fmt.Fprintln(a.stdout, "Password copied to clipboard.")
				return nil
			}

			fmt.Fprintf(a.stdout, "Password copied to clipboard; clearing in %s.\n", a.cfg.ClipboardClear)
			a.clearClipboardAfter(cmd.Context(), cred.Password)
			return nil
		},
	}
}

// clearClipboardAfter waits for the configured delay or an interrupt, then
// empties the clipboard if it still holds secret.
func (a *app) clearClipboardAfter(ctx context.Context, secret string) {
	if ctx == nil {
		ctx = context.Background()
	}
	ctx, stop := signal.NotifyContext(ctx, syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	timer := time.NewTimer(a.cfg.ClipboardClear)
	defer timer.Stop()
	select {
	case <-timer.C:
	case <-ctx.Done():
	}

	current, err := clipboard.ReadAll()
	if err != nil {
		a.log.Warn().Err(err).Msg("read clipboard before clearing")
		return
	}
	if current != secret {
		return
	}
	if err := clipboard.WriteAll(""); err != nil {
		a.log.Warn().Err(err).Msg("clear clipboard")
		return
	}
	fmt.Fprintln(a.stdout, "Clipboard cleared.")
}

func findCredential(c vault.Contents, folderID, credentialID string) (vault.PublicCredential, vault.PublicFolder, error) {
	for _, f := range c.Folders {
		if f.ID != folderID {
			continue
		}
		for _, cred := range f.Credentials {
			if cred.ID == credentialID {
				return cred, f, nil
			}
		}
		return vault.PublicCredential{}, f, vault.NotFound("Credential not found")
	}
	return vault.PublicCredential{}, vault.PublicFolder{}, vault.NotFound("Folder not found")
}
