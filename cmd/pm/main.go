// Command pm is the confpass CLI: master-password setup, an interactive
// unlocked session for entry/folder/tag/passkey/TOTP/import-export
// operations, and the loopback autofill service entrypoint (§6 "UI command
// surface"). It plays the role the donor's cmd/pm CLI played against the
// donor's SQLite vault, generalized to the new encrypted-blob vault (§4.2).
package main

import (
	"bufio"
	"bytes"
	"errors"
	"flag"
	"fmt"
	"io"
	"log"
	"net/http"
	"os"
	"strconv"
	"strings"
	"syscall"
	"time"

	"golang.org/x/term"

	"github.com/confpass-app/confpass/auth"
	"github.com/confpass-app/confpass/internal/attachments"
	"github.com/confpass-app/confpass/internal/autofill"
	"github.com/confpass-app/confpass/internal/entries"
	"github.com/confpass-app/confpass/internal/importexport"
	"github.com/confpass-app/confpass/internal/journal"
	"github.com/confpass-app/confpass/internal/passkeys"
	"github.com/confpass-app/confpass/internal/paths"
	"github.com/confpass-app/confpass/internal/secretholder"
	"github.com/confpass-app/confpass/internal/settings"
	"github.com/confpass-app/confpass/internal/totp"
	"github.com/confpass-app/confpass/internal/vaultfile"
	"github.com/confpass-app/confpass/internal/vaulterr"
	"github.com/dustin/go-humanize"
	"github.com/google/uuid"
)

const cliVersion = "0.1.0"

type userError struct {
	msg string
}

func (e userError) Error() string { return e.msg }

func main() {
	if len(os.Args) < 2 {
		printUsage()
		os.Exit(1)
	}

	switch os.Args[1] {
	case "version":
		fmt.Println(cliVersion)
	case "master":
		if len(os.Args) < 3 {
			printMasterUsage()
			os.Exit(1)
		}
		switch os.Args[2] {
		case "set":
			handleError(runMasterSet(os.Args[3:]))
		default:
			printMasterUsage()
			os.Exit(1)
		}
	case "bio":
		handleError(runBio(os.Args[2:]))
	case "reset":
		handleError(runReset(os.Args[2:]))
	case "session":
		handleError(runSession(os.Args[2:]))
	case "serve":
		handleError(runServe(os.Args[2:]))
	default:
		printUsage()
		os.Exit(1)
	}
}

func handleError(err error) {
	if err == nil {
		return
	}
	var uerr userError
	if errors.As(err, &uerr) {
		fmt.Fprintln(os.Stderr, uerr.Error())
		os.Exit(1)
	}
	if verr, ok := vaulterr.As(err); ok {
		fmt.Fprintln(os.Stderr, verr.Error())
		os.Exit(1)
	}
	fmt.Fprintf(os.Stderr, "unexpected error: %v\n", err)
	os.Exit(2)
}

// resolveDir returns dir if set, else the per-user app-data directory (§6).
func resolveDir(dir string) (string, error) {
	if dir != "" {
		return dir, nil
	}
	d, err := paths.Default()
	if err != nil {
		return "", err
	}
	return d.Root, nil
}

// runReset implements "reset with and without verification" (§6): by default
// it requires the current master password before wiping the vault; --force
// skips that check entirely for the "forgot password" recovery path.
func runReset(args []string) error {
	fs := flag.NewFlagSet("reset", flag.ContinueOnError)
	fs.SetOutput(io.Discard)

	var dir string
	var force bool
	fs.StringVar(&dir, "dir", "", "vault directory (default: per-user app-data dir)")
	fs.BoolVar(&force, "force", false, "skip master-password verification (forgot-password recovery)")
	if err := fs.Parse(args); err != nil {
		return userError{msg: "invalid arguments"}
	}
	if fs.NArg() != 0 {
		return userError{msg: "unexpected positional arguments"}
	}

	dir, err := resolveDir(dir)
	if err != nil {
		return fmt.Errorf("resolve vault directory: %w", err)
	}

	svc := entries.New(dir)
	if svc.NeedsMasterSetup() {
		return userError{msg: "no vault found at " + dir}
	}

	if force {
		if err := svc.ResetWithoutVerification(); err != nil {
			return err
		}
		fmt.Println("vault reset without verification; all data destroyed")
		return nil
	}

	pw, err := promptPassword("Enter master password to confirm reset: ")
	if err != nil {
		return fmt.Errorf("read master password: %w", err)
	}
	defer zeroBytes(pw)

	if err := svc.ResetWithVerification(string(pw)); err != nil {
		return err
	}
	fmt.Println("vault reset; all data destroyed")
	return nil
}

func runMasterSet(args []string) error {
	fs := flag.NewFlagSet("master set", flag.ContinueOnError)
	fs.SetOutput(io.Discard)

	var dir string
	fs.StringVar(&dir, "dir", "", "vault directory (default: per-user app-data dir)")
	if err := fs.Parse(args); err != nil {
		return userError{msg: "invalid arguments"}
	}
	if fs.NArg() != 0 {
		return userError{msg: "unexpected positional arguments"}
	}

	dir, err := resolveDir(dir)
	if err != nil {
		return fmt.Errorf("resolve vault directory: %w", err)
	}

	svc := entries.New(dir)
	if !svc.NeedsMasterSetup() {
		return userError{msg: "vault already initialized at " + dir}
	}

	pw, err := promptPassword("Enter master password: ")
	if err != nil {
		return fmt.Errorf("read master password: %w", err)
	}
	defer zeroBytes(pw)

	confirm, err := promptPassword("Confirm master password: ")
	if err != nil {
		return fmt.Errorf("read confirmation password: %w", err)
	}
	defer zeroBytes(confirm)

	if !bytes.Equal(pw, confirm) {
		return userError{msg: "passwords do not match"}
	}

	if err := auth.ValidateMasterPassword(string(pw)); err != nil {
		return userError{msg: "password does not meet policy requirements: " + err.Error()}
	}

	if err := svc.SetMaster(string(pw)); err != nil {
		return err
	}

	fmt.Printf("vault initialized at %s\n", dir)
	return nil
}

func runSession(args []string) error {
	fs := flag.NewFlagSet("session", flag.ContinueOnError)
	fs.SetOutput(io.Discard)

	var dir string
	fs.StringVar(&dir, "dir", "", "vault directory (default: per-user app-data dir)")
	if err := fs.Parse(args); err != nil {
		return userError{msg: "invalid arguments"}
	}
	if fs.NArg() != 0 {
		return userError{msg: "unexpected positional arguments"}
	}

	dir, err := resolveDir(dir)
	if err != nil {
		return fmt.Errorf("resolve vault directory: %w", err)
	}

	svc := entries.New(dir)
	pkStore := passkeys.Store{Dir: dir}
	svc.Passkeys = passkeys.Hook{Store: pkStore}

	if svc.NeedsMasterSetup() {
		return userError{msg: "vault not found; run 'pm master set' first"}
	}

	pw, err := promptPassword("Enter master password: ")
	if err != nil {
		return fmt.Errorf("read master password: %w", err)
	}
	defer zeroBytes(pw)

	if err := svc.Unlock(string(pw)); err != nil {
		return err
	}
	defer svc.Lock()

	rotation := secretholder.StartRotationTicker(svc.Secret, 300*time.Second, svc.Lock)
	defer rotation.Cancel()

	fmt.Println("session unlocked; type 'help' for commands")
	return sessionLoop(svc, dir)
}

func sessionLoop(svc *entries.Service, dir string) error {
	scanner := bufio.NewScanner(os.Stdin)
	dirs := paths.New(dir)
	activity := journal.Activity{Path: dirs.Activity()}
	history := journal.History{Path: dirs.History()}
	attStore := attachments.Store{Dir: dir}

	for {
		fmt.Print("pm> ")
		if !scanner.Scan() {
			if err := scanner.Err(); err != nil {
				return fmt.Errorf("read input: %w", err)
			}
			fmt.Println()
			return nil
		}

		line := strings.TrimSpace(scanner.Text())
		if line == "" {
			continue
		}
		fields := strings.Fields(line)
		cmd, args := fields[0], fields[1:]

		var err error
		switch cmd {
		case "help":
			printSessionHelp()
		case "add":
			err = sessionAdd(svc, activity, args)
		case "list":
			err = sessionList(svc, args)
		case "get":
			err = sessionGet(svc, args)
		case "update":
			err = sessionUpdate(svc, activity, history, args)
		case "delete":
			err = sessionDelete(svc, activity, args)
		case "soft-delete":
			err = sessionSoftDelete(svc, activity, args)
		case "restore":
			err = sessionRestore(svc, activity, args)
		case "purge":
			err = sessionPurge(svc, activity, args)
		case "folder-add":
			err = sessionFolderAdd(svc, args)
		case "folder-delete":
			err = sessionFolderDelete(svc, args)
		case "tag-add":
			err = sessionTagAdd(svc, args)
		case "tag-delete":
			err = sessionTagDelete(svc, args)
		case "totp":
			err = sessionTOTP(args)
		case "genpw":
			err = sessionGenPW(args)
		case "strength":
			err = sessionStrength(args)
		case "attach":
			err = sessionAttach(svc, attStore, args)
		case "export":
			err = sessionExport(svc, args)
		case "import":
			err = sessionImport(svc, args)
		case "history":
			err = sessionHistory(history, args)
		case "activity":
			err = sessionActivityList(activity)
		case "settings":
			err = sessionSettings(dirs, args)
		case "stream-protection":
			err = sessionStreamProtection(dirs, args)
		case "lock":
			svc.Lock()
			fmt.Println("vault locked")
		case "unlock":
			err = sessionUnlock(svc, args)
		case "is-locked":
			fmt.Println(svc.IsLocked())
		case "exit", "quit":
			return nil
		default:
			fmt.Fprintf(os.Stderr, "unknown command: %s\n", cmd)
		}
		if err != nil {
			handleSessionError(err)
		}
	}
}

func sessionAdd(svc *entries.Service, activity journal.Activity, args []string) error {
	fs := flag.NewFlagSet("add", flag.ContinueOnError)
	fs.SetOutput(io.Discard)

	var category, title, username, url, notes, folderID string
	fs.StringVar(&category, "category", "accounts", "entry category")
	fs.StringVar(&title, "title", "", "entry title")
	fs.StringVar(&username, "username", "", "username")
	fs.StringVar(&url, "url", "", "url")
	fs.StringVar(&notes, "notes", "", "notes")
	fs.StringVar(&folderID, "folder", "", "folder id")

	if err := fs.Parse(args); err != nil {
		return userError{msg: "invalid add arguments"}
	}
	if title == "" {
		return userError{msg: "add requires --title"}
	}

	var password []byte
	var err error
	if category == "accounts" || category == "bank_cards" {
		password, err = promptPassword("Secret: ")
		if err != nil {
			return fmt.Errorf("read secret: %w", err)
		}
		defer zeroBytes(password)
	}

	d := entries.Draft{Title: &title, Category: &category}
	if username != "" {
		d.Username = &username
	}
	if len(password) > 0 {
		pw := string(password)
		d.Password = &pw
	}
	if url != "" {
		d.URL = &url
	}
	if notes != "" {
		d.Notes = &notes
	}
	if folderID != "" {
		d.FolderID = &folderID
	}

	e, err := svc.AddEntry(d)
	if err != nil {
		return err
	}
	activity.Append(e.ID, "created", "", time.Now().Unix())
	fmt.Printf("created entry %s (%s)\n", e.ID, e.Title)
	return nil
}

func sessionList(svc *entries.Service, args []string) error {
	all, err := svc.ListEntries()
	if err != nil {
		return err
	}
	for _, e := range all {
		fmt.Printf("%s\t%-12s\t%s\t%s\n", e.ID, e.Category, e.Title, e.Username)
	}
	return nil
}

func sessionGet(svc *entries.Service, args []string) error {
	if len(args) != 1 {
		return userError{msg: "get requires an entry id"}
	}
	e, err := svc.GetEntry(args[0])
	if err != nil {
		return err
	}
	fmt.Printf("id:       %s\n", e.ID)
	fmt.Printf("category: %s\n", e.Category)
	fmt.Printf("title:    %s\n", e.Title)
	fmt.Printf("username: %s\n", e.Username)
	fmt.Printf("password: %s\n", e.Password)
	fmt.Printf("url:      %s\n", e.URL)
	for _, a := range e.Attachments {
		fmt.Printf("attachment: %s (%s, %s)\n", a.Filename, a.MimeType, humanize.Bytes(uint64(a.Size)))
	}
	return nil
}

func sessionUpdate(svc *entries.Service, activity journal.Activity, history journal.History, args []string) error {
	fs := flag.NewFlagSet("update", flag.ContinueOnError)
	fs.SetOutput(io.Discard)

	var title, username, url, notes string
	var changePassword bool
	fs.StringVar(&title, "title", "", "new title")
	fs.StringVar(&username, "username", "", "new username")
	fs.StringVar(&url, "url", "", "new url")
	fs.StringVar(&notes, "notes", "", "new notes")
	fs.BoolVar(&changePassword, "password", false, "prompt for a new password")

	if err := fs.Parse(args); err != nil {
		return userError{msg: "invalid update arguments"}
	}
	if fs.NArg() != 1 {
		return userError{msg: "update requires an entry id"}
	}
	id := fs.Arg(0)

	d := entries.Draft{}
	if title != "" {
		d.Title = &title
	}
	if username != "" {
		d.Username = &username
	}
	if url != "" {
		d.URL = &url
	}
	if notes != "" {
		d.Notes = &notes
	}
	if changePassword {
		old, err := svc.GetEntry(id)
		if err != nil {
			return err
		}
		newPw, err := promptPassword("New secret: ")
		if err != nil {
			return fmt.Errorf("read new secret: %w", err)
		}
		defer zeroBytes(newPw)
		pw := string(newPw)
		d.Password = &pw
		if old.Password != "" {
			history.Record(id, old.Password, time.Now().Unix())
		}
	}

	e, err := svc.UpdateEntry(id, d)
	if err != nil {
		return err
	}
	activity.Append(e.ID, "updated", "", time.Now().Unix())
	fmt.Printf("updated entry %s\n", e.ID)
	return nil
}

func sessionDelete(svc *entries.Service, activity journal.Activity, args []string) error {
	if len(args) != 1 {
		return userError{msg: "delete requires an entry id"}
	}
	if err := svc.DeleteEntry(args[0]); err != nil {
		return err
	}
	activity.Append(args[0], "deleted", "", time.Now().Unix())
	fmt.Println("deleted")
	return nil
}

func sessionSoftDelete(svc *entries.Service, activity journal.Activity, args []string) error {
	if len(args) != 1 {
		return userError{msg: "soft-delete requires an entry id"}
	}
	if err := svc.SoftDelete(args[0]); err != nil {
		return err
	}
	activity.Append(args[0], "soft_deleted", "", time.Now().Unix())
	fmt.Println("moved to trash")
	return nil
}

func sessionRestore(svc *entries.Service, activity journal.Activity, args []string) error {
	if len(args) != 1 {
		return userError{msg: "restore requires an entry id"}
	}
	if err := svc.Restore(args[0]); err != nil {
		return err
	}
	activity.Append(args[0], "restored", "", time.Now().Unix())
	fmt.Println("restored")
	return nil
}

func sessionPurge(svc *entries.Service, activity journal.Activity, args []string) error {
	if len(args) != 1 {
		return userError{msg: "purge requires an entry id"}
	}
	if err := svc.PermanentDelete(args[0]); err != nil {
		return err
	}
	activity.Append(args[0], "purged", "", time.Now().Unix())
	fmt.Println("permanently deleted")
	return nil
}

func sessionFolderAdd(svc *entries.Service, args []string) error {
	fs := flag.NewFlagSet("folder-add", flag.ContinueOnError)
	fs.SetOutput(io.Discard)
	var name, color, icon, parent string
	fs.StringVar(&name, "name", "", "folder name")
	fs.StringVar(&color, "color", "", "folder color")
	fs.StringVar(&icon, "icon", "", "folder icon")
	fs.StringVar(&parent, "parent", "", "parent folder id")
	if err := fs.Parse(args); err != nil || name == "" {
		return userError{msg: "folder-add requires --name"}
	}
	f, err := svc.CreateFolder(name, color, icon, parent, 0)
	if err != nil {
		return err
	}
	fmt.Printf("created folder %s\n", f.ID)
	return nil
}

func sessionFolderDelete(svc *entries.Service, args []string) error {
	if len(args) != 1 {
		return userError{msg: "folder-delete requires a folder id"}
	}
	if err := svc.DeleteFolder(args[0]); err != nil {
		return err
	}
	fmt.Println("deleted folder")
	return nil
}

func sessionTagAdd(svc *entries.Service, args []string) error {
	fs := flag.NewFlagSet("tag-add", flag.ContinueOnError)
	fs.SetOutput(io.Discard)
	var name, color string
	fs.StringVar(&name, "name", "", "tag name")
	fs.StringVar(&color, "color", "", "tag color")
	if err := fs.Parse(args); err != nil || name == "" {
		return userError{msg: "tag-add requires --name"}
	}
	t, err := svc.CreateTag(name, color)
	if err != nil {
		return err
	}
	fmt.Printf("created tag %s\n", t.ID)
	return nil
}

func sessionTagDelete(svc *entries.Service, args []string) error {
	if len(args) != 1 {
		return userError{msg: "tag-delete requires a tag id"}
	}
	if err := svc.DeleteTag(args[0]); err != nil {
		return err
	}
	fmt.Println("deleted tag")
	return nil
}

func sessionTOTP(args []string) error {
	if len(args) != 1 {
		return userError{msg: "totp requires a base32/base64 secret"}
	}
	code, err := totp.GenerateCode(args[0], time.Now())
	if err != nil {
		return err
	}
	fmt.Println(code)
	return nil
}

func sessionGenPW(args []string) error {
	fs := flag.NewFlagSet("genpw", flag.ContinueOnError)
	fs.SetOutput(io.Discard)
	var length int
	var lower, upper, digits, symbols bool
	fs.IntVar(&length, "length", 16, "password length")
	fs.BoolVar(&lower, "lower", true, "include lowercase")
	fs.BoolVar(&upper, "upper", true, "include uppercase")
	fs.BoolVar(&digits, "digits", true, "include digits")
	fs.BoolVar(&symbols, "symbols", true, "include symbols")
	if err := fs.Parse(args); err != nil {
		return userError{msg: "invalid genpw arguments"}
	}
	pw, err := entries.GeneratePassword(entries.GeneratorOptions{
		Length: length, UseLower: lower, UseUpper: upper, UseDigits: digits, UseSymbols: symbols,
	})
	if err != nil {
		return err
	}
	fmt.Println(pw)
	return nil
}

func sessionStrength(args []string) error {
	if len(args) != 1 {
		return userError{msg: "strength requires a password"}
	}
	score := entries.StrengthScore(args[0])
	fmt.Printf("%d/6 (%s)\n", score, entries.StrengthLabel(score))
	return nil
}

func sessionAttach(svc *entries.Service, store attachments.Store, args []string) error {
	if len(args) != 2 {
		return userError{msg: "attach requires an entry id and a file path"}
	}
	entryID, path := args[0], args[1]
	key, err := svc.DataKey()
	if err != nil {
		return err
	}
	meta, err := store.Add(key, path)
	if err != nil {
		return err
	}
	if err := svc.AttachMetadata(entryID, toVaultAttachment(meta)); err != nil {
		return err
	}
	fmt.Printf("attached %s (%s) to %s\n", meta.Filename, humanize.Bytes(uint64(meta.Size)), entryID)
	return nil
}

func sessionExport(svc *entries.Service, args []string) error {
	fs := flag.NewFlagSet("export", flag.ContinueOnError)
	fs.SetOutput(io.Discard)
	var path, password string
	fs.StringVar(&path, "out", "", "output file")
	fs.StringVar(&password, "password", "", "encrypt export under this password")
	if err := fs.Parse(args); err != nil || path == "" {
		return userError{msg: "export requires --out"}
	}
	all, err := svc.ListEntries()
	if err != nil {
		return err
	}
	var raw []byte
	if password != "" {
		raw, err = importexport.ExportEncrypted(all, password)
	} else {
		raw, err = importexport.ExportPlain(all)
	}
	if err != nil {
		return err
	}
	return os.WriteFile(path, raw, 0o600)
}

func sessionImport(svc *entries.Service, args []string) error {
	fs := flag.NewFlagSet("import", flag.ContinueOnError)
	fs.SetOutput(io.Discard)
	var path, password string
	fs.StringVar(&path, "in", "", "input file")
	fs.StringVar(&password, "password", "", "decrypt import under this password")
	if err := fs.Parse(args); err != nil || path == "" {
		return userError{msg: "import requires --in"}
	}
	raw, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("read import file: %w", err)
	}
	existing, err := svc.ListEntries()
	if err != nil {
		return err
	}

	if password != "" {
		imported, err := importexport.ImportEncrypted(raw, password, existing)
		if err != nil {
			return err
		}
		if err := addImportedEntries(svc, imported); err != nil {
			return err
		}
		fmt.Printf("imported %d entries\n", len(imported))
		return nil
	}
	imported, skipped, err := importexport.ImportPlain(raw, existing)
	if err != nil {
		return err
	}
	if err := addImportedEntries(svc, imported); err != nil {
		return err
	}
	fmt.Printf("imported %d entries, skipped %d\n", len(imported), skipped)
	return nil
}

func sessionHistory(history journal.History, args []string) error {
	if len(args) != 1 {
		return userError{msg: "history requires an entry id"}
	}
	list, err := history.For(args[0])
	if err != nil {
		return err
	}
	for _, h := range list {
		fmt.Printf("%s\t%s\n", time.Unix(h.ChangedAt, 0).Format(time.RFC3339), h.Password)
	}
	return nil
}

func sessionActivityList(activity journal.Activity) error {
	list, err := activity.List()
	if err != nil {
		return err
	}
	for _, ev := range list {
		fmt.Printf("%s\t%s\t%s\n", time.Unix(ev.Timestamp, 0).Format(time.RFC3339), ev.Action, ev.EntryID)
	}
	return nil
}

// sessionUnlock implements the "unlock" UI command surface item from within
// an already-running session: once an explicit "lock" has locked the vault,
// this re-unlocks it without restarting the process.
func sessionUnlock(svc *entries.Service, args []string) error {
	if len(args) != 1 {
		return userError{msg: "unlock requires a master password"}
	}
	if err := svc.Unlock(args[0]); err != nil {
		return err
	}
	fmt.Println("vault unlocked")
	return nil
}

// sessionSettings implements the "settings set/get" UI command surface item:
// with no arguments it prints every field, with "<field> <value>" it updates
// one field and saves.
func sessionSettings(dirs paths.Dirs, args []string) error {
	store := settings.Store{Dir: dirs.Root}
	cur, err := store.Load()
	if err != nil {
		return err
	}
	if len(args) == 0 {
		fmt.Printf("minimize_to_tray=%t\n", cur.MinimizeToTray)
		fmt.Printf("auto_start=%t\n", cur.AutoStart)
		fmt.Printf("auto_lock_timeout=%d\n", cur.AutoLockTimeout)
		fmt.Printf("use_biometric=%t\n", cur.UseBiometric)
		fmt.Printf("stream_protection=%t\n", cur.StreamProtection)
		return nil
	}
	if len(args) != 2 {
		return userError{msg: "settings requires zero or two arguments: <field> <value>"}
	}
	field, value := args[0], args[1]
	switch field {
	case "minimize_to_tray":
		cur.MinimizeToTray = value == "true"
	case "auto_start":
		cur.AutoStart = value == "true"
	case "auto_lock_timeout":
		n, err := strconv.Atoi(value)
		if err != nil {
			return userError{msg: "auto_lock_timeout must be an integer"}
		}
		cur.AutoLockTimeout = n
	case "use_biometric":
		cur.UseBiometric = value == "true"
	case "stream_protection":
		cur.StreamProtection = value == "true"
	default:
		return userError{msg: "unknown settings field: " + field}
	}
	if err := store.Save(cur); err != nil {
		return err
	}
	fmt.Println("settings updated")
	return nil
}

// sessionStreamProtection implements the "stream-protection set/query" UI
// command surface item as a dedicated shortcut over the same settings.json
// field sessionSettings exposes, matching how the shell surfaces it as its
// own toggle distinct from the general settings panel.
func sessionStreamProtection(dirs paths.Dirs, args []string) error {
	store := settings.Store{Dir: dirs.Root}
	cur, err := store.Load()
	if err != nil {
		return err
	}
	if len(args) == 0 {
		fmt.Printf("stream_protection=%t\n", cur.StreamProtection)
		return nil
	}
	if len(args) != 1 {
		return userError{msg: "stream-protection requires zero or one argument: on|off"}
	}
	switch args[0] {
	case "on":
		cur.StreamProtection = true
	case "off":
		cur.StreamProtection = false
	default:
		return userError{msg: "stream-protection argument must be on or off"}
	}
	if err := store.Save(cur); err != nil {
		return err
	}
	fmt.Printf("stream_protection=%t\n", cur.StreamProtection)
	return nil
}

func runServe(args []string) error {
	fs := flag.NewFlagSet("serve", flag.ContinueOnError)
	fs.SetOutput(io.Discard)

	var dir string
	fs.StringVar(&dir, "dir", "", "vault directory (default: per-user app-data dir)")
	if err := fs.Parse(args); err != nil {
		return userError{msg: "invalid arguments"}
	}

	dir, err := resolveDir(dir)
	if err != nil {
		return fmt.Errorf("resolve vault directory: %w", err)
	}
	dirs := paths.New(dir)
	if err := dirs.Ensure(); err != nil {
		return fmt.Errorf("create app data directory: %w", err)
	}

	svc := entries.New(dir)
	if svc.NeedsMasterSetup() {
		return userError{msg: "vault not found; run 'pm master set' first"}
	}

	pw, err := promptPassword("Enter master password: ")
	if err != nil {
		return fmt.Errorf("read master password: %w", err)
	}
	defer zeroBytes(pw)
	if err := svc.Unlock(string(pw)); err != nil {
		return err
	}
	defer svc.Lock()

	rotation := secretholder.StartRotationTicker(svc.Secret, 300*time.Second, svc.Lock)
	defer rotation.Cancel()

	token := uuid.NewString()
	if err := os.WriteFile(dirs.AuthToken(), []byte(token), 0o600); err != nil {
		return fmt.Errorf("write auth token: %w", err)
	}

	pkStore := passkeys.Store{Dir: dir}
	srv := autofill.New(svc, pkStore, token)
	srv.OnRefresh = func() { log.Println("entries-updated") }

	if os.Getenv("CONFPASS_DEBUG") != "" {
		log.Printf("serving loopback autofill API on %s", autofill.ListenAddr)
	}
	return http.ListenAndServe(autofill.ListenAddr, srv.Handler())
}

// toVaultAttachment adapts C6's ciphertext-sidecar metadata shape into the
// entry-carried record C5 persists in the vault, per §4.6.
func toVaultAttachment(m attachments.Metadata) vaultfile.Attachment {
	return vaultfile.Attachment{
		ID:        m.ID,
		Filename:  m.Filename,
		MimeType:  m.MimeType,
		Size:      m.Size,
		CreatedAt: m.CreatedAt,
	}
}

// addImportedEntries re-creates each imported entry through AddEntry so that
// category/length invariants are re-validated rather than written directly,
// per §4.11.
func addImportedEntries(svc *entries.Service, list []vaultfile.Entry) error {
	for _, e := range list {
		category, title, username, password, url, notes := e.Category, e.Title, e.Username, e.Password, e.URL, e.Notes
		d := entries.Draft{
			Category: &category,
			Title:    &title,
			Username: &username,
			Password: &password,
			URL:      &url,
			Notes:    &notes,
			Extra:    e.Extra,
			TagIDs:   e.TagIDs,
		}
		if e.FolderID != "" {
			folderID := e.FolderID
			d.FolderID = &folderID
		}
		if _, err := svc.AddEntry(d); err != nil {
			return err
		}
	}
	return nil
}

func promptPassword(prompt string) ([]byte, error) {
	fmt.Fprint(os.Stderr, prompt)
	pw, err := term.ReadPassword(int(syscall.Stdin))
	fmt.Fprintln(os.Stderr)
	if err != nil {
		return nil, err
	}
	return pw, nil
}

func zeroBytes(b []byte) {
	for i := range b {
		b[i] = 0
	}
}

func handleSessionError(err error) {
	if err == nil {
		return
	}
	var uerr userError
	if errors.As(err, &uerr) {
		fmt.Fprintln(os.Stderr, uerr.Error())
		return
	}
	fmt.Fprintf(os.Stderr, "error: %v\n", err)
}

func printUsage() {
	fmt.Fprintln(os.Stderr, "Usage: pm <command>")
	fmt.Fprintln(os.Stderr, "Commands:")
	fmt.Fprintln(os.Stderr, "  version")
	fmt.Fprintln(os.Stderr, "  master set [--dir <vault-dir>]")
	fmt.Fprintln(os.Stderr, "  bio <enable|disable|status|unlock> --dir <vault-dir>")
	fmt.Fprintln(os.Stderr, "  reset [--dir <vault-dir>] [--force]")
	fmt.Fprintln(os.Stderr, "  session [--dir <vault-dir>]")
	fmt.Fprintln(os.Stderr, "  serve [--dir <vault-dir>]")
}

func printMasterUsage() {
	fmt.Fprintln(os.Stderr, "Usage: pm master set [--dir <vault-dir>]")
}

func printSessionHelp() {
	fmt.Println("Commands:")
	fmt.Println("  add --category <cat> --title <t> [--username <u>] [--url <u>] [--notes <n>] [--folder <id>]")
	fmt.Println("  list")
	fmt.Println("  get <id>")
	fmt.Println("  update [--title] [--username] [--url] [--notes] [--password] <id>")
	fmt.Println("  delete <id>")
	fmt.Println("  soft-delete <id> | restore <id> | purge <id>")
	fmt.Println("  folder-add --name <n> [--color] [--icon] [--parent <id>] | folder-delete <id>")
	fmt.Println("  tag-add --name <n> [--color] | tag-delete <id>")
	fmt.Println("  totp <secret>")
	fmt.Println("  genpw [--length N] [--lower] [--upper] [--digits] [--symbols]")
	fmt.Println("  strength <password>")
	fmt.Println("  attach <id> <path>")
	fmt.Println("  export --out <file> [--password <pw>] | import --in <file> [--password <pw>]")
	fmt.Println("  history <id> | activity")
	fmt.Println("  settings [<field> <value>]")
	fmt.Println("  stream-protection [on|off]")
	fmt.Println("  lock | unlock <password> | is-locked")
	fmt.Println("  exit | quit")
}
