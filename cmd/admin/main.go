// cmd/admin/main.go
//
// Operator CLI.
//
//	colegio-admin migrate
//	colegio-admin adduser -email secretaria@colegio-ef.ao
//	colegio-admin resetpassword -email secretaria@colegio-ef.ao
//
// Passwords are read from the terminal without echo, twice.  Configuration
// and secrets load exactly as for cmd/web.
package main

import (
	"bufio"
	"context"
	"errors"
	"flag"
	"fmt"
	"io"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"github.com/jmoiron/sqlx"
	"go.uber.org/zap"
	"golang.org/x/term"

	"github.com/franciscocoimbra11-prog/colegio-elizangela-filomena/internal/auth"
	"github.com/franciscocoimbra11-prog/colegio-elizangela-filomena/internal/config"
	"github.com/franciscocoimbra11-prog/colegio-elizangela-filomena/internal/database"
	"github.com/franciscocoimbra11-prog/colegio-elizangela-filomena/internal/school"
	"github.com/franciscocoimbra11-prog/colegio-elizangela-filomena/internal/tableapi"
	"github.com/franciscocoimbra11-prog/colegio-elizangela-filomena/internal/vault"
)

const usage = `usage: colegio-admin <command> [flags]

commands:
  migrate                    apply pending schema migrations
  adduser -email ADDRESS     create a back-office account
  resetpassword -email ADDR  set a new password for an account
`

func main() {
	if len(os.Args) < 2 {
		fmt.Fprint(os.Stderr, usage)
		os.Exit(2)
	}
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := dispatch(ctx, os.Args[1], os.Args[2:]); err != nil {
		fmt.Fprintf(os.Stderr, "colegio-admin: %v\n", err)
		os.Exit(1)
	}
}

func dispatch(ctx context.Context, cmd string, args []string) error {
	switch cmd {
	case "migrate":
		fs := flag.NewFlagSet(cmd, flag.ExitOnError)
		_ = fs.Parse(args)
		db, err := open(ctx)
		if err != nil {
			return err
		}
		defer db.Close()
		applied, err := database.Migrate(ctx, db)
		if err != nil {
			return err
		}
		if len(applied) == 0 {
			fmt.Println("schema up to date")
		}
		for _, v := range applied {
			fmt.Println("applied", v)
		}
		return nil

	case "adduser", "resetpassword":
		fs := flag.NewFlagSet(cmd, flag.ExitOnError)
		email := fs.String("email", "", "account e-mail address")
		_ = fs.Parse(args)
		if *email == "" {
			fs.Usage()
			return errors.New("-email is required")
		}
		pw, err := readPassword(os.Stdin, os.Stderr)
		if err != nil {
			return err
		}
		db, err := open(ctx)
		if err != nil {
			return err
		}
		defer db.Close()
		users := tableapi.New[school.AdminUser](db, school.TableAdminUsers)

		if cmd == "adduser" {
			id, err := auth.CreateUser(ctx, users, *email, pw)
			if err != nil {
				return err
			}
			fmt.Println("created", id)
			return nil
		}
		if err := auth.SetPassword(ctx, users, *email, pw); err != nil {
			return err
		}
		fmt.Println("password updated")
		return nil
	}
	fmt.Fprint(os.Stderr, usage)
	return fmt.Errorf("unknown command %q", cmd)
}

// open loads configuration and connects to the database.
func open(ctx context.Context) (*sqlx.DB, error) {
	zap.ReplaceGlobals(zap.Must(zap.NewDevelopment()))

	var secrets config.SecretSource
	if vault.Enabled() {
		vc, err := vault.New(ctx, zap.S())
		if err != nil {
			return nil, err
		}
		secrets = vc
	}
	cfg, err := config.Load(ctx, config.Options{Secrets: secrets})
	if err != nil {
		return nil, err
	}
	return database.OpenWithOptions(ctx, cfg.Database.ResolvedDSN(), 2, 1)
}

// readPassword prompts twice.  On a terminal input is not echoed; piped
// input is read line by line so the command can be scripted.
func readPassword(in *os.File, prompt io.Writer) (string, error) {
	fd := int(in.Fd())
	var read func() (string, error)
	if term.IsTerminal(fd) {
		read = func() (string, error) {
			b, err := term.ReadPassword(fd)
			fmt.Fprintln(prompt)
			return string(b), err
		}
	} else {
		sc := bufio.NewScanner(in)
		read = func() (string, error) {
			if !sc.Scan() {
				if err := sc.Err(); err != nil {
					return "", err
				}
				return "", io.ErrUnexpectedEOF
			}
			return strings.TrimRight(sc.Text(), "\r"), nil
		}
	}

	fmt.Fprint(prompt, "Palavra-passe: ")
	first, err := read()
	if err != nil {
		return "", err
	}
	fmt.Fprint(prompt, "Repita a palavra-passe: ")
	second, err := read()
	if err != nil {
		return "", err
	}
	if first != second {
		return "", errors.New("passwords do not match")
	}
	return first, nil
}
