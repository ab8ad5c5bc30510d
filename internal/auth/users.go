package auth

import (
	"context"
	"errors"
	"fmt"
	"net/mail"
	"strings"
	"unicode/utf8"

	"github.com/franciscocoimbra11-prog/colegio-elizangela-filomena/internal/school"
	"github.com/franciscocoimbra11-prog/colegio-elizangela-filomena/internal/tableapi"
)

// MinPasswordLen is the shortest password CreateUser and SetPassword accept.
const MinPasswordLen = 8

var (
	ErrUserExists   = errors.New("auth: user already exists")
	ErrUnknownUser  = errors.New("auth: no such user")
	ErrWeakPassword = fmt.Errorf("auth: password shorter than %d characters", MinPasswordLen)
	ErrBadEmail     = errors.New("auth: invalid e-mail address")
)

// CreateUser adds a back-office account.  The e-mail is stored lower-cased.
func CreateUser(ctx context.Context, users tableapi.Gateway[school.AdminUser], email, password string) (string, error) {
	email, err := normalizeEmail(email)
	if err != nil {
		return "", err
	}
	hash, err := checkedHash(password)
	if err != nil {
		return "", err
	}
	if _, err := findUser(ctx, users, email); err == nil {
		return "", ErrUserExists
	} else if !errors.Is(err, ErrUnknownUser) {
		return "", err
	}
	return users.Insert(ctx, tableapi.Values{"email": email, "password_hash": hash})
}

// SetPassword replaces the password of an existing account.
func SetPassword(ctx context.Context, users tableapi.Gateway[school.AdminUser], email, password string) error {
	email, err := normalizeEmail(email)
	if err != nil {
		return err
	}
	hash, err := checkedHash(password)
	if err != nil {
		return err
	}
	u, err := findUser(ctx, users, email)
	if err != nil {
		return err
	}
	return users.Update(ctx, u.ID, tableapi.Values{"password_hash": hash})
}

func normalizeEmail(email string) (string, error) {
	email = strings.ToLower(strings.TrimSpace(email))
	if a, err := mail.ParseAddress(email); err != nil || a.Address != email {
		return "", ErrBadEmail
	}
	return email, nil
}

func checkedHash(password string) (string, error) {
	if utf8.RuneCountInString(password) < MinPasswordLen {
		return "", ErrWeakPassword
	}
	return HashPassword(password)
}

func findUser(ctx context.Context, users tableapi.Gateway[school.AdminUser], email string) (school.AdminUser, error) {
	rows, err := users.List(ctx, tableapi.Query{
		Eq:    []tableapi.Eq{{Column: "email", Value: email}},
		Limit: 1,
	})
	if err != nil {
		return school.AdminUser{}, err
	}
	if len(rows) == 0 {
		return school.AdminUser{}, fmt.Errorf("%s: %w", email, ErrUnknownUser)
	}
	return rows[0], nil
}
