package main

import (
	"errors"
	"flag"
	"fmt"
	"os"
	"time"

	"github.com/example/quickmark/internal/license"
)

// licenseCmd checks and creates license keys.
type licenseCmd struct {
	secret string
	email  string
	ttl    time.Duration
	*root
	fs *flag.FlagSet
}

func (l *licenseCmd) FlagSet() *flag.FlagSet {
	return l.fs
}

func parseLicenseCmd(args []string, r *root) (*licenseCmd, error) {
	fs := flag.NewFlagSet("license", flag.ExitOnError)
	l := &licenseCmd{root: r, fs: fs}
	fs.Usage = usageFunc(l)
	secret := os.Getenv("QUICKMARK_LICENSE_SECRET")
	if secret == "" && r != nil && r.config != nil {
		secret = r.config.LicenseSecret
	}
	fs.StringVar(&l.secret, "secret", secret, "HS256 secret for signed tokens")
	fs.StringVar(&l.email, "email", "", "customer email for issue")
	fs.DurationVar(&l.ttl, "ttl", 0, "token lifetime for issue (0 never expires)")
	if err := fs.Parse(args); err != nil {
		return nil, err
	}
	if fs.NArg() < 1 {
		return nil, &UsageError{of: l}
	}
	return l, nil
}

func (l *licenseCmd) Run() error {
	args := l.fs.Args()
	switch args[0] {
	case "check":
		if len(args) != 2 {
			return &UsageError{of: l}
		}
		return l.check(args[1])
	case "generate":
		key, err := license.GenerateKey()
		if err != nil {
			return err
		}
		fmt.Println(key)
		return nil
	case "issue":
		if l.secret == "" || l.email == "" {
			return errors.New("issue requires -secret and -email")
		}
		token, err := license.IssueToken([]byte(l.secret), l.email, time.Now(), l.ttl)
		if err != nil {
			return err
		}
		fmt.Println(token)
		return nil
	default:
		return fmt.Errorf("unknown license command: %s", args[0])
	}
}

func (l *licenseCmd) check(key string) error {
	var secret []byte
	if l.secret != "" {
		secret = []byte(l.secret)
	}
	g := license.NewPremiumGate(secret)
	if err := g.Activate(key); err != nil {
		return fmt.Errorf("license check: %w", err)
	}
	if c := g.Claims(); c != nil {
		fmt.Printf("valid token for %s, purchased %s\n", c.Email, c.PurchaseDate.Format("2006-01-02"))
		return nil
	}
	fmt.Println("valid key")
	return nil
}
