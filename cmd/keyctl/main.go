// keyctl administra usuários e API keys direto no store do gateway.
//
//	keyctl issue -user alice -email alice@example.com -tier premium
//	keyctl show -user alice
//	keyctl revoke -user alice
//	keyctl users
//	keyctl keys
//	keyctl stats
//	keyctl validate -key <keyId:keySecret>
package main

import (
	"context"
	"encoding/json"
	"errors"
	"flag"
	"fmt"
	"io"
	"os"
	"strconv"
	"time"

	"github.com/joho/godotenv"
	"github.com/redis/go-redis/v9"

	"tiered-gateway/consumer"
	akapp "tiered-gateway/middleware/apikey/application"
	akdomain "tiered-gateway/middleware/apikey/domain"
	akinfra "tiered-gateway/middleware/apikey/infra"
	rldomain "tiered-gateway/middleware/ratelimit/domain"
	rlinfra "tiered-gateway/middleware/ratelimit/infra"
	"tiered-gateway/store"
)

var (
	errUsage = errors.New("usage: keyctl <issue|show|revoke|users|keys|stats|validate> [flags]")
	// errRejected sinaliza (exit 1) que a key foi recusada; o motivo sai no JSON.
	errRejected = errors.New("api key rejected")
)

// statsReader é satisfeito por *rlinfra.RedisStatsStore.
type statsReader interface {
	Totals(ctx context.Context) (map[rldomain.Outcome]int64, error)
	ScopeTotals(ctx context.Context) (map[rldomain.Scope]map[rldomain.Outcome]int64, error)
}

// validator é satisfeito por akapp.Validator.
type validator interface {
	Validate(ctx context.Context, raw string) (consumer.Identity, error)
}

type deps struct {
	registry  akinfra.Registry
	stats     statsReader
	validator validator
}

func main() {
	_ = godotenv.Load()

	db, _ := strconv.Atoi(os.Getenv("REDIS_DB"))
	addr := os.Getenv("REDIS_ADDR")
	if addr == "" {
		addr = "localhost:6379"
	}
	rdb := redis.NewClient(&redis.Options{
		Addr:     addr,
		Password: os.Getenv("REDIS_PASSWORD"),
		DB:       db,
	})
	client := store.NewRedis(rdb, store.WithOpTimeout(5*time.Second))
	defer func() { _ = client.Close() }()

	statsPrefix := os.Getenv("RATE_STATS_PREFIX")
	if statsPrefix == "" {
		statsPrefix = "ratelimit:stats"
	}
	d := deps{
		registry:  akinfra.Registry{Client: client},
		stats:     rlinfra.NewRedisStatsStore(rdb, rlinfra.WithStatsPrefix(statsPrefix)),
		validator: akapp.Validator{Keys: akinfra.KeyStore{Client: client}},
	}

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := run(ctx, d, os.Args[1:], os.Stdout); err != nil {
		fmt.Fprintln(os.Stderr, "keyctl:", err)
		os.Exit(1)
	}
}

func run(ctx context.Context, d deps, args []string, out io.Writer) error {
	if len(args) == 0 {
		return errUsage
	}
	cmd, args := args[0], args[1:]

	fs := flag.NewFlagSet(cmd, flag.ContinueOnError)
	fs.SetOutput(io.Discard)
	username := fs.String("user", "", "username")
	email := fs.String("email", "", "email (issue)")
	tier := fs.String("tier", string(consumer.TierStandard), "tier: public, standard ou premium (issue)")
	key := fs.String("key", "", "api key keyId:keySecret (validate)")
	if err := fs.Parse(args); err != nil {
		return err
	}

	reg := d.registry
	switch cmd {
	case "issue":
		t := consumer.Tier(*tier)
		if !t.Known() {
			return fmt.Errorf("unknown tier %q", *tier)
		}
		user, cred, err := reg.Issue(ctx, *username, *email, t)
		if err != nil {
			return err
		}
		return writeJSON(out, map[string]any{"user": user, "apiKey": cred.Token()})

	case "show":
		if *username == "" {
			return errors.New("-user is required")
		}
		user, cred, err := reg.User(ctx, *username)
		if err != nil {
			return err
		}
		return writeJSON(out, map[string]any{"user": user, "apiKey": cred.Token()})

	case "revoke":
		if *username == "" {
			return errors.New("-user is required")
		}
		if err := reg.Revoke(ctx, *username); err != nil {
			return err
		}
		return writeJSON(out, map[string]string{"revoked": *username})

	case "users":
		users, err := reg.ListUsers(ctx)
		if err != nil {
			return err
		}
		return writeJSON(out, map[string]any{"users": users, "count": len(users)})

	case "keys":
		keys, err := reg.ListKeys(ctx)
		if err != nil {
			return err
		}
		return writeJSON(out, map[string]any{"keys": keys, "count": len(keys)})

	case "stats":
		if d.stats == nil {
			return errors.New("stats store not configured")
		}
		totals, err := d.stats.Totals(ctx)
		if err != nil {
			return err
		}
		byScope, err := d.stats.ScopeTotals(ctx)
		if err != nil {
			return err
		}
		return writeJSON(out, map[string]any{"total": totals, "scopes": byScope})

	case "validate":
		if *key == "" {
			return errors.New("-key is required")
		}
		id, err := d.validator.Validate(ctx, *key)
		switch {
		case err == nil:
			return writeJSON(out, map[string]any{"valid": true, "username": id.Username, "tier": id.Tier})
		case errors.Is(err, akdomain.ErrMalformedCredential), errors.Is(err, akdomain.ErrInvalidCredential):
			if werr := writeJSON(out, map[string]any{"valid": false, "error": err.Error()}); werr != nil {
				return werr
			}
			return errRejected
		default:
			return err
		}

	default:
		return errUsage
	}
}

func writeJSON(w io.Writer, v any) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}
