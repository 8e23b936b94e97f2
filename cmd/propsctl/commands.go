package main

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"strings"
	"time"

	"github.com/docopt/docopt-go"
	"github.com/google/uuid"

	"github.com/jacentio/arbor/dynamotree"
	"github.com/jacentio/arbor/internal/config"
	"github.com/jacentio/arbor/props"
)

// command is one parsed propsctl invocation.
type command struct {
	name       string
	setName    string
	key        string
	value      string
	properties []string
	json       bool
	out        io.Writer
	logger     *slog.Logger
}

func newCommand(opts docopt.Opts, out io.Writer, logger *slog.Logger) *command {
	if logger == nil {
		logger = slog.Default()
	}
	cmd := &command{out: out, logger: logger}
	for _, name := range []string{"list", "get", "store", "set", "unset", "delete", "ping"} {
		if ok, _ := opts.Bool(name); ok {
			cmd.name = name
			break
		}
	}
	cmd.setName, _ = opts.String("<name>")
	cmd.key, _ = opts.String("<key>")
	cmd.value, _ = opts.String("<value>")
	if properties, ok := opts["<property>"].([]string); ok {
		cmd.properties = properties
	}
	cmd.json, _ = opts.Bool("--json")
	return cmd
}

// run connects through factory, executes the command and releases the
// session on every path.
func (c *command) run(ctx context.Context, factory *props.Factory) error {
	storage, err := factory.Create(ctx)
	if err != nil {
		return err
	}
	defer storage.Close()

	switch c.name {
	case "list":
		return c.list(ctx, storage)
	case "get":
		return c.get(ctx, storage)
	case "store":
		return c.store(ctx, storage)
	case "set":
		return c.update(ctx, storage, func(set *props.PropertySet) {
			set.Set(c.key, c.value)
		})
	case "unset":
		return c.update(ctx, storage, func(set *props.PropertySet) {
			set.Remove(c.key)
		})
	case "delete":
		return storage.Delete(ctx, c.setName)
	case "ping":
		return c.ping(ctx, storage)
	default:
		return fmt.Errorf("unknown command %q", c.name)
	}
}

func (c *command) list(ctx context.Context, storage *props.Storage) error {
	names, err := storage.PropertySets(ctx)
	if errors.Is(err, props.ErrRootNotFound) {
		return fmt.Errorf("no property sets have been stored under %s", storage.RootPath())
	}
	if err != nil {
		return err
	}
	if c.json {
		return json.NewEncoder(c.out).Encode(names)
	}
	for _, name := range names {
		fmt.Fprintln(c.out, name)
	}
	return nil
}

func (c *command) get(ctx context.Context, storage *props.Storage) error {
	set, ok, err := storage.Get(ctx, c.setName)
	if err != nil {
		return err
	}
	if !ok {
		return fmt.Errorf("property set %q not found", c.setName)
	}
	if c.json {
		return json.NewEncoder(c.out).Encode(set.AsMap())
	}
	for _, key := range set.Properties() {
		value, _ := set.Property(key)
		fmt.Fprintf(c.out, "%s=%s\n", key, value)
	}
	return nil
}

func (c *command) store(ctx context.Context, storage *props.Storage) error {
	set := props.NewPropertySet(c.setName)
	for _, property := range c.properties {
		key, value, err := parseProperty(property)
		if err != nil {
			return err
		}
		set.Set(key, value)
	}
	return storage.Store(ctx, set)
}

// update reads a set (or starts an empty one), applies change and stores the
// result. Concurrent writers of the same set can overwrite each other.
func (c *command) update(ctx context.Context, storage *props.Storage, change func(*props.PropertySet)) error {
	set, ok, err := storage.Get(ctx, c.setName)
	if err != nil {
		return err
	}
	if !ok {
		set = props.NewPropertySet(c.setName)
	}
	change(set)
	return storage.Store(ctx, set)
}

// ping stores, reads back and deletes a scratch set.
func (c *command) ping(ctx context.Context, storage *props.Storage) error {
	start := time.Now()
	name := "ping-" + uuid.New().String()

	set := props.NewPropertySet(name)
	set.Set("at", start.UTC().Format(time.RFC3339Nano))
	if err := storage.Store(ctx, set); err != nil {
		return fmt.Errorf("ping: %w", err)
	}
	defer func() {
		if err := storage.Delete(ctx, name); err != nil {
			c.logger.Warn("failed to delete ping set", "set", name, "error", err)
		}
	}()

	got, ok, err := storage.Get(ctx, name)
	if err != nil {
		return fmt.Errorf("ping: %w", err)
	}
	if !ok || got.Len() != 1 {
		return fmt.Errorf("ping: scratch set %q did not read back", name)
	}

	fmt.Fprintf(c.out, "ok %s\n", time.Since(start).Round(time.Millisecond))
	return nil
}

// parseProperty splits "key=value". The value may itself contain '='.
func parseProperty(property string) (string, string, error) {
	key, value, ok := strings.Cut(property, "=")
	if !ok || key == "" {
		return "", "", fmt.Errorf("invalid property %q, want key=value", property)
	}
	return key, value, nil
}

func runInitTable(ctx context.Context, cfg *config.FileConfig, logger *slog.Logger) error {
	if cfg.Backend != config.BackendDynamoDB {
		return fmt.Errorf("init-table requires the %s backend", config.BackendDynamoDB)
	}
	ddbCfg, loadFns := cfg.ToDynamoDBConfig()
	client, err := dynamotree.NewDialer(ddbCfg, logger, loadFns...).Client(ctx)
	if err != nil {
		return err
	}
	if err := dynamotree.CreateTable(ctx, client, ddbCfg, 2*time.Minute); err != nil {
		return err
	}
	logger.Info("node table ready", "table", ddbCfg.NodeTable, "shards", ddbCfg.NumShards)
	return nil
}
