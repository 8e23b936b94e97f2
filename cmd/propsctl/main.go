package main

import (
	"context"
	"log"
	"log/slog"
	"os"
	"os/signal"

	"github.com/docopt/docopt-go"

	"github.com/jacentio/arbor/internal/config"
)

const PropsCtlVersion = "0.1.0"

var Err *log.Logger

func init() {
	Err = log.New(os.Stderr, "", log.Ldate|log.Ltime|log.Lshortfile)
}

const usage = `Property set control.

Reads and writes property sets kept in ZooKeeper or DynamoDB.
Each set is a node under the root path; each property is a child node
holding the value.

Usage:
    propsctl list [options]
    propsctl get [options] <name>
    propsctl store [options] <name> [<property>...]
    propsctl set [options] <name> <key> <value>
    propsctl unset [options] <name> <key>
    propsctl delete [options] <name>
    propsctl ping [options]
    propsctl init-table [options]
    propsctl -h | --help
    propsctl --version

Options:
    -h --help                Show this screen.
    --version                Show version.
    --config=<file>          YAML or JSON configuration file.
    --backend=<backend>      zookeeper or dynamodb.
    --connect=<servers>      ZooKeeper connect string, e.g. zk1:2181,zk2:2181.
    --root=<path>            Root path of the property sets.
    --json                   Print results as JSON.
    --verbose                Enable debug logging.

A <property> is written key=value. store replaces the whole set; set and
unset read the set, change one key and store it back.`

func main() {
	opts, err := docopt.ParseArgs(usage, os.Args[1:], PropsCtlVersion)
	if err != nil {
		Err.Fatalf("%s", err)
	}

	level := slog.LevelInfo
	if verbose, _ := opts.Bool("--verbose"); verbose {
		level = slog.LevelDebug
	}
	logger := slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{
		Level: level,
	}))

	cfg, err := loadConfig(opts)
	if err != nil {
		Err.Fatalf("config: %s", err)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()

	if initTable, _ := opts.Bool("init-table"); initTable {
		if err := runInitTable(ctx, cfg, logger); err != nil {
			Err.Fatalf("init-table: %s", err)
		}
		return
	}

	factory, err := cfg.Factory(logger)
	if err != nil {
		Err.Fatalf("config: %s", err)
	}

	cmd := newCommand(opts, os.Stdout, logger)
	if err := cmd.run(ctx, factory); err != nil {
		Err.Fatalf("%s", err)
	}
}

// loadConfig reads the configuration file, if any, and applies flag overrides.
func loadConfig(opts docopt.Opts) (*config.FileConfig, error) {
	cfg := config.Default()
	if path, _ := opts.String("--config"); path != "" {
		loaded, err := config.LoadFile(path)
		if err != nil {
			return nil, err
		}
		cfg = loaded
	}

	overrides := &config.FileConfig{}
	overrides.Backend, _ = opts.String("--backend")
	overrides.RootPath, _ = opts.String("--root")
	overrides.ZooKeeper.Connect, _ = opts.String("--connect")
	cfg.Merge(overrides)
	return cfg, nil
}
