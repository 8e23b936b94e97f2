// Command arbor-sweeper is an AWS Lambda function subscribed to the node
// table's stream. It removes nodes orphaned by a concurrent parent delete.
//
// Environment:
//
//	ARBOR_NODE_TABLE    node table name (default "arbor_nodes")
//	ARBOR_SHARDS        shard count used when the nodes were written (default 1)
package main

import (
	"context"
	"log/slog"
	"os"
	"strconv"

	"github.com/aws/aws-lambda-go/lambda"

	"github.com/jacentio/arbor/dynamotree"
	"github.com/jacentio/arbor/stream"
)

func main() {
	logger := slog.New(slog.NewJSONHandler(os.Stderr, nil))

	cfg := dynamotree.DefaultConfig()
	if v := os.Getenv("ARBOR_NODE_TABLE"); v != "" {
		cfg.NodeTable = v
	}
	if v := os.Getenv("ARBOR_SHARDS"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil {
			logger.Error("invalid ARBOR_SHARDS", "value", v, "error", err)
			os.Exit(1)
		}
		cfg.NumShards = n
	}

	client, err := dynamotree.NewDialer(cfg, logger).Client(context.Background())
	if err != nil {
		logger.Error("failed to create dynamodb client", "error", err)
		os.Exit(1)
	}

	handler := stream.NewHandler(dynamotree.New(client, cfg, logger), logger)
	lambda.Start(handler.HandleOrphanSweep)
}
