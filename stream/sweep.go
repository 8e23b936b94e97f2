package stream

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/aws/aws-lambda-go/events"

	"github.com/jacentio/arbor/internal/shard"
	"github.com/jacentio/arbor/tree"
)

// OrphanLister is a tree client that can list children of a node that no
// longer exists.
type OrphanLister interface {
	tree.Client
	OrphansOf(ctx context.Context, path string) ([]string, error)
}

// Handler processes DynamoDB stream events of the node table.
type Handler struct {
	tree   OrphanLister
	logger *slog.Logger
}

// NewHandler creates a new stream handler.
func NewHandler(t OrphanLister, logger *slog.Logger) *Handler {
	if logger == nil {
		logger = slog.Default()
	}
	return &Handler{
		tree:   t,
		logger: logger,
	}
}

// HandleOrphanSweep processes node removals and deletes any descendants left
// behind, which happens when a child is created while its parent is being
// deleted. This function is designed to be used as an AWS Lambda handler.
func (h *Handler) HandleOrphanSweep(ctx context.Context, event events.DynamoDBEvent) error {
	for _, record := range event.Records {
		if err := h.processRecord(ctx, record); err != nil {
			h.logger.Error("failed to process record",
				"eventID", record.EventID,
				"error", err,
			)
			return err // Will retry, eventually DLQ
		}
	}
	return nil
}

// processRecord processes a single DynamoDB stream record.
func (h *Handler) processRecord(ctx context.Context, record events.DynamoDBEventRecord) error {
	// Only removals can leave orphans behind
	if record.EventName != string(events.DynamoDBOperationTypeRemove) {
		return nil
	}

	path := nodePath(record.Change.Keys)
	if path == "" || path == tree.Root {
		return nil
	}

	// A node removed and recreated since the event, as Store does with a
	// set node, owns its children again.
	exists, err := h.tree.Exists(ctx, path)
	if err != nil {
		return fmt.Errorf("check %s: %w", path, err)
	}
	if exists {
		h.logger.Debug("removed node was recreated, skipping sweep", "path", path)
		return nil
	}

	orphans, err := h.tree.OrphansOf(ctx, path)
	if err != nil {
		return fmt.Errorf("list orphans of %s: %w", path, err)
	}
	if len(orphans) == 0 {
		return nil
	}

	h.logger.Info("sweeping orphaned nodes",
		"path", path,
		"orphanCount", len(orphans),
	)

	// DeleteRecursive tolerates nodes removed concurrently, so replays are safe.
	for _, name := range orphans {
		child := tree.Join(path, name)
		if err := tree.DeleteRecursive(ctx, h.tree, child); err != nil {
			return fmt.Errorf("sweep %s: %w", child, err)
		}
	}

	h.logger.Info("orphan sweep completed",
		"path", path,
		"orphansRemoved", len(orphans),
	)
	return nil
}

// nodePath rebuilds the path of a node item from its key attributes.
func nodePath(keys map[string]events.DynamoDBAttributeValue) string {
	pk := getStringAttr(keys, "parent_pk")
	name := getStringAttr(keys, "name")
	if pk == "" || name == "" {
		return ""
	}
	return tree.Join(shard.ParentPath(pk), name)
}

// getStringAttr extracts a string attribute from a DynamoDB stream image.
func getStringAttr(image map[string]events.DynamoDBAttributeValue, key string) string {
	if v, ok := image[key]; ok && v.DataType() == events.DataTypeString {
		return v.String()
	}
	return ""
}
