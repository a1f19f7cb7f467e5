// Copyright (c) 2026 Yomira. All rights reserved.
// Author: tai.buivan.jp@gmail.com

/*
Package snowflake provides the internal numeric identifiers for durable records.

Internal ids are 63-bit, roughly time ordered and unique per node. They are
never exposed to clients; the account handle (UUIDv7) is the public identity.
*/
package snowflake

import (
	"fmt"

	"github.com/bwmarrin/snowflake"
)

// Generator issues unique int64 ids for one process.
type Generator struct {
	node *snowflake.Node
}

// NewGenerator creates a Generator for the given node number (0-1023).
func NewGenerator(nodeID int64) (*Generator, error) {
	node, err := snowflake.NewNode(nodeID)
	if err != nil {
		return nil, fmt.Errorf("snowflake: invalid node %d: %w", nodeID, err)
	}
	return &Generator{node: node}, nil
}

// Next returns a fresh id.
func (generator *Generator) Next() int64 {
	return generator.node.Generate().Int64()
}
