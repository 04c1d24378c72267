// Package ids supplies time-ordered 64-bit identifiers for chats and messages.
package ids

import (
	"fmt"

	"github.com/bwmarrin/snowflake"
)

// Generator produces monotonically increasing ids: an entity created later
// always compares numerically greater than one created earlier, which is
// what keyset pagination over id relies on.
type Generator interface {
	NextID() (int64, error)
}

// Snowflake generates ids from a snowflake node. Safe for concurrent use.
type Snowflake struct {
	node *snowflake.Node
}

// NewSnowflake creates a generator for the given machine id (0–1023).
func NewSnowflake(machineID int64) (*Snowflake, error) {
	node, err := snowflake.NewNode(machineID)
	if err != nil {
		return nil, fmt.Errorf("create snowflake node: %w", err)
	}
	return &Snowflake{node: node}, nil
}

func (s *Snowflake) NextID() (int64, error) {
	return s.node.Generate().Int64(), nil
}
