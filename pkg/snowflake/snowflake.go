package snowflake

import (
	"errors"

	sf "github.com/bwmarrin/snowflake"
)

var node *sf.Node

// Init creates the ID node for this process. nodeID must be unique per
// running instance.
func Init(nodeID int64) (err error) {
	node, err = sf.NewNode(nodeID)
	return err
}

// GetID returns a new unique job ID.
func GetID() (uint64, error) {
	if node == nil {
		return 0, errors.New("snowflake not initialized; call Init")
	}
	return uint64(node.Generate().Int64()), nil
}
