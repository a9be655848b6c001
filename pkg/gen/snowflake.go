package gen

import (
	"github.com/bwmarrin/snowflake"
	"go.uber.org/fx"

	"incentivehub/internal/config"
)

// NewSnowflakeNode builds the process-wide ID generator. Every node in a
// deployment must carry a distinct SNOWFLAKE_NODE_ID.
func NewSnowflakeNode(cfg *config.Config) (*snowflake.Node, error) {
	return snowflake.NewNode(cfg.Snowflake.NodeID)
}

var Module = fx.Module("gen",
	fx.Provide(NewSnowflakeNode),
)
