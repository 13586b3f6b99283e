package idgen

import (
	"github.com/bwmarrin/snowflake"
	"github.com/smallbiznis/motorbook/internal/config"
	"go.uber.org/fx"
)

var Module = fx.Module("idgen",
	fx.Provide(NewNode),
)

// NewNode returns the snowflake node for this process. SNOWFLAKE_NODE must be unique per running instance.
func NewNode(cfg config.Config) (*snowflake.Node, error) {
	return snowflake.NewNode(cfg.SnowflakeNode)
}
