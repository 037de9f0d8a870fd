package format

import "github.com/spf13/viper"

// DefaultTunables mirrors mke2fs's historical defaults: one inode per
// 16 KiB and a 5% root reservation. Format writes no reserved-block
// count from ReservedBlocksPct, so s_r_blocks_count stays 0.
func DefaultTunables() Tunables {
	return Tunables{
		InodeRatio:        16 * 1024,
		ReservedBlocksPct: 5.0,
	}
}

// LoadTunables overlays caller-supplied configuration (a config file,
// environment variables, or flags already bound into v) on top of
// DefaultTunables, the way direktiv-vorteil's cmd/vorteil layers CLI
// flags over defaults via github.com/spf13/viper.
func LoadTunables(v *viper.Viper) Tunables {
	t := DefaultTunables()
	if v == nil {
		return t
	}
	v.SetDefault("inode_ratio", t.InodeRatio)
	v.SetDefault("reserved_blocks_percent", t.ReservedBlocksPct)
	t.InodeRatio = v.GetInt64("inode_ratio")
	t.ReservedBlocksPct = v.GetFloat64("reserved_blocks_percent")
	return t
}
