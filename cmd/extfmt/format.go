package main

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"
	"github.com/vorteil/extfmt/pkg/elog"
	"github.com/vorteil/extfmt/pkg/ext/device"
	"github.com/vorteil/extfmt/pkg/ext/family"
	"github.com/vorteil/extfmt/pkg/ext/format"
)

var (
	flagFamily           string
	flagBlockSize        int64
	flagLabel            string
	flagUse64Bit         bool
	flagJournalPopulated bool
	flagCreateSize       int64
)

func init() {
	for _, c := range []*cobra.Command{formatCmd, dryRunCmd} {
		c.Flags().StringVar(&flagFamily, "family", "ext4", "filesystem family: ext2, ext3, or ext4")
		c.Flags().Int64Var(&flagBlockSize, "block-size", 4096, "block size in bytes: 1024, 2048, or 4096")
		c.Flags().StringVar(&flagLabel, "label", "", "volume label (max 16 bytes)")
		c.Flags().BoolVar(&flagUse64Bit, "64bit", false, "force 64-bit group descriptors")
		c.Flags().BoolVar(&flagJournalPopulated, "journal-populated", false, "set FormatOptions.JournalPopulated; the journal inode is written as a bare reservation with no journal superblock either way")
	}
	formatCmd.Flags().Int64Var(&flagCreateSize, "create-size", 0, "create a new image file of this size in bytes instead of formatting an existing device")
}

var formatCmd = &cobra.Command{
	Use:   "format DEVICE",
	Short: "Format a device or image file",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		log := &elog.CLI{}
		opts, err := optionsFromFlags()
		if err != nil {
			return err
		}

		path := args[0]
		var dev device.Device
		if flagCreateSize > 0 {
			dev, err = device.CreateFile(path, flagCreateSize, 512)
		} else {
			dev, err = device.OpenFile(path, 0)
		}
		if err != nil {
			return err
		}
		defer dev.Close()

		f := format.New(log)
		return f.Format(context.Background(), dev, opts)
	},
}

var dryRunCmd = &cobra.Command{
	Use:   "dry-run DEVICE",
	Short: "Report what formatting DEVICE would produce, without writing anything",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		opts, err := optionsFromFlags()
		if err != nil {
			return err
		}

		dev, err := device.OpenFile(args[0], 0)
		if err != nil {
			return err
		}
		defer dev.Close()

		f := format.New(nil)
		report, err := f.DryRun(opts, dev.TotalSize())
		if err != nil {
			return err
		}

		fmt.Printf("family:       %s\n", report.Family)
		fmt.Printf("block size:   %d\n", report.BlockSize)
		fmt.Printf("total blocks: %d (free: %d)\n", report.TotalBlocks, report.FreeBlocks)
		fmt.Printf("total inodes: %d (free: %d)\n", report.TotalInodes, report.FreeInodes)
		fmt.Printf("groups:       %d (64-bit descriptors: %v)\n", report.NumGroups, report.Uses64Bit)
		fmt.Printf("backup groups: %v\n", report.ReservedGroups)
		return nil
	},
}

func optionsFromFlags() (format.FormatOptions, error) {
	v := viper.New()
	return format.FormatOptions{
		Family:           family.Name(flagFamily),
		BlockSize:        flagBlockSize,
		VolumeLabel:      flagLabel,
		Use64Bit:         flagUse64Bit,
		JournalPopulated: flagJournalPopulated,
		Tunables:         format.LoadTunables(v),
	}, nil
}
