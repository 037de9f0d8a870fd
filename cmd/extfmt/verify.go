package main

import (
	"fmt"

	"github.com/spf13/cobra"
	"github.com/vorteil/extfmt/pkg/ext/detect"
	"github.com/vorteil/extfmt/pkg/ext/device"
	"github.com/vorteil/extfmt/pkg/ext/verify"
)

var verifyCmd = &cobra.Command{
	Use:   "verify DEVICE",
	Short: "Re-read a formatted device and check superblock/bitmap invariants",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		dev, err := device.OpenFile(args[0], 0)
		if err != nil {
			return err
		}
		defer dev.Close()

		sbBytes := make([]byte, 1024)
		if _, err := dev.ReadAt(sbBytes, 1024); err != nil {
			return err
		}
		result, err := detect.Detect(sbBytes)
		if err != nil {
			return err
		}

		report, err := verify.Verify(dev, result.Family, result.BlockSize, false, 0)
		if err != nil {
			return err
		}

		fmt.Printf("detected: %s, block size %d, label %q\n", result.Family, result.BlockSize, result.Label)
		if report.OK() {
			fmt.Println("OK: no problems found")
			return nil
		}
		for _, p := range report.Problems {
			fmt.Println("PROBLEM:", p)
		}
		return fmt.Errorf("%d problems found", len(report.Problems))
	},
}
