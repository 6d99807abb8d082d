package cli

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/eulaprotocol/triway/internal/domain"
)

var bundleHash bool

// hashCmd represents the hash command
var hashCmd = &cobra.Command{
	Use:   "hash <file> [file...]",
	Short: "Compute document hashes for tamper detection",
	Long: `Hash prints the sha256 digest of each file in the canonical
"sha256:<hex>" form. With --bundle and exactly three files, also prints
the order-independent bundle hash used for duplicate detection.

Example:
  triway hash invoice.pdf
  triway hash --bundle invoice.pdf po.pdf pod.pdf`,
	Args: cobra.MinimumNArgs(1),
	RunE: runHash,
}

func init() {
	rootCmd.AddCommand(hashCmd)
	hashCmd.Flags().BoolVar(&bundleHash, "bundle", false, "also print the bundle hash (requires exactly 3 files)")
}

func runHash(cmd *cobra.Command, args []string) error {
	hashes := make([]string, 0, len(args))
	for _, path := range args {
		h, err := domain.ComputeFileHash(path)
		if err != nil {
			return fmt.Errorf("hash %s: %w", path, err)
		}
		hashes = append(hashes, h)
		fmt.Printf("%s  %s\n", h, path)
	}

	if bundleHash {
		if len(hashes) != 3 {
			return fmt.Errorf("--bundle requires exactly 3 files, got %d", len(hashes))
		}
		bh, err := domain.ComputeBundleHash(hashes[0], hashes[1], hashes[2])
		if err != nil {
			return err
		}
		fmt.Printf("%s  (bundle)\n", bh)
	}
	return nil
}
