package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"darksight/pkg/crypto"
	"darksight/pkg/field"
)

var (
	commitValue    uint64
	commitBlinding string

	nullifierSecret string
	nullifierIndex  uint64
)

var commitCmd = &cobra.Command{
	Use:   "commit",
	Short: "Commit to a value and print the commitment and its tree leaf",
	Long: "Computes value·G + blinding·H. When --blinding is omitted a fresh blinding\n" +
		"factor is drawn and printed; keep it, it is needed to open the commitment.",
	Args: cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		var (
			blinding field.Element
			err      error
		)
		if commitBlinding != "" {
			blinding, err = field.FromHex(commitBlinding)
		} else {
			blinding, err = crypto.NewBlinding()
		}
		if err != nil {
			return fmt.Errorf("invalid blinding: %w", err)
		}

		c := crypto.Commit(crypto.ValueFromUint64(commitValue), blinding)
		return printJSON(map[string]interface{}{
			"commitment": c,
			"leaf":       c.Leaf(),
			"blinding":   blinding,
		})
	},
}

var nullifierCmd = &cobra.Command{
	Use:   "nullifier",
	Short: "Derive the nullifier of a spend secret at a leaf index",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		secret, err := field.FromHex(nullifierSecret)
		if err != nil {
			return fmt.Errorf("invalid secret: %w", err)
		}
		n := crypto.DeriveNullifier(secret, crypto.IndexElement(nullifierIndex))
		return printJSON(map[string]interface{}{
			"index":     nullifierIndex,
			"nullifier": n,
		})
	},
}

func init() {
	commitCmd.Flags().Uint64Var(&commitValue, "value", 0, "amount to commit to")
	commitCmd.Flags().StringVar(&commitBlinding, "blinding", "", "hex blinding factor")
	_ = commitCmd.MarkFlagRequired("value")

	nullifierCmd.Flags().StringVar(&nullifierSecret, "secret", "", "hex spend secret")
	nullifierCmd.Flags().Uint64Var(&nullifierIndex, "index", 0, "leaf index")
	_ = nullifierCmd.MarkFlagRequired("secret")
	_ = nullifierCmd.MarkFlagRequired("index")

	rootCmd.AddCommand(commitCmd)
	rootCmd.AddCommand(nullifierCmd)
}
