package commands

import (
	"fmt"

	"github.com/spf13/cobra"
)

var composeName string

func init() {
	composeCmd.Flags().StringVar(&composeName, "name", "preview.png", "File name of the image inside the output folder.")
	rootCmd.AddCommand(composeCmd)
}

var composeCmd = &cobra.Command{
	Use:   "compose <url> [--name <file.png>]",
	Short: "Scrapes one offer and renders its story image without touching the device.",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		offer, err := newScraper().Scrape(cmd.Context(), args[0])
		if err != nil {
			return err
		}
		composer, err := newComposer()
		if err != nil {
			return err
		}
		path, err := composer.ComposeOffer(offer, composeName)
		if err != nil {
			return err
		}
		fmt.Fprintln(cmd.OutOrStdout(), offer)
		fmt.Fprintln(cmd.OutOrStdout(), path)
		return nil
	},
}
