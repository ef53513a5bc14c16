package app

import (
	"fmt"

	"github.com/phillarmonic/figlet/figletlib"
	"github.com/spf13/cobra"
)

// Domain: Version Display
// This file contains logic for displaying version information

func (a *App) createVersionCommand() *cobra.Command {
	var short bool

	cmd := &cobra.Command{
		Use:   "version",
		Short: "Show version information",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			if short {
				fmt.Fprintln(a.out, a.version)
				return nil
			}
			return a.showVersion()
		},
	}

	cmd.Flags().BoolVar(&short, "short", false, "Print the version number only")
	return cmd
}

// showVersion displays version information with ASCII art
func (a *App) showVersion() error {
	loader := figletlib.NewEmbededLoader()
	font, err := loader.GetFontByName("standard")
	if err != nil {
		return err
	}

	startColor, _ := figletlib.ParseColor("#D24939")
	endColor, _ := figletlib.ParseColor("#F0D6B7")
	gradientConfig := figletlib.ColorConfig{
		Mode:       figletlib.ColorModeGradient,
		StartColor: startColor,
		EndColor:   endColor,
	}

	fmt.Fprintln(a.out)
	figletlib.PrintColoredMsg("choicectl", font, 80, font.Settings(), "left", gradientConfig)

	fmt.Fprintln(a.out, "Extended choice parameter values for CI builds")
	fmt.Fprintln(a.out)
	fmt.Fprintf(a.out, "Version %s\n", a.version)
	if a.commit != "unknown" {
		fmt.Fprintf(a.out, "commit: %s\n", a.commit)
	}
	if a.date != "unknown" {
		fmt.Fprintf(a.out, "built: %s\n", a.date)
	}
	return nil
}
