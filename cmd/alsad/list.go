package main

import (
	"fmt"
	"io"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/gen2brain/alsad/blacklist"
	"github.com/gen2brain/alsad/card"
	"github.com/gen2brain/alsad/internal/config"
	"github.com/gen2brain/alsad/internal/hotplug"
	"github.com/gen2brain/alsad/internal/system"
	"github.com/gen2brain/alsad/iodev"
)

func newListCmd(opts *config.Options) *cobra.Command {
	return &cobra.Command{
		Use:   "list",
		Short: "Print the devices and nodes of every card",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			indices, err := hotplug.Scan(opts.DevDir)
			if err != nil {
				return err
			}

			bl, err := blacklist.Load(opts.Blacklist)
			if err != nil {
				return err
			}

			hw := card.ALSA{}
			state := system.New()

			for _, index := range indices {
				m, err := openCard(hw, opts, bl, state, index)
				if err != nil {
					fmt.Fprintf(cmd.ErrOrStderr(), "card %d: %v\n", index, err)

					continue
				}

				printCard(cmd.OutOrStdout(), m)
				m.Destroy()
			}

			return nil
		},
	}
}

// openCard brings up a card for inspection only: no events are watched and no streams can run.
func openCard(hw hardware, opts *config.Options, bl *blacklist.Blacklist, state *system.State, index uint32) (*card.Manager, error) {
	info, err := hw.Describe(index)
	if err != nil {
		return nil, err
	}

	return card.New(card.Config{
		Info:      info,
		ConfigDir: opts.CardConfigDir,
		UCMDir:    opts.UcmDir,
		UCMSuffix: opts.UcmSuffix,
		Blacklist: bl,
		Hardware:  hw,
		Opener: card.PCMOpener{
			PeriodFrames: uint32(max(opts.PeriodFrames, 0)),
			PeriodCount:  uint32(max(opts.PeriodCount, 0)),
		},
		System: state,
	})
}

func printCard(w io.Writer, m *card.Manager) {
	info := m.Info()

	fmt.Fprintf(w, "Card %d: %s (%s)\n", info.Index, info.Name, info.Type)
	if info.VendorID != 0 {
		fmt.Fprintf(w, "  USB %04x:%04x serial %q\n", info.VendorID, info.ProductID, info.Serial)
	}
	if name := m.UseCase().Name(); name != "" {
		fmt.Fprintf(w, "  Use-case configuration %s\n", name)
	}

	for _, d := range m.Devices() {
		printDevice(w, d)
	}
}

func printDevice(w io.Writer, d *iodev.Device) {
	fmt.Fprintf(w, "  %s device %d: %s\n", d.Direction(), d.Index(), d.Name())

	if caps, err := d.SupportedFormats(); err == nil {
		fmt.Fprintf(w, "    rates %v, channels %v, formats %v\n", caps.Rates, caps.Channels, caps.Samples)
	}

	tw := tabwriter.NewWriter(w, 0, 0, 2, ' ', 0)
	fmt.Fprintln(tw, "    \tNODE\tTYPE\tPOSITION\tPLUGGED\tSTABLE ID")

	for _, n := range d.Nodes() {
		mark := ""
		if n.Active() {
			mark = "*"
		}

		fmt.Fprintf(tw, "    %s\t%s\t%s\t%s\t%t\t%08x\n", mark, n.Name(), n.Type(), n.Position(), n.Plugged(), n.StableID())
	}

	_ = tw.Flush()
}
