package cmd

import (
	"io"

	"github.com/olekukonko/tablewriter"
	"github.com/pkg/errors"
	"github.com/spf13/cobra"

	"github.com/freekieb7/bastro/config"
	"github.com/freekieb7/bastro/filesystem"
	"github.com/freekieb7/bastro/http"
	"github.com/freekieb7/bastro/pathmap"
)

func newRoutesCommand(opts *options) *cobra.Command {
	return &cobra.Command{
		Use:   "routes",
		Short: "List the routes the configured folders map to, without serving",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := resolveConfig(cmd, opts)
			if err != nil {
				return err
			}
			return listRoutes(cfg, filesystem.NewLocalFileSystem(), cmd.OutOrStdout())
		},
	}
}

func listRoutes(cfg config.Config, fs filesystem.Filesystem, out io.Writer) error {
	mapper := pathmap.NewMapper(fs, nil, nil)

	table := tablewriter.NewWriter(out)
	table.SetAutoWrapText(false)
	table.SetHeader([]string{"Method", "URL", "Mode", "File"})

	add := func(mode pathmap.Mode, mounts []config.Mount) error {
		for _, mount := range mounts {
			mappings, err := mapper.Plan(mode, mount.URL, mount.Dir)
			if err != nil {
				return errors.Wrapf(err, "%s %s", mode, mount)
			}
			for _, mapping := range mappings {
				table.Append([]string{http.MethodGet.String(), mapping.URL, mapping.Mode.String(), mapping.File})
			}
		}
		return nil
	}

	if err := add(pathmap.ModePage, cfg.Pages); err != nil {
		return err
	}
	if err := add(pathmap.ModeAsset, cfg.Assets); err != nil {
		return err
	}

	table.Render()
	return nil
}
