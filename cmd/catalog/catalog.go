// Package catalog provides the catalog query commands
package catalog

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"slices"
	"strconv"

	"github.com/spf13/cobra"

	"github.com/flower-explorer/vistool/internal/app"
	"github.com/flower-explorer/vistool/internal/catalog"
	"github.com/flower-explorer/vistool/internal/conf"
	"github.com/flower-explorer/vistool/internal/datastore"
	"github.com/flower-explorer/vistool/internal/errors"
	"github.com/flower-explorer/vistool/internal/imageview"
)

// Command creates the catalog command. Every subcommand bootstraps an empty catalog before querying.
func Command(settings *conf.Settings) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "catalog",
		Short: "Query and edit the image catalog",
	}

	cmd.AddCommand(
		listCommand(settings, "sites", "List study sites", 0, func(ctx context.Context, a *app.App, _ []string) ([]string, error) {
			return a.Catalog.StudySites(ctx)
		}),
		listCommand(settings, "dates <site>", "List flight dates of a study site", 1, func(ctx context.Context, a *app.App, args []string) ([]string, error) {
			return a.Catalog.Dates(ctx, args[0])
		}),
		listCommand(settings, "cameras <site> <date>", "List cameras with images on a flight", 2, func(ctx context.Context, a *app.App, args []string) ([]string, error) {
			return a.Catalog.Cameras(ctx, args[0], args[1])
		}),
		imageCommand(settings),
		coordsCommand(settings),
		setPathsCommand(settings),
		exifCommand(settings),
		orthoCommand(settings),
	)
	return cmd
}

// withCatalog opens the app, bootstraps the catalog and runs fn
func withCatalog(cmd *cobra.Command, settings *conf.Settings, fn func(ctx context.Context, a *app.App) error) error {
	ctx := cmd.Context()
	a, err := app.Open(settings)
	if err != nil {
		return err
	}
	defer a.Close()

	if err := a.Bootstrap(ctx, cmd.ErrOrStderr()); err != nil {
		return err
	}
	return fn(ctx, a)
}

func listCommand(settings *conf.Settings, use, short string, nargs int,
	list func(ctx context.Context, a *app.App, args []string) ([]string, error)) *cobra.Command {
	return &cobra.Command{
		Use:   use,
		Short: short,
		Args:  cobra.ExactArgs(nargs),
		RunE: func(cmd *cobra.Command, args []string) error {
			return withCatalog(cmd, settings, func(ctx context.Context, a *app.App) error {
				values, err := list(ctx, a, args)
				if err != nil {
					return err
				}
				for _, v := range values {
					fmt.Fprintln(cmd.OutOrStdout(), v)
				}
				return nil
			})
		},
	}
}

func imageCommand(settings *conf.Settings) *cobra.Command {
	return &cobra.Command{
		Use:   "image <id>",
		Short: "Show the metadata of an image",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			id, err := parseID(args[0])
			if err != nil {
				return err
			}
			return withCatalog(cmd, settings, func(ctx context.Context, a *app.App) error {
				meta, err := a.Catalog.Image(ctx, id)
				if err != nil {
					return err
				}
				return printJSON(cmd.OutOrStdout(), meta)
			})
		},
	}
}

func coordsCommand(settings *conf.Settings) *cobra.Command {
	var (
		located bool
		label   string
	)

	cmd := &cobra.Command{
		Use:   "coords <site> <date> <camera>",
		Short: "List image coordinates of a camera on a flight, ordered by label",
		Args:  cobra.ExactArgs(3),
		RunE: func(cmd *cobra.Command, args []string) error {
			return withCatalog(cmd, settings, func(ctx context.Context, a *app.App) error {
				flight, err := a.Catalog.FlightByKey(ctx, args[0], args[1])
				if err != nil {
					return err
				}
				cameraID, err := a.Catalog.CameraID(ctx, args[2])
				if err != nil {
					return err
				}
				coords, err := a.Catalog.ImageCoordinates(ctx, flight.ID, cameraID)
				if err != nil {
					return err
				}

				if located {
					coords = catalog.Located(coords)
				}
				if label != "" {
					id, ok := catalog.ImageIDByLabel(coords, label)
					if !ok {
						return errors.NotFound("catalog", "image", "label", label)
					}
					coords = slices.DeleteFunc(coords, func(c datastore.ImageCoordinate) bool { return c.ID != id })
				}

				w := cmd.OutOrStdout()
				fmt.Fprintln(w, "id\tlabel\teasting\tnorthing\tyaw")
				for _, c := range coords {
					fmt.Fprintf(w, "%d\t%s\t%s\t%s\t%s\n", c.ID, c.Label, formatFloat(c.Easting), formatFloat(c.Northing), formatFloat(c.Yaw))
				}
				return nil
			})
		},
	}
	cmd.Flags().BoolVar(&located, "located", false, "Only images with a position estimate")
	cmd.Flags().StringVar(&label, "label", "", "Only the image with this label")
	return cmd
}

func setPathsCommand(settings *conf.Settings) *cobra.Command {
	var rawPath, jpgPath string

	cmd := &cobra.Command{
		Use:   "set-paths <id>",
		Short: "Set the RAW and/or JPEG path of an image",
		Long:  "Set-paths stores new file paths for an image. An omitted flag leaves the path unchanged, an empty value clears it.",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			id, err := parseID(args[0])
			if err != nil {
				return err
			}
			var raw, jpg *string
			if cmd.Flags().Changed("raw") {
				raw = &rawPath
			}
			if cmd.Flags().Changed("jpg") {
				jpg = &jpgPath
			}
			if raw == nil && jpg == nil {
				return fmt.Errorf("at least one of --raw and --jpg is required")
			}

			return withCatalog(cmd, settings, func(ctx context.Context, a *app.App) error {
				if err := a.Catalog.UpdateImagePaths(ctx, id, raw, jpg); err != nil {
					return err
				}
				meta, err := a.Catalog.Image(ctx, id)
				if err != nil {
					return err
				}
				return printJSON(cmd.OutOrStdout(), meta)
			})
		},
	}
	cmd.Flags().StringVar(&rawPath, "raw", "", "RAW file path")
	cmd.Flags().StringVar(&jpgPath, "jpg", "", "JPEG file path")
	return cmd
}

func exifCommand(settings *conf.Settings) *cobra.Command {
	return &cobra.Command{
		Use:   "exif <id>",
		Short: "Print the EXIF tags of an image file",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			id, err := parseID(args[0])
			if err != nil {
				return err
			}
			return withCatalog(cmd, settings, func(ctx context.Context, a *app.App) error {
				meta, err := a.Catalog.Image(ctx, id)
				if err != nil {
					return err
				}
				path := meta.JpgPath
				if path == nil {
					path = meta.RawPath
				}
				if path == nil {
					return fmt.Errorf("image %d has no file", id)
				}

				tags, err := imageview.ReadExif(*path)
				if err != nil {
					return err
				}
				for _, t := range tags {
					fmt.Fprintf(cmd.OutOrStdout(), "%s\t%s\t%s\n", t.IFD, t.Name, t.Value)
				}
				return nil
			})
		},
	}
}

func orthoCommand(settings *conf.Settings) *cobra.Command {
	return &cobra.Command{
		Use:   "ortho <site> <date>",
		Short: "Show the orthomosaic of a flight",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			return withCatalog(cmd, settings, func(ctx context.Context, a *app.App) error {
				flight, err := a.Catalog.FlightByKey(ctx, args[0], args[1])
				if err != nil {
					return err
				}
				ortho, err := a.Catalog.Ortho(ctx, flight.ID)
				if err != nil {
					return err
				}
				return printJSON(cmd.OutOrStdout(), ortho)
			})
		},
	}
}

func parseID(arg string) (int64, error) {
	id, err := strconv.ParseInt(arg, 10, 64)
	if err != nil || id <= 0 {
		return 0, fmt.Errorf("invalid image id %q", arg)
	}
	return id, nil
}

func formatFloat(v *float64) string {
	if v == nil {
		return "-"
	}
	return strconv.FormatFloat(*v, 'f', 3, 64)
}

func printJSON(w io.Writer, v any) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}
