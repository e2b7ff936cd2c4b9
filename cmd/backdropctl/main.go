// Command backdropctl controls a running backdrop daemon over D-Bus.
package main

import (
	"context"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strconv"
	"time"

	"github.com/genricoloni/backdrop/internal/domain"
	"github.com/genricoloni/backdrop/internal/ipc"
	"github.com/spf13/cobra"
)

// controller is the subset of ipc.Client used by the commands
type controller interface {
	SetWallpaper(ctx context.Context, path string) error
	ClearWallpaper(ctx context.Context) error
	SetTransparency(ctx context.Context, percent int) error
	SetMuted(ctx context.Context, muted bool) error
	SetLooping(ctx context.Context, looping bool) error
	SetScaleMode(ctx context.Context, mode string) error
	Reset(ctx context.Context) error
	Configuration(ctx context.Context) (domain.Configuration, error)
	Status(ctx context.Context) (domain.Status, error)
	Scan(ctx context.Context, dirs []string) (int, error)
	Thumbnail(ctx context.Context, media string) (string, error)
	ClearThumbnails(ctx context.Context) (int, error)
	Close() error
}

func main() {
	root := newRootCmd(func() (controller, error) { return ipc.Dial() })
	if err := root.Execute(); err != nil {
		os.Exit(1)
	}
}

// newRootCmd builds the command tree; dial is called once per command
func newRootCmd(dial func() (controller, error)) *cobra.Command {
	var timeout time.Duration

	root := &cobra.Command{
		Use:           "backdropctl",
		Short:         "Control the backdrop live wallpaper daemon",
		SilenceUsage: true,
	}
	root.PersistentFlags().DurationVar(&timeout, "timeout", 30*time.Second, "how long to wait for the daemon")

	// run dials the daemon and calls fn with a bounded context
	run := func(fn func(ctx context.Context, c controller, out io.Writer) error) func(*cobra.Command, []string) error {
		return func(cmd *cobra.Command, _ []string) error {
			c, err := dial()
			if err != nil {
				return err
			}
			defer c.Close()

			ctx, cancel := context.WithTimeout(cmd.Context(), timeout)
			defer cancel()
			return fn(ctx, c, cmd.OutOrStdout())
		}
	}

	root.AddCommand(
		&cobra.Command{
			Use:   "set <file>",
			Short: "Show a wallpaper",
			Args:  cobra.ExactArgs(1),
			RunE: func(cmd *cobra.Command, args []string) error {
				path, err := filepath.Abs(args[0])
				if err != nil {
					return err
				}
				return run(func(ctx context.Context, c controller, _ io.Writer) error {
					return c.SetWallpaper(ctx, path)
				})(cmd, args)
			},
		},
		&cobra.Command{
			Use:   "clear",
			Short: "Remove the wallpaper",
			Args:  cobra.NoArgs,
			RunE: run(func(ctx context.Context, c controller, _ io.Writer) error {
				return c.ClearWallpaper(ctx)
			}),
		},
		&cobra.Command{
			Use:   "opacity <0-100>",
			Short: "Set the wallpaper opacity in percent",
			Args:  cobra.ExactArgs(1),
			RunE: func(cmd *cobra.Command, args []string) error {
				percent, err := strconv.Atoi(args[0])
				if err != nil {
					return fmt.Errorf("invalid opacity %q: %w", args[0], err)
				}
				return run(func(ctx context.Context, c controller, _ io.Writer) error {
					return c.SetTransparency(ctx, percent)
				})(cmd, args)
			},
		},
		&cobra.Command{
			Use:   "mute",
			Short: "Silence video wallpapers",
			Args:  cobra.NoArgs,
			RunE: run(func(ctx context.Context, c controller, _ io.Writer) error {
				return c.SetMuted(ctx, true)
			}),
		},
		&cobra.Command{
			Use:   "unmute",
			Short: "Play video wallpaper audio",
			Args:  cobra.NoArgs,
			RunE: run(func(ctx context.Context, c controller, _ io.Writer) error {
				return c.SetMuted(ctx, false)
			}),
		},
		&cobra.Command{
			Use:       "loop <on|off>",
			Short:     "Repeat video wallpapers at end of stream",
			Args:      cobra.MatchAll(cobra.ExactArgs(1), cobra.OnlyValidArgs),
			ValidArgs: []string{"on", "off"},
			RunE: func(cmd *cobra.Command, args []string) error {
				looping := args[0] == "on"
				return run(func(ctx context.Context, c controller, _ io.Writer) error {
					return c.SetLooping(ctx, looping)
				})(cmd, args)
			},
		},
		&cobra.Command{
			Use:   "scale <center|stretch|tile>",
			Short: "Set how the wallpaper is fitted to the screen",
			Args:  cobra.ExactArgs(1),
			RunE: func(cmd *cobra.Command, args []string) error {
				mode, err := domain.ParseScaleMode(args[0])
				if err != nil {
					return err
				}
				return run(func(ctx context.Context, c controller, _ io.Writer) error {
					return c.SetScaleMode(ctx, string(mode))
				})(cmd, args)
			},
		},
		&cobra.Command{
			Use:   "show",
			Short: "Print the stored configuration",
			Args:  cobra.NoArgs,
			RunE: run(func(ctx context.Context, c controller, out io.Writer) error {
				cfg, err := c.Configuration(ctx)
				if err != nil {
					return err
				}
				media := cfg.MediaPath
				if media == "" {
					media = "(none)"
				}
				fmt.Fprintf(out, "media:   %s\n", media)
				if cfg.HasMedia() {
					fmt.Fprintf(out, "kind:    %s\n", cfg.Kind)
				}
				fmt.Fprintf(out, "opacity: %d%%\n", cfg.Opacity)
				fmt.Fprintf(out, "muted:   %t\n", cfg.Muted)
				fmt.Fprintf(out, "looping: %t\n", cfg.Looping)
				fmt.Fprintf(out, "scale:   %s\n", cfg.ScaleMode)
				return nil
			}),
		},
		&cobra.Command{
			Use:   "status",
			Short: "Print what the overlay is currently showing",
			Args:  cobra.NoArgs,
			RunE: run(func(ctx context.Context, c controller, out io.Writer) error {
				st, err := c.Status(ctx)
				if err != nil {
					return err
				}
				fmt.Fprintf(out, "phase:   %s\n", st.Phase)
				if st.Path != "" {
					fmt.Fprintf(out, "media:   %s (%s)\n", st.Path, st.Kind)
				}
				if st.Session != "" {
					fmt.Fprintf(out, "session: %s\n", st.Session)
				}
				return nil
			}),
		},
		&cobra.Command{
			Use:   "scan [dir...]",
			Short: "Count wallpapers in the given directories or the configured library",
			RunE: func(cmd *cobra.Command, args []string) error {
				dirs := make([]string, 0, len(args))
				for _, a := range args {
					abs, err := filepath.Abs(a)
					if err != nil {
						return err
					}
					dirs = append(dirs, abs)
				}
				return run(func(ctx context.Context, c controller, out io.Writer) error {
					n, err := c.Scan(ctx, dirs)
					if err != nil {
						return err
					}
					fmt.Fprintf(out, "%d wallpapers found\n", n)
					return nil
				})(cmd, args)
			},
		},
		&cobra.Command{
			Use:   "reset",
			Short: "Restore the default configuration",
			Args:  cobra.NoArgs,
			RunE: run(func(ctx context.Context, c controller, _ io.Writer) error {
				return c.Reset(ctx)
			}),
		},
		&cobra.Command{
			Use:   "thumbnail <file>",
			Short: "Print the path of a cached thumbnail, generating it if needed",
			Args:  cobra.ExactArgs(1),
			RunE: func(cmd *cobra.Command, args []string) error {
				path, err := filepath.Abs(args[0])
				if err != nil {
					return err
				}
				return run(func(ctx context.Context, c controller, out io.Writer) error {
					thumb, err := c.Thumbnail(ctx, path)
					if err != nil {
						return err
					}
					fmt.Fprintln(out, thumb)
					return nil
				})(cmd, args)
			},
		},
		&cobra.Command{
			Use:   "clear-thumbnails",
			Short: "Remove every cached thumbnail",
			Args:  cobra.NoArgs,
			RunE: run(func(ctx context.Context, c controller, out io.Writer) error {
				n, err := c.ClearThumbnails(ctx)
				if err != nil {
					return err
				}
				fmt.Fprintf(out, "%d thumbnails removed\n", n)
				return nil
			}),
		},
	)
	return root
}
