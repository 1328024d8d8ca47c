// submodule cmd contains command definitions
package main

import (
	"github.com/urfave/cli/v3"

	"github.com/desertthunder/tubetrack/internal/models"
)

// setupCommand initializes local state
func setupCommand(r *Runner) *cli.Command {
	return &cli.Command{
		Name:  "setup",
		Usage: "Initialize configuration and the on-device database",
		Commands: []*cli.Command{
			{
				Name:   "database",
				Usage:  "Create the on-device database and run migrations",
				Action: r.SetupDatabase,
			},
			{
				Name:  "config",
				Usage: "Write a config.toml from the built-in template",
				Flags: []cli.Flag{
					&cli.StringFlag{
						Name:    "output",
						Aliases: []string{"o"},
						Usage:   "Path of the file to create",
						Value:   "config.toml",
					},
				},
				Action: r.SetupConfig,
			},
		},
	}
}

// authCommand handles sign-in state
func authCommand(r *Runner) *cli.Command {
	return &cli.Command{
		Name:  "auth",
		Usage: "Sign in, sign out and inspect the current session",
		Commands: []*cli.Command{
			{
				Name:  "login",
				Usage: "Sign in and move playlists stored on this device to your account",
				Flags: []cli.Flag{
					&cli.BoolFlag{
						Name:  "google",
						Usage: "Sign in with Google in the browser",
					},
					&cli.StringFlag{
						Name:  "user",
						Usage: "User id to sign in as (development)",
					},
					&cli.StringFlag{
						Name:  "email",
						Usage: "Email of the --user identity",
					},
					&cli.StringFlag{
						Name:  "name",
						Usage: "Display name of the --user identity",
					},
				},
				Action: r.AuthLogin,
			},
			{
				Name:   "logout",
				Usage:  "Sign out and return to on-device storage",
				Action: r.AuthLogout,
			},
			{
				Name:   "status",
				Usage:  "Show who is signed in and where playlists are stored",
				Action: r.AuthStatus,
			},
		},
	}
}

// playlistCommand handles playlist tracking
func playlistCommand(r *Runner) *cli.Command {
	return &cli.Command{
		Name:    "playlist",
		Aliases: []string{"pl"},
		Usage:   "Track progress through playlists",
		Commands: []*cli.Command{
			{
				Name:  "add",
				Usage: "Import a YouTube playlist by URL or id",
				Arguments: []cli.Argument{
					&cli.StringArg{Name: "source"},
				},
				Flags: []cli.Flag{
					&cli.StringFlag{
						Name:  "name",
						Usage: "Override the playlist title",
					},
					&cli.StringFlag{
						Name:  "description",
						Usage: "Playlist description",
					},
					&cli.StringSliceFlag{
						Name:  "category",
						Usage: "Category (repeatable)",
					},
					&cli.StringFlag{
						Name:  "difficulty",
						Usage: "beginner, intermediate or advanced",
					},
				},
				Action: r.PlaylistAdd,
			},
			{
				Name:  "add-manual",
				Usage: "Create a playlist from hand-entered videos",
				Flags: []cli.Flag{
					&cli.StringFlag{
						Name:     "name",
						Usage:    "Playlist name",
						Required: true,
					},
					&cli.StringFlag{
						Name:  "description",
						Usage: "Playlist description",
					},
					&cli.StringSliceFlag{
						Name:  "video",
						Usage: `Video as "title|mm:ss|url" (repeatable)`,
					},
					&cli.StringSliceFlag{
						Name:  "category",
						Usage: "Category (repeatable)",
					},
				},
				Action: r.PlaylistAddManual,
			},
			{
				Name:    "list",
				Aliases: []string{"ls"},
				Usage:   "List playlists with progress",
				Flags: []cli.Flag{
					&cli.BoolFlag{
						Name:  "json",
						Usage: "Output raw JSON",
					},
					&cli.BoolFlag{
						Name:  "pretty",
						Usage: "Pretty-print output",
					},
				},
				Action: r.PlaylistList,
			},
			{
				Name:  "show",
				Usage: "Show a playlist's videos",
				Arguments: []cli.Argument{
					&cli.StringArg{Name: "id"},
				},
				Flags: []cli.Flag{
					&cli.BoolFlag{
						Name:  "json",
						Usage: "Output raw JSON",
					},
				},
				Action: r.PlaylistShow,
			},
			{
				Name:  "toggle",
				Usage: "Mark a video watched",
				Arguments: []cli.Argument{
					&cli.StringArg{Name: "playlist"},
					&cli.StringArg{Name: "video"},
				},
				Flags: []cli.Flag{
					&cli.BoolFlag{
						Name:  "undo",
						Usage: "Mark the video unwatched",
					},
				},
				Action: r.PlaylistToggle,
			},
			{
				Name:  "rename",
				Usage: "Rename a playlist",
				Arguments: []cli.Argument{
					&cli.StringArg{Name: "id"},
					&cli.StringArg{Name: "name"},
				},
				Action: r.PlaylistRename,
			},
			{
				Name:  "complete",
				Usage: "Mark every video of a playlist watched",
				Arguments: []cli.Argument{
					&cli.StringArg{Name: "id"},
				},
				Flags: []cli.Flag{
					&cli.BoolFlag{
						Name:  "undo",
						Usage: "Mark every video unwatched",
					},
				},
				Action: r.PlaylistComplete,
			},
			{
				Name:      "delete",
				Aliases:   []string{"rm"},
				Usage:     "Delete one or more playlists",
				ArgsUsage: "<id>...",
				Action:    r.PlaylistDelete,
			},
			{
				Name:  "export",
				Usage: "Export a playlist's progress",
				Arguments: []cli.Argument{
					&cli.StringArg{Name: "id"},
				},
				Flags: []cli.Flag{
					&cli.StringFlag{
						Name:    "format",
						Aliases: []string{"f"},
						Usage:   "csv, md or txt",
						Value:   "md",
					},
					&cli.StringFlag{
						Name:    "output",
						Aliases: []string{"o"},
						Usage:   "Output file path",
					},
				},
				Action: r.PlaylistExport,
			},
		},
	}
}

// statsCommand prints aggregate progress
func statsCommand(r *Runner) *cli.Command {
	return &cli.Command{
		Name:  "stats",
		Usage: "Show learning statistics across playlists",
		Flags: []cli.Flag{
			&cli.BoolFlag{
				Name:  "json",
				Usage: "Output raw JSON",
			},
			&cli.BoolFlag{
				Name:  "pretty",
				Usage: "Pretty-print output",
				Value: true,
			},
		},
		Action: r.Stats,
	}
}

// watchCommand streams collection snapshots
func watchCommand(r *Runner) *cli.Command {
	return &cli.Command{
		Name:   "watch",
		Usage:  "Print the playlist collection whenever it changes, until interrupted",
		Action: r.Watch,
	}
}

// migrateCommand inspects and drives the one-time migration
func migrateCommand(r *Runner) *cli.Command {
	return &cli.Command{
		Name:  "migrate",
		Usage: "Move playlists stored on this device to the signed-in account",
		Commands: []*cli.Command{
			{
				Name:   "status",
				Usage:  "Show the migration state of the signed-in user",
				Action: r.MigrateStatus,
			},
			{
				Name:   "run",
				Usage:  "Retry a migration that failed earlier",
				Action: r.MigrateRun,
			},
			{
				Name:   "recover",
				Usage:  "Finish a migration that was interrupted",
				Action: r.MigrateRecover,
			},
		},
	}
}

// profileCommand reads public profiles
func profileCommand(r *Runner) *cli.Command {
	return &cli.Command{
		Name:  "profile",
		Usage: "Show and find user profiles",
		Commands: []*cli.Command{
			{
				Name:  "show",
				Usage: "Show your profile, or another user's public profile",
				Flags: []cli.Flag{
					&cli.BoolFlag{Name: "json", Usage: "Output as JSON"},
				},
				Arguments: []cli.Argument{
					&cli.StringArg{Name: "username"},
				},
				Action: r.ProfileShow,
			},
			{
				Name:  "search",
				Usage: "Find public profiles by username prefix",
				Flags: []cli.Flag{
					&cli.IntFlag{
						Name:    "limit",
						Aliases: []string{"n"},
						Usage:   "Maximum number of results",
						Value:   10,
					},
				},
				Arguments: []cli.Argument{
					&cli.StringArg{Name: "prefix"},
				},
				Action: r.ProfileSearch,
			},
		},
	}
}

// friendsCommand manages friend requests
func friendsCommand(r *Runner) *cli.Command {
	return &cli.Command{
		Name:  "friends",
		Usage: "Manage friends and friend requests",
		Commands: []*cli.Command{
			{
				Name:    "list",
				Aliases: []string{"ls"},
				Usage:   "List your friends",
				Flags: []cli.Flag{
					&cli.BoolFlag{Name: "json", Usage: "Output as JSON"},
				},
				Action: r.FriendsList,
			},
			{
				Name:   "requests",
				Usage:  "List pending friend requests",
				Action: r.FriendsRequests,
			},
			{
				Name:      "add",
				Usage:     "Send a friend request",
				Arguments: []cli.Argument{&cli.StringArg{Name: "username"}},
				Action:    r.FriendsAdd,
			},
			{
				Name:      "accept",
				Usage:     "Accept a friend request",
				Arguments: []cli.Argument{&cli.StringArg{Name: "request"}},
				Action:    r.FriendsAccept,
			},
			{
				Name:      "decline",
				Aliases:   []string{"cancel"},
				Usage:     "Decline a request you received or cancel one you sent",
				Arguments: []cli.Argument{&cli.StringArg{Name: "request"}},
				Action:    r.FriendsDecline,
			},
			{
				Name:      "remove",
				Aliases:   []string{"rm"},
				Usage:     "Remove a friend",
				Arguments: []cli.Argument{&cli.StringArg{Name: "username"}},
				Action:    r.FriendsRemove,
			},
		},
	}
}

// goalsCommand manages learning goals
func goalsCommand(r *Runner) *cli.Command {
	goalFlags := func(required bool) []cli.Flag {
		return []cli.Flag{
			&cli.StringFlag{Name: "title", Usage: "Goal title", Required: required},
			&cli.StringFlag{Name: "description", Usage: "Goal description"},
			&cli.FloatFlag{Name: "target", Usage: "Target amount", Required: required},
			&cli.StringFlag{Name: "unit", Usage: "Unit shown next to the target"},
		}
	}
	return &cli.Command{
		Name:  "goals",
		Usage: "Manage learning goals",
		Commands: []*cli.Command{
			{
				Name:    "list",
				Aliases: []string{"ls"},
				Usage:   "List your goals",
				Flags: []cli.Flag{
					&cli.BoolFlag{Name: "json", Usage: "Output as JSON"},
				},
				Action: r.GoalsList,
			},
			{
				Name:  "add",
				Usage: "Create a goal",
				Flags: append(goalFlags(true), &cli.StringFlag{
					Name:  "type",
					Usage: "weekly_hours, monthly_playlists or daily_streak",
					Value: string(models.GoalWeeklyHours),
				}),
				Action: r.GoalsAdd,
			},
			{
				Name:      "update",
				Usage:     "Change a goal",
				Flags:     goalFlags(false),
				Arguments: []cli.Argument{&cli.StringArg{Name: "id"}},
				Action:    r.GoalsUpdate,
			},
			{
				Name:    "delete",
				Aliases: []string{"rm"},
				Usage:   "Delete goals",
				Action:  r.GoalsDelete,
			},
		},
	}
}
