// Command moodctl is a terminal front end over the same packages the web
// server uses: catalog search, mood recommendations, the stored mood and its
// journal, language preferences and the feature-request board.
package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"strings"
	"time"

	"github.com/charmbracelet/huh/spinner"
	log "github.com/sirupsen/logrus"
	"github.com/urfave/cli/v2"

	"Mood-Music-Go/pkg/analysis"
	"Mood-Music-Go/pkg/capture"
	"Mood-Music-Go/pkg/catalog"
	"Mood-Music-Go/pkg/config"
	"Mood-Music-Go/pkg/db"
	"Mood-Music-Go/pkg/feedback"
	"Mood-Music-Go/pkg/history"
	"Mood-Music-Go/pkg/mood"
	"Mood-Music-Go/pkg/music"
	"Mood-Music-Go/pkg/prefs"
)

// localUser owns the rows moodctl writes, matching the web server's
// signed-out user.
const localUser = "local"

func main() {
	if err := newApp().Run(os.Args); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

// env is built once per invocation from the configuration.
type env struct {
	cfg *config.Config
	db  *db.DB
	hc  *http.Client
}

func openEnv() (*env, error) {
	cfg := config.Load()
	cfg.ConfigureLogging()
	database, err := db.New(cfg.DatabasePath)
	if err != nil {
		return nil, fmt.Errorf("open database: %w", err)
	}
	return &env{cfg: cfg, db: database, hc: &http.Client{Timeout: 30 * time.Second}}, nil
}

// withEnv opens the environment for an action and closes it afterwards.
func withEnv(fn func(c *cli.Context, e *env) error) cli.ActionFunc {
	return func(c *cli.Context) error {
		e, err := openEnv()
		if err != nil {
			return err
		}
		defer e.db.Close()
		return fn(c, e)
	}
}

func (e *env) detector() *mood.Detector {
	gate := mood.NewGate(e.db, e.cfg.MoodCooldown)
	devices := capture.New(e.cfg.FFmpegPath, e.cfg.CameraDevice, e.cfg.MicDevice, e.cfg.CaptureSampleRate)
	devices.Settle = e.cfg.CaptureSettle
	return mood.NewDetector(e.db, gate, devices, analysis.New(e.cfg.APIBaseURL, e.hc),
		mood.WithTimings(e.cfg.CaptureSettle, e.cfg.CaptureRecord),
		mood.WithSampleRate(e.cfg.CaptureSampleRate),
		mood.WithJournal(history.MoodJournal{DB: e.db, UserID: localUser}),
	)
}

// wait runs fn behind a spinner.
func wait(ctx context.Context, title string, fn func(ctx context.Context) error) error {
	return spinner.New().Title(title).Context(ctx).ActionWithErr(fn).Run()
}

func newApp() *cli.App {
	limitFlag := func() cli.Flag {
		return &cli.IntFlag{Name: "limit", Aliases: []string{"n"}, Value: 10, Usage: "maximum number of tracks"}
	}
	return &cli.App{
		Name:  "moodctl",
		Usage: "search music, get mood recommendations and manage the stored mood",
		Commands: []*cli.Command{
			{
				Name:      "search",
				Usage:     "search the catalog",
				ArgsUsage: "<query>",
				Flags:     []cli.Flag{limitFlag()},
				Action: withEnv(func(c *cli.Context, e *env) error {
					if c.NArg() == 0 {
						return cli.Exit("a search query is required", 2)
					}
					svc := catalog.NewChain(c.Context, e.cfg, e.db, e.hc)
					var tracks []music.Track
					err := wait(c.Context, "Searching...", func(ctx context.Context) error {
						var err error
						tracks, err = svc.SearchTrack(ctx, c.Args().First(), c.Int("limit"))
						return err
					})
					if err != nil {
						return err
					}
					printTracks(c, tracks)
					return nil
				}),
			},
			{
				Name:  "recommend",
				Usage: "recommend tracks for a mood (defaults to the stored mood)",
				Flags: []cli.Flag{
					&cli.StringFlag{Name: "mood", Aliases: []string{"m"}},
					&cli.StringFlag{Name: "language", Aliases: []string{"l"}},
					&cli.BoolFlag{Name: "general", Usage: "ignore mood and ask the companion server for general picks"},
					limitFlag(),
				},
				Action: withEnv(func(c *cli.Context, e *env) error {
					if c.Bool("general") {
						var tracks []music.Track
						err := wait(c.Context, "Finding music...", func(ctx context.Context) error {
							var err error
							tracks, err = catalog.New(e.cfg.APIBaseURL, e.hc).General(ctx, c.Int("limit"))
							return err
						})
						if err != nil {
							return err
						}
						printTracks(c, tracks)
						return nil
					}
					m := mood.Happy
					if label := c.String("mood"); label != "" {
						parsed, err := mood.Parse(label)
						if err != nil {
							return cli.Exit(err, 2)
						}
						m = parsed
					} else if det, ok := e.detector().Current(c.Context); ok {
						m = det.Mood
					}
					language := c.String("language")
					if language == "" {
						language = prefs.New(e.db).RecommendationLanguage(c.Context)
					}
					svc := catalog.NewChain(c.Context, e.cfg, e.db, e.hc)
					var tracks []music.Track
					err := wait(c.Context, fmt.Sprintf("Finding %s music...", m), func(ctx context.Context) error {
						var err error
						tracks, err = svc.MoodRecommendations(ctx, string(m), language, c.Int("limit"))
						return err
					})
					if err != nil {
						return err
					}
					printTracks(c, tracks)
					return nil
				}),
			},
			{
				Name:  "mood",
				Usage: "show, set or detect the current mood",
				Subcommands: []*cli.Command{
					{
						Name:  "show",
						Usage: "print the stored mood",
						Action: withEnv(func(c *cli.Context, e *env) error {
							d := e.detector()
							det, ok := d.Current(c.Context)
							if !ok {
								fmt.Fprintln(c.App.Writer, "no mood stored")
							} else {
								fmt.Fprintf(c.App.Writer, "%s (%.0f%%, %s, %s)\n", det.Mood, det.Confidence*100, det.Source, det.Timestamp.Local().Format(time.DateTime))
							}
							if left := d.CooldownRemaining(c.Context); left > 0 {
								fmt.Fprintf(c.App.Writer, "auto detection available in %s\n", left.Round(time.Second))
							}
							return nil
						}),
					},
					{
						Name:      "set",
						Usage:     "store a mood manually",
						ArgsUsage: "<mood>",
						Action: withEnv(func(c *cli.Context, e *env) error {
							m, err := mood.Parse(c.Args().First())
							if err != nil {
								return cli.Exit(err, 2)
							}
							det, err := e.detector().SetManual(c.Context, m)
							if err != nil {
								return err
							}
							fmt.Fprintf(c.App.Writer, "mood set to %s\n", det.Mood)
							return nil
						}),
					},
					{
						Name:  "detect",
						Usage: "capture from camera and microphone and analyse the mood",
						Action: withEnv(func(c *cli.Context, e *env) error {
							var det mood.Detection
							err := wait(c.Context, "Listening and looking...", func(ctx context.Context) error {
								var err error
								det, err = e.detector().Detect(ctx)
								return err
							})
							if err != nil {
								return err
							}
							fmt.Fprintf(c.App.Writer, "%s (%.0f%%)\n", det.Mood, det.Confidence*100)
							return nil
						}),
					},
					{
						Name:  "history",
						Usage: "list recorded moods, newest first",
						Flags: []cli.Flag{
							&cli.IntFlag{Name: "limit", Aliases: []string{"n"}, Value: 20},
							&cli.IntFlag{Name: "days", Usage: "also print a summary of the last N days"},
						},
						Action: withEnv(func(c *cli.Context, e *env) error {
							entries, total, err := e.db.MoodHistory(c.Context, localUser, c.Int("limit"), 0)
							if err != nil {
								return err
							}
							for _, m := range entries {
								fmt.Fprintf(c.App.Writer, "%s  %-10s %3.0f%%  %s\n", m.CreatedAt.Local().Format(time.DateTime), m.Mood, m.Confidence*100, m.Source)
							}
							fmt.Fprintf(c.App.Writer, "%d of %d shown\n", len(entries), total)
							if days := c.Int("days"); days > 0 {
								st, err := e.db.MoodStatsSince(c.Context, localUser, time.Now().AddDate(0, 0, -days))
								if err != nil {
									return err
								}
								for _, m := range mood.All {
									if n := st.Distribution[string(m)]; n > 0 {
										fmt.Fprintf(c.App.Writer, "%-10s %d (avg %.0f%%)\n", m, n, st.AverageConfidence[string(m)]*100)
									}
								}
							}
							return nil
						}),
					},
				},
			},
			{
				Name:      "languages",
				Usage:     "show or set language priorities for recommendations",
				ArgsUsage: "[language...]",
				Action: withEnv(func(c *cli.Context, e *env) error {
					p := prefs.New(e.db)
					var (
						langs []string
						err   error
					)
					if c.NArg() == 0 {
						langs, err = p.Languages(c.Context)
					} else {
						langs, err = p.SetLanguages(c.Context, c.Args().Slice())
						if errors.Is(err, prefs.ErrInvalid) {
							return cli.Exit(fmt.Sprintf("between 1 and %d languages are required", prefs.MaxLanguages), 2)
						}
					}
					if err != nil {
						return err
					}
					fmt.Fprintln(c.App.Writer, strings.Join(langs, ", "))
					return nil
				}),
			},
			{
				Name:  "feedback",
				Usage: "list, submit and vote on feature requests",
				Subcommands: []*cli.Command{
					{
						Name:  "list",
						Usage: "list feature requests, most voted first",
						Action: withEnv(func(c *cli.Context, e *env) error {
							reqs, err := feedback.NewBoard(e.db).List(c.Context)
							if err != nil {
								return err
							}
							for _, r := range reqs {
								mark := " "
								if r.Voted {
									mark = "*"
								}
								fmt.Fprintf(c.App.Writer, "%s %3d  %-12s %s  [%s]\n", mark, r.Votes, r.Category, r.Title, r.ID)
							}
							return nil
						}),
					},
					{
						Name:      "add",
						Usage:     "submit a feature request",
						ArgsUsage: "<title>",
						Flags: []cli.Flag{
							&cli.StringFlag{Name: "description", Aliases: []string{"d"}},
							&cli.StringFlag{Name: "category", Aliases: []string{"c"}, Value: "feature"},
						},
						Action: withEnv(func(c *cli.Context, e *env) error {
							r, err := feedback.NewBoard(e.db).Add(c.Context, c.Args().First(), c.String("description"), c.String("category"))
							if err != nil {
								return cli.Exit(err, 2)
							}
							fmt.Fprintln(c.App.Writer, r.ID)
							return nil
						}),
					},
					{
						Name:      "vote",
						Usage:     "toggle your vote on a feature request",
						ArgsUsage: "<id>",
						Action: withEnv(func(c *cli.Context, e *env) error {
							r, err := feedback.NewBoard(e.db).ToggleVote(c.Context, c.Args().First())
							if err != nil {
								return err
							}
							fmt.Fprintf(c.App.Writer, "%s: %d votes\n", r.Title, r.Votes)
							return nil
						}),
					},
				},
			},
		},
	}
}

func printTracks(c *cli.Context, tracks []music.Track) {
	for i, t := range tracks {
		fmt.Fprintf(c.App.Writer, "%2d. %s - %s (%s)\n", i+1, t.Title, t.Artist, formatDuration(t.Duration))
	}
	log.WithField("count", len(tracks)).Debug("printed tracks")
}

func formatDuration(seconds float64) string {
	s := int(seconds + 0.5)
	return fmt.Sprintf("%d:%02d", s/60, s%60)
}
