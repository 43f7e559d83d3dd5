package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"

	"github.com/kikiluvv/threadshorts/internal/backgrounds"
	"github.com/kikiluvv/threadshorts/internal/config"
	"github.com/kikiluvv/threadshorts/internal/ffmpeg"
	"github.com/kikiluvv/threadshorts/internal/logging"
	"github.com/kikiluvv/threadshorts/internal/narration"
	"github.com/kikiluvv/threadshorts/internal/pipeline"
	"github.com/kikiluvv/threadshorts/pkg/util"
)

var (
	cfgFile   string
	verbose   bool
	logFormat string
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := rootCmd.ExecuteContext(ctx); err != nil {
		os.Exit(1)
	}
}

var rootCmd = &cobra.Command{
	Use:   "threadshorts",
	Short: "threadshorts - turn Reddit threads into narrated shorts",
	Long:  "Fetches popular Reddit threads, renders their posts as cards, narrates them and assembles vertical videos over gameplay backgrounds.",
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := config.Load(cfgFile)
		if err != nil {
			logging.Init(verbose, logFormat)
			return err
		}

		format := cfg.LogFormat
		if logFormat != "" {
			format = logFormat
		}
		logging.Init(verbose, format)

		cmd.SetContext(config.WithConfig(cmd.Context(), cfg))
		return nil
	},
	SilenceUsage: true,
}

func init() {
	rootCmd.PersistentFlags().StringVar(&cfgFile, "config", "", "config file (default: ./threadshorts.yaml)")
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "verbose output")
	rootCmd.PersistentFlags().StringVar(&logFormat, "log-format", "", "log format: console or json")

	rootCmd.AddCommand(runCmd)
	rootCmd.AddCommand(threadCmd)
	rootCmd.AddCommand(renderCmd)
	rootCmd.AddCommand(listCmd)
	rootCmd.AddCommand(configCmd)
	rootCmd.AddCommand(depsCmd)

	runCmd.Flags().IntP("count", "n", 0, "number of shorts to make (default from config)")
	runCmd.Flags().StringP("subreddit", "s", "", "subreddit to read (default from config)")
	threadCmd.Flags().Bool("upload", false, "upload the short and mark the thread processed")
	renderCmd.Flags().Bool("dry-run", false, "resolve the plan without encoding")
	configCmd.AddCommand(configShowCmd)
	configCmd.AddCommand(configInitCmd)
}

var runCmd = &cobra.Command{
	Use:   "run",
	Short: "Make shorts from the top threads of a subreddit",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg := config.FromContext(cmd.Context())
		if n, _ := cmd.Flags().GetInt("count"); n > 0 {
			cfg.Selection.Count = n
		}
		if sub, _ := cmd.Flags().GetString("subreddit"); sub != "" {
			cfg.Source.Subreddit = strings.TrimPrefix(sub, "r/")
		}

		pipe, err := pipeline.Build(cmd.Context(), log.Logger, cfg)
		if err != nil {
			return err
		}
		defer pipe.Close()

		report, err := pipe.Run(cmd.Context())
		if err != nil {
			return err
		}

		for _, u := range report.Uploaded {
			fmt.Printf("%s -> %s\n", u.Title, u.Location)
		}
		for _, f := range report.Failed {
			fmt.Printf("failed %s at %s: %v\n", f.Link, f.Stage, f.Err)
		}
		if len(report.Failed) > 0 && len(report.Uploaded) == 0 {
			return fmt.Errorf("%d threads failed", len(report.Failed))
		}
		return nil
	},
}

var threadCmd = &cobra.Command{
	Use:   "thread [url]",
	Short: "Make a short from a single thread",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg := config.FromContext(cmd.Context())

		pipe, err := pipeline.Build(cmd.Context(), log.Logger, cfg)
		if err != nil {
			return err
		}
		defer pipe.Close()

		short, err := pipe.MakeShort(cmd.Context(), args[0])
		if err != nil {
			return err
		}
		fmt.Println(short.Output)

		if up, _ := cmd.Flags().GetBool("upload"); up {
			published, err := pipe.Publish(cmd.Context(), short)
			if err != nil {
				return err
			}
			fmt.Println(published.Location)
		}
		return nil
	},
}

var renderCmd = &cobra.Command{
	Use:   "render [project file]",
	Short: "Render a short from a project file",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg := config.FromContext(cmd.Context())
		dryRun, _ := cmd.Flags().GetBool("dry-run")

		proj, err := pipeline.LoadProject(args[0])
		if err != nil {
			return err
		}

		exec, err := ffmpeg.New(log.Logger, ffmpeg.Options{
			FFmpegPath:  cfg.FFmpeg.BinaryPath,
			FFprobePath: cfg.FFmpeg.ProbePath,
			Threads:     cfg.FFmpeg.Threads,
		})
		if err != nil {
			return err
		}

		logger := logging.WithComponent("cli")
		logger.Info().Str("project", args[0]).Bool("dry_run", dryRun).Msg("rendering project")
		plan, err := pipeline.RenderProject(cmd.Context(), log.Logger, exec, cfg, proj, dryRun)
		if err != nil {
			return err
		}
		if plan == nil {
			return nil
		}

		fmt.Printf("total %s, background %s from %s\n",
			util.FormatDuration(plan.Timeline.Total), plan.Background.Path, util.FormatDuration(plan.Background.Range.Start))
		if plan.Music != nil {
			fmt.Printf("music %s from %s\n", plan.Music.Path, util.FormatDuration(plan.Music.Range.Start))
		}
		for _, v := range plan.Visuals {
			fmt.Printf("  %s  %s  %dx%d  %s\n",
				util.FormatDuration(v.Start), util.FormatDuration(v.Duration), v.Width, v.Height, v.Visual)
		}
		return nil
	},
}

var listCmd = &cobra.Command{
	Use:       "list [backgrounds|music|voices]",
	Short:     "List available resources",
	Args:      cobra.ExactArgs(1),
	ValidArgs: []string{"backgrounds", "music", "voices"},
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg := config.FromContext(cmd.Context())

		switch args[0] {
		case "backgrounds", "music":
			reg, err := backgrounds.Load(cfg.Backgrounds)
			if err != nil {
				return err
			}
			if args[0] == "music" {
				for _, m := range reg.Music() {
					fmt.Println(m)
				}
				return nil
			}
			for _, name := range reg.List() {
				path, _ := reg.Get(name)
				fmt.Printf("%-20s %s\n", name, path)
			}
		case "voices":
			voices := cfg.Narration.Voices
			switch cfg.Narration.Provider {
			case "elevenlabs":
				voices = cfg.Narration.ElevenLabs.Voices
				if len(voices) == 0 {
					voices = narration.ElevenLabsVoices
				}
			default:
				if len(voices) == 0 {
					voices = narration.OpenAIVoices
				}
			}
			for _, v := range voices {
				fmt.Println(v)
			}
		default:
			return fmt.Errorf("unknown resource %q", args[0])
		}
		return nil
	},
}

var configCmd = &cobra.Command{
	Use:   "config",
	Short: "Config management commands",
}

var configShowCmd = &cobra.Command{
	Use:   "show",
	Short: "Print the effective configuration",
	RunE: func(cmd *cobra.Command, args []string) error {
		data, err := yaml.Marshal(config.FromContext(cmd.Context()))
		if err != nil {
			return err
		}
		_, err = os.Stdout.Write(data)
		return err
	},
}

var configInitCmd = &cobra.Command{
	Use:   "init [path]",
	Short: "Write the default configuration",
	Args:  cobra.MaximumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		path := "threadshorts.yaml"
		if len(args) == 1 {
			path = args[0]
		}
		if util.FileExists(path) {
			return fmt.Errorf("%s already exists", path)
		}
		if err := config.Default().Save(path); err != nil {
			return err
		}
		logger := logging.WithComponent("cli")
		logger.Info().Str("path", path).Msg("wrote default config")
		return nil
	},
}
