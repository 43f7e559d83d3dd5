package main

import (
	"fmt"
	"os/exec"

	"github.com/charmbracelet/lipgloss"
	"github.com/spf13/cobra"

	"github.com/kikiluvv/threadshorts/internal/backgrounds"
	"github.com/kikiluvv/threadshorts/internal/config"
)

type check struct {
	name   string
	detail string
	ok     bool
}

var depsCmd = &cobra.Command{
	Use:   "deps",
	Short: "Check for required tools, credentials and assets",
	Run: func(cmd *cobra.Command, args []string) {
		cfg := config.FromContext(cmd.Context())

		green := lipgloss.NewStyle().Foreground(lipgloss.Color("#4CAF50"))
		red := lipgloss.NewStyle().Foreground(lipgloss.Color("#E95420"))
		gray := lipgloss.NewStyle().Foreground(lipgloss.Color("#9A9EA0"))
		bold := lipgloss.NewStyle().Bold(true)

		required, optional := collectChecks(cfg)

		fmt.Println()
		fmt.Println(bold.Render("Required:"))
		allOk := true
		for _, c := range required {
			status := green.Render("✓")
			if !c.ok {
				status = red.Render("✗")
				allOk = false
			}
			fmt.Printf("  %s %s\n    %s\n", status, bold.Render(c.name), gray.Render(c.detail))
		}

		fmt.Println()
		fmt.Println(bold.Render("Optional:"))
		for _, c := range optional {
			status := green.Render("✓")
			if !c.ok {
				status = gray.Render("○")
			}
			fmt.Printf("  %s %s\n    %s\n", status, bold.Render(c.name), gray.Render(c.detail))
		}

		fmt.Println()
		if allOk {
			fmt.Println(green.Render("Ready to make shorts."))
		} else {
			fmt.Println(red.Render("Some requirements are missing."))
		}
		fmt.Println()
	},
}

func binaryCheck(name string) check {
	path, err := exec.LookPath(name)
	if err != nil {
		return check{name: name, detail: "not found in PATH"}
	}
	return check{name: name, detail: path, ok: true}
}

func collectChecks(cfg *config.Config) (required, optional []check) {
	required = append(required, binaryCheck(cfg.FFmpeg.BinaryPath), binaryCheck(cfg.FFmpeg.ProbePath))

	switch cfg.Narration.Provider {
	case "elevenlabs":
		required = append(required, check{name: "ELEVENLABS_API_KEY", detail: "elevenlabs narration", ok: cfg.Narration.ElevenLabs.APIKey != ""})
	default:
		required = append(required, check{name: "OPENAI_API_KEY", detail: "openai narration", ok: cfg.Narration.OpenAIKey != ""})
	}

	bg := check{name: "backgrounds", detail: cfg.Backgrounds.VideoDir}
	music := check{name: "music", detail: cfg.Backgrounds.MusicDir}
	if reg, err := backgrounds.Load(cfg.Backgrounds); err == nil {
		bg.ok = len(reg.List()) > 0
		bg.detail = fmt.Sprintf("%d in %s", len(reg.List()), cfg.Backgrounds.VideoDir)
		music.ok = len(reg.Music()) > 0
		music.detail = fmt.Sprintf("%d in %s", len(reg.Music()), cfg.Backgrounds.MusicDir)
	}
	required = append(required, bg)

	optional = append(optional,
		music,
		check{name: "REDDIT_CLIENT_ID", detail: "authenticated reddit api, public json otherwise", ok: cfg.Source.ClientID != "" && cfg.Source.ClientSecret != ""},
	)
	if cfg.Selection.UseLLM {
		optional = append(optional, check{name: "llm selection", detail: cfg.Selection.Model, ok: cfg.Narration.OpenAIKey != ""})
	}
	return required, optional
}
