package main

import (
	"encoding/json"
	"fmt"
	"os"
	"strings"

	"github.com/spf13/cobra"

	"github.com/prepstage/prepstage/internal/config"
	"github.com/prepstage/prepstage/internal/jobdesc"
)

// --- interview ---

var interviewCmd = &cobra.Command{
	Use:   "interview",
	Short: "Manage mock interviews",
}

var interviewCreateCmd = &cobra.Command{
	Use:   "create",
	Short: "Create an interview with generated questions",
	Long: `Create an interview with generated questions.

Examples:
  prepstage interview create --position "Backend Engineer" --stack "Go, Postgres" --experience 5
  prepstage interview create --position "SRE" --from-url https://example.com/job --sections Technical,Behavioral
  prepstage interview create --position "Data Engineer" --from-pdf ./job.pdf`,
	RunE: func(cmd *cobra.Command, args []string) error {
		position, _ := cmd.Flags().GetString("position")
		description, _ := cmd.Flags().GetString("description")
		fromPDF, _ := cmd.Flags().GetString("from-pdf")
		fromURL, _ := cmd.Flags().GetString("from-url")
		experience, _ := cmd.Flags().GetInt("experience")
		stack, _ := cmd.Flags().GetString("stack")
		sectionsStr, _ := cmd.Flags().GetString("sections")

		if position == "" {
			return fmt.Errorf("--position is required")
		}
		if description != "" && (fromPDF != "" || fromURL != "") {
			return fmt.Errorf("--description cannot be combined with --from-pdf or --from-url")
		}

		if fromPDF != "" {
			text, err := jobdesc.FromPDF(fromPDF)
			if err != nil {
				return fmt.Errorf("extracting job description: %w", err)
			}
			description = text
		}

		var sections []string
		if sectionsStr != "" {
			sections = strings.Split(sectionsStr, ",")
			for i := range sections {
				sections[i] = strings.TrimSpace(sections[i])
			}
		}

		req := map[string]any{
			"position":        position,
			"description":     description,
			"experienceYears": experience,
			"techStack":       stack,
		}
		if fromURL != "" {
			req["descriptionUrl"] = fromURL
		}
		if sections != nil {
			req["sections"] = sections
		}

		client, err := newAPIClient()
		if err != nil {
			return err
		}

		printStep("Generating interview questions...")
		resp, err := client.post(cmd.Context(), "/interviews", req)
		if err != nil {
			return err
		}

		var created struct {
			ID       string `json:"id"`
			Sections []struct {
				Type      string            `json:"type"`
				Questions []json.RawMessage `json:"questions"`
			} `json:"sections"`
		}
		if err := decodeJSON(resp, &created); err != nil {
			return err
		}

		total := 0
		for _, s := range created.Sections {
			total += len(s.Questions)
		}
		printSuccess("Created interview %s (%d questions)", created.ID, total)
		return nil
	},
}

var interviewListCmd = &cobra.Command{
	Use:   "list",
	Short: "List interviews with answer progress",
	RunE: func(cmd *cobra.Command, args []string) error {
		client, err := newAPIClient()
		if err != nil {
			return err
		}

		resp, err := client.get(cmd.Context(), "/interviews")
		if err != nil {
			return err
		}

		var entries []struct {
			Interview struct {
				ID        string `json:"id"`
				Position  string `json:"position"`
				CreatedAt string `json:"createdAt"`
			} `json:"interview"`
			Answered    int  `json:"answered"`
			Total       int  `json:"total"`
			AllAnswered bool `json:"allAnswered"`
		}
		if err := decodeJSON(resp, &entries); err != nil {
			return err
		}

		if len(entries) == 0 {
			fmt.Println("No interviews found.")
			return nil
		}

		for _, e := range entries {
			progress := fmt.Sprintf("%d/%d", e.Answered, e.Total)
			if e.AllAnswered {
				progress = colorize(colorGreen, progress+" ✓")
			}
			fmt.Printf("%s  %-30s  %s\n",
				colorize(colorCyan, e.Interview.ID[:8]),
				e.Interview.Position,
				progress,
			)
		}
		return nil
	},
}

var interviewShowCmd = &cobra.Command{
	Use:   "show <id>",
	Short: "Show a single interview as JSON",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		client, err := newAPIClient()
		if err != nil {
			return err
		}

		resp, err := client.get(cmd.Context(), "/interviews/"+args[0])
		if err != nil {
			return err
		}

		var iv any
		if err := decodeJSON(resp, &iv); err != nil {
			return err
		}

		enc := json.NewEncoder(os.Stdout)
		enc.SetIndent("", "  ")
		return enc.Encode(iv)
	},
}

var interviewDeleteCmd = &cobra.Command{
	Use:   "delete <id>",
	Short: "Delete an interview and its answers",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		client, err := newAPIClient()
		if err != nil {
			return err
		}

		resp, err := client.delete(cmd.Context(), "/interviews/"+args[0])
		if err != nil {
			return err
		}

		var result map[string]string
		if err := decodeJSON(resp, &result); err != nil {
			return err
		}

		printSuccess("Deleted interview %s", args[0])
		return nil
	},
}

func init() {
	interviewCreateCmd.Flags().String("position", "", "job position title (required)")
	interviewCreateCmd.Flags().String("description", "", "job description text")
	interviewCreateCmd.Flags().String("from-pdf", "", "extract the job description from a PDF file")
	interviewCreateCmd.Flags().String("from-url", "", "fetch the job description from a URL")
	interviewCreateCmd.Flags().Int("experience", 0, "years of experience")
	interviewCreateCmd.Flags().String("stack", "", "tech stack, free-form")
	interviewCreateCmd.Flags().String("sections", "", "comma-separated sections (Technical, HR, Behavioral, SoftSkills)")

	interviewCmd.AddCommand(interviewCreateCmd)
	interviewCmd.AddCommand(interviewListCmd)
	interviewCmd.AddCommand(interviewShowCmd)
	interviewCmd.AddCommand(interviewDeleteCmd)
}

// --- report ---

var reportCmd = &cobra.Command{
	Use:     "report <interview-id>",
	Aliases: []string{"feedback"},
	Short:   "Show the feedback report for an interview",
	Args:    cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		client, err := newAPIClient()
		if err != nil {
			return err
		}

		resp, err := client.get(cmd.Context(), "/interviews/"+args[0]+"/report")
		if err != nil {
			return err
		}

		var rep struct {
			Interview struct {
				Position string `json:"position"`
			} `json:"interview"`
			OverallRating string `json:"overallRating"`
			Sections      []struct {
				Type    string `json:"type"`
				Answers []struct {
					Question   string `json:"question"`
					UserAnswer string `json:"userAnswer"`
					Rating     int    `json:"rating"`
					Feedback   string `json:"feedback"`
				} `json:"answers"`
				Suspicious bool `json:"suspicious"`
			} `json:"sections"`
		}
		if err := decodeJSON(resp, &rep); err != nil {
			return err
		}

		fmt.Printf("%s\n", colorize(colorBold, rep.Interview.Position))
		fmt.Printf("Overall rating: %s\n", colorize(colorBold, rep.OverallRating))

		for _, s := range rep.Sections {
			fmt.Printf("\n%s", colorize(colorBold, s.Type))
			if s.Suspicious {
				fmt.Printf("  %s", colorize(colorYellow, "⚠ proctoring flagged"))
			}
			fmt.Println()
			if len(s.Answers) == 0 {
				fmt.Println("  (no answers)")
				continue
			}
			for _, a := range s.Answers {
				fmt.Printf("  [%d/10] %s\n", a.Rating, a.Question)
				if a.Feedback != "" {
					fmt.Printf("         %s\n", a.Feedback)
				}
			}
		}
		return nil
	},
}

// --- config ---

var configCmd = &cobra.Command{
	Use:   "config",
	Short: "Show or update configuration",
}

var configShowCmd = &cobra.Command{
	Use:   "show",
	Short: "Show current configuration",
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := config.Load()
		if err != nil {
			return err
		}

		keys := config.ShowAll(cfg)
		for _, k := range keys {
			fmt.Printf("  %s = %s\n", colorize(colorBold, k.Key), k.Value)
		}
		return nil
	},
}

var configSetCmd = &cobra.Command{
	Use:   "set <key> <value>",
	Short: "Set a configuration value",
	Args:  cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		key, value := args[0], args[1]

		if err := config.SetKey(key, value); err != nil {
			return fmt.Errorf("%w (valid keys: %s)", err, strings.Join(config.ValidKeys(), ", "))
		}

		printSuccess("Set %s = %s", key, value)
		return nil
	},
}

var configUnsetCmd = &cobra.Command{
	Use:   "unset <key>",
	Short: "Remove a configuration value",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		if err := config.UnsetKey(args[0]); err != nil {
			return err
		}

		printSuccess("Unset %s", args[0])
		return nil
	},
}

func init() {
	configCmd.AddCommand(configShowCmd)
	configCmd.AddCommand(configSetCmd)
	configCmd.AddCommand(configUnsetCmd)
}
