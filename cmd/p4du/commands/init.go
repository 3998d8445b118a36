package commands

import (
	"fmt"
	"os"
	"strconv"

	"github.com/charmbracelet/huh"
	"github.com/spf13/cobra"

	"github.com/p4lang/p4c-sub009/internal/config"
	"github.com/p4lang/p4c-sub009/pkg/report"
)

// initCmd represents the init command
var initCmd = &cobra.Command{
	Use:   "init",
	Short: "Create a configuration file interactively",
	Long: `Guides you through setting up p4du configuration step by step.
Creates a config file with the report format, parallelism and dead-write
elimination settings.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		return runInit()
	},
}

func runInit() error {
	cfg := config.DefaultConfig()

	// === SECTION 1: Report ===
	format := cfg.Format
	options := make([]huh.Option[string], 0, len(report.Formats))
	for _, f := range report.Formats {
		options = append(options, huh.NewOption(string(f), string(f)))
	}
	form := huh.NewForm(
		huh.NewGroup(
			huh.NewSelect[string]().
				Title("Report Format").
				Description("Output format of the check command").
				Options(options...).
				Value(&format),
		),
	)
	if err := form.Run(); err != nil {
		return fmt.Errorf("interactive prompt failed: %w", err)
	}

	// === SECTION 2: Analysis ===
	parallelism := strconv.Itoa(cfg.Parallelism)
	eliminate := cfg.Eliminate
	werror := cfg.WarningsAsErrors
	form = huh.NewForm(
		huh.NewGroup(
			huh.NewInput().
				Title("Parallelism").
				Description("Number of units analyzed concurrently").
				Placeholder(parallelism).
				Validate(func(s string) error {
					if n, err := strconv.Atoi(s); err != nil || n <= 0 {
						return fmt.Errorf("must be a positive integer")
					}
					return nil
				}).
				Value(&parallelism),
			huh.NewConfirm().
				Title("Eliminate dead writes?").
				Affirmative("Yes").
				Negative("No").
				Value(&eliminate),
			huh.NewConfirm().
				Title("Report warnings as errors?").
				Affirmative("Yes").
				Negative("No").
				Value(&werror),
		),
	)
	if err := form.Run(); err != nil {
		return fmt.Errorf("interactive prompt failed: %w", err)
	}

	// === SECTION 3: Config Location ===
	var saveLocationChoice string
	form = huh.NewForm(
		huh.NewGroup(
			huh.NewSelect[string]().
				Title("Save Configuration").
				Description("Where to save the configuration file?").
				Options(
					huh.NewOption("Global (~/.p4du/config.yaml)", "global"),
					huh.NewOption("Project (./.p4du/config.yaml)", "project"),
				).
				Value(&saveLocationChoice),
		),
	)
	if err := form.Run(); err != nil {
		return fmt.Errorf("interactive prompt failed: %w", err)
	}

	configPath := config.ProjectConfigFilePath()
	if saveLocationChoice == "global" {
		configPath = config.GlobalConfigFilePath()
	}

	// Check if config already exists
	if _, err := os.Stat(configPath); err == nil {
		var overwrite bool
		form = huh.NewForm(
			huh.NewGroup(
				huh.NewConfirm().
					Title("Config file exists").
					Description(fmt.Sprintf("Overwrite existing config at %s?", configPath)).
					Affirmative("Overwrite").
					Negative("Cancel").
					Value(&overwrite),
			),
		)
		if err := form.Run(); err != nil {
			return fmt.Errorf("interactive prompt failed: %w", err)
		}
		if !overwrite {
			fmt.Println("Cancelled.")
			return nil
		}
	}

	// === Build config struct ===
	cfg.Format = format
	cfg.Parallelism, _ = strconv.Atoi(parallelism)
	cfg.Eliminate = eliminate
	cfg.WarningsAsErrors = werror

	if err := cfg.Validate(); err != nil {
		return fmt.Errorf("config validation failed: %w", err)
	}

	fmt.Println("\n=== Configuration Preview ===")
	fmt.Printf("Config path: %s\n", configPath)
	fmt.Printf("Format: %s\n", cfg.Format)
	fmt.Printf("Parallelism: %d\n", cfg.Parallelism)
	fmt.Printf("Eliminate: %v\n", cfg.Eliminate)
	fmt.Printf("Warnings as errors: %v\n", cfg.WarningsAsErrors)
	fmt.Println("================================")

	if err := cfg.Save(configPath); err != nil {
		return fmt.Errorf("saving config: %w", err)
	}
	fmt.Printf("Configuration saved to: %s\n", configPath)
	return nil
}
