package main

import (
	"bufio"
	"context"
	"fmt"
	"os"
	"strings"
	"time"

	"notes-go/internal/app"
	"notes-go/internal/config"
	"notes-go/internal/model"

	"github.com/spf13/cobra"
	"golang.org/x/term"
)

func main() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

// newApp reads the config and creates a NotesApp. The caller must close it
// with closeApp so that unsaved changes are reported.
// operation identifies the CLI command being run (e.g. "add", "list").
func newApp(ctx context.Context, operation string) (*app.NotesApp, error) {
	defaults, err := app.GetDefaults()
	if err != nil {
		return nil, fmt.Errorf("getting defaults: %w", err)
	}

	cfg, err := config.ReadFromFile(defaults["config_path"])
	if err != nil {
		return nil, fmt.Errorf("reading config: %w", err)
	}

	a, err := app.NewNotesApp(ctx, cfg, operation, app.Options{
		Passphrase: func() (string, error) { return readPassphrase("Passphrase: ") },
	})
	if err != nil {
		return nil, fmt.Errorf("initializing app: %w", err)
	}

	return a, nil
}

// closeApp marks the operation failed if the command returned an error,
// then closes a and folds its warnings into *errp.
func closeApp(a *app.NotesApp, errp *error) {
	if *errp != nil {
		a.Operation().Fail()
	}
	if err := a.Close(); err != nil && *errp == nil {
		*errp = err
	}
}

// readPassphrase takes the passphrase from NOTES_PASSPHRASE or prompts on the terminal.
func readPassphrase(prompt string) (string, error) {
	if p := os.Getenv("NOTES_PASSPHRASE"); p != "" {
		return p, nil
	}

	fd := int(os.Stdin.Fd())
	if !term.IsTerminal(fd) {
		return "", fmt.Errorf("no terminal to read passphrase from (set NOTES_PASSPHRASE)")
	}

	fmt.Fprint(os.Stderr, prompt)
	b, err := term.ReadPassword(fd)
	fmt.Fprintln(os.Stderr)
	if err != nil {
		return "", err
	}
	return string(b), nil
}

// confirm asks a yes/no question on stdin. Anything but y/yes is a no.
func confirm(question string) bool {
	fmt.Printf("%s [y/N] ", question)
	line, err := bufio.NewReader(os.Stdin).ReadString('\n')
	if err != nil {
		return false
	}
	answer := strings.ToLower(strings.TrimSpace(line))
	return answer == "y" || answer == "yes"
}

// formatTime renders a timestamp for display in local time.
func formatTime(t time.Time) string {
	return t.Local().Format("Jan 2, 2006 3:04 PM")
}

var rootCmd = &cobra.Command{
	Use:          "notes",
	Short:        "Personal note-taking tool",
	SilenceUsage: true,
}

// config command
var configCmd = &cobra.Command{
	Use:   "config",
	Short: "Manage configuration",
}

var configInitCmd = &cobra.Command{
	Use:   "init",
	Short: "Initialize configuration",
	RunE: func(cmd *cobra.Command, args []string) error {
		defaults, err := app.GetDefaults()
		if err != nil {
			return fmt.Errorf("failed to get defaults: %w", err)
		}

		cfg := config.NewConfig(defaults["base_dir"])

		if err := config.Init(defaults["config_path"], cfg); err != nil {
			return fmt.Errorf("failed to initialize config: %w", err)
		}

		fmt.Printf("Configuration initialized at %s\n", defaults["config_path"])
		fmt.Printf("Base Dir: %s\n", defaults["base_dir"])
		return nil
	},
}

var configListCmd = &cobra.Command{
	Use:   "list",
	Short: "View configuration",
	RunE: func(cmd *cobra.Command, args []string) error {
		defaults, err := app.GetDefaults()
		if err != nil {
			return fmt.Errorf("failed to get defaults: %w", err)
		}

		cfg, err := config.ReadFromFile(defaults["config_path"])
		if err != nil {
			return fmt.Errorf("failed to read config: %w", err)
		}

		fmt.Printf("Configuration from %s:\n\n", defaults["config_path"])
		fmt.Printf("Base Dir:   %s\n", cfg.BaseDir)
		fmt.Printf("Log Dir:    %s\n", cfg.LogDir)
		fmt.Printf("Storage:    %s (%s, key %q)\n", cfg.Storage.Type, cfg.Storage.Format, cfg.Storage.Key)
		switch cfg.Storage.Type {
		case "filesystem":
			fmt.Printf("  Root:     %s\n", cfg.Storage.FSRoot)
		case "sqlite":
			fmt.Printf("  Path:     %s\n", cfg.Storage.SQLitePath)
		case "s3":
			fmt.Printf("  Bucket:   s3://%s/%s\n", cfg.Storage.S3Bucket, cfg.Storage.S3Prefix)
		}
		fmt.Printf("Encrypted:  %t\n", cfg.Encryption.Enabled)
		return nil
	},
}

var configKeyCmd = &cobra.Command{
	Use:   "key",
	Short: "Manage encryption keys",
}

var configKeyInitCmd = &cobra.Command{
	Use:   "init",
	Short: "Generate keys and encrypt stored notes",
	RunE: func(cmd *cobra.Command, args []string) error {
		defaults, err := app.GetDefaults()
		if err != nil {
			return fmt.Errorf("failed to get defaults: %w", err)
		}

		cfg, err := config.ReadFromFile(defaults["config_path"])
		if err != nil {
			return fmt.Errorf("failed to read config: %w", err)
		}

		passphrase, err := readPassphrase("New passphrase: ")
		if err != nil {
			return err
		}
		if os.Getenv("NOTES_PASSPHRASE") == "" {
			again, err := readPassphrase("Repeat passphrase: ")
			if err != nil {
				return err
			}
			if again != passphrase {
				return fmt.Errorf("passphrases do not match")
			}
		}

		if err := app.EnableEncryption(cmd.Context(), cfg, defaults["config_path"], passphrase); err != nil {
			return fmt.Errorf("enabling encryption: %w", err)
		}

		fmt.Printf("Encryption enabled. Keys written to %s and %s\n",
			cfg.Encryption.PublicKeyPath, cfg.Encryption.PrivateKeyPath)
		return nil
	},
}

// add command
var addCmd = &cobra.Command{
	Use:   "add",
	Short: "Create a note",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) (err error) {
		a, err := newApp(cmd.Context(), "add")
		if err != nil {
			return err
		}
		defer closeApp(a, &err)

		n, err := a.AddNote(patchFromFlags(cmd))
		if err != nil {
			return err
		}

		fmt.Printf("Created note %s (%s)\n", n.ID, n.Title)
		return nil
	},
}

// edit command
var editCmd = &cobra.Command{
	Use:   "edit ID",
	Short: "Change fields of a note",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) (err error) {
		a, err := newApp(cmd.Context(), "edit")
		if err != nil {
			return err
		}
		defer closeApp(a, &err)

		n, err := a.UpdateNote(args[0], patchFromFlags(cmd))
		if err != nil {
			return err
		}

		fmt.Printf("Updated note %s (%s)\n", n.ID, n.Title)
		return nil
	},
}

// patchFromFlags builds a NotePatch from the flags the user actually set.
func patchFromFlags(cmd *cobra.Command) model.NotePatch {
	var p model.NotePatch
	flags := cmd.Flags()

	if flags.Changed("title") {
		v, _ := flags.GetString("title")
		p.Title = &v
	}
	if flags.Changed("content") {
		v, _ := flags.GetString("content")
		p.Content = &v
	}
	if flags.Changed("category") {
		v, _ := flags.GetString("category")
		p.Category = &v
	}
	if flags.Changed("tag") {
		v, _ := flags.GetStringArray("tag")
		p.Tags = &v
	}
	if clearTags, _ := flags.GetBool("clear-tags"); clearTags {
		empty := []string{}
		p.Tags = &empty
	}
	return p
}

// rm command
var rmCmd = &cobra.Command{
	Use:   "rm ID",
	Short: "Delete a note permanently",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) (err error) {
		yes, _ := cmd.Flags().GetBool("yes")

		a, err := newApp(cmd.Context(), "rm")
		if err != nil {
			return err
		}
		defer closeApp(a, &err)

		n, err := a.GetNote(args[0])
		if err != nil {
			return err
		}

		if !yes && !confirm(fmt.Sprintf("Delete note %q?", n.Title)) {
			fmt.Println("Aborted.")
			return nil
		}

		if err := a.DeleteNote(n.ID); err != nil {
			return err
		}

		fmt.Printf("Deleted note %s\n", n.ID)
		return nil
	},
}

// show command
var showCmd = &cobra.Command{
	Use:   "show ID",
	Short: "Display a note",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) (err error) {
		a, err := newApp(cmd.Context(), "show")
		if err != nil {
			return err
		}
		defer closeApp(a, &err)

		n, err := a.GetNote(args[0])
		if err != nil {
			return err
		}

		fmt.Printf("%s\n\n", n.Title)
		fmt.Printf("ID:       %s\n", n.ID)
		fmt.Printf("Category: %s (%s)\n", a.CategoryName(n.Category), a.CategoryColor(n.Category))
		if len(n.Tags) > 0 {
			fmt.Printf("Tags:     %s\n", strings.Join(n.Tags, ", "))
		}
		fmt.Printf("Created:  %s\n", formatTime(n.CreatedAt))
		fmt.Printf("Updated:  %s\n", formatTime(n.UpdatedAt))
		if n.Content != "" {
			fmt.Printf("\n%s\n", n.Content)
		}
		return nil
	},
}

// list command
var listCmd = &cobra.Command{
	Use:   "list",
	Short: "List notes, optionally filtered",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) (err error) {
		search, _ := cmd.Flags().GetString("search")
		category, _ := cmd.Flags().GetString("category")

		a, err := newApp(cmd.Context(), "list")
		if err != nil {
			return err
		}
		defer closeApp(a, &err)

		list, err := a.ListNotes(search, category)
		if err != nil {
			return err
		}

		if len(list) == 0 {
			if search != "" || category != "" {
				fmt.Println("No notes match the current filter.")
			} else {
				fmt.Println("No notes yet. Create one with `notes add`.")
			}
			return nil
		}

		for _, n := range list {
			tags := ""
			if len(n.Tags) > 0 {
				tags = "  #" + strings.Join(n.Tags, " #")
			}
			fmt.Printf("%s  %-12s  %s  %s%s\n",
				n.ID,
				a.CategoryName(n.Category),
				n.UpdatedAt.Local().Format("2006-01-02 15:04"),
				n.Title,
				tags,
			)
		}
		return nil
	},
}

// category command
var categoryCmd = &cobra.Command{
	Use:   "category",
	Short: "Manage categories",
}

var categoryAddCmd = &cobra.Command{
	Use:   "add NAME COLOR",
	Short: "Create a category (COLOR as #RRGGBB)",
	Args:  cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) (err error) {
		a, err := newApp(cmd.Context(), "category add")
		if err != nil {
			return err
		}
		defer closeApp(a, &err)

		c, err := a.AddCategory(args[0], args[1])
		if err != nil {
			return err
		}

		fmt.Printf("Created category %s (%s, %s)\n", c.Name, c.ID, c.Color)
		return nil
	},
}

var categoryListCmd = &cobra.Command{
	Use:   "list",
	Short: "List categories with note counts",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) (err error) {
		a, err := newApp(cmd.Context(), "category list")
		if err != nil {
			return err
		}
		defer closeApp(a, &err)

		for _, c := range a.Categories() {
			fmt.Printf("%-36s  %s  %-12s  %d\n", c.ID, c.Color, c.Name, c.Count)
		}
		return nil
	},
}

func init() {
	// config subcommands
	configCmd.AddCommand(configInitCmd)
	configCmd.AddCommand(configListCmd)
	configCmd.AddCommand(configKeyCmd)
	configKeyCmd.AddCommand(configKeyInitCmd)

	// category subcommands
	categoryCmd.AddCommand(categoryAddCmd)
	categoryCmd.AddCommand(categoryListCmd)

	// note flags
	for _, c := range []*cobra.Command{addCmd, editCmd} {
		c.Flags().StringP("title", "t", "", "Note title")
		c.Flags().StringP("content", "c", "", "Note content")
		c.Flags().StringP("category", "k", "", "Category id or name")
		c.Flags().StringArray("tag", nil, "Tag (repeatable)")
	}
	editCmd.Flags().Bool("clear-tags", false, "Remove all tags")
	rmCmd.Flags().BoolP("yes", "y", false, "Delete without asking")
	listCmd.Flags().StringP("search", "s", "", "Case-insensitive text to find in title, content or tags")
	listCmd.Flags().StringP("category", "k", "", "Only notes in this category (id or name)")

	// root commands
	rootCmd.AddCommand(configCmd)
	rootCmd.AddCommand(addCmd)
	rootCmd.AddCommand(editCmd)
	rootCmd.AddCommand(rmCmd)
	rootCmd.AddCommand(showCmd)
	rootCmd.AddCommand(listCmd)
	rootCmd.AddCommand(categoryCmd)
}
