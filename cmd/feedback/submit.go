package main

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/charmbracelet/huh"
	"github.com/spf13/cobra"

	"github.com/kimhsiao/feedbacksync/internal/feedback"
	"github.com/kimhsiao/feedbacksync/internal/models"
)

func newSubmitCmd() *cobra.Command {
	var (
		d           models.Draft
		category    string
		interactive bool
	)
	cmd := &cobra.Command{
		Use:   "submit [text]",
		Short: "Submit a feedback",
		Example: `  feedback submit "Great service, very helpful" --rating 5 --name Ann
  feedback submit "Slow checkout" -r 2 --anonymous --category product
  feedback submit -i`,
		Args: cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if len(args) == 1 {
				d.Text = args[0]
			}
			d.Category = models.Category(category)
			if interactive {
				if err := promptDraft(&d); err != nil {
					return err
				}
			}
			if err := feedback.Validate(d); err != nil {
				return err
			}

			a, err := newApp(cmd)
			if err != nil {
				return err
			}
			defer a.Close()

			rec, err := a.engine.Submit(cmd.Context(), d)
			if err != nil {
				return err
			}

			out := cmd.OutOrStdout()
			if a.engine.IsOnline() {
				fmt.Fprintf(out, "%s submitted %s (%s)\n", passStyle.Render("✓"), rec.ID, rec.Sentiment)
			} else {
				fmt.Fprintf(out, "%s saved %s locally; it will be sent when the service is reachable\n", warnStyle.Render("⚠"), rec.ID)
			}
			return nil
		},
	}
	f := cmd.Flags()
	f.StringVarP(&d.Text, "text", "t", "", "feedback text")
	f.IntVarP(&d.Rating, "rating", "r", 0, "rating from 1 to 5")
	f.StringVarP(&d.AuthorName, "name", "n", "", "author name")
	f.BoolVarP(&d.Anonymous, "anonymous", "a", false, "submit without a name")
	f.StringVarP(&category, "category", "c", "", "general, service, product or suggestion")
	f.BoolVarP(&interactive, "interactive", "i", false, "fill the feedback in a form")
	return cmd
}

// promptDraft asks for every field of d, starting from its current values.
func promptDraft(d *models.Draft) error {
	rating := strconv.Itoa(d.Rating)
	category := string(d.Category)
	if category == "" {
		category = string(models.CategoryGeneral)
	}

	ratingOpts := make([]huh.Option[string], 0, 5)
	for i := 5; i >= 1; i-- {
		ratingOpts = append(ratingOpts, huh.NewOption(fmt.Sprintf("%d %s", i, stars(i)), strconv.Itoa(i)))
	}
	categoryOpts := make([]huh.Option[string], 0, len(models.Categories))
	for _, c := range models.Categories {
		categoryOpts = append(categoryOpts, huh.NewOption(string(c), string(c)))
	}

	form := huh.NewForm(
		huh.NewGroup(
			huh.NewText().
				Title("Your feedback").
				Value(&d.Text).
				Validate(func(s string) error {
					if strings.TrimSpace(s) == "" {
						return fmt.Errorf("please enter your feedback")
					}
					return nil
				}),
			huh.NewSelect[string]().
				Title("Rating").
				Options(ratingOpts...).
				Value(&rating),
			huh.NewSelect[string]().
				Title("Category").
				Options(categoryOpts...).
				Value(&category),
		),
		huh.NewGroup(
			huh.NewConfirm().
				Title("Submit anonymously?").
				Value(&d.Anonymous),
		),
		huh.NewGroup(
			huh.NewInput().
				Title("Your name").
				Value(&d.AuthorName),
		).WithHideFunc(func() bool { return d.Anonymous }),
	).WithShowHelp(true)
	if err := form.Run(); err != nil {
		return err
	}

	d.Rating, _ = strconv.Atoi(rating)
	d.Category = models.Category(category)
	return nil
}
