package main

import (
	"encoding/json"
	"fmt"
	"io"
	"os"
	"strings"
	"time"

	"github.com/charmbracelet/huh"
	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"

	"github.com/kimhsiao/feedbacksync/internal/crypto"
	"github.com/kimhsiao/feedbacksync/internal/errors"
	"github.com/kimhsiao/feedbacksync/internal/export"
	"github.com/kimhsiao/feedbacksync/internal/models"
	"github.com/kimhsiao/feedbacksync/internal/stats"
)

const formatArchive = "archive"

// exportDoc is the exported archive.
type exportDoc struct {
	ExportedAt time.Time         `json:"exported_at" yaml:"exported_at"`
	Service    string            `json:"service" yaml:"service"`
	Online     bool              `json:"online" yaml:"online"`
	Stats      stats.Stats       `json:"stats" yaml:"stats"`
	Feedbacks  []models.Feedback `json:"feedbacks" yaml:"feedbacks"`
}

func writeExport(w io.Writer, format string, doc exportDoc) error {
	switch strings.ToLower(format) {
	case "json":
		enc := json.NewEncoder(w)
		enc.SetIndent("", "  ")
		return enc.Encode(doc)
	case "yaml", "yml":
		enc := yaml.NewEncoder(w)
		enc.SetIndent(2)
		if err := enc.Encode(doc); err != nil {
			return err
		}
		return enc.Close()
	default:
		return fmt.Errorf("unknown export format %q (want json or yaml)", format)
	}
}

func newExportCmd() *cobra.Command {
	var (
		format   string
		output   string
		password string
		encrypt  bool
	)
	cmd := &cobra.Command{
		Use:   "export",
		Short: "Export the collection and its statistics",
		Long: `Export the collection and its statistics as JSON or YAML, or as a
verifiable archive (gzip tar with a manifest and checksum) that may be
encrypted with a password.`,
		Example: `  feedback export --format yaml
  feedback export -o feedback.json
  feedback export -o backup.tar.gz --encrypt`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			if output != "" && !cmd.Flags().Changed("format") {
				switch {
				case strings.HasSuffix(output, ".yaml"), strings.HasSuffix(output, ".yml"):
					format = "yaml"
				case strings.HasSuffix(output, ".tar.gz"), strings.HasSuffix(output, ".fbarc"):
					format = formatArchive
				}
			}
			if format == formatArchive {
				if output == "" {
					return fmt.Errorf("--output is required for archives")
				}
				if encrypt && password == "" {
					if err := promptPassword("Archive password", &password); err != nil {
						return err
					}
				}
				if password != "" && len(password) < crypto.PasswordMinLength {
					return fmt.Errorf("archive password must be at least %d characters", crypto.PasswordMinLength)
				}
			} else if err := writeExport(io.Discard, format, exportDoc{}); err != nil {
				return err
			}

			a, err := newApp(cmd)
			if err != nil {
				return err
			}
			defer a.Close()

			records := a.engine.Feedbacks()
			doc := exportDoc{
				ExportedAt: time.Now().UTC(),
				Service:    a.client.BaseURL(),
				Online:     a.engine.IsOnline(),
				Stats:      stats.Project(records),
				Feedbacks:  records,
			}

			var w io.Writer = cmd.OutOrStdout()
			if output != "" {
				f, err := os.Create(output)
				if err != nil {
					return err
				}
				defer f.Close()
				w = f
			}
			if format == formatArchive {
				res, err := export.Write(w, records, export.Options{Service: doc.Service, Password: password})
				if err != nil {
					return err
				}
				fmt.Fprintf(cmd.OutOrStdout(), "%s archived %d record(s) to %s (%d bytes, sha256 %s)\n",
					passStyle.Render("✓"), res.Manifest.ItemCount, output, res.SizeBytes, truncate(res.Manifest.Checksum, 12))
				return nil
			}
			if err := writeExport(w, format, doc); err != nil {
				return err
			}
			if output != "" {
				fmt.Fprintf(cmd.OutOrStdout(), "%s exported %d record(s) to %s\n", passStyle.Render("✓"), len(records), output)
			}
			return nil
		},
	}
	cmd.Flags().StringVarP(&format, "format", "f", "json", "json, yaml or archive")
	cmd.Flags().StringVarP(&output, "output", "o", "", "write to a file instead of stdout")
	cmd.Flags().StringVarP(&password, "password", "p", "", "encrypt the archive with this password")
	cmd.Flags().BoolVar(&encrypt, "encrypt", false, "prompt for an archive password")
	return cmd
}

func newVerifyCmd() *cobra.Command {
	var password string
	cmd := &cobra.Command{
		Use:   "verify <archive>",
		Short: "Check an exported archive and summarise it",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			read := func() (*export.Manifest, []models.Feedback, error) {
				f, err := os.Open(args[0])
				if err != nil {
					return nil, nil, err
				}
				defer f.Close()
				return export.Read(f, password)
			}

			m, records, err := read()
			if errors.Is(err, errors.ErrUnauthorized) && password == "" {
				if err := promptPassword("Archive password", &password); err != nil {
					return err
				}
				m, records, err = read()
			}
			if err != nil {
				return err
			}

			out := cmd.OutOrStdout()
			fmt.Fprintf(out, "%s %s: %d record(s), exported %s, checksum ok\n",
				passStyle.Render("✓"), args[0], m.ItemCount, m.ExportedAt.Local().Format("2006-01-02 15:04"))
			renderStats(out, m.Stats, records)
			return nil
		},
	}
	cmd.Flags().StringVarP(&password, "password", "p", "", "archive password")
	return cmd
}

func promptPassword(title string, password *string) error {
	return huh.NewInput().
		Title(title).
		EchoMode(huh.EchoModePassword).
		Value(password).
		Run()
}
