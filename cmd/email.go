/*
Copyright 2020 Google LLC

Licensed under the Apache License, Version 2.0 (the "License");
you may not use this file except in compliance with the License.
You may obtain a copy of the License at

    http://www.apache.org/licenses/LICENSE-2.0

Unless required by applicable law or agreed to in writing, software
distributed under the License is distributed on an "AS IS" BASIS,
WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
See the License for the specific language governing permissions and
limitations under the License.
*/
package cmd

import (
	"fmt"
	"html"
	"io"
	"os"
	"strings"

	"github.com/sendgrid/sendgrid-go"
	"github.com/sendgrid/sendgrid-go/helpers/mail"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/ademuri/era-tools/internal/pipeline"
)

type SendEmailConfig struct {
	From   string
	To     string
	Source string
	DryRun bool
	APIKey string
}

var emailCmd = &cobra.Command{
	Use:   "email <run-id> <address>",
	Short: "Emails an archived run",
	Long:  `Renders the eras of a run saved with 'eras --save' as HTML and emails them.`,
	Args:  cobra.ExactArgs(2),
	PreRunE: func(cmd *cobra.Command, args []string) error {
		if viper.GetString("from") == "" {
			return fmt.Errorf("required flag(s) \"from\" not set")
		}
		return nil
	},
	Run: func(cmd *cobra.Command, args []string) {
		dryRun, _ := cmd.Flags().GetBool("dry_run")
		err := emailRun(os.Stdout, viper.GetString("database"), args[0], SendEmailConfig{
			From:   viper.GetString("from"),
			To:     args[1],
			DryRun: dryRun,
			APIKey: viper.GetString("sendgrid_api_key"),
		})
		if err != nil {
			fmt.Println(err)
			os.Exit(1)
		}
	},
}

func init() {
	rootCmd.AddCommand(emailCmd)

	emailCmd.Flags().BoolP("dry_run", "n", false, "When true, just print instead of emailing")
}

func emailRun(out io.Writer, dbPath, id string, config SendEmailConfig) error {
	res, source, err := loadRun(dbPath, id)
	if err != nil {
		return err
	}
	config.Source = source
	return sendEmail(out, config, res)
}

func sendEmail(out io.Writer, config SendEmailConfig, res *pipeline.Result) error {
	subject, body := generateEmailContent(config, res)

	if config.DryRun {
		fmt.Fprintf(out, "Would have sent email: \nsubject: %s\n%s\n", subject, body)
		return nil
	}
	if config.APIKey == "" {
		return fmt.Errorf("sendgrid_api_key must be set in order to send emails")
	}

	from := mail.NewEmail("era-tools", config.From)
	to := mail.NewEmail("", config.To)
	message := mail.NewSingleEmail(from, subject, to, subject, body)
	response, err := sendgrid.NewSendClient(config.APIKey).Send(message)
	if err != nil {
		return fmt.Errorf("sendEmail: %w", err)
	}
	if response.StatusCode >= 300 {
		return fmt.Errorf("sendEmail: status %d: %s", response.StatusCode, response.Body)
	}
	return nil
}

func generateEmailContent(config SendEmailConfig, res *pipeline.Result) (subject string, body string) {
	var out strings.Builder
	out.WriteString(`
<html>
  <head>
<style>
td {
  padding: 0.1em 0.2em;
}
table, th, td {
  border: 1px solid black;
  border-collapse: collapse;
}
</style>
  </head>
  <body>
`)
	if res.Status == pipeline.StatusNoEras {
		out.WriteString("<div>No eras found.</div>\n")
	}
	for _, era := range res.Eras {
		out.WriteString("<div>\n")
		fmt.Fprintf(&out, "<h2>%s</h2>\n", html.EscapeString(era.Title))
		fmt.Fprintf(&out, "<p><strong>%s to %s</strong></p>\n", era.StartDate, era.EndDate)
		fmt.Fprintf(&out, "<p>%s</p>\n", html.EscapeString(era.Summary))

		var artists []string
		for _, a := range era.TopArtists {
			artists = append(artists, html.EscapeString(a.Name))
		}
		if len(artists) > 0 {
			fmt.Fprintf(&out, "<p><strong>Top artists:</strong> %s</p>\n", strings.Join(artists, ", "))
		}

		out.WriteString(playlistAnalysis(era).HTML())
		out.WriteString("</div>\n")
	}
	out.WriteString("  </body>\n</html>\n")

	subject = fmt.Sprintf("Listening eras (%d)", len(res.Eras))
	if res.Status == pipeline.StatusNoEras {
		subject = "Listening eras: no eras found"
	}
	if config.Source != "" {
		subject += " from " + config.Source
	}
	return subject, out.String()
}

func playlistAnalysis(era pipeline.EraOutput) (a Analysis) {
	a.results = [][]string{{"#", "Track", "Artist", "Plays"}}
	if era.Playlist == nil {
		return
	}
	for i, t := range era.Playlist.Tracks {
		a.results = append(a.results, []string{fmt.Sprint(i + 1), t.Name, t.Artist, fmt.Sprint(t.PlayCount)})
	}
	return
}
