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
	"bytes"
	"strings"
	"testing"

	"github.com/ademuri/era-tools/internal/analysis"
	"github.com/ademuri/era-tools/internal/pipeline"
	"github.com/ademuri/era-tools/internal/playlist"
)

func testResult() *pipeline.Result {
	pl := &playlist.Playlist{EraID: 1, Tracks: []playlist.Track{
		{Name: "Song <1>", Artist: "Band & Co", PlayCount: 12},
		{Name: "Song 2", Artist: "Band & Co", PlayCount: 7},
	}}
	return &pipeline.Result{
		Status: pipeline.StatusComplete,
		Eras: []pipeline.EraOutput{{
			ID:         1,
			Title:      "The <Loud> Winter",
			Summary:    "Mostly guitars.",
			StartDate:  "2021-01-04",
			EndDate:    "2021-01-24",
			TopArtists: []analysis.ArtistStat{{Name: "Band & Co", Plays: 19}},
			Playlist:   pl,
		}},
	}
}

func TestGenerateEmailContent(t *testing.T) {
	subject, body := generateEmailContent(SendEmailConfig{Source: "history.zip"}, testResult())

	if want := "Listening eras (1) from history.zip"; subject != want {
		t.Errorf("subject = %q, want %q", subject, want)
	}
	for _, want := range []string{
		"<h2>The &lt;Loud&gt; Winter</h2>",
		"2021-01-04 to 2021-01-24",
		"Band &amp; Co",
		"<td>Song &lt;1&gt;</td>",
		"<td>12</td>",
	} {
		if !strings.Contains(body, want) {
			t.Errorf("body missing %q:\n%s", want, body)
		}
	}
	if strings.Contains(body, "<Loud>") {
		t.Errorf("body should escape era titles:\n%s", body)
	}
}

func TestGenerateEmailContentNoEras(t *testing.T) {
	subject, body := generateEmailContent(SendEmailConfig{}, &pipeline.Result{Status: pipeline.StatusNoEras})
	if subject != "Listening eras: no eras found" {
		t.Errorf("subject = %q", subject)
	}
	if !strings.Contains(body, "No eras found.") {
		t.Errorf("body should say no eras were found:\n%s", body)
	}
}

func TestGenerateEmailContentMissingPlaylist(t *testing.T) {
	res := testResult()
	res.Eras[0].Playlist = nil
	_, body := generateEmailContent(SendEmailConfig{}, res)
	if !strings.Contains(body, "No listens found.") {
		t.Errorf("body should note the missing playlist:\n%s", body)
	}
}

func TestSendEmailRequiresKey(t *testing.T) {
	var out bytes.Buffer
	err := sendEmail(&out, SendEmailConfig{From: "me@example.com", To: "you@example.com"}, testResult())
	if err == nil || !strings.Contains(err.Error(), "sendgrid_api_key") {
		t.Errorf("sendEmail() without a key = %v, want a sendgrid_api_key error", err)
	}
}

func TestAnalysisRendering(t *testing.T) {
	a := Analysis{
		results: [][]string{{"Artist", "Listens"}, {"A & B", "3"}},
		summary: "1 artist",
	}
	if got := a.String(); !strings.Contains(got, "A & B") || !strings.Contains(got, "1 artist") {
		t.Errorf("String() = %q", got)
	}
	if got := a.HTML(); !strings.Contains(got, "<td>A &amp; B</td>") || !strings.Contains(got, "<div>1 artist</div>") {
		t.Errorf("HTML() = %q", got)
	}

	empty := Analysis{results: [][]string{{"Artist", "Listens"}}}
	if got := empty.HTML(); !strings.Contains(got, "No listens found.") {
		t.Errorf("HTML() of an empty table = %q", got)
	}
}
