package service

import (
	"strings"
	"testing"

	"Filmmaker-server/models"
)

const sampleScreenplay = `FADE IN:

INT. FARMHOUSE KITCHEN - MORNING

SARAH, 30s, pours coffee while staring at an old photograph on the wall.

SARAH
(quietly)
Three years today.

She sets the cup down and walks to the window. Outside, a truck pulls into the drive.

EXT. FARMHOUSE - CONTINUOUS

A man steps out of the truck. Sarah watches from behind the curtain.

FADE OUT.`

func TestFallbackClassify(t *testing.T) {
	cases := []struct {
		name   string
		prompt string
		want   models.Classification
	}{
		{
			name:   "plain story idea",
			prompt: "Write a short film about two robots falling in love in a junkyard",
			want:   models.Classification{},
		},
		{
			name:   "explicit script phrase",
			prompt: "Here's my script: FADE IN: a quiet morning...",
			want:   models.Classification{Script: true},
		},
		{
			name:   "storyboard supplied",
			prompt: "I have a storyboard ready, please build the shot breakdown from it",
			want:   models.Classification{Storyboard: true},
		},
		{
			name:   "shot list supplied",
			prompt: "Here's my shot list, I just need the rest of the materials",
			want:   models.Classification{ShotList: true},
		},
		{
			name:   "screenplay formatting without phrases",
			prompt: sampleScreenplay,
			want:   models.Classification{Script: true},
		},
		{
			name: "long prose without markers",
			prompt: strings.Repeat("A long description of the plot and the themes we want to explore. ", 5) +
				"Please turn this into production materials.",
			want: models.Classification{},
		},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			got := fallbackClassify(tc.prompt)
			if got != tc.want {
				t.Errorf("fallbackClassify(%q) = %+v, want %+v", tc.prompt, got, tc.want)
			}
		})
	}
}

func TestExtractSuppliedScriptAfterSeparator(t *testing.T) {
	g := &GeminiClassifier{}
	prompt := "Here's my script:\n\n" + sampleScreenplay + "\n\nNow create a storyboard and shot list for this."

	got := g.ExtractSuppliedScript(prompt)
	if got != sampleScreenplay {
		t.Errorf("expected trailing instruction stripped, got %q", got)
	}
}

func TestExtractSuppliedScriptWholePrompt(t *testing.T) {
	g := &GeminiClassifier{}

	got := g.ExtractSuppliedScript(sampleScreenplay)
	if got != sampleScreenplay {
		t.Errorf("expected whole prompt treated as script, got %q", got)
	}
}

func TestExtractSuppliedScriptNone(t *testing.T) {
	g := &GeminiClassifier{}

	if got := g.ExtractSuppliedScript("Write a short film about robots"); got != "" {
		t.Errorf("expected no script extracted from a story idea, got %q", got)
	}
	// text after the separator too short to be a script
	if got := g.ExtractSuppliedScript("my script: hi"); got != "" {
		t.Errorf("expected short fragment rejected, got %q", got)
	}
}
