package actions

import (
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"jordanella.com/offer-story-go/internal/cv"
)

func TestRoutineUnmarshal(t *testing.T) {
	yamlContent := `routine_name: "Test Routine"
steps:
  - action: tap_image
    sprite: ok
  - action: Sleep
    duration: 250
`

	tempFile := filepath.Join(t.TempDir(), "test_routine.yaml")
	if err := os.WriteFile(tempFile, []byte(yamlContent), 0644); err != nil {
		t.Fatalf("Failed to write test file: %v", err)
	}

	ab, err := NewRoutineLoader().LoadFromFile(tempFile)
	if err != nil {
		t.Fatalf("Failed to load routine: %v", err)
	}

	if ab.Name() != "Test Routine" {
		t.Errorf("Expected name 'Test Routine', got %q", ab.Name())
	}
	want := []string{"TapImage (ok)", "Sleep"}
	got := ab.StepNames()
	if strings.Join(got, ",") != strings.Join(want, ",") {
		t.Errorf("Expected steps %v, got %v", want, got)
	}
}

func TestActionNameNormalization(t *testing.T) {
	yamlContent := `routine_name: names
steps:
  - action: TapImage
    sprite: ok
  - action: tapwhilefound
    sprite: ok
  - action: INPUT_TEXT
    text: hello
`
	ab, err := NewRoutineLoader().LoadFromBytes([]byte(yamlContent))
	if err != nil {
		t.Fatalf("Failed to load routine: %v", err)
	}
	if len(ab.steps) != 3 {
		t.Fatalf("Expected 3 steps, got %d", len(ab.steps))
	}
}

func TestRoutineValidationErrors(t *testing.T) {
	tests := []struct {
		name    string
		yaml    string
		wantErr string
	}{
		{
			name: "unknown action",
			yaml: `routine_name: bad
steps:
  - action: teleport
`,
			wantErr: "unknown action type 'teleport'",
		},
		{
			name: "missing action field",
			yaml: `routine_name: bad
steps:
  - sprite: ok
`,
			wantErr: "missing or invalid 'action' field",
		},
		{
			name:    "no steps",
			yaml:    "routine_name: empty\n",
			wantErr: "has no steps",
		},
		{
			name: "tap without sprite",
			yaml: `routine_name: bad
steps:
  - action: tap_image
`,
			wantErr: "sprite is required",
		},
		{
			name: "unregistered sprite",
			yaml: `routine_name: bad
steps:
  - action: tap_image
    sprite: missing
`,
			wantErr: "sprite 'missing' not found in registry",
		},
		{
			name: "confidence out of range",
			yaml: `routine_name: bad
steps:
  - action: find_image
    sprite: ok
    confidence: 1.5
`,
			wantErr: "confidence",
		},
		{
			name: "negative settle",
			yaml: `routine_name: bad
steps:
  - action: tap_image
    sprite: ok
    settle_ms: -1
`,
			wantErr: "settle_ms",
		},
		{
			name: "drag without delta",
			yaml: `routine_name: bad
steps:
  - action: drag_image
    sprite: ok
    duration_ms: 100
`,
			wantErr: "delta",
		},
		{
			name: "if_variable with both checks",
			yaml: `routine_name: bad
steps:
  - action: if_variable
    variable: x
    equals: "1"
    not_empty: true
    steps:
      - action: sleep
        duration: 1
`,
			wantErr: "cannot use both",
		},
		{
			name: "nested step invalid",
			yaml: `routine_name: bad
steps:
  - action: if_variable
    variable: x
    not_empty: true
    steps:
      - action: sleep
        duration: 0
`,
			wantErr: "step 1",
		},
		{
			name: "unknown policy",
			yaml: `routine_name: bad
steps:
  - action: tap_image
    sprite: ok
    policy: sideways
`,
			wantErr: "policy",
		},
	}

	loader := NewRoutineLoader().WithSprites(NewMockSpriteRegistry("ok"))
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := loader.LoadFromBytes([]byte(tt.yaml))
			if err == nil {
				t.Fatal("Expected error, got nil")
			}
			if !strings.Contains(err.Error(), tt.wantErr) {
				t.Errorf("Expected error containing %q, got %v", tt.wantErr, err)
			}
		})
	}
}

func TestStepTimeout(t *testing.T) {
	yamlContent := `routine_name: timeouts
steps:
  - action: sleep
    duration: 10
    timeout_ms: 1500
  - action: sleep
    duration: 10
`
	ab, err := NewRoutineLoader().LoadFromBytes([]byte(yamlContent))
	if err != nil {
		t.Fatalf("Failed to load routine: %v", err)
	}
	if ab.steps[0].timeout != 1500*time.Millisecond {
		t.Errorf("Expected 1.5s timeout on first step, got %v", ab.steps[0].timeout)
	}
	if ab.steps[1].timeout != 0 {
		t.Errorf("Expected no timeout on second step, got %v", ab.steps[1].timeout)
	}
}

func TestStepErrorReportsIndex(t *testing.T) {
	yamlContent := `routine_name: failing
steps:
  - action: sleep
    duration: 5
  - action: tap_image
    sprite: ok
`
	ab, err := NewRoutineLoader().LoadFromBytes([]byte(yamlContent))
	if err != nil {
		t.Fatalf("Failed to load routine: %v", err)
	}

	bot := NewMockBot("ok")
	bot.locator.queue["ok"] = []bool{false}

	err = ab.Execute(bot)
	var stepErr *StepError
	if !errors.As(err, &stepErr) {
		t.Fatalf("Expected *StepError, got %T: %v", err, err)
	}
	if stepErr.Index != 2 || stepErr.Routine != "failing" {
		t.Errorf("Expected failing step 2, got %+v", stepErr)
	}
	if !errors.Is(err, cv.ErrExhausted) {
		t.Errorf("Expected error to wrap ErrExhausted, got %v", err)
	}
}

func TestOptionalTapSkips(t *testing.T) {
	yamlContent := `routine_name: optional
steps:
  - action: tap_image
    sprite: ok
    optional: true
  - action: input_text
    text: after
`
	ab, err := NewRoutineLoader().LoadFromBytes([]byte(yamlContent))
	if err != nil {
		t.Fatalf("Failed to load routine: %v", err)
	}

	bot := NewMockBot("ok")
	bot.locator.queue["ok"] = []bool{false}

	if err := ab.Execute(bot); err != nil {
		t.Fatalf("Expected optional miss to be skipped, got %v", err)
	}
	if len(bot.taps()) != 0 {
		t.Errorf("Expected no taps, got %d", len(bot.taps()))
	}
	if len(bot.device.calls) != 1 || bot.device.calls[0] != "text after" {
		t.Errorf("Expected the next step to run, got %v", bot.device.calls)
	}
}

func TestFindImageSetsVariable(t *testing.T) {
	yamlContent := `routine_name: find
steps:
  - action: find_image
    sprite: ok
    set_variable: seen
    remember: spot
`
	ab, err := NewRoutineLoader().LoadFromBytes([]byte(yamlContent))
	if err != nil {
		t.Fatalf("Failed to load routine: %v", err)
	}

	bot := NewMockBot("ok")
	bot.locator.queue["ok"] = []bool{false}
	if err := ab.Execute(bot); err != nil {
		t.Fatalf("Execute failed: %v", err)
	}
	if v, _ := bot.vars.Get("seen"); v != "false" {
		t.Errorf("Expected seen=false, got %q", v)
	}

	bot.locator.regions["ok"] = cv.NewRegion(5, 6, 7, 8)
	if err := ab.Execute(bot); err != nil {
		t.Fatalf("Execute failed: %v", err)
	}
	if v, _ := bot.vars.Get("seen"); v != "true" {
		t.Errorf("Expected seen=true, got %q", v)
	}
	region, err := bot.regions.Recall("spot")
	if err != nil || region != cv.NewRegion(5, 6, 7, 8) {
		t.Errorf("Expected remembered region, got %v (%v)", region, err)
	}
}

func TestTapWhileFound(t *testing.T) {
	yamlContent := `routine_name: repeat
steps:
  - action: tap_while_found
    sprite: ok
    max_attempts: 3
    retry_delay_ms: 1000
    max_taps: 4
    settle_ms: 0
`
	ab, err := NewRoutineLoader().LoadFromBytes([]byte(yamlContent))
	if err != nil {
		t.Fatalf("Failed to load routine: %v", err)
	}

	t.Run("taps until gone", func(t *testing.T) {
		bot := NewMockBot("ok")
		bot.locator.queue["ok"] = []bool{true, true, false}
		if err := ab.Execute(bot); err != nil {
			t.Fatalf("Execute failed: %v", err)
		}
		if len(bot.taps()) != 2 {
			t.Errorf("Expected 2 taps, got %d", len(bot.taps()))
		}

		reqs := bot.sprites.requests
		if len(reqs) != 3 {
			t.Fatalf("Expected 3 locate requests, got %d", len(reqs))
		}
		if reqs[0].MaxAttempts != 3 || reqs[0].RetryDelay != time.Second {
			t.Errorf("First locate should use the step settings, got %d/%v", reqs[0].MaxAttempts, reqs[0].RetryDelay)
		}
		if reqs[1].MaxAttempts != 1 || reqs[1].RetryDelay != 0 {
			t.Errorf("Rechecks should be a single attempt, got %d/%v", reqs[1].MaxAttempts, reqs[1].RetryDelay)
		}
	})

	t.Run("never found is fine", func(t *testing.T) {
		bot := NewMockBot("ok")
		bot.locator.queue["ok"] = []bool{false}
		if err := ab.Execute(bot); err != nil {
			t.Fatalf("Expected no error, got %v", err)
		}
		if len(bot.taps()) != 0 {
			t.Errorf("Expected no taps, got %d", len(bot.taps()))
		}
	})

	t.Run("stuck sprite fails", func(t *testing.T) {
		bot := NewMockBot("ok")
		err := ab.Execute(bot)
		if err == nil || !strings.Contains(err.Error(), "still visible after 4 taps") {
			t.Fatalf("Expected max taps error, got %v", err)
		}
		if len(bot.taps()) != 4 {
			t.Errorf("Expected 4 taps, got %d", len(bot.taps()))
		}
	})
}

func TestDragRecallsRememberedRegion(t *testing.T) {
	yamlContent := `routine_name: drag
steps:
  - action: tap_image
    sprite: ok
    remember: target
    settle_ms: 0
  - action: drag_image
    recall: target
    delta: {dx: 0, dy: 920}
    duration_ms: 2000
    settle_ms: 0
`
	ab, err := NewRoutineLoader().LoadFromBytes([]byte(yamlContent))
	if err != nil {
		t.Fatalf("Failed to load routine: %v", err)
	}

	bot := NewMockBot("ok")
	bot.locator.regions["ok"] = cv.NewRegion(300, 600, 120, 40)
	if err := ab.Execute(bot); err != nil {
		t.Fatalf("Execute failed: %v", err)
	}

	if bot.locator.count("ok") != 1 {
		t.Errorf("Drag should reuse the remembered region, got %d locates", bot.locator.count("ok"))
	}
	drag := bot.channel.sent[len(bot.channel.sent)-1]
	if drag.x0 != 360 || drag.y0 != 620 || drag.x1 != 360 || drag.y1 != 1540 || drag.duration != 2*time.Second {
		t.Errorf("Unexpected drag %+v", drag)
	}
}

func TestDragWithoutRememberedRegion(t *testing.T) {
	yamlContent := `routine_name: drag
steps:
  - action: drag_image
    recall: nowhere
    delta: {dx: 10, dy: 0}
`
	ab, err := NewRoutineLoader().LoadFromBytes([]byte(yamlContent))
	if err != nil {
		t.Fatalf("Failed to load routine: %v", err)
	}
	err = ab.Execute(NewMockBot())
	if err == nil || !strings.Contains(err.Error(), "no region remembered as 'nowhere'") {
		t.Fatalf("Expected recall error, got %v", err)
	}
}

func TestIfVariableBranches(t *testing.T) {
	yamlContent := `routine_name: branches
steps:
  - action: if_variable
    variable: mode
    equals: "fast"
    steps:
      - action: input_text
        text: fast path
    else:
      - action: input_text
        text: slow path
`
	ab, err := NewRoutineLoader().LoadFromBytes([]byte(yamlContent))
	if err != nil {
		t.Fatalf("Failed to load routine: %v", err)
	}

	tests := []struct {
		mode string
		want string
	}{
		{"fast", "text fast path"},
		{"slow", "text slow path"},
		{"", "text slow path"},
	}
	for _, tt := range tests {
		bot := NewMockBot()
		if tt.mode != "" {
			bot.vars.Set("mode", tt.mode)
		}
		if err := ab.Execute(bot); err != nil {
			t.Fatalf("mode %q: Execute failed: %v", tt.mode, err)
		}
		if len(bot.device.calls) != 1 || bot.device.calls[0] != tt.want {
			t.Errorf("mode %q: expected %q, got %v", tt.mode, tt.want, bot.device.calls)
		}
	}
}

func TestInputTextMissingVariable(t *testing.T) {
	yamlContent := `routine_name: text
steps:
  - action: input_text
    text: ${nope}
`
	ab, err := NewRoutineLoader().LoadFromBytes([]byte(yamlContent))
	if err != nil {
		t.Fatalf("Failed to load routine: %v", err)
	}
	err = ab.Execute(NewMockBot())
	if err == nil || !strings.Contains(err.Error(), "undefined variables: [nope]") {
		t.Fatalf("Expected undefined variable error, got %v", err)
	}
}

func TestSleepUsesBotSleep(t *testing.T) {
	yamlContent := `routine_name: nap
steps:
  - action: sleep
    duration: 750
`
	ab, err := NewRoutineLoader().LoadFromBytes([]byte(yamlContent))
	if err != nil {
		t.Fatalf("Failed to load routine: %v", err)
	}

	bot := NewMockBot()
	if err := ab.Execute(bot); err != nil {
		t.Fatalf("Execute failed: %v", err)
	}
	if len(bot.sleeps) != 1 || bot.sleeps[0] != 750*time.Millisecond {
		t.Errorf("Expected one 750ms sleep, got %v", bot.sleeps)
	}
}

func TestInterpolateVariables(t *testing.T) {
	vars := NewVariableStoreFrom(map[string]string{"a": "1", "name": "story"})

	tests := []struct {
		input   string
		want    string
		wantErr bool
	}{
		{"plain", "plain", false},
		{"${a}", "1", false},
		{"${name}-${a}.png", "story-1.png", false},
		{"${missing}", "${missing}", true},
		{"$a {a}", "$a {a}", false},
	}
	for _, tt := range tests {
		got, err := InterpolateVariables(tt.input, vars)
		if (err != nil) != tt.wantErr {
			t.Errorf("%q: unexpected error state: %v", tt.input, err)
		}
		if got != tt.want {
			t.Errorf("%q: expected %q, got %q", tt.input, tt.want, got)
		}
	}

	names := ExtractVariableNames("${x} and ${y_2}")
	if len(names) != 2 || names[0] != "x" || names[1] != "y_2" {
		t.Errorf("Unexpected names %v", names)
	}
}
