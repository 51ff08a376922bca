package actions

import (
	"errors"
	"reflect"
	"testing"
	"time"

	"jordanella.com/offer-story-go/internal/cv"
	"jordanella.com/offer-story-go/internal/gesture"
)

func storyBot(t *testing.T, vars map[string]string) (*MockBot, *ActionBuilder) {
	t.Helper()

	bot := NewMockBot(storySprites...)
	ab, err := NewRoutineLoader().WithSprites(bot.sprites).LoadBuiltin("story")
	if err != nil {
		t.Fatalf("Failed to load built-in story routine: %v", err)
	}

	base := map[string]string{
		"image_path":    "/tmp/0-fone.png",
		"push_folder":   "/sdcard/adb-push-files",
		"push_name":     "image.png",
		"app_package":   "com.instagram.android",
		"link_url":      "",
		"link_text":     "",
		"close_friends": "false",
		"test_call":     "false",
	}
	for k, v := range vars {
		base[k] = v
	}
	for k, v := range base {
		bot.vars.Set(k, v)
	}

	bot.locator.regions["addtostory"] = cv.NewRegion(100, 100, 40, 20)
	bot.locator.regions["recents"] = cv.NewRegion(50, 200, 100, 40)
	bot.locator.regions["linksticker-blue"] = cv.NewRegion(300, 600, 120, 40)
	bot.locator.queue["addtostory"] = []bool{true, true, false}
	return bot, ab
}

func TestStoryWithLinkToCloseFriends(t *testing.T) {
	bot, ab := storyBot(t, map[string]string{
		"link_url":      "https://example.com/oferta",
		"link_text":     "Ver oferta",
		"close_friends": "true",
	})

	if err := ab.Execute(bot); err != nil {
		t.Fatalf("Story failed: %v", err)
	}

	wantDevice := []string{
		"push /tmp/0-fone.png",
		"stop com.instagram.android",
		"launch com.instagram.android",
		"text link",
		"text https://example.com/oferta",
		"text Ver oferta",
		"rm /sdcard/adb-push-files/image.png",
	}
	if !reflect.DeepEqual(bot.device.calls, wantDevice) {
		t.Errorf("Device calls:\n got %v\nwant %v", bot.device.calls, wantDevice)
	}

	if len(bot.sleeps) != 1 || bot.sleeps[0] != 2*time.Second {
		t.Errorf("Expected the 2s launch wait, got %v", bot.sleeps)
	}

	taps := bot.taps()
	// 2 x addtostory, recents, addsticker, searchfield, linksticker,
	// customizestickertext, done, 3 x blue sticker, closefriends
	if len(taps) != 12 {
		t.Fatalf("Expected 12 taps, got %d", len(taps))
	}
	if taps[0].x0 != 120 || taps[0].y0 != 110 {
		t.Errorf("addtostory tap at (%d,%d)", taps[0].x0, taps[0].y0)
	}
	if taps[2].x0 != 100 || taps[2].y0 != 520 {
		t.Errorf("recents tap should be 300px below the header, got (%d,%d)", taps[2].x0, taps[2].y0)
	}
	for _, tap := range taps[8:11] {
		if tap.x0 != 360 || tap.y0 != 620 {
			t.Errorf("blue sticker tap at (%d,%d)", tap.x0, tap.y0)
		}
	}

	var drag *sentGesture
	for i := range bot.channel.sent {
		if bot.channel.sent[i].kind == gesture.KindDrag {
			drag = &bot.channel.sent[i]
		}
	}
	if drag == nil {
		t.Fatal("Expected the sticker to be dragged")
	}
	if drag.x0 != 360 || drag.y0 != 620 || drag.y1 != 1540 || drag.duration != 2*time.Second {
		t.Errorf("Unexpected sticker drag %+v", *drag)
	}
	if bot.locator.count("linksticker-blue") != 1 {
		t.Errorf("Blue sticker should be located once, got %d", bot.locator.count("linksticker-blue"))
	}

	wantSettles := []time.Duration{
		time.Second, time.Second, // addtostory
		500 * time.Millisecond, // recents
		500 * time.Millisecond, // addsticker
		200 * time.Millisecond,
		100 * time.Millisecond,
		100 * time.Millisecond,
		500 * time.Millisecond, // done
		400 * time.Millisecond, 400 * time.Millisecond, 400 * time.Millisecond,
		time.Second, // drag
	}
	if !reflect.DeepEqual(bot.settles, wantSettles) {
		t.Errorf("Settles:\n got %v\nwant %v", bot.settles, wantSettles)
	}

	if bot.locator.count("closefriends") != 1 || bot.locator.count("yourstory") != 0 {
		t.Errorf("Expected close friends publish, locates: %v", bot.locator.calls)
	}
}

func TestStoryWithoutLink(t *testing.T) {
	bot, ab := storyBot(t, nil)

	if err := ab.Execute(bot); err != nil {
		t.Fatalf("Story failed: %v", err)
	}

	for _, sprite := range []string{"addsticker", "linksticker", "linksticker-blue", "closefriends"} {
		if n := bot.locator.count(sprite); n != 0 {
			t.Errorf("Sprite %s located %d times without a link", sprite, n)
		}
	}
	if bot.locator.count("yourstory") != 1 {
		t.Errorf("Expected a public story publish")
	}
	// 2 x addtostory, recents, yourstory
	if len(bot.taps()) != 4 {
		t.Errorf("Expected 4 taps, got %d", len(bot.taps()))
	}
}

func TestStoryTestCallSkipsPublish(t *testing.T) {
	bot, ab := storyBot(t, map[string]string{"test_call": "true", "close_friends": "true"})

	if err := ab.Execute(bot); err != nil {
		t.Fatalf("Story failed: %v", err)
	}

	if bot.locator.count("closefriends")+bot.locator.count("yourstory") != 0 {
		t.Errorf("Test call must not publish, locates: %v", bot.locator.calls)
	}
	last := bot.device.calls[len(bot.device.calls)-1]
	if last != "rm /sdcard/adb-push-files/image.png" {
		t.Errorf("Expected pushed file cleanup, got %q", last)
	}
}

func TestStoryStopsWhenGalleryMissing(t *testing.T) {
	bot, ab := storyBot(t, nil)
	bot.locator.queue["recents"] = []bool{false}

	err := ab.Execute(bot)
	var stepErr *StepError
	if !errors.As(err, &stepErr) {
		t.Fatalf("Expected *StepError, got %v", err)
	}
	if stepErr.Index != 4 || stepErr.Routine != "story" {
		t.Errorf("Expected story step 4 to fail, got %+v", stepErr)
	}
	if !errors.Is(err, cv.ErrExhausted) {
		t.Errorf("Expected ErrExhausted, got %v", err)
	}
	for _, call := range bot.device.calls {
		if call == "rm /sdcard/adb-push-files/image.png" {
			t.Error("Later steps must not run after a failure")
		}
	}
}

func TestStoryRequiresRegisteredSprites(t *testing.T) {
	_, err := NewRoutineLoader().WithSprites(NewMockSpriteRegistry("addtostory")).LoadBuiltin("story")
	if err == nil {
		t.Fatal("Expected validation error for missing sprites")
	}

	if _, err := NewRoutineLoader().LoadBuiltin("nope"); err == nil {
		t.Fatal("Expected error for unknown built-in routine")
	}
}
